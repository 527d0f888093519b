package web

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/JonMunkholm/piipreview/internal/pii"
)

// fakeClock is a settable time source.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestStore(idle time.Duration, max int, ext pii.Extractor) (*SessionStore, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)}
	st := NewSessionStore(idle, max, func() *pii.Coordinator {
		return pii.NewCoordinator(ext, nil)
	})
	st.now = clock.now
	return st, clock
}

func TestSessionStore_GetTouches(t *testing.T) {
	st, clock := newTestStore(time.Minute, 10, &fakeExtractor{})

	s, err := st.Create()
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	clock.advance(50 * time.Second)
	if st.Get(s.id) == nil {
		t.Fatal("Get() = nil before idle timeout")
	}
	clock.advance(50 * time.Second)
	if st.Get(s.id) == nil {
		t.Fatal("Get() = nil; previous Get should have refreshed the session")
	}

	clock.advance(2 * time.Minute)
	if st.Get(s.id) != nil {
		t.Error("Get() returned an expired session")
	}
	if st.Len() != 0 {
		t.Errorf("Len() = %d after expiry, want 0", st.Len())
	}
}

func TestSessionStore_GetUnknown(t *testing.T) {
	st, _ := newTestStore(time.Minute, 10, &fakeExtractor{})
	if st.Get("") != nil || st.Get("nope") != nil {
		t.Error("Get() returned a session for an unknown id")
	}
}

func TestSessionStore_Sweep(t *testing.T) {
	st, clock := newTestStore(time.Minute, 10, &fakeExtractor{})

	old, _ := st.Create()
	clock.advance(45 * time.Second)
	fresh, _ := st.Create()
	clock.advance(30 * time.Second)

	if n := st.Sweep(); n != 1 {
		t.Errorf("Sweep() removed %d, want 1", n)
	}
	if st.Get(old.id) != nil {
		t.Error("old session survived sweep")
	}
	if st.Get(fresh.id) == nil {
		t.Error("fresh session was swept")
	}
}

func TestSessionStore_BusySessionNeverExpires(t *testing.T) {
	ext := &fakeExtractor{
		resp:    &pii.Response{},
		started: make(chan struct{}, 1),
		block:   make(chan struct{}),
	}
	st, clock := newTestStore(time.Minute, 10, ext)

	s, _ := st.Create()
	s.coord.Add(pii.File{Name: "a.pdf"})

	done := make(chan struct{})
	go func() {
		s.coord.Submit(context.Background())
		close(done)
	}()
	<-ext.started

	clock.advance(time.Hour)
	if n := st.Sweep(); n != 0 {
		t.Errorf("Sweep() removed %d busy sessions", n)
	}

	close(ext.block)
	<-done
	if n := st.Sweep(); n != 1 {
		t.Errorf("Sweep() removed %d after extraction finished, want 1", n)
	}
}

func TestSessionStore_EvictsLeastRecentlyUsed(t *testing.T) {
	st, clock := newTestStore(time.Hour, 2, &fakeExtractor{})

	first, _ := st.Create()
	clock.advance(time.Second)
	second, _ := st.Create()
	clock.advance(time.Second)
	st.Get(first.id)
	clock.advance(time.Second)

	third, err := st.Create()
	if err != nil {
		t.Fatalf("Create() at capacity error = %v", err)
	}
	if st.Len() != 2 {
		t.Errorf("Len() = %d, want 2", st.Len())
	}
	if st.Get(second.id) != nil {
		t.Error("least recently used session was not evicted")
	}
	if st.Get(first.id) == nil || st.Get(third.id) == nil {
		t.Error("recently used sessions were evicted")
	}
}

func TestSessionStore_FullOfBusySessions(t *testing.T) {
	ext := &fakeExtractor{
		resp:    &pii.Response{},
		started: make(chan struct{}, 1),
		block:   make(chan struct{}),
	}
	st, _ := newTestStore(time.Hour, 1, ext)

	s, _ := st.Create()
	s.coord.Add(pii.File{Name: "a.pdf"})
	done := make(chan struct{})
	go func() {
		s.coord.Submit(context.Background())
		close(done)
	}()
	<-ext.started

	if _, err := st.Create(); !errors.Is(err, ErrTooManySessions) {
		t.Errorf("Create() error = %v, want ErrTooManySessions", err)
	}

	close(ext.block)
	<-done
	if _, err := st.Create(); err != nil {
		t.Errorf("Create() after extraction finished error = %v", err)
	}
}

func TestSessionStore_RunStopsWithContext(t *testing.T) {
	st, _ := newTestStore(time.Minute, 10, &fakeExtractor{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		st.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run() did not stop after cancel")
	}
}

func TestSessionResultHandoff(t *testing.T) {
	var s session
	if s.Result() != nil {
		t.Fatal("new session has a result")
	}
	resp := &pii.Response{Count: 1, Rows: []pii.Row{{FileName: "a.pdf"}}}
	s.setResult(resp)
	if s.Result() != resp {
		t.Error("Result() did not return the handed-off response")
	}
	s.clearResult()
	if s.Result() != nil {
		t.Error("clearResult() kept the response")
	}
}
