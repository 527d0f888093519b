package extractor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/JonMunkholm/piipreview/internal/pii"
)

// fakeService is a stand-in extraction service that records the multipart
// parts it receives.
type fakeService struct {
	status int
	body   string

	field    string
	gotNames []string
	gotTypes []string
	gotData  []string
	calls    atomic.Int32
}

func (f *fakeService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.calls.Add(1)

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	for _, fh := range r.MultipartForm.File[f.field] {
		f.gotNames = append(f.gotNames, fh.Filename)
		f.gotTypes = append(f.gotTypes, fh.Header.Get("Content-Type"))
		src, err := fh.Open()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(src)
		src.Close()
		f.gotData = append(f.gotData, string(data))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(f.status)
	fmt.Fprint(w, f.body)
}

func newTestClient(t *testing.T, svc *fakeService) *Client {
	t.Helper()
	srv := httptest.NewServer(svc)
	t.Cleanup(srv.Close)
	return New(Options{URL: srv.URL + "/extract"}, srv.Client(), nil, nil)
}

func TestClient_ExtractSuccess(t *testing.T) {
	svc := &fakeService{
		status: http.StatusOK,
		field:  DefaultFieldName,
		body: `{"status":"success","count":2,"rows":[
			{"file_name":"a.pdf","page_number":1,"occurrence":1,"phone":"123"},
			{"file_name":"b.pdf","page_number":1,"occurrence":1,"email":"x@y.com"}]}`,
	}
	c := newTestClient(t, svc)

	files := []pii.File{
		{Name: "a.pdf", ContentType: "application/pdf", Data: []byte("%PDF-a")},
		{Name: "b.pdf", Data: []byte("%PDF-b")},
	}
	resp, err := c.Extract(context.Background(), files)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if resp.Len() != 2 {
		t.Fatalf("rows = %d, want 2", resp.Len())
	}
	if resp.Rows[0].Phone != "123" || resp.Rows[1].Email != "x@y.com" {
		t.Errorf("unexpected rows: %+v", resp.Rows)
	}
	if resp.Rows[0].Email != "" || resp.Rows[1].Phone != "" {
		t.Errorf("absent fields should decode empty: %+v", resp.Rows)
	}

	if n := svc.calls.Load(); n != 1 {
		t.Errorf("service called %d times, want 1", n)
	}
	if len(svc.gotNames) != 2 || svc.gotNames[0] != "a.pdf" || svc.gotNames[1] != "b.pdf" {
		t.Errorf("parts = %v, want [a.pdf b.pdf] in order", svc.gotNames)
	}
	if svc.gotTypes[0] != "application/pdf" {
		t.Errorf("part 0 content type = %q, want application/pdf", svc.gotTypes[0])
	}
	if svc.gotTypes[1] != "application/octet-stream" {
		t.Errorf("part 1 content type = %q, want application/octet-stream", svc.gotTypes[1])
	}
	if svc.gotData[0] != "%PDF-a" || svc.gotData[1] != "%PDF-b" {
		t.Errorf("part bodies = %q", svc.gotData)
	}
}

func TestClient_CustomFieldName(t *testing.T) {
	svc := &fakeService{status: http.StatusOK, field: "documents", body: `{"rows":[]}`}
	srv := httptest.NewServer(svc)
	defer srv.Close()

	c := New(Options{URL: srv.URL, FieldName: "documents"}, srv.Client(), nil, nil)
	if _, err := c.Extract(context.Background(), []pii.File{{Name: "a.pdf"}}); err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(svc.gotNames) != 1 {
		t.Errorf("parts under %q = %d, want 1", "documents", len(svc.gotNames))
	}
}

func TestClient_DecodesLoosePayloads(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		check func(t *testing.T, resp *pii.Response)
	}{
		{
			name: "bare array",
			body: `[{"file_name":"a.pdf","phone":"123"},{"file_name":"b.pdf","email":"x@y.com"}]`,
			check: func(t *testing.T, resp *pii.Response) {
				if resp.Len() != 2 || resp.Count != 2 || resp.Rows[1].Email != "x@y.com" {
					t.Errorf("rows = %+v", resp)
				}
			},
		},
		{
			name: "numeric phone",
			body: `{"rows":[{"file_name":"a.pdf","phone":9876543210}]}`,
			check: func(t *testing.T, resp *pii.Response) {
				if resp.Rows[0].Phone != "9876543210" {
					t.Errorf("Phone = %q", resp.Rows[0].Phone)
				}
			},
		},
		{
			name: "string page number",
			body: `{"rows":[{"file_name":"a.pdf","page_number":"1","occurrence":2}]}`,
			check: func(t *testing.T, resp *pii.Response) {
				if resp.Rows[0].PageNumber != "1" || resp.Rows[0].Occurrence != "2" {
					t.Errorf("counters = %q/%q", resp.Rows[0].PageNumber, resp.Rows[0].Occurrence)
				}
			},
		},
		{
			name: "null fields",
			body: `{"status":null,"count":null,"rows":[{"file_name":"a.pdf","email":null,"dob":false}]}`,
			check: func(t *testing.T, resp *pii.Response) {
				if resp.Rows[0].Email != "" || resp.Rows[0].DOB != "false" {
					t.Errorf("row = %+v", resp.Rows[0])
				}
			},
		},
		{
			name: "null rows",
			body: `{"status":"success","count":0,"rows":null}`,
			check: func(t *testing.T, resp *pii.Response) {
				if resp.Len() != 0 {
					t.Errorf("Len() = %d, want 0", resp.Len())
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{status: http.StatusOK, field: DefaultFieldName, body: tt.body}
			c := newTestClient(t, svc)

			resp, err := c.Extract(context.Background(), []pii.File{{Name: "a.pdf"}})
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			tt.check(t, resp)
		})
	}
}

func TestClient_ExtractFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `{"detail":"Internal Server Error: boom"}`},
		{name: "unprocessable", status: http.StatusUnprocessableEntity, body: `{"detail":"files required"}`},
		{name: "not found", status: http.StatusNotFound, body: `{}`},
		{name: "malformed json", status: http.StatusOK, body: `{"rows":[`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{status: tt.status, field: DefaultFieldName, body: tt.body}
			c := newTestClient(t, svc)

			resp, err := c.Extract(context.Background(), []pii.File{{Name: "a.pdf"}})
			if !errors.Is(err, pii.ErrExtractionFailed) {
				t.Errorf("Extract() error = %v, want ErrExtractionFailed", err)
			}
			if resp != nil {
				t.Errorf("Extract() resp = %+v, want nil", resp)
			}
		})
	}
}

func TestClient_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(Options{URL: url}, nil, nil, nil)
	_, err := c.Extract(context.Background(), []pii.File{{Name: "a.pdf"}})
	if !errors.Is(err, pii.ErrExtractionFailed) {
		t.Errorf("Extract() error = %v, want ErrExtractionFailed", err)
	}
}

func TestClient_EmptyFiles(t *testing.T) {
	svc := &fakeService{status: http.StatusOK, field: DefaultFieldName, body: `{"rows":[]}`}
	c := newTestClient(t, svc)

	if _, err := c.Extract(context.Background(), nil); !errors.Is(err, pii.ErrNothingSelected) {
		t.Errorf("Extract(nil) error = %v, want ErrNothingSelected", err)
	}
	if n := svc.calls.Load(); n != 0 {
		t.Errorf("service called %d times for empty input, want 0", n)
	}
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := New(Options{URL: srv.URL, Timeout: 50 * time.Millisecond}, srv.Client(), nil, nil)
	_, err := c.Extract(context.Background(), []pii.File{{Name: "a.pdf"}})
	if !errors.Is(err, pii.ErrExtractionFailed) {
		t.Errorf("Extract() error = %v, want ErrExtractionFailed", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Extract() error = %v, want to wrap context.DeadlineExceeded", err)
	}
}

func TestClient_LimiterReleasesSlot(t *testing.T) {
	svc := &fakeService{status: http.StatusOK, field: DefaultFieldName, body: `{"rows":[]}`}
	srv := httptest.NewServer(svc)
	defer srv.Close()

	limiter := NewLimiter(1, 100*time.Millisecond)
	c := New(Options{URL: srv.URL}, srv.Client(), limiter, nil)

	for i := 0; i < 3; i++ {
		if _, err := c.Extract(context.Background(), []pii.File{{Name: "a.pdf"}}); err != nil {
			t.Fatalf("Extract() #%d error = %v", i, err)
		}
	}
	if got := limiter.ActiveCount(); got != 0 {
		t.Errorf("ActiveCount() = %d after calls, want 0", got)
	}
}

func TestClient_LimiterFull(t *testing.T) {
	svc := &fakeService{status: http.StatusOK, field: DefaultFieldName, body: `{"rows":[]}`}
	srv := httptest.NewServer(svc)
	defer srv.Close()

	limiter := NewLimiter(1, 50*time.Millisecond)
	if err := limiter.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer limiter.Release()

	c := New(Options{URL: srv.URL}, srv.Client(), limiter, nil)
	_, err := c.Extract(context.Background(), []pii.File{{Name: "a.pdf"}})
	if !errors.Is(err, ErrTooManyExtractions) {
		t.Errorf("Extract() error = %v, want ErrTooManyExtractions", err)
	}
	if !errors.Is(err, pii.ErrExtractionFailed) {
		t.Errorf("Extract() error = %v, want ErrExtractionFailed", err)
	}
	if n := svc.calls.Load(); n != 0 {
		t.Errorf("service called %d times, want 0", n)
	}
}

func TestNew_Defaults(t *testing.T) {
	c := New(Options{}, nil, nil, nil)
	if c.URL() != DefaultURL {
		t.Errorf("URL() = %q, want %q", c.URL(), DefaultURL)
	}
	if c.field != DefaultFieldName {
		t.Errorf("field = %q, want %q", c.field, DefaultFieldName)
	}
}
