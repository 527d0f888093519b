package pii

// coordinator.go implements the upload coordinator: the selected files plus
// a busy flag that guards submission.
//
// Submit is a no-op (ErrNothingSelected / ErrBusy) when the selection is
// empty or a request is already in flight. The busy flag always clears once
// the extraction call returns, whatever the outcome. A failed call leaves the
// selection untouched so the user can retry; a successful one discards it,
// since the view navigates away to the results. The selection cannot change
// while a request is in flight, so what is discarded is exactly what was
// sent.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

var (
	// ErrNothingSelected is returned by Submit when no file is selected.
	ErrNothingSelected = errors.New("no file selected")

	// ErrBusy is returned by Submit, and by selection changes, while a
	// previous submission is in flight.
	ErrBusy = errors.New("extraction already in progress")

	// ErrExtractionFailed covers every failed extraction request: network
	// errors, non-success statuses and undecodable responses.
	ErrExtractionFailed = errors.New("PII extraction failed")

	// ErrSelectionTooLarge is returned by AddWithin when the files would push
	// the selection past its size limit.
	ErrSelectionTooLarge = errors.New("file too large: selection exceeds size limit")
)

// Extractor performs the single extraction request for a set of files.
type Extractor interface {
	Extract(ctx context.Context, files []File) (*Response, error)
}

// Coordinator holds one view's file selection and busy flag.
// It is safe for concurrent use.
type Coordinator struct {
	extractor Extractor
	logger    *slog.Logger

	mu        sync.Mutex
	selection Selection
	busy      bool
}

// NewCoordinator creates a coordinator that submits through extractor.
func NewCoordinator(extractor Extractor, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{extractor: extractor, logger: logger}
}

// Add appends files to the selection. It fails with ErrBusy while a
// submission is in flight.
func (c *Coordinator) Add(files ...File) error {
	return c.AddWithin(0, files...)
}

// AddWithin appends files unless the selection would then exceed limit
// bytes. A limit <= 0 disables the check. Nothing is added on error.
func (c *Coordinator) AddWithin(limit int64, files ...File) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.busy {
		return ErrBusy
	}
	if limit > 0 {
		total := c.selection.TotalSize()
		for _, f := range files {
			total += f.Size()
		}
		if total > limit {
			return fmt.Errorf("%w (%d > %d bytes)", ErrSelectionTooLarge, total, limit)
		}
	}
	c.selection.Add(files...)
	return nil
}

// Remove deletes the selected file at index. It fails with ErrBusy while a
// submission is in flight.
func (c *Coordinator) Remove(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return ErrBusy
	}
	return c.selection.Remove(index)
}

// Files returns a snapshot of the selection.
func (c *Coordinator) Files() []File {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selection.Files()
}

// Busy reports whether a submission is in flight.
func (c *Coordinator) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// CanSubmit reports whether Submit would issue a request.
func (c *Coordinator) CanSubmit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selection.Len() > 0 && !c.busy
}

// Snapshot is a consistent view of the coordinator for rendering.
type Snapshot struct {
	Files     []File
	Busy      bool
	CanSubmit bool
}

// Snapshot returns the selection and busy flag read under one lock.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Files:     c.selection.Files(),
		Busy:      c.busy,
		CanSubmit: c.selection.Len() > 0 && !c.busy,
	}
}

// Submit sends the selected files to the extractor.
//
// Returns ErrNothingSelected or ErrBusy without doing anything when the
// guard fails. Any extraction failure is returned wrapped in
// ErrExtractionFailed.
func (c *Coordinator) Submit(ctx context.Context) (*Response, error) {
	c.mu.Lock()
	if c.selection.Len() == 0 {
		c.mu.Unlock()
		return nil, ErrNothingSelected
	}
	if c.busy {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	c.busy = true
	files := c.selection.Files()
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.busy = false
		c.mu.Unlock()
	}()

	resp, err := c.extractor.Extract(ctx, files)
	if err != nil {
		c.logger.Error("extraction failed", "files", len(files), "error", err)
		if !errors.Is(err, ErrExtractionFailed) {
			err = fmt.Errorf("%w: %w", ErrExtractionFailed, err)
		}
		return nil, err
	}
	if resp == nil {
		resp = &Response{}
	}

	c.mu.Lock()
	c.selection.Clear()
	c.mu.Unlock()

	c.logger.Info("extraction complete", "files", len(files), "rows", resp.Len())
	return resp, nil
}
