package pii

import (
	"errors"
	"fmt"
)

// ErrIndexOutOfRange is returned by Remove when the index does not name a
// selected file.
var ErrIndexOutOfRange = errors.New("selection index out of range")

// Selection is an ordered collection of user-chosen files.
// It is not safe for concurrent use; the Coordinator guards it.
type Selection struct {
	files []File
}

// Add appends files in the order given.
func (s *Selection) Add(files ...File) {
	s.files = append(s.files, files...)
}

// Remove deletes the file at index, preserving the order of the rest.
func (s *Selection) Remove(index int) error {
	if index < 0 || index >= len(s.files) {
		return fmt.Errorf("remove %d of %d: %w", index, len(s.files), ErrIndexOutOfRange)
	}
	next := make([]File, 0, len(s.files)-1)
	next = append(next, s.files[:index]...)
	next = append(next, s.files[index+1:]...)
	s.files = next
	return nil
}

// Len returns the number of selected files.
func (s *Selection) Len() int {
	return len(s.files)
}

// Files returns a copy of the selected files in order.
func (s *Selection) Files() []File {
	out := make([]File, len(s.files))
	copy(out, s.files)
	return out
}

// TotalSize returns the combined size of all selected files in bytes.
func (s *Selection) TotalSize() int64 {
	var n int64
	for _, f := range s.files {
		n += f.Size()
	}
	return n
}

// Clear discards the selection.
func (s *Selection) Clear() {
	s.files = nil
}
