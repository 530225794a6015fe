// Package upload stages a single structured data file and tracks its submission.
package upload

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/datachat/console/internal/models"
)

// ErrNothingStaged is returned by BeginSubmit when no file is staged.
var ErrNothingStaged = errors.New("no structured data file selected for upload")

// File is a file picked by the user. Release, when set, frees whatever
// backs Open once the file is no longer staged.
type File struct {
	Name    string
	Size    int64
	Open    func() (io.ReadCloser, error)
	Release func()
}

// PendingUpload is a validated file waiting to be sent.
type PendingUpload struct {
	Name      string
	Size      int64
	Extension string
	file      File
}

// Open returns the file contents.
func (p *PendingUpload) Open() (io.ReadCloser, error) {
	if p.file.Open == nil {
		return nil, fmt.Errorf("file %q has no content", p.Name)
	}
	return p.file.Open()
}

// Release frees the backing file. Safe to call on nil.
func (p *PendingUpload) Release() {
	if p == nil || p.file.Release == nil {
		return
	}
	p.file.Release()
}

// State is the upload controller state.
type State struct {
	Pending  *PendingUpload
	InFlight bool
	// Last is the most recent successful upload, kept for its preview.
	Last *models.UploadResult
}

// SubmitEnabled reports whether the submit control is usable.
func (s State) SubmitEnabled() bool {
	return s.Pending != nil && !s.InFlight
}

// Reason classifies a validation failure.
type Reason string

const (
	ReasonTooLarge    Reason = "too_large"
	ReasonUnsupported Reason = "unsupported_type"
)

// ValidationError rejects a selected file before anything is sent.
type ValidationError struct {
	Reason Reason
	Name   string
	Size   int64
}

func (e *ValidationError) Error() string {
	switch e.Reason {
	case ReasonTooLarge:
		return fmt.Sprintf("Structured data file %q (%.2fMB) exceeds the %dMB limit.",
			e.Name, float64(e.Size)/1024/1024, models.MaxUploadBytes/1024/1024)
	default:
		return fmt.Sprintf("File type of %q is not supported. Only XLSX, XLS, CSV.", e.Name)
	}
}

// Extension returns the lower-cased extension of name without the dot.
func Extension(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

// Validate checks size and type of a file.
func Validate(f File) error {
	if f.Size > models.MaxUploadBytes {
		return &ValidationError{Reason: ReasonTooLarge, Name: f.Name, Size: f.Size}
	}
	if !slices.Contains(models.AllowedExtensions, Extension(f.Name)) {
		return &ValidationError{Reason: ReasonUnsupported, Name: f.Name, Size: f.Size}
	}
	return nil
}

// Select stages the first of files. Further files are ignored. An invalid
// file clears any staged one and is reported as a *ValidationError.
func Select(s State, files []File) (State, error) {
	if len(files) == 0 {
		s.Pending = nil
		return s, nil
	}

	f := files[0]
	if err := Validate(f); err != nil {
		s.Pending = nil
		return s, err
	}

	s.Pending = &PendingUpload{
		Name:      f.Name,
		Size:      f.Size,
		Extension: Extension(f.Name),
		file:      f,
	}
	s.Last = nil
	return s, nil
}

// Remove clears the staged file.
func Remove(s State) State {
	s.Pending = nil
	return s
}

// BeginSubmit marks the staged file as in flight and returns it.
func BeginSubmit(s State) (State, *PendingUpload, error) {
	if s.Pending == nil {
		return s, nil, ErrNothingStaged
	}
	if s.InFlight {
		return s, nil, errors.New("an upload is already in progress")
	}
	s.InFlight = true
	return s, s.Pending, nil
}

// CompleteSubmit records a successful upload of sent. The staged file is
// cleared only if it is still the one that was sent.
func CompleteSubmit(s State, sent *PendingUpload, res *models.UploadResult) State {
	s.InFlight = false
	if s.Pending == sent {
		s.Pending = nil
	}
	s.Last = res
	return s
}

// FailSubmit re-enables submission and keeps the staged file.
func FailSubmit(s State) State {
	s.InFlight = false
	return s
}
