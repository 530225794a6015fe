// Package notify holds transient notices and the single confirmation dialog.
package notify

import (
	"strconv"
	"time"
)

// Kind is the severity of a notice.
type Kind string

const (
	KindInfo    Kind = "info"
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Default display durations.
const (
	DefaultDuration    = 5 * time.Second
	ValidationDuration = 7 * time.Second
	ShortDuration      = 3 * time.Second
)

// Notice is a transient alert.
type Notice struct {
	ID      string
	Kind    Kind
	Message string
	Expires time.Time
}

// Modal is the confirmation dialog. At most one is open.
type Modal struct {
	Title   string
	Message string
	Open    bool
}

// Center owns the notices and the dialog. It is not safe for concurrent use;
// callers serialise access through their own control flow.
type Center struct {
	notices []Notice
	modal   Modal
	seq     int
	now     func() time.Time
}

// NewCenter creates an empty notification center.
func NewCenter() *Center {
	return &Center{now: time.Now}
}

// SetClock replaces the time source.
func (c *Center) SetClock(now func() time.Time) {
	c.now = now
}

// Show adds a notice that expires after d.
func (c *Center) Show(kind Kind, message string, d time.Duration) Notice {
	c.seq++
	n := Notice{
		ID:      strconv.Itoa(c.seq),
		Kind:    kind,
		Message: message,
		Expires: c.now().Add(d),
	}
	c.notices = append(c.notices, n)
	return n
}

func (c *Center) Info(message string) Notice {
	return c.Show(KindInfo, message, DefaultDuration)
}

func (c *Center) Success(message string) Notice {
	return c.Show(KindSuccess, message, DefaultDuration)
}

func (c *Center) Error(message string) Notice {
	return c.Show(KindError, message, DefaultDuration)
}

// Active returns the notices that have not expired, oldest first.
func (c *Center) Active() []Notice {
	c.Prune()
	out := make([]Notice, len(c.notices))
	copy(out, c.notices)
	return out
}

// Prune drops expired notices.
func (c *Center) Prune() {
	now := c.now()
	kept := c.notices[:0]
	for _, n := range c.notices {
		if now.Before(n.Expires) {
			kept = append(kept, n)
		}
	}
	c.notices = kept
}

// Dismiss removes a notice by id.
func (c *Center) Dismiss(id string) {
	for i, n := range c.notices {
		if n.ID == id {
			c.notices = append(c.notices[:i], c.notices[i+1:]...)
			return
		}
	}
}

// Clear removes every notice.
func (c *Center) Clear() {
	c.notices = nil
}

// ShowModal opens the dialog, replacing any open one.
func (c *Center) ShowModal(title, message string) {
	c.modal = Modal{Title: title, Message: message, Open: true}
}

// CloseModal closes the dialog.
func (c *Center) CloseModal() {
	c.modal = Modal{}
}

// Modal returns the dialog state.
func (c *Center) Modal() Modal {
	return c.modal
}
