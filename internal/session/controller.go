// Package session orchestrates image edit sessions: one Controller owns the
// edit history of one uploaded image and serializes every change to it.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"studio/internal/domain"
	"studio/internal/gateway"
	"studio/internal/history"
	"studio/internal/infra"
)

// State is the edit state machine: idle -> processing -> {idle, error}.
type State string

const (
	StateIdle       State = "idle"
	StateProcessing State = "processing"
	StateError      State = "error"
)

// Status is the current state plus the error message in StateError.
type Status struct {
	State   State
	Message string
}

// View selects which image the client displays.
type View string

const (
	ViewCurrent  View = "current"
	ViewOriginal View = "original"
)

// ParseView validates a client supplied view name.
func ParseView(v string) (View, bool) {
	switch View(strings.ToLower(strings.TrimSpace(v))) {
	case ViewCurrent:
		return ViewCurrent, true
	case ViewOriginal:
		return ViewOriginal, true
	}
	return "", false
}

// Snapshot is a consistent, read-only copy of a session.
type Snapshot struct {
	ID        string
	Status    Status
	View      View
	Draft     string
	MIMEType  string
	Original  domain.ImageRef
	Current   domain.ImageRef
	History   []domain.ImageRef
	UpdatedAt time.Time
}

// CanUndo reports whether an undo would change anything.
func (s Snapshot) CanUndo() bool {
	return len(s.History) > 0 && s.Status.State != StateProcessing
}

// Controller owns one edit session. At most one edit is in flight at a time;
// every mutating call is checked against the state machine, so callers cannot
// bypass it by skipping a disabled button.
type Controller struct {
	id     string
	editor gateway.Editor
	logger *infra.Logger
	now    func() time.Time

	mu         sync.Mutex
	store      history.Store
	status     Status
	view       View
	draft      string
	generation uint64
	closed     bool
	updatedAt  time.Time
}

// NewController constructs an empty session. A nil logger discards output.
func NewController(id string, editor gateway.Editor, logger *infra.Logger) *Controller {
	if logger == nil {
		logger = infra.NopLogger()
	}
	l := logger.With().Str("session_id", id).Logger()
	c := &Controller{
		id:     id,
		editor: editor,
		logger: &l,
		now:    time.Now,
		status: Status{State: StateIdle},
		view:   ViewCurrent,
	}
	c.updatedAt = c.now()
	return c
}

func (c *Controller) ID() string { return c.id }

// Upload starts a fresh history rooted at image. It is allowed while an edit
// is in flight; that edit's result will be discarded.
func (c *Controller) Upload(image domain.ImageRef, mimeType string) (Snapshot, error) {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if mimeType == "" {
		mimeType = image.MIMEType()
	}
	if image.IsZero() {
		return Snapshot{}, fmt.Errorf("%w: image is empty", domain.ErrInvalidImage)
	}
	if !domain.IsImageMIME(mimeType) {
		return Snapshot{}, fmt.Errorf("%w: unsupported mime type %q", domain.ErrInvalidImage, mimeType)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return Snapshot{}, domain.ErrSessionClosed
	}
	c.store.Initialize(image, mimeType)
	c.generation++
	c.status = Status{State: StateIdle}
	c.view = ViewCurrent
	c.draft = ""
	c.touch()

	c.logger.Info().
		Str("mime", mimeType).
		Int("bytes", image.Len()).
		Uint64("generation", c.generation).
		Msg("session: image uploaded")

	return c.snapshotLocked(), nil
}

// Submit runs one edit of the current image. The call blocks until the model
// answers. Cancelling ctx does not abort the upstream request; an edit runs to
// completion once started.
func (c *Controller) Submit(ctx context.Context, prompt string) (Snapshot, error) {
	if strings.TrimSpace(prompt) == "" {
		return Snapshot{}, domain.ErrEmptyPrompt
	}

	c.mu.Lock()
	if err := c.checkMutableLocked(); err != nil {
		c.mu.Unlock()
		return Snapshot{}, err
	}
	source := c.store.Current()
	mimeType := c.store.MIMEType()
	generation := c.generation
	c.status = Status{State: StateProcessing}
	c.touch()
	c.mu.Unlock()

	start := c.now()
	result, err := c.editor.Edit(context.WithoutCancel(ctx), source, prompt, mimeType)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || generation != c.generation {
		c.logger.Info().
			Uint64("generation", generation).
			Uint64("current_generation", c.generation).
			Msg("session: dropping result for superseded session")
		return Snapshot{}, domain.ErrStaleSession
	}

	if err == nil {
		err = c.store.ApplyEdit(result)
	}
	if err != nil {
		c.status = Status{State: StateError, Message: err.Error()}
		c.touch()
		c.logger.Warn().
			Str("kind", string(gateway.KindOf(err))).
			Dur("duration", c.now().Sub(start)).
			Msg("session: edit failed")
		return c.snapshotLocked(), err
	}

	c.status = Status{State: StateIdle}
	c.draft = ""
	c.view = ViewCurrent
	c.touch()
	c.logger.Info().
		Int("history", c.store.Len()).
		Str("mime", result.MIMEType()).
		Dur("duration", c.now().Sub(start)).
		Msg("session: edit applied")

	return c.snapshotLocked(), nil
}

// Undo restores the image that was current before the last accepted edit.
// With an empty history, or before any upload, it does nothing.
func (c *Controller) Undo() (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkOpenLocked(); err != nil {
		return Snapshot{}, err
	}
	if c.store.Undo() {
		c.touch()
	}
	return c.snapshotLocked(), nil
}

// Reset reverts to the original upload, clears the history and any error.
// Before any upload it does nothing.
func (c *Controller) Reset() (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkOpenLocked(); err != nil {
		return Snapshot{}, err
	}
	if !c.store.Initialized() {
		return c.snapshotLocked(), nil
	}
	c.store.Reset()
	c.status = Status{State: StateIdle}
	c.touch()
	return c.snapshotLocked(), nil
}

// Select makes a history entry or the original current without changing the
// history.
func (c *Controller) Select(p history.Point) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkMutableLocked(); err != nil {
		return Snapshot{}, err
	}
	if err := c.store.Select(p); err != nil {
		return Snapshot{}, err
	}
	c.touch()
	return c.snapshotLocked(), nil
}

// SetView switches the displayed image. It is view-only and therefore
// allowed while an edit is running.
func (c *Controller) SetView(v View) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return Snapshot{}, domain.ErrSessionClosed
	}
	c.view = v
	c.touch()
	return c.snapshotLocked(), nil
}

// SetDraft stores the instruction being typed.
func (c *Controller) SetDraft(text string) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return Snapshot{}, domain.ErrSessionClosed
	}
	c.draft = text
	c.touch()
	return c.snapshotLocked(), nil
}

// DismissError returns an errored session to idle.
func (c *Controller) DismissError() (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return Snapshot{}, domain.ErrSessionClosed
	}
	if c.status.State == StateError {
		c.status = Status{State: StateIdle}
		c.touch()
	}
	return c.snapshotLocked(), nil
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Close discards the session. A result still in flight is dropped when it
// arrives.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.generation++
	c.logger.Debug().Msg("session: closed")
}

// checkOpenLocked gates calls that are no-ops on an empty session.
func (c *Controller) checkOpenLocked() error {
	if c.closed {
		return domain.ErrSessionClosed
	}
	if c.status.State == StateProcessing {
		return domain.ErrBusy
	}
	return nil
}

func (c *Controller) checkMutableLocked() error {
	if err := c.checkOpenLocked(); err != nil {
		return err
	}
	if !c.store.Initialized() {
		return domain.ErrNoImage
	}
	return nil
}

func (c *Controller) touch() {
	c.updatedAt = c.now()
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		ID:        c.id,
		Status:    c.status,
		View:      c.view,
		Draft:     c.draft,
		MIMEType:  c.store.MIMEType(),
		Original:  c.store.Original(),
		Current:   c.store.Current(),
		History:   c.store.History(),
		UpdatedAt: c.updatedAt,
	}
}
