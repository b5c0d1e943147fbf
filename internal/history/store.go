// Package history keeps the linear edit history of a single image: the
// uploaded original, the currently accepted image, and the undo stack of
// images that were current before each accepted edit.
package history

import (
	"fmt"

	"studio/internal/domain"
)

// Point addresses a snapshot that Select can navigate to: either the
// original upload or an entry of the undo stack.
type Point struct {
	original bool
	index    int
}

// OriginalPoint addresses the uploaded original.
func OriginalPoint() Point {
	return Point{original: true}
}

// HistoryPoint addresses the i-th history entry, oldest first.
func HistoryPoint(i int) Point {
	return Point{index: i}
}

func (p Point) IsOriginal() bool { return p.original }

func (p Point) Index() int { return p.index }

func (p Point) String() string {
	if p.original {
		return "original"
	}
	return fmt.Sprintf("history[%d]", p.index)
}

// Store holds the edit history of one session. original and current are
// either both set or both zero. The zero Store is ready to use and holds no
// image. Store is not safe for concurrent use; the owning session serializes
// access.
type Store struct {
	original domain.ImageRef
	current  domain.ImageRef
	mimeType string
	history  Stack
}

// Initialize replaces any prior state with a fresh history rooted at image.
func (s *Store) Initialize(image domain.ImageRef, mimeType string) {
	s.original = image
	s.current = image
	s.mimeType = mimeType
	s.history.Clear()
}

// ApplyEdit records current on the undo stack and makes newImage current.
func (s *Store) ApplyEdit(newImage domain.ImageRef) error {
	if !s.Initialized() {
		return domain.ErrNoImage
	}
	if newImage.IsZero() {
		return fmt.Errorf("%w: edit result is empty", domain.ErrInvalidImage)
	}
	s.history.Push(s.current)
	s.current = newImage
	return nil
}

// Undo restores the most recent history entry as current and drops it from
// the stack. It reports false and changes nothing when the history is empty.
func (s *Store) Undo() bool {
	prev, ok := s.history.Pop()
	if !ok {
		return false
	}
	s.current = prev
	return true
}

// Reset makes the original current again and clears the history. It reports
// false when nothing was uploaded.
func (s *Store) Reset() bool {
	if !s.Initialized() {
		return false
	}
	s.current = s.original
	s.history.Clear()
	return true
}

// Select makes the addressed snapshot current without touching the history
// or the original, unlike Undo which truncates the stack.
func (s *Store) Select(p Point) error {
	if !s.Initialized() {
		return domain.ErrNoImage
	}
	if p.IsOriginal() {
		s.current = s.original
		return nil
	}
	ref, ok := s.history.At(p.Index())
	if !ok {
		return fmt.Errorf("%w: %d of %d", domain.ErrHistoryIndex, p.Index(), s.history.Len())
	}
	s.current = ref
	return nil
}

func (s *Store) Initialized() bool {
	return !s.original.IsZero()
}

func (s *Store) Original() domain.ImageRef { return s.original }

func (s *Store) Current() domain.ImageRef { return s.current }

func (s *Store) MIMEType() string { return s.mimeType }

// History returns the undo stack, oldest first.
func (s *Store) History() []domain.ImageRef { return s.history.Items() }

func (s *Store) Len() int { return s.history.Len() }
