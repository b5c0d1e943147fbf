package history

import "studio/internal/domain"

// Stack is an ordered sequence of image snapshots, oldest first. The most
// recent snapshot is the one Pop returns.
type Stack struct {
	items []domain.ImageRef
}

func (s *Stack) Push(ref domain.ImageRef) {
	s.items = append(s.items, ref)
}

// Pop removes and returns the most recent snapshot. ok is false on an empty
// stack.
func (s *Stack) Pop() (ref domain.ImageRef, ok bool) {
	if len(s.items) == 0 {
		return domain.ImageRef{}, false
	}
	last := len(s.items) - 1
	ref = s.items[last]
	s.items[last] = domain.ImageRef{}
	s.items = s.items[:last]
	return ref, true
}

func (s *Stack) Peek() (domain.ImageRef, bool) {
	if len(s.items) == 0 {
		return domain.ImageRef{}, false
	}
	return s.items[len(s.items)-1], true
}

func (s *Stack) At(i int) (domain.ImageRef, bool) {
	if i < 0 || i >= len(s.items) {
		return domain.ImageRef{}, false
	}
	return s.items[i], true
}

func (s *Stack) Len() int {
	return len(s.items)
}

// Items returns a copy of the snapshots, oldest first.
func (s *Stack) Items() []domain.ImageRef {
	out := make([]domain.ImageRef, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Stack) Clear() {
	s.items = nil
}
