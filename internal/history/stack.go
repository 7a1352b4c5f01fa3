package history

// stack is a bounded LIFO of mementos. The newest entry sits at the end of
// the slice and the oldest at index 0, so eviction drops from the front.
type stack[E Element[E]] struct {
	items []*Memento[E]
}

func (s *stack[E]) len() int {
	return len(s.items)
}

func (s *stack[E]) peek() *Memento[E] {
	if len(s.items) == 0 {
		return nil
	}
	return s.items[len(s.items)-1]
}

// pop removes and returns the newest entry, or nil when empty.
func (s *stack[E]) pop() *Memento[E] {
	n := len(s.items)
	if n == 0 {
		return nil
	}
	m := s.items[n-1]
	s.items[n-1] = nil
	s.items = s.items[:n-1]
	return m
}

// push adds m on top unless it is nil, equal to the current top, or the
// capacity is zero. When the stack is full the oldest entry is evicted first.
// It returns whether m was pushed and the evicted entries, oldest first.
func (s *stack[E]) push(m *Memento[E], capacity int) (pushed bool, evicted []*Memento[E]) {
	if m == nil || capacity <= 0 {
		return false, nil
	}
	if m.Equal(s.peek()) {
		return false, nil
	}
	for len(s.items) >= capacity {
		evicted = append(evicted, s.evictOldest())
	}
	s.items = append(s.items, m)
	return true, evicted
}

// restoreOldest puts previously evicted entries back under the current
// bottom, oldest first.
func (s *stack[E]) restoreOldest(ms []*Memento[E]) {
	if len(ms) == 0 {
		return
	}
	items := make([]*Memento[E], 0, len(ms)+len(s.items))
	items = append(items, ms...)
	s.items = append(items, s.items...)
}

// evictOldest drops the bottom entry.
func (s *stack[E]) evictOldest() *Memento[E] {
	if len(s.items) == 0 {
		return nil
	}
	m := s.items[0]
	s.items[0] = nil
	s.items = s.items[1:]
	return m
}

// trim evicts from the oldest end until at most n entries remain.
func (s *stack[E]) trim(n int) int {
	evicted := 0
	for len(s.items) > n {
		s.evictOldest()
		evicted++
	}
	return evicted
}

// take empties the stack and returns its entries, oldest first.
func (s *stack[E]) take() []*Memento[E] {
	items := s.items
	s.items = nil
	return items
}

func (s *stack[E]) clear() {
	clear(s.items)
	s.items = nil
}

// newestFirst returns the entries from newest to oldest.
func (s *stack[E]) newestFirst() []*Memento[E] {
	out := make([]*Memento[E], 0, len(s.items))
	for i := len(s.items) - 1; i >= 0; i-- {
		out = append(out, s.items[i])
	}
	return out
}
