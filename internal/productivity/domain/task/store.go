package task

import "fmt"

// Store is the insertion-ordered, in-memory collection of tasks. It performs
// no I/O and no locking; the sync controller is its only writer.
type Store struct {
	order []string
	index map[string]int
	tasks map[string]Task
	holes int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		index: make(map[string]int),
		tasks: make(map[string]Task),
	}
}

// Len returns the number of tasks.
func (s *Store) Len() int {
	return len(s.tasks)
}

// All returns copies of every task in insertion order.
func (s *Store) All() []Task {
	out := make([]Task, 0, len(s.tasks))
	for _, id := range s.order {
		if id == "" {
			continue
		}
		out = append(out, s.tasks[id].Clone())
	}
	return out
}

// Get returns a copy of the task with the given id.
func (s *Store) Get(id string) (Task, error) {
	t, ok := s.tasks[id]
	if !ok {
		return Task{}, fmt.Errorf("get %q: %w", id, ErrNotFound)
	}
	return t.Clone(), nil
}

// Has reports whether id is present.
func (s *Store) Has(id string) bool {
	_, ok := s.tasks[id]
	return ok
}

// Insert appends t.
func (s *Store) Insert(t Task) error {
	if t.ID == "" {
		return invalid("id", ErrEmptyID)
	}
	if _, ok := s.tasks[t.ID]; ok {
		return fmt.Errorf("insert %q: %w", t.ID, ErrDuplicateID)
	}
	s.index[t.ID] = len(s.order)
	s.order = append(s.order, t.ID)
	s.tasks[t.ID] = t.Clone()
	return nil
}

// Replace merges p into the task with the given id and returns the result.
func (s *Store) Replace(id string, p Patch) (Task, error) {
	t, ok := s.tasks[id]
	if !ok {
		return Task{}, fmt.Errorf("replace %q: %w", id, ErrNotFound)
	}
	t = p.Apply(t)
	t.ID = id
	s.tasks[id] = t
	return t.Clone(), nil
}

// Remove deletes the task with the given id and returns it.
func (s *Store) Remove(id string) (Task, error) {
	t, ok := s.tasks[id]
	if !ok {
		return Task{}, fmt.Errorf("remove %q: %w", id, ErrNotFound)
	}
	s.order[s.index[id]] = ""
	delete(s.index, id)
	delete(s.tasks, id)
	s.holes++
	if s.holes > 32 && s.holes > len(s.order)/2 {
		s.compact()
	}
	return t, nil
}

// Rekey renames a task in place, keeping its position.
func (s *Store) Rekey(oldID, newID string) error {
	t, ok := s.tasks[oldID]
	if !ok {
		return fmt.Errorf("rekey %q: %w", oldID, ErrNotFound)
	}
	if oldID == newID {
		return nil
	}
	if newID == "" {
		return invalid("id", ErrEmptyID)
	}
	if _, ok := s.tasks[newID]; ok {
		return fmt.Errorf("rekey %q to %q: %w", oldID, newID, ErrDuplicateID)
	}
	pos := s.index[oldID]
	s.order[pos] = newID
	s.index[newID] = pos
	delete(s.index, oldID)
	delete(s.tasks, oldID)
	t.ID = newID
	s.tasks[newID] = t
	return nil
}

// Reset replaces the whole collection. On a duplicate id the store is left
// unchanged.
func (s *Store) Reset(tasks []Task) error {
	next := NewStore()
	for _, t := range tasks {
		if err := next.Insert(t); err != nil {
			return err
		}
	}
	*s = *next
	return nil
}

func (s *Store) compact() {
	order := make([]string, 0, len(s.tasks))
	for _, id := range s.order {
		if id == "" {
			continue
		}
		s.index[id] = len(order)
		order = append(order, id)
	}
	s.order = order
	s.holes = 0
}
