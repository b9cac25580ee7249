package storage

import (
	"github.com/google/uuid"

	"weekplan/internal/task"
)

type memoryBackend struct {
	days map[string][]task.Task
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{days: make(map[string][]task.Task)}
}

func (m *memoryBackend) append(key string, t task.Task) error {
	m.days[key] = append(m.days[key], t)
	return nil
}

func (m *memoryBackend) list(key string) ([]task.Task, error) {
	src := m.days[key]
	out := make([]task.Task, len(src))
	copy(out, src)
	return out, nil
}

func (m *memoryBackend) replace(key string, t task.Task) (bool, error) {
	list := m.days[key]
	for i := range list {
		if list[i].ID == t.ID {
			list[i] = t
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryBackend) delete(key string, id uuid.UUID) (int, error) {
	list, ok := m.days[key]
	if !ok {
		return 0, nil
	}
	kept := list[:0]
	for _, t := range list {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	removed := len(list) - len(kept)
	clear(list[len(kept):])
	m.days[key] = kept
	return removed, nil
}

func (m *memoryBackend) move(from, to string, t task.Task) (bool, error) {
	n, _ := m.delete(from, t.ID)
	if n == 0 {
		return false, nil
	}
	return true, m.append(to, t)
}

func (m *memoryBackend) keys() ([]string, error) {
	keys := make([]string, 0, len(m.days))
	for k := range m.days {
		keys = append(keys, k)
	}
	return keys, nil
}

func (m *memoryBackend) close() error {
	m.days = nil
	return nil
}
