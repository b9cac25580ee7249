package storage

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"weekplan/internal/calendar"
	"weekplan/internal/task"
)

// ErrNotFound is returned in strict mode when update, remove or move target
// a task that is not on the given day.
var ErrNotFound = errors.New("storage: task not found")

const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// backend holds the per-day task lists. Keys are calendar.Day identifiers.
// Implementations are not safe for concurrent use; Store serializes access.
type backend interface {
	append(key string, t task.Task) error
	list(key string) ([]task.Task, error)
	replace(key string, t task.Task) (bool, error)
	delete(key string, id uuid.UUID) (int, error)
	move(from, to string, t task.Task) (bool, error)
	keys() ([]string, error)
	close() error
}

// Store is the task collection shared by every view. All methods are safe
// for concurrent use; observers run synchronously after each change, outside
// the store lock, before the mutating call returns.
type Store struct {
	mu      sync.Mutex
	backend backend
	version uint64

	strict bool
	loc    *time.Location
	logger *slog.Logger

	obsMu     sync.Mutex
	observers []observer
	nextObs   int
}

type observer struct {
	id int
	fn func()
}

type Option func(*Store)

// WithStrict makes Update, Remove and Move report ErrNotFound and Add reject
// tasks whose end is not after their start.
func WithStrict(strict bool) Option {
	return func(s *Store) { s.strict = strict }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithLocation sets the zone used to interpret day keys returned by Dates.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// Open creates a store on the named volatile backend.
func Open(kind string, opts ...Option) (*Store, error) {
	switch kind {
	case "", BackendMemory:
		return NewMemory(opts...), nil
	case BackendSQLite:
		return OpenSQLite(opts...)
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", kind)
	}
}

func NewMemory(opts ...Option) *Store {
	return newStore(newMemoryBackend(), opts...)
}

func newStore(b backend, opts ...Option) *Store {
	s := &Store{
		backend: b,
		loc:     time.Local,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.backend == nil {
		return nil
	}
	err := s.backend.close()
	s.backend = nil
	return err
}

func dayKey(date time.Time) string {
	return calendar.NewDay(date).ID
}

// Add appends t to the list for date's calendar day.
func (s *Store) Add(t task.Task, date time.Time) error {
	if s.strict {
		if err := t.Validate(); err != nil {
			return err
		}
	}
	key := dayKey(date)

	s.mu.Lock()
	if err := s.ready(); err != nil {
		s.mu.Unlock()
		return err
	}
	if err := s.backend.append(key, t); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("storage: add %s: %w", t.ID, err)
	}
	s.version++
	s.mu.Unlock()

	s.logger.Debug("task added", "id", t.ID, "day", key, "title", t.Title)
	s.notify()
	return nil
}

// Update replaces the task on date's day that shares t's ID, keeping its
// position. A missing task is ignored unless the store is strict.
func (s *Store) Update(t task.Task, date time.Time) error {
	if s.strict {
		if err := t.Validate(); err != nil {
			return err
		}
	}
	key := dayKey(date)

	s.mu.Lock()
	if err := s.ready(); err != nil {
		s.mu.Unlock()
		return err
	}
	found, err := s.backend.replace(key, t)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("storage: update %s: %w", t.ID, err)
	}
	if !found {
		s.mu.Unlock()
		s.logger.Debug("update skipped, task not on day", "id", t.ID, "day", key)
		return s.missing(t, key)
	}
	s.version++
	s.mu.Unlock()

	s.logger.Debug("task updated", "id", t.ID, "day", key)
	s.notify()
	return nil
}

// Remove deletes every entry on date's day that shares t's ID.
func (s *Store) Remove(t task.Task, date time.Time) error {
	key := dayKey(date)

	s.mu.Lock()
	if err := s.ready(); err != nil {
		s.mu.Unlock()
		return err
	}
	n, err := s.backend.delete(key, t.ID)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("storage: remove %s: %w", t.ID, err)
	}
	if n == 0 {
		s.mu.Unlock()
		s.logger.Debug("remove skipped, task not on day", "id", t.ID, "day", key)
		return s.missing(t, key)
	}
	s.version++
	s.mu.Unlock()

	s.logger.Debug("task removed", "id", t.ID, "day", key, "count", n)
	s.notify()
	return nil
}

// Move takes t off from's day and appends it, with t's current fields, to
// to's day. Observers are notified once.
func (s *Store) Move(t task.Task, from, to time.Time) error {
	if s.strict {
		if err := t.Validate(); err != nil {
			return err
		}
	}
	fromKey, toKey := dayKey(from), dayKey(to)

	s.mu.Lock()
	if err := s.ready(); err != nil {
		s.mu.Unlock()
		return err
	}
	moved, err := s.backend.move(fromKey, toKey, t)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("storage: move %s: %w", t.ID, err)
	}
	if !moved {
		s.mu.Unlock()
		return s.missing(t, fromKey)
	}
	s.version++
	s.mu.Unlock()

	s.logger.Debug("task moved", "id", t.ID, "from", fromKey, "to", toKey)
	s.notify()
	return nil
}

// TasksFor returns a copy of date's task list in insertion order. Days that
// were never written yield an empty, non-nil slice.
func (s *Store) TasksFor(date time.Time) ([]task.Task, error) {
	key := dayKey(date)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return []task.Task{}, err
	}
	tasks, err := s.backend.list(key)
	if err != nil {
		return []task.Task{}, fmt.Errorf("storage: list %s: %w", key, err)
	}
	if tasks == nil {
		tasks = []task.Task{}
	}
	return tasks, nil
}

// Dates lists every day that has ever received a task, ascending. Emptied
// days stay in the list.
func (s *Store) Dates() ([]calendar.Day, error) {
	s.mu.Lock()
	keys, err := func() ([]string, error) {
		if err := s.ready(); err != nil {
			return nil, err
		}
		return s.backend.keys()
	}()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	sort.Strings(keys)
	days := make([]calendar.Day, 0, len(keys))
	for _, k := range keys {
		d, err := time.ParseInLocation(calendar.DayLayout, k, s.loc)
		if err != nil {
			return nil, fmt.Errorf("storage: bad day key %q: %w", k, err)
		}
		days = append(days, calendar.NewDay(d))
	}
	return days, nil
}

// Version increases by one for every write that changed the store.
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Subscribe registers fn to run after every change. The returned function
// removes the subscription.
func (s *Store) Subscribe(fn func()) (cancel func()) {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	id := s.nextObs
	s.nextObs++
	s.observers = append(s.observers, observer{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			s.obsMu.Lock()
			defer s.obsMu.Unlock()
			for i, o := range s.observers {
				if o.id == id {
					s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
					return
				}
			}
		})
	}
}

func (s *Store) notify() {
	s.obsMu.Lock()
	snapshot := make([]observer, len(s.observers))
	copy(snapshot, s.observers)
	s.obsMu.Unlock()

	for _, o := range snapshot {
		o.fn()
	}
}

func (s *Store) missing(t task.Task, key string) error {
	if !s.strict {
		return nil
	}
	return fmt.Errorf("%w: %s on %s", ErrNotFound, t.ID, key)
}

// ready must be called with mu held.
func (s *Store) ready() error {
	if s.backend == nil {
		return errors.New("storage: store is closed")
	}
	return nil
}
