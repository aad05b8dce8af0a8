package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/oksasatya/go-auth-facade/internal/domain/entity"
	repo "github.com/oksasatya/go-auth-facade/internal/domain/repository"
)

// ProfileStore keeps profile documents in process memory as field maps.
// It is meant for local runs and tests.
type ProfileStore struct {
	mu       sync.Mutex
	docs     map[string]map[string]any
	watchers map[string]map[int]chan struct{}
	nextID   int
}

func NewProfileStore() *ProfileStore {
	return &ProfileStore{
		docs:     map[string]map[string]any{},
		watchers: map[string]map[int]chan struct{}{},
	}
}

func (s *ProfileStore) Doc(path string) repo.DocumentRef {
	return &docRef{store: s, path: path}
}

// Fields returns a copy of the raw document, nil if absent.
func (s *ProfileStore) Fields(path string) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.docs[path]; ok {
		return maps.Clone(d)
	}
	return nil
}

// Put stores raw fields, merging when merge is set. Used to seed documents
// with fields outside the profile projection.
func (s *ProfileStore) Put(path string, fields map[string]any, merge bool) {
	s.mu.Lock()
	cur, ok := s.docs[path]
	if !ok || !merge {
		cur = map[string]any{}
	}
	for k, v := range fields {
		cur[k] = v
	}
	s.docs[path] = cur
	for _, ch := range s.watchers[path] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	s.mu.Unlock()
}

func (s *ProfileStore) snapshot(path string) repo.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[path]
	if !ok {
		return repo.Snapshot{}
	}
	return repo.Snapshot{Exists: true, Profile: entity.ProfileFromFields(d)}
}

func (s *ProfileStore) watch(path string) (int, chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	ch := make(chan struct{}, 1)
	if s.watchers[path] == nil {
		s.watchers[path] = map[int]chan struct{}{}
	}
	s.watchers[path][id] = ch
	return id, ch
}

func (s *ProfileStore) unwatch(path string, id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.watchers[path], id)
	if len(s.watchers[path]) == 0 {
		delete(s.watchers, path)
	}
}

type docRef struct {
	store *ProfileStore
	path  string
}

func (d *docRef) Path() string { return d.path }

func (d *docRef) ValueChanges(ctx context.Context) <-chan repo.Snapshot {
	out := make(chan repo.Snapshot)
	id, changed := d.store.watch(d.path)
	go func() {
		defer close(out)
		defer d.store.unwatch(d.path, id)
		for {
			select {
			case out <- d.store.snapshot(d.path):
			case <-ctx.Done():
				return
			}
			select {
			case <-changed:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func (d *docRef) Set(ctx context.Context, p entity.UserProfile, opts repo.SetOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.store.Put(d.path, p.Fields(), opts.Merge)
	return nil
}
