package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/oksasatya/go-auth-facade/internal/domain/entity"
	repo "github.com/oksasatya/go-auth-facade/internal/domain/repository"
)

type fakeIdP struct {
	states chan *entity.Identity

	signIn     func(email, password string) (*entity.Identity, error)
	create     func(email, password string) (*entity.Identity, error)
	popup      func() (*entity.Identity, error)
	resetErr   error
	current    repo.CurrentUser
	currentErr error
	signOutErr error

	mu          sync.Mutex
	resetCalls  []string
	signOuts    int
	popupCalls  []entity.OAuthProvider
	currentReqs int
}

func newFakeIdP() *fakeIdP {
	return &fakeIdP{states: make(chan *entity.Identity)}
}

func (f *fakeIdP) AuthState(ctx context.Context) <-chan *entity.Identity { return f.states }

func (f *fakeIdP) SignInWithPopup(ctx context.Context, p entity.OAuthProvider) (*entity.Identity, error) {
	f.mu.Lock()
	f.popupCalls = append(f.popupCalls, p)
	f.mu.Unlock()
	return f.popup()
}

func (f *fakeIdP) SignInWithEmailAndPassword(ctx context.Context, email, password string) (*entity.Identity, error) {
	return f.signIn(email, password)
}

func (f *fakeIdP) CreateUserWithEmailAndPassword(ctx context.Context, email, password string) (*entity.Identity, error) {
	return f.create(email, password)
}

func (f *fakeIdP) SendPasswordResetEmail(ctx context.Context, email string) error {
	f.mu.Lock()
	f.resetCalls = append(f.resetCalls, email)
	f.mu.Unlock()
	return f.resetErr
}

func (f *fakeIdP) CurrentUser(ctx context.Context) (repo.CurrentUser, error) {
	f.mu.Lock()
	f.currentReqs++
	f.mu.Unlock()
	if f.currentErr != nil {
		return nil, f.currentErr
	}
	return f.current, nil
}

func (f *fakeIdP) SignOut(ctx context.Context) error {
	f.mu.Lock()
	f.signOuts++
	f.mu.Unlock()
	return f.signOutErr
}

type fakeUser struct {
	id      *entity.Identity
	sendErr error

	mu   sync.Mutex
	sent int
}

func (u *fakeUser) Identity() *entity.Identity { return u.id }

func (u *fakeUser) SendEmailVerification(ctx context.Context) error {
	u.mu.Lock()
	u.sent++
	u.mu.Unlock()
	return u.sendErr
}

func (u *fakeUser) sends() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.sent
}

type setCall struct {
	path    string
	profile entity.UserProfile
	opts    repo.SetOptions
}

type fakeStore struct {
	setErr error
	sets   chan setCall

	mu       sync.Mutex
	docCalls []string
	reads    []string
	feeds    map[string]chan repo.Snapshot
}

func newFakeStore() *fakeStore {
	return &fakeStore{sets: make(chan setCall, 8), feeds: map[string]chan repo.Snapshot{}}
}

func (s *fakeStore) Doc(path string) repo.DocumentRef {
	s.mu.Lock()
	s.docCalls = append(s.docCalls, path)
	s.mu.Unlock()
	return &fakeDoc{store: s, path: path}
}

// feed returns the test-controlled source of snapshots for path.
func (s *fakeStore) feed(path string) chan repo.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.feeds[path]
	if !ok {
		ch = make(chan repo.Snapshot, 4)
		s.feeds[path] = ch
	}
	return ch
}

func (s *fakeStore) docCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docCalls)
}

func (s *fakeStore) readPaths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.reads...)
}

type fakeDoc struct {
	store *fakeStore
	path  string
}

func (d *fakeDoc) Path() string { return d.path }

func (d *fakeDoc) ValueChanges(ctx context.Context) <-chan repo.Snapshot {
	d.store.mu.Lock()
	d.store.reads = append(d.store.reads, d.path)
	d.store.mu.Unlock()

	src := d.store.feed(d.path)
	out := make(chan repo.Snapshot)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case snap := <-src:
				select {
				case out <- snap:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

func (d *fakeDoc) Set(ctx context.Context, p entity.UserProfile, opts repo.SetOptions) error {
	d.store.sets <- setCall{path: d.path, profile: p, opts: opts}
	return d.store.setErr
}

func profileSnap(uid, email string) repo.Snapshot {
	return repo.Snapshot{Exists: true, Profile: entity.UserProfile{UID: uid, Email: entity.StringPtr(email)}}
}

func recvProfile(t *testing.T, ch <-chan *entity.UserProfile) *entity.UserProfile {
	t.Helper()
	select {
	case p, ok := <-ch:
		if !ok {
			t.Fatal("stream closed")
		}
		return p
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for profile emission")
		return nil
	}
}

func expectNoProfile(t *testing.T, ch <-chan *entity.UserProfile) {
	t.Helper()
	select {
	case p := <-ch:
		t.Fatalf("unexpected emission: %+v", p)
	case <-time.After(50 * time.Millisecond):
	}
}
