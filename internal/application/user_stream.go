package application

import (
	"context"

	"github.com/oksasatya/go-auth-facade/internal/domain/entity"
	repo "github.com/oksasatya/go-auth-facade/internal/domain/repository"
)

// WatchUser derives the current-profile stream from the provider's auth state.
//
// For every auth-state emission the previous profile read is cancelled. A
// signed-in identity starts a live read of users/{uid}; a signed-out state
// emits nil straight away. Snapshots of a missing document are dropped, so
// consumers only see a profile or nil. The channel closes when ctx is done or
// the auth-state stream ends.
func (s *Service) WatchUser(ctx context.Context) <-chan *entity.UserProfile {
	out := make(chan *entity.UserProfile)
	states := s.IdP.AuthState(ctx)

	go func() {
		defer close(out)

		var (
			inner       <-chan repo.Snapshot
			cancelInner context.CancelFunc = func() {}
		)
		defer func() { cancelInner() }()

		emit := func(p *entity.UserProfile) bool {
			select {
			case out <- p:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for {
			select {
			case <-ctx.Done():
				return

			case id, ok := <-states:
				if !ok {
					return
				}
				cancelInner()
				cancelInner = func() {}
				inner = nil

				if id == nil {
					if !emit(nil) {
						return
					}
					continue
				}
				var innerCtx context.Context
				innerCtx, cancelInner = context.WithCancel(ctx)
				inner = s.Store.Doc(entity.ProfileDocPath(id.UID)).ValueChanges(innerCtx)

			case snap, ok := <-inner:
				if !ok {
					// the read ended (error or cancellation); wait for the next auth state
					inner = nil
					continue
				}
				if !snap.Exists {
					continue
				}
				p := snap.Profile
				if !emit(&p) {
					return
				}
			}
		}
	}()
	return out
}
