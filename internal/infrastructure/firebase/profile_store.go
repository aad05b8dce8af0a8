package firebase

import (
	"context"
	"errors"

	"cloud.google.com/go/firestore"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/oksasatya/go-auth-facade/internal/domain/entity"
	repo "github.com/oksasatya/go-auth-facade/internal/domain/repository"
	"github.com/oksasatya/go-auth-facade/pkg/helpers"
)

var ErrBadPath = errors.New("firestore: invalid document path")

// ProfileStore keeps profiles as Firestore documents.
type ProfileStore struct {
	client *firestore.Client
	logger *logrus.Logger
}

func NewProfileStore(client *firestore.Client, logger *logrus.Logger) *ProfileStore {
	return &ProfileStore{client: client, logger: helpers.OrStandard(logger)}
}

var _ repo.ProfileStore = (*ProfileStore)(nil)

func (s *ProfileStore) Doc(path string) repo.DocumentRef {
	// client.Doc returns nil for paths that do not name a document.
	return &docRef{path: path, ref: s.client.Doc(path), logger: s.logger}
}

type docRef struct {
	path   string
	ref    *firestore.DocumentRef
	logger *logrus.Logger
}

func (d *docRef) Path() string { return d.path }

func (d *docRef) ValueChanges(ctx context.Context) <-chan repo.Snapshot {
	out := make(chan repo.Snapshot)
	if d.ref == nil {
		d.logger.WithField("path", d.path).Error("profile watch failed: invalid document path")
		close(out)
		return out
	}
	go func() {
		defer close(out)
		it := d.ref.Snapshots(ctx)
		defer it.Stop()
		for {
			snap, err := it.Next()
			if err != nil {
				if ctx.Err() == nil && status.Code(err) != codes.Canceled {
					d.logger.WithError(err).WithField("path", d.path).Error("profile watch failed")
				}
				return
			}
			var s repo.Snapshot
			if snap.Exists() {
				if err := snap.DataTo(&s.Profile); err != nil {
					d.logger.WithError(err).WithField("path", d.path).Error("profile decode failed")
					return
				}
				s.Exists = true
			}
			select {
			case out <- s:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func (d *docRef) Set(ctx context.Context, p entity.UserProfile, opts repo.SetOptions) error {
	if d.ref == nil {
		return ErrBadPath
	}
	var err error
	if opts.Merge {
		_, err = d.ref.Set(ctx, p.Fields(), firestore.MergeAll)
	} else {
		_, err = d.ref.Set(ctx, p.Fields())
	}
	return err
}
