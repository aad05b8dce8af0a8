package repository

import (
	"context"

	"github.com/oksasatya/go-auth-facade/internal/domain/entity"
)

// ProfileStore is a keyed document store holding user profiles.
type ProfileStore interface {
	Doc(path string) DocumentRef
}

// DocumentRef is a handle on a single profile document.
type DocumentRef interface {
	Path() string
	// ValueChanges emits the current state of the document and then every change.
	// The channel closes when ctx is done or the read fails.
	ValueChanges(ctx context.Context) <-chan Snapshot
	Set(ctx context.Context, profile entity.UserProfile, opts SetOptions) error
}

// Snapshot is one observed state of a document. Exists is false when the
// document has not been written yet.
type Snapshot struct {
	Exists  bool
	Profile entity.UserProfile
}

type SetOptions struct {
	// Merge creates the document if absent and otherwise only overwrites the
	// written fields.
	Merge bool
}
