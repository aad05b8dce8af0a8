// Package firebase adapts Firebase Authentication and Cloud Firestore to the
// facade's IdentityProvider and ProfileStore.
package firebase

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	fb "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"
)

// Config selects the Firebase project and credentials.
type Config struct {
	ProjectID string
	// CredentialsFile is a service account JSON; empty uses Application Default Credentials.
	CredentialsFile string
	// APIKey is the web API key used for end-user sign-in calls.
	APIKey string
}

// App owns the Firebase clients of one project.
type App struct {
	cfg Config
	app *fb.App
}

func NewApp(ctx context.Context, cfg Config) (*App, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("FIREBASE_PROJECT_ID is required")
	}
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	app, err := fb.NewApp(ctx, &fb.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}
	return &App{cfg: cfg, app: app}, nil
}

// Auth returns the Admin SDK auth client.
func (a *App) Auth(ctx context.Context) (*auth.Client, error) {
	c, err := a.app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get Auth client: %w", err)
	}
	return c, nil
}

// Firestore returns a new Firestore client; the caller closes it.
func (a *App) Firestore(ctx context.Context) (*firestore.Client, error) {
	c, err := a.app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get Firestore client: %w", err)
	}
	return c, nil
}

// Toolkit returns the Identity Toolkit client used for end-user sign-in.
func (a *App) Toolkit(ctx context.Context) (*identitytoolkit.Service, error) {
	if a.cfg.APIKey == "" {
		return nil, errors.New("FIREBASE_API_KEY is required for sign-in")
	}
	svc, err := identitytoolkit.NewService(ctx, option.WithAPIKey(a.cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create identity toolkit client: %w", err)
	}
	return svc, nil
}
