package cli

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/oksasatya/go-auth-facade/internal/domain/entity"
)

// Facade is the part of the auth service the commands drive.
type Facade interface {
	Login(ctx context.Context, email, password string) *entity.Identity
	Signup(ctx context.Context, email, password string) *entity.Identity
	LoginWithPopup(ctx context.Context) *entity.Identity
	Logout(ctx context.Context)
	ResetPassword(ctx context.Context, email string)
	SendVerificationEmail(ctx context.Context)
	WatchUser(ctx context.Context) <-chan *entity.UserProfile
}

// Searcher queries the profile search index.
type Searcher interface {
	Search(ctx context.Context, q string, size int) ([]entity.UserProfile, error)
}

// Deps builds the backends lazily so that help and flag errors never dial anything.
type Deps struct {
	Setup    func(ctx context.Context) (cleanup func(), err error)
	Facade   func(ctx context.Context) (Facade, error)
	Searcher func() (Searcher, error)
}

var (
	errLoginFailed  = errors.New("sign-in failed, see log for details")
	errSignupFailed = errors.New("sign-up failed, see log for details")
)

// NewRootCmd creates the authctl command tree.
func NewRootCmd(deps Deps) *cobra.Command {
	var cleanup func()
	root := &cobra.Command{
		Use:           "authctl",
		Short:         "Drive the auth facade from a terminal",
		Version:       "0.1.0",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if deps.Setup == nil {
				return nil
			}
			c, err := deps.Setup(cmd.Context())
			if err != nil {
				return err
			}
			cleanup = c
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if cleanup != nil {
				cleanup()
			}
		},
	}

	root.AddCommand(
		newLoginCmd(deps),
		newSignupCmd(deps),
		newLoginGoogleCmd(deps),
		newLogoutCmd(deps),
		newResetPasswordCmd(deps),
		newSendVerificationCmd(deps),
		newWatchCmd(deps),
		newSearchCmd(deps),
	)
	return root
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	return enc.Encode(v)
}
