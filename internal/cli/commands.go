package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/oksasatya/go-auth-facade/internal/domain/entity"
)

func newLoginCmd(deps Deps) *cobra.Command {
	var wait time.Duration
	cmd := &cobra.Command{
		Use:   "login <email> <password>",
		Short: "Sign in with email and password",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := deps.Facade(cmd.Context())
			if err != nil {
				return err
			}
			id := f.Login(cmd.Context(), args[0], args[1])
			if id == nil {
				return errLoginFailed
			}
			// the profile write runs in the background; wait until the stored
			// profile matches so the process does not exit first
			if p := awaitProfile(cmd.Context(), f, id, wait); p != nil {
				return writeJSON(cmd.OutOrStdout(), p)
			}
			return writeJSON(cmd.OutOrStdout(), id)
		},
	}
	cmd.Flags().DurationVar(&wait, "wait", 5*time.Second, "how long to wait for the profile write")
	return cmd
}

func newSignupCmd(deps Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "signup <email> <password>",
		Short: "Create an account and send its verification email",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := deps.Facade(cmd.Context())
			if err != nil {
				return err
			}
			id := f.Signup(cmd.Context(), args[0], args[1])
			if id == nil {
				return errSignupFailed
			}
			return writeJSON(cmd.OutOrStdout(), id)
		},
	}
}

func newLoginGoogleCmd(deps Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "login-google",
		Short: "Sign in with Google in the browser",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := deps.Facade(cmd.Context())
			if err != nil {
				return err
			}
			id := f.LoginWithPopup(cmd.Context())
			if id == nil {
				return errLoginFailed
			}
			return writeJSON(cmd.OutOrStdout(), id)
		},
	}
}

func newLogoutCmd(deps Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out of the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := deps.Facade(cmd.Context())
			if err != nil {
				return err
			}
			f.Logout(cmd.Context())
			cmd.Println("signed out")
			return nil
		},
	}
}

func newResetPasswordCmd(deps Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-password <email>",
		Short: "Send a password reset email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := deps.Facade(cmd.Context())
			if err != nil {
				return err
			}
			f.ResetPassword(cmd.Context(), args[0])
			cmd.Println("if the account exists, a reset email is on its way")
			return nil
		},
	}
}

func newSendVerificationCmd(deps Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "send-verification",
		Short: "Send a verification email to the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := deps.Facade(cmd.Context())
			if err != nil {
				return err
			}
			f.SendVerificationEmail(cmd.Context())
			cmd.Println("verification email requested")
			return nil
		},
	}
}

func newWatchCmd(deps Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print the current user profile on every change",
		Long:  "Print the current user profile as one JSON line per change, null while signed out. Runs until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := deps.Facade(cmd.Context())
			if err != nil {
				return err
			}
			for p := range f.WatchUser(cmd.Context()) {
				if err := writeJSON(cmd.OutOrStdout(), p); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newSearchCmd(deps Deps) *cobra.Command {
	var size int
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search indexed user profiles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := deps.Searcher()
			if err != nil {
				return err
			}
			hits, err := s.Search(cmd.Context(), args[0], size)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), hits)
		},
	}
	cmd.Flags().IntVarP(&size, "size", "n", 10, "maximum number of results")
	return cmd
}

// awaitProfile returns the stored profile once it carries every field of id,
// or nil once wait elapses. Earlier snapshots of the same uid are stale.
func awaitProfile(ctx context.Context, f Facade, id *entity.Identity, wait time.Duration) *entity.UserProfile {
	if wait <= 0 {
		return nil
	}
	want := entity.ProfileFromIdentity(*id)
	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	for p := range f.WatchUser(ctx) {
		if p != nil && sameProfile(*p, want) {
			return p
		}
	}
	return nil
}

func sameProfile(a, b entity.UserProfile) bool {
	return a.UID == b.UID &&
		a.EmailVerified == b.EmailVerified &&
		entity.Deref(a.Email) == entity.Deref(b.Email) &&
		entity.Deref(a.DisplayName) == entity.Deref(b.DisplayName)
}
