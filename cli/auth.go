package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/raushankrgupta/fitly-client/screen"
	"github.com/raushankrgupta/fitly-client/store"
	"github.com/spf13/cobra"
)

var (
	emailFlag    string
	passwordFlag string
	planFlag     string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and remember the session token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		email, password, err := credentials(cmd)
		if err != nil {
			return err
		}
		return withApp(cmd.Context(), func(a *app) error {
			ctrl := a.newScreen(screen.Options{})
			defer ctrl.Close()
			if err := ctrl.Login(cmd.Context(), email, password); err != nil {
				return err
			}
			printSession(cmd.OutOrStdout(), ctrl.Snapshot())
			return nil
		})
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account on a plan and sign in",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		email, password, err := credentials(cmd)
		if err != nil {
			return err
		}
		return withApp(cmd.Context(), func(a *app) error {
			ctrl := a.newScreen(screen.Options{})
			defer ctrl.Close()
			if err := ctrl.Register(cmd.Context(), email, password, planFlag); err != nil {
				return err
			}
			printSession(cmd.OutOrStdout(), ctrl.Snapshot())
			return nil
		})
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			ctrl := a.newScreen(screen.Options{})
			defer ctrl.Close()
			if err := ctrl.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			if fs, ok := a.store.(*store.FileStore); ok {
				fmt.Fprintf(cmd.OutOrStdout(), "Token removed from %s\n", fs.Path())
			}
			return nil
		})
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the restored session and today's remaining try-ons",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			ctrl := a.newScreen(screen.Options{})
			defer ctrl.Close()
			if err := ctrl.Restore(cmd.Context()); err != nil {
				return err
			}
			if err := ctrl.LoadPlans(cmd.Context()); err != nil {
				return err
			}
			state := ctrl.Snapshot()
			if state.Session == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "Not signed in")
				return nil
			}
			printSession(cmd.OutOrStdout(), state)
			return nil
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{loginCmd, registerCmd} {
		c.Flags().StringVarP(&emailFlag, "email", "e", "", "Account email")
		c.Flags().StringVarP(&passwordFlag, "password", "p", "", "Account password (prompted when omitted)")
	}
	registerCmd.Flags().StringVar(&planFlag, "plan", "free", "Plan id to register on")
}

// credentials reads whatever the flags left out from stdin
func credentials(cmd *cobra.Command) (string, string, error) {
	reader := bufio.NewReader(cmd.InOrStdin())
	email, password := emailFlag, passwordFlag
	var err error
	if email == "" {
		if email, err = prompt(cmd.ErrOrStderr(), reader, "Email: "); err != nil {
			return "", "", err
		}
	}
	if password == "" {
		if password, err = prompt(cmd.ErrOrStderr(), reader, "Password: "); err != nil {
			return "", "", err
		}
	}
	return email, password, nil
}

func prompt(w io.Writer, r *bufio.Reader, label string) (string, error) {
	fmt.Fprint(w, label)
	line, err := r.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func printSession(w io.Writer, state screen.State) {
	sess := state.Session
	if sess == nil {
		return
	}
	fmt.Fprintf(w, "Signed in as %s (plan: %s)\n", sess.Email, sess.Plan)
	switch {
	case state.RemainingUsage != nil:
		fmt.Fprintf(w, "Used today: %d, remaining: %d\n", sess.DailyUsage, *state.RemainingUsage)
	case state.Plans[sess.Plan].Unlimited():
		fmt.Fprintf(w, "Used today: %d, remaining: unlimited\n", sess.DailyUsage)
	default:
		fmt.Fprintf(w, "Used today: %d\n", sess.DailyUsage)
	}
}
