package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dsalearn/sessionkit"
)

const opTimeout = 30 * time.Second

// withEngine runs fn against a started engine and shuts it down cleanly,
// waiting for background reconciliation so the on-disk state is settled
// before the process exits.
func withEngine(fn func(ctx context.Context, eng *sessionkit.Engine) error) error {
	eng, err := sessionkit.New(sessionkit.NewHTTPOracle(apiFlag), dataDirFlag)
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	eng.Start(ctx)
	if err := fn(ctx, eng); err != nil {
		return err
	}
	return eng.AwaitIdle(ctx)
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(os.Stdout, string(data))
	return nil
}

func init() {
	var email, password string
	loginCmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in (falls back to the local allow-list when the provider is down)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(ctx context.Context, eng *sessionkit.Engine) error {
				if email == "" {
					if remembered, ok := eng.RememberedEmail(); ok {
						email = remembered
					}
				}
				rec, err := eng.Login(ctx, email, password)
				if err != nil {
					return err
				}
				return printJSON(rec)
			})
		},
	}
	loginCmd.Flags().StringVarP(&email, "email", "e", "", "login email (defaults to the last one used)")
	loginCmd.Flags().StringVarP(&password, "password", "p", "", "password (required)")
	_ = loginCmd.MarkFlagRequired("password")
	rootCmd.AddCommand(loginCmd)

	logoutCmd := &cobra.Command{
		Use:   "logout",
		Short: "Sign out and clear local session state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(ctx context.Context, eng *sessionkit.Engine) error {
				eng.Logout(ctx)
				fmt.Fprintln(os.Stdout, "signed out")
				return nil
			})
		},
	}
	rootCmd.AddCommand(logoutCmd)

	whoamiCmd := &cobra.Command{
		Use:   "whoami",
		Short: "Print the current session record",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(ctx context.Context, eng *sessionkit.Engine) error {
				rec := eng.Current()
				if rec == nil {
					return fmt.Errorf("no active session")
				}
				return printJSON(rec)
			})
		},
	}
	rootCmd.AddCommand(whoamiCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Print the engine's diagnostic snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(ctx context.Context, eng *sessionkit.Engine) error {
				return printJSON(eng.Status())
			})
		},
	}
	rootCmd.AddCommand(statusCmd)

	reconnectCmd := &cobra.Command{
		Use:   "reconnect",
		Short: "Close the provider circuit so the next operation retries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(ctx context.Context, eng *sessionkit.Engine) error {
				eng.ForceReconnect()
				return printJSON(eng.Status())
			})
		},
	}
	rootCmd.AddCommand(reconnectCmd)
}
