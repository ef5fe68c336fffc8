// Package cli implements the teamsctl command tree.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"teamsemu/internal/client"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	version = "dev"
	commit  = "unknown"
)

const defaultServer = "http://localhost:8000"

// app carries the resolved settings shared by every subcommand.
type app struct {
	v      *viper.Viper
	logger *slog.Logger
}

func (a *app) server() string { return a.v.GetString("server") }

func (a *app) interval() time.Duration {
	d := a.v.GetDuration("poll_interval")
	if d <= 0 {
		return client.DefaultInterval
	}
	return d
}

func (a *app) api() *client.API {
	return client.NewAPI(a.server(), client.WithTimeout(a.v.GetDuration("timeout")))
}

// poller returns a poller that draws to out and reports notices to errOut.
func (a *app) poller(out, errOut io.Writer) *client.Poller {
	return client.NewPoller(a.api(), client.NewTextRenderer(out),
		client.WithInterval(a.interval()),
		client.WithLogger(a.logger),
		client.WithNotice(func(msg string) { fmt.Fprintln(errOut, msg) }),
	)
}

// NewRootCmd builds the teamsctl command tree. Settings resolve from flags,
// then TEAMS_* environment variables, then defaults.
func NewRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("TEAMS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	a := &app{v: v}

	rootCmd := &cobra.Command{
		Use:   "teamsctl",
		Short: "Watch and drive the Teams emulator channel",
		Long: `teamsctl renders the posts and replies of a Teams emulator service and
issues create, update and delete requests against it.`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelWarn
			if v.GetBool("verbose") {
				level = slog.LevelDebug
			}
			a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
		},
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	flags := rootCmd.PersistentFlags()
	flags.String("server", defaultServer, "base URL of the emulator service (env TEAMS_SERVER)")
	flags.Duration("interval", client.DefaultInterval, "polling interval for watch (env TEAMS_POLL_INTERVAL)")
	flags.Duration("timeout", client.DefaultTimeout, "per-request timeout (env TEAMS_TIMEOUT)")
	flags.BoolP("verbose", "v", false, "enable debug logging")
	_ = v.BindPFlag("server", flags.Lookup("server"))
	_ = v.BindPFlag("poll_interval", flags.Lookup("interval"))
	_ = v.BindPFlag("timeout", flags.Lookup("timeout"))
	_ = v.BindPFlag("verbose", flags.Lookup("verbose"))

	rootCmd.AddCommand(
		newWatchCmd(a),
		newPostsCmd(a),
		newPostCmd(a),
		newReplyCmd(a),
	)
	return rootCmd
}

// Execute runs the command tree with ctx and exits non-zero on failure.
func Execute(ctx context.Context) {
	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
