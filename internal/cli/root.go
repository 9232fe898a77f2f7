package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"marzban-manager/internal/domain"
	"marzban-manager/internal/domain/model"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// BuildInfo is stamped at link time.
type BuildInfo struct {
	Version string
	Commit  string
}

// skipSetup marks commands that run without a panel connection.
const skipSetup = "skip-setup"

type options struct {
	configPath string
	dev        bool

	address  string
	port     int
	scheme   string
	username string
	password string
	insecure bool

	lang    string
	noColor bool

	dryRun bool
	yes    bool

	prefix        string
	admin         string
	adminPassword string
}

// scope turns --prefix/--admin into a user scope. Neither flag means all users.
func (o *options) scope() (model.Scope, error) {
	switch {
	case o.prefix != "" && o.admin != "":
		return model.Scope{}, fmt.Errorf("%w: --prefix and --admin cannot be combined", domain.ErrInvalidArgument)
	case o.prefix != "":
		return model.PrefixUsers(o.prefix), nil
	case o.admin != "":
		return model.AdminUsers(o.admin, o.adminPassword), nil
	}
	return model.AllUsers(), nil
}

func NewRootCommand(info BuildInfo) *cobra.Command {
	root, _ := newRoot(info)
	return root
}

func newRoot(info BuildInfo) (*cobra.Command, *app) {
	o := &options{}
	a := &app{info: info}

	root := &cobra.Command{
		Use:           "marzban-manager",
		Short:         "Bulk user management for a Marzban panel",
		Long:          "marzban-manager adjusts quotas and expiry, toggles status, deletes idle users and\nreports usage on a Marzban panel, for all users, one admin's users or a username prefix.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if !needsPanel(cmd) {
				return nil
			}
			return a.setup(cmd, o)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&o.configPath, "config", "c", "config.yaml", "path to YAML config file (optional)")
	pf.BoolVar(&o.dev, "dev", false, "developer mode: debug logs, unredacted tokens")
	pf.StringVar(&o.address, "address", "", "panel domain, without scheme or port")
	pf.IntVar(&o.port, "port", 0, "panel port (default 443)")
	pf.StringVar(&o.scheme, "scheme", "", "http or https (default https)")
	pf.StringVarP(&o.username, "username", "u", "", "panel admin username")
	pf.StringVarP(&o.password, "password", "p", "", "panel admin password (prompted when empty)")
	pf.BoolVar(&o.insecure, "insecure", false, "skip TLS certificate verification")
	pf.StringVar(&o.lang, "lang", "", "output language: en or fa")
	pf.BoolVar(&o.noColor, "no-color", false, "disable colored output")
	pf.BoolVar(&o.dryRun, "dry-run", false, "show what would change without writing to the panel")
	pf.BoolVarP(&o.yes, "yes", "y", false, "do not ask for confirmation")
	pf.StringVar(&o.prefix, "prefix", "", "only users whose username starts with this prefix")
	pf.StringVar(&o.admin, "admin", "", "only users owned by this admin")
	pf.StringVar(&o.adminPassword, "admin-password", "", "log in as --admin instead of filtering as sudo")

	root.AddCommand(
		newStatsCmd(a, o),
		newTrafficCmd(a, o),
		newDaysCmd(a, o),
		newDeleteCmd(a, o),
		newStatusCmd(a, o),
		newUsersCmd(a, o),
		newMenuCmd(a, o),
		newVersionCmd(info),
	)
	return root, a
}

// run executes root and pushes metrics afterwards, whether or not the command failed.
func run(ctx context.Context, root *cobra.Command, a *app) error {
	err := root.ExecuteContext(ctx)
	if a.cfg != nil {
		a.teardown(ctx)
	}
	return err
}

func needsPanel(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[skipSetup] == "true" || c.Name() == "help" || c.Name() == "completion" {
			return false
		}
	}
	return true
}

// Execute runs the CLI and returns the process exit code.
func Execute(info BuildInfo) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root, a := newRoot(info)
	if err := run(ctx, root, a); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error: %v", err))
		return exitCode(err)
	}
	return 0
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrUnsupportedTransition):
		return 2
	case errors.Is(err, domain.ErrUnauthorized):
		return 3
	case errors.Is(err, domain.ErrAborted):
		return 4
	}
	return 1
}
