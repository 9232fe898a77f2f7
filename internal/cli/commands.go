package cli

import (
	"fmt"
	"time"

	"marzban-manager/internal/domain/model"
	"marzban-manager/internal/usecase"

	"github.com/spf13/cobra"
)

func newStatsCmd(a *app, o *options) *cobra.Command {
	var notify bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print a usage report for the selected users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			scope, err := o.scope()
			if err != nil {
				return err
			}
			r, err := a.stats.Report(cmd.Context(), scope)
			if err != nil {
				return err
			}
			a.print.Report(r)
			if notify {
				return a.stats.Publish(cmd.Context(), r)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&notify, "notify", false, "also send the report to the Telegram chats")
	return cmd
}

func opUse(op model.AdjustOp) string {
	if op == model.AdjustDecrease {
		return "sub"
	}
	return "add"
}

func newTrafficCmd(a *app, o *options) *cobra.Command {
	parent := &cobra.Command{
		Use:   "traffic",
		Short: "Raise or lower the traffic quota of active users",
	}
	for _, op := range []model.AdjustOp{model.AdjustIncrease, model.AdjustDecrease} {
		var gb, coefficient float64
		cmd := &cobra.Command{
			Use:   opUse(op),
			Short: fmt.Sprintf("New quota = quota x coefficient %s GB", op),
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				adj, err := model.NewAdjustment(op, gb, coefficient, 0)
				if err != nil {
					return err
				}
				return a.adjust(cmd, o, *adj)
			},
		}
		cmd.Flags().Float64Var(&gb, "gb", 0, "gigabytes to add or subtract")
		cmd.Flags().Float64Var(&coefficient, "coefficient", 0, "multiply the current quota first, e.g. 1.10")
		parent.AddCommand(cmd)
	}
	return parent
}

func newDaysCmd(a *app, o *options) *cobra.Command {
	parent := &cobra.Command{
		Use:   "days",
		Short: "Extend or shorten the expiry of active users",
	}
	for _, op := range []model.AdjustOp{model.AdjustIncrease, model.AdjustDecrease} {
		var days int
		cmd := &cobra.Command{
			Use:   opUse(op),
			Short: fmt.Sprintf("New expiry = expiry %s days", op),
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				adj, err := model.NewAdjustment(op, 0, 0, days)
				if err != nil {
					return err
				}
				return a.adjust(cmd, o, *adj)
			},
		}
		cmd.Flags().IntVar(&days, "days", 0, "number of days")
		_ = cmd.MarkFlagRequired("days")
		parent.AddCommand(cmd)
	}
	return parent
}

func (a *app) adjust(cmd *cobra.Command, o *options, adj model.Adjustment) error {
	scope, err := o.scope()
	if err != nil {
		return err
	}
	return a.done(a.quota.Adjust(cmd.Context(), scope, adj, a.bulkOptions(o)))
}

func newDeleteCmd(a *app, o *options) *cobra.Command {
	var (
		idleDays    int
		status      string
		neverOnline bool
	)
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete users offline for more than --idle-days days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			scope, err := o.scope()
			if err != nil {
				return err
			}
			filter := usecase.CleanupFilter{IdleDays: idleDays, IncludeNeverOnline: neverOnline}
			if status != "" && status != "all" {
				if filter.Status, err = model.ParseUserStatus(status); err != nil {
					return err
				}
			}
			return a.done(a.cleanup.DeleteIdle(cmd.Context(), scope, filter, a.bulkOptions(o)))
		},
	}
	cmd.Flags().IntVar(&idleDays, "idle-days", 0, "minimum days since the user was last online")
	cmd.Flags().StringVar(&status, "status", "all", "only delete users with this status")
	cmd.Flags().BoolVar(&neverOnline, "include-never-online", false, "also delete users that never connected")
	_ = cmd.MarkFlagRequired("idle-days")
	return cmd
}

func newStatusCmd(a *app, o *options) *cobra.Command {
	parent := &cobra.Command{
		Use:   "status",
		Short: "Move users between active and disabled",
	}
	for use, to := range map[string]model.UserStatus{
		"disable": model.UserStatusDisabled,
		"enable":  model.UserStatusActive,
	} {
		parent.AddCommand(&cobra.Command{
			Use:   use,
			Short: fmt.Sprintf("Set matching users to %s", to),
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				scope, err := o.scope()
				if err != nil {
					return err
				}
				return a.done(a.status.Toggle(cmd.Context(), scope, to, a.bulkOptions(o)))
			},
		})
	}
	return parent
}

func newUsersCmd(a *app, o *options) *cobra.Command {
	parent := &cobra.Command{
		Use:   "users",
		Short: "Inspect users",
	}
	var status string
	list := &cobra.Command{
		Use:   "list",
		Short: "List the users a command with the same flags would select",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			scope, err := o.scope()
			if err != nil {
				return err
			}
			var st model.UserStatus
			if status != "" && status != "all" {
				if st, err = model.ParseUserStatus(status); err != nil {
					return err
				}
			}
			users, err := a.users.List(cmd.Context(), scope, st)
			if err != nil {
				return err
			}
			a.print.Users(users, time.Now().UTC())
			return nil
		},
	}
	list.Flags().StringVar(&status, "status", "all", "only list users with this status")
	parent.AddCommand(list)
	return parent
}

func newVersionCmd(info BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print the version",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipSetup: "true"},
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "marzban-manager %s (%s)\n", info.Version, info.Commit)
		},
	}
}
