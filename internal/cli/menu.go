package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"marzban-manager/internal/domain"
	"marzban-manager/internal/domain/model"
	"marzban-manager/internal/usecase"

	"github.com/spf13/cobra"
)

func newMenuCmd(a *app, o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "menu",
		Short: "Interactive numbered menu",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runMenu(cmd.Context(), o)
		},
	}
}

// runMenu loops over the numbered menu until the operator declines to continue or
// stdin closes. Errors of a single action are printed and the loop goes on.
func (a *app) runMenu(ctx context.Context, o *options) error {
	if err := a.users.CheckCredentials(ctx); err != nil {
		a.print.Error(errors.New(a.tr.T("menu.bad_panel")))
		return err
	}

	for {
		a.print.Title(a.tr.T("menu.welcome"))
		choice, err := a.prompt.Choice("", a.tr.T("menu.select"), []string{
			a.tr.T("menu.opt.stats"),
			a.tr.T("menu.opt.traffic"),
			a.tr.T("menu.opt.days"),
			a.tr.T("menu.opt.delete"),
			a.tr.T("menu.opt.status"),
		})
		if err != nil {
			return ignoreEOF(err)
		}

		if err := a.menuAction(ctx, o, choice); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			a.print.Error(err)
		}

		again, err := a.prompt.YesNo("\n" + a.tr.T("menu.continue"))
		if err != nil || !again {
			return ignoreEOF(err)
		}
	}
}

func ignoreEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func (a *app) menuAction(ctx context.Context, o *options, choice int) error {
	switch choice {
	case 0:
		scope, err := a.askScope()
		if err != nil {
			return err
		}
		a.print.Note(a.tr.T("menu.wait"))
		r, err := a.stats.Report(ctx, scope)
		if err != nil {
			return err
		}
		a.print.Report(r)
		return nil

	case 1:
		op, err := a.askDirection()
		if err != nil {
			return err
		}
		mode, err := a.prompt.Choice(a.tr.T("menu.traffic.mode"), a.tr.T("menu.select"), []string{
			a.tr.T("menu.traffic.number"),
			a.tr.T("menu.traffic.coefficient"),
		})
		if err != nil {
			return err
		}
		var gb, coefficient float64
		if mode == 0 {
			gb, err = a.prompt.Float(a.tr.T("menu.prompt.gb"))
		} else {
			coefficient, err = a.prompt.Float(a.tr.T("menu.prompt.coefficient"))
		}
		if err != nil {
			return err
		}
		return a.menuAdjust(ctx, o, op, gb, coefficient, 0)

	case 2:
		op, err := a.askDirection()
		if err != nil {
			return err
		}
		days, err := a.prompt.Int(a.tr.T("menu.prompt.days"), 1)
		if err != nil {
			return err
		}
		return a.menuAdjust(ctx, o, op, 0, 0, days)

	case 3:
		idle, err := a.prompt.Int(a.tr.T("menu.prompt.idle_days"), 0)
		if err != nil {
			return err
		}
		statuses := []model.UserStatus{"", model.UserStatusActive, model.UserStatusDisabled, model.UserStatusLimited, model.UserStatusExpired}
		labels := []string{a.tr.T("menu.status.all")}
		for _, st := range statuses[1:] {
			labels = append(labels, string(st))
		}
		pick, err := a.prompt.Choice(a.tr.T("menu.delete.status"), a.tr.T("menu.select"), labels)
		if err != nil {
			return err
		}
		scope, err := a.askScope()
		if err != nil {
			return err
		}
		a.print.Note(a.tr.T("menu.wait"))
		filter := usecase.CleanupFilter{Status: statuses[pick], IdleDays: idle}
		return a.done(a.cleanup.DeleteIdle(ctx, scope, filter, a.bulkOptions(o)))

	case 4:
		pick, err := a.prompt.Choice(a.tr.T("menu.toggle.title"), a.tr.T("menu.select"), []string{
			a.tr.T("menu.toggle.disable"),
			a.tr.T("menu.toggle.enable"),
		})
		if err != nil {
			return err
		}
		to := model.UserStatusDisabled
		if pick == 1 {
			to = model.UserStatusActive
		}
		scope, err := a.askScope()
		if err != nil {
			return err
		}
		a.print.Note(a.tr.T("menu.wait"))
		return a.done(a.status.Toggle(ctx, scope, to, a.bulkOptions(o)))
	}
	return fmt.Errorf("%w: menu option %d", domain.ErrInvalidArgument, choice+1)
}

func (a *app) menuAdjust(ctx context.Context, o *options, op model.AdjustOp, gb, coefficient float64, days int) error {
	adj, err := model.NewAdjustment(op, gb, coefficient, days)
	if err != nil {
		return err
	}
	scope, err := a.askScope()
	if err != nil {
		return err
	}
	a.print.Note(a.tr.T("menu.wait"))
	return a.done(a.quota.Adjust(ctx, scope, *adj, a.bulkOptions(o)))
}

func (a *app) askDirection() (model.AdjustOp, error) {
	pick, err := a.prompt.Choice(a.tr.T("menu.direction.title"), a.tr.T("menu.select"), []string{
		a.tr.T("menu.direction.inc"),
		a.tr.T("menu.direction.dec"),
	})
	if err != nil {
		return "", err
	}
	if pick == 1 {
		return model.AdjustDecrease, nil
	}
	return model.AdjustIncrease, nil
}

func (a *app) askScope() (model.Scope, error) {
	pick, err := a.prompt.Choice(a.tr.T("menu.scope.title"), a.tr.T("menu.select"), []string{
		a.tr.T("menu.scope.all"),
		a.tr.T("menu.scope.admin"),
		a.tr.T("menu.scope.prefix"),
	})
	if err != nil {
		return model.Scope{}, err
	}

	var scope model.Scope
	switch pick {
	case 0:
		scope = model.AllUsers()
	case 1:
		name, err := a.prompt.Line(a.tr.T("menu.prompt.admin_user"))
		if err != nil {
			return model.Scope{}, err
		}
		pass, err := a.prompt.Secret(a.tr.T("menu.prompt.admin_pass"))
		if err != nil {
			return model.Scope{}, err
		}
		scope = model.AdminUsers(name, pass)
	default:
		prefix, err := a.prompt.Line(a.tr.T("menu.prompt.prefix"))
		if err != nil {
			return model.Scope{}, err
		}
		scope = model.PrefixUsers(prefix)
	}
	if err := scope.Validate(); err != nil {
		a.print.Note(a.tr.T("menu.invalid"))
		return model.Scope{}, err
	}
	return scope, nil
}
