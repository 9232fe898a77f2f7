package cli

import (
	"context"
	"fmt"

	"marzban-manager/internal/config"
	"marzban-manager/internal/domain/ports/adapter"
	"marzban-manager/internal/infra/adapters/marzban"
	"marzban-manager/internal/infra/adapters/telegram"
	"marzban-manager/internal/infra/i18n"
	"marzban-manager/internal/infra/logging"
	"marzban-manager/internal/infra/metrics"
	"marzban-manager/internal/usecase"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// app holds what a command needs once the panel connection is configured.
type app struct {
	info BuildInfo

	cfg    *config.Config
	log    *zerolog.Logger
	tr     *i18n.Translator
	print  *printer
	prompt *prompter

	stats   usecase.StatsUseCase
	quota   usecase.QuotaUseCase
	cleanup usecase.CleanupUseCase
	status  usecase.StatusUseCase
	users   usecase.UserUseCase
}

func (a *app) setup(cmd *cobra.Command, o *options) error {
	cfg, err := config.LoadConfig(o.configPath, o.dev)
	if err != nil {
		return err
	}
	o.override(cmd, cfg)

	a.cfg = cfg
	a.log = logging.NewWithWriter(cfg.Log, cfg.Runtime.Dev, cmd.ErrOrStderr())

	tr, err := i18n.NewTranslator(i18n.LocalesFS, cfg.UI.Lang)
	if err != nil {
		a.log.Warn().Err(err).Str("lang", cfg.UI.Lang).Msg("unknown language, falling back to English")
		tr = i18n.MustDefault()
	}
	a.tr = tr
	a.print = newPrinter(cmd.OutOrStdout(), tr, cfg.UI.NoColor)
	a.prompt = newPrompter(cmd.InOrStdin(), cmd.OutOrStdout(), tr.T("menu.invalid"))

	if err := a.askCredentials(); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	traceID := uuid.NewString()
	cmd.SetContext(logging.WithTraceID(cmd.Context(), traceID))
	metrics.SetBuildInfo(a.info.Version, a.info.Commit)

	client, err := marzban.NewClient(marzban.Options{
		BaseURL:            cfg.Panel.BaseURL(),
		Username:           cfg.Panel.Username,
		Password:           cfg.Panel.Password,
		Timeout:            cfg.Panel.Timeout,
		InsecureSkipVerify: cfg.Panel.InsecureSkipVerify,
		PageSize:           cfg.Panel.PageSize,
		RateLimit:          cfg.Panel.RateLimit,
		Dev:                cfg.Runtime.Dev,
	}, a.log)
	if err != nil {
		return err
	}
	sessions := marzban.NewSessionFactory(client, a.log)

	notifier, err := a.newNotifier()
	if err != nil {
		return err
	}

	a.stats = usecase.NewStatsUseCase(sessions, notifier, tr, a.log)
	a.quota = usecase.NewQuotaUseCase(sessions, notifier, tr, a.log)
	a.cleanup = usecase.NewCleanupUseCase(sessions, notifier, tr, a.log)
	a.status = usecase.NewStatusUseCase(sessions, notifier, tr, a.log)
	a.users = usecase.NewUserUseCase(client, sessions, a.log)

	a.log.Debug().
		Str("trace_id", traceID).
		Str("panel", cfg.Panel.BaseURL()).
		Str("admin", cfg.Panel.Username).
		Str("password", logging.Redact(cfg.Panel.Password, cfg.Runtime.Dev)).
		Msg("cli ready")
	return nil
}

func (a *app) newNotifier() (adapter.Notifier, error) {
	if a.cfg.Telegram.Token == "" {
		return telegram.NewNoopNotifier(a.log), nil
	}
	n, err := telegram.NewRealNotifier(&a.cfg.Telegram, a.log)
	if err != nil {
		return nil, fmt.Errorf("telegram notifier: %w", err)
	}
	return n, nil
}

// askCredentials prompts for whatever the config, env and flags left empty. The
// port is asked only together with a prompted address.
func (a *app) askCredentials() error {
	p := &a.cfg.Panel
	var err error
	if p.Address == "" {
		if p.Address, err = a.prompt.Line(a.tr.T("prompt.address")); err != nil {
			return err
		}
		if p.Port <= 0 {
			if p.Port, err = a.prompt.Port(a.tr.T("prompt.port", config.DefaultPort), config.DefaultPort); err != nil {
				return err
			}
		}
	}
	if p.Username == "" {
		if p.Username, err = a.prompt.Line(a.tr.T("prompt.username")); err != nil {
			return err
		}
	}
	if p.Password == "" {
		if p.Password, err = a.prompt.Secret(a.tr.T("prompt.password")); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) teardown(ctx context.Context) {
	if err := metrics.Push(ctx, a.cfg.Metrics.PushgatewayURL, a.cfg.Metrics.Job); err != nil {
		a.log.Warn().Err(err).Msg("metrics push failed")
	}
}

// override applies explicitly set flags on top of file and env values.
func (o *options) override(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("address") {
		cfg.Panel.Address = o.address
	}
	if f.Changed("port") {
		cfg.Panel.Port = o.port
	}
	if f.Changed("scheme") {
		cfg.Panel.Scheme = o.scheme
	}
	if f.Changed("username") {
		cfg.Panel.Username = o.username
	}
	if f.Changed("password") {
		cfg.Panel.Password = o.password
	}
	if f.Changed("insecure") {
		cfg.Panel.InsecureSkipVerify = o.insecure
	}
	if f.Changed("lang") {
		cfg.UI.Lang = o.lang
	}
	if f.Changed("no-color") {
		cfg.UI.NoColor = o.noColor
	}
}

// bulkOptions wires per-user output and, unless --yes, a confirmation prompt.
func (a *app) bulkOptions(o *options) usecase.BulkOptions {
	opts := usecase.BulkOptions{DryRun: o.dryRun, OnEvent: a.print.Event}
	if !o.yes {
		opts.Confirm = func(_ context.Context, what string, n int) bool {
			ok, err := a.prompt.YesNo(a.tr.T("menu.confirm", what, n))
			return err == nil && ok
		}
	}
	return opts
}

// done prints the summary of a finished bulk run. Per-user failures turn into a
// non-zero exit.
func (a *app) done(res *usecase.BulkResult, err error) error {
	if err != nil {
		return err
	}
	a.print.Summary(res)
	if res.Failed > 0 {
		return fmt.Errorf("%s failed for %d of %d users", res.Operation, res.Failed, res.Matched)
	}
	return nil
}
