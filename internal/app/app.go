package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/five82/scholar/internal/api"
	"github.com/five82/scholar/internal/config"
	"github.com/five82/scholar/internal/learner"
	"github.com/five82/scholar/internal/prefs"
	"github.com/five82/scholar/internal/resource"
	"github.com/five82/scholar/internal/ui"
)

// Options configure the Scholar application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/scholar/prefs.toml
	PollEvery  int    // seconds; zero uses the configured interval
	Debug      bool
}

// Run boots the Scholar TUI until the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.PollEvery > 0 {
		settings.PollInterval = time.Duration(opts.PollEvery) * time.Second
	}
	if err := settings.Validate(); err != nil {
		return err
	}

	userPrefs, _ := prefs.Load(opts.PrefsPath)

	logger, closeLog, err := openLogger(settings.LogFile, opts.Debug)
	if err != nil {
		return err
	}
	defer closeLog()

	client, err := api.NewClient(settings.APIURL, api.Options{
		Timeout:           settings.RequestTimeout,
		RequestsPerSecond: settings.RequestsPerSecond,
		Logger:            logger,
	})
	if err != nil {
		return fmt.Errorf("init api client: %w", err)
	}

	changes := make(chan struct{}, 1)
	expired := make(chan string, 1)
	store := resource.NewStore(
		resource.WithLogger(logger),
		resource.WithErrorHook(learner.ReauthHook(func(res, subject string, err error) {
			logger.Warn("session expired", "resource", res, "subject", subject, "error", err)
			select {
			case expired <- res:
			default:
			}
		})),
	)
	unsubscribe := store.Subscribe(func(resource.Event) { signal(changes) })
	defer unsubscribe()

	w, err := wire(store, client, settings, logger)
	if err != nil {
		return err
	}

	// Populate the cache before the UI starts; failures show as error states.
	initialLoad(ctx, w, logger)

	poller := StartPoller(ctx, w.dashboard, settings.PollInterval, logger, func() { signal(changes) })

	return ui.Run(ui.Options{
		Context:      ctx,
		Settings:     settings,
		Prefs:        userPrefs,
		PrefsPath:    opts.PrefsPath,
		Dashboard:    w.dashboard,
		Profile:      w.profile,
		Channel:      w.channel,
		Email:        w.email,
		FinancialAid: w.financialAid,
		Changes:      changes,
		Expired:      expired,
		Offline:      poller.Offline,
		Logger:       logger,
	})
}

// wiring holds the controllers handed to the UI.
type wiring struct {
	registry     *learner.Registry
	dashboard    *learner.DashboardController
	profile      *learner.ProfileController
	channel      *learner.ChannelController
	email        *learner.EmailController
	financialAid func(programID int64) (*learner.FinancialAidController, error)
}

func wire(store *resource.Store, client api.Fetcher, settings config.Settings, logger *slog.Logger) (wiring, error) {
	reg, err := learner.NewRegistry(store, client)
	if err != nil {
		return wiring{}, fmt.Errorf("register resources: %w", err)
	}
	v, err := learner.NewValidation()
	if err != nil {
		return wiring{}, fmt.Errorf("init validation: %w", err)
	}
	w := wiring{
		registry:  reg,
		dashboard: learner.NewDashboardController(reg, settings.Username),
	}
	if w.profile, err = learner.NewProfileController(reg, v, settings.Username, logger); err != nil {
		return wiring{}, err
	}
	if settings.Features.Email {
		if w.channel, err = learner.NewChannelController(reg, v, logger); err != nil {
			return wiring{}, err
		}
		if w.email, err = learner.NewEmailController(reg, v, logger); err != nil {
			return wiring{}, err
		}
	}
	if settings.Features.FinancialAid {
		w.financialAid = func(programID int64) (*learner.FinancialAidController, error) {
			return learner.NewFinancialAidController(reg, v, programID, logger)
		}
	}
	return w, nil
}

func initialLoad(ctx context.Context, w wiring, logger *slog.Logger) {
	var g errgroup.Group
	g.Go(func() error {
		_, err := w.profile.Load(ctx).Wait(ctx)
		return err
	})
	g.Go(func() error {
		return w.dashboard.Refresh(ctx, false)
	})
	g.Go(func() error {
		return w.dashboard.LoadCatalog(ctx)
	})
	if err := g.Wait(); err != nil {
		logger.Warn("initial load incomplete", "error", err)
	}
}

// openLogger writes structured logs to path; the terminal belongs to the UI.
func openLogger(path string, debug bool) (*slog.Logger, func(), error) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	logger := newLogger(file, level)
	return logger, func() { _ = file.Close() }, nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func signal(ch chan<- struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
