package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/jktr/bato/internal/config"
	"github.com/jktr/bato/internal/logx"
	"github.com/jktr/bato/internal/monitor"
	"github.com/jktr/bato/notify"
)

func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Watch the battery and notify on state changes (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDaemon(cmd)
		},
	}
}

func (a *app) runDaemon(cmd *cobra.Command) error {
	path, err := a.resolveConfigPath()
	if err != nil {
		return err
	}
	mgr := config.NewManager(path)
	cfg, err := mgr.Load()
	if err != nil {
		return err
	}
	a.override(cfg)

	logSvc, log := logx.New(cfg.Logging(), cmd.ErrOrStderr())
	defer logSvc.Close()
	mgr.SetLogger(log.With(logx.String("component", "config")))

	shim := notify.NewShim(a.service(notify.Server, 0), config.AppName)
	mon, err := monitor.New(cfg, shim, monitor.WithLogger(log.With(logx.String("component", "monitor"))))
	if err != nil {
		return err
	}

	mgr.OnChange(func(next *config.Config) {
		a.override(next)
		logSvc.Apply(next.Logging())
		if err := mon.Apply(next); err != nil {
			log.Error("config not applied", logx.String("path", path), logx.Err(err))
		}
	})

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	go func() {
		if err := mgr.Watch(ctx); err != nil {
			log.Warn("config watch ended", logx.Err(err))
		}
	}()

	if log.Enabled(logx.LevelDebug) {
		if conn, err := a.dial(); err != nil {
			log.Warn("notification events unavailable", logx.Err(err))
		} else {
			defer conn.Close()
			events, err := monitor.WatchEvents(conn, log.With(logx.String("component", "events")))
			if err != nil {
				log.Warn("notification events unavailable", logx.Err(err))
			} else {
				defer events.Close()
			}
		}
	}

	log.Info("bato starting", logx.String("config", path), logx.String("version", version))
	return mon.Run(ctx)
}
