package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/spf13/cobra"

	"github.com/jktr/bato/internal/config"
	"github.com/jktr/bato/notify"
)

var (
	version = "dev"
	commit  = "none"
)

// app holds the persistent flags and the seams tests replace.
type app struct {
	configPath string
	logLevel   string
	sysPath    string

	// service builds the notification service used by `notify`.
	service func(expire notify.Expiry, timeout time.Duration) notify.Service
	// dial opens the bus for `server-info` and `dismiss`.
	dial func() (*dbus.Conn, error)
}

func newApp() *app {
	return &app{
		service: func(expire notify.Expiry, timeout time.Duration) notify.Service {
			svc := notify.NewDBusService(nil)
			svc.Expire = expire
			svc.Timeout = timeout
			return svc
		},
		dial: notify.DialSessionBus,
	}
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   config.AppName,
		Short: "Battery notifications for the desktop",
		Long: "bato watches the battery through sysfs and shows a desktop notification " +
			"whenever it starts charging, discharges, fills up or runs low.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDaemon(cmd)
		},
	}

	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Config file (default $XDG_CONFIG_HOME/bato/bato.yaml)")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Override log.level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&a.sysPath, "sys-path", "", "Override the power supply class directory")
	_ = cmd.PersistentFlags().MarkHidden("sys-path")

	cmd.AddCommand(newRunCmd(a))
	cmd.AddCommand(newNotifyCmd(a))
	cmd.AddCommand(newStatusCmd(a))
	cmd.AddCommand(newServerInfoCmd(a))
	cmd.AddCommand(newDismissCmd(a))
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// resolveConfigPath returns --config or the XDG default.
func (a *app) resolveConfigPath() (string, error) {
	if a.configPath != "" {
		return a.configPath, nil
	}
	return config.DefaultPath()
}

// override applies the flags that shadow config keys.
func (a *app) override(cfg *config.Config) {
	if a.sysPath != "" {
		cfg.SysPath = a.sysPath
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
}

// Execute runs the command line and returns the process status.
// Notification failures keep their step-specific status.
func Execute(ctx context.Context) int {
	return execute(ctx, newApp(), os.Args[1:], os.Stdout, os.Stderr)
}

func execute(ctx context.Context, a *app, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil || errors.Is(err, context.Canceled) {
		return 0
	}
	fmt.Fprintf(stderr, "%s error: %v\n", config.AppName, err)
	return notify.ExitCode(err)
}
