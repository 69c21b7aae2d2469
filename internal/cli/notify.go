package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jktr/bato/internal/config"
	"github.com/jktr/bato/notify"
)

func newNotifyCmd(a *app) *cobra.Command {
	var (
		icon     string
		urgency  string
		appName  string
		timeout  time.Duration
		neverEnd bool
		printID  bool
	)

	cmd := &cobra.Command{
		Use:   "notify SUMMARY [BODY]",
		Short: "Show a single notification",
		Long: "Show one desktop notification and exit. The exit status is 1 when the " +
			"notification service is unreachable, 2 when the notification could not be " +
			"updated and 3 when it could not be shown.",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := notify.ParseUrgency(urgency)
			if err != nil {
				return err
			}
			req := notify.Request{Summary: args[0], Icon: icon, Urgency: u}
			if len(args) > 1 {
				req.Body = args[1]
			}

			expire := notify.Server
			switch {
			case neverEnd:
				expire = notify.Never
			case timeout > 0:
				expire = notify.Timeout
			}

			shim := notify.NewShim(a.service(expire, timeout), appName)
			id, err := shim.Send(cmd.Context(), req)
			if err != nil {
				return err
			}
			if printID {
				fmt.Fprintln(cmd.OutOrStdout(), uint32(id))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&icon, "icon", "i", "", "Icon file path or theme name")
	cmd.Flags().StringVarP(&urgency, "urgency", "u", notify.Normal.String(), "low, normal or critical")
	cmd.Flags().StringVarP(&appName, "app-name", "a", config.AppName, "Application name shown by the server")
	cmd.Flags().DurationVarP(&timeout, "timeout", "t", 0, "Expire after this long (0 for the server default)")
	cmd.Flags().BoolVar(&neverEnd, "never-expire", false, "Keep the notification until dismissed")
	cmd.Flags().BoolVarP(&printID, "print-id", "p", false, "Print the id assigned by the server")
	cmd.MarkFlagsMutuallyExclusive("timeout", "never-expire")

	return cmd
}
