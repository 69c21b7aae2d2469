package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jktr/bato/notify"
)

func newDismissCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dismiss ID",
		Short: "Close a notification by the id the server assigned",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil || id == 0 {
				return fmt.Errorf("invalid notification id %q", args[0])
			}

			conn, err := a.dial()
			if err != nil {
				return fmt.Errorf("connect session bus: %w", err)
			}
			defer conn.Close()
			return notify.Dismiss(conn, notify.ID(id))
		},
	}
}
