package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jktr/bato/notify"
)

func newServerInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "server-info",
		Short: "Describe the running notification server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := a.dial()
			if err != nil {
				return fmt.Errorf("connect session bus: %w", err)
			}
			defer conn.Close()

			info, err := notify.GetServerInfo(conn)
			if err != nil {
				return fmt.Errorf("error getting server information: %w", err)
			}
			caps, err := notify.GetServerCapabilities(conn)
			if err != nil {
				return fmt.Errorf("error fetching capabilities: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Name:         %s\n", info.Name)
			fmt.Fprintf(out, "Vendor:       %s\n", info.Vendor)
			fmt.Fprintf(out, "Version:      %s\n", info.Version)
			fmt.Fprintf(out, "Spec:         %s\n", info.SpecVersion)
			fmt.Fprintf(out, "Capabilities: %s\n", strings.Join(caps, ", "))
			return nil
		},
	}
}
