package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/jktr/bato/internal/battery"
	"github.com/jktr/bato/internal/config"
	"github.com/jktr/bato/internal/monitor"
)

var (
	accent  = lipgloss.Color("#D97706") // amber
	dim     = lipgloss.Color("#6B7280") // muted gray
	success = lipgloss.Color("#22C55E") // green
	danger  = lipgloss.Color("#EF4444") // red
	warning = lipgloss.Color("#F59E0B") // amber-yellow
	info    = lipgloss.Color("#8B949E") // soft blue-gray
)

var (
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 2)

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)
	labelStyle = lipgloss.NewStyle().Foreground(dim).Width(10)

	stateColors = map[battery.State]lipgloss.Color{
		battery.Charging:    info,
		battery.Discharging: info,
		battery.Full:        success,
		battery.Low:         warning,
		battery.Critical:    danger,
	}
)

type statusView struct {
	Battery    string
	Reading    battery.Reading
	State      battery.State
	Thresholds battery.Thresholds
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current battery reading",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.resolveConfigPath()
			if err != nil {
				return err
			}
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			a.override(cfg)

			src, err := monitor.OpenSource(cfg)
			if err != nil {
				return err
			}
			r, err := src.Read()
			if err != nil {
				return err
			}

			th := cfg.Thresholds()
			fmt.Fprintln(cmd.OutOrStdout(), renderStatus(statusView{
				Battery:    cfg.Battery(),
				Reading:    r,
				State:      battery.Classify(r, th),
				Thresholds: th,
			}))
			return nil
		},
	}
}

func renderStatus(v statusView) string {
	stateStyle := lipgloss.NewStyle().Bold(true).Foreground(stateColors[v.State])

	rows := []string{
		titleStyle.Render(v.Battery),
		"",
		labelStyle.Render("level") + fmt.Sprintf("%d%% %s", v.Reading.Level, gauge(v.Reading.Level)),
		labelStyle.Render("status") + v.Reading.Status,
		labelStyle.Render("state") + stateStyle.Render(v.State.String()),
		labelStyle.Render("low") + fmt.Sprintf("%d%%", v.Thresholds.Low),
		labelStyle.Render("critical") + fmt.Sprintf("%d%%", v.Thresholds.Critical),
	}
	return boxStyle.Render(strings.Join(rows, "\n"))
}

// gauge draws level as a ten cell bar.
func gauge(level uint32) string {
	filled := int(min(level, 100)+5) / 10
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", 10-filled) + "]"
}
