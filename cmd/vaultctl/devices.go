package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/ericfisherdev/accountvault/internal/domain/model"
)

var (
	iosStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("245")).
			Padding(0, 1)

	androidStyle = iosStyle.BorderForeground(lipgloss.Color("34"))

	titleStyle    = lipgloss.NewStyle().Bold(true)
	platformStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func newDevicesCmd() *cobra.Command {
	var query string

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "Show accounts grouped by the phone they are logged in on",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := openVault(cmd.Context())
			if err != nil {
				return err
			}
			defer env.Close()

			groups, err := env.vault.DeviceGroups(cmd.Context(), query)
			if err != nil {
				return err
			}

			return renderDevices(cmd.OutOrStdout(), groups)
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "only include accounts whose handle, username or notes match")
	return cmd
}

// renderDevices prints one bordered card per device group, in board order.
func renderDevices(w io.Writer, groups []model.DeviceGroup) error {
	if len(groups) == 0 {
		_, err := fmt.Fprintln(w, "no accounts are logged in on a device")
		return err
	}

	for _, g := range groups {
		if _, err := fmt.Fprintln(w, renderDevice(g)); err != nil {
			return err
		}
	}
	return nil
}

func renderDevice(g model.DeviceGroup) string {
	lines := []string{titleStyle.Render(g.DisplayName)}
	for _, a := range g.Members {
		line := platformStyle.Render(fmt.Sprintf("%-10s", a.Platform)) + " " + a.Handle
		if a.Username != "" && a.Username != a.Handle {
			line += " (" + a.Username + ")"
		}
		lines = append(lines, line)
	}

	style := iosStyle
	if g.Kind == model.DeviceKindAndroid {
		style = androidStyle
	}
	return style.Render(strings.Join(lines, "\n"))
}
