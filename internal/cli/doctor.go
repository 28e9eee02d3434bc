package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/eleven-am/goclip"
)

type healthCheck struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // "ok", "warning", "error"
	Summary string `json:"summary"`
}

func newDoctorCmd(a *app) *cobra.Command {
	var outputJSON bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the ffmpeg build and output directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var checks []healthCheck

			checks = append(checks, checkConfig(a.configPath))

			ctl, err := a.controller()
			if err != nil {
				checks = append(checks, healthCheck{Name: "Output", Status: "error", Summary: err.Error()})
				return writeDoctorResult(cmd, outputJSON, checks)
			}
			defer ctl.Close()
			checks = append(checks, healthCheck{Name: "Output", Status: "ok", Summary: ctl.OutputDir()})

			report, err := ctl.Detect(cmd.Context())
			checks = append(checks, checkEngine(report, err))

			return writeDoctorResult(cmd, outputJSON, checks)
		},
	}

	cmd.Flags().BoolVar(&outputJSON, "json", false, "Output machine-readable JSON")
	return cmd
}

func checkConfig(path string) healthCheck {
	if _, err := os.Stat(path); err != nil {
		return healthCheck{Name: "Config", Status: "warning", Summary: "no config file, using defaults and GOCLIP_* variables"}
	}
	return healthCheck{Name: "Config", Status: "ok", Summary: path}
}

func checkEngine(report goclip.CapabilityReport, err error) healthCheck {
	if err != nil {
		return healthCheck{Name: "Engine", Status: "error", Summary: err.Error()}
	}
	missing := report.Missing()
	if len(missing) == 0 {
		return healthCheck{
			Name:    "Engine",
			Status:  "ok",
			Summary: fmt.Sprintf("%s has all %d filters and encoders", report.Binary, len(report.Capabilities)),
		}
	}
	names := make([]string, 0, len(missing))
	for _, c := range missing {
		names = append(names, fmt.Sprintf("%s (%s)", c.Name, c.Feature))
	}
	return healthCheck{
		Name:    "Engine",
		Status:  "warning",
		Summary: "missing " + strings.Join(names, ", "),
	}
}

func writeDoctorResult(cmd *cobra.Command, outputJSON bool, checks []healthCheck) error {
	if outputJSON {
		data, err := json.MarshalIndent(checks, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	bold := lipgloss.NewStyle().Bold(true).Inline(true)
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Inline(true)
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Inline(true)
	red := lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Inline(true)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, bold.Render("GOCLIP HEALTH"))

	for _, c := range checks {
		var statusStr string
		switch c.Status {
		case "ok":
			statusStr = green.Render("OK")
		case "warning":
			statusStr = yellow.Render("WARN")
		case "error":
			statusStr = red.Render("ERROR")
		}
		fmt.Fprintf(out, "  %-8s %s    %s\n", c.Name+":", statusStr, c.Summary)
	}

	return nil
}
