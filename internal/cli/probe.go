package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/eleven-am/goclip"
)

func newProbeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "probe <file>",
		Short: "Print the duration of a video in seconds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, err := a.controller()
			if err != nil {
				return err
			}
			defer ctl.Close()

			duration, err := ctl.Probe(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if duration == 0 {
				return fmt.Errorf("no duration reported for %s", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), strconv.FormatFloat(duration, 'f', 2, 64))
			return nil
		},
	}
}

func newConcatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "concat <file> <file>...",
		Short: "Join videos in order into a new file",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, err := a.controller()
			if err != nil {
				return err
			}
			defer ctl.Close()

			output, err := ctl.Concatenate(cmd.Context(), args)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), output)
			return nil
		},
	}
}

func newFiltersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "filters",
		Short: "List the named color filters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, name := range goclip.Filters() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}
