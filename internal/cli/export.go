package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eleven-am/goclip"
)

func newExportCmd(a *app) *cobra.Command {
	var (
		resolution  string
		aspectRatio string
		quality     int
		format      string
	)

	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Scale and re-encode a video with the export settings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if flags.Changed("resolution") {
				a.cfg.Export.Resolution = goclip.Resolution(resolution)
			}
			if flags.Changed("aspect-ratio") {
				a.cfg.Export.AspectRatio = goclip.AspectRatio(aspectRatio)
			}
			if flags.Changed("quality") {
				a.cfg.Export.Quality = quality
			}
			if flags.Changed("format") {
				a.cfg.Export.Format = format
			}

			ctl, err := a.controller()
			if err != nil {
				return err
			}
			defer ctl.Close()

			output, err := ctl.ExportFile(cmd.Context(), args[0])
			if err != nil {
				if msg := ctl.ExportState().Err; msg != "" {
					return fmt.Errorf("%s: %w", msg, err)
				}
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), output)
			return nil
		},
	}

	cmd.Flags().StringVar(&resolution, "resolution", "", "Output resolution: 720p, 1080p or 4k")
	cmd.Flags().StringVar(&aspectRatio, "aspect-ratio", "", "Output aspect ratio: 16:9, 9:16 or 1:1")
	cmd.Flags().IntVar(&quality, "quality", 0, "Quality from 0 to 100; picks the video bitrate")
	cmd.Flags().StringVar(&format, "format", "", "Container format, for example mp4 or mov")

	return cmd
}
