package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/eleven-am/goclip"
	"github.com/eleven-am/goclip/internal/script"
	"github.com/eleven-am/goclip/internal/tui"
)

const (
	loadKey   = "load"
	exportKey = "export"
)

var stepColumns = []tui.Column{
	{Header: "STEP", Width: 4},
	{Header: "OPERATION", Width: 24},
	{Header: "STATUS", Width: 9},
	{Header: "CLIP", Width: 16},
}

func newApplyCmd(a *app) *cobra.Command {
	var (
		plain    bool
		merge    bool
		noExport bool
	)

	cmd := &cobra.Command{
		Use:   "apply <script.yaml>",
		Short: "Run an edit script against its source video and export the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := script.Load(args[0])
			if err != nil {
				return err
			}

			if s.Export != nil {
				a.cfg.Export = *s.Export
			}
			a.cfg.MergeTimeline = s.MergeOr(a.cfg.MergeTimeline || merge)

			ctl, err := a.controller()
			if err != nil {
				return err
			}
			defer ctl.Close()

			out := cmd.OutOrStdout()
			run := func(rep reporter) error {
				output, err := runScript(cmd.Context(), ctl, s, !noExport, rep)
				if err != nil {
					return err
				}
				if output != "" && rep.plain() {
					fmt.Fprintf(out, "\nExported %s\n", output)
				}
				return nil
			}

			if !tui.Interactive(out, plain) {
				return run(plainReporter{out: out})
			}

			model := tui.NewProgressModel(args[0], stepColumns)
			for _, row := range scriptRows(s, !noExport) {
				model.AddRow(row.Key, row.Fields)
			}
			return tui.Run(cmd.Context(), out, model, func(send func(tea.Msg)) error {
				return run(teaReporter{send: send})
			})
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "Print one line per step instead of the interactive view")
	cmd.Flags().BoolVar(&merge, "merge", false, "Export every clip concatenated instead of only the last one")
	cmd.Flags().BoolVar(&noExport, "no-export", false, "Apply the edits without the final export")

	return cmd
}

// reporter receives step and export progress while a script runs.
type reporter interface {
	step(key, status, clip string)
	exportProgress(percent int, output string)
	plain() bool
}

type plainReporter struct {
	out io.Writer
}

func (r plainReporter) step(key, status, clip string) {
	if status == "pending" || status == "running" || status == "loading" || status == "exporting" {
		return
	}
	fmt.Fprintf(r.out, "%-8s %-9s %s\n", key, status, tui.NonEmptyOrDash(clip))
}

func (r plainReporter) exportProgress(int, string) {}

func (plainReporter) plain() bool { return true }

type teaReporter struct {
	send func(tea.Msg)
}

func (r teaReporter) step(key, status, clip string) {
	fields := map[string]string{"STATUS": status}
	if clip != "" {
		fields["CLIP"] = clip
	}
	r.send(tui.StepUpdateMsg{Key: key, Fields: fields})
}

func (r teaReporter) exportProgress(percent int, output string) {
	r.send(tui.ExportProgressMsg{Percent: percent, Output: output})
}

func (teaReporter) plain() bool { return false }

func scriptRows(s script.Script, export bool) []tui.Row {
	rows := []tui.Row{{Key: loadKey, Fields: []string{"0", "Load", "pending"}}}
	for i, op := range s.Operations {
		rows = append(rows, tui.Row{
			Key:    opKey(i),
			Fields: []string{strconv.Itoa(i + 1), script.Describe(op), "pending"},
		})
	}
	if export {
		rows = append(rows, tui.Row{
			Key:    exportKey,
			Fields: []string{strconv.Itoa(len(s.Operations) + 1), "Export", "pending"},
		})
	}
	return rows
}

func opKey(i int) string {
	return "op:" + strconv.Itoa(i+1)
}

// runScript loads the source, applies every operation in order and exports
// the timeline. The first failing step stops the run; later steps are
// reported as skipped.
func runScript(ctx context.Context, ctl *goclip.Controller, s script.Script, export bool, rep reporter) (string, error) {
	rep.step(loadKey, "loading", "")
	clip, err := ctl.Load(ctx, s.Source)
	if err != nil {
		rep.step(loadKey, "failed", "")
		skipFrom(rep, s, 0, export)
		return "", err
	}
	rep.step(loadKey, "loaded", fmt.Sprintf("%s %ss", clip.Name, strconv.FormatFloat(clip.End, 'f', 2, 64)))

	for i, op := range s.Operations {
		key := opKey(i)
		rep.step(key, "running", "")
		clip, err := ctl.Apply(ctx, op)
		if err != nil {
			rep.step(key, "failed", ctl.State().Err)
			skipFrom(rep, s, i+1, export)
			return "", fmt.Errorf("step %d (%s): %w", i+1, script.Describe(op), err)
		}
		rep.step(key, "done", clip.Name)
	}

	if !export {
		return "", nil
	}

	rep.step(exportKey, "exporting", "")
	states, cancel := ctl.SubscribeExport()
	forwarded := make(chan struct{})
	go func() {
		defer close(forwarded)
		for st := range states {
			if st.Exporting {
				rep.exportProgress(st.Progress, "")
			}
		}
	}()

	output, err := ctl.Export(ctx)
	cancel()
	<-forwarded

	if err != nil {
		rep.step(exportKey, "failed", ctl.ExportState().Err)
		return "", err
	}
	rep.exportProgress(100, output)
	rep.step(exportKey, "exported", output)
	return output, nil
}

func skipFrom(rep reporter, s script.Script, from int, export bool) {
	for i := from; i < len(s.Operations); i++ {
		rep.step(opKey(i), "skipped", "")
	}
	if export {
		rep.step(exportKey, "skipped", "")
	}
}
