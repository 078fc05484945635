package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"corpusprep/internal/app"
	"corpusprep/internal/dataset"
	"corpusprep/internal/label"
)

var errIncompleteViews = errors.New("test-time augmentation views are incomplete")

func (g *globals) indexCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "index <split>",
		Short: "List the partitioned images of a split with their class index",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "csv" && format != "json" {
				return usageError{fmt.Errorf("unknown format %q (want csv or json)", format)}
			}
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				samples, err := dataset.Index(ctx, a.Target, args[0])
				if err != nil {
					return err
				}
				if format == "json" {
					return g.writeJSON(samples)
				}
				return g.writeCSV(samples)
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "csv", "output format: csv or json")
	return cmd
}

func (g *globals) writeCSV(samples []dataset.Sample) error {
	w := csv.NewWriter(g.stdout)
	if err := w.Write([]string{"key", "label", "class"}); err != nil {
		return err
	}
	for _, s := range samples {
		if err := w.Write([]string{s.Key, s.Label.String(), strconv.Itoa(s.Class)}); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	counts := dataset.ClassCounts(samples)
	labels := make([]label.Label, 0, len(counts))
	for l := range counts {
		labels = append(labels, l)
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })
	for _, l := range labels {
		_, _ = fmt.Fprintf(g.stderr, "class %s: %d\n", l, counts[l])
	}
	return nil
}

func (g *globals) writeJSON(samples []dataset.Sample) error {
	enc := json.NewEncoder(g.stdout)
	for _, s := range samples {
		if err := enc.Encode(s); err != nil {
			return err
		}
	}
	return nil
}

func (g *globals) verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check that every test image has every augmentation view",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				report, err := a.Runner(false).Verify(ctx)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(g.stdout, "verify: complete=%d incomplete=%d\n", report.Complete, len(report.Incomplete))
				if report.OK() {
					return nil
				}
				names := make([]string, 0, len(report.Incomplete))
				for name := range report.Incomplete {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					_, _ = fmt.Fprintf(g.stdout, "  %s missing %v\n", name, report.Incomplete[name])
				}
				return errIncompleteViews
			})
		},
	}
}

func (g *globals) historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show recorded runs and their stages",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				runs, err := a.Ledger.Runs(ctx)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(g.stdout, 0, 4, 2, ' ', 0)
				_, _ = fmt.Fprintln(tw, "RUN\tCOMMAND\tSTATUS\tSTARTED\tSTAGES")
				for _, run := range runs {
					stages, err := a.Ledger.Stages(ctx, run.ID)
					if err != nil {
						return err
					}
					names := make([]string, len(stages))
					for i, s := range stages {
						names[i] = s.Stage
					}
					_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%v\n", run.ID, run.Command, run.Status,
						run.StartedAt.Format(time.RFC3339), names)
				}
				return tw.Flush()
			})
		},
	}
}
