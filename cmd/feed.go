package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/corpus-refresh/internal/approval"
	"github.com/sells-group/corpus-refresh/internal/changelog"
	"github.com/sells-group/corpus-refresh/internal/feed"
	"github.com/sells-group/corpus-refresh/internal/ledger"
	"github.com/sells-group/corpus-refresh/internal/model"
	"github.com/sells-group/corpus-refresh/internal/oracle"
	"github.com/sells-group/corpus-refresh/internal/recency"
	"github.com/sells-group/corpus-refresh/internal/report"
	"github.com/sells-group/corpus-refresh/internal/store"
)

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Maintain the dated-update ledger",
}

// -- feed merge --

var feedMergeCmd = &cobra.Command{
	Use:   "merge <candidates.json>",
	Short: "Filter a candidate file and merge new entries into the ledger",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("feed"); err != nil {
			return err
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrapf(err, "read %s", args[0])
		}
		candidates, err := feed.DecodeCandidates(data)
		if err != nil {
			return err
		}

		return withFeed(ctx, os.Stdout, func(ctx context.Context, svc *feed.Service, doc *ledger.Document) (feed.Result, error) {
			return svc.Merge(ctx, doc, candidates), nil
		})
	},
}

// -- feed generate --

var feedTopic string

var feedGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Ask the oracle for new dated updates, approve and merge them",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("feed"); err != nil {
			return err
		}
		gen, err := oracle.New(cfg.Oracle)
		if err != nil {
			return eris.Wrap(err, "init oracle")
		}
		terminal := approval.NewTerminalPrompter(os.Stdin, os.Stdout)
		defer terminal.Close()

		return withFeed(ctx, os.Stdout, func(ctx context.Context, svc *feed.Service, doc *ledger.Document) (feed.Result, error) {
			svc.Generator = feed.NewGenerator(gen, svc.Sources.RestrictionsPrompt(), cfg.Ledger.MaxCandidates)
			svc.Operator = feed.NewTerminalOperator(terminal, terminal.Out())
			return svc.GenerateAndMerge(ctx, doc, feedTopic)
		})
	},
}

// -- feed sources --

var feedSourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Rebuild the ledger's sources list from its entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("feed"); err != nil {
			return err
		}
		filter, err := loadSourceFilter(cfg.Sources)
		if err != nil {
			return err
		}
		doc, err := ledger.Load(cfg.Ledger.Path)
		if err != nil {
			return err
		}
		doc.RebuildSources(filter)
		if err := doc.Save(cfg.Ledger.Path); err != nil {
			return eris.Wrap(err, "save ledger")
		}
		fmt.Fprintf(os.Stdout, "%d sources across %d updates\n", len(doc.Sources), len(doc.Updates))
		return nil
	},
}

type feedStep func(ctx context.Context, svc *feed.Service, doc *ledger.Document) (feed.Result, error)

// withFeed loads the ledger, records a feed run around step, and saves the
// ledger when entries were added.
func withFeed(ctx context.Context, out io.Writer, step feedStep) error {
	minDate, err := cfg.Ledger.MinTime()
	if err != nil {
		return err
	}
	filter, err := loadSourceFilter(cfg.Sources)
	if err != nil {
		return err
	}
	doc, err := ledger.Load(cfg.Ledger.Path)
	if err != nil {
		return err
	}

	st, err := initStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	return runFeed(ctx, st, doc, &feed.Service{
		Filter:            feed.Filter{Recency: recency.NewFilter(minDate), Sources: filter},
		Sources:           filter,
		CoverageThreshold: cfg.Ledger.CoverageThreshold,
	}, cfg.Ledger.Path, out, step)
}

func runFeed(ctx context.Context, st store.Store, doc *ledger.Document, svc *feed.Service, path string, out io.Writer, step feedStep) error {
	run, err := st.CreateRun(ctx, model.RunKindFeed)
	if err != nil {
		return eris.Wrap(err, "create run")
	}
	svc.Log = changelog.New(run.ID, st)

	res, stepErr := step(ctx, svc, doc)

	finishCtx := context.WithoutCancel(ctx)
	svc.Log.Flush(finishCtx)
	if err := st.FinishRun(finishCtx, run.ID, svc.Log.Counts()); err != nil {
		zap.L().Warn("finish run failed", zap.String("run_id", run.ID), zap.Error(err))
	}
	if stepErr != nil {
		return stepErr
	}

	if res.Changed() {
		if err := doc.Save(path); err != nil {
			return eris.Wrap(err, "save ledger")
		}
	}
	fmt.Fprintf(out, "Added %d, duplicates %d, rejected %d, declined %d\n",
		len(res.Added), len(res.Duplicates), len(res.Rejected), len(res.Declined))
	if entries := svc.Log.Entries(); len(entries) > 0 {
		fmt.Fprintln(out, report.ChangesTable(entries))
	}
	return nil
}

func init() {
	feedGenerateCmd.Flags().StringVar(&feedTopic, "topic", "", "specific topic to research (default: let the oracle choose)")

	feedCmd.AddCommand(feedMergeCmd)
	feedCmd.AddCommand(feedGenerateCmd)
	feedCmd.AddCommand(feedSourcesCmd)
	rootCmd.AddCommand(feedCmd)
}
