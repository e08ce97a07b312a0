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
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/corpus-refresh/internal/approval"
	"github.com/sells-group/corpus-refresh/internal/changelog"
	"github.com/sells-group/corpus-refresh/internal/config"
	"github.com/sells-group/corpus-refresh/internal/corpus"
	"github.com/sells-group/corpus-refresh/internal/enrich"
	"github.com/sells-group/corpus-refresh/internal/evidence"
	"github.com/sells-group/corpus-refresh/internal/model"
	"github.com/sells-group/corpus-refresh/internal/oracle"
	"github.com/sells-group/corpus-refresh/internal/report"
	"github.com/sells-group/corpus-refresh/internal/staleness"
	"github.com/sells-group/corpus-refresh/internal/store"
)

var (
	refreshRecords []string
	refreshAuto    string
	refreshDryRun  bool
	refreshAll     bool
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Run an interactive enrichment pass over the corpus",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("refresh"); err != nil {
			return err
		}
		prompter, err := newPrompter(refreshAuto, os.Stdin, os.Stdout)
		if err != nil {
			return err
		}
		if tp, ok := prompter.(*approval.TerminalPrompter); ok {
			defer tp.Close()
		}

		doc, ev, err := loadInputs(ctx, cfg.Corpus)
		if err != nil {
			return err
		}

		gen, err := oracle.New(cfg.Oracle)
		if err != nil {
			return eris.Wrap(err, "init oracle")
		}

		st, err := initStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		return runRefresh(ctx, refreshDeps{
			cfg:      cfg,
			gen:      gen,
			store:    st,
			prompter: prompter,
			doc:      doc,
			evidence: ev,
			out:      os.Stdout,
		}, refreshRecords, refreshAll, refreshDryRun)
	},
}

type refreshDeps struct {
	cfg      *config.Config
	gen      oracle.Generator
	store    store.Store
	prompter approval.Prompter
	doc      *corpus.Document
	evidence enrich.EvidenceSource
	out      io.Writer
}

func runRefresh(ctx context.Context, d refreshDeps, records []string, all, dryRun bool) error {
	sections, err := d.cfg.Corpus.ResolveSections()
	if err != nil {
		return err
	}
	filter, err := loadSourceFilter(d.cfg.Sources)
	if err != nil {
		return err
	}
	merger, err := enrich.NewMerger(d.cfg.Corpus.MinTextLength)
	if err != nil {
		return err
	}

	run, err := d.store.CreateRun(ctx, model.RunKindRefresh)
	if err != nil {
		return eris.Wrap(err, "create run")
	}
	log := changelog.New(run.ID, d.store)
	restrictions := filter.RestrictionsPrompt()

	pcfg := enrich.PipelineConfig{
		Detector: staleness.NewDetector(d.gen, staleness.Options{
			Restrictions:  restrictions,
			MinTextLength: d.cfg.Corpus.MinTextLength,
			MaxSparseKeys: d.cfg.Corpus.MaxSparseKeys,
		}),
		Gate:        approval.NewGate(d.prompter),
		Generator:   enrich.NewGenerator(d.gen, restrictions),
		Merger:      merger,
		Evidence:    d.evidence,
		Log:         log,
		Sections:    sections,
		RecordDelay: d.cfg.Oracle.RecordDelay(),
	}
	if !all {
		pcfg.ReenhanceAfter = d.cfg.Corpus.ReenhanceAfter()
	}
	p := enrich.NewPipeline(pcfg)

	zap.L().Info("refresh starting",
		zap.String("run_id", run.ID),
		zap.Int("records", d.doc.Len()),
		zap.Int("sections", len(sections)),
	)
	p.Run(ctx, d.doc, records)

	counts := log.Counts()
	applied := counts[model.StatusUpdated] + counts[model.StatusForcedUpdate]

	// Persist history even when the run was interrupted.
	finishCtx := context.WithoutCancel(ctx)
	log.Flush(finishCtx)
	if err := d.store.FinishRun(finishCtx, run.ID, counts); err != nil {
		zap.L().Warn("finish run failed", zap.String("run_id", run.ID), zap.Error(err))
	}

	switch {
	case applied == 0:
		zap.L().Info("no sections changed, corpus left untouched")
	case dryRun:
		zap.L().Info("dry run, corpus not saved", zap.Int("applied", applied))
	default:
		if err := d.doc.Save(d.cfg.Corpus.Path); err != nil {
			return eris.Wrap(err, "save corpus")
		}
		zap.L().Info("corpus saved", zap.String("path", d.cfg.Corpus.Path), zap.Int("applied", applied))
	}

	report.Summary(d.out, fmt.Sprintf("Refresh run %s", run.ID), log.Entries())
	return nil
}

// loadInputs reads the corpus and the evidence feeds concurrently.
func loadInputs(ctx context.Context, cc config.CorpusConfig) (*corpus.Document, *evidence.Set, error) {
	var (
		doc *corpus.Document
		ev  *evidence.Set
	)
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		doc, err = corpus.Load(cc.Path, cc.Collection)
		return err
	})
	g.Go(func() error {
		if cc.EvidencePath == "" {
			ev = evidence.New(nil)
			return nil
		}
		var err error
		ev, err = evidence.Load(cc.EvidencePath)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	zap.L().Info("inputs loaded", zap.Int("records", doc.Len()), zap.Int("feeds", ev.Len()))
	return doc, ev, nil
}

func newPrompter(auto string, in io.Reader, out io.Writer) (approval.Prompter, error) {
	switch auto {
	case "":
		return approval.NewTerminalPrompter(in, out), nil
	case "grant":
		return approval.AutoPrompter{Result: approval.Grant}, nil
	case "deny":
		return approval.AutoPrompter{Result: approval.Deny}, nil
	default:
		return nil, eris.Errorf("--auto must be grant or deny, got %q", auto)
	}
}

func init() {
	refreshCmd.Flags().StringSliceVar(&refreshRecords, "records", nil, "record IDs to process (default: records due for re-enhancement)")
	refreshCmd.Flags().BoolVar(&refreshAll, "all", false, "analyze every record regardless of its last enhancement date")
	refreshCmd.Flags().StringVar(&refreshAuto, "auto", "", "answer every approval without prompting (grant or deny)")
	refreshCmd.Flags().BoolVar(&refreshDryRun, "dry-run", false, "run the pass without saving the corpus")
	rootCmd.AddCommand(refreshCmd)
}
