package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/Sternrassler/vocab-enricher/internal/scheduler"
	"github.com/Sternrassler/vocab-enricher/internal/server"
	"github.com/Sternrassler/vocab-enricher/pkg/batch"
	"github.com/Sternrassler/vocab-enricher/pkg/enrichment"
	"github.com/Sternrassler/vocab-enricher/pkg/logging"
)

func newEnrichCommand(opts *globalOptions) *cobra.Command {
	var sentence string

	cmd := &cobra.Command{
		Use:   "enrich <term>",
		Short: "Enrich a single term",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			rec, err := a.enricher.Enrich(cmd.Context(), args[0], enrichment.Context{Sentence: sentence})
			if err != nil {
				return err
			}
			return newPrinter(cmd.OutOrStdout(), opts.output).Record(rec)
		},
	}
	cmd.Flags().StringVar(&sentence, "sentence", "", "sentence the term was captured from, used for collocations")
	return cmd
}

func newBatchCommand(opts *globalOptions) *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "batch <file>|<terms...>",
		Short: "Enrich several terms, isolating failures per term",
		Long: "Enrich up to 10 terms. A single argument naming an existing file is read as\n" +
			"one term per line; blank lines and lines starting with # are ignored.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			terms, err := batchTerms(args)
			if err != nil {
				return err
			}
			maxSize := min(opts.cfg.Batch.MaxSize, batch.MaxBatchSize)
			if len(terms) > maxSize {
				return fmt.Errorf("batch size %d exceeds maximum of %d", len(terms), maxSize)
			}

			a, err := newApp(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			bopts := opts.cfg.BatchOptions()
			if concurrency > 0 {
				bopts.Concurrency = concurrency
			}
			results := batch.Process[enrichment.Record](cmd.Context(), terms,
				func(ctx context.Context, term string) (enrichment.Record, error) {
					return a.enricher.Enrich(ctx, term, enrichment.Context{})
				}, bopts)

			return newPrinter(cmd.OutOrStdout(), opts.output).Batch(toBatchEntries(results))
		},
	}
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "terms enriched at once (default from configuration)")
	return cmd
}

func toBatchEntries(results []batch.Result[enrichment.Record]) []batchEntry {
	entries := make([]batchEntry, len(results))
	for i, r := range results {
		entries[i] = batchEntry{Term: r.Item, Success: r.Success}
		if r.Success {
			rec := r.Data
			entries[i].Data = &rec
		} else {
			entries[i].Error = r.Error()
		}
	}
	return entries
}

// batchTerms returns args as terms, or the lines of the file named by a
// single argument.
func batchTerms(args []string) ([]string, error) {
	if len(args) == 1 {
		if info, err := os.Stat(args[0]); err == nil && !info.IsDir() {
			f, err := os.Open(args[0])
			if err != nil {
				return nil, fmt.Errorf("failed to open %s: %w", args[0], err)
			}
			defer f.Close()
			return readTerms(f)
		}
	}
	return args, nil
}

func readTerms(r io.Reader) ([]string, error) {
	var terms []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		terms = append(terms, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read terms: %w", err)
	}
	if len(terms) == 0 {
		return nil, errors.New("no terms found")
	}
	return terms, nil
}

func newPurgeCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Remove expired entries from the cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.store.PurgeExpired(cmd.Context())
			if err != nil {
				return err
			}
			return newPrinter(cmd.OutOrStdout(), opts.output).Purged(n)
		},
	}
}

func newServeCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the enrichment API and run scheduled cache purges",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !opts.debug {
				gin.SetMode(gin.ReleaseMode)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, opts.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			purges := scheduler.NewPurgeScheduler(a.store, opts.cfg.Maintenance.PurgeSchedule,
				logging.NewLogger(logging.ComponentScheduler))
			if err := purges.Start(ctx); err != nil {
				return err
			}
			defer purges.Stop()

			srv := server.New(a.enricher, a.store, server.Config{
				Addr:            opts.cfg.Server.Addr,
				ShutdownTimeout: opts.cfg.Server.ShutdownTimeout,
				Batch:           opts.cfg.BatchOptions(),
				MaxBatchSize:    opts.cfg.Batch.MaxSize,
				Version:         version,
			}, logging.NewLogger(logging.ComponentServer))
			return srv.Run(ctx)
		},
	}
}
