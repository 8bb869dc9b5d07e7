package main

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/AndrewUlloa/personal-project-radar-sub000/internal/pipeline"
)

var (
	batchFile   string
	batchSource string
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Discover and enrich every domain listed in a file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		f, err := os.Open(batchFile)
		if err != nil {
			return eris.Wrap(err, "open domain file")
		}
		defer f.Close() //nolint:errcheck

		domains, err := readDomains(f)
		if err != nil {
			return err
		}

		env, err := initEnv(ctx, "")
		if err != nil {
			return err
		}
		defer env.Close()

		sum := processBatch(ctx, domains, cfg.Enrich.MaxConcurrentCompanies, func(ctx context.Context, domain string) (string, error) {
			return env.Pipeline.Discover(ctx, pipeline.DiscoverRequest{Domain: domain, SourceTag: batchSource})
		})
		if err := printJSON(cmd, sum); err != nil {
			return err
		}
		if sum.Failed > 0 {
			return eris.Errorf("%d of %d domains failed", sum.Failed, len(domains))
		}
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchFile, "file", "", "file with one domain per line")
	batchCmd.Flags().StringVar(&batchSource, "source", "batch", "discovery source tag")
	_ = batchCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(batchCmd)
}

// readDomains returns non-empty, non-comment lines in file order with
// repeats removed.
func readDomains(r io.Reader) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key := strings.ToLower(line)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrap(err, "read domain file")
	}
	return out, nil
}

type discoverFunc func(ctx context.Context, domain string) (string, error)

type batchSummary struct {
	Enriched   int64 `json:"enriched"`
	Duplicates int64 `json:"duplicates"`
	Failed     int64 `json:"failed"`
}

// processBatch runs discover for each domain with at most concurrency in
// flight. Failures are counted, never abort the batch.
func processBatch(ctx context.Context, domains []string, concurrency int, discover discoverFunc) batchSummary {
	if len(domains) == 0 {
		zap.L().Info("no domains to process")
		return batchSummary{}
	}
	if concurrency < 1 {
		concurrency = 1
	}

	zap.L().Info("processing batch",
		zap.Int("domains", len(domains)),
		zap.Int("concurrency", concurrency),
	)

	var enriched, duplicates, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, d := range domains {
		g.Go(func() error {
			id, err := discover(gctx, d)
			switch {
			case err == nil:
				enriched.Add(1)
			case errors.Is(err, pipeline.ErrDuplicate):
				duplicates.Add(1)
				zap.L().Info("domain already tracked", zap.String("domain", d), zap.String("company_id", id))
			default:
				failed.Add(1)
				zap.L().Error("batch enrichment failed", zap.String("domain", d), zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()

	sum := batchSummary{Enriched: enriched.Load(), Duplicates: duplicates.Load(), Failed: failed.Load()}
	zap.L().Info("batch complete",
		zap.Int64("enriched", sum.Enriched),
		zap.Int64("duplicates", sum.Duplicates),
		zap.Int64("failed", sum.Failed),
	)
	return sum
}
