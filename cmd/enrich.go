package main

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AndrewUlloa/personal-project-radar-sub000/internal/pipeline"
)

var (
	enrichDomain string
	enrichName   string
	enrichSource string
	enrichWait   bool
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Discover and enrich a single domain",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, "")
		if err != nil {
			return err
		}
		defer env.Close()

		id, err := env.Pipeline.Discover(ctx, pipeline.DiscoverRequest{
			Domain:    enrichDomain,
			Name:      enrichName,
			SourceTag: enrichSource,
		})
		if errors.Is(err, pipeline.ErrDuplicate) {
			fmt.Fprintf(cmd.OutOrStdout(), "domain already tracked as %s\n", id)
			return err
		}
		if err != nil {
			return eris.Wrapf(err, "enrich %s", enrichDomain)
		}

		if enrichWait {
			delay := cfg.Scoring.Delay()
			zap.L().Info("waiting for scoring task", zap.String("company_id", id), zap.Duration("delay", delay))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			if _, err := env.Runner.RunDue(ctx); err != nil {
				return eris.Wrap(err, "run scoring task")
			}
		}

		c, err := env.Store.GetCompany(ctx, id)
		if err != nil {
			return err
		}
		return printJSON(cmd, c)
	},
}

var retryCompanyID string

var retryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Re-run enrichment for an existing company",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, "")
		if err != nil {
			return err
		}
		defer env.Close()

		report, err := env.Pipeline.Enrich(ctx, retryCompanyID)
		if err != nil {
			return eris.Wrapf(err, "retry %s", retryCompanyID)
		}
		return printJSON(cmd, report)
	},
}

func init() {
	enrichCmd.Flags().StringVar(&enrichDomain, "domain", "", "company domain")
	enrichCmd.Flags().StringVar(&enrichName, "name", "", "display name (derived from the domain when empty)")
	enrichCmd.Flags().StringVar(&enrichSource, "source", "cli", "discovery source tag")
	enrichCmd.Flags().BoolVar(&enrichWait, "wait", false, "wait for the scoring task and run it in-process")
	_ = enrichCmd.MarkFlagRequired("domain")
	rootCmd.AddCommand(enrichCmd)

	retryCmd.Flags().StringVar(&retryCompanyID, "company-id", "", "company ID")
	_ = retryCmd.MarkFlagRequired("company-id")
	rootCmd.AddCommand(retryCmd)
}
