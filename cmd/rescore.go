package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var (
	rescoreCompanyID string
	rescoreUnscored  bool
	rescoreLimit     int
)

var rescoreCmd = &cobra.Command{
	Use:   "rescore",
	Short: "Score a company now, or schedule scoring for unscored companies",
	RunE: func(cmd *cobra.Command, args []string) error {
		if (rescoreCompanyID == "") == !rescoreUnscored {
			return eris.New("exactly one of --company-id or --unscored is required")
		}

		ctx := cmd.Context()
		env, err := initEnv(ctx, "score")
		if err != nil {
			return err
		}
		defer env.Close()

		if rescoreCompanyID != "" {
			res, err := env.Scorer.Score(ctx, rescoreCompanyID)
			if err != nil {
				return eris.Wrapf(err, "score %s", rescoreCompanyID)
			}
			return printJSON(cmd, res)
		}

		n, err := env.Scorer.RescoreUnscored(ctx, rescoreLimit)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "scheduled %d scoring tasks\n", n)
		return nil
	},
}

func init() {
	rescoreCmd.Flags().StringVar(&rescoreCompanyID, "company-id", "", "company to score immediately")
	rescoreCmd.Flags().BoolVar(&rescoreUnscored, "unscored", false, "schedule scoring for companies without a score")
	rescoreCmd.Flags().IntVar(&rescoreLimit, "limit", 100, "max companies to schedule with --unscored")
	rootCmd.AddCommand(rescoreCmd)
}
