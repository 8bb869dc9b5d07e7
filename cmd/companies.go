package main

import (
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/AndrewUlloa/personal-project-radar-sub000/internal/audit"
	"github.com/AndrewUlloa/personal-project-radar-sub000/internal/model"
	"github.com/AndrewUlloa/personal-project-radar-sub000/internal/pipeline"
	"github.com/AndrewUlloa/personal-project-radar-sub000/internal/store"
)

var (
	companiesStatus   string
	companiesScored   string
	companiesMinScore int
	companiesLimit    int
	companiesOffset   int
)

var companiesCmd = &cobra.Command{
	Use:   "companies",
	Short: "List tracked companies, highest score first",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, err := companyFilter()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer closeStore(st)

		companies, err := st.ListCompanies(ctx, filter)
		if err != nil {
			return err
		}
		if companies == nil {
			companies = []model.Company{}
		}
		return printJSON(cmd, companies)
	},
}

func companyFilter() (store.CompanyFilter, error) {
	f := store.CompanyFilter{
		Status:   model.Status(companiesStatus),
		MinScore: companiesMinScore,
		Limit:    companiesLimit,
		Offset:   companiesOffset,
	}
	if f.Status != "" && !f.Status.Valid() {
		return f, eris.Errorf("unknown status %q", companiesStatus)
	}
	switch companiesScored {
	case "":
	case "true", "false":
		b := companiesScored == "true"
		f.Scored = &b
	default:
		return f, eris.Errorf("--scored must be true or false, got %q", companiesScored)
	}
	return f, nil
}

var eventsCompanyID string

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Print a company's audit log, oldest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer closeStore(st)

		if _, err := st.GetCompany(ctx, eventsCompanyID); err != nil {
			return err
		}
		events, err := st.ListEvents(ctx, eventsCompanyID)
		if err != nil {
			return err
		}
		if events == nil {
			events = []model.EventLogEntry{}
		}
		return printJSON(cmd, events)
	},
}

var (
	statusCompanyID string
	statusValue     string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Move a company to a new pipeline status",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer closeStore(st)

		p := pipeline.New(st, audit.NewRecorder(st), nil)
		if err := p.ChangeStatus(ctx, statusCompanyID, model.Status(statusValue)); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", statusCompanyID, statusValue)
		return nil
	},
}

var deleteCompanyID string

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a company with its raw records and events",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer closeStore(st)

		p := pipeline.New(st, audit.NewRecorder(st), nil)
		if err := p.Delete(ctx, deleteCompanyID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", deleteCompanyID)
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore(st)
		fmt.Fprintf(cmd.OutOrStdout(), "schema up to date (%s)\n", cfg.Store.Driver)
		return nil
	},
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(v), "write output")
}

func init() {
	companiesCmd.Flags().StringVar(&companiesStatus, "status", "", "only companies with this status")
	companiesCmd.Flags().StringVar(&companiesScored, "scored", "", "true for scored companies, false for unscored")
	companiesCmd.Flags().IntVar(&companiesMinScore, "min-score", 0, "minimum lead score")
	companiesCmd.Flags().IntVar(&companiesLimit, "limit", 50, "max companies to list")
	companiesCmd.Flags().IntVar(&companiesOffset, "offset", 0, "companies to skip")
	rootCmd.AddCommand(companiesCmd)

	eventsCmd.Flags().StringVar(&eventsCompanyID, "company-id", "", "company ID")
	_ = eventsCmd.MarkFlagRequired("company-id")
	rootCmd.AddCommand(eventsCmd)

	statusCmd.Flags().StringVar(&statusCompanyID, "company-id", "", "company ID")
	statusCmd.Flags().StringVar(&statusValue, "status", "", "new status: new, contacted, qualified, opportunity or dead")
	_ = statusCmd.MarkFlagRequired("company-id")
	_ = statusCmd.MarkFlagRequired("status")
	rootCmd.AddCommand(statusCmd)

	deleteCmd.Flags().StringVar(&deleteCompanyID, "company-id", "", "company ID")
	_ = deleteCmd.MarkFlagRequired("company-id")
	rootCmd.AddCommand(deleteCmd)

	rootCmd.AddCommand(migrateCmd)
}
