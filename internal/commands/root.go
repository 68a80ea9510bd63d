// Package commands wires the ingestion pipeline into the bankfeed CLI.
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"cloud.google.com/go/bigquery"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/finrota/bankfeed/internal/directory"
	"github.com/finrota/bankfeed/internal/faillog"
	"github.com/finrota/bankfeed/internal/logger"
	"github.com/finrota/bankfeed/internal/match"
	"github.com/finrota/bankfeed/internal/pipeline"
	"github.com/finrota/bankfeed/internal/store"
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

// rootFlags are shared by every subcommand.
type rootFlags struct {
	projectID     string
	datasetID     string
	failuresPath  string
	customersPath string
	workers       int
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:     "bankfeed",
		Short:   "Bank transaction ingestion and matching",
		Version: Version,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&flags.projectID, "project", "", "GCP project for the BigQuery store (empty keeps rows in memory)")
	rootCmd.PersistentFlags().StringVar(&flags.datasetID, "dataset", "bankfeed", "BigQuery dataset name")
	rootCmd.PersistentFlags().StringVar(&flags.failuresPath, "failures", "failures.csv", "CSV file for unparseable inputs")
	rootCmd.PersistentFlags().StringVar(&flags.customersPath, "customers", "", "JSON file with the customer directory")
	rootCmd.PersistentFlags().IntVar(&flags.workers, "workers", 4, "concurrent email extraction workers")

	rootCmd.AddCommand(newIngestCommand(flags))
	rootCmd.AddCommand(newMailCommand(flags))
	rootCmd.AddCommand(newMatchCommand(flags))
	rootCmd.AddCommand(newMigrateCommand(flags))

	return rootCmd
}

// buildPipeline assembles the pipeline that every subcommand runs
// against: store, failure log, matcher when a directory is configured.
func buildPipeline(ctx context.Context, flags *rootFlags, log zerolog.Logger) (*pipeline.Pipeline, func(), error) {
	cleanup := func() {}

	var st store.Store
	if flags.projectID != "" {
		client, err := bigquery.NewClient(ctx, flags.projectID)
		if err != nil {
			return nil, nil, fmt.Errorf("creating BigQuery client: %w", err)
		}
		cleanup = func() { _ = client.Close() }
		st = store.NewBigQuery(client, flags.projectID, flags.datasetID)
	} else {
		log.Warn().Msg("no --project set, rows are kept in memory for this run only")
		st = store.NewMemory()
	}

	opts := []pipeline.Option{
		pipeline.WithFailureLog(faillog.New(flags.failuresPath)),
		pipeline.WithEmailWorkers(flags.workers),
	}
	if flags.customersPath != "" {
		dir, err := loadCustomers(flags.customersPath)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		opts = append(opts, pipeline.WithMatcher(match.NewMatcher(dir)))
	}

	return pipeline.New(st, log, opts...), cleanup, nil
}

// loadCustomers reads a JSON array of customers into an in-memory
// directory.
func loadCustomers(path string) (*directory.InMemory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading customer directory %s: %w", path, err)
	}
	var customers []*directory.Customer
	if err := json.Unmarshal(data, &customers); err != nil {
		return nil, fmt.Errorf("decoding customer directory %s: %w", path, err)
	}
	return &directory.InMemory{Customers: customers}, nil
}

func newLogger() zerolog.Logger {
	return logger.New()
}

func printSummary(cmd *cobra.Command, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
}
