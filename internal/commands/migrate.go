package commands

import (
	"context"
	"fmt"
	"net/http"

	"cloud.google.com/go/bigquery"
	"github.com/spf13/cobra"
	"google.golang.org/api/googleapi"
)

// transactionsSchema mirrors the row type written by the BigQuery
// store.
var transactionsSchema = bigquery.Schema{
	{Name: "transaction_id", Type: bigquery.StringFieldType, Required: true},
	{Name: "content_hash", Type: bigquery.StringFieldType, Required: true},
	{Name: "booking_datetime", Type: bigquery.DateTimeFieldType},
	{Name: "description", Type: bigquery.StringFieldType},
	{Name: "debit", Type: bigquery.NumericFieldType},
	{Name: "credit", Type: bigquery.NumericFieldType},
	{Name: "currency", Type: bigquery.StringFieldType},
	{Name: "balance_after", Type: bigquery.NumericFieldType},
	{Name: "balance_currency", Type: bigquery.StringFieldType},
	{Name: "category", Type: bigquery.StringFieldType},
	{Name: "subcategory", Type: bigquery.StringFieldType},
	{Name: "direction", Type: bigquery.StringFieldType},
	{Name: "counterparty_name", Type: bigquery.StringFieldType},
	{Name: "counterparty_iban", Type: bigquery.StringFieldType},
	{Name: "transaction_type", Type: bigquery.StringFieldType},
	{Name: "confidence", Type: bigquery.FloatFieldType},
	{Name: "anomalies", Type: bigquery.StringFieldType, Repeated: true},
	{Name: "source_raw", Type: bigquery.StringFieldType},
	{Name: "matched_customer_id", Type: bigquery.StringFieldType},
	{Name: "match_confidence", Type: bigquery.FloatFieldType},
	{Name: "created_ts", Type: bigquery.TimestampFieldType},
}

func newMigrateCommand(flags *rootFlags) *cobra.Command {
	var location string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the BigQuery dataset and transactions table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := newLogger()

			if flags.projectID == "" {
				return fmt.Errorf("--project is required")
			}

			client, err := bigquery.NewClient(ctx, flags.projectID)
			if err != nil {
				return fmt.Errorf("creating BigQuery client: %w", err)
			}
			defer client.Close()

			dataset := client.Dataset(flags.datasetID)
			if err := ensureDataset(ctx, dataset, location); err != nil {
				return err
			}
			log.Info().Str("dataset", flags.datasetID).Msg("dataset ready")

			if err := ensureTable(ctx, dataset.Table("transactions")); err != nil {
				return err
			}
			log.Info().Str("table", "transactions").Msg("table ready")
			return nil
		},
	}
	cmd.Flags().StringVar(&location, "location", "EU", "dataset location")
	return cmd
}

func ensureDataset(ctx context.Context, dataset *bigquery.Dataset, location string) error {
	err := dataset.Create(ctx, &bigquery.DatasetMetadata{Location: location})
	if alreadyExists(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("creating dataset %s: %w", dataset.DatasetID, err)
	}
	return nil
}

func ensureTable(ctx context.Context, table *bigquery.Table) error {
	err := table.Create(ctx, &bigquery.TableMetadata{Schema: transactionsSchema})
	if alreadyExists(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("creating table %s: %w", table.TableID, err)
	}
	return nil
}

func alreadyExists(err error) bool {
	if apiErr, ok := err.(*googleapi.Error); ok {
		return apiErr.Code == http.StatusConflict
	}
	return false
}
