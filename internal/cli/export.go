package cli

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/vity-loop/vity-loop/internal/store"
)

var exportFormat string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the raw analytics event log",
	Long: `Export the recorded analytics events in CSV or JSON format.

Examples:
  vity-loop export --format csv > events.csv
  vity-loop export --format json > events.json`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "csv", "output format (csv or json)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	if exportFormat != "csv" && exportFormat != "json" {
		return fmt.Errorf("invalid format: must be 'csv' or 'json'")
	}

	return withStore(func(s *store.SQLiteStore) error {
		events, err := s.Events(context.Background())
		if err != nil {
			return fmt.Errorf("failed to get events: %w", err)
		}

		if exportFormat == "csv" {
			return exportCSV(events)
		}
		return exportJSON(events)
	})
}

func exportCSV(events []store.Event) error {
	w := csv.NewWriter(os.Stdout)
	defer w.Flush()

	if err := w.Write([]string{"timestamp", "name", "variant", "properties"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, e := range events {
		props := ""
		if len(e.Properties) > 0 {
			data, err := json.Marshal(e.Properties)
			if err != nil {
				return fmt.Errorf("failed to marshal properties: %w", err)
			}
			props = string(data)
		}

		row := []string{
			strconv.FormatInt(e.CreatedAt.Unix(), 10),
			e.Name,
			string(e.Variant),
			props,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	return nil
}

type jsonExport struct {
	Events []jsonEvent `json:"events"`
}

type jsonEvent struct {
	Timestamp  int64          `json:"timestamp"`
	Name       string         `json:"name"`
	Variant    string         `json:"variant"`
	Properties map[string]any `json:"properties,omitempty"`
}

func exportJSON(events []store.Event) error {
	export := jsonExport{
		Events: make([]jsonEvent, len(events)),
	}

	for i, e := range events {
		export.Events[i] = jsonEvent{
			Timestamp:  e.CreatedAt.Unix(),
			Name:       e.Name,
			Variant:    string(e.Variant),
			Properties: e.Properties,
		}
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}
