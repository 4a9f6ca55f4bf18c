package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"healthtrack/internal/app"
	"healthtrack/internal/domain"
)

func newChartCmd() *cobra.Command {
	var (
		unit   string
		format string
	)

	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Show every metric over time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, done, err := openCollection(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			chart, err := app.ProjectIn(c.Records(), unit)
			if err != nil {
				return err
			}

			switch format {
			case "json":
				return outputJSON(cmd.OutOrStdout(), chart)
			case "table":
				outputChartTable(cmd.OutOrStdout(), chart)
				return nil
			default:
				return fmt.Errorf("invalid format: %s (valid values: table, json)", format)
			}
		},
	}

	cmd.Flags().StringVar(&unit, "unit", domain.UnitKg, "Weight unit: kg or lb")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or json")
	return cmd
}

// outputChartTable renders one row per date and one column per series.
func outputChartTable(w io.Writer, chart app.Chart) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := table.Row{"Date"}
	for _, s := range chart.Series {
		label := s.Label
		if s.Unit != "" {
			label += " (" + s.Unit + ")"
		}
		header = append(header, label)
	}
	t.AppendHeader(header)

	for i, date := range chart.Labels {
		row := table.Row{date}
		for _, s := range chart.Series {
			row = append(row, pointCell(s.Points[i]))
		}
		t.AppendRow(row)
	}
	t.Render()
}

func pointCell(p app.Point) string {
	if p.Value == nil {
		return "-"
	}
	return strconv.FormatFloat(*p.Value, 'f', 2, 64)
}
