package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"healthtrack/internal/app"
	"healthtrack/internal/domain"
)

func newRecordsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records",
		Short: "List, add, edit and delete health records",
	}
	cmd.AddCommand(newRecordsListCmd())
	cmd.AddCommand(newRecordsAddCmd())
	cmd.AddCommand(newRecordsEditCmd())
	cmd.AddCommand(newRecordsDeleteCmd())
	return cmd
}

// openCollection loads the single-user collection from the configured store.
func openCollection(ctx context.Context) (*app.Collection, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	b, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	c := app.NewCollection(b.records, app.NewFormState(nil))
	if err := c.Load(ctx, domain.Scope{}); err != nil {
		_ = b.close()
		return nil, nil, err
	}
	return c, func() { _ = b.close() }, nil
}

func newRecordsListCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, done, err := openCollection(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			switch format {
			case "json":
				return outputJSON(cmd.OutOrStdout(), c.Records())
			case "table":
				outputRecordsTable(cmd.OutOrStdout(), c.Records())
				return nil
			default:
				return fmt.Errorf("invalid format: %s (valid values: table, json)", format)
			}
		},
	}

	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or json")
	return cmd
}

func newRecordsAddCmd() *cobra.Command {
	values := map[app.Field]*string{}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a record (date defaults to today)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, done, err := openCollection(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			if err := applyFlags(cmd, c.Form(), values); err != nil {
				return err
			}
			rec, err := c.Submit(cmd.Context())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "added %s (%s)\n", rec.ID, rec.Date)
			return nil
		},
	}

	registerFieldFlags(cmd, values)
	return cmd
}

func newRecordsEditCmd() *cobra.Command {
	values := map[app.Field]*string{}

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change fields of an existing record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, done, err := openCollection(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			if !c.Edit(args[0]) {
				return fmt.Errorf("%w: %s", domain.ErrNotFound, args[0])
			}
			if err := applyFlags(cmd, c.Form(), values); err != nil {
				return err
			}
			rec, err := c.Submit(cmd.Context())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "updated %s (%s)\n", rec.ID, rec.Date)
			return nil
		},
	}

	registerFieldFlags(cmd, values)
	return cmd
}

func newRecordsDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, done, err := openCollection(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			if err := c.Remove(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
	return cmd
}

func flagName(f app.Field) string {
	if f == app.FieldFoodType {
		return "food-type"
	}
	return string(f)
}

func registerFieldFlags(cmd *cobra.Command, values map[app.Field]*string) {
	usage := map[app.Field]string{
		app.FieldDate:     "Date (YYYY-MM-DD)",
		app.FieldWeight:   "Weight in kg",
		app.FieldSleep:    "Sleep in hours",
		app.FieldSport:    "Exercise in minutes",
		app.FieldWater:    "Water in liters",
		app.FieldEnergy:   "Energy level (1-100)",
		app.FieldMood:     "Mood (1-100)",
		app.FieldStress:   "Stress level (1-100)",
		app.FieldFoodType: "Diet: " + joinFoodTypes(),
	}
	for _, f := range app.Fields {
		values[f] = cmd.Flags().String(flagName(f), "", usage[f])
	}
}

// applyFlags copies explicitly set flags into the form, in form order.
func applyFlags(cmd *cobra.Command, form *app.FormState, values map[app.Field]*string) error {
	for _, f := range app.Fields {
		if !cmd.Flags().Changed(flagName(f)) {
			continue
		}
		if err := form.SetField(f, *values[f]); err != nil {
			return err
		}
	}
	return nil
}

func joinFoodTypes() string {
	names := make([]string, len(domain.FoodTypes))
	for i, f := range domain.FoodTypes {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}

func outputJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func outputRecordsTable(w io.Writer, recs []domain.HealthRecord) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Date", "Weight", "Sleep", "Sport", "Water", "Food", "Energy", "Mood", "Stress"})
	for _, r := range recs {
		t.AppendRow(table.Row{
			r.ID, r.Date, cell(r.Weight), cell(r.Sleep), cell(r.Sport), cell(r.Water),
			string(r.FoodType), cell(r.Energy), cell(r.Mood), cell(r.Stress),
		})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d records", len(recs))})
	t.Render()
}

func cell(m domain.Measure) string {
	if !m.Valid {
		return "-"
	}
	return m.String()
}
