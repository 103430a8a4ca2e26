package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"logistics-dashboard/internal/export"
)

func newViewsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "views [sheet...]",
		Short: "Print the derived views as tables",
		Long: "Print the derived views as tables. Sheet names match the exported workbook: " +
			strings.Join(export.SheetNames(), ", ") + ".",
		RunE: func(cmd *cobra.Command, args []string) error {
			selected, err := selectSheets(args)
			if err != nil {
				return err
			}
			v, err := a.views(cmd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, s := range export.Sheets(v) {
				if selected != nil && !selected[s.Name] {
					continue
				}
				printSheet(out, s)
			}
			return nil
		},
	}
}

// selectSheets maps case-insensitive names onto sheet names. No arguments
// selects everything.
func selectSheets(args []string) (map[string]bool, error) {
	if len(args) == 0 {
		return nil, nil
	}
	known := make(map[string]string)
	for _, name := range export.SheetNames() {
		known[strings.ToLower(name)] = name
	}
	selected := make(map[string]bool, len(args))
	for _, arg := range args {
		name, ok := known[strings.ToLower(arg)]
		if !ok {
			return nil, fmt.Errorf("unknown sheet %q", arg)
		}
		selected[name] = true
	}
	return selected, nil
}

func printSheet(w io.Writer, s export.Sheet) {
	p := message.NewPrinter(language.English)
	fmt.Fprintf(w, "\n%s\n", s.Name)

	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeader(cells(p, s.Header))
	for _, row := range s.Rows {
		table.Append(cells(p, row))
	}
	table.Render()
}

func cells(p *message.Printer, values []any) []string {
	out := make([]string, len(values))
	for i, v := range values {
		switch v := v.(type) {
		case int:
			out[i] = p.Sprintf("%d", v)
		case float64:
			out[i] = p.Sprintf("%.3f", v)
		default:
			out[i] = fmt.Sprint(v)
		}
	}
	return out
}
