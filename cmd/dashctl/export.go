package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"logistics-dashboard/internal/export"
)

func newExportCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the derived views to an Excel workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := a.views(cmd)
			if err != nil {
				return err
			}

			f, err := export.Workbook(v)
			if err != nil {
				return err
			}
			defer f.Close()
			if err := f.SaveAs(output); err != nil {
				return fmt.Errorf("save %s: %w", output, err)
			}

			a.logger.Info("workbook written", "path", output, "order_lines", v.FilteredOrderLineCount)
			fmt.Fprintln(cmd.OutOrStdout(), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "dashboard.xlsx", "Workbook path")
	return cmd
}
