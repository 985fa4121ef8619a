package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"synthlab/pkg/client"
)

func newPreviewCmd(c *client.Client) *cobra.Command {
	var (
		rowLimit int
		columns  []string
	)

	cmd := &cobra.Command{
		Use:   "preview <dataset>",
		Short: "Materialize and print a preview of a dataset's pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := c.Materialize(cmd.Context(), args[0], rowLimit, columns)
			if err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(os.Stdout, result)
			}
			rows := make([][]string, 0, len(result.Rows))
			for _, r := range result.Rows {
				row := make([]string, len(result.Columns))
				for i, col := range result.Columns {
					row[i] = formatCell(r[col])
				}
				rows = append(rows, row)
			}
			printTable(os.Stdout, result.Columns, rows)
			fmt.Fprintf(os.Stdout, "\n%d row(s)\n", len(result.Rows))
			return nil
		},
	}

	cmd.Flags().IntVar(&rowLimit, "rows", 0, "Row limit hint (server enforces its own cap)")
	cmd.Flags().StringSliceVar(&columns, "column", nil, "Restrict the preview to the named columns (repeatable)")

	return cmd
}

func formatCell(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprintf("%v", v)
}
