package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"synthlab/internal/domain"
	"synthlab/pkg/client"
)

func newDatasetsCmd(c *client.Client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "datasets",
		Short: "Manage dataset projects",
	}

	cmd.AddCommand(newDatasetsListCmd(c))
	cmd.AddCommand(newDatasetsCreateCmd(c))
	cmd.AddCommand(newDatasetsGetCmd(c))
	cmd.AddCommand(newDatasetsDeleteCmd(c))

	return cmd
}

func newDatasetsListCmd(c *client.Client) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List dataset projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			datasets, err := c.ListDatasets(cmd.Context())
			if err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(os.Stdout, datasets)
			}
			rows := make([][]string, 0, len(datasets))
			for _, d := range datasets {
				cron := "-"
				if d.RefreshCron != nil {
					cron = *d.RefreshCron
				}
				rows = append(rows, []string{d.Name, d.SourceTable, cron, d.UpdatedAt.Format("2006-01-02 15:04:05")})
			}
			printTable(os.Stdout, []string{"NAME", "SOURCE TABLE", "REFRESH", "UPDATED"}, rows)
			return nil
		},
	}
}

func newDatasetsCreateCmd(c *client.Client) *cobra.Command {
	var (
		description string
		sourceTable string
		refreshCron string
	)

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a dataset project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := domain.CreateDatasetRequest{
				Name:        args[0],
				Description: description,
				SourceTable: sourceTable,
			}
			if refreshCron != "" {
				req.RefreshCron = &refreshCron
			}
			ds, err := c.CreateDataset(cmd.Context(), req)
			if err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(os.Stdout, ds)
			}
			fmt.Fprintf(os.Stdout, "Created dataset %q (source table %s)\n", ds.Name, ds.SourceTable)
			return nil
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "Dataset description")
	cmd.Flags().StringVar(&sourceTable, "source-table", "", "Backing source table (required)")
	cmd.Flags().StringVar(&refreshCron, "refresh-cron", "", "Cron schedule for automatic refresh")
	_ = cmd.MarkFlagRequired("source-table")

	return cmd
}

func newDatasetsGetCmd(c *client.Client) *cobra.Command {
	return &cobra.Command{
		Use:   "get <name>",
		Short: "Show a dataset project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := c.GetDataset(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(os.Stdout, ds)
			}
			fmt.Fprintf(os.Stdout, "Name:         %s\n", ds.Name)
			fmt.Fprintf(os.Stdout, "Source table: %s\n", ds.SourceTable)
			if ds.Description != "" {
				fmt.Fprintf(os.Stdout, "Description:  %s\n", ds.Description)
			}
			if ds.RefreshCron != nil {
				fmt.Fprintf(os.Stdout, "Refresh cron: %s\n", *ds.RefreshCron)
			}
			if ds.LastPreviewAt != nil {
				fmt.Fprintf(os.Stdout, "Last preview: %s\n", ds.LastPreviewAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}

func newDatasetsDeleteCmd(c *client.Client) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a dataset project and its pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to delete %q without --yes", args[0])
			}
			if err := c.DeleteDataset(cmd.Context(), args[0]); err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return printJSON(os.Stdout, map[string]string{"status": "deleted", "dataset": args[0]})
			}
			fmt.Fprintf(os.Stdout, "Deleted dataset %q\n", args[0])
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deletion")

	return cmd
}
