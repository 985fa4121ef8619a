package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"synthlab/internal/domain"
	"synthlab/internal/recipe"
	"synthlab/pkg/client"
)

func newStepsCmd(c *client.Client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "steps",
		Short: "Manage pipeline steps",
	}

	cmd.AddCommand(newStepsListCmd(c))
	cmd.AddCommand(newStepsAddCmd(c))
	cmd.AddCommand(newStepsMoveCmd(c))
	cmd.AddCommand(newStepsDropCmd(c))
	cmd.AddCommand(newStepsDeleteCmd(c))

	return cmd
}

// cliLogger discards by default so command output stays clean.
func cliLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// loadModel fetches the current snapshot and builds the local recipe model
// the reorder and delete engines operate on.
func loadModel(cmd *cobra.Command, c *client.Client, dataset string) (*recipe.Model, error) {
	snap, err := c.ListSteps(cmd.Context(), dataset)
	if err != nil {
		return nil, err
	}
	model := recipe.NewModel()
	model.Refresh(snap)
	return model, nil
}

func printSnapshot(cmd *cobra.Command, snap *domain.StepSnapshot) error {
	if getOutputFormat(cmd) == "json" {
		return printJSON(os.Stdout, snap)
	}
	inputs := make(map[string][]string, len(snap.Lineage))
	for _, e := range snap.Lineage {
		inputs[e.StepID] = e.Inputs
	}
	rows := make([][]string, 0, len(snap.Steps))
	for _, s := range snap.Steps {
		rows = append(rows, []string{
			strconv.Itoa(s.Order),
			s.ID,
			s.Kind,
			s.OutputColumn,
			strings.Join(inputs[s.ID], ","),
			s.Expression,
		})
	}
	printTable(os.Stdout, []string{"#", "ID", "KIND", "OUTPUT", "INPUTS", "EXPRESSION"}, rows)
	fmt.Fprintf(os.Stdout, "\nPipeline version: %s\n", snap.Version)
	return nil
}

func newStepsListCmd(c *client.Client) *cobra.Command {
	return &cobra.Command{
		Use:   "list <dataset>",
		Short: "Show the pipeline steps for a dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := c.ListSteps(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printSnapshot(cmd, snap)
		},
	}
}

func newStepsAddCmd(c *client.Client) *cobra.Command {
	var (
		kind       string
		output     string
		expression string
		inputs     []string
		params     []string
	)

	cmd := &cobra.Command{
		Use:   "add <dataset>",
		Short: "Append a step to a dataset's pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := make(map[string]string, len(params))
			for _, kv := range params {
				k, v, ok := strings.Cut(kv, "=")
				if !ok {
					return fmt.Errorf("invalid --param %q: expected key=value", kv)
				}
				p[k] = v
			}
			snap, err := c.AddStep(cmd.Context(), args[0], domain.CreateStepRequest{
				Kind:         kind,
				OutputColumn: output,
				Expression:   expression,
				Inputs:       inputs,
				Params:       p,
			})
			if err != nil {
				return err
			}
			return printSnapshot(cmd, snap)
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "Step kind, e.g. derive, noise, mask (required)")
	cmd.Flags().StringVar(&output, "output-column", "", "Column the step writes (required)")
	cmd.Flags().StringVar(&expression, "expression", "", "SQL expression computing the column (required)")
	cmd.Flags().StringSliceVar(&inputs, "input", nil, "Input column the expression reads (repeatable)")
	cmd.Flags().StringSliceVar(&params, "param", nil, "Additional key=value step parameter (repeatable)")
	_ = cmd.MarkFlagRequired("kind")
	_ = cmd.MarkFlagRequired("output-column")
	_ = cmd.MarkFlagRequired("expression")

	return cmd
}

func newStepsMoveCmd(c *client.Client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "move <dataset> <step-id> <up|down>",
		Short: "Move a step one position up or down",
		Long: "Moves a step one position in the pipeline. The move is checked " +
			"against column lineage before submission; a move that would put a " +
			"reader before its producer is rejected locally.",
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var dir recipe.Direction
			switch args[2] {
			case "up":
				dir = recipe.MoveUp
			case "down":
				dir = recipe.MoveDown
			default:
				return fmt.Errorf("direction must be 'up' or 'down', got %q", args[2])
			}

			model, err := loadModel(cmd, c, args[0])
			if err != nil {
				return err
			}
			reorderer := recipe.NewReorderer(model, c, args[0], cliLogger())
			if err := reorderer.MoveStep(cmd.Context(), args[1], dir); err != nil {
				return err
			}

			snap, err := c.ListSteps(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printSnapshot(cmd, snap)
		},
	}
	return cmd
}

func newStepsDropCmd(c *client.Client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drop <dataset> <step-id> <target-step-id>",
		Short: "Move a step to another step's position",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			model, err := loadModel(cmd, c, args[0])
			if err != nil {
				return err
			}
			reorderer := recipe.NewReorderer(model, c, args[0], cliLogger())
			if err := reorderer.DropStep(cmd.Context(), args[1], args[2]); err != nil {
				return err
			}

			snap, err := c.ListSteps(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printSnapshot(cmd, snap)
		},
	}
	return cmd
}

func newStepsDeleteCmd(c *client.Client) *cobra.Command {
	var cascade bool

	cmd := &cobra.Command{
		Use:   "delete <dataset> <step-id>",
		Short: "Delete a pipeline step",
		Long: "Deletes a step. If downstream steps read the column it produces, " +
			"the delete is refused with the affected step list unless --cascade " +
			"is given, in which case the dependents are removed too.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := c.ListSteps(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			after, err := c.DeleteStep(cmd.Context(), args[0], snap.Version, args[1], cascade)
			if err != nil {
				var dep *domain.DependencyConflictError
				if errors.As(err, &dep) {
					fmt.Fprintf(os.Stderr, "%s\n", dep.Message)
					fmt.Fprintf(os.Stderr, "Affected steps:   %s\n", strings.Join(dep.AffectedStepIDs, ", "))
					fmt.Fprintf(os.Stderr, "Affected columns: %s\n", strings.Join(dep.AffectedColumns, ", "))
					return fmt.Errorf("re-run with --cascade to delete the dependents as well")
				}
				return err
			}
			return printSnapshot(cmd, after)
		},
	}

	cmd.Flags().BoolVar(&cascade, "cascade", false, "Also delete transitively dependent steps")

	return cmd
}
