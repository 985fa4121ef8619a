// Package preview materializes recipe pipelines against DuckDB to produce
// bounded sample output.
package preview

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"synthlab/internal/domain"
)

// Engine compiles a dataset's step pipeline into a single chained-CTE query
// and executes it against DuckDB. Each step becomes one CTE reading from the
// previous step's CTE, so the query evaluates the pipeline left to right
// exactly as the recipe orders it.
type Engine struct {
	db       *sql.DB
	logger   *slog.Logger
	rowLimit int
}

// NewEngine creates a preview Engine. rowLimit caps the rows a preview
// returns (0 means the default of 200).
func NewEngine(db *sql.DB, logger *slog.Logger, rowLimit int) *Engine {
	if rowLimit <= 0 {
		rowLimit = 200
	}
	return &Engine{
		db:       db,
		logger:   logger.With("component", "preview_engine"),
		rowLimit: rowLimit,
	}
}

// Materialize runs the pipeline against the dataset's source table and
// returns rows of the final relation. A requested rowLimit is honored up to
// the engine's configured cap (0 means "use the cap"); a non-empty columns
// list projects just those columns in the final SELECT. An empty pipeline
// previews the source table unchanged.
func (e *Engine) Materialize(ctx context.Context, dataset *domain.Dataset, steps []domain.Step, rowLimit int, columns []string) (*domain.PreviewResult, error) {
	query, err := e.compile(dataset.SourceTable, steps, columns)
	if err != nil {
		return nil, err
	}

	limit := e.rowLimit
	if rowLimit > 0 && rowLimit < e.rowLimit {
		limit = rowLimit
	}

	e.logger.Debug("materializing preview",
		"dataset", dataset.Name, "steps", len(steps), "row_limit", limit)

	rows, err := e.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, domain.ErrValidation("preview failed: %v", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("preview columns: %w", err)
	}

	result := &domain.PreviewResult{Columns: cols}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("preview scan: %w", err)
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			row[c] = values[i]
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("preview rows: %w", err)
	}
	return result, nil
}

// compile builds the chained-CTE SQL. A step that redefines a column another
// step already produced uses REPLACE so the relation keeps one column of
// that name, the later definition winning.
func (e *Engine) compile(sourceTable string, steps []domain.Step, columns []string) (string, error) {
	if sourceTable == "" {
		return "", domain.ErrValidation("dataset has no source table")
	}

	prev := quoteIdent(sourceTable)
	if len(steps) == 0 {
		return fmt.Sprintf("SELECT %s FROM %s LIMIT ?", projection(columns), prev), nil
	}

	var b strings.Builder
	b.WriteString("WITH ")
	produced := make(map[string]bool, len(steps))
	for i, s := range steps {
		if s.Expression == "" {
			return "", domain.ErrValidation("step %s has no expression", s.ID)
		}
		cte := fmt.Sprintf("step_%d", i)
		if i > 0 {
			b.WriteString(", ")
		}
		if produced[s.OutputColumn] {
			fmt.Fprintf(&b, "%s AS (SELECT * REPLACE ((%s) AS %s) FROM %s)",
				cte, s.Expression, quoteIdent(s.OutputColumn), prev)
		} else {
			fmt.Fprintf(&b, "%s AS (SELECT *, (%s) AS %s FROM %s)",
				cte, s.Expression, quoteIdent(s.OutputColumn), prev)
		}
		produced[s.OutputColumn] = true
		prev = cte
	}
	fmt.Fprintf(&b, " SELECT %s FROM %s LIMIT ?", projection(columns), prev)
	return b.String(), nil
}

// projection renders the final SELECT list: the named columns, quoted, or *.
func projection(columns []string) string {
	if len(columns) == 0 {
		return "*"
	}
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quoteIdent(c)
	}
	return strings.Join(quoted, ", ")
}

// quoteIdent unconditionally double-quotes an identifier.
func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
