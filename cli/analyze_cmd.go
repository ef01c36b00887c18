package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/GoGoWen/impala/analysis"
	"github.com/GoGoWen/impala/catalog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// queriesFailedError is returned once every result has been printed, the
// errors themselves are part of the output.
type queriesFailedError struct {
	failed int
	total  int
}

func (e *queriesFailedError) Error() string {
	return fmt.Sprintf("%d of %d queries failed", e.failed, e.total)
}

type result struct {
	Query       string                        `json:"query"`
	QueryId     string                        `json:"query_id,omitempty"`
	Error       string                        `json:"error,omitempty"`
	Columns     []string                      `json:"columns,omitempty"`
	Select      []analysis.WireExpr           `json:"select_exprs,omitempty"`
	Sort        []analysis.WireExpr           `json:"sort_exprs,omitempty"`
	DescTbl     *analysis.WireDescriptorTable `json:"descriptor_table,omitempty"`
	MaskedSlots []analysis.MaskedSlot         `json:"masked_slots,omitempty"`

	comp *analysis.Compilation
}

func newResult(query string, c *analysis.Compilation, err error) result {
	if err != nil {
		return result{Query: query, Error: err.Error()}
	}
	return result{
		Query:       query,
		QueryId:     c.QueryId,
		Columns:     c.ColumnLabels,
		Select:      c.SelectWire,
		Sort:        c.SortWire,
		DescTbl:     &c.Wire,
		MaskedSlots: c.MaskedSlots,
		comp:        c,
	}
}

// splitQueries splits a script into statements on ';'
func splitQueries(script string) []string {
	out := []string{}
	for _, q := range strings.Split(script, ";") {
		if q = strings.TrimSpace(q); q != "" {
			out = append(out, q)
		}
	}
	return out
}

func collectQueries(args []string, file string) ([]string, error) {
	out := []string{}
	for _, a := range args {
		if q := strings.TrimSpace(a); q != "" {
			out = append(out, q)
		}
	}
	if file != "" {
		data, err := os.ReadFile(file) //nolint:gosec // reading user-specified query file
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", file, err)
		}
		out = append(out, splitQueries(string(data))...)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no query to analyze, pass queries as arguments or with --file")
	}
	return out, nil
}

// compileAll compiles every query with at most parallel compilations running
// at once. A failing query does not stop the others, its error is part of its
// result.
func compileAll(
	ctx context.Context,
	queries []string,
	cat *catalog.Catalog,
	cfg analysis.Config,
	logger *slog.Logger,
	parallel int,
) ([]result, error) {
	results := make([]result, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)

	for i := range queries {
		idx := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			c, err := analysis.Compile(queries[idx], cat, cfg, logger)
			if err != nil {
				logger.Warn("query failed", "index", idx, "error", err)
			}
			results[idx] = newResult(queries[idx], c, err)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("compile queries: %w", err)
	}
	return results, nil
}

func printResultTable(w io.Writer, results []result) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSTATUS\tCOLUMNS\tSLOTS\tTUPLES\tMASKED\tQUERY")
	for idx, r := range results {
		query := strings.Join(strings.Fields(r.Query), " ")
		if r.comp == nil {
			fmt.Fprintf(tw, "%d\tERROR\t-\t-\t-\t-\t%s\n", idx, query)
			continue
		}
		fmt.Fprintf(tw, "%d\tOK\t%s\t%d\t%d\t%d\t%s\n",
			idx,
			strings.Join(r.Columns, ","),
			len(r.DescTbl.Slots),
			len(r.DescTbl.Tuples),
			len(r.MaskedSlots),
			query,
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for idx, r := range results {
		if r.Error != "" {
			fmt.Fprintf(w, "\n[%d] %s\n", idx, r.Error)
		}
	}
	return nil
}

func newAnalyzeCmd(opts *options) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "analyze [query...]",
		Short: "Analyze select statements against the catalog",
		Example: `  impala-analyze -c catalog.yaml analyze "select id, s from orc_t order by id"
  impala-analyze -c catalog.yaml analyze --file queries.sql -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			queries, err := collectQueries(args, file)
			if err != nil {
				return err
			}
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			logger, err := opts.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			cat, err := opts.loadCatalog()
			if err != nil {
				return err
			}

			results, err := compileAll(cmd.Context(), queries, cat, cfg, logger, opts.parallel)
			if err != nil {
				return err
			}

			if opts.output == "json" {
				err = printJSON(cmd.OutOrStdout(), results)
			} else {
				err = printResultTable(cmd.OutOrStdout(), results)
			}
			if err != nil {
				return err
			}

			failed := 0
			for _, r := range results {
				if r.Error != "" {
					failed++
				}
			}
			if failed > 0 {
				return &queriesFailedError{failed: failed, total: len(results)}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Read ';' separated queries from a file")
	return cmd
}
