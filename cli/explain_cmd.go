package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/GoGoWen/impala/analysis"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// explainPrinter colors the plain dump of a compilation, section headers and
// keys get a color of their own, values are left untouched.
type explainPrinter struct {
	header *color.Color
	key    *color.Color
	expr   *color.Color
	masked *color.Color
}

func newExplainPrinter(noColor bool) *explainPrinter {
	p := &explainPrinter{
		header: color.New(color.FgCyan, color.Bold),
		key:    color.New(color.FgYellow),
		expr:   color.New(color.FgGreen),
		masked: color.New(color.FgRed),
	}
	if noColor {
		for _, c := range []*color.Color{p.header, p.key, p.expr, p.masked} {
			c.DisableColor()
		}
	} else {
		for _, c := range []*color.Color{p.header, p.key, p.expr, p.masked} {
			c.EnableColor()
		}
	}
	return p
}

func (self *explainPrinter) line(w io.Writer, l string) {
	if strings.HasPrefix(l, "##>") {
		self.header.Fprintln(w, l)
		return
	}
	idx := strings.Index(l, ": ")
	if idx < 0 {
		fmt.Fprintln(w, l)
		return
	}
	k, v := l[:idx], l[idx+2:]
	value := self.expr
	switch {
	case strings.HasPrefix(k, "Slot["):
		value = self.masked
	case !strings.HasPrefix(k, "Expr["):
		value = nil
	}

	self.key.Fprint(w, k+": ")
	if value != nil {
		value.Fprintln(w, v)
	} else {
		fmt.Fprintln(w, v)
	}
}

func (self *explainPrinter) Print(w io.Writer, c *analysis.Compilation) error {
	s := bufio.NewScanner(strings.NewReader(c.Print()))
	for s.Scan() {
		self.line(w, s.Text())
	}
	return s.Err()
}

func newExplainCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "explain <query>",
		Short: "Print the descriptors and expressions of a single query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
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

			c, err := analysis.Compile(query, cat, cfg, logger)
			if err != nil {
				return err
			}
			if opts.output == "json" {
				return printJSON(cmd.OutOrStdout(), newResult(query, c, nil))
			}
			return newExplainPrinter(opts.noColor).Print(cmd.OutOrStdout(), c)
		},
	}
}
