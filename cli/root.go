package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/GoGoWen/impala/analysis"
	"github.com/GoGoWen/impala/catalog"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

const (
	defParallel = 4
	defLogLevel = "warn"
	defOutput   = "table"
)

// options shared by every command, filled from the persistent flags
type options struct {
	catalogPath   string
	structFormat  string
	noMasking     bool
	expandComplex bool
	logLevel      string
	output        string
	noColor       bool
	parallel      int
}

func (self *options) config() (analysis.Config, error) {
	cfg := analysis.DefaultConfig()
	if self.structFormat != "" {
		ff, err := catalog.ParseFileFormat(self.structFormat)
		if err != nil {
			return cfg, fmt.Errorf("--struct-format: %w", err)
		}
		cfg.StructFileFormat = ff
	}
	cfg.EnableColumnMasking = !self.noMasking
	cfg.ExpandComplexTypes = self.expandComplex
	return cfg, nil
}

func (self *options) logger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(self.logLevel)); err != nil {
		return nil, fmt.Errorf("--log-level: %w", err)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

func (self *options) loadCatalog() (*catalog.Catalog, error) {
	if self.catalogPath == "" {
		return nil, fmt.Errorf("a catalog file must be specified with --catalog")
	}
	cat, err := catalog.LoadFile(self.catalogPath)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return cat, nil
}

// Execute runs the CLI.
func Execute() int {
	return execute(os.Args[1:], os.Stdout, os.Stderr)
}

func execute(args []string, stdout, stderr io.Writer) int {
	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	if err := rootCmd.Execute(); err != nil {
		output, _ := rootCmd.PersistentFlags().GetString("output")
		var qf *queriesFailedError
		if errors.As(err, &qf) && output == "json" {
			return 1
		}
		if output == "json" {
			_ = printJSON(stdout, map[string]string{"error": err.Error()})
		} else {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "impala-analyze",
		Short:         "Column reference analyzer",
		Long:          "Resolves the column references of select statements against a catalog and prints the resulting descriptors.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if err := validateOutputFormat(opts.output); err != nil {
				return err
			}
			if opts.parallel < 1 {
				return fmt.Errorf("--parallel must be at least 1, got %d", opts.parallel)
			}
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.catalogPath, "catalog", "c", "", "YAML catalog description")
	flags.StringVar(&opts.structFormat, "struct-format", "", "File format struct columns can be projected from (default ORC)")
	flags.BoolVar(&opts.noMasking, "no-masking", false, "Ignore column masks of the catalog")
	flags.BoolVar(&opts.expandComplex, "expand-complex", false, "Include struct columns in star expansion")
	flags.StringVar(&opts.logLevel, "log-level", defLogLevel, "Log level (debug, info, warn, error)")
	flags.StringVarP(&opts.output, "output", "o", defOutput, "Output format (table, json)")
	flags.BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	flags.IntVarP(&opts.parallel, "parallel", "p", defParallel, "Maximum number of queries compiled concurrently")

	rootCmd.AddCommand(newAnalyzeCmd(opts))
	rootCmd.AddCommand(newExplainCmd(opts))
	rootCmd.AddCommand(newVersionCmd(opts))
	return rootCmd
}

func validateOutputFormat(output string) error {
	if output != "table" && output != "json" {
		return fmt.Errorf("unsupported output format %q: use 'table' or 'json'", output)
	}
	return nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
