package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"kratio/internal/version"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// flagOnly lists flags that never become settings overrides.
var flagOnly = map[string]bool{
	"config":  true,
	"version": true,
	"help":    true,
}

func run(args []string, app *application) int {
	root := newRootCommand(app)
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	if err != nil {
		fmt.Fprintf(app.stderr, "kratio: %v\n", err)
	}
	return exitCodeFor(err)
}

func newRootCommand(app *application) *cobra.Command {
	var configPath string
	var showVersion bool

	cmd := &cobra.Command{
		Use:   "kratio PATH",
		Short: "Keyword and noun phrase density analysis for text files",
		Long: `kratio counts lemmatized keywords or noun phrases in a text file, or in every
supported file below a directory, and reports each unit's frequency and
density. With --watch it re-analyzes files as they change.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				return nil
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				_, err := fmt.Fprintln(app.stdout, version.Get().String())
				return err
			}
			overrides := changedSettings(cmd.Flags())
			settings, err := loadSettings(configPath, cmd.Flags().Changed("config"), overrides, app.lookupEnv)
			if err != nil {
				return err
			}
			return app.execute(cmd.Context(), settings, args[0])
		},
	}
	cmd.SetOut(app.stdout)
	cmd.SetErr(app.stderr)

	flags := cmd.Flags()
	flags.SetNormalizeFunc(normalizeFlagName)
	flags.String("analysis-type", "word", "unit to count: word or phrase (noun chunks)")
	flags.Int("top-n", 10, "number of top units to display and plot")
	flags.String("output", "", "write the full table to FILE (.csv, .json or .pb)")
	flags.String("save-plot", "", "save a bar chart of the top units to FILE (.png or .svg)")
	flags.Bool("no-visualization", false, "skip plot export")
	flags.String("format", "", "console format: table, json or csv (default: table on a terminal, json otherwise)")
	flags.Bool("silent", false, "suppress console logging")
	flags.Bool("debug", false, "enable debug logging")
	flags.Bool("watch", false, "re-analyze PATH whenever a supported file changes")
	flags.String("serve", "", "in watch mode, stream results over HTTP on ADDR (e.g. 127.0.0.1:8090)")
	flags.String("extensions", ".txt,.md,.py,.html,.js", "comma separated file extensions to analyze")
	flags.Int("workers", 4, "concurrent analyses in directory mode")
	flags.Duration("debounce", 100*time.Millisecond, "minimum interval between re-analyses in watch mode")
	flags.Int("cache-size", 64, "number of analyzed documents to memoize; 0 disables the cache")
	flags.String("log-file", "logs/kratio.log", "rotated log file; empty disables file logging")
	flags.StringVar(&configPath, "config", "", "settings file (default ./kratio.yaml when present)")
	flags.BoolVar(&showVersion, "version", false, "print version information and exit")
	return cmd
}

// normalizeFlagName accepts the underscore spellings, e.g. --top_n.
func normalizeFlagName(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

// changedSettings returns the flags set on the command line, by setting key.
func changedSettings(flags *pflag.FlagSet) map[string]string {
	overrides := map[string]string{}
	flags.Visit(func(flag *pflag.Flag) {
		if flagOnly[flag.Name] {
			return
		}
		overrides[flag.Name] = flag.Value.String()
	})
	return overrides
}
