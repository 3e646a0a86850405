// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cardinalhq/bigtranspose/config"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   config.ServiceName,
	Short: "Transpose delimited files too large to fit in memory",
	Long: `Split a delimited file into (field, line, value) triplets, sort them with an
external sort, then reassemble the sorted triplets into the transposed file.`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(c *cobra.Command, _ []string) error {
		printUsage(c)
		return nil
	},
}

func init() {
	def := config.DefaultConfig()
	pf := rootCmd.PersistentFlags()
	pf.String("delimiter", def.Delimiter, `Field delimiter: a single byte, \t, or one of tab, comma, space, pipe, semicolon`)
	pf.Int("window-size", def.WindowSize, "Read window size in bytes; every value must be shorter than this")
	pf.Bool("progress", def.Progress, "Print percent progress while splitting")

	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetOut(os.Stdout)
	// Bad flags are an invocation we do not understand: show usage, exit 0.
	rootCmd.SetFlagErrorFunc(func(c *cobra.Command, _ error) error {
		printUsage(c)
		return nil
	})
	rootCmd.SetHelpFunc(func(c *cobra.Command, _ []string) {
		printUsage(c)
	})
}

// printUsage describes the two-phase workflow on c's output.
func printUsage(c *cobra.Command) {
	root := c.Root()
	w := c.OutOrStdout()
	name := root.Name()
	fmt.Fprintf(w, "Usage %s i input_file output_file\n", name)
	fmt.Fprintf(w, "Reads in input_file, writes each cell to output_file with a transposed row/column number\n")
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "to sort the resulting output use:  %s output_file -o outputfile.sorted\n", config.SortCommand)
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Usage %s m input_file output_file\n", name)
	fmt.Fprintf(w, "Reads in a sorted file from the previous step and turns it back into a delimited file\n")
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Flags:\n%s", root.PersistentFlags().FlagUsages())
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
// Failures are reported on stdout as a single line.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(rootCmd.OutOrStdout(), err)
		os.Exit(1)
	}
}
