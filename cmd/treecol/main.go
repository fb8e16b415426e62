// Command treecol inspects fixture images: it lists the schema records a
// file carries and dumps column entry ranges.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	flagVerbose bool
	flagWorkers int
	flagCache   int
)

func main() {
	root := &cobra.Command{
		Use:           "treecol",
		Short:         "inspect columnar fixture files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	root.AddCommand(newSchemaCommand(), newReadCommand())
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "treecol: %s\n", err)
		os.Exit(1)
	}
}

func newLogger() (*zap.Logger, error) {
	if !flagVerbose {
		return zap.NewNop(), nil
	}
	cfg := zap.NewDevelopmentConfig()
	return cfg.Build()
}
