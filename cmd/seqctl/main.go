package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// newRootCmd builds the CLI. Every flag can also be supplied as SEQCTL_<FLAG>, dashes
// replaced by underscores.
func newRootCmd(out io.Writer) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("SEQCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:   "seqctl",
		Short: "Generate Pilates mat classes offline",
		Long: `seqctl runs the class sequencing engine against a movement catalog without any
database or broker. The built-in catalog is used unless --catalog points at a YAML file.
A fixed --seed makes the output reproducible.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)

	root.PersistentFlags().String("catalog", "", "path to a YAML movement catalog (default: built-in)")
	root.PersistentFlags().Bool("json", false, "output JSON")
	_ = v.BindPFlag("catalog", root.PersistentFlags().Lookup("catalog"))
	_ = v.BindPFlag("json", root.PersistentFlags().Lookup("json"))

	root.AddCommand(generateCmd(v))
	root.AddCommand(catalogCmd(v))
	return root
}

func printJSON(out io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(b))
	return err
}
