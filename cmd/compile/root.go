package compile

import (
	"fmt"

	cmdUtil "github.com/ValentinKolb/sysprop/cmd/util"
	"github.com/ValentinKolb/sysprop/lib/prop/contexts"
	"github.com/spf13/cobra"
)

var (
	compileOutput string

	// CompileCmd compiles property_contexts files into the index read in serialized mode
	CompileCmd = &cobra.Command{
		Use:   "compile [property_contexts...]",
		Short: "Compile property_contexts files into a property_info index",
		Long: `Parses the given property_contexts files and writes the compiled routing
table. Placed next to the property areas as property_info, it is used instead
of parsing the property_contexts files when the areas are opened.`,
		Args: cobra.MinimumNArgs(1),
		RunE: run,
	}
)

func init() {
	CompileCmd.Flags().StringVarP(&compileOutput, "output", "o", contexts.IndexFileName, cmdUtil.WrapString("Path of the compiled index"))
}

func run(_ *cobra.Command, args []string) error {
	table, err := contexts.Compile(args, compileOutput)
	if err != nil {
		return fmt.Errorf("failed to compile %v: %w", args, err)
	}
	fmt.Printf("compiled %d entries for %d contexts to %s\n", len(table.Entries), len(table.Contexts), compileOutput)
	return nil
}
