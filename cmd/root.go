package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/sysprop/cmd/compile"
	"github.com/ValentinKolb/sysprop/cmd/prop"
	"github.com/ValentinKolb/sysprop/cmd/serve"
	"github.com/ValentinKolb/sysprop/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "1.0.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "sysprop",
		Short: "shared-memory system property store",
		Long: fmt.Sprintf(`sysprop (v%s)

A system property store for a single host. Properties live in memory mapped
areas that every process reads without locks or system calls, while a single
property service applies all changes.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of sysprop",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("sysprop v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(compile.CompileCmd)
	RootCmd.AddCommand(prop.Commands...)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "serializer"
	RootCmd.PersistentFlags().String(key, "binary", util.WrapString("serializer to use (json, gob, binary)"))
	key = "transport"
	RootCmd.PersistentFlags().String(key, "unix", util.WrapString("transport to use (unix, http)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
