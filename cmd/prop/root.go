package prop

import (
	"github.com/ValentinKolb/sysprop/cmd/util"
	"github.com/ValentinKolb/sysprop/lib/store"
	"github.com/ValentinKolb/sysprop/lib/store/lstore"
	"github.com/ValentinKolb/sysprop/rpc/client"
	"github.com/ValentinKolb/sysprop/rpc/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// propStore is either the rpc client or the in-process mapping (--direct)
	propStore  store.IStore
	closeStore func() error

	// Commands lists the property commands added to the root command
	Commands = []*cobra.Command{getCmd, setCmd, delCmd, listCmd, waitCmd, serialCmd, infoCmd, perfTestCmd}

	// commands which modify properties need a writable mapping with --direct
	writingCommands = map[*cobra.Command]bool{setCmd: true, delCmd: true, perfTestCmd: true}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	for _, c := range Commands {
		// Add common flags to each property command
		util.SetupRPCClientFlags(c)
		util.SetupLocalFlags(c)

		c.PersistentPreRunE = setupStore
		c.PersistentPostRunE = teardownStore
	}
}

// setupStore connects to the property service or maps the areas in-process
func setupStore(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}
	common.InitLoggers(viper.GetString("log-level"))

	if viper.GetBool("direct") {
		config := util.GetLocalConfig(writingCommands[cmd])
		if cmd == setCmd && viper.GetString("persist-dir") != "" {
			config.PersistDir = viper.GetString("persist-dir")
		}
		local, err := lstore.Open(config)
		if err != nil {
			return err
		}
		propStore = local
		closeStore = func() error {
			local.FlushPersistent()
			return local.Close()
		}
		return nil
	}

	// Get serializer and transport
	s, err := util.GetSerializer()
	if err != nil {
		return err
	}

	t, err := util.GetTransport()
	if err != nil {
		return err
	}

	// Create the property service client
	propStore, err = client.NewRPCStore(
		*util.GetClientConfig(),
		t,
		s,
	)
	closeStore = t.Close

	return err
}

func teardownStore(_ *cobra.Command, _ []string) error {
	if closeStore == nil {
		return nil
	}
	return closeStore()
}
