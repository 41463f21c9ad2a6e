package serve

import (
	"fmt"
	"strings"

	cmdUtil "github.com/ValentinKolb/sysprop/cmd/util"
	"github.com/ValentinKolb/sysprop/lib/prop/area"
	"github.com/ValentinKolb/sysprop/lib/store/lstore"
	"github.com/ValentinKolb/sysprop/rpc/common"
	"github.com/ValentinKolb/sysprop/rpc/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:   "serve",
		Short: "Start the property service",
		Long: `Creates the property areas and starts the property service, the single writer
of the property areas. Clients read the areas directly and send changes to the
service. The configuration can be set via command line flags or environment
variables. The format of the environment variables is SYSPROP_<flag>
(e.g. SYSPROP_PROPERTIES_DIR=/tmp/__properties__)`,
		Args:    cobra.NoArgs,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(cmdUtil.InitConfig)

	// add flags
	key := "properties-dir"
	ServeCmd.PersistentFlags().String(key, lstore.DefaultPath, cmdUtil.WrapString("The directory in which the property areas are created. It must not contain areas of a previous run"))

	key = "area-size"
	ServeCmd.PersistentFlags().Int(key, area.DefaultSize, cmdUtil.WrapString("The size in bytes of every property area"))

	key = "context-files"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Comma-separated list of property_contexts files. Defaults to the files of the running system"))

	key = "serialize"
	ServeCmd.PersistentFlags().Bool(key, false, cmdUtil.WrapString("Compile the property_contexts into a property_info index next to the areas"))

	key = "require-label"
	ServeCmd.PersistentFlags().Bool(key, false, cmdUtil.WrapString("Abort if an area file could not be labelled with its SELinux context"))

	key = "require-root-owner"
	ServeCmd.PersistentFlags().Bool(key, false, cmdUtil.WrapString("Refuse area files not owned by root or writable by others"))

	key = "prune-on-delete"
	ServeCmd.PersistentFlags().Bool(key, false, cmdUtil.WrapString("Detach trie nodes left without properties when a property is deleted"))

	key = "persist-dir"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Directory in which persist.* properties are stored. Empty disables persistence"))

	key = "load-persistent"
	ServeCmd.PersistentFlags().Bool(key, true, cmdUtil.WrapString("Restore the persist.* properties from --persist-dir at start-up"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int64(key, 5, cmdUtil.WrapString("Timeout in seconds for writing a response"))

	key = "workers-per-conn"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("Requests handled in parallel per connection (0 uses the transport default, ignored for http)"))

	key = "endpoint"
	ServeCmd.PersistentFlags().String(key, common.DefaultSocket, cmdUtil.WrapString("The address on which the service will listen (a socket path for unix, host:port for http)"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	props := lstore.DefaultConfig()
	props.Path = viper.GetString("properties-dir")
	props.AreaSize = viper.GetInt("area-size")
	props.Serialize = viper.GetBool("serialize")
	props.RequireRootOwner = viper.GetBool("require-root-owner")
	props.PruneOnDelete = viper.GetBool("prune-on-delete")
	props.PersistDir = viper.GetString("persist-dir")
	for _, f := range strings.Split(viper.GetString("context-files"), ",") {
		if f = strings.TrimSpace(f); f != "" {
			props.ContextFiles = append(props.ContextFiles, f)
		}
	}

	// read the configuration from the command line flags and environment variables
	serveCmdConfig.Properties = props
	serveCmdConfig.RequireLabel = viper.GetBool("require-label")
	serveCmdConfig.LoadPersistent = viper.GetBool("load-persistent") && props.PersistDir != ""
	serveCmdConfig.TimeoutSecond = viper.GetInt64("timeout")
	serveCmdConfig.WorkersPerConn = viper.GetInt("workers-per-conn")
	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.LogLevel = viper.GetString("log-level")

	if !common.ValidLogLevel(serveCmdConfig.LogLevel) {
		return fmt.Errorf("invalid log level %s (expected one of debug, info, warn, error)", serveCmdConfig.LogLevel)
	}

	return nil
}

// run starts the property service and blocks until it is stopped by a signal
func run(_ *cobra.Command, _ []string) error {

	// parse the serializer
	s, err := cmdUtil.GetSerializer()
	if err != nil {
		return err
	}

	// Parse the transport
	t, err := cmdUtil.GetServerTransport()
	if err != nil {
		return err
	}

	serv := server.NewRPCServer(
		*serveCmdConfig,
		t,
		s,
	)

	return serv.ServeUntilSignal()
}
