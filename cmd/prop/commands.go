package prop

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ValentinKolb/sysprop/lib/store"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// unknownSerial never matches a real serial, so waiting on it returns as soon as the property exists
const unknownSerial = 0xffffffff

var (
	getCmd = &cobra.Command{
		Use:   "get [name]",
		Short: "Prints the value of a property, or all properties if no name is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return printProperties()
			}
			value, _, err := propStore.Get(args[0])
			if err != nil {
				return err
			}
			// a missing property prints as an empty value
			fmt.Println(value)
			return nil
		},
	}
	setCmd = &cobra.Command{
		Use:   "set [name] [value]",
		Short: "Adds a property or replaces its value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return propStore.Set(args[0], args[1])
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [name]",
		Short: "Deletes a property",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			found, err := propStore.Delete(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("name=%s, found=%t\n", args[0], found)
			return nil
		},
	}
	listCmd = &cobra.Command{
		Use:   "list",
		Short: "Prints all properties with their serials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			props, err := propStore.List()
			if err != nil {
				return err
			}
			for _, p := range props {
				fmt.Printf("%-10d [%s]: [%s]\n", p.Serial, p.Name, p.Value)
			}
			return nil
		},
	}
	waitCmd = &cobra.Command{
		Use:   "wait [name] [serial]",
		Short: "Waits until a property is created or changes",
		Long: `Waits until the property exists and its serial differs from the given one.
Without a serial the current serial of the property is used, so the command
returns with the next change (or the creation of a missing property).
The new serial is printed.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: runWait,
	}
	serialCmd = &cobra.Command{
		Use:   "serial",
		Short: "Prints the global serial, which changes with every property change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			serial, err := propStore.Serial()
			if err != nil {
				return err
			}
			fmt.Println(serial)
			return nil
		},
	}
	infoCmd = &cobra.Command{
		Use:   "info",
		Short: "Prints usage statistics of the property areas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			areas, err := propStore.GetAreaInfo()
			if err != nil {
				return err
			}
			fmt.Print(formatAreaInfo(areas))
			return nil
		},
	}
)

func init() {
	key := "persist-dir"
	setCmd.Flags().String(key, "", "With --direct: also write persist.* properties to this directory")

	key = "timeout"
	waitCmd.Flags().Duration(key, 0, "How long to wait (0 waits forever)")
}

// printProperties prints all properties in getprop format
func printProperties() error {
	props, err := propStore.List()
	if err != nil {
		return err
	}
	for _, p := range props {
		fmt.Printf("[%s]: [%s]\n", p.Name, p.Value)
	}
	return nil
}

func runWait(_ *cobra.Command, args []string) error {
	name := args[0]

	var old uint32
	if len(args) == 2 {
		serial, err := strconv.ParseUint(args[1], 0, 32)
		if err != nil {
			return fmt.Errorf("serial must be a number: %w", err)
		}
		old = uint32(serial)
	} else {
		current, err := propertySerial(name)
		if err != nil {
			return err
		}
		old = current
	}

	timeout := viper.GetDuration("timeout")
	serial, ok, err := propStore.Wait(name, old, timeout)
	if err != nil {
		return err
	}
	if !ok {
		return store.Errorf(store.RetCTimeout, "%s did not change within %s", name, timeout)
	}
	fmt.Println(serial)
	return nil
}

// propertySerial returns the current serial of name, or unknownSerial if it does not exist
func propertySerial(name string) (uint32, error) {
	props, err := propStore.List()
	if err != nil {
		return 0, err
	}
	for _, p := range props {
		if p.Name == name {
			return p.Serial, nil
		}
	}
	return unknownSerial, nil
}

// formatAreaInfo renders area statistics in the layout used for configurations
func formatAreaInfo(areas []store.AreaInfo) string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	var used, capacity, count int
	for _, a := range areas {
		addSection(a.Context)
		addField("File", a.File)
		addField("Bytes Used", fmt.Sprintf("%d / %d (%.1f%%)", a.BytesUsed, a.Capacity, percent(a.BytesUsed, a.Capacity)))
		addField("Properties", strconv.Itoa(a.Properties))
		addField("Serial", strconv.FormatUint(uint64(a.Serial), 10))
		addField("Value Size Avg", fmt.Sprintf("%d bytes", a.ValueSizes.Average))
		addField("Value Size Median", fmt.Sprintf("%d bytes", a.ValueSizes.Median))
		addField("Value Size P90", fmt.Sprintf("%d bytes", a.ValueSizes.P90))
		addField("Value Size Max", fmt.Sprintf("%d bytes", a.ValueSizes.Max))

		used += int(a.BytesUsed)
		capacity += int(a.Capacity)
		count += a.Properties
	}

	addSection("Total")
	addField("Areas", strconv.Itoa(len(areas)))
	addField("Properties", strconv.Itoa(count))
	addField("Bytes Used", fmt.Sprintf("%d / %d", used, capacity))

	return sb.String()
}

func percent(used, capacity uint32) float64 {
	if capacity == 0 {
		return 0
	}
	return float64(used) * 100 / float64(capacity)
}
