package app

import (
	"fmt"

	"github.com/navtools/mfddiag/pkg/collector"
	"github.com/navtools/mfddiag/pkg/config"
	"github.com/navtools/mfddiag/pkg/log"
	"github.com/navtools/mfddiag/pkg/remote"
	"github.com/spf13/cobra"
)

var (
	collectAll bool
	compress   bool
)

var collectCmd = &cobra.Command{
	Use:   "collect [device-name]",
	Short: "Collect crash logs from a device",
	Long: `Collect connects to a device from the inventory, runs the diagnostic
script and pulls the produced crash logs. Devices are processed one at a
time, each over its own session.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		inv, err := config.LoadInventory(inventoryPath)
		if err != nil {
			return err
		}

		var devices []config.Device
		switch {
		case collectAll:
			devices = inv.Devices
		case len(args) == 1:
			device, ok := inv.DeviceByName(args[0])
			if !ok {
				return fmt.Errorf("device %q not found in inventory %s", args[0], inventoryPath)
			}
			devices = []config.Device{*device}
		default:
			return fmt.Errorf("specify a device name or --all")
		}

		var failed int
		for i := range devices {
			if err := collectOne(&devices[i]); err != nil {
				log.Errorf("Collection from %s failed: %v", devices[i].Name, err)
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("collection failed for %d of %d devices", failed, len(devices))
		}
		return nil
	},
}

func collectOne(device *config.Device) error {
	session, err := remote.Dial(device.Host, device.User, device.KeyFile)
	if err != nil {
		return err
	}
	defer func() {
		if err := session.DisconnectAll(); err != nil {
			log.Errorf("Teardown for %s failed: %v", device.Name, err)
		}
	}()

	c, err := collector.New(session, device, collector.Options{
		ScriptName: scriptName,
		ScriptPath: scriptPath,
		LocalDir:   localLogDir,
		Compress:   compress,
	})
	if err != nil {
		return err
	}

	result, err := c.Collect()
	if err != nil {
		return err
	}

	if !result.LogsFound {
		log.Infof("No crash logs on %s", device.Name)
		return nil
	}
	log.Infof("Collected %d crash log files from %s into %s",
		len(result.PulledFiles), device.Name, result.RunDir)
	if result.ArchivePath != "" {
		log.Infof("Archived run to %s", result.ArchivePath)
	}
	return nil
}

func init() {
	collectCmd.Flags().BoolVar(&collectAll, "all", false, "Collect from every device in the inventory")
	collectCmd.Flags().BoolVar(&compress, "compress", true, "Compress the pulled logs to a tar.zst archive")
}
