package app

import (
	"fmt"

	"github.com/navtools/mfddiag/pkg/config"
	"github.com/spf13/cobra"
)

var hostsCmd = &cobra.Command{
	Use:   "hosts",
	Short: "List the devices in the inventory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		inv, err := config.LoadInventory(inventoryPath)
		if err != nil {
			return err
		}

		if len(inv.Devices) == 0 {
			fmt.Println("No devices in inventory")
			return nil
		}

		fmt.Printf("%-20s %-10s %-16s %-16s %s\n", "NAME", "MODEL", "SERIAL", "HOST", "USER")
		for _, d := range inv.Devices {
			fmt.Printf("%-20s %-10s %-16s %-16s %s\n", d.Name, d.Model, d.SerialNumber, d.Host, d.User)
		}
		return nil
	},
}
