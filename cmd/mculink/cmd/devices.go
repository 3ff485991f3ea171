package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mculink/mculink/link"
	"github.com/mculink/mculink/usbhost"
)

var devicesAll bool

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List attached USB devices and which ones match the board filters",
	RunE: func(cmd *cobra.Command, args []string) error {
		host := usbhost.New()
		defer host.Close()

		if !host.Available() {
			return &link.NotSupportedError{}
		}

		devs, err := host.AuthorizedDevices(cmd.Context())
		if err != nil {
			return err
		}

		filters := link.DefaultFilters()
		shown := 0
		for _, d := range devs {
			matched := link.Matches(d, filters)
			if !matched && !devicesAll {
				continue
			}
			mark := " "
			if matched {
				mark = "*"
			}
			fmt.Printf("%s %04x:%04x  %s\n", mark, d.VendorID, d.ProductID, d.Path)
			shown++
		}

		if shown == 0 {
			fmt.Println("No matching devices attached.")
		}
		return nil
	},
}

func init() {
	devicesCmd.Flags().BoolVarP(&devicesAll, "all", "a", false, "list every attached device, not just matches")
	rootCmd.AddCommand(devicesCmd)
}
