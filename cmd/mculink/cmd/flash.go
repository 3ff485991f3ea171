package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/mculink/mculink/boardid"
	"github.com/mculink/mculink/link"
	"github.com/mculink/mculink/msd"
	"github.com/mculink/mculink/usbhost"
)

var (
	flashHexPath string
	flashBinPath string
	flashPartial bool
)

var flashCmd = &cobra.Command{
	Use:   "flash",
	Short: "Flash a firmware image to the connected board",
	Long: `Flash writes the given Intel-HEX image to the board. With --partial
the driver is asked to write only changed regions, using the raw image
as the comparison source; the driver may still fall back to a full
flash when it cannot do so safely.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if flashHexPath == "" {
			return errors.New("--hex is required")
		}
		if flashPartial && flashBinPath == "" {
			return errors.New("--partial requires --bin")
		}

		hexImage, err := os.ReadFile(flashHexPath)
		if err != nil {
			return errors.Wrap(err, "could not read hex image")
		}
		var binImage []byte
		if flashBinPath != "" {
			if binImage, err = os.ReadFile(flashBinPath); err != nil {
				return errors.Wrap(err, "could not read bin image")
			}
		}

		host := usbhost.New()
		defer host.Close()

		conn := link.New(host, msd.New(), link.WithAutoConnect(false))
		defer conn.Close()

		if err := conn.Initialize(cmd.Context()); err != nil {
			return err
		}
		if conn.Status() == link.StatusNotSupported {
			return &link.NotSupportedError{}
		}

		source := func(ctx context.Context, board boardid.BoardID) (link.Payload, error) {
			fmt.Printf("board %s\n", board)
			return link.Payload{Bin: binImage, Hex: string(hexImage)}, nil
		}

		opts := []link.FlashOption{link.WithProgress(printProgress)}
		if flashPartial {
			opts = append(opts, link.WithPartialFlash())
		}

		if err := conn.Flash(cmd.Context(), source, opts...); err != nil {
			return err
		}
		fmt.Println("done")
		return nil
	},
}

func printProgress(percent *int) {
	if percent == nil {
		fmt.Printf("\r100%%\n")
		return
	}
	fmt.Printf("\r%3d%%", *percent)
}

func init() {
	flashCmd.Flags().StringVar(&flashHexPath, "hex", "", "Intel-HEX firmware image (required)")
	flashCmd.Flags().StringVar(&flashBinPath, "bin", "", "raw flash-region bytes for partial flashing")
	flashCmd.Flags().BoolVar(&flashPartial, "partial", false, "write only changed regions")
	rootCmd.AddCommand(flashCmd)
}
