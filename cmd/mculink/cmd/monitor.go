package cmd

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/mculink/mculink/link"
	"github.com/mculink/mculink/msd"
	"github.com/mculink/mculink/usbhost"
)

var (
	monitorPort string
	monitorBaud int
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Dump the board's serial output",
	RunE: func(cmd *cobra.Command, args []string) error {
		if monitorPort == "" {
			return errors.New("--port is required")
		}

		host := usbhost.New()
		defer host.Close()

		conn := link.New(host, msd.New(), link.WithAutoConnect(false))
		defer conn.Close()

		conn.OnSerialData(func(bs []byte) {
			os.Stdout.Write(bs)
		})
		conn.OnSerialError(func(err error) {
			fmt.Fprintln(os.Stderr, "serial error:", err)
		})

		if err := conn.OpenSerial(monitorPort, monitorBaud); err != nil {
			return err
		}

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt)
		<-stop
		return nil
	},
}

func init() {
	monitorCmd.Flags().StringVar(&monitorPort, "port", "", "serial port of the board (required)")
	monitorCmd.Flags().IntVar(&monitorBaud, "baud", link.DefaultSerialBaud, "baud rate")
	rootCmd.AddCommand(monitorCmd)
}
