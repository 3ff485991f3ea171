package link

import (
	"syscall"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.bug.st/serial"
)

// DefaultSerialBaud is the rate the board's CDC serial endpoint runs at.
var DefaultSerialBaud = 115200

var ErrSerialOpen = errors.New("serial monitor is already open")

type serialPort = serial.Port

// OpenSerial starts the serial monitor on the given port. Received bytes
// are delivered on the serial-data channel and read failures on the
// serial-error channel. A baud of 0 uses DefaultSerialBaud.
func (c *Conn) OpenSerial(portName string, baud int) error {
	c.serialMu.Lock()
	defer c.serialMu.Unlock()

	if c.serialPort != nil {
		return ErrSerialOpen
	}
	if baud <= 0 {
		baud = DefaultSerialBaud
	}

	port, err := serial.Open(portName, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return errors.Wrap(err, "could not open serial")
	}

	c.serialPort = port
	go c.serialRx(port)

	logrus.Debug("link: serial open ", portName)
	return nil
}

// CloseSerial stops the serial monitor. Safe to call when it is not open.
func (c *Conn) CloseSerial() {
	c.serialMu.Lock()
	defer c.serialMu.Unlock()

	if c.serialPort != nil {
		c.serialPort.Close()
		c.serialPort = nil
		logrus.Debug("link: serial close")
	}
}

// serialRx is the loop that reads from the port and forwards incoming
// bytes to serial-data subscribers until the port closes or fails.
func (c *Conn) serialRx(port serial.Port) {
	buf := make([]byte, 64)

	for {
		n, err := port.Read(buf)
		if err != nil {

			// don't report the error if the monitor was simply closed
			if perr, ok := err.(*serial.PortError); ok {
				if perr.Code() == serial.PortClosed {
					return
				}
			}
			if errors.Is(err, syscall.EBADF) {
				return
			}

			logrus.Error("link: serial rx err: ", err.Error())
			c.serialErr.emit(err)
			c.CloseSerial()
			return
		}

		if n > 0 {
			out := make([]byte, n)
			copy(out, buf[:n])
			logrus.Debugf("link: serial rx: %x", out)
			c.serialData.emit(out)
		}
	}
}
