// Package usbhost provides the libusb-backed implementation of link.Host:
// device enumeration, interactive selection, and attach/detach watching.
package usbhost

import (
	"context"
	"fmt"
	"time"

	"github.com/google/gousb"
	"github.com/pkg/errors"

	"github.com/mculink/mculink/link"
)

// DefaultPollInterval is how often the watcher re-enumerates the bus.
// libusb in this configuration has no hotplug callbacks, so attach and
// detach are detected by diffing enumerations.
var DefaultPollInterval = time.Second

// Host implements link.Host over a libusb context.
type Host struct {
	ctx          *gousb.Context
	pollInterval time.Duration
}

// Option configures a Host.
type Option func(*Host)

// WithPollInterval sets the attach/detach polling interval.
func WithPollInterval(d time.Duration) Option {
	return func(h *Host) {
		if d > 0 {
			h.pollInterval = d
		}
	}
}

// New creates a Host. Close must be called to release the libusb context.
func New(opts ...Option) *Host {
	h := &Host{
		ctx:          gousb.NewContext(),
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Close releases the libusb context.
func (h *Host) Close() error {
	if h.ctx != nil {
		err := h.ctx.Close()
		h.ctx = nil
		return err
	}
	return nil
}

// Available reports whether USB access works on this host.
func (h *Host) Available() bool {
	return h.ctx != nil
}

// AuthorizedDevices lists every attached device. A native libusb host has
// no per-device permission grant, so all attached devices count as
// authorized; the caller's filters decide which ones matter.
func (h *Host) AuthorizedDevices(ctx context.Context) ([]link.Device, error) {
	if h.ctx == nil {
		return nil, &link.NotSupportedError{}
	}

	var devs []link.Device
	// the predicate visits every descriptor; returning false opens nothing
	_, err := h.ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		devs = append(devs, deviceFromDesc(desc))
		return false
	})
	if err != nil {
		return nil, errors.Wrap(err, "could not enumerate devices")
	}
	return devs, nil
}

// RequestDevice selects the attached device matching the filters, opening
// it briefly to read its product and serial strings. Without a user-facing
// chooser the selection must be unambiguous: zero or several matches fail.
func (h *Host) RequestDevice(ctx context.Context, filters []link.Filter) (link.Device, error) {
	if h.ctx == nil {
		return link.Device{}, &link.NotSupportedError{}
	}

	opened, err := h.ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return link.Matches(deviceFromDesc(desc), filters)
	})
	for _, d := range opened {
		defer d.Close()
	}
	if err != nil {
		return link.Device{}, errors.Wrap(err, "could not open matching devices")
	}

	switch len(opened) {
	case 0:
		return link.Device{}, errors.New("no matching device attached")
	case 1:
	default:
		return link.Device{}, fmt.Errorf("%d matching devices attached, cannot choose", len(opened))
	}

	dev := deviceFromDesc(opened[0].Desc)
	if serial, err := opened[0].SerialNumber(); err == nil {
		dev.Serial = serial
	}
	if product, err := opened[0].Product(); err == nil {
		dev.Product = product
	}
	return dev, nil
}

func deviceFromDesc(desc *gousb.DeviceDesc) link.Device {
	return link.Device{
		VendorID:  uint16(desc.Vendor),
		ProductID: uint16(desc.Product),
		Path:      fmt.Sprintf("%d.%d", desc.Bus, desc.Address),
	}
}
