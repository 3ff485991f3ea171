package usbhost

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mculink/mculink/link"
)

// Watch polls the bus and emits attach/detach events until ctx is
// cancelled. The channel is closed on cancellation.
func (h *Host) Watch(ctx context.Context) (<-chan link.DeviceEvent, error) {
	if h.ctx == nil {
		return nil, &link.NotSupportedError{}
	}

	prev, err := h.AuthorizedDevices(ctx)
	if err != nil {
		return nil, err
	}

	events := make(chan link.DeviceEvent, 8)
	go h.poll(ctx, prev, events)
	return events, nil
}

func (h *Host) poll(ctx context.Context, prev []link.Device, events chan<- link.DeviceEvent) {
	defer close(events)

	ticker := time.NewTicker(h.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		cur, err := h.AuthorizedDevices(ctx)
		if err != nil {
			logrus.Debug("usbhost: enumeration failed: ", err.Error())
			continue
		}

		attached, detached := diffDevices(prev, cur)
		prev = cur

		for _, d := range detached {
			select {
			case events <- link.DeviceEvent{Device: d, Attached: false}:
			case <-ctx.Done():
				return
			}
		}
		for _, d := range attached {
			select {
			case events <- link.DeviceEvent{Device: d, Attached: true}:
			case <-ctx.Done():
				return
			}
		}
	}
}

// diffDevices compares two enumerations by attachment path.
func diffDevices(prev, cur []link.Device) (attached, detached []link.Device) {
	seen := make(map[string]link.Device, len(prev))
	for _, d := range prev {
		seen[d.Path] = d
	}

	now := make(map[string]link.Device, len(cur))
	for _, d := range cur {
		now[d.Path] = d
		if _, ok := seen[d.Path]; !ok {
			attached = append(attached, d)
		}
	}
	for path, d := range seen {
		if _, ok := now[path]; !ok {
			detached = append(detached, d)
		}
	}
	return attached, detached
}
