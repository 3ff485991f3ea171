package link

import "context"

// Driver is the device access layer that performs the actual session and
// flash operations against the board's debug interface. Implementations
// may block on hardware I/O; every call takes a context. The Conn owns the
// single logical session and never runs two driver calls concurrently.
type Driver interface {
	// ConnectSession opens a debug session against the given device.
	ConnectSession(ctx context.Context, dev Device) error

	// DisconnectSession tears down the active session. Called only while a
	// session is open.
	DisconnectSession(ctx context.Context) error

	// BoardIdentifier reads the raw hardware identifier from the connected
	// device. Valid only while a session is open.
	BoardIdentifier(ctx context.Context) (string, error)

	// FlashPartial writes only changed regions using bin as the comparison
	// source, with hex available for a full-flash fallback if the driver
	// decides incremental flashing is unsafe. That fallback decision
	// belongs to the driver alone.
	FlashPartial(ctx context.Context, bin []byte, hex string, progress ProgressFunc) error

	// FlashFull writes the complete image from Intel-HEX text, including
	// configuration regions the raw bytes omit.
	FlashFull(ctx context.Context, hex string, progress ProgressFunc) error
}

// Host is the USB capability of the platform: enumeration, interactive
// device selection, and attach/detach notification.
type Host interface {
	// Available reports whether the host can access USB at all. A false
	// result is permanent for the process.
	Available() bool

	// AuthorizedDevices lists the devices the application may use without
	// further interaction.
	AuthorizedDevices(ctx context.Context) ([]Device, error)

	// RequestDevice interactively selects a device matching the filters.
	// Only called for Interactive connects.
	RequestDevice(ctx context.Context, filters []Filter) (Device, error)

	// Watch emits attach/detach events until ctx is cancelled, after which
	// the channel is closed.
	Watch(ctx context.Context) (<-chan DeviceEvent, error)
}

// DeviceEvent is a physical attach or detach notification.
type DeviceEvent struct {
	Device   Device
	Attached bool
}
