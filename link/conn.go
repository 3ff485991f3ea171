// Package link manages the connection to a single USB-attached
// microcontroller board and orchestrates firmware flashing over it.
//
// A Conn owns the one logical device session: it tracks the connection
// status, decides which discovered device to use, gates interactive vs
// non-interactive connect attempts, and serializes every operation that
// touches the session. The actual register and memory work is delegated
// to a Driver; USB enumeration and attach/detach notification are
// delegated to a Host.
package link

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Conn is the connection state machine for one board.
//
// All session-mutating operations (Connect, Disconnect, Flash and the
// background auto-connect) hold an internal mutex, so at most one of them
// is in flight at a time. Notification callbacks are invoked synchronously
// in transition order; they must return promptly and must not call back
// into session operations.
type Conn struct {
	host   Host
	driver Driver
	config Config

	// mu serializes session-mutating operations
	mu sync.Mutex

	// stateMu guards status and the tracked device for readers; both are
	// only written while mu is held
	stateMu   sync.Mutex
	status    ConnectionStatus
	device    Device
	hasDevice bool

	statusChanged emitter[ConnectionStatus]
	autoConnErr   emitter[error]
	progress      emitter[*int]
	serialData    emitter[[]byte]
	serialErr     emitter[error]

	watchCancel context.CancelFunc

	serialMu   sync.Mutex
	serialPort serialPort
}

// New creates a connection manager over the given host capability and
// device access driver.
func New(host Host, driver Driver, opts ...Option) *Conn {
	if driver == nil {
		panic("driver cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Conn{
		host:   host,
		driver: driver,
		config: cfg,
		status: StatusNoAuthorizedDevice,
	}
}

// Initialize discovers the device to manage and starts watching for
// attach/detach events.
//
// If the host lacks USB access the status becomes StatusNotSupported and
// never changes again. Otherwise exactly one authorized device matching
// the filters is adopted; zero or several matches leave the manager in
// StatusNoAuthorizedDevice. When auto-connect is enabled and a device was
// adopted, a non-interactive connect runs in the background; its failure
// is emitted on the auto-connect error channel, never returned here.
func (c *Conn) Initialize(ctx context.Context) error {
	if c.host == nil || !c.host.Available() {
		c.setStatus(StatusNotSupported)
		return nil
	}

	c.mu.Lock()
	devs, err := c.host.AuthorizedDevices(ctx)
	if err != nil {
		c.mu.Unlock()
		return Classify(err)
	}

	var matched []Device
	for _, d := range devs {
		if Matches(d, c.config.Filters) {
			matched = append(matched, d)
		}
	}

	found := len(matched) == 1
	if found {
		c.setDevice(matched[0])
		c.setStatus(StatusNotConnected)
	} else {
		if len(matched) > 1 {
			logrus.Debugf("link: %d matching devices attached, selecting none", len(matched))
		}
		c.setStatus(StatusNoAuthorizedDevice)
	}
	c.mu.Unlock()

	watchCtx, cancel := context.WithCancel(context.Background())
	c.watchCancel = cancel
	events, err := c.host.Watch(watchCtx)
	if err != nil {
		logrus.Error("link: device watch unavailable: ", err.Error())
	} else {
		go c.watchLoop(events)
	}

	if found && c.config.AutoConnect {
		c.autoConnect()
	}

	return nil
}

// Connect opens a debug session and returns the resulting status.
// Interactive mode may ask the host to select a device; NonInteractive
// mode fails instead when no device is tracked.
func (c *Conn) Connect(ctx context.Context, mode ConnectMode) (ConnectionStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.connectLocked(ctx, mode); err != nil {
		return c.Status(), err
	}
	return StatusConnected, nil
}

func (c *Conn) connectLocked(ctx context.Context, mode ConnectMode) error {
	switch c.Status() {
	case StatusNotSupported:
		return &NotSupportedError{}
	case StatusConnected:
		return nil
	}

	if !c.deviceTracked() {
		if mode != Interactive {
			return Classify(errors.New("no authorized device available"))
		}
		dev, err := c.host.RequestDevice(ctx, c.config.Filters)
		if err != nil {
			return Classify(err)
		}
		c.setDevice(dev)
		c.setStatus(StatusNotConnected)
	}

	dev, _ := c.ActiveDevice()
	if err := c.driver.ConnectSession(ctx, dev); err != nil {
		// the device stays tracked; only the session attempt failed
		return Classify(err)
	}

	logrus.Debugf("link: session open (%s)", mode)
	c.setStatus(StatusConnected)
	return nil
}

// Disconnect tears down the active session. It is a no-op when no session
// is open. Teardown is best-effort: the status becomes NotConnected even
// when the driver reports a (classified) error.
func (c *Conn) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disconnectLocked(ctx)
}

func (c *Conn) disconnectLocked(ctx context.Context) error {
	if c.Status() != StatusConnected {
		return nil
	}

	err := c.driver.DisconnectSession(ctx)
	c.setStatus(StatusNotConnected)
	logrus.Debug("link: session closed")
	if err != nil {
		return Classify(err)
	}
	return nil
}

// Close stops the watch loop and the serial monitor and closes any open
// session.
func (c *Conn) Close() error {
	if c.watchCancel != nil {
		c.watchCancel()
	}
	c.CloseSerial()

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disconnectLocked(context.Background())
}

// Status returns the current connection status.
func (c *Conn) Status() ConnectionStatus {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.status
}

// ActiveDevice returns the tracked device, if any.
func (c *Conn) ActiveDevice() (Device, bool) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.device, c.hasDevice
}

// OnStatusChange subscribes to status transitions. The returned func
// cancels the subscription.
func (c *Conn) OnStatusChange(fn func(ConnectionStatus)) func() {
	return c.statusChanged.subscribe(fn)
}

// OnAutoConnectError subscribes to background auto-connect failures.
func (c *Conn) OnAutoConnectError(fn func(error)) func() {
	return c.autoConnErr.subscribe(fn)
}

// OnProgress subscribes to flashing progress. The terminal call after a
// successful flash passes nil.
func (c *Conn) OnProgress(fn ProgressFunc) func() {
	return c.progress.subscribe(fn)
}

// OnSerialData subscribes to bytes received by the serial monitor.
func (c *Conn) OnSerialData(fn func([]byte)) func() {
	return c.serialData.subscribe(fn)
}

// OnSerialError subscribes to serial monitor read failures.
func (c *Conn) OnSerialError(fn func(error)) func() {
	return c.serialErr.subscribe(fn)
}

func (c *Conn) watchLoop(events <-chan DeviceEvent) {
	for ev := range events {
		if ev.Attached {
			c.handleAttach(ev.Device)
		} else {
			c.handleDetach(ev.Device)
		}
	}
}

func (c *Conn) handleAttach(dev Device) {
	c.mu.Lock()
	if c.Status() != StatusNoAuthorizedDevice || !Matches(dev, c.config.Filters) {
		c.mu.Unlock()
		return
	}

	logrus.Debugf("link: device attached %04x:%04x", dev.VendorID, dev.ProductID)
	c.setDevice(dev)
	c.setStatus(StatusNotConnected)
	auto := c.config.AutoConnect
	c.mu.Unlock()

	if auto {
		c.autoConnect()
	}
}

func (c *Conn) handleDetach(dev Device) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur, ok := c.ActiveDevice()
	if !ok || !sameDevice(dev, cur) {
		return
	}

	logrus.Debug("link: active device detached")
	if c.Status() == StatusConnected {
		if err := c.driver.DisconnectSession(context.Background()); err != nil {
			logrus.Debug("link: teardown after detach: ", err.Error())
		}
	}
	c.clearDevice()
	c.setStatus(StatusNoAuthorizedDevice)
}

// autoConnect runs a non-interactive connect in the background. Failures
// never reach the caller that triggered it; they are emitted on the
// auto-connect error channel instead.
func (c *Conn) autoConnect() {
	go func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		if c.Status() != StatusNotConnected {
			return
		}
		if err := c.connectLocked(context.Background(), NonInteractive); err != nil {
			logrus.Debug("link: autoconnect failed: ", err.Error())
			c.autoConnErr.emit(err)
		}
	}()
}

// setStatus records a transition and notifies observers. StatusNotSupported
// is a sink: once entered it is never left.
func (c *Conn) setStatus(s ConnectionStatus) {
	c.stateMu.Lock()
	if c.status == s || c.status == StatusNotSupported {
		c.stateMu.Unlock()
		return
	}
	c.status = s
	c.stateMu.Unlock()

	logrus.Debug("link: status ", s.String())
	c.statusChanged.emit(s)
}

func (c *Conn) setDevice(dev Device) {
	c.stateMu.Lock()
	c.device, c.hasDevice = dev, true
	c.stateMu.Unlock()
}

func (c *Conn) clearDevice() {
	c.stateMu.Lock()
	c.device, c.hasDevice = Device{}, false
	c.stateMu.Unlock()
}

func (c *Conn) deviceTracked() bool {
	_, ok := c.ActiveDevice()
	return ok
}
