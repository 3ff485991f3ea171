package link

// ConnectionStatus is the state of the single managed device connection.
// A Conn that reports StatusNotSupported at initialization time reports it
// for the rest of its lifetime.
type ConnectionStatus int

const (
	// StatusNoAuthorizedDevice means the host can talk USB but no device
	// matching the configured filters is currently tracked.
	StatusNoAuthorizedDevice ConnectionStatus = iota
	// StatusNotConnected means a device is tracked but no session is open.
	StatusNotConnected
	// StatusConnected means a debug/flash session is open.
	StatusConnected
	// StatusNotSupported means the host has no USB access capability.
	StatusNotSupported
)

var statusStrings = map[ConnectionStatus]string{
	StatusNoAuthorizedDevice: "no authorized device",
	StatusNotConnected:       "not connected",
	StatusConnected:          "connected",
	StatusNotSupported:       "not supported",
}

func (s ConnectionStatus) String() string {
	if str, ok := statusStrings[s]; ok {
		return str
	}
	return "invalid"
}

// ConnectMode controls whether a connect attempt may involve the user.
type ConnectMode int

const (
	// NonInteractive connects must use an already-tracked device and fail
	// rather than prompting for one.
	NonInteractive ConnectMode = iota
	// Interactive connects may ask the host to select a device.
	Interactive
)

func (m ConnectMode) String() string {
	if m == Interactive {
		return "interactive"
	}
	return "non-interactive"
}
