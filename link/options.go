package link

// Config holds the connection manager configuration.
type Config struct {
	// AutoConnect enables background non-interactive connects after
	// initialization and on device attach. Default is true.
	AutoConnect bool

	// Filters select which USB devices the manager will accept.
	// Default is the product's known DAPLink vendor/product pair.
	Filters []Filter
}

func defaultConfig() Config {
	return Config{
		AutoConnect: true,
		Filters:     DefaultFilters(),
	}
}

// Option is a functional option for configuring a Conn.
type Option func(*Config)

// WithAutoConnect enables or disables background auto-connect.
func WithAutoConnect(on bool) Option {
	return func(c *Config) {
		c.AutoConnect = on
	}
}

// WithFilters replaces the accepted device filters.
func WithFilters(filters ...Filter) Option {
	return func(c *Config) {
		if len(filters) > 0 {
			c.Filters = filters
		}
	}
}
