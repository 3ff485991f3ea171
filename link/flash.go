package link

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/mculink/mculink/boardid"
)

type flashConfig struct {
	partial  bool
	progress ProgressFunc
}

// FlashOption is a functional option for a single Flash call.
type FlashOption func(*flashConfig)

// WithPartialFlash requests writing only changed flash regions. The driver
// may still decide incremental flashing is unsafe and promote the request
// to a full flash; that decision is forwarded, never overridden here.
func WithPartialFlash() FlashOption {
	return func(f *flashConfig) {
		f.partial = true
	}
}

// WithProgress sets the progress callback for this flash. It receives
// percentages in [0, 100] followed by exactly one terminal nil on success.
// The default is a no-op.
func WithProgress(fn ProgressFunc) FlashOption {
	return func(f *flashConfig) {
		f.progress = fn
	}
}

// Flash writes firmware to the board:
//
//  1. tear down any existing session (the reconnect resets the target)
//  2. open a fresh session
//  3. read and parse the board identity
//  4. ask source for the payload variant matching that identity
//  5. run the partial or full flash operation
//  6. report the terminal progress sentinel
//
// Any failure in steps 1-5 aborts without the terminal sentinel; the error
// is classified and returned. Flash performs no retries. It holds the
// session mutex for the whole sequence, so no connect or disconnect can
// interleave.
func (c *Conn) Flash(ctx context.Context, source Source, opts ...FlashOption) error {
	if source == nil {
		panic("source cannot be nil")
	}

	var cfg flashConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.Status() == StatusNotSupported {
		return &NotSupportedError{}
	}

	report := func(p *int) {
		if p != nil {
			v := clamp(*p, 0, 100)
			p = &v
		}
		if cfg.progress != nil {
			cfg.progress(p)
		}
		c.progress.emit(p)
	}

	if err := c.disconnectLocked(ctx); err != nil {
		return err
	}
	if err := c.connectLocked(ctx, NonInteractive); err != nil {
		return err
	}

	raw, err := c.driver.BoardIdentifier(ctx)
	if err != nil {
		return Classify(err)
	}
	board, err := boardid.Parse(raw)
	if err != nil {
		return err
	}

	payload, err := source(ctx, board)
	if err != nil {
		return &DataSourceError{cause: err}
	}

	logrus.Debugf("link: flashing %s (partial=%t, bin=%d hex=%d)",
		board, cfg.partial, len(payload.Bin), len(payload.Hex))

	if cfg.partial {
		err = c.driver.FlashPartial(ctx, payload.Bin, payload.Hex, report)
	} else {
		err = c.driver.FlashFull(ctx, payload.Hex, report)
	}
	if err != nil {
		return Classify(&FlashError{Partial: cfg.partial, cause: err})
	}

	report(nil)
	return nil
}
