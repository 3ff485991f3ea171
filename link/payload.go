package link

import (
	"context"

	"github.com/mculink/mculink/boardid"
)

// Payload is the firmware to flash. Partial flashing consumes Bin (plus
// Hex for the driver's fallback); full flashing consumes Hex alone.
type Payload struct {
	// Bin holds the raw flash-region bytes.
	Bin []byte
	// Hex holds the complete Intel-HEX text, including configuration and
	// UICR regions absent from Bin.
	Hex string
}

// Source produces the firmware payload variant for a board identity. It
// may perform I/O (e.g. fetch firmware over the network) and may fail.
type Source func(ctx context.Context, board boardid.BoardID) (Payload, error)

// ProgressFunc receives flashing progress. percent is in [0, 100]; the
// single terminal call after a successful flash passes nil.
type ProgressFunc func(percent *int)
