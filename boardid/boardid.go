// Package boardid decodes the raw hardware identifier reported by a
// connected board into a structured identity. The identity distinguishes
// hardware families and is used to pick the firmware payload variant; it
// is never guessed from anything but the identifier itself.
package boardid

import (
	"fmt"
	"strconv"
	"strings"
)

// Family is the hardware family of a board.
type Family int

const (
	FamilyUnknown Family = iota
	FamilyV1
	FamilyV2
)

var familyStrings = map[Family]string{
	FamilyUnknown: "unknown",
	FamilyV1:      "V1",
	FamilyV2:      "V2",
}

func (f Family) String() string {
	if s, ok := familyStrings[f]; ok {
		return s
	}
	return "invalid"
}

// BoardID is a parsed board identity.
type BoardID struct {
	// ID is the 16-bit board code, the first four hex digits of the raw
	// identifier.
	ID uint16
	// Family is the hardware family the code belongs to, or FamilyUnknown
	// for a well-formed code this package does not recognize.
	Family Family
}

func (b BoardID) String() string {
	return fmt.Sprintf("%04x (%s)", b.ID, b.Family)
}

// board codes as reported by the DAPLink interface firmware
var families = map[uint16]Family{
	0x9900: FamilyV1,
	0x9901: FamilyV1,
	0x9903: FamilyV2,
	0x9904: FamilyV2,
	0x9905: FamilyV2,
	0x9906: FamilyV2,
}

// ParseError means the raw identifier was malformed. Callers must not
// proceed to flashing when parsing fails.
type ParseError struct {
	Raw    string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid board identifier %q: %s", e.Raw, e.Reason)
}

// Parse decodes a raw hexadecimal identifier string. The identifier may be
// the full unique ID; only its first four digits carry the board code.
// Unrecognized but well-formed codes parse with FamilyUnknown.
func Parse(raw string) (BoardID, error) {
	id := strings.TrimSpace(raw)
	if len(id) < 4 {
		return BoardID{}, &ParseError{Raw: raw, Reason: "shorter than four hex digits"}
	}

	code, err := strconv.ParseUint(id[:4], 16, 16)
	if err != nil {
		return BoardID{}, &ParseError{Raw: raw, Reason: "not hexadecimal"}
	}

	return BoardID{
		ID:     uint16(code),
		Family: families[uint16(code)],
	}, nil
}
