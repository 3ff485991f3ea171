package link

// Known DAPLink interface identifiers for the supported board.
const (
	DefaultVendorID  uint16 = 0x0D28
	DefaultProductID uint16 = 0x0204
)

// Device is a descriptor snapshot of a USB device as reported by the Host.
type Device struct {
	VendorID  uint16
	ProductID uint16
	Serial    string
	Product   string
	// Path identifies the physical attachment point (bus.address or mount
	// path, host dependent). Two snapshots with the same Path are the same
	// device.
	Path string
}

func sameDevice(a, b Device) bool {
	if a.Path != "" || b.Path != "" {
		return a.Path == b.Path
	}
	return a.VendorID == b.VendorID && a.ProductID == b.ProductID && a.Serial == b.Serial
}

// Filter selects devices by vendor and product ID. A nil field is a
// wildcard; a filter with both fields nil matches every device.
type Filter struct {
	VendorID  *uint16
	ProductID *uint16
}

// VendorProduct builds a filter with both fields set.
func VendorProduct(vid, pid uint16) Filter {
	return Filter{VendorID: &vid, ProductID: &pid}
}

// Match reports whether every present field of the filter equals the
// device's corresponding field.
func (f Filter) Match(d Device) bool {
	if f.VendorID != nil && *f.VendorID != d.VendorID {
		return false
	}
	if f.ProductID != nil && *f.ProductID != d.ProductID {
		return false
	}
	return true
}

// Matches reports whether the device satisfies at least one filter in the
// set. An empty set matches nothing.
func Matches(d Device, filters []Filter) bool {
	for _, f := range filters {
		if f.Match(d) {
			return true
		}
	}
	return false
}

// DefaultFilters matches the product's known DAPLink interface.
func DefaultFilters() []Filter {
	return []Filter{VendorProduct(DefaultVendorID, DefaultProductID)}
}
