package link

import "testing"

func u16(v uint16) *uint16 { return &v }

func TestFilterMatch(t *testing.T) {
	dev := Device{VendorID: 0x0D28, ProductID: 0x0204}

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"both match", VendorProduct(0x0D28, 0x0204), true},
		{"vendor mismatch", VendorProduct(0x1234, 0x0204), false},
		{"product mismatch", VendorProduct(0x0D28, 0x9999), false},
		{"vendor only", Filter{VendorID: u16(0x0D28)}, true},
		{"vendor only mismatch", Filter{VendorID: u16(0x1234)}, false},
		{"product only", Filter{ProductID: u16(0x0204)}, true},
		{"product only mismatch", Filter{ProductID: u16(0x9999)}, false},
		{"empty filter is wildcard", Filter{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Match(dev); got != tt.want {
				t.Errorf("Match() = %t, want %t", got, tt.want)
			}
		})
	}
}

func TestMatchesAnyOf(t *testing.T) {
	dev := Device{VendorID: 0x0D28, ProductID: 0x0204}

	tests := []struct {
		name    string
		filters []Filter
		want    bool
	}{
		{"empty set matches nothing", nil, false},
		{"single match", []Filter{VendorProduct(0x0D28, 0x0204)}, true},
		{"single mismatch", []Filter{VendorProduct(0x1234, 0x5678)}, false},
		{"second filter matches", []Filter{
			VendorProduct(0x1234, 0x5678),
			{VendorID: u16(0x0D28)},
		}, true},
		{"no filter matches", []Filter{
			VendorProduct(0x1234, 0x5678),
			{ProductID: u16(0x9999)},
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Matches(dev, tt.filters); got != tt.want {
				t.Errorf("Matches() = %t, want %t", got, tt.want)
			}
		})
	}
}

func TestDefaultFiltersMatchKnownBoard(t *testing.T) {
	if !Matches(Device{VendorID: DefaultVendorID, ProductID: DefaultProductID}, DefaultFilters()) {
		t.Error("default filters should match the known board identifiers")
	}
	if Matches(Device{VendorID: 0x16C0, ProductID: 0x0483}, DefaultFilters()) {
		t.Error("default filters should not match an unrelated device")
	}
}
