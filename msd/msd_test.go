package msd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mculink/mculink/link"
)

const detailsContent = `# DAPLink Firmware - see https://daplink.io
Unique ID: 9904360259794e45001f901900000034000000009796990
HIC ID: 97969901
Auto Reset: 1
Interface Version: 0255
`

func newVolume(t *testing.T) (root, volume string) {
	t.Helper()
	root = t.TempDir()
	volume = filepath.Join(root, "MICROBIT")
	if err := os.MkdirAll(volume, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(volume, "DETAILS.TXT"), []byte(detailsContent), 0o644); err != nil {
		t.Fatal(err)
	}
	return root, volume
}

func TestConnectSessionFindsVolume(t *testing.T) {
	root, _ := newVolume(t)
	d := New(WithMountRoots(root))

	if err := d.ConnectSession(context.Background(), link.Device{}); err != nil {
		t.Fatalf("ConnectSession: %v", err)
	}

	id, err := d.BoardIdentifier(context.Background())
	if err != nil {
		t.Fatalf("BoardIdentifier: %v", err)
	}
	if id != "9904360259794e45001f901900000034000000009796990" {
		t.Errorf("BoardIdentifier = %q", id)
	}
}

func TestConnectSessionNestedMount(t *testing.T) {
	// volumes often mount one level down, e.g. /media/<user>/MICROBIT
	root := t.TempDir()
	volume := filepath.Join(root, "someone", "MICROBIT")
	if err := os.MkdirAll(volume, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(volume, "DETAILS.TXT"), []byte(detailsContent), 0o644); err != nil {
		t.Fatal(err)
	}

	d := New(WithMountRoots(root))
	if err := d.ConnectSession(context.Background(), link.Device{}); err != nil {
		t.Fatalf("ConnectSession: %v", err)
	}
}

func TestConnectSessionNoVolume(t *testing.T) {
	d := New(WithMountRoots(t.TempDir()))
	if err := d.ConnectSession(context.Background(), link.Device{}); err != ErrVolumeNotFound {
		t.Errorf("ConnectSession = %v, want ErrVolumeNotFound", err)
	}
}

func TestBoardIdentifierRequiresSession(t *testing.T) {
	d := New(WithMountRoots(t.TempDir()))
	if _, err := d.BoardIdentifier(context.Background()); err != ErrNoSession {
		t.Errorf("BoardIdentifier = %v, want ErrNoSession", err)
	}
}

func TestDisconnectSessionIdempotent(t *testing.T) {
	root, _ := newVolume(t)
	d := New(WithMountRoots(root))

	if err := d.DisconnectSession(context.Background()); err != nil {
		t.Errorf("DisconnectSession without a session: %v", err)
	}
	if err := d.ConnectSession(context.Background(), link.Device{}); err != nil {
		t.Fatal(err)
	}
	if err := d.DisconnectSession(context.Background()); err != nil {
		t.Errorf("DisconnectSession: %v", err)
	}
	if _, err := d.BoardIdentifier(context.Background()); err != ErrNoSession {
		t.Error("session should be gone after disconnect")
	}
}

func TestFlashFullWritesImage(t *testing.T) {
	root, volume := newVolume(t)
	d := New(WithMountRoots(root))
	if err := d.ConnectSession(context.Background(), link.Device{}); err != nil {
		t.Fatal(err)
	}

	image := ":020000040000FA\n:00000001FF\n"
	var percents []int
	progress := func(p *int) {
		if p == nil {
			t.Fatal("the driver reports percentages only; the terminal sentinel is not its job")
		}
		percents = append(percents, *p)
	}

	if err := d.FlashFull(context.Background(), image, progress); err != nil {
		t.Fatalf("FlashFull: %v", err)
	}

	written, err := os.ReadFile(filepath.Join(volume, "firmware.hex"))
	if err != nil {
		t.Fatal(err)
	}
	if string(written) != image {
		t.Errorf("volume holds %q, want %q", written, image)
	}

	if len(percents) == 0 || percents[len(percents)-1] != 100 {
		t.Errorf("progress = %v, want a final 100", percents)
	}
	for i := 1; i < len(percents); i++ {
		if percents[i] < percents[i-1] {
			t.Errorf("progress must be monotonic, got %v", percents)
		}
	}
}

func TestFlashPartialPromotesToFull(t *testing.T) {
	root, volume := newVolume(t)
	d := New(WithMountRoots(root))
	if err := d.ConnectSession(context.Background(), link.Device{}); err != nil {
		t.Fatal(err)
	}

	image := ":00000001FF\n"
	if err := d.FlashPartial(context.Background(), []byte{0x01, 0x02}, image, nil); err != nil {
		t.Fatalf("FlashPartial: %v", err)
	}

	written, err := os.ReadFile(filepath.Join(volume, "firmware.hex"))
	if err != nil {
		t.Fatal(err)
	}
	if string(written) != image {
		t.Error("partial request over mass storage must write the complete image")
	}
}

func TestFlashFullRequiresSession(t *testing.T) {
	d := New(WithMountRoots(t.TempDir()))
	if err := d.FlashFull(context.Background(), ":00000001FF\n", nil); err != ErrNoSession {
		t.Errorf("FlashFull = %v, want ErrNoSession", err)
	}
}

func TestFlashFullRejectsEmptyImage(t *testing.T) {
	root, _ := newVolume(t)
	d := New(WithMountRoots(root))
	if err := d.ConnectSession(context.Background(), link.Device{}); err != nil {
		t.Fatal(err)
	}
	if err := d.FlashFull(context.Background(), "", nil); err == nil {
		t.Error("an empty image must be rejected")
	}
}

func TestFlashFullCancelled(t *testing.T) {
	root, _ := newVolume(t)
	d := New(WithMountRoots(root))
	if err := d.ConnectSession(context.Background(), link.Device{}); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := d.FlashFull(ctx, ":00000001FF\n", nil); err != context.Canceled {
		t.Errorf("FlashFull = %v, want context.Canceled", err)
	}
}
