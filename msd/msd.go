// Package msd implements link.Driver over a DAPLink board's mass-storage
// interface. The interface firmware exposes the board as a small volume:
// the identity is read from DETAILS.TXT and a full flash is performed by
// copying the Intel-HEX image onto the volume. Incremental flashing is not
// expressible over this transport, so partial requests are promoted to
// full flashes.
package msd

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mculink/mculink/link"
)

var (
	ErrNoSession      = errors.New("no mass-storage session")
	ErrVolumeNotFound = errors.New("board volume not found")
)

const (
	detailsFile  = "DETAILS.TXT"
	firmwareFile = "firmware.hex"
	uniqueIDKey  = "Unique ID:"

	// flashChunk is the write granularity used for progress reporting
	flashChunk = 16 * 1024
)

// Driver flashes over the board's mass-storage volume.
type Driver struct {
	mountRoots []string
	volumeName string

	volume string
}

// Option configures a Driver.
type Option func(*Driver)

// WithMountRoots replaces the directories scanned for the board volume.
func WithMountRoots(roots ...string) Option {
	return func(d *Driver) {
		if len(roots) > 0 {
			d.mountRoots = roots
		}
	}
}

// WithVolumeName sets the volume label to look for. Default is MICROBIT.
func WithVolumeName(name string) Option {
	return func(d *Driver) {
		if name != "" {
			d.volumeName = name
		}
	}
}

// New creates a mass-storage driver.
func New(opts ...Option) *Driver {
	d := &Driver{
		mountRoots: defaultMountRoots(),
		volumeName: "MICROBIT",
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func defaultMountRoots() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{"/Volumes"}
	case "windows":
		return nil // drive letters are scanned directly
	default:
		return []string{"/media", "/run/media"}
	}
}

// ConnectSession locates the mounted board volume. The USB descriptor
// identifies the board; the session itself is the mount point.
func (d *Driver) ConnectSession(ctx context.Context, dev link.Device) error {
	vol, err := d.findVolume()
	if err != nil {
		return err
	}
	d.volume = vol
	logrus.Debugf("msd: session open at %s (%04x:%04x)", vol, dev.VendorID, dev.ProductID)
	return nil
}

// DisconnectSession forgets the mount point. A no-op when nothing is open.
func (d *Driver) DisconnectSession(ctx context.Context) error {
	d.volume = ""
	return nil
}

// BoardIdentifier reads the unique ID line from the volume's DETAILS.TXT.
func (d *Driver) BoardIdentifier(ctx context.Context) (string, error) {
	if d.volume == "" {
		return "", ErrNoSession
	}

	f, err := os.Open(filepath.Join(d.volume, detailsFile))
	if err != nil {
		return "", errors.Wrap(err, "could not open details file")
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, uniqueIDKey) {
			return strings.TrimSpace(strings.TrimPrefix(line, uniqueIDKey)), nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", errors.Wrap(err, "could not read details file")
	}
	return "", errors.New("details file has no unique ID")
}

// FlashPartial cannot write individual pages over mass storage; the
// request is promoted to a full flash of the complete image.
func (d *Driver) FlashPartial(ctx context.Context, bin []byte, hex string, progress link.ProgressFunc) error {
	logrus.Debug("msd: incremental flashing not supported over mass storage, writing full image")
	return d.FlashFull(ctx, hex, progress)
}

// FlashFull copies the Intel-HEX image onto the volume. The interface
// firmware consumes the file as it arrives and resets the target when the
// copy completes. Progress is reported per chunk written.
func (d *Driver) FlashFull(ctx context.Context, hex string, progress link.ProgressFunc) error {
	if d.volume == "" {
		return ErrNoSession
	}
	if hex == "" {
		return errors.New("empty firmware image")
	}

	f, err := os.OpenFile(filepath.Join(d.volume, firmwareFile),
		os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return errors.Wrap(err, "could not create firmware file")
	}

	data := []byte(hex)
	written := 0
	for written < len(data) {
		if err := ctx.Err(); err != nil {
			f.Close()
			return err
		}

		end := min(len(data), written+flashChunk)
		n, err := f.Write(data[written:end])
		written += n
		if err != nil {
			f.Close()
			return errors.Wrap(err, "could not write firmware")
		}

		if progress != nil {
			pct := written * 100 / len(data)
			progress(&pct)
		}
		logrus.Debugf("msd: wrote %d/%d", written, len(data))
	}

	if err := f.Sync(); err != nil {
		// some removable volumes reject fsync after the device resets
		logrus.Debug("msd: sync: ", err.Error())
	}
	return errors.Wrap(f.Close(), "could not finish firmware write")
}

// findVolume scans the mount roots, one level deep, for a directory named
// after the volume that carries a DETAILS.TXT.
func (d *Driver) findVolume() (string, error) {
	var candidates []string
	for _, root := range d.mountRoots {
		candidates = append(candidates, filepath.Join(root, d.volumeName))
		entries, err := os.ReadDir(root)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() {
				candidates = append(candidates, filepath.Join(root, e.Name(), d.volumeName))
			}
		}
	}
	if runtime.GOOS == "windows" {
		for letter := 'D'; letter <= 'Z'; letter++ {
			candidates = append(candidates, string(letter)+`:\`)
		}
	}

	for _, dir := range candidates {
		if _, err := os.Stat(filepath.Join(dir, detailsFile)); err == nil {
			return dir, nil
		}
	}
	return "", ErrVolumeNotFound
}
