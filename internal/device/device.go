// Package device finds a supported camera on the USB bus.
package device

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/keagan/gyroreel/internal/config"
	"github.com/rs/zerolog"
)

// Device is one line of lsusb output
type Device struct {
	Bus    string
	Number string
	// ID is vendor:product, e.g. 2672:0011
	ID          string
	Description string
}

// Match is a connected device and the camera entry it matched
type Match struct {
	Device Device
	Camera config.CameraConfig
}

// Lister enumerates USB devices
type Lister interface {
	List(ctx context.Context) ([]Device, error)
}

// ParseLSUSB parses lines like "Bus 001 Device 004: ID 2672:0011 GoPro".
// Lines that do not fit the pattern are ignored.
func ParseLSUSB(output string) []Device {
	var devices []Device
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 6 || fields[0] != "Bus" || fields[2] != "Device" || fields[4] != "ID" {
			continue
		}
		devices = append(devices, Device{
			Bus:         fields[1],
			Number:      strings.TrimSuffix(fields[3], ":"),
			ID:          strings.ToLower(fields[5]),
			Description: strings.Join(fields[6:], " "),
		})
	}
	return devices
}

// LSUSB lists devices with the lsusb tool
type LSUSB struct {
	// Path of the binary; empty means lsusb from PATH
	Path string
}

func (l LSUSB) List(ctx context.Context) ([]Device, error) {
	name := l.Path
	if name == "" {
		name = "lsusb"
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("lsusb: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return ParseLSUSB(stdout.String()), nil
}

// Finder matches connected devices against the configured cameras
type Finder struct {
	logger  zerolog.Logger
	lister  Lister
	cameras []config.CameraConfig
}

// NewFinder creates a finder. A nil lister uses lsusb.
func NewFinder(logger zerolog.Logger, lister Lister, cameras []config.CameraConfig) *Finder {
	if lister == nil {
		lister = LSUSB{}
	}
	return &Finder{
		logger:  logger.With().Str("component", "device").Logger(),
		lister:  lister,
		cameras: cameras,
	}
}

// FindSupportedDevice returns the first connected device that is a
// configured camera, or nil when none is connected
func (f *Finder) FindSupportedDevice(ctx context.Context) (*Match, error) {
	devices, err := f.lister.List(ctx)
	if err != nil {
		return nil, err
	}

	for _, d := range devices {
		for _, cam := range f.cameras {
			if strings.EqualFold(d.ID, cam.ID) {
				f.logger.Debug().Str("id", d.ID).Str("camera", cam.Name).Msg("supported camera connected")
				return &Match{Device: d, Camera: cam}, nil
			}
		}
	}
	return nil, nil
}

// Wait polls until a supported camera is connected or ctx is done
func (f *Finder) Wait(ctx context.Context, interval time.Duration) (*Match, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive, got %s", interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		match, err := f.FindSupportedDevice(ctx)
		if err != nil {
			return nil, err
		}
		if match != nil {
			return match, nil
		}

		f.logger.Debug().Dur("interval", interval).Msg("no supported camera, waiting")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
