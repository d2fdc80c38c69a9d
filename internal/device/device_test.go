package device

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/keagan/gyroreel/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `Bus 002 Device 001: ID 1d6b:0003 Linux Foundation 3.0 root hub
Bus 001 Device 004: ID 2672:0011 GoPro HERO9 Black
garbage line
Bus 001 Device 001: ID 1d6b:0002 Linux Foundation 2.0 root hub
`

var gopro = config.CameraConfig{ID: "2672:0011", Name: "GoPro HERO", Folder: "GoPro"}

type staticLister struct {
	mu      sync.Mutex
	results [][]Device
	calls   int
	err     error
}

func (s *staticLister) List(context.Context) ([]Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	i := s.calls
	if i >= len(s.results) {
		i = len(s.results) - 1
	}
	s.calls++
	return s.results[i], nil
}

func TestParseLSUSB(t *testing.T) {
	devices := ParseLSUSB(sample)
	require.Len(t, devices, 3)
	assert.Equal(t, Device{Bus: "001", Number: "004", ID: "2672:0011", Description: "GoPro HERO9 Black"}, devices[1])
	assert.Empty(t, ParseLSUSB(""))
}

func TestFindSupportedDevice(t *testing.T) {
	lister := &staticLister{results: [][]Device{ParseLSUSB(sample)}}
	f := NewFinder(zerolog.Nop(), lister, []config.CameraConfig{gopro})

	match, err := f.FindSupportedDevice(context.Background())
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "004", match.Device.Number)
	assert.Equal(t, "GoPro", match.Camera.Folder)
}

func TestFindSupportedDeviceNone(t *testing.T) {
	lister := &staticLister{results: [][]Device{ParseLSUSB(sample)}}
	f := NewFinder(zerolog.Nop(), lister, []config.CameraConfig{{ID: "dead:beef"}})

	match, err := f.FindSupportedDevice(context.Background())
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestFindSupportedDeviceListerError(t *testing.T) {
	f := NewFinder(zerolog.Nop(), &staticLister{err: errors.New("no usb")}, []config.CameraConfig{gopro})
	_, err := f.FindSupportedDevice(context.Background())
	assert.Error(t, err)
}

func TestWaitPollsUntilConnected(t *testing.T) {
	lister := &staticLister{results: [][]Device{nil, nil, ParseLSUSB(sample)}}
	f := NewFinder(zerolog.Nop(), lister, []config.CameraConfig{gopro})

	match, err := f.Wait(context.Background(), time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, 3, lister.calls)
}

func TestWaitStopsOnCancel(t *testing.T) {
	lister := &staticLister{results: [][]Device{nil}}
	f := NewFinder(zerolog.Nop(), lister, []config.CameraConfig{gopro})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := f.Wait(ctx, time.Millisecond)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestWaitRejectsNonPositiveInterval(t *testing.T) {
	for _, interval := range []time.Duration{0, -time.Second} {
		lister := &staticLister{results: [][]Device{nil}}
		f := NewFinder(zerolog.Nop(), lister, []config.CameraConfig{gopro})

		_, err := f.Wait(context.Background(), interval)
		assert.Error(t, err, "interval %s", interval)
		assert.Zero(t, lister.calls)
	}
}

func TestLSUSBRunsBinary(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	dir := t.TempDir()
	script := filepath.Join(dir, "lsusb")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\ncat <<'EOF'\n"+sample+"EOF\n"), 0755))

	devices, err := LSUSB{Path: script}.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, devices, 3)

	failing := filepath.Join(dir, "broken")
	require.NoError(t, os.WriteFile(failing, []byte("#!/bin/sh\necho 'unable to initialize libusb' >&2\nexit 1\n"), 0755))
	_, err = LSUSB{Path: failing}.List(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "libusb")
}
