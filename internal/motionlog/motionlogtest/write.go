// Package motionlogtest writes synthetic motion logs for tests.
package motionlogtest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/keagan/gyroreel/internal/motionlog"
)

// Header is the preamble every written log starts with
func Header() string {
	var b strings.Builder
	b.WriteString("GYROFLOW IMU LOG\n")
	for i := 1; i < motionlog.DefaultHeaderLines-1; i++ {
		fmt.Fprintf(&b, "meta%d,value\n", i)
	}
	b.WriteString("t,rx,ry,rz,ax,ay,az\n")
	return b.String()
}

// Write creates a log of n frames at path. frame returns rx ry rz ax ay az for
// frame i; shorter slices are padded with zeros.
func Write(t *testing.T, path string, n int, frame func(i int) []float64) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("create log dir: %v", err)
	}

	var b strings.Builder
	b.WriteString(Header())
	for i := 0; i < n; i++ {
		values := make([]float64, 6)
		copy(values, frame(i))
		fmt.Fprintf(&b, "%d", i)
		for _, v := range values {
			fmt.Fprintf(&b, ",%g", v)
		}
		b.WriteByte('\n')
	}

	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		t.Fatalf("write motion log: %v", err)
	}
	return path
}

// Background is the rx value of every non-spike frame. Sums of it are exact
// in float64, so equal windows score exactly equal.
const Background = 0.25

// Spike returns a frame function with a constant background on rx and a
// single spike of magnitude m at frame p.
func Spike(p int, m float64) func(int) []float64 {
	return func(i int) []float64 {
		if i == p {
			return []float64{m, 0, 0}
		}
		return []float64{Background, 0, 0}
	}
}

// AppendLine adds raw text to the end of a log
func AppendLine(t *testing.T, path, line string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatalf("open motion log: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		t.Fatalf("append to motion log: %v", err)
	}
}
