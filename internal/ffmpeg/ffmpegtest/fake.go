// Package ffmpegtest provides a scripted stand-in for the ffmpeg binary so
// that command construction can be tested without real video tooling.
package ffmpegtest

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// Fake is a shell script posing as ffmpeg. Every invocation appends its
// arguments to a calls log and copies any concat manifest it is handed. The
// last argument is created as an empty output file unless it matches one of
// the failing substrings, in which case the script exits with status 3.
type Fake struct {
	Path string
	dir  string
}

// New writes the fake binary into a temp dir. Outputs whose path contains any
// of failOn make the fake fail.
func New(t *testing.T, failOn ...string) *Fake {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake ffmpeg needs a POSIX shell")
	}

	dir := t.TempDir()
	var cases strings.Builder
	for _, f := range failOn {
		fmt.Fprintf(&cases, "  *%s*) echo \"fake: cannot write $last\" >&2; exit 3 ;;\n", f)
	}

	script := fmt.Sprintf(`#!/bin/sh
calls=%[1]q
n=0
while ! mkdir "$calls/slot-$n" 2>/dev/null; do n=$((n+1)); done
out="$calls/call-$n"
: > "$out"
prev=""
last=""
for a in "$@"; do
  printf '%%s\n' "$a" >> "$out"
  if [ "$prev" = "-i" ] && [ "${a%%.txt}" != "$a" ]; then
    cp "$a" "$calls/manifest-$n"
  fi
  prev="$a"
  last="$a"
done
case "$last" in
%[2]s  *) ;;
esac
: > "$last"
`, dir, cases.String())

	path := filepath.Join(dir, "ffmpeg")
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatalf("write fake ffmpeg: %v", err)
	}
	return &Fake{Path: path, dir: dir}
}

// Calls returns the argument lists of every invocation so far, in order
func (f *Fake) Calls(t *testing.T) [][]string {
	t.Helper()
	var calls [][]string
	for i := 0; ; i++ {
		data, err := os.ReadFile(filepath.Join(f.dir, fmt.Sprintf("call-%d", i)))
		if os.IsNotExist(err) {
			return calls
		}
		if err != nil {
			t.Fatalf("read fake call %d: %v", i, err)
		}
		calls = append(calls, strings.Split(strings.TrimSuffix(string(data), "\n"), "\n"))
	}
}

// Manifest returns the concat manifest handed to call n, if any
func (f *Fake) Manifest(t *testing.T, n int) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(f.dir, fmt.Sprintf("manifest-%d", n)))
	if err != nil {
		t.Fatalf("read manifest of call %d: %v", n, err)
	}
	return string(data)
}
