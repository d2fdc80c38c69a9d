package motionlog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Reader parses .gcsv motion logs
type Reader struct {
	format   Format
	channels []Channel
	need     int
}

// NewReader creates a reader for the given layout
func NewReader(format Format) (*Reader, error) {
	if err := format.Validate(); err != nil {
		return nil, fmt.Errorf("invalid motion log format: %w", err)
	}
	return &Reader{
		format:   format,
		channels: format.channels(),
		need:     format.minFields(),
	}, nil
}

// Read loads the log at path
func (r *Reader) Read(path string) (*MotionLog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open motion log: %w", err)
	}
	defer f.Close()

	log, err := r.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("read motion log %s: %w", path, err)
	}
	log.Path = path
	return log, nil
}

// Parse reads a log from an arbitrary stream
func (r *Reader) Parse(src io.Reader) (*MotionLog, error) {
	log := &MotionLog{
		Channels: append([]Channel(nil), r.channels...),
		Samples:  make([]FrameSample, 0, 1024),
	}

	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		if line <= r.format.HeaderLines {
			continue
		}

		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		sample, ok := r.parseRow(text)
		if !ok {
			log.Skipped++
			continue
		}
		log.Samples = append(log.Samples, sample)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return log, nil
}

// parseRow extracts the tracked fields of one comma-delimited row
func (r *Reader) parseRow(text string) (FrameSample, bool) {
	fields := strings.Split(text, ",")
	if len(fields) < r.need {
		return nil, false
	}

	sample := make(FrameSample, len(r.channels))
	for i, ch := range r.channels {
		v, err := strconv.ParseFloat(strings.TrimSpace(fields[r.format.Columns[ch]]), 64)
		if err != nil {
			return nil, false
		}
		sample[i] = v
	}
	return sample, true
}
