package artifacts

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strconv"
)

// Map is a decoded depth or normal map. Values are stored channel-major:
// all pixels of channel 0, then channel 1, and so on.
type Map struct {
	Width    int
	Height   int
	Channels int
	Values   []float32
}

// At returns the value at row, col in channel ch.
func (m *Map) At(row, col, ch int) float32 {
	return m.Values[ch*m.Width*m.Height+row*m.Width+col]
}

// Range returns the minPct and maxPct percentiles of the strictly positive
// values in channel 0. It returns ok=false when no positive value exists.
func (m *Map) Range(minPct, maxPct float64) (lo, hi float32, ok bool) {
	plane := m.Width * m.Height
	if plane == 0 || len(m.Values) < plane {
		return 0, 0, false
	}
	valid := make([]float32, 0, plane)
	for _, v := range m.Values[:plane] {
		if v > 0 {
			valid = append(valid, v)
		}
	}
	if len(valid) == 0 {
		return 0, 0, false
	}
	slices.Sort(valid)
	return valid[percentileIndex(len(valid), minPct)], valid[percentileIndex(len(valid), maxPct)], true
}

func percentileIndex(n int, pct float64) int {
	pct = math.Max(0, math.Min(100, pct))
	idx := int(pct / 100 * float64(n-1))
	return idx
}

// maxMapValues bounds a decoded payload to 1 GiB of float32 values.
const maxMapValues = 1 << 28

// ErrMapTooLarge marks a header whose dimensions exceed the payload that can
// back them.
var ErrMapTooLarge = errors.New("map dimensions exceed payload")

// ReadMap decodes a map file: an ASCII "width&height&channels&" header
// followed by little-endian float32 values. The header may not claim more
// values than the file holds.
func ReadMap(path string) (*Map, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open map: %w", err)
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat map: %w", err)
	}
	return decodeMap(bufio.NewReader(file), min(info.Size()/4, maxMapValues))
}

// DecodeMap decodes a map from r.
func DecodeMap(r *bufio.Reader) (*Map, error) {
	return decodeMap(r, maxMapValues)
}

func decodeMap(r *bufio.Reader, limit int64) (*Map, error) {
	dims := make([]int, 3)
	for i := range dims {
		field, err := r.ReadString('&')
		if err != nil {
			return nil, fmt.Errorf("read map header: %w", err)
		}
		value, err := strconv.Atoi(field[:len(field)-1])
		if err != nil {
			return nil, fmt.Errorf("parse map header %q: %w", field, err)
		}
		if value <= 0 {
			return nil, fmt.Errorf("parse map header: dimension %d must be positive", value)
		}
		dims[i] = value
	}

	count, ok := valueCount(dims, limit)
	if !ok {
		return nil, fmt.Errorf("%w: %dx%dx%d, at most %d values", ErrMapTooLarge, dims[0], dims[1], dims[2], limit)
	}
	m := &Map{Width: dims[0], Height: dims[1], Channels: dims[2]}
	m.Values = make([]float32, count)
	if err := binary.Read(r, binary.LittleEndian, m.Values); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read map data: truncated payload, want %d values", count)
		}
		return nil, fmt.Errorf("read map data: %w", err)
	}
	return m, nil
}

// valueCount multiplies dims, failing once the product passes limit.
func valueCount(dims []int, limit int64) (int64, bool) {
	total := int64(1)
	for _, d := range dims {
		if int64(d) > limit/total {
			return 0, false
		}
		total *= int64(d)
	}
	return total, true
}
