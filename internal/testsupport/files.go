package testsupport

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// Touch creates an empty file at path, creating parent directories. Grid
// probes only check existence, so empty artifacts are enough for them.
func Touch(t testing.TB, path string) {
	t.Helper()
	writeBytes(t, path, nil)
}

// EncodeMap returns a depth or normal map in the on-disk layout: the
// "width&height&channels&" header followed by little-endian float32 values.
// values may be shorter than width*height*channels to build truncated files.
func EncodeMap(t testing.TB, width, height, channels int, values []float32) []byte {
	t.Helper()
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%d&%d&%d&", width, height, channels)
	if err := binary.Write(&buf, binary.LittleEndian, values); err != nil {
		t.Fatalf("encode map values: %v", err)
	}
	return buf.Bytes()
}

// WriteMap writes an encoded map to path.
func WriteMap(t testing.TB, path string, width, height, channels int, values []float32) {
	t.Helper()
	writeBytes(t, path, EncodeMap(t, width, height, channels, values))
}

func writeBytes(t testing.TB, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
