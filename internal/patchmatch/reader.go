package patchmatch

import (
	"bufio"
	"os"
	"strings"

	"mvspipe/internal/services"
)

// ConfigFileName is the patch-match configuration written by the prepare stage
// under the workspace's dense directory.
const ConfigFileName = "patch-match.cfg"

const maxLineBytes = 16 * 1024 * 1024

// ReadReferenceImages returns the reference image names listed in a patch-match
// configuration, in file order and without deduplication.
//
// The file alternates a reference image line with a source image line. After
// trimming, blank lines and '#' comments are skipped; of the remaining lines
// the 1st, 3rd, 5th, ... are reference names and the line after each is
// dropped. The file is re-read on every call.
//
// A file that cannot be opened or read yields an error marked
// services.ErrConfigUnreadable.
func ReadReferenceImages(configPath string) ([]string, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, services.Wrap(services.ErrConfigUnreadable, "patch-match", "open config",
			"patch-match configuration cannot be opened", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	names := make([]string, 0)
	expectReference := true
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if expectReference {
			names = append(names, line)
		}
		expectReference = !expectReference
	}
	if err := scanner.Err(); err != nil {
		return nil, services.Wrap(services.ErrConfigUnreadable, "patch-match", "read config",
			"patch-match configuration cannot be read", err)
	}
	return names, nil
}
