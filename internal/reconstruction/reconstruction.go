package reconstruction

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Reconstruction summarizes a sparse model used as input to the prepare stage.
type Reconstruction struct {
	// ModelPath is the directory holding cameras/images/points3D files.
	ModelPath string
	// ImagePath is the directory with the original source images.
	ImagePath string
	// RegisteredImages is the number of images registered in the model.
	RegisteredImages int
}

// NumRegImages returns the number of registered images.
func (r *Reconstruction) NumRegImages() int {
	if r == nil {
		return 0
	}
	return r.RegisteredImages
}

// Load reads the registered image count from modelPath. The binary
// images.bin is preferred; images.txt is used when no binary model exists.
func Load(modelPath, imagePath string) (*Reconstruction, error) {
	modelPath = strings.TrimSpace(modelPath)
	if modelPath == "" {
		return nil, errors.New("sparse model path required")
	}
	recon := &Reconstruction{ModelPath: modelPath, ImagePath: imagePath}

	count, err := countBinary(filepath.Join(modelPath, "images.bin"))
	if err == nil {
		recon.RegisteredImages = count
		return recon, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	count, err = countText(filepath.Join(modelPath, "images.txt"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("no images.bin or images.txt in %s", modelPath)
		}
		return nil, err
	}
	recon.RegisteredImages = count
	return recon, nil
}

func countBinary(path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	var n uint64
	if err := binary.Read(file, binary.LittleEndian, &n); err != nil {
		return 0, fmt.Errorf("read image count from %s: %w", path, err)
	}
	return int(n), nil
}

// countText counts image records in images.txt. Each record is a header line
// followed by a 2D point line that may be blank.
func countText(path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	count := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		count++
		if !scanner.Scan() {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("read %s: %w", path, err)
	}
	return count, nil
}
