package prescription

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultArtifactName is the file name of a saved prescription.
const DefaultArtifactName = "Prescription.pdf"

// Sink receives a rendered prescription and reports where it went.
type Sink interface {
	Deliver(doc []byte) (string, error)
}

// FileSink writes the document to Path, or to Dir/Prescription.pdf when Path
// is empty.
type FileSink struct {
	Dir  string
	Path string
}

func (s FileSink) Deliver(doc []byte) (string, error) {
	path := s.Path
	if path == "" {
		path = filepath.Join(s.Dir, DefaultArtifactName)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	// temp file first, then rename into place
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, doc, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return path, nil
}
