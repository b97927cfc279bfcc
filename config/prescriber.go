package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/giygas/prescription-builder/catalog/entities"
	"gopkg.in/yaml.v3"
)

// DefaultDoctorName is printed when no prescriber profile names a doctor.
const DefaultDoctorName = "Dr. Unknown"

// LoadPrescriber reads the prescriber profile from a YAML file.
// A missing file yields the default profile.
func LoadPrescriber(path string) (entities.Prescriber, error) {
	p := entities.Prescriber{DoctorName: DefaultDoctorName}
	if path == "" {
		return p, nil
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return p, fmt.Errorf("failed to read prescriber file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("failed to parse prescriber file %s: %w", path, err)
	}

	if strings.TrimSpace(p.DoctorName) == "" {
		p.DoctorName = DefaultDoctorName
	}

	return p, nil
}
