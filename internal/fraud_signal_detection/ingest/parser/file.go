package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/domain"
)

// ParseFile picks the decoder from the file extension.
func ParseFile(path string) (*domain.Snapshot, []byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	s, err := ParseBytes(filepath.Ext(path), b)
	if err != nil {
		return nil, nil, err
	}
	return s, b, nil
}

// ParseBytes decodes b as JSON or YAML depending on ext.
func ParseBytes(ext string, b []byte) (*domain.Snapshot, error) {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "json":
		return ParseJSONBytes(b)
	case "yaml", "yml":
		return ParseYAMLBytes(b)
	default:
		return nil, fmt.Errorf("unsupported snapshot format %q", ext)
	}
}
