package runs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

const metaFile = "run.json"

type Run struct {
	RunID     string    `json:"run_id" yaml:"run_id"`
	Label     string    `json:"label" yaml:"label"`
	Source    string    `json:"source" yaml:"source"`
	Dir       string    `json:"dir" yaml:"dir"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Create allocates a fresh run directory:
//
//	<outBaseDir>/runs/<run-id>/run.json
//
// Every export of the run is written next to run.json.
func Create(outBaseDir, label, source string) (*Run, error) {
	if outBaseDir == "" {
		outBaseDir = "out"
	}
	if label == "" {
		label = "analysis"
	}

	id := uuid.NewString()
	dir := filepath.Join(outBaseDir, "runs", id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create run dir: %w", err)
	}

	r := &Run{
		RunID:     id,
		Label:     label,
		Source:    source,
		Dir:       dir,
		CreatedAt: time.Now().UTC(),
	}
	meta, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(dir, metaFile), meta, 0644); err != nil {
		return nil, fmt.Errorf("write run metadata: %w", err)
	}
	return r, nil
}

func Read(outBaseDir, runID string) (*Run, error) {
	if outBaseDir == "" {
		outBaseDir = "out"
	}
	if _, err := uuid.Parse(runID); err != nil {
		return nil, fmt.Errorf("invalid run id %q: %w", runID, err)
	}
	b, err := os.ReadFile(filepath.Join(outBaseDir, "runs", runID, metaFile))
	if err != nil {
		return nil, err
	}
	var r Run
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Path returns the location of an export file inside the run directory.
func (r *Run) Path(name string) string {
	return filepath.Join(r.Dir, name)
}
