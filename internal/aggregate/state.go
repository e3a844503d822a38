package aggregate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// StateStore persists the last fully aggregated event timestamp.
type StateStore interface {
	Load(ctx context.Context) (uint64, bool, error)
	Save(ctx context.Context, ts uint64) error
}

// FileStateStore stores aggregation progress in a local JSON file. The
// record is bound to the window length it was produced with: resuming
// with a different window would stitch half-aggregated windows together,
// so mismatched state is treated as absent and the run starts over.
type FileStateStore struct {
	Path          string
	WindowSeconds uint32
}

type progressRecord struct {
	LastAggregatedTS uint64 `json:"last_aggregated_ts"`
	WindowSeconds    uint32 `json:"window_seconds"`
	UpdatedAt        string `json:"updated_at"`
}

func (s *FileStateStore) Load(ctx context.Context) (uint64, bool, error) {
	if s == nil || s.Path == "" {
		return 0, false, nil
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("read aggregation state: %w", err)
	}

	var rec progressRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return 0, false, fmt.Errorf("parse aggregation state: %w", err)
	}
	if rec.WindowSeconds != 0 && s.WindowSeconds != 0 && rec.WindowSeconds != s.WindowSeconds {
		return 0, false, nil
	}
	return rec.LastAggregatedTS, true, nil
}

func (s *FileStateStore) Save(ctx context.Context, ts uint64) error {
	if s == nil || s.Path == "" {
		return nil
	}
	dir := filepath.Dir(s.Path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
	}

	rec := progressRecord{
		LastAggregatedTS: ts,
		WindowSeconds:    s.WindowSeconds,
		UpdatedAt:        time.Now().UTC().Format(time.RFC3339Nano),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal aggregation state: %w", err)
	}

	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write aggregation state tmp: %w", err)
	}
	if err := os.Rename(tmp, s.Path); err != nil {
		return fmt.Errorf("rename aggregation state: %w", err)
	}
	return nil
}
