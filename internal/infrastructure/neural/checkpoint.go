package neural

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	domainNeural "github.com/surak-alf/addis-trans/internal/domain/neural"
)

// FinalModelName is the file name of the end-of-training snapshot.
const FinalModelName = "dqn_model.json"

// CheckpointStore persists policy snapshots as JSON files in one directory.
type CheckpointStore struct {
	dir string
}

// NewCheckpointStore creates a store rooted at dir.
func NewCheckpointStore(dir string) *CheckpointStore {
	return &CheckpointStore{dir: dir}
}

// Dir returns the checkpoint directory.
func (s *CheckpointStore) Dir() string {
	return s.dir
}

// CheckpointFileName returns the file name for an episode index, or the final
// model name for domainNeural.FinalEpisode.
func CheckpointFileName(episode int) string {
	if episode == domainNeural.FinalEpisode {
		return FinalModelName
	}
	return fmt.Sprintf("dqn_checkpoint_ep%d.json", episode)
}

// Save writes the checkpoint and returns its path.
func (s *CheckpointStore) Save(checkpoint domainNeural.RLCheckpoint) (string, error) {
	if s.dir == "" {
		return "", fmt.Errorf("checkpoint directory not configured")
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create checkpoint directory: %w", err)
	}

	data, err := json.Marshal(checkpoint)
	if err != nil {
		return "", fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	filename := filepath.Join(s.dir, CheckpointFileName(checkpoint.Episode))
	tmp := filename + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := os.Rename(tmp, filename); err != nil {
		return "", fmt.Errorf("failed to write checkpoint: %w", err)
	}
	return filename, nil
}

// Load reads a checkpoint. name may be a path or a file name inside the store.
func (s *CheckpointStore) Load(name string) (*domainNeural.RLCheckpoint, error) {
	filename := name
	if !strings.ContainsRune(name, os.PathSeparator) && s.dir != "" {
		filename = filepath.Join(s.dir, name)
	}
	return LoadCheckpointFile(filename)
}

// LoadCheckpointFile reads a checkpoint from an explicit path.
func LoadCheckpointFile(filename string) (*domainNeural.RLCheckpoint, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domainNeural.ErrCheckpointNotFound, filename)
		}
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	var checkpoint domainNeural.RLCheckpoint
	if err := json.Unmarshal(data, &checkpoint); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}
	return &checkpoint, nil
}

// List returns the checkpoint file names in the store, sorted.
func (s *CheckpointStore) List() ([]string, error) {
	if s.dir == "" {
		return nil, fmt.Errorf("checkpoint directory not configured")
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read checkpoint directory: %w", err)
	}

	var checkpoints []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".json" {
			checkpoints = append(checkpoints, entry.Name())
		}
	}
	sort.Strings(checkpoints)
	return checkpoints, nil
}
