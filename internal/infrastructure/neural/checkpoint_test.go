package neural

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainNeural "github.com/surak-alf/addis-trans/internal/domain/neural"
)

func TestCheckpointFileName(t *testing.T) {
	assert.Equal(t, "dqn_checkpoint_ep0.json", CheckpointFileName(0))
	assert.Equal(t, "dqn_checkpoint_ep50.json", CheckpointFileName(50))
	assert.Equal(t, FinalModelName, CheckpointFileName(domainNeural.FinalEpisode))
}

func TestCheckpointStore_SaveLoadList(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "checkpoints")
	store := NewCheckpointStore(dir)

	agent, err := NewDQNAgent(smallConfig())
	require.NoError(t, err)

	path, err := store.Save(agent.Checkpoint("run-a", 10))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "dqn_checkpoint_ep10.json"), path)

	_, err = store.Save(agent.Checkpoint("run-a", domainNeural.FinalEpisode))
	require.NoError(t, err)

	names, err := store.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"dqn_checkpoint_ep10.json", "dqn_model.json"}, names)

	loaded, err := store.Load("dqn_checkpoint_ep10.json")
	require.NoError(t, err)
	assert.Equal(t, "run-a", loaded.RunID)
	assert.Equal(t, 10, loaded.Episode)
	assert.Equal(t, agent.Config().LayerSizes(), loaded.Config.LayerSizes())

	config := smallConfig()
	config.Seed = 77
	restored, err := NewDQNAgent(config)
	require.NoError(t, err)
	require.NoError(t, restored.Restore(loaded))
	assert.True(t, agent.PolicyNetwork().Equal(restored.PolicyNetwork()))

	byPath, err := store.Load(path)
	require.NoError(t, err)
	assert.Equal(t, loaded.ID, byPath.ID)
}

func TestCheckpointStore_Missing(t *testing.T) {
	store := NewCheckpointStore(t.TempDir())

	_, err := store.Load("dqn_checkpoint_ep3.json")
	assert.ErrorIs(t, err, domainNeural.ErrCheckpointNotFound)

	names, err := NewCheckpointStore(filepath.Join(t.TempDir(), "absent")).List()
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestCheckpointStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{not json"), 0644))

	_, err := NewCheckpointStore(dir).Load("bad.json")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domainNeural.ErrCheckpointNotFound)
}

func TestCheckpointStore_Unconfigured(t *testing.T) {
	store := NewCheckpointStore("")
	_, err := store.Save(domainNeural.RLCheckpoint{})
	assert.Error(t, err)
	_, err = store.List()
	assert.Error(t, err)
}
