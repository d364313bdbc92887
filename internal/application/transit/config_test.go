package transit

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainTransit "github.com/surak-alf/addis-trans/internal/domain/transit"
)

func TestDefaultTrainingConfig_IsValid(t *testing.T) {
	config := DefaultTrainingConfig()
	require.NoError(t, config.Validate())
	assert.Equal(t, 112, config.Agent.InputDim)
	assert.Equal(t, 100, config.Episodes)
	assert.Equal(t, 10, config.CheckpointEvery)
}

func TestTrainingConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*TrainingConfig)
	}{
		{"input dim mismatch", func(c *TrainingConfig) { c.Agent.InputDim = 100 }},
		{"action count mismatch", func(c *TrainingConfig) { c.Agent.NumActions = 9 }},
		{"route not simulated", func(c *TrainingConfig) { c.Transit.RouteIDs = []string{"0", "7"} }},
		{"horizon past simulation", func(c *TrainingConfig) { c.Simulator.EndTime = 25000 }},
		{"no episodes", func(c *TrainingConfig) { c.Episodes = 0 }},
		{"no checkpoint interval", func(c *TrainingConfig) { c.CheckpointEvery = 0 }},
		{"no checkpoint dir", func(c *TrainingConfig) { c.CheckpointDir = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultTrainingConfig()
			tt.mutate(&config)
			assert.ErrorIs(t, config.Validate(), domainTransit.ErrInvalidConfig)
		})
	}
}

func TestLoadTrainingConfig_OverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "train.json")
	data := `{"episodes": 5, "agent": {"learningRate": 0.001}, "transit": {"targetHeadway": 420}}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	config, err := LoadTrainingConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 5, config.Episodes)
	assert.Equal(t, 0.001, config.Agent.LearningRate)
	assert.Equal(t, 420.0, config.Transit.TargetHeadway)
	assert.Equal(t, 0.99, config.Agent.Gamma)
	assert.Equal(t, 10, config.CheckpointEvery)
	assert.NoError(t, config.Validate())
}

func TestLoadTrainingConfig_Errors(t *testing.T) {
	_, err := LoadTrainingConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0644))
	_, err = LoadTrainingConfig(path)
	assert.Error(t, err)

	config, err := LoadTrainingConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultTrainingConfig().Episodes, config.Episodes)
}
