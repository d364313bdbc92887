package neural

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainNeural "github.com/surak-alf/addis-trans/internal/domain/neural"
)

func transitionWithReward(r float64) domainNeural.Transition {
	return domainNeural.Transition{
		State:     []float64{r},
		Action:    0,
		Reward:    r,
		NextState: []float64{r + 1},
	}
}

func TestReplayBuffer_RejectsZeroCapacity(t *testing.T) {
	_, err := NewReplayBuffer(0, rand.New(rand.NewSource(1)))
	assert.ErrorIs(t, err, domainNeural.ErrInvalidConfig)
}

func TestReplayBuffer_EvictsOldestWhenFull(t *testing.T) {
	rb, err := NewReplayBuffer(5, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	for i := 0; i < 8; i++ {
		rb.Push(transitionWithReward(float64(i)))
	}

	assert.Equal(t, 5, rb.Len())
	assert.Equal(t, 5, rb.Capacity())

	items := rb.Items()
	require.Len(t, items, 5)
	for i, item := range items {
		assert.Equal(t, float64(i+3), item.Reward, "position %d", i)
	}
}

func TestReplayBuffer_ItemsBeforeWrap(t *testing.T) {
	rb, err := NewReplayBuffer(4, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	rb.Push(transitionWithReward(1))
	rb.Push(transitionWithReward(2))

	items := rb.Items()
	require.Len(t, items, 2)
	assert.Equal(t, 1.0, items[0].Reward)
	assert.Equal(t, 2.0, items[1].Reward)
}

func TestReplayBuffer_SampleReturnsDistinctCopies(t *testing.T) {
	rb, err := NewReplayBuffer(100, rand.New(rand.NewSource(42)))
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		rb.Push(transitionWithReward(float64(i)))
	}

	batch, err := rb.Sample(20)
	require.NoError(t, err)
	require.Len(t, batch, 20)

	seen := make(map[float64]bool)
	for _, tr := range batch {
		assert.False(t, seen[tr.Reward], "duplicate transition %v", tr.Reward)
		seen[tr.Reward] = true
	}

	batch[0].State[0] = -100
	for _, item := range rb.Items() {
		assert.NotEqual(t, -100.0, item.State[0])
	}
	assert.Equal(t, 20, rb.Len(), "sampling must not remove transitions")
}

func TestReplayBuffer_SampleInsufficient(t *testing.T) {
	rb, err := NewReplayBuffer(10, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	rb.Push(transitionWithReward(1))

	_, err = rb.Sample(2)
	assert.ErrorIs(t, err, domainNeural.ErrInsufficientSamples)

	_, err = rb.Sample(0)
	assert.ErrorIs(t, err, domainNeural.ErrInsufficientSamples)
}

func TestReplayBuffer_PushCopiesInput(t *testing.T) {
	rb, err := NewReplayBuffer(2, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	tr := transitionWithReward(1)
	rb.Push(tr)
	tr.State[0] = 99

	assert.Equal(t, 1.0, rb.Items()[0].State[0])
}

func TestReplayBuffer_Clear(t *testing.T) {
	rb, err := NewReplayBuffer(3, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		rb.Push(transitionWithReward(float64(i)))
	}
	rb.Clear()
	assert.Equal(t, 0, rb.Len())

	rb.Push(transitionWithReward(7))
	assert.Equal(t, 7.0, rb.Items()[0].Reward)
}
