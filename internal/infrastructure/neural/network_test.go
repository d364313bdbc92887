package neural

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	domainNeural "github.com/surak-alf/addis-trans/internal/domain/neural"
)

func TestQNetwork_ForwardShape(t *testing.T) {
	net := NewQNetwork([]int{112, 256, 128, 27}, rand.New(rand.NewSource(1)))

	assert.Equal(t, 112, net.InputDim())
	assert.Equal(t, 27, net.OutputDim())
	assert.Equal(t, 112*256+256+256*128+128+128*27+27, net.ParamCount())

	q, err := net.Forward(make([]float64, 112))
	require.NoError(t, err)
	assert.Len(t, q, 27)

	_, err = net.Forward(make([]float64, 111))
	assert.ErrorIs(t, err, domainNeural.ErrShapeMismatch)
}

func TestQNetwork_ForwardBatchMatchesForward(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	net := NewQNetwork([]int{5, 8, 6, 3}, rng)

	states := mat.NewDense(4, 5, nil)
	for i := 0; i < 4; i++ {
		for j := 0; j < 5; j++ {
			states.Set(i, j, rng.NormFloat64())
		}
	}

	batch := net.ForwardBatch(states)
	for i := 0; i < 4; i++ {
		q, err := net.Forward(mat.Row(nil, i, states))
		require.NoError(t, err)
		for a := range q {
			assert.InDelta(t, q[a], batch.At(i, a), 1e-12)
		}
	}
}

func TestQNetwork_HiddenLayersRectify(t *testing.T) {
	net := NewQNetwork([]int{2, 2, 1}, rand.New(rand.NewSource(1)))
	require.NoError(t, net.SetWeights([]domainNeural.LayerWeights{
		{Rows: 2, Cols: 2, Weights: []float64{1, 0, 0, 1}, Bias: []float64{0, 0}},
		{Rows: 1, Cols: 2, Weights: []float64{1, 1}, Bias: []float64{-0.5}},
	}))

	q, err := net.Forward([]float64{-3, 2})
	require.NoError(t, err)
	// hidden = relu([-3, 2]) = [0, 2]; output is linear and may be negative
	assert.InDelta(t, 1.5, q[0], 1e-12)

	q, err = net.Forward([]float64{-3, -2})
	require.NoError(t, err)
	assert.InDelta(t, -0.5, q[0], 1e-12)
}

func TestQNetwork_GradientsMatchFiniteDifferences(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	net := NewQNetwork([]int{3, 5, 4, 2}, rng)

	states := mat.NewDense(6, 3, nil)
	for i := 0; i < 6; i++ {
		for j := 0; j < 3; j++ {
			states.Set(i, j, rng.Float64()*2-1)
		}
	}
	actions := []int{0, 1, 1, 0, 1, 0}
	targets := []float64{0.5, -0.2, 0.1, 0.3, -0.4, 0.0}

	grads, _ := net.gradients(states, actions, targets)

	const h = 1e-6
	for l, layer := range net.layers {
		params := denseData(layer.w)
		analytic := denseData(grads[l].w)
		for i := range params {
			orig := params[i]
			params[i] = orig + h
			plus := net.Loss(states, actions, targets)
			params[i] = orig - h
			minus := net.Loss(states, actions, targets)
			params[i] = orig

			numeric := (plus - minus) / (2 * h)
			assert.InDelta(t, numeric, analytic[i], 1e-6, "layer %d weight %d", l, i)
		}

		bias := layer.b.RawVector().Data
		for i := range bias {
			orig := bias[i]
			bias[i] = orig + h
			plus := net.Loss(states, actions, targets)
			bias[i] = orig - h
			minus := net.Loss(states, actions, targets)
			bias[i] = orig

			numeric := (plus - minus) / (2 * h)
			assert.InDelta(t, numeric, grads[l].b[i], 1e-6, "layer %d bias %d", l, i)
		}
	}
}

func TestQNetwork_CopyCloneEqual(t *testing.T) {
	a := NewQNetwork([]int{4, 6, 2}, rand.New(rand.NewSource(1)))
	b := NewQNetwork([]int{4, 6, 2}, rand.New(rand.NewSource(2)))
	require.False(t, a.Equal(b))

	b.CopyFrom(a)
	assert.True(t, a.Equal(b))

	c := a.Clone()
	denseData(c.layers[0].w)[0] += 1
	assert.False(t, a.Equal(c), "clone must not share storage")

	assert.Panics(t, func() {
		a.CopyFrom(NewQNetwork([]int{4, 5, 2}, rand.New(rand.NewSource(1))))
	})
}

func TestQNetwork_WeightsRoundTrip(t *testing.T) {
	a := NewQNetwork([]int{4, 6, 2}, rand.New(rand.NewSource(1)))
	b := NewQNetwork([]int{4, 6, 2}, rand.New(rand.NewSource(9)))

	require.NoError(t, b.SetWeights(a.Weights()))
	assert.True(t, a.Equal(b))

	wrong := NewQNetwork([]int{4, 7, 2}, rand.New(rand.NewSource(1)))
	assert.ErrorIs(t, wrong.SetWeights(a.Weights()), domainNeural.ErrShapeMismatch)
	assert.ErrorIs(t, wrong.SetWeights(a.Weights()[:1]), domainNeural.ErrShapeMismatch)
}

func TestArgmax64_LowestIndexWinsTies(t *testing.T) {
	assert.Equal(t, 1, argmax64([]float64{0, 3, 1, 3}))
	assert.Equal(t, 0, argmax64([]float64{2, 2, 2}))
	assert.Equal(t, 3.0, max64([]float64{0, 3, 1, 3}))
	assert.False(t, math.IsNaN(max64([]float64{-1})))
}

func TestAdam_FirstStepMovesAgainstGradient(t *testing.T) {
	net := NewQNetwork([]int{2, 1}, rand.New(rand.NewSource(1)))
	require.NoError(t, net.SetWeights([]domainNeural.LayerWeights{
		{Rows: 1, Cols: 2, Weights: []float64{0, 0}, Bias: []float64{0}},
	}))

	grads := []layerGrad{{w: mat.NewDense(1, 2, []float64{2, -0.5}), b: []float64{0}}}
	opt := NewAdam(0.1)
	opt.step(net, grads)

	w := net.Weights()[0]
	// the bias-corrected first step has magnitude lr for any non-zero gradient
	assert.InDelta(t, -0.1, w.Weights[0], 1e-6)
	assert.InDelta(t, 0.1, w.Weights[1], 1e-6)
	assert.Equal(t, 0.0, w.Bias[0])
	assert.Equal(t, 1, opt.Steps())
}
