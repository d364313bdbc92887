// Package neural provides neural network infrastructure.
package neural

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	domainNeural "github.com/surak-alf/addis-trans/internal/domain/neural"
)

// denseLayer computes z = W·x + b with W shaped out×in.
type denseLayer struct {
	w *mat.Dense
	b *mat.VecDense
}

// QNetwork is a feed-forward action-value approximator. Hidden layers use
// ReLU, the output layer is linear with one value per action.
type QNetwork struct {
	sizes  []int
	layers []*denseLayer
}

// layerGrad holds the loss gradient for one layer.
type layerGrad struct {
	w *mat.Dense
	b []float64
}

// forwardCache keeps the activations needed for backpropagation.
type forwardCache struct {
	inputs []*mat.Dense // inputs[l] is the input to layer l
	pre    []*mat.Dense // pre[l] is layer l before its nonlinearity
}

// NewQNetwork creates a network with the given layer widths, initialized
// uniformly in ±1/sqrt(fanIn).
func NewQNetwork(sizes []int, rng *rand.Rand) *QNetwork {
	if len(sizes) < 2 {
		panic("neural: a network needs at least an input and an output size")
	}
	n := &QNetwork{
		sizes:  append([]int(nil), sizes...),
		layers: make([]*denseLayer, len(sizes)-1),
	}
	for l := range n.layers {
		in, out := sizes[l], sizes[l+1]
		bound := 1 / math.Sqrt(float64(in))

		w := make([]float64, out*in)
		for i := range w {
			w[i] = (rng.Float64()*2 - 1) * bound
		}
		b := make([]float64, out)
		for i := range b {
			b[i] = (rng.Float64()*2 - 1) * bound
		}
		n.layers[l] = &denseLayer{
			w: mat.NewDense(out, in, w),
			b: mat.NewVecDense(out, b),
		}
	}
	return n
}

// Sizes returns the layer widths.
func (n *QNetwork) Sizes() []int {
	return append([]int(nil), n.sizes...)
}

// InputDim returns the expected state length.
func (n *QNetwork) InputDim() int {
	return n.sizes[0]
}

// OutputDim returns the number of action values.
func (n *QNetwork) OutputDim() int {
	return n.sizes[len(n.sizes)-1]
}

// Forward returns the action values for a single state.
func (n *QNetwork) Forward(state []float64) ([]float64, error) {
	if len(state) != n.InputDim() {
		return nil, fmt.Errorf("%w: state has %d features, network expects %d", domainNeural.ErrShapeMismatch, len(state), n.InputDim())
	}
	x := mat.NewVecDense(len(state), append([]float64(nil), state...))
	last := len(n.layers) - 1
	for l, layer := range n.layers {
		z := mat.NewVecDense(layer.b.Len(), nil)
		z.MulVec(layer.w, x)
		z.AddVec(z, layer.b)
		if l < last {
			raw := z.RawVector().Data
			for i, v := range raw {
				if v < 0 {
					raw[i] = 0
				}
			}
		}
		x = z
	}
	return append([]float64(nil), x.RawVector().Data...), nil
}

// ForwardBatch returns a rows×actions matrix of action values.
func (n *QNetwork) ForwardBatch(states *mat.Dense) *mat.Dense {
	out, _ := n.forwardBatch(states)
	return out
}

func (n *QNetwork) forwardBatch(x *mat.Dense) (*mat.Dense, *forwardCache) {
	cache := &forwardCache{
		inputs: make([]*mat.Dense, len(n.layers)),
		pre:    make([]*mat.Dense, len(n.layers)),
	}
	last := len(n.layers) - 1
	a := x
	for l, layer := range n.layers {
		cache.inputs[l] = a

		var z mat.Dense
		z.Mul(a, layer.w.T())
		bias := layer.b
		z.Apply(func(_, j int, v float64) float64 {
			return v + bias.AtVec(j)
		}, &z)
		cache.pre[l] = &z

		if l == last {
			a = &z
			break
		}
		var act mat.Dense
		act.Apply(func(_, _ int, v float64) float64 {
			return math.Max(0, v)
		}, &z)
		a = &act
	}
	return a, cache
}

// gradients computes the mean-squared error between the values of the taken
// actions and targets, and its gradient with respect to every parameter.
func (n *QNetwork) gradients(states *mat.Dense, actions []int, targets []float64) ([]layerGrad, float64) {
	out, cache := n.forwardBatch(states)
	rows, cols := out.Dims()
	scale := 1 / float64(rows)

	delta := mat.NewDense(rows, cols, nil)
	var loss float64
	for i := 0; i < rows; i++ {
		diff := out.At(i, actions[i]) - targets[i]
		loss += diff * diff
		delta.Set(i, actions[i], 2*diff*scale)
	}
	loss *= scale

	grads := make([]layerGrad, len(n.layers))
	for l := len(n.layers) - 1; l >= 0; l-- {
		var gw mat.Dense
		gw.Mul(delta.T(), cache.inputs[l])

		_, outDim := delta.Dims()
		gb := make([]float64, outDim)
		for i := 0; i < rows; i++ {
			for j := 0; j < outDim; j++ {
				gb[j] += delta.At(i, j)
			}
		}
		grads[l] = layerGrad{w: &gw, b: gb}

		if l == 0 {
			break
		}
		var prev mat.Dense
		prev.Mul(delta, n.layers[l].w)
		pre := cache.pre[l-1]
		prev.Apply(func(i, j int, v float64) float64 {
			if pre.At(i, j) <= 0 {
				return 0
			}
			return v
		}, &prev)
		delta = &prev
	}
	return grads, loss
}

// Loss returns the mean-squared error between the values of the taken
// actions and targets.
func (n *QNetwork) Loss(states *mat.Dense, actions []int, targets []float64) float64 {
	out := n.ForwardBatch(states)
	rows, _ := out.Dims()
	var loss float64
	for i := 0; i < rows; i++ {
		diff := out.At(i, actions[i]) - targets[i]
		loss += diff * diff
	}
	return loss / float64(rows)
}

// CopyFrom overwrites every parameter with the values of src. Both networks
// must have identical layer sizes.
func (n *QNetwork) CopyFrom(src *QNetwork) {
	if !sameSizes(n.sizes, src.sizes) {
		panic(fmt.Sprintf("neural: copy between networks of sizes %v and %v", src.sizes, n.sizes))
	}
	for l, layer := range n.layers {
		layer.w.Copy(src.layers[l].w)
		layer.b.CopyVec(src.layers[l].b)
	}
}

// Clone returns an independent copy of the network.
func (n *QNetwork) Clone() *QNetwork {
	c := &QNetwork{
		sizes:  n.Sizes(),
		layers: make([]*denseLayer, len(n.layers)),
	}
	for l, layer := range n.layers {
		c.layers[l] = &denseLayer{
			w: mat.DenseCopyOf(layer.w),
			b: mat.VecDenseCopyOf(layer.b),
		}
	}
	return c
}

// Equal reports whether both networks hold exactly the same parameters.
func (n *QNetwork) Equal(other *QNetwork) bool {
	if !sameSizes(n.sizes, other.sizes) {
		return false
	}
	for l, layer := range n.layers {
		if !mat.Equal(layer.w, other.layers[l].w) || !mat.Equal(layer.b, other.layers[l].b) {
			return false
		}
	}
	return true
}

// Weights exports the parameters layer by layer.
func (n *QNetwork) Weights() []domainNeural.LayerWeights {
	out := make([]domainNeural.LayerWeights, len(n.layers))
	for l, layer := range n.layers {
		rows, cols := layer.w.Dims()
		out[l] = domainNeural.LayerWeights{
			Rows:    rows,
			Cols:    cols,
			Weights: append([]float64(nil), denseData(layer.w)...),
			Bias:    append([]float64(nil), layer.b.RawVector().Data...),
		}
	}
	return out
}

// SetWeights loads parameters exported by Weights.
func (n *QNetwork) SetWeights(weights []domainNeural.LayerWeights) error {
	if len(weights) != len(n.layers) {
		return fmt.Errorf("%w: got %d layers, network has %d", domainNeural.ErrShapeMismatch, len(weights), len(n.layers))
	}
	for l, lw := range weights {
		rows, cols := n.layers[l].w.Dims()
		if lw.Rows != rows || lw.Cols != cols || len(lw.Weights) != rows*cols || len(lw.Bias) != rows {
			return fmt.Errorf("%w: layer %d is %dx%d, expected %dx%d", domainNeural.ErrShapeMismatch, l, lw.Rows, lw.Cols, rows, cols)
		}
	}
	for l, lw := range weights {
		copy(denseData(n.layers[l].w), lw.Weights)
		copy(n.layers[l].b.RawVector().Data, lw.Bias)
	}
	return nil
}

// ParamCount returns the number of trainable parameters.
func (n *QNetwork) ParamCount() int {
	var total int
	for _, layer := range n.layers {
		rows, cols := layer.w.Dims()
		total += rows*cols + rows
	}
	return total
}

func denseData(m *mat.Dense) []float64 {
	raw := m.RawMatrix()
	if raw.Stride != raw.Cols {
		panic("neural: dense matrix is not contiguous")
	}
	return raw.Data[:raw.Rows*raw.Cols]
}

func sameSizes(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func argmax64(values []float64) int {
	best := 0
	for i := 1; i < len(values); i++ {
		if values[i] > values[best] {
			best = i
		}
	}
	return best
}

func max64(values []float64) float64 {
	return values[argmax64(values)]
}
