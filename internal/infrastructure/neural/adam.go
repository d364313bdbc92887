package neural

import "math"

// Adam is the Adam optimizer bound to one network's parameter shapes.
type Adam struct {
	LearningRate float64
	Beta1        float64
	Beta2        float64
	Epsilon      float64

	t      int
	mW, vW [][]float64
	mB, vB [][]float64
}

// NewAdam creates an optimizer with the usual β1=0.9, β2=0.999, ε=1e-8.
func NewAdam(learningRate float64) *Adam {
	return &Adam{
		LearningRate: learningRate,
		Beta1:        0.9,
		Beta2:        0.999,
		Epsilon:      1e-8,
	}
}

// Steps returns the number of updates applied.
func (a *Adam) Steps() int {
	return a.t
}

func (a *Adam) init(n *QNetwork) {
	a.mW = make([][]float64, len(n.layers))
	a.vW = make([][]float64, len(n.layers))
	a.mB = make([][]float64, len(n.layers))
	a.vB = make([][]float64, len(n.layers))
	for l, layer := range n.layers {
		size := len(denseData(layer.w))
		a.mW[l] = make([]float64, size)
		a.vW[l] = make([]float64, size)
		a.mB[l] = make([]float64, layer.b.Len())
		a.vB[l] = make([]float64, layer.b.Len())
	}
}

// step applies one bias-corrected update to n.
func (a *Adam) step(n *QNetwork, grads []layerGrad) {
	if a.mW == nil {
		a.init(n)
	}
	a.t++
	c1 := 1 - math.Pow(a.Beta1, float64(a.t))
	c2 := 1 - math.Pow(a.Beta2, float64(a.t))

	for l, layer := range n.layers {
		a.update(denseData(layer.w), denseData(grads[l].w), a.mW[l], a.vW[l], c1, c2)
		a.update(layer.b.RawVector().Data, grads[l].b, a.mB[l], a.vB[l], c1, c2)
	}
}

func (a *Adam) update(params, grads, m, v []float64, c1, c2 float64) {
	for i, g := range grads {
		m[i] = a.Beta1*m[i] + (1-a.Beta1)*g
		v[i] = a.Beta2*v[i] + (1-a.Beta2)*g*g
		mHat := m[i] / c1
		vHat := v[i] / c2
		params[i] -= a.LearningRate * mHat / (math.Sqrt(vHat) + a.Epsilon)
	}
}
