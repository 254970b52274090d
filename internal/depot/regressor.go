package depot

import (
	"sync"

	"gonum.org/v1/gonum/floats"
)

// FeatureDim is the length of the edge-feature vector.
const FeatureDim = 5

// DefaultLearningRate is the step size used by PartialFit.
const DefaultLearningRate = 0.01

// Regressor is a single-output online linear model trained by stochastic
// gradient descent. Any model satisfying the predict/partial-fit contract
// is acceptable per spec.md §9; gonum has no such estimator, so the update
// rule is hand-rolled over gonum/floats vector primitives.
type Regressor struct {
	mu      sync.Mutex
	weights []float64
	bias    float64
	lr      float64
}

// NewRegressor returns a zero-initialized regressor over FeatureDim inputs.
func NewRegressor() *Regressor {
	return &Regressor{
		weights: make([]float64, FeatureDim),
		lr:      DefaultLearningRate,
	}
}

// Predict returns the model's current score for a feature vector.
func (r *Regressor) Predict(x []float64) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.predictLocked(x)
}

func (r *Regressor) predictLocked(x []float64) float64 {
	return floats.Dot(r.weights, x) + r.bias
}

// PartialFit performs one SGD pass over the given batch of (feature, target)
// pairs, updating weights and bias in place.
func (r *Regressor) PartialFit(X [][]float64, y []float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, x := range X {
		pred := r.predictLocked(x)
		residual := pred - y[i]

		grad := make([]float64, len(x))
		copy(grad, x)
		floats.Scale(-r.lr*residual, grad)
		floats.Add(r.weights, grad)

		r.bias -= r.lr * residual
	}
}
