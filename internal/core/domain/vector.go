package domain

import "math"

// Vector is a sparse index/value representation shared by both vector
// spaces. Indices are strictly increasing. Dense embeddings use the
// indices 0..d-1.
type Vector struct {
	Indices []uint32  `json:"indices"`
	Values  []float32 `json:"values"`
}

// FromDense converts a dense embedding into the shared representation.
func FromDense(values []float32) Vector {
	indices := make([]uint32, len(values))
	for i := range values {
		indices[i] = uint32(i)
	}
	out := make([]float32, len(values))
	copy(out, values)
	return Vector{Indices: indices, Values: out}
}

// Dot computes the inner product of two vectors. With L2-normalized
// inputs this equals cosine similarity.
func (v Vector) Dot(o Vector) float64 {
	var sum float64
	i, j := 0, 0
	for i < len(v.Indices) && j < len(o.Indices) {
		switch {
		case v.Indices[i] == o.Indices[j]:
			sum += float64(v.Values[i]) * float64(o.Values[j])
			i++
			j++
		case v.Indices[i] < o.Indices[j]:
			i++
		default:
			j++
		}
	}
	return sum
}

func (v Vector) Norm() float64 {
	var sum float64
	for _, x := range v.Values {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Normalize scales the vector to unit length in place. Zero vectors are
// left untouched.
func (v *Vector) Normalize() {
	norm := v.Norm()
	if norm == 0 {
		return
	}
	for i := range v.Values {
		v.Values[i] = float32(float64(v.Values[i]) / norm)
	}
}
