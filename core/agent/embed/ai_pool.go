package embed

import "math"

// meanPool averages hidden states over the positions where mask is 1.
//
// hidden: flat [batch*seq*dim], mask: flat [batch*seq]. Returns one vector per sample.
func meanPool(hidden []float32, mask []int64, batchSize, seqLen, dim int64) [][]float32 {
	out := make([][]float32, batchSize)

	for b := int64(0); b < batchSize; b++ {
		vec := make([]float32, dim)
		out[b] = vec

		maskOff := b * seqLen
		hiddenOff := b * seqLen * dim

		var count float32
		for s := int64(0); s < seqLen; s++ {
			if mask[maskOff+s] != 1 {
				continue
			}
			count++
			tokOff := hiddenOff + s*dim
			for d := int64(0); d < dim; d++ {
				vec[d] += hidden[tokOff+d]
			}
		}
		if count == 0 {
			continue
		}

		inv := 1.0 / count
		for d := range vec {
			vec[d] *= inv
		}
	}
	return out
}

// normalize scales v to unit length in place. Zero vectors are left alone.
func normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
}
