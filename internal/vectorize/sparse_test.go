package vectorize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSparseEncoderEncode(t *testing.T) {
	encoder := NewSparseEncoder()

	t.Run("empty corpus is an error", func(t *testing.T) {
		_, err := encoder.Encode(nil)
		assert.Error(t, err)

		_, err = encoder.Encode([]string{"", "   "})
		assert.Error(t, err)
	})

	t.Run("stop word only corpus is an error", func(t *testing.T) {
		_, err := encoder.Encode([]string{"the and of a to"})
		assert.Error(t, err)
	})

	t.Run("single term vector is unit weight", func(t *testing.T) {
		vec, err := encoder.Encode([]string{"deductible"})

		require.NoError(t, err)
		require.Len(t, vec.Indices, 1)
		require.Len(t, vec.Values, 1)
		assert.InDelta(t, 1.0, float64(vec.Values[0]), 1e-6)
	})

	t.Run("term index is stable across encode calls", func(t *testing.T) {
		first, err := encoder.Encode([]string{"insurance"})
		require.NoError(t, err)

		second, err := encoder.Encode([]string{"insurance insurance insurance"})
		require.NoError(t, err)

		require.Len(t, first.Indices, 1)
		require.Len(t, second.Indices, 1)
		assert.Equal(t, first.Indices[0], second.Indices[0])
	})

	t.Run("stop words and short tokens are dropped", func(t *testing.T) {
		vec, err := encoder.Encode([]string{"the insurance of a policy"})

		require.NoError(t, err)
		assert.Len(t, vec.Indices, 2)
	})

	t.Run("numeric and punctuation tokens are dropped", func(t *testing.T) {
		vec, err := encoder.Encode([]string{"2024 deductible 15%"})

		require.NoError(t, err)
		assert.Len(t, vec.Indices, 1)
	})

	t.Run("indices ascend and weights are L2 normalized", func(t *testing.T) {
		vec, err := encoder.Encode([]string{
			"coverage applies to preventive care visits",
			"preventive care reduces long term claim costs",
			"claim reimbursement requires itemized receipts",
		})

		require.NoError(t, err)
		require.Equal(t, len(vec.Indices), len(vec.Values))
		require.NotEmpty(t, vec.Indices)

		for i := 1; i < len(vec.Indices); i++ {
			assert.Less(t, vec.Indices[i-1], vec.Indices[i])
		}

		var sumSquares float64
		for _, v := range vec.Values {
			sumSquares += float64(v) * float64(v)
		}
		assert.InDelta(t, 1.0, sumSquares, 1e-5)
	})

	t.Run("repeated terms outweigh rare terms before idf", func(t *testing.T) {
		vec, err := encoder.Encode([]string{
			"premium premium premium deductible",
		})

		require.NoError(t, err)
		require.Len(t, vec.Indices, 2)

		// Single-entry corpus gives both terms identical IDF, so the
		// repeated term must carry the larger weight.
		var max float32
		for _, v := range vec.Values {
			if v > max {
				max = v
			}
		}
		assert.Greater(t, float64(max), 0.7)
	})
}
