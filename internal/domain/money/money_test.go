package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{1.005, 1.01},
		{2.675, 2.68},
		{19.994, 19.99},
		{0, 0},
		{24.5, 24.5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RoundFloat(tt.in), "round %v", tt.in)
	}
}

func TestMul(t *testing.T) {
	// 28 * (1 - 0.2) * 1 = 22.40
	assert.Equal(t, 22.4, Mul(28, 0.8, 1))
	// rounding happens once after all factors
	assert.Equal(t, 0.5, Mul(0.333, 0.75, 2))
	assert.Equal(t, 56.0, Mul(28, 1, 2))
}

func TestSum(t *testing.T) {
	assert.Equal(t, 0.3, Sum(0.1, 0.2))
	assert.Equal(t, 0.0, Sum())
}
