package mwindow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseShape(t *testing.T) {
	cases := map[string]Shape{
		"":         Square,
		"square":   Square,
		"Circle":   Circle,
		"circular": Circle,
		"gaussian": Gaussian,
		"GAUSS":    Gaussian,
	}

	for in, want := range cases {
		got, err := ParseShape(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseShape("hexagon")
	assert.Error(t, err)
}

func TestNewKernelSquare(t *testing.T) {
	k, err := NewKernel(Square, 3)
	require.NoError(t, err)

	assert.Equal(t, 3, k.Size)
	for _, w := range k.Weights {
		assert.Equal(t, 1.0, w)
	}
}

func TestNewKernelCircle(t *testing.T) {
	k, err := NewKernel(Circle, 5)
	require.NoError(t, err)

	// center and axis cells inside the disc
	assert.Equal(t, 1.0, k.At(2, 2))
	assert.Equal(t, 1.0, k.At(0, 2))
	assert.Equal(t, 1.0, k.At(2, 0))

	// corners fall outside the radius
	assert.Equal(t, 0.0, k.At(0, 0))
	assert.Equal(t, 0.0, k.At(4, 4))
	assert.Equal(t, 0.0, k.At(0, 4))
	assert.Equal(t, 0.0, k.At(4, 0))
}

func TestNewKernelGaussian(t *testing.T) {
	k, err := NewKernel(Gaussian, 5)
	require.NoError(t, err)

	var sum float64
	for _, w := range k.Weights {
		assert.Greater(t, w, 0.0)
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-9)

	// peak at the center, decaying outward
	assert.Greater(t, k.At(2, 2), k.At(1, 2))
	assert.Greater(t, k.At(1, 2), k.At(0, 2))
}

func TestNewKernelRejectsBadSizes(t *testing.T) {
	for _, size := range []int{0, -3, 2, 4} {
		_, err := NewKernel(Square, size)
		assert.Error(t, err, "size %d", size)
	}
}

func TestNewKernelUnitWindow(t *testing.T) {
	k, err := NewKernel(Circle, 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, k.Weights)
}
