package math

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClamp(t *testing.T) {
	assert.Equal(t, 5, Clamp(5, 0, 10))
	assert.Equal(t, 0, Clamp(-3, 0, 10))
	assert.Equal(t, 10, Clamp(42, 0, 10))
	assert.Equal(t, float32(1), Clamp(float32(1.5), 0, 1))
	assert.Equal(t, uint32(16), Clamp(uint32(0), 16, 4096))
}

func TestClampExtent(t *testing.T) {
	w, h := ClampExtent[uint32](8000, 10, 1, 32, 4096, 4096)
	assert.Equal(t, uint32(4096), w)
	assert.Equal(t, uint32(32), h)
}
