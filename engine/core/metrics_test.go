package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	m := NewMetrics()
	assert.Equal(t, 0.0, m.FPS())

	for i := 0; i < 15; i++ {
		m.Update(0.0625)
	}
	// Less than a second accumulated.
	assert.Equal(t, 0.0, m.FPS())
	m.Update(0.0625)
	assert.Equal(t, 16.0, m.FPS())
	assert.Equal(t, 62.5, m.FrameTime())
	assert.Equal(t, uint64(16), m.TotalFrames())
}

func TestMetricsRollingAverage(t *testing.T) {
	m := NewMetrics()
	for i := 0; i < AVG_COUNT; i++ {
		m.Update(0.010)
	}
	assert.InDelta(t, 10.0, m.FrameTime(), 1e-9)

	// Older samples fall out of the window.
	for i := 0; i < AVG_COUNT; i++ {
		m.Update(0.020)
	}
	assert.InDelta(t, 20.0, m.FrameTime(), 1e-9)
}
