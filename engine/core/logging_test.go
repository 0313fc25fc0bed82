package core

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChildLoggerFollowsLevelAndOutput(t *testing.T) {
	defer LogSetOutput(os.Stderr)
	defer LogSetLevel(LogGetLevel())

	LogSetLevel(InfoLevel)
	child := LogWith("component", "frame")
	assert.Equal(t, InfoLevel, child.GetLevel())

	var buf bytes.Buffer
	LogSetOutput(&buf)
	LogSetLevel(ErrorLevel)
	assert.Equal(t, ErrorLevel, child.GetLevel())

	child.Warn("below the level")
	assert.Empty(t, buf.String())

	child.Error("swapchain lost")
	assert.Contains(t, buf.String(), "swapchain lost")
	assert.Contains(t, buf.String(), "component=frame")

	LogSetLevel(DebugLevel)
	assert.Equal(t, DebugLevel, child.GetLevel())
}
