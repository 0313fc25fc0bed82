package renderer

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima-overlay/engine/core"
	"github.com/spaghettifunk/anima-overlay/engine/renderer/gputest"
	"github.com/spaghettifunk/anima-overlay/engine/renderer/metadata"
)

func TestContextLoggerFollowsProcessLevel(t *testing.T) {
	defer core.LogSetOutput(os.Stderr)
	defer core.LogSetLevel(core.LogGetLevel())

	core.LogSetLevel(core.InfoLevel)
	cfg := core.DefaultConfig()
	ctx := NewContext(gputest.New(), &cfg.Renderer)
	assert.Equal(t, core.InfoLevel, ctx.log.GetLevel())

	// A config reload only touches the process level.
	core.LogSetLevel(core.ErrorLevel)
	assert.Equal(t, core.ErrorLevel, ctx.log.GetLevel())
	core.LogSetLevel(core.DebugLevel)
	assert.Equal(t, core.DebugLevel, ctx.log.GetLevel())
}

func TestResultErrorLogsTextVerbatim(t *testing.T) {
	defer core.LogSetOutput(os.Stderr)
	var buf bytes.Buffer
	core.LogSetOutput(&buf)

	err := resultError("queue 100%d submit", metadata.ErrorDeviceLost)
	require.ErrorIs(t, err, core.ErrDeviceLost)
	assert.Contains(t, buf.String(), "queue 100%d submit")
	assert.NotContains(t, buf.String(), "%!")
}
