package renderer

import (
	"errors"
	"testing"

	"github.com/spaghettifunk/anima-overlay/engine/core"
	"github.com/spaghettifunk/anima-overlay/engine/renderer/gputest"
	"github.com/spaghettifunk/anima-overlay/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorderFixture struct {
	gpu      *gputest.GPU
	ctx      *Context
	surface  *SurfaceBinding
	targets  *RenderTargetSet
	recorder *CommandRecorder
}

func newRecorderFixture(t *testing.T) *recorderFixture {
	t.Helper()
	gpu := gputest.New()
	ctx, sb := newTestSurface(t, gpu)
	rts, err := NewRenderTargetSet(ctx, sb)
	require.NoError(t, err)
	cr, err := NewCommandRecorder(ctx, rts, 1)
	require.NoError(t, err)
	return &recorderFixture{gpu: gpu, ctx: ctx, surface: sb, targets: rts, recorder: cr}
}

var (
	testClear = metadata.ClearColor{0, 0, 1, 1}
	testRects = []metadata.Rect2D{
		{Offset: metadata.Offset2D{X: 4, Y: 8}, Extent: metadata.Extent2D{Width: 100, Height: 12}},
		{Offset: metadata.Offset2D{X: 4, Y: 24}, Extent: metadata.Extent2D{Width: 50, Height: 12}},
	}
	testInk = metadata.ClearColor{0.9, 0.9, 0.9, 1}
)

func drawRects(pass *PassEncoder) error {
	pass.ClearRects(testInk, testRects)
	return nil
}

func TestRecordCommandStream(t *testing.T) {
	f := newRecorderFixture(t)
	cb := f.recorder.Buffer(0)
	fb := f.targets.Framebuffer(1)

	var seen *PassEncoder
	err := f.recorder.Record(cb, fb, f.targets.Extent(), testClear, PayloadEncoderFunc(func(pass *PassEncoder) error {
		seen = pass
		return drawRects(pass)
	}))
	require.NoError(t, err)
	assert.Equal(t, COMMAND_BUFFER_STATE_RECORDING_ENDED, cb.State)

	// The encoder sees the active buffer and the pass's color format.
	require.NotNil(t, seen)
	assert.Equal(t, cb.Handle, seen.CommandBuffer())
	assert.Equal(t, metadata.FormatB8G8R8A8Unorm, seen.Format)
	assert.Equal(t, f.targets.Extent(), seen.Extent)

	cmds := f.gpu.Commands(cb.Handle)
	require.Len(t, cmds, 3)
	assert.Equal(t, gputest.Command{
		Op:          gputest.OpBeginRenderPass,
		RenderPass:  f.targets.Pass.Handle,
		Framebuffer: fb,
		Area:        metadata.Rect2D{Extent: f.targets.Extent()},
		Color:       testClear,
	}, cmds[0])
	assert.Equal(t, gputest.OpClearRects, cmds[1].Op)
	assert.Equal(t, testRects, cmds[1].Rects)
	assert.Equal(t, testInk, cmds[1].Color)
	assert.Equal(t, gputest.OpEndRenderPass, cmds[2].Op)

	assert.Equal(t,
		[]gputest.Op{
			gputest.OpResetCommandBuffer,
			gputest.OpBeginCommandBuffer,
			gputest.OpBeginRenderPass,
			gputest.OpClearRects,
			gputest.OpEndRenderPass,
			gputest.OpEndCommandBuffer,
		},
		f.gpu.Ops(
			gputest.OpResetCommandBuffer,
			gputest.OpBeginCommandBuffer,
			gputest.OpBeginRenderPass,
			gputest.OpClearRects,
			gputest.OpEndRenderPass,
			gputest.OpEndCommandBuffer,
		))
	assert.Empty(t, f.gpu.Violations())
}

func TestRecordEncodingFailureStillEndsPass(t *testing.T) {
	f := newRecorderFixture(t)
	cb := f.recorder.Buffer(0)

	boom := errors.New("vertex scratch exhausted")
	err := f.recorder.Record(cb, f.targets.Framebuffer(0), f.targets.Extent(), testClear, PayloadEncoderFunc(func(pass *PassEncoder) error {
		pass.ClearRects(testInk, testRects[:1])
		return boom
	}))
	assert.ErrorIs(t, err, core.ErrEncoding)
	assert.True(t, core.IsRecoverable(err))

	cmds := f.gpu.Commands(cb.Handle)
	require.NotEmpty(t, cmds)
	assert.Equal(t, gputest.OpBeginRenderPass, cmds[0].Op)
	assert.Equal(t, gputest.OpEndRenderPass, cmds[len(cmds)-1].Op)
	assert.Equal(t, 1, f.gpu.Count(gputest.OpEndCommandBuffer))
	assert.Equal(t, COMMAND_BUFFER_STATE_RECORDING_ENDED, cb.State)
	assert.Empty(t, f.gpu.Violations())

	// An encoder reporting ErrEncoding itself is passed through unchanged.
	wrapped := errors.Join(core.ErrEncoding, boom)
	err = f.recorder.Record(cb, f.targets.Framebuffer(0), f.targets.Extent(), testClear, PayloadEncoderFunc(func(*PassEncoder) error {
		return wrapped
	}))
	assert.Same(t, wrapped, err)
}

func TestRecordBeginEndPaired(t *testing.T) {
	f := newRecorderFixture(t)
	cb := f.recorder.Buffer(0)

	for i := 0; i < 20; i++ {
		var enc PayloadEncoder = PayloadEncoderFunc(drawRects)
		if i%3 == 0 {
			enc = PayloadEncoderFunc(func(*PassEncoder) error { return core.ErrEncoding })
		}
		_ = f.recorder.Record(cb, f.targets.Framebuffer(uint32(i%2)), f.targets.Extent(), testClear, enc)
	}
	assert.Equal(t, f.gpu.Count(gputest.OpBeginRenderPass), f.gpu.Count(gputest.OpEndRenderPass))
	assert.Equal(t, f.gpu.Count(gputest.OpBeginCommandBuffer), f.gpu.Count(gputest.OpEndCommandBuffer))
	assert.Empty(t, f.gpu.Violations())
}

func TestRecordIsIdempotent(t *testing.T) {
	f := newRecorderFixture(t)
	cb := f.recorder.Buffer(0)
	fb := f.targets.Framebuffer(0)

	require.NoError(t, f.recorder.Record(cb, fb, f.targets.Extent(), testClear, PayloadEncoderFunc(drawRects)))
	first := f.gpu.Commands(cb.Handle)
	require.NoError(t, f.recorder.Record(cb, fb, f.targets.Extent(), testClear, PayloadEncoderFunc(drawRects)))
	second := f.gpu.Commands(cb.Handle)

	assert.Equal(t, first, second)
}

func TestRecordWithoutPayload(t *testing.T) {
	f := newRecorderFixture(t)
	cb := f.recorder.Buffer(0)

	require.NoError(t, f.recorder.Record(cb, f.targets.Framebuffer(0), f.targets.Extent(), testClear, nil))
	cmds := f.gpu.Commands(cb.Handle)
	require.Len(t, cmds, 2)
	assert.Equal(t, gputest.OpBeginRenderPass, cmds[0].Op)
	assert.Equal(t, gputest.OpEndRenderPass, cmds[1].Op)
}

func TestRecordRejectsInFlightBuffer(t *testing.T) {
	f := newRecorderFixture(t)
	cb := f.recorder.Buffer(0)
	sync, err := NewFrameSync(f.ctx, 1)
	require.NoError(t, err)
	set := sync.Select(0)

	require.NoError(t, set.WaitAndResetFence())
	_, err = f.surface.AcquireNextImage(f.ctx.FenceTimeout(), set.AcquireSemaphore())
	require.NoError(t, err)
	require.NoError(t, f.recorder.Record(cb, f.targets.Framebuffer(0), f.targets.Extent(), testClear, nil))
	require.Equal(t, metadata.Success, f.gpu.QueueSubmit(&metadata.SubmitDesc{
		WaitSemaphores:   []metadata.Semaphore{set.AcquireSemaphore()},
		WaitStages:       []metadata.PipelineStageFlags{metadata.PipelineStageColorAttachmentOutput},
		CommandBuffers:   []metadata.CommandBuffer{cb.Handle},
		SignalSemaphores: []metadata.Semaphore{set.FinishSemaphore()},
		Fence:            set.Fence().Handle,
	}))
	cb.UpdateSubmitted()

	// The CPU side mirror refuses first.
	err = f.recorder.Record(cb, f.targets.Framebuffer(0), f.targets.Extent(), testClear, nil)
	assert.Error(t, err)
	assert.Empty(t, f.gpu.Violations())

	// Skipping the fence wait gets caught by the device.
	cb.Reset()
	err = f.recorder.Record(cb, f.targets.Framebuffer(0), f.targets.Extent(), testClear, nil)
	assert.ErrorIs(t, err, core.ErrDeviceLost)
	assert.Len(t, f.gpu.Violations(), 1)

	// Once the fence is waited the buffer is free again.
	require.NoError(t, set.WaitFence())
	cb.Reset()
	assert.NoError(t, f.recorder.Record(cb, f.targets.Framebuffer(0), f.targets.Extent(), testClear, nil))
}

func TestCommandRecorderDestroy(t *testing.T) {
	f := newRecorderFixture(t)
	f.recorder.Destroy()
	assert.Equal(t, 1, f.gpu.Count(gputest.OpDestroyCommandPool))
	f.targets.Destroy()
	f.surface.Destroy()
	assert.Equal(t, 0, f.gpu.LiveObjects())
	assert.Empty(t, f.gpu.Violations())
}
