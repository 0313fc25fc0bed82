package renderer

import (
	"testing"

	"github.com/spaghettifunk/anima-overlay/engine/core"
	"github.com/spaghettifunk/anima-overlay/engine/renderer/gputest"
	"github.com/spaghettifunk/anima-overlay/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMainRenderPassDesc(t *testing.T) {
	desc := MainRenderPassDesc(metadata.FormatB8G8R8A8Srgb)

	require.Len(t, desc.Attachments, 1)
	color := desc.Attachments[0]
	assert.Equal(t, metadata.FormatB8G8R8A8Srgb, color.Format)
	assert.Equal(t, metadata.AttachmentLoadOpClear, color.LoadOp)
	assert.Equal(t, metadata.AttachmentStoreOpStore, color.StoreOp)
	assert.Equal(t, metadata.ImageLayoutUndefined, color.InitialLayout)
	// No barrier is needed before present.
	assert.Equal(t, metadata.ImageLayoutPresentSrc, color.FinalLayout)
	assert.Equal(t, metadata.ImageLayoutColorAttachmentOptimal, desc.ColorLayout)

	require.Len(t, desc.Dependencies, 1)
	dep := desc.Dependencies[0]
	assert.Equal(t, metadata.SubpassExternal, dep.SrcSubpass)
	assert.Equal(t, uint32(0), dep.DstSubpass)
	assert.Equal(t, metadata.PipelineStageColorAttachmentOutput, dep.SrcStageMask)
	assert.Equal(t, metadata.PipelineStageColorAttachmentOutput, dep.DstStageMask)
	assert.Equal(t, metadata.AccessColorAttachmentRead|metadata.AccessColorAttachmentWrite, dep.DstAccessMask)
}

func newTestSurface(t *testing.T, gpu *gputest.GPU) (*Context, *SurfaceBinding) {
	t.Helper()
	ctx := NewContext(gpu, testConfig())
	sb, err := NewSurfaceBinding(ctx, defaultRequest())
	require.NoError(t, err)
	return ctx, sb
}

func TestRenderTargetSet(t *testing.T) {
	gpu := gputest.New()
	gpu.Caps.MinImageCount = 3
	ctx, sb := newTestSurface(t, gpu)

	rts, err := NewRenderTargetSet(ctx, sb)
	require.NoError(t, err)
	assert.Equal(t, 3, rts.Count())
	assert.Equal(t, sb.Extent(), rts.Extent())
	assert.Equal(t, sb.Format().Format, rts.Format())

	desc, ok := gpu.RenderPassDesc(rts.Pass.Handle)
	require.True(t, ok)
	assert.Equal(t, *MainRenderPassDesc(sb.Format().Format), desc)

	for i := uint32(0); i < 3; i++ {
		fb, ok := gpu.FramebufferDesc(rts.Framebuffer(i))
		require.True(t, ok)
		assert.Equal(t, rts.Pass.Handle, fb.RenderPass)
		assert.Equal(t, []metadata.ImageView{sb.View(i)}, fb.Attachments)
		assert.Equal(t, sb.Extent(), fb.Extent)
		assert.Equal(t, uint32(1), fb.Layers)
	}

	rts.Destroy()
	assert.Equal(t,
		[]gputest.Op{
			gputest.OpDestroyFramebuffer,
			gputest.OpDestroyFramebuffer,
			gputest.OpDestroyFramebuffer,
			gputest.OpDestroyRenderPass,
		},
		gpu.Ops(gputest.OpDestroyFramebuffer, gputest.OpDestroyRenderPass))
	sb.Destroy()
	assert.Equal(t, 0, gpu.LiveObjects())
	assert.Empty(t, gpu.Violations())
}

func TestRenderTargetSetUnsupportedFormat(t *testing.T) {
	gpu := gputest.New()
	gpu.UnsupportedAttachmentFormats[metadata.FormatB8G8R8A8Unorm] = true
	ctx, sb := newTestSurface(t, gpu)
	defer sb.Destroy()

	_, err := NewRenderTargetSet(ctx, sb)
	assert.ErrorIs(t, err, core.ErrAttachmentFormatUnsupported)
	assert.Equal(t, 0, gpu.Count(gputest.OpCreateRenderPass))
}

func TestRenderTargetSetFramebufferFailure(t *testing.T) {
	gpu := gputest.New()
	gpu.CreateResults[gputest.OpCreateFramebuffer] = metadata.ErrorOutOfHostMemory
	ctx, sb := newTestSurface(t, gpu)

	_, err := NewRenderTargetSet(ctx, sb)
	assert.ErrorIs(t, err, core.ErrDeviceLost)
	// The render pass created before the failure is released.
	assert.Equal(t, 1, gpu.Count(gputest.OpDestroyRenderPass))
	sb.Destroy()
	assert.Equal(t, 0, gpu.LiveObjects())
}
