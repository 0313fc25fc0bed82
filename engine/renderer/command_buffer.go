package renderer

import (
	"github.com/spaghettifunk/anima-overlay/engine/renderer/metadata"
)

type CommandBufferState int

const (
	COMMAND_BUFFER_STATE_READY CommandBufferState = iota
	COMMAND_BUFFER_STATE_RECORDING
	COMMAND_BUFFER_STATE_IN_RENDER_PASS
	COMMAND_BUFFER_STATE_RECORDING_ENDED
	COMMAND_BUFFER_STATE_SUBMITTED
	COMMAND_BUFFER_STATE_NOT_ALLOCATED
)

var commandBufferStateNames = [...]string{
	"ready", "recording", "in render pass", "recording ended", "submitted", "not allocated",
}

func (s CommandBufferState) String() string {
	if int(s) < len(commandBufferStateNames) {
		return commandBufferStateNames[s]
	}
	return "unknown"
}

// CommandBuffer mirrors the state of a GPU command buffer on the CPU side.
type CommandBuffer struct {
	Handle metadata.CommandBuffer
	// Command buffer state.
	State CommandBufferState
}

func newCommandBuffer(ctx *Context, pool metadata.CommandPool) (*CommandBuffer, error) {
	handle, res := ctx.GPU.AllocateCommandBuffer(pool)
	if res != metadata.Success {
		return nil, creationError("vkAllocateCommandBuffers", res)
	}
	return &CommandBuffer{
		Handle: handle,
		State:  COMMAND_BUFFER_STATE_READY,
	}, nil
}

func (cb *CommandBuffer) Begin(ctx *Context, usage metadata.CommandBufferUsage) error {
	if res := ctx.GPU.BeginCommandBuffer(cb.Handle, usage); res != metadata.Success {
		return resultError("vkBeginCommandBuffer", res)
	}
	cb.State = COMMAND_BUFFER_STATE_RECORDING
	return nil
}

func (cb *CommandBuffer) End(ctx *Context) error {
	if res := ctx.GPU.EndCommandBuffer(cb.Handle); res != metadata.Success {
		return resultError("vkEndCommandBuffer", res)
	}
	cb.State = COMMAND_BUFFER_STATE_RECORDING_ENDED
	return nil
}

func (cb *CommandBuffer) UpdateSubmitted() {
	cb.State = COMMAND_BUFFER_STATE_SUBMITTED
}

// Reset marks the buffer reusable once the fence of its last submission has
// been waited on.
func (cb *CommandBuffer) Reset() {
	cb.State = COMMAND_BUFFER_STATE_READY
}
