package vkr

import (
	"github.com/pkg/errors"
)

// ClearColor is the colour every frame starts from
var ClearColor = [4]float32{0.1, 0.1, 0.1, 1}

// DrawCommand is everything needed to record the draw of one framebuffer
type DrawCommand struct {
	Pipeline     *GraphicsPipeline
	VertexBuffer *BufferResource
	VertexCount  int
	PushConstant PushConstantSource
}

// pushConstantData returns the payload to record, checking it fits the layout
func pushConstantData(layout *PipelineLayout, push PushConstantSource) ([]byte, error) {
	if push == nil {
		return nil, nil
	}
	data := push.Bytes()
	size := layout.PushConstantSize()
	if len(data) == 0 {
		return nil, nil
	}
	if size == 0 {
		return nil, errors.New("pipeline declares no push constants")
	}
	if uint32(len(data)) > size {
		return nil, errors.Errorf("%d bytes of push constants exceed the %d declared", len(data), size)
	}
	if len(data)%4 != 0 {
		return nil, errors.Errorf("push constant size %d is not a multiple of 4", len(data))
	}
	return data, nil
}

// drawRecorder is the part of a CommandBuffer RecordDraw uses
type drawRecorder interface {
	Begin() error
	CmdBeginRenderPass(rp *RenderPass, fb *Framebuffer, clear [4]float32)
	CmdBindGraphicsPipeline(p *GraphicsPipeline)
	CmdBindVertexBuffer(binding uint32, b *BufferResource)
	CmdPushConstants(layout *PipelineLayout, data []byte)
	CmdDraw(vertexCount int)
	CmdEndRenderPass()
	End() error
}

var _ drawRecorder = (*CommandBuffer)(nil)

// RecordDraw records cb as a reusable command buffer that renders draw into fb.
// The buffer is replayed unchanged every frame targeting fb.
func RecordDraw(cb drawRecorder, rp *RenderPass, fb *Framebuffer, draw DrawCommand) error {
	if !draw.Pipeline.Matches(rp, fb.Extent) {
		return errors.Errorf("pipeline built for %dx%d or another render pass, framebuffer is %dx%d",
			draw.Pipeline.Extent.Width, draw.Pipeline.Extent.Height, fb.Extent.Width, fb.Extent.Height)
	}
	push, err := pushConstantData(draw.Pipeline.Layout, draw.PushConstant)
	if err != nil {
		return err
	}

	if err := cb.Begin(); err != nil {
		return err
	}
	cb.CmdBeginRenderPass(rp, fb, ClearColor)
	cb.CmdBindGraphicsPipeline(draw.Pipeline)
	cb.CmdBindVertexBuffer(0, draw.VertexBuffer)
	if len(push) > 0 {
		cb.CmdPushConstants(draw.Pipeline.Layout, push)
	}
	cb.CmdDraw(draw.VertexCount)
	cb.CmdEndRenderPass()
	return cb.End()
}

// RecordDraws allocates and records one command buffer per framebuffer of the
// swapchain. On failure the buffers already allocated are freed.
func RecordDraws(pool *CommandPool, sc *Swapchain, rp *RenderPass, draw DrawCommand) ([]*CommandBuffer, error) {
	if err := checkFramebuffers(len(sc.Images), sc.Framebuffers, rp); err != nil {
		return nil, err
	}
	buffers, err := pool.AllocateBuffers(len(sc.Framebuffers))
	if err != nil {
		return nil, err
	}
	for i, fb := range sc.Framebuffers {
		if err := RecordDraw(buffers[i], rp, fb, draw); err != nil {
			pool.FreeBuffers(buffers)
			return nil, errors.Wrapf(err, "record framebuffer %d", i)
		}
	}
	return buffers, nil
}
