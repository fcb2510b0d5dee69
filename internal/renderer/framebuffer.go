package renderer

import (
	"errors"
	"fmt"

	"Prism3D/internal/gpu"
)

var ErrAttachmentSize = errors.New("framebuffer: attachment size mismatch")

// Framebuffer is a named set of up to three colour attachments and an
// optional depth attachment, all sharing one resolution.
type Framebuffer struct {
	dev    gpu.Device
	name   string
	id     gpu.Framebuffer
	width  int
	height int
	slots  map[gpu.Attachment]*RenderTarget
}

func NewFramebuffer(dev gpu.Device, name string) *Framebuffer {
	return &Framebuffer{
		dev:   dev,
		name:  name,
		id:    dev.CreateFramebuffer(name),
		slots: make(map[gpu.Attachment]*RenderTarget),
	}
}

func (f *Framebuffer) Name() string        { return f.name }
func (f *Framebuffer) ID() gpu.Framebuffer { return f.id }
func (f *Framebuffer) Width() int          { return f.width }
func (f *Framebuffer) Height() int         { return f.height }

// Attachment returns the target bound at slot, or nil.
func (f *Framebuffer) Attachment(slot gpu.Attachment) *RenderTarget { return f.slots[slot] }

// Attach binds rt at slot. Every other bound attachment must have the same
// size; replacing the only attachment retargets the framebuffer.
func (f *Framebuffer) Attach(slot gpu.Attachment, rt *RenderTarget) error {
	if slot != gpu.Depth && int(slot) >= gpu.MaxColorAttachments {
		return fmt.Errorf("framebuffer %s: colour slot %v out of range", f.name, slot)
	}
	if rt.Format().IsDepth() != (slot == gpu.Depth) {
		return fmt.Errorf("framebuffer %s: %v target cannot be bound at %v", f.name, rt.Format(), slot)
	}
	for s, other := range f.slots {
		if s == slot {
			continue
		}
		if other.Width() != rt.Width() || other.Height() != rt.Height() {
			return fmt.Errorf("%w: %s %v is %dx%d, %v is %dx%d", ErrAttachmentSize,
				f.name, slot, rt.Width(), rt.Height(), s, other.Width(), other.Height())
		}
	}
	rt.AttachTo(f.id, slot)
	f.slots[slot] = rt
	f.width, f.height = rt.Width(), rt.Height()
	return nil
}

// SetDrawBuffers enables colour attachments 0..n-1 for subsequent passes.
func (f *Framebuffer) SetDrawBuffers(n int) {
	f.dev.DrawBuffers(f.id, n)
}

func (f *Framebuffer) CheckComplete() error {
	if err := f.dev.FramebufferStatus(f.id); err != nil {
		return fmt.Errorf("framebuffer %s: %w", f.name, err)
	}
	return nil
}

// Bind makes the framebuffer the draw target and sets the viewport to its
// resolution.
func (f *Framebuffer) Bind() {
	f.dev.BindFramebuffer(f.id)
	f.dev.Viewport(0, 0, f.width, f.height)
}

// Release deletes the framebuffer object. Attached targets are owned by
// their creator and are not released here.
func (f *Framebuffer) Release() {
	if f == nil || f.id == 0 {
		return
	}
	f.dev.DeleteFramebuffer(f.id)
	f.id = 0
}
