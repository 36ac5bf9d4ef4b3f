// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package texinit

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// TextureDescriptor describes a texture to create.
type TextureDescriptor struct {
	// Label is an optional debug name.
	Label string

	// Size is the texture dimensions. For 1D and 2D textures
	// DepthOrArrayLayers is the array layer count; for 3D textures it is
	// the depth.
	Size hal.Extent3D

	// MipLevelCount is the number of mip levels (0 defaults to 1).
	MipLevelCount uint32

	// SampleCount is the number of samples per pixel (0 defaults to 1).
	SampleCount uint32

	// Dimension is the texture dimension (1D, 2D, 3D).
	Dimension gputypes.TextureDimension

	// Format is the texture pixel format.
	Format gputypes.TextureFormat

	// Usage specifies how the texture will be used.
	Usage gputypes.TextureUsage
}

// ArrayLayerCount returns the number of array layers. A 3D texture has a
// single layer regardless of its depth.
func (d *TextureDescriptor) ArrayLayerCount() uint32 {
	if d.Dimension == gputypes.TextureDimension3D {
		return 1
	}
	return d.Size.DepthOrArrayLayers
}

// MipExtent returns the size of mip level mip. Array layers are not scaled.
func (d *TextureDescriptor) MipExtent(mip uint32) hal.Extent3D {
	e := hal.Extent3D{
		Width:              max(1, d.Size.Width>>mip),
		Height:             max(1, d.Size.Height>>mip),
		DepthOrArrayLayers: d.Size.DepthOrArrayLayers,
	}
	switch d.Dimension {
	case gputypes.TextureDimension1D:
		e.Height = 1
	case gputypes.TextureDimension3D:
		e.DepthOrArrayLayers = max(1, d.Size.DepthOrArrayLayers>>mip)
	}
	return e
}

// resolve validates d and returns a copy with defaults filled in.
func (d *TextureDescriptor) resolve() (TextureDescriptor, error) {
	if d == nil {
		return TextureDescriptor{}, ErrNilDescriptor
	}
	if d.Size.Width == 0 || d.Size.Height == 0 {
		return TextureDescriptor{}, fmt.Errorf("%w: width=%d, height=%d",
			ErrInvalidTextureSize, d.Size.Width, d.Size.Height)
	}

	resolved := *d
	if resolved.MipLevelCount == 0 {
		resolved.MipLevelCount = 1
	}
	if resolved.SampleCount == 0 {
		resolved.SampleCount = 1
	}
	if resolved.Size.DepthOrArrayLayers == 0 {
		resolved.Size.DepthOrArrayLayers = 1
	}
	if resolved.MipLevelCount > MaxMipLevels {
		return TextureDescriptor{}, fmt.Errorf("%w: %d (max %d)",
			ErrTooManyMipLevels, resolved.MipLevelCount, MaxMipLevels)
	}
	return resolved, nil
}

// Texture is a GPU texture together with its initialization state.
//
// Texture owns the HAL texture handle and exactly one [Tracker]. All tracker
// access goes through Texture, which serializes it with a mutex.
//
// Lifecycle:
//  1. Create via [Registry.CreateTexture] or [CreateTexture]
//  2. Record usage through a [Recorder]; submit with [Queue.Submit]
//  3. Call Destroy() when done
type Texture struct {
	// mu protects initStatus and destroyed.
	mu sync.Mutex

	id         TextureID
	raw        hal.Texture
	device     hal.Device
	descriptor TextureDescriptor
	initStatus *Tracker
	destroyed  bool

	// logger overrides the package logger when non-nil.
	logger *slog.Logger
}

// CreateTexture creates a HAL texture on device and wraps it with a fresh
// initialization tracker. Every subresource starts uninitialized.
//
// Returns an error if the device or descriptor is nil, the size is zero, the
// mip level count exceeds [MaxMipLevels], or HAL creation fails.
func CreateTexture(device hal.Device, id TextureID, desc *TextureDescriptor, opts ...Option) (*Texture, error) {
	o := applyOptions(opts)
	return createTexture(device, id, desc, &o)
}

func createTexture(device hal.Device, id TextureID, desc *TextureDescriptor, o *options) (*Texture, error) {
	if device == nil {
		return nil, ErrNilDevice
	}
	resolved, err := desc.resolve()
	if err != nil {
		return nil, err
	}

	raw, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         o.label(resolved.Label),
		Size:          resolved.Size,
		MipLevelCount: resolved.MipLevelCount,
		SampleCount:   resolved.SampleCount,
		Dimension:     resolved.Dimension,
		Format:        resolved.Format,
		Usage:         resolved.Usage,
	})
	if err != nil {
		return nil, fmt.Errorf("HAL texture creation failed: %w", err)
	}

	t := &Texture{
		id:         id,
		raw:        raw,
		device:     device,
		descriptor: resolved,
		initStatus: NewTracker(resolved.MipLevelCount, resolved.ArrayLayerCount()),
		logger:     o.logger,
	}
	t.log().Info("texinit: texture created",
		"id", id, "label", resolved.Label,
		"mips", resolved.MipLevelCount, "layers", resolved.ArrayLayerCount())
	return t, nil
}

// log returns the texture's logger, falling back to the package logger.
func (t *Texture) log() *slog.Logger {
	if t.logger != nil {
		return t.logger
	}
	return Logger()
}

// ID returns the texture's identity.
func (t *Texture) ID() TextureID {
	return t.id
}

// Label returns the texture's debug label.
func (t *Texture) Label() string {
	return t.descriptor.Label
}

// Descriptor returns a copy of the resolved texture descriptor.
func (t *Texture) Descriptor() TextureDescriptor {
	return t.descriptor
}

// MipLevelCount returns the number of mip levels.
func (t *Texture) MipLevelCount() uint32 {
	return t.descriptor.MipLevelCount
}

// ArrayLayerCount returns the number of array layers.
func (t *Texture) ArrayLayerCount() uint32 {
	return t.descriptor.ArrayLayerCount()
}

// Dimension returns the texture dimension (1D, 2D, 3D).
func (t *Texture) Dimension() gputypes.TextureDimension {
	return t.descriptor.Dimension
}

// Format returns the texture pixel format.
func (t *Texture) Format() gputypes.TextureFormat {
	return t.descriptor.Format
}

// MipExtent returns the size of mip level mip.
func (t *Texture) MipExtent(mip uint32) hal.Extent3D {
	return t.descriptor.MipExtent(mip)
}

// FullRegion returns the region covering every subresource.
func (t *Texture) FullRegion() Region {
	return NewRegion(0, t.MipLevelCount(), 0, t.ArrayLayerCount())
}

// CheckAction asks the texture's tracker whether action touches
// uninitialized subresources. See [Tracker.CheckAction].
func (t *Texture) CheckAction(action Action) (Action, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.initStatus.CheckAction(action)
}

// Commit marks region as initialized. See [Tracker.Commit].
func (t *Texture) Commit(region Region) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.initStatus.Commit(region)
	t.log().Debug("texinit: region committed", "texture", t.id, "region", region)
}

// Drain marks region as initialized and reports the exact pieces that were
// uninitialized. See [Tracker.Drain].
//
// Drain is for callers that initialize textures outside command buffers,
// such as a loader that zero-fills freshly created textures on its own
// queue: it clears only the reported pieces instead of the bounding box
// [Texture.CheckAction] returns, and commits them in the same step.
func (t *Texture) Drain(region Region, fn func(Region)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.initStatus.Drain(region, fn)
}

// Discard marks subresource (mipLevel, layer) as uninitialized.
// See [Tracker.Discard].
func (t *Texture) Discard(mipLevel, layer uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.initStatus.Discard(mipLevel, layer)
	t.log().Debug("texinit: subresource discarded", "texture", t.id, "mip", mipLevel, "layer", layer)
}

// IsFullyInitialized reports whether every subresource holds defined content.
func (t *Texture) IsFullyInitialized() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.initStatus.IsFullyInitialized()
}

// IsDestroyed returns true if the texture has been destroyed.
func (t *Texture) IsDestroyed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.destroyed
}

// Raw returns the underlying HAL texture handle, or nil once destroyed.
func (t *Texture) Raw() hal.Texture {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.destroyed {
		return nil
	}
	return t.raw
}

// Destroy releases the HAL texture. The tracker is dropped with it.
//
// This method is idempotent - calling it multiple times is safe.
func (t *Texture) Destroy() {
	t.mu.Lock()
	if t.destroyed {
		t.mu.Unlock()
		return
	}
	t.destroyed = true
	device := t.device
	raw := t.raw
	t.raw = nil
	t.mu.Unlock()

	if device != nil && raw != nil {
		device.DestroyTexture(raw)
	}
	t.log().Info("texinit: texture destroyed", "id", t.id)
}

// =============================================================================
// Texture Views
// =============================================================================

// TextureViewDescriptor describes a texture view to create.
type TextureViewDescriptor struct {
	// Label is an optional debug name.
	Label string

	// Format is the view format (TextureFormatUndefined inherits from the texture).
	Format gputypes.TextureFormat

	// Aspect specifies which aspect to view (color, depth, stencil).
	Aspect gputypes.TextureAspect

	// BaseMipLevel is the first mip level in the view.
	BaseMipLevel uint32

	// MipLevelCount is the number of mip levels (0 means all remaining levels).
	MipLevelCount uint32

	// BaseArrayLayer is the first array layer in the view.
	BaseArrayLayer uint32

	// ArrayLayerCount is the number of array layers (0 means all remaining layers).
	ArrayLayerCount uint32
}

// TextureView selects a rectangle of a texture's subresources.
// Render pass attachments and bindings reference textures through views.
type TextureView struct {
	mu         sync.Mutex
	raw        hal.TextureView
	texture    *Texture
	descriptor TextureViewDescriptor
	destroyed  bool
}

// CreateView creates a view over the subresources selected by desc.
// A nil desc selects every subresource with the texture's own format.
func (t *Texture) CreateView(desc *TextureViewDescriptor) (*TextureView, error) {
	t.mu.Lock()
	device := t.device
	raw := t.raw
	destroyed := t.destroyed
	t.mu.Unlock()

	if destroyed {
		return nil, ErrTextureDestroyed
	}
	if device == nil {
		return nil, ErrNilDevice
	}

	resolved, err := t.resolveView(desc)
	if err != nil {
		return nil, err
	}

	halView, err := device.CreateTextureView(raw, &hal.TextureViewDescriptor{
		Label:           resolved.Label,
		Format:          resolved.Format,
		Dimension:       viewDimension(t.Dimension(), resolved.ArrayLayerCount),
		Aspect:          resolved.Aspect,
		BaseMipLevel:    resolved.BaseMipLevel,
		MipLevelCount:   resolved.MipLevelCount,
		BaseArrayLayer:  resolved.BaseArrayLayer,
		ArrayLayerCount: resolved.ArrayLayerCount,
	})
	if err != nil {
		return nil, fmt.Errorf("create texture view: %w", err)
	}

	return &TextureView{
		raw:        halView,
		texture:    t,
		descriptor: resolved,
	}, nil
}

// resolveView fills in inherited values and checks the selected range.
func (t *Texture) resolveView(desc *TextureViewDescriptor) (TextureViewDescriptor, error) {
	var resolved TextureViewDescriptor
	if desc == nil {
		resolved = TextureViewDescriptor{
			Label:  t.descriptor.Label + " (default view)",
			Aspect: gputypes.TextureAspectAll,
		}
	} else {
		resolved = *desc
	}

	if resolved.Format == gputypes.TextureFormatUndefined {
		resolved.Format = t.Format()
	}
	mips, layers := t.MipLevelCount(), t.ArrayLayerCount()
	if resolved.BaseMipLevel >= mips || resolved.BaseArrayLayer >= layers {
		return TextureViewDescriptor{}, fmt.Errorf("%w: base mip %d layer %d of %d×%d",
			ErrInvalidViewRange, resolved.BaseMipLevel, resolved.BaseArrayLayer, mips, layers)
	}
	if resolved.MipLevelCount == 0 {
		resolved.MipLevelCount = mips - resolved.BaseMipLevel
	}
	if resolved.ArrayLayerCount == 0 {
		resolved.ArrayLayerCount = layers - resolved.BaseArrayLayer
	}
	if resolved.MipLevelCount > mips-resolved.BaseMipLevel ||
		resolved.ArrayLayerCount > layers-resolved.BaseArrayLayer {
		return TextureViewDescriptor{}, fmt.Errorf("%w: %d mips from %d, %d layers from %d of %d×%d",
			ErrInvalidViewRange, resolved.MipLevelCount, resolved.BaseMipLevel,
			resolved.ArrayLayerCount, resolved.BaseArrayLayer, mips, layers)
	}
	return resolved, nil
}

// viewDimension returns the view dimension for a texture dimension. Multi-layer
// 2D views keep the zero value so the backend derives the array dimension.
func viewDimension(dim gputypes.TextureDimension, layers uint32) gputypes.TextureViewDimension {
	switch {
	case dim == gputypes.TextureDimension1D:
		return gputypes.TextureViewDimension1D
	case dim == gputypes.TextureDimension3D:
		return gputypes.TextureViewDimension3D
	case layers == 1:
		return gputypes.TextureViewDimension2D
	default:
		var derived gputypes.TextureViewDimension
		return derived
	}
}

// Texture returns the parent texture.
func (v *TextureView) Texture() *Texture {
	return v.texture
}

// Label returns the view's debug label.
func (v *TextureView) Label() string {
	return v.descriptor.Label
}

// Descriptor returns a copy of the resolved view descriptor.
func (v *TextureView) Descriptor() TextureViewDescriptor {
	return v.descriptor
}

// Region returns the subresources selected by the view.
func (v *TextureView) Region() Region {
	d := v.descriptor
	return NewRegion(d.BaseMipLevel, d.BaseMipLevel+d.MipLevelCount,
		d.BaseArrayLayer, d.BaseArrayLayer+d.ArrayLayerCount)
}

// IsDestroyed returns true if the view has been destroyed.
func (v *TextureView) IsDestroyed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.destroyed
}

// Raw returns the underlying HAL texture view handle, or nil once destroyed.
func (v *TextureView) Raw() hal.TextureView {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.destroyed {
		return nil
	}
	return v.raw
}

// Destroy releases the texture view.
//
// This method is idempotent - calling it multiple times is safe.
func (v *TextureView) Destroy() {
	v.mu.Lock()
	if v.destroyed {
		v.mu.Unlock()
		return
	}
	v.destroyed = true
	raw := v.raw
	v.raw = nil
	v.mu.Unlock()

	if device := v.texture.device; device != nil && raw != nil {
		device.DestroyTextureView(raw)
	}
}
