// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package texinit

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/texinit/initrange"
)

// Recorder errors.
var (
	// ErrRecorderLocked is returned when commands are recorded on a recorder
	// whose render pass is still open.
	ErrRecorderLocked = errors.New("texinit: recorder is locked (pass in progress)")

	// ErrRecorderFinished is returned when a finished recorder is used.
	ErrRecorderFinished = errors.New("texinit: recorder already finished")

	// ErrCopyOutOfBounds is returned when a copy exceeds the texture's
	// subresource space.
	ErrCopyOutOfBounds = errors.New("texinit: copy out of bounds")

	// ErrNilTexture is returned when a command references a nil texture or view.
	ErrNilTexture = errors.New("texinit: texture is nil")

	// ErrCommandBufferConsumed is returned when a command buffer is submitted
	// twice.
	ErrCommandBufferConsumed = errors.New("texinit: command buffer already submitted")
)

// RecorderState is the lifecycle state of a [Recorder].
type RecorderState int

const (
	// RecorderRecording accepts commands.
	RecorderRecording RecorderState = iota

	// RecorderLocked has an open render pass.
	RecorderLocked

	// RecorderFinished has produced its command buffer.
	RecorderFinished
)

// String returns the state name.
func (s RecorderState) String() string {
	switch s {
	case RecorderRecording:
		return "Recording"
	case RecorderLocked:
		return "Locked"
	case RecorderFinished:
		return "Finished"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// ImageCopyTexture selects the texture side of a copy.
type ImageCopyTexture struct {
	// Texture is the texture to copy to/from.
	Texture *Texture

	// MipLevel is the mip level to copy.
	MipLevel uint32

	// Origin is the origin of the copy in the mip level. For array textures
	// Z is the first array layer; for 3D textures it is the first slice.
	Origin hal.Origin3D
}

// Recorder derives texture initialization work from the commands of one
// command buffer. It records no GPU work itself: reads of possibly
// uninitialized memory and full overwrites are tracked, and surfaces that a
// read needs cleared immediately are handed to the Clearer.
//
// Recorder follows the WebGPU command encoding pattern:
//  1. Create via NewRecorder()
//  2. Record copies, bindings, clears and render passes
//  3. Call Finish() to get a CommandBuffer
//  4. Submit the CommandBuffer to a Queue
//
// State machine:
//
//	Recording -> (BeginRenderPass) -> Locked
//	Locked    -> (RenderPass.End)  -> Recording
//	Recording -> Finish()          -> Finished
//
// Recorder is NOT safe for concurrent use. Each recorder should be used from
// a single goroutine.
type Recorder struct {
	mu sync.Mutex

	label   string
	state   RecorderState
	actions MemoryActions
	clearer Clearer

	// logger overrides the package logger when non-nil.
	logger *slog.Logger

	// activePass is the open render pass, if any.
	activePass *RenderPass
}

// NewRecorder creates a recorder in the Recording state. clearer receives
// clears that cannot wait for submission; it may be nil if the recorded
// commands never read a surface discarded earlier in the same recorder.
func NewRecorder(label string, clearer Clearer, opts ...Option) *Recorder {
	o := applyOptions(opts)
	return &Recorder{
		label:   o.label(label),
		clearer: clearer,
		logger:  o.logger,
	}
}

// Label returns the recorder's debug label.
func (r *Recorder) Label() string {
	return r.label
}

// log returns the recorder's logger, falling back to the package logger.
func (r *Recorder) log() *slog.Logger {
	if r.logger != nil {
		return r.logger
	}
	return Logger()
}

// State returns the current lifecycle state.
func (r *Recorder) State() RecorderState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// checkRecordingLocked verifies the recorder accepts commands.
// Must be called with r.mu held.
func (r *Recorder) checkRecordingLocked() error {
	switch r.state {
	case RecorderRecording:
		return nil
	case RecorderLocked:
		return ErrRecorderLocked
	default:
		return ErrRecorderFinished
	}
}

// CopyBufferToTexture records a copy into dst. Whole mip planes written by
// the copy become initialized; a partial copy needs the destination
// initialized first.
func (r *Recorder) CopyBufferToTexture(dst ImageCopyTexture, size hal.Extent3D) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkRecordingLocked(); err != nil {
		return fmt.Errorf("copy buffer to texture: %w", err)
	}
	if err := r.copyDestinationLocked(dst, size); err != nil {
		return fmt.Errorf("copy buffer to texture: %w", err)
	}
	return nil
}

// CopyTextureToBuffer records a copy out of src, which must hold defined
// content.
func (r *Recorder) CopyTextureToBuffer(src ImageCopyTexture, size hal.Extent3D) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkRecordingLocked(); err != nil {
		return fmt.Errorf("copy texture to buffer: %w", err)
	}
	if err := r.copySourceLocked(src, size); err != nil {
		return fmt.Errorf("copy texture to buffer: %w", err)
	}
	return nil
}

// CopyTextureToTexture records a copy from src to dst.
func (r *Recorder) CopyTextureToTexture(src, dst ImageCopyTexture, size hal.Extent3D) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkRecordingLocked(); err != nil {
		return fmt.Errorf("copy texture to texture: %w", err)
	}
	// Validate both sides before registering either.
	if _, _, err := copyRegion(dst, size); err != nil {
		return fmt.Errorf("copy texture to texture: destination: %w", err)
	}
	if err := r.copySourceLocked(src, size); err != nil {
		return fmt.Errorf("copy texture to texture: source: %w", err)
	}
	if err := r.copyDestinationLocked(dst, size); err != nil {
		return fmt.Errorf("copy texture to texture: destination: %w", err)
	}
	return nil
}

// BindTexture records a shader read (sampled or storage) of view outside a
// render pass. Use [RenderPass.BindTexture] inside one.
func (r *Recorder) BindTexture(view *TextureView) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkRecordingLocked(); err != nil {
		return fmt.Errorf("bind texture: %w", err)
	}
	if err := r.bindLocked(view); err != nil {
		return fmt.Errorf("bind texture: %w", err)
	}
	return nil
}

// ClearTexture records an explicit clear of region. The clear is forwarded
// to the Clearer and region counts as initialized from here on.
func (r *Recorder) ClearTexture(tex *Texture, region Region) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkRecordingLocked(); err != nil {
		return fmt.Errorf("clear texture: %w", err)
	}
	if err := checkTexture(tex); err != nil {
		return fmt.Errorf("clear texture: %w", err)
	}
	if !tex.FullRegion().Covers(region) {
		return fmt.Errorf("clear texture: %w: %v outside %v",
			ErrSubresourceOutOfRange, region, tex.FullRegion())
	}
	if region.IsEmpty() {
		return nil
	}
	if r.clearer == nil {
		return fmt.Errorf("clear texture: %w", ErrNilClearer)
	}
	if err := r.clearer.ClearTexture(tex, region); err != nil {
		r.log().Warn("texinit: clear failed", "recorder", r.label, "texture", tex.ID(), "region", region, "err", err)
		return fmt.Errorf("clear texture: %w", err)
	}
	r.actions.RegisterImplicitInit(tex, region)
	return nil
}

// Finish completes recording and returns a command buffer carrying the
// recorded memory actions.
//
// The recorder must be in the Recording state (no open pass). After this
// call the recorder cannot be used for further recording.
func (r *Recorder) Finish() (*CommandBuffer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkRecordingLocked(); err != nil {
		return nil, fmt.Errorf("finish: %w", err)
	}
	r.state = RecorderFinished

	cb := &CommandBuffer{label: r.label, actions: r.actions}
	r.actions = MemoryActions{}
	r.log().Debug("texinit: command buffer finished", "label", r.label,
		"actions", len(cb.actions.init), "discards", len(cb.actions.discards))
	return cb, nil
}

// copySourceLocked registers a copy read. Must be called with r.mu held.
func (r *Recorder) copySourceLocked(src ImageCopyTexture, size hal.Extent3D) error {
	region, _, err := copyRegion(src, size)
	if err != nil {
		return err
	}
	return r.needsInitLocked(src.Texture, region)
}

// copyDestinationLocked registers a copy write. Must be called with r.mu held.
func (r *Recorder) copyDestinationLocked(dst ImageCopyTexture, size hal.Extent3D) error {
	region, full, err := copyRegion(dst, size)
	if err != nil {
		return err
	}
	if full {
		r.actions.RegisterImplicitInit(dst.Texture, region)
		return nil
	}
	return r.needsInitLocked(dst.Texture, region)
}

// bindLocked registers a shader read of view. Must be called with r.mu held.
func (r *Recorder) bindLocked(view *TextureView) error {
	if err := checkView(view); err != nil {
		return err
	}
	return r.needsInitLocked(view.Texture(), view.Region())
}

// needsInitLocked registers a read of region and clears any surface the
// recorder discarded earlier that the read now depends on. If a clear fails,
// the registration is rolled back.
// Must be called with r.mu held.
func (r *Recorder) needsInitLocked(tex *Texture, region Region) error {
	if region.IsEmpty() {
		return nil
	}
	mk := r.actions.mark()
	immediate := r.actions.RegisterInitAction(tex, Action{
		Texture: tex.ID(),
		Region:  region,
		Kind:    NeedsInitializedMemory,
	})
	if len(immediate) == 0 {
		return nil
	}
	r.log().Debug("texinit: clearing discarded surfaces", "recorder", r.label,
		"texture", tex.ID(), "surfaces", len(immediate))
	if err := FixupDiscardedSurfaces(tex, immediate, r.clearer); err != nil {
		r.actions.rollback(mk)
		return err
	}
	return nil
}

// discardLocked records that every surface of region is left undefined.
// Must be called with r.mu held.
func (r *Recorder) discardLocked(tex *Texture, region Region) {
	for mip := region.Mips.Start; mip < region.Mips.End; mip++ {
		for layer := region.Layers.Start; layer < region.Layers.End; layer++ {
			r.actions.Discard(tex, mip, layer)
		}
	}
}

// copyRegion validates a copy against the texture and returns the
// subresources it touches, and whether it overwrites all of them.
func copyRegion(ct ImageCopyTexture, size hal.Extent3D) (Region, bool, error) {
	tex := ct.Texture
	if err := checkTexture(tex); err != nil {
		return Region{}, false, err
	}
	if ct.MipLevel >= tex.MipLevelCount() {
		return Region{}, false, fmt.Errorf("%w: mip level %d of %d",
			ErrCopyOutOfBounds, ct.MipLevel, tex.MipLevelCount())
	}

	ext := tex.MipExtent(ct.MipLevel)
	is3D := tex.Dimension() == gputypes.TextureDimension3D
	depthLimit := tex.ArrayLayerCount()
	if is3D {
		depthLimit = ext.DepthOrArrayLayers
	}
	if !fits(ct.Origin.X, size.Width, ext.Width) ||
		!fits(ct.Origin.Y, size.Height, ext.Height) ||
		!fits(ct.Origin.Z, size.DepthOrArrayLayers, depthLimit) {
		return Region{}, false, fmt.Errorf("%w: origin (%d, %d, %d) size %dx%dx%d in mip %d of %dx%dx%d",
			ErrCopyOutOfBounds, ct.Origin.X, ct.Origin.Y, ct.Origin.Z,
			size.Width, size.Height, size.DepthOrArrayLayers,
			ct.MipLevel, ext.Width, ext.Height, depthLimit)
	}
	if size.Width == 0 || size.Height == 0 || size.DepthOrArrayLayers == 0 {
		return Region{}, false, nil
	}

	mips := initrange.Single(ct.MipLevel)
	full := ct.Origin.X == 0 && ct.Origin.Y == 0 &&
		size.Width == ext.Width && size.Height == ext.Height
	if is3D {
		full = full && ct.Origin.Z == 0 && size.DepthOrArrayLayers == ext.DepthOrArrayLayers
		return Region{Mips: mips, Layers: initrange.Single[uint32](0)}, full, nil
	}
	return Region{
		Mips:   mips,
		Layers: LayerRange{Start: ct.Origin.Z, End: ct.Origin.Z + size.DepthOrArrayLayers},
	}, full, nil
}

// fits reports whether [origin, origin+n) lies within [0, limit).
func fits(origin, n, limit uint32) bool {
	return uint64(origin)+uint64(n) <= uint64(limit)
}

// checkTexture verifies tex is usable in a command.
func checkTexture(tex *Texture) error {
	if tex == nil {
		return ErrNilTexture
	}
	if tex.IsDestroyed() {
		return fmt.Errorf("%w: %d", ErrTextureDestroyed, tex.ID())
	}
	return nil
}

// checkView verifies view and its texture are usable in a command.
func checkView(view *TextureView) error {
	if view == nil {
		return ErrNilTexture
	}
	if view.IsDestroyed() {
		return fmt.Errorf("%w: view %q", ErrTextureDestroyed, view.Label())
	}
	return checkTexture(view.Texture())
}

// =============================================================================
// CommandBuffer
// =============================================================================

// CommandBuffer is a finished recording, ready for [Queue.Submit].
type CommandBuffer struct {
	label     string
	actions   MemoryActions
	submitted bool
}

// Label returns the debug label of the recorder that produced the buffer.
func (cb *CommandBuffer) Label() string {
	return cb.label
}

// InitActions returns the init actions waiting for submission.
func (cb *CommandBuffer) InitActions() []Action {
	return cb.actions.InitActions()
}

// Discards returns the surfaces the buffer leaves undefined.
func (cb *CommandBuffer) Discards() []SurfaceDiscard {
	return cb.actions.Discards()
}
