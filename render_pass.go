// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package texinit

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
)

// Render pass errors.
var (
	// ErrRenderPassEnded is returned when an ended render pass is used.
	ErrRenderPassEnded = errors.New("texinit: render pass already ended")

	// ErrMixedDepthStencilStoreOps is returned when the depth and stencil
	// aspects of one attachment would leave different content behind: both
	// writable with different store ops, or one read-only while the other
	// is discarded.
	ErrMixedDepthStencilStoreOps = errors.New("texinit: depth and stencil store ops differ")

	// ErrNoAttachments is returned when a render pass has no attachments.
	ErrNoAttachments = errors.New("texinit: render pass has no attachments")
)

// RenderPassDescriptor describes a render pass.
type RenderPassDescriptor struct {
	// Label is an optional debug name.
	Label string

	// ColorAttachments are the color render targets.
	ColorAttachments []RenderPassColorAttachment

	// DepthStencilAttachment is the depth/stencil target (optional).
	DepthStencilAttachment *RenderPassDepthStencilAttachment
}

// RenderPassColorAttachment describes a color attachment.
type RenderPassColorAttachment struct {
	// View is the texture view to render to.
	View *TextureView

	// ResolveTarget is the MSAA resolve target (optional).
	ResolveTarget *TextureView

	// LoadOp specifies what to do at pass start.
	LoadOp gputypes.LoadOp

	// StoreOp specifies what to do at pass end.
	StoreOp gputypes.StoreOp
}

// RenderPassDepthStencilAttachment describes a depth/stencil attachment.
// Ops of an aspect the format lacks are left at their zero value.
type RenderPassDepthStencilAttachment struct {
	// View is the texture view to use.
	View *TextureView

	// DepthLoadOp specifies what to do with depth at pass start.
	DepthLoadOp gputypes.LoadOp

	// DepthStoreOp specifies what to do with depth at pass end.
	DepthStoreOp gputypes.StoreOp

	// DepthReadOnly makes the depth aspect read-only. A read-only aspect
	// keeps its content, so the other aspect must not be discarded.
	DepthReadOnly bool

	// StencilLoadOp specifies what to do with stencil at pass start.
	StencilLoadOp gputypes.LoadOp

	// StencilStoreOp specifies what to do with stencil at pass end.
	StencilStoreOp gputypes.StoreOp

	// StencilReadOnly makes the stencil aspect read-only.
	StencilReadOnly bool
}

// attachmentOps is the combined effect of an attachment on its view.
type attachmentOps struct {
	view *TextureView

	// load is NeedsInitializedMemory when the pass reads previous content.
	load    InitKind
	loads   bool
	discard bool
	stores  bool
}

// colorOps returns the effect of a color attachment.
func colorOps(ca *RenderPassColorAttachment) attachmentOps {
	ops := attachmentOps{view: ca.View, loads: true, load: ImplicitlyInitialized, stores: true}
	if ca.LoadOp != gputypes.LoadOpClear {
		ops.load = NeedsInitializedMemory
	}
	ops.discard = ca.StoreOp == gputypes.StoreOpDiscard
	return ops
}

// depthStencilOps returns the combined effect of the used aspects of a
// depth/stencil attachment. Read-only aspects read previous content and
// keep it.
func depthStencilOps(ds *RenderPassDepthStencilAttachment) (attachmentOps, error) {
	var (
		unsetLoad  gputypes.LoadOp
		unsetStore gputypes.StoreOp
	)
	ops := attachmentOps{view: ds.View, load: ImplicitlyInitialized}

	type aspect struct {
		load     gputypes.LoadOp
		store    gputypes.StoreOp
		readOnly bool
	}
	aspects := [2]aspect{
		{ds.DepthLoadOp, ds.DepthStoreOp, ds.DepthReadOnly},
		{ds.StencilLoadOp, ds.StencilStoreOp, ds.StencilReadOnly},
	}

	var (
		store    gputypes.StoreOp
		readOnly bool
	)
	for _, a := range aspects {
		if a.readOnly {
			ops.loads = true
			ops.load = NeedsInitializedMemory
			readOnly = true
			continue
		}
		if a.load == unsetLoad && a.store == unsetStore {
			continue
		}
		ops.loads = true
		if a.load != gputypes.LoadOpClear {
			ops.load = NeedsInitializedMemory
		}
		if ops.stores && a.store != store {
			return attachmentOps{}, fmt.Errorf("%w: %v and %v on view %q",
				ErrMixedDepthStencilStoreOps, store, a.store, ds.View.Label())
		}
		ops.stores = true
		store = a.store
	}
	ops.discard = ops.stores && store == gputypes.StoreOpDiscard
	if ops.discard && readOnly {
		// A read-only aspect keeps its content, the other would discard it.
		return attachmentOps{}, fmt.Errorf("%w: read-only aspect next to %v on view %q",
			ErrMixedDepthStencilStoreOps, store, ds.View.Label())
	}
	return ops, nil
}

// RenderPass tracks the attachments of an open render pass. Load ops are
// registered when the pass begins and store ops when it ends.
//
// The pass must be ended with End() before the recorder can record further
// commands or finish.
type RenderPass struct {
	recorder *Recorder
	label    string
	ops      []attachmentOps
	ended    bool
}

// BeginRenderPass opens a render pass and registers its load ops: a cleared
// attachment is fully overwritten, any other load op reads the attachment's
// previous content. Resolve targets are fully overwritten.
//
// The recorder is Locked until the pass ends.
func (r *Recorder) BeginRenderPass(desc *RenderPassDescriptor) (*RenderPass, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkRecordingLocked(); err != nil {
		return nil, fmt.Errorf("begin render pass: %w", err)
	}
	if desc == nil {
		return nil, fmt.Errorf("begin render pass: %w", ErrNilDescriptor)
	}
	if len(desc.ColorAttachments) == 0 && desc.DepthStencilAttachment == nil {
		return nil, fmt.Errorf("begin render pass: %w", ErrNoAttachments)
	}

	// Validate every attachment before registering anything.
	var ops []attachmentOps
	var resolveTargets []*TextureView
	for i := range desc.ColorAttachments {
		ca := &desc.ColorAttachments[i]
		if err := checkView(ca.View); err != nil {
			return nil, fmt.Errorf("begin render pass: color attachment %d: %w", i, err)
		}
		if ca.ResolveTarget != nil {
			if err := checkView(ca.ResolveTarget); err != nil {
				return nil, fmt.Errorf("begin render pass: resolve target %d: %w", i, err)
			}
			resolveTargets = append(resolveTargets, ca.ResolveTarget)
		}
		ops = append(ops, colorOps(ca))
	}
	if ds := desc.DepthStencilAttachment; ds != nil {
		if err := checkView(ds.View); err != nil {
			return nil, fmt.Errorf("begin render pass: depth/stencil attachment: %w", err)
		}
		dsOps, err := depthStencilOps(ds)
		if err != nil {
			return nil, fmt.Errorf("begin render pass: %w", err)
		}
		ops = append(ops, dsOps)
	}

	// A failed fixup clear leaves the recorder as it was before the pass.
	mk := r.actions.mark()
	for _, op := range ops {
		if !op.loads {
			continue
		}
		tex, region := op.view.Texture(), op.view.Region()
		if op.load == NeedsInitializedMemory {
			if err := r.needsInitLocked(tex, region); err != nil {
				r.actions.rollback(mk)
				return nil, fmt.Errorf("begin render pass: %w", err)
			}
			continue
		}
		r.actions.RegisterImplicitInit(tex, region)
	}
	for _, rt := range resolveTargets {
		r.actions.RegisterImplicitInit(rt.Texture(), rt.Region())
	}

	pass := &RenderPass{recorder: r, label: desc.Label, ops: ops}
	r.state = RecorderLocked
	r.activePass = pass
	return pass, nil
}

// Label returns the pass's debug label.
func (p *RenderPass) Label() string {
	return p.label
}

// BindTexture records a shader read of view inside the pass.
func (p *RenderPass) BindTexture(view *TextureView) error {
	r := p.recorder
	r.mu.Lock()
	defer r.mu.Unlock()

	if p.ended {
		return fmt.Errorf("bind texture: %w", ErrRenderPassEnded)
	}
	if err := r.bindLocked(view); err != nil {
		return fmt.Errorf("bind texture: %w", err)
	}
	return nil
}

// End closes the pass and registers its store ops: a discarded attachment
// leaves every surface of its view undefined, a stored one leaves them
// initialized. The recorder returns to the Recording state.
func (p *RenderPass) End() error {
	r := p.recorder
	r.mu.Lock()
	defer r.mu.Unlock()

	if p.ended {
		return ErrRenderPassEnded
	}
	p.ended = true

	for _, op := range p.ops {
		if !op.stores {
			continue
		}
		tex, region := op.view.Texture(), op.view.Region()
		if op.discard {
			r.discardLocked(tex, region)
			continue
		}
		r.actions.RegisterImplicitInit(tex, region)
	}

	r.state = RecorderRecording
	r.activePass = nil
	return nil
}
