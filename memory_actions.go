// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package texinit

import (
	"fmt"
	"slices"
)

// pendingAction is an init action queued against a texture.
type pendingAction struct {
	texture *Texture
	action  Action
}

// pendingDiscard is a surface discarded by the command buffer being recorded.
type pendingDiscard struct {
	texture *Texture
	surface SurfaceDiscard
}

// MemoryActions collects the texture initialization work of one command
// buffer while it is recorded.
//
// Init actions are resolved at submission (see [Resolve]). Discards are
// applied to the trackers after that, since they describe the state the
// command buffer leaves behind.
//
// MemoryActions is NOT safe for concurrent use.
type MemoryActions struct {
	init     []pendingAction
	discards []pendingDiscard
}

// RegisterInitAction queues the part of action that the texture's tracker
// reports as uninitialized, and reconciles it with surfaces discarded
// earlier in the same command buffer.
//
// A touched discarded surface stops being pending. When action needs
// initialized memory, such surfaces are returned: their content is undefined
// at this point of the command buffer, so the caller must clear them
// immediately (see [FixupDiscardedSurfaces]).
func (m *MemoryActions) RegisterInitAction(tex *Texture, action Action) []SurfaceDiscard {
	action.Texture = tex.ID()
	if hit, ok := tex.CheckAction(action); ok {
		m.init = append(m.init, pendingAction{texture: tex, action: hit})
	}

	// Pending discards are rare, so a linear scan is fine.
	var immediate []SurfaceDiscard
	m.discards = slices.DeleteFunc(m.discards, func(d pendingDiscard) bool {
		if d.texture != tex || !action.Region.Contains(d.surface.MipLevel, d.surface.Layer) {
			return false
		}
		if action.Kind == NeedsInitializedMemory {
			immediate = append(immediate, d.surface)
			// The immediate clear initializes the surface, which may have
			// been uninitialized before it was discarded.
			m.init = append(m.init, pendingAction{
				texture: tex,
				action: Action{
					Texture: tex.ID(),
					Region:  d.surface.Region(),
					Kind:    ImplicitlyInitialized,
				},
			})
		}
		return true
	})
	return immediate
}

// RegisterImplicitInit records that region of tex is fully overwritten.
func (m *MemoryActions) RegisterImplicitInit(tex *Texture, region Region) {
	m.RegisterInitAction(tex, Action{Texture: tex.ID(), Region: region, Kind: ImplicitlyInitialized})
}

// Discard records that subresource (mipLevel, layer) of tex is left with
// undefined content. It panics with an error wrapping
// [ErrSubresourceOutOfRange] when the subresource is outside the texture.
func (m *MemoryActions) Discard(tex *Texture, mipLevel, layer uint32) {
	if mipLevel >= tex.MipLevelCount() || layer >= tex.ArrayLayerCount() {
		panic(fmt.Errorf("%w: discard mip %d layer %d of texture %d",
			ErrSubresourceOutOfRange, mipLevel, layer, tex.ID()))
	}
	surface := SurfaceDiscard{Texture: tex.ID(), MipLevel: mipLevel, Layer: layer}
	for _, d := range m.discards {
		if d.texture == tex && d.surface == surface {
			return
		}
	}
	m.discards = append(m.discards, pendingDiscard{texture: tex, surface: surface})
}

// actionsMark is the recording position saved by [MemoryActions.mark].
type actionsMark struct {
	init     int
	discards []pendingDiscard
}

// mark saves the current position. Init actions only grow while recording,
// so their length is enough; pending discards are copied.
func (m *MemoryActions) mark() actionsMark {
	return actionsMark{init: len(m.init), discards: slices.Clone(m.discards)}
}

// rollback drops everything registered since mk was taken.
func (m *MemoryActions) rollback(mk actionsMark) {
	clear(m.init[mk.init:])
	m.init = m.init[:mk.init]
	m.discards = mk.discards
}

// InitActions returns a copy of the queued init actions, in recording order.
func (m *MemoryActions) InitActions() []Action {
	out := make([]Action, len(m.init))
	for i, p := range m.init {
		out[i] = p.action
	}
	return out
}

// Discards returns a copy of the pending discards, in recording order.
func (m *MemoryActions) Discards() []SurfaceDiscard {
	out := make([]SurfaceDiscard, len(m.discards))
	for i, d := range m.discards {
		out[i] = d.surface
	}
	return out
}

// IsEmpty reports whether nothing is queued.
func (m *MemoryActions) IsEmpty() bool {
	return len(m.init) == 0 && len(m.discards) == 0
}

// Reset drops everything queued. Storage is reused.
func (m *MemoryActions) Reset() {
	clear(m.init)
	clear(m.discards)
	m.init = m.init[:0]
	m.discards = m.discards[:0]
}
