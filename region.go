// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package texinit

import (
	"fmt"

	"github.com/gogpu/texinit/initrange"
)

// TextureID is an opaque handle to a tracked texture.
type TextureID uint64

// InvalidID is the zero value, representing an invalid/null texture.
const InvalidID TextureID = 0

// LayerRange is a half-open range of array layers or mip levels.
type LayerRange = initrange.Range[uint32]

// Region is a rectangle of subresources: a half-open range of mip levels
// crossed with a half-open range of array layers.
//
// A region with an empty range on either axis holds no subresource.
type Region struct {
	// Mips is the selected mip level range.
	Mips LayerRange

	// Layers is the selected array layer range.
	Layers LayerRange
}

// NewRegion returns the region [mipStart, mipEnd) × [layerStart, layerEnd).
func NewRegion(mipStart, mipEnd, layerStart, layerEnd uint32) Region {
	return Region{
		Mips:   initrange.Span(mipStart, mipEnd),
		Layers: initrange.Span(layerStart, layerEnd),
	}
}

// SubresourceRegion returns the region holding the single subresource
// (mip, layer).
func SubresourceRegion(mip, layer uint32) Region {
	return Region{
		Mips:   initrange.Single(mip),
		Layers: initrange.Single(layer),
	}
}

// IsEmpty reports whether the region holds no subresource.
func (r Region) IsEmpty() bool {
	return r.Mips.IsEmpty() || r.Layers.IsEmpty()
}

// Contains reports whether the subresource (mip, layer) lies in the region.
func (r Region) Contains(mip, layer uint32) bool {
	return r.Mips.Contains(mip) && r.Layers.Contains(layer)
}

// Covers reports whether every subresource of o lies in r.
// An empty o is covered by any region.
func (r Region) Covers(o Region) bool {
	if o.IsEmpty() {
		return true
	}
	return r.Mips.Start <= o.Mips.Start && o.Mips.End <= r.Mips.End &&
		r.Layers.Start <= o.Layers.Start && o.Layers.End <= r.Layers.End
}

// Union returns the bounding box of r and o. Empty operands are ignored.
func (r Region) Union(o Region) Region {
	switch {
	case r.IsEmpty():
		return o
	case o.IsEmpty():
		return r
	}
	return Region{Mips: r.Mips.Union(o.Mips), Layers: r.Layers.Union(o.Layers)}
}

// Count returns the number of subresources in the region.
func (r Region) Count() uint32 {
	if r.IsEmpty() {
		return 0
	}
	return r.Mips.Len() * r.Layers.Len()
}

// String returns the region as "mips [a, b) layers [c, d)".
func (r Region) String() string {
	return fmt.Sprintf("mips %v layers %v", r.Mips, r.Layers)
}

// InitKind tells the caller what a tracked access does with the previous
// content of the subresources it touches. The tracker carries it through
// unchanged.
type InitKind uint8

const (
	// NeedsInitializedMemory means the access reads the content, so
	// uninitialized subresources must be cleared first.
	NeedsInitializedMemory InitKind = iota

	// ImplicitlyInitialized means the access overwrites the content
	// entirely, so the subresources can be marked initialized without a
	// clear.
	ImplicitlyInitialized
)

// String returns the string representation of InitKind.
func (k InitKind) String() string {
	switch k {
	case NeedsInitializedMemory:
		return "NeedsInitializedMemory"
	case ImplicitlyInitialized:
		return "ImplicitlyInitialized"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// Action describes a unit of work over a texture's subresources: either a
// request built by command recording, or the tracker's answer to it.
type Action struct {
	// Texture identifies the texture.
	Texture TextureID

	// Region is the affected subresource rectangle.
	Region Region

	// Kind is the initialization intent of the access.
	Kind InitKind
}

// String returns a human-readable description of the action.
func (a Action) String() string {
	return fmt.Sprintf("texture %d %v (%v)", a.Texture, a.Region, a.Kind)
}

// SurfaceDiscard names a single subresource whose content was explicitly
// invalidated, e.g. by a render pass that discards on store.
type SurfaceDiscard struct {
	// Texture identifies the texture.
	Texture TextureID

	// MipLevel is the discarded mip level.
	MipLevel uint32

	// Layer is the discarded array layer.
	Layer uint32
}

// Region returns the 1×1 region of the discarded subresource.
func (d SurfaceDiscard) Region() Region {
	return SubresourceRegion(d.MipLevel, d.Layer)
}
