// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package texinit

import (
	"fmt"
	"math"

	"github.com/gogpu/texinit/initrange"
)

// MaxMipLevels is the largest mip level count a Tracker can hold.
const MaxMipLevels = 16

// Tracker records, for one texture, which (mip level, array layer)
// subresources hold defined content.
//
// Each mip level has its own [initrange.Tracker] over the array layers. The
// mip dimension is stored inline in a fixed-size array, so constructing a
// tracker does not allocate per mip.
//
// Subresources start uninitialized and cycle for the texture's lifetime:
//
//	Uninitialized -> (clear recorded + Commit) -> Initialized
//	Initialized   -> Discard                   -> Uninitialized
//
// Tracker is not safe for concurrent use. [Texture] serializes access.
type Tracker struct {
	mips      [MaxMipLevels]initrange.Tracker[uint32]
	mipCount  uint32
	layerSize uint32
}

// NewTracker creates a tracker for a texture with the given mip level and
// array layer counts, with every subresource uninitialized.
//
// It panics with an error wrapping [ErrMipCapacityOverflow] when
// mipLevelCount exceeds [MaxMipLevels].
func NewTracker(mipLevelCount, layerCount uint32) *Tracker {
	if mipLevelCount > MaxMipLevels {
		panic(fmt.Errorf("%w: %d > %d", ErrMipCapacityOverflow, mipLevelCount, MaxMipLevels))
	}
	t := &Tracker{mipCount: mipLevelCount, layerSize: layerCount}
	for i := range t.mips[:mipLevelCount] {
		t.mips[i].Reset(layerCount)
	}
	return t
}

// MipLevelCount returns the number of tracked mip levels.
func (t *Tracker) MipLevelCount() uint32 {
	return t.mipCount
}

// LayerCount returns the number of tracked array layers per mip level.
func (t *Tracker) LayerCount() uint32 {
	return t.layerSize
}

// FullRegion returns the region covering every tracked subresource.
func (t *Tracker) FullRegion() Region {
	return NewRegion(0, t.mipCount, 0, t.layerSize)
}

// IsFullyInitialized reports whether every subresource holds defined content.
func (t *Tracker) IsFullyInitialized() bool {
	for i := range t.mips[:t.mipCount] {
		if !t.mips[i].IsFullyInitialized() {
			return false
		}
	}
	return true
}

// CheckAction reports whether any subresource in action's region is
// uninitialized.
//
// On a hit it returns an action with the same texture and kind whose region
// is the bounding box of every uninitialized subresource in the queried
// region: lowest and one-past-highest mip with a hit, crossed with the
// union of the per-mip layer bounds. The box may include initialized
// subresources; it never misses an uninitialized one. Callers clear the
// returned region and then call [Tracker.Commit].
//
// CheckAction does not modify the tracker. An empty region reports no hit.
// A non-empty region outside the tracked subresources panics with an error
// wrapping [ErrSubresourceOutOfRange].
func (t *Tracker) CheckAction(action Action) (Action, bool) {
	region := action.Region
	if region.IsEmpty() {
		return Action{}, false
	}
	t.mustContain(region)

	mipStart, mipEnd := uint32(math.MaxUint32), uint32(0)
	layerStart, layerEnd := uint32(math.MaxUint32), uint32(0)

	for mip := region.Mips.Start; mip < region.Mips.End; mip++ {
		layers, ok := t.mips[mip].Check(region.Layers)
		if !ok {
			continue
		}
		mipStart = min(mipStart, mip)
		mipEnd = mip + 1
		layerStart = min(layerStart, layers.Start)
		layerEnd = max(layerEnd, layers.End)
	}

	if mipStart >= mipEnd || layerStart >= layerEnd {
		return Action{}, false
	}
	return Action{
		Texture: action.Texture,
		Region:  NewRegion(mipStart, mipEnd, layerStart, layerEnd),
		Kind:    action.Kind,
	}, true
}

// Commit marks every subresource in region as initialized. It is called
// after the initialization of region has actually been recorded.
// It panics with an error wrapping [ErrSubresourceOutOfRange] when region
// lies outside the tracked subresources.
func (t *Tracker) Commit(region Region) {
	if region.IsEmpty() {
		return
	}
	t.mustContain(region)
	for mip := region.Mips.Start; mip < region.Mips.End; mip++ {
		t.mips[mip].Commit(region.Layers)
	}
}

// Drain marks every subresource in region as initialized, calling fn with
// each exact single-mip region that was uninitialized before the call.
// Unlike CheckAction followed by Commit, fn never sees subresources that
// were already initialized, which suits callers issuing their own clears.
func (t *Tracker) Drain(region Region, fn func(Region)) {
	if region.IsEmpty() {
		return
	}
	t.mustContain(region)
	for mip := region.Mips.Start; mip < region.Mips.End; mip++ {
		for _, layers := range t.mips[mip].Drain(region.Layers) {
			if fn != nil {
				fn(Region{Mips: initrange.Single(mip), Layers: layers})
			}
		}
	}
}

// Discard marks the subresource (mipLevel, layer) as uninitialized.
// It panics with an error wrapping [ErrSubresourceOutOfRange] when either
// index lies outside the tracked subresources.
func (t *Tracker) Discard(mipLevel, layer uint32) {
	if mipLevel >= t.mipCount || layer >= t.layerSize {
		panic(fmt.Errorf("%w: discard mip %d layer %d of %d×%d",
			ErrSubresourceOutOfRange, mipLevel, layer, t.mipCount, t.layerSize))
	}
	t.mips[mipLevel].Discard(layer)
}

// mustContain panics when a non-empty region reaches past the tracked
// subresources.
func (t *Tracker) mustContain(region Region) {
	if region.Mips.End > t.mipCount || region.Layers.End > t.layerSize {
		panic(fmt.Errorf("%w: %v of %d×%d",
			ErrSubresourceOutOfRange, region, t.mipCount, t.layerSize))
	}
}
