// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package texinit

import (
	"fmt"
	"log/slog"
)

// Clearer records clear operations. It is implemented by the command
// encoding layer; texinit only decides what to clear.
//
// ClearTexture must make every subresource of region hold defined content.
// Clearing already initialized subresources is allowed.
type Clearer interface {
	ClearTexture(tex *Texture, region Region) error
}

// ClearerFunc adapts a function to the Clearer interface.
type ClearerFunc func(tex *Texture, region Region) error

// ClearTexture calls f(tex, region).
func (f ClearerFunc) ClearTexture(tex *Texture, region Region) error {
	return f(tex, region)
}

// ResolveStats summarizes the work done by a resolution.
type ResolveStats struct {
	// Clears is the number of ClearTexture calls.
	Clears int

	// ClearedSubresources is the number of subresources covered by clears,
	// including initialized ones inside bounding regions.
	ClearedSubresources uint32

	// Commits is the number of regions marked initialized.
	Commits int

	// Discards is the number of subresources returned to uninitialized.
	Discards int
}

// add accumulates o into s.
func (s *ResolveStats) add(o ResolveStats) {
	s.Clears += o.Clears
	s.ClearedSubresources += o.ClearedSubresources
	s.Commits += o.Commits
	s.Discards += o.Discards
}

// FixupDiscardedSurfaces clears surfaces of tex that were discarded earlier
// in the command buffer being recorded and are about to be read, as returned
// by [MemoryActions.RegisterInitAction]. Each surface is cleared on its own.
func FixupDiscardedSurfaces(tex *Texture, surfaces []SurfaceDiscard, clearer Clearer) error {
	if len(surfaces) == 0 {
		return nil
	}
	if clearer == nil {
		return ErrNilClearer
	}
	for _, s := range surfaces {
		if err := clearer.ClearTexture(tex, s.Region()); err != nil {
			return fmt.Errorf("clear discarded surface of texture %d (mip %d, layer %d): %w",
				tex.ID(), s.MipLevel, s.Layer, err)
		}
	}
	return nil
}

// Resolve brings the trackers up to date for a command buffer about to be
// submitted, issuing the clears its recorded reads depend on.
//
// For every queued action, the texture's tracker is checked again. On a hit,
// an action that needs initialized memory gets one clear over the returned
// bounding region; the region is then committed. Implicitly initialized
// regions are committed without clearing. Finally the command buffer's
// discards are applied, and m is reset.
//
// If clearer fails, resolution stops with the error; the failed region stays
// uninitialized and m is left as is.
func Resolve(m *MemoryActions, clearer Clearer) (ResolveStats, error) {
	return resolve(m, clearer, Logger())
}

func resolve(m *MemoryActions, clearer Clearer, logger *slog.Logger) (ResolveStats, error) {
	var stats ResolveStats

	for _, p := range m.init {
		if p.texture.IsDestroyed() {
			logger.Debug("texinit: skipping action on destroyed texture", "action", p.action)
			continue
		}
		hit, ok := p.texture.CheckAction(p.action)
		if !ok {
			continue
		}
		if hit.Kind == NeedsInitializedMemory {
			if clearer == nil {
				return stats, ErrNilClearer
			}
			if err := clearer.ClearTexture(p.texture, hit.Region); err != nil {
				logger.Warn("texinit: clear failed", "action", hit, "err", err)
				return stats, fmt.Errorf("clear texture %d %v: %w", hit.Texture, hit.Region, err)
			}
			stats.Clears++
			stats.ClearedSubresources += hit.Region.Count()
			logger.Debug("texinit: region cleared", "action", hit)
		}
		p.texture.Commit(hit.Region)
		stats.Commits++
	}

	for _, d := range m.discards {
		if d.texture.IsDestroyed() {
			continue
		}
		d.texture.Discard(d.surface.MipLevel, d.surface.Layer)
		stats.Discards++
	}

	m.Reset()
	return stats, nil
}
