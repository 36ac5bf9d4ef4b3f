// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package texinit tracks which subresources of GPU textures hold defined
// content, so that reads never observe uninitialized memory.
//
// # Overview
//
// A freshly created texture has undefined content. WebGPU requires that a
// read observes zeros instead, so every read of a subresource that was never
// written must be preceded by a clear. Clearing everything up front is
// wasteful: most textures are fully overwritten before they are read.
// texinit records, per texture, which (mip level, array layer) pairs are
// still uninitialized and derives the minimal clears from the commands that
// touch them.
//
// # Quick Start
//
//	reg, _ := texinit.NewRegistry(device)
//	tex, _ := reg.CreateTexture(&texinit.TextureDescriptor{
//	    Label:         "albedo",
//	    Size:          hal.Extent3D{Width: 256, Height: 256, DepthOrArrayLayers: 1},
//	    MipLevelCount: 9,
//	    Dimension:     gputypes.TextureDimension2D,
//	    Format:        gputypes.TextureFormatRGBA8Unorm,
//	    Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
//	})
//
//	rec := texinit.NewRecorder("frame", clearer)
//	_ = rec.BindTexture(view) // reads mips that were never written
//	cb, _ := rec.Finish()
//
//	queue := texinit.NewQueue(clearer)
//	stats, _ := queue.Submit(cb) // clears what the read needs, then commits
//
// # Two-phase tracking
//
// Queries never mutate state. [Tracker.CheckAction] reports the region an
// action would have to clear; the caller records the clear and then calls
// [Tracker.Commit]. [Tracker.Discard] returns a single subresource to the
// uninitialized state, e.g. after a render pass with StoreOpDiscard.
//
// Reported regions are bounding boxes across mip levels. They may include
// subresources that are already initialized (clearing those is harmless)
// but never omit one that is not.
//
// # Architecture
//
// The package is organized into:
//   - initrange: sorted, disjoint uninitialized ranges over one dimension
//   - Tracker: one range registry per mip level, over array layers
//   - Texture, TextureView, Registry: HAL-backed resources owning trackers
//   - MemoryActions, Recorder, RenderPass: per-command-buffer bookkeeping
//   - Resolve, Queue: submission-time clears through a [Clearer]
//
// # Logging
//
// texinit is silent by default. Use [SetLogger] or [WithLogger] to route its
// slog output.
package texinit
