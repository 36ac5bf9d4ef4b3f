// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Command texinit-trace records a few frames against a noop device and
// prints the clears texture initialization tracking asks for.
package main

import (
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/texinit"
)

func main() {
	var (
		size    = flag.Uint("size", 256, "texture width and height")
		mips    = flag.Uint("mips", 4, "mip level count")
		layers  = flag.Uint("layers", 3, "array layer count")
		frames  = flag.Int("frames", 2, "number of frames to record")
		verbose = flag.Bool("v", false, "log tracker activity")
	)
	flag.Parse()

	if *verbose {
		texinit.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	device, cleanup, err := openNoopDevice()
	if err != nil {
		log.Fatalf("Failed to open device: %v", err)
	}
	defer cleanup()

	reg, err := texinit.NewRegistry(device, texinit.WithLabelPrefix("trace/"))
	if err != nil {
		log.Fatalf("Failed to create registry: %v", err)
	}
	defer reg.Destroy()

	tex, err := reg.CreateTexture(&texinit.TextureDescriptor{
		Label: "atlas",
		Size: hal.Extent3D{
			Width:              uint32(*size),
			Height:             uint32(*size),
			DepthOrArrayLayers: uint32(*layers),
		},
		MipLevelCount: uint32(*mips),
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage: gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst |
			gputypes.TextureUsageRenderAttachment,
	})
	if err != nil {
		log.Fatalf("Failed to create texture: %v", err)
	}

	clearer := texinit.ClearerFunc(func(t *texinit.Texture, region texinit.Region) error {
		log.Printf("clear %q %v (%d subresources)", t.Label(), region, region.Count())
		return nil
	})
	queue := texinit.NewQueue(clearer)

	for frame := range *frames {
		cb, err := recordFrame(tex, clearer, frame)
		if err != nil {
			log.Fatalf("Frame %d: %v", frame, err)
		}
		stats, err := queue.Submit(cb)
		if err != nil {
			log.Fatalf("Frame %d: submit: %v", frame, err)
		}
		log.Printf("frame %d: %d clears, %d subresources, %d commits, %d discards, fully initialized: %v",
			frame, stats.Clears, stats.ClearedSubresources, stats.Commits, stats.Discards,
			tex.IsFullyInitialized())
	}
}

// recordFrame uploads the base level of layer 0, renders into layer 1 with
// a transient attachment and samples the whole texture.
func recordFrame(tex *texinit.Texture, clearer texinit.Clearer, frame int) (*texinit.CommandBuffer, error) {
	rec := texinit.NewRecorder("frame", clearer)

	if frame == 0 {
		base := tex.MipExtent(0)
		err := rec.CopyBufferToTexture(texinit.ImageCopyTexture{Texture: tex}, hal.Extent3D{
			Width:              base.Width,
			Height:             base.Height,
			DepthOrArrayLayers: 1,
		})
		if err != nil {
			return nil, err
		}
	}

	if tex.ArrayLayerCount() > 1 {
		target, err := tex.CreateView(&texinit.TextureViewDescriptor{
			Label:           "transient",
			BaseArrayLayer:  1,
			ArrayLayerCount: 1,
			MipLevelCount:   1,
		})
		if err != nil {
			return nil, err
		}
		defer target.Destroy()

		pass, err := rec.BeginRenderPass(&texinit.RenderPassDescriptor{
			Label: "transient",
			ColorAttachments: []texinit.RenderPassColorAttachment{{
				View:    target,
				LoadOp:  gputypes.LoadOpClear,
				StoreOp: gputypes.StoreOpDiscard,
			}},
		})
		if err != nil {
			return nil, err
		}
		if err := pass.End(); err != nil {
			return nil, err
		}
	}

	view, err := tex.CreateView(nil)
	if err != nil {
		return nil, err
	}
	defer view.Destroy()
	if err := rec.BindTexture(view); err != nil {
		return nil, err
	}
	return rec.Finish()
}

// openNoopDevice opens the first adapter of the noop backend.
func openNoopDevice() (hal.Device, func(), error) {
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		return nil, nil, err
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, nil, err
	}
	cleanup := func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	return openDev.Device, cleanup, nil
}
