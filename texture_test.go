//go:build !nogpu

package texinit

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// =============================================================================
// Test Helpers
// =============================================================================

// createNoopDevice creates a noop device for testing.
// Returns the device and a cleanup function.
func createNoopDevice(t *testing.T) (hal.Device, func()) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	cleanup := func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	return openDev.Device, cleanup
}

// countingDevice wraps a hal.Device and counts texture lifecycle calls.
type countingDevice struct {
	hal.Device

	createErr error

	texturesCreated   atomic.Int32
	texturesDestroyed atomic.Int32
	viewsCreated      atomic.Int32
	viewsDestroyed    atomic.Int32
	lastLabel         atomic.Value
}

func (d *countingDevice) CreateTexture(desc *hal.TextureDescriptor) (hal.Texture, error) {
	if d.createErr != nil {
		return nil, d.createErr
	}
	d.texturesCreated.Add(1)
	d.lastLabel.Store(desc.Label)
	return d.Device.CreateTexture(desc)
}

func (d *countingDevice) DestroyTexture(texture hal.Texture) {
	d.texturesDestroyed.Add(1)
	d.Device.DestroyTexture(texture)
}

func (d *countingDevice) CreateTextureView(texture hal.Texture, desc *hal.TextureViewDescriptor) (hal.TextureView, error) {
	d.viewsCreated.Add(1)
	return d.Device.CreateTextureView(texture, desc)
}

func (d *countingDevice) DestroyTextureView(view hal.TextureView) {
	d.viewsDestroyed.Add(1)
	d.Device.DestroyTextureView(view)
}

// newCountingDevice returns a countingDevice over a noop device.
func newCountingDevice(t *testing.T) *countingDevice {
	t.Helper()
	device, cleanup := createNoopDevice(t)
	t.Cleanup(cleanup)
	return &countingDevice{Device: device}
}

// desc2D returns a 2D RGBA texture descriptor.
func desc2D(label string, size, mips, layers uint32) *TextureDescriptor {
	return &TextureDescriptor{
		Label: label,
		Size: hal.Extent3D{
			Width:              size,
			Height:             size,
			DepthOrArrayLayers: layers,
		},
		MipLevelCount: mips,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage: gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst |
			gputypes.TextureUsageCopySrc | gputypes.TextureUsageRenderAttachment,
	}
}

// testTextureIDs hands out IDs to textures created by newTestTexture.
var testTextureIDs atomic.Uint64

// newTestTexture creates a texture on a fresh noop device.
func newTestTexture(t *testing.T, desc *TextureDescriptor) *Texture {
	t.Helper()
	device, cleanup := createNoopDevice(t)
	t.Cleanup(cleanup)
	tex, err := CreateTexture(device, TextureID(testTextureIDs.Add(1)), desc)
	if err != nil {
		t.Fatalf("CreateTexture failed: %v", err)
	}
	t.Cleanup(tex.Destroy)
	return tex
}

// newTestView creates a view, failing the test on error.
func newTestView(t *testing.T, tex *Texture, desc *TextureViewDescriptor) *TextureView {
	t.Helper()
	view, err := tex.CreateView(desc)
	if err != nil {
		t.Fatalf("CreateView failed: %v", err)
	}
	t.Cleanup(view.Destroy)
	return view
}

// =============================================================================
// Descriptor Tests
// =============================================================================

func TestTextureDescriptor_Resolve(t *testing.T) {
	tests := []struct {
		name    string
		desc    *TextureDescriptor
		wantErr error
		mips    uint32
		layers  uint32
	}{
		{"nil", nil, ErrNilDescriptor, 0, 0},
		{"zero width", &TextureDescriptor{Size: hal.Extent3D{Height: 4}}, ErrInvalidTextureSize, 0, 0},
		{"zero height", &TextureDescriptor{Size: hal.Extent3D{Width: 4}}, ErrInvalidTextureSize, 0, 0},
		{"defaults", &TextureDescriptor{Size: hal.Extent3D{Width: 4, Height: 4}}, nil, 1, 1},
		{"max mips", desc2D("", 1<<15, MaxMipLevels, 2), nil, MaxMipLevels, 2},
		{"too many mips", desc2D("", 1<<16, MaxMipLevels+1, 1), ErrTooManyMipLevels, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.desc.resolve()
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("resolve() error = %v, want %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if got.MipLevelCount != tt.mips {
				t.Errorf("MipLevelCount = %d, want %d", got.MipLevelCount, tt.mips)
			}
			if got.ArrayLayerCount() != tt.layers {
				t.Errorf("ArrayLayerCount() = %d, want %d", got.ArrayLayerCount(), tt.layers)
			}
			if got.SampleCount != 1 {
				t.Errorf("SampleCount = %d, want 1", got.SampleCount)
			}
		})
	}
}

func TestTextureDescriptor_ArrayLayerCount3D(t *testing.T) {
	d := TextureDescriptor{
		Size:      hal.Extent3D{Width: 8, Height: 8, DepthOrArrayLayers: 16},
		Dimension: gputypes.TextureDimension3D,
	}
	if got := d.ArrayLayerCount(); got != 1 {
		t.Errorf("ArrayLayerCount() = %d, want 1", got)
	}
}

func TestTextureDescriptor_MipExtent(t *testing.T) {
	tests := []struct {
		name string
		dim  gputypes.TextureDimension
		size hal.Extent3D
		mip  uint32
		want hal.Extent3D
	}{
		{"2D base", gputypes.TextureDimension2D, hal.Extent3D{Width: 64, Height: 32, DepthOrArrayLayers: 6}, 0,
			hal.Extent3D{Width: 64, Height: 32, DepthOrArrayLayers: 6}},
		{"2D mip 2 keeps layers", gputypes.TextureDimension2D, hal.Extent3D{Width: 64, Height: 32, DepthOrArrayLayers: 6}, 2,
			hal.Extent3D{Width: 16, Height: 8, DepthOrArrayLayers: 6}},
		{"2D clamps to 1", gputypes.TextureDimension2D, hal.Extent3D{Width: 64, Height: 32, DepthOrArrayLayers: 1}, 6,
			hal.Extent3D{Width: 1, Height: 1, DepthOrArrayLayers: 1}},
		{"1D height", gputypes.TextureDimension1D, hal.Extent3D{Width: 64, Height: 1, DepthOrArrayLayers: 1}, 1,
			hal.Extent3D{Width: 32, Height: 1, DepthOrArrayLayers: 1}},
		{"3D scales depth", gputypes.TextureDimension3D, hal.Extent3D{Width: 16, Height: 16, DepthOrArrayLayers: 8}, 2,
			hal.Extent3D{Width: 4, Height: 4, DepthOrArrayLayers: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := TextureDescriptor{Size: tt.size, Dimension: tt.dim}
			if got := d.MipExtent(tt.mip); got != tt.want {
				t.Errorf("MipExtent(%d) = %+v, want %+v", tt.mip, got, tt.want)
			}
		})
	}
}

// =============================================================================
// Texture Tests
// =============================================================================

func TestCreateTexture(t *testing.T) {
	device := newCountingDevice(t)

	tex, err := CreateTexture(device, 7, desc2D("albedo", 64, 4, 2), WithLabelPrefix("scene/"))
	if err != nil {
		t.Fatalf("CreateTexture failed: %v", err)
	}
	defer tex.Destroy()

	if tex.ID() != 7 {
		t.Errorf("ID() = %d, want 7", tex.ID())
	}
	if tex.Label() != "albedo" {
		t.Errorf("Label() = %q, want %q", tex.Label(), "albedo")
	}
	if got, _ := device.lastLabel.Load().(string); got != "scene/albedo" {
		t.Errorf("HAL label = %q, want %q", got, "scene/albedo")
	}
	if tex.MipLevelCount() != 4 || tex.ArrayLayerCount() != 2 {
		t.Errorf("size = %d mips x %d layers, want 4 x 2", tex.MipLevelCount(), tex.ArrayLayerCount())
	}
	if tex.Raw() == nil {
		t.Error("Raw() = nil, want HAL texture")
	}
	if tex.IsFullyInitialized() {
		t.Error("new texture reports fully initialized")
	}
	if got, want := tex.FullRegion(), NewRegion(0, 4, 0, 2); got != want {
		t.Errorf("FullRegion() = %v, want %v", got, want)
	}
}

func TestCreateTexture_Errors(t *testing.T) {
	device := newCountingDevice(t)

	if _, err := CreateTexture(nil, 1, desc2D("", 4, 1, 1)); !errors.Is(err, ErrNilDevice) {
		t.Errorf("nil device: err = %v, want %v", err, ErrNilDevice)
	}
	if _, err := CreateTexture(device, 1, nil); !errors.Is(err, ErrNilDescriptor) {
		t.Errorf("nil descriptor: err = %v, want %v", err, ErrNilDescriptor)
	}
	if device.texturesCreated.Load() != 0 {
		t.Errorf("HAL textures created = %d, want 0", device.texturesCreated.Load())
	}

	halErr := errors.New("out of memory")
	device.createErr = halErr
	if _, err := CreateTexture(device, 1, desc2D("", 4, 1, 1)); !errors.Is(err, halErr) {
		t.Errorf("HAL failure: err = %v, want wrapping %v", err, halErr)
	}
}

func TestTexture_TrackerLifecycle(t *testing.T) {
	tex := newTestTexture(t, desc2D("t", 16, 2, 3))

	action := Action{Region: SubresourceRegion(1, 2), Kind: NeedsInitializedMemory}
	got, ok := tex.CheckAction(action)
	if !ok {
		t.Fatal("CheckAction on fresh texture reported nothing")
	}
	if got.Region != SubresourceRegion(1, 2) {
		t.Errorf("CheckAction region = %v, want %v", got.Region, SubresourceRegion(1, 2))
	}

	tex.Commit(tex.FullRegion())
	if !tex.IsFullyInitialized() {
		t.Fatal("IsFullyInitialized() = false after full commit")
	}
	if _, ok := tex.CheckAction(action); ok {
		t.Error("CheckAction after commit reported a region")
	}

	tex.Discard(1, 2)
	if tex.IsFullyInitialized() {
		t.Error("IsFullyInitialized() = true after discard")
	}
	if _, ok := tex.CheckAction(action); !ok {
		t.Error("CheckAction after discard reported nothing")
	}

	var pieces []Region
	tex.Drain(tex.FullRegion(), func(r Region) { pieces = append(pieces, r) })
	if len(pieces) != 1 || pieces[0] != SubresourceRegion(1, 2) {
		t.Errorf("Drain pieces = %v, want [%v]", pieces, SubresourceRegion(1, 2))
	}
}

func TestTexture_DiscardOutOfRangePanics(t *testing.T) {
	tex := newTestTexture(t, desc2D("t", 16, 2, 3))
	expectPanicIs(t, ErrSubresourceOutOfRange, func() { tex.Discard(2, 0) })

	// The mutex must be released by the panic.
	if tex.IsFullyInitialized() {
		t.Error("IsFullyInitialized() = true on fresh texture")
	}
}

func TestTexture_Destroy(t *testing.T) {
	device := newCountingDevice(t)
	tex, err := CreateTexture(device, 1, desc2D("t", 4, 1, 1))
	if err != nil {
		t.Fatalf("CreateTexture failed: %v", err)
	}

	tex.Destroy()
	if !tex.IsDestroyed() {
		t.Error("IsDestroyed() = false after Destroy")
	}
	if tex.Raw() != nil {
		t.Error("Raw() != nil after Destroy")
	}

	// Idempotent.
	tex.Destroy()
	if n := device.texturesDestroyed.Load(); n != 1 {
		t.Errorf("HAL DestroyTexture calls = %d, want 1", n)
	}

	if _, err := tex.CreateView(nil); !errors.Is(err, ErrTextureDestroyed) {
		t.Errorf("CreateView after Destroy: err = %v, want %v", err, ErrTextureDestroyed)
	}
}

func TestTexture_Logging(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	tex := newTestTexture(t, desc2D("t", 16, 1, 1))

	// The package logger is resolved per call, not captured at creation.
	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	tex.Commit(tex.FullRegion())
	tex.Discard(0, 0)

	out := buf.String()
	for _, msg := range []string{"region committed", "subresource discarded"} {
		if !strings.Contains(out, msg) {
			t.Errorf("log output missing %q: %s", msg, out)
		}
	}
}

func TestTexture_WithLogger(t *testing.T) {
	device, cleanup := createNoopDevice(t)
	defer cleanup()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	tex, err := CreateTexture(device, 3, desc2D("albedo", 4, 1, 1), WithLogger(logger))
	if err != nil {
		t.Fatalf("CreateTexture failed: %v", err)
	}
	tex.Destroy()

	out := buf.String()
	if !strings.Contains(out, "texture created") || !strings.Contains(out, "texture destroyed") {
		t.Errorf("expected lifecycle messages, got: %s", out)
	}
}

// =============================================================================
// Texture View Tests
// =============================================================================

func TestTexture_CreateDefaultView(t *testing.T) {
	tex := newTestTexture(t, desc2D("atlas", 32, 3, 4))
	view := newTestView(t, tex, nil)

	if view.Texture() != tex {
		t.Error("Texture() does not return the parent")
	}
	if got, want := view.Region(), tex.FullRegion(); got != want {
		t.Errorf("Region() = %v, want %v", got, want)
	}
	d := view.Descriptor()
	if d.Format != gputypes.TextureFormatRGBA8Unorm {
		t.Errorf("Format = %v, want inherited RGBA8Unorm", d.Format)
	}
	if d.Aspect != gputypes.TextureAspectAll {
		t.Errorf("Aspect = %v, want All", d.Aspect)
	}
	if view.Label() != "atlas (default view)" {
		t.Errorf("Label() = %q", view.Label())
	}
}

func TestTexture_CreateView(t *testing.T) {
	tex := newTestTexture(t, desc2D("atlas", 32, 4, 6))

	tests := []struct {
		name    string
		desc    TextureViewDescriptor
		want    Region
		wantErr error
	}{
		{"remaining levels", TextureViewDescriptor{BaseMipLevel: 1, BaseArrayLayer: 2}, NewRegion(1, 4, 2, 6), nil},
		{"single surface", TextureViewDescriptor{BaseMipLevel: 3, MipLevelCount: 1, BaseArrayLayer: 5, ArrayLayerCount: 1}, SubresourceRegion(3, 5), nil},
		{"base mip out of range", TextureViewDescriptor{BaseMipLevel: 4}, Region{}, ErrInvalidViewRange},
		{"base layer out of range", TextureViewDescriptor{BaseArrayLayer: 6}, Region{}, ErrInvalidViewRange},
		{"too many mips", TextureViewDescriptor{BaseMipLevel: 2, MipLevelCount: 3}, Region{}, ErrInvalidViewRange},
		{"too many layers", TextureViewDescriptor{BaseArrayLayer: 1, ArrayLayerCount: 6}, Region{}, ErrInvalidViewRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view, err := tex.CreateView(&tt.desc)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("CreateView() error = %v, want %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			defer view.Destroy()
			if got := view.Region(); got != tt.want {
				t.Errorf("Region() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTextureView_Destroy(t *testing.T) {
	device := newCountingDevice(t)
	tex, err := CreateTexture(device, 1, desc2D("t", 4, 1, 1))
	if err != nil {
		t.Fatalf("CreateTexture failed: %v", err)
	}
	defer tex.Destroy()

	view, err := tex.CreateView(nil)
	if err != nil {
		t.Fatalf("CreateView failed: %v", err)
	}
	if view.Raw() == nil {
		t.Error("Raw() = nil before Destroy")
	}
	view.Destroy()
	view.Destroy()

	if !view.IsDestroyed() {
		t.Error("IsDestroyed() = false after Destroy")
	}
	if view.Raw() != nil {
		t.Error("Raw() != nil after Destroy")
	}
	if n := device.viewsDestroyed.Load(); n != 1 {
		t.Errorf("HAL DestroyTextureView calls = %d, want 1", n)
	}
}

func TestViewDimension(t *testing.T) {
	var derived gputypes.TextureViewDimension
	tests := []struct {
		dim    gputypes.TextureDimension
		layers uint32
		want   gputypes.TextureViewDimension
	}{
		{gputypes.TextureDimension1D, 1, gputypes.TextureViewDimension1D},
		{gputypes.TextureDimension2D, 1, gputypes.TextureViewDimension2D},
		{gputypes.TextureDimension2D, 4, derived},
		{gputypes.TextureDimension3D, 1, gputypes.TextureViewDimension3D},
	}
	for _, tt := range tests {
		if got := viewDimension(tt.dim, tt.layers); got != tt.want {
			t.Errorf("viewDimension(%v, %d) = %v, want %v", tt.dim, tt.layers, got, tt.want)
		}
	}
}
