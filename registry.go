// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package texinit

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/wgpu/hal"
)

// Registry allocates texture IDs and owns the live textures of one device.
//
// Registry is safe for concurrent use. Individual textures serialize access
// to their own trackers.
type Registry struct {
	mu       sync.RWMutex
	device   hal.Device
	textures map[TextureID]*Texture
	nextID   atomic.Uint64
	opts     options
}

// NewRegistry creates a registry that creates textures on device.
func NewRegistry(device hal.Device, opts ...Option) (*Registry, error) {
	if device == nil {
		return nil, ErrNilDevice
	}
	return &Registry{
		device:   device,
		textures: make(map[TextureID]*Texture),
		opts:     applyOptions(opts),
	}, nil
}

// NewRegistryFromProvider creates a registry on the device shared by an
// external provider (e.g., gogpu). The provider must also implement
// HalDevice() any returning a hal.Device.
func NewRegistryFromProvider(provider gpucontext.DeviceProvider, opts ...Option) (*Registry, error) {
	if provider == nil {
		return nil, ErrNilProvider
	}
	type halProvider interface {
		HalDevice() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNoHALDevice
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is %T", ErrNoHALDevice, hp.HalDevice())
	}
	return NewRegistry(device, opts...)
}

// Device returns the registry's HAL device.
func (r *Registry) Device() hal.Device {
	return r.device
}

// CreateTexture creates a texture with a fresh ID and registers it.
func (r *Registry) CreateTexture(desc *TextureDescriptor) (*Texture, error) {
	id := TextureID(r.nextID.Add(1))
	tex, err := createTexture(r.device, id, desc, &r.opts)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.textures[id] = tex
	r.mu.Unlock()
	return tex, nil
}

// Texture returns the live texture registered under id.
func (r *Registry) Texture(id TextureID) (*Texture, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tex, ok := r.textures[id]
	return tex, ok
}

// DestroyTexture destroys and unregisters the texture with the given id.
func (r *Registry) DestroyTexture(id TextureID) error {
	r.mu.Lock()
	tex, ok := r.textures[id]
	delete(r.textures, id)
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %d", ErrTextureNotFound, id)
	}
	tex.Destroy()
	return nil
}

// Len returns the number of live textures.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.textures)
}

// Destroy destroys every live texture. The registry stays usable.
func (r *Registry) Destroy() {
	r.mu.Lock()
	textures := r.textures
	r.textures = make(map[TextureID]*Texture)
	r.mu.Unlock()

	for _, tex := range textures {
		tex.Destroy()
	}
}
