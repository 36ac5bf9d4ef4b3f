// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package texinit

import "errors"

// Contract violations. Values wrapping these are raised with panic: they
// indicate a programming error, not a condition to retry.
var (
	// ErrMipCapacityOverflow reports a mip level count above MaxMipLevels.
	ErrMipCapacityOverflow = errors.New("texinit: mip level count exceeds tracker capacity")

	// ErrSubresourceOutOfRange reports a mip level or layer outside the
	// texture's subresource space.
	ErrSubresourceOutOfRange = errors.New("texinit: subresource out of range")
)

// Package errors returned at the API edge.
var (
	// ErrNilDevice is returned when creating textures without a HAL device.
	ErrNilDevice = errors.New("texinit: HAL device is nil")

	// ErrNilProvider is returned when a device provider is nil.
	ErrNilProvider = errors.New("texinit: device provider is nil")

	// ErrNoHALDevice is returned when a device provider does not expose a
	// HAL device.
	ErrNoHALDevice = errors.New("texinit: provider does not expose a HAL device")

	// ErrNilDescriptor is returned when a texture or render pass descriptor is nil.
	ErrNilDescriptor = errors.New("texinit: descriptor is nil")

	// ErrInvalidTextureSize is returned when texture dimensions are zero.
	ErrInvalidTextureSize = errors.New("texinit: invalid texture size")

	// ErrTooManyMipLevels is returned when a descriptor asks for more mip
	// levels than a tracker can hold.
	ErrTooManyMipLevels = errors.New("texinit: too many mip levels")

	// ErrTextureDestroyed is returned when operating on a destroyed texture.
	ErrTextureDestroyed = errors.New("texinit: texture has been destroyed")

	// ErrTextureNotFound is returned when a texture ID is not registered.
	ErrTextureNotFound = errors.New("texinit: texture not found")

	// ErrInvalidViewRange is returned when a view selects subresources
	// outside its texture.
	ErrInvalidViewRange = errors.New("texinit: view range out of bounds")

	// ErrNilClearer is returned when clears are needed but no Clearer is set.
	ErrNilClearer = errors.New("texinit: clearer is nil")
)
