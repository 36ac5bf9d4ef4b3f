// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package texinit

import "log/slog"

// Option configures a Registry, Recorder or Queue during creation.
//
// Example:
//
//	reg, err := texinit.NewRegistry(device,
//	    texinit.WithLogger(slog.Default()),
//	    texinit.WithLabelPrefix("scene/"),
//	)
type Option func(*options)

// options holds optional configuration.
type options struct {
	logger      *slog.Logger
	labelPrefix string
}

// applyOptions returns the default options with opts applied in order.
func applyOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// log returns the configured logger, falling back to the package logger.
func (o *options) log() *slog.Logger {
	if o.logger != nil {
		return o.logger
	}
	return Logger()
}

// label prefixes a HAL object label.
func (o *options) label(l string) string {
	return o.labelPrefix + l
}

// WithLogger sets the logger used instead of the package-wide logger
// returned by [Logger].
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithLabelPrefix sets a prefix added to the debug label of every HAL object
// created through the configured value.
func WithLabelPrefix(prefix string) Option {
	return func(o *options) {
		o.labelPrefix = prefix
	}
}
