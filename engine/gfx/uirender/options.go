package uirender

import "log/slog"

// Default growth slack, in elements, added whenever a buffer is reallocated.
const (
	DefaultVertexSlack = 5000
	DefaultIndexSlack  = 10000
)

// Version is reported to the GUI as part of the renderer name.
const Version = "0.3.0"

// Option configures a Renderer during New.
type Option func(*options)

type options struct {
	vertexSlack   int
	indexSlack    int
	logger        *slog.Logger
	name          string
	validateIndex bool
}

func defaultOptions() options {
	return options{
		vertexSlack: DefaultVertexSlack,
		indexSlack:  DefaultIndexSlack,
		name:        "overlay-uirender@" + Version,
	}
}

// WithVertexSlack sets how many spare vertices each buffer reallocation adds.
// Negative values are treated as zero.
func WithVertexSlack(n int) Option {
	return func(o *options) { o.vertexSlack = max(n, 0) }
}

// WithIndexSlack sets how many spare indices each buffer reallocation adds.
func WithIndexSlack(n int) Option {
	return func(o *options) { o.indexSlack = max(n, 0) }
}

// WithLogger overrides the package logger for one renderer.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRendererName sets the name published to the GUI.
func WithRendererName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithIndexValidation makes Render check every index against its list before
// touching the device. Off by default: it is a full pass over the indices.
func WithIndexValidation(on bool) Option {
	return func(o *options) { o.validateIndex = on }
}
