package formstats

import (
	core "github.com/goliatone/go-formstats/components/formstats"
)

// Service exposes the underlying components/formstats.Service type.
type Service = core.Service

// Options re-export for convenience.
type Options = core.Options

// Settings re-export for convenience.
type Settings = core.Settings

// NewService proxies to the internal constructor.
func NewService(opts Options) *Service {
	return core.NewService(opts)
}

// View re-export for convenience.
type View = core.View

// Views lists the analytics environments in selector order.
func Views() []View {
	return core.Views()
}
