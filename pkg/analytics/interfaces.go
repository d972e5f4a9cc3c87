package analytics

import (
	"github.com/goliatone/go-formstats/components/formstats"
)

// Client is implemented by every report transport in this package.
type Client interface {
	formstats.ReportTransport
}

var (
	_ Client = (*GoogleClient)(nil)
	_ Client = (*HTTPClient)(nil)
	_ Client = (*MockClient)(nil)
)
