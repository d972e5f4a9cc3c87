package formstats

import "strings"

// View is a named analytics environment identified by a fixed view id.
type View struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	ID   string `json:"id"`
}

// View keys accepted by the view selector.
const (
	ViewDevelopment = "dev"
	ViewStaging     = "staging"
	ViewQA          = "qa"
	ViewProduction  = "production"
)

var views = map[string]View{
	ViewDevelopment: {Key: ViewDevelopment, Name: "Development", ID: "155063315"},
	ViewStaging:     {Key: ViewStaging, Name: "Staging", ID: "155056605"},
	ViewQA:          {Key: ViewQA, Name: "QA", ID: "155063519"},
	ViewProduction:  {Key: ViewProduction, Name: "Production", ID: "155026244"},
}

var viewOrder = []string{ViewDevelopment, ViewStaging, ViewQA, ViewProduction}

// LookupView returns the environment registered under key.
func LookupView(key string) (View, bool) {
	view, ok := views[strings.ToLower(strings.TrimSpace(key))]
	return view, ok
}

// Views lists the known environments in selector order.
func Views() []View {
	out := make([]View, 0, len(viewOrder))
	for _, key := range viewOrder {
		out = append(out, views[key])
	}
	return out
}

// IsKnownViewID reports whether id belongs to one of the fixed environments.
func IsKnownViewID(id string) bool {
	for _, view := range views {
		if view.ID == id {
			return true
		}
	}
	return false
}
