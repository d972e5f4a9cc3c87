package goadmin

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"

	formstatspkg "github.com/goliatone/go-formstats/pkg/formstats"
)

// MenuBuilder stores navigation entries in the host admin shell.
type MenuBuilder interface {
	EnsureMenuItem(ctx context.Context, menuCode string, item MenuItem) error
}

// MenuItem is one navigation entry. Children are nested under it.
type MenuItem struct {
	Label    string
	Route    string
	Icon     string
	Position int
	Children []MenuItem
}

// Config places the form analytics page in an admin shell.
type Config struct {
	Enabled  bool
	MenuCode string
	Menu     MenuBuilder
	Service  *formstatspkg.Service
	// BasePath is the prefix the analytics routes are mounted under.
	BasePath string
	Label    string
	Icon     string
	Position int
	// PerView nests one entry per analytics environment, each opening the
	// page with that view preselected.
	PerView bool
}

// Admin seeds the analytics menu entry.
type Admin struct {
	cfg Config
}

// New applies defaults. A service is required once the page is enabled.
func New(cfg Config) (*Admin, error) {
	if cfg.Enabled && cfg.Service == nil {
		return nil, errors.New("goadmin: formstats service is required when enabled")
	}
	if cfg.MenuCode == "" {
		cfg.MenuCode = "admin.main"
	}
	if cfg.BasePath == "" {
		cfg.BasePath = "/admin"
	}
	if cfg.Label == "" {
		cfg.Label = "Form analytics"
	}
	if cfg.Icon == "" {
		cfg.Icon = "bar-chart"
	}
	return &Admin{cfg: cfg}, nil
}

// Service returns the analytics service, or nil while disabled.
func (a *Admin) Service() *formstatspkg.Service {
	if !a.cfg.Enabled {
		return nil
	}
	return a.cfg.Service
}

// MenuItem builds the entry Bootstrap seeds.
func (a *Admin) MenuItem() MenuItem {
	route := path.Join("/", a.cfg.BasePath, "analytics")
	item := MenuItem{
		Label:    a.cfg.Label,
		Route:    route,
		Icon:     a.cfg.Icon,
		Position: a.cfg.Position,
	}
	if !a.cfg.PerView {
		return item
	}
	for i, view := range formstatspkg.Views() {
		item.Children = append(item.Children, MenuItem{
			Label:    view.Name,
			Route:    route + "?view=" + url.QueryEscape(view.Key),
			Position: i,
		})
	}
	return item
}

// Bootstrap seeds the menu entry. It does nothing while disabled or when no
// menu store is configured.
func (a *Admin) Bootstrap(ctx context.Context) error {
	if !a.cfg.Enabled || a.cfg.Menu == nil {
		return nil
	}
	if err := a.cfg.Menu.EnsureMenuItem(ctx, a.cfg.MenuCode, a.MenuItem()); err != nil {
		return fmt.Errorf("goadmin: seed menu %s: %w", a.cfg.MenuCode, err)
	}
	return nil
}
