package formstats

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// DefaultTemplate is the page template rendered by the controller.
const DefaultTemplate = "analytics"

type pageSource interface {
	Page(ctx context.Context, sessionID string) (PageView, error)
}

// ControllerOptions configures the Controller.
type ControllerOptions struct {
	Service  pageSource
	Renderer Renderer
	Template string
	// BasePath prefixes the action URLs printed into the page.
	BasePath string
}

// Controller turns session pages into HTML or JSON payloads.
type Controller struct {
	opts ControllerOptions
}

// NewController wires the page source and renderer.
func NewController(opts ControllerOptions) *Controller {
	if opts.Template == "" {
		opts.Template = DefaultTemplate
	}
	return &Controller{opts: opts}
}

// PagePayload returns the template data for a session.
func (c *Controller) PagePayload(ctx context.Context, sessionID string) (map[string]any, error) {
	if c.opts.Service == nil {
		return nil, errors.New("formstats: controller requires a service")
	}
	page, err := c.opts.Service.Page(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"page":      page,
		"base_path": c.opts.BasePath,
		"tables":    StatsTables,
	}, nil
}

// RenderTemplate writes the HTML page for a session to out.
func (c *Controller) RenderTemplate(ctx context.Context, sessionID string, out io.Writer) error {
	if c.opts.Renderer == nil {
		return errors.New("formstats: controller requires a renderer")
	}
	payload, err := c.PagePayload(ctx, sessionID)
	if err != nil {
		return err
	}
	if _, err := c.opts.Renderer.Render(c.opts.Template, payload, out); err != nil {
		return fmt.Errorf("formstats: render %s: %w", c.opts.Template, err)
	}
	return nil
}
