package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-formstats/components/formstats"
)

var errMissingService = errors.New("commands: formstats service is required")

// LoadReportsInput runs the overview cycle for a session.
type LoadReportsInput struct {
	SessionID string             `json:"session"`
	Controls  formstats.Controls `json:"controls"`
}

type loader interface {
	Load(ctx context.Context, sessionID string, controls formstats.Controls) error
}

// LoadReportsCommand is bound to the load button.
type LoadReportsCommand struct {
	service   loader
	telemetry Telemetry
}

// NewLoadReportsCommand creates the command.
func NewLoadReportsCommand(service loader, telemetry Telemetry) *LoadReportsCommand {
	return &LoadReportsCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[LoadReportsInput] = (*LoadReportsCommand)(nil)

// Execute resolves the controls and runs the cycle.
func (c *LoadReportsCommand) Execute(ctx context.Context, msg LoadReportsInput) error {
	if c.service == nil {
		return errMissingService
	}
	if err := c.service.Load(ctx, msg.SessionID, msg.Controls); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "formstats.command.load", map[string]any{
		"session_id": msg.SessionID,
		"view":       msg.Controls.View,
		"period":     msg.Controls.Period,
		"slug":       msg.Controls.Slug,
	})
	return nil
}
