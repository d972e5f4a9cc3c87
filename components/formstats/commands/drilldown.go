package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-formstats/components/formstats"
)

// DrillDownErrorInput lists the occurrences of one field error.
type DrillDownErrorInput struct {
	SessionID string                `json:"session"`
	Controls  formstats.Controls    `json:"controls"`
	Target    formstats.ErrorTarget `json:"target"`
}

type drillDownService interface {
	DrillDownError(ctx context.Context, sessionID string, controls formstats.Controls, target formstats.ErrorTarget) error
}

// DrillDownErrorCommand is bound to the error links of the errors table.
type DrillDownErrorCommand struct {
	service   drillDownService
	telemetry Telemetry
}

// NewDrillDownErrorCommand creates the command.
func NewDrillDownErrorCommand(service drillDownService, telemetry Telemetry) *DrillDownErrorCommand {
	return &DrillDownErrorCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[DrillDownErrorInput] = (*DrillDownErrorCommand)(nil)

// Execute runs the field-error cycle.
func (c *DrillDownErrorCommand) Execute(ctx context.Context, msg DrillDownErrorInput) error {
	if c.service == nil {
		return errMissingService
	}
	if msg.Target.Field == "" {
		return errors.New("commands: drill-down requires a field")
	}
	if err := c.service.DrillDownError(ctx, msg.SessionID, msg.Controls, msg.Target); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "formstats.command.drilldown", map[string]any{
		"session_id": msg.SessionID,
		"field":      msg.Target.Field,
	})
	return nil
}
