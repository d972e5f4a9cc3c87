package commands

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-formstats/components/formstats"
)

// ShowStatsInput selects the visible stats table.
type ShowStatsInput struct {
	SessionID string            `json:"session"`
	Table     formstats.TableID `json:"table"`
}

type statsService interface {
	ShowStats(ctx context.Context, sessionID string, table formstats.TableID) error
}

// ShowStatsCommand is bound to the stats links.
type ShowStatsCommand struct {
	service statsService
}

// NewShowStatsCommand creates the command.
func NewShowStatsCommand(service statsService) *ShowStatsCommand {
	return &ShowStatsCommand{service: service}
}

var _ gocommand.Commander[ShowStatsInput] = (*ShowStatsCommand)(nil)

// Execute toggles the table.
func (c *ShowStatsCommand) Execute(ctx context.Context, msg ShowStatsInput) error {
	if c.service == nil {
		return errMissingService
	}
	return c.service.ShowStats(ctx, msg.SessionID, msg.Table)
}
