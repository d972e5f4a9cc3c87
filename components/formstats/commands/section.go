package commands

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-formstats/components/formstats"
)

// SectionStatsInput runs the breakdown for one form section.
type SectionStatsInput struct {
	SessionID string                `json:"session"`
	Controls  formstats.Controls    `json:"controls"`
	Link      formstats.SectionLink `json:"link"`
}

type sectionService interface {
	SectionStats(ctx context.Context, sessionID string, controls formstats.Controls, link formstats.SectionLink) error
}

// SectionStatsCommand is bound to the section links of the views table.
type SectionStatsCommand struct {
	service   sectionService
	telemetry Telemetry
}

// NewSectionStatsCommand creates the command.
func NewSectionStatsCommand(service sectionService, telemetry Telemetry) *SectionStatsCommand {
	return &SectionStatsCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[SectionStatsInput] = (*SectionStatsCommand)(nil)

// Execute runs the section cycle.
func (c *SectionStatsCommand) Execute(ctx context.Context, msg SectionStatsInput) error {
	if c.service == nil {
		return errMissingService
	}
	if err := c.service.SectionStats(ctx, msg.SessionID, msg.Controls, msg.Link); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "formstats.command.section", map[string]any{
		"session_id":   msg.SessionID,
		"slug":         msg.Link.Slug,
		"section_slug": msg.Link.SectionSlug,
	})
	return nil
}
