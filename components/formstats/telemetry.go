package formstats

import "context"

// Telemetry records pipeline events for observability.
type Telemetry interface {
	Record(ctx context.Context, event string, payload map[string]any)
}

// Cycle telemetry events.
const (
	EventCycleStart     = "formstats.cycle.start"
	EventCycleComplete  = "formstats.cycle.complete"
	EventCycleFailed    = "formstats.cycle.failed"
	EventCycleCancelled = "formstats.cycle.cancelled"
)

type noopTelemetry struct{}

func (noopTelemetry) Record(context.Context, string, map[string]any) {}

func normalizeTelemetry(t Telemetry) Telemetry {
	if t == nil {
		return noopTelemetry{}
	}
	return t
}
