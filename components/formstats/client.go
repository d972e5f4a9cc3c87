package formstats

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

var (
	// ErrReportFailed wraps transport failures of a report batch.
	ErrReportFailed = errors.New("formstats: report request failed")
	// ErrTransportRequired is returned when no transport is configured.
	ErrTransportRequired = errors.New("formstats: report transport is required")
)

// ReportTransport performs one batched report call.
type ReportTransport interface {
	BatchGet(ctx context.Context, descriptors []ReportDescriptor) (BatchResponse, error)
}

// ReportClient issues a batch of descriptors in a single transport call.
type ReportClient struct {
	transport ReportTransport
	logger    *zap.Logger
}

// NewReportClient wraps a transport.
func NewReportClient(transport ReportTransport, logger *zap.Logger) *ReportClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportClient{transport: transport, logger: logger}
}

// Query sends every descriptor in one request and hands the response to
// onSuccess. Failures are logged and returned; nothing is retried.
func (c *ReportClient) Query(ctx context.Context, descriptors []ReportDescriptor, onSuccess func(BatchResponse)) error {
	if c.transport == nil {
		return ErrTransportRequired
	}
	resp, err := c.transport.BatchGet(ctx, descriptors)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			c.logger.Debug("formstats: report request cancelled", zap.Error(ctxErr))
			return ctxErr
		}
		c.logger.Error("formstats: report request failed",
			zap.String("view_id", viewIDOf(descriptors)),
			zap.Strings("reports", reportNames(descriptors)),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %w", ErrReportFailed, err)
	}
	if onSuccess != nil {
		onSuccess(resp)
	}
	return nil
}

func viewIDOf(descriptors []ReportDescriptor) string {
	if len(descriptors) == 0 {
		return ""
	}
	return descriptors[0].ViewID
}

func reportNames(descriptors []ReportDescriptor) []string {
	out := make([]string, len(descriptors))
	for i, desc := range descriptors {
		out[i] = string(desc.Name)
	}
	return out
}
