package interfaces

import (
	"context"

	"github.com/vigilancia-bie/malarisk/pkg/domain/model"
)

// Notifier delivers a composed alert report through one channel
// (email, Slack).
type Notifier interface {
	// Name identifies the channel in logs and audit records
	Name() string

	// SendAlertReport delivers the report
	SendAlertReport(ctx context.Context, report *model.AlertReport) error
}
