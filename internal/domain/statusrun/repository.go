package statusrun

import "context"

// Repository persists reconciliation pass audit records.
type Repository interface {
	Create(ctx context.Context, run *Run) error
	ListRecent(ctx context.Context, limit int) ([]*Run, error)
}
