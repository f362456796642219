package member

import (
	"context"
	"fmt"
)

var ErrNotFound = fmt.Errorf("member not found")
var ErrDuplicateMemberID = fmt.Errorf("member with this member ID already exists")

// Repository defines the operations for persisting and retrieving Member entities.
type Repository interface {
	Create(ctx context.Context, m *Member) error
	GetByID(ctx context.Context, id string) (*Member, error)
	GetByMemberID(ctx context.Context, memberID string) (*Member, error)
	Update(ctx context.Context, m *Member) error
	ListAll(ctx context.Context) ([]*Member, error)

	// NextMemberID reserves the next sequential human-facing code.
	NextMemberID(ctx context.Context) (string, error)

	// ListForStatusReview returns members whose status is one of statuses
	// and whose contribution date is set.
	ListForStatusReview(ctx context.Context, statuses []Status) ([]*Member, error)
	// UpdateStatus writes only status and deactivation_reason.
	UpdateStatus(ctx context.Context, id string, status Status, reason string) error
}

// FormatMemberID renders the sequential code for n.
func FormatMemberID(n int64) string {
	return fmt.Sprintf("MEM-%04d", n)
}
