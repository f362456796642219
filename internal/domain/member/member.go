package member

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// Member represents a cooperative member.
// Corresponds to the 'members' table in migrations/001_members.sql.
type Member struct {
	ID                  string // uuid, assigned at creation
	MemberID            string // human-facing sequential code, e.g. MEM-0001
	FullName            string
	Phone               sql.NullString
	Status              Status
	ContributionDate    sql.NullTime // last expected/recorded contribution
	DeactivationReason  sql.NullString
	MonthlyContribution decimal.Decimal
	SavingsBalance      decimal.Decimal
	CreatedAt           time.Time
	UpdatedAt           time.Time
}
