package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"sacco_backoffice/internal/domain/member"

	"github.com/lib/pq" // For pq.Array and pq.Error
)

const uniqueViolation = "23505"

const memberColumns = `id, member_id, full_name, phone, status, contribution_date, deactivation_reason,
               monthly_contribution, savings_balance, created_at, updated_at`

type PostgresMemberRepository struct {
	db *sql.DB
}

func NewPostgresMemberRepository(db *sql.DB) *PostgresMemberRepository {
	return &PostgresMemberRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMember(row rowScanner) (*member.Member, error) {
	m := &member.Member{}
	err := row.Scan(
		&m.ID, &m.MemberID, &m.FullName, &m.Phone, &m.Status, &m.ContributionDate, &m.DeactivationReason,
		&m.MonthlyContribution, &m.SavingsBalance, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func scanMembers(rows *sql.Rows) ([]*member.Member, error) {
	members := make([]*member.Member, 0)
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning member row: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating member rows: %w", err)
	}
	return members, nil
}

func (r *PostgresMemberRepository) Create(ctx context.Context, m *member.Member) error {
	query := `INSERT INTO members (id, member_id, full_name, phone, status, contribution_date, deactivation_reason,
                                   monthly_contribution, savings_balance)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
               RETURNING created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		m.ID, m.MemberID, m.FullName, m.Phone, m.Status, m.ContributionDate, m.DeactivationReason,
		m.MonthlyContribution, m.SavingsBalance,
	).Scan(&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return member.ErrDuplicateMemberID
		}
		return fmt.Errorf("error creating member: %w", err)
	}
	return nil
}

func (r *PostgresMemberRepository) GetByID(ctx context.Context, id string) (*member.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE id = $1`
	m, err := scanMember(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, member.ErrNotFound
		}
		return nil, fmt.Errorf("error getting member by ID: %w", err)
	}
	return m, nil
}

func (r *PostgresMemberRepository) GetByMemberID(ctx context.Context, memberID string) (*member.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE member_id = $1`
	m, err := scanMember(r.db.QueryRowContext(ctx, query, memberID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, member.ErrNotFound
		}
		return nil, fmt.Errorf("error getting member by member ID: %w", err)
	}
	return m, nil
}

func (r *PostgresMemberRepository) Update(ctx context.Context, m *member.Member) error {
	query := `UPDATE members
               SET full_name = $1, phone = $2, status = $3, contribution_date = $4, deactivation_reason = $5,
                   monthly_contribution = $6, savings_balance = $7, updated_at = NOW()
               WHERE id = $8
               RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query,
		m.FullName, m.Phone, m.Status, m.ContributionDate, m.DeactivationReason,
		m.MonthlyContribution, m.SavingsBalance, m.ID,
	).Scan(&m.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return member.ErrNotFound
		}
		return fmt.Errorf("error updating member: %w", err)
	}
	return nil
}

func (r *PostgresMemberRepository) ListAll(ctx context.Context) ([]*member.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members ORDER BY member_id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing members: %w", err)
	}
	defer rows.Close()
	return scanMembers(rows)
}

func (r *PostgresMemberRepository) NextMemberID(ctx context.Context) (string, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT nextval('member_code_seq')`).Scan(&n); err != nil {
		return "", fmt.Errorf("error allocating member ID: %w", err)
	}
	return member.FormatMemberID(n), nil
}

func (r *PostgresMemberRepository) ListForStatusReview(ctx context.Context, statuses []member.Status) ([]*member.Member, error) {
	if len(statuses) == 0 {
		return []*member.Member{}, nil
	}
	values := make([]string, len(statuses))
	for i, s := range statuses {
		values[i] = string(s)
	}

	query := `SELECT ` + memberColumns + `
               FROM members
               WHERE status = ANY($1::varchar[]) AND contribution_date IS NOT NULL
               ORDER BY member_id`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(values))
	if err != nil {
		return nil, fmt.Errorf("error listing members for status review: %w", err)
	}
	defer rows.Close()
	return scanMembers(rows)
}

func (r *PostgresMemberRepository) UpdateStatus(ctx context.Context, id string, status member.Status, reason string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE members SET status = $1, deactivation_reason = $2, updated_at = NOW() WHERE id = $3`,
		status, reason, id,
	)
	if err != nil {
		return fmt.Errorf("error updating member status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading affected rows: %w", err)
	}
	if affected == 0 {
		return member.ErrNotFound
	}
	return nil
}
