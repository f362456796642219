package app

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"sacco_backoffice/internal/domain/member"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Custom application-level errors for member registry operations
var ErrInvalidMemberName = fmt.Errorf("member name must not be empty")
var ErrInvalidAmount = fmt.Errorf("amount must be greater than zero")
var ErrMemberClosed = fmt.Errorf("member account is closed")
var ErrInvalidTransition = fmt.Errorf("member is already in the requested status")

const (
	defaultSuspendReason = "Temporarily deactivated"
	defaultCloseReason   = "Membership closed"
)

// RegisterInput carries the fields an operator supplies for a new member.
type RegisterInput struct {
	FullName            string
	Phone               string
	MonthlyContribution decimal.Decimal
}

// MemberService handles the member registry and the manual lifecycle actions.
type MemberService struct {
	memberRepo member.Repository
	logger     *logrus.Entry
	now        func() time.Time
}

func NewMemberService(mr member.Repository, logger *logrus.Entry) *MemberService {
	return &MemberService{
		memberRepo: mr,
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock replaces the wall clock used for default dates.
func (s *MemberService) WithClock(now func() time.Time) *MemberService {
	s.now = now
	return s
}

// Register creates a new Active member with a fresh uuid and the next member code.
func (s *MemberService) Register(ctx context.Context, in RegisterInput) (*member.Member, error) {
	name := strings.TrimSpace(in.FullName)
	if name == "" {
		return nil, ErrInvalidMemberName
	}
	if in.MonthlyContribution.IsNegative() {
		return nil, ErrInvalidAmount
	}

	code, err := s.memberRepo.NextMemberID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate member ID: %w", err)
	}

	var phone sql.NullString
	if p := strings.TrimSpace(in.Phone); p != "" {
		phone = sql.NullString{String: p, Valid: true}
	}

	newMember := &member.Member{
		ID:                  uuid.NewString(),
		MemberID:            code,
		FullName:            name,
		Phone:               phone,
		Status:              member.StatusActive, // New members are active by default
		MonthlyContribution: in.MonthlyContribution,
		SavingsBalance:      decimal.Zero,
	}
	if err := s.memberRepo.Create(ctx, newMember); err != nil {
		return nil, fmt.Errorf("failed to create member in repository: %w", err)
	}

	s.logger.WithFields(logrus.Fields{"member_id": newMember.MemberID, "id": newMember.ID}).Info("Member registered")
	return newMember, nil
}

// Get returns a member by uuid or member code.
func (s *MemberService) Get(ctx context.Context, ref string) (*member.Member, error) {
	return resolveMember(ctx, s.memberRepo, ref)
}

func (s *MemberService) List(ctx context.Context) ([]*member.Member, error) {
	return s.memberRepo.ListAll(ctx)
}

// RecordContribution adds amount to the member's savings and moves the
// contribution date forward to date. Status is left to the status engine.
func (s *MemberService) RecordContribution(ctx context.Context, ref string, amount decimal.Decimal, date time.Time) (*member.Member, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	m, err := resolveMember(ctx, s.memberRepo, ref)
	if err != nil {
		return nil, err
	}
	if m.Status == member.StatusClosed {
		return nil, ErrMemberClosed
	}

	if date.IsZero() {
		date = s.now()
	}
	date = truncateToDate(date)

	m.SavingsBalance = m.SavingsBalance.Add(amount)
	if !m.ContributionDate.Valid || date.After(m.ContributionDate.Time) {
		m.ContributionDate = sql.NullTime{Time: date, Valid: true}
	}
	if err := s.memberRepo.Update(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to record contribution for member %s: %w", m.MemberID, err)
	}

	s.logger.WithFields(logrus.Fields{
		"member_id":         m.MemberID,
		"amount":            amount.StringFixed(2),
		"contribution_date": date.Format("2006-01-02"),
	}).Info("Contribution recorded")
	return m, nil
}

// Suspend moves a member to Temporary Inactive.
func (s *MemberService) Suspend(ctx context.Context, ref, reason string) (*member.Member, error) {
	return s.transition(ctx, ref, member.StatusTemporaryInactive, withDefault(reason, defaultSuspendReason))
}

// Reactivate returns a member to Active, clears the deactivation reason and
// restarts the contribution clock from today.
func (s *MemberService) Reactivate(ctx context.Context, ref string) (*member.Member, error) {
	return s.transition(ctx, ref, member.StatusActive, "")
}

// Close permanently closes a membership.
func (s *MemberService) Close(ctx context.Context, ref, reason string) (*member.Member, error) {
	return s.transition(ctx, ref, member.StatusClosed, withDefault(reason, defaultCloseReason))
}

func (s *MemberService) transition(ctx context.Context, ref string, target member.Status, reason string) (*member.Member, error) {
	m, err := resolveMember(ctx, s.memberRepo, ref)
	if err != nil {
		return nil, err
	}
	if m.Status == member.StatusClosed {
		if target == member.StatusClosed {
			return nil, ErrInvalidTransition
		}
		return nil, ErrMemberClosed
	}
	if m.Status == target {
		return nil, ErrInvalidTransition
	}

	oldStatus := m.Status
	m.Status = target
	if reason == "" {
		m.DeactivationReason = sql.NullString{}
	} else {
		m.DeactivationReason = sql.NullString{String: reason, Valid: true}
	}
	if target == member.StatusActive {
		m.ContributionDate = sql.NullTime{Time: truncateToDate(s.now()), Valid: true}
	}

	if err := s.memberRepo.Update(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to update member %s to %s: %w", m.MemberID, target, err)
	}

	s.logger.WithFields(logrus.Fields{
		"member_id":  m.MemberID,
		"old_status": oldStatus,
		"new_status": target,
	}).Info("Member status changed manually")
	return m, nil
}

func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func withDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}
