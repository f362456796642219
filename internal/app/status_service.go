// internal/app/status_service.go
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"sacco_backoffice/internal/domain/member"
	"sacco_backoffice/internal/domain/statusrun"
	domainTelegram "sacco_backoffice/internal/domain/telegram"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const autoUpdateReasonFormat = "Automatically updated: Missed %d month(s) of contributions"

const (
	inactiveAfterMonths = 1
	dormantAfterMonths  = 3
)

// MonthsElapsed counts calendar months between the contribution date and now
// using only the year and month components. Day-of-month is ignored.
func MonthsElapsed(contributionDate, now time.Time) int {
	return (now.Year()-contributionDate.Year())*12 + int(now.Month()) - int(contributionDate.Month())
}

// DetermineStatus maps the months elapsed since contributionDate to a status.
// The returned month count is never negative.
func DetermineStatus(contributionDate, now time.Time) (member.Status, int) {
	missed := MonthsElapsed(contributionDate, now)
	if missed < 0 {
		missed = 0
	}
	switch {
	case missed >= dormantAfterMonths:
		return member.StatusDormant, missed
	case missed >= inactiveAfterMonths:
		return member.StatusInactive, missed
	default:
		return member.StatusActive, missed
	}
}

// BatchResult is the outcome of one reconciliation pass.
type BatchResult struct {
	RunID      string                 `json:"runId"`
	Updated    int                    `json:"updated"`
	Details    []statusrun.Transition `json:"details"`
	StartedAt  time.Time              `json:"startedAt"`
	FinishedAt time.Time              `json:"finishedAt"`
}

// CheckResult is the advisory outcome for a single member. Nothing is written.
type CheckResult struct {
	ShouldUpdate    bool          `json:"shouldUpdate"`
	CurrentStatus   member.Status `json:"currentStatus"`
	SuggestedStatus member.Status `json:"suggestedStatus"`
	MissedMonths    int           `json:"missedMonths"`
}

// StatusService derives member statuses from contribution dates and persists transitions.
type StatusService struct {
	memberRepo        member.Repository
	runRepo           statusrun.Repository  // optional
	telegramClient    domainTelegram.Client // optional
	managerTelegramID int64
	logger            *logrus.Entry
	now               func() time.Time
}

func NewStatusService(
	mr member.Repository,
	rr statusrun.Repository,
	tc domainTelegram.Client,
	managerID int64,
	logger *logrus.Entry,
) *StatusService {
	return &StatusService{
		memberRepo:        mr,
		runRepo:           rr,
		telegramClient:    tc,
		managerTelegramID: managerID,
		logger:            logger,
		now:               time.Now,
	}
}

// WithClock replaces the wall clock used as "now".
func (s *StatusService) WithClock(now func() time.Time) *StatusService {
	s.now = now
	return s
}

// RunStatusUpdate performs one reconciliation pass over every auto-managed
// member with a contribution date. The first store error aborts the pass;
// transitions written before it are not rolled back.
func (s *StatusService) RunStatusUpdate(ctx context.Context) (*BatchResult, error) {
	result := &BatchResult{
		RunID:     uuid.NewString(),
		StartedAt: s.now(),
		Details:   make([]statusrun.Transition, 0),
	}
	runLogger := s.logger.WithField("run_id", result.RunID)
	runLogger.Info("Starting member status update")

	candidates, err := s.memberRepo.ListForStatusReview(ctx, member.AutoManagedStatuses)
	if err != nil {
		runLogger.WithError(err).Error("Failed to list members for status review")
		return nil, fmt.Errorf("failed to list members for status review: %w", err)
	}
	runLogger.WithField("candidates", len(candidates)).Debug("Loaded members for status review")

	now := result.StartedAt
	for _, m := range candidates {
		if !m.ContributionDate.Valid || !m.Status.IsAutoManaged() {
			continue
		}

		newStatus, missed := DetermineStatus(m.ContributionDate.Time, now)
		if newStatus == m.Status {
			continue
		}

		reason := fmt.Sprintf(autoUpdateReasonFormat, missed)
		if err := s.memberRepo.UpdateStatus(ctx, m.ID, newStatus, reason); err != nil {
			runLogger.WithError(err).WithField("member_id", m.MemberID).Error("Failed to persist status transition, aborting pass")
			return nil, fmt.Errorf("failed to update status for member %s: %w", m.MemberID, err)
		}

		runLogger.WithFields(logrus.Fields{
			"member_id":     m.MemberID,
			"old_status":    m.Status,
			"new_status":    newStatus,
			"missed_months": missed,
		}).Info("Member status updated")

		result.Details = append(result.Details, statusrun.Transition{
			MemberID:     m.MemberID,
			Name:         m.FullName,
			OldStatus:    string(m.Status),
			NewStatus:    string(newStatus),
			MissedMonths: missed,
		})
	}
	result.Updated = len(result.Details)
	result.FinishedAt = s.now()

	runLogger.WithField("updated", result.Updated).Info("Member status update finished")

	s.recordRun(ctx, runLogger, result)
	s.notifyManager(runLogger, result)
	return result, nil
}

// CheckMember previews the engine's decision for one member, addressed by
// uuid or member code.
func (s *StatusService) CheckMember(ctx context.Context, ref string) (*CheckResult, error) {
	m, err := resolveMember(ctx, s.memberRepo, ref)
	if err != nil {
		if errors.Is(err, member.ErrNotFound) {
			return &CheckResult{CurrentStatus: member.StatusUnknown, SuggestedStatus: member.StatusUnknown}, nil
		}
		return nil, fmt.Errorf("failed to load member %q: %w", ref, err)
	}

	if !m.ContributionDate.Valid {
		return &CheckResult{CurrentStatus: m.Status, SuggestedStatus: m.Status}, nil
	}

	suggested, missed := DetermineStatus(m.ContributionDate.Time, s.now())
	if !m.Status.IsAutoManaged() {
		// Temporary Inactive and Closed only change through manual actions.
		return &CheckResult{CurrentStatus: m.Status, SuggestedStatus: m.Status, MissedMonths: missed}, nil
	}
	return &CheckResult{
		ShouldUpdate:    suggested != m.Status,
		CurrentStatus:   m.Status,
		SuggestedStatus: suggested,
		MissedMonths:    missed,
	}, nil
}

// RecentRuns lists audit records of past passes, newest first.
func (s *StatusService) RecentRuns(ctx context.Context, limit int) ([]*statusrun.Run, error) {
	if s.runRepo == nil {
		return []*statusrun.Run{}, nil
	}
	if limit <= 0 {
		limit = 20
	}
	return s.runRepo.ListRecent(ctx, limit)
}

func (s *StatusService) recordRun(ctx context.Context, runLogger *logrus.Entry, result *BatchResult) {
	if s.runRepo == nil {
		return
	}
	run := &statusrun.Run{
		ID:         result.RunID,
		StartedAt:  result.StartedAt,
		FinishedAt: result.FinishedAt,
		Updated:    result.Updated,
		Details:    result.Details,
	}
	if err := s.runRepo.Create(ctx, run); err != nil {
		runLogger.WithError(err).Warn("Failed to record status run")
	}
}

func (s *StatusService) notifyManager(runLogger *logrus.Entry, result *BatchResult) {
	if s.telegramClient == nil || result.Updated == 0 {
		return
	}
	if s.managerTelegramID == 0 {
		runLogger.Warn("Manager Telegram ID not configured. Cannot send status update summary.")
		return
	}
	if err := s.telegramClient.SendMessage(s.managerTelegramID, FormatTransitionSummary(result.Details), nil); err != nil {
		runLogger.WithError(err).Error("Failed to send status update summary to manager")
	}
}

// FormatTransitionSummary renders transitions as a plain-text message.
func FormatTransitionSummary(details []statusrun.Transition) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Member status update: %d member(s) changed.\n", len(details))
	for _, d := range details {
		fmt.Fprintf(&b, "%s %s: %s -> %s (missed %d month(s))\n", d.MemberID, d.Name, d.OldStatus, d.NewStatus, d.MissedMonths)
	}
	return strings.TrimRight(b.String(), "\n")
}

// resolveMember looks a member up by uuid when ref parses as one, otherwise by member code.
func resolveMember(ctx context.Context, repo member.Repository, ref string) (*member.Member, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, member.ErrNotFound
	}
	if _, err := uuid.Parse(ref); err == nil {
		return repo.GetByID(ctx, ref)
	}
	return repo.GetByMemberID(ctx, strings.ToUpper(ref))
}
