// Package filestore keeps members and status runs in a single JSON document on disk.
// It serves small deployments without PostgreSQL and local development.
package filestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"sacco_backoffice/internal/domain/member"
	"sacco_backoffice/internal/domain/statusrun"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// maxStoredRuns bounds the run history kept in the file.
const maxStoredRuns = 100

type memberRecord struct {
	ID                  string          `json:"id"`
	MemberID            string          `json:"memberId"`
	FullName            string          `json:"name"`
	Phone               *string         `json:"phone,omitempty"`
	Status              member.Status   `json:"status"`
	ContributionDate    *string         `json:"contributionDate,omitempty"`
	DeactivationReason  *string         `json:"deactivationReason,omitempty"`
	MonthlyContribution decimal.Decimal `json:"monthlyContribution"`
	SavingsBalance      decimal.Decimal `json:"savingsBalance"`
	CreatedAt           time.Time       `json:"createdAt"`
	UpdatedAt           time.Time       `json:"updatedAt"`
}

type runRecord struct {
	ID         string                 `json:"id"`
	StartedAt  time.Time              `json:"startedAt"`
	FinishedAt time.Time              `json:"finishedAt"`
	Updated    int                    `json:"updated"`
	Details    []statusrun.Transition `json:"details"`
}

type document struct {
	Sequence int64          `json:"sequence"`
	Members  []memberRecord `json:"members"`
	Runs     []runRecord    `json:"runs"`
}

// JSONRepository implements member.Repository and statusrun.Repository over one file.
// Every mutation rewrites the whole file through a temp file and rename.
type JSONRepository struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

func NewJSONRepository(path string) (*JSONRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &JSONRepository{path: path, now: time.Now}, nil
}

func (r *JSONRepository) load() (*document, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &document{}, nil
		}
		return nil, fmt.Errorf("failed to read data file: %w", err)
	}
	doc := &document{}
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("failed to decode data file %s: %w", r.path, err)
	}
	return doc, nil
}

func (r *JSONRepository) save(doc *document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode data file: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(r.path), filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace data file: %w", err)
	}
	return nil
}

// mutate loads the document, applies fn and saves it when fn succeeds.
func (r *JSONRepository) mutate(fn func(doc *document) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, err := r.load()
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	return r.save(doc)
}

func (r *JSONRepository) read() (*document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load()
}

func (r *JSONRepository) Create(_ context.Context, m *member.Member) error {
	return r.mutate(func(doc *document) error {
		for _, rec := range doc.Members {
			if rec.MemberID == m.MemberID {
				return member.ErrDuplicateMemberID
			}
		}
		now := r.now().UTC()
		m.CreatedAt, m.UpdatedAt = now, now
		doc.Members = append(doc.Members, toRecord(m))
		return nil
	})
}

func (r *JSONRepository) GetByID(_ context.Context, id string) (*member.Member, error) {
	return r.find(func(rec *memberRecord) bool { return rec.ID == id })
}

func (r *JSONRepository) GetByMemberID(_ context.Context, memberID string) (*member.Member, error) {
	return r.find(func(rec *memberRecord) bool { return rec.MemberID == memberID })
}

func (r *JSONRepository) find(match func(rec *memberRecord) bool) (*member.Member, error) {
	doc, err := r.read()
	if err != nil {
		return nil, err
	}
	for i := range doc.Members {
		if match(&doc.Members[i]) {
			return fromRecord(&doc.Members[i])
		}
	}
	return nil, member.ErrNotFound
}

func (r *JSONRepository) Update(_ context.Context, m *member.Member) error {
	return r.mutate(func(doc *document) error {
		for i := range doc.Members {
			if doc.Members[i].ID == m.ID {
				m.CreatedAt = doc.Members[i].CreatedAt
				m.UpdatedAt = r.now().UTC()
				doc.Members[i] = toRecord(m)
				return nil
			}
		}
		return member.ErrNotFound
	})
}

func (r *JSONRepository) ListAll(_ context.Context) ([]*member.Member, error) {
	return r.list(func(*memberRecord) bool { return true })
}

func (r *JSONRepository) list(match func(rec *memberRecord) bool) ([]*member.Member, error) {
	doc, err := r.read()
	if err != nil {
		return nil, err
	}
	members := make([]*member.Member, 0, len(doc.Members))
	for i := range doc.Members {
		if !match(&doc.Members[i]) {
			continue
		}
		m, err := fromRecord(&doc.Members[i])
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	sort.Slice(members, func(i, j int) bool { return members[i].MemberID < members[j].MemberID })
	return members, nil
}

func (r *JSONRepository) NextMemberID(_ context.Context) (string, error) {
	var code string
	err := r.mutate(func(doc *document) error {
		doc.Sequence++
		code = member.FormatMemberID(doc.Sequence)
		return nil
	})
	return code, err
}

func (r *JSONRepository) ListForStatusReview(_ context.Context, statuses []member.Status) ([]*member.Member, error) {
	wanted := make(map[member.Status]bool, len(statuses))
	for _, s := range statuses {
		wanted[s] = true
	}
	return r.list(func(rec *memberRecord) bool {
		return wanted[rec.Status] && rec.ContributionDate != nil
	})
}

func (r *JSONRepository) UpdateStatus(_ context.Context, id string, status member.Status, reason string) error {
	return r.mutate(func(doc *document) error {
		for i := range doc.Members {
			if doc.Members[i].ID == id {
				doc.Members[i].Status = status
				doc.Members[i].DeactivationReason = &reason
				doc.Members[i].UpdatedAt = r.now().UTC()
				return nil
			}
		}
		return member.ErrNotFound
	})
}

// RunRepository exposes the status run history stored in the same file.
func (r *JSONRepository) RunRepository() statusrun.Repository {
	return runRepository{r}
}

type runRepository struct {
	r *JSONRepository
}

func (rr runRepository) Create(_ context.Context, run *statusrun.Run) error {
	return rr.r.mutate(func(doc *document) error {
		doc.Runs = append(doc.Runs, runRecord{
			ID:         run.ID,
			StartedAt:  run.StartedAt,
			FinishedAt: run.FinishedAt,
			Updated:    run.Updated,
			Details:    run.Details,
		})
		if len(doc.Runs) > maxStoredRuns {
			doc.Runs = doc.Runs[len(doc.Runs)-maxStoredRuns:]
		}
		return nil
	})
}

func (rr runRepository) ListRecent(_ context.Context, limit int) ([]*statusrun.Run, error) {
	if limit <= 0 {
		return []*statusrun.Run{}, nil
	}
	doc, err := rr.r.read()
	if err != nil {
		return nil, err
	}
	runs := make([]*statusrun.Run, 0, limit)
	for i := len(doc.Runs) - 1; i >= 0 && len(runs) < limit; i-- {
		rec := doc.Runs[i]
		runs = append(runs, &statusrun.Run{
			ID:         rec.ID,
			StartedAt:  rec.StartedAt,
			FinishedAt: rec.FinishedAt,
			Updated:    rec.Updated,
			Details:    rec.Details,
		})
	}
	return runs, nil
}

func toRecord(m *member.Member) memberRecord {
	rec := memberRecord{
		ID:                  m.ID,
		MemberID:            m.MemberID,
		FullName:            m.FullName,
		Status:              m.Status,
		MonthlyContribution: m.MonthlyContribution,
		SavingsBalance:      m.SavingsBalance,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
	if m.Phone.Valid {
		rec.Phone = &m.Phone.String
	}
	if m.ContributionDate.Valid {
		d := m.ContributionDate.Time.Format(dateLayout)
		rec.ContributionDate = &d
	}
	if m.DeactivationReason.Valid {
		rec.DeactivationReason = &m.DeactivationReason.String
	}
	return rec
}

func fromRecord(rec *memberRecord) (*member.Member, error) {
	if !rec.Status.IsValid() {
		return nil, fmt.Errorf("invalid status %q for member %s", rec.Status, rec.MemberID)
	}
	m := &member.Member{
		ID:                  rec.ID,
		MemberID:            rec.MemberID,
		FullName:            rec.FullName,
		Status:              rec.Status,
		MonthlyContribution: rec.MonthlyContribution,
		SavingsBalance:      rec.SavingsBalance,
		CreatedAt:           rec.CreatedAt,
		UpdatedAt:           rec.UpdatedAt,
	}
	if rec.Phone != nil {
		m.Phone = sql.NullString{String: *rec.Phone, Valid: true}
	}
	if rec.ContributionDate != nil {
		d, err := time.Parse(dateLayout, *rec.ContributionDate)
		if err != nil {
			return nil, fmt.Errorf("invalid contributionDate %q for member %s: %w", *rec.ContributionDate, rec.MemberID, err)
		}
		m.ContributionDate = sql.NullTime{Time: d, Valid: true}
	}
	if rec.DeactivationReason != nil {
		m.DeactivationReason = sql.NullString{String: *rec.DeactivationReason, Valid: true}
	}
	return m, nil
}
