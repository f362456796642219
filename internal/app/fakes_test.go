package app

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"

	"sacco_backoffice/internal/domain/member"
	"sacco_backoffice/internal/domain/statusrun"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

type fakeMemberRepo struct {
	mu          sync.Mutex
	members     map[string]*member.Member
	seq         int64
	updateCalls int
	failUpdate  map[string]error // keyed by uuid
	listErr     error
}

func newFakeMemberRepo(members ...*member.Member) *fakeMemberRepo {
	r := &fakeMemberRepo{members: map[string]*member.Member{}, failUpdate: map[string]error{}}
	for _, m := range members {
		cp := *m
		r.members[m.ID] = &cp
		r.seq++
	}
	return r
}

func (r *fakeMemberRepo) Create(_ context.Context, m *member.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.members {
		if existing.MemberID == m.MemberID {
			return member.ErrDuplicateMemberID
		}
	}
	cp := *m
	r.members[m.ID] = &cp
	return nil
}

func (r *fakeMemberRepo) GetByID(_ context.Context, id string) (*member.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[id]
	if !ok {
		return nil, member.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *fakeMemberRepo) GetByMemberID(_ context.Context, memberID string) (*member.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.members {
		if m.MemberID == memberID {
			cp := *m
			return &cp, nil
		}
	}
	return nil, member.ErrNotFound
}

func (r *fakeMemberRepo) Update(_ context.Context, m *member.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[m.ID]; !ok {
		return member.ErrNotFound
	}
	cp := *m
	r.members[m.ID] = &cp
	return nil
}

func (r *fakeMemberRepo) ListAll(_ context.Context) ([]*member.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*member.Member, 0, len(r.members))
	for _, m := range r.members {
		cp := *m
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MemberID < out[j].MemberID })
	return out, nil
}

func (r *fakeMemberRepo) NextMemberID(_ context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	return member.FormatMemberID(r.seq), nil
}

func (r *fakeMemberRepo) ListForStatusReview(ctx context.Context, statuses []member.Status) ([]*member.Member, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	all, _ := r.ListAll(ctx)
	out := make([]*member.Member, 0)
	for _, m := range all {
		if !m.ContributionDate.Valid {
			continue
		}
		for _, st := range statuses {
			if m.Status == st {
				out = append(out, m)
				break
			}
		}
	}
	return out, nil
}

func (r *fakeMemberRepo) UpdateStatus(_ context.Context, id string, status member.Status, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updateCalls++
	if err := r.failUpdate[id]; err != nil {
		return err
	}
	m, ok := r.members[id]
	if !ok {
		return member.ErrNotFound
	}
	m.Status = status
	m.DeactivationReason.String = reason
	m.DeactivationReason.Valid = true
	return nil
}

func (r *fakeMemberRepo) get(id string) *member.Member {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *r.members[id]
	return &cp
}

type fakeRunRepo struct {
	runs      []*statusrun.Run
	createErr error
}

func (r *fakeRunRepo) Create(_ context.Context, run *statusrun.Run) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.runs = append(r.runs, run)
	return nil
}

func (r *fakeRunRepo) ListRecent(_ context.Context, limit int) ([]*statusrun.Run, error) {
	out := make([]*statusrun.Run, 0, limit)
	for i := len(r.runs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.runs[i])
	}
	return out, nil
}

type sentMessage struct {
	chatID int64
	text   string
}

type fakeTelegramClient struct {
	sent []sentMessage
	err  error
}

func (c *fakeTelegramClient) SendMessage(chatID int64, text string, _ *telebot.SendOptions) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, sentMessage{chatID: chatID, text: text})
	return nil
}

var errStoreDown = errors.New("connection refused")

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}
