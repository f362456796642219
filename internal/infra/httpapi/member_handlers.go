package httpapi

import (
	"encoding/json"
	"errors"
	"time"

	"sacco_backoffice/internal/app"
	"sacco_backoffice/internal/domain/member"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type memberResponse struct {
	ID                  string          `json:"id"`
	MemberID            string          `json:"memberId"`
	Name                string          `json:"name"`
	Phone               *string         `json:"phone"`
	Status              member.Status   `json:"status"`
	ContributionDate    *string         `json:"contributionDate"`
	DeactivationReason  *string         `json:"deactivationReason"`
	MonthlyContribution decimal.Decimal `json:"monthlyContribution"`
	SavingsBalance      decimal.Decimal `json:"savingsBalance"`
	CreatedAt           time.Time       `json:"createdAt"`
	UpdatedAt           time.Time       `json:"updatedAt"`
}

type registerRequest struct {
	Name                string          `json:"name"`
	Phone               string          `json:"phone"`
	MonthlyContribution decimal.Decimal `json:"monthlyContribution"`
}

type contributionRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Date   string          `json:"date"` // YYYY-MM-DD, defaults to today
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

func toMemberResponse(m *member.Member) memberResponse {
	resp := memberResponse{
		ID:                  m.ID,
		MemberID:            m.MemberID,
		Name:                m.FullName,
		Status:              m.Status,
		MonthlyContribution: m.MonthlyContribution,
		SavingsBalance:      m.SavingsBalance,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
	if m.Phone.Valid {
		resp.Phone = &m.Phone.String
	}
	if m.ContributionDate.Valid {
		d := m.ContributionDate.Time.Format("2006-01-02")
		resp.ContributionDate = &d
	}
	if m.DeactivationReason.Valid {
		resp.DeactivationReason = &m.DeactivationReason.String
	}
	return resp
}

func (h *Handler) ListMembers(c *fiber.Ctx) error {
	members, err := h.members.List(c.UserContext())
	if err != nil {
		return err
	}
	out := make([]memberResponse, 0, len(members))
	for _, m := range members {
		out = append(out, toMemberResponse(m))
	}
	return c.JSON(fiber.Map{"success": true, "data": out})
}

func (h *Handler) RegisterMember(c *fiber.Ctx) error {
	var req registerRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "Invalid request body"})
	}
	m, err := h.members.Register(c.UserContext(), app.RegisterInput{
		FullName:            req.Name,
		Phone:               req.Phone,
		MonthlyContribution: req.MonthlyContribution,
	})
	if err != nil {
		return h.memberError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": toMemberResponse(m)})
}

func (h *Handler) GetMember(c *fiber.Ctx) error {
	m, err := h.members.Get(c.UserContext(), c.Params("ref"))
	if err != nil {
		return h.memberError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": toMemberResponse(m)})
}

func (h *Handler) RecordContribution(c *fiber.Ctx) error {
	var req contributionRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "Invalid request body"})
	}
	var date time.Time
	if req.Date != "" {
		d, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "date must be formatted as YYYY-MM-DD"})
		}
		date = d
	}
	m, err := h.members.RecordContribution(c.UserContext(), c.Params("ref"), req.Amount, date)
	if err != nil {
		return h.memberError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": toMemberResponse(m)})
}

func (h *Handler) SuspendMember(c *fiber.Ctx) error {
	reason, ok := parseReason(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "Invalid request body"})
	}
	m, err := h.members.Suspend(c.UserContext(), c.Params("ref"), reason)
	if err != nil {
		return h.memberError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": toMemberResponse(m)})
}

func (h *Handler) ReactivateMember(c *fiber.Ctx) error {
	m, err := h.members.Reactivate(c.UserContext(), c.Params("ref"))
	if err != nil {
		return h.memberError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": toMemberResponse(m)})
}

func (h *Handler) CloseMember(c *fiber.Ctx) error {
	reason, ok := parseReason(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "Invalid request body"})
	}
	m, err := h.members.Close(c.UserContext(), c.Params("ref"), reason)
	if err != nil {
		return h.memberError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": toMemberResponse(m)})
}

// parseReason accepts an empty body or {"reason": "..."}.
func parseReason(c *fiber.Ctx) (string, bool) {
	body := c.Body()
	if len(body) == 0 {
		return "", true
	}
	var req reasonRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return "", false
	}
	return req.Reason, true
}

func (h *Handler) memberError(c *fiber.Ctx, err error) error {
	var code int
	switch {
	case errors.Is(err, member.ErrNotFound):
		code = fiber.StatusNotFound
	case errors.Is(err, app.ErrInvalidMemberName), errors.Is(err, app.ErrInvalidAmount):
		code = fiber.StatusBadRequest
	case errors.Is(err, app.ErrMemberClosed), errors.Is(err, app.ErrInvalidTransition), errors.Is(err, member.ErrDuplicateMemberID):
		code = fiber.StatusConflict
	default:
		return err
	}
	return c.Status(code).JSON(fiber.Map{"success": false, "error": err.Error()})
}
