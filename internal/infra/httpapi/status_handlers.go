package httpapi

import (
	"fmt"
	"strconv"
	"time"

	"sacco_backoffice/internal/domain/statusrun"

	"github.com/gofiber/fiber/v2"
)

// isoTimestamp matches the millisecond UTC form callers expect, e.g. 2024-04-15T01:00:00.000Z.
const isoTimestamp = "2006-01-02T15:04:05.000Z07:00"

type statusUpdateResponse struct {
	Success   bool                   `json:"success"`
	Message   string                 `json:"message"`
	Updated   int                    `json:"updated"`
	Details   []statusrun.Transition `json:"details"`
	Timestamp string                 `json:"timestamp"`
}

type runResponse struct {
	ID         string                 `json:"id"`
	StartedAt  string                 `json:"startedAt"`
	FinishedAt string                 `json:"finishedAt"`
	Updated    int                    `json:"updated"`
	Details    []statusrun.Transition `json:"details"`
}

// UpdateMemberStatus runs one reconciliation pass and reports the transitions.
func (h *Handler) UpdateMemberStatus(c *fiber.Ctx) error {
	result, err := h.statuses.RunStatusUpdate(c.UserContext())
	if err != nil {
		h.logger.WithError(err).Error("Member status update failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to update member statuses",
			"message": "The status update could not be completed. Check the server logs for details.",
		})
	}

	return c.JSON(statusUpdateResponse{
		Success:   true,
		Message:   fmt.Sprintf("Member status update completed. %d member(s) updated.", result.Updated),
		Updated:   result.Updated,
		Details:   result.Details,
		Timestamp: result.FinishedAt.UTC().Format(isoTimestamp),
	})
}

// UpdateMemberStatusPost behaves exactly like the GET form.
func (h *Handler) UpdateMemberStatusPost(c *fiber.Ctx) error {
	return h.UpdateMemberStatus(c)
}

// CheckMemberStatus previews the engine decision for one member without writing.
func (h *Handler) CheckMemberStatus(c *fiber.Ctx) error {
	res, err := h.statuses.CheckMember(c.UserContext(), c.Params("ref"))
	if err != nil {
		return err
	}
	return c.JSON(res)
}

func (h *Handler) ListStatusRuns(c *fiber.Ctx) error {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 100 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "limit must be between 1 and 100"})
		}
		limit = n
	}

	runs, err := h.statuses.RecentRuns(c.UserContext(), limit)
	if err != nil {
		return err
	}
	out := make([]runResponse, 0, len(runs))
	for _, r := range runs {
		out = append(out, runResponse{
			ID:         r.ID,
			StartedAt:  r.StartedAt.UTC().Format(time.RFC3339),
			FinishedAt: r.FinishedAt.UTC().Format(time.RFC3339),
			Updated:    r.Updated,
			Details:    r.Details,
		})
	}
	return c.JSON(fiber.Map{"success": true, "data": out})
}
