package httpapi

import (
	"context"
	"errors"
	"strings"
	"time"

	"sacco_backoffice/internal/app"
	"sacco_backoffice/internal/domain/member"
	"sacco_backoffice/internal/domain/statusrun"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// StatusEngine is the part of app.StatusService the HTTP layer uses.
type StatusEngine interface {
	RunStatusUpdate(ctx context.Context) (*app.BatchResult, error)
	CheckMember(ctx context.Context, ref string) (*app.CheckResult, error)
	RecentRuns(ctx context.Context, limit int) ([]*statusrun.Run, error)
}

// MemberRegistry is the part of app.MemberService the HTTP layer uses.
type MemberRegistry interface {
	Register(ctx context.Context, in app.RegisterInput) (*member.Member, error)
	Get(ctx context.Context, ref string) (*member.Member, error)
	List(ctx context.Context) ([]*member.Member, error)
	RecordContribution(ctx context.Context, ref string, amount decimal.Decimal, date time.Time) (*member.Member, error)
	Suspend(ctx context.Context, ref, reason string) (*member.Member, error)
	Reactivate(ctx context.Context, ref string) (*member.Member, error)
	Close(ctx context.Context, ref, reason string) (*member.Member, error)
}

// Handler holds the dependencies of every route.
type Handler struct {
	statuses   StatusEngine
	members    MemberRegistry
	cronSecret string
	logger     *logrus.Entry
}

func NewHandler(statuses StatusEngine, members MemberRegistry, cronSecret string, logger *logrus.Entry) *Handler {
	return &Handler{
		statuses:   statuses,
		members:    members,
		cronSecret: cronSecret,
		logger:     logger,
	}
}

// NewApp builds the fiber application with every route registered.
func NewApp(h *Handler) *fiber.App {
	fiberApp := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          h.errorHandler,
	})
	fiberApp.Use(recover.New())

	fiberApp.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).SendString("Healthy")
	})

	api := fiberApp.Group("/api")

	cronGroup := api.Group("/cron", h.requireCronSecret)
	cronGroup.Get("/update-member-status", h.UpdateMemberStatus)
	cronGroup.Post("/update-member-status", h.UpdateMemberStatusPost)

	api.Get("/status-runs", h.ListStatusRuns)

	members := api.Group("/members")
	members.Get("/", h.ListMembers)
	members.Post("/", h.RegisterMember)
	members.Get("/:ref", h.GetMember)
	members.Get("/:ref/status-check", h.CheckMemberStatus)
	members.Post("/:ref/contributions", h.RecordContribution)
	members.Post("/:ref/suspend", h.SuspendMember)
	members.Post("/:ref/reactivate", h.ReactivateMember)
	members.Post("/:ref/close", h.CloseMember)

	return fiberApp
}

func (h *Handler) requireCronSecret(c *fiber.Ctx) error {
	if h.cronSecret == "" {
		return c.Next()
	}
	auth := c.Get(fiber.HeaderAuthorization)
	if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != h.cronSecret {
		h.logger.WithField("ip", c.IP()).Warn("Rejected status update trigger with missing or invalid secret")
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"error":   "Unauthorized",
			"message": "missing or invalid cron secret",
		})
	}
	return c.Next()
}

func (h *Handler) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code >= fiber.StatusInternalServerError {
		h.logger.WithError(err).WithField("path", c.Path()).Error("Unhandled request error")
	}
	return c.Status(code).JSON(fiber.Map{"success": false, "error": err.Error()})
}
