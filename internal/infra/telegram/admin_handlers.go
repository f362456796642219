package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"sacco_backoffice/internal/app"
	"sacco_backoffice/internal/domain/member"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const (
	msgUnauthorized = "Error: you are not authorized to use this command."
	commandTimeout  = 2 * time.Minute
)

// StatusEngine is the part of app.StatusService the bot uses.
type StatusEngine interface {
	RunStatusUpdate(ctx context.Context) (*app.BatchResult, error)
	CheckMember(ctx context.Context, ref string) (*app.CheckResult, error)
}

// MemberLookup is the part of app.MemberService the bot uses.
type MemberLookup interface {
	Get(ctx context.Context, ref string) (*member.Member, error)
}

// AdminCommands holds the command logic independent of the bot transport.
type AdminCommands struct {
	statuses        StatusEngine
	members         MemberLookup
	adminTelegramID int64
}

func NewAdminCommands(statuses StatusEngine, members MemberLookup, adminTelegramID int64) *AdminCommands {
	return &AdminCommands{statuses: statuses, members: members, adminTelegramID: adminTelegramID}
}

// CheckMember answers /check_member <MemberID>.
func (a *AdminCommands) CheckMember(ctx context.Context, senderID int64, args []string) string {
	if senderID != a.adminTelegramID {
		return msgUnauthorized
	}
	if len(args) != 1 {
		return "Invalid command format. Use: /check_member <MemberID>"
	}
	res, err := a.statuses.CheckMember(ctx, args[0])
	if err != nil {
		return fmt.Sprintf("An error occurred while checking the member: %s", err.Error())
	}
	if res.CurrentStatus == member.StatusUnknown {
		return fmt.Sprintf("Member %s not found.", args[0])
	}
	if !res.ShouldUpdate {
		return fmt.Sprintf("Member %s: status %s is up to date (missed %d month(s)).", args[0], res.CurrentStatus, res.MissedMonths)
	}
	return fmt.Sprintf("Member %s: status %s should become %s (missed %d month(s)).", args[0], res.CurrentStatus, res.SuggestedStatus, res.MissedMonths)
}

// RunStatusUpdate answers /run_status_update.
func (a *AdminCommands) RunStatusUpdate(ctx context.Context, senderID int64) string {
	if senderID != a.adminTelegramID {
		return msgUnauthorized
	}
	result, err := a.statuses.RunStatusUpdate(ctx)
	if err != nil {
		return fmt.Sprintf("Member status update failed: %s", err.Error())
	}
	if result.Updated == 0 {
		return "Member status update completed. No changes."
	}
	return app.FormatTransitionSummary(result.Details)
}

// ShowMember answers /member <MemberID>.
func (a *AdminCommands) ShowMember(ctx context.Context, senderID int64, args []string) string {
	if senderID != a.adminTelegramID {
		return msgUnauthorized
	}
	if len(args) != 1 {
		return "Invalid command format. Use: /member <MemberID>"
	}
	m, err := a.members.Get(ctx, args[0])
	if err != nil {
		if errors.Is(err, member.ErrNotFound) {
			return fmt.Sprintf("Member %s not found.", args[0])
		}
		return fmt.Sprintf("An error occurred while loading the member: %s", err.Error())
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", m.MemberID, m.FullName)
	fmt.Fprintf(&b, "Status: %s\n", m.Status)
	if m.ContributionDate.Valid {
		fmt.Fprintf(&b, "Last contribution: %s\n", m.ContributionDate.Time.Format("2006-01-02"))
	} else {
		b.WriteString("Last contribution: none\n")
	}
	fmt.Fprintf(&b, "Savings: %s", m.SavingsBalance.StringFixed(2))
	if m.DeactivationReason.Valid && m.DeactivationReason.String != "" {
		fmt.Fprintf(&b, "\nReason: %s", m.DeactivationReason.String)
	}
	return b.String()
}

// Help answers /help and /start.
func (a *AdminCommands) Help(senderID int64) string {
	if senderID != a.adminTelegramID {
		return "This bot is for SACCO administrators. Please contact the office if you need access."
	}
	var helpText strings.Builder
	helpText.WriteString("Available admin commands:\n\n")
	helpText.WriteString("/check_member <MemberID> - preview the automatic status for a member\n")
	helpText.WriteString("/member <MemberID> - show a member's record\n")
	helpText.WriteString("/run_status_update - run the member status update now\n")
	helpText.WriteString("/help - show this message")
	return helpText.String()
}

// RegisterAdminHandlers wires AdminCommands to bot commands.
func RegisterAdminHandlers(b *telebot.Bot, commands *AdminCommands, baseLogger *logrus.Entry) {
	handle := func(command string, fn func(ctx context.Context, c telebot.Context) string) {
		b.Handle(command, func(c telebot.Context) error {
			handlerLogger := baseLogger.WithFields(logrus.Fields{
				"handler":   command,
				"sender_id": c.Sender().ID,
			})
			handlerLogger.Info("Command received")

			ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
			defer cancel()
			return c.Send(fn(ctx, c))
		})
	}

	handle("/start", func(_ context.Context, c telebot.Context) string {
		return commands.Help(c.Sender().ID)
	})
	handle("/help", func(_ context.Context, c telebot.Context) string {
		return commands.Help(c.Sender().ID)
	})
	handle("/check_member", func(ctx context.Context, c telebot.Context) string {
		return commands.CheckMember(ctx, c.Sender().ID, c.Args())
	})
	handle("/member", func(ctx context.Context, c telebot.Context) string {
		return commands.ShowMember(ctx, c.Sender().ID, c.Args())
	})
	handle("/run_status_update", func(ctx context.Context, c telebot.Context) string {
		return commands.RunStatusUpdate(ctx, c.Sender().ID)
	})
}
