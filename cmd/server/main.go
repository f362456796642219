package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sacco_backoffice/internal/app"
	"sacco_backoffice/internal/bootstrap"
	domainTelegram "sacco_backoffice/internal/domain/telegram"
	"sacco_backoffice/internal/infra/config"
	"sacco_backoffice/internal/infra/httpapi"
	"sacco_backoffice/internal/infra/logger"
	"sacco_backoffice/internal/infra/scheduler"
	"sacco_backoffice/internal/infra/telegram"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("FATAL: Could not load application configuration: %v", err)
	}

	logger.Init(cfg)
	mainLogger := logger.Component("main")
	mainLogger.WithFields(logrus.Fields{
		"store_driver": cfg.StoreDriver,
		"environment":  cfg.Environment,
		"http_addr":    cfg.HTTPAddr,
	}).Info("SACCO back office starting")

	stores, err := bootstrap.OpenStores(cfg, logger.Component("store"))
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not open store")
	}
	defer stores.Close()

	// Telegram is optional; without a token no bot is started and nothing is sent.
	var bot *telebot.Bot
	var telegramClient domainTelegram.Client
	if cfg.TelegramEnabled() {
		pref := telebot.Settings{
			Token:  cfg.TelegramToken,
			Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
			OnError: func(err error, c telebot.Context) {
				entry := logger.Component("telebot").WithError(err)
				if c != nil && c.Sender() != nil && c.Chat() != nil {
					entry = entry.WithFields(logrus.Fields{
						"message":   c.Text(),
						"sender_id": c.Sender().ID,
						"chat_id":   c.Chat().ID,
					})
				}
				entry.Error("Telegram handler error")
			},
		}
		bot, err = telebot.NewBot(pref)
		if err != nil {
			mainLogger.WithError(err).Fatal("Could not create Telegram bot")
		}
		telegramClient = telegram.NewTelebotAdapter(bot)
	}

	statusService := app.NewStatusService(
		stores.Members,
		stores.Runs,
		telegramClient,
		cfg.ManagerTelegramID,
		logger.Component("status_service"),
	).WithClock(cfg.Now)
	memberService := app.NewMemberService(stores.Members, logger.Component("member_service")).WithClock(cfg.Now)

	statusScheduler := scheduler.NewStatusScheduler(
		statusService,
		logger.Component("scheduler"),
		cfg.CronSpecStatusUpdate,
		cfg.Location(),
	)
	if err := statusScheduler.Start(); err != nil {
		mainLogger.WithError(err).Fatal("Could not start scheduler")
	}

	if bot != nil {
		commands := telegram.NewAdminCommands(statusService, memberService, cfg.AdminTelegramID)
		telegram.RegisterAdminHandlers(bot, commands, logger.Component("telegram"))
		go bot.Start()
		mainLogger.Info("Telegram bot started")
	}

	handler := httpapi.NewHandler(statusService, memberService, cfg.CronSecret, logger.Component("http"))
	fiberApp := httpapi.NewApp(handler)
	go func() {
		mainLogger.WithField("addr", cfg.HTTPAddr).Info("HTTP server listening")
		if err := fiberApp.Listen(cfg.HTTPAddr); err != nil {
			mainLogger.WithError(err).Fatal("HTTP server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	mainLogger.Info("Shutting down application...")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := fiberApp.ShutdownWithContext(ctx); err != nil {
		mainLogger.WithError(err).Warn("HTTP server did not shut down cleanly")
	}
	statusScheduler.Stop()
	if bot != nil {
		bot.Stop()
	}
	mainLogger.Info("Application shut down gracefully")
}
