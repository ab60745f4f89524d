package main

import (
	"log"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/robfig/cron/v3"

	"github.com/RedzAdmin/Dark-Panel/config"
	"github.com/RedzAdmin/Dark-Panel/internal/admin"
	"github.com/RedzAdmin/Dark-Panel/internal/bot"
	"github.com/RedzAdmin/Dark-Panel/internal/db"
	"github.com/RedzAdmin/Dark-Panel/internal/logger"
	"github.com/RedzAdmin/Dark-Panel/internal/panel"
	"github.com/RedzAdmin/Dark-Panel/internal/services"
)

func main() {
	config.LoadConfig()

	plans, err := config.LoadPlans(config.AppCfg.PlansFile)
	if err != nil {
		log.Fatalf("Failed to load plan config: %v", err)
	}

	store, err := db.Open(config.AppCfg.DatabaseURL, []int64{config.AppCfg.AdminTelegramID})
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}

	botapi, err := tgbotapi.NewBotAPI(config.AppCfg.BotToken)
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}
	logger.InitNotifier(botapi, config.AppCfg.AdminTelegramID)

	panelClient := panel.NewClient(config.AppCfg.PanelURL, config.AppCfg.PanelAPIKey)
	adminHandler := admin.NewHandler(botapi, store, panelClient)
	handler := bot.NewHandler(botapi, store, panelClient, plans, adminHandler)

	c := cron.New()
	// Hourly expiry sweep.
	c.AddFunc("0 * * * *", func() {
		services.DisableExpiredServers(botapi, store)
	})
	// Expiring-soon warnings, daily at 10:00.
	c.AddFunc("0 10 * * *", func() {
		services.NotifyExpiringServers(botapi, store, 24*time.Hour)
	})
	// Panel reachability probe.
	c.AddFunc("@every 5m", func() {
		services.CheckPanelStatus(panelClient)
	})
	// Abandoned conversation flows.
	c.AddFunc("@every 5m", func() {
		handler.States().Prune()
	})
	// Daily database backup at 03:00.
	c.AddFunc("0 3 * * *", func() {
		admin.AutoBackupDatabase(config.AppCfg.DatabaseURL)
	})
	c.Start()

	defer logger.Sync()
	bot.Run(botapi, handler)
}
