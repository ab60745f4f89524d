package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	BotToken        string
	AdminTelegramID int64
	DatabaseURL     string
	PanelURL        string
	PanelAPIKey     string
	BotName         string
	Owner           string
	PlansFile       string
}

var AppCfg AppConfig

func LoadConfig() {
	err := godotenv.Load()
	if err != nil {
		log.Println(".env file not found, relying on environment variables")
	}

	AppCfg.BotToken = os.Getenv("BOT_TOKEN")
	AppCfg.DatabaseURL = os.Getenv("DATABASE_URL")
	AppCfg.PanelURL = strings.TrimRight(os.Getenv("PANEL_URL"), "/")
	AppCfg.PanelAPIKey = os.Getenv("PANEL_API_KEY")
	AppCfg.BotName = getEnvDefault("BOT_NAME", "Dark-Panel")
	AppCfg.Owner = getEnvDefault("OWNER_CONTACT", "@admin")
	AppCfg.PlansFile = getEnvDefault("PLANS_FILE", "plans.json")

	adminID := os.Getenv("ADMIN_TELEGRAM_ID")
	AppCfg.AdminTelegramID, err = strconv.ParseInt(adminID, 10, 64)
	if err != nil {
		log.Fatalf("ADMIN_TELEGRAM_ID must be a numeric Telegram ID, got %q", adminID)
	}

	if AppCfg.BotToken == "" || AppCfg.DatabaseURL == "" || AppCfg.PanelURL == "" || AppCfg.PanelAPIKey == "" {
		log.Fatal("Critical environment variables are missing. Bot will exit.")
	}
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
