package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DB       DBConfig
	Telegram TelegramConfig
	Geo      GeoConfig
	HTTP     HTTPConfig
	Admin    AdminConfig
	Shop     ShopConfig
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

type TelegramConfig struct {
	Token       string // bot used for push notifications; empty disables them
	AdminChatID int64  // chat that receives new order cards
	TrackURL    string // customer tracking link, %s is the order id
}

type GeoConfig struct {
	NominatimURL string
	OSRMURL      string
	CountryCode  string
	UserAgent    string
	Timeout      time.Duration
}

type HTTPConfig struct {
	Port string
}

type AdminConfig struct {
	PasswordHash string // bcrypt hash of the admin console password
}

type ShopConfig struct {
	Name     string
	Timezone string // used only to seed the settings document on first run
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	port, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	adminChat, _ := strconv.ParseInt(getEnv("TELEGRAM_ADMIN_CHAT_ID", "0"), 10, 64)
	timeout, err := time.ParseDuration(getEnv("GEO_TIMEOUT", "10s"))
	if err != nil {
		timeout = 10 * time.Second
	}

	return &Config{
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     port,
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "salgados"),
		},
		Telegram: TelegramConfig{
			Token:       getEnv("TELEGRAM_TOKEN", ""),
			AdminChatID: adminChat,
			TrackURL:    getEnv("TRACK_URL", ""),
		},
		Geo: GeoConfig{
			NominatimURL: getEnv("NOMINATIM_URL", "https://nominatim.openstreetmap.org"),
			OSRMURL:      getEnv("OSRM_URL", "https://router.project-osrm.org"),
			CountryCode:  getEnv("GEO_COUNTRY", "pt"),
			UserAgent:    getEnv("GEO_USER_AGENT", "salgados-shop/1.0"),
			Timeout:      timeout,
		},
		HTTP: HTTPConfig{
			Port: getEnv("APP_PORT", "8080"),
		},
		Admin: AdminConfig{
			PasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
		},
		Shop: ShopConfig{
			Name:     getEnv("SHOP_NAME", "Salgados"),
			Timezone: getEnv("SHOP_TIMEZONE", "Europe/Lisbon"),
		},
	}, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
