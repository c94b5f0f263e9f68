package config

import (
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию сервисов.
type AppConfig struct {
	AppEnv      string `envconfig:"APP_ENV" default:"dev"`
	TZ          string `envconfig:"TZ" default:"UTC"`
	Port        int    `envconfig:"PORT" default:"8080"`
	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9090"`

	Server struct {
		ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"5s"`
		ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
		WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"15s"`
	} `envconfig:""`

	Upstream struct {
		BaseURL string        `envconfig:"UPSTREAM_BASE_URL" default:"https://eeycqc81wj.execute-api.us-west-2.amazonaws.com/prod"`
		Timeout time.Duration `envconfig:"UPSTREAM_TIMEOUT" default:"15s"`
	} `envconfig:""`

	Session struct {
		TTL        time.Duration `envconfig:"SESSION_TTL" default:"12h"`
		CookieName string        `envconfig:"SESSION_COOKIE" default:"feedback_session"`
		Secure     bool          `envconfig:"SESSION_COOKIE_SECURE" default:"false"`
	} `envconfig:""`

	Dashboard struct {
		Locale string `envconfig:"DASHBOARD_LOCALE" default:"en"`
	} `envconfig:""`

	Telegram struct {
		Token         string `envconfig:"TG_BOT_TOKEN"`
		TrainerChatID int64  `envconfig:"TG_TRAINER_CHAT_ID"`
	} `envconfig:""`

	Notify struct {
		LowRatingThreshold int `envconfig:"LOW_RATING_THRESHOLD" default:"2"`
		ReportHour         int `envconfig:"REPORT_HOUR" default:"18"`
	} `envconfig:""`

	PGDSN string `envconfig:"PG_DSN"`

	RedisAddr string `envconfig:"REDIS_ADDR" default:"localhost:6379"`

	RabbitURL string `envconfig:"RABBITMQ_URL"`

	Queues struct {
		Backend  string `envconfig:"QUEUE_BACKEND" default:"redis"`
		Feedback string `envconfig:"FEEDBACK_QUEUE_KEY" default:"feedback_notifications"`
	} `envconfig:""`
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}

// Location возвращает часовой пояс из TZ, по умолчанию UTC.
func (c AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.TZ)
	if err != nil {
		return time.UTC
	}
	return loc
}
