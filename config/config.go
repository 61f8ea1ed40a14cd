package config

import (
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const noSuffix = "none"

type Config struct {
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	Basket      Basket
	API         API
	Redis       Redis
	Cache       Cache
	Postgres    Postgres
	GoogleDrive GoogleDrive
}

type Basket struct {
	InputFile    string `env:"BASKET_INPUT_FILE" envDefault:"Stocks.csv"`
	OutputFile   string `env:"BASKET_OUTPUT_FILE" envDefault:"investment_results.xlsx"`
	// "none" disables suffixing
	TickerSuffix string `env:"BASKET_TICKER_SUFFIX" envDefault:".NS"`
	// 1 keeps fetches strictly sequential
	Workers      int    `env:"BASKET_WORKERS" envDefault:"4"`
}

type API struct {
	Debug    bool          `env:"API_DEBUG" envDefault:"false"`
	Timeout  time.Duration `env:"API_TIMEOUT" envDefault:"15s"`
	YahooApi YahooApi
}

type YahooApi struct {
	Url       string `env:"YAHOO_API_URL" envDefault:"https://query1.finance.yahoo.com"`
	UserAgent string `env:"YAHOO_API_USER_AGENT" envDefault:"Mozilla/5.0 (X11; Linux x86_64)"`
}

type Redis struct {
	Enabled  bool   `env:"REDIS_ENABLED" envDefault:"false"`
	Host     string `env:"REDIS_HOST" envDefault:"localhost"`
	Port     int    `env:"REDIS_PORT" envDefault:"6379"`
	Password string `env:"REDIS_PASSWORD" envDefault:""`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

type Cache struct {
	PricesExpiration time.Duration `env:"CACHE_PRICES_EXPIRATION" envDefault:"12h"`
}

type Postgres struct {
	Enabled         bool   `env:"PG_ENABLED" envDefault:"false"`
	Host            string `env:"PG_HOST" envDefault:"localhost"`
	Port            int    `env:"PG_PORT" envDefault:"5432"`
	DbName          string `env:"PG_DB_NAME" envDefault:"basket_shares"`
	Password        string `env:"PG_PASSWORD" envDefault:""`
	User            string `env:"PG_USER" envDefault:"postgres"`
	MaxOpenConns    int    `env:"PG_MAX_OPEN_CONNS" envDefault:"5"`
	ConnMaxLifetime int    `env:"PG_CONN_MAX_LIFETIME" envDefault:"300"`
	MaxIdleConns    int    `env:"PG_MAX_IDLE_CONNS" envDefault:"2"`
	ConnMaxIdleTime int    `env:"PG_CONN_MAX_IDLE_TIME" envDefault:"60"`
	MigrationDir    string `env:"PG_MIGRATION_DIR" envDefault:"migrations"`
	ConnAttempts    int    `env:"PG_CONN_ATTEMPTS" envDefault:"10"`
}

type GoogleDrive struct {
	Enabled         bool   `env:"GOOGLE_DRIVE_ENABLED" envDefault:"false"`
	CredentialsFile string `env:"GOOGLE_DRIVE_CREDENTIALS_FILE" envDefault:"credentials.json"`
}

func MustLoad() *Config {
	_ = godotenv.Load(".env")

	cfg, err := Load()
	if err != nil {
		log.Fatalf("parse config error: %s", err)
	}

	return cfg
}

// Load parses the process environment without touching .env.
func Load() (*Config, error) {
	cfg := &Config{}

	opts := env.Options{RequiredIfNoDef: true}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, err
	}

	if strings.EqualFold(cfg.Basket.TickerSuffix, noSuffix) {
		cfg.Basket.TickerSuffix = ""
	}

	if cfg.Basket.Workers < 1 {
		cfg.Basket.Workers = 1
	}

	return cfg, nil
}
