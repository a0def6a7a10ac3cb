package cmd

import "time"

const (
	driverMemory   = "memory"
	driverPostgres = "postgres"
)

type appConfig struct {
	Env      string `env:"APP_ENV" envDefault:"development"`
	Name     string `env:"APP_NAME" envDefault:"photovault"`
	LogLevel string `env:"LOG_LEVEL"`

	StoreDriver     string `env:"STORE_DRIVER" envDefault:"memory"`
	BillingProvider string `env:"BILLING_PROVIDER" envDefault:"fake"`
	// FakeWebhookSecret signs deliveries for BILLING_PROVIDER=fake.
	FakeWebhookSecret string `env:"FAKE_WEBHOOK_SECRET" envDefault:"whsec_test"`

	// StatusCache is none, memory or redis.
	StatusCache     string        `env:"STATUS_CACHE" envDefault:"none"`
	StatusCacheTTL  time.Duration `env:"STATUS_CACHE_TTL" envDefault:"1m"`
	StatusCacheSize int           `env:"STATUS_CACHE_SIZE" envDefault:"10000"`

	SweepInterval     time.Duration `env:"SWEEP_INTERVAL" envDefault:"1h"`
	SweepBatch        int           `env:"SWEEP_BATCH" envDefault:"500"`
	PayoutInterval    time.Duration `env:"PAYOUT_INTERVAL" envDefault:"6h"`
	PayoutBatch       int           `env:"PAYOUT_BATCH" envDefault:"100"`
	PayoutConcurrency int           `env:"PAYOUT_CONCURRENCY" envDefault:"4"`
}
