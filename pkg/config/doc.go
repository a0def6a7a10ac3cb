// Package config loads typed configuration from environment variables.
//
// It combines github.com/joho/godotenv (optional .env files) with
// github.com/caarlos0/env/v11 (struct tag parsing). Every package that needs
// settings declares its own struct with `env` tags next to the code that uses
// it (pg.Config, redis.Config, payment.StripeConfig, ...) and the binary loads
// them with Load or MustLoad. Parsed values are cached per type, so repeated
// loads are cheap and consistent for the lifetime of the process.
//
// Reset clears the cache; tests call it after t.Setenv.
package config
