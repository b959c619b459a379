package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds environment-driven configuration for both commands.
type Config struct {
	// Addr is where the web front end listens.
	Addr           string
	APIURL         string
	RequestTimeout time.Duration

	// ServiceAddr is where the development product service listens.
	ServiceAddr        string
	DatabaseURL        string
	AllowResetProducts bool

	LogLevel string
	LogFile  string
	LogDev   bool
}

// Load reads a .env file when present, then the environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("catalog_addr", ":3000")
	v.SetDefault("catalog_api_url", "http://localhost:8081/api/products")
	v.SetDefault("catalog_request_timeout", "10s")
	v.SetDefault("product_service_addr", ":8081")
	v.SetDefault("allow_reset_products", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_dev", false)
	// VITE_API_URL is the name older deployments set
	if err := v.BindEnv("catalog_api_url", "CATALOG_API_URL", "VITE_API_URL"); err != nil {
		return Config{}, err
	}

	timeout, err := time.ParseDuration(v.GetString("catalog_request_timeout"))
	if err != nil || timeout <= 0 {
		return Config{}, fmt.Errorf("CATALOG_REQUEST_TIMEOUT: invalid duration %q", v.GetString("catalog_request_timeout"))
	}

	apiURL := v.GetString("catalog_api_url")
	if u, err := url.Parse(apiURL); err != nil || u.Scheme == "" || u.Host == "" {
		return Config{}, fmt.Errorf("CATALOG_API_URL: invalid url %q", apiURL)
	}

	return Config{
		Addr:               v.GetString("catalog_addr"),
		APIURL:             apiURL,
		RequestTimeout:     timeout,
		ServiceAddr:        v.GetString("product_service_addr"),
		DatabaseURL:        v.GetString("database_url"),
		AllowResetProducts: v.GetBool("allow_reset_products"),
		LogLevel:           v.GetString("log_level"),
		LogFile:            v.GetString("log_file"),
		LogDev:             v.GetBool("log_dev"),
	}, nil
}
