// Package config loads service configuration from a file or
// environment variables.
package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
)

// Config stores all configuration of the payments service.
//
// The values are read by viper from a config file or environment
// variables. The batch CLI takes flags instead and does not use this.
type Config struct {
	ServerAddress string `mapstructure:"SERVER_ADDRESS"`
	AuditDB       string `mapstructure:"AUDIT_DB"`
	KafkaBrokers  string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic    string `mapstructure:"KAFKA_TOPIC"`
	Environment   string `mapstructure:"GO_ENV"`
}

// Load reads configuration from path/app.env and the environment.
// A missing config file is fine; defaults and environment variables
// still apply.
func Load(path string) (Config, error) {
	var c Config

	viper.AddConfigPath(path)
	viper.SetConfigName("app")
	viper.SetConfigType("env")

	viper.SetDefault("SERVER_ADDRESS", ":8080")
	viper.SetDefault("AUDIT_DB", "payments.db")
	viper.SetDefault("KAFKA_BROKERS", "")
	viper.SetDefault("KAFKA_TOPIC", "ledger_audit")
	viper.SetDefault("GO_ENV", "production")

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return c, err
		}
	}

	if err := viper.Unmarshal(&c); err != nil {
		return c, err
	}

	return c, nil
}

// Brokers splits the comma-separated broker list. Empty means Kafka
// publishing is disabled.
func (c Config) Brokers() []string {
	if c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
