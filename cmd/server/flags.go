package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
)

type CLIConfig struct {
	Env         string
	ConfigPath  string
	LogLevel    string
	LogFormat   string
	Validate    bool
	ShowVersion bool
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	flag.StringVar(&cfg.Env, "env",
		getEnv("SUGGEST_ENV", "development"),
		"Environment; loads config/<env>.yaml (env: SUGGEST_ENV)")

	flag.StringVar(&cfg.ConfigPath, "config",
		getEnv("SUGGEST_CONFIG", ""),
		"Path to a configuration file, overrides -env lookup (env: SUGGEST_CONFIG)")

	flag.StringVar(&cfg.LogLevel, "log-level",
		getEnv("SUGGEST_LOG_LEVEL", ""),
		"Log level: debug, info, warn, error (env: SUGGEST_LOG_LEVEL)")

	flag.StringVar(&cfg.LogFormat, "log-format",
		getEnv("SUGGEST_LOG_FORMAT", ""),
		"Log format: json, text (env: SUGGEST_LOG_FORMAT)")

	flag.BoolVar(&cfg.Validate, "validate",
		getEnvBool("SUGGEST_VALIDATE", false),
		"Validate configuration and exit")

	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")

	flag.Parse()

	if cfg.ShowVersion {
		fmt.Printf("suggestion server %s\n", Version)
		os.Exit(0)
	}
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
