package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"strconv"

	"github.com/phetsims/greenhouse-effect-sub005/internal/waves"
)

// ServerConfig holds the server configuration
type ServerConfig struct {
	Addr               string
	DefaultModelID     string
	ModelConfigFile    string
	SnapshotDir        string
	SnapshotEverySteps int
	StepIntervalMs     int
	LogLevel           string
}

// configResolver defines how to resolve a single configuration value
type configResolver struct {
	flagName    string
	envVarName  string
	defaultVal  string
	description string
	setter      func(*ServerConfig, string)
}

// loadServerConfig loads server configuration from CLI flags and environment variables.
// Uses a resolver pattern to make it easy to add new configuration options.
func loadServerConfig() ServerConfig {
	cfg := ServerConfig{}

	// Define all configuration resolvers
	// To add a new option, just add a new resolver here
	resolvers := []configResolver{
		{
			flagName:    "addr",
			envVarName:  "GREENHOUSE_ADDR",
			defaultVal:  ":8080",
			description: "HTTP listen address (e.g. :8080, 0.0.0.0:8080)",
			setter:      func(c *ServerConfig, v string) { c.Addr = v },
		},
		{
			flagName:    "model-id",
			envVarName:  "GREENHOUSE_MODEL_ID",
			defaultVal:  "default",
			description: "ID of the model created at startup",
			setter:      func(c *ServerConfig, v string) { c.DefaultModelID = v },
		},
		{
			flagName:    "config-file",
			envVarName:  "GREENHOUSE_CONFIG_FILE",
			defaultVal:  "",
			description: "optional path to a JSON model config file; the built-in default config is used otherwise",
			setter:      func(c *ServerConfig, v string) { c.ModelConfigFile = v },
		},
		{
			flagName:    "snapshot-dir",
			envVarName:  "GREENHOUSE_SNAPSHOT_DIR",
			defaultVal:  "./data",
			description: "Directory where model snapshots are stored",
			setter:      func(c *ServerConfig, v string) { c.SnapshotDir = v },
		},
		{
			flagName:    "snapshot-every-steps",
			envVarName:  "GREENHOUSE_SNAPSHOT_EVERY_STEPS",
			defaultVal:  "1000",
			description: "How often to write snapshots (in number of steps); 0 disables periodic snapshots",
			setter: func(c *ServerConfig, v string) {
				if val, err := strconv.Atoi(v); err == nil {
					c.SnapshotEverySteps = val
				} else {
					log.Printf("Invalid value for snapshot-every-steps: %s, using default 1000", v)
					c.SnapshotEverySteps = 1000
				}
			},
		},
		{
			flagName:    "step-interval",
			envVarName:  "GREENHOUSE_STEP_INTERVAL",
			defaultVal:  "33",
			description: "Auto-run step interval in milliseconds (used by /model/{id}/start)",
			setter: func(c *ServerConfig, v string) {
				if val, err := strconv.Atoi(v); err == nil && val > 0 {
					c.StepIntervalMs = val
				} else {
					log.Printf("Invalid value for step-interval: %s, using default 33", v)
					c.StepIntervalMs = 33
				}
			},
		},
		{
			flagName:    "log-level",
			envVarName:  "GREENHOUSE_LOG_LEVEL",
			defaultVal:  "info",
			description: "Log level: debug, info, warn, error",
			setter:      func(c *ServerConfig, v string) { c.LogLevel = v },
		},
	}

	// Register string flags first
	flagVars := make(map[string]*string)
	for _, resolver := range resolvers {
		flagVars[resolver.flagName] = flag.String(resolver.flagName, "", resolver.description)
	}

	// Parse flags once
	flag.Parse()

	// Resolve values for each resolver
	for _, resolver := range resolvers {
		var value string
		if *flagVars[resolver.flagName] != "" {
			value = *flagVars[resolver.flagName]
		} else if envValue := os.Getenv(resolver.envVarName); envValue != "" {
			value = envValue
		} else {
			value = resolver.defaultVal
		}
		resolver.setter(&cfg, value)
	}

	return cfg
}

// loadModelConfigFromFile loads a model configuration from a JSON file
// and validates it.
func loadModelConfigFromFile(path string) (waves.ModelConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return waves.ModelConfig{}, err
	}

	var cfg waves.ModelConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return waves.ModelConfig{}, err
	}

	if err := waves.ValidateModelConfig(cfg); err != nil {
		return waves.ModelConfig{}, err
	}

	return cfg, nil
}
