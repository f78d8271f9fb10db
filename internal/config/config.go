// Package config loads the engine's run configuration from the process
// environment. A missing required variable is configuration-fatal: the
// process logs and exits rather than starting with an incomplete setup.
package config

import (
	"log"
	"os"
	"strconv"
)

// RunConfig holds everything a pipeline run needs that is not itself event
// data: where the pattern bank and input files live, the trigger pt cuts,
// and the ambient service settings (DB, API auth, listen port, CORS).
type RunConfig struct {
	BankPath string
	OMTFInput bool
	Run2Input bool

	DiscrPtCutRate  float64
	DiscrPtCutTrack float64

	DatabaseURL    string
	APIAuthToken   string
	Port           string
	AllowedOrigins []string
}

// Load reads RunConfig from the environment. Only EMTF_BANK_PATH is
// required: a missing or malformed bank is configuration-fatal.
// DATABASE_URL and API_AUTH_TOKEN are optional subsystem configuration —
// left empty, the engine degrades (no persistence / no auth) with a
// warning rather than refusing to start, matching cmd/engine's own
// graceful-degradation wiring for Postgres/auth.
func Load() RunConfig {
	return RunConfig{
		BankPath:        requireEnv("EMTF_BANK_PATH"),
		OMTFInput:       getEnvBool("EMTF_OMTF_INPUT", false),
		Run2Input:       getEnvBool("EMTF_RUN2_INPUT", false),
		DiscrPtCutRate:  getEnvFloat("EMTF_DISCR_PT_CUT_RATE", 14.0),
		DiscrPtCutTrack: getEnvFloat("EMTF_DISCR_PT_CUT_TRACK", 8.0),
		DatabaseURL:     getEnvOrDefault("DATABASE_URL", ""),
		APIAuthToken:    getEnvOrDefault("API_AUTH_TOKEN", ""),
		Port:            getEnvOrDefault("PORT", "5339"),
		AllowedOrigins:  splitCSV(getEnvOrDefault("ALLOWED_ORIGINS", "*")),
	}
}

// requireEnv reads a required environment variable and exits if it is not set.
func requireEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		log.Fatalf("FATAL: required environment variable %s is not set", key)
	}
	return val
}

// getEnvOrDefault returns the env var value or a fallback for non-secret settings.
func getEnvOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		log.Fatalf("FATAL: environment variable %s=%q is not a valid bool", key, val)
	}
	return b
}

func getEnvFloat(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		log.Fatalf("FATAL: environment variable %s=%q is not a valid number", key, val)
	}
	return f
}

func splitCSV(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}
