package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: FORTDOC_[SECTION]_[KEY] (e.g., FORTDOC_PARSE_FORCE).
func ApplyEnvOverrides(cfg *Config) {
	// Project
	setEnvString(&cfg.Project.Name, "FORTDOC_PROJECT_NAME")
	setEnvList(&cfg.Project.SrcDirs, "FORTDOC_PROJECT_SRC_DIRS")

	// Parse
	setEnvBool(&cfg.Parse.Lower, "FORTDOC_PARSE_LOWER")
	setEnvBool(&cfg.Parse.Force, "FORTDOC_PARSE_FORCE")
	setEnvBool(&cfg.Parse.Debug, "FORTDOC_PARSE_DEBUG")
	setEnvInt(&cfg.Parse.Workers, "FORTDOC_PARSE_WORKERS")

	// Display
	setEnvList(&cfg.Display.Display, "FORTDOC_DISPLAY_DISPLAY")
	setEnvBool(&cfg.Display.HideUndoc, "FORTDOC_DISPLAY_HIDE_UNDOC")
	setEnvBool(&cfg.Display.ProcInternals, "FORTDOC_DISPLAY_PROC_INTERNALS")
	setEnvString(&cfg.Display.Sort, "FORTDOC_DISPLAY_SORT")

	// Output
	setEnvString(&cfg.Output.Dir, "FORTDOC_OUTPUT_DIR")

	// Database
	setEnvBool(&cfg.DB.Enabled, "FORTDOC_DB_ENABLED")
	setEnvString(&cfg.DB.Path, "FORTDOC_DB_PATH")
	setEnvInt(&cfg.DB.KeepRuns, "FORTDOC_DB_KEEP_RUNS")

	// Watch
	setEnvDuration(&cfg.Watch.Debounce, "FORTDOC_WATCH_DEBOUNCE")
	setEnvFloat64(&cfg.Watch.MaxRebuildsPerSecond, "FORTDOC_WATCH_MAX_REBUILDS_PER_SECOND")

	// Observability
	setEnvString(&cfg.Observability.MetricsAddress, "FORTDOC_OBSERVABILITY_METRICS_ADDRESS")
	setEnvString(&cfg.Observability.OTLPEndpoint, "FORTDOC_OBSERVABILITY_OTLP_ENDPOINT")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

func setEnvList(target *[]string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		var out []string
		for _, part := range strings.Split(val, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		*target = out
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvFloat64(target *float64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = f
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
