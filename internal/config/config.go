package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const defaultDataDir = "/var/lib/tweetvault"
const defaultListenAddress = ":8080"

// AppConfig is the process configuration, assembled from the environment.
// Components pull what they need through the typed getters.
type AppConfig map[string]any

// ReadConfig loads the .env file from the data dir (plain environment
// variables win when the file is missing) and assembles the AppConfig.
func ReadConfig() AppConfig {
	ac := AppConfig{}

	level := ParseLogLevel(os.Getenv("LOG_LEVEL"))
	ac["log_level"] = level.String()
	SetLogLevel(level)

	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = defaultDataDir
	}
	ac["data_dir"] = dataDir

	if err := godotenv.Load(filepath.Join(dataDir, ".env")); err != nil {
		logrus.Debugf("No .env file under %s, reading from environment only", dataDir)
	}

	credentials := os.Getenv("TIMELINE_CREDENTIALS")
	if credentials != "" {
		creds := strings.Split(credentials, ",")
		for i, c := range creds {
			creds[i] = strings.TrimSpace(c)
		}
		ac["timeline_credentials"] = creds
	} else {
		ac["timeline_credentials"] = []string{}
	}

	accounts := os.Getenv("SYNC_ACCOUNTS")
	if accounts != "" {
		accs := strings.Split(accounts, ",")
		for i, a := range accs {
			accs[i] = strings.TrimSpace(a)
		}
		ac["sync_accounts"] = accs
	} else {
		ac["sync_accounts"] = []string{}
	}

	concurrency := 1
	if s := os.Getenv("SYNC_CONCURRENCY"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			concurrency = v
		} else {
			logrus.Errorf("Error parsing SYNC_CONCURRENCY %q. Setting to default.", s)
		}
	}
	ac["sync_concurrency"] = concurrency

	if base := os.Getenv("UPSTREAM_BASE_URL"); base != "" {
		ac["upstream_base_url"] = base
	}

	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		logrus.Info("Postgres DSN found, enabling the Postgres backend")
		ac["postgres_dsn"] = dsn
	}

	archiveDir := os.Getenv("ARCHIVE_DIR")
	if archiveDir == "" {
		archiveDir = filepath.Join(dataDir, "archive")
	}
	ac["archive_dir"] = archiveDir

	listenAddress := os.Getenv("LISTEN_ADDRESS")
	if listenAddress == "" {
		listenAddress = defaultListenAddress
	}
	ac["listen_address"] = listenAddress

	if apiKey := os.Getenv("API_KEY"); apiKey != "" {
		ac["api_key"] = apiKey
	}

	bufSize := 128
	if s := os.Getenv("STATS_BUF_SIZE"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			bufSize = v
		} else {
			logrus.Errorf("Error parsing STATS_BUF_SIZE %q. Setting to default.", s)
		}
	}
	ac["stats_buf_size"] = uint(bufSize)

	runCacheMaxSize := 100
	if s := os.Getenv("RUN_CACHE_MAX_SIZE"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			runCacheMaxSize = v
		}
	}
	ac["run_cache_max_size"] = runCacheMaxSize

	runCacheMaxAge := 3600
	if s := os.Getenv("RUN_CACHE_MAX_AGE_SECONDS"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			runCacheMaxAge = v
		}
	}
	ac["run_cache_max_age_seconds"] = time.Duration(runCacheMaxAge) * time.Second

	pageSize := 40
	if s := os.Getenv("TIMELINE_PAGE_SIZE"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			pageSize = v
		}
	}
	ac["timeline_page_size"] = pageSize

	ac["run_once"] = os.Getenv("RUN_ONCE") == "true"
	ac["profiling_enabled"] = os.Getenv("ENABLE_PPROF") == "true"

	return ac
}

func (ac AppConfig) DataDir() string {
	return ac.GetString("data_dir", defaultDataDir)
}

func (ac AppConfig) ListenAddress() string {
	return ac.GetString("listen_address", defaultListenAddress)
}

func (ac AppConfig) IsRunOnce() bool {
	return ac.GetBool("run_once", false)
}

// GetInt safely extracts an int from AppConfig, with a default fallback.
func (ac AppConfig) GetInt(key string, def int) int {
	if v, ok := ac[key]; ok {
		switch val := v.(type) {
		case int:
			return val
		case int64:
			return int(val)
		case float64:
			return int(val)
		}
	}
	return def
}

func (ac AppConfig) GetDuration(key string, defSecs int) time.Duration {
	if v, ok := ac[key]; ok {
		if val, ok := v.(time.Duration); ok {
			return val
		}
	}
	return time.Duration(defSecs) * time.Second
}

func (ac AppConfig) GetString(key string, def string) string {
	if v, ok := ac[key]; ok {
		if val, ok := v.(string); ok {
			return val
		}
	}
	return def
}

// GetStringSlice safely extracts a string slice from AppConfig, with a default fallback.
func (ac AppConfig) GetStringSlice(key string, def []string) []string {
	if v, ok := ac[key]; ok {
		if val, ok := v.([]string); ok {
			return val
		}
	}
	return def
}

// GetBool safely extracts a bool from AppConfig, with a default fallback.
func (ac AppConfig) GetBool(key string, def bool) bool {
	if v, ok := ac[key]; ok {
		if val, ok := v.(bool); ok {
			return val
		}
	}
	return def
}

// GetUint safely extracts a uint from AppConfig, with a default fallback.
func (ac AppConfig) GetUint(key string, def uint) uint {
	if v, ok := ac[key]; ok {
		switch val := v.(type) {
		case uint:
			return val
		case int:
			if val >= 0 {
				return uint(val)
			}
		}
	}
	return def
}

// ParseLogLevel parses a string and returns the corresponding logrus.Level.
func ParseLogLevel(logLevel string) logrus.Level {
	switch strings.ToLower(logLevel) {
	case "debug":
		return logrus.DebugLevel
	case "info", "":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		logrus.Errorf("Invalid log level %q, setting to %s", logLevel, logrus.InfoLevel)
		return logrus.InfoLevel
	}
}

// SetLogLevel sets the log level for the application.
func SetLogLevel(level logrus.Level) {
	logrus.SetLevel(level)
}
