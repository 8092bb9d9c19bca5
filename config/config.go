package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via config files or the environment.
type AppConfig struct {
	AppPort            string
	JWTSecret          string
	TokenTTLHours      int
	RateLimitPerMinute int
	AllowedOrigins     []string
	// Timezone used to decide what "today" means for streaks
	Timezone                string
	LeaderboardCacheSeconds int
	// Registration throttling per client IP; negative disables
	RegisterCooldownSeconds int
	RegisterMaxPerIPPerDay  int
	// Database
	DBDriver    string
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	// Store retries on optimistic version conflicts
	StoreUpdateRetries int
	// Redis for caching, token blacklist and the realtime backplane
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	// Realtime fan-out across instances
	RealtimeBackplane bool
	RealtimeChannel   string
	// Gin framework configuration
	GinMode string
	GinPath string
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
}

// fileConfig mirrors the grouped layout of config/config.toml and config/config.json.
type fileConfig struct {
	App struct {
		AppPort                 string   `json:"AppPort" toml:"AppPort"`
		JWTSecret               string   `json:"JWTSecret" toml:"JWTSecret"`
		TokenTTLHours           int      `json:"TokenTTLHours" toml:"TokenTTLHours"`
		RateLimitPerMinute      int      `json:"RateLimitPerMinute" toml:"RateLimitPerMinute"`
		AllowedOrigins          []string `json:"AllowedOrigins" toml:"AllowedOrigins"`
		Timezone                string   `json:"Timezone" toml:"Timezone"`
		LeaderboardCacheSeconds int      `json:"LeaderboardCacheSeconds" toml:"LeaderboardCacheSeconds"`
		RegisterCooldownSeconds int      `json:"RegisterCooldownSeconds" toml:"RegisterCooldownSeconds"`
		RegisterMaxPerIPPerDay  int      `json:"RegisterMaxPerIPPerDay" toml:"RegisterMaxPerIPPerDay"`
	} `json:"app" toml:"app"`
	Database struct {
		Driver        string `json:"Driver" toml:"Driver"`
		DatabaseURI   string `json:"DatabaseURI" toml:"DatabaseURI"`
		DBHost        string `json:"DBHost" toml:"DBHost"`
		DBPort        string `json:"DBPort" toml:"DBPort"`
		DBUser        string `json:"DBUser" toml:"DBUser"`
		DBPassword    string `json:"DBPassword" toml:"DBPassword"`
		DBName        string `json:"DBName" toml:"DBName"`
		UpdateRetries int    `json:"UpdateRetries" toml:"UpdateRetries"`
	} `json:"database" toml:"database"`
	Redis struct {
		RedisHost     string `json:"RedisHost" toml:"RedisHost"`
		RedisPort     int    `json:"RedisPort" toml:"RedisPort"`
		RedisDB       int    `json:"RedisDB" toml:"RedisDB"`
		RedisPassword string `json:"RedisPassword" toml:"RedisPassword"`
	} `json:"redis" toml:"redis"`
	Realtime struct {
		Backplane bool   `json:"Backplane" toml:"Backplane"`
		Channel   string `json:"Channel" toml:"Channel"`
	} `json:"realtime" toml:"realtime"`
	Log struct {
		Level      string `json:"Level" toml:"Level"`
		Path       string `json:"Path" toml:"Path"`
		GinMode    string `json:"GinMode" toml:"GinMode"`
		GinPath    string `json:"GinPath" toml:"GinPath"`
		MaxSizeMB  int    `json:"MaxSizeMB" toml:"MaxSizeMB"`
		MaxBackups int    `json:"MaxBackups" toml:"MaxBackups"`
		MaxAgeDays int    `json:"MaxAgeDays" toml:"MaxAgeDays"`
		Compress   bool   `json:"Compress" toml:"Compress"`
	} `json:"log" toml:"log"`
}

var cfg AppConfig
var loaded bool

// Load loads the application configuration. It should be called once during boot.
func Load() AppConfig {
	return LoadFrom("")
}

// LoadFrom is Load with an explicit config file path. An empty path probes
// config/config.toml then config/config.json.
func LoadFrom(path string) AppConfig {
	if loaded {
		return cfg
	}

	// Precedence: config file -> defaults -> environment variable overrides
	var next AppConfig
	if err := loadConfigFile(resolvePath(path), &next); err != nil {
		log.Fatalf("invalid config file: %v", err)
	}
	applyDefaults(&next)
	applyEnvOverrides(&next)

	if next.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set in environment variables")
	}

	Use(next)
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

// Use replaces the cached configuration. Tests and CLI flag overrides go through here.
func Use(c AppConfig) {
	cfg = c
	loaded = true
}

// Defaults returns a configuration holding only the built-in defaults.
func Defaults() AppConfig {
	var c AppConfig
	applyDefaults(&c)
	return c
}

// IsDebug reports whether detailed errors may be exposed to clients.
func (c AppConfig) IsDebug() bool {
	return strings.EqualFold(c.GinMode, "debug")
}

// Location resolves Timezone, falling back to the process local zone when unknown.
func (c AppConfig) Location() *time.Location {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "Local") {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		log.Printf("unknown timezone %q, using local: %v", c.Timezone, err)
		return time.Local
	}
	return loc
}

func resolvePath(path string) string {
	if path != "" {
		return path
	}
	for _, candidate := range []string{
		filepath.Join("config", "config.toml"),
		filepath.Join("config", "config.json"),
	} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// loadConfigFile decodes path into out. Missing files are ignored; only invalid content is an error.
func loadConfigFile(path string, out *AppConfig) error {
	if path == "" {
		return nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil // silently ignore missing file
	}

	var fc fileConfig
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(string(raw), &fc); err != nil {
			return err
		}
	} else if err := json.Unmarshal(raw, &fc); err != nil {
		return err
	}

	out.AppPort = fc.App.AppPort
	out.JWTSecret = fc.App.JWTSecret
	out.TokenTTLHours = fc.App.TokenTTLHours
	out.RateLimitPerMinute = fc.App.RateLimitPerMinute
	out.AllowedOrigins = fc.App.AllowedOrigins
	out.Timezone = fc.App.Timezone
	out.LeaderboardCacheSeconds = fc.App.LeaderboardCacheSeconds
	out.RegisterCooldownSeconds = fc.App.RegisterCooldownSeconds
	out.RegisterMaxPerIPPerDay = fc.App.RegisterMaxPerIPPerDay

	out.DBDriver = fc.Database.Driver
	out.DatabaseURI = fc.Database.DatabaseURI
	out.DBHost = fc.Database.DBHost
	out.DBPort = fc.Database.DBPort
	out.DBUser = fc.Database.DBUser
	out.DBPassword = fc.Database.DBPassword
	out.DBName = fc.Database.DBName
	out.StoreUpdateRetries = fc.Database.UpdateRetries

	out.RedisHost = fc.Redis.RedisHost
	out.RedisPort = fc.Redis.RedisPort
	out.RedisDB = fc.Redis.RedisDB
	out.RedisPassword = fc.Redis.RedisPassword

	out.RealtimeBackplane = fc.Realtime.Backplane
	out.RealtimeChannel = fc.Realtime.Channel

	out.LogLevel = fc.Log.Level
	out.LogPath = fc.Log.Path
	out.GinMode = fc.Log.GinMode
	out.GinPath = fc.Log.GinPath
	out.LogMaxSizeMB = fc.Log.MaxSizeMB
	out.LogMaxBackups = fc.Log.MaxBackups
	out.LogMaxAgeDays = fc.Log.MaxAgeDays
	out.LogCompress = fc.Log.Compress
	return nil
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.TokenTTLHours == 0 {
		c.TokenTTLHours = 72
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/go_gin.log"
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 60
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.Timezone == "" {
		c.Timezone = "Local"
	}
	if c.LeaderboardCacheSeconds == 0 {
		c.LeaderboardCacheSeconds = 30
	}
	if c.RegisterCooldownSeconds == 0 {
		c.RegisterCooldownSeconds = 10
	}
	if c.RegisterMaxPerIPPerDay == 0 {
		c.RegisterMaxPerIPPerDay = 20
	}
	if c.DBDriver == "" {
		c.DBDriver = "mysql"
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		c.DBPort = "3306"
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "fitquest"
	}
	if c.StoreUpdateRetries == 0 {
		c.StoreUpdateRetries = 5
	}
	if c.RedisHost == "" {
		c.RedisHost = "127.0.0.1"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.RealtimeChannel == "" {
		c.RealtimeChannel = "fitquest:realtime"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) {
	if v := os.Getenv("APP_PORT"); v != "" {
		c.AppPort = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.JWTSecret = v
	}
	if v := os.Getenv("TOKEN_TTL_HOURS"); v != "" {
		c.TokenTTLHours = mustParseInt(v)
	}
	if v := os.Getenv("RATE_LIMIT_PER_MINUTE"); v != "" {
		c.RateLimitPerMinute = mustParseInt(v)
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		c.AllowedOrigins = splitAndTrim(v)
	}
	if v := os.Getenv("TIMEZONE"); v != "" {
		c.Timezone = v
	}
	if v := os.Getenv("LEADERBOARD_CACHE_SECONDS"); v != "" {
		c.LeaderboardCacheSeconds = mustParseInt(v)
	}
	if v := os.Getenv("REGISTER_COOLDOWN_SECONDS"); v != "" {
		c.RegisterCooldownSeconds = mustParseInt(v)
	}
	if v := os.Getenv("REGISTER_MAX_PER_IP_PER_DAY"); v != "" {
		c.RegisterMaxPerIPPerDay = mustParseInt(v)
	}
	if v := os.Getenv("DB_DRIVER"); v != "" {
		c.DBDriver = v
	}
	if v := os.Getenv("DATABASE_URI"); v != "" {
		c.DatabaseURI = v
	}
	if v := os.Getenv("DB_HOST"); v != "" {
		c.DBHost = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		c.DBPort = v
	}
	if v := os.Getenv("DB_USER"); v != "" {
		c.DBUser = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		c.DBPassword = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		c.DBName = v
	}
	if v := os.Getenv("STORE_UPDATE_RETRIES"); v != "" {
		c.StoreUpdateRetries = mustParseInt(v)
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.RedisHost = v
	}
	if v := os.Getenv("REDIS_PORT"); v != "" {
		c.RedisPort = mustParseInt(v)
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		c.RedisDB = mustParseInt(v)
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.RedisPassword = v
	}
	if v := os.Getenv("REALTIME_BACKPLANE"); v != "" {
		c.RealtimeBackplane = v == "true"
	}
	if v := os.Getenv("REALTIME_CHANNEL"); v != "" {
		c.RealtimeChannel = v
	}
	if v := os.Getenv("GIN_MODE"); v != "" {
		c.GinMode = v
	}
	if v := os.Getenv("GIN_PATH"); v != "" {
		c.GinPath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("LOG_PATH"); v != "" {
		c.LogPath = v
	}
	if v := os.Getenv("LOG_MAX_SIZE_MB"); v != "" {
		c.LogMaxSizeMB = mustParseInt(v)
	}
	if v := os.Getenv("LOG_MAX_BACKUPS"); v != "" {
		c.LogMaxBackups = mustParseInt(v)
	}
	if v := os.Getenv("LOG_MAX_AGE_DAYS"); v != "" {
		c.LogMaxAgeDays = mustParseInt(v)
	}
	if v := os.Getenv("LOG_COMPRESS"); v != "" {
		c.LogCompress = v == "true"
	}
}

func mustParseInt(val string) int {
	i, err := strconv.Atoi(val)
	if err != nil {
		log.Fatalf("invalid integer value %s: %v", val, err)
	}
	return i
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
