package config

import (
	"flag"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	// Server-side settings
	DatabaseDSN string `env:"DATABASE_URI" toml:"database_uri"`
	AuthSecret  string `env:"AUTH_SECRET" toml:"auth_secret"`

	// Пароль администратора: либо bcrypt-хеш, либо открытый текст (хешируется при старте).
	AdminPassword     string        `env:"ADMIN_PASSWORD" toml:"admin_password"`
	AdminPasswordHash string        `env:"ADMIN_PASSWORD_HASH" toml:"admin_password_hash"`
	TokenTTL          time.Duration `env:"TOKEN_TTL" toml:"token_ttl"`

	PublicURL   string   `env:"PUBLIC_URL" toml:"public_url"`
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," toml:"cors_origins"`
	LogFormat   string   `env:"LOG_FORMAT" toml:"log_format"`

	// Хранилище PDF: db | fs | s3 | memory
	BlobBackend   string `env:"BLOB_BACKEND" toml:"blob_backend"`
	BlobDir       string `env:"BLOB_DIR" toml:"blob_dir"`
	BlobMaxSizeMB int    `env:"BLOB_MAX_MB" toml:"blob_max_mb"`

	S3Bucket    string `env:"S3_BUCKET" toml:"s3_bucket"`
	S3Region    string `env:"S3_REGION" toml:"s3_region"`
	S3Endpoint  string `env:"S3_ENDPOINT" toml:"s3_endpoint"`
	S3AccessKey string `env:"S3_ACCESS_KEY" toml:"s3_access_key"`
	S3SecretKey string `env:"S3_SECRET_KEY" toml:"s3_secret_key"`
	S3Prefix    string `env:"S3_PREFIX" toml:"s3_prefix"`
	S3PathStyle bool   `env:"S3_PATH_STYLE" toml:"s3_path_style"`

	// Каталог
	Categories      []string `env:"CATEGORIES" envSeparator:"," toml:"categories"`
	SlugPolicy      string   `env:"SLUG_POLICY" toml:"slug_policy"`
	SlugMaxAttempts int      `env:"SLUG_MAX_ATTEMPTS" toml:"slug_max_attempts"`

	// Очистка осиротевших блобов; 0 — выключено
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" toml:"sweep_interval"`
	SweepGrace    time.Duration `env:"SWEEP_GRACE" toml:"sweep_grace"`

	// Shared settings
	BaseURL     string `env:"BASE_URL" toml:"base_url"`
	EnableHTTPS bool   `env:"ENABLE_HTTPS" toml:"enable_https"`
	ConfigFile  string `env:"CONFIG_FILE" toml:"-"`

	// Client-side settings
	ServerURL string `env:"-" toml:"-"`
	TokenFile string `env:"TOKEN_FILE" toml:"token_file"`
	Version   bool   `env:"-" toml:"-"` // show client version and exit (flag only)
}

const (
	defaultTokenTTL      = 24 * time.Hour
	defaultSweepInterval = time.Hour
	defaultSweepGrace    = 15 * time.Minute
)

func NewConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{SweepInterval: -1}

	// TOML-файл — самый нижний слой, env и флаги его перекрывают
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		cfg.ConfigFile = path
		_, _ = toml.DecodeFile(path, cfg)
	}
	_ = env.Parse(cfg)

	// Server flags
	flag.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "строка подключения к БД (postgres DSN или путь к SQLite)")
	flag.StringVar(&cfg.AuthSecret, "auth-secret", cfg.AuthSecret, "секрет для подписи JWT")
	flag.StringVar(&cfg.BlobBackend, "blob-backend", cfg.BlobBackend, "хранилище PDF: db, fs, s3, memory")
	flag.StringVar(&cfg.BlobDir, "blob-dir", cfg.BlobDir, "каталог для BLOB_BACKEND=fs")
	flag.IntVar(&cfg.BlobMaxSizeMB, "blob-max-mb", cfg.BlobMaxSizeMB, "максимальный размер PDF в МБ")
	flag.StringVar(&cfg.SlugPolicy, "slug-policy", cfg.SlugPolicy, "slug при переименовании: frozen или regenerate")
	// Shared/client flags
	flag.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "address of the StudyVault server (host:port)")
	flag.BoolVar(&cfg.EnableHTTPS, "https", cfg.EnableHTTPS, "enable HTTPS (client: prefer https scheme for BaseURL)")
	// Client flags
	flag.StringVar(&cfg.TokenFile, "token-file", cfg.TokenFile, "path to auth token file (client)")
	flag.BoolVar(&cfg.Version, "version", cfg.Version, "Show client version and exit")

	flag.Parse()

	cfg.applyDefaults()
	return cfg
}

// DevAuthSecret — секрет JWT по умолчанию; годится только для локальной разработки.
const DevAuthSecret = "dev-secret-key"

// Пароль администратора по умолчанию не задаётся: без ADMIN_PASSWORD(_HASH) сервер не стартует.
func (cfg *Config) applyDefaults() {
	if cfg.AuthSecret == "" {
		cfg.AuthSecret = DevAuthSecret
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = defaultTokenTTL
	}
	if cfg.DatabaseDSN == "" {
		cfg.DatabaseDSN = "studyvault.db"
	}
	if cfg.BlobMaxSizeMB <= 0 {
		cfg.BlobMaxSizeMB = 50
	}
	cfg.BlobBackend = strings.ToLower(strings.TrimSpace(cfg.BlobBackend))
	if cfg.BlobBackend == "" {
		cfg.BlobBackend = "fs"
	}
	if cfg.BlobDir == "" {
		cfg.BlobDir = "blobs"
	}
	if cfg.SlugPolicy != "regenerate" {
		cfg.SlugPolicy = "frozen"
	}
	if cfg.SlugMaxAttempts <= 0 {
		cfg.SlugMaxAttempts = 10
	}
	if cfg.SweepInterval < 0 {
		cfg.SweepInterval = defaultSweepInterval
	}
	if cfg.SweepGrace <= 0 {
		cfg.SweepGrace = defaultSweepGrace
	}
	cfg.Categories = trimList(cfg.Categories)
	cfg.CORSOrigins = trimList(cfg.CORSOrigins)
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}

	// validate BaseURL: must be in "address:port" (no scheme, no path). Otherwise use default.
	hostPortRe := regexp.MustCompile(`^[A-Za-z0-9\.\-]+:\d{1,5}$`)
	if !hostPortRe.MatchString(cfg.BaseURL) {
		cfg.BaseURL = "localhost:8081"
	}

	if cfg.EnableHTTPS {
		cfg.ServerURL = "https://" + cfg.BaseURL
	} else {
		cfg.ServerURL = "http://" + cfg.BaseURL
	}
	if cfg.PublicURL == "" {
		cfg.PublicURL = cfg.ServerURL
	}
	cfg.PublicURL = strings.TrimRight(cfg.PublicURL, "/")

	if cfg.TokenFile == "" {
		if dir, err := os.UserConfigDir(); err == nil {
			cfg.TokenFile = filepath.Join(dir, "StudyVault", "auth_token")
		}
	}
}

// UsesDevSecret сообщает, что токены подписываются общеизвестным ключом.
func (cfg *Config) UsesDevSecret() bool {
	return cfg.AuthSecret == DevAuthSecret
}

// BlobMaxBytes — лимит размера PDF в байтах.
func (cfg *Config) BlobMaxBytes() int64 {
	return int64(cfg.BlobMaxSizeMB) * 1024 * 1024
}

func trimList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
