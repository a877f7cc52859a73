package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/Annany2002/nebula-uploads/internal/logger"
)

var (
	customLog = logger.NewLogger()
)

// DefaultNANames mirrors the tokens pandas treats as missing values.
var DefaultNANames = []string{
	"", "#N/A", "#N/A N/A", "#NA", "-1.#IND", "-1.#QNAN", "-NaN", "-nan",
	"1.#IND", "1.#QNAN", "<NA>", "N/A", "NA", "NULL", "NaN", "n/a", "nan", "null",
}

// UploadConfig holds the limits applied to file upload forms.
type UploadConfig struct {
	AllowedExtensions  []string `validate:"required,min=1,dive,required"`
	CSVExtensions      []string `validate:"required,min=1,dive,required"`
	ExcelExtensions    []string `validate:"required,min=1,dive,required"`
	ColumnarExtensions []string `validate:"required,min=1,dive,required"`
	CSVMaxSizeBytes    int64    `validate:"gt=0"`
	CSVMinRows         int      `validate:"min=0"`
	CSVMaxRows         int      `validate:"gtefield=CSVMinRows"`
	CSVDefaultNANames  []string
}

// Config holds application configuration values
type Config struct {
	ServerPort         string
	JWTSecret          string
	JWTExpiration      time.Duration
	MetadataDbDir      string
	MetadataDbFile     string
	CORSAllowedOrigins []string
	AdminEmail         string
	RateLimitRequests  int
	RateLimitWindow    time.Duration
	Upload             UploadConfig
}

// DefaultUploadConfig returns the upload limits used when the environment does not override them.
func DefaultUploadConfig() UploadConfig {
	return UploadConfig{
		AllowedExtensions:  []string{"csv", "tsv", "txt", "xls", "xlsx", "parquet", "zip"},
		CSVExtensions:      []string{"csv", "tsv", "txt"},
		ExcelExtensions:    []string{"xls", "xlsx"},
		ColumnarExtensions: []string{"parquet", "zip"},
		CSVMaxSizeBytes:    100 * 1024 * 1024,
		CSVMinRows:         1,
		CSVMaxRows:         10_000_000,
		CSVDefaultNANames:  append([]string(nil), DefaultNANames...),
	}
}

// LoadConfig loads configuration from environment variables.
// It uses a .env file for local development if present (ignores it for production).
func LoadConfig() (*Config, error) {
	customLog.Println("Loading configuration from environment variables...")

	if os.Getenv("APP_ENV") != "production" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			customLog.Warnf("Warning: Error loading .env file: %v", err)
		}
	}

	port := getEnv("SERVER_PORT", "8080")
	jwtSecret := getEnv("JWT_SECRET", "")
	jwtExpHoursStr := getEnv("JWT_EXPIRATION_HOURS", "24")
	dbDir := getEnv("DATABASE_DIRECTORY", "data")
	dbFile := getEnv("DATABASE_DIRECTORY_FILE", "metadata.db")
	origins := splitList(getEnv("CORS_ALLOWED_ORIGINS", "*"))

	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET environment variable must be set")
	}

	jwtExpHours, err := strconv.Atoi(jwtExpHoursStr)
	if err != nil || jwtExpHours <= 0 {
		customLog.Warnf("Invalid JWT_EXPIRATION_HOURS '%s'. Using default 24h. Error: %v", jwtExpHoursStr, err)
		jwtExpHours = 24
	}

	upload, err := loadUploadConfig()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ServerPort:         port,
		JWTSecret:          jwtSecret,
		JWTExpiration:      time.Hour * time.Duration(jwtExpHours),
		MetadataDbDir:      dbDir,
		MetadataDbFile:     dbFile,
		CORSAllowedOrigins: origins,
		AdminEmail:         strings.TrimSpace(os.Getenv("ADMIN_EMAIL")),
		RateLimitRequests:  getEnvInt("RATE_LIMIT_REQUESTS", 30),
		RateLimitWindow:    time.Duration(getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second,
		Upload:             upload,
	}

	customLog.Printf("Configuration loaded successfully. Port: %s, JWT Exp: %v, CSV rows: [%d, %d]",
		cfg.ServerPort, cfg.JWTExpiration, cfg.Upload.CSVMinRows, cfg.Upload.CSVMaxRows)
	return cfg, nil
}

func loadUploadConfig() (UploadConfig, error) {
	up := DefaultUploadConfig()
	d := DefaultUploadConfig()

	up.AllowedExtensions = splitList(getEnv("ALLOWED_EXTENSIONS", strings.Join(d.AllowedExtensions, ",")))
	up.CSVExtensions = splitList(getEnv("CSV_EXTENSIONS", strings.Join(d.CSVExtensions, ",")))
	up.ExcelExtensions = splitList(getEnv("EXCEL_EXTENSIONS", strings.Join(d.ExcelExtensions, ",")))
	up.ColumnarExtensions = splitList(getEnv("COLUMNAR_EXTENSIONS", strings.Join(d.ColumnarExtensions, ",")))
	up.CSVMaxSizeBytes = int64(getEnvInt("CSV_MAX_SIZE_BYTES", int(d.CSVMaxSizeBytes)))
	up.CSVMinRows = getEnvInt("CSV_MIN_ROWS", d.CSVMinRows)
	up.CSVMaxRows = getEnvInt("CSV_MAX_ROWS", d.CSVMaxRows)

	if raw, ok := os.LookupEnv("CSV_DEFAULT_NA_NAMES"); ok && strings.TrimSpace(raw) != "" {
		var names []string
		if err := json.Unmarshal([]byte(raw), &names); err != nil {
			return up, fmt.Errorf("CSV_DEFAULT_NA_NAMES must be a JSON array of strings: %w", err)
		}
		up.CSVDefaultNANames = names
	}

	if err := up.Validate(); err != nil {
		return up, err
	}
	return up, nil
}

// Validate checks the upload limits for internal consistency.
func (u UploadConfig) Validate() error {
	if err := validator.New().Struct(u); err != nil {
		return fmt.Errorf("invalid upload configuration: %w", err)
	}
	return nil
}

// getEnv reads an environment variable or returns a default value.
// A missing variable without a fallback is fatal.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	if fallback == "" {
		customLog.Fatalf("Critical environment variable '%s' is missing and has no fallback.", key)
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	raw, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		customLog.Warnf("Invalid %s '%s'. Using default %d. Error: %v", key, raw, fallback, err)
		return fallback
	}
	return n
}

// splitList returns the trimmed, non-empty parts of a comma separated value.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
