package common

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/avs-dob-pipeline/constants"
)

// Config holds all application configuration. It is built once per process and
// handed to each stage by pointer.
type Config struct {
	Database DatabaseConfig
	Storage  StorageConfig
	Intake   IntakeConfig
	OCR      OCRConfig
	LLM      LLMConfig
	Runtime  RuntimeConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver      string // mysql | postgres | sqlite
	URL         string // full DSN, wins over the discrete fields
	Host        string
	Username    string
	Password    string
	Database    string
	MaxConns    int32
	DialTimeout time.Duration
}

// StorageConfig locates uploaded documents on disk.
type StorageConfig struct {
	AppURL        string // public prefix stored in avsdocs.doc_url
	AppRoot       string
	FileDirectory string
}

// BaseDir resolves FileDirectory against AppRoot.
func (s StorageConfig) BaseDir() string {
	if s.FileDirectory == "" || filepath.IsAbs(s.FileDirectory) {
		return s.FileDirectory
	}
	return filepath.Join(s.AppRoot, s.FileDirectory)
}

type IntakeConfig struct {
	Policy constants.IntakePolicy
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Engine        string // tesseract | gosseract
	Tesseract     string
	TesseractLang string
	TessdataDir   string
	HeicConverter string
	TempDir       string
}

// TesseractBin is the configured tesseract binary, defaulting to "tesseract".
func (c OCRConfig) TesseractBin() string {
	if c.Tesseract == "" {
		return "tesseract"
	}
	return c.Tesseract
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	APIKey          string
	BaseURL         string
	Model           string
	Timeout         time.Duration
	TokenCost       float64 // price per 1000 tokens
	BreakerFailures uint32
}

type RuntimeConfig struct {
	LogLevel       string
	PushgatewayURL string
	LockDir        string
}

// LoadEnvFile pre-loads KEY=VALUE pairs from path without overriding variables
// that are already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return NewAppError("CONFIG_ERROR", "load env file "+path, errors.Join(ErrConfig, err))
	}
	return nil
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:      getEnv("DB_DRIVER", "mysql"),
			URL:         getEnv("DB_URL", ""),
			Host:        getEnv("DB_HOST", ""),
			Username:    getEnv("DB_USERNAME", ""),
			Password:    getEnv("DB_PASSWORD", ""),
			Database:    getEnv("DB_DATABASE", ""),
			MaxConns:    getEnvAsInt32("DB_MAX_CONNS", 2),
			DialTimeout: getEnvAsDuration("DB_DIAL_TIMEOUT", 5*time.Second),
		},
		Storage: StorageConfig{
			AppURL:        getEnv("APP_URL", ""),
			AppRoot:       getEnv("APP_ROOT", "."),
			FileDirectory: getEnv("FILE_DIRECTORY", ""),
		},
		Intake: IntakeConfig{
			Policy: constants.IntakePolicy(getEnv("INTAKE_POLICY", string(constants.IntakeMostRecent))),
		},
		OCR: OCRConfig{
			Engine:        getEnv("OCR_ENGINE", "tesseract"),
			Tesseract:     getEnv("TESSERACT_BIN", "tesseract"),
			TesseractLang: getEnv("TESSERACT_LANG", "eng"),
			TessdataDir:   getEnv("TESSDATA_PREFIX", ""),
			HeicConverter: getEnv("HEIC_CONVERTER", "magick"),
			TempDir:       getEnv("OCR_TEMP_DIR", os.TempDir()),
		},
		LLM: LLMConfig{
			APIKey:          getEnv("OPENAI_API_KEY", ""),
			BaseURL:         getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Model:           getEnv("OPENAI_MODEL", "gpt-4o"),
			Timeout:         getEnvAsDuration("OPENAI_TIMEOUT", 60*time.Second),
			TokenCost:       getEnvAsFloat64("TOKEN_COST", 0.03),
			BreakerFailures: uint32(getEnvAsInt("LLM_BREAKER_FAILURES", 5)),
		},
		Runtime: RuntimeConfig{
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			PushgatewayURL: getEnv("PUSHGATEWAY_URL", ""),
			LockDir:        getEnv("LOCK_DIR", ""),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// ValidateDatabase checks the settings every stage needs.
func (c *Config) ValidateDatabase() error {
	v := NewValidator()
	v.Field("DB_DRIVER", c.Database.Driver, OneOf("mysql", "postgres", "sqlite"))
	if c.Database.URL == "" {
		v.Field("DB_DATABASE", c.Database.Database, Required)
		if c.Database.Driver != "sqlite" {
			v.Field("DB_HOST", c.Database.Host, Required)
			v.Field("DB_USERNAME", c.Database.Username, Required)
		}
	}
	return v.Err()
}

// ValidateIntake checks the intake stage preconditions.
func (c *Config) ValidateIntake() error {
	if err := c.ValidateDatabase(); err != nil {
		return err
	}
	v := NewValidator()
	v.Field("APP_URL", c.Storage.AppURL, Required)
	v.Field("FILE_DIRECTORY", c.Storage.FileDirectory, Required)
	v.Field("INTAKE_POLICY", string(c.Intake.Policy), OneOf(string(constants.IntakeMostRecent), string(constants.IntakeAll)))
	return v.Err()
}

// ValidateOCR checks the OCR stage preconditions.
func (c *Config) ValidateOCR() error {
	if err := c.ValidateDatabase(); err != nil {
		return err
	}
	v := NewValidator()
	v.Field("OCR_ENGINE", c.OCR.Engine, OneOf("tesseract", "gosseract"))
	if c.OCR.Engine == "tesseract" {
		v.Field("TESSERACT_BIN", c.OCR.TesseractBin(), OnPath)
	}
	return v.Err()
}

// ValidateDOB checks the DOB stage preconditions.
func (c *Config) ValidateDOB() error {
	if err := c.ValidateDatabase(); err != nil {
		return err
	}
	v := NewValidator()
	v.Field("OPENAI_API_KEY", c.LLM.APIKey, Secret(Required))
	v.Field("OPENAI_MODEL", c.LLM.Model, Required)
	v.Field("TOKEN_COST", c.LLM.TokenCost, NonNegative)
	return v.Err()
}
