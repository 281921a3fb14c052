// Package config loads the application configuration from the environment
// and an optional .env file.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/viper"

	"github.com/sevigo/code-mentor/internal/logger"
)

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Port string
}

// DBConfig holds the Postgres connection settings.
type DBConfig struct {
	Host            string
	Port            int
	Username        string
	Password        string
	Database        string
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// Config holds the application's configuration values.
type Config struct {
	Server              ServerConfig
	Database            *DBConfig
	LoggerConfig        logger.Config
	LLMProvider         string
	GeminiAPIKey        string
	GeneratorModelName  string
	EmbedderModelName   string
	OllamaHost          string
	MaxWorkers          int
	ReportsDir          string
	KnowledgeCorpusPath string
	DisableRetrieval    bool
}

// LoadConfig reads configuration from environment variables and a .env file,
// sets sensible defaults, and validates required fields. It uses the Viper
// library to handle configuration loading and precedence.
func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "text")
	viper.SetDefault("LOG_OUTPUT", "stdout")
	viper.SetDefault("LLM_PROVIDER", "ollama")
	viper.SetDefault("OLLAMA_HOST", "http://localhost:11434")
	viper.SetDefault("GENERATOR_MODEL_NAME", "gemma3:latest")
	viper.SetDefault("EMBEDDER_MODEL_NAME", "nomic-embed-text")
	viper.SetDefault("MAX_WORKERS", 5)
	viper.SetDefault("REPORTS_DIR", "reports")
	viper.SetDefault("DISABLE_RETRIEVAL", false)
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", 5432)
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_NAME", "code_mentor")
	viper.SetDefault("DB_CONN_MAX_LIFETIME", "30m")
	viper.SetDefault("DB_CONN_MAX_IDLE_TIME", "5m")

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Debug("no .env file loaded", "error", err)
		}
	}

	provider := viper.GetString("LLM_PROVIDER")
	if provider != "gemini" && provider != "ollama" {
		return nil, fmt.Errorf("unsupported LLM_PROVIDER %q (expected 'gemini' or 'ollama')", provider)
	}

	// The Gemini provider cannot run without credentials; fail at startup
	// instead of on the first model call.
	if provider == "gemini" && viper.GetString("GEMINI_API_KEY") == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY must be set for the gemini provider")
	}

	generatorModel := viper.GetString("GENERATOR_MODEL_NAME")
	if provider == "gemini" {
		if geminiModel := viper.GetString("GEMINI_GENERATOR_MODEL_NAME"); geminiModel != "" {
			generatorModel = geminiModel
		} else {
			generatorModel = "gemini-2.5-flash"
		}
	}

	maxWorkers := viper.GetInt("MAX_WORKERS")
	if maxWorkers <= 0 {
		slog.Warn("MAX_WORKERS must be positive, defaulting to 5", "provided", maxWorkers)
		maxWorkers = 5
	}

	return &Config{
		Server: ServerConfig{
			Port: viper.GetString("SERVER_PORT"),
		},
		Database: &DBConfig{
			Host:            viper.GetString("DB_HOST"),
			Port:            viper.GetInt("DB_PORT"),
			Username:        viper.GetString("DB_USER"),
			Password:        viper.GetString("DB_PASSWORD"),
			Database:        viper.GetString("DB_NAME"),
			ConnMaxLifetime: viper.GetDuration("DB_CONN_MAX_LIFETIME"),
			ConnMaxIdleTime: viper.GetDuration("DB_CONN_MAX_IDLE_TIME"),
		},
		LoggerConfig: logger.Config{
			Level:  viper.GetString("LOG_LEVEL"),
			Format: viper.GetString("LOG_FORMAT"),
			Output: viper.GetString("LOG_OUTPUT"),
		},
		LLMProvider:         provider,
		GeminiAPIKey:        viper.GetString("GEMINI_API_KEY"),
		GeneratorModelName:  generatorModel,
		EmbedderModelName:   viper.GetString("EMBEDDER_MODEL_NAME"),
		OllamaHost:          viper.GetString("OLLAMA_HOST"),
		MaxWorkers:          maxWorkers,
		ReportsDir:          viper.GetString("REPORTS_DIR"),
		KnowledgeCorpusPath: viper.GetString("KNOWLEDGE_CORPUS_PATH"),
		DisableRetrieval:    viper.GetBool("DISABLE_RETRIEVAL"),
	}, nil
}
