package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL  string
	Port         string
	IsProduction bool

	JWTSecret         string
	JWTExpiryDuration time.Duration
	JWTIssuer         string

	// Rate limiting for the calculation and login endpoints, in
	// ulule/limiter format (e.g. "100-M" for 100 per minute).
	RateLimit string

	// Engine parameters.
	EngineVersion         string
	SpecialProgramChapter string
	HistoricalCutoff      time.Time
	EUCountries           []string
	ReciprocalPrefix      string

	// Knowledge base endpoint; empty KnowledgeBaseURL disables the lookup.
	KnowledgeBaseURL          string
	KnowledgeBaseTokenURL     string
	KnowledgeBaseClientID     string
	KnowledgeBaseClientSecret string

	PosthogAPIKey string
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("JWT_SECRET", "a-very-secret-key-should-be-longer-and-random")
	viper.SetDefault("JWT_EXPIRY_DURATION", "1h")
	viper.SetDefault("JWT_ISSUER", "duty-engine")
	viper.SetDefault("RATE_LIMIT", "100-M")
	viper.SetDefault("ENGINE_VERSION", "1.0.0")
	viper.SetDefault("SPECIAL_PROGRAM_CHAPTER", "99")
	viper.SetDefault("HISTORICAL_CUTOFF", "2025-01-01")
	viper.SetDefault("EU_COUNTRIES", "")
	viper.SetDefault("RECIPROCAL_PREFIX", "RECIP_")
	viper.SetDefault("KNOWLEDGE_BASE_URL", "")
	viper.SetDefault("KNOWLEDGE_BASE_TOKEN_URL", "")
	viper.SetDefault("KNOWLEDGE_BASE_CLIENT_ID", "")
	viper.SetDefault("KNOWLEDGE_BASE_CLIENT_SECRET", "")
	viper.SetDefault("POSTHOG_API_KEY", "")

	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}

	cfg.Port = viper.GetString("PORT")
	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")

	cfg.JWTSecret = viper.GetString("JWT_SECRET")
	if cfg.JWTSecret == "a-very-secret-key-should-be-longer-and-random" {
		log.Println("Warning: JWT_SECRET environment variable not set. Using default insecure key.")
	}

	jwtExpiryStr := viper.GetString("JWT_EXPIRY_DURATION")
	jwtExpiryDuration, err := time.ParseDuration(jwtExpiryStr)
	if err != nil {
		jwtExpiryDuration = time.Hour
		log.Printf("Warning: Invalid value for JWT_EXPIRY_DURATION ('%s'). Defaulting to %s.\n", jwtExpiryStr, jwtExpiryDuration.String())
	}
	cfg.JWTExpiryDuration = jwtExpiryDuration
	cfg.JWTIssuer = viper.GetString("JWT_ISSUER")

	cfg.RateLimit = viper.GetString("RATE_LIMIT")
	cfg.EngineVersion = viper.GetString("ENGINE_VERSION")
	cfg.SpecialProgramChapter = viper.GetString("SPECIAL_PROGRAM_CHAPTER")
	cfg.ReciprocalPrefix = viper.GetString("RECIPROCAL_PREFIX")

	cutoffStr := viper.GetString("HISTORICAL_CUTOFF")
	cutoff, err := time.Parse("2006-01-02", cutoffStr)
	if err != nil {
		cutoff = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		log.Printf("Warning: Invalid value for HISTORICAL_CUTOFF ('%s'). Defaulting to %s.\n", cutoffStr, cutoff.Format("2006-01-02"))
	}
	cfg.HistoricalCutoff = cutoff

	if euStr := viper.GetString("EU_COUNTRIES"); euStr != "" {
		for _, c := range strings.Split(euStr, ",") {
			if c = strings.TrimSpace(c); c != "" {
				cfg.EUCountries = append(cfg.EUCountries, c)
			}
		}
	}

	cfg.KnowledgeBaseURL = viper.GetString("KNOWLEDGE_BASE_URL")
	cfg.KnowledgeBaseTokenURL = viper.GetString("KNOWLEDGE_BASE_TOKEN_URL")
	cfg.KnowledgeBaseClientID = viper.GetString("KNOWLEDGE_BASE_CLIENT_ID")
	cfg.KnowledgeBaseClientSecret = viper.GetString("KNOWLEDGE_BASE_CLIENT_SECRET")
	if cfg.KnowledgeBaseURL == "" {
		log.Println("Warning: KNOWLEDGE_BASE_URL not set. Note references will not be resolved.")
	}

	cfg.PosthogAPIKey = viper.GetString("POSTHOG_API_KEY")

	return cfg, nil
}
