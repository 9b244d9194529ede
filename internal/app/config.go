package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Hammadwakeel/R-S-RAG-backend/internal/platform/envutil"
	"github.com/Hammadwakeel/R-S-RAG-backend/internal/platform/logger"
)

type Config struct {
	Env         string
	ServiceName string

	HTTPAddr    string
	MetricsAddr string

	JWTSecretKey    string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// GenerationModel overrides the generator client's default model.
	GenerationModel string

	// SummaryModel, when set, runs compaction and context distillation on a
	// separate (typically faster) model.
	SummaryModel string

	RedisAddr string
}

// fileConfig is the optional CONFIG_FILE overlay. Environment variables fill
// the config first; any field present in the file wins.
type fileConfig struct {
	Env             *string `yaml:"env"`
	ServiceName     *string `yaml:"service_name"`
	HTTPAddr        *string `yaml:"http_addr"`
	MetricsAddr     *string `yaml:"metrics_addr"`
	JWTSecretKey    *string `yaml:"jwt_secret_key"`
	AccessTokenTTL  *int    `yaml:"access_token_ttl_seconds"`
	RefreshTokenTTL *int    `yaml:"refresh_token_ttl_seconds"`
	GenerationModel *string `yaml:"generation_model"`
	SummaryModel    *string `yaml:"summary_model"`
	RedisAddr       *string `yaml:"redis_addr"`
}

func LoadConfig(log *logger.Logger) (Config, error) {
	cfg := Config{
		Env:             envutil.String("APP_ENV", "development"),
		ServiceName:     envutil.String("SERVICE_NAME", "rag-chat-backend"),
		HTTPAddr:        envutil.String("HTTP_ADDR", ":8080"),
		MetricsAddr:     envutil.String("METRICS_ADDR", ""),
		JWTSecretKey:    envutil.String("JWT_SECRET_KEY", ""),
		AccessTokenTTL:  envutil.Seconds("ACCESS_TOKEN_TTL", time.Hour),
		RefreshTokenTTL: envutil.Seconds("REFRESH_TOKEN_TTL", 24*time.Hour),
		GenerationModel: envutil.String("GENERATION_MODEL", ""),
		SummaryModel:    envutil.String("SUMMARY_MODEL", ""),
		RedisAddr:       envutil.String("REDIS_ADDR", ""),
	}

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
		var fc fileConfig
		if err := yaml.Unmarshal(raw, &fc); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
		cfg.applyFile(fc)
		log.Info("config file applied", "path", path)
	}

	if cfg.JWTSecretKey == "" {
		cfg.JWTSecretKey = "defaultsecret"
		log.Warn("JWT_SECRET_KEY not set, using insecure default")
	}
	return cfg, nil
}

func (c *Config) applyFile(fc fileConfig) {
	if fc.Env != nil {
		c.Env = *fc.Env
	}
	if fc.ServiceName != nil {
		c.ServiceName = *fc.ServiceName
	}
	if fc.HTTPAddr != nil {
		c.HTTPAddr = *fc.HTTPAddr
	}
	if fc.MetricsAddr != nil {
		c.MetricsAddr = *fc.MetricsAddr
	}
	if fc.JWTSecretKey != nil {
		c.JWTSecretKey = *fc.JWTSecretKey
	}
	if fc.AccessTokenTTL != nil {
		c.AccessTokenTTL = time.Duration(*fc.AccessTokenTTL) * time.Second
	}
	if fc.RefreshTokenTTL != nil {
		c.RefreshTokenTTL = time.Duration(*fc.RefreshTokenTTL) * time.Second
	}
	if fc.GenerationModel != nil {
		c.GenerationModel = *fc.GenerationModel
	}
	if fc.SummaryModel != nil {
		c.SummaryModel = *fc.SummaryModel
	}
	if fc.RedisAddr != nil {
		c.RedisAddr = *fc.RedisAddr
	}
}
