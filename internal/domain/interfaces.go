package domain

import (
	"context"
)

// Scorer turns an answer vector into a result record
type Scorer interface {
	ComputeResult(answers AnswerVector) *ResultRecord
	InterpretFactor(factorName string, average float64) Interpretation
}

// ResultCache keeps recently computed results for re-display
type ResultCache interface {
	Get(ctx context.Context, token string) (*ResultRecord, bool, error)
	Set(ctx context.Context, token string, result *ResultRecord) error
	Delete(ctx context.Context, token string) error
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetDatabaseConfig() *DatabaseConfig
	GetServerConfig() *ServerConfig
	Reload() error
	Validate() error
	GetDatabaseConnectionString() string
	GetDatabaseURL() string
	GetRedisConnectionString() string
	IsProduction() bool
	IsDevelopment() bool
}
