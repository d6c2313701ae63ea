package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config represents the entire application configuration
type Config struct {
	Env     string         `json:"env"`
	Port    int            `json:"port"`
	AppName string         `json:"app_name"`
	MongoDB MongoDBConfig  `json:"mongodb"`
	Redis   RedisConfig    `json:"redis"`
	Rabbit  RabbitMQConfig `json:"rabbitmq"`
	AWS     AWSConfig      `json:"aws"`
	Imports ImportsConfig  `json:"imports"`
	Logging LoggingConfig  `json:"logging"`
	CORS    CORSConfig     `json:"cors"`
}

// MongoDBConfig contains MongoDB connection details
type MongoDBConfig struct {
	URI      string                 `json:"uri"`
	Username string                 `json:"username"`
	Password string                 `json:"password"`
	DB       string                 `json:"db"`
	Options  map[string]interface{} `json:"options"`
}

type RedisConfig struct {
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	Prefix   string `json:"prefix"`
}

// RabbitMQConfig contains the broker connection and topology settings
type RabbitMQConfig struct {
	Host          string `json:"host"`
	Port          int    `json:"port"`
	Username      string `json:"username"`
	Password      string `json:"password"`
	VHost         string `json:"vhost"`
	ExchangeName  string `json:"exchange_name"`
	QueueName     string `json:"queue_name"`
	RoutingKey    string `json:"routing_key"`
	PrefetchCount int    `json:"prefetch_count"`
}

// AWSConfig contains the S3 bucket that holds uploaded spreadsheets
type AWSConfig struct {
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
	Bucket    string `json:"bucket"`
	Region    string `json:"region"`
}

// ImportsConfig contains tuning for the catalog import worker
type ImportsConfig struct {
	BatchSize      int    `json:"batch_size"`
	MaxFileSizeMB  int    `json:"max_file_size_mb"`
	TemplateKey    string `json:"template_key"`
	ResultCacheTTL int    `json:"result_cache_ttl_seconds"`
}

// LoggingConfig contains logging-related configurations
type LoggingConfig struct {
	Level     string `json:"level"`
	Format    string `json:"format"`
	Directory string `json:"directory"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings
type CORSConfig struct {
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers"`
	AllowCredentials bool     `json:"allow_credentials"`
	MaxAge           int      `json:"max_age,omitempty"` // Optional, seconds that preflight requests can be cached
}

// LoadConfig reads configuration from the specified file path
func LoadConfig(filePath string) (*Config, error) {
	configData, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(configData, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if config.Imports.BatchSize <= 0 {
		config.Imports.BatchSize = 25
	}
	if config.Imports.MaxFileSizeMB <= 0 {
		config.Imports.MaxFileSizeMB = 10
	}

	return &config, nil
}
