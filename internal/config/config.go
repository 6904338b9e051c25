package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	DBUrl string `mapstructure:"DB_URL"`
	Port  string `mapstructure:"PORT"`

	// Kafka
	KafkaBrokers         string `mapstructure:"KAFKA_BOOTSTRAP_SERVERS"`
	KafkaGroupID         string `mapstructure:"GROUP_ID"`
	SongPlayedTopic      string `mapstructure:"TOPIC_SONG_PLAYED_NAME"`
	KafkaConnectAttempts int    `mapstructure:"KAFKA_CONNECT_ATTEMPTS"`
	KafkaConnectDelaySec int    `mapstructure:"KAFKA_CONNECT_DELAY_SEC"`

	// External services
	ProfileServiceURL string `mapstructure:"PROFILE_SERVICE_URL"`
	CatalogServiceURL string `mapstructure:"CATALOG_SERVICE_URL"`

	// Redis (optional play-event dedupe)
	RedisAddr       string `mapstructure:"REDIS_ADDR"`
	DedupeWindowSec int    `mapstructure:"DEDUPE_WINDOW_SEC"`

	// MinIO (optional dead-letter sink)
	MinIOEndpoint  string `mapstructure:"MINIO_ENDPOINT"`
	MinIOAccessKey string `mapstructure:"MINIO_ACCESS_KEY"`
	MinIOSecretKey string `mapstructure:"MINIO_SECRET_KEY"`
	MinIOBucket    string `mapstructure:"MINIO_BUCKET"`

	MigrationsPath string `mapstructure:"MIGRATIONS_PATH"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()
	viper.AutomaticEnv()

	var c Config
	if err := viper.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := c.validate(); err != nil {
		return nil, err
	}

	return &c, nil
}

func (c *Config) GetKafkaBrokers() []string {
	return strings.Split(c.KafkaBrokers, ",")
}

func (c *Config) validate() error {
	if c.DBUrl == "" {
		return fmt.Errorf("DB_URL is required")
	}
	if c.KafkaBrokers == "" {
		c.KafkaBrokers = "kafka:9092"
	}
	if c.SongPlayedTopic == "" {
		c.SongPlayedTopic = "song-played-topic"
	}
	if c.KafkaGroupID == "" {
		c.KafkaGroupID = "song-played-group"
	}
	if c.KafkaConnectAttempts <= 0 {
		c.KafkaConnectAttempts = 10
	}
	if c.KafkaConnectDelaySec <= 0 {
		c.KafkaConnectDelaySec = 5
	}
	if c.ProfileServiceURL == "" {
		c.ProfileServiceURL = "http://apigateway:8080"
	}
	if c.CatalogServiceURL == "" {
		c.CatalogServiceURL = "http://apigateway:8080"
	}
	if c.DedupeWindowSec <= 0 {
		c.DedupeWindowSec = 86400
	}
	if c.MinIOBucket == "" {
		c.MinIOBucket = "dead-letter-events"
	}
	if c.MigrationsPath == "" {
		c.MigrationsPath = "file://internal/db/migrations"
	}

	return nil
}
