package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"Server"`
	Database DatabaseConfig `mapstructure:"Database"`
	Auth     AuthConfig     `mapstructure:"Auth"`
	Storage  StorageConfig  `mapstructure:"Storage"`
}

type ServerConfig struct {
	Port string `mapstructure:"Port"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"Host"`
	Port     string `mapstructure:"Port"`
	User     string `mapstructure:"User"`
	Password string `mapstructure:"Password"`
	Name     string `mapstructure:"Name"`
	SSLMode  string `mapstructure:"SSLMode"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"JWTSecret"`
}

// StorageConfig выбирает бэкенд для содержимого файлов: s3 (по умолчанию)
// или disk для локальной разработки.
type StorageConfig struct {
	Backend   string `mapstructure:"Backend"`
	LocalPath string `mapstructure:"LocalPath"`
}

func NewConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)

	// Привязываем переменные окружения
	v.BindEnv("Database.Host", "DATABASE_HOST")
	v.BindEnv("Database.Port", "DATABASE_PORT")
	v.BindEnv("Database.User", "DATABASE_USER")
	v.BindEnv("Database.Password", "DATABASE_PASSWORD")
	v.BindEnv("Database.Name", "DATABASE_NAME")
	v.BindEnv("Database.SSLMode", "DATABASE_SSLMODE")
	v.BindEnv("Server.Port", "HTTP_PORT")
	v.BindEnv("Auth.JWTSecret", "JWT_SECRET")
	v.BindEnv("Storage.Backend", "STORAGE_BACKEND")
	v.BindEnv("Storage.LocalPath", "STORAGE_LOCAL_PATH")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("Warning: using only environment variables: %v\n", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Database.Host == "" ||
		cfg.Database.Port == "" ||
		cfg.Database.User == "" ||
		cfg.Database.Password == "" ||
		cfg.Database.Name == "" {
		return nil, fmt.Errorf("database configuration is incomplete: host=%s, port=%s, user=%s, name=%s",
			cfg.Database.Host, cfg.Database.Port, cfg.Database.User, cfg.Database.Name)
	}

	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("auth configuration is incomplete: JWT secret is required")
	}

	// Значения по умолчанию
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Server.Port == "" {
		cfg.Server.Port = "2525"
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "s3"
	}
	if cfg.Storage.Backend == "disk" && cfg.Storage.LocalPath == "" {
		cfg.Storage.LocalPath = "/tmp/vaultdrive"
	}

	return &cfg, nil
}

func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Name,
		c.SSLMode,
	)
}
