package blob

import (
	"fmt"

	"github.com/spf13/viper"
)

type S3Config struct {
	Endpoint        string `mapstructure:"Endpoint"`
	Region          string `mapstructure:"Region"`
	AccessKeyID     string `mapstructure:"AccessKeyID"`
	SecretAccessKey string `mapstructure:"SecretAccessKey"`
	Bucket          string `mapstructure:"Bucket"`
}

func NewS3Config(path string) (*S3Config, error) {
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("cannot read config from %s: %w", path, err)
	}

	var cfg S3Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("cannot unmarshal config: %w", err)
	}

	if cfg.AccessKeyID == "" {
		return nil, fmt.Errorf("AccessKeyID is required")
	}
	if cfg.SecretAccessKey == "" {
		return nil, fmt.Errorf("SecretAccessKey is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("Bucket is required")
	}

	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://storage.yandexcloud.net"
	}
	if cfg.Region == "" {
		cfg.Region = "ru-central1"
	}

	return &cfg, nil
}
