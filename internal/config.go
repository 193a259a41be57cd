package internal

import (
	"fmt"

	"github.com/spf13/viper"
)

type HeapdbConfig struct {
	AppName string `mapstructure:"app_name"`

	Storage struct {
		Workdir  string `mapstructure:"workdir"`
		SlotSize int    `mapstructure:"slot_size"`
	} `mapstructure:"storage"`

	Pool struct {
		Capacity int    `mapstructure:"capacity"`
		Policy   string `mapstructure:"policy"` // "fifo" or "lru"
	} `mapstructure:"pool"`

	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
}

func LoadConfig(path string) (*HeapdbConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("pool.capacity", 128)
	v.SetDefault("pool.policy", "lru")
	v.SetDefault("log.level", "info")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg HeapdbConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}
