package internal

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type NovaCacheConfig struct {
	AppName string `mapstructure:"app_name"`

	Cache struct {
		Capacity        int  `mapstructure:"capacity"`
		CheckInvariants bool `mapstructure:"check_invariants"`
	} `mapstructure:"cache"`

	Device struct {
		Workdir           string `mapstructure:"workdir"`
		Base              string `mapstructure:"base"`
		Sectors           uint32 `mapstructure:"sectors"`
		SectorsPerSegment int    `mapstructure:"sectors_per_segment"`
		IOLimit           int    `mapstructure:"io_limit"` // sector ops/sec, 0 = unlimited
	} `mapstructure:"device"`

	Log LogConfig `mapstructure:"log"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug|info|warn|error
	Format string `mapstructure:"format"` // text|json
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_name", "novacache")
	v.SetDefault("cache.capacity", 64)
	v.SetDefault("cache.check_invariants", false)
	v.SetDefault("device.workdir", "./data")
	v.SetDefault("device.base", "disk")
	v.SetDefault("device.sectors", 4096)
	v.SetDefault("device.sectors_per_segment", 0)
	v.SetDefault("device.io_limit", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// NewViper returns a viper instance with defaults and NOVACACHE_* env
// overrides (e.g. NOVACACHE_CACHE_CAPACITY).
func NewViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("novacache")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig reads the yaml file at path on top of the defaults.
// An empty path yields defaults plus env overrides.
func LoadConfig(path string) (*NovaCacheConfig, error) {
	v := NewViper()
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return DecodeConfig(v)
}

// DecodeConfig unmarshals v into a config and validates it.
func DecodeConfig(v *viper.Viper) (*NovaCacheConfig, error) {
	var cfg NovaCacheConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.Cache.Capacity <= 0 {
		return nil, fmt.Errorf("invalid cache.capacity: %d", cfg.Cache.Capacity)
	}
	if cfg.Device.Sectors == 0 {
		return nil, fmt.Errorf("invalid device.sectors: 0")
	}
	return &cfg, nil
}
