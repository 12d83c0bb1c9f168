package config

import (
	"fmt"
	"time"

	"omniauction/internal/domain"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig         `mapstructure:"server"`
	Redis   RedisConfig          `mapstructure:"redis"`
	Auction AuctionConfig        `mapstructure:"auction"`
	Catalog []domain.CatalogItem `mapstructure:"catalog"`
}

type ServerConfig struct {
	Host   string `mapstructure:"host"`
	Port   int    `mapstructure:"port"`
	WSPort int    `mapstructure:"ws_port"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type AuctionConfig struct {
	MinIncrement        float64       `mapstructure:"min_increment"`
	EndingSoonThreshold time.Duration `mapstructure:"ending_soon_threshold"`
	ScanInterval        time.Duration `mapstructure:"scan_interval"`
}

func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/omniauction/")

	v.AutomaticEnv()

	v.BindEnv("server.host", "SERVER_HOST")
	v.BindEnv("server.port", "SERVER_PORT")
	v.BindEnv("server.ws_port", "SERVER_WS_PORT")
	v.BindEnv("redis.enabled", "REDIS_ENABLED")
	v.BindEnv("redis.address", "REDIS_ADDRESS")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("redis.db", "REDIS_DB")
	v.BindEnv("auction.min_increment", "AUCTION_MIN_INCREMENT")
	v.BindEnv("auction.ending_soon_threshold", "AUCTION_ENDING_SOON_THRESHOLD")
	v.BindEnv("auction.scan_interval", "AUCTION_SCAN_INTERVAL")

	// Config file is optional; defaults and env vars carry a bare setup.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadFromFile loads configuration from a specific file path.
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.ws_port", 8001)
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("auction.min_increment", 1.0)
	v.SetDefault("auction.ending_soon_threshold", time.Minute)
	v.SetDefault("auction.scan_interval", 10*time.Second)
	v.SetDefault("catalog", defaultCatalog())
}

// defaultCatalog is the demo item set used when the config file carries no
// catalog section.
func defaultCatalog() []map[string]interface{} {
	return []map[string]interface{}{
		{
			"id":             "vintage-watch",
			"name":           "Vintage Rolex Submariner",
			"description":    "1968 Rolex Submariner in working condition, original bracelet",
			"starting_price": 500.0,
			"duration":       "1h",
		},
		{
			"id":             "signed-guitar",
			"name":           "Signed Fender Stratocaster",
			"description":    "Sunburst Stratocaster signed by the original owner on the back plate",
			"starting_price": 250.0,
			"duration":       "45m",
		},
		{
			"id":             "abstract-painting",
			"name":           "Untitled Abstract, Oil on Canvas",
			"description":    "Large-format abstract piece from a private collection, framed",
			"starting_price": 100.0,
			"duration":       "30m",
		},
	}
}

// GetConfigString returns a one-line summary for startup logging.
func (c *Config) GetConfigString() string {
	return fmt.Sprintf(
		"Server: %s:%d (ws :%d), Redis enabled: %t, Catalog items: %d",
		c.Server.Host,
		c.Server.Port,
		c.Server.WSPort,
		c.Redis.Enabled,
		len(c.Catalog),
	)
}
