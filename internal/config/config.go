package config

import (
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

type Config struct {
	App struct {
		Env      string
		Timezone string
	} `mapstructure:"app"`

	Discord struct {
		Token       string
		AdminUserID string `mapstructure:"admin_user_id"`
		GuildID     string `mapstructure:"guild_id"`
	} `mapstructure:"discord"`

	HTTP struct {
		Addr string
	} `mapstructure:"http"`

	Postgres struct {
		DSN string
	} `mapstructure:"postgres"`

	Metrics struct {
		Enabled bool
	} `mapstructure:"metrics"`

	Hoyolab struct {
		BaseURL string `mapstructure:"base_url"`
		Timeout time.Duration
	} `mapstructure:"hoyolab"`

	Scheduler struct {
		CheckInterval time.Duration `mapstructure:"check_interval"`
		ClaimHour     int           `mapstructure:"claim_hour"`
		ItemDelay     time.Duration `mapstructure:"item_delay"`
	} `mapstructure:"scheduler"`
}

func Load(path string) (Config, error) {
	// .env is optional; it only seeds the environment for the APP_* overrides below.
	_ = gotenv.Load()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()

	v.SetDefault("hoyolab.base_url", "https://bbs-api-os.hoyolab.com")
	v.SetDefault("hoyolab.timeout", 15*time.Second)
	v.SetDefault("scheduler.check_interval", 2*time.Hour)
	v.SetDefault("scheduler.claim_hour", 1)
	v.SetDefault("scheduler.item_delay", 3*time.Second)

	var c Config
	if err := v.ReadInConfig(); err != nil {
		return c, err
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	return c, nil
}
