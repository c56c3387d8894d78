package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix              = "FOREST"
	defaultHTTPAddress     = "0.0.0.0:3000"
	defaultLogLevel        = "info"
	defaultPartitionScheme = "group"
	defaultSharedTabName   = "reservations"
	defaultWelcomeCooldown = 5 * time.Second
)

// Partition schemes for the reservation spreadsheet.
const (
	PartitionGroup  = "group"
	PartitionShared = "shared"
)

// AppConfig captures runtime configuration for the bot service.
type AppConfig struct {
	HTTPAddress     string
	ChannelToken    string
	ChannelSecret   string
	SpreadsheetID   string
	CredentialsB64  string
	PartitionScheme string
	SharedTabName   string
	BookingPageURL  string
	WelcomeCooldown time.Duration
	LogLevel        string
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("sheets.partition", defaultPartitionScheme)
	configViper.SetDefault("sheets.shared_tab", defaultSharedTabName)
	configViper.SetDefault("bot.welcome_cooldown", defaultWelcomeCooldown)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:     configViper.GetString("http.address"),
		ChannelToken:    configViper.GetString("line.channel_token"),
		ChannelSecret:   configViper.GetString("line.channel_secret"),
		SpreadsheetID:   configViper.GetString("sheets.spreadsheet_id"),
		CredentialsB64:  configViper.GetString("sheets.credentials_b64"),
		PartitionScheme: configViper.GetString("sheets.partition"),
		SharedTabName:   configViper.GetString("sheets.shared_tab"),
		BookingPageURL:  configViper.GetString("booking.page_url"),
		WelcomeCooldown: configViper.GetDuration("bot.welcome_cooldown"),
		LogLevel:        configViper.GetString("log.level"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.ChannelToken) == "" {
		return fmt.Errorf("line.channel_token is required")
	}
	if strings.TrimSpace(c.ChannelSecret) == "" {
		return fmt.Errorf("line.channel_secret is required")
	}
	if strings.TrimSpace(c.SpreadsheetID) == "" {
		return fmt.Errorf("sheets.spreadsheet_id is required")
	}
	if strings.TrimSpace(c.CredentialsB64) == "" {
		return fmt.Errorf("sheets.credentials_b64 is required")
	}
	switch c.PartitionScheme {
	case PartitionGroup, PartitionShared:
	default:
		return fmt.Errorf("sheets.partition must be %q or %q, got %q", PartitionGroup, PartitionShared, c.PartitionScheme)
	}
	if c.PartitionScheme == PartitionShared && strings.TrimSpace(c.SharedTabName) == "" {
		return fmt.Errorf("sheets.shared_tab is required for the shared partition scheme")
	}
	if c.WelcomeCooldown < 0 {
		return fmt.Errorf("bot.welcome_cooldown must not be negative")
	}
	return nil
}
