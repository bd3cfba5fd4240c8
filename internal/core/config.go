// Package core contains the limbguide conversation logic: topic tree
// queries, content resolution, the navigation and admin wizard state
// machines, the event dispatcher and configuration loading.
package core

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/valter-silva-au/limbguide/pkg/models"
)

// ConfigFileName is the base name of the configuration file, without extension.
const ConfigFileName = ".limbguide"

// ConfigurationManager loads and validates the limbguide configuration.
type ConfigurationManager interface {
	LoadGlobalConfig() (*models.GlobalConfig, error)
	ValidateConfig(cfg *models.GlobalConfig) error
	// ResolvePath makes a configured path absolute relative to the base directory.
	ResolvePath(p string) string
}

// viperConfigManager implements ConfigurationManager using Viper.
type viperConfigManager struct {
	basePath string
}

// NewConfigurationManager creates a ConfigurationManager that reads
// .limbguide.yaml from basePath.
func NewConfigurationManager(basePath string) ConfigurationManager {
	return &viperConfigManager{basePath: basePath}
}

// DefaultAdmins are the handles allowed into the admin panel when none are configured.
var DefaultAdmins = []string{"WebDwarf", "SonyaScoliologic"}

func defaultGlobalConfig() *models.GlobalConfig {
	return &models.GlobalConfig{
		Bot: models.BotConfig{
			Gateway:      models.GatewayTelegram,
			WelcomeImage: filepath.Join("images", "welcome.png"),
		},
		Tree: models.TreeConfig{
			Path:         "logic.json",
			OutlineDepth: DefaultOutlineDepth,
			ChunkSize:    DefaultChunkSize,
		},
		Admins: append([]string(nil), DefaultAdmins...),
		State: models.StateConfig{
			Backend:    models.StateMemory,
			SQLitePath: "state.db",
		},
		FileChannel: models.FileChannelConfig{
			Dir:          "channels",
			PollInterval: "2s",
		},
		Notifications: models.NotificationConfig{
			Alerts: models.AlertConfig{
				DeliveryFailures: 5,
				WindowHours:      24,
			},
		},
	}
}

// LoadGlobalConfig reads .limbguide.yaml from the base path. Missing keys
// fall back to defaults; a missing file yields the defaults. The bot token
// may also come from LIMBGUIDE_BOT_TOKEN.
func (cm *viperConfigManager) LoadGlobalConfig() (*models.GlobalConfig, error) {
	cfg := defaultGlobalConfig()

	v := viper.New()
	v.SetConfigName(ConfigFileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(cm.basePath)

	v.SetDefault("bot.token", cfg.Bot.Token)
	v.SetDefault("bot.gateway", string(cfg.Bot.Gateway))
	v.SetDefault("bot.welcome_image", cfg.Bot.WelcomeImage)
	v.SetDefault("tree.path", cfg.Tree.Path)
	v.SetDefault("tree.outline_depth", cfg.Tree.OutlineDepth)
	v.SetDefault("tree.chunk_size", cfg.Tree.ChunkSize)
	v.SetDefault("admins", cfg.Admins)
	v.SetDefault("state.backend", string(cfg.State.Backend))
	v.SetDefault("state.sqlite_path", cfg.State.SQLitePath)
	v.SetDefault("file_channel.dir", cfg.FileChannel.Dir)
	v.SetDefault("file_channel.poll_interval", cfg.FileChannel.PollInterval)
	v.SetDefault("notifications.slack_webhook", "")
	v.SetDefault("notifications.alerts.delivery_failures", cfg.Notifications.Alerts.DeliveryFailures)
	v.SetDefault("notifications.alerts.window_hours", cfg.Notifications.Alerts.WindowHours)

	if err := v.BindEnv("bot.token", "LIMBGUIDE_BOT_TOKEN"); err != nil {
		return nil, fmt.Errorf("binding LIMBGUIDE_BOT_TOKEN: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading %s.yaml: %w", ConfigFileName, err)
		}
	}

	cfg.Bot.Token = v.GetString("bot.token")
	cfg.Bot.Gateway = models.GatewayKind(v.GetString("bot.gateway"))
	cfg.Bot.WelcomeImage = v.GetString("bot.welcome_image")
	cfg.Tree.Path = v.GetString("tree.path")
	cfg.Tree.OutlineDepth = v.GetInt("tree.outline_depth")
	cfg.Tree.ChunkSize = v.GetInt("tree.chunk_size")
	cfg.Admins = v.GetStringSlice("admins")
	cfg.State.Backend = models.StateBackend(v.GetString("state.backend"))
	cfg.State.SQLitePath = v.GetString("state.sqlite_path")
	cfg.FileChannel.Dir = v.GetString("file_channel.dir")
	cfg.FileChannel.PollInterval = v.GetString("file_channel.poll_interval")
	cfg.Notifications.SlackWebhook = v.GetString("notifications.slack_webhook")
	cfg.Notifications.Alerts.DeliveryFailures = v.GetInt("notifications.alerts.delivery_failures")
	cfg.Notifications.Alerts.WindowHours = v.GetInt("notifications.alerts.window_hours")

	return cfg, nil
}

// ResolvePath returns p unchanged when absolute, otherwise joined to the base path.
func (cm *viperConfigManager) ResolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(cm.basePath, p)
}

var validGateways = map[models.GatewayKind]bool{
	models.GatewayTelegram: true,
	models.GatewayFile:     true,
	models.GatewayConsole:  true,
}

var validBackends = map[models.StateBackend]bool{
	models.StateMemory: true,
	models.StateSQLite: true,
}

// ValidateConfig reports every invalid value in cfg at once.
func (cm *viperConfigManager) ValidateConfig(cfg *models.GlobalConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	var errs []string

	if !validGateways[cfg.Bot.Gateway] {
		errs = append(errs, fmt.Sprintf(
			"bot.gateway %q is invalid, must be one of: telegram, file, console", cfg.Bot.Gateway))
	}
	if cfg.Tree.Path == "" {
		errs = append(errs, "tree.path must not be empty")
	}
	if cfg.Tree.OutlineDepth < 0 {
		errs = append(errs, fmt.Sprintf("tree.outline_depth must be non-negative, got %d", cfg.Tree.OutlineDepth))
	}
	if cfg.Tree.ChunkSize <= 3 {
		errs = append(errs, fmt.Sprintf("tree.chunk_size must be greater than 3, got %d", cfg.Tree.ChunkSize))
	}
	if !validBackends[cfg.State.Backend] {
		errs = append(errs, fmt.Sprintf(
			"state.backend %q is invalid, must be one of: memory, sqlite", cfg.State.Backend))
	}
	if cfg.State.Backend == models.StateSQLite && cfg.State.SQLitePath == "" {
		errs = append(errs, "state.sqlite_path must be set when state.backend is sqlite")
	}
	if cfg.FileChannel.PollInterval != "" {
		if d, err := time.ParseDuration(cfg.FileChannel.PollInterval); err != nil || d <= 0 {
			errs = append(errs, fmt.Sprintf(
				"file_channel.poll_interval %q is not a positive duration", cfg.FileChannel.PollInterval))
		}
	}
	for _, a := range cfg.Admins {
		if strings.TrimSpace(strings.TrimPrefix(a, "@")) == "" {
			errs = append(errs, "admins must not contain empty handles")
			break
		}
	}
	if cfg.Notifications.Alerts.DeliveryFailures < 0 {
		errs = append(errs, "notifications.alerts.delivery_failures must be non-negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
