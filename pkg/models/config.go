package models

// GatewayKind selects the messaging gateway used by `limbguide serve`.
type GatewayKind string

const (
	GatewayTelegram GatewayKind = "telegram"
	GatewayFile     GatewayKind = "file"
	GatewayConsole  GatewayKind = "console"
)

// StateBackend selects where per-chat conversation state lives.
type StateBackend string

const (
	StateMemory StateBackend = "memory"
	StateSQLite StateBackend = "sqlite"
)

// BotConfig holds transport settings.
type BotConfig struct {
	Token        string      `yaml:"token" mapstructure:"token"`
	Gateway      GatewayKind `yaml:"gateway" mapstructure:"gateway"`
	WelcomeImage string      `yaml:"welcome_image" mapstructure:"welcome_image"`
}

// TreeConfig locates the topic document and controls outline rendering.
type TreeConfig struct {
	Path         string `yaml:"path" mapstructure:"path"`
	OutlineDepth int    `yaml:"outline_depth" mapstructure:"outline_depth"`
	ChunkSize    int    `yaml:"chunk_size" mapstructure:"chunk_size"`
}

// StateConfig selects the conversation state backend.
type StateConfig struct {
	Backend    StateBackend `yaml:"backend" mapstructure:"backend"`
	SQLitePath string       `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// FileChannelConfig configures the inbox/outbox gateway.
type FileChannelConfig struct {
	Dir          string `yaml:"dir" mapstructure:"dir"`
	PollInterval string `yaml:"poll_interval" mapstructure:"poll_interval"`
}

// AlertConfig holds alert thresholds.
type AlertConfig struct {
	DeliveryFailures int `yaml:"delivery_failures" mapstructure:"delivery_failures"`
	WindowHours      int `yaml:"window_hours" mapstructure:"window_hours"`
}

// NotificationConfig configures outbound alert notifications.
type NotificationConfig struct {
	SlackWebhook string      `yaml:"slack_webhook" mapstructure:"slack_webhook"`
	Alerts       AlertConfig `yaml:"alerts" mapstructure:"alerts"`
}

// GlobalConfig holds all settings read from .limbguide.yaml via Viper.
type GlobalConfig struct {
	Bot           BotConfig          `yaml:"bot" mapstructure:"bot"`
	Tree          TreeConfig         `yaml:"tree" mapstructure:"tree"`
	Admins        []string           `yaml:"admins" mapstructure:"admins"`
	State         StateConfig        `yaml:"state" mapstructure:"state"`
	FileChannel   FileChannelConfig  `yaml:"file_channel" mapstructure:"file_channel"`
	Notifications NotificationConfig `yaml:"notifications" mapstructure:"notifications"`
}
