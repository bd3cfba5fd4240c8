// Package internal provides the App struct that wires all components of
// limbguide together and initializes the CLI layer.
package internal

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/valter-silva-au/limbguide/internal/cli"
	"github.com/valter-silva-au/limbguide/internal/core"
	"github.com/valter-silva-au/limbguide/internal/integration"
	"github.com/valter-silva-au/limbguide/internal/observability"
	"github.com/valter-silva-au/limbguide/internal/storage"
	"github.com/valter-silva-au/limbguide/pkg/models"
)

// EventLogFileName is the JSONL event log kept in the base directory.
const EventLogFileName = ".limbguide_events.jsonl"

// App holds all service dependencies for limbguide.
type App struct {
	BasePath string

	// Configuration
	ConfigMgr core.ConfigurationManager
	Config    *models.GlobalConfig

	// Storage layer
	Tree        *storage.TopicTreeStore
	NavStates   core.NavStateStore
	AdminStates core.AdminStateStore
	stateDB     *sql.DB

	// Core services
	Access     *core.AccessList
	Navigator  *core.Navigator
	Admin      *core.AdminWizard
	GatewayReg core.GatewayRegistry
	Logger     core.EventLogger

	// Observability
	EventLog    observability.EventLog
	AlertEngine observability.AlertEngine
	MetricsCalc observability.MetricsCalculator
	Notifier    observability.Notifier
}

// NewApp creates and wires all components of limbguide. basePath is the
// directory holding .limbguide.yaml; relative paths in the configuration
// are resolved against it.
func NewApp(basePath string) (*App, error) {
	app := &App{BasePath: basePath}

	// --- Configuration ---
	app.ConfigMgr = core.NewConfigurationManager(basePath)
	cfg, err := app.ConfigMgr.LoadGlobalConfig()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if err := app.ConfigMgr.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	app.Config = cfg

	// --- Observability ---
	app.EventLog, err = observability.NewJSONLEventLog(filepath.Join(basePath, EventLogFileName))
	if err != nil {
		// Non-fatal: disable observability if log can't be created.
		fmt.Fprintf(os.Stderr, "Warning: event log disabled: %v\n", err)
		app.EventLog = nil
	}
	if app.EventLog != nil {
		thresholds := observability.DefaultAlertThresholds()
		if cfg.Notifications.Alerts.DeliveryFailures > 0 {
			thresholds.DeliveryFailures = cfg.Notifications.Alerts.DeliveryFailures
		}
		if cfg.Notifications.Alerts.WindowHours > 0 {
			thresholds.WindowHours = cfg.Notifications.Alerts.WindowHours
		}
		app.AlertEngine = observability.NewAlertEngine(app.EventLog, thresholds)
		app.MetricsCalc = observability.NewMetricsCalculator(app.EventLog)
		app.Logger = &eventLogAdapter{log: app.EventLog}
	}
	app.Notifier = observability.NewNotifier(cfg.Notifications.SlackWebhook)

	// --- Storage layer ---
	var treeLogger storage.EventLogger
	if app.Logger != nil {
		treeLogger = app.Logger
	}
	app.Tree = storage.NewTopicTreeStore(app.ConfigMgr.ResolvePath(cfg.Tree.Path), treeLogger)
	if err := app.Tree.Load(); err != nil {
		// Non-fatal: the store retries on every access.
		fmt.Fprintf(os.Stderr, "Warning: topic tree not loaded: %v\n", err)
	}

	if err := app.openStateStores(); err != nil {
		_ = app.Close()
		return nil, err
	}

	// --- Core services ---
	app.Access = core.NewAccessList(cfg.Admins)
	app.Navigator = core.NewNavigator(app.Tree, app.NavStates, app.Logger, app.welcomeMedia())
	app.Admin = core.NewAdminWizard(app.Tree, app.AdminStates, app.Access, app.Logger,
		cfg.Tree.OutlineDepth, cfg.Tree.ChunkSize)

	// --- Gateways ---
	app.GatewayReg = core.NewGatewayRegistry()
	for kind, factory := range map[models.GatewayKind]core.GatewayFactory{
		models.GatewayTelegram: app.openTelegram,
		models.GatewayFile:     app.openFileChannel,
		models.GatewayConsole: func(*models.GlobalConfig) (core.Gateway, error) {
			return app.OpenConsole("")
		},
	} {
		if err := app.GatewayReg.Register(kind, factory); err != nil {
			_ = app.Close()
			return nil, err
		}
	}

	// --- Wire CLI package-level variables ---
	cli.BasePath = basePath
	cli.Config = cfg
	cli.TreeStore = app.Tree
	cli.Navigator = app.Navigator
	cli.Admin = app.Admin
	cli.GatewayReg = app.GatewayReg
	cli.Logger = app.Logger
	cli.OpenConsole = app.OpenConsole

	cli.EventLog = app.EventLog
	cli.AlertEngine = app.AlertEngine
	cli.MetricsCalc = app.MetricsCalc
	cli.Notifier = app.Notifier

	return app, nil
}

func (a *App) openStateStores() error {
	switch a.Config.State.Backend {
	case models.StateSQLite:
		db, err := storage.OpenStateDB(a.ConfigMgr.ResolvePath(a.Config.State.SQLitePath))
		if err != nil {
			return fmt.Errorf("opening state database: %w", err)
		}
		a.stateDB = db
		a.NavStates = storage.NewSQLiteStateStore[core.NavState](db, "nav")
		a.AdminStates = storage.NewSQLiteStateStore[core.AdminSession](db, "admin")
	default:
		a.NavStates = storage.NewMemoryStateStore[core.NavState]()
		a.AdminStates = storage.NewMemoryStateStore[core.AdminSession]()
	}
	return nil
}

// welcomeMedia returns the /start photo, or the zero Media when the image
// file is missing.
func (a *App) welcomeMedia() models.Media {
	path := a.ConfigMgr.ResolvePath(a.Config.Bot.WelcomeImage)
	if path == "" {
		return models.Media{}
	}
	if _, err := os.Stat(path); err != nil {
		return models.Media{}
	}
	return models.Media{Path: path}
}

func (a *App) openTelegram(cfg *models.GlobalConfig) (core.Gateway, error) {
	return integration.NewTelegramGateway(cfg.Bot.Token)
}

func (a *App) openFileChannel(cfg *models.GlobalConfig) (core.Gateway, error) {
	var poll time.Duration
	if cfg.FileChannel.PollInterval != "" {
		d, err := time.ParseDuration(cfg.FileChannel.PollInterval)
		if err != nil {
			return nil, fmt.Errorf("parsing file_channel.poll_interval: %w", err)
		}
		poll = d
	}
	return integration.NewFileGateway(integration.FileGatewayConfig{
		Name:         string(models.GatewayFile),
		BaseDir:      a.ConfigMgr.ResolvePath(cfg.FileChannel.Dir),
		PollInterval: poll,
	})
}

// OpenConsole opens the terminal gateway speaking as username. An empty
// username falls back to $USER.
func (a *App) OpenConsole(username string) (core.Gateway, error) {
	if username == "" {
		username = os.Getenv("USER")
	}
	return integration.NewConsoleGateway(integration.ConsoleConfig{
		Username:    strings.TrimPrefix(username, "@"),
		HistoryFile: filepath.Join(a.BasePath, ".limbguide_history"),
	})
}

// Close releases resources held by the App: the event log file handle and
// the state database. It is safe to call Close on a partially built App.
func (a *App) Close() error {
	var errs []error
	if a.stateDB != nil {
		errs = append(errs, a.stateDB.Close())
	}
	if a.EventLog != nil {
		errs = append(errs, a.EventLog.Close())
	}
	return errors.Join(errs...)
}

// ResolveBasePath determines the limbguide data directory. It checks the
// LIMBGUIDE_HOME env var, then walks up from the current directory looking
// for .limbguide.yaml, then falls back to the current directory.
func ResolveBasePath() string {
	if home := os.Getenv("LIMBGUIDE_HOME"); home != "" {
		return home
	}
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, core.ConfigFileName+".yaml")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	cwd, _ := os.Getwd()
	return cwd
}

// --- Adapters ---

// eventLogAdapter adapts observability.EventLog to core.EventLogger and
// storage.EventLogger.
type eventLogAdapter struct {
	log observability.EventLog
}

func (a *eventLogAdapter) LogEvent(eventType string, data map[string]any) error {
	return a.log.Write(observability.Event{
		Time:    time.Now().UTC(),
		Level:   levelFor(eventType),
		Type:    eventType,
		Message: eventType,
		Data:    data,
	})
}

func (a *eventLogAdapter) LogError(eventType string, err error, data map[string]any) error {
	merged := make(map[string]any, len(data)+1)
	for k, v := range data {
		merged[k] = v
	}
	msg := eventType
	if err != nil {
		merged["error"] = err.Error()
		msg = err.Error()
	}
	return a.log.Write(observability.Event{
		Time:    time.Now().UTC(),
		Level:   observability.LevelError,
		Type:    eventType,
		Message: msg,
		Data:    merged,
	})
}

// levelFor derives the severity of a plain event from its type suffix.
func levelFor(eventType string) string {
	switch {
	case strings.HasSuffix(eventType, "failed"),
		strings.HasSuffix(eventType, "panic"),
		strings.HasSuffix(eventType, "error"):
		return observability.LevelError
	case strings.HasSuffix(eventType, "denied"),
		strings.HasSuffix(eventType, "missing"):
		return observability.LevelWarn
	}
	return observability.LevelInfo
}
