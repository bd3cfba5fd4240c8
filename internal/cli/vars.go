package cli

import (
	"github.com/valter-silva-au/limbguide/internal/core"
	"github.com/valter-silva-au/limbguide/internal/observability"
	"github.com/valter-silva-au/limbguide/pkg/models"
)

// Service instances, set during app initialization in app.go.
var (
	BasePath  string
	Config    *models.GlobalConfig
	TreeStore core.TreeStore
	Navigator *core.Navigator
	Admin     *core.AdminWizard
	Logger    core.EventLogger

	GatewayReg core.GatewayRegistry
	// OpenConsole opens the terminal gateway speaking as the given handle.
	OpenConsole func(username string) (core.Gateway, error)
)

// Observability service instances, set during app initialization in app.go.
var (
	EventLog    observability.EventLog
	AlertEngine observability.AlertEngine
	MetricsCalc observability.MetricsCalculator
	Notifier    observability.Notifier
)
