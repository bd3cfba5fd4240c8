// Package observability provides the event log, metrics and alerting for
// limbguide. Every navigation step, admin mutation, tree reload and delivery
// failure is appended to a JSON Lines file; metrics and alerts are derived
// from it on demand.
package observability
