package core

// EventLogger is the subset of the observability event log that core
// services need. Defining it here avoids importing the observability package.
type EventLogger interface {
	LogEvent(eventType string, data map[string]any) error
	LogError(eventType string, err error, data map[string]any) error
}

type nopLogger struct{}

func (nopLogger) LogEvent(string, map[string]any) error        { return nil }
func (nopLogger) LogError(string, error, map[string]any) error { return nil }

func orNop(l EventLogger) EventLogger {
	if l == nil {
		return nopLogger{}
	}
	return l
}
