package logger

// Backend defines the interface for logging sinks.
type Backend interface {
	Log(message string, keyvals ...any)
	Debug(message string, keyvals ...any)
	Info(message string, keyvals ...any)
	Warn(message string, keyvals ...any)
	Error(message string, keyvals ...any)
	Fatal(message string, keyvals ...any)
}

// Logger fans log calls out to all configured backends.
type Logger struct {
	backends []Backend
}

var singleton *Logger

// Init initializes the global logger with one or more backends.
// It must be called before any logging functions are used; calls made
// before Init are dropped.
func Init(backends ...Backend) {
	singleton = &Logger{backends: backends}
}

func each(fn func(Backend)) {
	if singleton == nil {
		return
	}
	for _, b := range singleton.backends {
		fn(b)
	}
}

// Log writes a message at the default level to all backends.
func Log(message string, keyvals ...any) {
	each(func(b Backend) { b.Log(message, keyvals...) })
}

// Debug writes a message at DEBUG level to all backends.
func Debug(message string, keyvals ...any) {
	each(func(b Backend) { b.Debug(message, keyvals...) })
}

// Info writes a message at INFO level to all backends.
func Info(message string, keyvals ...any) {
	each(func(b Backend) { b.Info(message, keyvals...) })
}

// Warn writes a message at WARN level to all backends.
func Warn(message string, keyvals ...any) {
	each(func(b Backend) { b.Warn(message, keyvals...) })
}

// Error writes a message at ERROR level to all backends.
func Error(message string, keyvals ...any) {
	each(func(b Backend) { b.Error(message, keyvals...) })
}

// Fatal writes a message at FATAL level to all backends. The console
// backend terminates the process.
func Fatal(message string, keyvals ...any) {
	each(func(b Backend) { b.Fatal(message, keyvals...) })
}
