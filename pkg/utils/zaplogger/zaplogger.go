// Package zaplogger wraps a package-level zap logger with an optional database sink
package zaplogger

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
)

const timeLayout = "2006-01-02T15:04:05.999-0700"

var log *zap.Logger
var zapConfig zap.Config

// Fields type, used to pass structured context to the log functions.
type Fields map[string]interface{}

// LogModel is one log entry mirrored into the database
type LogModel struct {
	ID        uint      `gorm:"primaryKey"`
	Timestamp time.Time `gorm:"index"`
	Level     string    `gorm:"index"`
	Caller    string
	Message   string
	Fields    string // JSON of the extra fields
}

// TableName specifies the table name for LogModel
func (LogModel) TableName() string {
	return "_app_logs"
}

// DbWriter implements zapcore.WriteSyncer on top of gorm
type DbWriter struct {
	db *gorm.DB
}

// logLine is the JSON shape produced by the database encoder
type logLine struct {
	Level     string `json:"level"`
	Timestamp string `json:"timestamp"`
	Caller    string `json:"caller"`
	Message   string `json:"message"`
}

var reservedKeys = map[string]bool{"level": true, "timestamp": true, "caller": true, "message": true}

func (w *DbWriter) Write(p []byte) (int, error) {
	var line logLine
	if err := json.Unmarshal(p, &line); err != nil {
		return 0, err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(p, &raw); err != nil {
		return 0, err
	}
	extra := make(map[string]json.RawMessage, len(raw))
	for k, v := range raw {
		if !reservedKeys[k] {
			extra[k] = v
		}
	}
	fieldsJSON, err := json.Marshal(extra)
	if err != nil {
		return 0, err
	}

	ts, err := time.Parse(timeLayout, line.Timestamp)
	if err != nil {
		ts = time.Now()
	}

	record := LogModel{
		Timestamp: ts,
		Level:     line.Level,
		Caller:    line.Caller,
		Message:   line.Message,
		Fields:    string(fieldsJSON),
	}
	if err := w.db.Create(&record).Error; err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *DbWriter) Sync() error {
	return nil
}

func customTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format(timeLayout))
}

func init() {
	zapConfig = zap.Config{
		Encoding:         "console",
		Level:            zap.NewAtomicLevelAt(zap.InfoLevel),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey:   "message",
			LevelKey:     "level",
			TimeKey:      "timestamp",
			CallerKey:    "caller",
			EncodeLevel:  zapcore.CapitalLevelEncoder,
			EncodeTime:   customTimeEncoder,
			EncodeCaller: zapcore.ShortCallerEncoder,
		},
	}

	var err error
	log, err = zapConfig.Build(zap.AddCallerSkip(1))
	if err != nil {
		panic(err)
	}
}

// InitLogger tees the console logger into the `_app_logs` table.
// Only warnings and above are mirrored to the database.
func InitLogger(db *gorm.DB) error {
	if err := db.AutoMigrate(&LogModel{}); err != nil {
		return fmt.Errorf("failed to auto migrate log table: %w", err)
	}

	consoleEncoder := zapcore.NewConsoleEncoder(zapConfig.EncoderConfig)
	dbEncoder := zapcore.NewJSONEncoder(zapConfig.EncoderConfig)
	dbLevel := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return l >= zapcore.WarnLevel && zapConfig.Level.Enabled(l)
	})

	core := zapcore.NewTee(
		zapcore.NewCore(consoleEncoder, zapcore.AddSync(os.Stdout), zapConfig.Level),
		zapcore.NewCore(dbEncoder, zapcore.AddSync(&DbWriter{db: db}), dbLevel),
	)

	log = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	return nil
}

// SetLogLevel changes the level of every core built from zapConfig
func SetLogLevel(level string) {
	var l zapcore.Level
	switch strings.ToLower(level) {
	case "debug":
		l = zapcore.DebugLevel
	case "warn":
		l = zapcore.WarnLevel
	case "error":
		l = zapcore.ErrorLevel
	default:
		l = zapcore.InfoLevel
	}
	zapConfig.Level.SetLevel(l)
}

// Info logs an info message
func Info(msg string, fields ...Fields) {
	log.Info(msg, zapFields(fields)...)
}

// Debug logs a debug message
func Debug(msg string, fields ...Fields) {
	log.Debug(msg, zapFields(fields)...)
}

// Warn logs a warning message
func Warn(msg string, fields ...Fields) {
	log.Warn(msg, zapFields(fields)...)
}

// Error logs an error message
func Error(msg string, fields ...Fields) {
	log.Error(msg, zapFields(fields)...)
}

// Fatal logs a fatal message and exits the program
func Fatal(msg string, fields ...Fields) {
	log.Fatal(msg, zapFields(fields)...)
}

// WithFields returns a child logger carrying the given fields
func WithFields(fields Fields) *zap.Logger {
	return log.With(zapFields([]Fields{fields})...)
}

func zapFields(fields []Fields) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(fields[0]))
	for k, v := range fields[0] {
		out = append(out, zap.Any(k, v))
	}
	return out
}

// Sync flushes any buffered log entries
func Sync() error {
	return log.Sync()
}
