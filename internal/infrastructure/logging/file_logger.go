package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// FileLogger реализация логгера поверх zap
type FileLogger struct {
	file   *os.File
	logger *zap.SugaredLogger
}

// NewFileLogger создает новый файловый логгер.
// При logToFile=false возвращается логгер, который ничего не пишет.
func NewFileLogger(filename, logLevel string, logToFile bool) (*FileLogger, error) {
	if !logToFile {
		return &FileLogger{logger: zap.NewNop().Sugar()}, nil
	}

	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия файла лога: %w", err)
	}

	return &FileLogger{
		file:   file,
		logger: newSugared(file, logLevel),
	}, nil
}

// NewWriterLogger создает логгер, пишущий в w (например, os.Stderr для CLI)
func NewWriterLogger(w io.Writer, logLevel string) *FileLogger {
	return &FileLogger{logger: newSugared(w, logLevel)}
}

func newSugared(w io.Writer, logLevel string) *zap.SugaredLogger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(w),
		zap.NewAtomicLevelAt(ParseLevel(logLevel)),
	)
	return zap.New(core).Sugar()
}

// ParseLevel переводит уровень из конфигурации в уровень zap (по умолчанию info)
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warning", "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Debug логирует отладочное сообщение
func (l *FileLogger) Debug(format string, args ...interface{}) {
	l.logger.Debugf(format, args...)
}

// Info логирует информационное сообщение
func (l *FileLogger) Info(format string, args ...interface{}) {
	l.logger.Infof(format, args...)
}

// Warning логирует предупреждение
func (l *FileLogger) Warning(format string, args ...interface{}) {
	l.logger.Warnf(format, args...)
}

// Error логирует ошибку
func (l *FileLogger) Error(format string, args ...interface{}) {
	l.logger.Errorf(format, args...)
}

// Success логирует успешное выполнение
func (l *FileLogger) Success(format string, args ...interface{}) {
	l.logger.With("status", "success").Infof(format, args...)
}

// Close сбрасывает буферы и закрывает файл
func (l *FileLogger) Close() error {
	_ = l.logger.Sync()
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}
