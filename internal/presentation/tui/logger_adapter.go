package tui

import (
	"fmt"

	"filecompressor/internal/domain/repositories"
)

// UILogger дублирует записи основного логгера в журнал событий TUI
type UILogger struct {
	base    repositories.Logger
	manager *Manager
}

// NewUILogger создает логгер. base может быть nil.
func NewUILogger(base repositories.Logger, manager *Manager) *UILogger {
	return &UILogger{base: base, manager: manager}
}

func (l *UILogger) show(level, format string, args []interface{}) {
	if l.manager != nil {
		l.manager.AddLog(level, fmt.Sprintf(format, args...))
	}
}

func (l *UILogger) Debug(format string, args ...interface{}) {
	if l.base != nil {
		l.base.Debug(format, args...)
	}
	l.show("debug", format, args)
}

func (l *UILogger) Info(format string, args ...interface{}) {
	if l.base != nil {
		l.base.Info(format, args...)
	}
	l.show("info", format, args)
}

func (l *UILogger) Warning(format string, args ...interface{}) {
	if l.base != nil {
		l.base.Warning(format, args...)
	}
	l.show("warning", format, args)
}

func (l *UILogger) Error(format string, args ...interface{}) {
	if l.base != nil {
		l.base.Error(format, args...)
	}
	l.show("error", format, args)
}

func (l *UILogger) Success(format string, args ...interface{}) {
	if l.base != nil {
		l.base.Success(format, args...)
	}
	l.show("success", format, args)
}

// Close закрывает основной логгер
func (l *UILogger) Close() error {
	if l.base != nil {
		return l.base.Close()
	}
	return nil
}
