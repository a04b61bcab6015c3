// Copyright 2025 Decentralized Rights Protocol
//
// Package drplog wraps the standard logger with a leveled prefix, the same
// bracketed-prefix idiom used elsewhere in this codebase
// (log.New(log.Writer(), "[Database] ", log.LstdFlags)).
package drplog

import (
	"log"
	"os"
)

// Logger is a leveled wrapper around the standard library logger.
type Logger struct {
	base *log.Logger
}

// New creates a Logger with the given component prefix, e.g. New("Quorum").
func New(component string) *Logger {
	return &Logger{
		base: log.New(os.Stdout, "["+component+"] ", log.LstdFlags|log.Lmicroseconds),
	}
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.base.Printf("INFO "+format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.base.Printf("WARN "+format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.base.Printf("ERROR "+format, args...)
}
