// Package logging provides bouncerd's process-wide structured logger,
// adapted from this lineage's internal/logger package.
package logging

import (
	"log"
	"os"
)

// Init configures the standard logger for line-buffered structured output.
func Init() {
	log.SetOutput(os.Stdout)
	log.SetFlags(0)
	Info("logger initialized", nil)
}

// Info logs an informational message with structured fields.
func Info(msg string, fields map[string]any) {
	log.Printf(`{"level":"INFO","msg":"%s","fields":%v}`, msg, fields)
}

// Warn logs a warning message with structured fields.
func Warn(msg string, fields map[string]any) {
	log.Printf(`{"level":"WARN","msg":"%s","fields":%v}`, msg, fields)
}

// Error logs an error message with structured fields.
func Error(msg string, fields map[string]any) {
	log.Printf(`{"level":"ERROR","msg":"%s","fields":%v}`, msg, fields)
}

// Fatal logs a fatal message with structured fields and exits the process.
func Fatal(msg string, fields map[string]any) {
	log.Printf(`{"level":"FATAL","msg":"%s","fields":%v}`, msg, fields)
	os.Exit(1)
}
