// Package logger provides structured logging for the playback advisor.
package logger

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"
)

// Field represents a structured logging field
type Field struct {
	Key   string
	Value interface{}
}

// Info logs informational messages
func Info(msg string, fields ...Field) {
	logStructured("INFO", msg, fields...)
}

// Warn logs warning messages
func Warn(msg string, fields ...Field) {
	logStructured("WARN", msg, fields...)
}

// Error logs error messages
func Error(msg string, fields ...Field) {
	logStructured("ERROR", msg, fields...)
}

// Debug logs debug messages when LOG_LEVEL=debug
func Debug(msg string, fields ...Field) {
	if os.Getenv("LOG_LEVEL") == "debug" {
		logStructured("DEBUG", msg, fields...)
	}
}

func logStructured(level, msg string, fields ...Field) {
	if os.Getenv("LOG_FORMAT") == "json" {
		logEntry := map[string]interface{}{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"level":     level,
			"message":   msg,
		}
		for _, field := range fields {
			logEntry[field.Key] = field.Value
		}
		jsonData, _ := json.Marshal(logEntry)
		log.Println(string(jsonData))
		return
	}

	fieldStr := ""
	for _, field := range fields {
		fieldStr += fmt.Sprintf(" %s=%v", field.Key, field.Value)
	}
	log.Printf("%s: %s%s", level, msg, fieldStr)
}

// Helper functions for common field types

func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Float(key string, value float64) Field {
	return Field{Key: key, Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

func Err(key string, err error) Field {
	if err == nil {
		return Field{Key: key, Value: nil}
	}
	return Field{Key: key, Value: err.Error()}
}
