package utils

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// base 所有组件共享的logrus实例
var base = newBaseLogger()

type Logger struct {
	name  string
	entry *logrus.Entry
}

func newBaseLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05",
	})
	l.SetLevel(logrus.InfoLevel)
	if os.Getenv("DEBUG") == "true" {
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}

func NewLogger(name string) *Logger {
	return &Logger{
		name:  name,
		entry: base.WithField("component", name),
	}
}

// ConfigureLogging 根据配置调整全局日志级别和格式
func ConfigureLogging(level, format string) {
	if lvl, err := logrus.ParseLevel(strings.ToLower(level)); err == nil {
		base.SetLevel(lvl)
	}
	if os.Getenv("DEBUG") == "true" {
		base.SetLevel(logrus.DebugLevel)
	}

	if strings.ToLower(format) == "json" {
		base.SetFormatter(&logrus.JSONFormatter{})
	}
}

// SetOutput 重定向日志输出（测试时使用）
func SetOutput(w io.Writer) {
	base.SetOutput(w)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.entry.Infof(format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.entry.Errorf(format, args...)
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.entry.Debugf(format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.entry.Warnf(format, args...)
}

// WithField 返回附带额外字段的子Logger
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{
		name:  l.name,
		entry: l.entry.WithField(key, value),
	}
}
