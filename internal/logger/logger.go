// Package logger держит общий логгер процесса.
package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

var (
	base *logrus.Logger
	Log  *logrus.Entry
)

// Тесты не вызывают Init, поэтому логгер готов сразу после импорта.
func init() {
	Init("info", true)
}

// Init настраивает уровень и формат. В debug пишем текстом, иначе JSON.
func Init(level string, debug bool) {
	base = logrus.New()
	base.SetOutput(os.Stderr)

	if debug {
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		base.SetFormatter(&logrus.JSONFormatter{})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	if debug && lvl < logrus.DebugLevel {
		lvl = logrus.DebugLevel
	}
	base.SetLevel(lvl)

	Log = base.WithField("service", "cosmic-watch")
}

// Component возвращает логгер с тегом компонента.
func Component(name string) *logrus.Entry {
	return Log.WithField("component", name)
}
