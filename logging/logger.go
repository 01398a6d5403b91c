package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is implemented by both *logrus.Logger and *logrus.Entry,
// so loggers with bound fields can be passed around uniformly.
type Logger interface {
	logrus.FieldLogger
}

type logger struct {
	*logrus.Logger
}

func New(level logrus.Level) Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetLevel(level)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	return &logger{l}
}
