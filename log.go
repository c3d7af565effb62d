package sshcore

import "github.com/sirupsen/logrus"

// newDefaultLogger returns the logger used when a Connection is constructed
// without WithLogger. It logs at Info and above to keep a caller's terminal
// quiet by default; Debug exposes per-packet tracing.
func newDefaultLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetLevel(logrus.InfoLevel)
	return l
}
