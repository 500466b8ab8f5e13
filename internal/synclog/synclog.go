// Package synclog produces the line-oriented, append-only session log
// the reconciler writes to: a "--------------" separator and timestamp
// at the start of each session, then one line per event with an
// "Error: " or "Warning: " prefix where applicable. Call sites go
// through logrus like the rest of the ambient stack; this package only
// supplies the Formatter and the session-open helper.
package synclog

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

const separator = "--------------"

// Formatter renders a logrus.Entry as one log line in the on-disk
// format consumers split "last session" out of: errors get "Error: ",
// warnings get "Warning: ", everything else is printed bare.
type Formatter struct{}

// Format implements logrus.Formatter.
func (Formatter) Format(e *logrus.Entry) ([]byte, error) {
	var buf bytes.Buffer
	switch e.Level {
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		buf.WriteString("Error: ")
	case logrus.WarnLevel:
		buf.WriteString("Warning: ")
	}
	buf.WriteString(e.Message)
	for k, v := range e.Data {
		fmt.Fprintf(&buf, " %s=%v", k, v)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// New returns a logrus.Logger that appends to path in the session-log
// format, creating the file and any parent directory as needed.
func New(path string) (*logrus.Logger, error) {
	if err := os.MkdirAll(parentDir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	if err := OpenSession(f); err != nil {
		f.Close()
		return nil, err
	}
	logger := logrus.New()
	logger.SetOutput(f)
	logger.SetFormatter(Formatter{})
	logger.SetLevel(logrus.InfoLevel)
	return logger, nil
}

// OpenSession writes the session-start separator and timestamp line
// directly to w, ahead of any logrus-formatted lines, so "last session"
// can be recovered by splitting the file on the separator.
func OpenSession(w io.Writer) error {
	_, err := fmt.Fprintf(w, "%s\n%s\n", separator, time.Now().Format(time.RFC3339))
	return err
}

func parentDir(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' || path[i] == '\\' {
			return path[:i]
		}
	}
	return "."
}
