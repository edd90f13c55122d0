// Package logger provides a convience function to constructing a logger
// for use. This is required not just for applications but for testing.
package logger

import (
	"fmt"
	"net/url"
	"strconv"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// RotateScheme is the output path scheme for a rotating log file, for
// example "lumberjack:///var/log/ledger.log?maxsize=50&maxbackups=3".
const RotateScheme = "lumberjack"

var registerOnce sync.Once

// New constructs a Sugared Logger that writes to stdout and
// provides human readable timestamps. Additional output paths can be
// provided, including rotating files through RotateScheme.
func New(service string, outputPaths ...string) (*zap.SugaredLogger, error) {
	var err error
	registerOnce.Do(func() {
		err = zap.RegisterSink(RotateScheme, newRotateSink)
	})
	if err != nil {
		return nil, fmt.Errorf("registering sink: %w", err)
	}

	config := zap.NewProductionConfig()
	config.OutputPaths = append([]string{"stdout"}, outputPaths...)
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.DisableStacktrace = true
	config.InitialFields = map[string]any{
		"service": service,
	}

	log, err := config.Build()
	if err != nil {
		return nil, err
	}

	return log.Sugar(), nil
}

// =============================================================================

// rotateSink adapts a lumberjack logger to a zap sink.
type rotateSink struct {
	*lumberjack.Logger
}

// Sync has nothing to flush since lumberjack writes straight to the file.
func (rotateSink) Sync() error {
	return nil
}

func newRotateSink(u *url.URL) (zap.Sink, error) {
	lj := lumberjack.Logger{
		Filename:   u.Path,
		MaxSize:    100,
		MaxBackups: 5,
		MaxAge:     28,
	}

	q := u.Query()
	for key, field := range map[string]*int{"maxsize": &lj.MaxSize, "maxbackups": &lj.MaxBackups, "maxage": &lj.MaxAge} {
		if v := q.Get(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			*field = n
		}
	}
	lj.Compress = q.Get("compress") == "true"

	return rotateSink{Logger: &lj}, nil
}
