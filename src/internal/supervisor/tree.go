// Package supervisor runs the long-lived parts of the device agent under a
// suture supervisor with zerolog event logging.
package supervisor

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"

	"github.com/jcline/jcline/src/internal/logging"
)

type Config struct {
	FailureThreshold float64
	FailureDecay     float64
	FailureBackoff   time.Duration
	ShutdownTimeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		FailureDecay:     30,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

// New builds a root supervisor whose events go to the component logger.
func New(name string, cfg Config) *suture.Supervisor {
	log := logging.Component("supervisor")
	return suture.New(name, suture.Spec{
		EventHook:        eventHook(log),
		FailureThreshold: cfg.FailureThreshold,
		FailureDecay:     cfg.FailureDecay,
		FailureBackoff:   cfg.FailureBackoff,
		Timeout:          cfg.ShutdownTimeout,
	})
}

func eventHook(log zerolog.Logger) suture.EventHook {
	return func(e suture.Event) {
		level := zerolog.WarnLevel
		switch e.Type() {
		case suture.EventTypeResume:
			level = zerolog.InfoLevel
		case suture.EventTypeServicePanic, suture.EventTypeBackoff:
			level = zerolog.ErrorLevel
		}
		log.WithLevel(level).Fields(e.Map()).Msg(e.String())
	}
}
