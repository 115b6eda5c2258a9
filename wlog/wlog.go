// Package wlog sets up the process's logging backend and hands out one
// btclog.Logger per subsystem: a single rotating backend, subsystem loggers
// created from it, injected into each component's constructor rather than
// read from a package-level global. New returns a *Loggers value the caller
// threads through by hand; nothing here is package-level mutable state that
// components reach into directly.
package wlog

import (
	"io"
	"os"

	"github.com/btcsuite/btclog"
	"github.com/jrick/logrotate/rotator"
)

// Subsystem tags.
const (
	SubsystemEngine    = "ENGN"
	SubsystemStore     = "STOR"
	SubsystemChain     = "CHNW"
	SubsystemCrypto    = "XCRY"
	SubsystemClient    = "CLNT"
	SubsystemProofs    = "PRF"
	SubsystemTransport = "TRNS"
)

// Loggers is the set of subsystem loggers a process wires into its
// components at construction time.
type Loggers struct {
	backend *btclog.Backend
	rotator *rotator.Rotator

	subsystems map[string]btclog.Logger
}

// Config controls where log output goes and at what level.
type Config struct {
	// LogDir, if non-empty, rotates logs into LogDir/scnode.log in
	// addition to writing to Writer.
	LogDir string
	// Writer additionally receives all log output (e.g. os.Stdout). May
	// be nil if only file rotation is wanted.
	Writer io.Writer
	// Level is the default level assigned to every subsystem logger.
	Level btclog.Level
}

// New builds the logging backend and the fixed set of subsystem loggers.
func New(cfg Config) (*Loggers, error) {
	writers := make([]io.Writer, 0, 2)
	if cfg.Writer != nil {
		writers = append(writers, cfg.Writer)
	}

	var rot *rotator.Rotator
	if cfg.LogDir != "" {
		if err := os.MkdirAll(cfg.LogDir, 0o700); err != nil {
			return nil, err
		}
		r, err := rotator.New(cfg.LogDir+"/scnode.log", 10*1024, false, 3)
		if err != nil {
			return nil, err
		}
		rot = r
		writers = append(writers, rot)
	}

	backend := btclog.NewBackend(io.MultiWriter(writers...))

	l := &Loggers{
		backend:    backend,
		rotator:    rot,
		subsystems: make(map[string]btclog.Logger),
	}

	level := cfg.Level
	if level == 0 {
		level = btclog.LevelInfo
	}
	for _, tag := range []string{
		SubsystemEngine, SubsystemStore, SubsystemChain,
		SubsystemCrypto, SubsystemClient, SubsystemProofs,
		SubsystemTransport,
	} {
		logger := backend.Logger(tag)
		logger.SetLevel(level)
		l.subsystems[tag] = logger
	}

	return l, nil
}

// Get returns the logger for a given subsystem tag, or a disabled logger if
// the tag is unrecognised.
func (l *Loggers) Get(tag string) btclog.Logger {
	if logger, ok := l.subsystems[tag]; ok {
		return logger
	}
	return btclog.Disabled
}

// Shutdown finalises the log rotator, flushing any buffered output.
func (l *Loggers) Shutdown() {
	if l.rotator != nil {
		l.rotator.Close()
	}
}
