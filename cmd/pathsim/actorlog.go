package main

import (
	"io"
	stdLog "log"
	"os"

	"github.com/tochemey/goakt/v3/log"
	"go.uber.org/zap"
)

// zapAdapter adapts a zap.SugaredLogger to goakt's log.Logger interface.
type zapAdapter struct {
	*zap.SugaredLogger
}

func (z *zapAdapter) LogLevel() log.Level { return log.InfoLevel }

func (z *zapAdapter) LogOutput() []io.Writer { return []io.Writer{os.Stdout} }

func (z *zapAdapter) StdLogger() *stdLog.Logger { return stdLog.New(os.Stdout, "", stdLog.LstdFlags) }
