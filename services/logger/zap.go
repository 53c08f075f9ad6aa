package logsvc

import (
	"go.uber.org/zap"

	"github.com/clms-app/clms/core"
)

// NewZapLogger returns the local log sink: human readable in debug mode, JSON otherwise.
func NewZapLogger(conf *core.Config) (*zap.SugaredLogger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if conf.Debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	return logger.Sugar().With("app", conf.AppName, "build", conf.Build), nil
}
