// Package autoload initialises the global logger from LOG_* variables on import.
package autoload

import (
	"github.com/kelseyhightower/envconfig"

	logx "github.com/tanpawarit/Chative-Voice-Commerce-Router/pkg/logger"
)

func init() {
	conf := *logx.DefaultConfig
	if err := envconfig.Process("LOG", &conf); err != nil {
		logx.Init()
		return
	}
	logx.Init(conf)
}
