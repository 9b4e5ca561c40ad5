// Command authsvc serves the sessionauth HTTP API.
//
// Configuration is read from the YAML file named by -config (optional) with
// JWT_SECRET, DATABASE_URL, REDIS_ADDR, SMTP_PASSWORD and SENDER_EMAIL
// overriding file values. Without Redis or Postgres the service keeps its
// state in memory; without an SMTP host 2FA mails are logged, not sent.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/MrEthical07/sessionauth/internal/appconfig"
	"github.com/MrEthical07/sessionauth/internal/logging"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to the YAML config file")
	flag.Parse()

	cfg, err := appconfig.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	logger := logging.Init(cfg.Log.Level, cfg.Log.JSON)

	app, err := newApp(cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}

	if err := app.run(); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}
