package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/afonsojramos/discrakt/internal/app"
)

func main() {
	configPath := flag.String("config", "", "path to the credentials file (default: user config dir)")
	setupAddr := flag.String("setup-addr", ":3000", "listen address of the first-run setup server")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	log.SetOutput(os.Stdout)
	log.SetLevel(log.InfoLevel)
	if *debug {
		log.SetLevel(log.DebugLevel)
	}

	log.Info("starting discrakt")

	application, err := app.New(app.Options{
		ConfigPath: *configPath,
		SetupAddr:  *setupAddr,
	})
	if err != nil {
		log.WithField("error", err).Fatal("failed to initialize application")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.WithField("error", err).Fatal("application failed")
	}

	log.Info("shut down cleanly")
}
