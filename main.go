package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"travelchat/app/client/recommender"
	"travelchat/app/config"
	"travelchat/app/service/chat"
	"travelchat/app/service/console"
	"travelchat/app/service/engine"
	"travelchat/app/service/history"
	"travelchat/app/service/queue"
	"travelchat/app/service/reconcile"
	"travelchat/app/service/sandbox"
	"travelchat/app/util/mylog"

	"github.com/gofiber/fiber/v2/log"
	"github.com/samber/do"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the YAML config")
	flag.Parse()

	di := do.New()
	defer di.Shutdown()
	defer log.Info("Waiting for services to finish...")

	mylog.Preinit()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	do.ProvideValue(di, appCtx)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	if err = mylog.Init(cfg); err != nil {
		log.Fatalf("logging init failed: %v", err)
	}

	do.ProvideValue(di, cfg)

	if cfg.Sandbox.Enabled {
		cfg.API.BaseURL = sandbox.BaseURL
		do.Provide(di, sandbox.New)
		do.ProvideValue[http.RoundTripper](di, do.MustInvoke[*sandbox.Server](di).Transport())
		slog.Warn("Using in-process sandbox instead of the recommendation service")
	}

	do.Provide(di, recommender.NewClient)
	do.Provide(di, chat.New)
	do.Provide(di, history.New)
	do.Provide(di, reconcile.New)
	do.Provide(di, queue.New)
	do.Provide(di, console.New)
	do.Provide(di, engine.New)

	do.MustInvoke[*reconcile.Link](di)

	slog.Info("Service started", "api", cfg.API.BaseURL)

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt)
		<-sigint

		log.Info("Shutting down...")

		cancel()
	}()

	g, gCtx := errgroup.WithContext(appCtx)
	g.Go(func() error {
		defer cancel()
		return do.MustInvoke[*console.Service](di).Run(gCtx)
	})
	g.Go(func() error {
		defer cancel()
		return do.MustInvoke[*engine.Service](di).Run(gCtx)
	})

	if err = g.Wait(); err != nil {
		slog.Error("Stopped with error", "error", err)
	}
}
