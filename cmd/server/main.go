package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"order_notifier/internal/config"
	"order_notifier/internal/httpapi"
	"order_notifier/internal/logbus"
	"order_notifier/internal/metrics"
	"order_notifier/internal/notify"
)

func main() {
	configPath := flag.String("config", "./config.yaml", "path to config.yaml")
	envPath := flag.String("env", ".env", "optional dotenv file with secrets")
	flag.Parse()

	if err := config.LoadDotEnv(*envPath); err != nil {
		log.Fatalf("load env: %v", err)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	bus := logbus.New(500).Mirror(log.New(os.Stdout, "", log.LstdFlags))
	defer bus.Close()
	reg := metrics.NewRegistry()
	bus.Log("info", "server starting", map[string]any{
		"addr":  cfg.Server.Addr,
		"store": cfg.Store.Name,
		"email": cfg.Email.Enabled,
		"slack": cfg.Slack.Enabled,
	})

	opts := httpapi.Options{Cfg: cfg, Bus: bus, Metrics: reg}

	if cfg.Email.Enabled {
		dialer, err := notify.NewSMTPSender(cfg.Email.SMTP())
		if err != nil {
			log.Fatalf("smtp: %v", err)
		}
		dispatcher := notify.NewEmailDispatcher(cfg.Email.Message(), dialer, bus)
		opts.Email, err = newPipeline(cfg.Store.Name, dispatcher, bus, reg)
		if err != nil {
			log.Fatalf("email pipeline: %v", err)
		}
		bus.Log("info", "email channel ready", map[string]any{"host": dialer.Host, "port": dialer.Port, "to": cfg.Email.To})
	}

	if cfg.Slack.Enabled {
		dispatcher := notify.NewSlackDispatcher(cfg.SlackDispatcherConfig(), bus)
		opts.Slack, err = newPipeline(cfg.Store.Name, dispatcher, bus, reg)
		if err != nil {
			log.Fatalf("slack pipeline: %v", err)
		}
		opts.SlackPinger = dispatcher
		bus.Log("info", "slack channel ready", map[string]any{"channel": cfg.Slack.Channel})
	}

	if opts.Email == nil && opts.Slack == nil {
		bus.Log("warn", "no notification channel enabled", nil)
	}

	api := httpapi.New(opts)
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-stop:
		bus.Log("info", "shutdown signal received", map[string]any{"signal": sig.String()})
	case err := <-serverErr:
		if err != nil && err != http.ErrServerClosed {
			bus.Log("error", "http server error", map[string]any{"error": err.Error()})
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	_ = server.Shutdown(shutdownCtx)
	bus.Log("info", "server stopped", nil)
}

func newPipeline(storeName string, d notify.Dispatcher, bus *logbus.Bus, reg *metrics.Registry) (*notify.Pipeline, error) {
	f, err := notify.NewFormatter(d.Channel(), storeName)
	if err != nil {
		return nil, err
	}
	return notify.NewPipeline(notify.PipelineOptions{
		Formatter:  f,
		Dispatcher: d,
		Bus:        bus,
		Metrics:    reg,
	})
}
