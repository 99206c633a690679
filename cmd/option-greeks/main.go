package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/contactkeval/option-chain-greeks/internal/config"
	"github.com/contactkeval/option-chain-greeks/internal/data"
	"github.com/contactkeval/option-chain-greeks/internal/engine"
	"github.com/contactkeval/option-chain-greeks/internal/logger"
	"github.com/contactkeval/option-chain-greeks/internal/report"
	"github.com/contactkeval/option-chain-greeks/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to YAML/TOML/JSON config (optional)")
	envFile := flag.String("env", ".env", "dotenv file to load before reading the config")
	underlying := flag.String("underlying", "", "underlying symbol, overrides config")
	expiry := flag.String("expiry", "", "expiry date, overrides config; empty picks the nearest upcoming")
	rest := flag.Bool("rest", false, "run as REST server")
	port := flag.String("port", "", "REST server listen address, overrides server.addr")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("loading %s: %v", *envFile, err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := logger.Init(cfg.Log); err != nil {
		log.Fatalf("logger: %v", err)
	}

	prov, err := data.New(cfg.Provider)
	if err != nil {
		log.Fatalf("provider: %v", err)
	}
	eng := engine.NewEngine(cfg, prov)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *rest {
		if *port != "" {
			cfg.Server.Addr = *port
		}
		serve(ctx, server.New(cfg.Server, eng))
		return
	}

	start := time.Now()
	table, err := eng.Run(ctx, engine.Request{Underlying: *underlying, Expiry: *expiry})
	if err != nil {
		logger.Errorf("event=run_failed err=%v", err)
		os.Exit(1)
	}

	for _, format := range cfg.Report.Formats {
		var path string
		switch strings.ToLower(format) {
		case "csv":
			path, err = report.WriteCSV(table, cfg.Report.Dir)
		case "json":
			path, err = report.WriteJSON(table, cfg.Report.Dir)
		}
		if err != nil {
			logger.Errorf("event=report_failed format=%s err=%v", format, err)
			os.Exit(1)
		}
		logger.Debugf("event=report path=%s", path)
	}
	logger.Infof("event=done underlying=%s expiry=%s lines=%d elapsed=%s", table.Underlying, table.Expiry, len(table.Lines), time.Since(start))
}

func serve(ctx context.Context, srv *http.Server) {
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("event=server_start addr=%s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("event=server_shutdown_failed err=%v", err)
		}
		logger.Infof("event=server_stopped")
	}
}
