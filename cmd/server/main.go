package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/tomline/go-messenger/internal/api"
	"github.com/tomline/go-messenger/internal/auth"
	"github.com/tomline/go-messenger/internal/config"
	"github.com/tomline/go-messenger/internal/database"
	"github.com/tomline/go-messenger/internal/server"
	"github.com/tomline/go-messenger/internal/stats"
)

const defaultSigningKey = "wT0phFUusHZIrDhL9bUKPUhwaxKhpi/SaI6PtgB+MgU="

type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, strings.Split(value, ",")...)
	return nil
}

var (
	addr           string
	dsn            string
	signingKey     string
	configPath     string
	envFile        string
	allowedOrigins stringSliceFlag
)

func main() {
	flag.StringVar(&addr, "addr", "localhost:8000", "server address")
	flag.StringVar(&dsn, "dsn", "host=localhost user=postgres password=postgres dbname=postgres sslmode=disable", "database connection string")
	flag.StringVar(&signingKey, "signing-key", defaultSigningKey, "base64 encoded signing key")
	flag.StringVar(&configPath, "config", "", "path to YAML config file; flags override file values")
	flag.StringVar(&envFile, "env-file", ".env", "path to .env file")
	flag.Var(&allowedOrigins, "allowed-origins", "comma-separated list of allowed origins for CORS")
	flag.Parse()

	logger := log.New(os.Stderr, "[go-messenger] ", log.LstdFlags)

	if err := config.LoadDotEnv(envFile); err != nil {
		logger.Fatal("load env file:", err)
	}

	var cfg *config.Config
	var err error
	if configPath != "" {
		// Only flags set on the command line win over file values.
		var ov config.Overrides
		flag.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "addr":
				ov.ServerAddr = &addr
			case "dsn":
				ov.DatabaseDSN = &dsn
			case "signing-key":
				ov.SigningKey = &signingKey
			case "allowed-origins":
				ov.AllowedOrigins = allowedOrigins
			}
		})
		cfg, err = config.FromFile(configPath, ov)
	} else {
		cfg, err = config.NewConfig(addr, dsn, signingKey, allowedOrigins)
	}
	if err != nil {
		logger.Fatal("config:", err)
	}

	if err := database.Migrate(cfg.DatabaseDSN); err != nil {
		logger.Fatal("migrate:", err)
	}

	dbConn, err := database.NewPgMessengerRepository(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("db open:", err)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Fatal("db close:", err)
		}
	}()

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)

	chatServer, err := server.NewChatServer(logger, dbConn, statsUpdater, cfg.RequireCodeLanguage)
	if err != nil {
		logger.Fatal("new chat server:", err)
	}

	authService := auth.NewService(cfg.SigningKey)

	srv := api.NewMessengerApp(mux, logger, chatServer, dbConn, authService, cfg)

	statsUpdater.Run()
	defer statsUpdater.Stop()

	go chatServer.Run()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case err := <-errCh:
		logger.Println("server:", err)
	}

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("HTTP server shutdown:", err)
	}

	logger.Println("shutting down chat server...")
	if err := chatServer.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("chat server shutdown:", err)
	}

	logger.Println("shutdown complete")
}
