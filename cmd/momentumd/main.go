// momentumd is the server binary. It hosts the two backend functions the
// client talks to (momentum-ai and momentum-data) over HTTP, backed by
// SQLite, and exposes health and Prometheus metrics endpoints.
//
// Session tokens are minted out of band with the token subcommand; there
// is no self-serve signup surface.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"momentum/pkg/config"
	"momentum/pkg/gateway/provider"
	"momentum/pkg/logx"
	"momentum/pkg/persistence"
	"momentum/pkg/server"
	"momentum/pkg/version"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(os.Args[2:])
	case "token":
		err = runToken(os.Args[2:])
	case "revoke":
		err = runRevoke(os.Args[2:])
	case "version":
		fmt.Println("momentumd " + version.String())
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `momentumd - Momentum backend server

Usage:
  momentumd serve  [-config path] [-listen addr] [-debug]
  momentumd token  [-config path] -user <id> [-ttl duration]
  momentumd revoke [-config path] -token <token>

Commands:
  serve    Run the HTTP server hosting the AI and persistence functions
  token    Mint a session token for a user
  revoke   Delete a session token

Environment:
  MOMENTUM_PASSPHRASE   Passphrase for the encrypted secrets file
  PROVIDER_API_KEY      Provider key fallback when no secrets file exists
`)
}

func runServe(args []string) error {
	flagSet := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := flagSet.String("config", "momentum.yaml", "Config file path")
	listen := flagSet.String("listen", "", "Listen address (overrides config)")
	debug := flagSet.Bool("debug", false, "Enable debug logging")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	logx.SetDebug(*debug)
	logger := logx.NewLogger("momentumd")

	cfg, err := config.Load(*configPath)
	if err != nil {
		return logx.Wrap(err, "failed to load config")
	}
	if *listen != "" {
		cfg.ListenAddr = *listen
		config.Set(cfg)
	}

	db, err := persistence.InitializeDatabase(cfg.DBPath)
	if err != nil {
		return logx.Wrap(err, "failed to open database")
	}
	defer db.Close()
	ops := persistence.NewOperations(db)

	// The AI function needs a provider credential on the server side. When
	// none is configured the data function still runs; clients fall back to
	// their own direct path for AI calls.
	key := config.ProviderKey(cfg.SecretsPath, os.Getenv("MOMENTUM_PASSPHRASE"))
	completer, err := provider.FromConfig(cfg, key)
	if err != nil {
		logger.Warn("AI function disabled: %v", err)
		completer = nil
	}

	srv := server.NewServer(ops, completer)
	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening on %s (db %s, provider %s)", cfg.ListenAddr, cfg.DBPath, cfg.Provider)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}

func runToken(args []string) error {
	flagSet := flag.NewFlagSet("token", flag.ExitOnError)
	configPath := flagSet.String("config", "momentum.yaml", "Config file path")
	userID := flagSet.String("user", "", "User id to mint a session for")
	ttl := flagSet.Duration("ttl", 0, "Session lifetime (0 = no expiry)")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if *userID == "" {
		return fmt.Errorf("-user is required")
	}

	ops, closeDB, err := openOperations(*configPath)
	if err != nil {
		return err
	}
	defer closeDB()

	session, err := ops.CreateSession(*userID, *ttl)
	if err != nil {
		return err
	}
	fmt.Printf("Token:   %s\n", session.Token)
	fmt.Printf("User:    %s\n", session.UserID)
	if session.ExpiresAt != nil {
		fmt.Printf("Expires: %s\n", session.ExpiresAt.Format(time.RFC3339))
	} else {
		fmt.Println("Expires: never")
	}
	return nil
}

func runRevoke(args []string) error {
	flagSet := flag.NewFlagSet("revoke", flag.ExitOnError)
	configPath := flagSet.String("config", "momentum.yaml", "Config file path")
	token := flagSet.String("token", "", "Session token to delete")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if *token == "" {
		return fmt.Errorf("-token is required")
	}

	ops, closeDB, err := openOperations(*configPath)
	if err != nil {
		return err
	}
	defer closeDB()

	if err := ops.DeleteSession(*token); err != nil {
		return err
	}
	fmt.Println("Token revoked")
	return nil
}

func openOperations(configPath string) (*persistence.Operations, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	db, err := persistence.InitializeDatabase(cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	return persistence.NewOperations(db), func() { db.Close() }, nil
}
