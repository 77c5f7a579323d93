package main

import (
	"bufio"
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"momentum/pkg/config"
	"momentum/pkg/errs"
	"momentum/pkg/metrics"
	"momentum/pkg/onboarding"
)

func runOnboard(args []string) error {
	flagSet, configPath := commandFlags("onboard")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	a, err := newApp(*configPath)
	if err != nil {
		return err
	}
	defer a.close()

	reader := bufio.NewReader(os.Stdin)
	stuck, err := promptLine(reader, "What have you been stuck on? ")
	if err != nil {
		return err
	}
	friction, err := promptLine(reader, "What makes it hard to start? ")
	if err != nil {
		return err
	}

	flow := onboarding.NewFlow(a.ai, a.remote, a.identity)
	if err := flow.SetInputs(stuck, friction); err != nil {
		return err
	}

	ctx := context.Background()
	pattern, err := flow.ClassifyBlock(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("\nBlock pattern: %s\n", pattern.BlockPattern)
	fmt.Printf("  %s\n\n", pattern.Reasoning)

	sequence, err := flow.GenerateSequence(ctx)
	if err != nil {
		return err
	}
	fmt.Println("Your momentum sequence:")
	fmt.Printf("  1. Activation: %s\n", sequence.ActivationMove)
	fmt.Printf("  2. Momentum:   %s\n", sequence.MomentumMove)
	fmt.Printf("  3. Systems:    %s\n", sequence.SystemsMove)

	if err := flow.Complete(ctx); err != nil {
		if errs.KindOf(err) == errs.KindAuth {
			fmt.Println("\nNot signed in; profile not saved. Set MOMENTUM_USER_ID and MOMENTUM_TOKEN to keep it.")
			return nil
		}
		return err
	}
	fmt.Println("\nProfile saved")
	return nil
}

func runProfile(args []string) error {
	flagSet, configPath := commandFlags("profile")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	a, err := newApp(*configPath)
	if err != nil {
		return err
	}
	defer a.close()

	profile, err := a.remote.GetProfile(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("Block pattern: %s\n", profile.BlockPattern)
	fmt.Printf("  %s\n\n", profile.Reasoning)
	fmt.Println("Momentum sequence:")
	fmt.Printf("  1. Activation: %s\n", profile.ActivationMove)
	fmt.Printf("  2. Momentum:   %s\n", profile.MomentumMove)
	fmt.Printf("  3. Systems:    %s\n", profile.SystemsMove)
	fmt.Printf("\nUpdated: %s\n", profile.UpdatedAt.Local().Format("2006-01-02 15:04"))
	return nil
}

func runStats(args []string) error {
	flagSet := flag.NewFlagSet("stats", flag.ExitOnError)
	prometheusURL := flagSet.String("prometheus", "http://localhost:9090", "Prometheus server URL")
	op := flagSet.String("op", "generate", "AI operation to report on")
	window := flagSet.Duration("window", time.Hour, "Window for the sync error rate")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	qs, err := metrics.NewQueryService(*prometheusURL)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	stats, err := qs.GetOperationStats(ctx, *op)
	if err != nil {
		return err
	}
	fmt.Printf("Operation %s:\n", stats.Operation)
	fmt.Printf("  requests:  %d\n", stats.Requests)
	fmt.Printf("  errors:    %d\n", stats.Errors)
	fmt.Printf("  fallbacks: %d\n", stats.Fallbacks)
	fmt.Printf("  tokens:    %d\n", stats.ResponseTokens)

	rate, err := qs.GetSyncErrorRate(ctx, *window)
	if err != nil {
		return err
	}
	fmt.Printf("Sync error rate (%s): %.1f%%\n", window.String(), rate*100)
	return nil
}

func runKey(args []string) error {
	if len(args) < 1 || args[0] != "set" {
		return fmt.Errorf("usage: momentum key set [-config path]")
	}
	flagSet, configPath := commandFlags("key set")
	if err := flagSet.Parse(args[1:]); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	fmt.Printf("Provider: %s (model %s)\n", cfg.Provider, cfg.DefaultModel())
	fmt.Print("API key: ")
	apiKey, err := term.ReadPassword(syscall.Stdin)
	fmt.Println()
	if err != nil {
		return fmt.Errorf("failed to read API key: %w", err)
	}
	if len(bytes.TrimSpace(apiKey)) == 0 {
		return fmt.Errorf("API key is empty")
	}

	passphrase, err := promptPassphrase(!config.SecretsFileExists(cfg.SecretsPath))
	if err != nil {
		return err
	}

	if err := config.SaveProviderKey(cfg.SecretsPath, passphrase, string(bytes.TrimSpace(apiKey))); err != nil {
		return err
	}
	for i := range apiKey {
		apiKey[i] = 0
	}
	fmt.Printf("Key stored in %s\n", cfg.SecretsPath)
	fmt.Println("Set MOMENTUM_PASSPHRASE to use it without prompting.")
	return nil
}

// promptPassphrase reads the secrets passphrase, with confirmation when the
// file is being created for the first time.
func promptPassphrase(confirm bool) (string, error) {
	fmt.Print("Passphrase: ")
	first, err := term.ReadPassword(syscall.Stdin)
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read passphrase: %w", err)
	}
	if !confirm {
		return string(first), nil
	}

	fmt.Print("Confirm passphrase: ")
	second, err := term.ReadPassword(syscall.Stdin)
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read passphrase: %w", err)
	}
	if !bytes.Equal(first, second) {
		return "", fmt.Errorf("passphrases do not match")
	}
	passphrase := string(first)
	for i := range second {
		second[i] = 0
	}
	return passphrase, nil
}

func promptLine(reader *bufio.Reader, prompt string) (string, error) {
	fmt.Print(prompt)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
