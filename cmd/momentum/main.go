// momentum is the client CLI. State lives on the server: each invocation
// hydrates the active playbook, applies one operation through the local
// store, and waits for the sync coordinator to replay the resulting
// changes before exiting. Without a session (MOMENTUM_USER_ID and
// MOMENTUM_TOKEN) commands still run but nothing is persisted.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"momentum/pkg/logx"
	"momentum/pkg/version"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	if os.Getenv("MOMENTUM_DEBUG") != "" {
		logx.SetDebug(true)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "generate":
		err = runGenerate(args)
	case "show":
		err = runShow(args)
	case "toggle":
		err = runToggle(args)
	case "reroll":
		err = runReroll(args)
	case "breakdown":
		err = runBreakdown(args)
	case "journal":
		err = runJournal(args)
	case "save":
		err = runSave(args)
	case "archive":
		err = runArchive(args)
	case "history":
		err = runHistory(args)
	case "onboard":
		err = runOnboard(args)
	case "profile":
		err = runProfile(args)
	case "stats":
		err = runStats(args)
	case "key":
		err = runKey(args)
	case "version":
		fmt.Println("momentum " + version.String())
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `momentum - focus playbooks against drift

Usage:
  momentum generate  -focus "<area>"        Generate a playbook for a focus area
  momentum show                             Show the active playbook
  momentum toggle    -action <id> [-sub <id>]
                                            Toggle completion of an action or sub-action
  momentum reroll    -action <id>           Replace an action, keeping its slot
  momentum breakdown -action <id>           Break an action into micro-steps
  momentum journal   -entry "<text>"        Update the journal entry
  momentum save                             Push the full active playbook to the server
  momentum archive                          Archive the active playbook
  momentum history                          List archived playbooks
  momentum onboard                          Run the onboarding flow
  momentum profile                          Show the saved onboarding profile
  momentum stats     [-prometheus url] [-op <operation>]
                                            Show AI operation and sync stats
  momentum key set                          Store the provider API key (encrypted)

All commands accept -config <path> (default momentum.yaml).

Environment:
  MOMENTUM_USER_ID, MOMENTUM_TOKEN   Session identity for server sync
  MOMENTUM_PASSPHRASE                Passphrase for the encrypted secrets file
  MOMENTUM_DEBUG                     Enable debug logging when set
`)
}

// commandFlags builds the shared flag set every playbook command uses.
func commandFlags(name string) (*flag.FlagSet, *string) {
	flagSet := flag.NewFlagSet(name, flag.ExitOnError)
	configPath := flagSet.String("config", "momentum.yaml", "Config file path")
	return flagSet, configPath
}

func runGenerate(args []string) error {
	flagSet, configPath := commandFlags("generate")
	focus := flagSet.String("focus", "", "Focus area to build a playbook for")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if *focus == "" {
		return fmt.Errorf("-focus is required")
	}

	a, err := newApp(*configPath)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := context.Background()
	if err := a.hydrate(ctx); err != nil {
		return err
	}
	if a.store.Current() != nil {
		return fmt.Errorf("a playbook is already active; archive it first")
	}

	p, err := a.store.Generate(ctx, *focus)
	if err != nil {
		return err
	}
	printPlaybook(p)
	a.flush(1)
	return nil
}

func runShow(args []string) error {
	flagSet, configPath := commandFlags("show")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	a, err := newApp(*configPath)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.hydrate(context.Background()); err != nil {
		return err
	}
	current := a.store.Current()
	if current == nil {
		fmt.Println("No active playbook. Run: momentum generate -focus \"<area>\"")
		return nil
	}
	printPlaybook(current)
	fmt.Printf("Sync: %s\n", a.tracker.Overall())
	return nil
}

func runToggle(args []string) error {
	flagSet, configPath := commandFlags("toggle")
	actionID := flagSet.String("action", "", "Action id")
	subID := flagSet.String("sub", "", "Sub-action id (toggles the sub-action instead)")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if *actionID == "" {
		return fmt.Errorf("-action is required")
	}

	a, err := newApp(*configPath)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := context.Background()
	if err := a.hydrate(ctx); err != nil {
		return err
	}
	if *subID != "" {
		err = a.store.ToggleSubAction(*actionID, *subID)
	} else {
		err = a.store.ToggleAction(*actionID)
	}
	if err != nil {
		return err
	}
	fmt.Println("Toggled")
	a.flush(1)
	return nil
}

func runReroll(args []string) error {
	flagSet, configPath := commandFlags("reroll")
	actionID := flagSet.String("action", "", "Action id to replace")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if *actionID == "" {
		return fmt.Errorf("-action is required")
	}

	a, err := newApp(*configPath)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := context.Background()
	if err := a.hydrate(ctx); err != nil {
		return err
	}
	action, err := a.store.Reroll(ctx, *actionID)
	if err != nil {
		return err
	}
	fmt.Printf("Rerolled into: %s\n", action.Title)
	if action.Description != "" {
		fmt.Printf("  %s\n", action.Description)
	}
	a.flush(1)
	return nil
}

func runBreakdown(args []string) error {
	flagSet, configPath := commandFlags("breakdown")
	actionID := flagSet.String("action", "", "Action id to break down")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if *actionID == "" {
		return fmt.Errorf("-action is required")
	}

	a, err := newApp(*configPath)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := context.Background()
	if err := a.hydrate(ctx); err != nil {
		return err
	}
	subs, err := a.store.DeepDive(ctx, *actionID)
	if err != nil {
		return err
	}
	fmt.Println("Micro-steps:")
	for _, sub := range subs {
		fmt.Printf("  %s %s  (%s)\n", checkbox(sub.IsCompleted), sub.Title, sub.ID)
	}
	a.flush(1)
	return nil
}

func runJournal(args []string) error {
	flagSet, configPath := commandFlags("journal")
	entry := flagSet.String("entry", "", "Journal text")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	a, err := newApp(*configPath)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.hydrate(context.Background()); err != nil {
		return err
	}
	if err := a.store.UpdateJournal(*entry); err != nil {
		return err
	}
	fmt.Println("Journal updated")
	a.flush(1)
	return nil
}

func runSave(args []string) error {
	flagSet, configPath := commandFlags("save")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	a, err := newApp(*configPath)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.hydrate(context.Background()); err != nil {
		return err
	}
	if err := a.store.Save(); err != nil {
		return err
	}
	fmt.Println("Saved")
	a.flush(1)
	return nil
}

func runArchive(args []string) error {
	flagSet, configPath := commandFlags("archive")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	a, err := newApp(*configPath)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.hydrate(context.Background()); err != nil {
		return err
	}
	archived, err := a.store.Archive()
	if err != nil {
		return err
	}
	fmt.Printf("Archived %q\n", archived.FocusArea)
	a.flush(1)
	return nil
}

func runHistory(args []string) error {
	flagSet, configPath := commandFlags("history")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	a, err := newApp(*configPath)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.hydrate(context.Background()); err != nil {
		return err
	}
	history := a.store.History()
	if len(history) == 0 {
		fmt.Println("No archived playbooks")
		return nil
	}
	for _, p := range history {
		completed := 0
		for i := range p.Actions {
			if p.Actions[i].IsCompleted {
				completed++
			}
		}
		when := ""
		if p.ArchivedAt != nil {
			when = p.ArchivedAt.Local().Format("2006-01-02")
		}
		fmt.Printf("%s  %-40q  %d/%d actions done\n", when, p.FocusArea, completed, len(p.Actions))
	}
	return nil
}
