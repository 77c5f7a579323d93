package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"momentum/pkg/auth"
	"momentum/pkg/config"
	"momentum/pkg/gateway"
	"momentum/pkg/gateway/provider"
	"momentum/pkg/logx"
	"momentum/pkg/playbook"
	"momentum/pkg/syncer"
)

// flushTimeout bounds how long a one-shot command waits for its changes to
// reach the server before giving up.
const flushTimeout = 30 * time.Second

// app wires the client stack for a single CLI invocation: the playbook
// store feeding the sync coordinator, and the dual-path AI client.
type app struct {
	cfg      config.Config
	identity auth.Provider
	ai       *gateway.Client
	store    *playbook.Store
	remote   *syncer.RemoteClient
	tracker  *syncer.Tracker
	flushed  chan syncer.Status
	cancel   context.CancelFunc
	done     <-chan struct{}
}

func newApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	identity := identityFromEnv()
	passphrase := os.Getenv("MOMENTUM_PASSPHRASE")

	serverClient := gateway.NewServerClient(functionEndpoint(cfg.FunctionURL, "momentum-ai"), identity)
	direct := func() (provider.TextCompleter, error) {
		key := config.ProviderKey(cfg.SecretsPath, passphrase)
		return provider.FromConfig(cfg, key)
	}
	resolver := gateway.NewResolver(serverClient, direct, nil)
	ai := gateway.NewClient(resolver, nil)

	a := &app{
		cfg:      cfg,
		identity: identity,
		ai:       ai,
		store:    playbook.NewStore(ai),
		remote:   syncer.NewRemoteClient(functionEndpoint(cfg.FunctionURL, "momentum-data"), identity),
		flushed:  make(chan syncer.Status, 16),
	}
	a.tracker = syncer.NewTracker(cfg.Sync, func(key string, status syncer.Status) {
		if status == syncer.StatusSynced || status == syncer.StatusError {
			select {
			case a.flushed <- status:
			default:
			}
		}
	})

	coord := syncer.NewCoordinator(a.remote, identity, a.tracker, nil)
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.done = coord.Done()
	go coord.Run(ctx, a.store.Changes())
	return a, nil
}

func (a *app) close() {
	a.cancel()
	<-a.done
}

// signedIn reports whether this invocation carries a session.
func (a *app) signedIn() bool {
	_, ok := a.identity.Current()
	return ok
}

// hydrate pulls the active playbook and archive from the server so that
// commands operate on the same state the last invocation left behind.
// Without a session the store starts empty and changes stay local.
func (a *app) hydrate(ctx context.Context) error {
	if !a.signedIn() {
		return nil
	}
	active, err := a.remote.GetPlaybooks(ctx)
	if err != nil {
		return fmt.Errorf("failed to load playbooks: %w", err)
	}
	history, err := a.remote.GetHistory(ctx)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	var current *playbook.Playbook
	if len(active) > 0 {
		current = active[0]
	}
	a.store.Hydrate(current, history)
	return nil
}

// flush waits until n emitted changes have reached a terminal sync status.
// Local-only invocations have nothing to wait for.
func (a *app) flush(n int) {
	if !a.signedIn() {
		return
	}
	deadline := time.After(flushTimeout)
	for i := 0; i < n; i++ {
		select {
		case status := <-a.flushed:
			if status == syncer.StatusError {
				logx.Warnf("sync failed; the change was not saved to the server")
			}
		case <-deadline:
			logx.Warnf("timed out waiting for sync")
			return
		}
	}
}

// functionEndpoint resolves a function URL from the configured server base.
// An empty base stays empty, which the clients treat as "no server path".
func functionEndpoint(base, name string) string {
	if base == "" {
		return ""
	}
	return strings.TrimRight(base, "/") + "/functions/" + name
}

func identityFromEnv() auth.Provider {
	userID := os.Getenv("MOMENTUM_USER_ID")
	token := os.Getenv("MOMENTUM_TOKEN")
	if userID == "" || token == "" {
		return auth.Anonymous()
	}
	return auth.NewStaticProvider(userID, token)
}

func horizonLabel(h playbook.Horizon) string {
	switch h {
	case playbook.HorizonImmediate:
		return "Immediate (this week)"
	case playbook.HorizonMedium:
		return "Medium (this month)"
	case playbook.HorizonLong:
		return "Long (this quarter)"
	default:
		return string(h)
	}
}

func checkbox(done bool) string {
	if done {
		return "[x]"
	}
	return "[ ]"
}

func printPlaybook(p *playbook.Playbook) {
	fmt.Printf("Focus: %s\n", p.FocusArea)
	fmt.Printf("Created: %s\n\n", p.CreatedAt.Local().Format("2006-01-02 15:04"))
	if p.Analysis != "" {
		fmt.Printf("%s\n\n", p.Analysis)
	}
	fmt.Println("Opportunities:")
	fmt.Printf("  internal: %s\n", p.Opportunities.Internal)
	fmt.Printf("  external: %s\n", p.Opportunities.External)
	fmt.Printf("  hidden:   %s\n\n", p.Opportunities.Hidden)

	for _, h := range playbook.ValidHorizons() {
		fmt.Printf("%s\n", horizonLabel(h))
		for i := range p.Actions {
			action := &p.Actions[i]
			if action.Horizon != h {
				continue
			}
			fmt.Printf("  %s %s  (%s)\n", checkbox(action.IsCompleted), action.Title, action.ID)
			if action.Description != "" {
				fmt.Printf("      %s\n", action.Description)
			}
			for j := range action.SubActions {
				sub := &action.SubActions[j]
				fmt.Printf("      %s %s  (%s)\n", checkbox(sub.IsCompleted), sub.Title, sub.ID)
			}
		}
		fmt.Println()
	}

	if len(p.Pitfalls) > 0 {
		fmt.Println("Pitfalls:")
		for _, pit := range p.Pitfalls {
			fmt.Printf("  - %s: %s\n", pit.Title, pit.Desc)
		}
		fmt.Println()
	}
	if p.JournalEntry != "" {
		fmt.Printf("Journal:\n  %s\n", strings.ReplaceAll(p.JournalEntry, "\n", "\n  "))
	}
}
