package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/emilalvaro25/vibe/internal/config"
	"github.com/emilalvaro25/vibe/internal/llm"
	"github.com/emilalvaro25/vibe/internal/natsbus"
	"github.com/emilalvaro25/vibe/internal/relay"
	"github.com/emilalvaro25/vibe/internal/reporter"
	"github.com/emilalvaro25/vibe/internal/scheduler"
	"github.com/emilalvaro25/vibe/internal/speech"
	"github.com/emilalvaro25/vibe/internal/statusbus"
	"github.com/emilalvaro25/vibe/internal/store"
	"github.com/emilalvaro25/vibe/internal/telegram"
	"github.com/emilalvaro25/vibe/internal/vault"
	"github.com/emilalvaro25/vibe/internal/web"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "version":
		fmt.Printf("vibe %s\n", version)
	case "serve":
		err = serve()
	case "run":
		err = runOnce(os.Args[2:])
	case "secret":
		err = secretCmd(os.Args[2:])
	default:
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		slog.Error("command failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: vibe <command>

Commands:
  serve                      Start the relay service (API, scheduler, bots)
  run <goal> [todo]          Execute one relay run and print the artifact
  secret set <name> <value>  Seal a credential into the store
  secret get <name>          Print a sealed credential
  secret list                List credential names
  secret delete <name>       Remove a credential
  version                    Print version
`)
}

func serve() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slog.Info("starting vibe", "version", version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// SQLite primary with the local JSON snapshot as a per-call fallback.
	// A failed open degrades to the snapshot store instead of aborting.
	local, err := store.NewLocal(cfg.Store.DataDir)
	if err != nil {
		return fmt.Errorf("init local store: %w", err)
	}
	var db *store.Store
	var runs store.RunStore = local
	if db, err = store.New(cfg.Store); err != nil {
		slog.Warn("sqlite unavailable, running on local snapshots", "error", err)
		db = nil
	} else {
		defer db.Close()
		runs = store.NewFallback(db, local)
		slog.Info("store initialized", "path", cfg.Store.Path)
	}

	if db != nil && cfg.Vault.Passphrase != "" {
		if err := resolveSecrets(cfg, db); err != nil {
			return fmt.Errorf("resolve secrets: %w", err)
		}
	}

	// Embedded NATS
	bus, err := natsbus.New(cfg.NATS)
	if err != nil {
		return fmt.Errorf("init nats: %w", err)
	}
	defer bus.Close()
	slog.Info("nats started", "port", bus.Port())

	nc, err := natsbus.NewClient(bus)
	if err != nil {
		return fmt.Errorf("init nats client: %w", err)
	}
	defer nc.Close()

	// Status bus, mirrored onto NATS for the websocket stream.
	status := statusbus.New()
	status.Subscribe(statusbus.EventStatus, func(payload any) {
		if err := nc.PublishJSON(natsbus.TopicStatus, payload); err != nil {
			slog.Warn("publish status", "error", err)
		}
	})

	speaker := speech.NewClient(cfg.Speech, cfg.Store.DataDir)
	rep := reporter.New(status, speaker, cfg.Relay.IdleWarning)

	gw := llm.NewClient(cfg.Gateway)
	orch := relay.New(runs, gw, relay.Options{
		ModelFor:  gw.ModelFor,
		Notifier:  rep,
		Publisher: nc,
	})

	if db != nil {
		sched := scheduler.New(db, orch, nc, cfg.Scheduler.PollInterval)
		go sched.Start(ctx)
	} else {
		slog.Warn("scheduler disabled without sqlite")
	}

	if cfg.Telegram.Token != "" {
		bot, err := telegram.NewBot(cfg.Telegram, orch, status)
		if err != nil {
			return fmt.Errorf("init telegram bot: %w", err)
		}
		go bot.Start(ctx)
		defer bot.Stop()
		slog.Info("telegram bot started")
	}

	if cfg.Web.Enabled {
		var schedules web.ScheduleStore
		if db != nil {
			schedules = db
		}
		srv := web.NewServer(runs, schedules, bus, orch, cfg.Web, version)
		go func() {
			if err := srv.Start(ctx); err != nil {
				slog.Error("web server error", "error", err)
			}
		}()
		slog.Info("web server started", "port", cfg.Web.Port)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("shutting down", "signal", sig)
	cancel()
	return nil
}

// resolveSecrets replaces "secret:<name>" config values with vault plaintext.
func resolveSecrets(cfg *config.Config, db *store.Store) error {
	v, err := vault.New(cfg.Vault.Passphrase)
	if err != nil {
		return err
	}
	lookup := storeLookup(db)

	for _, field := range []*string{
		&cfg.Gateway.APIKey,
		&cfg.Speech.APIKey,
		&cfg.Telegram.Token,
		&cfg.Web.Auth,
	} {
		resolved, err := v.Resolve(lookup, *field)
		if err != nil {
			return err
		}
		*field = resolved
	}
	return nil
}

func storeLookup(db *store.Store) vault.Lookup {
	return func(name string) (value, nonce []byte, err error) {
		sec, err := db.GetSecret(name)
		if err != nil {
			return nil, nil, err
		}
		if sec == nil {
			return nil, nil, fmt.Errorf("secret %q not found", name)
		}
		return sec.Value, sec.Nonce, nil
	}
}

func runOnce(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: vibe run <goal> [todo]")
	}
	goal := args[0]
	todo := ""
	if len(args) > 1 {
		todo = args[1]
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	local, err := store.NewLocal(cfg.Store.DataDir)
	if err != nil {
		return fmt.Errorf("init local store: %w", err)
	}
	var runs store.RunStore = local
	if db, err := store.New(cfg.Store); err == nil {
		defer db.Close()
		runs = store.NewFallback(db, local)
	}

	status := statusbus.New()
	status.Subscribe(statusbus.EventStatus, func(payload any) {
		if st, ok := payload.(statusbus.Status); ok {
			fmt.Fprintf(os.Stderr, "[%s] %s\n", st.Level, st.Text)
		}
	})
	rep := reporter.New(status, nil, cfg.Relay.IdleWarning)

	gw := llm.NewClient(cfg.Gateway)
	orch := relay.New(runs, gw, relay.Options{ModelFor: gw.ModelFor, Notifier: rep})

	runID, err := orch.Run(context.Background(), goal, todo)
	if err != nil {
		return fmt.Errorf("run %s: %w", runID, err)
	}

	steps, err := runs.ListSteps(runID)
	if err != nil {
		return fmt.Errorf("list steps: %w", err)
	}
	for i := len(steps) - 1; i >= 0; i-- {
		if steps[i].Output != "" {
			fmt.Println(steps[i].Output)
			break
		}
	}
	fmt.Fprintf(os.Stderr, "run %s done\n", runID)
	return nil
}

func secretCmd(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: vibe secret <set|get|list|delete> ...")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Vault.Passphrase == "" {
		return fmt.Errorf("vault passphrase not configured")
	}

	db, err := store.New(cfg.Store)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	v, err := vault.New(cfg.Vault.Passphrase)
	if err != nil {
		return err
	}

	switch args[0] {
	case "set":
		if len(args) != 3 {
			return fmt.Errorf("usage: vibe secret set <name> <value>")
		}
		sealed, nonce, err := v.Seal([]byte(args[2]))
		if err != nil {
			return err
		}
		if err := db.SaveSecret(&store.Secret{Name: args[1], Value: sealed, Nonce: nonce}); err != nil {
			return err
		}
		fmt.Printf("secret %q saved\n", args[1])
	case "get":
		if len(args) != 2 {
			return fmt.Errorf("usage: vibe secret get <name>")
		}
		plain, err := v.Resolve(storeLookup(db), "secret:"+args[1])
		if err != nil {
			return err
		}
		fmt.Println(plain)
	case "list":
		names, err := db.ListSecretNames()
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Println(name)
		}
	case "delete":
		if len(args) != 2 {
			return fmt.Errorf("usage: vibe secret delete <name>")
		}
		if err := db.DeleteSecret(args[1]); err != nil {
			return err
		}
		fmt.Printf("secret %q deleted\n", args[1])
	default:
		return fmt.Errorf("unknown secret command: %s", args[0])
	}
	return nil
}
