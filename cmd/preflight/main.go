// cmd/preflight/main.go
package main

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/multierr"

	"github.com/hamed0406/uptimeengine/internal/config"
	"github.com/hamed0406/uptimeengine/internal/notify"
)

func main() {
	failed := false
	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		failed = true
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	if err := config.LoadDotEnv(".env"); err != nil {
		fail(".env could not be read: " + err.Error())
	}
	cfg := config.FromEnv()
	ok("API_ADDR=" + cfg.Addr)
	if cfg.TickInterval == 0 {
		warn("TICK_INTERVAL_MS=0: scheduling disabled, this instance only serves the API and relay.")
	} else {
		ok(fmt.Sprintf("tick every %s, up to %d concurrent checks", cfg.TickInterval, cfg.MaxChecks))
	}

	switch cfg.StoreDriver {
	case "memory":
		warn("STORE_DRIVER=memory: state is lost on restart.")
	case "redis":
		if cfg.RedisURL == "" {
			fail("STORE_DRIVER=redis but REDIS_URL is empty.")
		} else {
			ok("REDIS_URL present")
		}
	case "postgres":
		if cfg.DatabaseURL == "" {
			fail("STORE_DRIVER=postgres but DATABASE_URL is empty.")
		} else {
			ok("DATABASE_URL present")
		}
	default:
		fail("STORE_DRIVER must be memory, redis or postgres, got " + cfg.StoreDriver)
	}

	f, err := config.Load(cfg.ConfigPath)
	if err != nil {
		for _, e := range multierr.Errors(err) {
			fail(e.Error())
		}
		os.Exit(1)
	}
	ok(fmt.Sprintf("%s: %d monitors, %d maintenance windows", cfg.ConfigPath, len(f.Worker.Monitors), len(f.Maintenances)))

	n := f.Notification
	if n.AppriseAPIServer == "" && n.SlackWebhook == "" && !strings.HasPrefix(n.RecipientURL, "tgram://") {
		warn("no notification sink configured: transitions are recorded but nobody is told.")
	}
	if n.AppriseAPIServer != "" && n.RecipientURL == "" {
		warn("appriseApiServer set without recipientUrl; Apprise is disabled.")
	}
	if n.AppriseAPIServer == "" {
		if _, _, isTG, err := notify.ParseTelegramURL(n.RecipientURL); err != nil {
			fail("recipientUrl: " + err.Error())
		} else if isTG {
			ok("Telegram delivery enabled")
		}
	}
	if f.Worker.PasswordProtection == "" {
		warn("passwordProtection empty: the status API is public.")
		if f.Worker.Relay.Enabled {
			warn("relay.enabled without passwordProtection: anyone can run checks through this instance.")
		}
	}

	if failed {
		os.Exit(1)
	}
	ok("preflight passed")
}
