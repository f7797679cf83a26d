package command

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/veildir/veildir-go/internal/config"
	"github.com/veildir/veildir-go/internal/core/domain"
	"github.com/veildir/veildir-go/internal/storage"
)

func TestApp_Commands(t *testing.T) {
	app := App()

	if app.Name != "veildir" {
		t.Errorf("Name = %q, want veildir", app.Name)
	}

	want := []string{"status", "sweep", "state", "keys", "get", "del"}
	for _, name := range want {
		if app.Command(name) == nil {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestLoadConfig_FlagOverrides(t *testing.T) {
	var cfg *config.Config
	app := &cli.App{
		Flags: globalFlags(),
		Action: func(c *cli.Context) error {
			var err error
			cfg, err = loadConfig(c)
			return err
		},
	}

	err := app.Run([]string{"veildir", "--ephemeral", "--cache-dir", "/custom/cache", "--log-level", "debug"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !cfg.Storage.Ephemeral {
		t.Error("Ephemeral = false, want true from flag")
	}
	if cfg.Storage.CacheDir != "/custom/cache" {
		t.Errorf("CacheDir = %q, want /custom/cache", cfg.Storage.CacheDir)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
}

func TestLoadConfig_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("VEILDIR_LOG_LEVEL", "warn")

	var cfg *config.Config
	app := &cli.App{
		Flags: globalFlags(),
		Action: func(c *cli.Context) error {
			var err error
			cfg, err = loadConfig(c)
			return err
		},
	}

	if err := app.Run([]string{"veildir", "--ephemeral"}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q, want warn from env", cfg.Log.Level)
	}
}

func TestStatusCommand_Ephemeral(t *testing.T) {
	var buf bytes.Buffer
	app := App()
	app.Writer = &buf

	err := app.Run([]string{"veildir", "--ephemeral", "status"})
	if err != nil {
		t.Fatalf("Run(status) error = %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "microdesc") || !strings.Contains(out, "ns") {
		t.Errorf("status output missing flavors:\n%s", out)
	}
	if !strings.Contains(out, "RECORDS") {
		t.Errorf("status output missing record counts:\n%s", out)
	}
}

func TestSweepCommand_EphemeralOnce(t *testing.T) {
	var buf bytes.Buffer
	app := App()
	app.Writer = &buf

	err := app.Run([]string{"veildir", "--ephemeral", "-o", "json", "sweep"})
	if err != nil {
		t.Fatalf("Run(sweep) error = %v", err)
	}
	if !strings.Contains(buf.String(), `"removed": 0`) {
		t.Errorf("sweep output = %q, want removed count", buf.String())
	}
}

func TestGetCommand_Missing(t *testing.T) {
	app := App()
	app.Writer = new(bytes.Buffer)

	err := app.Run([]string{"veildir", "--ephemeral", "get", "dir:protocols"})
	if err == nil {
		t.Fatal("Run(get) error = nil, want key not found")
	}
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Errorf("error = %v, want ErrDocumentNotFound", err)
	}
	if !strings.Contains(err.Error(), "dir:protocols") {
		t.Errorf("error = %v, want the missing key named", err)
	}
}

func TestAcquireWriteLock_Conflict(t *testing.T) {
	backend := storage.NewMemBackend()

	if err := acquireWriteLock(backend); err != nil {
		t.Fatalf("acquireWriteLock() error = %v", err)
	}
	if err := acquireWriteLock(backend); !errors.Is(err, domain.ErrLockConflict) {
		t.Fatalf("second acquireWriteLock() error = %v, want ErrLockConflict", err)
	}
}

func TestStateSetCommand_RejectsInvalidJSON(t *testing.T) {
	app := App()
	app.Writer = new(bytes.Buffer)

	err := app.Run([]string{"veildir", "--ephemeral", "state", "set", "guards", "{not json"})
	if err == nil {
		t.Fatal("Run(state set) error = nil, want invalid JSON error")
	}
	if !strings.Contains(err.Error(), "valid JSON") {
		t.Errorf("error = %v, want invalid JSON message", err)
	}
}

func TestStateSetCommand_Ephemeral(t *testing.T) {
	app := App()
	app.Writer = new(bytes.Buffer)

	err := app.Run([]string{"veildir", "--ephemeral", "state", "set", "guards", `{"version":1}`})
	if err != nil {
		t.Fatalf("Run(state set) error = %v", err)
	}
}

func TestDelCommand_AbsentKeyIsNoop(t *testing.T) {
	app := App()
	app.Writer = new(bytes.Buffer)

	if err := app.Run([]string{"veildir", "--ephemeral", "del", "dir:protocols"}); err != nil {
		t.Fatalf("Run(del) error = %v", err)
	}
}
