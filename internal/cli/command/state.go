// Package command provides CLI command definitions for veildir.
package command

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/urfave/cli/v2"

	"github.com/veildir/veildir-go/internal/core/domain"
	"github.com/veildir/veildir-go/internal/storage"
	"github.com/veildir/veildir-go/internal/storage/statemgr"
)

// StateCommand inspects and edits persisted client state.
func StateCommand() *cli.Command {
	return &cli.Command{
		Name:  "state",
		Usage: "Inspect and edit persisted client state",
		Subcommands: []*cli.Command{
			stateListCommand(),
			stateGetCommand(),
			stateSetCommand(),
		},
	}
}

func stateListCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List state keys",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			log := newLogger(cfg)

			backend, closeFn, err := openBackend(cfg, log)
			if err != nil {
				return err
			}
			defer closeFn()

			keys, err := storage.StateView(backend).Keys("")
			if err != nil {
				return err
			}
			sort.Strings(keys)

			if c.String("output") != "table" {
				return formatter(c).Format(c.App.Writer, keys)
			}
			for _, k := range keys {
				fmt.Fprintln(c.App.Writer, k)
			}
			return nil
		},
	}
}

func stateGetCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Print a state value",
		ArgsUsage: "<key>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return errors.New("state get requires exactly one key argument")
			}
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			log := newLogger(cfg)

			backend, closeFn, err := openBackend(cfg, log)
			if err != nil {
				return err
			}
			defer closeFn()

			mgr := statemgr.NewKVStateMgr(storage.StateView(backend))

			var raw json.RawMessage
			found, err := mgr.Load(c.Args().First(), &raw)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("state key not found: %s", c.Args().First())
			}
			fmt.Fprintln(c.App.Writer, string(raw))
			return nil
		},
	}
}

func stateSetCommand() *cli.Command {
	return &cli.Command{
		Name:      "set",
		Usage:     "Store a JSON value under a state key",
		ArgsUsage: "<key> <json>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return errors.New("state set requires a key and a JSON value")
			}
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			log := newLogger(cfg)

			backend, closeFn, err := openBackend(cfg, log)
			if err != nil {
				return err
			}
			defer closeFn()

			var raw json.RawMessage
			if err := json.Unmarshal([]byte(c.Args().Get(1)), &raw); err != nil {
				return fmt.Errorf("value is not valid JSON: %w", err)
			}

			mgr := statemgr.NewKVStateMgr(storage.StateView(backend))
			status, err := mgr.TryLock()
			if err != nil {
				return fmt.Errorf("acquire write lock: %w", err)
			}
			if !status.Held() {
				return domain.ErrLockConflict
			}
			defer mgr.Unlock()

			return mgr.Store(c.Args().First(), raw)
		},
	}
}
