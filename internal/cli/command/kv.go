// Package command provides CLI command definitions for veildir.
package command

import (
	"errors"
	"fmt"
	"sort"

	"github.com/urfave/cli/v2"

	"github.com/veildir/veildir-go/internal/core/domain"
)

// KeysCommand lists raw backend keys.
func KeysCommand() *cli.Command {
	return &cli.Command{
		Name:      "keys",
		Usage:     "List raw backend keys, optionally filtered by prefix",
		ArgsUsage: "[prefix]",
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

			keys, err := backend.Keys(c.Args().First())
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

// GetCommand prints the raw value stored under a key.
func GetCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Print the raw value stored under a key",
		ArgsUsage: "<key>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return errors.New("get requires exactly one key argument")
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

			value, found, err := backend.Get(c.Args().First())
			if err != nil {
				return err
			}
			if !found {
				return domain.ErrDocumentNotFound.WithDetails(c.Args().First())
			}
			fmt.Fprintln(c.App.Writer, value)
			return nil
		},
	}
}

// DelCommand removes a key from the backend.
func DelCommand() *cli.Command {
	return &cli.Command{
		Name:      "del",
		Usage:     "Remove a key from the backend",
		ArgsUsage: "<key>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return errors.New("del requires exactly one key argument")
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

			if err := acquireWriteLock(backend); err != nil {
				return err
			}
			defer backend.Unlock()

			return backend.Delete(c.Args().First())
		},
	}
}
