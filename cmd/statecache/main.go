// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/poiesic/statecache/audit"
	"github.com/poiesic/statecache/core"
	"github.com/poiesic/statecache/crypt"
	"github.com/poiesic/statecache/storage"
	"github.com/poiesic/statecache/storage/badger"
	"github.com/urfave/cli/v2"
	"golang.org/x/crypto/scrypt"
)

// scrypt parameters for deriving the master secret from a passphrase. The
// salt is a fixed application constant: the threat model is casual
// inspection of the cache files, not an offline attack on the passphrase.
const (
	scryptN       = 1 << 15
	scryptR       = 8
	scryptP       = 1
	scryptSaltCtx = "statecache.scrypt.v1"
)

func main() {
	app := &cli.App{
		Name:  "statecache",
		Usage: "Inspect and maintain encrypted state caches",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "roots",
				Usage:  "Print the three root container handles",
				Action: rootsCommand,
				Flags:  cacheFlags(),
			},
			{
				Name:      "children",
				Usage:     "List the child handles of a parent node",
				ArgsUsage: "<parent-handle>",
				Action:    childrenCommand,
				Flags:     cacheFlags(),
			},
			{
				Name:      "counts",
				Usage:     "Print file/folder/total counts under a parent node",
				ArgsUsage: "<parent-handle>",
				Action:    countsCommand,
				Flags:     cacheFlags(),
			},
			{
				Name:   "audit",
				Usage:  "Verify that every cached node payload still decrypts",
				Action: auditCommand,
				Flags: append(cacheFlags(),
					&cli.IntFlag{
						Name:  "pool-size",
						Usage: "Number of concurrent verification workers",
					},
				),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func cacheFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "db",
			Aliases:  []string{"d"},
			Usage:    "Path to the cache database directory",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "passphrase",
			Usage: "Passphrase the master secret is derived from",
		},
		&cli.StringFlag{
			Name:  "master-hex",
			Usage: "Master secret as hex (16..64 bytes), overrides --passphrase",
		},
	}
}

func setupLogger(c *cli.Context) error {
	var level slog.Level
	switch strings.ToLower(c.String("log-level")) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("unknown log level %q", c.String("log-level"))
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
	return nil
}

func masterSecret(c *cli.Context) ([]byte, error) {
	if h := c.String("master-hex"); h != "" {
		master, err := hex.DecodeString(h)
		if err != nil {
			return nil, fmt.Errorf("invalid --master-hex: %w", err)
		}
		return master, nil
	}
	pass := c.String("passphrase")
	if pass == "" {
		return nil, fmt.Errorf("either --passphrase or --master-hex is required")
	}
	return scrypt.Key([]byte(pass), []byte(scryptSaltCtx), scryptN, scryptR, scryptP, 32)
}

func openTable(c *cli.Context) (*storage.Table, *badger.Backend, error) {
	master, err := masterSecret(c)
	if err != nil {
		return nil, nil, err
	}
	keys, err := crypt.DeriveKeys(master)
	if err != nil {
		return nil, nil, err
	}
	backend, err := badger.OpenBackend(c.String("db"), false)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open cache: %w", err)
	}
	table := storage.NewTable(backend, storage.WithKeys(keys))
	return table, backend, nil
}

func parseHandle(arg string) (core.Handle, error) {
	v, err := strconv.ParseUint(arg, 0, 64)
	if err != nil {
		return core.UndefHandle, fmt.Errorf("invalid handle %q: %w", arg, err)
	}
	return core.Handle(v), nil
}

func rootsCommand(c *cli.Context) error {
	table, backend, err := openTable(c)
	if err != nil {
		return err
	}
	defer backend.Close()
	defer table.Close()

	roots, err := table.GetRoots()
	if err != nil {
		return fmt.Errorf("failed to read root handles: %w", err)
	}
	names := []string{"files", "inbox", "rubbish"}
	for i, h := range roots {
		fmt.Printf("%-8s %#016x\n", names[i], uint64(h))
	}
	return nil
}

func childrenCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one parent handle argument")
	}
	parent, err := parseHandle(c.Args().First())
	if err != nil {
		return err
	}

	table, backend, err := openTable(c)
	if err != nil {
		return err
	}
	defer backend.Close()
	defer table.Close()

	handles, err := table.ChildHandles(parent)
	if err != nil {
		return fmt.Errorf("failed to list children: %w", err)
	}
	for _, h := range handles {
		fmt.Printf("%#016x\n", uint64(h))
	}
	return nil
}

func countsCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one parent handle argument")
	}
	parent, err := parseHandle(c.Args().First())
	if err != nil {
		return err
	}

	table, backend, err := openTable(c)
	if err != nil {
		return err
	}
	defer backend.Close()
	defer table.Close()

	files, err := table.ChildFileCount(parent)
	if err != nil {
		return err
	}
	folders, err := table.ChildFolderCount(parent)
	if err != nil {
		return err
	}
	total, err := table.ChildCount(parent)
	if err != nil {
		return err
	}

	fmt.Printf("files:   %d\nfolders: %d\ntotal:   %d\n", files, folders, total)
	return nil
}

func auditCommand(c *cli.Context) error {
	table, backend, err := openTable(c)
	if err != nil {
		return err
	}
	defer backend.Close()
	defer table.Close()

	var opts []audit.Option
	if size := c.Int("pool-size"); size > 0 {
		opts = append(opts, audit.WithPoolSize(size))
	}
	scanner, err := audit.NewScanner(table, opts...)
	if err != nil {
		return err
	}
	defer scanner.Release()

	report, err := scanner.Scan(context.Background())
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "scanned %d nodes, %d corrupt\n", report.Scanned, len(report.Corrupt))
	for _, h := range report.Corrupt {
		fmt.Printf("%#016x\n", uint64(h))
	}
	if len(report.Corrupt) > 0 {
		return cli.Exit("cache integrity check failed", 1)
	}
	return nil
}
