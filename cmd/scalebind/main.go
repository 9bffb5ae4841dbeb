// scalebind inspects schema description files: it lists entities, computes
// schema digests, derives storage keys and checks embedded digests against
// a live schema, all without contacting a node.
package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/clydemeng/scalebind/metadata"
	"github.com/clydemeng/scalebind/storage"
)

var (
	entityFlag = &cli.StringSliceFlag{
		Name:  "entity",
		Usage: "restrict the digest to the named entity (repeatable)",
	}
	interfaceFlag = &cli.StringSliceFlag{
		Name:  "interface",
		Usage: "restrict the digest to the named interface (repeatable)",
	}
	digestFlag = &cli.StringFlag{
		Name:     "digest",
		Usage:    "expected 32-byte digest, hex encoded",
		Required: true,
	}
)

func main() {
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		color.NoColor = true
	}
	app := &cli.App{
		Name:  "scalebind",
		Usage: "inspect schema descriptions, digests and storage keys",
		Commands: []*cli.Command{
			entitiesCommand,
			digestCommand,
			storageKeyCommand,
			verifyCommand,
			auditCommand,
			watchCommand,
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func schemaFromArgs(ctx *cli.Context) (*metadata.Schema, string, error) {
	path := ctx.Args().First()
	if path == "" {
		return nil, "", fmt.Errorf("schema file argument required")
	}
	s, err := metadata.LoadFile(path)
	if err != nil {
		return nil, "", err
	}
	return s, path, nil
}

var entitiesCommand = &cli.Command{
	Name:      "entities",
	Usage:     "list the entities and interfaces a schema declares",
	ArgsUsage: "<schema file>",
	Action: func(ctx *cli.Context) error {
		s, _, err := schemaFromArgs(ctx)
		if err != nil {
			return err
		}
		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Entity", "Index", "Operations", "Storage items"})
		for _, e := range s.Entities {
			table.Append([]string{
				e.Name,
				fmt.Sprintf("%d", e.Index),
				fmt.Sprintf("%d", len(e.Operations)),
				fmt.Sprintf("%d", len(e.StorageItems)),
			})
		}
		table.Render()
		if len(s.Interfaces) > 0 {
			table = tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"Interface", "Methods"})
			for _, i := range s.Interfaces {
				table.Append([]string{i.Name, fmt.Sprintf("%d", len(i.Methods))})
			}
			table.Render()
		}
		return nil
	},
}

var digestCommand = &cli.Command{
	Name:      "digest",
	Usage:     "compute the digest of a schema subset (everything by default)",
	ArgsUsage: "<schema file>",
	Flags:     []cli.Flag{entityFlag, interfaceFlag},
	Action: func(ctx *cli.Context) error {
		s, _, err := schemaFromArgs(ctx)
		if err != nil {
			return err
		}
		h, err := subsetDigest(ctx, s)
		if err != nil {
			return err
		}
		fmt.Printf("0x%x\n", h)
		return nil
	},
}

func subsetDigest(ctx *cli.Context, s *metadata.Schema) ([32]byte, error) {
	sub := metadata.Subset{
		Entities:   ctx.StringSlice("entity"),
		Interfaces: ctx.StringSlice("interface"),
	}
	if len(sub.Entities) == 0 && len(sub.Interfaces) == 0 {
		sub = metadata.All(s)
	}
	return metadata.NewDigester(s).Digest(sub)
}

var storageKeyCommand = &cli.Command{
	Name:      "storage-key",
	Usage:     "derive the lookup key for a storage item",
	ArgsUsage: "<schema file> <entity> <item> [key literal]...",
	Description: `Key literals are typed as kind:value, e.g. u32:42, u64:7,
u128:1000000000000, compact:12, bool:true, hex:0xdeadbeef, str:alice.`,
	Action: func(ctx *cli.Context) error {
		s, _, err := schemaFromArgs(ctx)
		if err != nil {
			return err
		}
		args := ctx.Args().Slice()
		if len(args) < 3 {
			return fmt.Errorf("usage: storage-key <schema file> <entity> <item> [key literal]...")
		}
		keys := make([]any, 0, len(args)-3)
		for _, lit := range args[3:] {
			v, err := parseKeyLiteral(lit)
			if err != nil {
				return err
			}
			keys = append(keys, v)
		}
		key, err := storage.NewAddress(args[1], args[2], keys...).Key(s)
		if err != nil {
			return err
		}
		fmt.Printf("0x%x\n", key)
		return nil
	},
}

var verifyCommand = &cli.Command{
	Name:      "verify",
	Usage:     "check an embedded digest against the live schema",
	ArgsUsage: "<schema file>",
	Flags:     []cli.Flag{digestFlag, entityFlag, interfaceFlag},
	Action: func(ctx *cli.Context) error {
		s, _, err := schemaFromArgs(ctx)
		if err != nil {
			return err
		}
		embedded, err := parseDigest(ctx.String("digest"))
		if err != nil {
			return err
		}
		live, err := subsetDigest(ctx, s)
		if err != nil {
			return err
		}
		if live != embedded {
			color.Red("MISMATCH")
			fmt.Printf("embedded 0x%x\nlive     0x%x\n", embedded, live)
			return cli.Exit("", 1)
		}
		color.Green("OK")
		return nil
	},
}

var auditCommand = &cli.Command{
	Name:      "audit",
	Usage:     "compute each entity's digest",
	ArgsUsage: "<schema file>",
	Action: func(ctx *cli.Context) error {
		s, _, err := schemaFromArgs(ctx)
		if err != nil {
			return err
		}
		d := metadata.NewDigester(s)
		names := s.EntityNames()
		digests := make([][32]byte, len(names))

		var g errgroup.Group
		for i, name := range names {
			i, name := i, name
			g.Go(func() error {
				h, err := d.EntityDigest(name)
				if err != nil {
					return err
				}
				digests[i] = h
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Entity", "Digest"})
		for i, name := range names {
			table.Append([]string{name, fmt.Sprintf("0x%x", digests[i])})
		}
		table.Render()
		return nil
	},
}

var watchCommand = &cli.Command{
	Name:      "watch",
	Usage:     "recompute the schema digest whenever the file changes",
	ArgsUsage: "<schema file>",
	Action: func(ctx *cli.Context) error {
		s, path, err := schemaFromArgs(ctx)
		if err != nil {
			return err
		}
		printDigest := func(s *metadata.Schema) {
			h, err := metadata.NewDigester(s).Digest(metadata.All(s))
			if err != nil {
				fmt.Fprintln(os.Stderr, "Error:", err)
				return
			}
			fmt.Printf("%s 0x%x\n", path, h)
		}
		printDigest(s)

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return err
		}
		defer watcher.Close()
		if err := watcher.Add(path); err != nil {
			return err
		}
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				reloaded, err := metadata.LoadFile(path)
				if err != nil {
					fmt.Fprintln(os.Stderr, "Error:", err)
					continue
				}
				printDigest(reloaded)
			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				fmt.Fprintln(os.Stderr, "Error:", err)
			}
		}
	},
}

func parseDigest(s string) ([32]byte, error) {
	var out [32]byte
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return out, fmt.Errorf("invalid digest hex: %w", err)
	}
	if len(b) != 32 {
		return out, fmt.Errorf("digest must be 32 bytes, got %d", len(b))
	}
	copy(out[:], b)
	return out, nil
}
