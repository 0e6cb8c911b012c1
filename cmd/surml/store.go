package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/surrealdb/surrealml/pkg/errors"
	"github.com/surrealdb/surrealml/storage"
	"github.com/surrealdb/surrealml/storage/store"
)

func runStore(ctx context.Context, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return usageError("store requires a subcommand: put|get|list|rm")
	}

	fs, setup := newFlagSet("store " + args[0])
	storeKind := fs.String("store", "sqlite", "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "surml.db", "sqlite database path")
	id := fs.String("id", "", "container id")
	path := fs.String("file", "", "container file (put: source, get: destination)")
	if err := parse(fs, setup, args[1:]); err != nil {
		return err
	}

	s, err := store.NewStore(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = store.CloseIfSupported(s)
	}()
	if err := s.Init(ctx); err != nil {
		return err
	}

	switch args[0] {
	case "put":
		if *id == "" || *path == "" {
			return usageError("store put requires --id and --file")
		}
		file, err := storage.FromFile(*path)
		if err != nil {
			return err
		}
		if err := s.Save(ctx, *id, file); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "stored %s\n", *id)
	case "get":
		if *id == "" || *path == "" {
			return usageError("store get requires --id and --file")
		}
		file, ok, err := s.Get(ctx, *id)
		if err != nil {
			return err
		}
		if !ok {
			return errors.NewNotFound("cli.store", "container %s not found", *id)
		}
		if err := file.Write(*path); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "wrote %s\n", *path)
	case "list":
		records, err := s.List(ctx)
		if err != nil {
			return err
		}
		for _, rec := range records {
			fmt.Fprintf(stdout, "%s\t%s\t%s\t%s\t%s\n",
				rec.ID, rec.Name, rec.Version, humanize.Bytes(uint64(rec.Size)), rec.UpdatedAt.Format(time.RFC3339))
		}
	case "rm":
		if *id == "" {
			return usageError("store rm requires --id")
		}
		deleted, err := s.Delete(ctx, *id)
		if err != nil {
			return err
		}
		if !deleted {
			return errors.NewNotFound("cli.store", "container %s not found", *id)
		}
		fmt.Fprintf(stdout, "removed %s\n", *id)
	default:
		return usageError(fmt.Sprintf("unknown store command: %s", args[0]))
	}
	return nil
}
