// Command modelrepl is an interactive shell around a single model.
//
// It loads a definition document, creates a model from it and prints every
// event the model fires:
//
//	modelrepl -def user.yaml -db models.db -attrs '{"id": 1}'
//	> set name "ada"
//	  ~ change:name "ada"
//	  ~ change
//	> save
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/chzyer/readline"

	"github.com/randalmurphal/observable/pkg/observable"
	"github.com/randalmurphal/observable/pkg/observable/config"
	"github.com/randalmurphal/observable/pkg/observable/store"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("modelrepl", flag.ContinueOnError)
	defPath := fs.String("def", "", "definition document (.yaml, .yml or .json)")
	dbPath := fs.String("db", "", "SQLite snapshot database; enables save, fetch and persisted destroy")
	attrsJSON := fs.String("attrs", "", "initial attributes as a JSON object")
	retryPath := fs.String("retry", "", "optional document with a \"retry\" section")
	verbose := fs.Bool("v", false, "log model activity to stderr")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *defPath == "" {
		fs.Usage()
		return errors.New("-def is required")
	}

	def, err := observable.LoadDefinition(*defPath)
	if err != nil {
		return err
	}
	if *verbose {
		def.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	var attrs observable.Attributes
	if *attrsJSON != "" {
		if err := json.Unmarshal([]byte(*attrsJSON), &attrs); err != nil {
			return fmt.Errorf("parse -attrs: %w", err)
		}
	}

	var persister *store.Persister
	if *dbPath != "" {
		s, err := store.NewSQLiteStore(*dbPath)
		if err != nil {
			return err
		}
		defer s.Close()

		retry := store.DefaultRetry
		if *retryPath != "" {
			cfg, err := config.FromFile(*retryPath)
			if err != nil {
				return err
			}
			retry = store.RetryConfigFrom(cfg.Section("retry"))
		}
		persister = store.NewPersister(s, store.WithRetry(retry), store.WithLogger(def.Logger))
	}

	rl, err := readline.New(def.Name + "> ")
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	sh := newShell(rl.Stdout(), def, attrs, persister)
	fmt.Fprintf(rl.Stdout(), "model %s (%s). Type 'help' for commands.\n", sh.model.CID(), def.Name)

	ctx := context.Background()
	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("failed to read input: %w", err)
		}
		quit, err := sh.exec(ctx, strings.TrimSpace(line))
		if err != nil {
			fmt.Fprintf(rl.Stdout(), "error: %v\n", err)
		}
		if quit {
			return nil
		}
	}
}
