package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/randalmurphal/observable/pkg/observable"
	"github.com/randalmurphal/observable/pkg/observable/event"
	"github.com/randalmurphal/observable/pkg/observable/store"
)

const helpText = `commands:
  set <key> <value> [--silent] [--validate]   value is JSON, or a bare string
  unset <key> [--silent]
  get <key>
  clear [--silent]
  changed                  attributes changed by the last mutation
  prev <key>               value before the last mutation
  json                     current attributes
  valid                    run the validator
  save | fetch | list      snapshot store (needs -db)
  destroy [--wait]
  help | quit`

var errNoStore = errors.New("no snapshot store; start with -db")

type shell struct {
	out       io.Writer
	def       *observable.Definition
	model     *observable.Model
	persister *store.Persister
}

func newShell(out io.Writer, def *observable.Definition, attrs observable.Attributes, persister *store.Persister) *shell {
	s := &shell{out: out, def: def, persister: persister}
	s.model = observable.New(def, attrs)
	s.model.On(event.All, event.Func(s.printEvent), nil)
	return s
}

// printEvent writes one event line, leaving out the model and options.
func (s *shell) printEvent(args ...any) {
	name := args[0].(string)
	var parts []string
	for _, a := range args[1:] {
		switch v := a.(type) {
		case *observable.Model, *observable.Options:
			continue
		case error:
			parts = append(parts, v.Error())
		default:
			parts = append(parts, formatValue(v))
		}
	}
	if len(parts) == 0 {
		fmt.Fprintf(s.out, "  ~ %s\n", name)
		return
	}
	fmt.Fprintf(s.out, "  ~ %s %s\n", name, strings.Join(parts, " "))
}

// exec runs one command line. quit is true after "quit".
func (s *shell) exec(ctx context.Context, line string) (quit bool, err error) {
	fields, flags := splitFlags(strings.Fields(line))
	if len(fields) == 0 {
		return false, nil
	}
	var opts []observable.Option
	if flags["silent"] {
		opts = append(opts, observable.Silent())
	}
	if flags["validate"] {
		opts = append(opts, observable.Validate())
	}
	opts = append(opts, observable.WithContext(ctx))

	cmd, rest := fields[0], fields[1:]
	switch cmd {
	case "help":
		fmt.Fprintln(s.out, helpText)
	case "quit", "exit", "q":
		return true, nil
	case "set":
		if len(rest) < 2 {
			return false, errors.New("usage: set <key> <value>")
		}
		if !s.model.Set(rest[0], parseValue(strings.Join(rest[1:], " ")), opts...) {
			fmt.Fprintln(s.out, "rejected")
		}
	case "unset":
		if len(rest) != 1 {
			return false, errors.New("usage: unset <key>")
		}
		s.model.Unset(rest[0], opts...)
	case "get":
		if len(rest) != 1 {
			return false, errors.New("usage: get <key>")
		}
		v, ok := s.model.Lookup(rest[0])
		if !ok {
			fmt.Fprintln(s.out, "(absent)")
			return false, nil
		}
		fmt.Fprintln(s.out, formatValue(v))
	case "clear":
		s.model.Clear(opts...)
	case "changed":
		changed, ok := s.model.ChangedAttributes()
		if !ok {
			fmt.Fprintln(s.out, "(none)")
			return false, nil
		}
		fmt.Fprintln(s.out, formatValue(changed))
	case "prev":
		if len(rest) != 1 {
			return false, errors.New("usage: prev <key>")
		}
		fmt.Fprintln(s.out, formatValue(s.model.Previous(rest[0])))
	case "json":
		fmt.Fprintln(s.out, formatValue(s.model.ToJSON()))
	case "valid":
		fmt.Fprintln(s.out, s.model.IsValid(opts...))
	case "save":
		if s.persister == nil {
			return false, errNoStore
		}
		if err := s.persister.Save(ctx, s.model); err != nil {
			return false, err
		}
		fmt.Fprintln(s.out, "saved")
	case "fetch":
		if s.persister == nil {
			return false, errNoStore
		}
		if _, err := s.persister.Fetch(ctx, s.model, opts...); err != nil {
			return false, err
		}
	case "list":
		if s.persister == nil {
			return false, errNoStore
		}
		infos, err := s.persister.Store().List(s.model.Kind())
		if err != nil {
			return false, err
		}
		for _, info := range infos {
			fmt.Fprintf(s.out, "%d %s (%d bytes)\n", info.Sequence, info.ID, info.Size)
		}
	case "destroy":
		if s.persister != nil {
			opts = append(opts, observable.WithPersister(s.persister))
		}
		if flags["wait"] {
			opts = append(opts, observable.Wait())
		}
		return false, s.model.Destroy(opts...)
	default:
		return false, fmt.Errorf("unknown command %q; try help", cmd)
	}
	return false, nil
}

// splitFlags separates --name words from the rest.
func splitFlags(words []string) ([]string, map[string]bool) {
	flags := map[string]bool{}
	out := slices.DeleteFunc(slices.Clone(words), func(w string) bool {
		if name, ok := strings.CutPrefix(w, "--"); ok && name != "" {
			flags[name] = true
			return true
		}
		return false
	})
	return out, flags
}

// parseValue decodes s as JSON, falling back to the raw string.
func parseValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	return v
}

func formatValue(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
