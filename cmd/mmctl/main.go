// Command mmctl drives a running MicroMind server.
//
// Usage:
//
//	mmctl [-server URL] health
//	mmctl [-server URL] modules
//	mmctl [-server URL] add KIND [NAME]
//	mmctl [-server URL] remove NAME
//	mmctl [-server URL] process TEXT...
//	mmctl [-server URL] submit TEXT...
//	mmctl [-server URL] upload FILE
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/GriffinCanCode/MicroMind/backend/internal/client"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "mmctl: %v\n", err)
		os.Exit(1)
	}
}

var errUsage = errors.New("usage: mmctl [-server URL] health|modules|add|remove|process|submit|upload [args]")

func run(ctx context.Context, args []string, out io.Writer) error {
	cfg := client.DefaultConfig()

	fs := flag.NewFlagSet("mmctl", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&cfg.BaseURL, "server", envOr("MICROMIND_URL", cfg.BaseURL), "Server base URL")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Request timeout")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() == 0 {
		return errUsage
	}

	c := client.New(cfg)
	cmd, rest := fs.Arg(0), fs.Args()[1:]

	switch cmd {
	case "health":
		h, err := c.Health(ctx)
		if err != nil {
			return err
		}
		return printJSON(out, h)

	case "modules":
		list, err := c.Modules(ctx)
		if err != nil {
			return err
		}
		return printJSON(out, list)

	case "add":
		if len(rest) < 1 || len(rest) > 2 {
			return errUsage
		}
		var name string
		if len(rest) == 2 {
			name = rest[1]
		}
		return c.AddModule(ctx, rest[0], name)

	case "remove":
		if len(rest) != 1 {
			return errUsage
		}
		return c.RemoveModule(ctx, rest[0])

	case "process":
		if len(rest) == 0 {
			return errUsage
		}
		rec, err := c.Process(ctx, strings.Join(rest, " "))
		if rec != nil {
			if perr := printJSON(out, rec); perr != nil {
				return perr
			}
		}
		return err

	case "upload":
		if len(rest) != 1 {
			return errUsage
		}
		body, err := os.ReadFile(rest[0])
		if err != nil {
			return err
		}
		rec, err := c.ProcessRaw(ctx, body, mime.TypeByExtension(filepath.Ext(rest[0])))
		if rec != nil {
			if perr := printJSON(out, rec); perr != nil {
				return perr
			}
		}
		return err

	case "submit":
		if len(rest) == 0 {
			return errUsage
		}
		rid, err := c.Submit(ctx, strings.Join(rest, " "))
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, rid)
		return err

	default:
		return errUsage
	}
}

func printJSON(out io.Writer, v any) error {
	data, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "%s\n", data)
	return err
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
