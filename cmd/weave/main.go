// Command weave drives a replica.Replica from a line-oriented script of
// commands, for manual exercising and demos. Grounded on the flag-driven
// main() in asadovsky-goatee's OT server (server/main.go), adapted from a
// network-serving main to a synchronous script runner since this core has
// no transport of its own.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"weavecore/atomid"
	"weavecore/replica"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"
)

func main() {
	app := &cli.App{
		Name:  "weave",
		Usage: "drive a weavecore replica from a script of insert/remove/text commands",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "source",
				Value: "cli",
				Usage: "replica source id embedded in every minted atom id",
			},
			&cli.StringFlag{
				Name:  "script",
				Usage: "path to a script file; defaults to stdin",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "log each applied op at debug level",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	level := zerolog.WarnLevel
	if c.Bool("verbose") {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger().Level(level)

	r := replica.New(replica.Configuration{Source: c.String("source"), Log: &log})

	in := os.Stdin
	if path := c.String("script"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return xerrors.Errorf("weave: opening script %q: %w", path, err)
		}
		defer f.Close()
		in = f
	}

	return runScript(r, in, os.Stdout)
}

// runScript reads one command per line:
//
//	insert <afterID> <text>   — insert text right after the atom named afterID
//	insert BASE <text>        — BASE is shorthand for the fixed base atom id
//	remove <id>               — remove the atom with the given id
//	text                      — print the replica's current text
//
// Blank lines and lines starting with "#" are ignored.
func runScript(r *replica.Replica, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := runLine(r, line, out); err != nil {
			return xerrors.Errorf("weave: line %d: %q: %w", lineNo, line, err)
		}
	}
	return scanner.Err()
}

func runLine(r *replica.Replica, line string, out io.Writer) error {
	fields := strings.SplitN(line, " ", 3)
	switch fields[0] {
	case "insert":
		if len(fields) != 3 {
			return xerrors.Errorf("usage: insert <afterID> <text>")
		}
		after := parseID(fields[1])
		_, err := r.InsertCharsAt(after, fields[2], nil)
		return err
	case "remove":
		if len(fields) != 2 {
			return xerrors.Errorf("usage: remove <id>")
		}
		id := parseID(fields[1])
		_, err := r.RmChars(map[atomid.ID]struct{}{id: {}})
		return err
	case "text":
		_, err := fmt.Fprintln(out, r.Text())
		return err
	default:
		return xerrors.Errorf("unrecognized command %q", fields[0])
	}
}

func parseID(s string) atomid.ID {
	if s == "BASE" {
		return atomid.Base
	}
	return atomid.ID(s)
}
