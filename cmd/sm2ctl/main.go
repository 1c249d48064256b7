// Command sm2ctl generates SM2 keys, signs and verifies, either locally or
// against a running sm2-server.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/shlex"

	"github.com/glinharesb/sm2-server/internal/client"
	"github.com/glinharesb/sm2-server/internal/codec"
	"github.com/glinharesb/sm2-server/internal/hsm"
	"github.com/glinharesb/sm2-server/internal/keystore"
	"github.com/glinharesb/sm2-server/internal/signer"
)

func writeErr(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format, a...)
	fmt.Fprintf(os.Stderr, "\n")
}

const usage = `
 * Keys are given inline as 0x-prefixed hex or by the name of a key stored in the system keyring.
 * With -server, keygen, sign and verify run on the remote service; otherwise they run locally.
 * Without a COMMAND, commands are read from stdin one per line.`

func Usage() {
	w := flag.CommandLine.Output()
	fmt.Fprintf(w, "Usage: %s [OPTION...] COMMAND [ARG...]\n", os.Args[0])
	fmt.Fprintf(w, "\nRun %s help COMMAND for more information. Valid COMMANDs are listed below.\n", os.Args[0])
	fmt.Fprintln(w, usage)
	fmt.Fprintln(w, "")

	fmt.Fprintf(w, "Available OPTIONs:\n")
	flag.PrintDefaults()
	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "Available COMMANDs:\n")
	printCommands(w)
}

func printCommands(w io.Writer) {
	maxLength := len("shell")
	var labels []string
	for command := range commands {
		labels = append(labels, command)
		maxLength = max(maxLength, len(command))
	}
	sort.Strings(labels)
	for _, command := range labels {
		fmt.Fprintf(w, "  %s%s %s\n", command, strings.Repeat(" ", maxLength-len(command)), commands[command].help)
	}
	fmt.Fprintf(w, "  shell%s %s\n", strings.Repeat(" ", maxLength-len("shell")), "Read commands from stdin.")
}

func runCommand(env *Env, args []string, timeout time.Duration) int {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := execute(ctx, env, args); err != nil {
		var se *client.StatusError
		switch {
		case errors.As(err, &se):
			writeErr("Server rejected request (%d): %s", se.Code, se.Message)
		case errors.Is(err, codec.ErrMalformedHex):
			writeErr("Invalid hex input: %s", err)
		case errors.Is(err, keystore.ErrKeyNotFound):
			writeErr("No such key: %s", err)
		case errors.Is(err, ErrCommandLineArgs), errors.Is(err, ErrUnknownCommand):
			writeErr("%s", err)
			if info, ok := commands[args[0]]; ok {
				info.Usage(args[0], os.Stderr)
			}
		default:
			writeErr("Failed to execute command: %s", err)
		}
		return 1
	}
	return 0
}

func runInteractiveShell(env *Env, in io.Reader, timeout time.Duration) int {
	scanner := bufio.NewScanner(in)
	for fmt.Fprintf(env.Out, "> "); scanner.Scan(); fmt.Fprintf(env.Out, "> ") {
		args, err := shlex.Split(scanner.Text())
		if len(args) == 0 {
			continue
		}
		if args[0] == "exit" {
			return 0
		}
		if err != nil {
			writeErr("Invalid command: %s", err)
			continue
		}
		if args[0] == "help" {
			printCommands(env.Out)
			continue
		}
		runCommand(env, args, timeout)
	}
	if err := scanner.Err(); err != nil {
		writeErr("Error reading command: %s", err)
		return 1
	}
	return 0
}

func main() {
	status := 1
	defer func() {
		os.Exit(status)
	}()

	var (
		debug          bool
		commandTimeout time.Duration
	)
	config := NewConfig()
	flag.Usage = Usage
	flag.BoolVar(&debug, "debug", false, "Enable verbose debugging messages")
	flag.DurationVar(&commandTimeout, "command-timeout", 10*time.Second, "Set timeout for each command.")
	config.RegisterCommandLineFlags()
	flag.Parse()
	config.ReadFromEnvironment()

	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	env := &Env{
		Keys: config.Store,
		Out:  os.Stdout,
	}
	if config.Server != "" {
		env.Remote = client.New(config.Server, config.AuthToken)
		env.Backend = env.Remote
		slog.Debug("using remote signer", "server", config.Server)
	} else {
		env.Backend = signer.NewService(hsm.NewSoftwareHSM(), nil)
	}

	args := flag.Args()
	if len(args) > 0 && args[0] == "help" {
		if len(args) == 1 {
			Usage()
			status = 0
			return
		}
		info, ok := commands[args[1]]
		if !ok {
			writeErr("Unrecognized command: %s", args[1])
			return
		}
		info.Usage(args[1], os.Stdout)
		status = 0
		return
	}

	if len(args) == 0 || args[0] == "shell" {
		status = runInteractiveShell(env, os.Stdin, commandTimeout)
	} else {
		status = runCommand(env, args, commandTimeout)
	}
}
