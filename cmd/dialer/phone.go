// Copyright (c) 2026 Buttdialer. All rights reserved.
// Author: Buttdialer contributors

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/FarisAlahmad714/Buttdialer/internal/auth"
	"github.com/FarisAlahmad714/Buttdialer/internal/journal"
	"github.com/FarisAlahmad714/Buttdialer/internal/platform/constants"
	"github.com/FarisAlahmad714/Buttdialer/internal/softphone"
)

// shellCommand is one parsed line of the phone shell.
type shellCommand struct {
	name string
	arg  string
}

const shellHelp = `commands: call <number> | accept | reject | hangup | mute | unmute | status | recent [n] | help | quit`

// parseShellCommand splits a line into a command and its argument.
func parseShellCommand(line string) (shellCommand, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return shellCommand{}, false
	}
	return shellCommand{
		name: strings.ToLower(fields[0]),
		arg:  strings.Join(fields[1:], " "),
	}, true
}

func newPhoneCommand(appRef func() *app, input *bufio.Reader) *cobra.Command {
	return &cobra.Command{
		Use:   "phone",
		Short: "Start the softphone and handle calls interactively",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPhone(cmd.Context(), appRef(), input, cmd.OutOrStdout())
		},
	}
}

// runPhone initializes the softphone and runs the shell until quit, end of
// input, a signal, or session expiry.
func runPhone(ctx context.Context, application *app, input *bufio.Reader, out io.Writer) error {
	if _, err := application.requireSession(); err != nil {
		return err
	}

	// ── 1. Cross-process session sync ─────────────────────────────────────
	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	if err := application.sessions.WatchStorage(watchCtx); err != nil {
		application.log.WarnContext(ctx, "session_watch_unavailable", slog.Any("error", err))
	}

	// ── 2. Journal ────────────────────────────────────────────────────────
	store, err := application.openJournal(ctx)
	if err != nil {
		return err
	}
	var recorder *journal.Recorder
	if store != nil {
		recorder = journal.NewRecorder(store, application.log)
	}

	// ── 3. Softphone ──────────────────────────────────────────────────────
	adapter := application.newAdapter()
	onStatus := func(status softphone.Status, call softphone.Call) {
		if recorder != nil {
			recorder.Observe(status, call)
		}
		printStatus(out, status, call)
	}
	if err := adapter.Initialize(ctx, onStatus); err != nil {
		return errors.New(userMessage(err))
	}
	defer adapter.Disconnect(context.WithoutCancel(ctx))

	// A logout elsewhere ends the shell like an expired session does.
	application.sessions.Subscribe(func(session auth.Session) {
		if !session.IsAuthenticated {
			application.expire()
		}
	})

	fmt.Fprintln(out, shellHelp)

	// ── 4. Shell loop ─────────────────────────────────────────────────────
	lines := make(chan string)
	done := make(chan struct{})
	defer close(done)
	go func() {
		defer close(lines)
		for {
			line, err := input.ReadString('\n')
			if line != "" {
				select {
				case lines <- line:
				case <-done:
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-application.expired:
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			command, ok := parseShellCommand(line)
			if !ok {
				continue
			}
			if command.name == "quit" || command.name == "exit" {
				return nil
			}
			if err := runShellCommand(ctx, adapter, store, command, out); err != nil {
				fmt.Fprintln(out, "error:", userMessage(err))
			}
		}
	}
}

// runShellCommand executes one shell command.
func runShellCommand(ctx context.Context, adapter *softphone.Adapter, store journal.Store, command shellCommand, out io.Writer) error {
	switch command.name {
	case "call", "dial":
		if command.arg == "" {
			return errors.New("usage: call <number>")
		}
		placeCtx, cancel := context.WithTimeout(ctx, constants.CallPlacementTimeout)
		defer cancel()
		_, err := adapter.MakeCall(placeCtx, command.arg)
		return err
	case "accept", "answer":
		return adapter.AcceptCall()
	case "reject":
		return adapter.RejectCall()
	case "hangup":
		return adapter.Hangup()
	case "mute":
		return adapter.Mute()
	case "unmute":
		return adapter.Unmute()
	case "status":
		session := adapter.Session()
		fmt.Fprintf(out, "status=%s call=%s muted=%t connected=%t\n",
			session.Status, adapter.CallStatus(), session.Muted, adapter.IsConnected())
		return nil
	case "recent":
		return printRecent(ctx, store, command.arg, out)
	case "help":
		fmt.Fprintln(out, shellHelp)
		return nil
	default:
		return fmt.Errorf("unknown command %q", command.name)
	}
}

func printStatus(out io.Writer, status softphone.Status, call softphone.Call) {
	if call == nil {
		fmt.Fprintf(out, "[%s]\n", status)
		return
	}
	fmt.Fprintf(out, "[%s] %s %s\n", status, call.Direction(), call.Remote())
}

func printRecent(ctx context.Context, store journal.Store, arg string, out io.Writer) error {
	if store == nil {
		return errors.New("call journal is disabled")
	}
	limit := constants.RecentCallsLimit
	if arg != "" {
		parsed, err := strconv.Atoi(arg)
		if err != nil || parsed <= 0 {
			return fmt.Errorf("invalid count %q", arg)
		}
		limit = parsed
	}

	entries, err := store.Recent(ctx, limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "No recent calls.")
		return nil
	}

	table := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(table, "STARTED\tDIRECTION\tNUMBER\tSTATUS\tDURATION")
	for _, entry := range entries {
		fmt.Fprintf(table, "%s\t%s\t%s\t%s\t%ds\n",
			entry.StartedAt.Local().Format(time.DateTime),
			entry.Direction,
			entry.Number,
			entry.Status,
			entry.Duration,
		)
	}
	return table.Flush()
}
