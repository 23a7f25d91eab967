// Copyright (c) 2026 Buttdialer. All rights reserved.
// Author: Buttdialer contributors

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/FarisAlahmad714/Buttdialer/internal/apiclient"
	"github.com/FarisAlahmad714/Buttdialer/internal/auth"
	"github.com/FarisAlahmad714/Buttdialer/internal/platform/apperr"
	"github.com/FarisAlahmad714/Buttdialer/internal/platform/config"
	"github.com/FarisAlahmad714/Buttdialer/internal/platform/constants"
)

// newRootCommand builds the command tree. The app is wired once, before the
// selected command runs; the returned func releases it.
func newRootCommand(cfg *config.Config, log *slog.Logger, in io.Reader, out io.Writer) (*cobra.Command, func()) {
	var application *app
	input := bufio.NewReader(in)

	root := &cobra.Command{
		Use:           "dialer",
		Short:         "Buttdialer softphone client",
		Version:       constants.AppVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			application, err = newApp(cmd.Context(), cfg, log, out)
			return err
		},
	}

	appRef := func() *app { return application }
	root.AddCommand(
		newLoginCommand(appRef, input),
		newRegisterCommand(appRef, input),
		newLogoutCommand(appRef),
		newWhoamiCommand(appRef),
		newPhoneCommand(appRef, input),
		newHistoryCommand(appRef),
	)

	release := func() {
		if application != nil {
			application.Close()
		}
	}
	return root, release
}

// readSecret returns flagValue, or prompts for a line on input.
func readSecret(out io.Writer, input *bufio.Reader, prompt, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	fmt.Fprint(out, prompt)
	line, err := input.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// userMessage renders err the way the backend phrased it.
func userMessage(err error) string {
	if appErr := apperr.As(err); appErr != nil {
		return appErr.Message
	}
	return err.Error()
}

// # Session Commands

func newLoginCommand(appRef func() *app, input *bufio.Reader) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and persist the session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			application := appRef()
			secret, err := readSecret(cmd.OutOrStdout(), input, "Password: ", password)
			if err != nil {
				return err
			}
			session, err := application.sessions.Login(cmd.Context(), email, secret)
			if err != nil {
				return errors.New(userMessage(err))
			}
			application.notifier.Success("Signed in as " + session.User.DisplayName())
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted when empty)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newRegisterCommand(appRef func() *app, input *bufio.Reader) *cobra.Command {
	var registration auth.RegisterInput
	var role string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, _ []string) error {
			application := appRef()
			secret, err := readSecret(cmd.OutOrStdout(), input, "Password: ", registration.Password)
			if err != nil {
				return err
			}
			registration.Password = secret
			registration.Role = auth.UserRole(role)

			session, err := application.sessions.Register(cmd.Context(), registration)
			if err != nil {
				return errors.New(userMessage(err))
			}
			application.notifier.Success("Account created for " + session.User.DisplayName())
			return nil
		},
	}
	cmd.Flags().StringVar(&registration.Email, "email", "", "account email")
	cmd.Flags().StringVar(&registration.Password, "password", "", "account password (prompted when empty)")
	cmd.Flags().StringVar(&registration.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&registration.LastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&role, "role", "", "role (agent, supervisor, admin); server default when empty")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCommand(appRef func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the persisted session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			application := appRef()
			if err := application.sessions.Logout(cmd.Context()); err != nil {
				return err
			}
			application.notifier.Info("Signed out")
			return nil
		},
	}
}

func newWhoamiCommand(appRef func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, err := appRef().requireSession()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s <%s> role=%s\n",
				session.User.DisplayName(), session.User.Email, session.User.Role)
			return nil
		},
	}
}

// # History

func newHistoryCommand(appRef func() *app) *cobra.Command {
	var (
		filter     apiclient.HistoryFilter
		from, to   string
		withStats  bool
		everyAgent bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List calls recorded by the backend",
		RunE: func(cmd *cobra.Command, _ []string) error {
			application := appRef()
			session, err := application.requireSession()
			if err != nil {
				return err
			}
			if everyAgent && !session.User.Role.AtLeast(auth.UserRoleAdmin) {
				return fmt.Errorf("--all needs the %s role", auth.UserRoleAdmin)
			}
			if filter.DateFrom, err = parseDate(from); err != nil {
				return err
			}
			if filter.DateTo, err = parseDate(to); err != nil {
				return err
			}

			records, err := application.client.CallHistory(cmd.Context(), filter)
			if err != nil {
				return errors.New(userMessage(err))
			}
			if !everyAgent {
				records = ownCalls(records, session.User)
			}
			printHistory(cmd.OutOrStdout(), records)

			if withStats {
				stats, err := application.client.CallStats(cmd.Context(), filter.DateFrom, filter.DateTo)
				if err != nil {
					return errors.New(userMessage(err))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "\ntotal=%d answered=%d connect_rate=%.1f%% talk_time=%ds avg=%.1fs\n",
					stats.TotalCalls, stats.AnsweredCalls, stats.ConnectRate, stats.TotalDuration, stats.AverageDuration)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&filter.Skip, "skip", 0, "records to skip")
	cmd.Flags().IntVar(&filter.Limit, "limit", 50, "maximum records")
	cmd.Flags().StringVar(&filter.Status, "status", "", "only calls with this status")
	cmd.Flags().StringVar(&from, "from", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "end date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&withStats, "stats", false, "print summary statistics")
	cmd.Flags().BoolVar(&everyAgent, "all", false, "include every agent's calls (admin only)")
	return cmd
}

func parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	date, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", value)
	}
	return date, nil
}

// ownCalls keeps the records placed by user. Admin listings include every
// agent's calls.
func ownCalls(records []apiclient.CallRecord, user *auth.User) []apiclient.CallRecord {
	own := records[:0]
	for _, record := range records {
		if auth.UserID(fmt.Sprint(record.AgentID)) == user.ID {
			own = append(own, record)
		}
	}
	return own
}

func printHistory(out io.Writer, records []apiclient.CallRecord) {
	if len(records) == 0 {
		fmt.Fprintln(out, "No calls.")
		return
	}
	table := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(table, "ID\tSTARTED\tDIRECTION\tFROM\tTO\tSTATUS\tDURATION")
	for _, record := range records {
		fmt.Fprintf(table, "%d\t%s\t%s\t%s\t%s\t%s\t%ds\n",
			record.ID,
			record.StartedAt.Local().Format(time.DateTime),
			record.Direction,
			record.FromNumber,
			record.ToNumber,
			record.Status,
			record.Duration,
		)
	}
	_ = table.Flush()
}
