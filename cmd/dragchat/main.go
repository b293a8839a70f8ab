package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pbaille/dragchat/internal/api"
	"github.com/pbaille/dragchat/internal/config"
	"github.com/pbaille/dragchat/internal/journal"
	"github.com/pbaille/dragchat/internal/logger"
	"github.com/pbaille/dragchat/internal/responder"
	"github.com/pbaille/dragchat/internal/session"
	"github.com/pbaille/dragchat/internal/tui"
)

var (
	cfg       *config.Config
	logLevel  string
	noJournal bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "dragchat",
		Short:         "Chat transcript with drag-and-drop reordering",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load()
			if err != nil {
				return err
			}
			if logLevel != "" {
				loaded.LogLevel = logLevel
			}
			if noJournal {
				loaded.JournalEnabled = false
			}
			cfg = loaded
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")
	rootCmd.PersistentFlags().BoolVar(&noJournal, "no-journal", false, "disable the session journal")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(replayCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newSession(log zerolog.Logger) (*session.Session, error) {
	opts := session.Options{
		Responder:  responder.New(cfg.ReplyPrefix),
		ReplyDelay: cfg.ReplyDelay,
		Logger:     log,
	}
	if cfg.JournalEnabled {
		j, err := journal.Open(cfg.JournalName + "-" + uuid.NewString())
		if err != nil {
			return nil, err
		}
		opts.Journal = j
	}
	return session.New(opts), nil
}

func serveCmd() *cobra.Command {
	var (
		addr  string
		delay time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				cfg.HTTPAddr = addr
			}
			if delay > 0 {
				cfg.ReplyDelay = delay
			}
			log := logger.New(cfg)

			s, err := newSession(log)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return api.New(s, cfg.HTTPAddr, log).Run(ctx)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "server address (overrides HTTP_ADDR)")
	cmd.Flags().DurationVar(&delay, "reply-delay", 0, "producer reply delay (overrides REPLY_DELAY)")
	return cmd
}

func chatCmd() *cobra.Command {
	var (
		delay   time.Duration
		logFile string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Open the interactive terminal chat",
		RunE: func(cmd *cobra.Command, args []string) error {
			if delay > 0 {
				cfg.ReplyDelay = delay
			}

			// The terminal belongs to the UI; only log to a file.
			log := zerolog.Nop()
			if logFile != "" {
				f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
				if err != nil {
					return fmt.Errorf("open log file: %w", err)
				}
				defer f.Close()
				log = logger.NewWithWriter(cfg, f)
			}

			s, err := newSession(log)
			if err != nil {
				return err
			}
			defer s.Close()

			return tui.Run(s)
		},
	}

	cmd.Flags().DurationVar(&delay, "reply-delay", 0, "producer reply delay (overrides REPLY_DELAY)")
	cmd.Flags().StringVar(&logFile, "log-file", "", "write logs to this file")
	return cmd
}

func replayCmd() *cobra.Command {
	var (
		moves []string
		delay time.Duration
	)

	cmd := &cobra.Command{
		Use:   "replay [message...]",
		Short: "Run a scripted session and check it against its journal",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.ReplyDelay = delay
			cfg.JournalEnabled = true
			s, err := newSession(logger.New(cfg))
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := cmd.Context()
			for _, text := range args {
				sub, err := s.SubmitUserText(ctx, text)
				if err != nil {
					return err
				}
				if sub == nil {
					fmt.Printf("(skipped blank message)\n")
					continue
				}
				if sub.Reply != nil {
					<-sub.Reply.Done()
					if _, ok := sub.Reply.Entry(); !ok {
						fmt.Printf("reply to %q dropped\n", text)
					}
				}
			}

			for _, move := range moves {
				from, to, err := parseMove(move)
				if err != nil {
					return err
				}
				list := s.Entries()
				if from > len(list) || to > len(list) {
					fmt.Printf("move %s: out of range, ignored\n", move)
					continue
				}
				s.BeginDrag(list[from-1].ID)
				s.UpdateDragOver(list[to-1].ID)
				s.EndDrag(list[to-1].ID)
			}

			final := s.Entries()
			for _, e := range final {
				fmt.Printf("%2d  %-8s  %s\n", e.Position, e.Origin, tui.Truncate(e.Text, 60))
			}

			replayed, err := s.Journal().Replay()
			if err != nil {
				return err
			}
			if len(replayed.Entries) != len(final) {
				return fmt.Errorf("journal replay has %d entries, session has %d", len(replayed.Entries), len(final))
			}
			for i := range final {
				if replayed.Entries[i].ID != final[i].ID {
					return fmt.Errorf("journal replay diverges at position %d", i+1)
				}
			}
			n, err := s.Journal().Count()
			if err != nil {
				return err
			}
			fmt.Printf("\njournal: %d operations, replay matches (revision %d)\n", n, replayed.Revision)
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&moves, "move", "m", nil, "drag FROM:TO by position after all replies, repeatable")
	cmd.Flags().DurationVar(&delay, "reply-delay", 10*time.Millisecond, "producer reply delay")
	return cmd
}

func parseMove(s string) (int, int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid move %q, want FROM:TO", s)
	}
	from, err := strconv.Atoi(parts[0])
	if err != nil || from < 1 {
		return 0, 0, fmt.Errorf("invalid move source %q", parts[0])
	}
	to, err := strconv.Atoi(parts[1])
	if err != nil || to < 1 {
		return 0, 0, fmt.Errorf("invalid move target %q", parts[1])
	}
	return from, to, nil
}
