package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/finrota/bankfeed/internal/email"
	"github.com/finrota/bankfeed/internal/mailbox"
)

// passwordEnv keeps the IMAP password out of flags and shell history.
const passwordEnv = "BANKFEED_IMAP_PASSWORD"

type mailFlags struct {
	addr     string
	username string
	folder   string
	sender   string
}

func (f *mailFlags) config() (mailbox.Config, error) {
	password := os.Getenv(passwordEnv)
	if f.addr == "" || f.username == "" {
		return mailbox.Config{}, fmt.Errorf("--imap-addr and --imap-user are required")
	}
	if password == "" {
		return mailbox.Config{}, fmt.Errorf("%s is not set", passwordEnv)
	}
	return mailbox.Config{
		Addr:     f.addr,
		Username: f.username,
		Password: password,
		Folder:   f.folder,
		Sender:   f.sender,
	}, nil
}

func newMailCommand(flags *rootFlags) *cobra.Command {
	mf := &mailFlags{}

	cmd := &cobra.Command{
		Use:   "mailbox",
		Short: "Ingest bank notification emails over IMAP",
	}
	cmd.PersistentFlags().StringVar(&mf.addr, "imap-addr", "", "IMAP server, host:port")
	cmd.PersistentFlags().StringVar(&mf.username, "imap-user", "", "IMAP account name")
	cmd.PersistentFlags().StringVar(&mf.folder, "folder", "", "mailbox folder (default INBOX)")
	cmd.PersistentFlags().StringVar(&mf.sender, "sender", "", "only fetch notifications from this address")

	cmd.AddCommand(newMailFetchCommand(flags, mf))
	cmd.AddCommand(newMailWatchCommand(flags, mf))
	return cmd
}

func newMailFetchCommand(flags *rootFlags, mf *mailFlags) *cobra.Command {
	var since time.Duration

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch and ingest recent notification emails once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := newLogger()

			cfg, err := mf.config()
			if err != nil {
				return err
			}

			p, cleanup, err := buildPipeline(ctx, flags, log)
			if err != nil {
				return err
			}
			defer cleanup()

			client := mailbox.NewClient(cfg, log)
			msgs, err := client.FetchSince(ctx, time.Now().Add(-since))
			if err != nil {
				return err
			}

			summary, err := p.IngestEmails(ctx, msgs)
			if err != nil {
				return err
			}
			printSummary(cmd, summary)
			return nil
		},
	}
	cmd.Flags().DurationVar(&since, "since", 72*time.Hour, "fetch messages received within this window")
	return cmd
}

func newMailWatchCommand(flags *rootFlags, mf *mailFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stay connected and ingest notifications as they arrive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := newLogger()

			cfg, err := mf.config()
			if err != nil {
				return err
			}

			p, cleanup, err := buildPipeline(ctx, flags, log)
			if err != nil {
				return err
			}
			defer cleanup()

			client := mailbox.NewClient(cfg, log)
			log.Info().Str("addr", cfg.Addr).Msg("watching mailbox")

			err = client.Watch(ctx, func(ctx context.Context, msgs []email.Message) error {
				summary, err := p.IngestEmails(ctx, msgs)
				if err != nil {
					return err
				}
				printSummary(cmd, summary)
				return nil
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	return cmd
}
