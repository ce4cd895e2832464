package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/Taskboard/internal/hermes"
)

var eventsSubject string

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Tail taskboard events from hermes",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Hermes.URL == "" {
			return fmt.Errorf("hermes.url is not configured")
		}
		hc, err := hermes.NewNATSClient(cmd.Context(), cfg.Hermes.URL, logger)
		if err != nil {
			return err
		}
		defer hc.Close()

		out := cmd.OutOrStdout()
		if err := hc.Subscribe(eventsSubject, func(subject string, data []byte) {
			fmt.Fprintf(out, "%s %s\n", subject, data)
		}); err != nil {
			return fmt.Errorf("subscribe %s: %w", eventsSubject, err)
		}
		logger.Info("listening for events", "subject", eventsSubject)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-sigCh:
		case <-cmd.Context().Done():
		}
		return nil
	},
}

func init() {
	eventsCmd.Flags().StringVar(&eventsSubject, "subject", hermes.SubjectAll, "subject filter")
}
