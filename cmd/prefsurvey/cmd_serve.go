package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"prefsurvey/internal/logging"
	"prefsurvey/internal/receiver"
	"prefsurvey/internal/store"

	"github.com/spf13/cobra"
)

var serveAddr string

// serveCmd runs the persistence endpoint
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the endpoint that stores submitted preferences",
	Long: `Starts an HTTP endpoint that accepts the survey's JSON payloads and appends
one row per response to a sheet in the local SQLite store. The survey client's
endpoint.url should point at this server.

Sheets can be exported with "prefsurvey sheet export".`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default: receiver.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(cfg.Receiver.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	rc := receiverConfig(cfg)
	if serveAddr != "" {
		rc.Addr = serveAddr
	}
	srv := receiver.New(rc, st)

	logging.Get(logging.CategoryReceiver).Info("serving on %s (store %s)", rc.Addr, st.Path())
	fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://%s\n", rc.Addr)

	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("receiver: %w", err)
	}
	return nil
}
