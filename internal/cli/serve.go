package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/cardfolio/internal/cardsession"
	"github.com/rcliao/cardfolio/internal/logging"
	"github.com/rcliao/cardfolio/internal/server"
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the editor API and run autosave",
		Run:   runServe,
	}

	cmd.Flags().StringP("listen", "l", "", "Listen address (default from config)")

	RootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx)
	if err != nil {
		exitErr("open", err)
	}
	defer a.Close()
	log := a.log.Logger

	listen, _ := cmd.Flags().GetString("listen")
	if listen == "" {
		listen = a.cfg.Listen
	}

	sessions := cardsession.NewManager(a.doc, a.adapter, a.cfg.MaxSessions, a.cfg.SessionTTL, cardsession.Options{
		CloseDelay: a.cfg.CardCloseDelay,
		Notifier:   a.notifier,
		Log:        logging.Component(log, "cardsession"),
	})
	stopCleanup := sessions.StartCleanup(time.Minute)
	defer stopCleanup()
	defer sessions.CloseAll()

	handler, err := server.New(a.doc, a.ctl, sessions, a.repo,
		server.WithLogger(logging.Component(log, "http")),
		server.WithHub(a.hub),
		server.WithAdapter(a.adapter),
		server.WithTitle(a.cfg.Title),
	)
	if err != nil {
		exitErr("server", err)
	}

	srv := &http.Server{
		Addr:              listen,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go a.ctl.RunAutosave(ctx)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", listen).Str("backend", a.cfg.Remote.Backend).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			exitErr("serve", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("shutdown")
	}
	if a.ctl.Dirty() {
		if _, err := a.ctl.Save(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("final save")
		}
	}
	log.Info().Msg("stopped")
}
