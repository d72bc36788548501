package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Joseda-hg/lazyboard/internal/logging"
	"github.com/Joseda-hg/lazyboard/internal/task"
	"github.com/Joseda-hg/lazyboard/internal/tui"
	"github.com/Joseda-hg/lazyboard/internal/web"
)

const shutdownTimeout = 10 * time.Second

func newTUICommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the terminal board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBoard(cmd, opts, true)
		},
	}
}

// runBoard opens the terminal board. When web.enabled is set (and withWeb),
// the web board is served alongside it until the terminal board exits.
func runBoard(cmd *cobra.Command, opts *globalOptions, withWeb bool) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// The terminal belongs to gocui; logs go to log.file or nowhere.
	a, err := openApp(ctx, opts, requireBoard, nil)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx = task.ContextWithActor(ctx, a.agent)

	if withWeb && a.cfg.Web.Enabled {
		srv := newHTTPServer(a, a.cfg.Web.Port)
		go func() {
			a.log.WithField("addr", srv.Addr).Info("web server running")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.log.WithError(err).Error("web server failed")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	return tui.Run(ctx, a.engine, tui.Options{
		Agent:   a.agent,
		Redis:   a.redis,
		Channel: a.cfg.Notify.Channel,
		Log:     logging.Component("tui"),
	})
}

func newServeCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the board over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				port, _ := cmd.Flags().GetInt("port")
				if port == 0 {
					port = a.cfg.Web.Port
				}
				return serve(ctx, cmd, a, port)
			})
		},
	}
	cmd.Flags().IntP("port", "p", 0, "Port to listen on (default from config)")
	return cmd
}

func newHTTPServer(a *app, port int) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           web.NewServer(a.engine, logging.Component("web")).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func serve(ctx context.Context, cmd *cobra.Command, a *app, port int) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := newHTTPServer(a, port)
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	fmt.Fprintf(cmd.OutOrStdout(), "Web server running at http://localhost:%d\n", port)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("web server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.log.Info("shutting down web server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("web server shutdown: %w", err)
	}
	return nil
}
