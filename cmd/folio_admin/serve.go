package main

import (
	"fmt"
	"os"
	"os/signal"
	"path"
	"syscall"

	"github.com/jonathan/folio-admin/internal/auth"
	"github.com/jonathan/folio-admin/internal/config"
	"github.com/jonathan/folio-admin/internal/publish"
	"github.com/jonathan/folio-admin/internal/server"
	"github.com/spf13/cobra"
)

var (
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the content API server",
	Long:  `Start an HTTP server that serves the content document publicly and exposes the authenticated admin API for editing, backup and publishing.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default from PORT or 8080)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	passwordCfg, err := config.NewPasswordConfig()
	if err != nil {
		return err
	}
	jwtCfg, err := config.NewJWTConfig()
	if err != nil {
		return err
	}
	authenticator := auth.NewAuthenticator(auth.NewHasher(passwordCfg), auth.NewSessionService(jwtCfg, a.cfg.App))

	coordinator := publish.NewCoordinator(a.synchronizer())
	defer coordinator.Close()

	port := a.cfg.Port
	if servePort != 0 {
		port = servePort
	}
	if port <= 0 || port > 65535 {
		return fmt.Errorf("invalid port: %d", port)
	}

	srv := server.New(server.Config{
		Port:       port,
		App:        a.cfg.App,
		SourceName: path.Base(a.cfg.PublishPath),
	}, server.Deps{
		Store:       a.store,
		Credentials: a.credentials,
		Publisher:   coordinator,
		Auth:        authenticator,
	})

	return srv.Start(ctx)
}
