package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"nurseconnect-registration/internal/config"
	"nurseconnect-registration/internal/factory"
	"nurseconnect-registration/internal/util"
)

const shutdownTimeout = 30 * time.Second

func main() {
	f, err := factory.NewFactory()
	if err != nil {
		util.Fatal("Failed to initialize factory", util.ErrorField(err))
	}
	defer f.Close()

	cfg := f.Config()

	router, err := f.Router()
	if err != nil {
		util.Fatal("Failed to build router", util.ErrorField(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	servers := buildServers(f, cfg, router)
	for _, srv := range servers {
		go serve(srv, cfg)
	}

	util.Info("Registration site started",
		util.String("environment", cfg.Environment),
		util.Bool("tls_enabled", cfg.Server.EnableTLS),
		util.Bool("auto_cert", cfg.Server.AutoCert),
		util.String("base_url", cfg.Server.BaseURL),
	)

	<-ctx.Done()
	util.Info("Received shutdown signal")
	shutdown(servers...)
}

// buildServers returns the main server and, with production autocert, the
// port 80 server answering ACME challenges.
func buildServers(f *factory.Factory, cfg *config.Config, router http.Handler) []*http.Server {
	site := &http.Server{
		Addr:         cfg.GetServerAddress(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	if !cfg.Server.EnableTLS {
		util.Warn("TLS is disabled", util.Int("port", cfg.Server.Port))
		return []*http.Server{site}
	}

	tlsManager := f.TLSManager()
	site.TLSConfig = tlsManager.GetTLSConfig()
	site.Addr = fmt.Sprintf(":%d", cfg.Server.TLSPort)

	if !(cfg.IsProduction() && cfg.Server.AutoCert) {
		return []*http.Server{site}
	}

	autoCertManager := tlsManager.GetAutocertManager()
	if autoCertManager == nil {
		util.Fatal("AutoCert manager is not available in production")
	}
	site.Addr = ":443"
	challenge := &http.Server{
		Addr:              ":80",
		Handler:           autoCertManager.HTTPHandler(nil),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return []*http.Server{site, challenge}
}

func serve(srv *http.Server, cfg *config.Config) {
	var err error
	if srv.TLSConfig != nil {
		util.Info("Starting HTTPS server", util.String("address", srv.Addr), util.String("domain", cfg.Server.Domain))
		// Certificates come from TLSConfig.GetCertificate.
		err = srv.ListenAndServeTLS("", "")
	} else {
		util.Info("Starting HTTP server", util.String("address", srv.Addr))
		err = srv.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		util.Fatal("Server failed", util.String("address", srv.Addr), util.ErrorField(err))
	}
}

func shutdown(servers ...*http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	for _, srv := range servers {
		if err := srv.Shutdown(ctx); err != nil {
			util.Error("Failed to shutdown server gracefully", util.String("address", srv.Addr), util.ErrorField(err))
		} else {
			util.Info("Server shutdown completed", util.String("address", srv.Addr))
		}
	}
}
