// Команда devproxy пробрасывает внешний порт на dev-сервер клиента.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/magabrotheeeer/patriot-desa/internal/devproxy"
	"github.com/magabrotheeeer/patriot-desa/internal/lib/sl"
)

func main() {
	defaultListen := ":5000"
	if port := os.Getenv("PORT"); port != "" {
		defaultListen = ":" + port
	}
	listen := flag.String("listen", defaultListen, "address to listen on")
	host := flag.String("host", "localhost", "dev server host")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	port, found := devproxy.FindPort(ctx, *host, devproxy.DefaultPorts)
	if found {
		logger.Info("found dev server", slog.Int("port", port))
	} else {
		logger.Warn("dev server not found, using default port", slog.Int("port", port))
	}

	target, err := url.Parse(fmt.Sprintf("http://%s:%d", *host, port))
	if err != nil {
		logger.Error("invalid target", sl.Err(err))
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              *listen,
		Handler:           devproxy.New(target, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("proxy server running", slog.String("address", *listen), slog.String("target", target.String()))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("proxy stopped with error", sl.Err(err))
		os.Exit(1)
	}
}
