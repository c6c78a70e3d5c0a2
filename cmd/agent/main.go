package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lingomeet/lingomeet/internal/adapters/api"
	"github.com/lingomeet/lingomeet/internal/adapters/chatws"
	"github.com/lingomeet/lingomeet/internal/adapters/control"
	"github.com/lingomeet/lingomeet/internal/adapters/media"
	"github.com/lingomeet/lingomeet/internal/adapters/translate"
	"github.com/lingomeet/lingomeet/internal/app/audio"
	"github.com/lingomeet/lingomeet/internal/app/chat"
	"github.com/lingomeet/lingomeet/internal/app/language"
	"github.com/lingomeet/lingomeet/internal/app/meeting"
	"github.com/lingomeet/lingomeet/internal/config"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	backend := api.NewClient(cfg.APIBaseURL)
	transport := translate.NewTransport(cfg.TranslationURL)

	capture := media.NewSilenceSource(ctx)
	mediaSession := media.NewSession(media.Config{STUNServers: cfg.STUNServers}, capture, backend)
	pipeline := audio.NewPipeline(transport)

	negotiator := language.NewNegotiator(backend, transport)
	chatSvc := chat.NewService(backend, chatws.Dialer(cfg.ChatURL), negotiator.ChatTarget)

	orch := meeting.New(mediaSession, transport, backend, backend, pipeline, chatSvc, negotiator)
	backend.OnSessionExpired(orch.SessionExpired)

	limiter := control.NewRateLimiter(cfg.ChatRateLimit, cfg.ChatRateWindow)
	ctrl := control.NewController(orch, limiter)
	ctrl.Tokens = backend
	r := control.SetupRouter(cfg, ctrl)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Lingomeet agent started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	orch.Leave(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Agent exited gracefully")
}
