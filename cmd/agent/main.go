package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/seonix/seonix-backend/internal/agent"
	"github.com/seonix/seonix-backend/internal/config"
	"github.com/seonix/seonix-backend/internal/logger"
	"github.com/seonix/seonix-backend/internal/model"
)

// The agent runs on the exam machine: it starts (or resumes) the session,
// serves the websocket bridge the exam page connects to, and runs the
// webcam detection loop against the local classifier sidecar.
func main() {
	var examIDStr string
	flag.StringVar(&examIDStr, "exam", "", "Exam ID to proctor (required)")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	examID, err := uuid.Parse(examIDStr)
	if err != nil {
		log.Fatal().Str("exam", examIDStr).Msg("A valid -exam UUID is required")
	}
	if cfg.AgentToken == "" {
		log.Fatal().Msg("AGENT_TOKEN is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := agent.NewAPIClient(cfg.ServerURL, cfg.AgentToken)

	// ─── Start or resume the session ───────────────────────────────────
	start, err := client.StartSession(ctx, examID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start exam session")
	}
	log.Info().
		Str("session_id", start.Session.ID.String()).
		Bool("resumed", start.Resumed).
		Msg("Exam session ready")

	if err := client.TouchLog(ctx, examID, start.Session.ID); err != nil {
		log.Warn().Err(err).Msg("Failed to touch proctoring log")
	}

	// ─── Wire the proctoring pipeline ──────────────────────────────────
	ref := &agent.SessionRef{}
	ref.Bind(examID, start.Session.ID)

	throttle := agent.NewThrottle(cfg.ViolationCooldown)
	dispatcher := agent.NewDispatcher(client, ref, throttle, log)

	bridge := agent.NewEventBridge(log)
	rails := agent.NewGuardRails(dispatcher, bridge, cfg.TabSwitchLimit, log)
	bridge.OnEvent(rails.HandleEvent)

	classifier := agent.NewHTTPClassifier(cfg.ClassifierURL)
	frames := agent.NewHTTPFrameSource(cfg.FrameSourceURL)
	monitor := agent.NewMonitor(classifier, frames, dispatcher,
		cfg.DetectionInterval, cfg.ModelReadyTimeout, log)

	// ─── Serve the event bridge ────────────────────────────────────────
	mux := http.NewServeMux()
	mux.Handle("/ws", bridge)
	srv := &http.Server{Addr: cfg.AgentListen, Handler: mux}
	go func() {
		log.Info().Str("addr", cfg.AgentListen).Msg("Event bridge listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Event bridge error")
		}
	}()

	// A failed model load disables detection but never blocks the exam;
	// guard rails still run off browser events.
	if err := monitor.Start(ctx); err != nil {
		log.Warn().Err(err).Msg("Continuing without webcam monitoring")
	}

	// ─── Heartbeat ─────────────────────────────────────────────────────
	// Watches the exam clock and syncs the local tab-switch count so the
	// session row reflects it even if the page's own updates stall.
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if start.Session.IsExpired(start.DurationMinutes, time.Now()) {
					rails.ForceSubmit("time limit reached")
					monitor.Stop()
				}
				count := rails.TabSwitches()
				err := client.UpdateActivity(ctx, start.Session.ID, model.ActivityPatch{
					TabSwitchCount: &count,
				})
				if err != nil && ctx.Err() == nil {
					log.Warn().Err(err).Msg("Heartbeat failed")
				}
			}
		}
	}()

	// ─── Shutdown ──────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info().Str("signal", sig.String()).Msg("Shutting down")

	monitor.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Event bridge shutdown error")
	}
}
