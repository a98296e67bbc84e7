package agent

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/seonix/seonix-backend/internal/model"
)

// fullscreenCooldown is the minimum gap between re-entry prompts, so one
// burst of clicks outside fullscreen produces one prompt.
const fullscreenCooldown = 500 * time.Millisecond

// Commander sends commands back to the exam page. Implemented by
// EventBridge.
type Commander interface {
	Send(cmd Command) error
}

// GuardRails turns browser events into violations and countermeasures.
// It shares the dispatcher (and its cooldowns) with the monitor. Once the
// exam is submitted the rails enter a one-way completed state: fullscreen
// exits and tab switches after submission are expected, not violations.
type GuardRails struct {
	dispatcher *Dispatcher
	commander  Commander
	limit      int
	log        zerolog.Logger
	now        func() time.Time

	mu             sync.Mutex
	completed      bool
	tabSwitches    int
	forceSubmitted bool
	lastPrompt     time.Time
}

func NewGuardRails(dispatcher *Dispatcher, commander Commander, tabSwitchLimit int, log zerolog.Logger) *GuardRails {
	return &GuardRails{
		dispatcher: dispatcher,
		commander:  commander,
		limit:      tabSwitchLimit,
		log:        log.With().Str("component", "guardrails").Logger(),
		now:        time.Now,
	}
}

// MarkCompleted latches the rails into the post-submission state. One-way.
func (g *GuardRails) MarkCompleted() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.completed = true
}

// ForceSubmit orders the page to submit now and latches the rails into the
// post-submission state. Fires at most once; later calls are no-ops.
func (g *GuardRails) ForceSubmit(reason string) {
	g.mu.Lock()
	if g.forceSubmitted {
		g.mu.Unlock()
		return
	}
	g.forceSubmitted = true
	g.completed = true
	g.mu.Unlock()

	g.log.Warn().Str("reason", reason).Msg("Forcing exam submission")
	if err := g.commander.Send(Command{Kind: CommandForceSubmit, Reason: reason}); err != nil {
		g.log.Error().Err(err).Msg("Failed to send force-submit command")
	}
}

// TabSwitches returns the local tab-switch count.
func (g *GuardRails) TabSwitches() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.tabSwitches
}

// HandleEvent processes one browser event.
func (g *GuardRails) HandleEvent(ctx context.Context, ev BrowserEvent) {
	switch ev.Kind {
	case EventContextMenu:
		g.dispatcher.Dispatch(ctx, model.ViolationSuspiciousActivity, model.SeverityLow, "Context menu opened")

	case EventCopy:
		g.dispatcher.Dispatch(ctx, model.ViolationCopyPaste, model.SeverityMedium, "Copy attempted")
	case EventPaste:
		g.dispatcher.Dispatch(ctx, model.ViolationCopyPaste, model.SeverityMedium, "Paste attempted")
	case EventCut:
		g.dispatcher.Dispatch(ctx, model.ViolationCopyPaste, model.SeverityMedium, "Cut attempted")

	case EventFullscreenChange:
		g.handleFullscreenChange(ctx, ev)

	case EventVisibilityChange:
		if !ev.Visible {
			g.handleTabSwitch(ctx, "Tab hidden")
		}
	case EventBlur:
		// Blur while the tab stays visible means another window took
		// focus. Blur from hiding the tab already counted above.
		if ev.Visible {
			g.handleTabSwitch(ctx, "Window lost focus")
		}

	case EventSubmitted:
		g.log.Info().Msg("Exam submitted, suppressing post-submission signals")
		g.MarkCompleted()

	case EventKeyDown:
		g.handleKeyDown(ctx, ev)

	case EventClick:
		g.handleClick(ev)
	}
}

func (g *GuardRails) handleFullscreenChange(ctx context.Context, ev BrowserEvent) {
	if ev.Fullscreen {
		return
	}
	g.mu.Lock()
	completed := g.completed
	g.mu.Unlock()
	if completed {
		return
	}
	g.dispatcher.Dispatch(ctx, model.ViolationFullscreenExit, model.SeverityHigh, "Exited fullscreen mode")
}

func (g *GuardRails) handleTabSwitch(ctx context.Context, description string) {
	g.mu.Lock()
	if g.completed {
		g.mu.Unlock()
		return
	}
	g.tabSwitches++
	count := g.tabSwitches
	hit := count >= g.limit
	g.mu.Unlock()

	g.dispatcher.Dispatch(ctx, model.ViolationTabSwitch, model.SeverityMedium, description)

	// The limit-hitting switch is still a violation; everything after the
	// forced submission (fullscreen exit, navigation blur) is not.
	if hit {
		g.ForceSubmit("tab switch limit reached")
	}
}

func (g *GuardRails) handleKeyDown(ctx context.Context, ev BrowserEvent) {
	switch {
	case ev.Key == "F12",
		ev.Ctrl && ev.Shift && (ev.Key == "I" || ev.Key == "J" || ev.Key == "C"):
		g.dispatcher.Dispatch(ctx, model.ViolationSuspiciousActivity, model.SeverityMedium, "Developer tools shortcut")
	case ev.Ctrl && ev.Key == "U":
		g.dispatcher.Dispatch(ctx, model.ViolationSuspiciousActivity, model.SeverityMedium, "View-source shortcut")
	case ev.Ctrl && ev.Key == "S":
		g.dispatcher.Dispatch(ctx, model.ViolationSuspiciousActivity, model.SeverityMedium, "Save-page shortcut")
	case ev.Key == "PrintScreen":
		g.dispatcher.Dispatch(ctx, model.ViolationSuspiciousActivity, model.SeverityHigh, "Print-screen pressed")
	}
}

// handleClick nudges the page back into fullscreen when the student clicks
// while outside it. Best-effort and cooldown-guarded; never a violation on
// its own, the fullscreenchange event already reported the exit.
func (g *GuardRails) handleClick(ev BrowserEvent) {
	if ev.Fullscreen {
		return
	}
	g.mu.Lock()
	if g.completed || g.now().Sub(g.lastPrompt) < fullscreenCooldown {
		g.mu.Unlock()
		return
	}
	g.lastPrompt = g.now()
	g.mu.Unlock()

	if err := g.commander.Send(Command{Kind: CommandRequestFullscreen}); err != nil {
		g.log.Debug().Err(err).Msg("Failed to send fullscreen request")
	}
}
