package agent

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/seonix/seonix-backend/internal/model"
)

type captureCommander struct {
	mu   sync.Mutex
	sent []Command
}

func (c *captureCommander) Send(cmd Command) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, cmd)
	return nil
}

func (c *captureCommander) commands() []Command {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Command(nil), c.sent...)
}

type railsFixture struct {
	rails     *GuardRails
	reporter  *captureReporter
	commander *captureCommander
	now       time.Time
}

func newRailsFixture(t *testing.T) *railsFixture {
	t.Helper()
	f := &railsFixture{
		reporter:  &captureReporter{},
		commander: &captureCommander{},
		now:       time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC),
	}
	ref := &SessionRef{}
	ref.Bind(uuid.New(), uuid.New())
	// Zero cooldown so event mapping tests see every dispatch.
	d := NewDispatcher(f.reporter, ref, NewThrottle(0), zerolog.Nop())
	d.SetLive(true)
	f.rails = NewGuardRails(d, f.commander, 3, zerolog.Nop())
	f.rails.now = func() time.Time { return f.now }
	return f
}

func (f *railsFixture) lastType(t *testing.T) model.ViolationType {
	t.Helper()
	f.reporter.mu.Lock()
	defer f.reporter.mu.Unlock()
	if len(f.reporter.requests) == 0 {
		t.Fatal("no violation reported")
	}
	return f.reporter.requests[len(f.reporter.requests)-1].Type
}

func TestEventMapping(t *testing.T) {
	tests := []struct {
		name string
		ev   BrowserEvent
		want model.ViolationType
	}{
		{"context menu", BrowserEvent{Kind: EventContextMenu}, model.ViolationSuspiciousActivity},
		{"copy", BrowserEvent{Kind: EventCopy}, model.ViolationCopyPaste},
		{"paste", BrowserEvent{Kind: EventPaste}, model.ViolationCopyPaste},
		{"cut", BrowserEvent{Kind: EventCut}, model.ViolationCopyPaste},
		{"fullscreen exit", BrowserEvent{Kind: EventFullscreenChange, Fullscreen: false}, model.ViolationFullscreenExit},
		{"tab hidden", BrowserEvent{Kind: EventVisibilityChange, Visible: false}, model.ViolationTabSwitch},
		{"blur while visible", BrowserEvent{Kind: EventBlur, Visible: true}, model.ViolationTabSwitch},
		{"devtools F12", BrowserEvent{Kind: EventKeyDown, Key: "F12"}, model.ViolationSuspiciousActivity},
		{"devtools ctrl+shift+i", BrowserEvent{Kind: EventKeyDown, Key: "I", Ctrl: true, Shift: true}, model.ViolationSuspiciousActivity},
		{"view source", BrowserEvent{Kind: EventKeyDown, Key: "U", Ctrl: true}, model.ViolationSuspiciousActivity},
		{"print screen", BrowserEvent{Kind: EventKeyDown, Key: "PrintScreen"}, model.ViolationSuspiciousActivity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRailsFixture(t)
			f.rails.HandleEvent(context.Background(), tt.ev)
			if got := f.lastType(t); got != tt.want {
				t.Errorf("reported %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIgnoredEvents(t *testing.T) {
	tests := []struct {
		name string
		ev   BrowserEvent
	}{
		{"entering fullscreen", BrowserEvent{Kind: EventFullscreenChange, Fullscreen: true}},
		{"tab becoming visible", BrowserEvent{Kind: EventVisibilityChange, Visible: true}},
		{"blur from hiding tab", BrowserEvent{Kind: EventBlur, Visible: false}},
		{"plain keypress", BrowserEvent{Kind: EventKeyDown, Key: "a"}},
		{"ctrl+c is a copy event not a keydown concern", BrowserEvent{Kind: EventKeyDown, Key: "C", Ctrl: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRailsFixture(t)
			f.rails.HandleEvent(context.Background(), tt.ev)
			if n := f.reporter.count(); n != 0 {
				t.Errorf("reports = %d, want 0", n)
			}
		})
	}
}

func TestTabSwitchLimitForcesSubmitOnce(t *testing.T) {
	f := newRailsFixture(t)
	hide := BrowserEvent{Kind: EventVisibilityChange, Visible: false}

	f.rails.HandleEvent(context.Background(), hide)
	f.rails.HandleEvent(context.Background(), hide)
	if len(f.commander.commands()) != 0 {
		t.Fatal("force-submit fired below the limit")
	}

	f.rails.HandleEvent(context.Background(), hide)
	cmds := f.commander.commands()
	if len(cmds) != 1 || cmds[0].Kind != CommandForceSubmit {
		t.Fatalf("commands after limit = %+v, want one force_submit", cmds)
	}

	// Submission is in motion now; later switches are the page navigating
	// away, not violations, and never re-fire the submit.
	f.rails.HandleEvent(context.Background(), hide)
	if len(f.commander.commands()) != 1 {
		t.Error("force-submit fired twice")
	}
	if f.rails.TabSwitches() != 3 {
		t.Errorf("tab switches = %d, want 3", f.rails.TabSwitches())
	}
}

func TestForcedSubmitSuppressesTrailingEvents(t *testing.T) {
	f := newRailsFixture(t)
	hide := BrowserEvent{Kind: EventVisibilityChange, Visible: false}

	for i := 0; i < 3; i++ {
		f.rails.HandleEvent(context.Background(), hide)
	}
	if cmds := f.commander.commands(); len(cmds) != 1 || cmds[0].Kind != CommandForceSubmit {
		t.Fatalf("commands = %+v, want one force_submit", cmds)
	}
	reported := f.reporter.count()

	// The page honors the submit by leaving fullscreen and navigating
	// away. None of that is a violation.
	f.rails.HandleEvent(context.Background(), BrowserEvent{Kind: EventFullscreenChange, Fullscreen: false})
	f.rails.HandleEvent(context.Background(), BrowserEvent{Kind: EventBlur, Visible: true})
	if n := f.reporter.count(); n != reported {
		t.Errorf("reports after forced submit = %d, want %d", n, reported)
	}
}

func TestSubmittedEventLatchesCompleted(t *testing.T) {
	f := newRailsFixture(t)

	f.rails.HandleEvent(context.Background(), BrowserEvent{Kind: EventSubmitted})
	f.rails.HandleEvent(context.Background(), BrowserEvent{Kind: EventFullscreenChange, Fullscreen: false})
	f.rails.HandleEvent(context.Background(), BrowserEvent{Kind: EventVisibilityChange, Visible: false})

	if n := f.reporter.count(); n != 0 {
		t.Errorf("reports after voluntary submission = %d, want 0", n)
	}
}

func TestForceSubmitFiresOnceAndLatches(t *testing.T) {
	f := newRailsFixture(t)

	f.rails.ForceSubmit("time limit reached")
	f.rails.ForceSubmit("time limit reached")
	cmds := f.commander.commands()
	if len(cmds) != 1 || cmds[0].Kind != CommandForceSubmit || cmds[0].Reason != "time limit reached" {
		t.Fatalf("commands = %+v, want one force_submit", cmds)
	}

	f.rails.HandleEvent(context.Background(), BrowserEvent{Kind: EventFullscreenChange, Fullscreen: false})
	if n := f.reporter.count(); n != 0 {
		t.Errorf("reports after forced submit = %d, want 0", n)
	}
}

func TestCompletedLatchSuppressesViolations(t *testing.T) {
	f := newRailsFixture(t)
	f.rails.MarkCompleted()

	f.rails.HandleEvent(context.Background(), BrowserEvent{Kind: EventFullscreenChange, Fullscreen: false})
	f.rails.HandleEvent(context.Background(), BrowserEvent{Kind: EventVisibilityChange, Visible: false})

	if n := f.reporter.count(); n != 0 {
		t.Errorf("reports after completion = %d, want 0", n)
	}

	// Clicks after completion must not nag about fullscreen either.
	f.rails.HandleEvent(context.Background(), BrowserEvent{Kind: EventClick, Fullscreen: false})
	if len(f.commander.commands()) != 0 {
		t.Error("fullscreen prompt sent after completion")
	}
}

func TestClickOutsideFullscreenPromptsWithCooldown(t *testing.T) {
	f := newRailsFixture(t)
	click := BrowserEvent{Kind: EventClick, Fullscreen: false}

	f.rails.HandleEvent(context.Background(), click)
	f.rails.HandleEvent(context.Background(), click) // Inside cooldown.
	cmds := f.commander.commands()
	if len(cmds) != 1 || cmds[0].Kind != CommandRequestFullscreen {
		t.Fatalf("commands = %+v, want one request_fullscreen", cmds)
	}

	f.now = f.now.Add(time.Second)
	f.rails.HandleEvent(context.Background(), click)
	if len(f.commander.commands()) != 2 {
		t.Error("prompt not re-sent after cooldown")
	}

	// Clicks while in fullscreen never prompt, and never report.
	f.rails.HandleEvent(context.Background(), BrowserEvent{Kind: EventClick, Fullscreen: true})
	if len(f.commander.commands()) != 2 {
		t.Error("prompt sent for in-fullscreen click")
	}
	if f.reporter.count() != 0 {
		t.Errorf("clicks reported %d violations, want 0", f.reporter.count())
	}
}
