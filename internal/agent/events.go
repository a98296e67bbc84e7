// Package agent runs exam-side proctoring: a detection loop over webcam
// frames and guard rails over browser events, both reporting violations to
// the backend through a shared dispatcher.
package agent

// ─── Events (Browser → Agent) ───────────────────────────────────────

type EventKind string

const (
	EventContextMenu      EventKind = "contextmenu"
	EventCopy             EventKind = "copy"
	EventPaste            EventKind = "paste"
	EventCut              EventKind = "cut"
	EventFullscreenChange EventKind = "fullscreenchange"
	EventVisibilityChange EventKind = "visibilitychange"
	EventBlur             EventKind = "blur"
	EventKeyDown          EventKind = "keydown"
	EventClick            EventKind = "click"
	// EventSubmitted is sent by the page when the student submits (or the
	// page honors a force-submit command). The exit-fullscreen and
	// navigate-away that follow are expected, not violations.
	EventSubmitted EventKind = "submitted"
)

// BrowserEvent is one DOM-level occurrence forwarded by the exam page.
// Fields beyond Kind are populated per event type.
type BrowserEvent struct {
	Kind       EventKind `json:"kind"`
	Visible    bool      `json:"visible,omitempty"`
	Fullscreen bool      `json:"fullscreen,omitempty"`
	Key        string    `json:"key,omitempty"`
	Ctrl       bool      `json:"ctrl,omitempty"`
	Shift      bool      `json:"shift,omitempty"`
	Meta       bool      `json:"meta,omitempty"`
}

// ─── Commands (Agent → Browser) ─────────────────────────────────────

type CommandKind string

const (
	CommandRequestFullscreen CommandKind = "request_fullscreen"
	CommandForceSubmit       CommandKind = "force_submit"
)

// Command instructs the exam page to act on the student's behalf.
type Command struct {
	Kind   CommandKind `json:"kind"`
	Reason string      `json:"reason,omitempty"`
}
