package interview

import "strings"

// InputMode selects which producer feeds the transcript
type InputMode string

const (
	ModeVoice InputMode = "voice"
	ModeText  InputMode = "text"
)

// Valid reports whether m is a known input mode
func (m InputMode) Valid() bool {
	return m == ModeVoice || m == ModeText
}

// Transcript holds the answer being composed for the current question.
// Voice input accumulates final segments plus one replaceable interim
// segment; text input replaces the whole buffer. Not safe for concurrent
// use; the owning Session serializes access.
type Transcript struct {
	mode    InputMode
	final   string
	interim string
	text    string
}

// NewTranscript creates an empty transcript in the given mode
func NewTranscript(mode InputMode) *Transcript {
	if !mode.Valid() {
		mode = ModeVoice
	}
	return &Transcript{mode: mode}
}

// Mode returns the active input mode
func (t *Transcript) Mode() InputMode {
	return t.mode
}

// SetMode switches producers. Switching to text keeps what was dictated so
// far as editable text; switching to voice starts a fresh recording. Either
// way the other producer's buffer is dropped.
func (t *Transcript) SetMode(mode InputMode) {
	if mode == t.mode || !mode.Valid() {
		return
	}

	if mode == ModeText {
		t.text = t.Current()
	} else {
		t.text = ""
	}
	t.final = ""
	t.interim = ""
	t.mode = mode
}

// SetInterim replaces the interim voice segment
func (t *Transcript) SetInterim(s string) bool {
	if t.mode != ModeVoice {
		return false
	}
	t.interim = strings.TrimSpace(s)
	return true
}

// AppendFinal commits a recognized voice segment and drops the interim one
func (t *Transcript) AppendFinal(s string) bool {
	if t.mode != ModeVoice {
		return false
	}
	if s = strings.TrimSpace(s); s != "" {
		t.final = strings.TrimSpace(t.final + " " + s)
	}
	t.interim = ""
	return true
}

// Restart drops the interim segment after the recognizer restarts;
// committed segments are kept
func (t *Transcript) Restart() bool {
	if t.mode != ModeVoice {
		return false
	}
	t.interim = ""
	return true
}

// Replace sets the typed text
func (t *Transcript) Replace(s string) bool {
	if t.mode != ModeText {
		return false
	}
	t.text = s
	return true
}

// Current returns the combined transcript
func (t *Transcript) Current() string {
	if t.mode == ModeText {
		return t.text
	}
	return strings.TrimSpace(t.final + " " + t.interim)
}

// Restore loads a previously given answer into the active buffer
func (t *Transcript) Restore(answer string) {
	t.Reset()
	if t.mode == ModeText {
		t.text = answer
	} else {
		t.final = strings.TrimSpace(answer)
	}
}

// Reset empties every buffer
func (t *Transcript) Reset() {
	t.final = ""
	t.interim = ""
	t.text = ""
}
