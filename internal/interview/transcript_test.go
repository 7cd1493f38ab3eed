package interview

import "testing"

func TestTranscript_VoiceSegments(t *testing.T) {
	tr := NewTranscript(ModeVoice)

	tr.AppendFinal("closures capture")
	tr.SetInterim("variables from")
	if got := tr.Current(); got != "closures capture variables from" {
		t.Fatalf("unexpected transcript: %q", got)
	}

	tr.SetInterim("variables from the outer")
	tr.AppendFinal("variables from the outer scope")
	if got := tr.Current(); got != "closures capture variables from the outer scope" {
		t.Fatalf("unexpected transcript after final: %q", got)
	}

	tr.SetInterim("and")
	tr.Restart()
	if got := tr.Current(); got != "closures capture variables from the outer scope" {
		t.Fatalf("restart should only drop interim text, got %q", got)
	}
}

func TestTranscript_SwitchToTextKeepsDictation(t *testing.T) {
	tr := NewTranscript(ModeVoice)
	tr.AppendFinal("a promise")
	tr.SetInterim("represents")

	tr.SetMode(ModeText)
	if got := tr.Current(); got != "a promise represents" {
		t.Fatalf("expected dictation to seed the text buffer, got %q", got)
	}

	if tr.SetInterim("ignored") {
		t.Fatal("voice events must be ignored in text mode")
	}
	tr.Replace("a promise represents a future value")
	if got := tr.Current(); got != "a promise represents a future value" {
		t.Fatalf("unexpected text: %q", got)
	}
}

func TestTranscript_SwitchToVoiceClearsBoth(t *testing.T) {
	tr := NewTranscript(ModeText)
	tr.Replace("typed answer")

	tr.SetMode(ModeVoice)
	if got := tr.Current(); got != "" {
		t.Fatalf("expected empty transcript after switching to voice, got %q", got)
	}
	if tr.Replace("nope") {
		t.Fatal("text edits must be ignored in voice mode")
	}
}

func TestTranscript_RestoreAndReset(t *testing.T) {
	for _, mode := range []InputMode{ModeVoice, ModeText} {
		tr := NewTranscript(mode)
		tr.Restore("previous answer")
		if got := tr.Current(); got != "previous answer" {
			t.Errorf("%s: expected restored answer, got %q", mode, got)
		}
		tr.Reset()
		if got := tr.Current(); got != "" {
			t.Errorf("%s: expected empty after reset, got %q", mode, got)
		}
	}
}
