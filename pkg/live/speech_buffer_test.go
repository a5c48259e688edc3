package live

import "testing"

func TestSpeechBuffer_Sentence(t *testing.T) {
	b := NewSpeechBuffer()

	if got := b.Add("Welcome to "); got != "" {
		t.Errorf("partial sentence emitted early: %q", got)
	}
	if got := b.Add("Improv Battle!"); got != "Welcome to Improv Battle!" {
		t.Errorf("Add = %q, want full sentence", got)
	}
	if b.Len() != 0 {
		t.Errorf("buffer not drained, len = %d", b.Len())
	}
}

func TestSpeechBuffer_KeepsRemainderAfterSentence(t *testing.T) {
	b := NewSpeechBuffer()

	got := b.Add("Round one. Your scenario")
	if got != "Round one." {
		t.Errorf("Add = %q, want %q", got, "Round one.")
	}
	if got := b.Flush(); got != "Your scenario" {
		t.Errorf("Flush = %q, want remainder", got)
	}
}

func TestSpeechBuffer_TinySentenceStaysBuffered(t *testing.T) {
	b := NewSpeechBuffer()

	// A lone terminator or one-character sentence is not worth a TTS
	// round trip.
	if got := b.Add("."); got != "" {
		t.Errorf("Add(%q) = %q, want buffered", ".", got)
	}
	if got := b.Flush(); got != "." {
		t.Errorf("Flush = %q", got)
	}
}

func TestSpeechBuffer_WordCountFallback(t *testing.T) {
	b := NewSpeechBuffer()

	long := "one two three four five six seven eight nine ten eleven twelve"
	if got := b.Add(long); got != "" {
		t.Errorf("unexpected emit: %q", got)
	}
	if got := b.Add(" thirteen"); got != long {
		t.Errorf("Add = %q, want buffered run", got)
	}
	if got := b.Flush(); got != "thirteen" {
		t.Errorf("Flush = %q, want carried delta", got)
	}
}

func TestSpeechBuffer_Reset(t *testing.T) {
	b := NewSpeechBuffer()
	b.Add("something pending")
	b.Reset()
	if got := b.Flush(); got != "" {
		t.Errorf("Flush after Reset = %q, want empty", got)
	}
}

func TestSpeechBuffer_EmptyDelta(t *testing.T) {
	b := NewSpeechBuffer()
	if got := b.Add(""); got != "" {
		t.Errorf("Add(\"\") = %q", got)
	}
}
