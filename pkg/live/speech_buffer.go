package live

import (
	"strings"
	"sync"
)

// SpeechBuffer accumulates LLM text deltas and emits sentence-sized
// chunks for TTS. Murf paces its synthesis per sentence, so chunks
// end on sentence terminators where possible, with a word-count
// fallback for long unpunctuated runs.
type SpeechBuffer struct {
	mu             sync.Mutex
	text           strings.Builder
	terminators    string
	minSentenceLen int
	maxWords       int
}

// NewSpeechBuffer creates a buffer with default settings.
func NewSpeechBuffer() *SpeechBuffer {
	return &SpeechBuffer{
		terminators:    ".!?",
		minSentenceLen: 2,
		maxWords:       12,
	}
}

// Add appends a text delta and returns text ready for TTS, or ""
// while more should be buffered.
func (b *SpeechBuffer) Add(delta string) string {
	if delta == "" {
		return ""
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	startsWithSpace := delta[0] == ' ' || delta[0] == '\n'
	prevContent := b.text.String()
	prevWordCount := len(strings.Fields(prevContent))

	b.text.WriteString(delta)
	content := b.text.String()

	// Prefer complete sentences. Sentences shorter than the minimum
	// (like a stray "." delta) stay buffered so TTS never receives
	// fragments it would mispronounce.
	if strings.ContainsAny(delta, b.terminators) {
		lastTerm := strings.LastIndexAny(content, b.terminators)
		if lastTerm >= 0 {
			sentence := strings.TrimSpace(content[:lastTerm+1])
			if len(strings.TrimRight(sentence, b.terminators)) >= b.minSentenceLen {
				remainder := strings.TrimSpace(content[lastTerm+1:])
				b.text.Reset()
				if remainder != "" {
					b.text.WriteString(remainder)
				}
				return sentence
			}
		}
	}

	// Fallback for long unpunctuated text: emit at a confirmed word
	// boundary once the buffer is large enough.
	if prevWordCount >= b.maxWords && startsWithSpace {
		toSend := strings.TrimSpace(prevContent)
		b.text.Reset()
		b.text.WriteString(strings.TrimLeft(delta, " \n"))
		return toSend
	}

	return ""
}

// Flush returns any remaining buffered text and resets the buffer.
// Call this when the LLM stream ends.
func (b *SpeechBuffer) Flush() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	result := strings.TrimSpace(b.text.String())
	b.text.Reset()
	return result
}

// Reset clears the buffer without returning content.
func (b *SpeechBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.text.Reset()
}

// Len returns the current buffer length.
func (b *SpeechBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.text.Len()
}
