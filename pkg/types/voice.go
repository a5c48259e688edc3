package types

// VoiceConfig configures the voice pipeline (STT → LLM → TTS).
type VoiceConfig struct {
	Input  *VoiceInputConfig  `json:"input,omitempty"`
	Output *VoiceOutputConfig `json:"output,omitempty"`
}

// VoiceInputConfig configures speech-to-text.
type VoiceInputConfig struct {
	Model    string `json:"model,omitempty"`    // Deepgram model (default: "nova-3")
	Language string `json:"language,omitempty"` // ISO language code (default: "en")
}

// VoiceOutputConfig configures text-to-speech.
type VoiceOutputConfig struct {
	Voice      string  `json:"voice"`                 // Murf voice ID (e.g. "en-US-matthew")
	Style      string  `json:"style,omitempty"`       // Voice style (e.g. "Promo", "Conversational")
	Speed      float64 `json:"speed,omitempty"`       // Speed multiplier (default: 1.0)
	Format     string  `json:"format,omitempty"`      // Output format: wav, mp3, pcm (default: pcm)
	SampleRate int     `json:"sample_rate,omitempty"` // Sample rate in Hz (default: 24000)
}

// Voice format constants
const (
	VoiceFormatMP3 = "mp3"
	VoiceFormatWAV = "wav"
	VoiceFormatPCM = "pcm"
)
