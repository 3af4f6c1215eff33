package transcription

import (
	"strings"
	"unicode"
)

// Request holds parameters for a transcription call.
type Request struct {
	// AudioPath is the 16 kHz mono WAV file to transcribe.
	AudioPath string `json:"audio_path"`
	// ModelPath is the resolved model file for engines that load one locally.
	ModelPath string `json:"model_path,omitempty"`
	// Model is the model tier name (tiny, base, small, medium, large).
	Model string `json:"model,omitempty"`
	// Language is the expected language (e.g. "en"); empty or "auto" detects it.
	Language string `json:"language,omitempty"`
}

// AutoDetect reports whether the engine should detect the language itself.
func (r Request) AutoDetect() bool {
	return r.Language == "" || strings.EqualFold(r.Language, "auto")
}

// Segment represents a time-aligned portion of a transcript.
type Segment struct {
	// Start is the segment start time in seconds.
	Start float64 `json:"start"`
	// End is the segment end time in seconds.
	End float64 `json:"end"`
	// Text is the transcribed text for this segment.
	Text string `json:"text"`
}

// Text joins segment texts into a single transcript.
func Text(segments []Segment) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if t := strings.TrimSpace(s.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// WordCount counts whitespace-separated words.
func WordCount(text string) int {
	return len(strings.FieldsFunc(text, unicode.IsSpace))
}
