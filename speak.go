package streamkit

// SpeakRequest is a convenience payload for Manager.Speak. Any
// JSON-object-shaped value works; the session id is merged in by the SDK.
type SpeakRequest struct {
	Script Script `json:"script"`
}

// Script tells the avatar what to say: either synthesized text or a
// prerecorded audio URL.
type Script struct {
	Type     string         `json:"type"` // "text" or "audio"
	Input    string         `json:"input,omitempty"`
	AudioURL string         `json:"audio_url,omitempty"`
	Provider *VoiceProvider `json:"provider,omitempty"`
}

type VoiceProvider struct {
	Type    string `json:"type"`
	VoiceID string `json:"voice_id"`
}

// Text builds a plain text-to-speech request.
func Text(input string) SpeakRequest {
	return SpeakRequest{Script: Script{Type: "text", Input: input}}
}

// Audio builds a request that plays prerecorded audio.
func Audio(url string) SpeakRequest {
	return SpeakRequest{Script: Script{Type: "audio", AudioURL: url}}
}
