package factories

import "storychat/core"

// Default voice selections applied when settings do not name one.
const (
	DefaultElevenLabsVoiceID = "21m00Tcm4TlvDq8ikWAM" // Rachel
	DefaultOpenAIVoiceID     = "nova"
)

// Voice describes one selectable voice of a speech backend.
type Voice struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Language string `json:"language"`
}

var elevenLabsVoices = []Voice{
	{ID: "qNkzaJoHLLdpvgh5tISm", Name: "Carter the Mountain King (Episch)", Language: "en"},
	{ID: "pNInz6obpgDQGcFmaJgB", Name: "Adam (Männlich, Tief)", Language: "de"},
	{ID: "21m00Tcm4TlvDq8ikWAM", Name: "Rachel (Weiblich, Klar)", Language: "de"},
	{ID: "AZnzlk1XvdvUeBnXmlld", Name: "Domi (Weiblich, Stark)", Language: "de"},
	{ID: "EXAVITQu4vr4xnSDxMaL", Name: "Bella (Weiblich, Weich)", Language: "de"},
	{ID: "MF3mGyEYCl7XYWbV9V6O", Name: "Elli (Weiblich, Emotional)", Language: "de"},
	{ID: "TX3LPaxmHKxFdv7VOQHJ", Name: "Liam (Männlich, Natürlich)", Language: "de"},
}

var openAIVoices = []Voice{
	{ID: "alloy", Name: "Alloy (Neutral)", Language: "en"},
	{ID: "echo", Name: "Echo (Männlich)", Language: "en"},
	{ID: "fable", Name: "Fable (Britisch)", Language: "en"},
	{ID: "onyx", Name: "Onyx (Tief, Männlich)", Language: "en"},
	{ID: "nova", Name: "Nova (Weiblich)", Language: "en"},
	{ID: "shimmer", Name: "Shimmer (Weiblich, Weich)", Language: "en"},
}

// VoicesForBackend returns the selectable voices of a backend. The local
// engine exposes no fixed catalog, its voices depend on the installed
// synthesizer, so it returns an empty list.
func VoicesForBackend(id core.BackendID) []Voice {
	switch id {
	case core.BackendElevenLabs:
		return append([]Voice(nil), elevenLabsVoices...)
	case core.BackendOpenAI:
		return append([]Voice(nil), openAIVoices...)
	default:
		return nil
	}
}
