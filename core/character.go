package core

// Character types.
const (
	CharacterHero  = "hero"
	CharacterDemon = "demon"
)

// Ability is one named technique or trait of a character.
type Ability struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Character is the read-only profile a session is bound to. It is owned by the
// caller (static data or an external store) and never mutated by the core.
type Character struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	NameJapanese string    `json:"name_japanese,omitempty"`
	Title        string    `json:"title"`
	Type         string    `json:"type"`
	Personality  string    `json:"personality"`
	Backstory    string    `json:"backstory"`
	VoiceStyle   string    `json:"voice_style"`
	Abilities    []Ability `json:"abilities"`
	Strengths    []string  `json:"strengths"`
	Weaknesses   []string  `json:"weaknesses"`
}
