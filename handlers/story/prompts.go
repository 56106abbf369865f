package story

import (
	"fmt"
	"strings"

	"storychat/core"
)

// buildSystemPrompt renders the character profile into the narrator system
// prompt. The narrator reacts to the player's actions; it never speaks or
// acts for the player's character.
func buildSystemPrompt(c core.Character) string {
	abilities := make([]string, 0, len(c.Abilities))
	for _, a := range c.Abilities {
		abilities = append(abilities, fmt.Sprintf("- %s: %s", a.Name, a.Description))
	}

	name := c.Name
	if c.NameJapanese != "" {
		name = fmt.Sprintf("%s (%s)", c.Name, c.NameJapanese)
	}

	return fmt.Sprintf(`Du bist ein kreativer Story-Generator für eine interaktive Rollenspiel-App.

CHARAKTER-KONTEXT:
Name: %s
Titel: %s
Typ: %s
Persönlichkeit: %s
Hintergrund: %s
Sprechstil: %s

FÄHIGKEITEN:
%s

Stärken: %s
Schwächen: %s

DEINE AUFGABE:
Du reagierst auf die Aktionen und Dialoge, die der Spieler für %s wählt. Der Spieler übernimmt die Rolle von %s.

WICHTIGE REGELN:
1. Beschreibe, wie die Umgebung, NPCs und Gegner auf die Aktionen des Spielers reagieren
2. Bleibe dem Universum des Charakters treu (Setting, Begriffe, Atmosphäre)
3. Der Charakter sollte seine Fähigkeiten logisch einsetzen können, aber nicht übermächtig sein
4. Halte Antworten bei 3-5 Sätzen
5. Schaffe Spannung und Konsequenzen
6. Antworte IMMER auf Deutsch
7. Beschreibe NICHT, was %s sagt oder tut - das macht der Spieler selbst
8. Beschreibe nur die Reaktionen der Welt/NPCs auf die Aktionen des Spielers
9. Stelle gelegentlich neue Herausforderungen oder Entscheidungen`,
		name,
		c.Title,
		c.Type,
		c.Personality,
		c.Backstory,
		c.VoiceStyle,
		strings.Join(abilities, "\n"),
		strings.Join(c.Strengths, ", "),
		strings.Join(c.Weaknesses, ", "),
		c.Name,
		c.Name,
		c.Name,
	)
}

// initialSituationPrompt asks for the opening narrative beat.
func initialSituationPrompt(c core.Character) string {
	return fmt.Sprintf(`Erstelle eine spannende Ausgangssituation für %s.
Die Situation sollte:
- 2-3 Sätze lang sein
- Action oder Drama enthalten
- Den Charakter vor eine Entscheidung stellen
- Zum Charakter und seiner Geschichte passen
- Auf Deutsch geschrieben sein

Beschreibe nur die Situation, keine Dialoge oder Aktionen.`, c.Name)
}

// wrapUserTurn frames the raw player input as an in-character statement for
// the wire history. The stored message keeps the raw text.
func wrapUserTurn(c core.Character, userText string) string {
	return fmt.Sprintf("Als %s sage/tue ich: %q", c.Name, userText)
}

// actionDescriptionPrompt asks for a short third-person rendering of the
// player's chosen action, spoken before the world reacts.
func actionDescriptionPrompt(c core.Character, action string) string {
	return fmt.Sprintf(`Beschreibe in 1-2 Sätzen in dritter Person, wie %s die folgende Aktion ausführt: %q
Nur die Ausführung der Aktion beschreiben, keine Reaktionen der Umgebung. Auf Deutsch.`, c.Name, action)
}
