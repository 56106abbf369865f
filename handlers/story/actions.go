package story

import (
	"fmt"

	"storychat/core"
)

// ActionCategory groups the quick-action buttons a player can pick instead of
// free text.
type ActionCategory string

const (
	ActionFriendly  ActionCategory = "friendly"
	ActionInsulting ActionCategory = "insulting"
	ActionAttack    ActionCategory = "attack"
	ActionFlee      ActionCategory = "flee"
)

// Action is one character-specific quick action. Description is the text sent
// as the player's turn.
type Action struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	Description string `json:"description"`
}

// ActionsForCategory derives four quick actions for the category from the
// character's abilities, strengths, and weaknesses.
func ActionsForCategory(c core.Character, category ActionCategory) []Action {
	switch category {
	case ActionFriendly:
		return friendlyActions(c)
	case ActionInsulting:
		return insultingActions(c)
	case ActionAttack:
		return attackActions(c)
	case ActionFlee:
		return fleeActions(c)
	default:
		return nil
	}
}

func abilityName(c core.Character, i int, fallback string) string {
	if i < len(c.Abilities) && c.Abilities[i].Name != "" {
		return c.Abilities[i].Name
	}
	return fallback
}

func friendlyActions(c core.Character) []Action {
	ability := abilityName(c, 0, "Technik")
	return []Action{
		{ID: "friendly-1", Text: "Biete Hilfe an", Description: fmt.Sprintf("Als %s biete ich meine Unterstützung an", c.Name)},
		{ID: "friendly-2", Text: fmt.Sprintf("Erkläre %s", ability), Description: fmt.Sprintf("Erkläre freundlich meine %s", ability)},
		{ID: "friendly-3", Text: "Teile Weisheit", Description: fmt.Sprintf("Gebe einen weisen Rat im Stil von %s", c.Name)},
		{ID: "friendly-4", Text: "Stelle mich vor", Description: fmt.Sprintf("Stelle mich als %s vor", c.Title)},
	}
}

func insultingActions(c core.Character) []Action {
	return []Action{
		{ID: "insulting-1", Text: "Verspotte den Gegner", Description: fmt.Sprintf("Verspotte im Stil von %s", c.Name)},
		{ID: "insulting-2", Text: "Provoziere zum Kampf", Description: "Fordere arrogant heraus"},
		{ID: "insulting-3", Text: "Zeige Verachtung", Description: "Zeige tiefe Verachtung für die Schwäche des Gegners"},
		{ID: "insulting-4", Text: "Drohe subtil", Description: "Drohe auf charakteristische Art und Weise"},
	}
}

func attackActions(c core.Character) []Action {
	first := abilityName(c, 0, "Erste Technik")
	second := abilityName(c, 1, "Zweite Technik")
	third := abilityName(c, 2, "Kombination")
	thirdDesc := "Kombiniere mehrere Techniken"
	if len(c.Abilities) > 2 {
		thirdDesc = fmt.Sprintf("Nutze %s", third)
	}
	strength := "Kampfkraft"
	if len(c.Strengths) > 0 {
		strength = c.Strengths[0]
	}

	return []Action{
		{ID: "attack-1", Text: first, Description: fmt.Sprintf("Setze %s ein", first)},
		{ID: "attack-2", Text: second, Description: fmt.Sprintf("Verwende %s", second)},
		{ID: "attack-3", Text: third, Description: thirdDesc},
		{ID: "attack-4", Text: fmt.Sprintf("Nutze %s", strength), Description: fmt.Sprintf("Setze meine Stärke %q taktisch ein", strength)},
	}
}

func fleeActions(c core.Character) []Action {
	ability := abilityName(c, 0, "Fähigkeit")
	return []Action{
		{ID: "flee-1", Text: "Strategischer Rückzug", Description: "Ziehe mich taktisch zurück und analysiere"},
		{ID: "flee-2", Text: "Ablenkung schaffen", Description: "Schaffe Ablenkung um zu entkommen"},
		{ID: "flee-3", Text: fmt.Sprintf("%s zur Flucht", ability), Description: fmt.Sprintf("Nutze %s um Distanz zu gewinnen", ability)},
		{ID: "flee-4", Text: "Versteck suchen", Description: "Suche schnell ein sicheres Versteck"},
	}
}
