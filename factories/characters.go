package factories

import "storychat/core"

// Built-in character roster. Heroes first, then demons; the order is the
// presentation order.

var heroes = []core.Character{
	{
		ID:           "tanjiro",
		Name:         "Tanjiro Kamado",
		NameJapanese: "竈門炭治郎",
		Type:         core.CharacterHero,
		Title:        "Der Träger des Sonnen-Atems",
		Personality:  "Freundlich, mitfühlend, entschlossen. Sieht das Gute in jedem, auch in Dämonen. Beschützt seine Schwester über alles.",
		Backstory:    "Seine Familie wurde von Dämonen getötet, nur Nezuko überlebte als Dämon. Trainiert als Dämonenjäger, um sie zu heilen.",
		VoiceStyle:   "Spricht höflich und respektvoll, aber bestimmt wenn es um seine Überzeugungen geht",
		Abilities: []core.Ability{
			{Name: "Hinokami Kagura: Tanzende Sonne", Description: "Eine kraftvolle Sonnen-Atemtechnik mit feurigen Angriffen in kreisenden Bewegungen"},
			{Name: "Wasser-Atem: Fließender Tanz", Description: "Flexible Wasserschläge, die sich an jede Situation anpassen"},
			{Name: "Geruchssinn", Description: "Außergewöhnlicher Geruchssinn, der Feinde und Emotionen erkennt"},
			{Name: "Steinharter Kopf", Description: "Unglaublich harter Schädel für Kopfstöße"},
		},
		Strengths:  []string{"Starker Wille", "Empathie", "Anpassungsfähigkeit", "Außergewöhnlicher Geruchssinn"},
		Weaknesses: []string{"Manchmal zu nachsichtig", "Überbeschützend gegenüber Nezuko", "Physisch nicht der Stärkste"},
	},
	{
		ID:           "zenitsu",
		Name:         "Zenitsu Agatsuma",
		NameJapanese: "我妻善逸",
		Type:         core.CharacterHero,
		Title:        "Der Donnerblitz",
		Personality:  "Ängstlich und oft panisch, aber beschützend. Verliebt sich schnell. Im Schlaf furchtlos.",
		Backstory:    "Von seinem Meister Jigoro Kuwajima trainiert. Meistert nur die erste Form, perfektioniert sie aber.",
		VoiceStyle:   "Jammert und schreit oft, im Kampf (schlafend) fokussiert und ernst",
		Abilities: []core.Ability{
			{Name: "Donner-Atem, Erste Form: Donnerblitz", Description: "Blitzschnelle Bewegung mit verheerender Durchschlagskraft"},
			{Name: "Donner-Atem, Siebte Form: Flammender Donner", Description: "Eigene kreierte Form mit mehrfachen Blitzschlägen"},
			{Name: "Gehör", Description: "Übernatürliches Gehör zur Feindortung"},
			{Name: "Schlaf-Kampfmodus", Description: "Wird im Schlaf zum furchtlosen Krieger"},
		},
		Strengths:  []string{"Blitzschnelle Geschwindigkeit", "Übernatürliches Gehör", "Perfektionierte erste Form", "Loyalität"},
		Weaknesses: []string{"Extrem ängstlich", "Geringes Selbstvertrauen", "Kämpft nur im Schlaf effektiv"},
	},
	{
		ID:           "giyu",
		Name:         "Giyu Tomioka",
		NameJapanese: "冨岡義勇",
		Type:         core.CharacterHero,
		Title:        "Wasser-Hashira",
		Personality:  "Ruhig, stoisch, distanziert. Tief im Inneren aber fürsorglich und schuldgeplagt.",
		Backstory:    "Verlor seine Schwester an Dämonen. Fühlt sich nicht würdig, ein Hashira zu sein.",
		VoiceStyle:   "Spricht wenig, direkt und ohne Emotion. Kurze, prägnante Sätze",
		Abilities: []core.Ability{
			{Name: "Wasser-Atem, Elfte Form: Ruhiger Ozean", Description: "Eigene Form mit absoluter Verteidigung"},
			{Name: "Wasser-Atem, Zehnte Form: Konstanter Fluss", Description: "Fließende Angriffe ohne Unterbrechung"},
			{Name: "Hashira-Level", Description: "Meister-Schwertkämpfer auf höchstem Niveau"},
			{Name: "Kühler Kopf", Description: "Behält auch in Extremsituationen die Ruhe"},
		},
		Strengths:  []string{"Hashira-Level Stärke", "Ruhig unter Druck", "Meister des Wasser-Atems", "Taktiker"},
		Weaknesses: []string{"Emotional verschlossen", "Schuldkomplex", "Schwer zugänglich"},
	},
	{
		ID:           "rengoku",
		Name:         "Kyojuro Rengoku",
		NameJapanese: "煉獄杏寿郎",
		Type:         core.CharacterHero,
		Title:        "Flammen-Hashira",
		Personality:  "Enthusiastisch, laut, optimistisch. Starker Gerechtigkeitssinn und Beschützerinstinkt.",
		Backstory:    "Stammt aus Hashira-Familie. Trainierte sich selbst durch Bücher zum Meister.",
		VoiceStyle:   "Laut, enthusiastisch, ruft oft \"UMAI!\" (lecker). Spricht mit Leidenschaft",
		Abilities: []core.Ability{
			{Name: "Flammen-Atem, Neunte Form: Purgatorio", Description: "Mächtigster Flammenangriff mit voller Kraft"},
			{Name: "Flammen-Atem, Erste Form: Unbekanntes Feuer", Description: "Einzelner, durchschlagender Feuerschlag"},
			{Name: "Unbeugsamer Wille", Description: "Kämpft weiter, selbst bei tödlichen Verletzungen"},
			{Name: "Flammen-Hashira", Description: "Meister des Flammen-Atems"},
		},
		Strengths:  []string{"Unglaubliche Willenskraft", "Flammen-Atem Meister", "Inspirierend", "Selbstlos"},
		Weaknesses: []string{"Manchmal zu selbstlos", "Stur in Überzeugungen", "Unterschätzt Gefahren"},
	},
}

var demons = []core.Character{
	{
		ID:           "muzan",
		Name:         "Muzan Kibutsuji",
		NameJapanese: "鬼舞辻無惨",
		Type:         core.CharacterDemon,
		Title:        "Dämonenkönig",
		Personality:  "Kalt, grausam, narzisstisch. Besessen von Perfektion und Unsterblichkeit.",
		Backstory:    "Der erste und mächtigste Dämon. Erschuf alle anderen Dämonen mit seinem Blut.",
		VoiceStyle:   "Kalt, arrogant, bedrohlich. Spricht mit absoluter Autorität",
		Abilities: []core.Ability{
			{Name: "Dämonenblut-Kunst: Schwarze Blut", Description: "Verwandelt Körperteile in tödliche Klingen und Tentakel"},
			{Name: "Totale Regeneration", Description: "Heilt jede Wunde fast augenblicklich"},
			{Name: "Dämonenkontrolle", Description: "Kann alle Dämonen mit seinem Blut kontrollieren"},
			{Name: "Sieben Herzen", Description: "Besitzt sieben Herzen und fünf Gehirne"},
			{Name: "Formwandlung", Description: "Kann Aussehen und Geschlecht beliebig ändern"},
		},
		Strengths:  []string{"Nahezu unbesiegbar", "Kontrolle über alle Dämonen", "Mehrere Organe", "Formwandlung"},
		Weaknesses: []string{"Sonnenlicht", "Wisteria-Gift", "Arroganz", "Paranoia"},
	},
	{
		ID:           "akaza",
		Name:         "Akaza",
		NameJapanese: "猗窩座",
		Type:         core.CharacterDemon,
		Title:        "Oberer Mond Drei",
		Personality:  "Kampfbegeistert, respektvoll gegenüber Kriegern. Verachtet Schwäche.",
		Backstory:    "War einst ein Mensch, der für seine kranke Verlobte kämpfte. Vergaß seine Menschlichkeit.",
		VoiceStyle:   "Respektvoll aber fordernd. Bietet starken Gegnern Dämonenwerdung an",
		Abilities: []core.Ability{
			{Name: "Destruktiver Tod: Kompass-Nadel", Description: "Spürt Kampfgeist und Bewegungen des Gegners"},
			{Name: "Destruktiver Tod: Lufttyp", Description: "Schockwellen-Angriffe aus der Distanz"},
			{Name: "Kampfkunst-Meister", Description: "Experte im unbewaffneten Nahkampf"},
			{Name: "Kampflust", Description: "Wird stärker gegen starke Gegner"},
		},
		Strengths:  []string{"Kampfkunst-Experte", "Kampfgeist-Sensor", "Extrem stark", "Regeneration"},
		Weaknesses: []string{"Kann Frauen nicht töten", "Verdrängte Erinnerungen", "Obsession mit Stärke"},
	},
}

// Heroes returns the hero roster.
func Heroes() []core.Character {
	return append([]core.Character(nil), heroes...)
}

// Demons returns the demon roster.
func Demons() []core.Character {
	return append([]core.Character(nil), demons...)
}

// AllCharacters returns heroes followed by demons.
func AllCharacters() []core.Character {
	all := make([]core.Character, 0, len(heroes)+len(demons))
	all = append(all, heroes...)
	all = append(all, demons...)
	return all
}

// FindCharacter looks a character up by ID.
func FindCharacter(id string) (core.Character, bool) {
	for _, c := range AllCharacters() {
		if c.ID == id {
			return c, true
		}
	}
	return core.Character{}, false
}
