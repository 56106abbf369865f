package factories_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"storychat/core"
	"storychat/factories"
)

func TestRostersSplitByType(t *testing.T) {
	t.Parallel()

	heroes := factories.Heroes()
	require.NotEmpty(t, heroes)
	for _, h := range heroes {
		require.Equal(t, core.CharacterHero, h.Type, h.ID)
		require.NotEmpty(t, h.Abilities, h.ID)
	}

	demons := factories.Demons()
	require.NotEmpty(t, demons)
	for _, d := range demons {
		require.Equal(t, core.CharacterDemon, d.Type, d.ID)
	}

	require.Len(t, factories.AllCharacters(), len(heroes)+len(demons))
}

func TestFindCharacter(t *testing.T) {
	t.Parallel()

	c, ok := factories.FindCharacter("tanjiro")
	require.True(t, ok)
	require.Equal(t, "Tanjiro Kamado", c.Name)

	_, ok = factories.FindCharacter("goku")
	require.False(t, ok)
}

func TestRostersReturnCopies(t *testing.T) {
	t.Parallel()

	heroes := factories.Heroes()
	heroes[0].Name = "mutated"
	require.NotEqual(t, "mutated", factories.Heroes()[0].Name)
}

func TestVoicesForBackend(t *testing.T) {
	t.Parallel()

	eleven := factories.VoicesForBackend(core.BackendElevenLabs)
	require.NotEmpty(t, eleven)
	for _, v := range eleven {
		require.NotEmpty(t, v.ID)
		require.NotEmpty(t, v.Name)
	}

	openai := factories.VoicesForBackend(core.BackendOpenAI)
	require.NotEmpty(t, openai)

	require.Nil(t, factories.VoicesForBackend(core.BackendLocal))
	require.Nil(t, factories.VoicesForBackend(core.BackendID("azure")))
}
