package decoder_test

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"action-critic/internal/decoder"
)

func newDecoder() *decoder.Decoder {
	return decoder.New(zerolog.Nop())
}

func TestDecode_EnvelopeFailures(t *testing.T) {
	d := newDecoder()

	testCases := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"empty input", "", decoder.ErrEmptyInput},
		{"blank input", "   \n\t  ", decoder.ErrEmptyInput},
		{"not JSON", "the director is on strike today", decoder.ErrInvalidJSON},
		{"JSON but not an object", `["a","b"]`, decoder.ErrInvalidJSON},
		{"missing actions key", `{"choices":[]}`, decoder.ErrMissingActions},
		{"actions is not an array", `{"actions":{"a":1}}`, decoder.ErrInvalidJSON},
		{"empty actions array", `{"actions":[]}`, decoder.ErrNoDecodableActions},
		{"all elements malformed", `{"actions":["x",42]}`, decoder.ErrNoDecodableActions},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			actions, err := d.Decode(tc.input)
			assert.Nil(t, actions)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestDecode_MalformedElementIsSkipped(t *testing.T) {
	d := newDecoder()
	raw := `{"actions":[
		{"action_text":"Climb the wall"},
		"not an object",
		{"action_text":"Bribe the guard"}
	]}`

	actions, err := d.Decode(raw)
	require.NoError(t, err)
	require.Len(t, actions, 2)

	// Original indices survive the drop of element 1.
	assert.Equal(t, 0, actions[0].OriginalIndex)
	assert.Equal(t, "Climb the wall", actions[0].ActionText)
	assert.Equal(t, 2, actions[1].OriginalIndex)
	assert.Equal(t, "Bribe the guard", actions[1].ActionText)
}

func TestDecode_SkillFallback(t *testing.T) {
	d := newDecoder()

	t.Run("related_skill wins", func(t *testing.T) {
		actions, err := d.Decode(`{"actions":[{"related_skill":"Lockpicking","skill":"Stealth"}]}`)
		require.NoError(t, err)
		assert.Equal(t, "Lockpicking", actions[0].Skill)
	})

	t.Run("falls back to skill", func(t *testing.T) {
		actions, err := d.Decode(`{"actions":[{"skill":"Stealth"}]}`)
		require.NoError(t, err)
		assert.Equal(t, "Stealth", actions[0].Skill)
	})

	t.Run("neither present", func(t *testing.T) {
		actions, err := d.Decode(`{"actions":[{"action_text":"Wait"}]}`)
		require.NoError(t, err)
		assert.Equal(t, "", actions[0].Skill)
	})
}

func TestDecode_FlatSuccessWinsOverNested(t *testing.T) {
	d := newDecoder()
	raw := `{"actions":[{
		"success_consequence":"Door opens",
		"success_consequences":{"description":"Something else entirely"}
	}]}`

	actions, err := d.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "Door opens", actions[0].SuccessConsequence)
	assert.Nil(t, actions[0].SuccessStateChanges)
}

func TestDecode_NestedSuccessDetails(t *testing.T) {
	d := newDecoder()
	raw := `{"actions":[{
		"success_consequences":{
			"description":"The vault swings open",
			"state_changes":{"category":"vault_door","new_state":"open"},
			"sublocation_change":"vault_interior",
			"item_gained":"golden_idol",
			"companion_gained":"grateful_thief"
		}
	}]}`

	actions, err := d.Decode(raw)
	require.NoError(t, err)
	a := actions[0]
	assert.Equal(t, "The vault swings open", a.SuccessConsequence)
	assert.Equal(t, map[string]string{"vault_door": "open"}, a.SuccessStateChanges)
	assert.Equal(t, "vault_interior", a.SuccessSublocationChange)
	assert.Equal(t, []string{"golden_idol"}, a.SuccessItemsGained)
	assert.Equal(t, []string{"grateful_thief"}, a.SuccessCompanionsGained)
}

func TestDecode_NoneSentinelSuppression(t *testing.T) {
	d := newDecoder()

	testCases := []struct {
		name string
		raw  string
	}{
		{"category is none", `{"actions":[{"success_consequences":{"state_changes":{"category":"none","new_state":"open"}}}]}`},
		{"new_state is none", `{"actions":[{"success_consequences":{"state_changes":{"category":"door","new_state":"none"}}}]}`},
		{"category empty", `{"actions":[{"success_consequences":{"state_changes":{"new_state":"open"}}}]}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			actions, err := d.Decode(tc.raw)
			require.NoError(t, err)
			assert.Nil(t, actions[0].SuccessStateChanges)
		})
	}

	t.Run("sublocation and gains", func(t *testing.T) {
		raw := `{"actions":[{"success_consequences":{
			"sublocation_change":"none","item_gained":"none","companion_gained":""
		}}]}`
		actions, err := d.Decode(raw)
		require.NoError(t, err)
		assert.Empty(t, actions[0].SuccessSublocationChange)
		assert.Nil(t, actions[0].SuccessItemsGained)
		assert.Nil(t, actions[0].SuccessCompanionsGained)
	})
}

func TestDecode_FailureFallbacks(t *testing.T) {
	d := newDecoder()

	t.Run("flat form sets description and type", func(t *testing.T) {
		actions, err := d.Decode(`{"actions":[{"failure_consequence":"Lock breaks"}]}`)
		require.NoError(t, err)
		assert.Equal(t, "Lock breaks", actions[0].FailureConsequence)
		assert.Equal(t, "Lock breaks", actions[0].FailureType)
	})

	t.Run("nested form", func(t *testing.T) {
		raw := `{"actions":[{"failure_consequences":{"type":"alarm","description":"Bells ring out"}}]}`
		actions, err := d.Decode(raw)
		require.NoError(t, err)
		assert.Equal(t, "Bells ring out", actions[0].FailureConsequence)
		assert.Equal(t, "alarm", actions[0].FailureType)
	})

	t.Run("description synthesized from type", func(t *testing.T) {
		raw := `{"actions":[{"failure_consequences":{"type":"trap_triggered"}}]}`
		actions, err := d.Decode(raw)
		require.NoError(t, err)
		assert.Equal(t, "Your action failed: trap_triggered", actions[0].FailureConsequence)
		assert.Equal(t, "trap_triggered", actions[0].FailureType)
	})
}

func TestDecode_EndToEnd(t *testing.T) {
	d := newDecoder()
	raw := `{"actions":[{
		"action_text":"Pick lock",
		"related_skill":"Lockpicking",
		"success_consequence":"Door opens",
		"failure_consequence":"Lock breaks"
	}]}`

	actions, err := d.Decode(raw)
	require.NoError(t, err)
	require.Len(t, actions, 1)

	a := actions[0]
	assert.Equal(t, 0, a.OriginalIndex)
	assert.Equal(t, "Pick lock", a.ActionText)
	assert.Equal(t, "Lockpicking", a.Skill)
	assert.Equal(t, "Door opens", a.SuccessConsequence)
	assert.Equal(t, "Lock breaks", a.FailureConsequence)
	assert.Equal(t, "Lock breaks", a.FailureType)
}
