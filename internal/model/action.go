package model

// Action is a single candidate player action decoded from the Director's
// structured output. OriginalIndex is the position of the action in the
// source batch and is set exactly once at decode time; siblings that fail
// to decode are dropped, so indices in a decoded batch may have gaps.
type Action struct {
	OriginalIndex int    `json:"original_index"`
	ActionText    string `json:"action_text"`
	Skill         string `json:"skill"`
	Difficulty    string `json:"difficulty"`
	Risk          string `json:"risk"`

	SuccessConsequence       string            `json:"success_consequence"`
	SuccessStateChanges      map[string]string `json:"success_state_changes,omitempty"`
	SuccessSublocationChange string            `json:"success_sublocation_change,omitempty"`
	SuccessItemsGained       []string          `json:"success_items_gained,omitempty"`
	SuccessCompanionsGained  []string          `json:"success_companions_gained,omitempty"`

	FailureConsequence string `json:"failure_consequence"`
	FailureType        string `json:"failure_type"`
}
