package decoder

import "action-critic/internal/model"

// wireAction mirrors every shape the Director has ever emitted for one
// action. Flat and nested variants coexist as optional fields; pointers
// distinguish "key present" from "key absent" where precedence depends on
// presence rather than content.
type wireAction struct {
	ActionText   string `json:"action_text"`
	RelatedSkill string `json:"related_skill"`
	Skill        string `json:"skill"`
	Difficulty   string `json:"difficulty"`
	Risk         string `json:"risk"`

	SuccessConsequence  *string             `json:"success_consequence"`
	SuccessConsequences *wireSuccessDetails `json:"success_consequences"`

	FailureConsequence  *string             `json:"failure_consequence"`
	FailureConsequences *wireFailureDetails `json:"failure_consequences"`
}

type wireSuccessDetails struct {
	Description       string           `json:"description"`
	StateChanges      *wireStateChange `json:"state_changes"`
	SublocationChange string           `json:"sublocation_change"`
	ItemGained        string           `json:"item_gained"`
	CompanionGained   string           `json:"companion_gained"`
}

type wireStateChange struct {
	Category string `json:"category"`
	NewState string `json:"new_state"`
}

type wireFailureDetails struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// An extractStrategy copies one field group from the wire form into the
// record and reports whether it matched. Strategies run in priority order;
// the first match ends the chain, so older flat shapes always win over the
// newer nested ones.
type extractStrategy func(wire *wireAction, action *model.Action) bool

var successStrategies = []extractStrategy{
	extractFlatSuccess,
	extractNestedSuccess,
}

var failureStrategies = []extractStrategy{
	extractFlatFailure,
	extractNestedFailure,
}

func extractFlatSuccess(wire *wireAction, action *model.Action) bool {
	if wire.SuccessConsequence == nil {
		return false
	}
	action.SuccessConsequence = *wire.SuccessConsequence
	return true
}

func extractNestedSuccess(wire *wireAction, action *model.Action) bool {
	details := wire.SuccessConsequences
	if details == nil {
		return false
	}
	action.SuccessConsequence = details.Description

	if sc := details.StateChanges; sc != nil && meaningful(sc.Category) && meaningful(sc.NewState) {
		action.SuccessStateChanges = map[string]string{sc.Category: sc.NewState}
	}
	if meaningful(details.SublocationChange) {
		action.SuccessSublocationChange = details.SublocationChange
	}
	if meaningful(details.ItemGained) {
		action.SuccessItemsGained = []string{details.ItemGained}
	}
	if meaningful(details.CompanionGained) {
		action.SuccessCompanionsGained = []string{details.CompanionGained}
	}
	return true
}

// extractFlatFailure handles the legacy flat form, which conflates the
// failure description and its type in a single string.
func extractFlatFailure(wire *wireAction, action *model.Action) bool {
	if wire.FailureConsequence == nil {
		return false
	}
	action.FailureConsequence = *wire.FailureConsequence
	action.FailureType = *wire.FailureConsequence
	return true
}

func extractNestedFailure(wire *wireAction, action *model.Action) bool {
	details := wire.FailureConsequences
	if details == nil {
		return false
	}
	action.FailureType = details.Type
	action.FailureConsequence = details.Description
	return true
}

// meaningful reports whether a value is present and not the "none"
// sentinel the Director emits for "no change".
func meaningful(v string) bool {
	return v != "" && v != sentinelNone
}
