// Package decoder turns the Director's raw structured output into canonical
// action records. The Director's schema drifts between releases: fields move
// between flat and nested shapes and may be omitted entirely, so every field
// is extracted through an ordered chain of strategies where the first match
// wins. Decoding is pure: no external calls, no mutable state.
package decoder

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"action-critic/internal/model"
)

// sentinelNone is the literal the Director uses for "no change". It is
// distinct from an absent field but treated the same way.
const sentinelNone = "none"

var (
	// ErrEmptyInput is returned when the input is blank.
	ErrEmptyInput = errors.New("decoder: empty input")
	// ErrInvalidJSON is returned when the input is not a JSON object.
	ErrInvalidJSON = errors.New("decoder: input is not a valid JSON object")
	// ErrMissingActions is returned when the top-level object has no
	// "actions" key.
	ErrMissingActions = errors.New(`decoder: top-level object has no "actions" array`)
	// ErrNoDecodableActions is returned when every element of a non-empty
	// batch failed to decode.
	ErrNoDecodableActions = errors.New("decoder: no action in the batch could be decoded")
)

// Decoder decodes Director batches. The logger is only used to report
// skipped elements; decoding itself never fails on a single bad element.
type Decoder struct {
	log zerolog.Logger
}

func New(log zerolog.Logger) *Decoder {
	return &Decoder{log: log.With().Str("component", "decoder").Logger()}
}

// Decode parses a raw Director response into an ordered list of action
// records. Envelope-level failures (blank input, malformed JSON, missing
// "actions" key) abort the whole decode. A failure on a single element is
// logged with its index and the element is dropped; OriginalIndex always
// reflects the position in the source batch, not in the returned slice.
// Only a batch with zero decodable elements is an error.
func (d *Decoder) Decode(raw string) ([]model.Action, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrEmptyInput
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}

	rawActions, ok := envelope["actions"]
	if !ok {
		return nil, ErrMissingActions
	}
	var elements []json.RawMessage
	if err := json.Unmarshal(rawActions, &elements); err != nil {
		return nil, fmt.Errorf("%w: \"actions\" is not an array: %v", ErrInvalidJSON, err)
	}

	actions := make([]model.Action, 0, len(elements))
	for i, element := range elements {
		action, err := d.decodeElement(i, element)
		if err != nil {
			d.log.Warn().Int("index", i).Err(err).Msg("skipping undecodable action element")
			continue
		}
		actions = append(actions, action)
	}

	if len(actions) == 0 {
		if len(elements) == 0 {
			return nil, ErrNoDecodableActions
		}
		return nil, fmt.Errorf("%w: all %d elements malformed", ErrNoDecodableActions, len(elements))
	}
	return actions, nil
}

// decodeElement decodes one element of the batch. idx is the position in
// the source array and becomes the record's immutable OriginalIndex.
func (d *Decoder) decodeElement(idx int, element json.RawMessage) (model.Action, error) {
	var wire wireAction
	if err := json.Unmarshal(element, &wire); err != nil {
		return model.Action{}, fmt.Errorf("unmarshal element: %w", err)
	}

	action := model.Action{
		OriginalIndex: idx,
		ActionText:    wire.ActionText,
		Skill:         firstNonEmpty(wire.RelatedSkill, wire.Skill),
		Difficulty:    wire.Difficulty,
		Risk:          wire.Risk,
	}

	for _, extract := range successStrategies {
		if extract(&wire, &action) {
			break
		}
	}
	for _, extract := range failureStrategies {
		if extract(&wire, &action) {
			break
		}
	}
	if action.FailureConsequence == "" && action.FailureType != "" {
		action.FailureConsequence = fmt.Sprintf("Your action failed: %s", action.FailureType)
	}

	return action, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
