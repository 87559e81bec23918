package types

import "encoding/json"

// Selector is a named search query used to gather digest inputs.
type Selector struct {
	Query  string `json:"query" validate:"required"`
	Count  int    `json:"count" validate:"gt=0"`
	Reason string `json:"reason"`
}

// DigestDefinition is the declarative configuration of a digest builder.
type DigestDefinition struct {
	Name                string     `json:"name" validate:"required"`
	PreferenceSelectors []Selector `json:"preferenceSelectors" validate:"dive"`
	CandidateSelectors  []Selector `json:"candidateSelectors" validate:"dive"`
	FastMatchAttributes []string   `json:"fastMatchAttributes"`
	SelectionPrompt     string     `json:"selectionPrompt" validate:"required"`
	AssemblePrompt      string     `json:"assemblePrompt" validate:"required"`
	IntroductionCopy    []string   `json:"introductionCopy"`
}

// SelectionResultItem is one entry of the model's selection answer.
// Nothing in it is trusted until resolved against the candidate list.
type SelectionResultItem struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Topic  string `json:"topic"`
	Reason string `json:"reason"`
}

// UnmarshalJSON accepts the id as a JSON string or number. Any other id
// value decodes to "" so that the entry fails to resolve instead of
// rejecting the whole answer.
func (s *SelectionResultItem) UnmarshalJSON(data []byte) error {
	type plain SelectionResultItem
	var raw struct {
		plain
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = SelectionResultItem(raw.plain)
	s.ID = looseID(raw.ID)
	return nil
}

func looseID(raw json.RawMessage) string {
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return str
	}
	var num json.Number
	if err := json.Unmarshal(raw, &num); err == nil {
		return num.String()
	}
	return ""
}

// SelectedLibraryItem is a selection entry joined with its library item.
type SelectedLibraryItem struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Topic string `json:"topic"`
	URL   string `json:"url"`
}

// DigestJob is the input of one digest run.
type DigestJob struct {
	UserID string `json:"user_id" binding:"required"`
}
