package digest

import "encoding/json"

// Status is the terminal state of one digest run.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// Stage names the pipeline step an outcome refers to.
type Stage string

const (
	StageInput      Stage = "input"
	StageLock       Stage = "lock"
	StageDefinition Stage = "definition"
	StageGather     Stage = "gather"
	StageSelect     Stage = "select"
	StageAssemble   Stage = "assemble"
	StagePublish    Stage = "publish"
	StagePanic      Stage = "panic"
)

// Skip reasons.
const (
	ReasonDefinitionAbsent = "definition-absent"
	ReasonAlreadyRunning   = "already-running"
)

// Outcome is the result of Pipeline.Run. Callers decide on retries and
// alerting from it.
type Outcome struct {
	Status Status
	Stage  Stage
	Reason string
	ItemID string
	Err    error
}

func completed(itemID string) Outcome {
	return Outcome{Status: StatusCompleted, Stage: StagePublish, ItemID: itemID}
}

func skipped(stage Stage, reason string) Outcome {
	return Outcome{Status: StatusSkipped, Stage: stage, Reason: reason}
}

func failed(stage Stage, err error) Outcome {
	return Outcome{Status: StatusFailed, Stage: stage, Err: err}
}

// Failed reports whether the run ended in an error.
func (o Outcome) Failed() bool { return o.Status == StatusFailed }

// MarshalJSON renders Err as a string.
func (o Outcome) MarshalJSON() ([]byte, error) {
	out := struct {
		Status Status `json:"status"`
		Stage  Stage  `json:"stage,omitempty"`
		Reason string `json:"reason,omitempty"`
		ItemID string `json:"item_id,omitempty"`
		Error  string `json:"error,omitempty"`
	}{
		Status: o.Status,
		Stage:  o.Stage,
		Reason: o.Reason,
		ItemID: o.ItemID,
	}
	if o.Err != nil {
		out.Error = o.Err.Error()
	}
	return json.Marshal(out)
}
