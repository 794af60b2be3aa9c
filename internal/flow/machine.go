package flow

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nsvirk/hrassistapi/internal/models"
)

// State is a per-workflow state tag
type State string

// States shared by every workflow
const (
	StateStarted   State = models.StateStarted
	StateEditing   State = "editing"
	StateConfirm   State = "confirming"
	StateApproved  State = "approved"
	StateRefused   State = "refused"
	StateCancelled State = "cancelled"
)

// Terminal reports whether the workflow is finished
func (s State) Terminal() bool {
	return s == StateApproved || s == StateRefused || s == StateCancelled
}

// Step is the outcome of one transition
type Step struct {
	State   State
	Data    json.RawMessage
	Reply   Reply
	Effects []Effect
}

// Metrics returns the metric types the step emits, in order
func (s Step) Metrics() []models.MetricType {
	var out []models.MetricType
	for _, e := range s.Effects {
		if e.Kind == EffectMetric {
			out = append(out, e.Metric)
		}
	}
	return out
}

// DocumentRequest returns the generate-document effect, if any
func (s Step) DocumentRequest() *DocumentRequest {
	for _, e := range s.Effects {
		if e.Kind == EffectGenerateDocument {
			return e.Document
		}
	}
	return nil
}

// Machine is a workflow state machine. Transition must not mutate data and must not
// fail on user input; errors are reserved for unreadable stored data.
type Machine interface {
	Type() models.SessionType
	Transition(now time.Time, state State, data json.RawMessage, in Input) (Step, error)
}

var machines = map[models.SessionType]Machine{
	models.SessionTimeoff:       TimeoffMachine{},
	models.SessionOvertime:      OvertimeMachine{},
	models.SessionReimbursement: ReimbursementMachine{},
	models.SessionLogHours:      LogHoursMachine{},
	models.SessionDocument:      DocumentMachine{},
}

// Lookup returns the machine for a session type. Chat has none.
func Lookup(t models.SessionType) (Machine, bool) {
	m, ok := machines[t]
	return m, ok
}

func decode(raw json.RawMessage, into interface{}) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return fmt.Errorf("decode session data: %w", err)
	}
	return nil
}

func step(state State, data interface{}, reply Reply, effects ...Effect) (Step, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Step{}, fmt.Errorf("encode session data: %w", err)
	}
	return Step{State: state, Data: raw, Reply: reply, Effects: effects}, nil
}

func cancelledReply() Reply {
	return Reply{Text: "Okay, I've cancelled this request. Let me know if you need anything else."}
}
