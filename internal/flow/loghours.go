package flow

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/nsvirk/hrassistapi/internal/models"
)

// Log hours states
const (
	LogHoursCollectingTask        State = "collecting_task"
	LogHoursCollectingHours       State = "collecting_hours"
	LogHoursCollectingDescription State = "collecting_description"
)

// LogHoursData is the stored progress of a timesheet entry
type LogHoursData struct {
	Task        string  `json:"task,omitempty"`
	Hours       float64 `json:"hours,omitempty"`
	Description string  `json:"description,omitempty"`
	Date        string  `json:"date,omitempty"`
}

// LogHoursMachine drives timesheet entries for today
type LogHoursMachine struct{}

func (LogHoursMachine) Type() models.SessionType {
	return models.SessionLogHours
}

func (m LogHoursMachine) Transition(now time.Time, state State, raw json.RawMessage, in Input) (Step, error) {
	var data LogHoursData
	if err := decode(raw, &data); err != nil {
		return Step{}, err
	}
	if state != StateConfirm && in.isCancel() {
		return step(StateCancelled, data, cancelledReply())
	}

	switch state {
	case StateStarted:
		data.Date = Today(now).Format(isoDate)
		if task, ok := in.Value(KeyLogHoursTask); ok && task != "" {
			data.Task = task
			return step(LogHoursCollectingHours, data, logHoursPrompt(""))
		}
		return step(LogHoursCollectingTask, data, logTaskPrompt())

	case LogHoursCollectingTask:
		task, ok := in.Value(KeyLogHoursTask)
		if !ok {
			if in.IsWidget() {
				return step(state, data, logTaskPrompt())
			}
			task = in.Text
		}
		if task == "" {
			return step(state, data, logTaskPrompt())
		}
		data.Task = task
		return step(LogHoursCollectingHours, data, logHoursPrompt(""))

	case LogHoursCollectingHours:
		v, ok := in.Value(KeyLogHoursHours)
		if !ok {
			if in.IsWidget() {
				return step(state, data, logHoursPrompt(""))
			}
			v = in.Text
		}
		hours, err := ParseWorkHours(v)
		if err != nil {
			return step(state, data, logHoursPrompt("Please enter a number of hours between 0 and 24, e.g. 2.5 or 1:30."))
		}
		data.Hours = hours
		return step(LogHoursCollectingDescription, data, Reply{Text: "What did you work on?"})

	case LogHoursCollectingDescription:
		if in.IsWidget() || in.Text == "" {
			return step(state, data, Reply{Text: "What did you work on?"})
		}
		data.Description = in.Text
		return step(StateConfirm, data, logHoursConfirmPrompt(data))

	case StateConfirm:
		switch {
		case in.Is(ButtonConfirm):
			return step(StateApproved, data,
				Reply{Text: fmt.Sprintf("Logged %s hours on %s.", formatHours(data.Hours), data.Task)},
				metricEffect(models.MetricLogHours, map[string]interface{}{
					"task":  data.Task,
					"hours": data.Hours,
					"date":  data.Date,
				}))
		case in.isCancel():
			return step(StateCancelled, data, cancelledReply())
		default:
			return step(state, data, logHoursConfirmPrompt(data))
		}
	}

	return Step{}, fmt.Errorf("log_hours: unknown state %q", state)
}

func formatHours(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64)
}

func logTaskPrompt() Reply {
	return Reply{Text: "Which task should I log hours against?", Widget: &Widget{Type: WidgetSelect, Fields: []string{KeyLogHoursTask}}}
}

func logHoursPrompt(text string) Reply {
	if text == "" {
		text = "How many hours did you spend?"
	}
	return Reply{Text: text, Widget: &Widget{Type: WidgetNumber, Fields: []string{KeyLogHoursHours}}}
}

func logHoursConfirmPrompt(d LogHoursData) Reply {
	return Reply{
		Text: fmt.Sprintf("Please confirm your timesheet entry:\n- Task: %s\n- Hours: %s\n- Date: %s\n- Description: %s",
			d.Task, formatHours(d.Hours), d.Date, d.Description),
		Buttons: confirmButtons(),
	}
}
