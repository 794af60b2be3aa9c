package flow

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nsvirk/hrassistapi/internal/models"
)

// Overtime states
const (
	OvertimeCollectingDate    State = "collecting_date"
	OvertimeCollectingHours   State = "collecting_hours"
	OvertimeCollectingProject State = "collecting_project"
)

// OvertimeClaimWindow is how far back overtime can still be claimed
const OvertimeClaimWindow = 30 * 24 * time.Hour

// OvertimeData is the stored progress of an overtime request
type OvertimeData struct {
	Date      string  `json:"date,omitempty"`
	HourFrom  string  `json:"hour_from,omitempty"`
	HourTo    string  `json:"hour_to,omitempty"`
	Hours     float64 `json:"hours,omitempty"`
	ProjectID string  `json:"project_id,omitempty"`
	EditRef   string  `json:"edit_ref,omitempty"`
}

func (d OvertimeData) summary() map[string]interface{} {
	p := map[string]interface{}{
		"date":       d.Date,
		"hour_from":  d.HourFrom,
		"hour_to":    d.HourTo,
		"hours":      d.Hours,
		"project_id": d.ProjectID,
	}
	if d.EditRef != "" {
		p["request_ref"] = d.EditRef
	}
	return p
}

// OvertimeMachine drives overtime requests
type OvertimeMachine struct{}

func (OvertimeMachine) Type() models.SessionType {
	return models.SessionOvertime
}

func (m OvertimeMachine) Transition(now time.Time, state State, raw json.RawMessage, in Input) (Step, error) {
	var data OvertimeData
	if err := decode(raw, &data); err != nil {
		return Step{}, err
	}

	switch state {
	case StateStarted, StateEditing:
		if ref, ok := in.Value(KeyEditOvertime); ok && state == StateStarted {
			if ref == "" {
				return step(state, data, Reply{Text: "I couldn't tell which request you want to edit."})
			}
			data.EditRef = ref
			return step(StateEditing, data, Reply{
				Text:   fmt.Sprintf("You're editing overtime request %s. Pick the new date, or withdraw the request.", ref),
				Widget: dateWidget(KeyOvertimeDateRange),
				Buttons: []Button{
					{Label: "Withdraw request", Value: ButtonWithdraw},
					{Label: "Cancel", Value: ButtonCancel},
				},
			})
		}
		if state == StateEditing && in.Is(ButtonWithdraw) {
			return step(StateCancelled, data,
				Reply{Text: fmt.Sprintf("Your overtime request %s has been withdrawn.", data.EditRef)},
				metricEffect(models.MetricOvertimeCancellation, data.summary()))
		}
		if in.isCancel() {
			return step(StateCancelled, data, cancelledReply())
		}
		if text, ok := in.Value(KeyOvertimeDateRange); ok {
			day, problem := overtimeDay(text, now)
			if problem != "" {
				return step(state, data, overtimeDatePrompt(problem))
			}
			data.Date = day.Format(isoDate)
			return step(OvertimeCollectingHours, data, overtimeHoursPrompt(data.Date))
		}
		if !in.IsWidget() {
			if day, problem := overtimeDay(in.Text, now); problem == "" {
				data.Date = day.Format(isoDate)
				return step(OvertimeCollectingHours, data, overtimeHoursPrompt(data.Date))
			}
		}
		return step(OvertimeCollectingDate, data, overtimeDatePrompt("Which day did you work overtime?"))

	case OvertimeCollectingDate:
		if in.isCancel() {
			return step(StateCancelled, data, cancelledReply())
		}
		text, ok := in.Value(KeyOvertimeDateRange)
		if !ok {
			if in.IsWidget() {
				return step(state, data, overtimeDatePrompt("Please pick the overtime date."))
			}
			text = in.Text
		}
		day, problem := overtimeDay(text, now)
		if problem != "" {
			return step(state, data, overtimeDatePrompt(problem))
		}
		data.Date = day.Format(isoDate)
		return step(OvertimeCollectingHours, data, overtimeHoursPrompt(data.Date))

	case OvertimeCollectingHours:
		if in.isCancel() {
			return step(StateCancelled, data, cancelledReply())
		}
		var (
			hr  HourRange
			err error
		)
		from, hasFrom := in.Value(KeyHourFrom)
		to, hasTo := in.Value(KeyHourTo)
		switch {
		case hasFrom && hasTo:
			hr, err = NewHourRange(from, to)
		case in.IsWidget():
			return step(state, data, overtimeHoursPrompt(data.Date))
		default:
			hr, err = ParseHourRange(in.Text)
		}
		if err != nil {
			reply := overtimeHoursPrompt(data.Date)
			reply.Text = "I couldn't use those hours. The end time must be after the start time, e.g. 17:00 to 19:00."
			return step(state, data, reply)
		}
		data.HourFrom, data.HourTo, data.Hours = hr.From.String(), hr.To.String(), hr.Hours()
		return step(OvertimeCollectingProject, data, overtimeProjectPrompt())

	case OvertimeCollectingProject:
		if in.isCancel() {
			return step(StateCancelled, data, cancelledReply())
		}
		project, ok := in.Value(KeyOvertimeProjectID)
		if !ok || project == "" {
			return step(state, data, overtimeProjectPrompt())
		}
		data.ProjectID = project
		return step(StateConfirm, data, overtimeConfirmPrompt(data))

	case StateConfirm:
		switch {
		case in.Is(ButtonConfirm):
			day, err := time.Parse(isoDate, data.Date)
			if err != nil {
				return Step{}, fmt.Errorf("stored overtime date %q: %w", data.Date, err)
			}
			if day.Before(Today(now).Add(-OvertimeClaimWindow)) {
				return step(StateRefused, data,
					Reply{Text: "Overtime older than 30 days can no longer be claimed, so this request was refused."},
					metricEffect(models.MetricOvertimeRefusal, data.summary()))
			}
			if data.EditRef != "" {
				return step(StateApproved, data,
					Reply{Text: fmt.Sprintf("Your overtime request %s has been updated.", data.EditRef)},
					metricEffect(models.MetricOvertimeEdit, data.summary()))
			}
			return step(StateApproved, data,
				Reply{Text: "Your overtime request has been submitted for approval."},
				metricEffect(models.MetricOvertime, data.summary()),
				metricEffect(models.MetricOvertimeApproval, data.summary()))
		case in.isCancel():
			return step(StateCancelled, data, cancelledReply(),
				metricEffect(models.MetricOvertimeCancellation, data.summary()))
		default:
			return step(state, data, overtimeConfirmPrompt(data))
		}
	}

	return Step{}, fmt.Errorf("overtime: unknown state %q", state)
}

// overtimeDay accepts a single day. A non-empty problem is shown to the user.
func overtimeDay(text string, now time.Time) (time.Time, string) {
	r, err := ParseDateRange(text, now)
	if err != nil {
		return time.Time{}, "I couldn't read that date. Please use DD/MM/YYYY."
	}
	if !r.SingleDay() {
		return time.Time{}, "Overtime is claimed one day at a time. Please pick a single date."
	}
	return r.Start, ""
}

func overtimeDatePrompt(text string) Reply {
	return Reply{Text: text, Widget: dateWidget(KeyOvertimeDateRange), Buttons: []Button{{Label: "Cancel", Value: ButtonCancel}}}
}

func overtimeHoursPrompt(date string) Reply {
	return Reply{
		Text:   fmt.Sprintf("What hours did you work on %s?", date),
		Widget: &Widget{Type: WidgetHourRange, Fields: []string{KeyHourFrom, KeyHourTo}},
	}
}

func overtimeProjectPrompt() Reply {
	return Reply{
		Text:   "Which project was the overtime for?",
		Widget: &Widget{Type: WidgetSelect, Fields: []string{KeyOvertimeProjectID}},
	}
}

func overtimeConfirmPrompt(d OvertimeData) Reply {
	return Reply{
		Text: fmt.Sprintf("Please confirm your overtime request:\n- Date: %s\n- Hours: %s to %s (%.2fh)\n- Project: %s",
			d.Date, d.HourFrom, d.HourTo, d.Hours, d.ProjectID),
		Buttons: confirmButtons(),
	}
}
