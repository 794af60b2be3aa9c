package flow

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nsvirk/hrassistapi/internal/apperr"
	"github.com/nsvirk/hrassistapi/internal/models"
)

// Time off states
const (
	TimeoffCollectingDates  State = "collecting_dates"
	TimeoffCollectingReason State = "collecting_reason"
)

var errRangeInPast = errors.New("range ends in the past")

// TimeoffData is the stored progress of a time off request
type TimeoffData struct {
	Start     string `json:"start,omitempty"`
	End       string `json:"end,omitempty"`
	LeaveType string `json:"leave_type,omitempty"`
	Reason    string `json:"reason,omitempty"`
	EditRef   string `json:"edit_ref,omitempty"`
}

func (d TimeoffData) editing() bool {
	return d.EditRef != ""
}

func (d TimeoffData) summary() map[string]interface{} {
	p := map[string]interface{}{
		"start_date": d.Start,
		"end_date":   d.End,
		"reason":     d.Reason,
	}
	if d.LeaveType != "" {
		p["leave_type"] = d.LeaveType
	}
	if d.EditRef != "" {
		p["request_ref"] = d.EditRef
	}
	return p
}

// TimeoffMachine drives time off requests
type TimeoffMachine struct{}

func (TimeoffMachine) Type() models.SessionType {
	return models.SessionTimeoff
}

func (m TimeoffMachine) Transition(now time.Time, state State, raw json.RawMessage, in Input) (Step, error) {
	var data TimeoffData
	if err := decode(raw, &data); err != nil {
		return Step{}, err
	}

	switch state {
	case StateStarted, StateEditing:
		return m.fromStart(now, state, data, in)

	case TimeoffCollectingDates:
		if in.isCancel() {
			return step(StateCancelled, data, cancelledReply())
		}
		if lt, ok := in.Value(KeyTimeoffLeaveType); ok && lt != "" {
			data.LeaveType = lt
		}
		text, ok := in.Value(KeyTimeoffDateRange)
		if !ok {
			if in.IsWidget() {
				return step(state, data, timeoffDatesPrompt("Please pick the dates for your time off."))
			}
			text = in.Text
		}
		r, err := validTimeoffRange(text, now)
		if err != nil {
			return step(state, data, timeoffDatesPrompt(timeoffRangeProblem(err)))
		}
		data.Start, data.End = r.Start.Format(isoDate), r.End.Format(isoDate)
		return step(TimeoffCollectingReason, data, timeoffReasonPrompt(r))

	case TimeoffCollectingReason:
		if in.isCancel() {
			return step(StateCancelled, data, cancelledReply())
		}
		if in.IsWidget() || in.Text == "" {
			return step(state, data, Reply{Text: "Please tell me briefly why you need this time off."})
		}
		data.Reason = in.Text
		return step(StateConfirm, data, timeoffConfirmPrompt(data))

	case StateConfirm:
		switch {
		case in.Is(ButtonConfirm):
			end, err := time.Parse(isoDate, data.End)
			if err != nil {
				return Step{}, fmt.Errorf("stored end date %q: %w", data.End, err)
			}
			if end.Before(Today(now)) {
				return step(StateRefused, data,
					Reply{Text: "This request can no longer be submitted because its dates are already in the past."},
					metricEffect(models.MetricTimeoffRefusal, data.summary()))
			}
			if data.editing() {
				return step(StateApproved, data,
					Reply{Text: fmt.Sprintf("Your time off request %s has been updated.", data.EditRef)},
					metricEffect(models.MetricTimeoffEdit, data.summary()))
			}
			return step(StateApproved, data,
				Reply{Text: "Your time off request has been submitted and is pending your manager's approval."},
				metricEffect(models.MetricTimeoff, data.summary()),
				metricEffect(models.MetricTimeoffApproval, data.summary()))
		case in.isCancel():
			return step(StateCancelled, data, cancelledReply(),
				metricEffect(models.MetricTimeoffCancellation, data.summary()))
		default:
			return step(state, data, timeoffConfirmPrompt(data))
		}
	}

	return Step{}, fmt.Errorf("timeoff: unknown state %q", state)
}

func (m TimeoffMachine) fromStart(now time.Time, state State, data TimeoffData, in Input) (Step, error) {
	if ref, ok := in.Value(KeyEditTimeoff); ok && state == StateStarted {
		if ref == "" {
			return step(state, data, Reply{Text: "I couldn't tell which request you want to edit."})
		}
		data.EditRef = ref
		return step(StateEditing, data, timeoffEditPrompt(ref))
	}
	if state == StateEditing && in.Is(ButtonWithdraw) {
		return step(StateCancelled, data,
			Reply{Text: fmt.Sprintf("Your time off request %s has been withdrawn.", data.EditRef)},
			metricEffect(models.MetricTimeoffCancellation, data.summary()))
	}
	if in.isCancel() {
		return step(StateCancelled, data, cancelledReply())
	}
	if lt, ok := in.Value(KeyTimeoffLeaveType); ok && lt != "" {
		data.LeaveType = lt
	}

	if text, ok := in.Value(KeyTimeoffDateRange); ok {
		r, err := validTimeoffRange(text, now)
		if err != nil {
			return step(state, data, timeoffDatesPrompt(timeoffRangeProblem(err)))
		}
		data.Start, data.End = r.Start.Format(isoDate), r.End.Format(isoDate)
		return step(TimeoffCollectingReason, data, timeoffReasonPrompt(r))
	}

	if !in.IsWidget() {
		if r, err := validTimeoffRange(in.Text, now); err == nil {
			data.Start, data.End = r.Start.Format(isoDate), r.End.Format(isoDate)
			return step(TimeoffCollectingReason, data, timeoffReasonPrompt(r))
		}
	}
	return step(TimeoffCollectingDates, data, timeoffDatesPrompt("Sure, which dates would you like to take off?"))
}

// validTimeoffRange parses text and applies the business rule: the range must not end in the past
func validTimeoffRange(text string, now time.Time) (DateRange, error) {
	r, err := ParseDateRange(text, now)
	if err != nil {
		return DateRange{}, err
	}
	if r.End.Before(Today(now)) {
		return DateRange{}, fmt.Errorf("%w: %w", apperr.ErrMalformedInput, errRangeInPast)
	}
	return r, nil
}

func timeoffRangeProblem(err error) string {
	if errors.Is(err, errRangeInPast) {
		return "Those dates are already in the past. Please pick dates from today onwards."
	}
	return "I couldn't read those dates. Please use DD/MM/YYYY to DD/MM/YYYY."
}

func timeoffDatesPrompt(text string) Reply {
	return Reply{Text: text, Widget: dateRangeWidget(KeyTimeoffDateRange), Buttons: []Button{{Label: "Cancel", Value: ButtonCancel}}}
}

func timeoffEditPrompt(ref string) Reply {
	return Reply{
		Text:   fmt.Sprintf("You're editing time off request %s. Pick new dates, or withdraw the request.", ref),
		Widget: dateRangeWidget(KeyTimeoffDateRange),
		Buttons: []Button{
			{Label: "Withdraw request", Value: ButtonWithdraw},
			{Label: "Cancel", Value: ButtonCancel},
		},
	}
}

func timeoffReasonPrompt(r DateRange) Reply {
	days := "1 day"
	if n := r.Days(); n > 1 {
		days = fmt.Sprintf("%d days", n)
	}
	return Reply{Text: fmt.Sprintf("Got it, %s (%s). What's the reason for your time off?", r, days)}
}

func timeoffConfirmPrompt(d TimeoffData) Reply {
	var b strings.Builder
	b.WriteString("Please confirm your time off request:\n")
	fmt.Fprintf(&b, "- Dates: %s to %s\n", d.Start, d.End)
	if d.LeaveType != "" {
		fmt.Fprintf(&b, "- Leave type: %s\n", d.LeaveType)
	}
	fmt.Fprintf(&b, "- Reason: %s", d.Reason)
	return Reply{Text: b.String(), Buttons: confirmButtons()}
}
