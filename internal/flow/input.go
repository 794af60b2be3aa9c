// Package flow implements the conversational workflows as explicit state machines.
//
// Every machine is a pure function of (now, state, data, input) and never touches
// storage. The engine in internal/service persists the result.
package flow

import (
	"strings"
)

// Widget keys understood by the machines
const (
	KeyStart                    = "start"
	KeyEditTimeoff              = "edit_timeoff"
	KeyEditOvertime             = "edit_overtime"
	KeyTimeoffDateRange         = "timeoff_date_range"
	KeyTimeoffLeaveType         = "timeoff_leave_type"
	KeyOvertimeDateRange        = "overtime_date_range"
	KeyHourFrom                 = "hour_from"
	KeyHourTo                   = "hour_to"
	KeyOvertimeProjectID        = "overtime_project_id"
	KeyReimbursementCategory    = "reimbursement_category"
	KeyReimbursementAmount      = "reimbursement_amount"
	KeyReimbursementExpenseDate = "reimbursement_expense_date"
	KeyDocumentType             = "document_type"
	KeyDocumentLanguage         = "document_language"
	KeyEmbassyCountry           = "embassy_country"
	KeyEmbassyDateRange         = "embassy_date_range"
	KeyLogHoursTask             = "log_hours_task"
	KeyLogHoursHours            = "log_hours_hours"
)

var widgetKeys = map[string]bool{
	KeyStart:                    true,
	KeyEditTimeoff:              true,
	KeyEditOvertime:             true,
	KeyTimeoffDateRange:         true,
	KeyTimeoffLeaveType:         true,
	KeyOvertimeDateRange:        true,
	KeyHourFrom:                 true,
	KeyHourTo:                   true,
	KeyOvertimeProjectID:        true,
	KeyReimbursementCategory:    true,
	KeyReimbursementAmount:      true,
	KeyReimbursementExpenseDate: true,
	KeyDocumentType:             true,
	KeyDocumentLanguage:         true,
	KeyEmbassyCountry:           true,
	KeyEmbassyDateRange:         true,
	KeyLogHoursTask:             true,
	KeyLogHoursHours:            true,
}

// Button values shared by the machines
const (
	ButtonConfirm  = "confirm"
	ButtonCancel   = "cancel"
	ButtonWithdraw = "withdraw"
)

// Input is one user message, classified as a widget reply or free text
type Input struct {
	Text   string
	Widget map[string]string
}

// ParseInput classifies raw. A message is a widget input when every `&`
// separated part is `key=value` with a known key.
func ParseInput(raw string) Input {
	text := strings.TrimSpace(raw)
	in := Input{Text: text}
	if text == "" || !strings.Contains(text, "=") {
		return in
	}

	values := make(map[string]string)
	for _, part := range strings.Split(text, "&") {
		key, value, ok := strings.Cut(part, "=")
		key = strings.TrimSpace(key)
		if !ok || !widgetKeys[key] {
			return in
		}
		values[key] = strings.TrimSpace(value)
	}
	in.Widget = values
	return in
}

// IsWidget reports whether the input came from a structured control
func (in Input) IsWidget() bool {
	return in.Widget != nil
}

// Value returns the widget value for key
func (in Input) Value(key string) (string, bool) {
	if in.Widget == nil {
		return "", false
	}
	v, ok := in.Widget[key]
	return v, ok
}

// Is reports whether the free text equals the button value, ignoring case
func (in Input) Is(button string) bool {
	return !in.IsWidget() && strings.EqualFold(in.Text, button)
}

func (in Input) isCancel() bool {
	return in.Is(ButtonCancel)
}
