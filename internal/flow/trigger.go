package flow

import (
	"strings"

	"github.com/nsvirk/hrassistapi/internal/models"
)

// keyword triggers, checked in order
var triggerKeywords = []struct {
	words []string
	t     models.SessionType
}{
	{[]string{"overtime"}, models.SessionOvertime},
	{[]string{"time off", "timeoff", "leave", "vacation", "holiday", "day off"}, models.SessionTimeoff},
	{[]string{"reimburse", "expense", "claim"}, models.SessionReimbursement},
	{[]string{"log hours", "log my hours", "timesheet"}, models.SessionLogHours},
	{[]string{"letter", "certificate", "document"}, models.SessionDocument},
}

// DetectTrigger maps an input to the workflow it starts, if any.
// `start=<type>` and the edit widgets take precedence over keywords.
func DetectTrigger(in Input) (models.SessionType, bool) {
	if in.IsWidget() {
		if v, ok := in.Value(KeyStart); ok {
			t, err := models.ParseSessionType(strings.ToLower(v))
			if err != nil || t == models.SessionChat {
				return "", false
			}
			return t, true
		}
		if _, ok := in.Value(KeyEditTimeoff); ok {
			return models.SessionTimeoff, true
		}
		if _, ok := in.Value(KeyEditOvertime); ok {
			return models.SessionOvertime, true
		}
		return "", false
	}

	text := strings.ToLower(in.Text)
	for _, kw := range triggerKeywords {
		for _, w := range kw.words {
			if strings.Contains(text, w) {
				return kw.t, true
			}
		}
	}
	return "", false
}
