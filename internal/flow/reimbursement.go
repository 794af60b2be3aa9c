package flow

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nsvirk/hrassistapi/internal/models"
)

// Reimbursement states
const (
	ReimbursementCollectingCategory    State = "collecting_category"
	ReimbursementCollectingAmount      State = "collecting_amount"
	ReimbursementCollectingDate        State = "collecting_date"
	ReimbursementCollectingDescription State = "collecting_description"
)

// ReimbursementCategories are the expense categories offered to the user
var ReimbursementCategories = []Option{
	{Label: "Travel", Value: "travel"},
	{Label: "Meals", Value: "meals"},
	{Label: "Accommodation", Value: "accommodation"},
	{Label: "Transport", Value: "transport"},
	{Label: "Office supplies", Value: "office_supplies"},
	{Label: "Other", Value: "other"},
}

// ReimbursementData is the stored progress of an expense claim
type ReimbursementData struct {
	Category    string `json:"category,omitempty"`
	AmountCents int64  `json:"amount_cents,omitempty"`
	ExpenseDate string `json:"expense_date,omitempty"`
	Description string `json:"description,omitempty"`
}

// ReimbursementMachine drives expense claims
type ReimbursementMachine struct{}

func (ReimbursementMachine) Type() models.SessionType {
	return models.SessionReimbursement
}

func (m ReimbursementMachine) Transition(now time.Time, state State, raw json.RawMessage, in Input) (Step, error) {
	var data ReimbursementData
	if err := decode(raw, &data); err != nil {
		return Step{}, err
	}
	if state != StateConfirm && in.isCancel() {
		return step(StateCancelled, data, cancelledReply())
	}

	switch state {
	case StateStarted:
		if v, ok := in.Value(KeyReimbursementCategory); ok {
			if category, found := reimbursementCategory(v); found {
				data.Category = category
				return step(ReimbursementCollectingAmount, data, reimbursementAmountPrompt(""))
			}
		}
		return step(ReimbursementCollectingCategory, data, reimbursementCategoryPrompt("What kind of expense would you like to claim?"))

	case ReimbursementCollectingCategory:
		v, ok := in.Value(KeyReimbursementCategory)
		if !ok && !in.IsWidget() {
			v = in.Text
		}
		category, found := reimbursementCategory(v)
		if !found {
			return step(state, data, reimbursementCategoryPrompt("Please choose one of the listed categories."))
		}
		data.Category = category
		return step(ReimbursementCollectingAmount, data, reimbursementAmountPrompt(""))

	case ReimbursementCollectingAmount:
		v, ok := in.Value(KeyReimbursementAmount)
		if !ok {
			if in.IsWidget() {
				return step(state, data, reimbursementAmountPrompt(""))
			}
			v = in.Text
		}
		cents, err := ParseAmount(v)
		if err != nil {
			return step(state, data, reimbursementAmountPrompt("Please enter a positive amount, e.g. 125.50."))
		}
		data.AmountCents = cents
		return step(ReimbursementCollectingDate, data, reimbursementDatePrompt("When did you pay for this expense?"))

	case ReimbursementCollectingDate:
		v, ok := in.Value(KeyReimbursementExpenseDate)
		if !ok {
			if in.IsWidget() {
				return step(state, data, reimbursementDatePrompt("Please pick the expense date."))
			}
			v = in.Text
		}
		day, err := ParseDate(v, now)
		if err != nil {
			return step(state, data, reimbursementDatePrompt("I couldn't read that date. Please use DD/MM/YYYY."))
		}
		if day.After(Today(now)) {
			return step(state, data, reimbursementDatePrompt("The expense date can't be in the future."))
		}
		data.ExpenseDate = day.Format(isoDate)
		return step(ReimbursementCollectingDescription, data, Reply{Text: "Briefly describe the expense."})

	case ReimbursementCollectingDescription:
		if in.IsWidget() || in.Text == "" {
			return step(state, data, Reply{Text: "Briefly describe the expense."})
		}
		data.Description = in.Text
		return step(StateConfirm, data, reimbursementConfirmPrompt(data))

	case StateConfirm:
		switch {
		case in.Is(ButtonConfirm):
			return step(StateApproved, data,
				Reply{Text: "Your expense claim has been submitted for approval."},
				metricEffect(models.MetricReimbursement, map[string]interface{}{
					"category":     data.Category,
					"amount":       FormatCents(data.AmountCents),
					"expense_date": data.ExpenseDate,
				}))
		case in.isCancel():
			return step(StateCancelled, data, cancelledReply())
		default:
			return step(state, data, reimbursementConfirmPrompt(data))
		}
	}

	return Step{}, fmt.Errorf("reimbursement: unknown state %q", state)
}

func reimbursementCategory(v string) (string, bool) {
	v = strings.TrimSpace(v)
	for _, o := range ReimbursementCategories {
		if strings.EqualFold(v, o.Value) || strings.EqualFold(v, o.Label) {
			return o.Value, true
		}
	}
	return "", false
}

func reimbursementCategoryPrompt(text string) Reply {
	return Reply{Text: text, Widget: selectWidget(KeyReimbursementCategory, ReimbursementCategories)}
}

func reimbursementAmountPrompt(text string) Reply {
	if text == "" {
		text = "How much did you spend?"
	}
	return Reply{Text: text, Widget: &Widget{Type: WidgetNumber, Fields: []string{KeyReimbursementAmount}}}
}

func reimbursementDatePrompt(text string) Reply {
	return Reply{Text: text, Widget: dateWidget(KeyReimbursementExpenseDate)}
}

func reimbursementConfirmPrompt(d ReimbursementData) Reply {
	return Reply{
		Text: fmt.Sprintf("Please confirm your expense claim:\n- Category: %s\n- Amount: %s\n- Date: %s\n- Description: %s",
			d.Category, FormatCents(d.AmountCents), d.ExpenseDate, d.Description),
		Buttons: confirmButtons(),
	}
}
