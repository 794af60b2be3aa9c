package flow

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nsvirk/hrassistapi/internal/models"
)

// Document states
const (
	DocumentChoosingDocument  State = "choosing_document"
	DocumentChoosingLanguage  State = "choosing_language"
	DocumentCollectingCountry State = "collecting_country"
	DocumentCollectingDates   State = "collecting_dates"
)

// Document kinds
const (
	DocumentEmploymentLetter = "employment_letter"
	DocumentExperienceLetter = "experience_letter"
	DocumentEmbassyLetter    = "embassy_letter"
)

var documentKinds = []Option{
	{Label: "Employment letter", Value: DocumentEmploymentLetter},
	{Label: "Experience letter", Value: DocumentExperienceLetter},
	{Label: "Embassy letter", Value: DocumentEmbassyLetter},
}

var documentLanguages = []Option{
	{Label: "English", Value: "en"},
	{Label: "Arabic", Value: "ar"},
}

// DocumentData is the stored progress of a document request
type DocumentData struct {
	Kind     string `json:"kind,omitempty"`
	Language string `json:"language,omitempty"`
	Country  string `json:"country,omitempty"`
	From     string `json:"from,omitempty"`
	To       string `json:"to,omitempty"`
}

// DocumentMachine drives HR letter requests
type DocumentMachine struct{}

func (DocumentMachine) Type() models.SessionType {
	return models.SessionDocument
}

func (m DocumentMachine) Transition(now time.Time, state State, raw json.RawMessage, in Input) (Step, error) {
	var data DocumentData
	if err := decode(raw, &data); err != nil {
		return Step{}, err
	}
	if state != StateConfirm && in.isCancel() {
		return step(StateCancelled, data, cancelledReply())
	}

	switch state {
	case StateStarted:
		if kind, ok := documentKind(in); ok {
			data.Kind = kind
			return step(DocumentChoosingLanguage, data, documentLanguagePrompt())
		}
		return step(DocumentChoosingDocument, data, documentKindPrompt("Which document do you need?"))

	case DocumentChoosingDocument:
		kind, ok := documentKind(in)
		if !ok {
			return step(state, data, documentKindPrompt("Please choose one of the listed documents."))
		}
		data.Kind = kind
		return step(DocumentChoosingLanguage, data, documentLanguagePrompt())

	case DocumentChoosingLanguage:
		v, ok := in.Value(KeyDocumentLanguage)
		if !ok && !in.IsWidget() {
			v = in.Text
		}
		lang, found := matchOption(documentLanguages, v)
		if !found {
			return step(state, data, documentLanguagePrompt())
		}
		data.Language = lang
		if data.Kind == DocumentEmbassyLetter {
			return step(DocumentCollectingCountry, data, documentCountryPrompt())
		}
		return step(StateConfirm, data, documentConfirmPrompt(data))

	case DocumentCollectingCountry:
		country, ok := in.Value(KeyEmbassyCountry)
		if !ok && !in.IsWidget() {
			country = in.Text
		}
		if strings.TrimSpace(country) == "" {
			return step(state, data, documentCountryPrompt())
		}
		data.Country = strings.TrimSpace(country)
		return step(DocumentCollectingDates, data, documentTravelPrompt("What are your travel dates?"))

	case DocumentCollectingDates:
		text, ok := in.Value(KeyEmbassyDateRange)
		if !ok {
			if in.IsWidget() {
				return step(state, data, documentTravelPrompt("Please pick your travel dates."))
			}
			text = in.Text
		}
		r, err := ParseDateRange(text, now)
		if err != nil {
			return step(state, data, documentTravelPrompt("I couldn't read those dates. Please use DD/MM/YYYY to DD/MM/YYYY."))
		}
		if r.End.Before(Today(now)) {
			return step(state, data, documentTravelPrompt("Those travel dates are already in the past."))
		}
		data.From, data.To = r.Start.Format(isoDate), r.End.Format(isoDate)
		return step(StateConfirm, data, documentConfirmPrompt(data))

	case StateConfirm:
		switch {
		case in.Is(ButtonConfirm):
			payload := map[string]interface{}{
				"document_type": data.Kind,
				"language":      data.Language,
			}
			if data.Country != "" {
				payload["country"] = data.Country
			}
			return step(StateApproved, data,
				Reply{Text: "Your document is ready."},
				Effect{Kind: EffectGenerateDocument, Document: &DocumentRequest{
					Kind:     data.Kind,
					Language: data.Language,
					Country:  data.Country,
					From:     data.From,
					To:       data.To,
				}},
				metricEffect(models.MetricDocument, payload))
		case in.isCancel():
			return step(StateCancelled, data, cancelledReply())
		default:
			return step(state, data, documentConfirmPrompt(data))
		}
	}

	return Step{}, fmt.Errorf("document: unknown state %q", state)
}

// documentKind reads the widget value or recognises the kind in free text
func documentKind(in Input) (string, bool) {
	if v, ok := in.Value(KeyDocumentType); ok {
		return matchOption(documentKinds, v)
	}
	if in.IsWidget() {
		return "", false
	}
	text := strings.ToLower(in.Text)
	for _, kw := range []struct{ word, kind string }{
		{"embassy", DocumentEmbassyLetter},
		{"visa", DocumentEmbassyLetter},
		{"experience", DocumentExperienceLetter},
		{"employment", DocumentEmploymentLetter},
		{"salary certificate", DocumentEmploymentLetter},
	} {
		if strings.Contains(text, kw.word) {
			return kw.kind, true
		}
	}
	return matchOption(documentKinds, in.Text)
}

func matchOption(options []Option, v string) (string, bool) {
	v = strings.TrimSpace(v)
	for _, o := range options {
		if strings.EqualFold(v, o.Value) || strings.EqualFold(v, o.Label) {
			return o.Value, true
		}
	}
	return "", false
}

func optionLabel(options []Option, value string) string {
	for _, o := range options {
		if o.Value == value {
			return o.Label
		}
	}
	return value
}

func documentKindPrompt(text string) Reply {
	return Reply{Text: text, Widget: selectWidget(KeyDocumentType, documentKinds)}
}

func documentLanguagePrompt() Reply {
	return Reply{Text: "Which language should the letter be in?", Widget: selectWidget(KeyDocumentLanguage, documentLanguages)}
}

func documentCountryPrompt() Reply {
	return Reply{Text: "Which country's embassy is the letter addressed to?", Widget: &Widget{Type: WidgetText, Fields: []string{KeyEmbassyCountry}}}
}

func documentTravelPrompt(text string) Reply {
	return Reply{Text: text, Widget: dateRangeWidget(KeyEmbassyDateRange)}
}

func documentConfirmPrompt(d DocumentData) Reply {
	var b strings.Builder
	b.WriteString("Please confirm your document request:\n")
	fmt.Fprintf(&b, "- Document: %s\n", optionLabel(documentKinds, d.Kind))
	fmt.Fprintf(&b, "- Language: %s", optionLabel(documentLanguages, d.Language))
	if d.Kind == DocumentEmbassyLetter {
		fmt.Fprintf(&b, "\n- Country: %s\n- Travel: %s to %s", d.Country, d.From, d.To)
	}
	return Reply{Text: b.String(), Buttons: confirmButtons()}
}
