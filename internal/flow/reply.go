package flow

import (
	"github.com/nsvirk/hrassistapi/internal/models"
)

// Button is a quick reply; Value is sent back verbatim when pressed
type Button struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Option is one choice of a select widget
type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Widget kinds
const (
	WidgetDateRange = "date_range"
	WidgetDate      = "date"
	WidgetHourRange = "hour_range"
	WidgetSelect    = "select"
	WidgetNumber    = "number"
	WidgetText      = "text"
)

// Widget describes a structured input control. The client answers with
// `field=value`, joining several fields with `&`.
type Widget struct {
	Type    string   `json:"type"`
	Fields  []string `json:"fields"`
	Options []Option `json:"options,omitempty"`
}

// Attachment is a downloadable artifact returned with a reply
type Attachment struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
}

// Reply is what the user sees after a step
type Reply struct {
	Text       string      `json:"text"`
	Buttons    []Button    `json:"buttons,omitempty"`
	Widget     *Widget     `json:"widget,omitempty"`
	Attachment *Attachment `json:"attachment,omitempty"`
}

// EffectKind enumerates side effects the engine carries out after a step
type EffectKind int

const (
	EffectMetric EffectKind = iota + 1
	EffectGenerateDocument
)

// DocumentRequest is what the document generator needs
type DocumentRequest struct {
	Kind     string `json:"kind"`
	Language string `json:"language"`
	Country  string `json:"country,omitempty"`
	From     string `json:"from,omitempty"`
	To       string `json:"to,omitempty"`
}

// Effect is a side effect requested by a transition
type Effect struct {
	Kind     EffectKind
	Metric   models.MetricType
	Payload  map[string]interface{}
	Document *DocumentRequest
}

func metricEffect(t models.MetricType, payload map[string]interface{}) Effect {
	return Effect{Kind: EffectMetric, Metric: t, Payload: payload}
}

func confirmButtons() []Button {
	return []Button{
		{Label: "Confirm", Value: ButtonConfirm},
		{Label: "Cancel", Value: ButtonCancel},
	}
}

func dateRangeWidget(field string) *Widget {
	return &Widget{Type: WidgetDateRange, Fields: []string{field}}
}

func dateWidget(field string) *Widget {
	return &Widget{Type: WidgetDate, Fields: []string{field}}
}

func selectWidget(field string, options []Option) *Widget {
	return &Widget{Type: WidgetSelect, Fields: []string{field}, Options: options}
}
