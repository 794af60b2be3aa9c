package service

import (
	"context"

	"github.com/nsvirk/hrassistapi/internal/flow"
)

// Responder is the conversational backend for free chat
type Responder interface {
	Respond(ctx context.Context, threadID, message string) (flow.Reply, error)
}

// MenuResponder answers free chat with the list of available workflows
type MenuResponder struct{}

func (MenuResponder) Respond(ctx context.Context, threadID, message string) (flow.Reply, error) {
	return flow.Reply{
		Text: "Hi! I can help you with the following. What would you like to do?",
		Buttons: []flow.Button{
			{Label: "Request time off", Value: "start=timeoff"},
			{Label: "Request overtime", Value: "start=overtime"},
			{Label: "Claim an expense", Value: "start=reimbursement"},
			{Label: "Log hours", Value: "start=log_hours"},
			{Label: "Get an HR letter", Value: "start=document"},
		},
	}, nil
}
