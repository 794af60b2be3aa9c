package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/nsvirk/hrassistapi/internal/apperr"
	"github.com/nsvirk/hrassistapi/internal/flow"
	"github.com/nsvirk/hrassistapi/internal/models"
	"github.com/nsvirk/hrassistapi/pkg/utils/zaplogger"
	"gorm.io/datatypes"
)

// ExpiredMessage is shown when a reply arrives for a session that no longer exists
const ExpiredMessage = "Your session expired, please restart."

var errDocumentFailed = errors.New("document generation failed")

// ChatRequest is one inbound chat message
type ChatRequest struct {
	ThreadID string
	UserID   string
	Message  string
}

// ChatResponse is the bot's answer for a thread
type ChatResponse struct {
	ThreadID string `json:"thread_id"`
	flow.Reply
	SessionType models.SessionType `json:"session_type,omitempty"`
	State       string             `json:"state,omitempty"`
}

// FlowService routes chat messages into workflow sessions
type FlowService struct {
	sessions  *SessionService
	metrics   *MetricsService
	responder Responder
	documents DocumentGenerator
}

// NewFlowService creates the conversation engine
func NewFlowService(sessions *SessionService, metrics *MetricsService, responder Responder, documents DocumentGenerator) *FlowService {
	return &FlowService{
		sessions:  sessions,
		metrics:   metrics,
		responder: responder,
		documents: documents,
	}
}

// Handle evaluates one message against the thread's live session, starting a
// workflow when the message is a trigger and none is running.
func (s *FlowService) Handle(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	threadID := req.ThreadID
	if threadID == "" {
		threadID = uuid.NewString()
	}
	in := flow.ParseInput(req.Message)
	resp := &ChatResponse{ThreadID: threadID}

	session, err := s.sessions.Get(ctx, threadID)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return nil, fmt.Errorf("load session: %w", err)
	}

	if session == nil {
		sessionType, ok := flow.DetectTrigger(in)
		if !ok {
			if in.IsWidget() || in.Is(flow.ButtonConfirm) || in.Is(flow.ButtonCancel) || in.Is(flow.ButtonWithdraw) {
				return expired(resp), nil
			}
			return s.chat(ctx, req, resp)
		}

		session, err = s.sessions.Create(ctx, threadID, req.UserID, sessionType)
		if errors.Is(err, apperr.ErrConflict) {
			// another request started one first; feed the input to it
			session, err = s.sessions.Get(ctx, threadID)
		}
		if errors.Is(err, apperr.ErrNotFound) {
			return expired(resp), nil
		}
		if err != nil {
			return nil, fmt.Errorf("start session: %w", err)
		}
		zaplogger.Debug("session started", zaplogger.Fields{
			"thread_id":    threadID,
			"session_type": string(session.SessionType),
		})
	}

	if !session.OwnedBy(req.UserID) {
		return nil, fmt.Errorf("thread %s: %w", threadID, apperr.ErrForbidden)
	}
	if session.SessionType == models.SessionChat {
		return s.chat(ctx, req, resp)
	}
	machine, ok := flow.Lookup(session.SessionType)
	if !ok {
		return nil, fmt.Errorf("no workflow for session type %q", session.SessionType)
	}

	now := s.sessions.NowFunc()

	// documents are rendered before the row is locked; the locked transition
	// must then ask for the same document or the attempt is retried
	preview, err := machine.Transition(now, flow.State(session.State), json.RawMessage(session.SessionData), in)
	if err != nil {
		return nil, fmt.Errorf("evaluate session: %w", err)
	}
	var attachment *flow.Attachment
	if docReq := preview.DocumentRequest(); docReq != nil {
		attachment, err = s.documents.Generate(ctx, *docReq)
		if err != nil {
			return documentRetry(resp, session, fmt.Errorf("%w: %v", errDocumentFailed, err)), nil
		}
	}

	var result flow.Step
	_, err = s.sessions.Update(ctx, threadID, func(sess *models.SessionModel) error {
		if !sess.OwnedBy(req.UserID) {
			return apperr.ErrForbidden
		}
		next, err := machine.Transition(now, flow.State(sess.State), json.RawMessage(sess.SessionData), in)
		if err != nil {
			return err
		}
		if docReq := next.DocumentRequest(); docReq != nil {
			want := preview.DocumentRequest()
			if attachment == nil || want == nil || *want != *docReq {
				return fmt.Errorf("%w: session changed while rendering", errDocumentFailed)
			}
			next.Reply.Attachment = attachment
		}
		sess.State = string(next.State)
		sess.SessionData = datatypes.JSON(next.Data)
		result = next
		return nil
	})
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return expired(resp), nil
	case errors.Is(err, apperr.ErrForbidden):
		return nil, fmt.Errorf("thread %s: %w", threadID, err)
	case errors.Is(err, errDocumentFailed):
		return documentRetry(resp, session, err), nil
	case err != nil:
		return nil, fmt.Errorf("update session: %w", err)
	}

	if result.State.Terminal() {
		if err := s.sessions.Delete(ctx, threadID); err != nil {
			zaplogger.Warn("finished session not deleted", zaplogger.Fields{
				"thread_id": threadID,
				"error":     err.Error(),
			})
		}
	}

	for _, e := range result.Effects {
		if e.Kind != flow.EffectMetric {
			continue
		}
		s.record(MetricEvent{
			Type:     e.Metric,
			ThreadID: threadID,
			UserID:   req.UserID,
			Payload:  e.Payload,
			At:       now,
		})
	}

	resp.Reply = result.Reply
	resp.SessionType = session.SessionType
	resp.State = string(result.State)
	return resp, nil
}

// Clear drops the thread's session so the next message starts fresh.
// Clearing a thread with no live session succeeds.
func (s *FlowService) Clear(ctx context.Context, threadID, userID string) error {
	session, err := s.sessions.Get(ctx, threadID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if !session.OwnedBy(userID) {
		return fmt.Errorf("thread %s: %w", threadID, apperr.ErrForbidden)
	}
	return s.sessions.Delete(ctx, threadID)
}

func (s *FlowService) chat(ctx context.Context, req ChatRequest, resp *ChatResponse) (*ChatResponse, error) {
	reply, err := s.responder.Respond(ctx, resp.ThreadID, req.Message)
	if err != nil {
		return nil, fmt.Errorf("chat responder: %w", err)
	}
	s.record(MetricEvent{
		Type:          models.MetricChat,
		ThreadID:      resp.ThreadID,
		UserID:        req.UserID,
		OncePerThread: true,
	})
	resp.Reply = reply
	resp.SessionType = models.SessionChat
	return resp, nil
}

func (s *FlowService) record(ev MetricEvent) {
	if err := s.metrics.Record(ev); err != nil {
		zaplogger.Error("metric rejected", zaplogger.Fields{
			"metric_type": string(ev.Type),
			"error":       err.Error(),
		})
	}
}

// documentRetry leaves the session where it was and offers the confirm again
func documentRetry(resp *ChatResponse, session *models.SessionModel, err error) *ChatResponse {
	zaplogger.Error("document generation failed", zaplogger.Fields{
		"thread_id": resp.ThreadID,
		"error":     err.Error(),
	})
	resp.Reply = flow.Reply{
		Text:    "I couldn't generate your document right now. Please try again.",
		Buttons: []flow.Button{{Label: "Try again", Value: flow.ButtonConfirm}, {Label: "Cancel", Value: flow.ButtonCancel}},
	}
	resp.SessionType, resp.State = session.SessionType, session.State
	return resp
}

func expired(resp *ChatResponse) *ChatResponse {
	resp.Reply = flow.Reply{Text: ExpiredMessage}
	return resp
}
