// Package models contains the persisted models for the HR Assistant API
package models

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

const SessionsTableName = "sessions"

// SessionType is the workflow a conversation thread is running
type SessionType string

const (
	SessionTimeoff       SessionType = "timeoff"
	SessionOvertime      SessionType = "overtime"
	SessionDocument      SessionType = "document"
	SessionReimbursement SessionType = "reimbursement"
	SessionChat          SessionType = "chat"
	SessionLogHours      SessionType = "log_hours"
)

var sessionTypes = map[SessionType]bool{
	SessionTimeoff:       true,
	SessionOvertime:      true,
	SessionDocument:      true,
	SessionReimbursement: true,
	SessionChat:          true,
	SessionLogHours:      true,
}

// ParseSessionType validates s against the known session types
func ParseSessionType(s string) (SessionType, error) {
	t := SessionType(s)
	if !sessionTypes[t] {
		return "", fmt.Errorf("unknown session type %q", s)
	}
	return t, nil
}

// StateStarted is the state of every new session
const StateStarted = "started"

// SessionModel is one conversation thread's workflow progress
type SessionModel struct {
	ThreadID    string         `gorm:"primaryKey;size:64" json:"thread_id"`
	SessionData datatypes.JSON `gorm:"type:jsonb" json:"session_data"`
	SessionType SessionType    `gorm:"size:32;not null" json:"session_type"`
	UserID      string         `gorm:"size:128" json:"user_id,omitempty"`
	State       string         `gorm:"size:64;not null" json:"state"`
	CreatedAt   time.Time      `gorm:"autoCreateTime:false" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime:false" json:"updated_at"`
	ExpiresAt   time.Time      `gorm:"index;not null" json:"expires_at"`
}

func (SessionModel) TableName() string {
	return SessionsTableName
}

// OwnedBy reports whether userID may act on the session. Sessions started
// without a user are open to anyone holding the thread id.
func (s *SessionModel) OwnedBy(userID string) bool {
	return s.UserID == "" || s.UserID == userID
}

// Live reports whether the session has not yet expired at now
func (s *SessionModel) Live(now time.Time) bool {
	return now.Before(s.ExpiresAt)
}
