package models

import (
	"time"

	"gorm.io/datatypes"
)

const SessionMetricsTableName = "session_metrics"

// MetricType is the closed set of audit events
type MetricType string

const (
	MetricTimeoff              MetricType = "timeoff"
	MetricOvertime             MetricType = "overtime"
	MetricDocument             MetricType = "document"
	MetricReimbursement        MetricType = "reimbursement"
	MetricChat                 MetricType = "chat"
	MetricTimeoffApproval      MetricType = "timeoff_approval"
	MetricTimeoffRefusal       MetricType = "timeoff_refusal"
	MetricOvertimeApproval     MetricType = "overtime_approval"
	MetricOvertimeRefusal      MetricType = "overtime_refusal"
	MetricLogHours             MetricType = "log_hours"
	MetricTimeoffEdit          MetricType = "timeoff_edit"
	MetricTimeoffCancellation  MetricType = "timeoff_cancellation"
	MetricOvertimeEdit         MetricType = "overtime_edit"
	MetricOvertimeCancellation MetricType = "overtime_cancellation"
)

// MetricTypes lists every valid metric type in reporting order
var MetricTypes = []MetricType{
	MetricTimeoff,
	MetricOvertime,
	MetricDocument,
	MetricReimbursement,
	MetricChat,
	MetricTimeoffApproval,
	MetricTimeoffRefusal,
	MetricOvertimeApproval,
	MetricOvertimeRefusal,
	MetricLogHours,
	MetricTimeoffEdit,
	MetricTimeoffCancellation,
	MetricOvertimeEdit,
	MetricOvertimeCancellation,
}

// Valid reports whether t belongs to the closed set
func (t MetricType) Valid() bool {
	for _, m := range MetricTypes {
		if m == t {
			return true
		}
	}
	return false
}

// SessionMetricModel is an immutable audit record
type SessionMetricModel struct {
	ID         string         `gorm:"primaryKey;type:uuid" json:"id"`
	MetricType MetricType     `gorm:"size:32;not null;index" json:"metric_type"`
	ThreadID   string         `gorm:"size:64;not null;index" json:"thread_id"`
	UserID     string         `gorm:"size:128" json:"user_id,omitempty"`
	Payload    datatypes.JSON `gorm:"type:jsonb" json:"payload,omitempty"`
	CreatedAt  time.Time      `gorm:"index;not null;autoCreateTime:false" json:"created_at"`
}

func (SessionMetricModel) TableName() string {
	return SessionMetricsTableName
}
