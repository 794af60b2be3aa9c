package models

import "time"

const RememberMeTokensTableName = "remember_me_tokens"

// RememberMeTokenModel is a hashed auto-login token bound to one device
type RememberMeTokenModel struct {
	ID                uint       `gorm:"primaryKey" json:"-"`
	Username          string     `gorm:"size:128;not null;uniqueIndex:idx_rm_user_device,priority:1" json:"username"`
	DeviceFingerprint string     `gorm:"size:256;not null;uniqueIndex:idx_rm_user_device,priority:2;index" json:"device_fingerprint"`
	TokenHash         string     `gorm:"size:64;not null;uniqueIndex" json:"-"`
	EncryptedPassword string     `gorm:"not null" json:"-"`
	CreatedAt         time.Time  `gorm:"autoCreateTime:false" json:"created_at"`
	LastUsedAt        *time.Time `json:"last_used_at,omitempty"`
}

func (RememberMeTokenModel) TableName() string {
	return RememberMeTokensTableName
}

// LastActivity returns last_used_at, falling back to created_at
func (t *RememberMeTokenModel) LastActivity() time.Time {
	if t.LastUsedAt != nil {
		return *t.LastUsedAt
	}
	return t.CreatedAt
}
