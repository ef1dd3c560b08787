package models

import "time"

// User represents a registered member of the platform. The messaging core
// consumes it read-only; profile editing lives elsewhere. Email and Phone
// are nullable so that users registered through one channel do not collide
// on the other channel's unique index.
type User struct {
	BaseModel
	FullName       string     `gorm:"type:varchar(100)" json:"fullName,omitempty"`
	Email          *string    `gorm:"type:varchar(100);uniqueIndex" json:"email,omitempty"`
	Phone          *string    `gorm:"type:varchar(20);uniqueIndex" json:"phone,omitempty"`
	Gender         string     `gorm:"type:varchar(10)" json:"gender,omitempty"`
	ProfilePicture string     `gorm:"type:varchar(255)" json:"profilePicture,omitempty"`
	Registered     bool       `gorm:"default:false" json:"registered"`
	LastLoginAt    *time.Time `json:"lastLoginAt,omitempty"`
}

// TableName specifies the table name for the User model.
func (User) TableName() string {
	return "users"
}

// UserBasicInfo holds minimal public information about a user.
// Used when enriching conversations and pending connection requests.
type UserBasicInfo struct {
	ID             string `json:"id"`
	FullName       string `json:"fullName,omitempty"`
	ProfilePicture string `json:"profilePicture,omitempty"`
}

// DeviceToken stores a push-notification token registered by a user's
// device. A user may have several (multi-device).
type DeviceToken struct {
	BaseModel
	UserID   string `gorm:"type:uuid;not null;index" json:"userId"`
	Token    string `gorm:"type:varchar(255);not null;uniqueIndex" json:"token"`
	Platform string `gorm:"type:varchar(10);not null" json:"platform"` // "android" or "ios"
}

// TableName specifies the table name for the DeviceToken model.
func (DeviceToken) TableName() string {
	return "device_tokens"
}
