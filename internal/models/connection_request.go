package models

import "gorm.io/gorm"

// ConnectionRequestStatus is the lifecycle state of a connection request.
type ConnectionRequestStatus string

const (
	ConnectionStatusPending  ConnectionRequestStatus = "pending"
	ConnectionStatusAccepted ConnectionRequestStatus = "accepted"
	ConnectionStatusRejected ConnectionRequestStatus = "rejected"
)

// ConnectionRequest records the mutual-consent handshake between two users.
// At most one row exists per unordered pair: PairKey stores the canonical
// ordering of the two IDs and carries the unique index, so concurrent
// requests in opposite directions conflict on insert instead of producing
// two rows. Accepted and rejected are terminal.
type ConnectionRequest struct {
	BaseModel
	RequesterID string                  `gorm:"type:uuid;not null;index" json:"requesterId"`
	RequestedID string                  `gorm:"type:uuid;not null;index" json:"requestedId"`
	PairKey     string                  `gorm:"type:varchar(80);not null;uniqueIndex:idx_connection_pair" json:"-"`
	Status      ConnectionRequestStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
}

// BeforeCreate fills in the canonical pair key from the two participant IDs.
func (c *ConnectionRequest) BeforeCreate(tx *gorm.DB) error {
	if err := c.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	if c.PairKey == "" {
		user1, user2 := OrderedPair(c.RequesterID, c.RequestedID)
		c.PairKey = user1 + ":" + user2
	}
	return nil
}

// TableName specifies the table name for the ConnectionRequest model.
func (ConnectionRequest) TableName() string {
	return "connection_requests"
}

// PairStatus is the connection state between two users as seen from one
// side of the pair. It folds the stored row's status together with the
// direction of the pending request relative to the caller.
type PairStatus string

const (
	PairStatusNone            PairStatus = "none"
	PairStatusPendingSent     PairStatus = "pending_sent"
	PairStatusPendingReceived PairStatus = "pending_received"
	PairStatusAccepted        PairStatus = "accepted"
	PairStatusRejected        PairStatus = "rejected"
)

// ConnectionRequestWithRequester is a DTO for the pending-requests list,
// pairing the request with basic info about who sent it.
type ConnectionRequestWithRequester struct {
	ConnectionRequest
	Requester *UserBasicInfo `json:"requester"`
}
