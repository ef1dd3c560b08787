package storage

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"matri-go/internal/models"
)

// ConnectionRequestRepository defines the interface for connection request
// data operations.
type ConnectionRequestRepository interface {
	Create(ctx context.Context, request *models.ConnectionRequest) error
	// FindDirected returns the request sent by requesterID to requestedID,
	// or nil if none exists.
	FindDirected(ctx context.Context, requesterID, requestedID string) (*models.ConnectionRequest, error)
	// FindByPair returns the single request for the unordered pair, in
	// whichever direction it was sent, or nil if none exists.
	FindByPair(ctx context.Context, userA, userB string) (*models.ConnectionRequest, error)
	// UpdatePendingStatus transitions a pending request to a terminal
	// status. The pending guard in the WHERE clause makes terminal states
	// immutable even under concurrent accept/reject. Returns the number of
	// rows updated (0 means the request was not pending anymore).
	UpdatePendingStatus(ctx context.Context, requestID string, status models.ConnectionRequestStatus) (int64, error)
	GetPendingReceived(ctx context.Context, requestedID string) ([]models.ConnectionRequest, error)
}

type gormConnectionRequestRepository struct {
	db *gorm.DB
}

// NewGormConnectionRequestRepository creates a new GORM-based
// ConnectionRequestRepository.
func NewGormConnectionRequestRepository(db *gorm.DB) ConnectionRequestRepository {
	return &gormConnectionRequestRepository{db: db}
}

func (r *gormConnectionRequestRepository) Create(ctx context.Context, request *models.ConnectionRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *gormConnectionRequestRepository) FindDirected(ctx context.Context, requesterID, requestedID string) (*models.ConnectionRequest, error) {
	var request models.ConnectionRequest
	err := r.db.WithContext(ctx).
		Where("requester_id = ? AND requested_id = ?", requesterID, requestedID).
		First(&request).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &request, nil
}

func (r *gormConnectionRequestRepository) FindByPair(ctx context.Context, userA, userB string) (*models.ConnectionRequest, error) {
	var request models.ConnectionRequest
	err := r.db.WithContext(ctx).
		Where("(requester_id = ? AND requested_id = ?) OR (requester_id = ? AND requested_id = ?)",
			userA, userB, userB, userA).
		First(&request).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &request, nil
}

func (r *gormConnectionRequestRepository) UpdatePendingStatus(ctx context.Context, requestID string, status models.ConnectionRequestStatus) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.ConnectionRequest{}).
		Where("id = ? AND status = ?", requestID, models.ConnectionStatusPending).
		Update("status", status)
	return result.RowsAffected, result.Error
}

func (r *gormConnectionRequestRepository) GetPendingReceived(ctx context.Context, requestedID string) ([]models.ConnectionRequest, error) {
	var requests []models.ConnectionRequest
	err := r.db.WithContext(ctx).
		Where("requested_id = ? AND status = ?", requestedID, models.ConnectionStatusPending).
		Order("created_at DESC").
		Find(&requests).Error
	return requests, err
}
