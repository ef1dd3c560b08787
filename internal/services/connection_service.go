package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"

	"matri-go/internal/models"
	"matri-go/internal/storage"
)

var (
	ErrConnectionSelf       = errors.New("cannot send a connection request to yourself")
	ErrConnectionUserAbsent = errors.New("requested user does not exist")
	ErrConnectionRejected   = errors.New("connection was rejected; you cannot send another request")
	ErrAcceptTheirsInstead  = errors.New("they have already sent you a connection request; accept it from your requests list")
	ErrNoPendingRequest     = errors.New("no pending connection request found")
)

// ConnectionService is the single source of truth for mutual-consent state
// between two users. All operations are idempotent or explicitly rejecting;
// terminal states are never silently overwritten.
type ConnectionService interface {
	// Request creates a pending request from requester to requested. The
	// boolean reports whether a new record was created; an existing pending
	// or accepted record is returned as idempotent success.
	Request(ctx context.Context, requesterID, requestedID string) (*models.ConnectionRequest, bool, error)
	// Accept transitions the pending request sent by requesterID to
	// accepterID into the accepted state.
	Accept(ctx context.Context, accepterID, requesterID string) (*models.ConnectionRequest, error)
	// Reject is symmetric to Accept and transitions to rejected.
	Reject(ctx context.Context, rejecterID, requesterID string) (*models.ConnectionRequest, error)
	// Status resolves the connection state as seen from userID's side.
	Status(ctx context.Context, userID, otherUserID string) (models.PairStatus, *models.ConnectionRequest, error)
	// ListPendingReceived returns pending requests addressed to the user,
	// newest first, enriched with requester info.
	ListPendingReceived(ctx context.Context, userID string) ([]models.ConnectionRequestWithRequester, error)
}

type connectionService struct {
	connRepo storage.ConnectionRequestRepository
	userRepo storage.UserRepository
}

// NewConnectionService creates a new ConnectionService instance.
func NewConnectionService(connRepo storage.ConnectionRequestRepository, userRepo storage.UserRepository) ConnectionService {
	return &connectionService{connRepo: connRepo, userRepo: userRepo}
}

func (s *connectionService) Request(ctx context.Context, requesterID, requestedID string) (*models.ConnectionRequest, bool, error) {
	if requesterID == requestedID {
		return nil, false, ErrConnectionSelf
	}

	if _, err := s.userRepo.GetByID(ctx, requestedID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, ErrConnectionUserAbsent
		}
		return nil, false, fmt.Errorf("checking requested user %s: %w", requestedID, err)
	}

	existing, err := s.connRepo.FindByPair(ctx, requesterID, requestedID)
	if err != nil {
		return nil, false, fmt.Errorf("checking existing connection request: %w", err)
	}
	if existing != nil {
		return s.resolveExisting(existing, requesterID)
	}

	request := &models.ConnectionRequest{
		RequesterID: requesterID,
		RequestedID: requestedID,
		Status:      models.ConnectionStatusPending,
	}
	err = s.connRepo.Create(ctx, request)
	if err == nil {
		return request, true, nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, false, fmt.Errorf("creating connection request: %w", err)
	}

	// Benign race: a same-direction request landed between our lookup and
	// insert. Re-read and resolve as if it had been found the first time.
	existing, findErr := s.connRepo.FindByPair(ctx, requesterID, requestedID)
	if findErr != nil || existing == nil {
		return nil, false, fmt.Errorf("re-reading connection request after conflict: %w", findErr)
	}
	return s.resolveExisting(existing, requesterID)
}

// resolveExisting maps an already-present record for the pair onto the
// request operation's outcome.
func (s *connectionService) resolveExisting(existing *models.ConnectionRequest, requesterID string) (*models.ConnectionRequest, bool, error) {
	switch existing.Status {
	case models.ConnectionStatusAccepted:
		return existing, false, nil // already connected
	case models.ConnectionStatusRejected:
		return nil, false, ErrConnectionRejected
	default: // pending
		if existing.RequesterID == requesterID {
			return existing, false, nil // already sent
		}
		return nil, false, ErrAcceptTheirsInstead
	}
}

func (s *connectionService) Accept(ctx context.Context, accepterID, requesterID string) (*models.ConnectionRequest, error) {
	return s.settle(ctx, accepterID, requesterID, models.ConnectionStatusAccepted)
}

func (s *connectionService) Reject(ctx context.Context, rejecterID, requesterID string) (*models.ConnectionRequest, error) {
	return s.settle(ctx, rejecterID, requesterID, models.ConnectionStatusRejected)
}

// settle transitions a pending request to a terminal state. Only the
// requested party holds this right; anyone else sees NotFound.
func (s *connectionService) settle(ctx context.Context, settlerID, requesterID string, status models.ConnectionRequestStatus) (*models.ConnectionRequest, error) {
	request, err := s.connRepo.FindDirected(ctx, requesterID, settlerID)
	if err != nil {
		return nil, fmt.Errorf("finding connection request: %w", err)
	}
	if request == nil || request.Status != models.ConnectionStatusPending {
		return nil, ErrNoPendingRequest
	}

	updated, err := s.connRepo.UpdatePendingStatus(ctx, request.ID, status)
	if err != nil {
		return nil, fmt.Errorf("updating connection request %s: %w", request.ID, err)
	}
	if updated == 0 {
		// A concurrent accept/reject won; the state is terminal now.
		return nil, ErrNoPendingRequest
	}
	request.Status = status
	return request, nil
}

func (s *connectionService) Status(ctx context.Context, userID, otherUserID string) (models.PairStatus, *models.ConnectionRequest, error) {
	if userID == "" || otherUserID == "" || userID == otherUserID {
		return models.PairStatusNone, nil, nil
	}

	request, err := s.connRepo.FindByPair(ctx, userID, otherUserID)
	if err != nil {
		return models.PairStatusNone, nil, fmt.Errorf("finding connection request: %w", err)
	}
	if request == nil {
		return models.PairStatusNone, nil, nil
	}

	switch request.Status {
	case models.ConnectionStatusAccepted:
		return models.PairStatusAccepted, request, nil
	case models.ConnectionStatusRejected:
		return models.PairStatusRejected, request, nil
	default: // pending
		if request.RequesterID == userID {
			return models.PairStatusPendingSent, request, nil
		}
		return models.PairStatusPendingReceived, request, nil
	}
}

func (s *connectionService) ListPendingReceived(ctx context.Context, userID string) ([]models.ConnectionRequestWithRequester, error) {
	pending, err := s.connRepo.GetPendingReceived(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing pending requests for user %s: %w", userID, err)
	}

	result := make([]models.ConnectionRequestWithRequester, 0, len(pending))
	for _, req := range pending {
		requester, err := s.userRepo.GetBasicInfoByID(ctx, req.RequesterID)
		if err != nil {
			log.Printf("Error fetching requester info for user %s (request %s): %v", req.RequesterID, req.ID, err)
			continue
		}
		result = append(result, models.ConnectionRequestWithRequester{
			ConnectionRequest: req,
			Requester:         requester,
		})
	}
	return result, nil
}
