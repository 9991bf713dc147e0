package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/settleops/settlement-engine/internal/domain"
	"github.com/settleops/settlement-engine/internal/repository"
	"go.uber.org/zap"
)

// PermissionService owns the request → review → single-use consume
// lifecycle of permission grants.
type PermissionService struct {
	grants repository.PermissionRepository
	logger *zap.Logger
}

func NewPermissionService(grants repository.PermissionRepository, logger *zap.Logger) *PermissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PermissionService{grants: grants, logger: logger}
}

// GrantKey builds the lookup key for a guarded (resource, action) pair.
func GrantKey(resourceID string, action string) string {
	return fmt.Sprintf("%s:%s", resourceID, action)
}

// HasPermission is a pure lookup against a map pre-loaded from ACCEPTED
// grants via LoadAccepted.
func HasPermission(grants map[string]domain.PermissionGrant, resourceID string, action string) (domain.PermissionGrant, bool) {
	grant, ok := grants[GrantKey(resourceID, action)]
	return grant, ok
}

// CreateRequest inserts a PENDING grant for admin review. ResourceID
// "new" is the sentinel for create actions on not-yet-existing resources.
func (s *PermissionService) CreateRequest(
	ctx context.Context,
	resourceType string,
	resourceID string,
	action string,
	message string,
	senderID string,
) (*domain.PermissionGrant, error) {
	grant := &domain.PermissionGrant{
		ID:           uuid.NewString(),
		SenderID:     senderID,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Action:       action,
		Message:      message,
		Status:       domain.GrantPending,
		CreatedAt:    time.Now().UTC(),
	}
	if err := grant.Validate(); err != nil {
		return nil, err
	}
	if err := s.grants.Create(ctx, grant); err != nil {
		return nil, err
	}
	return grant, nil
}

// Accept flips a PENDING grant to ACCEPTED. ErrConflict when the grant
// has already been reviewed.
func (s *PermissionService) Accept(ctx context.Context, id string, reviewerID string) error {
	return s.grants.Review(ctx, id, reviewerID, domain.GrantAccepted)
}

// Reject flips a PENDING grant to REJECTED.
func (s *PermissionService) Reject(ctx context.Context, id string, reviewerID string) error {
	return s.grants.Review(ctx, id, reviewerID, domain.GrantRejected)
}

func (s *PermissionService) Get(ctx context.Context, id string) (*domain.PermissionGrant, error) {
	return s.grants.GetByID(ctx, id)
}

func (s *PermissionService) List(ctx context.Context, status *domain.GrantStatus) ([]domain.PermissionGrant, error) {
	return s.grants.List(ctx, status)
}

func (s *PermissionService) Delete(ctx context.Context, id string) error {
	deleted, err := s.grants.Delete(ctx, id)
	if err != nil {
		return err
	}
	if deleted == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// LoadAccepted builds the {resourceId}:{action} → grant map of the
// sender's ACCEPTED grants for HasPermission lookups.
func (s *PermissionService) LoadAccepted(ctx context.Context, senderID string) (map[string]domain.PermissionGrant, error) {
	grants, err := s.grants.ListAcceptedBySender(ctx, senderID)
	if err != nil {
		return nil, err
	}

	loaded := make(map[string]domain.PermissionGrant, len(grants))
	for _, grant := range grants {
		loaded[GrantKey(grant.ResourceID, grant.Action)] = grant
	}
	return loaded, nil
}

// Consume deletes an ACCEPTED grant after its guarded mutation succeeded;
// one accepted grant authorizes exactly one successful execution. The
// caller must only call this on the success path so a failed mutation
// leaves the grant usable for retry. Deletion failures are swallowed and
// reported as false; the already-applied mutation is never rolled back.
func (s *PermissionService) Consume(ctx context.Context, grantID string) bool {
	deleted, err := s.grants.Delete(ctx, grantID)
	if err != nil {
		s.logger.Error("failed to consume permission grant",
			zap.String("grantId", grantID),
			zap.Error(err),
		)
		return false
	}
	return deleted > 0
}
