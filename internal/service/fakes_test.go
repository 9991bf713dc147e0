package service

import (
	"context"
	"time"

	"github.com/settleops/settlement-engine/internal/domain"
	"github.com/settleops/settlement-engine/internal/registry"
	"github.com/settleops/settlement-engine/internal/repository"
)

type fakeProcessRepo struct {
	createFn          func(ctx context.Context, process *domain.Process) error
	getByIDFn         func(ctx context.Context, id string) (*domain.Process, error)
	updateStatusFn    func(ctx context.Context, id string, status domain.ProcessStatus) error
	hasActiveFn       func(ctx context.Context, ownerID string) (bool, error)
	statusTransitions []domain.ProcessStatus
}

func (f *fakeProcessRepo) Create(ctx context.Context, process *domain.Process) error {
	if f.createFn != nil {
		return f.createFn(ctx, process)
	}
	return nil
}

func (f *fakeProcessRepo) GetByID(ctx context.Context, id string) (*domain.Process, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return &domain.Process{ID: id, OwnerID: "owner-1", Status: domain.ProcessProcessing}, nil
}

func (f *fakeProcessRepo) UpdateStatus(ctx context.Context, id string, status domain.ProcessStatus) error {
	f.statusTransitions = append(f.statusTransitions, status)
	if f.updateStatusFn != nil {
		return f.updateStatusFn(ctx, id, status)
	}
	return nil
}

func (f *fakeProcessRepo) HasActiveByOwner(ctx context.Context, ownerID string) (bool, error) {
	if f.hasActiveFn != nil {
		return f.hasActiveFn(ctx, ownerID)
	}
	return false, nil
}

type fakeMatchRepo struct {
	createBatchFn     func(ctx context.Context, matches []*domain.Match) error
	getByIDFn         func(ctx context.Context, id string) (*domain.Match, error)
	updateStatusFn    func(ctx context.Context, id string, status domain.MatchStatus) (time.Time, error)
	setPlayerFn       func(ctx context.Context, id string, playerID string) error
	listUnmatchedFn   func(ctx context.Context) ([]domain.Match, error)
	listMatchedFn     func(ctx context.Context, processID string, status domain.MatchStatus) ([]domain.Match, error)
	deleteByProcessFn func(ctx context.Context, processID string) (int64, error)
	reconcileBatchFn  func(ctx context.Context, processID string, updates []repository.MatchStatusUpdate) error
}

func (f *fakeMatchRepo) CreateBatch(ctx context.Context, matches []*domain.Match) error {
	if f.createBatchFn != nil {
		return f.createBatchFn(ctx, matches)
	}
	return nil
}

func (f *fakeMatchRepo) GetByID(ctx context.Context, id string) (*domain.Match, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeMatchRepo) UpdateStatus(ctx context.Context, id string, status domain.MatchStatus) (time.Time, error) {
	if f.updateStatusFn != nil {
		return f.updateStatusFn(ctx, id, status)
	}
	return time.Now(), nil
}

func (f *fakeMatchRepo) SetPlayer(ctx context.Context, id string, playerID string) error {
	if f.setPlayerFn != nil {
		return f.setPlayerFn(ctx, id, playerID)
	}
	return nil
}

func (f *fakeMatchRepo) ListUnmatched(ctx context.Context) ([]domain.Match, error) {
	if f.listUnmatchedFn != nil {
		return f.listUnmatchedFn(ctx)
	}
	return nil, nil
}

func (f *fakeMatchRepo) ListMatched(ctx context.Context, processID string, status domain.MatchStatus) ([]domain.Match, error) {
	if f.listMatchedFn != nil {
		return f.listMatchedFn(ctx, processID, status)
	}
	return nil, nil
}

func (f *fakeMatchRepo) DeleteByProcess(ctx context.Context, processID string) (int64, error) {
	if f.deleteByProcessFn != nil {
		return f.deleteByProcessFn(ctx, processID)
	}
	return 0, nil
}

func (f *fakeMatchRepo) ReconcileBatch(ctx context.Context, processID string, updates []repository.MatchStatusUpdate) error {
	if f.reconcileBatchFn != nil {
		return f.reconcileBatchFn(ctx, processID, updates)
	}
	return nil
}

type fakePlayerRepo struct {
	getByUsernameFn     func(ctx context.Context, username string) (*domain.Player, error)
	getIDsByUsernamesFn func(ctx context.Context, usernames []string) (map[string]string, error)
}

func (f *fakePlayerRepo) GetByUsername(ctx context.Context, username string) (*domain.Player, error) {
	if f.getByUsernameFn != nil {
		return f.getByUsernameFn(ctx, username)
	}
	return nil, domain.ErrNotFound
}

func (f *fakePlayerRepo) GetIDsByUsernames(ctx context.Context, usernames []string) (map[string]string, error) {
	if f.getIDsByUsernamesFn != nil {
		return f.getIDsByUsernamesFn(ctx, usernames)
	}
	return map[string]string{}, nil
}

type fakeTransferRepo struct {
	getByUsernameFn        func(ctx context.Context, username string) (*domain.TransferAccount, error)
	listAllFn              func(ctx context.Context) ([]domain.TransferAccount, error)
	updateCurrencyStatusFn func(ctx context.Context, accountID string, currency string, status string) error
}

func (f *fakeTransferRepo) GetByUsername(ctx context.Context, username string) (*domain.TransferAccount, error) {
	if f.getByUsernameFn != nil {
		return f.getByUsernameFn(ctx, username)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeTransferRepo) ListAll(ctx context.Context) ([]domain.TransferAccount, error) {
	if f.listAllFn != nil {
		return f.listAllFn(ctx)
	}
	return nil, nil
}

func (f *fakeTransferRepo) UpdateCurrencyStatus(ctx context.Context, accountID string, currency string, status string) error {
	if f.updateCurrencyStatusFn != nil {
		return f.updateCurrencyStatusFn(ctx, accountID, currency, status)
	}
	return nil
}

type fakeNotificationRepo struct {
	createFn func(ctx context.Context, notification *domain.Notification) error
	created  []*domain.Notification
}

func (f *fakeNotificationRepo) Create(ctx context.Context, notification *domain.Notification) error {
	if f.createFn != nil {
		if err := f.createFn(ctx, notification); err != nil {
			return err
		}
	}
	f.created = append(f.created, notification)
	return nil
}

func (f *fakeNotificationRepo) ListByRecipient(ctx context.Context, recipient string, limit int) ([]domain.Notification, error) {
	return nil, nil
}

type fakeUserRepo struct {
	getByIDFn    func(ctx context.Context, id string) (*domain.User, error)
	listByRoleFn func(ctx context.Context, role domain.Role) ([]domain.User, error)
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return &domain.User{ID: id, Role: domain.RoleOperator}, nil
}

func (f *fakeUserRepo) ListByRole(ctx context.Context, role domain.Role) ([]domain.User, error) {
	if f.listByRoleFn != nil {
		return f.listByRoleFn(ctx, role)
	}
	return nil, nil
}

type fakePermissionRepo struct {
	createFn               func(ctx context.Context, grant *domain.PermissionGrant) error
	getByIDFn              func(ctx context.Context, id string) (*domain.PermissionGrant, error)
	listFn                 func(ctx context.Context, status *domain.GrantStatus) ([]domain.PermissionGrant, error)
	listAcceptedBySenderFn func(ctx context.Context, senderID string) ([]domain.PermissionGrant, error)
	reviewFn               func(ctx context.Context, id string, reviewerID string, status domain.GrantStatus) error
	deleteFn               func(ctx context.Context, id string) (int64, error)
}

func (f *fakePermissionRepo) Create(ctx context.Context, grant *domain.PermissionGrant) error {
	if f.createFn != nil {
		return f.createFn(ctx, grant)
	}
	return nil
}

func (f *fakePermissionRepo) GetByID(ctx context.Context, id string) (*domain.PermissionGrant, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (f *fakePermissionRepo) List(ctx context.Context, status *domain.GrantStatus) ([]domain.PermissionGrant, error) {
	if f.listFn != nil {
		return f.listFn(ctx, status)
	}
	return nil, nil
}

func (f *fakePermissionRepo) ListAcceptedBySender(ctx context.Context, senderID string) ([]domain.PermissionGrant, error) {
	if f.listAcceptedBySenderFn != nil {
		return f.listAcceptedBySenderFn(ctx, senderID)
	}
	return nil, nil
}

func (f *fakePermissionRepo) Review(ctx context.Context, id string, reviewerID string, status domain.GrantStatus) error {
	if f.reviewFn != nil {
		return f.reviewFn(ctx, id, reviewerID, status)
	}
	return nil
}

func (f *fakePermissionRepo) Delete(ctx context.Context, id string) (int64, error) {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id)
	}
	return 0, nil
}

type notifyCall struct {
	ActorID string
	Message string
	Type    domain.NotificationType
}

type fakeNotifyAller struct {
	calls []notifyCall
}

func (f *fakeNotifyAller) NotifyAll(ctx context.Context, actorID string, message string, typ domain.NotificationType) {
	f.calls = append(f.calls, notifyCall{ActorID: actorID, Message: message, Type: typ})
}

type emitted struct {
	Recipient string
	Event     registry.Event
}

type fakeRegistry struct {
	emits      []emitted
	broadcasts []registry.Event
}

func (f *fakeRegistry) AddListener(recipient string, fn registry.ListenerFunc) func() {
	return func() {}
}

func (f *fakeRegistry) RemoveListener(recipient string, token uint64) {}

func (f *fakeRegistry) Emit(recipient string, event registry.Event) {
	f.emits = append(f.emits, emitted{Recipient: recipient, Event: event})
}

func (f *fakeRegistry) Broadcast(event registry.Event) {
	f.broadcasts = append(f.broadcasts, event)
}
