package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/settleops/settlement-engine/internal/domain"
	"github.com/settleops/settlement-engine/internal/transport"
	"go.uber.org/zap"
)

func TestPermissionIntegration_CreateRequest(t *testing.T) {
	t.Parallel()

	svc := &stubPermissionService{
		createRequestFn: func(ctx context.Context, resourceType, resourceID, action, message, senderID string) (*domain.PermissionGrant, error) {
			grant := &domain.PermissionGrant{
				ID:           "g-created",
				SenderID:     senderID,
				ResourceType: resourceType,
				ResourceID:   resourceID,
				Action:       action,
				Message:      message,
				Status:       domain.GrantPending,
			}
			if err := grant.Validate(); err != nil {
				return nil, err
			}
			return grant, nil
		},
	}
	app := newPermissionTestApp(t, svc)

	validBody := `{"resource_type":"process","resource_id":"new","action":"create","message":"bulk bonus run","sender_id":"operator-1"}`
	resp, body := performRequest(t, app, http.MethodPost, "/v1/permission-requests", validBody, "")
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("status = %d, want 201, body=%s", resp.StatusCode, string(body))
	}

	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if parsed["id"] != "g-created" {
		t.Fatalf("id = %v, want g-created", parsed["id"])
	}
	if parsed["status"] != domain.GrantPending.String() {
		t.Fatalf("status = %v, want PENDING", parsed["status"])
	}

	missingActionBody := `{"resource_type":"process","resource_id":"p-1","sender_id":"operator-1"}`
	resp, _ = performRequest(t, app, http.MethodPost, "/v1/permission-requests", missingActionBody, "")
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for missing action", resp.StatusCode)
	}
}

func TestPermissionIntegration_ListWithStatusFilter(t *testing.T) {
	t.Parallel()

	svc := &stubPermissionService{
		listFn: func(ctx context.Context, status *domain.GrantStatus) ([]domain.PermissionGrant, error) {
			if status == nil || *status != domain.GrantPending {
				t.Fatalf("status filter = %v, want PENDING", status)
			}
			return []domain.PermissionGrant{
				{ID: "g-1", SenderID: "operator-1", Status: domain.GrantPending},
			}, nil
		},
	}
	app := newPermissionTestApp(t, svc)

	resp, body := performRequest(t, app, http.MethodGet, "/v1/permission-requests?status=pending", "", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}

	var parsed []map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if len(parsed) != 1 || parsed[0]["id"] != "g-1" {
		t.Fatalf("list = %v, want g-1", parsed)
	}

	resp, _ = performRequest(t, app, http.MethodGet, "/v1/permission-requests?status=bogus", "", "")
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for invalid status filter", resp.StatusCode)
	}
}

func TestPermissionIntegration_ReviewLifecycle(t *testing.T) {
	t.Parallel()

	reviewed := map[string]domain.GrantStatus{}
	svc := &stubPermissionService{
		reviewFn: func(ctx context.Context, id string, reviewerID string, status domain.GrantStatus) error {
			if _, done := reviewed[id]; done {
				return domain.ErrConflict
			}
			reviewed[id] = status
			return nil
		},
		getFn: func(ctx context.Context, id string) (*domain.PermissionGrant, error) {
			status, ok := reviewed[id]
			if !ok {
				return nil, domain.ErrNotFound
			}
			return &domain.PermissionGrant{ID: id, SenderID: "operator-1", Status: status}, nil
		},
	}
	app := newPermissionTestApp(t, svc)

	resp, body := performRequest(t, app, http.MethodPost, "/v1/permission-requests/g-1/accept",
		`{"reviewer_id":"admin-1"}`, "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}
	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if parsed["status"] != domain.GrantAccepted.String() {
		t.Fatalf("status = %v, want ACCEPTED", parsed["status"])
	}

	resp, _ = performRequest(t, app, http.MethodPost, "/v1/permission-requests/g-1/reject",
		`{"reviewer_id":"admin-2"}`, "")
	if resp.StatusCode != fiber.StatusConflict {
		t.Fatalf("status = %d, want 409 for an already-reviewed grant", resp.StatusCode)
	}

	resp, _ = performRequest(t, app, http.MethodPost, "/v1/permission-requests/g-2/accept", `{}`, "")
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for missing reviewer", resp.StatusCode)
	}
}

func TestPermissionIntegration_Delete(t *testing.T) {
	t.Parallel()

	svc := &stubPermissionService{
		deleteFn: func(ctx context.Context, id string) error {
			if id == "g-gone" {
				return domain.ErrNotFound
			}
			return nil
		},
	}
	app := newPermissionTestApp(t, svc)

	resp, _ := performRequest(t, app, http.MethodDelete, "/v1/permission-requests/g-1", "", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	resp, _ = performRequest(t, app, http.MethodDelete, "/v1/permission-requests/g-gone", "", "")
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

type stubPermissionService struct {
	createRequestFn func(ctx context.Context, resourceType, resourceID, action, message, senderID string) (*domain.PermissionGrant, error)
	reviewFn        func(ctx context.Context, id string, reviewerID string, status domain.GrantStatus) error
	getFn           func(ctx context.Context, id string) (*domain.PermissionGrant, error)
	listFn          func(ctx context.Context, status *domain.GrantStatus) ([]domain.PermissionGrant, error)
	deleteFn        func(ctx context.Context, id string) error
}

func (s *stubPermissionService) CreateRequest(ctx context.Context, resourceType, resourceID, action, message, senderID string) (*domain.PermissionGrant, error) {
	if s.createRequestFn != nil {
		return s.createRequestFn(ctx, resourceType, resourceID, action, message, senderID)
	}
	return nil, fmt.Errorf("not implemented")
}

func (s *stubPermissionService) Accept(ctx context.Context, id string, reviewerID string) error {
	if s.reviewFn != nil {
		return s.reviewFn(ctx, id, reviewerID, domain.GrantAccepted)
	}
	return nil
}

func (s *stubPermissionService) Reject(ctx context.Context, id string, reviewerID string) error {
	if s.reviewFn != nil {
		return s.reviewFn(ctx, id, reviewerID, domain.GrantRejected)
	}
	return nil
}

func (s *stubPermissionService) Get(ctx context.Context, id string) (*domain.PermissionGrant, error) {
	if s.getFn != nil {
		return s.getFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (s *stubPermissionService) List(ctx context.Context, status *domain.GrantStatus) ([]domain.PermissionGrant, error) {
	if s.listFn != nil {
		return s.listFn(ctx, status)
	}
	return nil, nil
}

func (s *stubPermissionService) Delete(ctx context.Context, id string) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, id)
	}
	return nil
}

func newPermissionTestApp(t *testing.T, svc PermissionService) *fiber.App {
	t.Helper()

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(zap.NewNop()),
	})
	RegisterPermissionRoutes(app, svc)

	return app
}
