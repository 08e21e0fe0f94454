package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sakif/repohub/internal/apperror"
	"github.com/sakif/repohub/internal/handler"
	"github.com/sakif/repohub/internal/model"
)

func TestApprovalHandler(t *testing.T) {
	approvals := &stubApprovals{
		approve: func(_ context.Context, actor *model.Identity, repoID string) (*model.Repository, error) {
			if !actor.IsAdmin {
				return nil, apperror.Forbidden("admin access required")
			}
			if repoID == "" {
				return nil, apperror.ValidationFailed("repoId", "repoId is required")
			}
			if repoID == "missing" {
				return nil, apperror.NotFound("repository", repoID)
			}
			return &model.Repository{ID: repoID, IsApproved: true}, nil
		},
		reject: func(_ context.Context, actor *model.Identity, repoID string) error {
			if !actor.IsAdmin {
				return apperror.Forbidden("admin access required")
			}
			if repoID == "missing" {
				return apperror.NotFound("repository", repoID)
			}
			return nil
		},
	}
	h := handler.NewApprovalHandler(approvals)

	tests := []struct {
		name       string
		method     string
		body       string
		who        *model.Identity
		wantStatus int
	}{
		{"approve", http.MethodPost, `{"repoId":"r1"}`, testAdmin, http.StatusOK},
		{"approve unknown", http.MethodPost, `{"repoId":"missing"}`, testAdmin, http.StatusNotFound},
		{"approve without id", http.MethodPost, `{}`, testAdmin, http.StatusBadRequest},
		{"approve malformed", http.MethodPost, `{"repoId":`, testAdmin, http.StatusBadRequest},
		{"approve as member", http.MethodPost, `{"repoId":"r1"}`, testMember, http.StatusForbidden},
		{"reject", http.MethodDelete, `{"repoId":"r1"}`, testAdmin, http.StatusNoContent},
		{"reject unknown", http.MethodDelete, `{"repoId":"missing"}`, testAdmin, http.StatusNotFound},
		{"reject as member", http.MethodDelete, `{"repoId":"r1"}`, testMember, http.StatusForbidden},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			req := newRequest(tc.method, "/api/approvals", tc.body, tc.who)
			if tc.method == http.MethodPost {
				h.HandleApprove(rr, req)
			} else {
				h.HandleReject(rr, req)
			}
			assert.Equal(t, tc.wantStatus, rr.Code)
		})
	}

	t.Run("approve returns the published row", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.HandleApprove(rr, newRequest(http.MethodPost, "/api/approvals", `{"repoId":"r7"}`, testAdmin))

		got := decodeBody[model.Repository](t, rr)
		assert.Equal(t, "r7", got.ID)
		assert.True(t, got.IsApproved)
	})
}
