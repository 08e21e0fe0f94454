// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Store (Data layer)       → reads/writes to the database
//
// Services take the store INTERFACES from internal/repository, never *sqlite.DB,
// so tests inject in-memory fakes (see *_test.go) and the service never imports SQL.
//
// Services also never see an *http.Request. The caller's identity arrives as an
// explicit *model.Identity argument, resolved once per request by the auth middleware.
//
// THE DEPENDENCY CHAIN:
//
//	main.go creates:  DB → Stores → Services → Handlers
//	At runtime:       Handler calls Service calls Store calls DB
package service

import (
	"github.com/sakif/repohub/internal/apperror"
	"github.com/sakif/repohub/internal/model"
)

// Metrics receives business events. *metrics.Metrics implements it; tests and
// callers that don't care pass nil and get a no-op.
type Metrics interface {
	SubmissionRecorded(result string)
	ApprovalTransition(action string)
	BookmarkChanged(action string)
}

type nopMetrics struct{}

func (nopMetrics) SubmissionRecorded(string) {}
func (nopMetrics) ApprovalTransition(string) {}
func (nopMetrics) BookmarkChanged(string)    {}

func metricsOrNop(m Metrics) Metrics {
	if m == nil {
		return nopMetrics{}
	}
	return m
}

// requireAdmin is the single authorization predicate for admin-only operations.
//
// The HTTP layer gates the same routes with auth.RequireAdmin; checking again here
// keeps the rule true for every caller of the service, not just HTTP.
func requireAdmin(actor *model.Identity) error {
	if actor == nil {
		return apperror.Unauthenticated("authentication required")
	}
	if !actor.IsAdmin {
		return apperror.Forbidden("admin access required")
	}
	return nil
}
