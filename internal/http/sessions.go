package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"child-speech-pipeline-service/internal/models"
)

// ChildLookup resolves a child account by id.
type ChildLookup interface {
	ChildByID(ctx context.Context, id int64) (models.Child, error)
}

// ParentLookup resolves a parent account by id.
type ParentLookup interface {
	ParentByID(ctx context.Context, id int64) (models.Parent, error)
}

// HeaderChildSessions is a development stand-in for the external session
// service: the client declares its identity in the X-Child-Id header and
// the account must exist in the store.
type HeaderChildSessions struct {
	Children ChildLookup
}

func (s HeaderChildSessions) CurrentChild(r *http.Request) (models.Child, error) {
	v := r.Header.Get("X-Child-Id")
	if v == "" {
		return models.Child{}, fmt.Errorf("no child session")
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return models.Child{}, fmt.Errorf("invalid child session: %w", err)
	}
	return s.Children.ChildByID(r.Context(), id)
}

// HeaderParentSessions is the parent-side counterpart of
// HeaderChildSessions, keyed by the X-Parent-Id header.
type HeaderParentSessions struct {
	Parents ParentLookup
}

func (s HeaderParentSessions) CurrentParent(r *http.Request) (models.Parent, error) {
	v := r.Header.Get("X-Parent-Id")
	if v == "" {
		return models.Parent{}, fmt.Errorf("no parent session")
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return models.Parent{}, fmt.Errorf("invalid parent session: %w", err)
	}
	return s.Parents.ParentByID(r.Context(), id)
}
