package dispatch_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bjaus/marker"
	"github.com/bjaus/marker/dispatch"
)

var patch = marker.MustNew("PATCH", marker.TargetMethod, marker.RetentionRuntime,
	marker.WithNamespace("dispatch_test"),
	marker.WithValue(http.MethodPatch),
	marker.WithMeta(dispatch.HTTPMethod),
)

type resource struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type idReq struct {
	ID string `path:"id"`
}

type updateReq struct {
	ID   string `path:"id"`
	Body struct {
		Name *string `json:"name"`
	}
}

func (r *updateReq) Validate() error {
	if r.Body.Name != nil && strings.TrimSpace(*r.Body.Name) == "" {
		return errors.New("name must not be blank")
	}
	return nil
}

type created struct {
	resource
}

func (created) StatusCode() int { return http.StatusCreated }

func (c created) SetHeaders(h http.Header) { h.Set("Location", "/resources/"+c.ID) }

type resources struct {
	calls   atomic.Int32
	updated atomic.Int32
}

func (s *resources) GetResource(_ context.Context, req *idReq) (*resource, error) {
	s.calls.Add(1)
	if req.ID == "missing" {
		return nil, dispatch.Errorf(http.StatusNotFound, "resource %s not found", req.ID)
	}
	return &resource{ID: req.ID, Name: "get"}, nil
}

func (s *resources) CreateResource(_ context.Context, req *resource) (*created, error) {
	s.calls.Add(1)
	return &created{resource: *req}, nil
}

func (s *resources) ReplaceResource(_ context.Context, req *idReq) (*resource, error) {
	s.calls.Add(1)
	return &resource{ID: req.ID, Name: "put"}, nil
}

func (s *resources) UpdateResource(_ context.Context, req *updateReq) (*resource, error) {
	s.calls.Add(1)
	s.updated.Add(1)
	r := &resource{ID: req.ID, Name: "patched"}
	if req.Body.Name != nil {
		r.Name = *req.Body.Name
	}
	return r, nil
}

func (s *resources) DeleteResource(_ context.Context, _ *idReq) (*dispatch.Void, error) {
	s.calls.Add(1)
	return &dispatch.Void{}, nil
}

// Describe has no verb marker and must never be routed.
func (s *resources) Describe() string { return "resources" }

func newBuilder() *marker.Builder {
	return marker.NewBuilder().Declare(dispatch.Builtins()...).Declare(patch)
}

func method(name string) marker.Element {
	return marker.MethodOf[*resources](name)
}

// crudRegistry routes every resources handler under /resources.
func crudRegistry(t *testing.T) *marker.Registry {
	t.Helper()

	reg, err := newBuilder().
		AttachArg(dispatch.Path, "/resources", marker.TypeOf[resources]()).
		Attach(dispatch.GET, method("GetResource")).
		AttachArg(dispatch.Path, "/{id}", method("GetResource")).
		Attach(dispatch.POST, method("CreateResource")).
		AttachArg(dispatch.Path, "", method("CreateResource")).
		Attach(dispatch.PUT, method("ReplaceResource")).
		AttachArg(dispatch.Path, "/{id}", method("ReplaceResource")).
		Attach(patch, method("UpdateResource")).
		AttachArg(dispatch.Path, "/{id}", method("UpdateResource")).
		Attach(dispatch.DELETE, method("DeleteResource")).
		AttachArg(dispatch.Path, "/{id}", method("DeleteResource")).
		Build()
	require.NoError(t, err)
	return reg
}

func newRequest(t *testing.T, method, target, body string) *http.Request {
	t.Helper()

	var req *http.Request
	var err error
	if body == "" {
		req, err = http.NewRequestWithContext(context.Background(), method, target, nil)
	} else {
		req, err = http.NewRequestWithContext(context.Background(), method, target, strings.NewReader(body))
		if err == nil {
			req.Header.Set("Content-Type", "application/json")
		}
	}
	require.NoError(t, err)
	return req
}
