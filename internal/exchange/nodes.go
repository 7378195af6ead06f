package exchange

import (
	"cmp"
	"context"
	"maps"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bjaus/marker/dispatch"
)

// Node statuses.
const (
	StatusActive   = "active"
	StatusDraining = "draining"
	StatusOffline  = "offline"
)

// Node is an exchange participant.
type Node struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Region    string            `json:"region"`
	Status    string            `json:"status"`
	Capacity  int               `json:"capacity"`
	Labels    map[string]string `json:"labels,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func (n *Node) clone() Node {
	cp := *n
	cp.Labels = maps.Clone(n.Labels)
	return cp
}

// Nodes is an in-memory node store whose exported handler methods are
// mounted by NewRouter.
type Nodes struct {
	mu      sync.RWMutex
	nodes   map[string]*Node
	nextID  int
	started time.Time
	now     func() time.Time
}

// NewNodes returns a store holding seed.
func NewNodes(seed ...Node) *Nodes {
	s := &Nodes{
		nodes:  make(map[string]*Node),
		nextID: 1,
		now:    time.Now,
	}
	s.started = s.now()
	for _, n := range seed {
		if n.ID == "" {
			n.ID = s.newID()
		}
		if n.Status == "" {
			n.Status = StatusActive
		}
		if n.CreatedAt.IsZero() {
			n.CreatedAt = s.started
			n.UpdatedAt = s.started
		}
		s.nodes[n.ID] = &n
	}
	return s
}

// newID returns the next free numeric ID. Callers hold mu or own s.
func (s *Nodes) newID() string {
	for {
		id := strconv.Itoa(s.nextID)
		s.nextID++
		if _, taken := s.nodes[id]; !taken {
			return id
		}
	}
}

// NodeByIDReq addresses a single node.
type NodeByIDReq struct {
	ID string `path:"id"`
}

// ListNodesReq filters the node list.
type ListNodesReq struct {
	Status string `query:"status"`
	Region string `query:"region"`
	Limit  int    `query:"limit" default:"100"`
}

// ListNodesResp is a page of nodes.
type ListNodesResp struct {
	Nodes []Node `json:"nodes"`
	Total int    `json:"total"`
}

// NodeBody holds the writable fields of a node.
type NodeBody struct {
	Name     string            `json:"name"`
	Region   string            `json:"region"`
	Status   string            `json:"status"`
	Capacity int               `json:"capacity"`
	Labels   map[string]string `json:"labels"`
}

// CreateNodeReq creates a node.
type CreateNodeReq struct {
	Body NodeBody
}

// Validate implements dispatch.SelfValidator.
func (r *CreateNodeReq) Validate() error { return r.Body.validate() }

// CreatedNode is returned with 201 Created.
type CreatedNode struct {
	Node
}

// StatusCode implements dispatch.StatusCoder.
func (CreatedNode) StatusCode() int { return http.StatusCreated }

// SetHeaders implements dispatch.HeaderSetter.
func (c CreatedNode) SetHeaders(h http.Header) { h.Set("Location", "/nodes/"+c.ID) }

// ReplaceNodeReq replaces every writable field of a node.
type ReplaceNodeReq struct {
	ID   string `path:"id"`
	Body NodeBody
}

// Validate implements dispatch.SelfValidator.
func (r *ReplaceNodeReq) Validate() error { return r.Body.validate() }

// UpdateNodeReq changes only the fields present in the body. Labels are
// merged; an empty label value removes the label.
type UpdateNodeReq struct {
	ID   string `path:"id"`
	Body struct {
		Name     *string           `json:"name"`
		Region   *string           `json:"region"`
		Status   *string           `json:"status"`
		Capacity *int              `json:"capacity"`
		Labels   map[string]string `json:"labels"`
	}
}

// Validate implements dispatch.SelfValidator. Absent fields are not checked.
func (r *UpdateNodeReq) Validate() error {
	b := r.Body
	if b.Name != nil && strings.TrimSpace(*b.Name) == "" {
		return dispatch.Error(http.StatusUnprocessableEntity, "name must not be empty")
	}
	if b.Status != nil && !validStatus(*b.Status) {
		return dispatch.Errorf(http.StatusUnprocessableEntity, "unknown status %q", *b.Status)
	}
	if b.Capacity != nil && *b.Capacity < 0 {
		return dispatch.Error(http.StatusUnprocessableEntity, "capacity must not be negative")
	}
	return nil
}

// AdminStatusResp summarises the exchange.
type AdminStatusResp struct {
	Status   string         `json:"status"`
	Nodes    int            `json:"nodes"`
	ByStatus map[string]int `json:"by_status"`
	Capacity int            `json:"capacity"`
	Uptime   string         `json:"uptime"`
}

// ListNodes returns nodes ordered by ID, optionally filtered.
func (s *Nodes) ListNodes(_ context.Context, req *ListNodesReq) (*ListNodesResp, error) {
	if req.Limit < 0 {
		return nil, dispatch.Errorf(http.StatusBadRequest, "limit must not be negative")
	}

	s.mu.RLock()
	out := make([]Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		if req.Status != "" && n.Status != req.Status {
			continue
		}
		if req.Region != "" && n.Region != req.Region {
			continue
		}
		out = append(out, n.clone())
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b Node) int {
		ai, _ := strconv.Atoi(a.ID)
		bi, _ := strconv.Atoi(b.ID)
		return cmp.Or(cmp.Compare(ai, bi), cmp.Compare(a.ID, b.ID))
	})

	total := len(out)
	if req.Limit > 0 && req.Limit < len(out) {
		out = out[:req.Limit]
	}
	return &ListNodesResp{Nodes: out, Total: total}, nil
}

// GetNode returns one node.
func (s *Nodes) GetNode(_ context.Context, req *NodeByIDReq) (*Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.nodes[req.ID]
	if !ok {
		return nil, notFound(req.ID)
	}
	cp := n.clone()
	return &cp, nil
}

// CreateNode adds a node. Status defaults to active.
func (s *Nodes) CreateNode(_ context.Context, req *CreateNodeReq) (*CreatedNode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	n := &Node{
		ID:        s.newID(),
		Name:      req.Body.Name,
		Region:    req.Body.Region,
		Status:    cmp.Or(req.Body.Status, StatusActive),
		Capacity:  req.Body.Capacity,
		Labels:    maps.Clone(req.Body.Labels),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.nodes[n.ID] = n
	return &CreatedNode{Node: n.clone()}, nil
}

// ReplaceNode overwrites every writable field of a node.
func (s *Nodes) ReplaceNode(_ context.Context, req *ReplaceNodeReq) (*Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nodes[req.ID]
	if !ok {
		return nil, notFound(req.ID)
	}
	n.Name = req.Body.Name
	n.Region = req.Body.Region
	n.Status = cmp.Or(req.Body.Status, StatusActive)
	n.Capacity = req.Body.Capacity
	n.Labels = maps.Clone(req.Body.Labels)
	n.UpdatedAt = s.now()

	cp := n.clone()
	return &cp, nil
}

// UpdateResource applies a partial update to a node. It is the only
// handler routed for PATCH.
func (s *Nodes) UpdateResource(_ context.Context, req *UpdateNodeReq) (*Node, error) {
	b := req.Body

	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nodes[req.ID]
	if !ok {
		return nil, notFound(req.ID)
	}
	if b.Name != nil {
		n.Name = *b.Name
	}
	if b.Region != nil {
		n.Region = *b.Region
	}
	if b.Status != nil {
		n.Status = *b.Status
	}
	if b.Capacity != nil {
		n.Capacity = *b.Capacity
	}
	for k, v := range b.Labels {
		if v == "" {
			delete(n.Labels, k)
			continue
		}
		if n.Labels == nil {
			n.Labels = make(map[string]string)
		}
		n.Labels[k] = v
	}
	n.UpdatedAt = s.now()

	cp := n.clone()
	return &cp, nil
}

// DeleteNode removes a node.
func (s *Nodes) DeleteNode(_ context.Context, req *NodeByIDReq) (*dispatch.Void, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.nodes[req.ID]; !ok {
		return nil, notFound(req.ID)
	}
	delete(s.nodes, req.ID)
	return nil, nil
}

// AdminStatus reports node counts and total active capacity.
func (s *Nodes) AdminStatus(_ context.Context, _ *dispatch.Void) (*AdminStatusResp, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	resp := &AdminStatusResp{
		Status:   "ok",
		Nodes:    len(s.nodes),
		ByStatus: make(map[string]int),
		Uptime:   s.now().Sub(s.started).Truncate(time.Second).String(),
	}
	for _, n := range s.nodes {
		resp.ByStatus[n.Status]++
		if n.Status == StatusActive {
			resp.Capacity += n.Capacity
		}
	}
	if resp.ByStatus[StatusActive] == 0 {
		resp.Status = "degraded"
	}
	return resp, nil
}

func (b *NodeBody) validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return dispatch.Error(http.StatusUnprocessableEntity, "name is required")
	}
	if b.Status != "" && !validStatus(b.Status) {
		return dispatch.Errorf(http.StatusUnprocessableEntity, "unknown status %q", b.Status)
	}
	if b.Capacity < 0 {
		return dispatch.Error(http.StatusUnprocessableEntity, "capacity must not be negative")
	}
	return nil
}

func validStatus(s string) bool {
	switch s {
	case StatusActive, StatusDraining, StatusOffline:
		return true
	}
	return false
}

func notFound(id string) error {
	return dispatch.Errorf(http.StatusNotFound, "node %s not found", id)
}
