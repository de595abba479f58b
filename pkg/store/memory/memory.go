// Package memory keeps the graph in process memory. It backs tests and
// one-off CLI builds where nothing has to survive the process.
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/OFFIS-RIT/lexgraph/pkg/common"
	"github.com/OFFIS-RIT/lexgraph/pkg/store"
)

type membershipKey struct {
	community string
	entity    string
}

// Store is a GraphStorage over plain maps guarded by a RWMutex.
type Store struct {
	mu          sync.RWMutex
	nodes       map[string]common.CanonicalEntity
	edges       map[string]common.Relationship
	communities map[string]common.Community
	memberships map[membershipKey]common.Membership
	tags        map[string]common.Tags
	closed      bool
}

var _ store.GraphStorage = (*Store)(nil)

func New() *Store {
	return &Store{
		nodes:       map[string]common.CanonicalEntity{},
		edges:       map[string]common.Relationship{},
		communities: map[string]common.Community{},
		memberships: map[membershipKey]common.Membership{},
		tags:        map[string]common.Tags{},
	}
}

func (s *Store) SaveWriteSet(ctx context.Context, ws store.WriteSet) (store.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return store.Receipt{}, err
	}
	if err := ws.Validate(); err != nil {
		return store.Receipt{}, fmt.Errorf("failed to validate write set: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return store.Receipt{}, fmt.Errorf("memory store is closed")
	}

	for _, e := range ws.Entities {
		s.nodes[e.ID] = cloneEntity(e)
		s.tags[e.ID] = maps.Clone(ws.Tags)
	}
	for _, r := range ws.Relationships {
		s.edges[r.ID] = r
		s.tags[r.ID] = maps.Clone(ws.Tags)
	}
	for _, c := range ws.Communities {
		c.Members = slices.Clone(c.Members)
		c.CentralEntities = slices.Clone(c.CentralEntities)
		s.communities[c.ID] = c
		s.tags[c.ID] = maps.Clone(ws.Tags)
	}
	for _, m := range ws.Memberships {
		s.memberships[membershipKey{m.CommunityID, m.EntityID}] = m
	}

	return store.NewReceipt("memory", ws), nil
}

func (s *Store) GetNode(ctx context.Context, id string) (common.CanonicalEntity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.nodes[id]
	if !ok {
		return common.CanonicalEntity{}, store.ErrNotFound
	}
	return cloneEntity(e), nil
}

func (s *Store) GetEdge(ctx context.Context, id string) (common.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.edges[id]
	if !ok {
		return common.Relationship{}, store.ErrNotFound
	}
	return r, nil
}

func (s *Store) GetCommunity(ctx context.Context, id string) (common.Community, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.communities[id]
	if !ok {
		return common.Community{}, store.ErrNotFound
	}
	c.Members = slices.Clone(c.Members)
	c.CentralEntities = slices.Clone(c.CentralEntities)
	return c, nil
}

// GetMemberships returns the memberships of a community ordered by entity id.
func (s *Store) GetMemberships(ctx context.Context, communityID string) ([]common.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []common.Membership
	for k, m := range s.memberships {
		if k.community == communityID {
			out = append(out, m)
		}
	}
	slices.SortFunc(out, func(a, b common.Membership) int {
		if a.EntityID < b.EntityID {
			return -1
		}
		if a.EntityID > b.EntityID {
			return 1
		}
		return 0
	})
	return out, nil
}

// Tags returns the tags stored with a record.
func (s *Store) Tags(id string) common.Tags {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.tags[id])
}

// Counts reports how many records of each kind are stored.
func (s *Store) Counts() (nodes, edges, communities, memberships int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes), len(s.edges), len(s.communities), len(s.memberships)
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func cloneEntity(e common.CanonicalEntity) common.CanonicalEntity {
	e.Attributes = maps.Clone(e.Attributes)
	e.DocumentIDs = slices.Clone(e.DocumentIDs)
	e.Provenance = slices.Clone(e.Provenance)
	return e
}
