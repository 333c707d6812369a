// Package memstore implements every repository interface in process memory.
// It backs the "memory" database driver and the service tests. Records are
// copied on the way in and out so callers never share state with the store.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Ksenialiashchuk/test-portal/internal/mission"
	"github.com/Ksenialiashchuk/test-portal/internal/organization"
	"github.com/Ksenialiashchuk/test-portal/internal/role"
	"github.com/Ksenialiashchuk/test-portal/internal/user"
)

// DB is the shared state behind the per-entity stores.
type DB struct {
	mu  sync.RWMutex
	now func() time.Time
	seq map[string]int64

	roles       map[int64]*role.Role
	permissions map[int64]map[string]struct{}
	users       map[int64]*user.User
	userRoles   map[int64]int64
	orgs        map[int64]*organization.Organization
	members     map[int64]*organization.Member
	missions    map[int64]*mission.Mission
	assignments map[int64]*mission.Assignment
	tasks       map[int64]*mission.Task
}

// New returns an empty in-memory database.
func New() *DB {
	return &DB{
		now:         time.Now,
		seq:         make(map[string]int64),
		roles:       make(map[int64]*role.Role),
		permissions: make(map[int64]map[string]struct{}),
		users:       make(map[int64]*user.User),
		userRoles:   make(map[int64]int64),
		orgs:        make(map[int64]*organization.Organization),
		members:     make(map[int64]*organization.Member),
		missions:    make(map[int64]*mission.Mission),
		assignments: make(map[int64]*mission.Assignment),
		tasks:       make(map[int64]*mission.Task),
	}
}

// Roles returns the role repository.
func (db *DB) Roles() *RoleStore { return &RoleStore{db: db} }

// Users returns the user repository.
func (db *DB) Users() *UserStore { return &UserStore{db: db} }

// Organizations returns the organization repository.
func (db *DB) Organizations() *OrganizationStore { return &OrganizationStore{db: db} }

// Missions returns the mission repository.
func (db *DB) Missions() *MissionStore { return &MissionStore{db: db} }

// Ping always succeeds; it lets the in-memory database stand in for a
// connection pool in health checks.
func (db *DB) Ping(context.Context) error { return nil }

// nextID returns the next identifier for table. Must be called with db.mu held.
func (db *DB) nextID(table string) int64 {
	db.seq[table]++
	return db.seq[table]
}

func (db *DB) timestamp() time.Time {
	return db.now().UTC()
}

func sortedIDs[V any](m map[int64]V) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
