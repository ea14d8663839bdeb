package repository

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"midas/reimbursehub/internal/model"
)

type membershipKey struct {
	userID  uuid.UUID
	groupID uuid.UUID
}

type memData struct {
	users          map[uuid.UUID]model.User
	groups         map[uuid.UUID]model.Group
	memberships    map[membershipKey]model.Membership
	codes          map[string]model.InviteCode
	reimbursements []model.ReimbursementRequest
}

func newMemData() *memData {
	return &memData{
		users:       make(map[uuid.UUID]model.User),
		groups:      make(map[uuid.UUID]model.Group),
		memberships: make(map[membershipKey]model.Membership),
		codes:       make(map[string]model.InviteCode),
	}
}

func (d *memData) clone() *memData {
	c := &memData{
		users:          make(map[uuid.UUID]model.User, len(d.users)),
		groups:         make(map[uuid.UUID]model.Group, len(d.groups)),
		memberships:    make(map[membershipKey]model.Membership, len(d.memberships)),
		codes:          make(map[string]model.InviteCode, len(d.codes)),
		reimbursements: slices.Clone(d.reimbursements),
	}
	for k, v := range d.users {
		c.users[k] = cloneUser(v)
	}
	for k, v := range d.groups {
		c.groups[k] = v
	}
	for k, v := range d.memberships {
		c.memberships[k] = v
	}
	for k, v := range d.codes {
		c.codes[k] = cloneInviteCode(v)
	}
	return c
}

// memoryStore keeps every table behind one mutex. WithTx holds the mutex for the
// whole unit and restores a snapshot when fn fails, so units are serializable.
type memoryStore struct {
	mu   *sync.Mutex
	data *memData
	inTx bool
}

func NewMemoryStore() Store {
	return &memoryStore{mu: &sync.Mutex{}, data: newMemData()}
}

func (s *memoryStore) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *memoryStore) Users() UserRepository                   { return memUsers{s} }
func (s *memoryStore) Groups() GroupRepository                 { return memGroups{s} }
func (s *memoryStore) Memberships() MembershipRepository       { return memMemberships{s} }
func (s *memoryStore) InviteCodes() InviteCodeRepository       { return memInviteCodes{s} }
func (s *memoryStore) Reimbursements() ReimbursementRepository { return memReimbursements{s} }

func (s *memoryStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	snapshot := s.data.clone()
	if err := fn(&memoryStore{mu: s.mu, data: s.data, inTx: true}); err != nil {
		*s.data = *snapshot
		return err
	}
	return nil
}

func cloneUser(u model.User) model.User {
	if u.ActiveGroupID != nil {
		id := *u.ActiveGroupID
		u.ActiveGroupID = &id
	}
	return u
}

func cloneInviteCode(c model.InviteCode) model.InviteCode {
	if c.UsedBy != nil {
		id := *c.UsedBy
		c.UsedBy = &id
	}
	if c.UsedAt != nil {
		at := *c.UsedAt
		c.UsedAt = &at
	}
	return c
}

func stamp(created, updated *time.Time) {
	now := time.Now()
	if created.IsZero() {
		*created = now
	}
	if updated != nil {
		*updated = now
	}
}

// ---- users ----

type memUsers struct{ s *memoryStore }

func (r memUsers) Create(_ context.Context, user *model.User) error {
	defer r.s.lock()()
	if _, ok := r.s.data.users[user.ID]; ok {
		return ErrDuplicate
	}
	for _, u := range r.s.data.users {
		if strings.EqualFold(u.Email, user.Email) {
			return ErrDuplicate
		}
	}
	stamp(&user.CreatedAt, &user.UpdatedAt)
	r.s.data.users[user.ID] = cloneUser(*user)
	return nil
}

func (r memUsers) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	defer r.s.lock()()
	u, ok := r.s.data.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	u = cloneUser(u)
	return &u, nil
}

func (r memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	defer r.s.lock()()
	email = strings.TrimSpace(email)
	for _, u := range r.s.data.users {
		if strings.EqualFold(u.Email, email) {
			u = cloneUser(u)
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (r memUsers) SetActiveGroup(_ context.Context, userID, groupID uuid.UUID) error {
	defer r.s.lock()()
	u, ok := r.s.data.users[userID]
	if !ok {
		return ErrNotFound
	}
	id := groupID
	u.ActiveGroupID = &id
	u.UpdatedAt = time.Now()
	r.s.data.users[userID] = u
	return nil
}

func (r memUsers) SetActiveGroupIfUnset(_ context.Context, userID, groupID uuid.UUID) (bool, error) {
	defer r.s.lock()()
	u, ok := r.s.data.users[userID]
	if !ok || u.ActiveGroupID != nil {
		return false, nil
	}
	id := groupID
	u.ActiveGroupID = &id
	u.UpdatedAt = time.Now()
	r.s.data.users[userID] = u
	return true, nil
}

func (r memUsers) ListByGroupIDs(_ context.Context, groupIDs []uuid.UUID) ([]model.User, error) {
	defer r.s.lock()()
	seen := make(map[uuid.UUID]struct{})
	var users []model.User
	for k := range r.s.data.memberships {
		if !slices.Contains(groupIDs, k.groupID) {
			continue
		}
		if _, dup := seen[k.userID]; dup {
			continue
		}
		seen[k.userID] = struct{}{}
		if u, ok := r.s.data.users[k.userID]; ok {
			users = append(users, cloneUser(u))
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })
	return users, nil
}

// ---- groups ----

type memGroups struct{ s *memoryStore }

func (r memGroups) Create(_ context.Context, group *model.Group) error {
	defer r.s.lock()()
	if _, ok := r.s.data.groups[group.ID]; ok {
		return ErrDuplicate
	}
	for _, g := range r.s.data.groups {
		if g.InviteCode == group.InviteCode {
			return ErrDuplicate
		}
	}
	stamp(&group.CreatedAt, &group.UpdatedAt)
	r.s.data.groups[group.ID] = *group
	return nil
}

func (r memGroups) GetByID(_ context.Context, id uuid.UUID) (*model.Group, error) {
	defer r.s.lock()()
	g, ok := r.s.data.groups[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &g, nil
}

func (r memGroups) GetByInviteCode(_ context.Context, code string) (*model.Group, error) {
	defer r.s.lock()()
	for _, g := range r.s.data.groups {
		if g.InviteCode == code {
			return &g, nil
		}
	}
	return nil, ErrNotFound
}

func (r memGroups) ListByIDs(_ context.Context, ids []uuid.UUID) ([]model.Group, error) {
	defer r.s.lock()()
	var groups []model.Group
	for _, id := range ids {
		if g, ok := r.s.data.groups[id]; ok {
			groups = append(groups, g)
		}
	}
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].CreatedAt.Before(groups[j].CreatedAt) })
	return groups, nil
}

func (r memGroups) ListByAdminEmail(_ context.Context, adminEmail string) ([]model.Group, error) {
	defer r.s.lock()()
	var groups []model.Group
	for _, g := range r.s.data.groups {
		if g.AdminEmail == adminEmail {
			groups = append(groups, g)
		}
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].CreatedAt.After(groups[j].CreatedAt) })
	return groups, nil
}

func (r memGroups) IncrementMemberCount(_ context.Context, id uuid.UUID, at time.Time) error {
	defer r.s.lock()()
	g, ok := r.s.data.groups[id]
	if !ok {
		return ErrNotFound
	}
	g.MemberCount++
	g.LastActive = at
	r.s.data.groups[id] = g
	return nil
}

// ---- memberships ----

type memMemberships struct{ s *memoryStore }

func (r memMemberships) Create(_ context.Context, m *model.Membership) error {
	defer r.s.lock()()
	key := membershipKey{userID: m.UserID, groupID: m.GroupID}
	if _, ok := r.s.data.memberships[key]; ok {
		return ErrDuplicate
	}
	if m.JoinedAt.IsZero() {
		m.JoinedAt = time.Now()
	}
	r.s.data.memberships[key] = *m
	return nil
}

func (r memMemberships) Exists(_ context.Context, userID, groupID uuid.UUID) (bool, error) {
	defer r.s.lock()()
	_, ok := r.s.data.memberships[membershipKey{userID: userID, groupID: groupID}]
	return ok, nil
}

func (r memMemberships) ListByUser(_ context.Context, userID uuid.UUID) ([]model.Membership, error) {
	defer r.s.lock()()
	var ms []model.Membership
	for k, m := range r.s.data.memberships {
		if k.userID == userID {
			ms = append(ms, m)
		}
	}
	sort.Slice(ms, func(i, j int) bool { return ms[i].JoinedAt.Before(ms[j].JoinedAt) })
	return ms, nil
}

func (r memMemberships) CountByGroup(_ context.Context, groupID uuid.UUID) (int64, error) {
	defer r.s.lock()()
	var n int64
	for k := range r.s.data.memberships {
		if k.groupID == groupID {
			n++
		}
	}
	return n, nil
}

func (r memMemberships) ListUserIDsByGroups(_ context.Context, groupIDs []uuid.UUID) ([]uuid.UUID, error) {
	defer r.s.lock()()
	seen := make(map[uuid.UUID]struct{})
	var ids []uuid.UUID
	for k := range r.s.data.memberships {
		if !slices.Contains(groupIDs, k.groupID) {
			continue
		}
		if _, dup := seen[k.userID]; !dup {
			seen[k.userID] = struct{}{}
			ids = append(ids, k.userID)
		}
	}
	return ids, nil
}

// ---- invite codes ----

type memInviteCodes struct{ s *memoryStore }

func (r memInviteCodes) Create(_ context.Context, code *model.InviteCode) error {
	defer r.s.lock()()
	if _, ok := r.s.data.codes[code.Code]; ok {
		return ErrDuplicate
	}
	stamp(&code.CreatedAt, nil)
	r.s.data.codes[code.Code] = cloneInviteCode(*code)
	return nil
}

func (r memInviteCodes) GetByCode(_ context.Context, code string) (*model.InviteCode, error) {
	defer r.s.lock()()
	c, ok := r.s.data.codes[code]
	if !ok {
		return nil, ErrNotFound
	}
	c = cloneInviteCode(c)
	return &c, nil
}

func (r memInviteCodes) Exists(_ context.Context, code string) (bool, error) {
	defer r.s.lock()()
	_, ok := r.s.data.codes[code]
	return ok, nil
}

func (r memInviteCodes) Consume(_ context.Context, code string, userID uuid.UUID, at time.Time) (bool, error) {
	defer r.s.lock()()
	c, ok := r.s.data.codes[code]
	if !ok || c.Used || c.ExpiresAt.Before(at) {
		return false, nil
	}
	uid, usedAt := userID, at
	c.Used = true
	c.UsedBy = &uid
	c.UsedAt = &usedAt
	r.s.data.codes[code] = c
	return true, nil
}

func (r memInviteCodes) ListByCreator(_ context.Context, creatorID uuid.UUID) ([]model.InviteCode, error) {
	defer r.s.lock()()
	var codes []model.InviteCode
	for _, c := range r.s.data.codes {
		if c.CreatedBy == creatorID {
			codes = append(codes, cloneInviteCode(c))
		}
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i].CreatedAt.After(codes[j].CreatedAt) })
	return codes, nil
}

// ---- reimbursements ----

type memReimbursements struct{ s *memoryStore }

func (r memReimbursements) Create(_ context.Context, req *model.ReimbursementRequest) error {
	defer r.s.lock()()
	for _, existing := range r.s.data.reimbursements {
		if existing.ID == req.ID {
			return ErrDuplicate
		}
	}
	stamp(&req.CreatedAt, nil)
	r.s.data.reimbursements = append(r.s.data.reimbursements, *req)
	return nil
}

// newestFirst walks the append-only log backwards so equal timestamps keep
// reverse insertion order after the stable sort.
func (r memReimbursements) newestFirst(match func(model.ReimbursementRequest) bool) []model.ReimbursementRequest {
	var out []model.ReimbursementRequest
	for i := len(r.s.data.reimbursements) - 1; i >= 0; i-- {
		if req := r.s.data.reimbursements[i]; match(req) {
			out = append(out, req)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r memReimbursements) ListByAdminEmail(_ context.Context, adminEmail string) ([]model.ReimbursementRequest, error) {
	defer r.s.lock()()
	return r.newestFirst(func(req model.ReimbursementRequest) bool { return req.AdminEmail == adminEmail }), nil
}

func (r memReimbursements) ListByUser(_ context.Context, userID uuid.UUID) ([]model.ReimbursementRequest, error) {
	defer r.s.lock()()
	return r.newestFirst(func(req model.ReimbursementRequest) bool { return req.UserID == userID }), nil
}

func (r memReimbursements) ReferencedReceipts(_ context.Context, paths []string) ([]string, error) {
	defer r.s.lock()()
	var found []string
	for _, req := range r.s.data.reimbursements {
		if slices.Contains(paths, req.ReceiptPath) {
			found = append(found, req.ReceiptPath)
		}
	}
	return found, nil
}
