package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"healthtracker/internal/models"
)

// MemoryStore keeps everything in process memory. It backs the "memory"
// database driver for local runs and the service and handler tests.
// Every operation holds one mutex; a transaction holds it for its whole
// duration and restores a snapshot if fn fails.
type MemoryStore struct {
	mu    *sync.Mutex
	data  *memoryData
	inTx  bool
	nowFn func() time.Time
}

type memoryData struct {
	users        map[uuid.UUID]models.User
	refresh      map[uuid.UUID]map[uuid.UUID]models.RefreshToken
	resets       []models.PasswordReset
	profiles     map[uuid.UUID]models.Profile
	measurements map[uuid.UUID]models.Measurement
	nextResetID  int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		mu: &sync.Mutex{},
		data: &memoryData{
			users:        map[uuid.UUID]models.User{},
			refresh:      map[uuid.UUID]map[uuid.UUID]models.RefreshToken{},
			profiles:     map[uuid.UUID]models.Profile{},
			measurements: map[uuid.UUID]models.Measurement{},
		},
		nowFn: time.Now,
	}
}

// SetClock replaces the time source used for created/updated timestamps.
func (s *MemoryStore) SetClock(now func() time.Time) { s.nowFn = now }

func (s *MemoryStore) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *MemoryStore) now() time.Time { return s.nowFn().UTC() }

func (s *MemoryStore) Users() UserRepository                   { return memUsers{s} }
func (s *MemoryStore) RefreshTokens() RefreshTokenRepository   { return memRefreshTokens{s} }
func (s *MemoryStore) PasswordResets() PasswordResetRepository { return memPasswordResets{s} }
func (s *MemoryStore) Profiles() ProfileRepository             { return memProfiles{s} }
func (s *MemoryStore) Measurements() MeasurementRepository     { return memMeasurements{s} }

func (s *MemoryStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) (err error) {
	if s.inTx {
		return fn(ctx, s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	defer func() {
		if p := recover(); p != nil {
			*s.data = *snapshot
			panic(p)
		}
		if err != nil {
			*s.data = *snapshot
		}
	}()
	tx := &MemoryStore{mu: s.mu, data: s.data, inTx: true, nowFn: s.nowFn}
	return fn(ctx, tx)
}

func (d *memoryData) clone() *memoryData {
	c := &memoryData{
		users:        make(map[uuid.UUID]models.User, len(d.users)),
		refresh:      make(map[uuid.UUID]map[uuid.UUID]models.RefreshToken, len(d.refresh)),
		resets:       append([]models.PasswordReset(nil), d.resets...),
		profiles:     make(map[uuid.UUID]models.Profile, len(d.profiles)),
		measurements: make(map[uuid.UUID]models.Measurement, len(d.measurements)),
		nextResetID:  d.nextResetID,
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	for uid, set := range d.refresh {
		cs := make(map[uuid.UUID]models.RefreshToken, len(set))
		for k, v := range set {
			cs[k] = v
		}
		c.refresh[uid] = cs
	}
	for k, v := range d.profiles {
		c.profiles[k] = v
	}
	for k, v := range d.measurements {
		c.measurements[k] = v
	}
	return c
}

// ===== users =====

type memUsers struct{ s *MemoryStore }

func (r memUsers) Create(_ context.Context, user *models.User) error {
	defer r.s.lock()()
	for _, u := range r.s.data.users {
		if u.Email == user.Email {
			return ErrDuplicate
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := r.s.now()
	user.CreatedAt, user.UpdatedAt = now, now
	r.s.data.users[user.ID] = *user
	return nil
}

func (r memUsers) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	defer r.s.lock()()
	u, ok := r.s.data.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (r memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	defer r.s.lock()()
	for _, u := range r.s.data.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (r memUsers) UpdateEmail(_ context.Context, id uuid.UUID, email string) error {
	defer r.s.lock()()
	u, ok := r.s.data.users[id]
	if !ok {
		return ErrNotFound
	}
	for other, o := range r.s.data.users {
		if other != id && o.Email == email {
			return ErrDuplicate
		}
	}
	u.Email = email
	u.Verified = false
	u.VerifiedAt = nil
	u.UpdatedAt = r.s.now()
	r.s.data.users[id] = u
	return nil
}

func (r memUsers) UpdatePassword(_ context.Context, id uuid.UUID, passwordHash string) error {
	defer r.s.lock()()
	u, ok := r.s.data.users[id]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = r.s.now()
	r.s.data.users[id] = u
	return nil
}

func (r memUsers) MarkVerified(_ context.Context, id uuid.UUID) (bool, error) {
	defer r.s.lock()()
	u, ok := r.s.data.users[id]
	if !ok || u.Verified {
		return false, nil
	}
	now := r.s.now()
	u.Verified = true
	u.VerifiedAt = &now
	u.UpdatedAt = now
	r.s.data.users[id] = u
	return true, nil
}

func (r memUsers) Delete(_ context.Context, id uuid.UUID) error {
	defer r.s.lock()()
	d := r.s.data
	if _, ok := d.users[id]; !ok {
		return ErrNotFound
	}
	delete(d.users, id)
	delete(d.refresh, id)
	delete(d.profiles, id)
	kept := d.resets[:0]
	for _, pr := range d.resets {
		if pr.UserID != id {
			kept = append(kept, pr)
		}
	}
	d.resets = kept
	for mid, m := range d.measurements {
		if m.UserID == id {
			delete(d.measurements, mid)
		}
	}
	return nil
}

// ===== refresh tokens =====

type memRefreshTokens struct{ s *MemoryStore }

func (r memRefreshTokens) Create(_ context.Context, token *models.RefreshToken) error {
	defer r.s.lock()()
	if _, ok := r.s.data.users[token.UserID]; !ok {
		return ErrNotFound
	}
	set := r.s.data.refresh[token.UserID]
	if set == nil {
		set = map[uuid.UUID]models.RefreshToken{}
		r.s.data.refresh[token.UserID] = set
	}
	if _, ok := set[token.TokenID]; ok {
		return ErrDuplicate
	}
	token.CreatedAt = r.s.now()
	set[token.TokenID] = *token
	return nil
}

func (r memRefreshTokens) Delete(_ context.Context, userID, tokenID uuid.UUID) error {
	defer r.s.lock()()
	set := r.s.data.refresh[userID]
	if _, ok := set[tokenID]; !ok {
		return ErrNotFound
	}
	delete(set, tokenID)
	return nil
}

func (r memRefreshTokens) DeleteAllForUser(_ context.Context, userID uuid.UUID) (int64, error) {
	defer r.s.lock()()
	n := int64(len(r.s.data.refresh[userID]))
	delete(r.s.data.refresh, userID)
	return n, nil
}

func (r memRefreshTokens) DeleteExpired(_ context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	defer r.s.lock()()
	var n int64
	set := r.s.data.refresh[userID]
	for id, t := range set {
		if !t.ExpiresAt.After(now) {
			delete(set, id)
			n++
		}
	}
	return n, nil
}

func (r memRefreshTokens) ListByUser(_ context.Context, userID uuid.UUID) ([]*models.RefreshToken, error) {
	defer r.s.lock()()
	var res []*models.RefreshToken
	for _, t := range r.s.data.refresh[userID] {
		t := t
		res = append(res, &t)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.Before(res[j].CreatedAt) })
	return res, nil
}

// ===== password resets =====

type memPasswordResets struct{ s *MemoryStore }

func (r memPasswordResets) Create(_ context.Context, userID uuid.UUID, codeHash string, expiresAt time.Time) (*models.PasswordReset, error) {
	defer r.s.lock()()
	if _, ok := r.s.data.users[userID]; !ok {
		return nil, ErrNotFound
	}
	r.s.data.nextResetID++
	pr := models.PasswordReset{
		ID:        r.s.data.nextResetID,
		UserID:    userID,
		CodeHash:  codeHash,
		ExpiresAt: expiresAt,
		CreatedAt: r.s.now(),
	}
	r.s.data.resets = append(r.s.data.resets, pr)
	return &pr, nil
}

func (r memPasswordResets) GetLatestUnused(_ context.Context, userID uuid.UUID) (*models.PasswordReset, error) {
	defer r.s.lock()()
	// resets are appended in creation order, so the last match is the newest
	for i := len(r.s.data.resets) - 1; i >= 0; i-- {
		pr := r.s.data.resets[i]
		if pr.UserID == userID && pr.UsedAt == nil {
			return &pr, nil
		}
	}
	return nil, ErrNotFound
}

func (r memPasswordResets) ConsumeAttempt(_ context.Context, id int64, maxAttempts int) (int, error) {
	defer r.s.lock()()
	for i := range r.s.data.resets {
		pr := &r.s.data.resets[i]
		if pr.ID == id && pr.UsedAt == nil && pr.Attempts < maxAttempts {
			pr.Attempts++
			return pr.Attempts, nil
		}
	}
	return 0, ErrNotFound
}

func (r memPasswordResets) MarkUsed(_ context.Context, id int64) error {
	defer r.s.lock()()
	for i := range r.s.data.resets {
		pr := &r.s.data.resets[i]
		if pr.ID == id && pr.UsedAt == nil {
			now := r.s.now()
			pr.UsedAt = &now
			return nil
		}
	}
	return ErrNotFound
}

// ===== profiles =====

type memProfiles struct{ s *MemoryStore }

func (r memProfiles) Get(_ context.Context, userID uuid.UUID) (*models.Profile, error) {
	defer r.s.lock()()
	p, ok := r.s.data.profiles[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (r memProfiles) Upsert(_ context.Context, p *models.Profile) error {
	defer r.s.lock()()
	if _, ok := r.s.data.users[p.UserID]; !ok {
		return ErrNotFound
	}
	p.UpdatedAt = r.s.now()
	r.s.data.profiles[p.UserID] = *p
	return nil
}

// ===== measurements =====

type memMeasurements struct{ s *MemoryStore }

func (r memMeasurements) Create(_ context.Context, m *models.Measurement) error {
	defer r.s.lock()()
	if _, ok := r.s.data.users[m.UserID]; !ok {
		return ErrNotFound
	}
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	m.CreatedAt = r.s.now()
	r.s.data.measurements[m.ID] = *m
	return nil
}

func (r memMeasurements) GetByID(_ context.Context, userID, id uuid.UUID) (*models.Measurement, error) {
	defer r.s.lock()()
	m, ok := r.s.data.measurements[id]
	if !ok || m.UserID != userID {
		return nil, ErrNotFound
	}
	return &m, nil
}

func (r memMeasurements) List(_ context.Context, userID uuid.UUID, f models.MeasurementFilter) ([]*models.Measurement, error) {
	defer r.s.lock()()
	res := make([]*models.Measurement, 0)
	for _, m := range r.s.data.measurements {
		if m.UserID != userID {
			continue
		}
		if f.Kind != "" && m.Kind != f.Kind {
			continue
		}
		if f.From != nil && m.MeasuredAt.Before(*f.From) {
			continue
		}
		if f.To != nil && !m.MeasuredAt.Before(*f.To) {
			continue
		}
		m := m
		res = append(res, &m)
	}
	sort.Slice(res, func(i, j int) bool {
		if !res[i].MeasuredAt.Equal(res[j].MeasuredAt) {
			return res[i].MeasuredAt.After(res[j].MeasuredAt)
		}
		return res[i].ID.String() < res[j].ID.String()
	})
	if f.Offset >= len(res) {
		return res[:0], nil
	}
	res = res[f.Offset:]
	if f.Limit > 0 && f.Limit < len(res) {
		res = res[:f.Limit]
	}
	return res, nil
}

func (r memMeasurements) Update(_ context.Context, m *models.Measurement) error {
	defer r.s.lock()()
	cur, ok := r.s.data.measurements[m.ID]
	if !ok || cur.UserID != m.UserID {
		return ErrNotFound
	}
	m.CreatedAt = cur.CreatedAt
	r.s.data.measurements[m.ID] = *m
	return nil
}

func (r memMeasurements) Delete(_ context.Context, userID, id uuid.UUID) error {
	defer r.s.lock()()
	m, ok := r.s.data.measurements[id]
	if !ok || m.UserID != userID {
		return ErrNotFound
	}
	delete(r.s.data.measurements, id)
	return nil
}
