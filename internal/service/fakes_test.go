package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/andrewhigh08/account-core/internal/domain"
	"github.com/andrewhigh08/account-core/internal/pkg/apperror"
	"github.com/andrewhigh08/account-core/internal/port"
)

// In-memory fakes for the repository and cache ports. They keep the same
// ordering and filtering contracts as the postgres adapters so service
// behavior can be exercised without a database.

type fakeUserRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[int64]*domain.User{}}
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	user.ID = r.nextID
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *fakeUserRepo) CreateTx(ctx context.Context, _ *gorm.DB, user *domain.User) error {
	return r.Create(ctx, user)
}

func (r *fakeUserRepo) FindByID(_ context.Context, id int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, nil
}

func (r *fakeUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Username, username) {
			clone := *u
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			clone := *u
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *fakeUserRepo) UpdateTx(ctx context.Context, _ *gorm.DB, user *domain.User) error {
	return r.Update(ctx, user)
}

func (r *fakeUserRepo) RecordLogin(_ context.Context, userID int64, ip string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[userID]; ok {
		u.LoginCount++
		addr := ip
		u.LastLoginIP = &addr
	}
	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
	return nil
}

func (r *fakeUserRepo) List(_ context.Context, filter port.UserFilter) ([]domain.User, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (r *fakeUserRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	u, err := r.FindByUsername(ctx, username)
	return u != nil, err
}

func (r *fakeUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	u, err := r.FindByEmail(ctx, email)
	return u != nil, err
}

type fakeHistoryRepo struct {
	mu      sync.Mutex
	nextID  int64
	records map[int64][]domain.PasswordRecord
}

func newFakeHistoryRepo() *fakeHistoryRepo {
	return &fakeHistoryRepo{records: map[int64][]domain.PasswordRecord{}}
}

func (r *fakeHistoryRepo) CreateTx(_ context.Context, _ *gorm.DB, record *domain.PasswordRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	record.ID = r.nextID
	r.records[record.UserID] = append(r.records[record.UserID], *record)
	return nil
}

func (r *fakeHistoryRepo) FindRecent(_ context.Context, userID int64, count int) ([]domain.PasswordRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	records := append([]domain.PasswordRecord(nil), r.records[userID]...)
	sort.Slice(records, func(i, j int) bool { return records[i].CreatedAt.After(records[j].CreatedAt) })
	if count >= 0 && len(records) > count {
		records = records[:count]
	}
	return records, nil
}

func (r *fakeHistoryRepo) TrimTx(_ context.Context, _ *gorm.DB, userID int64, keep int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	records := r.records[userID]
	sort.Slice(records, func(i, j int) bool { return records[i].CreatedAt.After(records[j].CreatedAt) })
	if keep < 0 {
		keep = 0
	}
	if len(records) > keep {
		records = records[:keep]
	}
	r.records[userID] = records
	return nil
}

type fakeTwoFactorRepo struct {
	mu        sync.Mutex
	nextID    int64
	devices   map[int64]*domain.TOTPDevice
	codes     map[int64][]domain.BackupCode
	deviceErr error // Injected SaveDevice failure / Внедрённый сбой SaveDevice
}

func newFakeTwoFactorRepo() *fakeTwoFactorRepo {
	return &fakeTwoFactorRepo{
		devices: map[int64]*domain.TOTPDevice{},
		codes:   map[int64][]domain.BackupCode{},
	}
}

func (r *fakeTwoFactorRepo) FindDevice(_ context.Context, userID int64) (*domain.TOTPDevice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.devices[userID]; ok {
		clone := *d
		return &clone, nil
	}
	return nil, nil
}

func (r *fakeTwoFactorRepo) SaveDevice(_ context.Context, device *domain.TOTPDevice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deviceErr != nil {
		return r.deviceErr
	}
	clone := *device
	r.devices[device.UserID] = &clone
	return nil
}

func (r *fakeTwoFactorRepo) SaveDeviceTx(ctx context.Context, _ *gorm.DB, device *domain.TOTPDevice) error {
	return r.SaveDevice(ctx, device)
}

func (r *fakeTwoFactorRepo) UpdateDevice(ctx context.Context, device *domain.TOTPDevice) error {
	return r.SaveDevice(ctx, device)
}

func (r *fakeTwoFactorRepo) DeleteDevice(_ context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.devices, userID)
	return nil
}

func (r *fakeTwoFactorRepo) ReplaceBackupCodesTx(_ context.Context, _ *gorm.DB, userID int64, codes []domain.BackupCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	replaced := make([]domain.BackupCode, len(codes))
	for i := range codes {
		r.nextID++
		codes[i].ID = r.nextID
		replaced[i] = codes[i]
	}
	r.codes[userID] = replaced
	return nil
}

func (r *fakeTwoFactorRepo) FindUnusedBackupCodes(_ context.Context, userID int64) ([]domain.BackupCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.BackupCode, 0)
	for _, c := range r.codes[userID] {
		if c.UsedAt == nil {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeTwoFactorRepo) MarkBackupCodeUsed(_ context.Context, codeID int64, usedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for userID, codes := range r.codes {
		for i := range codes {
			if codes[i].ID == codeID {
				if codes[i].UsedAt != nil {
					return apperror.NotFound("backup code", codeID)
				}
				at := usedAt
				codes[i].UsedAt = &at
				r.codes[userID] = codes
				return nil
			}
		}
	}
	return apperror.NotFound("backup code", codeID)
}

func (r *fakeTwoFactorRepo) DeleteBackupCodes(_ context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.codes, userID)
	return nil
}

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: map[string]*domain.Session{}}
}

func (r *fakeSessionRepo) CreateTx(_ context.Context, _ *gorm.DB, session *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *session
	r.sessions[session.Key] = &clone
	return nil
}

func (r *fakeSessionRepo) FindByKey(_ context.Context, key string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[key]; ok {
		clone := *s
		return &clone, nil
	}
	return nil, nil
}

func (r *fakeSessionRepo) byUser(userID int64) []domain.Session {
	out := make([]domain.Session, 0)
	for _, s := range r.sessions {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastActivity.After(out[j].LastActivity) })
	return out
}

func (r *fakeSessionRepo) FindActiveByUserTx(_ context.Context, _ *gorm.DB, userID int64) ([]domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byUser(userID), nil
}

func (r *fakeSessionRepo) FindActiveByUser(_ context.Context, userID int64) ([]domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byUser(userID), nil
}

func (r *fakeSessionRepo) HasFingerprint(_ context.Context, userID int64, fingerprint string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.UserID == userID && s.Fingerprint == fingerprint {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeSessionRepo) Touch(_ context.Context, key string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[key]; ok {
		s.LastActivity = at
	}
	return nil
}

func (r *fakeSessionRepo) DeleteByKey(_ context.Context, key string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[key]
	delete(r.sessions, key)
	return ok, nil
}

func (r *fakeSessionRepo) DeleteByKeyTx(ctx context.Context, _ *gorm.DB, key string) (bool, error) {
	return r.DeleteByKey(ctx, key)
}

func (r *fakeSessionRepo) DeleteOthers(_ context.Context, userID int64, keepKey string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed int64
	for key, s := range r.sessions {
		if s.UserID == userID && key != keepKey {
			delete(r.sessions, key)
			removed++
		}
	}
	return removed, nil
}

func (r *fakeSessionRepo) DeleteStale(_ context.Context, inactiveSince time.Time, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed int64
	for key, s := range r.sessions {
		idle := !inactiveSince.IsZero() && s.LastActivity.Before(inactiveSince)
		if idle || s.IsExpired(now) {
			delete(r.sessions, key)
			removed++
		}
	}
	return removed, nil
}

type fakeAttemptRepo struct {
	mu       sync.Mutex
	attempts []domain.FailedLoginAttempt
}

func newFakeAttemptRepo() *fakeAttemptRepo {
	return &fakeAttemptRepo{}
}

func attemptCounted(reason string) bool {
	return reason == domain.FailReasonInvalidPassword || reason == domain.FailReasonInvalidUsername
}

func (r *fakeAttemptRepo) CreateTx(_ context.Context, _ *gorm.DB, attempt *domain.FailedLoginAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, *attempt)
	return nil
}

func (r *fakeAttemptRepo) countBy(match func(a *domain.FailedLoginAttempt) bool, since time.Time) int64 {
	var n int64
	for i := range r.attempts {
		a := &r.attempts[i]
		if attemptCounted(a.Reason) && a.CreatedAt.After(since) && match(a) {
			n++
		}
	}
	return n
}

func (r *fakeAttemptRepo) oldestBy(match func(a *domain.FailedLoginAttempt) bool, since time.Time) *time.Time {
	var oldest *time.Time
	for i := range r.attempts {
		a := &r.attempts[i]
		if !attemptCounted(a.Reason) || !a.CreatedAt.After(since) || !match(a) {
			continue
		}
		if oldest == nil || a.CreatedAt.Before(*oldest) {
			at := a.CreatedAt
			oldest = &at
		}
	}
	return oldest
}

func (r *fakeAttemptRepo) CountByUsernameTx(_ context.Context, _ *gorm.DB, username string, since time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.countBy(func(a *domain.FailedLoginAttempt) bool { return a.Username == username }, since), nil
}

func (r *fakeAttemptRepo) CountByIPTx(_ context.Context, _ *gorm.DB, ip string, since time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.countBy(func(a *domain.FailedLoginAttempt) bool { return a.IP == ip }, since), nil
}

func (r *fakeAttemptRepo) OldestCountedByUsername(_ context.Context, username string, since time.Time) (*time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.oldestBy(func(a *domain.FailedLoginAttempt) bool { return a.Username == username }, since), nil
}

func (r *fakeAttemptRepo) OldestCountedByIP(_ context.Context, ip string, since time.Time) (*time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.oldestBy(func(a *domain.FailedLoginAttempt) bool { return a.IP == ip }, since), nil
}

func (r *fakeAttemptRepo) CountByUsername(_ context.Context, username string, since time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.countBy(func(a *domain.FailedLoginAttempt) bool { return a.Username == username }, since), nil
}

func (r *fakeAttemptRepo) CountByIP(_ context.Context, ip string, since time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.countBy(func(a *domain.FailedLoginAttempt) bool { return a.IP == ip }, since), nil
}

func (r *fakeAttemptRepo) DeleteByUsername(_ context.Context, username string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.attempts[:0]
	var removed int64
	for _, a := range r.attempts {
		if a.Username == username {
			removed++
			continue
		}
		kept = append(kept, a)
	}
	r.attempts = kept
	return removed, nil
}

type fakeIPRuleRepo struct {
	mu     sync.Mutex
	nextID int64
	rules  []domain.IPRule
}

func newFakeIPRuleRepo() *fakeIPRuleRepo {
	return &fakeIPRuleRepo{}
}

func (r *fakeIPRuleRepo) Create(_ context.Context, rule *domain.IPRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	rule.ID = r.nextID
	r.rules = append(r.rules, *rule)
	return nil
}

func (r *fakeIPRuleRepo) FindActiveByKind(_ context.Context, kind string) ([]domain.IPRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.IPRule, 0)
	for _, rule := range r.rules {
		if rule.Kind == kind && rule.IsActive {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (r *fakeIPRuleRepo) ListByKind(_ context.Context, kind string) ([]domain.IPRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.IPRule, 0)
	for _, rule := range r.rules {
		if rule.Kind == kind {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (r *fakeIPRuleRepo) Delete(_ context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rules {
		if r.rules[i].ID == id {
			r.rules = append(r.rules[:i], r.rules[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

type fakeAuditRepo struct {
	mu     sync.Mutex
	nextID int64
	events []domain.AuditEvent
}

func newFakeAuditRepo() *fakeAuditRepo {
	return &fakeAuditRepo{}
}

func (r *fakeAuditRepo) Create(_ context.Context, event *domain.AuditEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	event.ID = r.nextID
	r.events = append(r.events, *event)
	return nil
}

func (r *fakeAuditRepo) CreateTx(ctx context.Context, _ *gorm.DB, event *domain.AuditEvent) error {
	return r.Create(ctx, event)
}

func (r *fakeAuditRepo) List(_ context.Context, filter domain.AuditFilter) ([]domain.AuditEvent, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matched := make([]domain.AuditEvent, 0)
	for _, e := range r.events {
		if filter.EventType != "" && e.EventType != filter.EventType {
			continue
		}
		if filter.Severity != "" && e.Severity != filter.Severity {
			continue
		}
		if filter.ActorID != nil && (e.ActorID == nil || *e.ActorID != *filter.ActorID) {
			continue
		}
		if filter.From != nil && e.CreatedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !e.CreatedAt.Before(*filter.To) {
			continue
		}
		matched = append(matched, e)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	total := int64(len(matched))
	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return nil, total, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, total, nil
}

func (r *fakeAuditRepo) FindByActor(_ context.Context, actorID int64, eventType string, limit int) ([]domain.AuditEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.AuditEvent, 0)
	for _, e := range r.events {
		if e.ActorID != nil && *e.ActorID == actorID && e.EventType == eventType {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeAuditRepo) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.events[:0]
	var removed int64
	for _, e := range r.events {
		if e.CreatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	r.events = kept
	return removed, nil
}

// countEvents returns how many stored events have the given type.
func (r *fakeAuditRepo) countEvents(eventType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.EventType == eventType {
			n++
		}
	}
	return n
}

type fakePolicyRepo struct {
	mu  sync.Mutex
	row *domain.SecurityPolicy
}

func newFakePolicyRepo() *fakePolicyRepo {
	return &fakePolicyRepo{}
}

func (r *fakePolicyRepo) Load(_ context.Context) (*domain.SecurityPolicy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.row == nil {
		return nil, nil
	}
	clone := *r.row
	return &clone, nil
}

func (r *fakePolicyRepo) Save(_ context.Context, policy *domain.SecurityPolicy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *policy
	r.row = &clone
	return nil
}

// fakeTx runs transactional closures directly; the fakes have no real
// transactions to join.
type fakeTx struct{}

func (fakeTx) Begin(context.Context) (*gorm.DB, error)       { return nil, nil }
func (fakeTx) Commit(*gorm.DB) error                         { return nil }
func (fakeTx) Rollback(*gorm.DB) error                       { return nil }
func (fakeTx) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeTicketCache struct {
	mu       sync.Mutex
	tickets  map[string]*domain.PreAuthTicket
	failures map[string]int
}

func newFakeTicketCache() *fakeTicketCache {
	return &fakeTicketCache{
		tickets:  map[string]*domain.PreAuthTicket{},
		failures: map[string]int{},
	}
}

func (c *fakeTicketCache) Store(_ context.Context, ticket *domain.PreAuthTicket, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	clone := *ticket
	c.tickets[ticket.ID] = &clone
	return nil
}

func (c *fakeTicketCache) Get(_ context.Context, id string) (*domain.PreAuthTicket, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.tickets[id]; ok {
		clone := *t
		return &clone, nil
	}
	return nil, nil
}

func (c *fakeTicketCache) RecordFailure(_ context.Context, id string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[id]++
	return c.failures[id], nil
}

func (c *fakeTicketCache) Delete(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tickets, id)
	delete(c.failures, id)
	return nil
}

type fakeOTPCache struct {
	mu    sync.Mutex
	codes map[int64]string
}

func newFakeOTPCache() *fakeOTPCache {
	return &fakeOTPCache{codes: map[int64]string{}}
}

func (c *fakeOTPCache) StoreCode(_ context.Context, userID int64, code string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.codes[userID] = code
	return nil
}

func (c *fakeOTPCache) GetCode(_ context.Context, userID int64) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.codes[userID], nil
}

func (c *fakeOTPCache) DeleteCode(_ context.Context, userID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.codes, userID)
	return nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []*domain.Notification
	err  error
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{}
}

func (n *fakeNotifier) Emit(_ context.Context, notification *domain.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, notification)
	return nil
}

func (n *fakeNotifier) byType(notifyType string) []*domain.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]*domain.Notification, 0)
	for _, s := range n.sent {
		if s.Type == notifyType {
			out = append(out, s)
		}
	}
	return out
}
