package lease

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/matheus3301/msana/internal/bus"
	"github.com/matheus3301/msana/internal/errs"
	"github.com/matheus3301/msana/internal/metrics"
	"github.com/matheus3301/msana/internal/model"
	"github.com/matheus3301/msana/internal/tabstore"
	"go.uber.org/zap"
)

// Manager owns this tab's view of the logged-in account. Its methods are
// serialized, mirroring the single event loop of a tab.
type Manager struct {
	store   Store
	tab     tabstore.Store
	cfg     Config
	bus     *bus.Bus
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
	newID   func() string

	mu    sync.Mutex
	tabID string
	user  *model.User
	token string

	cancel context.CancelFunc
	done   chan struct{}
}

// Option customizes a Manager.
type Option func(*Manager)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithIDGenerator replaces the tab identity generator.
func WithIDGenerator(fn func() string) Option {
	return func(m *Manager) { m.newID = fn }
}

// WithMetrics records heartbeats.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) { m.metrics = mt }
}

// NewManager creates a lease manager. Call Init before anything else.
func NewManager(store Store, tab tabstore.Store, cfg Config, b *bus.Bus, logger *zap.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		store:  store,
		tab:    tab,
		cfg:    cfg.withDefaults(),
		bus:    b,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Init restores or picks this tab's account.
//
// A tab with an active pointer keeps it as long as the account still exists.
// Otherwise the most recently used account that is unclaimed, stale, or
// already claimed by this tab is selected. With no candidate the tab starts
// unauthenticated.
func (m *Manager) Init(ctx context.Context, nav NavigationType) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if nav == Navigate && m.cfg.ClearIdentityOnFreshNavigation {
		m.logger.Info("fresh navigation, clearing inherited tab session")
		if err := m.tab.Delete(tabstore.KeyActiveAccount); err != nil {
			return err
		}
		if err := m.tab.Delete(tabstore.KeyTabID); err != nil {
			return err
		}
	}

	tabID, err := m.ensureTabID()
	if err != nil {
		return err
	}

	accounts, err := m.store.LoadAccounts(ctx)
	if err != nil {
		return err
	}
	occupancy, err := m.store.LoadOccupancy(ctx)
	if err != nil {
		return err
	}

	now := m.now()
	active, err := m.activeEmail()
	if err != nil {
		return err
	}
	if active == "" {
		active = pickCandidate(accounts, occupancy, tabID, now, m.cfg.LeaseTTL)
		if active == "" {
			m.logger.Info("no available account, tab starts unauthenticated",
				zap.String("tab_id", tabID), zap.Int("accounts", len(accounts)))
			return nil
		}
		m.logger.Info("picked available account", zap.String("email", active))
		if err := m.tab.Set(tabstore.KeyActiveAccount, active); err != nil {
			return err
		}
	}

	rec, ok := accounts[active]
	if !ok {
		m.logger.Warn("active account no longer cached", zap.String("email", active))
		return m.tab.Delete(tabstore.KeyActiveAccount)
	}

	occupancy[active] = model.OccupancyRecord{TabID: tabID, LastSeen: now}
	if err := m.store.SaveOccupancy(ctx, occupancy); err != nil {
		return err
	}
	m.setState(rec)
	m.logger.Info("session restored", zap.String("email", active), zap.String("tab_id", tabID))
	m.bus.Emit(bus.SessionRestored, Change{Email: active, TabID: tabID})
	return nil
}

// pickCandidate returns the most recently used claimable account, or "".
// Emails are visited in sorted order so ties resolve deterministically.
func pickCandidate(accounts map[string]model.AccountRecord, occupancy map[string]model.OccupancyRecord, tabID string, now time.Time, ttl time.Duration) string {
	emails := make([]string, 0, len(accounts))
	for email := range accounts {
		emails = append(emails, email)
	}
	slices.Sort(emails)

	var best string
	var bestUsed time.Time
	for _, email := range emails {
		if occ, held := occupancy[email]; held && occ.TabID != tabID && !occ.Stale(now, ttl) {
			continue
		}
		used := accounts[email].LastUsed
		if best == "" || used.After(bestUsed) {
			best, bestUsed = email, used
		}
	}
	return best
}

// Start runs the heartbeat until ctx is cancelled or Stop is called.
func (m *Manager) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	m.mu.Lock()
	m.cancel, m.done = cancel, done
	m.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(m.cfg.HeartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := m.Heartbeat(ctx); err != nil {
					m.logger.Error("lease heartbeat failed", zap.Error(err))
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop ends the heartbeat loop and waits for it to exit.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Heartbeat renews this tab's lease on its active account. No-op when the
// tab has no active account.
func (m *Manager) Heartbeat(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	email, err := m.activeEmail()
	if err != nil || email == "" {
		return err
	}
	tabID, err := m.ensureTabID()
	if err != nil {
		return err
	}
	occupancy, err := m.store.LoadOccupancy(ctx)
	if err != nil {
		return err
	}
	occupancy[email] = model.OccupancyRecord{TabID: tabID, LastSeen: m.now()}
	if err := m.store.SaveOccupancy(ctx, occupancy); err != nil {
		return err
	}
	m.metrics.Heartbeat()
	return nil
}

// Release drops this tab's lease so another tab can claim the account at
// once instead of waiting out the TTL. Runs when the tab closes.
func (m *Manager) Release(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	email, err := m.activeEmail()
	if err != nil || email == "" {
		return err
	}
	if _, err := m.ensureTabID(); err != nil {
		return err
	}
	occupancy, err := m.store.LoadOccupancy(ctx)
	if err != nil {
		return err
	}
	if released := m.releaseOwned(occupancy, email); !released {
		return nil
	}
	if err := m.store.SaveOccupancy(ctx, occupancy); err != nil {
		return err
	}
	m.logger.Info("lease released", zap.String("email", email))
	return nil
}

// Login caches the credential, claims the account for this tab and makes it active.
func (m *Manager) Login(ctx context.Context, user model.User, token string) error {
	email := strings.TrimSpace(user.Email)
	if email == "" {
		return errs.ErrAccountNotFound
	}
	user.Email = email

	m.mu.Lock()
	defer m.mu.Unlock()

	tabID, err := m.ensureTabID()
	if err != nil {
		return err
	}
	now := m.now()

	accounts, err := m.store.LoadAccounts(ctx)
	if err != nil {
		return err
	}
	rec := model.AccountRecord{Email: email, User: user, Token: token, LastUsed: now}
	accounts[email] = rec
	if err := m.store.SaveAccounts(ctx, accounts); err != nil {
		return err
	}

	occupancy, err := m.store.LoadOccupancy(ctx)
	if err != nil {
		return err
	}
	if prev, err := m.activeEmail(); err == nil && prev != "" && prev != email {
		m.releaseOwned(occupancy, prev)
	}
	occupancy[email] = model.OccupancyRecord{TabID: tabID, LastSeen: now}
	if err := m.store.SaveOccupancy(ctx, occupancy); err != nil {
		return err
	}

	if err := m.tab.Set(tabstore.KeyActiveAccount, email); err != nil {
		return err
	}
	m.setState(rec)
	m.logger.Info("logged in", zap.String("email", email), zap.String("tab_id", tabID))
	m.bus.Emit(bus.SessionLogin, Change{Email: email, TabID: tabID})
	return nil
}

// Logout forgets the active account's credential for every tab and clears
// this tab's session. No-op when nothing is active.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	email, err := m.activeEmail()
	if err != nil {
		return err
	}
	if email == "" {
		m.clearState()
		return nil
	}

	accounts, err := m.store.LoadAccounts(ctx)
	if err != nil {
		return err
	}
	delete(accounts, email)
	if err := m.store.SaveAccounts(ctx, accounts); err != nil {
		return err
	}

	occupancy, err := m.store.LoadOccupancy(ctx)
	if err != nil {
		return err
	}
	if m.releaseOwned(occupancy, email) {
		if err := m.store.SaveOccupancy(ctx, occupancy); err != nil {
			return err
		}
	}

	if err := m.tab.Delete(tabstore.KeyActiveAccount); err != nil {
		return err
	}
	oldTab := m.tabID
	if m.cfg.ClearIdentityOnFreshNavigation {
		if err := m.tab.Delete(tabstore.KeyTabID); err != nil {
			return err
		}
		m.tabID = ""
		if _, err := m.ensureTabID(); err != nil {
			return err
		}
	}
	m.clearState()
	m.logger.Info("logged out", zap.String("email", email))
	m.bus.Emit(bus.SessionLogout, Change{Email: email, TabID: oldTab})
	return nil
}

// SwitchAccount makes a cached account active in this tab.
// It fails with errs.ErrAccountNotFound when no credential is cached and with
// errs.ErrAccountBusy when another tab holds a fresh lease on it.
func (m *Manager) SwitchAccount(ctx context.Context, email string) (*model.User, error) {
	email = strings.TrimSpace(email)

	m.mu.Lock()
	defer m.mu.Unlock()

	tabID, err := m.ensureTabID()
	if err != nil {
		return nil, err
	}
	accounts, err := m.store.LoadAccounts(ctx)
	if err != nil {
		return nil, err
	}
	rec, ok := accounts[email]
	if !ok {
		return nil, errs.ErrAccountNotFound
	}
	occupancy, err := m.store.LoadOccupancy(ctx)
	if err != nil {
		return nil, err
	}
	now := m.now()
	if occ, held := occupancy[email]; held && occ.TabID != tabID && !occ.Stale(now, m.cfg.LeaseTTL) {
		m.logger.Info("switch rejected, account busy",
			zap.String("email", email), zap.String("holder", occ.TabID))
		return nil, errs.ErrAccountBusy
	}

	rec.LastUsed = now
	accounts[email] = rec
	if err := m.store.SaveAccounts(ctx, accounts); err != nil {
		return nil, err
	}

	prev, err := m.activeEmail()
	if err != nil {
		return nil, err
	}
	if prev != "" && prev != email {
		m.releaseOwned(occupancy, prev)
	}
	occupancy[email] = model.OccupancyRecord{TabID: tabID, LastSeen: now}
	if err := m.store.SaveOccupancy(ctx, occupancy); err != nil {
		return nil, err
	}

	if err := m.tab.Set(tabstore.KeyActiveAccount, email); err != nil {
		return nil, err
	}
	m.setState(rec)
	m.logger.Info("switched account", zap.String("from", prev), zap.String("to", email))
	m.bus.Emit(bus.SessionSwitched, Change{Email: email, TabID: tabID})
	user := rec.User
	return &user, nil
}

// AvailableAccounts returns the profile of every cached account, regardless
// of which tab holds it.
func (m *Manager) AvailableAccounts(ctx context.Context) ([]model.User, error) {
	summaries, err := m.Accounts(ctx)
	if err != nil {
		return nil, err
	}
	users := make([]model.User, 0, len(summaries))
	for _, s := range summaries {
		users = append(users, s.User)
	}
	return users, nil
}

// Accounts lists cached accounts for a switcher, most recently used first.
func (m *Manager) Accounts(ctx context.Context) ([]model.AccountSummary, error) {
	accounts, err := m.store.LoadAccounts(ctx)
	if err != nil {
		return nil, err
	}
	active := m.ActiveEmail()

	summaries := make([]model.AccountSummary, 0, len(accounts))
	for email, rec := range accounts {
		s := model.AccountSummary{User: rec.User, LastUsed: rec.LastUsed, Active: email == active}
		if exp, ok := TokenExpiry(rec.Token); ok {
			s.TokenExpiresAt = exp
		}
		summaries = append(summaries, s)
	}
	slices.SortFunc(summaries, func(a, b model.AccountSummary) int {
		if c := b.LastUsed.Compare(a.LastUsed); c != 0 {
			return c
		}
		return strings.Compare(a.User.Email, b.User.Email)
	})
	return summaries, nil
}

// ForgetActive drops the active account after the server rejected its token.
func (m *Manager) ForgetActive(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	email, err := m.activeEmail()
	if err != nil || email == "" {
		return err
	}
	accounts, err := m.store.LoadAccounts(ctx)
	if err != nil {
		return err
	}
	delete(accounts, email)
	if err := m.store.SaveAccounts(ctx, accounts); err != nil {
		return err
	}
	occupancy, err := m.store.LoadOccupancy(ctx)
	if err != nil {
		return err
	}
	if m.releaseOwned(occupancy, email) {
		if err := m.store.SaveOccupancy(ctx, occupancy); err != nil {
			return err
		}
	}
	if err := m.tab.Delete(tabstore.KeyActiveAccount); err != nil {
		return err
	}
	m.clearState()
	m.logger.Warn("credential rejected by server, account forgotten", zap.String("email", email))
	m.bus.Emit(bus.SessionExpired, Change{Email: email, TabID: m.tabID})
	return nil
}

// TabID returns this tab's identity.
func (m *Manager) TabID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tabID
}

// Token returns the active bearer token, or "" when unauthenticated.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// User returns a copy of the active profile, or nil.
func (m *Manager) User() *model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

// ActiveEmail returns the email this tab presents, or "".
func (m *Manager) ActiveEmail() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return ""
	}
	return m.user.Email
}

// ensureTabID loads or creates the tab identity. Callers hold m.mu.
func (m *Manager) ensureTabID() (string, error) {
	id, ok, err := m.tab.Get(tabstore.KeyTabID)
	if err != nil {
		return "", err
	}
	if !ok || id == "" {
		id = m.newID()
		if err := m.tab.Set(tabstore.KeyTabID, id); err != nil {
			return "", err
		}
	}
	m.tabID = id
	return id, nil
}

// activeEmail reads the tab's pointer. Callers hold m.mu.
func (m *Manager) activeEmail() (string, error) {
	email, _, err := m.tab.Get(tabstore.KeyActiveAccount)
	return email, err
}

// releaseOwned removes email's lease if this tab holds it.
func (m *Manager) releaseOwned(occupancy map[string]model.OccupancyRecord, email string) bool {
	occ, ok := occupancy[email]
	if !ok || occ.TabID != m.tabID {
		return false
	}
	delete(occupancy, email)
	return true
}

func (m *Manager) setState(rec model.AccountRecord) {
	u := rec.User
	m.user = &u
	m.token = rec.Token
}

func (m *Manager) clearState() {
	m.user = nil
	m.token = ""
}
