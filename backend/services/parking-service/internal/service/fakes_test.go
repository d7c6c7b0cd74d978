package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"parkflow/backend/services/parking-service/internal/events"
	"parkflow/backend/services/parking-service/internal/models"
	redisstore "parkflow/backend/services/parking-service/internal/redis"
	"parkflow/backend/services/parking-service/internal/repository"
)

// memStore is an in-memory database. RunInTx holds the mutex for the whole transaction
// and restores the snapshot when fn fails.
type memStore struct {
	mu         sync.Mutex
	nextID     int64
	sessions   map[int64]models.Session
	tariffs    map[int64]models.TariffParameters
	clients    map[string]models.FrequentClient
	operators  map[int64]models.Operator
	zones      map[int64]string
	contention int
	txCalls    int
}

func newMemStore() *memStore {
	return &memStore{
		sessions:  make(map[int64]models.Session),
		tariffs:   make(map[int64]models.TariffParameters),
		clients:   make(map[string]models.FrequentClient),
		operators: make(map[int64]models.Operator),
		zones:     make(map[int64]string),
	}
}

func (m *memStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx SessionTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txCalls++
	if m.contention > 0 {
		m.contention--
		return fmt.Errorf("lock timeout: %w", repository.ErrLockContention)
	}

	snapshot := make(map[int64]models.Session, len(m.sessions))
	for id, s := range m.sessions {
		snapshot[id] = s
	}
	nextID := m.nextID

	if err := fn(ctx, memTx{m: m}); err != nil {
		m.sessions = snapshot
		m.nextID = nextID
		return err
	}
	return nil
}

// addClosed seeds a closed session and returns its id.
func (m *memStore) addClosed(plate string, tenantID int64, end time.Time, fee, paid, balance int64) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	closedBy := int64(1)
	m.sessions[m.nextID] = models.Session{
		ID:          m.nextID,
		Plate:       plate,
		TenantID:    tenantID,
		OpenedBy:    1,
		ClosedBy:    &closedBy,
		StartTime:   end.Add(-time.Hour),
		EndTime:     &end,
		Fee:         &fee,
		AmountPaid:  &paid,
		BalanceOwed: &balance,
	}
	return m.nextID
}

// addOpen seeds an open session and returns its id.
func (m *memStore) addOpen(plate string, tenantID, operatorID int64, start time.Time) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.sessions[m.nextID] = models.Session{
		ID:        m.nextID,
		Plate:     plate,
		TenantID:  tenantID,
		OpenedBy:  operatorID,
		StartTime: start,
	}
	return m.nextID
}

func (m *memStore) session(id int64) models.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id]
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *memStore) openCount(plate string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.sessions {
		if s.Plate == plate && s.EndTime == nil {
			n++
		}
	}
	return n
}

type memTx struct {
	m *memStore
}

func (t memTx) LockPlate(ctx context.Context, plate string) error {
	return nil
}

func (t memTx) FrequentClientByPlate(ctx context.Context, plate string) (*models.FrequentClient, error) {
	c, ok := t.m.clients[plate]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (t memTx) TariffForTenant(ctx context.Context, tenantID int64) (*models.TariffParameters, error) {
	p, ok := t.m.tariffs[tenantID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (t memTx) OpenSessionByPlate(ctx context.Context, plate string) (*models.Session, error) {
	for _, s := range t.m.sessions {
		if s.Plate == plate && s.EndTime == nil {
			out := s
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (t memTx) LatestOutstandingByPlate(ctx context.Context, plate string, excludeID int64) (*models.Session, error) {
	var best *models.Session
	for _, s := range t.m.sessions {
		if s.Plate != plate || s.ID == excludeID || s.EndTime == nil || s.Outstanding() <= 0 {
			continue
		}
		if best == nil || s.EndTime.After(*best.EndTime) || (s.EndTime.Equal(*best.EndTime) && s.ID > best.ID) {
			out := s
			best = &out
		}
	}
	if best == nil {
		return nil, repository.ErrNotFound
	}
	return best, nil
}

func (t memTx) InsertSession(ctx context.Context, s *models.Session) error {
	for _, existing := range t.m.sessions {
		if existing.Plate == s.Plate && existing.EndTime == nil {
			return repository.ErrDuplicateOpenSession
		}
	}
	t.m.nextID++
	s.ID = t.m.nextID
	s.CreatedAt = s.StartTime
	s.UpdatedAt = s.StartTime
	t.m.sessions[s.ID] = *s
	return nil
}

func (t memTx) CloseSession(ctx context.Context, s *models.Session) error {
	existing, ok := t.m.sessions[s.ID]
	if !ok || existing.EndTime != nil {
		return repository.ErrNotFound
	}
	existing.EndTime = s.EndTime
	existing.ClosedBy = s.ClosedBy
	existing.Fee = s.Fee
	existing.AmountPaid = s.AmountPaid
	existing.BalanceOwed = s.BalanceOwed
	existing.FrequentClientID = s.FrequentClientID
	t.m.sessions[s.ID] = existing
	return nil
}

func (t memTx) UpdateSettlement(ctx context.Context, id, amountPaid, balanceOwed int64) error {
	existing, ok := t.m.sessions[id]
	if !ok || existing.EndTime == nil {
		return repository.ErrNotFound
	}
	existing.AmountPaid = &amountPaid
	existing.BalanceOwed = &balanceOwed
	t.m.sessions[id] = existing
	return nil
}

func (m *memStore) ListOpenForTenant(ctx context.Context, tenantID int64, from, to time.Time) ([]models.OpenSessionSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.OpenSessionSummary, 0)
	for _, s := range m.sessions {
		if s.TenantID != tenantID || s.EndTime != nil || s.StartTime.Before(from) || !s.StartTime.Before(to) {
			continue
		}
		summary := models.OpenSessionSummary{ID: s.ID, Plate: s.Plate, StartTime: s.StartTime, OpenedBy: s.OpenedBy}
		if prior, err := (memTx{m: m}).LatestOutstandingByPlate(ctx, s.Plate, s.ID); err == nil {
			summary.PendingBalance = prior.Outstanding()
		}
		if c, ok := m.clients[s.Plate]; ok {
			summary.FrequentClientMode = string(c.BillingMode)
		}
		out = append(out, summary)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	return out, nil
}

func (m *memStore) ListClosedForTenant(ctx context.Context, tenantID int64, from, to time.Time) ([]models.ClosedSessionSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.ClosedSessionSummary, 0)
	for _, s := range m.sessions {
		if s.TenantID != tenantID || s.EndTime == nil || s.EndTime.Before(from) || !s.EndTime.Before(to) {
			continue
		}
		out = append(out, models.ClosedSessionSummary{
			ID:          s.ID,
			Plate:       s.Plate,
			StartTime:   s.StartTime,
			EndTime:     *s.EndTime,
			Fee:         *s.Fee,
			AmountPaid:  *s.AmountPaid,
			BalanceOwed: *s.BalanceOwed,
			OpenedBy:    s.OpenedBy,
			ClosedBy:    s.ClosedBy,
		})
	}
	return out, nil
}

func (m *memStore) GetOpenByPlate(ctx context.Context, plate string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return memTx{m: m}.OpenSessionByPlate(ctx, plate)
}

func (m *memStore) GetByID(ctx context.Context, id int64) (*models.Operator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	op, ok := m.operators[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &op, nil
}

func (m *memStore) Timezone(ctx context.Context, tenantID int64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	zone, ok := m.zones[tenantID]
	if !ok {
		return "", repository.ErrNotFound
	}
	return zone, nil
}

type memTariffs struct{ m *memStore }

func (t memTariffs) Get(ctx context.Context, tenantID int64) (*models.TariffParameters, error) {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	return memTx{m: t.m}.TariffForTenant(ctx, tenantID)
}

func (t memTariffs) Upsert(ctx context.Context, p *models.TariffParameters) error {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	t.m.tariffs[p.TenantID] = *p
	return nil
}

type memClients struct{ m *memStore }

func (c memClients) ListByTenant(ctx context.Context, tenantID int64) ([]models.FrequentClient, error) {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	out := make([]models.FrequentClient, 0)
	for _, fc := range c.m.clients {
		if fc.TenantID == tenantID {
			out = append(out, fc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Plate < out[j].Plate })
	return out, nil
}

func (c memClients) Create(ctx context.Context, fc *models.FrequentClient) error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	if _, ok := c.m.clients[fc.Plate]; ok {
		return repository.ErrDuplicatePlate
	}
	fc.ID = int64(len(c.m.clients) + 1)
	c.m.clients[fc.Plate] = *fc
	return nil
}

func (c memClients) DeleteByPlate(ctx context.Context, tenantID int64, plate string) error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	fc, ok := c.m.clients[plate]
	if !ok || fc.TenantID != tenantID {
		return repository.ErrNotFound
	}
	delete(c.m.clients, plate)
	return nil
}

type memBookings struct {
	mu       sync.Mutex
	nextID   int64
	catalog  map[int64]models.CatalogService
	bookings map[int64]models.ServiceBooking
}

func newMemBookings() *memBookings {
	return &memBookings{
		catalog:  make(map[int64]models.CatalogService),
		bookings: make(map[int64]models.ServiceBooking),
	}
}

func (b *memBookings) CatalogEntry(ctx context.Context, tenantID, id int64) (*models.CatalogService, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.catalog[id]
	if !ok || (c.TenantID != nil && *c.TenantID != tenantID) {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

// withCatalog mirrors the join the repository performs on reads.
func (b *memBookings) withCatalog(booking models.ServiceBooking) *models.ServiceBooking {
	if booking.CatalogServiceID != nil {
		if c, ok := b.catalog[*booking.CatalogServiceID]; ok {
			value, duration := c.Value, c.DurationMinutes
			booking.ServiceName = c.Name
			booking.CatalogValue = &value
			booking.CatalogDurationMinutes = &duration
		}
	}
	return &booking
}

func (b *memBookings) Get(ctx context.Context, tenantID, id int64) (*models.ServiceBooking, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	booking, ok := b.bookings[id]
	if !ok || booking.TenantID != tenantID {
		return nil, repository.ErrNotFound
	}
	return b.withCatalog(booking), nil
}

func (b *memBookings) ListByTenant(ctx context.Context, tenantID int64, from, to time.Time) ([]models.ServiceBooking, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]models.ServiceBooking, 0)
	for _, booking := range b.bookings {
		if booking.TenantID != tenantID {
			continue
		}
		if (!from.IsZero() && booking.ScheduledAt.Before(from)) || (!to.IsZero() && !booking.ScheduledAt.Before(to)) {
			continue
		}
		out = append(out, *b.withCatalog(booking))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.After(out[j].ScheduledAt) })
	return out, nil
}

func (b *memBookings) Create(ctx context.Context, booking *models.ServiceBooking) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	booking.ID = b.nextID
	stored := *booking
	stored.ServiceName, stored.CatalogValue, stored.CatalogDurationMinutes = "", nil, nil
	b.bookings[booking.ID] = stored
	return nil
}

func (b *memBookings) Update(ctx context.Context, booking *models.ServiceBooking) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	existing, ok := b.bookings[booking.ID]
	if !ok || existing.TenantID != booking.TenantID {
		return repository.ErrNotFound
	}
	existing.CustomValue = booking.CustomValue
	existing.CustomDurationMinutes = booking.CustomDurationMinutes
	existing.ScheduledAt = booking.ScheduledAt
	existing.Deposit = booking.Deposit
	existing.PaidInFull = booking.PaidInFull
	existing.Finished = booking.Finished
	b.bookings[booking.ID] = existing
	return nil
}

func (b *memBookings) Delete(ctx context.Context, tenantID, id int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	booking, ok := b.bookings[id]
	if !ok || booking.TenantID != tenantID {
		return repository.ErrNotFound
	}
	delete(b.bookings, id)
	return nil
}

type memCache struct {
	mu      sync.Mutex
	entries map[string]redisstore.ActiveSession
	gets    int
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string]redisstore.ActiveSession)}
}

func (c *memCache) Save(ctx context.Context, session redisstore.ActiveSession) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[session.Plate] = session
	return nil
}

func (c *memCache) Get(ctx context.Context, plate string) (*redisstore.ActiveSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	s, ok := c.entries[plate]
	if !ok {
		return nil, redis.Nil
	}
	return &s, nil
}

func (c *memCache) Delete(ctx context.Context, plate string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, plate)
	return nil
}

func (c *memCache) has(plate string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[plate]
	return ok
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(event events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
