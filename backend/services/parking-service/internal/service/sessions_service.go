package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"parkflow/backend/services/parking-service/internal/events"
	"parkflow/backend/services/parking-service/internal/models"
	redisstore "parkflow/backend/services/parking-service/internal/redis"
	"parkflow/backend/services/parking-service/internal/repository"
	"parkflow/backend/services/parking-service/internal/tariff"
)

// SessionTx is the set of statements a lifecycle transaction runs. Lookups report
// repository.ErrNotFound for missing rows.
type SessionTx interface {
	LockPlate(ctx context.Context, plate string) error
	FrequentClientByPlate(ctx context.Context, plate string) (*models.FrequentClient, error)
	TariffForTenant(ctx context.Context, tenantID int64) (*models.TariffParameters, error)
	OpenSessionByPlate(ctx context.Context, plate string) (*models.Session, error)
	LatestOutstandingByPlate(ctx context.Context, plate string, excludeID int64) (*models.Session, error)
	InsertSession(ctx context.Context, s *models.Session) error
	CloseSession(ctx context.Context, s *models.Session) error
	UpdateSettlement(ctx context.Context, id, amountPaid, balanceOwed int64) error
}

// TxRunner runs fn atomically. Contention must surface as repository.ErrLockContention.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx SessionTx) error) error
}

type postgresRunner struct {
	store *repository.Store
}

// NewPostgresRunner adapts the repository store to TxRunner.
func NewPostgresRunner(store *repository.Store) TxRunner {
	return postgresRunner{store: store}
}

func (r postgresRunner) RunInTx(ctx context.Context, fn func(ctx context.Context, tx SessionTx) error) error {
	return r.store.RunInTx(ctx, func(ctx context.Context, q *repository.Queries) error {
		return fn(ctx, q)
	})
}

// SessionReader serves listings outside the lifecycle transaction.
type SessionReader interface {
	ListOpenForTenant(ctx context.Context, tenantID int64, from, to time.Time) ([]models.OpenSessionSummary, error)
	ListClosedForTenant(ctx context.Context, tenantID int64, from, to time.Time) ([]models.ClosedSessionSummary, error)
	GetOpenByPlate(ctx context.Context, plate string) (*models.Session, error)
}

// OperatorLookup resolves operators with their tenant state.
type OperatorLookup interface {
	GetByID(ctx context.Context, id int64) (*models.Operator, error)
}

// TenantZones resolves tenant timezones.
type TenantZones interface {
	Timezone(ctx context.Context, tenantID int64) (string, error)
}

// ActiveCache is the plate-keyed cache of open sessions. Misses report redis.Nil.
type ActiveCache interface {
	Save(ctx context.Context, session redisstore.ActiveSession) error
	Get(ctx context.Context, plate string) (*redisstore.ActiveSession, error)
	Delete(ctx context.Context, plate string) error
}

// Publisher receives committed lifecycle events.
type Publisher interface {
	Publish(event events.Event)
}

// Options tune the lifecycle manager.
type Options struct {
	MaxTxRetries    int
	DefaultLocation *time.Location
	CutoverHour     int
	Now             func() time.Time
}

// Dependencies wires the manager. Cache and Events may be nil.
type Dependencies struct {
	Runner    TxRunner
	Sessions  SessionReader
	Operators OperatorLookup
	Zones     TenantZones
	Tariffs   TariffStore
	Clients   FrequentClientStore
	Bookings  BookingStore
	Cache     ActiveCache
	Events    Publisher
}

// SessionsService is the session lifecycle manager.
type SessionsService struct {
	runner    TxRunner
	sessions  SessionReader
	operators OperatorLookup
	zones     TenantZones
	tariffs   TariffStore
	clients   FrequentClientStore
	bookings  BookingStore
	cache     ActiveCache
	events    Publisher
	logger    *zap.Logger
	opts      Options
}

// NewSessionsService builds service.
func NewSessionsService(deps Dependencies, opts Options, logger *zap.Logger) *SessionsService {
	if opts.MaxTxRetries <= 0 {
		opts.MaxTxRetries = 1
	}
	if opts.DefaultLocation == nil {
		opts.DefaultLocation = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &SessionsService{
		runner:    deps.Runner,
		sessions:  deps.Sessions,
		operators: deps.Operators,
		zones:     deps.Zones,
		tariffs:   deps.Tariffs,
		clients:   deps.Clients,
		bookings:  deps.Bookings,
		cache:     deps.Cache,
		events:    deps.Events,
		logger:    logger,
		opts:      opts,
	}
}

// OpenResult is returned on vehicle entry.
type OpenResult struct {
	SessionID         int64     `json:"session_id"`
	Plate             string    `json:"plate"`
	StartTime         time.Time `json:"start_time"`
	HasPendingBalance bool      `json:"has_pending_balance"`
	PendingAmount     int64     `json:"pending_amount"`
}

// CloseInput describes a vehicle exit.
type CloseInput struct {
	Plate      string
	OperatorID int64
	AmountPaid int64
}

// CloseResult is the settlement of a vehicle exit.
type CloseResult struct {
	SessionID        int64     `json:"session_id"`
	TenantID         int64     `json:"tenant_id"`
	Plate            string    `json:"plate"`
	StartTime        time.Time `json:"start_time"`
	EndTime          time.Time `json:"end_time"`
	ElapsedMinutes   int64     `json:"elapsed_minutes"`
	Fee              int64     `json:"fee"`
	PriorBalance     int64     `json:"prior_balance"`
	PriorSessionID   *int64    `json:"prior_session_id,omitempty"`
	TotalDue         int64     `json:"total_due"`
	TotalPaid        int64     `json:"total_paid"`
	AppliedToPrior   int64     `json:"amount_applied_to_prior"`
	AppliedToCurrent int64     `json:"amount_applied_to_current"`
	RemainingBalance int64     `json:"remaining_balance"`
	Overpayment      int64     `json:"overpayment"`
	WasExempt        bool      `json:"was_exempt"`
}

// NormalizePlate trims and upper-cases plate.
func NormalizePlate(plate string) (string, error) {
	plate = strings.ToUpper(strings.TrimSpace(plate))
	if plate == "" {
		return "", ErrInvalidPlate
	}
	return plate, nil
}

// Operator returns the operator if it may register vehicles.
func (s *SessionsService) Operator(ctx context.Context, operatorID int64) (*models.Operator, error) {
	op, err := s.operators.GetByID(ctx, operatorID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrOperatorNotFound
	}
	if err != nil {
		return nil, err
	}
	if !op.CanOperate() {
		return nil, ErrOperatorInactive
	}
	return op, nil
}

// OpenSession registers the entry of plate by operatorID.
func (s *SessionsService) OpenSession(ctx context.Context, plate string, operatorID int64) (*OpenResult, error) {
	plate, err := NormalizePlate(plate)
	if err != nil {
		return nil, err
	}
	op, err := s.Operator(ctx, operatorID)
	if err != nil {
		return nil, err
	}

	var result *OpenResult
	err = s.withRetry(ctx, "open", plate, func() error {
		return s.runner.RunInTx(ctx, func(ctx context.Context, tx SessionTx) error {
			res, err := s.openInTx(ctx, tx, plate, op)
			if err != nil {
				return err
			}
			result = res
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("session opened",
		zap.Int64("session_id", result.SessionID),
		zap.String("plate", plate),
		zap.Int64("tenant_id", op.TenantID),
		zap.Int64("operator_id", op.ID),
		zap.Int64("pending_amount", result.PendingAmount),
	)
	s.cacheOpen(ctx, redisstore.ActiveSession{
		SessionID: result.SessionID,
		Plate:     plate,
		TenantID:  op.TenantID,
		OpenedBy:  op.ID,
		StartTime: result.StartTime,
	})
	s.publish(events.Event{
		Type:           events.TypeSessionOpened,
		TenantID:       op.TenantID,
		SessionID:      result.SessionID,
		Plate:          plate,
		OperatorID:     op.ID,
		At:             result.StartTime,
		PendingBalance: result.PendingAmount,
	})
	return result, nil
}

func (s *SessionsService) openInTx(ctx context.Context, tx SessionTx, plate string, op *models.Operator) (*OpenResult, error) {
	if err := tx.LockPlate(ctx, plate); err != nil {
		return nil, err
	}

	client, err := findOptional(tx.FrequentClientByPlate(ctx, plate))
	if err != nil {
		return nil, err
	}
	if client != nil && !client.Billable {
		return nil, ErrPlateExempt
	}

	open, err := findOptional(tx.OpenSessionByPlate(ctx, plate))
	if err != nil {
		return nil, err
	}
	if open != nil {
		return nil, ErrPlateAlreadyActive
	}

	prior, err := findOptional(tx.LatestOutstandingByPlate(ctx, plate, 0))
	if err != nil {
		return nil, err
	}

	session := &models.Session{
		Plate:     plate,
		TenantID:  op.TenantID,
		OpenedBy:  op.ID,
		StartTime: s.opts.Now().UTC(),
	}
	if err := tx.InsertSession(ctx, session); err != nil {
		if errors.Is(err, repository.ErrDuplicateOpenSession) {
			return nil, ErrPlateAlreadyActive
		}
		return nil, err
	}

	result := &OpenResult{
		SessionID: session.ID,
		Plate:     plate,
		StartTime: session.StartTime,
	}
	if prior != nil {
		result.PendingAmount = prior.Outstanding()
		result.HasPendingBalance = result.PendingAmount > 0
	}
	return result, nil
}

// CloseSession registers the exit of a plate and settles its fee and prior debt.
func (s *SessionsService) CloseSession(ctx context.Context, input CloseInput) (*CloseResult, error) {
	plate, err := NormalizePlate(input.Plate)
	if err != nil {
		return nil, err
	}
	if input.AmountPaid < 0 {
		return nil, ErrInvalidAmount
	}
	op, err := s.Operator(ctx, input.OperatorID)
	if err != nil {
		return nil, err
	}

	var result *CloseResult
	err = s.withRetry(ctx, "close", plate, func() error {
		return s.runner.RunInTx(ctx, func(ctx context.Context, tx SessionTx) error {
			res, err := s.closeInTx(ctx, tx, plate, op, input.AmountPaid)
			if err != nil {
				return err
			}
			result = res
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("session closed",
		zap.Int64("session_id", result.SessionID),
		zap.String("plate", plate),
		zap.Int64("tenant_id", result.TenantID),
		zap.Int64("closing_tenant_id", op.TenantID),
		zap.Int64("operator_id", op.ID),
		zap.Int64("elapsed_minutes", result.ElapsedMinutes),
		zap.Int64("fee", result.Fee),
		zap.Int64("prior_balance", result.PriorBalance),
		zap.Int64("total_paid", result.TotalPaid),
		zap.Int64("remaining_balance", result.RemainingBalance),
		zap.Bool("was_exempt", result.WasExempt),
	)
	s.evict(ctx, plate)
	s.publish(events.Event{
		Type:             events.TypeSessionClosed,
		TenantID:         result.TenantID,
		SessionID:        result.SessionID,
		Plate:            plate,
		OperatorID:       op.ID,
		At:               result.EndTime,
		Fee:              result.Fee,
		RemainingBalance: result.RemainingBalance,
	})
	return result, nil
}

func (s *SessionsService) closeInTx(ctx context.Context, tx SessionTx, plate string, op *models.Operator, paid int64) (*CloseResult, error) {
	if err := tx.LockPlate(ctx, plate); err != nil {
		return nil, err
	}

	params, err := tx.TariffForTenant(ctx, op.TenantID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrTariffNotConfigured
	}
	if err != nil {
		return nil, err
	}
	if err := tariff.Validate(*params); err != nil {
		return nil, ErrInvalidTariff.wrap(err)
	}

	session, err := tx.OpenSessionByPlate(ctx, plate)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNoActiveSession
	}
	if err != nil {
		return nil, err
	}

	end := s.opts.Now().UTC()
	elapsed := ElapsedMinutes(session.StartTime, end)

	client, err := findOptional(tx.FrequentClientByPlate(ctx, plate))
	if err != nil {
		return nil, err
	}
	exempt := client != nil && client.Billable

	var fee int64
	if !exempt {
		fee, err = tariff.ComputeFee(elapsed, *params)
		if err != nil {
			return nil, ErrInvalidTariff.wrap(err)
		}
	}

	prior, err := findOptional(tx.LatestOutstandingByPlate(ctx, plate, session.ID))
	if err != nil {
		return nil, err
	}
	var priorBalance int64
	if prior != nil {
		priorBalance = prior.Outstanding()
	}

	alloc := Allocate(fee, priorBalance, paid)

	closedBy := op.ID
	paidCurrent := alloc.AppliedToCurrent
	balance := alloc.CurrentBalance(fee)
	session.EndTime = &end
	session.ClosedBy = &closedBy
	session.Fee = &fee
	session.AmountPaid = &paidCurrent
	session.BalanceOwed = &balance
	if client != nil {
		clientID := client.ID
		session.FrequentClientID = &clientID
	}
	if err := tx.CloseSession(ctx, session); err != nil {
		return nil, err
	}

	result := &CloseResult{
		SessionID:        session.ID,
		TenantID:         session.TenantID,
		Plate:            plate,
		StartTime:        session.StartTime,
		EndTime:          end,
		ElapsedMinutes:   elapsed,
		Fee:              fee,
		PriorBalance:     priorBalance,
		TotalDue:         alloc.TotalDue,
		TotalPaid:        paid,
		AppliedToPrior:   alloc.AppliedToPrior,
		AppliedToCurrent: alloc.AppliedToCurrent,
		RemainingBalance: alloc.Remaining,
		Overpayment:      alloc.Overpayment,
		WasExempt:        exempt,
	}

	if prior != nil && alloc.AppliedToPrior > 0 {
		var priorPaid int64
		if prior.AmountPaid != nil {
			priorPaid = *prior.AmountPaid
		}
		priorPaid += alloc.AppliedToPrior
		priorRemaining := max(0, priorBalance-alloc.AppliedToPrior)
		if err := tx.UpdateSettlement(ctx, prior.ID, priorPaid, priorRemaining); err != nil {
			return nil, err
		}
		priorID := prior.ID
		result.PriorSessionID = &priorID
	}
	return result, nil
}

// ElapsedMinutes returns whole minutes between start and end, never negative.
func ElapsedMinutes(start, end time.Time) int64 {
	d := end.Sub(start)
	if d <= 0 {
		return 0
	}
	return int64(d / time.Minute)
}

// LookupActive returns the open session of plate in any tenant, served from the cache
// when possible.
func (s *SessionsService) LookupActive(ctx context.Context, plate string) (*redisstore.ActiveSession, error) {
	plate, err := NormalizePlate(plate)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, plate)
		switch {
		case err == nil:
			return cached, nil
		case !errors.Is(err, redis.Nil):
			s.logger.Warn("failed to read active session cache", zap.String("plate", plate), zap.Error(err))
		}
	}

	session, err := s.sessions.GetOpenByPlate(ctx, plate)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNoActiveSession
	}
	if err != nil {
		return nil, err
	}
	active := redisstore.ActiveSession{
		SessionID: session.ID,
		Plate:     session.Plate,
		TenantID:  session.TenantID,
		OpenedBy:  session.OpenedBy,
		StartTime: session.StartTime,
	}
	s.cacheOpen(ctx, active)
	return &active, nil
}

// OpenSessionsView is the open-session listing of a tenant.
type OpenSessionsView struct {
	From     time.Time                   `json:"from"`
	To       time.Time                   `json:"to"`
	Tariff   *models.TariffParameters    `json:"tariff,omitempty"`
	Sessions []models.OpenSessionSummary `json:"sessions"`
}

// ClosedSessionsView is the closed-session history of a tenant.
type ClosedSessionsView struct {
	From     time.Time                     `json:"from"`
	To       time.Time                     `json:"to"`
	Sessions []models.ClosedSessionSummary `json:"sessions"`
}

// GetOpenSessionsForTenant lists open sessions started within window, defaulting to the
// tenant's current business day.
func (s *SessionsService) GetOpenSessionsForTenant(ctx context.Context, tenantID int64, window Window) (*OpenSessionsView, error) {
	window, err := s.resolveWindow(ctx, tenantID, window)
	if err != nil {
		return nil, err
	}
	sessions, err := s.sessions.ListOpenForTenant(ctx, tenantID, window.From, window.To)
	if err != nil {
		return nil, err
	}
	view := &OpenSessionsView{From: window.From, To: window.To, Sessions: sessions}

	params, err := s.tariffs.Get(ctx, tenantID)
	switch {
	case err == nil:
		view.Tariff = params
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}
	return view, nil
}

// GetClosedSessionsForTenant lists sessions closed within window, defaulting to the
// tenant's current business day.
func (s *SessionsService) GetClosedSessionsForTenant(ctx context.Context, tenantID int64, window Window) (*ClosedSessionsView, error) {
	window, err := s.resolveWindow(ctx, tenantID, window)
	if err != nil {
		return nil, err
	}
	sessions, err := s.sessions.ListClosedForTenant(ctx, tenantID, window.From, window.To)
	if err != nil {
		return nil, err
	}
	return &ClosedSessionsView{From: window.From, To: window.To, Sessions: sessions}, nil
}

func (s *SessionsService) resolveWindow(ctx context.Context, tenantID int64, window Window) (Window, error) {
	if !window.IsZero() {
		if window.From.IsZero() || window.To.IsZero() || !window.From.Before(window.To) {
			return Window{}, ErrInvalidWindow
		}
		return window, nil
	}
	var zone string
	if s.zones != nil {
		name, err := s.zones.Timezone(ctx, tenantID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return Window{}, err
		}
		zone = name
	}
	loc := resolveLocation(zone, s.opts.DefaultLocation)
	return BusinessDay(s.opts.Now(), loc, s.opts.CutoverHour), nil
}

// withRetry reruns fn while it fails on lock contention.
func (s *SessionsService) withRetry(ctx context.Context, op, plate string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= s.opts.MaxTxRetries; attempt++ {
		err = fn()
		if !errors.Is(err, repository.ErrLockContention) {
			return err
		}
		s.logger.Warn("lifecycle transaction contended",
			zap.String("op", op),
			zap.String("plate", plate),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if attempt == s.opts.MaxTxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ErrRetryableConflict.wrap(ctx.Err())
		case <-time.After(time.Duration(attempt) * 10 * time.Millisecond):
		}
	}
	return ErrRetryableConflict.wrap(err)
}

func (s *SessionsService) cacheOpen(ctx context.Context, session redisstore.ActiveSession) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Save(ctx, session); err != nil {
		s.logger.Warn("failed to cache active session", zap.String("plate", session.Plate), zap.Error(err))
	}
}

func (s *SessionsService) evict(ctx context.Context, plate string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, plate); err != nil && !errors.Is(err, redis.Nil) {
		s.logger.Warn("failed to delete active session cache", zap.String("plate", plate), zap.Error(err))
	}
}

func (s *SessionsService) publish(event events.Event) {
	if s.events == nil {
		return
	}
	s.events.Publish(event)
}

// findOptional turns repository.ErrNotFound into a nil result.
func findOptional[T any](v *T, err error) (*T, error) {
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}
