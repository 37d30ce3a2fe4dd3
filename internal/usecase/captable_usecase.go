package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/captable/internal/domain"
)

// Summary is the externally visible state of a company's cap table.
type Summary struct {
	CompanyID      string          `json:"company_id"`
	EntryID        string          `json:"entry_id,omitempty"`
	TeamEquity     decimal.Decimal `json:"team_equity"`
	InvestorEquity decimal.Decimal `json:"investor_equity"`
	TotalEquity    decimal.Decimal `json:"total_equity"`
	TotalShares    int64           `json:"total_shares"`
	// Adjusted counts entries whose percentage differs from the stored row.
	Adjusted   int             `json:"adjusted"`
	Normalized bool            `json:"normalized"`
	Snapshot   domain.Snapshot `json:"snapshot"`
}

// AddStakeholderInput represents input for issuing new equity.
type AddStakeholderInput struct {
	Kind          domain.Kind
	Name          string
	EquityPercent decimal.Decimal
}

// CapTableSettings are the engine defaults applied to every company.
type CapTableSettings struct {
	// SharesPerPercent is used when the company row carries none.
	SharesPerPercent int64
	Tolerance        decimal.Decimal
	SummaryTTL       time.Duration
}

// CapTableUseCase loads, mutates and persists cap tables. One engine instance
// is built per call; concurrent writers for the same company are serialized by
// the row locks taken in LoadForUpdate.
type CapTableUseCase struct {
	txManager       TransactionManager
	stakeholderRepo StakeholderRepository
	outboxRepo      OutboxRepository
	cache           Cache
	retrier         Retrier
	idGen           IDGenerator
	recorder        Recorder
	settings        CapTableSettings
	logger          zerolog.Logger
	now             func() time.Time
}

// NewCapTableUseCase creates a new CapTableUseCase. cache, retrier, idGen and
// recorder may be nil; a nil idGen falls back to ULIDs.
func NewCapTableUseCase(
	txManager TransactionManager,
	stakeholderRepo StakeholderRepository,
	outboxRepo OutboxRepository,
	cache Cache,
	retrier Retrier,
	idGen IDGenerator,
	recorder Recorder,
	settings CapTableSettings,
	logger zerolog.Logger,
) *CapTableUseCase {
	if cache == nil {
		cache = noopCache{}
	}
	if retrier == nil {
		retrier = onceRetrier{}
	}
	if recorder == nil {
		recorder = noopRecorder{}
	}
	if idGen == nil {
		idGen = ulidGenerator{}
	}
	if settings.SummaryTTL <= 0 {
		settings.SummaryTTL = DefaultSummaryTTL
	}

	return &CapTableUseCase{
		txManager:       txManager,
		stakeholderRepo: stakeholderRepo,
		outboxRepo:      outboxRepo,
		cache:           cache,
		retrier:         retrier,
		idGen:           idGen,
		recorder:        recorder,
		settings:        settings,
		logger:          logger,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// change describes what a mutation did so the write path can persist it.
type change struct {
	eventType string
	entryID   string
	inserted  bool
	removed   *domain.Entry
}

type mutation func(table *domain.CapTable) (change, error)

// Recalculate normalizes the stored table and writes the rounded percentages
// back. A company with a single team member and no investors has that member
// forced to exactly 100%.
func (uc *CapTableUseCase) Recalculate(ctx context.Context, companyID string) (*Summary, error) {
	summary, err := uc.write(ctx, OpRecalculate, companyID, func(table *domain.CapTable) (change, error) {
		if err := forceSoleHolder(table); err != nil {
			return change{}, err
		}
		return change{eventType: domain.EventTypeCapTableRecalculated}, nil
	})
	if err != nil {
		return nil, err
	}

	if summary.Adjusted > 0 {
		uc.recorder.RecordNormalization(summary.Adjusted)
		uc.logger.Info().
			Str("company_id", companyID).
			Int("adjusted", summary.Adjusted).
			Str("total_equity", summary.TotalEquity.StringFixed(2)).
			Msg("cap table normalized")
	}

	return summary, nil
}

// AddStakeholder issues new equity, diluting every existing holder pro-rata.
func (uc *CapTableUseCase) AddStakeholder(ctx context.Context, companyID string, input AddStakeholderInput) (*Summary, error) {
	if err := domain.ValidateStakeholderName(input.Name); err != nil {
		uc.recorder.RecordOperation(OpAddStakeholder, 0, err)
		return nil, err
	}

	return uc.write(ctx, OpAddStakeholder, companyID, func(table *domain.CapTable) (change, error) {
		id, err := table.AddEntry(input.Kind, input.Name, input.EquityPercent)
		if err != nil {
			return change{}, err
		}
		return change{eventType: domain.EventTypeStakeholderAdded, entryID: id, inserted: true}, nil
	})
}

// UpdateEquity sets one holder's percentage and redistributes the difference
// across everyone else.
func (uc *CapTableUseCase) UpdateEquity(ctx context.Context, companyID, entryID string, percent decimal.Decimal) (*Summary, error) {
	return uc.write(ctx, OpUpdateEquity, companyID, func(table *domain.CapTable) (change, error) {
		if err := table.UpdateEntry(entryID, percent); err != nil {
			return change{}, err
		}
		return change{eventType: domain.EventTypeStakeholderUpdated, entryID: entryID}, nil
	})
}

// RemoveStakeholder deletes a holder and hands their equity to the rest.
func (uc *CapTableUseCase) RemoveStakeholder(ctx context.Context, companyID, entryID string) (*Summary, error) {
	return uc.write(ctx, OpRemoveStakeholder, companyID, func(table *domain.CapTable) (change, error) {
		removed, ok := table.Entry(entryID)
		if !ok {
			return change{}, fmt.Errorf("%w: %s", domain.ErrEntryNotFound, entryID)
		}
		if err := table.RemoveEntry(entryID); err != nil {
			return change{}, err
		}
		return change{eventType: domain.EventTypeStakeholderRemoved, entryID: entryID, removed: &removed}, nil
	})
}

// GetSummary reports the normalized view of the stored table without writing
// anything back.
func (uc *CapTableUseCase) GetSummary(ctx context.Context, companyID string) (summary *Summary, err error) {
	start := time.Now()
	defer func() { uc.recorder.RecordOperation(OpGetSummary, time.Since(start), err) }()

	if err := domain.ValidateID(companyID); err != nil {
		return nil, err
	}

	key := summaryCacheKey(companyID)
	if cached, cacheErr := uc.cache.Get(ctx, key); cacheErr == nil {
		var s Summary
		if jsonErr := json.Unmarshal(cached, &s); jsonErr == nil {
			return &s, nil
		}
		uc.logger.Warn().Str("company_id", companyID).Msg("discarding unreadable cached summary")
	} else if !errors.Is(cacheErr, ErrCacheMiss) {
		uc.logger.Warn().Err(cacheErr).Str("company_id", companyID).Msg("summary cache read failed")
	}

	data, err := uc.stakeholderRepo.Load(ctx, companyID)
	if err != nil {
		return nil, err
	}

	table, err := domain.FromExternalData(uc.configFor(data), data.Team, data.Investors)
	if err != nil {
		return nil, err
	}

	summary = summarize(companyID, table, data)

	if payload, jsonErr := json.Marshal(summary); jsonErr == nil {
		if setErr := uc.cache.Set(ctx, key, payload, uc.settings.SummaryTTL); setErr != nil {
			uc.logger.Warn().Err(setErr).Str("company_id", companyID).Msg("summary cache write failed")
		}
	}

	return summary, nil
}

// Validate checks the stored rows exactly as they are, without normalizing.
func (uc *CapTableUseCase) Validate(ctx context.Context, companyID string) (result domain.ValidationResult, err error) {
	start := time.Now()
	defer func() { uc.recorder.RecordOperation(OpValidate, time.Since(start), err) }()

	if err := domain.ValidateID(companyID); err != nil {
		return domain.ValidationResult{}, err
	}

	data, err := uc.stakeholderRepo.Load(ctx, companyID)
	if err != nil {
		return domain.ValidationResult{}, err
	}

	table, err := domain.NewCapTableFromEntries(uc.configFor(data), data.Entries())
	if err != nil {
		return domain.ValidationResult{}, err
	}

	return table.Validate(), nil
}

func (uc *CapTableUseCase) write(ctx context.Context, op, companyID string, apply mutation) (summary *Summary, err error) {
	start := time.Now()
	defer func() { uc.recorder.RecordOperation(op, time.Since(start), err) }()

	if err := domain.ValidateID(companyID); err != nil {
		return nil, err
	}

	err = uc.retrier.Retry(ctx, func() error {
		s, txErr := uc.writeTx(ctx, companyID, apply)
		if txErr != nil {
			return txErr
		}
		summary = s
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.invalidate(ctx, companyID)

	return summary, nil
}

func (uc *CapTableUseCase) writeTx(ctx context.Context, companyID string, apply mutation) (*Summary, error) {
	// Add transaction timeout
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	// Lock every ownership row of the company
	data, err := uc.stakeholderRepo.LoadForUpdate(txCtx, tx, companyID)
	if err != nil {
		return nil, err
	}

	table, err := domain.FromExternalData(uc.configFor(data), data.Team, data.Investors)
	if err != nil {
		return nil, err
	}

	ch, err := apply(table)
	if err != nil {
		return nil, err
	}

	var subject *domain.Entry
	if ch.removed != nil {
		if err := uc.stakeholderRepo.Delete(txCtx, tx, companyID, *ch.removed); err != nil {
			return nil, err
		}
		subject = ch.removed
	} else if e, ok := table.Entry(ch.entryID); ok {
		subject = &e
	}

	if ch.inserted && subject != nil {
		if err := uc.stakeholderRepo.Insert(txCtx, tx, companyID, *subject); err != nil {
			return nil, err
		}
	}

	summary := summarize(companyID, table, data)
	summary.EntryID = ch.entryID

	if err := uc.stakeholderRepo.SaveEquity(txCtx, tx, companyID, summary.Snapshot.Entries); err != nil {
		return nil, err
	}

	if err := uc.outboxRepo.Create(txCtx, tx, uc.newEvent(ch.eventType, summary, subject)); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	return summary, nil
}

func (uc *CapTableUseCase) invalidate(ctx context.Context, companyID string) {
	if err := uc.cache.Delete(ctx, summaryCacheKey(companyID)); err != nil {
		uc.logger.Warn().Err(err).Str("company_id", companyID).Msg("summary cache invalidation failed")
	}
}

func (uc *CapTableUseCase) configFor(data *domain.StakeholderData) domain.Config {
	spp := data.SharesPerPercent
	if spp <= 0 {
		spp = uc.settings.SharesPerPercent
	}

	return domain.Config{
		SharesPerPercent: spp,
		Tolerance:        uc.settings.Tolerance,
		IDGenerator:      uc.idGen.Generate,
		Now:              uc.now,
	}
}

func (uc *CapTableUseCase) newEvent(eventType string, s *Summary, subject *domain.Entry) *domain.OutboxEvent {
	payload := domain.CapTableChangedEvent{
		CompanyID:      s.CompanyID,
		TeamEquity:     s.TeamEquity.StringFixed(2),
		InvestorEquity: s.InvestorEquity.StringFixed(2),
		TotalEquity:    s.TotalEquity.StringFixed(2),
		AdjustedCount:  s.Adjusted,
	}
	if subject != nil {
		payload.EntryID = subject.ID
		payload.Kind = subject.Kind.String()
		payload.EquityPercent = subject.EquityPercent.StringFixed(2)
	}

	return &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   s.CompanyID,
		AggregateType: domain.AggregateTypeCompany,
		EventType:     eventType,
		Payload:       payload.ToPayload(),
		CreatedAt:     uc.now(),
	}
}

// forceSoleHolder sets a lone team member with no investors to exactly 100%.
func forceSoleHolder(table *domain.CapTable) error {
	if table.Len() != 1 || len(table.EntriesByKind(domain.KindInvestor)) != 0 {
		return nil
	}

	sole := table.Snapshot().Entries[0]
	if sole.EquityPercent.Equal(decimal.NewFromInt(100)) {
		return nil
	}

	return table.UpdateEntry(sole.ID, decimal.NewFromInt(100))
}

func summarize(companyID string, table *domain.CapTable, stored *domain.StakeholderData) *Summary {
	snap := table.Snapshot()
	adjusted := countAdjusted(stored, snap)

	return &Summary{
		CompanyID:      companyID,
		TeamEquity:     table.TeamEquity(),
		InvestorEquity: table.TotalEquityByKind(domain.KindInvestor),
		TotalEquity:    snap.TotalEquity,
		TotalShares:    snap.TotalShares,
		Adjusted:       adjusted,
		Normalized:     adjusted > 0,
		Snapshot:       snap,
	}
}

func countAdjusted(stored *domain.StakeholderData, snap domain.Snapshot) int {
	before := make(map[string]decimal.Decimal, len(stored.Team)+len(stored.Investors))
	for _, e := range stored.Entries() {
		before[e.ID] = e.EquityPercent
	}

	adjusted := 0
	for _, e := range snap.Entries {
		if old, ok := before[e.ID]; !ok || !old.Equal(e.EquityPercent) {
			adjusted++
		}
	}
	return adjusted
}

type noopCache struct{}

func (noopCache) Get(context.Context, string) ([]byte, error) { return nil, ErrCacheMiss }
func (noopCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (noopCache) Delete(context.Context, string) error { return nil }

type onceRetrier struct{}

func (onceRetrier) Retry(_ context.Context, operation func() error) error { return operation() }

type noopRecorder struct{}

func (noopRecorder) RecordOperation(string, time.Duration, error) {}
func (noopRecorder) RecordNormalization(int) {}

type ulidGenerator struct{}

func (ulidGenerator) Generate() string { return ulid.Make().String() }
