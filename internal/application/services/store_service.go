package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hivekeeper/core/internal/domain/entities"
	"github.com/hivekeeper/core/internal/infrastructure/config"
	"github.com/hivekeeper/core/internal/infrastructure/logger"
	"github.com/hivekeeper/core/internal/ports"
)

// StoreService owns the aggregate journal state: all five record collections,
// the cached stats snapshots, and the trial/registration flags. Every mutation
// runs against the in-memory state under a single writer lock and is persisted
// write-through as one blob; the in-memory copy stays authoritative even when
// a persist fails, and the failure is reported to the caller.
type StoreService struct {
	repo      ports.StateRepository
	logger    *logger.Logger
	now       func() time.Time
	trialDays int

	mu    sync.RWMutex
	state *entities.AppState
	ready bool
}

// StoreOption configures a StoreService.
type StoreOption func(*StoreService)

// WithClock overrides the store's notion of wall-clock time. Used in tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *StoreService) {
		s.now = now
	}
}

// NewStoreService creates a new record store service. Call Load before using it.
func NewStoreService(repo ports.StateRepository, trialCfg config.TrialConfig, appLogger *logger.Logger, opts ...StoreOption) *StoreService {
	s := &StoreService{
		repo:      repo,
		logger:    appLogger,
		now:       time.Now,
		trialDays: trialCfg.DurationDays,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads the persisted state, or seeds a first-run state when none exists.
// Until Load completes the store reports not-ready and rejects mutations.
func (s *StoreService) Load(ctx context.Context) error {
	state, err := s.repo.Load(ctx)
	switch {
	case errors.Is(err, entities.ErrStateNotFound):
		state = s.seedState()
		if err := s.repo.Save(ctx, state); err != nil {
			return fmt.Errorf("failed to persist seeded state: %w", err)
		}
		s.logger.Info("Seeded first-run journal state", "apiary_id", state.CurrentApiaryID)
	case err != nil:
		return fmt.Errorf("failed to load state: %w", err)
	default:
		if state.Normalize() {
			if err := s.repo.Save(ctx, state); err != nil {
				return fmt.Errorf("failed to persist migrated state: %w", err)
			}
			s.logger.Info("Migrated legacy journal state", "version", state.Version)
		}
	}

	s.mu.Lock()
	s.state = state
	s.ready = true
	s.mu.Unlock()

	s.logger.Info("Journal state loaded",
		"apiaries", len(state.Apiaries),
		"hives", len(state.Hives),
		"registered", state.IsRegistered,
	)
	return nil
}

// Ready reports whether the initial load has completed.
func (s *StoreService) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Snapshot returns a deep copy of the current aggregate state.
func (s *StoreService) Snapshot() entities.AppState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == nil {
		return entities.AppState{Version: entities.StateVersion}
	}
	return cloneState(s.state)
}

// mutate applies fn to the state under the writer lock and persists the whole
// new state. The mutation survives in memory even if the persist fails.
func (s *StoreService) mutate(ctx context.Context, fn func(*entities.AppState) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready {
		return entities.ErrStoreNotReady
	}
	if err := fn(s.state); err != nil {
		return err
	}

	start := time.Now()
	err := s.repo.Save(ctx, s.state)
	s.logger.LogStatePersist("journal_state", float64(time.Since(start).Nanoseconds())/1e6, err)
	if err != nil {
		return fmt.Errorf("failed to persist state: %w", err)
	}
	return nil
}

// Apiary operations

// AddApiary appends a new apiary and makes it the current selection.
func (s *StoreService) AddApiary(ctx context.Context, req ports.CreateApiaryRequest) (*entities.Apiary, error) {
	apiary := entities.Apiary{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Address:     req.Address,
		Description: req.Description,
		CreatedAt:   s.now(),
	}

	err := s.mutate(ctx, func(st *entities.AppState) error {
		st.Apiaries = append(st.Apiaries, apiary)
		st.CurrentApiaryID = apiary.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.LogRecordMutation("apiary", "add", apiary.ID)
	return &apiary, nil
}

// UpdateApiary shallow-merges the given fields into the apiary.
func (s *StoreService) UpdateApiary(ctx context.Context, id string, req ports.UpdateApiaryRequest) (*entities.Apiary, error) {
	var updated entities.Apiary
	err := s.mutate(ctx, func(st *entities.AppState) error {
		apiary := st.FindApiary(id)
		if apiary == nil {
			return entities.ErrApiaryNotFound
		}
		if req.Name != nil {
			apiary.Name = *req.Name
		}
		if req.Latitude != nil {
			apiary.Latitude = *req.Latitude
		}
		if req.Longitude != nil {
			apiary.Longitude = *req.Longitude
		}
		if req.Address != nil {
			apiary.Address = req.Address
		}
		if req.Description != nil {
			apiary.Description = req.Description
		}
		updated = *apiary
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.LogRecordMutation("apiary", "update", id)
	return &updated, nil
}

// DeleteApiary removes the apiary, orphans every hive that referenced it, and
// clears the current-apiary selector when it pointed at the deleted apiary.
func (s *StoreService) DeleteApiary(ctx context.Context, id string) error {
	err := s.mutate(ctx, func(st *entities.AppState) error {
		idx := -1
		for i := range st.Apiaries {
			if st.Apiaries[i].ID == id {
				idx = i
				break
			}
		}
		if idx < 0 {
			return entities.ErrApiaryNotFound
		}
		st.Apiaries = append(st.Apiaries[:idx], st.Apiaries[idx+1:]...)

		for i := range st.Hives {
			if st.Hives[i].InApiary(id) {
				st.Hives[i].ApiaryID = nil
			}
		}
		if st.CurrentApiaryID == id {
			st.CurrentApiaryID = ""
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.LogRecordMutation("apiary", "delete", id)
	return nil
}

// SetCurrentApiary sets the selector. No existence check: the selector may
// reference an apiary the UI is about to create.
func (s *StoreService) SetCurrentApiary(ctx context.Context, apiaryID string) error {
	return s.mutate(ctx, func(st *entities.AppState) error {
		st.CurrentApiaryID = apiaryID
		return nil
	})
}

// CurrentApiary returns the selected apiary, or nil when the selector is
// unset or dangling.
func (s *StoreService) CurrentApiary() *entities.Apiary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == nil || s.state.CurrentApiaryID == "" {
		return nil
	}
	apiary := s.state.FindApiary(s.state.CurrentApiaryID)
	if apiary == nil {
		return nil
	}
	out := *apiary
	return &out
}

// Apiaries returns a copy of the apiary collection.
func (s *StoreService) Apiaries() []entities.Apiary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == nil {
		return nil
	}
	return append([]entities.Apiary(nil), s.state.Apiaries...)
}

// Hive operations

// AddHive appends a new hive. No referential check on ApiaryID: the store
// trusts well-formed input from the validated boundary.
func (s *StoreService) AddHive(ctx context.Context, req ports.CreateHiveRequest) (*entities.Hive, error) {
	hive := entities.Hive{
		ID:           uuid.NewString(),
		ApiaryID:     req.ApiaryID,
		Name:         req.Name,
		Type:         req.Type,
		FrameCount:   req.FrameCount,
		QueenStatus:  req.QueenStatus,
		QueenColor:   req.QueenColor,
		LayingStatus: req.LayingStatus,
		FoundedAt:    req.FoundedAt,
		CreatedAt:    s.now(),
	}

	err := s.mutate(ctx, func(st *entities.AppState) error {
		st.Hives = append(st.Hives, hive)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.LogRecordMutation("hive", "add", hive.ID)
	return &hive, nil
}

// UpdateHive shallow-merges the given fields into the hive.
func (s *StoreService) UpdateHive(ctx context.Context, id string, req ports.UpdateHiveRequest) (*entities.Hive, error) {
	var updated entities.Hive
	err := s.mutate(ctx, func(st *entities.AppState) error {
		hive := st.FindHive(id)
		if hive == nil {
			return entities.ErrHiveNotFound
		}
		if req.Name != nil {
			hive.Name = *req.Name
		}
		if req.ApiaryID != nil {
			hive.ApiaryID = req.ApiaryID
		}
		if req.Type != nil {
			hive.Type = *req.Type
		}
		if req.FrameCount != nil {
			hive.FrameCount = *req.FrameCount
		}
		if req.QueenStatus != nil {
			hive.QueenStatus = *req.QueenStatus
		}
		if req.QueenColor != nil {
			hive.QueenColor = *req.QueenColor
		}
		if req.LayingStatus != nil {
			hive.LayingStatus = *req.LayingStatus
		}
		if req.FoundedAt != nil {
			hive.FoundedAt = *req.FoundedAt
		}
		updated = *hive
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.LogRecordMutation("hive", "update", id)
	return &updated, nil
}

// DeleteHive soft-deletes the hive and cascades through task membership:
// the hive is removed from every task that references it, and a task whose
// membership would become empty is deleted outright.
func (s *StoreService) DeleteHive(ctx context.Context, id string) error {
	err := s.mutate(ctx, func(st *entities.AppState) error {
		hive := st.FindHive(id)
		if hive == nil {
			return entities.ErrHiveNotFound
		}
		deletedAt := s.now()
		hive.IsDeleted = true
		hive.DeletedAt = &deletedAt

		kept := st.Tasks[:0]
		for i := range st.Tasks {
			task := st.Tasks[i]
			if task.References(id) && task.RemoveHive(id) {
				continue
			}
			kept = append(kept, task)
		}
		st.Tasks = kept
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.LogRecordMutation("hive", "delete", id)
	return nil
}

// Hives returns a copy of the hive collection, soft-deleted included.
func (s *StoreService) Hives() []entities.Hive {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == nil {
		return nil
	}
	return append([]entities.Hive(nil), s.state.Hives...)
}

// Inspection operations

func (s *StoreService) AddInspection(ctx context.Context, req ports.CreateInspectionRequest) (*entities.Inspection, error) {
	inspection := entities.Inspection{
		ID:        uuid.NewString(),
		HiveID:    req.HiveID,
		Date:      req.Date,
		Notes:     req.Notes,
		CreatedAt: s.now(),
	}

	err := s.mutate(ctx, func(st *entities.AppState) error {
		st.Inspections = append(st.Inspections, inspection)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.LogRecordMutation("inspection", "add", inspection.ID)
	return &inspection, nil
}

func (s *StoreService) UpdateInspection(ctx context.Context, id string, req ports.UpdateInspectionRequest) (*entities.Inspection, error) {
	var updated entities.Inspection
	err := s.mutate(ctx, func(st *entities.AppState) error {
		for i := range st.Inspections {
			if st.Inspections[i].ID != id {
				continue
			}
			if req.HiveID != nil {
				st.Inspections[i].HiveID = *req.HiveID
			}
			if req.Date != nil {
				st.Inspections[i].Date = *req.Date
			}
			if req.Notes != nil {
				st.Inspections[i].Notes = *req.Notes
			}
			updated = st.Inspections[i]
			return nil
		}
		return entities.ErrInspectionNotFound
	})
	if err != nil {
		return nil, err
	}

	s.logger.LogRecordMutation("inspection", "update", id)
	return &updated, nil
}

func (s *StoreService) DeleteInspection(ctx context.Context, id string) error {
	err := s.mutate(ctx, func(st *entities.AppState) error {
		for i := range st.Inspections {
			if st.Inspections[i].ID == id {
				st.Inspections = append(st.Inspections[:i], st.Inspections[i+1:]...)
				return nil
			}
		}
		return entities.ErrInspectionNotFound
	})
	if err != nil {
		return err
	}

	s.logger.LogRecordMutation("inspection", "delete", id)
	return nil
}

// Inspections returns a copy of the inspection collection.
func (s *StoreService) Inspections() []entities.Inspection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == nil {
		return nil
	}
	return append([]entities.Inspection(nil), s.state.Inspections...)
}

// Task operations

// AddTask appends a new task. Membership must be non-empty; the validated
// boundary enforces this, the store re-checks the invariant.
func (s *StoreService) AddTask(ctx context.Context, req ports.CreateTaskRequest) (*entities.Task, error) {
	if len(req.HiveIDs) == 0 {
		return nil, entities.ErrEmptyTaskHives
	}

	task := entities.Task{
		ID:          uuid.NewString(),
		HiveIDs:     append([]string(nil), req.HiveIDs...),
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		CreatedAt:   s.now(),
	}

	err := s.mutate(ctx, func(st *entities.AppState) error {
		st.Tasks = append(st.Tasks, task)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.LogRecordMutation("task", "add", task.ID)
	return &task, nil
}

func (s *StoreService) UpdateTask(ctx context.Context, id string, req ports.UpdateTaskRequest) (*entities.Task, error) {
	if req.HiveIDs != nil && len(req.HiveIDs) == 0 {
		return nil, entities.ErrEmptyTaskHives
	}

	var updated entities.Task
	err := s.mutate(ctx, func(st *entities.AppState) error {
		for i := range st.Tasks {
			if st.Tasks[i].ID != id {
				continue
			}
			if req.HiveIDs != nil {
				st.Tasks[i].HiveIDs = append([]string(nil), req.HiveIDs...)
			}
			if req.Title != nil {
				st.Tasks[i].Title = *req.Title
			}
			if req.Description != nil {
				st.Tasks[i].Description = req.Description
			}
			if req.DueDate != nil {
				st.Tasks[i].DueDate = *req.DueDate
			}
			if req.Completed != nil {
				st.Tasks[i].Completed = *req.Completed
			}
			updated = st.Tasks[i]
			return nil
		}
		return entities.ErrTaskNotFound
	})
	if err != nil {
		return nil, err
	}

	s.logger.LogRecordMutation("task", "update", id)
	return &updated, nil
}

func (s *StoreService) DeleteTask(ctx context.Context, id string) error {
	err := s.mutate(ctx, func(st *entities.AppState) error {
		for i := range st.Tasks {
			if st.Tasks[i].ID == id {
				st.Tasks = append(st.Tasks[:i], st.Tasks[i+1:]...)
				return nil
			}
		}
		return entities.ErrTaskNotFound
	})
	if err != nil {
		return err
	}

	s.logger.LogRecordMutation("task", "delete", id)
	return nil
}

// Tasks returns a copy of the task collection.
func (s *StoreService) Tasks() []entities.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == nil {
		return nil
	}
	out := make([]entities.Task, len(s.state.Tasks))
	for i, t := range s.state.Tasks {
		t.HiveIDs = append([]string(nil), t.HiveIDs...)
		out[i] = t
	}
	return out
}

// Yield operations

func (s *StoreService) AddYield(ctx context.Context, req ports.CreateYieldRequest) (*entities.Yield, error) {
	yield := entities.Yield{
		ID:        uuid.NewString(),
		HiveID:    req.HiveID,
		Type:      req.Type,
		Amount:    req.Amount,
		Unit:      req.Unit,
		Date:      req.Date,
		Notes:     req.Notes,
		CreatedAt: s.now(),
	}

	err := s.mutate(ctx, func(st *entities.AppState) error {
		st.Yields = append(st.Yields, yield)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.LogRecordMutation("yield", "add", yield.ID)
	return &yield, nil
}

func (s *StoreService) UpdateYield(ctx context.Context, id string, req ports.UpdateYieldRequest) (*entities.Yield, error) {
	var updated entities.Yield
	err := s.mutate(ctx, func(st *entities.AppState) error {
		for i := range st.Yields {
			if st.Yields[i].ID != id {
				continue
			}
			if req.Type != nil {
				st.Yields[i].Type = *req.Type
			}
			if req.Amount != nil {
				st.Yields[i].Amount = *req.Amount
			}
			if req.Unit != nil {
				st.Yields[i].Unit = *req.Unit
			}
			if req.Date != nil {
				st.Yields[i].Date = *req.Date
			}
			if req.Notes != nil {
				st.Yields[i].Notes = req.Notes
			}
			updated = st.Yields[i]
			return nil
		}
		return entities.ErrYieldNotFound
	})
	if err != nil {
		return nil, err
	}

	s.logger.LogRecordMutation("yield", "update", id)
	return &updated, nil
}

func (s *StoreService) DeleteYield(ctx context.Context, id string) error {
	err := s.mutate(ctx, func(st *entities.AppState) error {
		for i := range st.Yields {
			if st.Yields[i].ID == id {
				st.Yields = append(st.Yields[:i], st.Yields[i+1:]...)
				return nil
			}
		}
		return entities.ErrYieldNotFound
	})
	if err != nil {
		return err
	}

	s.logger.LogRecordMutation("yield", "delete", id)
	return nil
}

// Yields returns a copy of the yield collection.
func (s *StoreService) Yields() []entities.Yield {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == nil {
		return nil
	}
	return append([]entities.Yield(nil), s.state.Yields...)
}

// Derived queries. All are recomputed from the source collections on every
// call; nothing here touches the cached stats snapshots.

// CurrentApiaryHives returns the active hives assigned to the current apiary.
func (s *StoreService) CurrentApiaryHives() []entities.Hive {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentApiaryHivesLocked()
}

func (s *StoreService) currentApiaryHivesLocked() []entities.Hive {
	if s.state == nil || s.state.CurrentApiaryID == "" {
		return nil
	}
	var out []entities.Hive
	for _, h := range s.state.Hives {
		if h.Active() && h.InApiary(s.state.CurrentApiaryID) {
			out = append(out, h)
		}
	}
	return out
}

// currentHiveIDsLocked returns the ID set of active hives in the current apiary.
func (s *StoreService) currentHiveIDsLocked() map[string]bool {
	ids := make(map[string]bool)
	for _, h := range s.currentApiaryHivesLocked() {
		ids[h.ID] = true
	}
	return ids
}

// ActiveHiveCount returns the number of active hives in the current apiary.
func (s *StoreService) ActiveHiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.currentApiaryHivesLocked())
}

// ThisMonthInspections returns inspections from the current calendar month for
// active hives in the current apiary.
func (s *StoreService) ThisMonthInspections() []entities.Inspection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == nil {
		return nil
	}

	now := s.now()
	hiveIDs := s.currentHiveIDsLocked()
	var out []entities.Inspection
	for _, in := range s.state.Inspections {
		if !hiveIDs[in.HiveID] {
			continue
		}
		if in.Date.Year() == now.Year() && in.Date.Month() == now.Month() {
			out = append(out, in)
		}
	}
	return out
}

// ThisYearYield sums yield amounts of the current calendar year for active
// hives in the current apiary, across all yield types.
func (s *StoreService) ThisYearYield() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == nil {
		return 0
	}

	year := s.now().Year()
	hiveIDs := s.currentHiveIDsLocked()
	var total float64
	for _, y := range s.state.Yields {
		if hiveIDs[y.HiveID] && y.Date.Year() == year {
			total += y.Amount
		}
	}
	return total
}

// PendingTasks returns incomplete tasks that are not yet overdue and reference
// at least one active hive in the current apiary.
func (s *StoreService) PendingTasks() []entities.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == nil {
		return nil
	}

	now := s.now()
	hiveIDs := s.currentHiveIDsLocked()
	var out []entities.Task
	for _, t := range s.state.Tasks {
		if !t.Pending(now) {
			continue
		}
		for _, id := range t.HiveIDs {
			if hiveIDs[id] {
				out = append(out, t)
				break
			}
		}
	}
	return out
}

// HiveCountByYear returns the number of hives the current apiary had during
// the given year. For the current year this is the active hive count; for
// past years a soft-deleted hive still counts if it was deleted in that year
// or later.
func (s *StoreService) HiveCountByYear(year int) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == nil || s.state.CurrentApiaryID == "" {
		return 0
	}

	if year == s.now().Year() {
		return len(s.currentApiaryHivesLocked())
	}

	count := 0
	for _, h := range s.state.Hives {
		if h.InApiary(s.state.CurrentApiaryID) && h.ExistedDuring(year) {
			count++
		}
	}
	return count
}

// Trial and registration

// RemainingTrialDays returns the days left in the trial window, floored at
// zero. The second result is false once registered or when no trial has
// started, meaning no countdown applies.
func (s *StoreService) RemainingTrialDays() (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == nil || s.state.IsRegistered || s.state.TrialStartDate == nil {
		return 0, false
	}

	elapsed := int(s.now().Sub(*s.state.TrialStartDate).Hours() / 24)
	remaining := s.trialDays - elapsed
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true
}

// Register flips the one-way registration flag.
func (s *StoreService) Register(ctx context.Context) error {
	err := s.mutate(ctx, func(st *entities.AppState) error {
		st.IsRegistered = true
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Registration recorded")
	return nil
}

// IsRegistered reports the registration flag.
func (s *StoreService) IsRegistered() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state != nil && s.state.IsRegistered
}

// Dashboard assembles the home screen overview.
func (s *StoreService) Dashboard() ports.Dashboard {
	dash := ports.Dashboard{
		CurrentApiary:        s.CurrentApiary(),
		ActiveHiveCount:      s.ActiveHiveCount(),
		ThisMonthInspections: s.ThisMonthInspections(),
		ThisYearYield:        s.ThisYearYield(),
		PendingTasks:         s.PendingTasks(),
		IsRegistered:         s.IsRegistered(),
	}
	if remaining, ok := s.RemainingTrialDays(); ok {
		dash.RemainingTrialDays = &remaining
	}
	return dash
}

// cloneState deep-copies the aggregate state.
func cloneState(src *entities.AppState) entities.AppState {
	out := *src
	out.Apiaries = append([]entities.Apiary(nil), src.Apiaries...)
	out.Hives = append([]entities.Hive(nil), src.Hives...)
	out.Inspections = append([]entities.Inspection(nil), src.Inspections...)
	out.Yields = append([]entities.Yield(nil), src.Yields...)
	out.MonthlyStats = append([]entities.MonthlyStats(nil), src.MonthlyStats...)

	out.Tasks = make([]entities.Task, len(src.Tasks))
	for i, t := range src.Tasks {
		t.HiveIDs = append([]string(nil), t.HiveIDs...)
		out.Tasks[i] = t
	}

	out.YearlyStats = make([]entities.YearlyStats, len(src.YearlyStats))
	for i, ys := range src.YearlyStats {
		ys.Months = append([]entities.MonthlyStats(nil), ys.Months...)
		out.YearlyStats[i] = ys
	}
	return out
}
