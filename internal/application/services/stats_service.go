package services

import (
	"context"

	"github.com/hivekeeper/core/internal/domain/entities"
	"github.com/hivekeeper/core/internal/infrastructure/logger"
)

// StatsService maintains the cached monthly/yearly snapshots. Calculations
// always recompute from the record collections; the stored snapshots are only
// touched by the explicit update/reset operations and can therefore drift from
// the live derived queries until updated again.
type StatsService struct {
	store  *StoreService
	logger *logger.Logger
}

// NewStatsService creates a new statistics service over the record store.
func NewStatsService(store *StoreService, appLogger *logger.Logger) *StatsService {
	return &StatsService{
		store:  store,
		logger: appLogger,
	}
}

// CalculateMonthlyStats recomputes the stats for the given period from the
// source records: inspection count and yield sum for active hives in the
// current apiary. It never reads or writes the cached snapshots.
func (s *StatsService) CalculateMonthlyStats(year, month int) entities.MonthlyStats {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	return s.calculateMonthlyLocked(year, month)
}

func (s *StatsService) calculateMonthlyLocked(year, month int) entities.MonthlyStats {
	stats := entities.MonthlyStats{Year: year, Month: month}
	state := s.store.state
	if state == nil {
		return stats
	}

	hiveIDs := s.store.currentHiveIDsLocked()
	for _, in := range state.Inspections {
		if hiveIDs[in.HiveID] && in.Date.Year() == year && int(in.Date.Month()) == month {
			stats.InspectionCount++
		}
	}
	for _, y := range state.Yields {
		if hiveIDs[y.HiveID] && y.Date.Year() == year && int(y.Date.Month()) == month {
			stats.YieldAmount += y.Amount
		}
	}
	return stats
}

func (s *StatsService) calculateYearlyLocked(year int) entities.YearlyStats {
	stats := entities.YearlyStats{
		Year:   year,
		Months: make([]entities.MonthlyStats, 12),
	}
	for month := 1; month <= 12; month++ {
		m := s.calculateMonthlyLocked(year, month)
		stats.Months[month-1] = m
		stats.InspectionCount += m.InspectionCount
		stats.YieldAmount += m.YieldAmount
	}
	return stats
}

// UpdateMonthlyStats recomputes the current month's snapshot and upserts it
// into the cached array, then persists.
func (s *StatsService) UpdateMonthlyStats(ctx context.Context) (entities.MonthlyStats, error) {
	now := s.store.now()
	var stats entities.MonthlyStats

	err := s.store.mutate(ctx, func(st *entities.AppState) error {
		stats = s.calculateMonthlyLocked(now.Year(), int(now.Month()))
		st.MonthlyStats = upsertMonthly(st.MonthlyStats, stats)
		return nil
	})
	if err != nil {
		return entities.MonthlyStats{}, err
	}

	s.logger.Info("Monthly stats updated", "year", stats.Year, "month", stats.Month)
	return stats, nil
}

// UpdateYearlyStats recomputes the current year's snapshot, including the
// 12-month breakdown, and upserts it into the cached array, then persists.
func (s *StatsService) UpdateYearlyStats(ctx context.Context) (entities.YearlyStats, error) {
	now := s.store.now()
	var stats entities.YearlyStats

	err := s.store.mutate(ctx, func(st *entities.AppState) error {
		stats = s.calculateYearlyLocked(now.Year())
		st.YearlyStats = upsertYearly(st.YearlyStats, stats)
		return nil
	})
	if err != nil {
		return entities.YearlyStats{}, err
	}

	s.logger.Info("Yearly stats updated", "year", stats.Year)
	return stats, nil
}

// ResetMonthlyStats zeroes the current month's cached snapshot. The underlying
// inspection and yield records are untouched, so live derived queries will
// disagree with the snapshot until the next update.
func (s *StatsService) ResetMonthlyStats(ctx context.Context) error {
	now := s.store.now()
	err := s.store.mutate(ctx, func(st *entities.AppState) error {
		zero := entities.MonthlyStats{Year: now.Year(), Month: int(now.Month())}
		st.MonthlyStats = upsertMonthly(st.MonthlyStats, zero)
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Monthly stats reset", "year", now.Year(), "month", int(now.Month()))
	return nil
}

// ResetYearlyStats zeroes the current year's cached snapshot, breakdown included.
func (s *StatsService) ResetYearlyStats(ctx context.Context) error {
	now := s.store.now()
	err := s.store.mutate(ctx, func(st *entities.AppState) error {
		zero := entities.YearlyStats{
			Year:   now.Year(),
			Months: make([]entities.MonthlyStats, 12),
		}
		for month := 1; month <= 12; month++ {
			zero.Months[month-1] = entities.MonthlyStats{Year: now.Year(), Month: month}
		}
		st.YearlyStats = upsertYearly(st.YearlyStats, zero)
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Yearly stats reset", "year", now.Year())
	return nil
}

// MonthlyStatsFor looks up a cached monthly snapshot by period.
func (s *StatsService) MonthlyStatsFor(year, month int) (entities.MonthlyStats, bool) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	if s.store.state == nil {
		return entities.MonthlyStats{}, false
	}
	for _, m := range s.store.state.MonthlyStats {
		if m.Year == year && m.Month == month {
			return m, true
		}
	}
	return entities.MonthlyStats{}, false
}

// YearlyStatsFor looks up a cached yearly snapshot by year.
func (s *StatsService) YearlyStatsFor(year int) (entities.YearlyStats, bool) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	if s.store.state == nil {
		return entities.YearlyStats{}, false
	}
	for _, y := range s.store.state.YearlyStats {
		if y.Year == year {
			out := y
			out.Months = append([]entities.MonthlyStats(nil), y.Months...)
			return out, true
		}
	}
	return entities.YearlyStats{}, false
}

// History returns copies of both cached snapshot arrays.
func (s *StatsService) History() ([]entities.MonthlyStats, []entities.YearlyStats) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	if s.store.state == nil {
		return nil, nil
	}
	monthly := append([]entities.MonthlyStats(nil), s.store.state.MonthlyStats...)
	yearly := make([]entities.YearlyStats, len(s.store.state.YearlyStats))
	for i, y := range s.store.state.YearlyStats {
		y.Months = append([]entities.MonthlyStats(nil), y.Months...)
		yearly[i] = y
	}
	return monthly, yearly
}

// upsertMonthly replaces the snapshot with the same (year, month) key, or
// appends when none exists.
func upsertMonthly(list []entities.MonthlyStats, stats entities.MonthlyStats) []entities.MonthlyStats {
	for i := range list {
		if list[i].Year == stats.Year && list[i].Month == stats.Month {
			list[i] = stats
			return list
		}
	}
	return append(list, stats)
}

// upsertYearly replaces the snapshot with the same year key, or appends.
func upsertYearly(list []entities.YearlyStats, stats entities.YearlyStats) []entities.YearlyStats {
	for i := range list {
		if list[i].Year == stats.Year {
			list[i] = stats
			return list
		}
	}
	return append(list, stats)
}
