package services

import (
	"context"
	"testing"
	"time"

	"github.com/hivekeeper/core/internal/domain/entities"
	"github.com/hivekeeper/core/internal/infrastructure/logger"
	"github.com/hivekeeper/core/internal/ports"
)

// newTestStats builds a stats service over a store pre-populated with one
// apiary, one hive, two inspections and one yield in the current month.
func newTestStats(t *testing.T, clk *fakeClock) (*StatsService, *StoreService) {
	t.Helper()

	store, _ := newTestStore(t, clk)
	stats := NewStatsService(store, logger.NewNop())

	apiary := addApiary(t, store, "Stats Yard")
	hive := addHive(t, store, "Stats Hive", &apiary.ID)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := store.AddInspection(ctx, ports.CreateInspectionRequest{HiveID: hive.ID, Date: clk.now}); err != nil {
			t.Fatalf("add inspection: %v", err)
		}
	}
	if _, err := store.AddYield(ctx, ports.CreateYieldRequest{
		HiveID: hive.ID, Type: entities.YieldTypeHoney, Amount: 3.5, Unit: "kg", Date: clk.now,
	}); err != nil {
		t.Fatalf("add yield: %v", err)
	}
	return stats, store
}

func TestCalculateMonthlyStats(t *testing.T) {
	clk := &fakeClock{now: testTime}
	stats, _ := newTestStats(t, clk)

	got := stats.CalculateMonthlyStats(testTime.Year(), int(testTime.Month()))
	if got.InspectionCount != 2 {
		t.Errorf("inspection count = %d, want 2", got.InspectionCount)
	}
	if got.YieldAmount != 3.5 {
		t.Errorf("yield amount = %v, want 3.5", got.YieldAmount)
	}

	// An empty period computes to zeros.
	empty := stats.CalculateMonthlyStats(testTime.Year()-1, 1)
	if empty.InspectionCount != 0 || empty.YieldAmount != 0 {
		t.Errorf("empty period = %+v, want zeros", empty)
	}
}

func TestUpdateMonthlyStatsUpsertsOneSnapshot(t *testing.T) {
	clk := &fakeClock{now: testTime}
	stats, store := newTestStats(t, clk)
	ctx := context.Background()

	first, err := stats.UpdateMonthlyStats(ctx)
	if err != nil {
		t.Fatalf("first update: %v", err)
	}
	if first.InspectionCount != 2 || first.YieldAmount != 3.5 {
		t.Errorf("first snapshot = %+v", first)
	}

	// Add another record, update again: the snapshot is replaced, not duplicated.
	hives := store.CurrentApiaryHives()
	if _, err := store.AddInspection(ctx, ports.CreateInspectionRequest{HiveID: hives[0].ID, Date: clk.now}); err != nil {
		t.Fatalf("add inspection: %v", err)
	}
	second, err := stats.UpdateMonthlyStats(ctx)
	if err != nil {
		t.Fatalf("second update: %v", err)
	}
	if second.InspectionCount != 3 {
		t.Errorf("second snapshot count = %d, want 3", second.InspectionCount)
	}

	monthly, _ := stats.History()
	if len(monthly) != 1 {
		t.Fatalf("stored monthly snapshots = %d, want 1", len(monthly))
	}
	if monthly[0].InspectionCount != 3 {
		t.Errorf("stored snapshot = %+v, want the refreshed one", monthly[0])
	}
}

func TestUpdateYearlyStatsBreakdown(t *testing.T) {
	clk := &fakeClock{now: testTime}
	stats, store := newTestStats(t, clk)
	ctx := context.Background()

	// One extra inspection in another month of the same year.
	hives := store.CurrentApiaryHives()
	if _, err := store.AddInspection(ctx, ports.CreateInspectionRequest{
		HiveID: hives[0].ID, Date: time.Date(testTime.Year(), 3, 5, 0, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatalf("add inspection: %v", err)
	}

	yearly, err := stats.UpdateYearlyStats(ctx)
	if err != nil {
		t.Fatalf("update yearly: %v", err)
	}

	if yearly.Year != testTime.Year() {
		t.Errorf("year = %d, want %d", yearly.Year, testTime.Year())
	}
	if len(yearly.Months) != 12 {
		t.Fatalf("months = %d, want 12", len(yearly.Months))
	}
	if yearly.InspectionCount != 3 {
		t.Errorf("yearly inspections = %d, want 3", yearly.InspectionCount)
	}
	if yearly.YieldAmount != 3.5 {
		t.Errorf("yearly yield = %v, want 3.5", yearly.YieldAmount)
	}

	var fromMonths int
	for _, m := range yearly.Months {
		fromMonths += m.InspectionCount
	}
	if fromMonths != yearly.InspectionCount {
		t.Error("yearly totals must equal the sum of the monthly breakdown")
	}
	if yearly.Months[2].InspectionCount != 1 {
		t.Errorf("march breakdown = %+v, want 1 inspection", yearly.Months[2])
	}
	if yearly.Months[int(testTime.Month())-1].InspectionCount != 2 {
		t.Error("current month breakdown should hold the two seeded inspections")
	}
}

func TestResetLeavesRecordsIntact(t *testing.T) {
	clk := &fakeClock{now: testTime}
	stats, store := newTestStats(t, clk)
	ctx := context.Background()

	if _, err := stats.UpdateMonthlyStats(ctx); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := stats.ResetMonthlyStats(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}

	// The stored snapshot is zeroed...
	snapshot, ok := stats.MonthlyStatsFor(testTime.Year(), int(testTime.Month()))
	if !ok {
		t.Fatal("reset should store a zeroed snapshot, not remove it")
	}
	if snapshot.InspectionCount != 0 || snapshot.YieldAmount != 0 {
		t.Errorf("snapshot after reset = %+v, want zeros", snapshot)
	}

	// ...but the source records and live queries are untouched.
	if len(store.Inspections()) != 2 {
		t.Error("reset must not delete inspection records")
	}
	live := stats.CalculateMonthlyStats(testTime.Year(), int(testTime.Month()))
	if live.InspectionCount != 2 || live.YieldAmount != 3.5 {
		t.Errorf("live calculation after reset = %+v, want the real numbers", live)
	}
}

func TestResetYearlyStats(t *testing.T) {
	clk := &fakeClock{now: testTime}
	stats, _ := newTestStats(t, clk)
	ctx := context.Background()

	if _, err := stats.UpdateYearlyStats(ctx); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := stats.ResetYearlyStats(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}

	yearly, ok := stats.YearlyStatsFor(testTime.Year())
	if !ok {
		t.Fatal("reset should keep a zeroed yearly snapshot")
	}
	if yearly.InspectionCount != 0 || yearly.YieldAmount != 0 {
		t.Errorf("yearly snapshot after reset = %+v, want zeros", yearly)
	}
	if len(yearly.Months) != 12 {
		t.Fatalf("reset breakdown months = %d, want 12", len(yearly.Months))
	}
	for i, m := range yearly.Months {
		if m.InspectionCount != 0 || m.YieldAmount != 0 {
			t.Errorf("month %d after reset = %+v, want zeros", i+1, m)
		}
	}
}

func TestStatsSnapshotsPersist(t *testing.T) {
	clk := &fakeClock{now: testTime}
	stats, store := newTestStats(t, clk)
	ctx := context.Background()

	if _, err := stats.UpdateMonthlyStats(ctx); err != nil {
		t.Fatalf("update: %v", err)
	}

	snap := store.Snapshot()
	if len(snap.MonthlyStats) != 1 {
		t.Fatalf("persisted monthly snapshots = %d, want 1", len(snap.MonthlyStats))
	}
	if snap.MonthlyStats[0].Year != testTime.Year() || snap.MonthlyStats[0].Month != int(testTime.Month()) {
		t.Errorf("persisted snapshot period = %+v", snap.MonthlyStats[0])
	}
}
