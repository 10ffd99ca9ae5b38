package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hivekeeper/core/internal/adapters/repository"
	"github.com/hivekeeper/core/internal/domain/entities"
	"github.com/hivekeeper/core/internal/infrastructure/config"
	"github.com/hivekeeper/core/internal/infrastructure/logger"
	"github.com/hivekeeper/core/internal/ports"
)

// fakeClock lets tests advance the store's wall clock.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

var testTime = time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC)

// newTestStore builds a store over in-memory storage, pre-loaded with an
// empty current-version state.
func newTestStore(t *testing.T, clk *fakeClock) (*StoreService, ports.StateRepository) {
	t.Helper()

	repo := repository.NewStateRepository(repository.NewMemoryKV(), "journal_state")
	trialStart := clk.now
	state := &entities.AppState{Version: entities.StateVersion, TrialStartDate: &trialStart}
	if err := repo.Save(context.Background(), state); err != nil {
		t.Fatalf("seed state: %v", err)
	}

	store := NewStoreService(repo, config.TrialConfig{DurationDays: 10}, logger.NewNop(), WithClock(clk.Now))
	if err := store.Load(context.Background()); err != nil {
		t.Fatalf("load state: %v", err)
	}
	return store, repo
}

// addApiary and addHive are shorthand for tests that need records in place.
func addApiary(t *testing.T, s *StoreService, name string) *entities.Apiary {
	t.Helper()
	apiary, err := s.AddApiary(context.Background(), ports.CreateApiaryRequest{Name: name, Latitude: 49.2, Longitude: 16.6})
	if err != nil {
		t.Fatalf("add apiary: %v", err)
	}
	return apiary
}

func addHive(t *testing.T, s *StoreService, name string, apiaryID *string) *entities.Hive {
	t.Helper()
	hive, err := s.AddHive(context.Background(), ports.CreateHiveRequest{
		Name:         name,
		ApiaryID:     apiaryID,
		Type:         entities.HiveTypeEstablished,
		FrameCount:   10,
		QueenStatus:  entities.QueenStatusNew,
		LayingStatus: entities.LayingStatusLaying,
		FoundedAt:    testTime,
	})
	if err != nil {
		t.Fatalf("add hive: %v", err)
	}
	return hive
}

func TestLoadSeedsFirstRun(t *testing.T) {
	clk := &fakeClock{now: testTime}
	repo := repository.NewStateRepository(repository.NewMemoryKV(), "journal_state")
	store := NewStoreService(repo, config.TrialConfig{DurationDays: 10}, logger.NewNop(), WithClock(clk.Now))

	if store.Ready() {
		t.Fatal("store should not be ready before Load")
	}
	if err := store.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if !store.Ready() {
		t.Fatal("store should be ready after Load")
	}

	snap := store.Snapshot()
	if len(snap.Apiaries) != 1 {
		t.Fatalf("seeded apiaries = %d, want 1", len(snap.Apiaries))
	}
	if len(snap.Hives) != 2 {
		t.Errorf("seeded hives = %d, want 2", len(snap.Hives))
	}
	if snap.CurrentApiaryID != snap.Apiaries[0].ID {
		t.Error("seed should select the default apiary")
	}
	if snap.TrialStartDate == nil || !snap.TrialStartDate.Equal(testTime) {
		t.Error("seed should start the trial clock")
	}

	// The seed state must be persisted, not just held in memory.
	persisted, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("reload persisted state: %v", err)
	}
	if len(persisted.Apiaries) != 1 || persisted.CurrentApiaryID != snap.CurrentApiaryID {
		t.Error("seed state was not written through to storage")
	}
}

func TestLoadMigratesLegacyState(t *testing.T) {
	clk := &fakeClock{now: testTime}
	repo := repository.NewStateRepository(repository.NewMemoryKV(), "journal_state")
	legacy := &entities.AppState{
		Tasks: []entities.Task{
			{ID: "t1", LegacyHiveID: "h1", Title: "feed", DueDate: testTime},
			{ID: "t2", Title: "no membership", DueDate: testTime},
		},
	}
	if err := repo.Save(context.Background(), legacy); err != nil {
		t.Fatalf("save legacy state: %v", err)
	}

	store := NewStoreService(repo, config.TrialConfig{DurationDays: 10}, logger.NewNop(), WithClock(clk.Now))
	if err := store.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	tasks := store.Tasks()
	if len(tasks) != 1 {
		t.Fatalf("tasks after migration = %d, want 1", len(tasks))
	}
	if len(tasks[0].HiveIDs) != 1 || tasks[0].HiveIDs[0] != "h1" {
		t.Errorf("legacy membership not migrated: %+v", tasks[0])
	}

	// Migration result must be re-persisted.
	persisted, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("reload persisted state: %v", err)
	}
	if persisted.Version != entities.StateVersion || len(persisted.Tasks) != 1 {
		t.Error("migrated state was not written back to storage")
	}
}

func TestMutationBeforeLoad(t *testing.T) {
	repo := repository.NewStateRepository(repository.NewMemoryKV(), "journal_state")
	store := NewStoreService(repo, config.TrialConfig{DurationDays: 10}, logger.NewNop())

	_, err := store.AddApiary(context.Background(), ports.CreateApiaryRequest{Name: "Yard"})
	if !errors.Is(err, entities.ErrStoreNotReady) {
		t.Fatalf("err = %v, want ErrStoreNotReady", err)
	}
}

func TestAddApiarySelectsIt(t *testing.T) {
	clk := &fakeClock{now: testTime}
	store, _ := newTestStore(t, clk)

	first := addApiary(t, store, "Home Yard")
	if cur := store.CurrentApiary(); cur == nil || cur.ID != first.ID {
		t.Fatal("first apiary should become current")
	}

	second := addApiary(t, store, "Out Yard")
	if cur := store.CurrentApiary(); cur == nil || cur.ID != second.ID {
		t.Fatal("newly added apiary should take over the selection")
	}
}

func TestDeleteApiaryOrphansHives(t *testing.T) {
	clk := &fakeClock{now: testTime}
	store, _ := newTestStore(t, clk)

	apiary := addApiary(t, store, "Home Yard")
	hive := addHive(t, store, "Hive 1", &apiary.ID)

	if err := store.DeleteApiary(context.Background(), apiary.ID); err != nil {
		t.Fatalf("delete apiary: %v", err)
	}

	if len(store.Apiaries()) != 0 {
		t.Error("apiary should be removed")
	}
	hives := store.Hives()
	if len(hives) != 1 || hives[0].ID != hive.ID {
		t.Fatal("hive should survive its apiary")
	}
	if hives[0].ApiaryID != nil {
		t.Error("surviving hive should lose its apiary assignment")
	}
	if store.CurrentApiary() != nil {
		t.Error("selection pointing at the deleted apiary should be cleared")
	}
}

func TestSetCurrentApiarySkipsExistenceCheck(t *testing.T) {
	clk := &fakeClock{now: testTime}
	store, _ := newTestStore(t, clk)

	if err := store.SetCurrentApiary(context.Background(), "not-yet-created"); err != nil {
		t.Fatalf("set current apiary: %v", err)
	}
	// Dangling selector resolves to no apiary rather than an error.
	if store.CurrentApiary() != nil {
		t.Error("dangling selection should resolve to nil")
	}
}

func TestDeleteHiveSoftDeletesAndCascades(t *testing.T) {
	clk := &fakeClock{now: testTime}
	store, _ := newTestStore(t, clk)

	apiary := addApiary(t, store, "Home Yard")
	hiveA := addHive(t, store, "Hive A", &apiary.ID)
	hiveB := addHive(t, store, "Hive B", &apiary.ID)

	shared, err := store.AddTask(context.Background(), ports.CreateTaskRequest{
		HiveIDs: []string{hiveA.ID, hiveB.ID},
		Title:   "Treat for varroa",
		DueDate: testTime.AddDate(0, 0, 7),
	})
	if err != nil {
		t.Fatalf("add shared task: %v", err)
	}
	solo, err := store.AddTask(context.Background(), ports.CreateTaskRequest{
		HiveIDs: []string{hiveA.ID},
		Title:   "Replace frames",
		DueDate: testTime.AddDate(0, 0, 7),
	})
	if err != nil {
		t.Fatalf("add solo task: %v", err)
	}

	if err := store.DeleteHive(context.Background(), hiveA.ID); err != nil {
		t.Fatalf("delete hive: %v", err)
	}

	// The hive record survives with the deletion markers set.
	var deleted *entities.Hive
	for _, h := range store.Hives() {
		if h.ID == hiveA.ID {
			hc := h
			deleted = &hc
		}
	}
	if deleted == nil {
		t.Fatal("soft-deleted hive should still be listed")
	}
	if !deleted.IsDeleted || deleted.DeletedAt == nil || !deleted.DeletedAt.Equal(testTime) {
		t.Errorf("deletion markers not set: %+v", deleted)
	}

	tasks := store.Tasks()
	if len(tasks) != 1 {
		t.Fatalf("tasks after cascade = %d, want 1", len(tasks))
	}
	if tasks[0].ID != shared.ID {
		t.Errorf("surviving task = %s, want the shared one %s", tasks[0].ID, shared.ID)
	}
	if len(tasks[0].HiveIDs) != 1 || tasks[0].HiveIDs[0] != hiveB.ID {
		t.Errorf("shared task membership = %v, want only %s", tasks[0].HiveIDs, hiveB.ID)
	}
	for _, task := range tasks {
		if task.ID == solo.ID {
			t.Error("task whose membership emptied should be deleted")
		}
	}
}

func TestTaskMembershipNeverEmpty(t *testing.T) {
	clk := &fakeClock{now: testTime}
	store, _ := newTestStore(t, clk)

	_, err := store.AddTask(context.Background(), ports.CreateTaskRequest{Title: "orphan", DueDate: testTime})
	if !errors.Is(err, entities.ErrEmptyTaskHives) {
		t.Fatalf("add err = %v, want ErrEmptyTaskHives", err)
	}

	apiary := addApiary(t, store, "Yard")
	hive := addHive(t, store, "Hive", &apiary.ID)
	task, err := store.AddTask(context.Background(), ports.CreateTaskRequest{
		HiveIDs: []string{hive.ID},
		Title:   "Check brood",
		DueDate: testTime.AddDate(0, 0, 1),
	})
	if err != nil {
		t.Fatalf("add task: %v", err)
	}

	_, err = store.UpdateTask(context.Background(), task.ID, ports.UpdateTaskRequest{HiveIDs: []string{}})
	if !errors.Is(err, entities.ErrEmptyTaskHives) {
		t.Fatalf("update err = %v, want ErrEmptyTaskHives", err)
	}
}

func TestUnknownIDMutationsLeaveStateUntouched(t *testing.T) {
	clk := &fakeClock{now: testTime}
	store, _ := newTestStore(t, clk)

	apiary := addApiary(t, store, "Yard")
	addHive(t, store, "Hive", &apiary.ID)
	before := store.Snapshot()

	name := "renamed"
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"update apiary", func() error { _, err := store.UpdateApiary(context.Background(), "missing", ports.UpdateApiaryRequest{Name: &name}); return err }(), entities.ErrApiaryNotFound},
		{"delete apiary", store.DeleteApiary(context.Background(), "missing"), entities.ErrApiaryNotFound},
		{"update hive", func() error { _, err := store.UpdateHive(context.Background(), "missing", ports.UpdateHiveRequest{Name: &name}); return err }(), entities.ErrHiveNotFound},
		{"delete hive", store.DeleteHive(context.Background(), "missing"), entities.ErrHiveNotFound},
		{"delete inspection", store.DeleteInspection(context.Background(), "missing"), entities.ErrInspectionNotFound},
		{"delete task", store.DeleteTask(context.Background(), "missing"), entities.ErrTaskNotFound},
		{"delete yield", store.DeleteYield(context.Background(), "missing"), entities.ErrYieldNotFound},
	}
	for _, tc := range cases {
		if !errors.Is(tc.err, tc.want) {
			t.Errorf("%s: err = %v, want %v", tc.name, tc.err, tc.want)
		}
	}

	after := store.Snapshot()
	if len(after.Apiaries) != len(before.Apiaries) || len(after.Hives) != len(before.Hives) ||
		len(after.Tasks) != len(before.Tasks) || after.CurrentApiaryID != before.CurrentApiaryID {
		t.Error("failed mutations must leave the state untouched")
	}
}

func TestMutationsWriteThrough(t *testing.T) {
	clk := &fakeClock{now: testTime}
	store, repo := newTestStore(t, clk)

	apiary := addApiary(t, store, "Persisted Yard")

	// A second store over the same storage sees the mutation.
	second := NewStoreService(repo, config.TrialConfig{DurationDays: 10}, logger.NewNop(), WithClock(clk.Now))
	if err := second.Load(context.Background()); err != nil {
		t.Fatalf("load second store: %v", err)
	}
	if cur := second.CurrentApiary(); cur == nil || cur.ID != apiary.ID {
		t.Fatal("mutation was not persisted write-through")
	}
}

// failingSaveRepo wraps a state repository and fails every Save once armed.
type failingSaveRepo struct {
	ports.StateRepository
	fail bool
}

func (r *failingSaveRepo) Save(ctx context.Context, state *entities.AppState) error {
	if r.fail {
		return errors.New("disk full")
	}
	return r.StateRepository.Save(ctx, state)
}

func TestPersistFailureIsReported(t *testing.T) {
	clk := &fakeClock{now: testTime}
	inner := repository.NewStateRepository(repository.NewMemoryKV(), "journal_state")
	trialStart := clk.now
	if err := inner.Save(context.Background(), &entities.AppState{Version: entities.StateVersion, TrialStartDate: &trialStart}); err != nil {
		t.Fatalf("seed state: %v", err)
	}
	repo := &failingSaveRepo{StateRepository: inner}

	store := NewStoreService(repo, config.TrialConfig{DurationDays: 10}, logger.NewNop(), WithClock(clk.Now))
	if err := store.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	repo.fail = true
	_, err := store.AddApiary(context.Background(), ports.CreateApiaryRequest{Name: "Doomed Yard"})
	if err == nil {
		t.Fatal("persist failure must surface to the caller")
	}

	// The in-memory state stays authoritative.
	if len(store.Apiaries()) != 1 {
		t.Error("mutation should survive in memory despite the persist failure")
	}
}

func TestDerivedQueriesScopeToCurrentApiary(t *testing.T) {
	clk := &fakeClock{now: testTime}
	store, _ := newTestStore(t, clk)

	home := addApiary(t, store, "Home Yard")
	out := addApiary(t, store, "Out Yard")

	homeHive := addHive(t, store, "Home Hive", &home.ID)
	outHive := addHive(t, store, "Out Hive", &out.ID)
	deletedHive := addHive(t, store, "Dead Hive", &home.ID)
	if err := store.DeleteHive(context.Background(), deletedHive.ID); err != nil {
		t.Fatalf("delete hive: %v", err)
	}

	ctx := context.Background()
	mustInspect := func(hiveID string, date time.Time) {
		t.Helper()
		if _, err := store.AddInspection(ctx, ports.CreateInspectionRequest{HiveID: hiveID, Date: date}); err != nil {
			t.Fatalf("add inspection: %v", err)
		}
	}
	mustYield := func(hiveID string, date time.Time, amount float64) {
		t.Helper()
		if _, err := store.AddYield(ctx, ports.CreateYieldRequest{
			HiveID: hiveID, Type: entities.YieldTypeHoney, Amount: amount, Unit: "kg", Date: date,
		}); err != nil {
			t.Fatalf("add yield: %v", err)
		}
	}

	mustInspect(homeHive.ID, testTime)                     // this month, current apiary
	mustInspect(homeHive.ID, testTime.AddDate(0, -2, 0))   // other month
	mustInspect(outHive.ID, testTime)                      // other apiary
	mustInspect(deletedHive.ID, testTime)                  // deleted hive
	mustYield(homeHive.ID, testTime, 4.5)                  // this year, current apiary
	mustYield(homeHive.ID, testTime.AddDate(-1, 0, 0), 10) // last year
	mustYield(outHive.ID, testTime, 3)                     // other apiary

	if err := store.SetCurrentApiary(ctx, home.ID); err != nil {
		t.Fatalf("select home yard: %v", err)
	}

	if n := store.ActiveHiveCount(); n != 1 {
		t.Errorf("ActiveHiveCount = %d, want 1", n)
	}
	hives := store.CurrentApiaryHives()
	if len(hives) != 1 || hives[0].ID != homeHive.ID {
		t.Errorf("CurrentApiaryHives = %v, want only the active home hive", hives)
	}

	inspections := store.ThisMonthInspections()
	if len(inspections) != 1 || inspections[0].HiveID != homeHive.ID {
		t.Errorf("ThisMonthInspections = %d entries, want 1 for the home hive", len(inspections))
	}

	if total := store.ThisYearYield(); total != 4.5 {
		t.Errorf("ThisYearYield = %v, want 4.5", total)
	}
}

func TestPendingTasksFiltering(t *testing.T) {
	clk := &fakeClock{now: testTime}
	store, _ := newTestStore(t, clk)

	apiary := addApiary(t, store, "Yard")
	hive := addHive(t, store, "Hive", &apiary.ID)

	ctx := context.Background()
	pending, err := store.AddTask(ctx, ports.CreateTaskRequest{
		HiveIDs: []string{hive.ID}, Title: "upcoming", DueDate: testTime.AddDate(0, 0, 5),
	})
	if err != nil {
		t.Fatalf("add task: %v", err)
	}
	done, err := store.AddTask(ctx, ports.CreateTaskRequest{
		HiveIDs: []string{hive.ID}, Title: "done", DueDate: testTime.AddDate(0, 0, 5),
	})
	if err != nil {
		t.Fatalf("add task: %v", err)
	}
	completed := true
	if _, err := store.UpdateTask(ctx, done.ID, ports.UpdateTaskRequest{Completed: &completed}); err != nil {
		t.Fatalf("complete task: %v", err)
	}
	if _, err := store.AddTask(ctx, ports.CreateTaskRequest{
		HiveIDs: []string{hive.ID}, Title: "overdue", DueDate: testTime.AddDate(0, 0, -1),
	}); err != nil {
		t.Fatalf("add task: %v", err)
	}

	got := store.PendingTasks()
	if len(got) != 1 || got[0].ID != pending.ID {
		t.Fatalf("PendingTasks = %d entries, want only the upcoming one", len(got))
	}
}

func TestHiveCountByYear(t *testing.T) {
	clk := &fakeClock{now: testTime} // 2026
	store, _ := newTestStore(t, clk)

	apiary := addApiary(t, store, "Yard")

	// Hive created in 2023, deleted March 2024.
	clk.now = time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	oldHive := addHive(t, store, "Old Hive", &apiary.ID)
	clk.now = time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	if err := store.DeleteHive(context.Background(), oldHive.ID); err != nil {
		t.Fatalf("delete hive: %v", err)
	}

	// Hive created in 2025, still active.
	clk.now = time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	addHive(t, store, "New Hive", &apiary.ID)

	clk.now = testTime // back to 2026

	tests := []struct {
		year int
		want int
	}{
		{2022, 0}, // nothing existed yet
		{2023, 1}, // only the old hive
		{2024, 1}, // deleted during 2024 still counts
		{2025, 1}, // old hive gone, new hive created
		{2026, 1}, // current year counts active hives only
	}
	for _, tc := range tests {
		if got := store.HiveCountByYear(tc.year); got != tc.want {
			t.Errorf("HiveCountByYear(%d) = %d, want %d", tc.year, got, tc.want)
		}
	}
}

func TestTrialCountdownAndRegistration(t *testing.T) {
	clk := &fakeClock{now: testTime}
	store, _ := newTestStore(t, clk)

	if remaining, ok := store.RemainingTrialDays(); !ok || remaining != 10 {
		t.Fatalf("fresh trial = (%d, %v), want (10, true)", remaining, ok)
	}

	clk.Advance(3 * 24 * time.Hour)
	if remaining, ok := store.RemainingTrialDays(); !ok || remaining != 7 {
		t.Errorf("after 3 days = (%d, %v), want (7, true)", remaining, ok)
	}

	clk.Advance(12 * 24 * time.Hour)
	if remaining, ok := store.RemainingTrialDays(); !ok || remaining != 0 {
		t.Errorf("expired trial = (%d, %v), want (0, true)", remaining, ok)
	}

	if store.IsRegistered() {
		t.Fatal("store should not start registered")
	}
	if err := store.Register(context.Background()); err != nil {
		t.Fatalf("register: %v", err)
	}
	if !store.IsRegistered() {
		t.Fatal("registration flag should be set")
	}
	if _, ok := store.RemainingTrialDays(); ok {
		t.Error("registered journal has no trial countdown")
	}
}

func TestDashboard(t *testing.T) {
	clk := &fakeClock{now: testTime}
	store, _ := newTestStore(t, clk)

	apiary := addApiary(t, store, "Yard")
	hive := addHive(t, store, "Hive", &apiary.ID)
	ctx := context.Background()
	if _, err := store.AddInspection(ctx, ports.CreateInspectionRequest{HiveID: hive.ID, Date: testTime}); err != nil {
		t.Fatalf("add inspection: %v", err)
	}
	if _, err := store.AddYield(ctx, ports.CreateYieldRequest{
		HiveID: hive.ID, Type: entities.YieldTypeHoney, Amount: 2, Unit: "kg", Date: testTime,
	}); err != nil {
		t.Fatalf("add yield: %v", err)
	}

	dash := store.Dashboard()
	if dash.CurrentApiary == nil || dash.CurrentApiary.ID != apiary.ID {
		t.Error("dashboard should show the current apiary")
	}
	if dash.ActiveHiveCount != 1 {
		t.Errorf("dashboard hive count = %d, want 1", dash.ActiveHiveCount)
	}
	if len(dash.ThisMonthInspections) != 1 {
		t.Errorf("dashboard inspections = %d, want 1", len(dash.ThisMonthInspections))
	}
	if dash.ThisYearYield != 2 {
		t.Errorf("dashboard yield = %v, want 2", dash.ThisYearYield)
	}
	if dash.IsRegistered {
		t.Error("dashboard should report unregistered")
	}
	if dash.RemainingTrialDays == nil || *dash.RemainingTrialDays != 10 {
		t.Error("dashboard should carry the trial countdown")
	}
}

func TestUpdateMergesOnlyGivenFields(t *testing.T) {
	clk := &fakeClock{now: testTime}
	store, _ := newTestStore(t, clk)

	apiary := addApiary(t, store, "Yard")
	hive := addHive(t, store, "Hive", &apiary.ID)

	frames := 14
	updated, err := store.UpdateHive(context.Background(), hive.ID, ports.UpdateHiveRequest{FrameCount: &frames})
	if err != nil {
		t.Fatalf("update hive: %v", err)
	}
	if updated.FrameCount != 14 {
		t.Errorf("frame count = %d, want 14", updated.FrameCount)
	}
	if updated.Name != "Hive" || updated.Type != entities.HiveTypeEstablished {
		t.Error("untouched fields must keep their values")
	}
}
