package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/hivekeeper/core/internal/domain/entities"
)

// Default apiary seed location. First run plants the journal here so the map
// screen has something to center on before the user adds their own yard.
const (
	seedApiaryName = "Home Apiary"
	seedLatitude   = 49.1951
	seedLongitude  = 16.6068
)

// seedState builds the first-run state: one default apiary, a couple of sample
// hives with an inspection, a task and a yield attached, and the trial clock
// started.
func (s *StoreService) seedState() *entities.AppState {
	now := s.now()
	trialStart := now

	apiary := entities.Apiary{
		ID:        uuid.NewString(),
		Name:      seedApiaryName,
		Latitude:  seedLatitude,
		Longitude: seedLongitude,
		CreatedAt: now,
	}

	hiveA := entities.Hive{
		ID:           uuid.NewString(),
		ApiaryID:     &apiary.ID,
		Name:         "Hive 1",
		Type:         entities.HiveTypeEstablished,
		FrameCount:   10,
		QueenStatus:  entities.QueenStatusNew,
		QueenColor:   "yellow",
		LayingStatus: entities.LayingStatusLaying,
		FoundedAt:    now,
		CreatedAt:    now,
	}
	hiveB := entities.Hive{
		ID:           uuid.NewString(),
		ApiaryID:     &apiary.ID,
		Name:         "Hive 2",
		Type:         entities.HiveTypeSwarm,
		FrameCount:   8,
		QueenStatus:  entities.QueenStatusOld,
		QueenColor:   "green",
		LayingStatus: entities.LayingStatusLaying,
		FoundedAt:    now,
		CreatedAt:    now,
	}

	inspection := entities.Inspection{
		ID:        uuid.NewString(),
		HiveID:    hiveA.ID,
		Date:      now,
		Notes:     "First look after setup. Calm colony, brood on four frames.",
		CreatedAt: now,
	}

	task := entities.Task{
		ID:        uuid.NewString(),
		HiveIDs:   []string{hiveA.ID, hiveB.ID},
		Title:     "Check feed stores",
		DueDate:   now.AddDate(0, 0, 7),
		CreatedAt: now,
	}

	yield := entities.Yield{
		ID:        uuid.NewString(),
		HiveID:    hiveA.ID,
		Type:      entities.YieldTypeHoney,
		Amount:    2.5,
		Unit:      "kg",
		Date:      now,
		CreatedAt: now,
	}

	return &entities.AppState{
		Version:         entities.StateVersion,
		Apiaries:        []entities.Apiary{apiary},
		Hives:           []entities.Hive{hiveA, hiveB},
		Inspections:     []entities.Inspection{inspection},
		Tasks:           []entities.Task{task},
		Yields:          []entities.Yield{yield},
		TrialStartDate:  &trialStart,
		CurrentApiaryID: apiary.ID,
	}
}

// Reseed replaces the whole journal with a fresh first-run state and persists
// it. Registration and the trial clock are reset too; the seed command guards
// this behind an explicit flag.
func (s *StoreService) Reseed(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.seedState()
	if err := s.repo.Save(ctx, state); err != nil {
		return fmt.Errorf("failed to persist reseeded state: %w", err)
	}
	s.state = state
	s.ready = true

	s.logger.Info("Journal reseeded", "apiary_id", state.CurrentApiaryID)
	return nil
}
