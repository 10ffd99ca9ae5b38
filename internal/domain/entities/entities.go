package entities

import (
	"errors"
	"time"
)

// StateVersion is the current persisted-state format version. Blobs without a
// version field predate the single-membership task format and are migrated by
// Normalize at load time.
const StateVersion = 1

// Common errors
var (
	ErrApiaryNotFound     = errors.New("apiary not found")
	ErrHiveNotFound       = errors.New("hive not found")
	ErrInspectionNotFound = errors.New("inspection not found")
	ErrTaskNotFound       = errors.New("task not found")
	ErrYieldNotFound      = errors.New("yield not found")
	ErrStateNotFound      = errors.New("state not found")
	ErrSessionNotFound    = errors.New("session not found")
	ErrStoreNotReady      = errors.New("store not ready")
	ErrEmptyTaskHives     = errors.New("task must reference at least one hive")
	ErrInvalidHiveType    = errors.New("invalid hive type")
	ErrInvalidYieldType   = errors.New("invalid yield type")
)

// Enums and types
type HiveType string

const (
	HiveTypeNewlySplit  HiveType = "newly_split"
	HiveTypeSwarm       HiveType = "swarm"
	HiveTypeEstablished HiveType = "established_colony"
	HiveTypePurchased   HiveType = "purchased_colony"
)

type QueenStatus string

const (
	QueenStatusOld          QueenStatus = "old"
	QueenStatusNew          QueenStatus = "new"
	QueenStatusAboutToHatch QueenStatus = "about_to_hatch"
)

type LayingStatus string

const (
	LayingStatusLaying    LayingStatus = "laying"
	LayingStatusNotLaying LayingStatus = "not_laying"
)

type YieldType string

const (
	YieldTypeHoney    YieldType = "honey"
	YieldTypePollen   YieldType = "pollen"
	YieldTypePropolis YieldType = "propolis"
	YieldTypeOther    YieldType = "other"
)

// Apiary represents a bee-yard: a named location holding zero or more hives.
type Apiary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Address     *string   `json:"address,omitempty"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Hive represents a single managed colony. Hives are soft-deleted so that
// past-year statistics keep counting them.
type Hive struct {
	ID           string       `json:"id"`
	ApiaryID     *string      `json:"apiaryId,omitempty"`
	Name         string       `json:"name"`
	Type         HiveType     `json:"type"`
	FrameCount   int          `json:"frameCount"`
	QueenStatus  QueenStatus  `json:"queenStatus"`
	QueenColor   string       `json:"queenColor"`
	LayingStatus LayingStatus `json:"layingStatus"`
	FoundedAt    time.Time    `json:"foundedAt"`
	CreatedAt    time.Time    `json:"createdAt"`
	IsDeleted    bool         `json:"isDeleted,omitempty"`
	DeletedAt    *time.Time   `json:"deletedAt,omitempty"`
}

// Inspection is a logged visit of a single hive.
type Inspection struct {
	ID        string    `json:"id"`
	HiveID    string    `json:"hiveId"`
	Date      time.Time `json:"date"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"createdAt"`
}

// Task is a scheduled to-do item referencing one or more hives. HiveIDs is the
// single authoritative membership set and is never empty; removing the last
// hive deletes the task. LegacyHiveID only carries the single-hive field of
// pre-versioned blobs and is folded into HiveIDs by Normalize.
type Task struct {
	ID           string    `json:"id"`
	HiveIDs      []string  `json:"hiveIds"`
	Title        string    `json:"title"`
	Description  *string   `json:"description,omitempty"`
	DueDate      time.Time `json:"dueDate"`
	Completed    bool      `json:"completed"`
	CreatedAt    time.Time `json:"createdAt"`
	LegacyHiveID string    `json:"hiveId,omitempty"`
}

// Yield is a harvested quantity attributed to a hive on a date.
type Yield struct {
	ID        string    `json:"id"`
	HiveID    string    `json:"hiveId"`
	Type      YieldType `json:"type"`
	Amount    float64   `json:"amount"`
	Unit      string    `json:"unit"`
	Date      time.Time `json:"date"`
	Notes     *string   `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// MonthlyStats is a cached per-month snapshot. It is recomputed on demand and
// is not kept in sync with later record mutations.
type MonthlyStats struct {
	Year            int     `json:"year"`
	Month           int     `json:"month"`
	InspectionCount int     `json:"inspectionCount"`
	YieldAmount     float64 `json:"yieldAmount"`
}

// YearlyStats is a cached per-year snapshot with a 12-element monthly breakdown.
type YearlyStats struct {
	Year            int            `json:"year"`
	InspectionCount int            `json:"inspectionCount"`
	YieldAmount     float64        `json:"yieldAmount"`
	Months          []MonthlyStats `json:"months"`
}

// AppState is the aggregate journal state. The whole struct is serialized as
// one JSON blob under a single storage key.
type AppState struct {
	Version         int            `json:"version"`
	Apiaries        []Apiary       `json:"apiaries"`
	Hives           []Hive         `json:"hives"`
	Inspections     []Inspection   `json:"inspections"`
	Tasks           []Task         `json:"tasks"`
	Yields          []Yield        `json:"yields"`
	MonthlyStats    []MonthlyStats `json:"monthlyStats"`
	YearlyStats     []YearlyStats  `json:"yearlyStats"`
	TrialStartDate  *time.Time     `json:"trialStartDate"`
	IsRegistered    bool           `json:"isRegistered"`
	CurrentApiaryID string         `json:"currentApiaryId,omitempty"`
}

// Session is the mock auth module's local-only session record.
type Session struct {
	Email        string    `json:"email"`
	Token        string    `json:"token"`
	PasscodeHash string    `json:"passcodeHash,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Business logic methods for Hive

// Active reports whether the hive counts toward current aggregations.
func (h *Hive) Active() bool {
	return !h.IsDeleted
}

// InApiary reports whether the hive is assigned to the given apiary.
func (h *Hive) InApiary(apiaryID string) bool {
	return h.ApiaryID != nil && *h.ApiaryID == apiaryID
}

// ExistedDuring reports whether the hive existed at any point during the given
// calendar year: created in or before it, and not soft-deleted before it began.
func (h *Hive) ExistedDuring(year int) bool {
	if h.CreatedAt.Year() > year {
		return false
	}
	if !h.IsDeleted || h.DeletedAt == nil {
		return true
	}
	return h.DeletedAt.Year() >= year
}

// Business logic methods for Task

// References reports whether the task's membership contains the given hive.
func (t *Task) References(hiveID string) bool {
	for _, id := range t.HiveIDs {
		if id == hiveID {
			return true
		}
	}
	return false
}

// RemoveHive drops the given hive from the membership set and reports whether
// the set is now empty, in which case the task itself must be deleted.
func (t *Task) RemoveHive(hiveID string) (empty bool) {
	kept := t.HiveIDs[:0]
	for _, id := range t.HiveIDs {
		if id != hiveID {
			kept = append(kept, id)
		}
	}
	t.HiveIDs = kept
	return len(t.HiveIDs) == 0
}

// Pending reports whether the task still needs doing as of now.
func (t *Task) Pending(now time.Time) bool {
	return !t.Completed && !t.DueDate.Before(now)
}

// Normalize migrates a freshly loaded state blob to the current format.
// Pre-versioned blobs carried task membership in the single hiveId field;
// those are folded into HiveIDs. Tasks that end up with no membership at all
// are dropped to restore the non-empty invariant. It reports whether anything
// changed and the state needs re-persisting.
func (s *AppState) Normalize() bool {
	if s.Version >= StateVersion {
		return false
	}
	kept := s.Tasks[:0]
	for _, t := range s.Tasks {
		if len(t.HiveIDs) == 0 && t.LegacyHiveID != "" {
			t.HiveIDs = []string{t.LegacyHiveID}
		}
		t.LegacyHiveID = ""
		if len(t.HiveIDs) == 0 {
			continue
		}
		kept = append(kept, t)
	}
	s.Tasks = kept
	s.Version = StateVersion
	return true
}

// FindApiary returns the apiary with the given ID, or nil.
func (s *AppState) FindApiary(id string) *Apiary {
	for i := range s.Apiaries {
		if s.Apiaries[i].ID == id {
			return &s.Apiaries[i]
		}
	}
	return nil
}

// FindHive returns the hive with the given ID, or nil.
func (s *AppState) FindHive(id string) *Hive {
	for i := range s.Hives {
		if s.Hives[i].ID == id {
			return &s.Hives[i]
		}
	}
	return nil
}

// Utility methods
func (ht HiveType) IsValid() bool {
	switch ht {
	case HiveTypeNewlySplit, HiveTypeSwarm, HiveTypeEstablished, HiveTypePurchased:
		return true
	default:
		return false
	}
}

func (qs QueenStatus) IsValid() bool {
	switch qs {
	case QueenStatusOld, QueenStatusNew, QueenStatusAboutToHatch:
		return true
	default:
		return false
	}
}

func (ls LayingStatus) IsValid() bool {
	switch ls {
	case LayingStatusLaying, LayingStatusNotLaying:
		return true
	default:
		return false
	}
}

func (yt YieldType) IsValid() bool {
	switch yt {
	case YieldTypeHoney, YieldTypePollen, YieldTypePropolis, YieldTypeOther:
		return true
	default:
		return false
	}
}
