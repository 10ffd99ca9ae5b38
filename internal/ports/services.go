package ports

import (
	"context"
	"time"

	"github.com/hivekeeper/core/internal/domain/entities"
)

// RecordStore interface for the journal record store operations
type RecordStore interface {
	Load(ctx context.Context) error
	Ready() bool
	Snapshot() entities.AppState

	AddApiary(ctx context.Context, req CreateApiaryRequest) (*entities.Apiary, error)
	UpdateApiary(ctx context.Context, id string, req UpdateApiaryRequest) (*entities.Apiary, error)
	DeleteApiary(ctx context.Context, id string) error
	SetCurrentApiary(ctx context.Context, apiaryID string) error
	CurrentApiary() *entities.Apiary
	Apiaries() []entities.Apiary

	AddHive(ctx context.Context, req CreateHiveRequest) (*entities.Hive, error)
	UpdateHive(ctx context.Context, id string, req UpdateHiveRequest) (*entities.Hive, error)
	DeleteHive(ctx context.Context, id string) error
	Hives() []entities.Hive

	AddInspection(ctx context.Context, req CreateInspectionRequest) (*entities.Inspection, error)
	UpdateInspection(ctx context.Context, id string, req UpdateInspectionRequest) (*entities.Inspection, error)
	DeleteInspection(ctx context.Context, id string) error
	Inspections() []entities.Inspection

	AddTask(ctx context.Context, req CreateTaskRequest) (*entities.Task, error)
	UpdateTask(ctx context.Context, id string, req UpdateTaskRequest) (*entities.Task, error)
	DeleteTask(ctx context.Context, id string) error
	Tasks() []entities.Task

	AddYield(ctx context.Context, req CreateYieldRequest) (*entities.Yield, error)
	UpdateYield(ctx context.Context, id string, req UpdateYieldRequest) (*entities.Yield, error)
	DeleteYield(ctx context.Context, id string) error
	Yields() []entities.Yield

	CurrentApiaryHives() []entities.Hive
	ActiveHiveCount() int
	ThisMonthInspections() []entities.Inspection
	ThisYearYield() float64
	PendingTasks() []entities.Task
	HiveCountByYear(year int) int

	RemainingTrialDays() (int, bool)
	Register(ctx context.Context) error
	IsRegistered() bool
	Dashboard() Dashboard
}

// StatsAggregator interface for the statistics snapshot operations
type StatsAggregator interface {
	CalculateMonthlyStats(year, month int) entities.MonthlyStats
	UpdateMonthlyStats(ctx context.Context) (entities.MonthlyStats, error)
	UpdateYearlyStats(ctx context.Context) (entities.YearlyStats, error)
	ResetMonthlyStats(ctx context.Context) error
	ResetYearlyStats(ctx context.Context) error
	MonthlyStatsFor(year, month int) (entities.MonthlyStats, bool)
	YearlyStatsFor(year int) (entities.YearlyStats, bool)
	History() ([]entities.MonthlyStats, []entities.YearlyStats)
}

// AuthService interface for the local-only mock authentication module
type AuthService interface {
	SignIn(ctx context.Context, req SignInRequest) (*SignInResponse, error)
	SignOut(ctx context.Context) error
	CurrentSession(ctx context.Context) (*entities.Session, error)
	VerifyPasscode(ctx context.Context, passcode string) error
	ValidateToken(tokenString string) (*Claims, error)
}

// Request/Response Types

// Apiary related types
type CreateApiaryRequest struct {
	Name        string  `json:"name" validate:"required,max=200"`
	Latitude    float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude   float64 `json:"longitude" validate:"min=-180,max=180"`
	Address     *string `json:"address" validate:"omitempty,max=500"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
}

type UpdateApiaryRequest struct {
	Name        *string  `json:"name" validate:"omitempty,max=200"`
	Latitude    *float64 `json:"latitude" validate:"omitempty,min=-90,max=90"`
	Longitude   *float64 `json:"longitude" validate:"omitempty,min=-180,max=180"`
	Address     *string  `json:"address" validate:"omitempty,max=500"`
	Description *string  `json:"description" validate:"omitempty,max=2000"`
}

// Hive related types
type CreateHiveRequest struct {
	Name         string                `json:"name" validate:"required,max=200"`
	ApiaryID     *string               `json:"apiaryId"`
	Type         entities.HiveType     `json:"type" validate:"required"`
	FrameCount   int                   `json:"frameCount" validate:"required,gt=0"`
	QueenStatus  entities.QueenStatus  `json:"queenStatus" validate:"required"`
	QueenColor   string                `json:"queenColor" validate:"max=100"`
	LayingStatus entities.LayingStatus `json:"layingStatus" validate:"required"`
	FoundedAt    time.Time             `json:"foundedAt" validate:"required"`
}

type UpdateHiveRequest struct {
	Name         *string                `json:"name" validate:"omitempty,max=200"`
	ApiaryID     *string                `json:"apiaryId"`
	Type         *entities.HiveType     `json:"type" validate:"omitempty"`
	FrameCount   *int                   `json:"frameCount" validate:"omitempty,gt=0"`
	QueenStatus  *entities.QueenStatus  `json:"queenStatus" validate:"omitempty"`
	QueenColor   *string                `json:"queenColor" validate:"omitempty,max=100"`
	LayingStatus *entities.LayingStatus `json:"layingStatus" validate:"omitempty"`
	FoundedAt    *time.Time             `json:"foundedAt"`
}

// Inspection related types
type CreateInspectionRequest struct {
	HiveID string    `json:"hiveId" validate:"required"`
	Date   time.Time `json:"date" validate:"required"`
	Notes  string    `json:"notes" validate:"max=10000"`
}

type UpdateInspectionRequest struct {
	HiveID *string    `json:"hiveId" validate:"omitempty"`
	Date   *time.Time `json:"date"`
	Notes  *string    `json:"notes" validate:"omitempty,max=10000"`
}

// Task related types
type CreateTaskRequest struct {
	HiveIDs     []string  `json:"hiveIds" validate:"required,min=1,dive,required"`
	Title       string    `json:"title" validate:"required,max=500"`
	Description *string   `json:"description" validate:"omitempty,max=2000"`
	DueDate     time.Time `json:"dueDate" validate:"required"`
}

type UpdateTaskRequest struct {
	HiveIDs     []string   `json:"hiveIds" validate:"omitempty,min=1,dive,required"`
	Title       *string    `json:"title" validate:"omitempty,max=500"`
	Description *string    `json:"description" validate:"omitempty,max=2000"`
	DueDate     *time.Time `json:"dueDate"`
	Completed   *bool      `json:"completed"`
}

// Yield related types
type CreateYieldRequest struct {
	HiveID string             `json:"hiveId" validate:"required"`
	Type   entities.YieldType `json:"type" validate:"required"`
	Amount float64            `json:"amount" validate:"required,gt=0"`
	Unit   string             `json:"unit" validate:"required,max=20"`
	Date   time.Time          `json:"date" validate:"required"`
	Notes  *string            `json:"notes" validate:"omitempty,max=2000"`
}

type UpdateYieldRequest struct {
	Type   *entities.YieldType `json:"type" validate:"omitempty"`
	Amount *float64            `json:"amount" validate:"omitempty,gt=0"`
	Unit   *string             `json:"unit" validate:"omitempty,max=20"`
	Date   *time.Time          `json:"date"`
	Notes  *string             `json:"notes" validate:"omitempty,max=2000"`
}

// Auth related types
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Passcode string `json:"passcode" validate:"required,min=4,max=72"`
}

type SignInResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	ExpiresIn int64  `json:"expires_in"`
	Email     string `json:"email"`
}

type Claims struct {
	Email string `json:"email"`
}

// Dashboard aggregates the derived queries the home screen shows.
type Dashboard struct {
	CurrentApiary        *entities.Apiary      `json:"current_apiary"`
	ActiveHiveCount      int                   `json:"active_hive_count"`
	ThisMonthInspections []entities.Inspection `json:"this_month_inspections"`
	ThisYearYield        float64               `json:"this_year_yield"`
	PendingTasks         []entities.Task       `json:"pending_tasks"`
	RemainingTrialDays   *int                  `json:"remaining_trial_days"`
	IsRegistered         bool                  `json:"is_registered"`
}

// Response types for common structures
type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
