// Package outbound defines the interfaces for outbound ports (secondary/driven adapters)
// These are the interfaces that the application uses to interact with external systems
package outbound

import (
	"context"
	"errors"
	"time"

	"github.com/macromojo/macromojo/internal/domain/nutrition"
	"github.com/macromojo/macromojo/internal/domain/user"
)

// ErrCacheMiss is returned by CacheRepository.Get for missing or expired keys
var ErrCacheMiss = errors.New("cache: key not found")

// UserRepository persists accounts and their targets.
// Lookups that miss return an absent value (ok=false or nil), never an error.
type UserRepository interface {
	FindLogin(ctx context.Context, username, password string) (bool, error)
	GetUserID(ctx context.Context, username string) (int64, bool, error)
	CreateUser(ctx context.Context, u *user.User, target nutrition.Macros) (int64, error)

	GetUserTargets(ctx context.Context, username string) (*nutrition.Target, error)
	UpdateUserTargets(ctx context.Context, username string, target nutrition.Macros) error
}

// NutritionRepository persists logged entries and answers the daily aggregates
type NutritionRepository interface {
	DailyTotalNutrition(ctx context.Context, username string, date time.Time) (*nutrition.Macros, error)
	GetNutritionLeft(ctx context.Context, username string, date time.Time) (*nutrition.Macros, error)
	GetDailyNutrition(ctx context.Context, username string, date time.Time) ([]nutrition.Entry, error)
	GetUserAllNutrition(ctx context.Context, username string) ([]nutrition.DailyTotal, error)

	AddNutritionEntry(ctx context.Context, date time.Time, username string, m nutrition.Macros, meal string) (int64, error)
	FindNutritionEntryByID(ctx context.Context, id int64) (*nutrition.Entry, error)
	FindUserNutritionEntry(ctx context.Context, username string, id int64) (*nutrition.Entry, error)
	UpdateNutritionEntry(ctx context.Context, id int64, m nutrition.Macros, meal string) error
	DeleteNutritionEntry(ctx context.Context, id int64) error
	GetAllNutritionEntryIDs(ctx context.Context, username string) ([]int64, error)
}

// MealRepository persists a user's named meals
type MealRepository interface {
	AddMeal(ctx context.Context, username, name string) (int64, error)
	UpdateMeal(ctx context.Context, id int64, name string) error
	DeleteMeal(ctx context.Context, id int64) error
	GetUserMeals(ctx context.Context, username string) ([]nutrition.Meal, error)
	FindMealByID(ctx context.Context, id int64) (*nutrition.Meal, error)
	GetAllMealNames(ctx context.Context, username string) ([]string, error)
	GetAllMealNamesExcept(ctx context.Context, username string, mealID int64) ([]string, error)
	GetAllMealIDs(ctx context.Context, username string) ([]int64, error)
}

// JournalStore is the full persistence gateway surface
type JournalStore interface {
	UserRepository
	NutritionRepository
	MealRepository
	Ping(ctx context.Context) error
}

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// ChatRole identifies the author of a chat message
type ChatRole string

const (
	RoleSystem    ChatRole = "system"
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// ChatMessage is one turn of a conversation sent to a language model
type ChatMessage struct {
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`
}

// ChatRequest is a provider-neutral completion request
type ChatRequest struct {
	Model       string
	Temperature float64
	MaxTokens   int
	Messages    []ChatMessage
}

// ChatModel defines the interface for language model providers
type ChatModel interface {
	Name() string
	Complete(ctx context.Context, req ChatRequest) (string, error)
}
