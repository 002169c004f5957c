// Package journal implements the nutrition journal use cases: daily
// summaries, entry and meal editing, and targets.
package journal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/macromojo/macromojo/internal/domain/nutrition"
	"github.com/macromojo/macromojo/internal/infrastructure/monitoring"
	"github.com/macromojo/macromojo/internal/ports/outbound"
	apperrors "github.com/macromojo/macromojo/pkg/errors"
)

// EntryForm is the submitted add/edit entry form
type EntryForm struct {
	Calories string
	Protein  string
	Fat      string
	Carbs    string
	Meal     string
}

// TargetForm is the submitted targets form
type TargetForm struct {
	Calories string
	Protein  string
	Fat      string
	Carbs    string
}

// Overview is the landing page of a user's journal
type Overview struct {
	Username string
	Target   nutrition.Macros
	Today    time.Time
	Days     Page[nutrition.DailyTotal]
}

// DayView summarises one date. Total is nil when nothing was logged and
// Remaining then equals the target.
type DayView struct {
	Username  string
	Date      time.Time
	Target    nutrition.Macros
	Total     *nutrition.Macros
	Remaining nutrition.Macros
	Entries   Page[nutrition.Entry]
}

// DaySummary is the unpaginated day view served by the JSON API
type DaySummary struct {
	Date      string            `json:"date"`
	Target    nutrition.Macros  `json:"target"`
	Total     *nutrition.Macros `json:"total"`
	Remaining nutrition.Macros  `json:"remaining"`
	Entries   []nutrition.Entry `json:"entries"`
}

// Service implements the journal use cases
type Service struct {
	store   outbound.JournalStore
	metrics *monitoring.MetricsCollector
	logger  *zap.Logger
	now     func() time.Time
}

// NewService creates a journal service. metrics may be nil.
func NewService(store outbound.JournalStore, metrics *monitoring.MetricsCollector, logger *zap.Logger) *Service {
	return &Service{
		store:   store,
		metrics: metrics,
		logger:  logger.Named("journal-service"),
		now:     time.Now,
	}
}

// Overview returns the user's targets and one page of daily totals
func (s *Service) Overview(ctx context.Context, username, page string) (*Overview, error) {
	target, err := s.Targets(ctx, username)
	if err != nil {
		return nil, err
	}

	days, err := s.store.GetUserAllNutrition(ctx, username)
	if err != nil {
		return nil, err
	}
	p, err := Paginate(days, page)
	if err != nil {
		return nil, err
	}

	now := s.now()
	return &Overview{
		Username: username,
		Target:   target.Macros,
		Today:    time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
		Days:     p,
	}, nil
}

// Day returns the totals for date and one page of its entries
func (s *Service) Day(ctx context.Context, username, date, page string) (*DayView, error) {
	summary, err := s.DaySummary(ctx, username, date)
	if err != nil {
		return nil, err
	}
	p, err := Paginate(summary.Entries, page)
	if err != nil {
		return nil, err
	}

	day, _ := nutrition.ParseDate(date)
	return &DayView{
		Username:  username,
		Date:      day,
		Target:    summary.Target,
		Total:     summary.Total,
		Remaining: summary.Remaining,
		Entries:   p,
	}, nil
}

// DaySummary returns everything logged on date
func (s *Service) DaySummary(ctx context.Context, username, date string) (*DaySummary, error) {
	day, err := nutrition.ParseDate(date)
	if err != nil {
		return nil, invalid(err)
	}

	target, err := s.Targets(ctx, username)
	if err != nil {
		return nil, err
	}
	total, err := s.store.DailyTotalNutrition(ctx, username, day)
	if err != nil {
		return nil, err
	}
	left, err := s.store.GetNutritionLeft(ctx, username, day)
	if err != nil {
		return nil, err
	}
	entries, err := s.store.GetDailyNutrition(ctx, username, day)
	if err != nil {
		return nil, err
	}

	remaining := target.Macros
	if left != nil {
		remaining = *left
	}
	return &DaySummary{
		Date:      day.Format(nutrition.DateLayout),
		Target:    target.Macros,
		Total:     total,
		Remaining: remaining,
		Entries:   entries,
	}, nil
}

// MealNames lists the user's meal names for the entry form
func (s *Service) MealNames(ctx context.Context, username string) ([]string, error) {
	return s.store.GetAllMealNames(ctx, username)
}

// AddEntry validates form and logs it on date
func (s *Service) AddEntry(ctx context.Context, username, date string, form EntryForm) (int64, error) {
	day, err := nutrition.ParseDate(date)
	if err != nil {
		return 0, invalid(err)
	}
	m, meal, err := parseEntry(form)
	if err != nil {
		return 0, err
	}

	id, err := s.store.AddNutritionEntry(ctx, day, username, m, meal)
	if err != nil {
		return 0, fmt.Errorf("failed to add entry: %w", err)
	}

	s.metrics.EntryLogged()
	s.logger.Info("Entry logged",
		zap.String("username", username),
		zap.String("date", date),
		zap.Int64("entry_id", id))
	return id, nil
}

// Entry returns one of the user's entries
func (s *Service) Entry(ctx context.Context, username string, id int64) (*nutrition.Entry, error) {
	e, err := s.store.FindUserNutritionEntry(ctx, username, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, apperrors.NewEntryNotFoundError(id)
	}
	return e, nil
}

// UpdateEntry replaces the macros and meal of one of the user's entries
func (s *Service) UpdateEntry(ctx context.Context, username string, id int64, form EntryForm) error {
	ids, err := s.store.GetAllNutritionEntryIDs(ctx, username)
	if err != nil {
		return err
	}
	if !nutrition.IsNutritionIDValid(id, ids) {
		return apperrors.NewEntryNotFoundError(id)
	}

	m, meal, err := parseEntry(form)
	if err != nil {
		return err
	}
	if err := s.store.UpdateNutritionEntry(ctx, id, m, meal); err != nil {
		return fmt.Errorf("failed to update entry: %w", err)
	}

	s.logger.Info("Entry updated", zap.String("username", username), zap.Int64("entry_id", id))
	return nil
}

// DeleteEntry removes one of the user's entries
func (s *Service) DeleteEntry(ctx context.Context, username string, id int64) error {
	if _, err := s.Entry(ctx, username, id); err != nil {
		return err
	}
	if err := s.store.DeleteNutritionEntry(ctx, id); err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}

	s.logger.Info("Entry deleted", zap.String("username", username), zap.Int64("entry_id", id))
	return nil
}

// Targets returns the user's daily targets
func (s *Service) Targets(ctx context.Context, username string) (*nutrition.Target, error) {
	t, err := s.store.GetUserTargets(ctx, username)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, apperrors.NewUserNotFoundError(username)
	}
	return t, nil
}

// UpdateTargets validates form and stores it as the user's targets
func (s *Service) UpdateTargets(ctx context.Context, username string, form TargetForm) error {
	m, err := nutrition.ParseTargets(form.Calories, form.Protein, form.Fat, form.Carbs)
	if err != nil {
		return invalid(err)
	}
	if err := s.store.UpdateUserTargets(ctx, username, m); err != nil {
		return fmt.Errorf("failed to update targets: %w", err)
	}

	s.logger.Info("Targets updated", zap.String("username", username))
	return nil
}

// Meals returns one page of the user's meals
func (s *Service) Meals(ctx context.Context, username, page string) (Page[nutrition.Meal], error) {
	meals, err := s.store.GetUserMeals(ctx, username)
	if err != nil {
		return Page[nutrition.Meal]{}, err
	}
	return Paginate(meals, page)
}

// Meal returns one of the user's meals
func (s *Service) Meal(ctx context.Context, username string, id int64) (*nutrition.Meal, error) {
	if err := s.ownsMeal(ctx, username, id); err != nil {
		return nil, err
	}
	m, err := s.store.FindMealByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, apperrors.NewMealNotFoundError(id)
	}
	return m, nil
}

// AddMeal creates a meal after the length and duplicate checks
func (s *Service) AddMeal(ctx context.Context, username, name string) (int64, error) {
	name = nutrition.NormalizeMealName(name)
	if err := nutrition.ErrorForMealLen(name); err != nil {
		return 0, invalid(err)
	}

	existing, err := s.store.GetAllMealNames(ctx, username)
	if err != nil {
		return 0, err
	}
	if err := nutrition.CheckMealDuplicates(name, existing); err != nil {
		return 0, invalid(err)
	}

	id, err := s.store.AddMeal(ctx, username, name)
	if err != nil {
		return 0, fmt.Errorf("failed to add meal: %w", err)
	}

	s.logger.Info("Meal added", zap.String("username", username), zap.Int64("meal_id", id))
	return id, nil
}

// UpdateMeal renames one of the user's meals. Keeping the current name is allowed.
func (s *Service) UpdateMeal(ctx context.Context, username string, id int64, name string) error {
	if err := s.ownsMeal(ctx, username, id); err != nil {
		return err
	}

	name = nutrition.NormalizeMealName(name)
	if err := nutrition.ErrorForMealLen(name); err != nil {
		return invalid(err)
	}

	others, err := s.store.GetAllMealNamesExcept(ctx, username, id)
	if err != nil {
		return err
	}
	if err := nutrition.CheckMealDuplicates(name, others); err != nil {
		return invalid(err)
	}

	if err := s.store.UpdateMeal(ctx, id, name); err != nil {
		return fmt.Errorf("failed to update meal: %w", err)
	}

	s.logger.Info("Meal updated", zap.String("username", username), zap.Int64("meal_id", id))
	return nil
}

// DeleteMeal removes one of the user's meals. Entries that used it keep
// their numbers but lose the meal label.
func (s *Service) DeleteMeal(ctx context.Context, username string, id int64) error {
	if err := s.ownsMeal(ctx, username, id); err != nil {
		return err
	}
	if err := s.store.DeleteMeal(ctx, id); err != nil {
		return fmt.Errorf("failed to delete meal: %w", err)
	}

	s.logger.Info("Meal deleted", zap.String("username", username), zap.Int64("meal_id", id))
	return nil
}

func (s *Service) ownsMeal(ctx context.Context, username string, id int64) error {
	ids, err := s.store.GetAllMealIDs(ctx, username)
	if err != nil {
		return err
	}
	if !nutrition.IsNutritionIDValid(id, ids) {
		return apperrors.NewMealNotFoundError(id)
	}
	return nil
}

func parseEntry(form EntryForm) (nutrition.Macros, string, error) {
	m, err := nutrition.ParseMacros(form.Calories, form.Protein, form.Fat, form.Carbs)
	if err != nil {
		return nutrition.Macros{}, "", invalid(err)
	}

	// The meal is optional on an entry; only a given name is length checked.
	meal := nutrition.NormalizeMealName(form.Meal)
	if meal == "" {
		return m, "", nil
	}
	if err := nutrition.ErrorForMealLen(meal); err != nil {
		return nutrition.Macros{}, "", invalid(err)
	}
	return m, meal, nil
}

// invalid turns a domain validation failure into a form error that still
// matches its kind with errors.Is
func invalid(err error) error {
	var ve *nutrition.ValidationError
	if errors.As(err, &ve) {
		return apperrors.NewValidationError(ve.Message).WithCause(ve)
	}
	return apperrors.NewValidationError(err.Error())
}
