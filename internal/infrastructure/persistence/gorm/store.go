package gorm

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/macromojo/macromojo/internal/domain/nutrition"
	"github.com/macromojo/macromojo/internal/domain/user"
	"github.com/macromojo/macromojo/internal/infrastructure/monitoring"
	"github.com/macromojo/macromojo/internal/ports/outbound"
	apperrors "github.com/macromojo/macromojo/pkg/errors"
)

// Store implements the journal store on GORM
type Store struct {
	db      *gorm.DB
	logger  *zap.Logger
	metrics *monitoring.MetricsCollector
	tracing *monitoring.TracingProvider
}

var _ outbound.JournalStore = (*Store)(nil)

// NewStore creates a store over an open GORM handle. metrics and tracing may be nil.
func NewStore(db *gorm.DB, logger *zap.Logger, metrics *monitoring.MetricsCollector, tracing *monitoring.TracingProvider) *Store {
	return &Store{
		db:      db,
		logger:  logger.Named("gorm-store"),
		metrics: metrics,
		tracing: tracing,
	}
}

// entryRow is what entry queries scan into; date comes back as text.
type entryRow struct {
	ID        int64
	UserID    int64
	Date      string
	EnteredAt time.Time
	Meal      string
	Calories  int
	Protein   int
	Fat       int
	Carbs     int
}

func (r entryRow) toEntity() nutrition.Entry {
	return nutrition.Entry{
		ID:        r.ID,
		UserID:    r.UserID,
		Date:      parseDate(r.Date),
		EnteredAt: r.EnteredAt,
		Meal:      r.Meal,
		Macros:    nutrition.Macros{Calories: r.Calories, Protein: r.Protein, Fat: r.Fat, Carbs: r.Carbs},
	}
}

type sumRow struct {
	Date     string
	Count    int64
	Calories int
	Protein  int
	Fat      int
	Carbs    int
}

func (r sumRow) macros() nutrition.Macros {
	return nutrition.Macros{Calories: r.Calories, Protein: r.Protein, Fat: r.Fat, Carbs: r.Carbs}
}

const entrySelect = `nutrition.id, nutrition.user_id, nutrition.date, nutrition.entered_at,
	COALESCE(meals.name, '') AS meal,
	nutrition.calories, nutrition.protein, nutrition.fat, nutrition.carbs`

const sumSelect = `COUNT(nutrition.id) AS count,
	COALESCE(SUM(nutrition.calories), 0) AS calories, COALESCE(SUM(nutrition.protein), 0) AS protein,
	COALESCE(SUM(nutrition.fat), 0) AS fat, COALESCE(SUM(nutrition.carbs), 0) AS carbs`

func formatDate(t time.Time) string {
	return t.Format(nutrition.DateLayout)
}

// parseDate reads the leading YYYY-MM-DD of a stored date; drivers may hand
// back either the bare text or a full timestamp.
func parseDate(s string) time.Time {
	if len(s) > len(nutrition.DateLayout) {
		s = s[:len(nutrition.DateLayout)]
	}
	t, _ := time.Parse(nutrition.DateLayout, s)
	return t
}

// transaction runs fn in a single transaction with metrics and tracing
func (s *Store) transaction(ctx context.Context, op string, fn func(tx *gorm.DB) error) (err error) {
	ctx, span := s.tracing.StartDBSpan(ctx, op)
	start := time.Now()
	defer func() {
		s.metrics.DBQuery(op, time.Since(start), err)
		monitoring.RecordError(span, err)
		span.End()
	}()

	err = s.db.WithContext(ctx).Transaction(fn)
	if err == nil {
		return nil
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	s.logger.Error("Database operation failed", zap.String("operation", op), zap.Error(err))
	return apperrors.NewDatabaseError(op, err)
}

// Ping verifies the database is reachable
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func userID(tx *gorm.DB, username string) (int64, bool, error) {
	var u UserModel
	err := tx.Select("id").Where("username = ?", username).Take(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return u.ID, true, nil
}

// FindLogin reports whether username exists and password matches its hash
func (s *Store) FindLogin(ctx context.Context, username, password string) (bool, error) {
	var u UserModel
	found := false
	err := s.transaction(ctx, "find_login", func(tx *gorm.DB) error {
		err := tx.Where("username = ?", username).Take(&u).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		found = err == nil
		return err
	})
	if err != nil || !found {
		return false, err
	}
	return user.PasswordMatches(u.HashedPwd, password), nil
}

// GetUserID looks up a user id; ok is false when the user does not exist
func (s *Store) GetUserID(ctx context.Context, username string) (id int64, ok bool, err error) {
	err = s.transaction(ctx, "get_user_id", func(tx *gorm.DB) error {
		id, ok, err = userID(tx, username)
		return err
	})
	return id, ok, err
}

// CreateUser inserts the account and its target row together
func (s *Store) CreateUser(ctx context.Context, u *user.User, target nutrition.Macros) (int64, error) {
	model := UserModel{Username: u.Username(), HashedPwd: u.PasswordHash(), CreatedAt: u.CreatedAt()}
	err := s.transaction(ctx, "create_user", func(tx *gorm.DB) error {
		if _, exists, err := userID(tx, u.Username()); err != nil {
			return err
		} else if exists {
			return apperrors.NewUsernameAlreadyExistsError(u.Username())
		}

		if err := tx.Create(&model).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperrors.NewUsernameAlreadyExistsError(u.Username())
			}
			return err
		}
		return tx.Create(&TargetModel{
			UserID:   model.ID,
			Calories: target.Calories,
			Protein:  target.Protein,
			Fat:      target.Fat,
			Carbs:    target.Carbs,
		}).Error
	})
	if err != nil {
		return 0, err
	}
	return model.ID, nil
}

// GetUserTargets returns the user's target, or nil when absent
func (s *Store) GetUserTargets(ctx context.Context, username string) (*nutrition.Target, error) {
	var target *nutrition.Target
	err := s.transaction(ctx, "get_user_targets", func(tx *gorm.DB) error {
		var m TargetModel
		err := tx.Joins("JOIN users ON users.id = targets.user_id").
			Where("users.username = ?", username).
			Take(&m).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		target = &nutrition.Target{
			ID:     m.ID,
			UserID: m.UserID,
			Macros: nutrition.Macros{Calories: m.Calories, Protein: m.Protein, Fat: m.Fat, Carbs: m.Carbs},
		}
		return nil
	})
	return target, err
}

// UpdateUserTargets overwrites the user's single target row
func (s *Store) UpdateUserTargets(ctx context.Context, username string, target nutrition.Macros) error {
	return s.transaction(ctx, "update_user_targets", func(tx *gorm.DB) error {
		uid, ok, err := userID(tx, username)
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.NewUserNotFoundError(username)
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"calories", "protein", "fat", "carbs"}),
		}).Create(&TargetModel{
			UserID:   uid,
			Calories: target.Calories,
			Protein:  target.Protein,
			Fat:      target.Fat,
			Carbs:    target.Carbs,
		}).Error
	})
}

func (s *Store) daySum(tx *gorm.DB, username string, date time.Time) (sumRow, error) {
	var row sumRow
	err := tx.Model(&NutritionModel{}).
		Select(sumSelect).
		Joins("JOIN users ON users.id = nutrition.user_id").
		Where("users.username = ? AND nutrition.date = ?", username, formatDate(date)).
		Scan(&row).Error
	return row, err
}

// DailyTotalNutrition sums the user's entries for date; nil when there are none
func (s *Store) DailyTotalNutrition(ctx context.Context, username string, date time.Time) (*nutrition.Macros, error) {
	var total *nutrition.Macros
	err := s.transaction(ctx, "daily_total_nutrition", func(tx *gorm.DB) error {
		row, err := s.daySum(tx, username, date)
		if err != nil || row.Count == 0 {
			return err
		}
		m := row.macros()
		total = &m
		return nil
	})
	return total, err
}

// GetNutritionLeft returns target minus consumed for date; nil when the day
// has no entries or the user has no target.
func (s *Store) GetNutritionLeft(ctx context.Context, username string, date time.Time) (*nutrition.Macros, error) {
	var left *nutrition.Macros
	err := s.transaction(ctx, "get_nutrition_left", func(tx *gorm.DB) error {
		row, err := s.daySum(tx, username, date)
		if err != nil || row.Count == 0 {
			return err
		}

		var target TargetModel
		err = tx.Joins("JOIN users ON users.id = targets.user_id").
			Where("users.username = ?", username).
			Take(&target).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		goal := nutrition.Macros{Calories: target.Calories, Protein: target.Protein, Fat: target.Fat, Carbs: target.Carbs}
		m := goal.Sub(row.macros())
		left = &m
		return nil
	})
	return left, err
}

// GetDailyNutrition lists the user's entries for date, newest first
func (s *Store) GetDailyNutrition(ctx context.Context, username string, date time.Time) ([]nutrition.Entry, error) {
	entries := []nutrition.Entry{}
	err := s.transaction(ctx, "get_daily_nutrition", func(tx *gorm.DB) error {
		var rows []entryRow
		err := tx.Model(&NutritionModel{}).
			Select(entrySelect).
			Joins("JOIN users ON users.id = nutrition.user_id").
			Joins("LEFT JOIN meals ON meals.id = nutrition.meal_id").
			Where("users.username = ? AND nutrition.date = ?", username, formatDate(date)).
			Order("nutrition.entered_at DESC, nutrition.id DESC").
			Scan(&rows).Error
		for _, r := range rows {
			entries = append(entries, r.toEntity())
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// GetUserAllNutrition returns one aggregate per logged date, newest first
func (s *Store) GetUserAllNutrition(ctx context.Context, username string) ([]nutrition.DailyTotal, error) {
	days := []nutrition.DailyTotal{}
	err := s.transaction(ctx, "get_user_all_nutrition", func(tx *gorm.DB) error {
		var rows []sumRow
		err := tx.Model(&NutritionModel{}).
			Select("nutrition.date AS date, "+sumSelect).
			Joins("JOIN users ON users.id = nutrition.user_id").
			Where("users.username = ?", username).
			Group("nutrition.date").
			Order("nutrition.date DESC").
			Scan(&rows).Error
		for _, r := range rows {
			days = append(days, nutrition.DailyTotal{Date: parseDate(r.Date), Macros: r.macros()})
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return days, nil
}

// AddNutritionEntry inserts one entry, resolving the meal name to the
// user's meal and creating it when missing.
func (s *Store) AddNutritionEntry(ctx context.Context, date time.Time, username string, m nutrition.Macros, meal string) (int64, error) {
	model := NutritionModel{
		Date:      formatDate(date),
		EnteredAt: time.Now().UTC(),
		Calories:  m.Calories,
		Protein:   m.Protein,
		Fat:       m.Fat,
		Carbs:     m.Carbs,
	}
	err := s.transaction(ctx, "add_nutrition_entry", func(tx *gorm.DB) error {
		uid, ok, err := userID(tx, username)
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.NewUserNotFoundError(username)
		}

		model.UserID = uid
		if model.MealID, err = resolveMeal(tx, uid, meal); err != nil {
			return err
		}
		return tx.Create(&model).Error
	})
	if err != nil {
		return 0, err
	}
	return model.ID, nil
}

func (s *Store) findEntry(ctx context.Context, op string, scope func(tx *gorm.DB) *gorm.DB) (*nutrition.Entry, error) {
	var entry *nutrition.Entry
	err := s.transaction(ctx, op, func(tx *gorm.DB) error {
		var rows []entryRow
		err := scope(tx.Model(&NutritionModel{}).
			Select(entrySelect).
			Joins("LEFT JOIN meals ON meals.id = nutrition.meal_id")).
			Limit(1).
			Scan(&rows).Error
		if err != nil || len(rows) == 0 {
			return err
		}
		e := rows[0].toEntity()
		entry = &e
		return nil
	})
	return entry, err
}

// FindNutritionEntryByID returns the entry or nil when absent
func (s *Store) FindNutritionEntryByID(ctx context.Context, id int64) (*nutrition.Entry, error) {
	return s.findEntry(ctx, "find_nutrition_entry_by_id", func(tx *gorm.DB) *gorm.DB {
		return tx.Where("nutrition.id = ?", id)
	})
}

// FindUserNutritionEntry returns the entry only if it belongs to username
func (s *Store) FindUserNutritionEntry(ctx context.Context, username string, id int64) (*nutrition.Entry, error) {
	return s.findEntry(ctx, "find_user_nutrition_entry", func(tx *gorm.DB) *gorm.DB {
		return tx.Joins("JOIN users ON users.id = nutrition.user_id").
			Where("nutrition.id = ? AND users.username = ?", id, username)
	})
}

// UpdateNutritionEntry overwrites the macros and meal of an entry
func (s *Store) UpdateNutritionEntry(ctx context.Context, id int64, m nutrition.Macros, meal string) error {
	return s.transaction(ctx, "update_nutrition_entry", func(tx *gorm.DB) error {
		var entry NutritionModel
		err := tx.Take(&entry, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NewEntryNotFoundError(id)
		}
		if err != nil {
			return err
		}

		mealID, err := resolveMeal(tx, entry.UserID, meal)
		if err != nil {
			return err
		}

		return tx.Model(&entry).Select("meal_id", "calories", "protein", "fat", "carbs").Updates(NutritionModel{
			MealID:   mealID,
			Calories: m.Calories,
			Protein:  m.Protein,
			Fat:      m.Fat,
			Carbs:    m.Carbs,
		}).Error
	})
}

// DeleteNutritionEntry removes one entry
func (s *Store) DeleteNutritionEntry(ctx context.Context, id int64) error {
	return s.transaction(ctx, "delete_nutrition_entry", func(tx *gorm.DB) error {
		result := tx.Delete(&NutritionModel{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperrors.NewEntryNotFoundError(id)
		}
		return nil
	})
}

// GetAllNutritionEntryIDs lists the ids of every entry the user owns
func (s *Store) GetAllNutritionEntryIDs(ctx context.Context, username string) ([]int64, error) {
	ids := []int64{}
	err := s.transaction(ctx, "get_all_nutrition_entry_ids", func(tx *gorm.DB) error {
		return tx.Model(&NutritionModel{}).
			Joins("JOIN users ON users.id = nutrition.user_id").
			Where("users.username = ?", username).
			Order("nutrition.id").
			Pluck("nutrition.id", &ids).Error
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// resolveMeal returns the id of the user's meal called name, creating it when
// missing. An empty name maps to no meal.
func resolveMeal(tx *gorm.DB, userID int64, name string) (*int64, error) {
	if name == "" {
		return nil, nil
	}

	var meal MealModel
	err := tx.Where("user_id = ? AND name = ?", userID, name).Order("id").Take(&meal).Error
	if err == nil {
		return &meal.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	meal = MealModel{UserID: userID, Name: name}
	if err := tx.Create(&meal).Error; err != nil {
		return nil, err
	}
	return &meal.ID, nil
}

// AddMeal creates a meal for username
func (s *Store) AddMeal(ctx context.Context, username, name string) (int64, error) {
	var meal MealModel
	err := s.transaction(ctx, "add_meal", func(tx *gorm.DB) error {
		uid, ok, err := userID(tx, username)
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.NewUserNotFoundError(username)
		}
		meal = MealModel{UserID: uid, Name: name}
		return tx.Create(&meal).Error
	})
	if err != nil {
		return 0, err
	}
	return meal.ID, nil
}

// UpdateMeal renames a meal
func (s *Store) UpdateMeal(ctx context.Context, id int64, name string) error {
	return s.transaction(ctx, "update_meal", func(tx *gorm.DB) error {
		result := tx.Model(&MealModel{}).Where("id = ?", id).Update("name", name)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperrors.NewMealNotFoundError(id)
		}
		return nil
	})
}

// DeleteMeal removes a meal and detaches the entries that referenced it
func (s *Store) DeleteMeal(ctx context.Context, id int64) error {
	return s.transaction(ctx, "delete_meal", func(tx *gorm.DB) error {
		if err := tx.Model(&NutritionModel{}).Where("meal_id = ?", id).Update("meal_id", nil).Error; err != nil {
			return err
		}
		result := tx.Delete(&MealModel{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperrors.NewMealNotFoundError(id)
		}
		return nil
	})
}

// GetUserMeals lists the user's meals by name
func (s *Store) GetUserMeals(ctx context.Context, username string) ([]nutrition.Meal, error) {
	meals := []nutrition.Meal{}
	err := s.transaction(ctx, "get_user_meals", func(tx *gorm.DB) error {
		var models []MealModel
		err := tx.Joins("JOIN users ON users.id = meals.user_id").
			Where("users.username = ?", username).
			Order("meals.name, meals.id").
			Find(&models).Error
		for _, m := range models {
			meals = append(meals, nutrition.Meal{ID: m.ID, UserID: m.UserID, Name: m.Name})
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return meals, nil
}

// FindMealByID returns the meal or nil when absent
func (s *Store) FindMealByID(ctx context.Context, id int64) (*nutrition.Meal, error) {
	var meal *nutrition.Meal
	err := s.transaction(ctx, "find_meal_by_id", func(tx *gorm.DB) error {
		var m MealModel
		err := tx.Take(&m, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		meal = &nutrition.Meal{ID: m.ID, UserID: m.UserID, Name: m.Name}
		return nil
	})
	return meal, err
}

// GetAllMealNames lists the names of the user's meals
func (s *Store) GetAllMealNames(ctx context.Context, username string) ([]string, error) {
	return s.mealNames(ctx, "get_all_meal_names", username, 0)
}

// GetAllMealNamesExcept lists the user's meal names other than mealID's
func (s *Store) GetAllMealNamesExcept(ctx context.Context, username string, mealID int64) ([]string, error) {
	return s.mealNames(ctx, "get_all_meal_names_except", username, mealID)
}

func (s *Store) mealNames(ctx context.Context, op, username string, exclude int64) ([]string, error) {
	names := []string{}
	err := s.transaction(ctx, op, func(tx *gorm.DB) error {
		return tx.Model(&MealModel{}).
			Joins("JOIN users ON users.id = meals.user_id").
			Where("users.username = ? AND meals.id <> ?", username, exclude).
			Order("meals.name").
			Pluck("meals.name", &names).Error
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// GetAllMealIDs lists the ids of the user's meals
func (s *Store) GetAllMealIDs(ctx context.Context, username string) ([]int64, error) {
	ids := []int64{}
	err := s.transaction(ctx, "get_all_meal_ids", func(tx *gorm.DB) error {
		return tx.Model(&MealModel{}).
			Joins("JOIN users ON users.id = meals.user_id").
			Where("users.username = ?", username).
			Order("meals.id").
			Pluck("meals.id", &ids).Error
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}
