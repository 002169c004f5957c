package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/macromojo/macromojo/internal/domain/nutrition"
	apperrors "github.com/macromojo/macromojo/pkg/errors"
)

const entryColumns = `
	n.id, n.user_id, n.date, n.entered_at, COALESCE(m.name, '') AS meal,
	n.calories, n.protein, n.fat, n.carbs`

// DailyTotalNutrition sums the user's entries for date. A day without entries
// yields nil rather than a row of zeros.
func (g *Gateway) DailyTotalNutrition(ctx context.Context, username string, date time.Time) (*nutrition.Macros, error) {
	var total *nutrition.Macros
	err := g.withTx(ctx, "daily_total_nutrition", func(ctx context.Context, tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT SUM(n.calories) AS calories, SUM(n.protein) AS protein,
			       SUM(n.fat) AS fat, SUM(n.carbs) AS carbs
			FROM nutrition n
			JOIN users u ON u.id = n.user_id
			WHERE u.username = $1 AND n.date = $2
			HAVING COUNT(n.id) > 0`, username, date)
		if err != nil {
			return err
		}
		total, err = collectOne[nutrition.Macros](rows)
		return err
	})
	return total, err
}

// GetNutritionLeft returns target minus consumed for date. The date filter
// lives in the join condition so the target row survives the outer join;
// a day without entries still yields nil.
func (g *Gateway) GetNutritionLeft(ctx context.Context, username string, date time.Time) (*nutrition.Macros, error) {
	var left *nutrition.Macros
	err := g.withTx(ctx, "get_nutrition_left", func(ctx context.Context, tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT t.calories - COALESCE(SUM(n.calories), 0) AS calories,
			       t.protein - COALESCE(SUM(n.protein), 0) AS protein,
			       t.fat - COALESCE(SUM(n.fat), 0) AS fat,
			       t.carbs - COALESCE(SUM(n.carbs), 0) AS carbs
			FROM users u
			JOIN targets t ON t.user_id = u.id
			LEFT JOIN nutrition n ON n.user_id = u.id AND n.date = $2
			WHERE u.username = $1
			GROUP BY t.id
			HAVING COUNT(n.id) > 0`, username, date)
		if err != nil {
			return err
		}
		left, err = collectOne[nutrition.Macros](rows)
		return err
	})
	return left, err
}

// GetDailyNutrition lists the user's entries for date, newest first
func (g *Gateway) GetDailyNutrition(ctx context.Context, username string, date time.Time) ([]nutrition.Entry, error) {
	var entries []nutrition.Entry
	err := g.withTx(ctx, "get_daily_nutrition", func(ctx context.Context, tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT`+entryColumns+`
			FROM nutrition n
			JOIN users u ON u.id = n.user_id
			LEFT JOIN meals m ON m.id = n.meal_id
			WHERE u.username = $1 AND n.date = $2
			ORDER BY n.entered_at DESC, n.id DESC`, username, date)
		if err != nil {
			return err
		}
		entries, err = pgx.CollectRows(rows, pgx.RowToStructByName[nutrition.Entry])
		return err
	})
	return entries, err
}

// GetUserAllNutrition returns one aggregate per logged date, newest first
func (g *Gateway) GetUserAllNutrition(ctx context.Context, username string) ([]nutrition.DailyTotal, error) {
	var days []nutrition.DailyTotal
	err := g.withTx(ctx, "get_user_all_nutrition", func(ctx context.Context, tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT n.date AS date,
			       SUM(n.calories) AS calories, SUM(n.protein) AS protein,
			       SUM(n.fat) AS fat, SUM(n.carbs) AS carbs
			FROM nutrition n
			JOIN users u ON u.id = n.user_id
			WHERE u.username = $1
			GROUP BY n.date
			ORDER BY n.date DESC`, username)
		if err != nil {
			return err
		}
		days, err = pgx.CollectRows(rows, pgx.RowToStructByName[nutrition.DailyTotal])
		return err
	})
	return days, err
}

// AddNutritionEntry inserts one entry. The meal name is resolved to the
// user's meal of that name, which is created when missing.
func (g *Gateway) AddNutritionEntry(ctx context.Context, date time.Time, username string, m nutrition.Macros, meal string) (int64, error) {
	var id int64
	err := g.withTx(ctx, "add_nutrition_entry", func(ctx context.Context, tx pgx.Tx) error {
		uid, ok, err := userID(ctx, tx, username)
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.NewUserNotFoundError(username)
		}

		mealID, err := resolveMeal(ctx, tx, uid, meal)
		if err != nil {
			return err
		}

		return tx.QueryRow(ctx, `
			INSERT INTO nutrition (user_id, meal_id, date, calories, protein, fat, carbs)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id`,
			uid, mealID, date, m.Calories, m.Protein, m.Fat, m.Carbs,
		).Scan(&id)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// FindNutritionEntryByID returns the entry or nil when absent
func (g *Gateway) FindNutritionEntryByID(ctx context.Context, id int64) (*nutrition.Entry, error) {
	var entry *nutrition.Entry
	err := g.withTx(ctx, "find_nutrition_entry_by_id", func(ctx context.Context, tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT`+entryColumns+`
			FROM nutrition n
			LEFT JOIN meals m ON m.id = n.meal_id
			WHERE n.id = $1`, id)
		if err != nil {
			return err
		}
		entry, err = collectOne[nutrition.Entry](rows)
		return err
	})
	return entry, err
}

// FindUserNutritionEntry returns the entry only if it belongs to username
func (g *Gateway) FindUserNutritionEntry(ctx context.Context, username string, id int64) (*nutrition.Entry, error) {
	var entry *nutrition.Entry
	err := g.withTx(ctx, "find_user_nutrition_entry", func(ctx context.Context, tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT`+entryColumns+`
			FROM nutrition n
			JOIN users u ON u.id = n.user_id
			LEFT JOIN meals m ON m.id = n.meal_id
			WHERE n.id = $1 AND u.username = $2`, id, username)
		if err != nil {
			return err
		}
		entry, err = collectOne[nutrition.Entry](rows)
		return err
	})
	return entry, err
}

// UpdateNutritionEntry overwrites the macros and meal of an entry
func (g *Gateway) UpdateNutritionEntry(ctx context.Context, id int64, m nutrition.Macros, meal string) error {
	return g.withTx(ctx, "update_nutrition_entry", func(ctx context.Context, tx pgx.Tx) error {
		var uid int64
		err := tx.QueryRow(ctx, `SELECT user_id FROM nutrition WHERE id = $1 FOR UPDATE`, id).Scan(&uid)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewEntryNotFoundError(id)
		}
		if err != nil {
			return err
		}

		mealID, err := resolveMeal(ctx, tx, uid, meal)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			UPDATE nutrition
			SET meal_id = $2, calories = $3, protein = $4, fat = $5, carbs = $6
			WHERE id = $1`,
			id, mealID, m.Calories, m.Protein, m.Fat, m.Carbs,
		)
		return err
	})
}

// DeleteNutritionEntry removes one entry
func (g *Gateway) DeleteNutritionEntry(ctx context.Context, id int64) error {
	return g.withTx(ctx, "delete_nutrition_entry", func(ctx context.Context, tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM nutrition WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return apperrors.NewEntryNotFoundError(id)
		}
		return nil
	})
}

// GetAllNutritionEntryIDs lists the ids of every entry the user owns.
// A user without entries gets an empty, non-nil slice.
func (g *Gateway) GetAllNutritionEntryIDs(ctx context.Context, username string) ([]int64, error) {
	ids := []int64{}
	err := g.withTx(ctx, "get_all_nutrition_entry_ids", func(ctx context.Context, tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT n.id
			FROM nutrition n
			JOIN users u ON u.id = n.user_id
			WHERE u.username = $1
			ORDER BY n.id`, username)
		if err != nil {
			return err
		}
		ids, err = pgx.CollectRows(rows, pgx.RowTo[int64])
		return err
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// resolveMeal returns the id of the user's meal called name, creating it when
// missing. An empty name maps to no meal.
func resolveMeal(ctx context.Context, tx pgx.Tx, userID int64, name string) (*int64, error) {
	if name == "" {
		return nil, nil
	}

	var id int64
	err := tx.QueryRow(ctx,
		`SELECT id FROM meals WHERE user_id = $1 AND name = $2 ORDER BY id LIMIT 1`,
		userID, name,
	).Scan(&id)
	if err == nil {
		return &id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO meals (user_id, name) VALUES ($1, $2) RETURNING id`,
		userID, name,
	).Scan(&id)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
