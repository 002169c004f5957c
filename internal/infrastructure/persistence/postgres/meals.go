package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/macromojo/macromojo/internal/domain/nutrition"
	apperrors "github.com/macromojo/macromojo/pkg/errors"
)

// AddMeal creates a meal for username
func (g *Gateway) AddMeal(ctx context.Context, username, name string) (int64, error) {
	var id int64
	err := g.withTx(ctx, "add_meal", func(ctx context.Context, tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO meals (user_id, name)
			SELECT id, $2 FROM users WHERE username = $1
			RETURNING id`, username, name).Scan(&id)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewUserNotFoundError(username)
		}
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// UpdateMeal renames a meal
func (g *Gateway) UpdateMeal(ctx context.Context, id int64, name string) error {
	return g.withTx(ctx, "update_meal", func(ctx context.Context, tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE meals SET name = $2 WHERE id = $1`, id, name)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return apperrors.NewMealNotFoundError(id)
		}
		return nil
	})
}

// DeleteMeal removes a meal; entries that referenced it keep their numbers
// and lose the meal name.
func (g *Gateway) DeleteMeal(ctx context.Context, id int64) error {
	return g.withTx(ctx, "delete_meal", func(ctx context.Context, tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM meals WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return apperrors.NewMealNotFoundError(id)
		}
		return nil
	})
}

// GetUserMeals lists the user's meals by name
func (g *Gateway) GetUserMeals(ctx context.Context, username string) ([]nutrition.Meal, error) {
	var meals []nutrition.Meal
	err := g.withTx(ctx, "get_user_meals", func(ctx context.Context, tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT m.id, m.user_id, m.name
			FROM meals m
			JOIN users u ON u.id = m.user_id
			WHERE u.username = $1
			ORDER BY m.name, m.id`, username)
		if err != nil {
			return err
		}
		meals, err = pgx.CollectRows(rows, pgx.RowToStructByName[nutrition.Meal])
		return err
	})
	return meals, err
}

// FindMealByID returns the meal or nil when absent
func (g *Gateway) FindMealByID(ctx context.Context, id int64) (*nutrition.Meal, error) {
	var meal *nutrition.Meal
	err := g.withTx(ctx, "find_meal_by_id", func(ctx context.Context, tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `SELECT id, user_id, name FROM meals WHERE id = $1`, id)
		if err != nil {
			return err
		}
		meal, err = collectOne[nutrition.Meal](rows)
		return err
	})
	return meal, err
}

// GetAllMealNames lists the names of the user's meals
func (g *Gateway) GetAllMealNames(ctx context.Context, username string) ([]string, error) {
	return g.mealNames(ctx, "get_all_meal_names", username, 0)
}

// GetAllMealNamesExcept lists the user's meal names other than mealID's
func (g *Gateway) GetAllMealNamesExcept(ctx context.Context, username string, mealID int64) ([]string, error) {
	return g.mealNames(ctx, "get_all_meal_names_except", username, mealID)
}

func (g *Gateway) mealNames(ctx context.Context, op, username string, exclude int64) ([]string, error) {
	var names []string
	err := g.withTx(ctx, op, func(ctx context.Context, tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT m.name
			FROM meals m
			JOIN users u ON u.id = m.user_id
			WHERE u.username = $1 AND m.id <> $2
			ORDER BY m.name`, username, exclude)
		if err != nil {
			return err
		}
		names, err = pgx.CollectRows(rows, pgx.RowTo[string])
		return err
	})
	return names, err
}

// GetAllMealIDs lists the ids of the user's meals
func (g *Gateway) GetAllMealIDs(ctx context.Context, username string) ([]int64, error) {
	var ids []int64
	err := g.withTx(ctx, "get_all_meal_ids", func(ctx context.Context, tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT m.id
			FROM meals m
			JOIN users u ON u.id = m.user_id
			WHERE u.username = $1
			ORDER BY m.id`, username)
		if err != nil {
			return err
		}
		ids, err = pgx.CollectRows(rows, pgx.RowTo[int64])
		return err
	})
	return ids, err
}
