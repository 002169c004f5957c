package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/macromojo/macromojo/internal/domain/nutrition"
	"github.com/macromojo/macromojo/internal/domain/user"
	apperrors "github.com/macromojo/macromojo/pkg/errors"
)

// FindLogin reports whether username exists and password matches its hash.
// Unknown users and wrong passwords both yield false without an error.
func (g *Gateway) FindLogin(ctx context.Context, username, password string) (bool, error) {
	var hash string
	found := false
	err := g.withTx(ctx, "find_login", func(ctx context.Context, tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `SELECT hashed_pwd FROM users WHERE username = $1`, username).Scan(&hash)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		found = err == nil
		return err
	})
	if err != nil || !found {
		return false, err
	}
	return user.PasswordMatches(hash, password), nil
}

// GetUserID looks up a user id; ok is false when the user does not exist
func (g *Gateway) GetUserID(ctx context.Context, username string) (id int64, ok bool, err error) {
	err = g.withTx(ctx, "get_user_id", func(ctx context.Context, tx pgx.Tx) error {
		id, ok, err = userID(ctx, tx, username)
		return err
	})
	return id, ok, err
}

// CreateUser inserts the account and its target row together
func (g *Gateway) CreateUser(ctx context.Context, u *user.User, target nutrition.Macros) (int64, error) {
	var id int64
	err := g.withTx(ctx, "create_user", func(ctx context.Context, tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO users (username, hashed_pwd, created_at) VALUES ($1, $2, $3) RETURNING id`,
			u.Username(), u.PasswordHash(), u.CreatedAt(),
		).Scan(&id)
		if isUniqueViolation(err) {
			return apperrors.NewUsernameAlreadyExistsError(u.Username())
		}
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO targets (user_id, calories, protein, fat, carbs) VALUES ($1, $2, $3, $4, $5)`,
			id, target.Calories, target.Protein, target.Fat, target.Carbs,
		)
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// GetUserTargets returns the user's target, or nil when absent
func (g *Gateway) GetUserTargets(ctx context.Context, username string) (*nutrition.Target, error) {
	var target *nutrition.Target
	err := g.withTx(ctx, "get_user_targets", func(ctx context.Context, tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT t.id, t.user_id, t.calories, t.protein, t.fat, t.carbs
			FROM targets t
			JOIN users u ON u.id = t.user_id
			WHERE u.username = $1`, username)
		if err != nil {
			return err
		}
		target, err = collectOne[nutrition.Target](rows)
		return err
	})
	return target, err
}

// UpdateUserTargets overwrites the user's single target row
func (g *Gateway) UpdateUserTargets(ctx context.Context, username string, target nutrition.Macros) error {
	return g.withTx(ctx, "update_user_targets", func(ctx context.Context, tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			INSERT INTO targets (user_id, calories, protein, fat, carbs)
			SELECT id, $2, $3, $4, $5 FROM users WHERE username = $1
			ON CONFLICT (user_id) DO UPDATE
			SET calories = EXCLUDED.calories,
			    protein = EXCLUDED.protein,
			    fat = EXCLUDED.fat,
			    carbs = EXCLUDED.carbs`,
			username, target.Calories, target.Protein, target.Fat, target.Carbs,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return apperrors.NewUserNotFoundError(username)
		}
		return nil
	})
}
