//go:build integration

package gorm_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/macromojo/macromojo/internal/domain/nutrition"
	gormstore "github.com/macromojo/macromojo/internal/infrastructure/persistence/gorm"
	"github.com/macromojo/macromojo/test/testutils"
)

// The GORM store must read the schema created by the SQL migrations,
// where date is a real DATE column.
func TestStore_AgainstMigratedPostgres(t *testing.T) {
	// Arrange
	tdb := testutils.SetupTestDatabase(t)
	ctx := context.Background()
	db, err := gormstore.OpenPostgres(ctx, tdb.DSN, zap.NewNop(), "silent")
	require.NoError(t, err)
	store := gormstore.NewStore(db, zap.NewNop(), nil, nil)
	factory := testutils.NewJournalFactory(7)

	u := factory.User("hungry123")
	_, err = store.CreateUser(ctx, u, nutrition.DefaultTarget)
	require.NoError(t, err)
	date := testutils.MustDate("2025-06-24")

	// Act
	id, err := store.AddNutritionEntry(ctx, date, u.Username(), nutrition.Macros{Calories: 500, Protein: 40, Fat: 20, Carbs: 30}, "chicken bowl")
	require.NoError(t, err)
	entries, err := store.GetDailyNutrition(ctx, u.Username(), date)
	require.NoError(t, err)
	days, err := store.GetUserAllNutrition(ctx, u.Username())
	require.NoError(t, err)
	left, err := store.GetNutritionLeft(ctx, u.Username(), date)
	require.NoError(t, err)

	// Assert
	require.Len(t, entries, 1)
	assert.Equal(t, id, entries[0].ID)
	assert.Equal(t, "2025-06-24", entries[0].DateString())
	assert.Equal(t, "chicken bowl", entries[0].Meal)
	require.Len(t, days, 1)
	assert.Equal(t, "2025-06-24", days[0].DateString())
	require.NotNil(t, left)
	assert.Equal(t, 1500, left.Calories)
}
