package gorm_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/macromojo/macromojo/internal/domain/nutrition"
	gormstore "github.com/macromojo/macromojo/internal/infrastructure/persistence/gorm"
	"github.com/macromojo/macromojo/internal/infrastructure/persistence/sqlite"
	apperrors "github.com/macromojo/macromojo/pkg/errors"
	"github.com/macromojo/macromojo/test/testutils"
)

// StoreTestSuite runs the GORM store against an in-memory SQLite database
type StoreTestSuite struct {
	suite.Suite
	store   *gormstore.Store
	factory *testutils.JournalFactory
	ctx     context.Context
}

func (s *StoreTestSuite) SetupTest() {
	db, err := sqlite.SetupDatabase(sqlite.InMemory, zap.NewNop(), "silent")
	require.NoError(s.T(), err)
	s.T().Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	s.store = gormstore.NewStore(db, zap.NewNop(), nil, nil)
	s.factory = testutils.NewJournalFactory(42)
	s.ctx = context.Background()
}

func (s *StoreTestSuite) createUser(password string) string {
	u := s.factory.User(password)
	_, err := s.store.CreateUser(s.ctx, u, nutrition.DefaultTarget)
	require.NoError(s.T(), err)
	return u.Username()
}

func (s *StoreTestSuite) TestPing() {
	assert.NoError(s.T(), s.store.Ping(s.ctx))
}

func (s *StoreTestSuite) TestFindLogin() {
	username := s.createUser("hungry123")

	ok, err := s.store.FindLogin(s.ctx, username, "hungry123")
	require.NoError(s.T(), err)
	assert.True(s.T(), ok)

	ok, err = s.store.FindLogin(s.ctx, username, "hungry124")
	require.NoError(s.T(), err)
	assert.False(s.T(), ok)

	ok, err = s.store.FindLogin(s.ctx, "nobody_here", "hungry123")
	require.NoError(s.T(), err)
	assert.False(s.T(), ok)
}

func (s *StoreTestSuite) TestCreateUser_DuplicateUsername_ShouldFail() {
	u := s.factory.User("hungry123")
	_, err := s.store.CreateUser(s.ctx, u, nutrition.DefaultTarget)
	require.NoError(s.T(), err)

	_, err = s.store.CreateUser(s.ctx, u, nutrition.DefaultTarget)

	assert.True(s.T(), apperrors.Is(err, apperrors.CodeUsernameAlreadyExists))
}

func (s *StoreTestSuite) TestGetUserID_UnknownUser_ShouldBeAbsent() {
	id, ok, err := s.store.GetUserID(s.ctx, "nobody_here")

	require.NoError(s.T(), err)
	assert.False(s.T(), ok)
	assert.Zero(s.T(), id)
}

func (s *StoreTestSuite) TestTargets() {
	username := s.createUser("hungry123")

	target, err := s.store.GetUserTargets(s.ctx, username)
	require.NoError(s.T(), err)
	require.NotNil(s.T(), target)
	assert.Equal(s.T(), nutrition.DefaultTarget, target.Macros)

	updated := nutrition.Macros{Calories: 1800, Protein: 160, Fat: 60, Carbs: 150}
	require.NoError(s.T(), s.store.UpdateUserTargets(s.ctx, username, updated))

	target, err = s.store.GetUserTargets(s.ctx, username)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), updated, target.Macros)

	missing, err := s.store.GetUserTargets(s.ctx, "nobody_here")
	require.NoError(s.T(), err)
	assert.Nil(s.T(), missing)

	err = s.store.UpdateUserTargets(s.ctx, "nobody_here", updated)
	assert.True(s.T(), apperrors.Is(err, apperrors.CodeUserNotFound))
}

func (s *StoreTestSuite) TestDailyAggregates_WithEntries() {
	// Arrange
	username := s.createUser("hungry123")
	date := testutils.MustDate("2025-06-24")
	_, err := s.store.AddNutritionEntry(s.ctx, date, username, nutrition.Macros{Calories: 500, Protein: 40, Fat: 20, Carbs: 30}, "chicken bowl")
	require.NoError(s.T(), err)
	_, err = s.store.AddNutritionEntry(s.ctx, date, username, nutrition.Macros{Calories: 200, Protein: 10, Fat: 5, Carbs: 20}, "")
	require.NoError(s.T(), err)

	// Act
	total, err := s.store.DailyTotalNutrition(s.ctx, username, date)
	require.NoError(s.T(), err)
	left, err := s.store.GetNutritionLeft(s.ctx, username, date)
	require.NoError(s.T(), err)

	// Assert
	require.NotNil(s.T(), total)
	assert.Equal(s.T(), nutrition.Macros{Calories: 700, Protein: 50, Fat: 25, Carbs: 50}, *total)
	require.NotNil(s.T(), left)
	assert.Equal(s.T(), nutrition.Macros{Calories: 1300, Protein: 100, Fat: 45, Carbs: 150}, *left)
}

func (s *StoreTestSuite) TestDailyAggregates_EmptyDay_ShouldBeAbsent() {
	username := s.createUser("hungry123")
	date := testutils.MustDate("2025-06-24")

	total, err := s.store.DailyTotalNutrition(s.ctx, username, date)
	require.NoError(s.T(), err)
	assert.Nil(s.T(), total)

	left, err := s.store.GetNutritionLeft(s.ctx, username, date)
	require.NoError(s.T(), err)
	assert.Nil(s.T(), left)

	entries, err := s.store.GetDailyNutrition(s.ctx, username, date)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), entries)
}

func (s *StoreTestSuite) TestNutritionLeft_CanGoNegative() {
	username := s.createUser("hungry123")
	date := testutils.MustDate("2025-06-24")
	_, err := s.store.AddNutritionEntry(s.ctx, date, username, nutrition.Macros{Calories: 2500, Protein: 10, Fat: 10, Carbs: 10}, "feast")
	require.NoError(s.T(), err)

	left, err := s.store.GetNutritionLeft(s.ctx, username, date)

	require.NoError(s.T(), err)
	require.NotNil(s.T(), left)
	assert.Equal(s.T(), -500, left.Calories)
}

func (s *StoreTestSuite) TestGetDailyNutrition_ShouldListNewestFirst() {
	username := s.createUser("hungry123")
	date := testutils.MustDate("2025-06-24")

	var ids []int64
	for i := 0; i < 3; i++ {
		id, err := s.store.AddNutritionEntry(s.ctx, date, username, s.factory.Macros(), s.factory.MealName())
		require.NoError(s.T(), err)
		ids = append(ids, id)
		time.Sleep(2 * time.Millisecond)
	}
	// Another day must not leak into the listing
	_, err := s.store.AddNutritionEntry(s.ctx, date.AddDate(0, 0, 1), username, s.factory.Macros(), "")
	require.NoError(s.T(), err)

	entries, err := s.store.GetDailyNutrition(s.ctx, username, date)

	require.NoError(s.T(), err)
	require.Len(s.T(), entries, 3)
	assert.Equal(s.T(), []int64{ids[2], ids[1], ids[0]}, []int64{entries[0].ID, entries[1].ID, entries[2].ID})
	assert.Equal(s.T(), "2025-06-24", entries[0].DateString())
}

func (s *StoreTestSuite) TestGetUserAllNutrition_ShouldGroupByDateNewestFirst() {
	username := s.createUser("hungry123")
	first := testutils.MustDate("2025-06-23")
	second := testutils.MustDate("2025-06-24")
	for _, d := range []time.Time{first, second, second} {
		_, err := s.store.AddNutritionEntry(s.ctx, d, username, nutrition.Macros{Calories: 100, Protein: 1, Fat: 2, Carbs: 3}, "")
		require.NoError(s.T(), err)
	}

	days, err := s.store.GetUserAllNutrition(s.ctx, username)

	require.NoError(s.T(), err)
	require.Len(s.T(), days, 2)
	assert.Equal(s.T(), "2025-06-24", days[0].DateString())
	assert.Equal(s.T(), 200, days[0].Calories)
	assert.Equal(s.T(), "2025-06-23", days[1].DateString())
	assert.Equal(s.T(), 100, days[1].Calories)
}

func (s *StoreTestSuite) TestEntryLifecycle() {
	// Arrange
	username := s.createUser("hungry123")
	other := s.createUser("hungry123")
	date := testutils.MustDate("2025-06-24")
	id, err := s.store.AddNutritionEntry(s.ctx, date, username, nutrition.Macros{Calories: 500, Protein: 40, Fat: 20, Carbs: 30}, "chicken bowl")
	require.NoError(s.T(), err)

	// Act & Assert: lookups
	entry, err := s.store.FindNutritionEntryByID(s.ctx, id)
	require.NoError(s.T(), err)
	require.NotNil(s.T(), entry)
	assert.Equal(s.T(), "chicken bowl", entry.Meal)

	owned, err := s.store.FindUserNutritionEntry(s.ctx, username, id)
	require.NoError(s.T(), err)
	assert.NotNil(s.T(), owned)

	foreign, err := s.store.FindUserNutritionEntry(s.ctx, other, id)
	require.NoError(s.T(), err)
	assert.Nil(s.T(), foreign)

	ids, err := s.store.GetAllNutritionEntryIDs(s.ctx, username)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), []int64{id}, ids)

	// Act & Assert: update resolves a new meal name
	require.NoError(s.T(), s.store.UpdateNutritionEntry(s.ctx, id, nutrition.Macros{Calories: 450, Protein: 40, Fat: 15, Carbs: 30}, "rice bowl"))
	entry, err = s.store.FindNutritionEntryByID(s.ctx, id)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "rice bowl", entry.Meal)
	assert.Equal(s.T(), 450, entry.Calories)

	names, err := s.store.GetAllMealNames(s.ctx, username)
	require.NoError(s.T(), err)
	assert.ElementsMatch(s.T(), []string{"chicken bowl", "rice bowl"}, names)

	// Act & Assert: delete
	require.NoError(s.T(), s.store.DeleteNutritionEntry(s.ctx, id))
	entry, err = s.store.FindNutritionEntryByID(s.ctx, id)
	require.NoError(s.T(), err)
	assert.Nil(s.T(), entry)

	err = s.store.DeleteNutritionEntry(s.ctx, id)
	assert.True(s.T(), apperrors.Is(err, apperrors.CodeEntryNotFound))
	err = s.store.UpdateNutritionEntry(s.ctx, id, nutrition.Macros{}, "")
	assert.True(s.T(), apperrors.Is(err, apperrors.CodeEntryNotFound))
}

func (s *StoreTestSuite) TestAddNutritionEntry_UnknownUser_ShouldFail() {
	_, err := s.store.AddNutritionEntry(s.ctx, testutils.MustDate("2025-06-24"), "nobody_here", nutrition.Macros{}, "")

	assert.True(s.T(), apperrors.Is(err, apperrors.CodeUserNotFound))
}

func (s *StoreTestSuite) TestAddNutritionEntry_SameMealTwice_ShouldReuseMeal() {
	username := s.createUser("hungry123")
	date := testutils.MustDate("2025-06-24")
	for i := 0; i < 2; i++ {
		_, err := s.store.AddNutritionEntry(s.ctx, date, username, s.factory.Macros(), "oatmeal")
		require.NoError(s.T(), err)
	}

	meals, err := s.store.GetUserMeals(s.ctx, username)

	require.NoError(s.T(), err)
	require.Len(s.T(), meals, 1)
	assert.Equal(s.T(), "oatmeal", meals[0].Name)
}

func (s *StoreTestSuite) TestMealLifecycle() {
	username := s.createUser("hungry123")

	id, err := s.store.AddMeal(s.ctx, username, "greek yogurt")
	require.NoError(s.T(), err)
	otherID, err := s.store.AddMeal(s.ctx, username, "apple")
	require.NoError(s.T(), err)

	meal, err := s.store.FindMealByID(s.ctx, id)
	require.NoError(s.T(), err)
	require.NotNil(s.T(), meal)
	assert.Equal(s.T(), "greek yogurt", meal.Name)

	except, err := s.store.GetAllMealNamesExcept(s.ctx, username, id)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), []string{"apple"}, except)

	ids, err := s.store.GetAllMealIDs(s.ctx, username)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), []int64{id, otherID}, ids)

	require.NoError(s.T(), s.store.UpdateMeal(s.ctx, id, "skyr"))
	meal, err = s.store.FindMealByID(s.ctx, id)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "skyr", meal.Name)

	require.NoError(s.T(), s.store.DeleteMeal(s.ctx, id))
	meal, err = s.store.FindMealByID(s.ctx, id)
	require.NoError(s.T(), err)
	assert.Nil(s.T(), meal)

	assert.True(s.T(), apperrors.Is(s.store.UpdateMeal(s.ctx, id, "x1"), apperrors.CodeMealNotFound))
	assert.True(s.T(), apperrors.Is(s.store.DeleteMeal(s.ctx, id), apperrors.CodeMealNotFound))

	_, err = s.store.AddMeal(s.ctx, "nobody_here", "toast")
	assert.True(s.T(), apperrors.Is(err, apperrors.CodeUserNotFound))
}

func (s *StoreTestSuite) TestDeleteMeal_ShouldKeepEntryNumbers() {
	username := s.createUser("hungry123")
	date := testutils.MustDate("2025-06-24")
	entryID, err := s.store.AddNutritionEntry(s.ctx, date, username, nutrition.Macros{Calories: 300, Protein: 20, Fat: 10, Carbs: 25}, "toast")
	require.NoError(s.T(), err)
	meals, err := s.store.GetUserMeals(s.ctx, username)
	require.NoError(s.T(), err)
	require.Len(s.T(), meals, 1)

	require.NoError(s.T(), s.store.DeleteMeal(s.ctx, meals[0].ID))

	entry, err := s.store.FindNutritionEntryByID(s.ctx, entryID)
	require.NoError(s.T(), err)
	require.NotNil(s.T(), entry)
	assert.Empty(s.T(), entry.Meal)
	assert.Equal(s.T(), 300, entry.Calories)
}

func (s *StoreTestSuite) TestIDLists_UnknownUser_ShouldBeEmptyNotNil() {
	entryIDs, err := s.store.GetAllNutritionEntryIDs(s.ctx, "nobody_here")
	require.NoError(s.T(), err)
	assert.NotNil(s.T(), entryIDs)
	assert.Empty(s.T(), entryIDs)

	mealIDs, err := s.store.GetAllMealIDs(s.ctx, "nobody_here")
	require.NoError(s.T(), err)
	assert.NotNil(s.T(), mealIDs)
	assert.Empty(s.T(), mealIDs)
}

func TestStoreTestSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}
