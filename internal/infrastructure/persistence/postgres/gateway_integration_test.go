//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/macromojo/macromojo/internal/domain/nutrition"
	"github.com/macromojo/macromojo/internal/infrastructure/monitoring"
	"github.com/macromojo/macromojo/internal/infrastructure/persistence/postgres"
	apperrors "github.com/macromojo/macromojo/pkg/errors"
	"github.com/macromojo/macromojo/test/testutils"
)

// GatewayTestSuite runs the gateway against a real PostgreSQL container
type GatewayTestSuite struct {
	suite.Suite
	db      *testutils.TestDatabase
	gateway *postgres.Gateway
	factory *testutils.JournalFactory
	ctx     context.Context
}

func (s *GatewayTestSuite) SetupSuite() {
	s.db = testutils.SetupTestDatabase(s.T())
	s.gateway = postgres.NewGateway(s.db.Pool, zap.NewNop(), monitoring.NewMetricsCollector(zap.NewNop()), nil)
	s.factory = testutils.NewJournalFactory(time.Now().UnixNano())
	s.ctx = context.Background()
}

func (s *GatewayTestSuite) SetupTest() {
	require.NoError(s.T(), s.db.TruncateAllTables())
}

func (s *GatewayTestSuite) createUser(password string) string {
	u := s.factory.User(password)
	_, err := s.gateway.CreateUser(s.ctx, u, nutrition.DefaultTarget)
	require.NoError(s.T(), err)
	return u.Username()
}

func (s *GatewayTestSuite) TestFindLogin() {
	username := s.createUser("hungry123")

	s.Run("CorrectPassword_ShouldMatch", func() {
		ok, err := s.gateway.FindLogin(s.ctx, username, "hungry123")
		require.NoError(s.T(), err)
		assert.True(s.T(), ok)
	})

	s.Run("WrongPassword_ShouldNotMatch", func() {
		ok, err := s.gateway.FindLogin(s.ctx, username, "wrong")
		require.NoError(s.T(), err)
		assert.False(s.T(), ok)
	})

	s.Run("UnknownUser_ShouldNotMatch", func() {
		ok, err := s.gateway.FindLogin(s.ctx, "nobody_here", "hungry123")
		require.NoError(s.T(), err)
		assert.False(s.T(), ok)
	})
}

func (s *GatewayTestSuite) TestCreateUser_DuplicateUsername() {
	u := s.factory.User("hungry123")
	_, err := s.gateway.CreateUser(s.ctx, u, nutrition.DefaultTarget)
	require.NoError(s.T(), err)

	_, err = s.gateway.CreateUser(s.ctx, u, nutrition.DefaultTarget)

	assert.True(s.T(), apperrors.Is(err, apperrors.CodeUsernameAlreadyExists))
}

func (s *GatewayTestSuite) TestGetUserID() {
	username := s.createUser("hungry123")

	id, ok, err := s.gateway.GetUserID(s.ctx, username)
	require.NoError(s.T(), err)
	assert.True(s.T(), ok)
	assert.Positive(s.T(), id)

	_, ok, err = s.gateway.GetUserID(s.ctx, "ghost_user")
	require.NoError(s.T(), err)
	assert.False(s.T(), ok)
}

func (s *GatewayTestSuite) TestEmptyDay_ShouldBeAbsent() {
	username := s.createUser("hungry123")
	day := testutils.MustDate("2025-06-24")

	total, err := s.gateway.DailyTotalNutrition(s.ctx, username, day)
	require.NoError(s.T(), err)
	assert.Nil(s.T(), total)

	left, err := s.gateway.GetNutritionLeft(s.ctx, username, day)
	require.NoError(s.T(), err)
	assert.Nil(s.T(), left)

	ids, err := s.gateway.GetAllNutritionEntryIDs(s.ctx, username)
	require.NoError(s.T(), err)
	assert.NotNil(s.T(), ids)
	assert.Empty(s.T(), ids)
}

func (s *GatewayTestSuite) TestAddAndReadDay() {
	username := s.createUser("hungry123")
	day := testutils.MustDate("2025-06-24")

	firstID, err := s.gateway.AddNutritionEntry(s.ctx, day, username,
		nutrition.Macros{Calories: 500, Protein: 50, Fat: 20, Carbs: 25}, "chicken bowl")
	require.NoError(s.T(), err)

	entries, err := s.gateway.GetDailyNutrition(s.ctx, username, day)
	require.NoError(s.T(), err)
	require.Len(s.T(), entries, 1)
	assert.Equal(s.T(), firstID, entries[0].ID)
	assert.Equal(s.T(), "chicken bowl", entries[0].Meal)
	assert.Equal(s.T(), nutrition.Macros{Calories: 500, Protein: 50, Fat: 20, Carbs: 25}, entries[0].Macros)
	assert.Equal(s.T(), "2025-06-24", entries[0].DateString())

	secondID, err := s.gateway.AddNutritionEntry(s.ctx, day, username,
		nutrition.Macros{Calories: 300, Protein: 10, Fat: 5, Carbs: 40}, "oatmeal")
	require.NoError(s.T(), err)

	entries, err = s.gateway.GetDailyNutrition(s.ctx, username, day)
	require.NoError(s.T(), err)
	require.Len(s.T(), entries, 2)
	assert.Equal(s.T(), secondID, entries[0].ID, "newest entry first")
	assert.Equal(s.T(), firstID, entries[1].ID)

	total, err := s.gateway.DailyTotalNutrition(s.ctx, username, day)
	require.NoError(s.T(), err)
	require.NotNil(s.T(), total)
	assert.Equal(s.T(), nutrition.Macros{Calories: 800, Protein: 60, Fat: 25, Carbs: 65}, *total)

	left, err := s.gateway.GetNutritionLeft(s.ctx, username, day)
	require.NoError(s.T(), err)
	require.NotNil(s.T(), left)
	assert.Equal(s.T(), nutrition.DefaultTarget.Sub(*total), *left)

	meals, err := s.gateway.GetAllMealNames(s.ctx, username)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), []string{"chicken bowl", "oatmeal"}, meals)
}

func (s *GatewayTestSuite) TestUserAllNutrition_NewestDateFirst() {
	username := s.createUser("hungry123")
	for _, d := range []string{"2025-06-01", "2025-06-03", "2025-06-02", "2025-06-03"} {
		_, err := s.gateway.AddNutritionEntry(s.ctx, testutils.MustDate(d), username,
			nutrition.Macros{Calories: 100, Protein: 1, Fat: 1, Carbs: 1}, "snack")
		require.NoError(s.T(), err)
	}

	days, err := s.gateway.GetUserAllNutrition(s.ctx, username)

	require.NoError(s.T(), err)
	require.Len(s.T(), days, 3)
	assert.Equal(s.T(), "2025-06-03", days[0].DateString())
	assert.Equal(s.T(), 200, days[0].Calories)
	assert.Equal(s.T(), "2025-06-01", days[2].DateString())
}

func (s *GatewayTestSuite) TestEntryUpdateDeleteAndOwnership() {
	owner := s.createUser("hungry123")
	other := s.createUser("hungry123")
	day := testutils.MustDate("2025-06-24")

	id, err := s.gateway.AddNutritionEntry(s.ctx, day, owner, s.factory.Macros(), "lunch")
	require.NoError(s.T(), err)

	updated := nutrition.Macros{Calories: 1, Protein: 2, Fat: 3, Carbs: 4}
	require.NoError(s.T(), s.gateway.UpdateNutritionEntry(s.ctx, id, updated, "dinner"))

	entry, err := s.gateway.FindNutritionEntryByID(s.ctx, id)
	require.NoError(s.T(), err)
	require.NotNil(s.T(), entry)
	assert.Equal(s.T(), updated, entry.Macros)
	assert.Equal(s.T(), "dinner", entry.Meal)

	foreign, err := s.gateway.FindUserNutritionEntry(s.ctx, other, id)
	require.NoError(s.T(), err)
	assert.Nil(s.T(), foreign)

	ownerIDs, err := s.gateway.GetAllNutritionEntryIDs(s.ctx, owner)
	require.NoError(s.T(), err)
	assert.True(s.T(), nutrition.IsNutritionIDValid(id, ownerIDs))

	otherIDs, err := s.gateway.GetAllNutritionEntryIDs(s.ctx, other)
	require.NoError(s.T(), err)
	assert.False(s.T(), nutrition.IsNutritionIDValid(id, otherIDs))

	require.NoError(s.T(), s.gateway.DeleteNutritionEntry(s.ctx, id))
	gone, err := s.gateway.FindNutritionEntryByID(s.ctx, id)
	require.NoError(s.T(), err)
	assert.Nil(s.T(), gone)

	err = s.gateway.DeleteNutritionEntry(s.ctx, id)
	assert.True(s.T(), apperrors.Is(err, apperrors.CodeEntryNotFound))
}

func (s *GatewayTestSuite) TestTargets() {
	username := s.createUser("hungry123")

	target, err := s.gateway.GetUserTargets(s.ctx, username)
	require.NoError(s.T(), err)
	require.NotNil(s.T(), target)
	assert.Equal(s.T(), nutrition.DefaultTarget, target.Macros)

	next := nutrition.Macros{Calories: 1800, Protein: 140, Fat: 60, Carbs: 150}
	require.NoError(s.T(), s.gateway.UpdateUserTargets(s.ctx, username, next))

	target, err = s.gateway.GetUserTargets(s.ctx, username)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), next, target.Macros)

	missing, err := s.gateway.GetUserTargets(s.ctx, "ghost_user")
	require.NoError(s.T(), err)
	assert.Nil(s.T(), missing)

	err = s.gateway.UpdateUserTargets(s.ctx, "ghost_user", next)
	assert.True(s.T(), apperrors.Is(err, apperrors.CodeUserNotFound))
}

func (s *GatewayTestSuite) TestMeals() {
	username := s.createUser("hungry123")

	oatsID, err := s.gateway.AddMeal(s.ctx, username, "Oatmeal")
	require.NoError(s.T(), err)
	_, err = s.gateway.AddMeal(s.ctx, username, "Burrito")
	require.NoError(s.T(), err)

	meals, err := s.gateway.GetUserMeals(s.ctx, username)
	require.NoError(s.T(), err)
	require.Len(s.T(), meals, 2)
	assert.Equal(s.T(), "Burrito", meals[0].Name)

	except, err := s.gateway.GetAllMealNamesExcept(s.ctx, username, oatsID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), []string{"Burrito"}, except)

	require.NoError(s.T(), s.gateway.UpdateMeal(s.ctx, oatsID, "Overnight oats"))
	meal, err := s.gateway.FindMealByID(s.ctx, oatsID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "Overnight oats", meal.Name)

	day := testutils.MustDate("2025-06-24")
	entryID, err := s.gateway.AddNutritionEntry(s.ctx, day, username, s.factory.Macros(), "Overnight oats")
	require.NoError(s.T(), err)

	require.NoError(s.T(), s.gateway.DeleteMeal(s.ctx, oatsID))

	entry, err := s.gateway.FindNutritionEntryByID(s.ctx, entryID)
	require.NoError(s.T(), err)
	require.NotNil(s.T(), entry, "entries survive meal deletion")
	assert.Empty(s.T(), entry.Meal)

	ids, err := s.gateway.GetAllMealIDs(s.ctx, username)
	require.NoError(s.T(), err)
	assert.Len(s.T(), ids, 1)

	err = s.gateway.UpdateMeal(s.ctx, oatsID, "again")
	assert.True(s.T(), apperrors.Is(err, apperrors.CodeMealNotFound))
}

func (s *GatewayTestSuite) TestCanceledContext_ShouldPropagate() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	_, err := s.gateway.GetUserAllNutrition(ctx, "anyone")

	require.Error(s.T(), err)
	assert.ErrorIs(s.T(), err, context.Canceled)
}

func TestGatewayTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}
	suite.Run(t, new(GatewayTestSuite))
}
