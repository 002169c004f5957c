// Package gorm provides a GORM implementation of the journal store,
// used with SQLite for local development and optionally with PostgreSQL.
package gorm

import (
	"time"
)

// UserModel represents the GORM model for users
type UserModel struct {
	ID        int64     `gorm:"primaryKey"`
	Username  string    `gorm:"type:varchar(30);uniqueIndex;not null"`
	HashedPwd string    `gorm:"column:hashed_pwd;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName matches the SQL migrations
func (UserModel) TableName() string { return "users" }

// TargetModel represents a user's daily target
type TargetModel struct {
	ID       int64 `gorm:"primaryKey"`
	UserID   int64 `gorm:"uniqueIndex;not null"`
	Calories int   `gorm:"not null"`
	Protein  int   `gorm:"not null"`
	Fat      int   `gorm:"not null"`
	Carbs    int   `gorm:"not null"`
}

// TableName matches the SQL migrations
func (TargetModel) TableName() string { return "targets" }

// MealModel represents a named meal
type MealModel struct {
	ID     int64  `gorm:"primaryKey"`
	UserID int64  `gorm:"index;not null"`
	Name   string `gorm:"type:varchar(100);not null"`
}

// TableName matches the SQL migrations
func (MealModel) TableName() string { return "meals" }

// NutritionModel represents one logged entry. Date is kept as YYYY-MM-DD text
// so that SQLite compares and orders it like a calendar date.
type NutritionModel struct {
	ID        int64     `gorm:"primaryKey"`
	UserID    int64     `gorm:"index:idx_nutrition_user_date;not null"`
	MealID    *int64    `gorm:"index"`
	Date      string    `gorm:"type:varchar(10);index:idx_nutrition_user_date;not null"`
	EnteredAt time.Time `gorm:"not null"`
	Calories  int       `gorm:"not null"`
	Protein   int       `gorm:"not null"`
	Fat       int       `gorm:"not null"`
	Carbs     int       `gorm:"not null"`
}

// TableName matches the SQL migrations
func (NutritionModel) TableName() string { return "nutrition" }

// AllModels lists the models in creation order
func AllModels() []interface{} {
	return []interface{}{&UserModel{}, &TargetModel{}, &MealModel{}, &NutritionModel{}}
}
