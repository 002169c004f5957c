// Package nutrition defines the nutrition journal domain: logged entries, daily
// aggregates, targets, meals and the form validation rules that guard them.
package nutrition

import (
	"time"
)

// DateLayout is the only accepted date format, both in URLs and forms.
const DateLayout = "2006-01-02"

// Bounds for every macro and target value, inclusive.
const (
	MinMacroValue = 0
	MaxMacroValue = 10000
)

// Bounds for meal names, counted in characters after trimming.
const (
	MinMealNameLen = 2
	MaxMealNameLen = 100
)

// Macros holds the four tracked quantities. It is used for single entries,
// daily sums, targets and the remaining budget (which may go negative).
type Macros struct {
	Calories int `db:"calories" json:"calories"`
	Protein  int `db:"protein" json:"protein"`
	Fat      int `db:"fat" json:"fat"`
	Carbs    int `db:"carbs" json:"carbs"`
}

// Sub returns m minus other, field by field.
func (m Macros) Sub(other Macros) Macros {
	return Macros{
		Calories: m.Calories - other.Calories,
		Protein:  m.Protein - other.Protein,
		Fat:      m.Fat - other.Fat,
		Carbs:    m.Carbs - other.Carbs,
	}
}

// DefaultTarget is assigned to every new account.
var DefaultTarget = Macros{Calories: 2000, Protein: 150, Fat: 70, Carbs: 200}

// Entry is one logged intake record.
type Entry struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"-"`
	Date      time.Time `db:"date" json:"date"`
	EnteredAt time.Time `db:"entered_at" json:"entered_at"`
	Meal      string    `db:"meal" json:"meal"`
	Macros
}

// DateString formats the entry date the way URLs expect it.
func (e Entry) DateString() string {
	return e.Date.Format(DateLayout)
}

// DailyTotal is the aggregate of all entries on one date.
type DailyTotal struct {
	Date time.Time `db:"date" json:"date"`
	Macros
}

// DateString formats the aggregate date the way URLs expect it.
func (d DailyTotal) DateString() string {
	return d.Date.Format(DateLayout)
}

// Target is a user's daily goal.
type Target struct {
	ID     int64 `db:"id" json:"-"`
	UserID int64 `db:"user_id" json:"-"`
	Macros
}

// Meal is a named food or snack label owned by a user.
type Meal struct {
	ID     int64  `db:"id" json:"id"`
	UserID int64  `db:"user_id" json:"-"`
	Name   string `db:"name" json:"name"`
}
