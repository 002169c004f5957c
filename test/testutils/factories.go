// Package testutils provides test data factories for consistent test data generation
package testutils

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"

	"github.com/macromojo/macromojo/internal/domain/nutrition"
	"github.com/macromojo/macromojo/internal/domain/user"
)

// JournalFactory produces users, macros and meal names for tests
type JournalFactory struct {
	faker *gofakeit.Faker
	seq   int
}

// NewJournalFactory creates a new factory with seeded faker
func NewJournalFactory(seed int64) *JournalFactory {
	return &JournalFactory{faker: gofakeit.New(seed)}
}

// Username returns a unique valid username
func (f *JournalFactory) Username() string {
	f.seq++
	base := strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			return r
		}
		return '_'
	}, f.faker.Username())
	if len(base) > 20 {
		base = base[:20]
	}
	return fmt.Sprintf("%s_%d", base, f.seq)
}

// Password returns a password that satisfies the account rules
func (f *JournalFactory) Password() string {
	return f.faker.Password(true, true, true, false, false, 12)
}

// User builds a user with a low-cost hash so tests stay fast
func (f *JournalFactory) User(password string) *user.User {
	u, err := user.NewUser(f.Username(), password, bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return u
}

// Macros returns random in-range macros
func (f *JournalFactory) Macros() nutrition.Macros {
	return nutrition.Macros{
		Calories: f.faker.Number(0, 1500),
		Protein:  f.faker.Number(0, 120),
		Fat:      f.faker.Number(0, 90),
		Carbs:    f.faker.Number(0, 200),
	}
}

// MacroForm renders macros the way an HTML form submits them
func (f *JournalFactory) MacroForm(m nutrition.Macros) []string {
	return []string{
		strconv.Itoa(m.Calories),
		strconv.Itoa(m.Protein),
		strconv.Itoa(m.Fat),
		strconv.Itoa(m.Carbs),
	}
}

// MealName returns a plausible meal label
func (f *JournalFactory) MealName() string {
	f.seq++
	return fmt.Sprintf("%s %s %d", f.faker.Adjective(), f.faker.Dinner(), f.seq)
}

// Date returns a UTC midnight date within the last year
func (f *JournalFactory) Date() time.Time {
	d := f.faker.DateRange(time.Now().AddDate(-1, 0, 0), time.Now())
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

// MustDate parses a YYYY-MM-DD literal
func MustDate(s string) time.Time {
	d, err := nutrition.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}
