package nutrition

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	entrySubject  = "Inputs"
	targetSubject = "Targets"
)

// ErrorForNutritionEntry checks the four macro form values of an entry.
// It returns nil when all of them are integers in [0, 10000].
func ErrorForNutritionEntry(calories, protein, fat, carbs string) error {
	return checkMacros(entrySubject, calories, protein, fat, carbs)
}

// ErrorForTargets is ErrorForNutritionEntry with target wording.
func ErrorForTargets(calories, protein, fat, carbs string) error {
	return checkMacros(targetSubject, calories, protein, fat, carbs)
}

// ParseMacros validates entry form values and casts them to integers.
func ParseMacros(calories, protein, fat, carbs string) (Macros, error) {
	return parseMacros(entrySubject, calories, protein, fat, carbs)
}

// ParseTargets validates target form values and casts them to integers.
func ParseTargets(calories, protein, fat, carbs string) (Macros, error) {
	return parseMacros(targetSubject, calories, protein, fat, carbs)
}

func parseMacros(subject string, calories, protein, fat, carbs string) (Macros, error) {
	if err := checkMacros(subject, calories, protein, fat, carbs); err != nil {
		return Macros{}, err
	}
	// checkMacros guarantees every value parses.
	return Macros{
		Calories: atoi(calories),
		Protein:  atoi(protein),
		Fat:      atoi(fat),
		Carbs:    atoi(carbs),
	}, nil
}

func checkMacros(subject string, values ...string) error {
	parsed := make([]int, 0, len(values))
	for _, v := range values {
		n, ok := parseInt(v)
		if !ok {
			return invalid(ErrNotInteger, fmt.Sprintf(
				"%s for calories, protein, fats, and carbohydrates must be non-negative integers.", subject))
		}
		parsed = append(parsed, n)
	}

	for _, n := range parsed {
		if n < MinMacroValue || n > MaxMacroValue {
			return invalid(ErrOutOfRange, fmt.Sprintf(
				"%s for calories, protein, fats, and carbohydrates must be integers between 0 and 10,000. Try again!", subject))
		}
	}
	return nil
}

func parseInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.Contains(s, ".") {
		return 0, false
	}
	// Atoi clamps overflowing digits to the int bounds, which the range
	// check then rejects.
	n, err := strconv.Atoi(s)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	return n, true
}

func atoi(s string) int {
	n, _ := parseInt(s)
	return n
}

// ErrorForMealLen rejects names shorter than 2 or longer than 100 characters.
// Surrounding whitespace is not counted.
func ErrorForMealLen(name string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	if n < MinMealNameLen || n > MaxMealNameLen {
		return invalid(ErrMealNameLength, "Meal or snack name must be between 2 and 100 characters. Try again!")
	}
	return nil
}

// CheckMealDuplicates reports whether name is already one of existing.
// Comparison is exact and case sensitive.
func CheckMealDuplicates(name string, existing []string) error {
	if slices.Contains(existing, name) {
		return invalid(ErrDuplicateMeal, "Entered meal name already exists. Try another one!")
	}
	return nil
}

// ParseDate parses a strict YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	if len(s) != len(DateLayout) {
		return time.Time{}, invalidDate()
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, invalidDate()
	}
	return t, nil
}

// ErrorForDateFormat returns a message when s is not a valid YYYY-MM-DD date.
func ErrorForDateFormat(s string) error {
	_, err := ParseDate(s)
	return err
}

// IsDateValid is the boolean form of ErrorForDateFormat, used for URL segments.
func IsDateValid(s string) bool {
	return ErrorForDateFormat(s) == nil
}

func invalidDate() error {
	return invalid(ErrInvalidDate, "Date must be in 'YYYY-MM-DD' format. Try again!")
}

// IsNutritionIDValid reports whether id is one of the caller's ids.
func IsNutritionIDValid(id int64, ids []int64) bool {
	return slices.Contains(ids, id)
}

// NormalizeMealName trims surrounding whitespace from a submitted meal name.
func NormalizeMealName(name string) string {
	return strings.TrimSpace(name)
}
