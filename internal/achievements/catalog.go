// Package achievements holds the fixed badge catalog and the rules that
// decide which badges a profile has earned.
package achievements

import "fmt"

// Key identifies a badge. The set of keys is closed.
type Key string

const (
	FirstLog         Key = "FIRST_LOG"
	ThreeDayStreak   Key = "THREE_DAY_STREAK"
	SevenDayStreak   Key = "SEVEN_DAY_STREAK"
	ThirtyDayStreak  Key = "THIRTY_DAY_STREAK"
	TenthLog         Key = "TENTH_LOG"
	FiftiethLog      Key = "FIFTIETH_LOG"
	GoalSetter       Key = "GOAL_SETTER"
	GoalAchiever     Key = "GOAL_ACHIEVER"
	CategoryExplorer Key = "CATEGORY_EXPLORER"
)

// Definition is the display data of a badge.
type Definition struct {
	Key         Key    `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

var catalog = []Definition{
	{FirstLog, "First Drop in the Bucket", "You've logged your very first expense!", "fa-solid fa-tint"},
	{ThreeDayStreak, "Getting Started", "Logged expenses for 3 days in a row. Consistency is key!", "fa-solid fa-seedling"},
	{SevenDayStreak, "Weekly Warrior", "Maintained a 7-day logging streak. You're building a great habit!", "fa-solid fa-calendar-week"},
	{ThirtyDayStreak, "Monthly Master", "Kept a logging streak for a full 30 days. Your finances are in great hands!", "fa-solid fa-crown"},
	{TenthLog, "Diligent Logger", "Logged a total of 10 expenses.", "fa-solid fa-list-ol"},
	{FiftiethLog, "Super Scrivener", "Logged a total of 50 expenses. Look at all that data!", "fa-solid fa-file-invoice-dollar"},
	{GoalSetter, "Dreamer", "Set your first monthly savings goal. Aim high!", "fa-solid fa-bullseye"},
	{GoalAchiever, "Goal Getter!", "Successfully met a monthly savings goal. You did it!", "fa-solid fa-trophy"},
	{CategoryExplorer, "Organizer", "Used 5 different expense categories. Nicely sorted!", "fa-solid fa-tags"},
}

var byKey = func() map[Key]Definition {
	m := make(map[Key]Definition, len(catalog))
	for _, d := range catalog {
		m[d.Key] = d
	}
	return m
}()

// Catalog returns a copy of all badge definitions in display order.
func Catalog() []Definition {
	out := make([]Definition, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup returns the definition for key.
func Lookup(key Key) (Definition, bool) {
	d, ok := byKey[key]
	return d, ok
}

// ParseKey validates a stored key against the catalog.
func ParseKey(s string) (Key, error) {
	k := Key(s)
	if _, ok := byKey[k]; !ok {
		return "", fmt.Errorf("unknown achievement key %q", s)
	}
	return k, nil
}
