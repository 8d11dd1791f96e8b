package achievements

// Context is the snapshot of a profile's activity that rules are checked
// against.
type Context struct {
	TotalExpenses      int
	Streak             int
	DistinctCategories int
	GoalSet            bool
	GoalMet            bool
}

type rule func(Context) bool

var rules = map[Key]rule{
	FirstLog:         func(c Context) bool { return c.TotalExpenses >= 1 },
	ThreeDayStreak:   func(c Context) bool { return c.Streak >= 3 },
	SevenDayStreak:   func(c Context) bool { return c.Streak >= 7 },
	ThirtyDayStreak:  func(c Context) bool { return c.Streak >= 30 },
	TenthLog:         func(c Context) bool { return c.TotalExpenses >= 10 },
	FiftiethLog:      func(c Context) bool { return c.TotalExpenses >= 50 },
	GoalSetter:       func(c Context) bool { return c.GoalSet },
	GoalAchiever:     func(c Context) bool { return c.GoalMet },
	CategoryExplorer: func(c Context) bool { return c.DistinctCategories >= 5 },
}

// Evaluate returns the keys, in catalog order, whose rule holds for c and
// which are not already in earned. Badges are never revoked, so a rule that
// stops holding has no effect.
func Evaluate(earned map[Key]bool, c Context) []Key {
	var out []Key
	for _, d := range catalog {
		if earned[d.Key] {
			continue
		}
		if r, ok := rules[d.Key]; ok && r(c) {
			out = append(out, d.Key)
		}
	}
	return out
}

// EarnedSet builds the lookup set Evaluate expects.
func EarnedSet(keys []Key) map[Key]bool {
	m := make(map[Key]bool, len(keys))
	for _, k := range keys {
		m[k] = true
	}
	return m
}
