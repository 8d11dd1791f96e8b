package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"budget/internal/achievements"
	"budget/internal/core"
	"budget/internal/log"
	"budget/internal/storage"
	"budget/internal/streak"

	"github.com/shopspring/decimal"
)

// AccountService owns users and their profiles.
type AccountService struct {
	repo            *storage.SQLiteRepository
	reports         ReportInvalidator
	defaultCurrency string
	now             func() time.Time
	loc             *time.Location
}

type AccountOptions struct {
	DefaultCurrency string
	Reports         ReportInvalidator
	Now             func() time.Time
	Location        *time.Location
}

func NewAccountService(repo *storage.SQLiteRepository, opts AccountOptions) *AccountService {
	s := &AccountService{
		repo:            repo,
		reports:         opts.Reports,
		defaultCurrency: opts.DefaultCurrency,
		now:             opts.Now,
		loc:             opts.Location,
	}
	if s.defaultCurrency == "" {
		s.defaultCurrency = core.DefaultCurrency
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	return s
}

type NewUser struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
}

// CreateUser inserts the user and its default profile together. A taken
// username fails with core.ErrConflict.
func (s *AccountService) CreateUser(ctx context.Context, in NewUser) (core.User, core.Profile, error) {
	user := core.User{
		Username:  strings.TrimSpace(in.Username),
		Email:     strings.TrimSpace(in.Email),
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		CreatedAt: s.now().UTC(),
	}
	if err := user.Validate(); err != nil {
		return core.User{}, core.Profile{}, err
	}

	var profile core.Profile
	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		var err error
		if user, err = q.CreateUser(ctx, user); err != nil {
			return err
		}
		profile, err = q.CreateProfile(ctx, core.Profile{
			UserID:            user.ID,
			PreferredCurrency: s.defaultCurrency,
			University:        core.DefaultUniversity,
		})
		return err
	})
	if err != nil {
		return core.User{}, core.Profile{}, fmt.Errorf("create user: %w", err)
	}

	slog.InfoContext(ctx, "User created",
		log.FieldComponent, log.ComponentAccounts,
		log.FieldUserID, user.ID,
		"username", user.Username)
	return user, profile, nil
}

// EarnedBadge is a catalog entry together with when the profile earned it.
type EarnedBadge struct {
	achievements.Definition
	EarnedAt time.Time
}

type ProfileView struct {
	User          core.User
	Profile       core.Profile
	CurrentStreak int
	Achievements  []EarnedBadge
}

func (s *AccountService) GetProfile(ctx context.Context, userID int64) (ProfileView, error) {
	var view ProfileView
	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		var err error
		view, err = s.loadView(ctx, q, userID)
		return err
	})
	if err != nil {
		return ProfileView{}, fmt.Errorf("get profile: %w", err)
	}
	return view, nil
}

func (s *AccountService) loadView(ctx context.Context, q *storage.Queries, userID int64) (ProfileView, error) {
	user, err := q.GetUser(ctx, userID)
	if err != nil {
		return ProfileView{}, err
	}
	profile, err := q.GetProfileByUserID(ctx, userID)
	if err != nil {
		return ProfileView{}, err
	}
	earned, err := q.ListEarnedAchievements(ctx, profile.ID)
	if err != nil {
		return ProfileView{}, err
	}

	view := ProfileView{
		User:          user,
		Profile:       profile,
		CurrentStreak: streak.Current(profile, core.DateOf(s.now(), s.loc)),
		Achievements:  make([]EarnedBadge, 0, len(earned)),
	}
	for _, e := range earned {
		def, ok := achievements.Lookup(e.Key)
		if !ok {
			continue
		}
		view.Achievements = append(view.Achievements, EarnedBadge{Definition: def, EarnedAt: e.EarnedAt})
	}
	return view, nil
}

// ProfileUpdate carries the user-editable profile fields. Nil fields are
// left as they are; empty DOB clears it.
type ProfileUpdate struct {
	PreferredCurrency  *string
	MonthlySavingsGoal *string
	PhoneNumber        *string
	DOB                *string
	University         *string
}

func (u ProfileUpdate) apply(p *core.Profile) error {
	if u.PreferredCurrency != nil {
		p.PreferredCurrency = strings.ToUpper(strings.TrimSpace(*u.PreferredCurrency))
	}
	if u.MonthlySavingsGoal != nil {
		goal, err := parseGoal(*u.MonthlySavingsGoal)
		if err != nil {
			return err
		}
		p.MonthlySavingsGoal = goal
	}
	if u.PhoneNumber != nil {
		p.PhoneNumber = strings.TrimSpace(*u.PhoneNumber)
	}
	if u.DOB != nil {
		p.DOB = core.Date{}
		if strings.TrimSpace(*u.DOB) != "" {
			d, err := core.ParseDate(*u.DOB)
			if err != nil {
				return err
			}
			p.DOB = d
		}
	}
	if u.University != nil {
		p.University = strings.TrimSpace(*u.University)
	}
	return p.Validate()
}

// parseGoal accepts an empty or zero amount to clear the goal.
func parseGoal(s string) (core.Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return core.Money{}, nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
	if err != nil {
		return core.Money{}, core.ErrInvalidAmount
	}
	switch {
	case d.IsNegative():
		return core.Money{}, core.ErrNegativeGoal
	case core.MoneyFromDecimal(d).IsZero():
		return core.Money{}, nil
	}
	cents, err := core.ParseDecimalToCents(s)
	if err != nil {
		return core.Money{}, err
	}
	return core.Money{Cents: cents}, nil
}

// UpdateProfile saves the changed fields and evaluates badges in the same
// transaction; setting a first goal grants GOAL_SETTER.
func (s *AccountService) UpdateProfile(ctx context.Context, userID int64, in ProfileUpdate) (ProfileView, []achievements.Key, error) {
	now := s.now()
	var (
		view    ProfileView
		granted []achievements.Key
	)
	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		profile, err := q.GetProfileByUserID(ctx, userID)
		if err != nil {
			return err
		}
		currencyBefore := profile.PreferredCurrency
		if err := in.apply(&profile); err != nil {
			return err
		}
		if in.PreferredCurrency != nil || in.MonthlySavingsGoal != nil || in.PhoneNumber != nil ||
			in.DOB != nil || in.University != nil {
			if err := q.UpdateProfile(ctx, profile); err != nil {
				return err
			}
		}

		current := streak.Current(profile, core.DateOf(now, s.loc))
		if granted, err = grantEarned(ctx, q, profile, current, false, now); err != nil {
			return err
		}

		// reports carry the currency code
		if profile.PreferredCurrency != currencyBefore {
			if err := q.DeleteAnalyticsCache(ctx, userID); err != nil {
				return err
			}
		}

		view, err = s.loadView(ctx, q, userID)
		return err
	})
	if err != nil {
		return ProfileView{}, nil, fmt.Errorf("update profile: %w", err)
	}

	if s.reports != nil {
		s.reports.Invalidate(userID)
	}
	slog.InfoContext(ctx, "Profile updated",
		log.FieldComponent, log.ComponentAccounts,
		log.FieldUserID, userID,
		log.FieldAchievements, keyStrings(granted))
	return view, granted, nil
}
