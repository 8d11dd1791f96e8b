package http

import (
	"net/http"
	"time"

	"budget/internal/achievements"
	"budget/internal/log"
)

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := DecodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, log.OpParse, err)
		return
	}

	user, profile, err := s.accounts.CreateUser(r.Context(), req.toInput())
	if err != nil {
		writeError(r.Context(), w, log.OpCreate, err)
		return
	}

	NewResponse().Status(http.StatusCreated).JSON(accountView{
		User:         newUserView(user),
		Profile:      newProfileView(profile),
		Achievements: []badgeView{},
	}).Write(w)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request, userID int64) {
	view, err := s.accounts.GetProfile(r.Context(), userID)
	if err != nil {
		writeError(r.Context(), w, log.OpRead, err)
		return
	}
	NewResponse().JSON(newAccountView(view)).Write(w)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request, userID int64) {
	var req updateProfileRequest
	if err := DecodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, log.OpParse, err)
		return
	}

	view, granted, err := s.accounts.UpdateProfile(r.Context(), userID, req.toInput())
	if err != nil {
		writeError(r.Context(), w, log.OpUpdate, err)
		return
	}

	NewResponse().JSON(struct {
		accountView
		NewAchievements []badgeView `json:"new_achievements"`
	}{newAccountView(view), catalogBadges(granted)}).Write(w)
}

// handleAchievements lists the whole catalog, marking the badges the caller
// has earned.
func (s *Server) handleAchievements(w http.ResponseWriter, r *http.Request, userID int64) {
	view, err := s.accounts.GetProfile(r.Context(), userID)
	if err != nil {
		writeError(r.Context(), w, log.OpList, err)
		return
	}

	earned := make(map[achievements.Key]time.Time, len(view.Achievements))
	for _, b := range view.Achievements {
		earned[b.Key] = b.EarnedAt
	}

	catalog := achievements.Catalog()
	out := make([]badgeView, 0, len(catalog))
	for _, def := range catalog {
		b := badgeView{Definition: def}
		if at, ok := earned[def.Key]; ok {
			b.EarnedAt = &at
		}
		out = append(out, b)
	}
	NewResponse().JSON(out).Write(w)
}
