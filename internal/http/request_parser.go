// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data:
// caller identity, JSON bodies, path ids and date range queries.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"budget/internal/core"
	"budget/internal/services"
)

// HeaderUserID carries the authenticated caller. Authentication itself
// happens upstream of this service.
const HeaderUserID = "X-User-ID"

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 64 << 10

var errMissingIdentity = errors.New("missing or invalid " + HeaderUserID + " header")

// UserID extracts the caller's id from the identity header.
func UserID(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(r.Header.Get(HeaderUserID))
	if raw == "" {
		return 0, errMissingIdentity
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errMissingIdentity
	}
	return id, nil
}

// DecodeJSON reads a single JSON object from the body into dst. Unknown
// fields and trailing data are rejected as validation errors.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is empty", core.ErrValidation)
		}
		return fmt.Errorf("%w: malformed JSON: %v", core.ErrValidation, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: request body must contain a single JSON object", core.ErrValidation)
	}
	return nil
}

// PathID parses the named path wildcard as a positive id.
func PathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s %q", core.ErrValidation, name, r.PathValue(name))
	}
	return id, nil
}

// DateRange parses the optional from/to query parameters.
func DateRange(r *http.Request) (from, to core.Date, err error) {
	q := r.URL.Query()
	if v := sanitizeInput(q.Get("from")); v != "" {
		if from, err = core.ParseDate(v); err != nil {
			return core.Date{}, core.Date{}, err
		}
	}
	if v := sanitizeInput(q.Get("to")); v != "" {
		if to, err = core.ParseDate(v); err != nil {
			return core.Date{}, core.Date{}, err
		}
	}
	return from, to, nil
}

type createUserRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (req createUserRequest) toInput() services.NewUser {
	return services.NewUser{
		Username:  sanitizeInput(req.Username),
		Email:     sanitizeInput(req.Email),
		FirstName: sanitizeInput(req.FirstName),
		LastName:  sanitizeInput(req.LastName),
	}
}

// updateProfileRequest uses pointers so absent fields stay untouched.
type updateProfileRequest struct {
	PreferredCurrency  *string     `json:"preferred_currency"`
	MonthlySavingsGoal *jsonAmount `json:"monthly_savings_goal"`
	PhoneNumber        *string     `json:"phone_number"`
	DOB                *string     `json:"dob"`
	University         *string     `json:"university"`
}

func (req updateProfileRequest) toInput() services.ProfileUpdate {
	var goal *string
	if req.MonthlySavingsGoal != nil {
		s := string(*req.MonthlySavingsGoal)
		goal = &s
	}
	return services.ProfileUpdate{
		PreferredCurrency:  sanitizePtr(req.PreferredCurrency),
		MonthlySavingsGoal: goal,
		PhoneNumber:        sanitizePtr(req.PhoneNumber),
		DOB:                sanitizePtr(req.DOB),
		University:         sanitizePtr(req.University),
	}
}

type logExpenseRequest struct {
	Amount      jsonAmount `json:"amount"`
	Category    string     `json:"category"`
	Date        string     `json:"date"`
	Description string     `json:"description"`
}

func (req logExpenseRequest) toInput() services.NewExpense {
	return services.NewExpense{
		Amount:      string(req.Amount),
		Category:    sanitizeInput(req.Category),
		Date:        sanitizeInput(req.Date),
		Description: sanitizeInput(req.Description),
	}
}

type createCategoryRequest struct {
	Name string `json:"name"`
}

type createRecurringRequest struct {
	Amount      jsonAmount `json:"amount"`
	Category    string     `json:"category"`
	Description string     `json:"description"`
	Frequency   string     `json:"frequency"`
	StartDate   string     `json:"start_date"`
	EndDate     string     `json:"end_date"`
}

func (req createRecurringRequest) toInput() services.NewRecurring {
	return services.NewRecurring{
		Amount:      string(req.Amount),
		Category:    sanitizeInput(req.Category),
		Description: sanitizeInput(req.Description),
		Frequency:   sanitizeInput(req.Frequency),
		StartDate:   sanitizeInput(req.StartDate),
		EndDate:     sanitizeInput(req.EndDate),
	}
}

// jsonAmount accepts an amount written either as a JSON string ("12.34")
// or a JSON number (12.34) and keeps its literal text so no float rounding
// happens before decimal parsing.
type jsonAmount string

func (a *jsonAmount) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = jsonAmount(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("amount must be a string or number")
	}
	*a = jsonAmount(n.String())
	return nil
}

func sanitizePtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := sanitizeInput(*s)
	return &v
}
