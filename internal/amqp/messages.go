package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ExpenseLoggedMessage announces a hand-logged expense. Consumers fetch the
// expense itself from the database.
type ExpenseLoggedMessage struct {
	MessageID       string    `json:"message_id"`
	ExpenseID       int64     `json:"expense_id"`
	UserID          int64     `json:"user_id"`
	NewAchievements []string  `json:"new_achievements,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

func NewExpenseLoggedMessage(expenseID, userID int64, newAchievements []string) *ExpenseLoggedMessage {
	return &ExpenseLoggedMessage{
		MessageID:       uuid.NewString(),
		ExpenseID:       expenseID,
		UserID:          userID,
		NewAchievements: newAchievements,
		Timestamp:       time.Now().UTC(),
	}
}

func (m *ExpenseLoggedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ExpenseLoggedMessageFromJSON(data []byte) (*ExpenseLoggedMessage, error) {
	var msg ExpenseLoggedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ExpenseID <= 0 || msg.UserID <= 0 {
		return nil, errors.New("message without expense or user id")
	}
	return &msg, nil
}
