package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const MessageMaxTextLength = 2000

var ErrMessageTextTooLong = fmt.Errorf("message text exceeds %d characters", MessageMaxTextLength)
var ErrMessageTextEmpty = errors.New("message text cannot be empty")

// Message is a direct message between two users. Messages are immutable once
// created and ordered by insertion into the history log.
type Message struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

func (m *Message) Validate() error {
	if strings.TrimSpace(m.Text) == "" {
		return ErrMessageTextEmpty
	} else if utf8.RuneCountInString(m.Text) > MessageMaxTextLength {
		return ErrMessageTextTooLong
	}

	return nil
}
