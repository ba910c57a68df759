// Package view shapes persisted rows into the JSON bodies shared by several services.
package view

import (
	"time"

	"github.com/oggyb/matchfeed/internal/db"
)

// yearLength is the 365.25-day year used for ages.
const yearLength = time.Duration(365.25 * 24 * float64(time.Hour))

type Photo struct {
	URL   string `json:"url"`
	Order int    `json:"order"`
}

// Photos keeps the input order; callers load photos sorted by order.
func Photos(photos []db.Photo) []Photo {
	out := make([]Photo, 0, len(photos))
	for _, p := range photos {
		out = append(out, Photo{URL: p.URL, Order: p.Order})
	}
	return out
}

// Age is floor(elapsed / 365.25 days), nil without a birthday.
func Age(birthday *time.Time, now time.Time) *int {
	if birthday == nil {
		return nil
	}
	age := int(now.Sub(*birthday) / yearLength)
	return &age
}

// Candidate is one feed item.
type Candidate struct {
	ID         string  `json:"id"`
	Username   string  `json:"username"`
	Name       *string `json:"name"`
	City       *string `json:"city"`
	Photos     []Photo `json:"photos"`
	IsVerified bool    `json:"isVerified"`
	Age        *int    `json:"age,omitempty"`
}

func NewCandidate(u db.User, now time.Time) Candidate {
	return Candidate{
		ID:         u.ID,
		Username:   u.Username,
		Name:       u.Name,
		City:       u.City,
		Photos:     Photos(u.Photos),
		IsVerified: u.IsVerified,
		Age:        Age(u.Birthday, now),
	}
}

// Peer is the other side of a match.
type Peer struct {
	ID       string  `json:"id"`
	Username string  `json:"username"`
	Name     *string `json:"name"`
	Photos   []Photo `json:"photos"`
}

func NewPeer(u db.User) *Peer {
	return &Peer{ID: u.ID, Username: u.Username, Name: u.Name, Photos: Photos(u.Photos)}
}

// Message is one entry of a match conversation.
type Message struct {
	ID        string    `json:"id"`
	SenderID  string    `json:"senderId"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

func NewMessage(m db.Message) Message {
	return Message{ID: m.ID, SenderID: m.SenderID, Text: m.Text, CreatedAt: m.CreatedAt.UTC()}
}
