package db

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderOther  = "other"
)

// AllGenders is the default showGenders set.
var AllGenders = []string{GenderMale, GenderFemale, GenderOther}

// Default preference values applied when a viewer has none stored.
const (
	DefaultAgeMin     = 18
	DefaultAgeMax     = 60
	DefaultDistanceKm = 100
)

// MaxPhotos caps the photos a single user may hold.
const MaxPhotos = 4

// NewID returns a time-ordered identifier, so ids sort in creation order.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// GenderList persists as a comma-joined string column.
type GenderList []string

func (GenderList) GormDataType() string { return "string" }

func (g GenderList) Value() (driver.Value, error) {
	return strings.Join(g, ","), nil
}

func (g *GenderList) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case nil:
		*g = nil
		return nil
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("gender list: unsupported type %T", src)
	}
	if s == "" {
		*g = GenderList{}
		return nil
	}
	*g = strings.Split(s, ",")
	return nil
}

// User is the identity and profile record.
type User struct {
	ID             string     `gorm:"primaryKey;size:36"`
	Email          string     `gorm:"uniqueIndex;size:191;not null"`
	Username       string     `gorm:"uniqueIndex;size:64;not null"`
	PasswordHash   string     `gorm:"size:255;not null"`
	Name           *string    `gorm:"size:100"`
	Bio            *string    `gorm:"size:1000"`
	City           *string    `gorm:"size:100"`
	Birthday       *time.Time `gorm:"index"`
	Gender         string     `gorm:"size:16;not null;default:'';index"`
	IsVerified     bool       `gorm:"not null;default:false;index"`
	OnboardingDone bool       `gorm:"not null;default:false"`
	CreatedAt      time.Time  `gorm:"autoCreateTime"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime"`

	Photos      []Photo      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Preferences *Preferences `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = NewID()
	}
	return nil
}

// Preferences drives the candidate filter. DistanceKm is stored but not used for filtering.
type Preferences struct {
	UserID       string     `gorm:"primaryKey;size:36"`
	AgeMin       int        `gorm:"not null"`
	AgeMax       int        `gorm:"not null"`
	DistanceKm   int        `gorm:"not null"`
	ShowGenders  GenderList `gorm:"size:64;not null"`
	OnlyVerified bool       `gorm:"not null"`
	CreatedAt    time.Time  `gorm:"autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime"`
}

// DefaultPreferences returns the defaults for userID without persisting them.
func DefaultPreferences(userID string) Preferences {
	return Preferences{
		UserID:       userID,
		AgeMin:       DefaultAgeMin,
		AgeMax:       DefaultAgeMax,
		DistanceKm:   DefaultDistanceKm,
		ShowGenders:  append(GenderList{}, AllGenders...),
		OnlyVerified: false,
	}
}

// Photo belongs to a user. Order is contiguous 0..n-1 per user.
type Photo struct {
	ID        string    `gorm:"primaryKey;size:36"`
	UserID    string    `gorm:"size:36;not null;uniqueIndex:idx_photo_user_order,priority:1"`
	URL       string    `gorm:"size:512;not null"`
	Order     int       `gorm:"column:sort_order;not null;uniqueIndex:idx_photo_user_order,priority:2"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (p *Photo) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = NewID()
	}
	return nil
}

// Every child table below references users (and messages reference matches)
// with ON DELETE CASCADE. The pointer fields exist only to declare those
// constraints; nothing preloads them.

// Interaction is a directed like/pass decision.
//
// Unique (FromUserID, ToUserID):
//   - one row per pair, later decisions overwrite IsLike.
//
// Indexes:
//   - idx_interaction_pair(from_user_id, to_user_id) also serves the reciprocal-like lookup.
type Interaction struct {
	ID         string    `gorm:"primaryKey;size:36"`
	FromUserID string    `gorm:"size:36;not null;uniqueIndex:idx_interaction_pair,priority:1"`
	ToUserID   string    `gorm:"size:36;not null;uniqueIndex:idx_interaction_pair,priority:2;index"`
	IsLike     bool      `gorm:"not null"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`

	FromUser *User `gorm:"foreignKey:FromUserID;constraint:OnDelete:CASCADE"`
	ToUser   *User `gorm:"foreignKey:ToUserID;constraint:OnDelete:CASCADE"`
}

func (i *Interaction) BeforeCreate(*gorm.DB) error {
	if i.ID == "" {
		i.ID = NewID()
	}
	return nil
}

// Match is an undirected pair stored canonically: UserAID < UserBID.
type Match struct {
	ID            string     `gorm:"primaryKey;size:36"`
	UserAID       string     `gorm:"size:36;not null;uniqueIndex:idx_match_pair,priority:1"`
	UserBID       string     `gorm:"size:36;not null;uniqueIndex:idx_match_pair,priority:2;index"`
	LastMessageAt *time.Time
	CreatedAt     time.Time `gorm:"autoCreateTime"`

	UserA *User `gorm:"foreignKey:UserAID;constraint:OnDelete:CASCADE"`
	UserB *User `gorm:"foreignKey:UserBID;constraint:OnDelete:CASCADE"`
}

func (m *Match) BeforeCreate(*gorm.DB) error {
	if m.ID == "" {
		m.ID = NewID()
	}
	return nil
}

// HasUser reports whether userID is one of the two participants.
func (m *Match) HasUser(userID string) bool {
	return m.UserAID == userID || m.UserBID == userID
}

// PeerOf returns the other participant.
func (m *Match) PeerOf(userID string) string {
	if m.UserAID == userID {
		return m.UserBID
	}
	return m.UserAID
}

// CanonicalPair orders two user ids so the smaller one comes first.
func CanonicalPair(x, y string) (string, string) {
	if x < y {
		return x, y
	}
	return y, x
}

// Message belongs to one match. CreatedAt and ID together form the pagination key.
type Message struct {
	ID        string    `gorm:"primaryKey;size:36;index:idx_message_match_created,priority:3"`
	MatchID   string    `gorm:"size:36;not null;index:idx_message_match_created,priority:1"`
	SenderID  string    `gorm:"size:36;not null"`
	Text      string    `gorm:"size:2000;not null"`
	CreatedAt time.Time `gorm:"not null;index:idx_message_match_created,priority:2"`

	Match  *Match `gorm:"foreignKey:MatchID;constraint:OnDelete:CASCADE"`
	Sender *User  `gorm:"foreignKey:SenderID;constraint:OnDelete:CASCADE"`
}

func (m *Message) BeforeCreate(*gorm.DB) error {
	if m.ID == "" {
		m.ID = NewID()
	}
	return nil
}

// Block is directed; either direction hides users from each other.
type Block struct {
	ID        string    `gorm:"primaryKey;size:36"`
	BlockerID string    `gorm:"size:36;not null;uniqueIndex:idx_block_pair,priority:1"`
	BlockedID string    `gorm:"size:36;not null;uniqueIndex:idx_block_pair,priority:2;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`

	Blocker *User `gorm:"foreignKey:BlockerID;constraint:OnDelete:CASCADE"`
	Blocked *User `gorm:"foreignKey:BlockedID;constraint:OnDelete:CASCADE"`
}

func (b *Block) BeforeCreate(*gorm.DB) error {
	if b.ID == "" {
		b.ID = NewID()
	}
	return nil
}

// Report is append-only.
type Report struct {
	ID         string    `gorm:"primaryKey;size:36"`
	ReporterID string    `gorm:"size:36;not null;index"`
	ReportedID string    `gorm:"size:36;not null;index"`
	Reason     string    `gorm:"size:500;not null"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`

	Reporter *User `gorm:"foreignKey:ReporterID;constraint:OnDelete:CASCADE"`
	Reported *User `gorm:"foreignKey:ReportedID;constraint:OnDelete:CASCADE"`
}

func (r *Report) BeforeCreate(*gorm.DB) error {
	if r.ID == "" {
		r.ID = NewID()
	}
	return nil
}

// FeedSeen records the last time a candidate was shown to a viewer.
//
// Composite PK: (ViewerID, SeenUserID), upserted on every presentation.
type FeedSeen struct {
	ViewerID   string    `gorm:"primaryKey;size:36;index:idx_feed_seen_viewer_at,priority:1"`
	SeenUserID string    `gorm:"primaryKey;size:36"`
	SeenAt     time.Time `gorm:"not null;index:idx_feed_seen_viewer_at,priority:2"`

	Viewer   *User `gorm:"foreignKey:ViewerID;constraint:OnDelete:CASCADE"`
	SeenUser *User `gorm:"foreignKey:SeenUserID;constraint:OnDelete:CASCADE"`
}

func (FeedSeen) TableName() string { return "feed_seen" }

// RefreshToken is the stored half of the refresh flow.
type RefreshToken struct {
	ID        string    `gorm:"primaryKey;size:36"`
	Token     string    `gorm:"uniqueIndex;size:512;not null"`
	UserID    string    `gorm:"size:36;not null;index"`
	ExpiresAt time.Time `gorm:"not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (t *RefreshToken) BeforeCreate(*gorm.DB) error {
	if t.ID == "" {
		t.ID = NewID()
	}
	return nil
}

// Models lists every table in migration order.
func Models() []any {
	return []any{
		&User{}, &Preferences{}, &Photo{}, &Interaction{}, &Match{},
		&Message{}, &Block{}, &Report{}, &FeedSeen{}, &RefreshToken{},
	}
}
