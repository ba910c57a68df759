package db

import (
	"fmt"
	"math/rand/v2"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/oggyb/matchfeed/internal/logger"
)

// SeedPassword is the password of every demo account.
const SeedPassword = "password123"

const (
	seedUsers   = 20
	seedMatches = 5
)

var (
	seedNames  = []string{"Alex", "Sam", "Jordan", "Taylor", "Casey", "Riley", "Morgan", "Jamie", "Avery", "Quinn"}
	seedCities = []string{"London", "Manchester", "Leeds", "Bristol", "Glasgow"}
	seedChat   = []string{"Hey there!", "Hi, how is your week going?", "Pretty good, fancy a coffee?"}
)

// SeedTestData resets the database and populates it with demo data.
//
// Behavior:
//  1. Clears every table.
//  2. Creates 20 users with mixed genders, ages and verification, all with SeedPassword.
//  3. Stores preferences: men see women, women see men, everyone else sees all.
//  4. Creates 5 mutual-like matches with a short conversation each, plus a few
//     one-way likes and passes.
//
// Compatible with both MySQL and SQLite.
func SeedTestData(database *gorm.DB) error {
	r := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 42))

	hash, err := bcrypt.GenerateFromPassword([]byte(SeedPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return database.Transaction(func(tx *gorm.DB) error {
		if err := clearAll(tx); err != nil {
			return err
		}
		logger.Info("Cleared existing data")

		users, err := seedUserRows(tx, r, string(hash))
		if err != nil {
			return err
		}
		logger.Info("Seeded users", "count", len(users))

		if err := seedInteractions(tx, r, users); err != nil {
			return err
		}
		logger.Info("Seeded likes, matches and messages", "matches", seedMatches)
		return nil
	})
}

// clearAll deletes rows child tables first.
func clearAll(tx *gorm.DB) error {
	models := Models()
	for i := len(models) - 1; i >= 0; i-- {
		if err := tx.Where("1 = 1").Delete(models[i]).Error; err != nil {
			return fmt.Errorf("failed to clear %T: %w", models[i], err)
		}
	}
	return nil
}

func seedUserRows(tx *gorm.DB, r *rand.Rand, hash string) ([]User, error) {
	now := Now()
	users := make([]User, 0, seedUsers)
	for i := 1; i <= seedUsers; i++ {
		gender := GenderMale
		switch {
		case i%7 == 0:
			gender = GenderOther
		case i%2 == 0:
			gender = GenderFemale
		}
		name := seedNames[(i-1)%len(seedNames)]
		city := seedCities[r.IntN(len(seedCities))]
		birthday := now.AddDate(-(20 + r.IntN(26)), -r.IntN(12), 0)

		u := User{
			Username:       fmt.Sprintf("user%d", i),
			Email:          fmt.Sprintf("user%d@example.com", i),
			PasswordHash:   hash,
			Name:           &name,
			City:           &city,
			Birthday:       &birthday,
			Gender:         gender,
			IsVerified:     i%3 == 0,
			OnboardingDone: true,
		}
		if err := tx.Create(&u).Error; err != nil {
			return nil, fmt.Errorf("failed to seed user: %w", err)
		}

		prefs := DefaultPreferences(u.ID)
		switch gender {
		case GenderMale:
			prefs.ShowGenders = GenderList{GenderFemale}
		case GenderFemale:
			prefs.ShowGenders = GenderList{GenderMale}
		}
		if err := tx.Create(&prefs).Error; err != nil {
			return nil, fmt.Errorf("failed to seed preferences: %w", err)
		}
		users = append(users, u)
	}
	return users, nil
}

func seedInteractions(tx *gorm.DB, r *rand.Rand, users []User) error {
	like := func(from, to User, isLike bool) error {
		in := Interaction{FromUserID: from.ID, ToUserID: to.ID, IsLike: isLike}
		if err := tx.Create(&in).Error; err != nil {
			return fmt.Errorf("failed to seed interaction: %w", err)
		}
		return nil
	}

	// users i and i+10 like each other
	start := Now().Add(-48 * time.Hour)
	for i := 0; i < seedMatches; i++ {
		a, b := users[i], users[i+10]
		if err := like(a, b, true); err != nil {
			return err
		}
		if err := like(b, a, true); err != nil {
			return err
		}

		ua, ub := CanonicalPair(a.ID, b.ID)
		m := Match{UserAID: ua, UserBID: ub}
		if err := tx.Create(&m).Error; err != nil {
			return fmt.Errorf("failed to seed match: %w", err)
		}

		at := start.Add(time.Duration(i) * time.Hour)
		for j, text := range seedChat {
			sender := a
			if j%2 == 1 {
				sender = b
			}
			at = at.Add(time.Duration(1+r.IntN(10)) * time.Minute)
			msg := Message{MatchID: m.ID, SenderID: sender.ID, Text: text, CreatedAt: at}
			if err := tx.Create(&msg).Error; err != nil {
				return fmt.Errorf("failed to seed message: %w", err)
			}
		}
		if err := tx.Model(&m).Update("last_message_at", at).Error; err != nil {
			return fmt.Errorf("failed to seed match: %w", err)
		}
	}

	// one-way decisions that never become matches
	for i := 5; i < 10; i++ {
		if err := like(users[i], users[i+10], r.IntN(100) < 70); err != nil {
			return err
		}
	}
	return nil
}
