// Package seed provides helpers to create demo data for the application
// database. These helpers are intended for development only.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"ripple/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Seeder creates fake users, posts, and likes.
type Seeder struct {
	db  *gorm.DB
	rng *rand.Rand
}

// NewSeeder creates a Seeder bound to the provided Gorm DB.
func NewSeeder(db *gorm.DB) *Seeder {
	gofakeit.Seed(time.Now().UnixNano())
	return &Seeder{
		db:  db,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// ClearAll removes all seeded rows. Order matters because of foreign keys.
func (s *Seeder) ClearAll() error {
	log.Println("Clearing existing data...")
	for _, model := range []any{&models.Like{}, &models.Post{}, &models.User{}} {
		if err := s.db.Unscoped().Where("1 = 1").Delete(model).Error; err != nil {
			return fmt.Errorf("clear %T: %w", model, err)
		}
	}
	return nil
}

// SeedUsers creates n users. Every user gets the password "password123".
func (s *Seeder) SeedUsers(n int) ([]*models.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	users := make([]*models.User, 0, n)
	for i := 0; i < n; i++ {
		users = append(users, &models.User{
			Username: fmt.Sprintf("%s%d", gofakeit.Username(), gofakeit.Number(100, 999)),
			Email:    gofakeit.Email(),
			Password: string(hashed),
		})
	}
	if err := s.db.Create(&users).Error; err != nil {
		return nil, fmt.Errorf("seed users: %w", err)
	}

	log.Printf("Created %d users", len(users))
	return users, nil
}

// SeedPosts creates n posts spread over the past 90 days, attributed to
// random seeded users.
func (s *Seeder) SeedPosts(users []*models.User, n int) ([]*models.Post, error) {
	if len(users) == 0 {
		return nil, fmt.Errorf("no users to attribute posts to")
	}

	posts := make([]*models.Post, 0, n)
	for i := 0; i < n; i++ {
		author := users[s.rng.Intn(len(users))]
		age := time.Duration(s.rng.Intn(90*24)) * time.Hour
		posts = append(posts, &models.Post{
			Content:   gofakeit.Paragraph(1, 3, 8, "\n"),
			UserID:    author.ID,
			CreatedAt: time.Now().Add(-age),
		})
	}
	if err := s.db.Create(&posts).Error; err != nil {
		return nil, fmt.Errorf("seed posts: %w", err)
	}

	log.Printf("Created %d posts", len(posts))
	return posts, nil
}

// SeedLikes gives each post a random subset of likers.
func (s *Seeder) SeedLikes(users []*models.User, posts []*models.Post) error {
	var likes []*models.Like
	for _, post := range posts {
		likers := s.rng.Perm(len(users))
		count := s.rng.Intn(len(users) + 1)
		for _, idx := range likers[:count] {
			likes = append(likes, &models.Like{
				UserID: users[idx].ID,
				PostID: post.ID,
			})
		}
	}
	if len(likes) == 0 {
		return nil
	}
	if err := s.db.Create(&likes).Error; err != nil {
		return fmt.Errorf("seed likes: %w", err)
	}

	log.Printf("Created %d likes", len(likes))
	return nil
}
