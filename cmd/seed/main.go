package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"time"

	"snapbuzz/pkg/cache"
	"snapbuzz/pkg/config"
	"snapbuzz/pkg/database"
	"snapbuzz/pkg/logger"
	"snapbuzz/pkg/models"
	"snapbuzz/pkg/plans"
	"snapbuzz/pkg/storage"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const likeCountTTL = 24 * time.Hour

type seedUser struct {
	email    string
	username string
	phone    string
	password string
}

var demoUsers = []seedUser{
	{"alice@test.com", "alice", "+10000000001", "password123"},
	{"bob@test.com", "bob", "+10000000002", "password123"},
	{"charlie@test.com", "charlie", "+10000000003", "password123"},
	{"diana@test.com", "diana", "+10000000004", "password123"},
	{"eve@test.com", "eve", "+10000000005", "password123"},
}

func main() {
	var withImages, autoMigrate bool
	flag.BoolVar(&withImages, "images", false, "Download demo images and store them through the configured storage")
	flag.BoolVar(&autoMigrate, "automigrate", false, "Create missing tables from pkg/models instead of running goose first")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log := logger.New()
	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		log.Error("Failed to connect to database: %v", err)
		panic(err)
	}
	defer database.Close(db)

	if autoMigrate {
		if err := db.AutoMigrate(models.All()...); err != nil {
			log.Error("Failed to migrate models: %v", err)
			panic(err)
		}
	}

	var store storage.Storage
	if withImages {
		store, err = storage.New(cfg, log)
		if err != nil {
			log.Error("Failed to create storage: %v", err)
			panic(err)
		}
	}

	redisClient, err := cache.NewRedisClient(cfg)
	if err != nil {
		log.Warn("Failed to connect to redis: %v (like counts will not be warmed)", err)
		redisClient = nil
	}

	s := &seeder{
		db:          db,
		store:       store,
		redisClient: redisClient,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		cfg:         cfg,
		log:         log,
	}
	if err := s.run(context.Background()); err != nil {
		log.Error("Failed to seed database: %v", err)
		panic(err)
	}

	log.Info("Database seeded successfully!")
}

type seeder struct {
	db          *gorm.DB
	store       storage.Storage
	redisClient *redis.Client
	httpClient  *http.Client
	cfg         *config.Config
	log         *logger.Logger
}

func (s *seeder) run(ctx context.Context) error {
	users := make([]*models.User, 0, len(demoUsers))
	for _, u := range demoUsers {
		user, err := s.user(u)
		if err != nil {
			return err
		}
		users = append(users, user)
	}

	// Each user follows the next one, closing the ring.
	for i, user := range users {
		next := users[(i+1)%len(users)]
		follow := &models.Follow{FollowerID: user.ID, FollowingID: next.ID}
		if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(follow).Error; err != nil {
			return fmt.Errorf("failed to create follow %s -> %s: %w", user.Username, next.Username, err)
		}
	}
	s.log.Info("Created follow ring for %d users", len(users))

	for i, user := range users {
		var count int64
		if err := s.db.Model(&models.Post{}).Where("user_id = ?", user.ID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			s.log.Info("User %s already has posts, skipping", user.Username)
			continue
		}

		postsCount := 2 + i%2
		for n := 0; n < postsCount; n++ {
			post, err := s.post(ctx, user, n)
			if err != nil {
				s.log.Error("Failed to create post %d for %s: %v", n+1, user.Username, err)
				continue
			}

			liker := users[(i+1)%len(users)]
			like := &models.Like{UserID: liker.ID, PostID: post.ID}
			if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(like).Error; err != nil {
				s.log.Error("Failed to like post %s: %v", post.ID, err)
			}
			s.warmLikes(ctx, post.ID)
		}
	}

	return nil
}

func (s *seeder) user(u seedUser) (*models.User, error) {
	var existing models.User
	err := s.db.Where("email = ? OR username = ?", u.email, u.username).First(&existing).Error
	if err == nil {
		s.log.Info("User %s already exists, skipping", u.username)
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        u.email,
		Username:     u.username,
		Phone:        u.phone,
		Password:     string(hashedPassword),
		ProfilePhoto: s.cfg.DefaultProfilePhoto,
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		return tx.Create(&models.Subscription{
			UserID: user.ID,
			Plan:   plans.Free,
			Status: models.SubscriptionActive,
		}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create user %s: %w", u.username, err)
	}

	s.log.Info("Created user: %s (%s)", user.Username, user.Email)
	return user, nil
}

func (s *seeder) post(ctx context.Context, user *models.User, index int) (*models.Post, error) {
	post := &models.Post{
		UserID: user.ID,
		Desc:   fmt.Sprintf("Post #%d by %s", index+1, user.Username),
	}

	if s.store != nil {
		img, err := s.image(ctx, user, index)
		if err != nil {
			s.log.Warn("Skipping image for %s: %v", user.Username, err)
		} else {
			post.Img = img
		}
	}

	now := time.Now()
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(post).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
			"post_count":     gorm.Expr("post_count + ?", 1),
			"last_post_date": now,
		}).Error; err != nil {
			return err
		}
		return tx.Model(&models.Subscription{}).Where("user_id = ?", user.ID).
			Update("post_count", gorm.Expr("post_count + ?", 1)).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Created post %s by %s", post.ID, user.Username)
	return post, nil
}

func (s *seeder) image(ctx context.Context, user *models.User, index int) (string, error) {
	url := fmt.Sprintf("https://cataas.com/cat/says/Hello%%20from%%20%s", user.Username)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("image API returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, s.cfg.MaxUploadSize))
	if err != nil {
		return "", fmt.Errorf("failed to read image data: %w", err)
	}
	if len(data) == 0 {
		return "", errors.New("received empty image data")
	}

	key := fmt.Sprintf("posts/%s/seed_%d.jpg", user.ID, index)
	return s.store.UploadFile(ctx, key, bytes.NewReader(data), "image/jpeg")
}

func (s *seeder) warmLikes(ctx context.Context, postID string) {
	if s.redisClient == nil {
		return
	}

	var count int64
	if err := s.db.Model(&models.Like{}).Where("post_id = ?", postID).Count(&count).Error; err != nil {
		s.log.Warn("Failed to count likes for %s: %v", postID, err)
		return
	}
	if err := s.redisClient.Set(ctx, "post:likes:"+postID, count, likeCountTTL).Err(); err != nil {
		s.log.Warn("Failed to cache likes for %s: %v", postID, err)
	}
}
