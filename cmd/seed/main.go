package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sync"

	"github.com/lazypandaa/connect/config"
	"github.com/lazypandaa/connect/db"
	"github.com/lazypandaa/connect/logger"
	"github.com/lazypandaa/connect/models"
	"github.com/lazypandaa/connect/services"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// seed наполняет базу тестовыми пользователями, дружбой и постами
func main() {
	var (
		configPath string
		total      int
		workers    int
		password   string
	)
	flag.StringVar(&configPath, "config", "config.yaml", "Path to the configuration file")
	flag.IntVar(&total, "users", 100, "Number of users to create")
	flag.IntVar(&workers, "workers", 5, "Concurrent workers")
	flag.StringVar(&password, "password", "password123", "Password for every generated user")
	flag.Parse()

	_ = godotenv.Load()
	if err := config.LoadConfig(configPath); err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load configuration:", err)
		os.Exit(1)
	}
	if err := logger.Init(config.AppConfig.Logs.Level, "console"); err != nil {
		fmt.Fprintln(os.Stderr, "Failed to init logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.L()

	if err := db.ConnectDB(); err != nil {
		log.Fatal("failed to connect to the database", zap.Error(err))
	}
	defer db.Close()

	ids := createUsers(context.Background(), total, workers, password)
	log.Info("users created", zap.Int("count", len(ids)))

	friendships, posts := linkUsers(context.Background(), ids)
	log.Info("seed finished", zap.Int("friendships", friendships), zap.Int("posts", posts))
}

func createUsers(ctx context.Context, total, workers int, password string) []int64 {
	users := services.NewUserService()
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids []int64
	)
	sem := make(chan struct{}, workers)

	for i := 0; i < total; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			fullname := gofakeit.Name()
			email := fmt.Sprintf("%s.%s@%s", gofakeit.Username(), gofakeit.Numerify("####"), gofakeit.DomainName())
			user, err := users.Register(ctx, fullname, email, password)
			if err != nil {
				logger.L().Warn("failed to create user", zap.String("email", email), zap.Error(err))
				return
			}
			mu.Lock()
			ids = append(ids, user.ID)
			mu.Unlock()
		}()
	}
	wg.Wait()
	return ids
}

// linkUsers создает случайные заявки (часть принимается) и посты
func linkUsers(ctx context.Context, ids []int64) (int, int) {
	if len(ids) < 2 {
		return 0, 0
	}
	friends := services.NewFriendService()
	posts := services.NewPostService()
	visibilities := []string{string(models.VisibilityPublic), string(models.VisibilityFriends), string(models.VisibilityPrivate)}

	friendships, created := 0, 0
	for _, id := range ids {
		for n := gofakeit.Number(1, 5); n > 0; n-- {
			other := ids[gofakeit.Number(0, len(ids)-1)]
			edge, err := friends.SendRequest(ctx, id, other)
			if err != nil {
				continue
			}
			if gofakeit.Float32() < 0.7 {
				if _, err = friends.Accept(ctx, other, edge.ID); err == nil {
					friendships++
				}
			}
		}

		for n := gofakeit.Number(0, 3); n > 0; n-- {
			visibility := models.Visibility(gofakeit.RandomString(visibilities))
			if _, err := posts.Create(ctx, id, gofakeit.Phrase(), "", visibility); err == nil {
				created++
			}
		}
	}
	return friendships, created
}
