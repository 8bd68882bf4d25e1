package main

import (
	"context"
	"log"
	"os"
	"time"

	"notaryorders/internal/config"
	"notaryorders/internal/db"
	"notaryorders/internal/dispatch"
	"notaryorders/internal/domain"
	dispatchrepo "notaryorders/internal/repository/dispatchclient"
	"notaryorders/internal/retryhttp"
)

const platformTime = "2006-01-02 15:04:05"

func main() {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[syncdispatch] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	client := dispatch.NewClient(dispatch.Config{
		BaseURL:  cfg.DispatchBaseURL,
		APIKey:   cfg.DispatchAPIKey,
		ClientID: cfg.DispatchClientID,
	}, retryhttp.New(retryhttp.Policy{
		MaxAttempts: cfg.RetryAttempts,
		Delay:       cfg.RetryDelay,
		Timeout:     cfg.CallTimeout,
	}, logger), logger)
	repo := dispatchrepo.NewPostgres(pool, logger)

	clients, err := syncClients(ctx, client, repo)
	if err != nil {
		logger.Fatalf("sync clients: %v", err)
	}
	logger.Printf("synced %d clients", len(clients))

	for _, c := range clients {
		n, err := syncUsers(ctx, client, repo, c.ID)
		if err != nil {
			logger.Fatalf("sync users for client %d: %v", c.ID, err)
		}
		logger.Printf("synced %d users for client %d (%s)", n, c.ID, c.CompanyName)
	}
}

func syncClients(ctx context.Context, api *dispatch.Client, repo dispatchrepo.Repository) ([]domain.DispatchClient, error) {
	var all []domain.DispatchClient
	pageURL := ""
	for {
		page, err := api.ListClients(ctx, pageURL)
		if err != nil {
			return nil, err
		}
		for _, rec := range page.Data {
			c := domain.DispatchClient{
				ID:              rec.ID,
				OwnerID:         rec.OwnerID,
				ParentCompanyID: rec.ParentCompanyID,
				Type:            rec.Type,
				CompanyName:     rec.CompanyName,
				Active:          rec.Active,
				CreatedAt:       parsePlatformTime(rec.CreatedAt),
				UpdatedAt:       parsePlatformTime(rec.UpdatedAt),
			}
			if err := repo.UpsertClient(ctx, c); err != nil {
				return nil, err
			}
			all = append(all, c)
		}
		if page.Next == "" {
			return all, nil
		}
		pageURL = page.Next
	}
}

func syncUsers(ctx context.Context, api *dispatch.Client, repo dispatchrepo.Repository, clientID int64) (int, error) {
	count := 0
	pageURL := ""
	for {
		page, err := api.ListClientUsers(ctx, clientID, pageURL)
		if err != nil {
			return count, err
		}
		for _, rec := range page.Data {
			u := domain.DispatchUser{
				ID:        rec.ID,
				ClientID:  clientID,
				Email:     rec.Email,
				FirstName: rec.FirstName,
				LastName:  rec.LastName,
				Phone:     rec.Attr["phone"],
				Disabled:  rec.Disabled,
				CreatedAt: parsePlatformTime(rec.CreatedAt),
				UpdatedAt: parsePlatformTime(rec.UpdatedAt),
			}
			if err := repo.UpsertUser(ctx, u); err != nil {
				return count, err
			}
			count++
		}
		if page.Next == "" {
			return count, nil
		}
		pageURL = page.Next
	}
}

func parsePlatformTime(s string) time.Time {
	t, err := time.Parse(platformTime, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
