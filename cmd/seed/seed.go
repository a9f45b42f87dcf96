package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/modelrelay/relay-api/internal/crypto"
	"github.com/modelrelay/relay-api/internal/registry"
	"github.com/modelrelay/relay-api/internal/store/cache"
	"github.com/modelrelay/relay-api/internal/store/sqlite"
	"github.com/modelrelay/relay-api/pkg/api"
)

// Seeds a local database with a couple of model configurations so the relay
// is usable straight after first start.
func main() {
	dsn := os.Getenv("STORE_DSN")
	if dsn == "" {
		dsn = "file:relay.db?_journal_mode=WAL&_busy_timeout=5000"
	}

	repo, err := sqlite.NewStorage(dsn)
	if err != nil {
		log.Fatal(err)
	}
	defer func() {
		_ = repo.Close()
	}()

	cipher := crypto.NewCipher(os.Getenv("APP_ENC_KEY"))
	svc := registry.NewService(zap.NewNop(), repo, cipher, cache.NewMemoryCache())

	ctx := context.Background()
	seeds := []*api.ModelUpsertRequest{
		{
			ID:      "openai-gpt-4o-mini",
			Name:    "GPT-4o mini",
			BaseURL: "https://api.openai.com",
			Model:   "gpt-4o-mini",
			APIKey:  os.Getenv("OPENAI_API_KEY"),
		},
		{
			ID:      "local-ollama",
			Name:    "Ollama Local",
			BaseURL: "http://localhost:11434",
			Path:    "/v1/chat/completions",
			Model:   "llama3",
			APIKey:  "ollama",
		},
	}

	for _, s := range seeds {
		if s.APIKey != "" && !cipher.Ready() {
			log.Fatalf("seeding %s needs APP_ENC_KEY set", s.ID)
		}
		id, err := svc.Upsert(ctx, s)
		if err != nil {
			log.Fatalf("failed to seed %s: %v", s.ID, err)
		}
		fmt.Printf("seeded model config: %s\n", id)
	}
}
