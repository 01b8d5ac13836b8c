// File: cmd/seed/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"edu-entitlement-engine/internal/config"
	"edu-entitlement-engine/internal/domain/model"
	"edu-entitlement-engine/internal/domain/ports/repository"
	pg "edu-entitlement-engine/internal/infra/db/postgres"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	catalog := pg.NewCatalogRepo(pool)

	// Fixed ids keep the seed idempotent across runs.
	const groupID = "3d0f3c6e-9a1a-4a55-8f27-2a1f0b6f1c01"

	// If the sample group already has prices, do nothing.
	if prices, err := catalog.ListTierPrices(ctx, repository.NoTX, groupID); err == nil && len(prices) > 0 {
		fmt.Printf("%d tier prices already present for %s. No changes.\n", len(prices), groupID)
		return
	}

	group := &model.ContentGroup{ID: groupID, Name: "Konkoor Mathematics", CreatedAt: time.Now().UTC()}
	if err := catalog.SaveContentGroup(ctx, repository.NoTX, group); err != nil {
		log.Fatalf("save content group: %v", err)
	}
	fmt.Printf("seeded group: %s (%s)\n", group.Name, group.ID)

	contents := []*model.Content{
		{ID: "6a9b3a64-1d2f-4f7b-947e-5a0a3d2b6c11", ContentGroupID: groupID, Title: "Course Introduction", IsFree: true, CreatedAt: time.Now().UTC()},
		{ID: "8b7c4d75-2e3a-4a8c-a58f-6b1b4e3c7d22", ContentGroupID: groupID, Title: "Derivatives Deep Dive", IsFree: false, CreatedAt: time.Now().UTC()},
		{ID: "9c8d5e86-3f4b-4b9d-b69a-7c2c5f4d8e33", ContentGroupID: groupID, Title: "Integrals Workshop", IsFree: false, CreatedAt: time.Now().UTC()},
	}
	for _, c := range contents {
		if err := catalog.SaveContent(ctx, repository.NoTX, c); err != nil {
			log.Fatalf("save content %q: %v", c.ID, err)
		}
		fmt.Printf("seeded content: %s (free=%t)\n", c.Title, c.IsFree)
	}

	seed := []struct {
		Tier   model.Tier
		Amount int64
		Days   int
	}{
		{model.TierTrial, 50_000, 7},
		{model.TierStandard, 690_000, 30},
		{model.TierExtended, 1_890_000, 90},
	}
	for _, s := range seed {
		p, err := model.NewTierPrice(groupID, s.Tier, s.Amount, "IRR", s.Days)
		if err != nil {
			log.Fatalf("tier price %s: %v", s.Tier, err)
		}
		if err := catalog.SaveTierPrice(ctx, repository.NoTX, p); err != nil {
			log.Fatalf("save tier price %s: %v", s.Tier, err)
		}
		fmt.Printf("seeded price: %s (amount=%d IRR, days=%d)\n", p.Tier, p.Amount, p.DurationDays)
	}

	fmt.Println("✅ Seeding complete.")
}
