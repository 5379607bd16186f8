// File: cmd/seed/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"pos-license-platform/internal/config"
	"pos-license-platform/internal/domain/model"
	pg "pos-license-platform/internal/infra/db/postgres"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	withDemo := flag.Bool("demo", false, "also seed a demo merchant and device")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	planRepo := pg.NewPlanRepo(pool)

	// If plans already exist, do nothing.
	plans, err := planRepo.ListActive(ctx, nil)
	if err != nil {
		log.Fatalf("list plans: %v", err)
	}
	if len(plans) > 0 {
		fmt.Printf("%d plans already present. No changes.\n", len(plans))
		for _, p := range plans {
			fmt.Printf("  - %s (code=%s, days=%d, trial=%d, price=%d %s)\n",
				p.Name, p.Code, p.DurationDays, p.TrialDays, p.Price, p.Currency)
		}
		return
	}

	seed := []struct {
		Name      string
		Code      string
		Days      int
		TrialDays int
		Price     int64
	}{
		{"Basic", "basic", 30, 14, 150_000},
		{"Pro", "pro", 30, 14, 400_000},
		{"Annual", "annual", 365, 14, 3_900_000},
	}

	for _, s := range seed {
		p, err := model.NewPlan(uuid.NewString(), s.Name, s.Code, s.Price, "IDR", s.Days, s.TrialDays, time.Now())
		if err != nil {
			log.Fatalf("build plan %q: %v", s.Name, err)
		}
		if err := planRepo.Save(ctx, nil, p); err != nil {
			log.Fatalf("save plan %q: %v", s.Name, err)
		}
		fmt.Printf("seeded: %s (id=%s, code=%s, days=%d, price=%d IDR)\n",
			p.Name, p.ID, p.Code, p.DurationDays, p.Price)
	}

	if *withDemo {
		merchantRepo := pg.NewMerchantRepo(pool)
		deviceRepo := pg.NewDeviceRepo(pool)

		merchant, err := model.NewMerchant(uuid.NewString(), "Demo Merchant", "demo@example.com", time.Now())
		if err != nil {
			log.Fatalf("build merchant: %v", err)
		}
		if err := merchantRepo.Save(ctx, nil, merchant); err != nil {
			log.Fatalf("save merchant: %v", err)
		}
		device, err := model.NewDevice(uuid.NewString(), merchant.ID, "POS-DEMO-0001", time.Now())
		if err != nil {
			log.Fatalf("build device: %v", err)
		}
		if err := deviceRepo.Save(ctx, nil, device); err != nil {
			log.Fatalf("save device: %v", err)
		}
		fmt.Printf("seeded demo merchant %s with device %s\n", merchant.ID, device.DeviceUID)
	}

	fmt.Println("Seeding complete.")
}
