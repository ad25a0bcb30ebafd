package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/bizledger/internal/app"
	"github.com/odyssey-erp/bizledger/internal/credits"
	"github.com/odyssey-erp/bizledger/internal/invoices"
	"github.com/odyssey-erp/bizledger/internal/masterdata"
	"github.com/odyssey-erp/bizledger/internal/platform/db"
	"github.com/odyssey-erp/bizledger/migrations"
)

// Seeds a demo business with one bank account, two invoices and one payment that
// settles the first invoice in full and the second in part.
func main() {
	ctx := context.Background()
	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, 2)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	fmt.Println("→ Applying migrations...")
	if _, err := migrations.Apply(ctx, pool, logger); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	services := app.NewServices(cfg, pool, nil, nil, logger)
	loc := cfg.Location()

	fmt.Println("→ Seeding master data...")
	business, err := services.MasterData.CreateBusiness(ctx, masterdata.CreateBusinessInput{
		Name:      "Sharma Traders",
		GSTNumber: "27AAPFU0939F1ZV",
		Address:   "12 MG Road",
		District:  "Pune",
		State:     "Maharashtra",
		Pincode:   "411001",
	})
	if err != nil {
		log.Fatalf("seed business: %v", err)
	}
	bank, err := services.MasterData.CreateBankAccount(ctx, masterdata.CreateBankAccountInput{
		BankName:          "HDFC",
		AccountNumber:     "50100012345678",
		IFSCCode:          "HDFC0000123",
		AccountHolderName: "BizLedger Demo",
	})
	if err != nil {
		log.Fatalf("seed bank account: %v", err)
	}

	fmt.Println("→ Seeding invoices...")
	var created []invoices.Invoice
	for i, total := range []string{"5000.40", "12000"} {
		inv, err := services.Invoices.Create(ctx, invoices.CreateInput{
			Type:       invoices.TypeB2B,
			IssuedOn:   time.Date(2024, time.May, 10+i, 0, 0, 0, 0, loc),
			BusinessID: &business.ID,
			GrandTotal: decimal.RequireFromString(total),
		})
		if err != nil {
			log.Fatalf("seed invoice %d: %v", i+1, err)
		}
		created = append(created, inv)
	}

	fmt.Println("→ Seeding payment credit...")
	credit, err := services.Credits.AllocatePayment(ctx, credits.AllocatePaymentInput{
		Amount:        decimal.NewFromInt(9000),
		CreditDate:    time.Date(2024, time.June, 1, 0, 0, 0, 0, loc),
		BankAccountID: bank.ID,
		Reference:     "NEFT demo",
		Allocations: []credits.Allocation{
			{InvoiceID: created[0].ID, Amount: decimal.NewFromInt(5000)},
			{InvoiceID: created[1].ID, Amount: decimal.NewFromInt(4000)},
		},
	})
	if err != nil {
		log.Fatalf("seed credit: %v", err)
	}

	fmt.Printf("✓ Seed complete: business %s, credit #%d at %s\n", business.ID, credit.Number, time.Now().Format(time.RFC3339))
}
