package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/shopspring/decimal"

	ledger "github.com/coreledger/ledger"
)

func main() {
	fmt.Println("Ledger engine demo")
	fmt.Println("==================")

	dbFile := "demo_ledger.db"
	os.Remove(dbFile)

	engine, err := ledger.NewLedgerEngine(dbFile)
	if err != nil {
		log.Fatalf("failed to create ledger engine: %v", err)
	}
	defer engine.Close()
	defer os.Remove(dbFile)

	userID := "demo_user"
	now := time.Now()

	fmt.Println("\nStep 1: posting a sale")
	sale, err := engine.Vouchers.Submit(ledger.VoucherRequest{
		Date:        now,
		Description: "Cash sale of consulting services",
		Entries: []ledger.VoucherEntry{
			{AccountCode: "1001", Debit: decimal.NewFromInt(2500), Credit: ledger.Zero, Dims: ledger.NoDimensions()},
			{AccountCode: "4000", Debit: ledger.Zero, Credit: decimal.NewFromInt(2500), Dims: ledger.NoDimensions()},
		},
	}, userID)
	if err != nil {
		log.Fatalf("failed to submit sale voucher: %v", err)
	}
	if _, err := engine.Vouchers.Review(sale.ID); err != nil {
		log.Fatalf("failed to review sale voucher: %v", err)
	}
	sale, err = engine.Vouchers.Confirm(sale.ID, userID)
	if err != nil {
		log.Fatalf("failed to confirm sale voucher: %v", err)
	}
	fmt.Printf("posted voucher %s\n", sale.Number)

	fmt.Println("\nStep 2: recording inventory")
	if err := engine.Inventory.RegisterItem(&ledger.InventoryItem{
		SKU:            "widget-1",
		InventoryAcct:  "1003",
		COGSAcct:       "5000",
		Method:         ledger.CostFIFO,
		NegativePolicy: ledger.NegativeReject,
	}); err != nil {
		log.Fatalf("failed to register inventory item: %v", err)
	}
	if _, err := engine.Inventory.Receive("widget-1", decimal.NewFromInt(10), decimal.NewFromFloat(10.00), now, userID); err != nil {
		log.Fatalf("failed to receive inventory: %v", err)
	}
	if _, err := engine.Inventory.Receive("widget-1", decimal.NewFromInt(5), decimal.NewFromFloat(12.00), now, userID); err != nil {
		log.Fatalf("failed to receive inventory: %v", err)
	}
	_, cogs, err := engine.Inventory.Issue("widget-1", decimal.NewFromInt(12), now, userID)
	if err != nil {
		log.Fatalf("failed to issue inventory: %v", err)
	}
	fmt.Printf("issued 12 units, COGS recognized: %s\n", cogs.StringFixed(2))

	fmt.Println("\nStep 3: trial balance")
	period := now.Format("2006-01")
	rows, err := engine.TrialBalance(period)
	if err != nil {
		log.Fatalf("failed to generate trial balance: %v", err)
	}
	totalDebit, totalCredit := ledger.Zero, ledger.Zero
	for _, row := range rows {
		fmt.Printf("  %-28s debit %10s  credit %10s\n", row.AccountName, row.Debit.StringFixed(2), row.Credit.StringFixed(2))
		totalDebit = totalDebit.Add(row.Debit)
		totalCredit = totalCredit.Add(row.Credit)
	}
	fmt.Printf("  totals: debit %s credit %s\n", totalDebit.StringFixed(2), totalCredit.StringFixed(2))

	fmt.Println("\nStep 4: rebuilding balances from the voucher log")
	if err := engine.Rebuild(); err != nil {
		log.Fatalf("failed to rebuild balances: %v", err)
	}
	fmt.Println("balances rebuilt from the voucher log")

	fmt.Println("\ndemo complete")
}
