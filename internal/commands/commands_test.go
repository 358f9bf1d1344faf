package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/divvy/internal/config"
	"github.com/mmynk/divvy/internal/service"
	"github.com/mmynk/divvy/internal/storage/sqlite"
	"github.com/mmynk/divvy/pkg/api/apiconnect"
)

// testLedger opens one sqlite store shared by every command run in a test.
func testLedger(t *testing.T) opener {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "divvy.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	svc := service.NewLedgerService(store, service.WithParties(config.Parties{
		"A": {Name: "Ana", Handle: "ana-p"},
		"B": {Name: "Ben", Handle: "ben_q"},
	}))
	return func(context.Context, *globalOptions) (apiconnect.LedgerServiceClient, func() error, error) {
		return svc, func() error { return nil }, nil
	}
}

func runDivvyctl(t *testing.T, open opener, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand(open)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestBalance_Empty(t *testing.T) {
	out, err := runDivvyctl(t, testLedger(t), "balance")
	require.NoError(t, err)
	assert.Equal(t, "All settled up\n", out)
}

func TestExpensesAdd_UpdatesBalance(t *testing.T) {
	open := testLedger(t)

	out, err := runDivvyctl(t, open, "expenses", "add", "--payer", "a",
		"--item", "Ben's shirt:20:B",
		"--item", "Ana's shoes:20:a",
		"--tax", "4", "--total", "44")
	require.NoError(t, err)
	assert.Contains(t, out, "Recorded expense")
	assert.Contains(t, out, "Ben owes Ana $22.00")

	out, err = runDivvyctl(t, open, "expenses", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "$44.00")
	assert.Contains(t, out, "B $22.00")
}

func TestExpensesAdd_Rejected(t *testing.T) {
	open := testLedger(t)

	_, err := runDivvyctl(t, open, "expenses", "add", "--payer", "A", "--item", "Groceries:-3:Shared")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_argument")

	_, err = runDivvyctl(t, open, "expenses", "add", "--payer", "A", "--item", "Groceries")
	assert.ErrorContains(t, err, "LABEL:AMOUNT:OWNER")

	out, err := runDivvyctl(t, open, "balance")
	require.NoError(t, err)
	assert.Equal(t, "All settled up\n", out)
}

func TestPaymentsAddAndDelete(t *testing.T) {
	open := testLedger(t)

	_, err := runDivvyctl(t, open, "expenses", "add", "--payer", "A", "--item", "Groceries:10:Shared")
	require.NoError(t, err)

	out, err := runDivvyctl(t, open, "payments", "add", "--from", "B", "--to", "A", "--amount", "8", "--note", "extra")
	require.NoError(t, err)
	assert.Contains(t, out, "Ana owes Ben $3.00")

	id := regexp.MustCompile(`Recorded payment (\S+)`).FindStringSubmatch(out)
	require.Len(t, id, 2)

	out, err = runDivvyctl(t, open, "payments", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "extra")

	out, err = runDivvyctl(t, open, "payments", "delete", id[1])
	require.NoError(t, err)
	assert.Contains(t, out, "Ben owes Ana $5.00")

	_, err = runDivvyctl(t, open, "payments", "delete", id[1])
	assert.ErrorContains(t, err, "not_found")
}

func TestSettle(t *testing.T) {
	open := testLedger(t)

	_, err := runDivvyctl(t, open, "expenses", "add", "--payer", "A", "--item", "Dinner:30:Shared")
	require.NoError(t, err)

	_, err = runDivvyctl(t, open, "settle")
	assert.ErrorContains(t, err, "--as is required")

	_, err = runDivvyctl(t, open, "settle", "--as", "C")
	assert.ErrorContains(t, err, "unknown party")

	out, err := runDivvyctl(t, open, "settle", "--as", "b", "--method", "app-transfer-A")
	require.NoError(t, err)
	assert.Contains(t, out, "$15.00 B -> A")
	assert.Contains(t, out, "venmo://paycharge?txn=pay&recipients=ana-p&amount=15.00")
	assert.Contains(t, out, "All settled up")

	_, err = runDivvyctl(t, open, "settle", "--as", "B")
	assert.ErrorContains(t, err, "already settled")
}

func TestReceipt_AnalyzerDisabled(t *testing.T) {
	image := filepath.Join(t.TempDir(), "receipt.jpg")
	require.NoError(t, os.WriteFile(image, []byte{0xff, 0xd8, 0xff}, 0o644))

	_, err := runDivvyctl(t, testLedger(t), "receipt", image, "--payer", "A")
	assert.ErrorContains(t, err, "could not analyze receipt")
}

func TestParseItem(t *testing.T) {
	item, err := parseItem("Ratio 2:1 mix:3.50:shared")
	require.NoError(t, err)
	assert.Equal(t, "Ratio 2:1 mix", item.Label)
	assert.Equal(t, 3.5, item.Amount)
	assert.Equal(t, "Shared", item.Owner)

	_, err = parseItem("Milk:abc:A")
	assert.ErrorContains(t, err, "invalid amount")
}
