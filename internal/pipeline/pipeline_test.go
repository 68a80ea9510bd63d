package pipeline

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finrota/bankfeed/internal/directory"
	"github.com/finrota/bankfeed/internal/email"
	"github.com/finrota/bankfeed/internal/logger"
	"github.com/finrota/bankfeed/internal/match"
	"github.com/finrota/bankfeed/internal/store"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var statementText = strings.Join([]string{
	"Hesap Sahibi: AHMET KAYA",
	"Tarih Aralığı 01/08/2025 - 31/08/2025",
	"Açılış Bakiyesi: 4.000,00 TL",
	"11/08/2025 09:00:00 Gelen FAST - Ahmet Yılmaz 1.000,00 TL 5.000,00 TL",
	"12/08/2025 10:30:00 Havale komisyon ücreti -12,50 TL 4.987,50 TL",
	"13/08/2025 11:00:00 POS alışveriş MİGROS -250,75 TL 4.736,75 TL",
	"this line is unparseable continuation noise",
}, "\n")

func newTestPipeline(t *testing.T, opts ...Option) (*Pipeline, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	log := logger.NewWithWriter(&strings.Builder{})
	return New(mem, log, opts...), mem
}

func TestIngestStatementText(t *testing.T) {
	ctx := context.Background()
	p, mem := newTestPipeline(t)

	summary, err := p.IngestStatementText(ctx, statementText)
	require.NoError(t, err)

	assert.Equal(t, "AHMET KAYA", summary.Account.HolderName)
	assert.Equal(t, 3, summary.Segmented)
	assert.Equal(t, 3, summary.Processed)
	assert.Equal(t, 3, summary.Inserted)
	assert.Equal(t, 0, summary.Duplicates)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, 0, summary.Anomalous)
	assert.Equal(t, 3, mem.Len())
}

func TestIngestStatementTextTwiceIsIdempotent(t *testing.T) {
	ctx := context.Background()
	p, mem := newTestPipeline(t)

	first, err := p.IngestStatementText(ctx, statementText)
	require.NoError(t, err)

	second, err := p.IngestStatementText(ctx, statementText)
	require.NoError(t, err)

	assert.Equal(t, first.Inserted, second.Duplicates)
	assert.Equal(t, 0, second.Inserted)
	assert.Equal(t, 3, mem.Len())
}

func TestIngestStatementTextFlagsBalanceAnomaly(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestPipeline(t)

	text := strings.Join([]string{
		"11/08/2025 09:00:00 önceki bakiye 100,00 TL 100,00 TL",
		"12/08/2025 09:00:00 gelen havale 50,00 TL 150,00 TL",
		"13/08/2025 09:00:00 gelen havale 10,00 TL 140,00 TL",
	}, "\n")

	summary, err := p.IngestStatementText(ctx, text)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Anomalous)
}

func TestIngestEmails(t *testing.T) {
	ctx := context.Background()
	p, mem := newTestPipeline(t, WithEmailWorkers(2))

	msgs := []email.Message{
		{
			MessageID: "<m1@bank>",
			Subject:   "Gelen FAST Bildirimi",
			Body:      "Sayın müşterimiz, TR330006100519786457841326 hesabınıza, 15/03/2024 14:30:25 tarihinde, Ahmet Yılmaz isimli kişiden 1.250,00 TL FAST ödemesi gelmiştir.",
		},
		{
			MessageID: "<m2@bank>",
			Subject:   "Kampanya",
			Body:      "Yeni kredi fırsatlarımızı kaçırmayın.",
		},
	}

	summary, err := p.IngestEmails(ctx, msgs)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Segmented)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, summary.Inserted)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, mem.Len())
}

func TestIngestEmailsWithoutMessageIDs(t *testing.T) {
	ctx := context.Background()
	p, mem := newTestPipeline(t, WithEmailWorkers(2))

	// Some banks omit the Message-ID header; both notifications must still
	// be extracted independently.
	msgs := []email.Message{
		{
			Subject: "Gelen FAST Bildirimi",
			Body:    "TR330006100519786457841326 hesabınıza, 15/03/2024 14:30:25 tarihinde, Ahmet Yılmaz isimli kişiden 1.250,00 TL FAST ödemesi gelmiştir.",
		},
		{
			Subject: "Gelen FAST Bildirimi",
			Body:    "TR330006100519786457841326 hesabınıza, 16/03/2024 09:05:00 tarihinde, Mehmet Kaya isimli kişiden 300,00 TL FAST ödemesi gelmiştir.",
		},
	}

	summary, err := p.IngestEmails(ctx, msgs)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 2, summary.Inserted)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, 2, mem.Len())
}

func TestMatchUnmatched(t *testing.T) {
	ctx := context.Background()

	dir := &directory.InMemory{Customers: []*directory.Customer{
		{
			ID:   "cust-1",
			Name: "Ahmet Yılmaz",
			RecentTransactions: []directory.PastTransaction{
				{Amount: dec("1000"), Date: time.Now().AddDate(0, 0, -3)},
			},
		},
	}}
	p, _ := newTestPipeline(t, WithMatcher(match.NewMatcher(dir)))

	_, err := p.IngestStatementText(ctx, statementText)
	require.NoError(t, err)

	summary, err := p.MatchUnmatched(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Examined)
	assert.Equal(t, 1, summary.Matched)
	assert.Equal(t, 2, summary.Unmatched)

	// Matched rows leave the unmatched set.
	again, err := p.MatchUnmatched(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, again.Examined)
}

func TestStatsAccumulate(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestPipeline(t)

	_, err := p.IngestStatementText(ctx, statementText)
	require.NoError(t, err)

	snap := p.Stats()
	assert.Equal(t, int64(3), snap.RecordsParsed)
	assert.Equal(t, int64(3), snap.Inserted)
}
