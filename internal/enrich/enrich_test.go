package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/finrota/bankfeed/internal/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		operation   string
		direction   domain.Direction
		description string
		want        domain.Category
	}{
		{"incoming transfer", "FAST", domain.DirectionIn, "Gelen FAST - Ahmet Yılmaz", domain.CategoryInboundTransfer},
		{"outgoing transfer", "EFT", domain.DirectionOut, "Giden EFT - Ayşe Kara", domain.CategoryOutboundTransfer},
		{"fee", "", domain.DirectionOut, "Havale komisyon ücreti", domain.CategoryFeeTax},
		{"pos", "", domain.DirectionOut, "POS alışveriş MİGROS", domain.CategoryPointOfSale},
		{"utility bill", "", domain.DirectionOut, "Elektrik fatura ödemesi ENERJISA", domain.CategoryUtilityBill},
		{"unclassified", "", domain.DirectionOut, "bilinmeyen hareket", domain.CategoryOther},
		{"incoming beats fee", "", domain.DirectionIn, "Gelen havale işlem ücreti iadesi", domain.CategoryInboundTransfer},
		{"fee beats pos", "", domain.DirectionOut, "Kartı yıllık ücret", domain.CategoryFeeTax},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.operation, tt.direction, tt.description)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEnrichFillsCounterpartyFromPrefix(t *testing.T) {
	tx := &domain.Transaction{
		Description: "Gelen FAST - Ahmet Yılmaz TR330006100519786457841326",
		Direction:   domain.DirectionIn,
	}

	Enrich(tx)

	assert.Equal(t, domain.CategoryInboundTransfer, tx.Category)
	assert.Equal(t, "Ahmet Yılmaz", tx.CounterpartyName)
	assert.Equal(t, "TR330006100519786457841326", tx.CounterpartyIBAN)
}

func TestEnrichKeepsExtractorFields(t *testing.T) {
	tx := &domain.Transaction{
		Description:      "Gelen FAST - Ahmet Yılmaz",
		Direction:        domain.DirectionIn,
		TransactionType:  "FAST",
		CounterpartyName: "Ahmet Yılmaz",
		CounterpartyIBAN: "TR980006200119000006672315",
	}

	Enrich(tx)

	assert.Equal(t, "Ahmet Yılmaz", tx.CounterpartyName)
	assert.Equal(t, "TR980006200119000006672315", tx.CounterpartyIBAN)
	assert.Equal(t, "fast", tx.Subcategory)
}

func TestExtractCounterpartyNameFallbackSecondSegment(t *testing.T) {
	assert.Equal(t, "ENERJISA", ExtractCounterpartyName("Fatura ödemesi / ENERJISA / 123"))
}

func TestExtractCounterpartyNameShortIsNoise(t *testing.T) {
	assert.Empty(t, ExtractCounterpartyName("Giden EFT - X"))
	assert.Empty(t, ExtractCounterpartyName("sadece açıklama"))
}
