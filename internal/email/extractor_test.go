package email

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finrota/bankfeed/internal/domain"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestExtractFASTInbound(t *testing.T) {
	msg := Message{
		Subject: "FAST Bilgilendirme",
		Body: "Sayın müşterimiz, TR123...4567 hesabınıza, 15/01/2025 14:30:25 tarihinde, " +
			"Ahmet Yılmaz isimli kişiden 1.250,00 TL FAST ödemesi gelmiştir.",
	}

	tx, err := Extract(msg)
	require.NoError(t, err)

	assert.Equal(t, "FAST", tx.TransactionType)
	assert.Equal(t, domain.DirectionIn, tx.Direction)
	assert.True(t, tx.Credit.Equal(dec("1250")), "credit = %s", tx.Credit)
	assert.True(t, tx.Debit.IsZero())
	assert.Equal(t, "Ahmet Yılmaz", tx.CounterpartyName)
	assert.Equal(t, "TL", tx.Currency)
	assert.Equal(t, time.Date(2025, 1, 15, 14, 30, 25, 0, time.UTC), tx.Timestamp)
	assert.Equal(t, 1.0, tx.Confidence)
}

func TestExtractHavaleOutbound(t *testing.T) {
	msg := Message{
		Subject: "Hesap Hareketi",
		Body: "TR330006100519786457841326 hesabınızdan, 16/01/2025 09:05:00 tarihinde, " +
			"Ayşe Kara isimli kişiye 500,00 TL havale gönderilmiştir. Bakiyeniz: 4.500,00 TL",
	}

	tx, err := Extract(msg)
	require.NoError(t, err)

	assert.Equal(t, "HAVALE", tx.TransactionType)
	assert.Equal(t, domain.DirectionOut, tx.Direction)
	assert.True(t, tx.Debit.Equal(dec("500")))
	assert.Equal(t, "Ayşe Kara", tx.CounterpartyName)
	assert.Equal(t, "TR330006100519786457841326", tx.CounterpartyIBAN)
	assert.True(t, tx.BalanceAfter.Equal(dec("4500")))
	assert.Equal(t, "TL", tx.BalanceCurrency)
	assert.Equal(t, "Giden HAVALE - Ayşe Kara", tx.Description)
}

func TestExtractEFTFallsThroughTemplateOrder(t *testing.T) {
	msg := Message{
		Body: "1234****5678 hesabınıza, 17/01/2025 11:45:10 tarihinde, " +
			"Mehmet Demir isimli kişiden 2.365.792,5 TL EFT gelmiştir.",
	}

	tx, err := Extract(msg)
	require.NoError(t, err)

	assert.Equal(t, "EFT", tx.TransactionType)
	assert.True(t, tx.Credit.Equal(dec("2365792.50")))
	assert.Empty(t, tx.CounterpartyIBAN, "masked account is not an IBAN")
}

func TestExtractSubjectDirectionWinsOverBody(t *testing.T) {
	// The subject says outbound even though the body verbs read inbound.
	msg := Message{
		Subject: "Giden EFT Bilgilendirmesi",
		Body: "TR980006200119000006672315 hesabınıza, 18/01/2025 10:00:00 tarihinde, " +
			"Veli Can isimli kişiden 75,00 TL EFT gelmiştir.",
	}

	tx, err := Extract(msg)
	require.NoError(t, err)
	assert.Equal(t, domain.DirectionOut, tx.Direction)
}

func TestExtractTemplateMismatch(t *testing.T) {
	msg := Message{Subject: "Kampanya", Body: "Kredi kartınıza özel fırsatlar sizi bekliyor."}

	tx, err := Extract(msg)
	assert.Nil(t, tx)
	assert.ErrorIs(t, err, ErrTemplateMismatch)
}

func TestExtractDirectionUnresolved(t *testing.T) {
	// A neutral-verb notification with no direction marker anywhere.
	msg := Message{
		Subject: "Bilgilendirme",
		Body: "TR980006200119000006672315 hesabınız, 18/01/2025 10:00:00 tarihinde, " +
			"Veli Can isimli kişi 75,00 TL EFT gerçekleşmiştir.",
	}

	tx, err := Extract(msg)
	assert.Nil(t, tx)
	assert.ErrorIs(t, err, ErrDirectionUnresolved)
}

func TestCleanBody(t *testing.T) {
	raw := "<html><body><p>Say&#305;n m&uuml;&#351;terimiz,</p>\r\n" +
		"<p>hesab=C4=B1n=C4=B1za 100,00 TL gelmi=C5=9Ftir.</p></body></html>"

	got := CleanBody(raw)

	assert.Contains(t, got, "Sayın müşterimiz,")
	assert.Contains(t, got, "hesabınıza 100,00 TL gelmiştir.")
	assert.NotContains(t, got, "<p>")
}
