package statement

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/fatura-itau/internal/domain"
	"github.com/dvloznov/fatura-itau/internal/normalize"
	"github.com/dvloznov/fatura-itau/internal/pdftext"
)

type tableRow struct {
	Data, Estabelecimento, Valor string
}

func table(records []domain.CardTransaction) []tableRow {
	out := make([]tableRow, len(records))
	for i, r := range records {
		out[i] = tableRow{r.DateString(), r.Establishment, r.Value}
	}
	return out
}

func TestParse_SingleLine(t *testing.T) {
	pages := []pdftext.Page{page(1,
		"Vencimento: 20/03/2025",
		"10/03 SUPERMERCADO ABC 123,45",
	)}

	res, err := newTestParser(t).Parse(context.Background(), pages)
	require.NoError(t, err)

	assert.Equal(t, []tableRow{{"10/03/2025", "SUPERMERCADO ABC", "123,45"}}, table(res.Records))
	assert.Equal(t, civil.Date{Year: 2025, Month: time.March, Day: 20}, res.DueDate)
	assert.Equal(t, 1, res.Stats.Linear)
}

func TestParse_NoDueDate(t *testing.T) {
	pages := []pdftext.Page{page(1, "10/03 SUPERMERCADO ABC 123,45")}

	_, err := newTestParser(t).Parse(context.Background(), pages)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoDueDate))
}

func TestParse_TwoColumns(t *testing.T) {
	pages := []pdftext.Page{twoColumn(1,
		[]string{"Vencimento: 20/03/2025", "10/03 LOJA A 10,00", "11/03 LOJA C 1.234,56"},
		[]string{"", "12/03 LOJA B 20,00", "01/03 a 15/03) 7,00"},
	)}

	res, err := newTestParser(t).Parse(context.Background(), pages)
	require.NoError(t, err)

	assert.Equal(t, []tableRow{
		{"10/03/2025", "LOJA A", "10,00"},
		{"11/03/2025", "LOJA C", "1.234,56"},
		{"12/03/2025", "LOJA B", "20,00"},
	}, table(res.Records))
	assert.Equal(t, 1, res.Stats.Column)
}

func TestParse_ColumnPassWins(t *testing.T) {
	tests := []struct {
		name   string
		linear string
		column string
	}{
		{name: "column sorts last", linear: "10/03 PADARIA  SÃO JOÃO 1.000,00", column: "10/03 Padaria Sao Joao 1.000,00"},
		{name: "column sorts first", linear: "10/03 padaria sao joao 1.000,00", column: "10/03 PADARIA SAO JOAO 1.000,00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := page(1, "Vencimento: 20/03/2025", tt.linear)
			// The right column repeats the purchase with different casing.
			p.Words = append(p.Words, words(tt.column, pageWidth/2+10, 5)...)

			res, err := newTestParser(t).Parse(context.Background(), []pdftext.Page{p})
			require.NoError(t, err)
			require.Len(t, res.Records, 1)

			got := res.Records[0]
			assert.Equal(t, 2, got.Pass)
			assert.Equal(t, tt.column[6:len(tt.column)-9], got.Establishment)
			assert.Equal(t, "1.000,00", got.Value)
			assert.Equal(t, 1, res.Stats.Duplicates)
		})
	}
}

func TestParse_InstallmentPreviewStoplist(t *testing.T) {
	pages := []pdftext.Page{twoColumn(1,
		[]string{
			"Vencimento: 20/03/2025",
			"15/04 LOJA PARCELADA 03/10 99,90",
			"10/03 MERCADO 50,00",
			"Compras parceladas - próximas faturas",
			"16/04 OUTRA PARCELA 02/05 10,00",
			"Total para próximas faturas",
		},
		[]string{
			"Compras parceladas - próximas faturas",
			"15/04 LOJA PARCELADA 03/10 99,90",
			"Total para próximas faturas",
		},
	)}

	res, err := newTestParser(t).Parse(context.Background(), pages)
	require.NoError(t, err)

	assert.Equal(t, []tableRow{{"10/03/2025", "MERCADO", "50,00"}}, table(res.Records))
	assert.Equal(t, 1, res.Stats.StopKeys)
	assert.Equal(t, 1, res.Stats.Stoplisted)
}

func TestParse_PaymentsExcluded(t *testing.T) {
	pages := []pdftext.Page{twoColumn(1,
		[]string{
			"Vencimento: 20/03/2025",
			"05/03 PAGAMENTO EFETUADO -1.500,00",
			"06/03 DEB AUT PAGTO FATURA 10,00",
			"07/03 FARMACIA 30,00",
		},
		[]string{"", "05/03 PAGAMENTO EFETUADO 1.500,00"},
	)}

	res, err := newTestParser(t).Parse(context.Background(), pages)
	require.NoError(t, err)

	assert.Equal(t, []tableRow{{"07/03/2025", "FARMACIA", "30,00"}}, table(res.Records))
	assert.Equal(t, 3, res.Stats.Payments)
}

func TestParse_InternationalSection(t *testing.T) {
	pages := []pdftext.Page{page(1,
		"Vencimento: 20/03/2025",
		"Lançamentos no cartão (final 1234)",
		"01/03 LIVRARIA 40,00",
		"Lançamentos internacionais",
		"05/03 AMAZON US 100,00",
		"USD 20,00",
		"Dólar de Conversão R$ 5,00",
		"Repasse de IOF em R$ 12,50",
		"Total transações inter. em R$ 100,00",
		"Total lançamentos inter. em R$ 112,50",
		"Limites de crédito",
		"08/03 POSTO 80,00",
	)}

	res, err := newTestParser(t).Parse(context.Background(), pages)
	require.NoError(t, err)

	assert.Equal(t, []tableRow{
		{"01/03/2025", "LIVRARIA", "40,00"},
		{"05/03/2025", "AMAZON US", "100,00"},
		{"08/03/2025", "POSTO", "80,00"},
		{"25/03/2025", "Repasse de IOF (transações internacionais) – final 1234", "12,50"},
	}, table(res.Records))
	assert.Equal(t, map[string]string{"1234": "12.50"}, fixed(res))
	assert.Equal(t, "1234", res.Records[3].Card)
	assert.Equal(t, 1, res.Stats.TaxRows)
}

func TestParse_UnassignedIOFDroppedWhenCardHasIt(t *testing.T) {
	pages := []pdftext.Page{
		page(1,
			"Vencimento: 20/03/2025",
			"Lançamentos internacionais",
			"Repasse de IOF em R$ 12,50",
		),
		twoColumn(2, nil, []string{
			"Lançamentos no cartão (final 9876)",
			"Repasse de IOF em R$ 12,50",
		}),
	}

	res, err := newTestParser(t).Parse(context.Background(), pages)
	require.NoError(t, err)

	assert.Equal(t, []tableRow{
		{"25/03/2025", "Repasse de IOF (transações internacionais) – final 9876", "12,50"},
	}, table(res.Records))
	assert.Equal(t, map[string]string{"9876": "12.50"}, fixed(res))
}

func TestParse_TotalsDifference(t *testing.T) {
	totals := func(tx, items string) []pdftext.Page {
		return []pdftext.Page{
			page(1, "Vencimento: 20/03/2025"),
			twoColumn(2, nil, []string{
				"Total transações inter. em R$ " + tx,
				"Total lançamentos inter. em R$ " + items,
			}),
		}
	}

	tests := []struct {
		name    string
		pages   []pdftext.Page
		opts    []Option
		wantIOF map[string]string
	}{
		{name: "within bound", pages: totals("100,00", "104,07"), wantIOF: map[string]string{"": "4.07"}},
		{name: "above bound", pages: totals("100,00", "180,00"), wantIOF: map[string]string{}},
		{name: "negative", pages: totals("100,00", "90,00"), wantIOF: map[string]string{}},
		{name: "raised bound", pages: totals("100,00", "180,00"), opts: []Option{WithIOFDiffMax(dec("100"))}, wantIOF: map[string]string{"": "80.00"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := newTestParser(t, tt.opts...).Parse(context.Background(), tt.pages)
			require.NoError(t, err)
			assert.Equal(t, tt.wantIOF, fixed(res))
		})
	}
}

func TestParse_AdvisoryBlockIgnored(t *testing.T) {
	pages := []pdftext.Page{page(1,
		"Vencimento: 20/03/2025",
		"Fique atento aos encargos para o próximo período (21/03 a 20/04)",
		"10/04 JUROS ROTATIVO 12,34",
		"Limites de crédito",
		"11/03 CINEMA 25,00",
	)}

	res, err := newTestParser(t).Parse(context.Background(), pages)
	require.NoError(t, err)
	assert.Equal(t, []tableRow{{"11/03/2025", "CINEMA", "25,00"}}, table(res.Records))
}

func TestParse_KeysAreUnique(t *testing.T) {
	pages := []pdftext.Page{twoColumn(1,
		[]string{"Vencimento: 20/03/2025", "10/03 A 1,00", "10/03 A 1,00", "10/03 B 1,00"},
		[]string{"", "10/03 A 1,00", "10/03 B 1,00"},
	)}

	res, err := newTestParser(t).Parse(context.Background(), pages)
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, r := range res.Records {
		key := normalize.CompositeKey(r.DateString(), r.Establishment, r.Amount)
		assert.False(t, seen[key], key)
		seen[key] = true
	}
	assert.Len(t, res.Records, 2)
}

func TestParse_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestParser(t).Parse(ctx, []pdftext.Page{page(1, "Vencimento: 20/03/2025")})
	assert.ErrorIs(t, err, context.Canceled)
}

func fixed(res *Result) map[string]string {
	out := make(map[string]string, len(res.Taxes))
	for k, v := range res.Taxes {
		out[k] = v.StringFixed(2)
	}
	return out
}
