package statement

import (
	"regexp"
	"strings"

	"github.com/dvloznov/fatura-itau/internal/blocks"
)

const amountPattern = `[0-9]{1,3}(?:\.[0-9]{3})*,\d{2}`

// Line-level patterns.
var (
	rxTransaction     = regexp.MustCompile(`(\d{2}/\d{2})\s+(.+?)\s+([−-]?\s?\d{1,3}(?:\.\d{3})*,\d{2})`)
	rxTransactionLine = regexp.MustCompile(`^(\d{2}/\d{2})\s+(.+?)\s+([−-]?\s?\d{1,3}(?:\.\d{3})*,\d{2})`)

	rxCardHeader = regexp.MustCompile(`(?i)^Lançamentos no cartão\s*\(final\s*(\d{4})\)`)
	rxCardFinal  = regexp.MustCompile(`(?i)\(final\s*(\d{4})\)`)

	rxDueDate = regexp.MustCompile(`(?i)Vencimento:\s(\d{2}/\d{2}/\d{4})`)

	rxIOF               = regexp.MustCompile(`(?i)Repasse\s+d[eo]?\s*IOF\s+(?:em\s+)?R\$\s*(` + amountPattern + `)`)
	rxTotalTransactions = regexp.MustCompile(`(?i)Total\s+transa[cç][õo]es\s+inter\.\s+em\s+R\$\s*(` + amountPattern + `)`)
	rxTotalItems        = regexp.MustCompile(`(?i)Total\s+lan[cç]amentos\s+inter\.\s+em\s+R\$\s*(` + amountPattern + `)`)

	rxInternationalTitle = regexp.MustCompile(`(?im)^\s*Lançamentos\s+internacionais\s*$`)

	// Lines inside the international section that never carry a purchase.
	internationalNoise = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bUSD\b`),
		regexp.MustCompile(`(?i)D[óo]lar\s+de\s+Convers[aã]o`),
		regexp.MustCompile(`(?i)^Total\s+transa[cç][õo]es\s+inter\.\s+em\s+R\$`),
		regexp.MustCompile(`(?i)^Total\s+lan[cç]amentos\s+inter\.\s+em\s+R\$`),
	}

	// Residue of an advisory heading such as "a 15/03)" left in column text.
	rxTrailingFragment = regexp.MustCompile(`(?i)^a\s*\d{2}/\d{2}\)?$`)

	// Advisory preamble in column text, up to its "(DD/MM a DD/MM)" period.
	rxAdvisoryPreamble = regexp.MustCompile(`(?is)Fique\s*atento.*?\(\s*\d{2}/\d{2}\s*a\s*\d{2}/\d{2}\s*\)\s*`)

	rxPaymentToken = regexp.MustCompile(`\bpagamentos?\b|\bpagto\b`)
)

// Terminators shared by the installment preview, the advisory block and the
// international section. The line forms only match whole lines.
var (
	lineEndPatterns = []string{
		`(?im)^\s*Total\s+para\s+próximas\s+faturas\s*$`,
		`(?im)^\s*Lançamentos\s+no\s+cartão\s*\(final\s+\d{4}\)\s*$`,
		`(?im)^\s*Lançamentos:\s*compras\s+e\s+saques\s*$`,
		`(?im)^\s*Limites\s+de\s+crédito`,
	}
	inlineEndPatterns = []string{
		`(?i)Total\s+para\s+próximas\s+faturas`,
		`(?i)Lançamentos\s+no\s+cartão\s*\(final\s+\d{4}\)`,
		`(?i)Lançamentos:\s*compras\s+e\s+saques`,
		`(?i)Limites\s+de\s+crédito`,
	}
	advisoryEndPatterns = []string{
		`(?i)Juros\s+M[aá]ximos\s+do\s+contrato`,
		`(?i)Novo\s+teto\s+de\s+juros.*cart[aã]o`,
		`(?i)Cr[eé]dito\s+Rotativo\s*/\s*Atraso`,
		`(?i)Os\s+juros\s+e\s+encargos.*ser[aã]o\s+devolvidos`,
	}
)

// Excludable regions.
var (
	previewLines = blocks.NewRegion("installment-preview",
		`(?im)^\s*Compras\s+parceladas\s*-\s*pr[oó]ximas\s+faturas\s*$`, lineEndPatterns...)
	advisoryLines = blocks.NewRegion("interest-advisory",
		`(?i)Fique\s+atento\s+aos\s+encargos\s+para\s+o\s+pr[oó]ximo\s+per[ií]odo`).WithEnds(lineEnds...)
	internationalLines = blocks.Region{
		Name:  "international",
		Start: rxInternationalTitle,
	}.WithEnds(lineEnds...)

	previewInline = blocks.NewRegion("installment-preview-inline",
		`(?i)Compras\s+parceladas\s*-\s*pr[oó]ximas\s+faturas`, inlineEndPatterns...)
	advisoryInline = blocks.NewRegion("interest-advisory-inline",
		`(?i)Fique\s*atento\s*aos?\s*encargos\s*para\s*o\s*pr[oó]xim[oa]\s*per[ií]odo\s*\(\s*\d{2}/\d{2}\s*a\s*\d{2}/\d{2}\s*\)`,
		append(advisoryEndPatterns, inlineEndPatterns...)...)

	// lineEnds also closes the international section in the linear pass.
	lineEnds = previewLines.Ends
)

// lineEndsSection reports whether ln closes the international section.
func lineEndsSection(ln string) bool {
	for _, rx := range lineEnds {
		if rx.MatchString(ln) {
			return true
		}
	}
	return rxCardHeader.MatchString(ln)
}

func isInternationalNoise(ln string) bool {
	for _, rx := range internationalNoise {
		if rx.MatchString(ln) {
			return true
		}
	}
	return false
}

// isPayment reports whether a folded establishment is an account payment.
func isPayment(folded string) bool {
	return strings.HasPrefix(folded, "pagamento") || rxPaymentToken.MatchString(folded)
}
