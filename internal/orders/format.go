package orders

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/soyeahso/salesbot/internal/config"
	"github.com/soyeahso/salesbot/internal/domain"
)

// Status glyphs shown in front of each order.
const (
	GlyphApproved = "✅"
	GlyphPending  = "⏳"
	GlyphRejected = "❌"
)

// StatusGlyph maps an order status to its glyph.
func StatusGlyph(status string) string {
	switch status {
	case domain.OrderStatusApproved:
		return GlyphApproved
	case domain.OrderStatusPending:
		return GlyphPending
	default:
		return GlyphRejected
	}
}

// Formatter renders orders as Telegram-flavoured Markdown.
type Formatter struct {
	printer    *message.Printer
	currency   string
	dateLayout string
	loc        *time.Location
}

// NewFormatter builds a Formatter from the orders config.
func NewFormatter(cfg config.OrdersConfig) (*Formatter, error) {
	tag, err := language.Parse(cfg.Locale)
	if err != nil {
		return nil, fmt.Errorf("orders locale %q: %w", cfg.Locale, err)
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("orders timezone %q: %w", cfg.Timezone, err)
	}
	layout := cfg.DateLayout
	if layout == "" {
		layout = "02.01.2006"
	}
	return &Formatter{
		printer:    message.NewPrinter(tag),
		currency:   cfg.Currency,
		dateLayout: layout,
		loc:        loc,
	}, nil
}

// Amount renders n with locale digit grouping and the currency suffix.
func (f *Formatter) Amount(n float64) string {
	s := f.Number(n)
	if f.currency == "" {
		return s
	}
	return s + " " + f.currency
}

// Number renders n with locale digit grouping and at most two decimals.
func (f *Formatter) Number(n float64) string {
	return f.printer.Sprint(number.Decimal(n, number.MaxFractionDigits(2)))
}

// Date renders the calendar date of t; time of day is dropped.
func (f *Formatter) Date(t time.Time) string {
	return t.In(f.loc).Format(f.dateLayout)
}

// Format renders a non-empty listing. Callers handle the empty case.
func (f *Formatter) Format(orders []domain.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📦 *Your last %d orders:*\n", len(orders))
	for _, o := range orders {
		b.WriteString("\n")
		f.writeOrder(&b, o)
	}
	return b.String()
}

func (f *Formatter) writeOrder(b *strings.Builder, o domain.Order) {
	fmt.Fprintf(b, "%s *Order #%s*\n", StatusGlyph(o.Status), EscapeMarkdown(o.OrderNumber))
	fmt.Fprintf(b, "Customer: %s\n", EscapeMarkdown(o.CustomerName))
	if o.ProductType != "" {
		fmt.Fprintf(b, "Product: %s — %s %s × %s\n",
			EscapeMarkdown(o.ProductType), f.Number(o.Quantity), EscapeMarkdown(o.Unit), f.Amount(o.Price))
	}
	fmt.Fprintf(b, "Total: %s\n", f.Amount(o.TotalAmount))
	fmt.Fprintf(b, "Date: %s\n", f.Date(o.CreatedAt))
}

var markdownEscaper = strings.NewReplacer(
	`_`, `\_`,
	`*`, `\*`,
	"`", "\\`",
	`[`, `\[`,
)

// EscapeMarkdown escapes text for Telegram's legacy Markdown parse mode.
func EscapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
