package export

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sadopc/timeledger/internal/engine"
)

// Format selects the encoding of an export.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatCSV, FormatJSON:
		return f, nil
	}
	return "", fmt.Errorf("unknown export format %q (want csv or json)", s)
}

// InvoiceDocument is an invoice ready to hand out.
type InvoiceDocument struct {
	Number    string           `json:"number"`
	IssuedAt  time.Time        `json:"issued_at"`
	Currency  string           `json:"currency"`
	Dimension engine.Dimension `json:"dimension"`
	Period    engine.DateRange `json:"period"`
	Invoice   engine.Invoice   `json:"invoice"`
}

func NewInvoiceDocument(inv engine.Invoice, currency string, dim engine.Dimension, period engine.DateRange, issued time.Time) InvoiceDocument {
	return InvoiceDocument{
		Number:    uuid.NewString(),
		IssuedAt:  issued,
		Currency:  currency,
		Dimension: dim,
		Period:    period,
		Invoice:   inv,
	}
}

// ToFile creates path and hands it to write.
func ToFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
