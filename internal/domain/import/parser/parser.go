// Package parser turns tabular statement exports (CSV, and spreadsheets
// rendered to CSV) into candidate transactions.
package parser

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/statement-ledger/internal/domain/import/model"
	"github.com/FACorreiaa/statement-ledger/internal/domain/import/normalizer"
	"github.com/FACorreiaa/statement-ledger/internal/domain/import/sniffer"
)

var (
	ErrEmptyInput          = errors.New("no rows in input")
	ErrUnrecognizedHeaders = errors.New("header row has no date, description or amount column")
)

// ParseError represents a parsing problem for a specific row
type ParseError struct {
	Row     int
	Column  string
	Message string
	RawData string
}

func (e ParseError) Error() string {
	return fmt.Sprintf("row %d, column %s: %s", e.Row, e.Column, e.Message)
}

// ParseResult contains the results of parsing a CSV document
type ParseResult struct {
	Transactions []model.ParsedTransaction
	Headers      []string
	Mapping      ColumnMapping
	// Errors lists rows that were dropped. They are diagnostics only and
	// never fail the file.
	Errors      []ParseError
	TotalRows   int
	ParsedRows  int
	SkippedRows int
}

// ParserConfig configures the CSV parser behavior
type ParserConfig struct {
	Delimiter        rune // 0 = auto-detect from the header line
	IsEuropeanFormat bool // force 1.234,56 amounts; otherwise detected per value
}

// DefaultConfig returns a parser config with auto-detection enabled
func DefaultConfig() ParserConfig {
	return ParserConfig{}
}

// Parser parses header-mapped CSV rows into transactions
type Parser struct {
	config ParserConfig
	logger *slog.Logger
}

// NewParser creates a new parser with the given configuration
func NewParser(config ParserConfig, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{config: config, logger: logger}
}

// Parse reads text whose first non-empty line is the header row. Rows that
// are malformed or lack a date, description or non-zero amount are dropped.
//
// Direction for a single signed amount column follows the sign (negative is
// EXPENSE) regardless of account type; debit columns are EXPENSE and credit
// columns INCOME. Account-type polarity is applied later when the ledger
// amount is signed.
func (p *Parser) Parse(ctx context.Context, text string) (*ParseResult, error) {
	headerLine := firstNonEmptyLine(text)
	if headerLine == "" {
		return nil, ErrEmptyInput
	}

	delimiter := p.config.Delimiter
	if delimiter == 0 {
		delimiter = sniffer.DetectDelimiter(headerLine)
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	// The header row fixes the expected field count; mismatched rows come
	// back with csv.ErrFieldCount and are dropped.
	reader.FieldsPerRecord = 0

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	for i, h := range headers {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF"))
	}

	mapping := MapHeaders(headers)
	if !mapping.Usable() {
		return nil, fmt.Errorf("%w: %v", ErrUnrecognizedHeaders, headers)
	}

	result := &ParseResult{
		Transactions: make([]model.ParsedTransaction, 0, 64),
		Headers:      headers,
		Mapping:      mapping,
	}

	rowNum := 1
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		rowNum++
		if err != nil {
			reason := err.Error()
			if errors.Is(err, csv.ErrFieldCount) {
				reason = fmt.Sprintf("expected %d fields, got %d", len(headers), len(record))
			}
			p.skip(result, ParseError{Row: rowNum, Message: reason, RawData: strings.Join(record, string(delimiter))})
			continue
		}

		result.TotalRows++
		tx, perr := p.processRecord(record, rowNum, mapping)
		if perr != nil {
			p.skip(result, *perr)
			continue
		}

		result.Transactions = append(result.Transactions, *tx)
		result.ParsedRows++
	}

	p.logger.Debug("parsed csv rows",
		slog.Int("rows", result.TotalRows),
		slog.Int("parsed", result.ParsedRows),
		slog.Int("skipped", result.SkippedRows),
		slog.Bool("debit_credit_columns", mapping.IsDoubleEntry()),
	)

	return result, nil
}

func (p *Parser) skip(result *ParseResult, perr ParseError) {
	result.SkippedRows++
	result.Errors = append(result.Errors, perr)
	p.logger.Debug("skipping csv row",
		slog.Int("row", perr.Row),
		slog.String("column", perr.Column),
		slog.String("reason", perr.Message),
	)
}

// processRecord converts a raw CSV record to a ParsedTransaction
func (p *Parser) processRecord(record []string, rowNum int, m ColumnMapping) (*model.ParsedTransaction, *ParseError) {
	get := func(idx int) string {
		if idx < 0 || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	dateStr := get(m.Date)
	date, err := normalizer.ParseFlexibleDate(dateStr)
	if err != nil {
		return nil, &ParseError{Row: rowNum, Column: "date", Message: err.Error(), RawData: dateStr}
	}

	desc := normalizer.CleanDescription(get(m.Description))
	if desc == "" {
		return nil, &ParseError{Row: rowNum, Column: "description", Message: "missing description"}
	}

	amount, direction, perr := p.resolveAmount(get(m.Amount), get(m.Debit), get(m.Credit))
	if perr != nil {
		perr.Row = rowNum
		return nil, perr
	}

	return &model.ParsedTransaction{
		Date:        date,
		Description: desc,
		Amount:      amount,
		Direction:   direction,
	}, nil
}

// resolveAmount prefers a single signed amount and falls back to the
// debit/credit pair. Zero amounts are rejected.
func (p *Parser) resolveAmount(amountStr, debitStr, creditStr string) (decimal.Decimal, model.Direction, *ParseError) {
	if amountStr != "" {
		v, err := p.parseAmount(amountStr)
		if err != nil {
			return decimal.Zero, "", &ParseError{Column: "amount", Message: err.Error(), RawData: amountStr}
		}
		if v.IsZero() {
			return decimal.Zero, "", &ParseError{Column: "amount", Message: "zero amount", RawData: amountStr}
		}
		if v.IsNegative() {
			return v.Abs(), model.DirectionExpense, nil
		}
		return v, model.DirectionIncome, nil
	}

	if debitStr != "" {
		if v, err := p.parseAmount(debitStr); err == nil && !v.IsZero() {
			return v.Abs(), model.DirectionExpense, nil
		}
	}
	if creditStr != "" {
		if v, err := p.parseAmount(creditStr); err == nil && !v.IsZero() {
			return v.Abs(), model.DirectionIncome, nil
		}
	}

	return decimal.Zero, "", &ParseError{Column: "amount", Message: "no non-zero amount"}
}

func (p *Parser) parseAmount(s string) (decimal.Decimal, error) {
	if p.config.IsEuropeanFormat {
		return normalizer.ParseAmountFormat(s, true)
	}
	return normalizer.ParseAmount(s)
}

func firstNonEmptyLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
