package importer

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fireflybt/fireflybt/internal/classify"
	"github.com/fireflybt/fireflybt/internal/model"
)

// ErrMissingAccountIdentity means the statement header block has no account
// identity line, so rows cannot be attributed to an account.
var ErrMissingAccountIdentity = errors.New("statement header has no account identity line")

// BTParser parses Banca Transilvania CSV statement exports.
type BTParser struct{}

const (
	// btHeaderLines is the fixed size of the free-form header block that
	// precedes the tabular data.
	btHeaderLines = 16

	// btAccountMarker identifies the header line carrying the account IBAN
	// and currency (matched case-insensitively).
	btAccountMarker = "numar cont"

	btDefaultCurrency = "RON"

	btDateFormat    = "2006-01-02"
	btPOSDateFormat = "02/01/2006"

	btColReference   = "Referinta tranzactiei"
	btColDescription = "Descriere"
	btColDebit       = "Debit"
	btColCredit      = "Credit"
	btColDate        = "Data tranzactie"
)

// posDatePattern captures the date a point-of-sale transaction was
// initiated, which can differ from the processing date in the date column.
var posDatePattern = regexp.MustCompile(`;POS (\d{2}/\d{2}/\d{4}) `)

// Format returns the parser name.
func (p *BTParser) Format() string { return "bt" }

// Parse reads a whole BT statement and returns its classified transactions.
func (p *BTParser) Parse(r io.Reader) ([]model.Transaction, error) {
	var txns []model.Transaction
	err := p.parse(r, func(t model.Transaction) error {
		txns = append(txns, t)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return txns, nil
}

// parse is the single-pass core shared by Parse and ParseStream. It emits
// one Transaction per data row, in statement order, and stops on the first
// malformed row.
func (p *BTParser) parse(r io.Reader, emit func(model.Transaction) error) error {
	br := bufio.NewReader(r)

	iban, currency, err := readStatementHeader(br)
	if err != nil {
		return err
	}

	cr := csv.NewReader(br)
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading column header: %w", err)
	}

	cols, err := indexColumns(header)
	if err != nil {
		return err
	}

	for rowNum := 1; ; rowNum++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("row %d: %w", rowNum, err)
		}

		txn, err := parseBTRow(rec, cols, iban, currency)
		if err != nil {
			return fmt.Errorf("row %d: %w", rowNum, err)
		}

		if err := emit(txn); err != nil {
			return err
		}
	}
}

// readStatementHeader consumes the fixed-size header block, returning the
// account IBAN and currency found on the account identity line.
func readStatementHeader(br *bufio.Reader) (iban, currency string, err error) {
	currency = btDefaultCurrency

	for i := 0; i < btHeaderLines; i++ {
		line, readErr := br.ReadString('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return "", "", fmt.Errorf("reading header line %d: %w", i+1, readErr)
		}

		if strings.Contains(strings.ToLower(line), btAccountMarker) {
			iban, currency, err = splitAccountMarker(line, currency)
			if err != nil {
				return "", "", err
			}
		}

		if errors.Is(readErr, io.EOF) {
			break
		}
	}

	if iban == "" {
		return "", "", ErrMissingAccountIdentity
	}
	return iban, currency, nil
}

// splitAccountMarker extracts IBAN and currency from the identity line.
// Two layouts exist in the wild: "Numar cont,RO..IBAN,RON" and the older
// "Numar cont,RO..IBAN RON" with both values in the second field.
func splitAccountMarker(line, fallbackCurrency string) (string, string, error) {
	fields := strings.Split(strings.TrimRight(line, "\r\n"), ",")
	if len(fields) < 2 || strings.TrimSpace(fields[1]) == "" {
		return "", "", fmt.Errorf("malformed account identity line %q", strings.TrimSpace(line))
	}

	ident := strings.TrimSpace(fields[1])
	if i := strings.IndexByte(ident, ' '); i >= 0 {
		return ident[:i], strings.TrimSpace(ident[i+1:]), nil
	}

	if len(fields) >= 3 && strings.TrimSpace(fields[2]) != "" {
		return ident, strings.TrimSpace(fields[2]), nil
	}
	return ident, fallbackCurrency, nil
}

// btColumns holds the positions of the required columns in the data table.
type btColumns struct {
	reference   int
	description int
	debit       int
	credit      int
	date        int
}

func indexColumns(header []string) (btColumns, error) {
	cols := btColumns{reference: -1, description: -1, debit: -1, credit: -1, date: -1}

	for i, name := range header {
		switch strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")) {
		case btColReference:
			cols.reference = i
		case btColDescription:
			cols.description = i
		case btColDebit:
			cols.debit = i
		case btColCredit:
			cols.credit = i
		case btColDate:
			cols.date = i
		}
	}

	missing := func(idx int, name string) error {
		if idx < 0 {
			return fmt.Errorf("column header is missing %q", name)
		}
		return nil
	}
	for _, check := range []error{
		missing(cols.reference, btColReference),
		missing(cols.description, btColDescription),
		missing(cols.debit, btColDebit),
		missing(cols.credit, btColCredit),
		missing(cols.date, btColDate),
	} {
		if check != nil {
			return btColumns{}, check
		}
	}
	return cols, nil
}

func parseBTRow(rec []string, cols btColumns, iban, currency string) (model.Transaction, error) {
	debit, err := parseAmountField(rec[cols.debit])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing debit %q: %w", rec[cols.debit], err)
	}

	credit, err := parseAmountField(rec[cols.credit])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing credit %q: %w", rec[cols.credit], err)
	}

	description := rec[cols.description]

	date, err := rowDate(description, rec[cols.date])
	if err != nil {
		return model.Transaction{}, err
	}

	amount := debit
	if debit.IsZero() {
		amount = credit
	}

	cls := classify.Classify(description, debit, credit)
	source, destination := classify.AssignAccounts(cls.Type, iban, cls.Counterparty)

	return model.Transaction{
		ExternalID:         rec[cols.reference],
		Description:        cls.Description,
		Date:               date,
		SourceAccount:      source,
		DestinationAccount: destination,
		Amount:             amount,
		Type:               cls.Type,
		Tags:               model.DefaultTags(),
		CategoryName:       cls.Category,
		CurrencyCode:       currency,
		Notes:              description,
	}, nil
}

// rowDate prefers the embedded point-of-sale initiation date over the row's
// own processing date column.
func rowDate(description, dateField string) (time.Time, error) {
	if m := posDatePattern.FindStringSubmatch(description); m != nil {
		date, err := time.Parse(btPOSDateFormat, m[1])
		if err != nil {
			return time.Time{}, fmt.Errorf("parsing POS date %q: %w", m[1], err)
		}
		return date, nil
	}

	date, err := time.Parse(btDateFormat, dateField)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing transaction date %q: %w", dateField, err)
	}
	return date, nil
}

// parseAmountField parses a debit or credit cell. Blank means zero; signs
// are dropped, the magnitude is what counts.
func parseAmountField(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return d.Abs(), nil
}
