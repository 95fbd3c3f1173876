package skuflow

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/acmeproducts/skuflow/model"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// errRowSkipped marks a row that is counted as processed but never persisted.
var errRowSkipped = errors.New("row skipped")

// productCSV streams header-mapped product rows out of an uploaded file.
type productCSV struct {
	file      *os.File
	reader    *csv.Reader
	columnMap map[string]int
	// skipBadPrice drops rows whose price does not parse instead of zeroing it.
	skipBadPrice bool
}

// openProductCSV opens path and consumes its header row.
// Header names are trimmed and lower-cased so "SKU" and " sku" both map to sku.
func openProductCSV(path string, skipBadPrice bool) (*productCSV, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening CSV file: %w", err)
	}

	buffered := bufio.NewReader(file)
	if prefix, err := buffered.Peek(len(utf8BOM)); err == nil && bytes.Equal(prefix, utf8BOM) {
		_, _ = buffered.Discard(len(utf8BOM))
	}

	reader := csv.NewReader(buffered)
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		file.Close()
		if errors.Is(err, io.EOF) {
			return nil, errEmptyCSV
		}
		return nil, fmt.Errorf("error reading CSV headers: %w", err)
	}

	return &productCSV{
		file:         file,
		reader:       reader,
		columnMap:    createColumnMap(headers),
		skipBadPrice: skipBadPrice,
	}, nil
}

func createColumnMap(headers []string) map[string]int {
	columnMap := make(map[string]int, len(headers))
	for i, header := range headers {
		columnMap[strings.ToLower(strings.TrimSpace(header))] = i
	}
	return columnMap
}

// Next returns the next row as a normalized product. It returns errRowSkipped
// for a row that must be counted but not persisted, and io.EOF at the end.
func (p *productCSV) Next() (model.Product, error) {
	record, err := p.reader.Read()
	if err != nil {
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			return model.Product{}, fmt.Errorf("%w: %v", errRowSkipped, err)
		}
		return model.Product{}, err
	}
	return p.parseProduct(record)
}

func (p *productCSV) parseProduct(record []string) (model.Product, error) {
	sku := model.NormalizeSKU(p.field(record, "sku"))
	if sku == "" {
		return model.Product{}, fmt.Errorf("%w: empty sku", errRowSkipped)
	}

	price, ok := parsePrice(p.field(record, "price"))
	if !ok && p.skipBadPrice {
		return model.Product{}, fmt.Errorf("%w: invalid price for sku %s", errRowSkipped, sku)
	}

	return model.Product{
		SKU:         sku,
		Name:        strings.TrimSpace(p.field(record, "name")),
		Description: strings.TrimSpace(p.field(record, "description")),
		Price:       price,
		Active:      parseActive(p.field(record, "active")),
	}, nil
}

// field returns the named column of record, or "" when the file has no such
// column or the row is short.
func (p *productCSV) field(record []string, name string) string {
	i, ok := p.columnMap[name]
	if !ok || i >= len(record) {
		return ""
	}
	return record[i]
}

func (p *productCSV) Close() error {
	return p.file.Close()
}

// parsePrice reads an exact decimal. An empty cell is a zero price; an
// unparsable one is reported with ok=false and a zero value.
func parsePrice(raw string) (decimal.Decimal, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, true
	}
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false
	}
	return price, true
}

func parseActive(raw string) bool {
	active, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return true
	}
	return active
}

// countDataLines counts the lines after the header. Quoted fields with
// embedded newlines are counted as several lines.
func countDataLines(path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("error opening CSV file: %w", err)
	}
	defer file.Close()

	lines := 0
	last := byte('\n')
	buf := make([]byte, 64*1024)
	for {
		n, err := file.Read(buf)
		if n > 0 {
			lines += bytes.Count(buf[:n], []byte{'\n'})
			last = buf[n-1]
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("error counting CSV lines: %w", err)
		}
	}
	if last != '\n' {
		lines++
	}

	if lines <= 1 {
		return 0, nil
	}
	return lines - 1, nil
}
