package skuflow

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductCSVHandlesBOMAndHeaderCase(t *testing.T) {
	path := writeCSV(t, "\xEF\xBB\xBF SKU ,Name,Price,Active\n Lamp-01 ,Desk Lamp,15.5,false\n")

	rows, err := openProductCSV(path, false)
	require.NoError(t, err)
	defer rows.Close()

	product, err := rows.Next()
	require.NoError(t, err)
	assert.Equal(t, "lamp-01", product.SKU)
	assert.Equal(t, "Desk Lamp", product.Name)
	assert.Equal(t, "15.50", product.Price.StringFixed(2))
	assert.False(t, product.Active)

	_, err = rows.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestProductCSVMissingColumnsDefault(t *testing.T) {
	path := writeCSV(t, "sku\nonly-sku\n")

	rows, err := openProductCSV(path, false)
	require.NoError(t, err)
	defer rows.Close()

	product, err := rows.Next()
	require.NoError(t, err)
	assert.Equal(t, "only-sku", product.SKU)
	assert.True(t, product.Price.IsZero())
	assert.True(t, product.Active)
	assert.Empty(t, product.Name)
}

func TestProductCSVShortRowIsTolerated(t *testing.T) {
	path := writeCSV(t, "sku,name,price\nabc\n")

	rows, err := openProductCSV(path, false)
	require.NoError(t, err)
	defer rows.Close()

	product, err := rows.Next()
	require.NoError(t, err)
	assert.Equal(t, "abc", product.SKU)
}

func TestProductCSVSkipsEmptySKU(t *testing.T) {
	path := writeCSV(t, "sku,name,price\n   ,Nameless,1.00\n")

	rows, err := openProductCSV(path, false)
	require.NoError(t, err)
	defer rows.Close()

	_, err = rows.Next()
	assert.True(t, errors.Is(err, errRowSkipped))
}

func TestProductCSVEmptyFile(t *testing.T) {
	_, err := openProductCSV(writeCSV(t, ""), false)
	assert.ErrorIs(t, err, errEmptyCSV)
}

func TestCountDataLines(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    int
	}{
		{"empty", "", 0},
		{"header only", "sku,name\n", 0},
		{"header without newline", "sku,name", 0},
		{"trailing newline", "sku\na\nb\n", 2},
		{"no trailing newline", "sku\na\nb", 2},
		{"embedded newline overcounts", "sku,name\na,\"two\nlines\"\n", 2},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := countDataLines(writeCSV(t, tc.content))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParsePrice(t *testing.T) {
	price, ok := parsePrice(" 19.99 ")
	assert.True(t, ok)
	assert.Equal(t, "19.99", price.String())

	price, ok = parsePrice("")
	assert.True(t, ok)
	assert.True(t, price.IsZero())

	price, ok = parsePrice("abc")
	assert.False(t, ok)
	assert.True(t, price.IsZero())
}
