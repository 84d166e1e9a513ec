// internal/catalog/catalog.go
package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/shopspring/decimal"
)

// Item is one catalogued player up for auction. Items are immutable once
// loaded; the auction engine works on copies.
type Item struct {
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	Country   string          `json:"country"`
	PrevTeam  string          `json:"prevTeam"`
	CapStatus string          `json:"capStatus"`
	Role      string          `json:"role"`
	BasePrice decimal.Decimal `json:"basePrice"`
}

// LoadFile reads the auction list CSV at path. The expected header is
// category,name,country,prev_team,cap_status,role,base_price.
func LoadFile(path string) ([]Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open auction list: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load parses auction list rows from r, skipping the header row.
func Load(r io.Reader) ([]Item, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 7

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read auction list: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("auction list is empty")
	}

	items := make([]Item, 0, len(rows)-1)
	for i, row := range rows[1:] {
		price, err := decimal.NewFromString(row[6])
		if err != nil {
			return nil, fmt.Errorf("row %d: bad base price %q: %w", i+2, row[6], err)
		}
		if row[0] == "" {
			return nil, fmt.Errorf("row %d: missing category", i+2)
		}
		items = append(items, Item{
			Category:  row[0],
			Name:      row[1],
			Country:   row[2],
			PrevTeam:  row[3],
			CapStatus: row[4],
			Role:      row[5],
			BasePrice: price,
		})
	}
	return items, nil
}

// FormatPrice renders a price in the catalog's native scale: crores for
// prices >= 1, lakhs otherwise.
func FormatPrice(p decimal.Decimal) string {
	if p.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return p.String() + "Cr"
	}
	return p.Mul(decimal.NewFromInt(100)).String() + "L"
}
