package ledger

import (
	"strconv"
	"strings"
)

// Column indexes in the price-paid CSV. The file carries no header row;
// positions are fixed by the Land Registry export format.
const (
	colPrice    = 1
	colDate     = 2
	colPostcode = 3
	colType     = 4
	colPAON     = 7
	colStreet   = 9
	colTown     = 11
)

// MinPrice is the lowest price treated as a genuine sale; rows below it are
// transfers for nominal consideration and are dropped.
const MinPrice = 100

var validPropertyTypes = map[string]bool{
	"D": true, // detached
	"S": true, // semi-detached
	"T": true, // terraced
	"F": true, // flat
	"O": true, // other
}

// Transaction is a validated, typed row from the ledger. Invalid rows are
// never constructed; ParseRow filters them out.
type Transaction struct {
	Price    int
	Date     string // YYYY-MM-DD
	Year     int
	Postcode string
	Category string // D/S/T/F/O, anything else coerced to O
	Address  string
}

// ParseRow validates a raw CSV record and reshapes it into a Transaction.
// The second return is false when the row must be skipped: missing postcode,
// missing or non-numeric price, price below MinPrice, unparseable date, or a
// year before minYear. An unrecognised property type is not a rejection; it
// is coerced to "O".
func ParseRow(record []string, minYear int) (Transaction, bool) {
	postcode := field(record, colPostcode)
	if postcode == "" {
		return Transaction{}, false
	}

	price, err := strconv.Atoi(field(record, colPrice))
	if err != nil || price < MinPrice {
		return Transaction{}, false
	}

	date := field(record, colDate)
	if len(date) < 10 {
		return Transaction{}, false
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil || year < minYear {
		return Transaction{}, false
	}

	category := field(record, colType)
	if !validPropertyTypes[category] {
		category = "O"
	}

	return Transaction{
		Price:    price,
		Date:     date[:10],
		Year:     year,
		Postcode: postcode,
		Category: category,
		Address:  buildAddress(record, postcode),
	}, true
}

// buildAddress assembles a short human-readable address from the PAON,
// street and town columns, falling back to the postcode.
func buildAddress(record []string, postcode string) string {
	var parts []string
	for _, col := range []int{colPAON, colStreet, colTown} {
		if v := field(record, col); v != "" {
			parts = append(parts, v)
		}
	}
	if len(parts) == 0 {
		return postcode
	}
	return strings.Join(parts, ", ")
}

func field(record []string, i int) string {
	if i < len(record) {
		return strings.TrimSpace(record[i])
	}
	return ""
}
