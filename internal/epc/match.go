package epc

import (
	"regexp"
	"strings"

	"github.com/ppd-pricemap/internal/postcode"
)

// Punctuation that routinely differs between the ledger and EPC datasets.
var punctReplacer = strings.NewReplacer(",", " ", ".", " ", "-", " ", "/", " ")

var reNumberToken = regexp.MustCompile(`^[0-9]+[A-Z]?$`)

// NormalizeAddress canonicalises an address for comparison: uppercase,
// punctuation to spaces, repeated whitespace collapsed.
func NormalizeAddress(addr string) string {
	s := punctReplacer.Replace(strings.ToUpper(addr))
	return strings.Join(strings.Fields(s), " ")
}

// houseNumber returns the first standalone token that looks like a house
// number (digits with an optional trailing letter), or "".
func houseNumber(normalized string) string {
	for _, token := range strings.Fields(normalized) {
		if reNumberToken.MatchString(token) {
			return token
		}
	}
	return ""
}

// BestMatch selects the certificate most likely to describe the sold
// property. Candidates are narrowed to the sale's exact postcode, then the
// first candidate sharing the sale's house number and at least one
// significant address token wins. Failing that, the most recently lodged
// same-postcode certificate is returned as a best-effort default. The
// second return is false only when no same-postcode candidate exists.
//
// Callers must still check FloorArea before applying the match; a
// certificate without a positive floor area is unusable.
func BestMatch(saleAddress, salePostcode string, candidates []Record) (Record, bool) {
	wantPostcode := postcode.Normalize(salePostcode)

	var samePostcode []Record
	for _, candidate := range candidates {
		if postcode.Normalize(candidate.Postcode) == wantPostcode {
			samePostcode = append(samePostcode, candidate)
		}
	}
	if len(samePostcode) == 0 {
		return Record{}, false
	}

	saleNorm := NormalizeAddress(saleAddress)
	saleNumber := houseNumber(saleNorm)

	saleTokens := make(map[string]bool)
	for _, token := range strings.Fields(saleNorm) {
		if len(token) > 2 {
			saleTokens[token] = true
		}
	}

	if saleNumber != "" {
		for _, candidate := range samePostcode {
			candidateNorm := NormalizeAddress(candidate.Address)
			if houseNumber(candidateNorm) != saleNumber {
				continue
			}

			overlap := 0
			for _, token := range strings.Fields(candidateNorm) {
				if len(token) > 2 && saleTokens[token] {
					overlap++
				}
			}
			if overlap >= 1 {
				return candidate, true
			}
		}
	}

	// Fallback: most recently lodged certificate at this postcode.
	best := samePostcode[0]
	for _, candidate := range samePostcode[1:] {
		if candidate.Date > best.Date {
			best = candidate
		}
	}
	return best, true
}
