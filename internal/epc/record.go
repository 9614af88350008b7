// Package epc fetches Energy Performance Certificate data for postcodes and
// matches certificates to individual sales by approximate address
// comparison. API responses are cached on disk so repeated runs are free.
package epc

import (
	"strconv"
	"strings"
)

// Record is one certificate as stored in the cache: immutable once written.
type Record struct {
	Address      string  `json:"address"`
	Postcode     string  `json:"postcode"`
	FloorArea    float64 `json:"floorArea"`
	Rooms        int     `json:"rooms"`
	EnergyRating string  `json:"energyRating"`
	PropertyType string  `json:"propertyType"`
	Date         string  `json:"date"` // lodgement date, YYYY-MM-DD
}

// apiResponse mirrors the EPC search endpoint's JSON body.
type apiResponse struct {
	Rows []apiRow `json:"rows"`
}

type apiRow struct {
	Address1       string `json:"address1"`
	Address2       string `json:"address2"`
	Address3       string `json:"address3"`
	Postcode       string `json:"postcode"`
	TotalFloorArea string `json:"total-floor-area"`
	HabitableRooms string `json:"number-habitable-rooms"`
	EnergyRating   string `json:"current-energy-rating"`
	PropertyType   string `json:"property-type"`
	LodgementDate  string `json:"lodgement-date"`
}

func (r apiRow) toRecord() Record {
	var parts []string
	for _, p := range []string{r.Address1, r.Address2, r.Address3} {
		if p != "" {
			parts = append(parts, p)
		}
	}

	return Record{
		Address:      strings.ToUpper(strings.Join(parts, ", ")),
		Postcode:     strings.ToUpper(strings.TrimSpace(r.Postcode)),
		FloorArea:    parseFloat(r.TotalFloorArea),
		Rooms:        parseInt(r.HabitableRooms),
		EnergyRating: r.EnergyRating,
		PropertyType: r.PropertyType,
		Date:         r.LodgementDate,
	}
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

func parseInt(s string) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return v
}
