// Package place holds the warehouse location domain model shared by the
// cache, gateway and CLI: the reference record returned by the place
// lookup API, scan submissions, and the key normalization rules used to
// index records under their aliases.
package place

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Record is the reference metadata for one storage location, as returned
// by GET /api/place/{code}.
type Record struct {
	PlaceCod         int64    `json:"place_cod"`
	PlaceName        string   `json:"place_name"`
	QtySHK           int      `json:"qty_shk"`
	MXType           string   `json:"mx_type"`
	StorageType      string   `json:"storage_type,omitempty"`
	BoxType          string   `json:"box_type,omitempty"`
	Dimensions       string   `json:"dimensions,omitempty"`
	Category         string   `json:"category,omitempty"`
	Floor            int      `json:"floor,omitempty"`
	RowNum           int      `json:"row_num,omitempty"`
	Section          int      `json:"section,omitempty"`
	Shelf            int      `json:"shelf,omitempty"`
	Cell             int      `json:"cell,omitempty"`
	CurrentVolume    *float64 `json:"current_volume,omitempty"`
	CurrentOccupancy *int     `json:"current_occupancy,omitempty"`
	UpdatedAt        string   `json:"updated_at,omitempty"`
}

// ScanStatus is the outcome a worker reports for one scanned location.
type ScanStatus string

const (
	StatusOK          ScanStatus = "ok"
	StatusDiscrepancy ScanStatus = "discrepancy"
	StatusMissing     ScanStatus = "missing"
	StatusBroken      ScanStatus = "broken"
)

// Valid reports whether s is one of the known scan outcomes.
func (s ScanStatus) Valid() bool {
	switch s {
	case StatusOK, StatusDiscrepancy, StatusMissing, StatusBroken:
		return true
	}
	return false
}

// Submission is the payload for POST /api/scan/complete. Photos are
// base64 data URLs already passed through the compression pipeline.
// ClientID is stamped by the caller so the server can detect duplicate
// deliveries of the same scan (the outbox retries indefinitely).
type Submission struct {
	ClientID          string     `json:"client_id,omitempty"`
	Badge             string     `json:"badge"`
	PlaceCod          int64      `json:"place_cod"`
	FactQty           int        `json:"fact_qty"`
	Status            ScanStatus `json:"status"`
	Comment           string     `json:"comment,omitempty"`
	DiscrepancyReason string     `json:"discrepancy_reason,omitempty"`
	Photos            []string   `json:"photos,omitempty"`
	ScannedAt         time.Time  `json:"scanned_at,omitempty"`
}

// codePattern matches a normalized MX code: Cyrillic or Latin capitals,
// digits and dots (e.g. "Э6.01.01.01").
var codePattern = regexp.MustCompile(`^[А-ЯЁA-Z0-9.]+$`)

// NormalizeKey converts a raw scanned identifier into canonical lookup
// form: trimmed and uppercased. Numeric ids pass through unchanged apart
// from trimming.
func NormalizeKey(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}

// ValidCode reports whether key, after normalization, is either a numeric
// place id or a well-formed MX code. Scanners occasionally emit garbage
// frames; rejecting them here avoids a pointless round-trip.
func ValidCode(key string) bool {
	k := NormalizeKey(key)
	if k == "" {
		return false
	}
	if _, err := strconv.ParseInt(k, 10, 64); err == nil {
		return true
	}
	return codePattern.MatchString(k)
}

// Aliases returns the full set of cache keys one record should be indexed
// under: the key used for the lookup, the record's numeric id, and its
// canonical code. Duplicates are collapsed so a set never fans out to
// more than three writes.
func Aliases(lookupKey string, rec Record) []string {
	keys := make([]string, 0, 3)
	seen := make(map[string]bool, 3)
	add := func(k string) {
		k = NormalizeKey(k)
		if k == "" || seen[k] {
			return
		}
		seen[k] = true
		keys = append(keys, k)
	}
	add(lookupKey)
	if rec.PlaceCod != 0 {
		add(strconv.FormatInt(rec.PlaceCod, 10))
	}
	add(rec.PlaceName)
	return keys
}
