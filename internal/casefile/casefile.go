// Package casefile orchestrates the case domain: incident registration,
// claim submission, the evidence ingestion pipeline, case history, and
// pre-registration screening.
//
// All persisted rows are append-only; nothing in this package updates or
// deletes. Store degradation is handled fail-open: enrichment steps stop,
// required records still land, and a Degraded store result is never read as
// proof of absence.
package casefile

import (
	"fmt"

	"github.com/lexilabs/lexid/internal/store"
)

// Table names in the backing store.
const (
	TableIncidents = "incidents"
	TableClaims    = "claims"
	TableEvidence  = "evidence"
	TableFacts     = "facts"
)

// RPCMatchConstitutionArticles is the server-side similarity function over
// the constitution corpus.
const RPCMatchConstitutionArticles = "match_constitution_articles"

// rowString returns row[key] as a string, or "" when absent or non-string.
func rowString(row store.Row, key string) string {
	if v, ok := row[key].(string); ok {
		return v
	}
	return ""
}

// rowID returns row["id"] rendered as a string. The store returns JSON
// numbers as float64; integral values are rendered without a fraction.
func rowID(row store.Row) string {
	switch v := row["id"].(type) {
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%v", v)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}
