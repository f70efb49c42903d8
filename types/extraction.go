package types

import "github.com/google/uuid"

// ExtractionID correlates the log lines, metrics, and output file of a
// single extraction run. It is ambient run context only: it is not named
// by the record model and never appears on the wire, the way the
// teacher's RunMeta.RunID tags a scrape run without being part of any
// scraped payload.
type ExtractionID string

// NewExtractionID mints a fresh, random extraction identifier.
func NewExtractionID() ExtractionID {
	return ExtractionID(uuid.NewString())
}
