// Package verse acquires the verse of the day. Three sources exist, from
// cheapest to most desperate: scraping the source page's embedded JSON,
// vision-model extraction from a screenshot, and asking a text model to
// pick a well-known verse outright. The pipeline owns the ordering.
package verse

import "fmt"

// Verse is the scripture text plus its human-readable reference.
type Verse struct {
	Text      string `json:"verse"`
	Reference string `json:"reference"`
}

func (v *Verse) validate() error {
	if v.Text == "" {
		return fmt.Errorf("verse text is empty")
	}
	if v.Reference == "" {
		return fmt.Errorf("verse reference is empty")
	}
	return nil
}
