// Package catalog handles the tracked-debris catalog: parsing the 3-line
// element feed, fetching it over HTTP, caching raw feeds on disk, and holding
// the current dataset behind an atomic store.
//
// Elements are opaque to the screening engine beyond their two element lines;
// NORAD ID and epoch are parsed here for diagnostics and metadata only.
package catalog

import "time"

// Element is one tracked debris object: a name plus its two fixed-column
// orbital-element lines.
type Element struct {
	Name    string
	NORADID int
	Epoch   time.Time
	Line1   string
	Line2   string
}

// EpochRange is the span of element epochs in a dataset.
type EpochRange struct {
	Min time.Time
	Max time.Time
}

// Dataset is a complete debris catalog from one fetch.
type Dataset struct {
	Source     string
	FetchedAt  time.Time
	EpochRange EpochRange
	Elements   []Element
}

// NewDataset assembles a Dataset, computing the epoch range over elements.
func NewDataset(source string, fetchedAt time.Time, elements []Element) *Dataset {
	ds := &Dataset{
		Source:    source,
		FetchedAt: fetchedAt,
		Elements:  elements,
	}
	if len(elements) > 0 {
		ds.EpochRange.Min = elements[0].Epoch
		ds.EpochRange.Max = elements[0].Epoch
		for _, e := range elements[1:] {
			if e.Epoch.Before(ds.EpochRange.Min) {
				ds.EpochRange.Min = e.Epoch
			}
			if e.Epoch.After(ds.EpochRange.Max) {
				ds.EpochRange.Max = e.Epoch
			}
		}
	}
	return ds
}
