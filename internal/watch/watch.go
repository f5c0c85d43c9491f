// Package watch runs the refresh cycle: fetch the debris catalog and the
// geomagnetic index concurrently, screen the fleet, aggregate threats, and
// publish the result as an immutable snapshot.
//
// Either feed failing degrades that source to absence for the cycle — a
// missing catalog (with nothing cached) skips screening, a missing Kp
// reading emits no storm threat. A cycle never fails outright.
package watch

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/orbit/orbitwatch/internal/catalog"
	"github.com/orbit/orbitwatch/internal/fleet"
	"github.com/orbit/orbitwatch/internal/geomag"
	"github.com/orbit/orbitwatch/internal/metrics"
	"github.com/orbit/orbitwatch/internal/screening"
	"github.com/orbit/orbitwatch/internal/threat"
)

// SourceStatus describes one feed's contribution to a snapshot.
type SourceStatus string

const (
	SourceOK      SourceStatus = "ok"      // fresh data this cycle
	SourceStale   SourceStatus = "stale"   // fetch failed, previous data used
	SourceMissing SourceStatus = "missing" // no data at all
)

// Snapshot is one refresh cycle's complete output. Immutable once published.
type Snapshot struct {
	Threats       []threat.Threat    `json:"threats"`
	Conjunctions  []screening.Result `json:"conjunctions"`
	Geomag        *geomag.Reading    `json:"geomag,omitempty"`
	BuiltAt       time.Time          `json:"built_at"`
	CatalogStatus SourceStatus       `json:"catalog_status"`
	GeomagStatus  SourceStatus       `json:"geomag_status"`
}

// Store provides thread-safe access to the latest snapshot.
type Store struct {
	snapshot atomic.Pointer[Snapshot]
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{}
}

// Get returns the latest snapshot, or nil before the first refresh completes.
func (s *Store) Get() *Snapshot {
	return s.snapshot.Load()
}

// Set atomically publishes a new snapshot.
func (s *Store) Set(snap *Snapshot) {
	s.snapshot.Store(snap)
}

// Refresher drives refresh cycles on an interval and on demand.
type Refresher struct {
	fleet      *fleet.Registry
	catStore   *catalog.Store
	catFetcher *catalog.Fetcher
	catCache   *catalog.Cache
	geoFetcher *geomag.Fetcher
	screener   *screening.Screener
	threatCfg  threat.Config
	store      *Store
	interval   time.Duration
	logger     *slog.Logger

	trigger chan struct{}
}

// NewRefresher wires a Refresher. Interval must be positive.
func NewRefresher(
	reg *fleet.Registry,
	catStore *catalog.Store,
	catFetcher *catalog.Fetcher,
	catCache *catalog.Cache,
	geoFetcher *geomag.Fetcher,
	screener *screening.Screener,
	threatCfg threat.Config,
	store *Store,
	interval time.Duration,
	logger *slog.Logger,
) *Refresher {
	return &Refresher{
		fleet:      reg,
		catStore:   catStore,
		catFetcher: catFetcher,
		catCache:   catCache,
		geoFetcher: geoFetcher,
		screener:   screener,
		threatCfg:  threatCfg,
		store:      store,
		interval:   interval,
		logger:     logger,
		trigger:    make(chan struct{}, 1),
	}
}

// RefreshNow requests an immediate refresh cycle. Non-blocking; coalesces
// with an already-pending request.
func (r *Refresher) RefreshNow() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// Run executes refresh cycles until ctx is cancelled. One cycle runs
// immediately on start.
func (r *Refresher) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.RefreshOnce(ctx)

	for {
		select {
		case <-ticker.C:
			r.RefreshOnce(ctx)
		case <-r.trigger:
			r.RefreshOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// RefreshOnce runs a single refresh cycle and publishes the snapshot.
func (r *Refresher) RefreshOnce(ctx context.Context) {
	now := time.Now().UTC()

	// The two feeds are independent and network-bound; fetch concurrently.
	// Neither failure blocks the other.
	var (
		wg        sync.WaitGroup
		catStatus SourceStatus
		reading   *geomag.Reading
		geoStatus SourceStatus
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		catStatus = r.refreshCatalog(ctx, now)
	}()
	go func() {
		defer wg.Done()
		reading, geoStatus = r.fetchGeomag(ctx)
	}()
	wg.Wait()

	// Screening requires a catalog; with none at all, the cycle degrades to
	// storm-only threats.
	var results []screening.Result
	orbits := r.fleet.List()
	if ds := r.catStore.Get(); ds != nil && len(ds.Elements) > 0 {
		results = r.screener.Screen(ctx, orbits, ds.Elements, now)
	} else {
		r.logger.Warn("no debris catalog available, skipping conjunction screening")
	}

	threats := threat.Build(results, reading, r.threatCfg)
	r.publishThreatMetrics(threats)

	snap := &Snapshot{
		Threats:       threats,
		Conjunctions:  results,
		Geomag:        reading,
		BuiltAt:       now,
		CatalogStatus: catStatus,
		GeomagStatus:  geoStatus,
	}
	r.store.Set(snap)

	r.logger.Info("refresh cycle complete",
		"satellites", len(orbits),
		"threats", len(threats),
		"catalog_status", string(catStatus),
		"geomag_status", string(geoStatus),
	)
}

// refreshCatalog fetches, parses, stores, and disk-caches the debris catalog.
// On failure the previously stored dataset (if any) remains in use.
func (r *Refresher) refreshCatalog(ctx context.Context, now time.Time) SourceStatus {
	r.catStore.Lock()
	defer r.catStore.Unlock()

	data, err := r.catFetcher.Fetch(ctx)
	if err != nil {
		metrics.RecordFeedFetch("catalog", "error")
		r.logger.Warn("catalog fetch failed", "error", err)
		if r.catStore.Get() != nil {
			return SourceStale
		}
		return SourceMissing
	}

	elements, err := catalog.Parse(bytes.NewReader(data), r.logger)
	if err != nil || len(elements) == 0 {
		metrics.RecordFeedFetch("catalog", "error")
		r.logger.Warn("catalog parse produced no elements", "error", err)
		if r.catStore.Get() != nil {
			return SourceStale
		}
		return SourceMissing
	}

	metrics.RecordFeedFetch("catalog", "success")
	ds := catalog.NewDataset(r.catFetcher.SourceURL(), now, elements)
	r.catStore.Set(ds)
	metrics.SetCatalogElements(len(elements))

	if r.catCache != nil {
		if err := r.catCache.Write(data, now); err != nil {
			r.logger.Warn("catalog cache write failed", "error", err)
		}
	}

	return SourceOK
}

// fetchGeomag fetches the latest Kp reading; failure degrades to absence.
func (r *Refresher) fetchGeomag(ctx context.Context) (*geomag.Reading, SourceStatus) {
	reading, err := r.geoFetcher.Fetch(ctx)
	if err != nil {
		metrics.RecordFeedFetch("geomag", "error")
		r.logger.Warn("geomagnetic fetch failed", "error", err)
		return nil, SourceMissing
	}
	metrics.RecordFeedFetch("geomag", "success")
	return reading, SourceOK
}

func (r *Refresher) publishThreatMetrics(threats []threat.Threat) {
	counts := make(map[[2]string]int)
	for _, t := range threats {
		counts[[2]string{string(t.Kind), string(t.Severity)}]++
	}
	metrics.ResetActiveThreats()
	for key, n := range counts {
		metrics.SetActiveThreats(key[0], key[1], n)
	}
}
