// Package donorcache shields the donor-location store from repeated reads
// during a search run. Lookups are keyed by (city, blood group, geohash
// prefix); each entry holds every donor in that area grouped by the donor's
// full geohash, so neighboring cells of one ring share a single store query.
//
// The cache is advisory. An expired, evicted or unreachable entry is a miss
// and falls back to the store; it is never treated as "no donors here".
package donorcache

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/donor-search/internal/domain"
	"github.com/tbourn/donor-search/internal/geo"
)

// Groups maps a donor's full geohash to the donors registered in that cell.
type Groups map[string][]domain.DonorRef

// Store is a bounded key/value backend for Groups.
type Store interface {
	Get(ctx context.Context, key string) (Groups, bool, error)
	Set(ctx context.Context, key string, g Groups) error
}

// Source is the donor-location store consulted on a miss. It returns one
// page of locations whose geohash starts with prefix, ordered by location
// id, plus the cursor of the next page ("" when exhausted).
type Source interface {
	QueryByGeohashPrefix(ctx context.Context, city, bloodGroup, prefix, cursor string, limit int) ([]domain.DonorLocation, string, error)
}

var lookups = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "donor_cache_lookups_total",
		Help: "Donor-location cache lookups by result.",
	},
	[]string{"result"},
)

func init() {
	prometheus.MustRegister(lookups)
}

// Cache resolves donors for a geohash cell through a Store.
type Cache struct {
	store     Store
	src       Source
	keyLen    int
	pageLimit int
}

// New returns a Cache. keyLen is the geohash prefix length of cache keys;
// pageLimit is the page size used when filling a miss from src.
func New(store Store, src Source, keyLen, pageLimit int) *Cache {
	if pageLimit < 1 {
		pageLimit = 100
	}
	return &Cache{store: store, src: src, keyLen: keyLen, pageLimit: pageLimit}
}

// Key derives the cache key of a lookup.
func Key(city, bloodGroup, prefix string, keyLen int) string {
	return city + "#" + bloodGroup + "#" + geo.Truncate(strings.ToLower(prefix), keyLen)
}

// DonorsFor returns the donors whose full geohash starts with prefix, sorted
// by geohash then location id. Each returned ref has Geohash set.
func (c *Cache) DonorsFor(ctx context.Context, prefix, city, bloodGroup string) ([]domain.DonorRef, error) {
	prefix = strings.ToLower(prefix)
	key := Key(city, bloodGroup, prefix, c.keyLen)

	groups, ok, err := c.store.Get(ctx, key)
	switch {
	case err != nil:
		lookups.WithLabelValues("error").Inc()
		log.Warn().Err(err).Str("key", key).Msg("donor cache get failed; querying store")
	case ok:
		lookups.WithLabelValues("hit").Inc()
		return groups.under(prefix), nil
	default:
		lookups.WithLabelValues("miss").Inc()
	}

	groups, err = c.load(ctx, city, bloodGroup, geo.Truncate(prefix, c.keyLen))
	if err != nil {
		return nil, err
	}
	if err := c.store.Set(ctx, key, groups); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("donor cache set failed")
	}
	return groups.under(prefix), nil
}

func (c *Cache) load(ctx context.Context, city, bloodGroup, prefix string) (Groups, error) {
	groups := Groups{}
	cursor := ""
	for {
		page, next, err := c.src.QueryByGeohashPrefix(ctx, city, bloodGroup, prefix, cursor, c.pageLimit)
		if err != nil {
			return nil, fmt.Errorf("query donor locations %s/%s/%s: %w", city, bloodGroup, prefix, err)
		}
		for _, loc := range page {
			gh := strings.ToLower(loc.Geohash)
			groups[gh] = append(groups[gh], domain.DonorRef{DonorID: loc.DonorID, LocationID: loc.LocationID})
		}
		if next == "" || next == cursor || len(page) == 0 {
			return groups, nil
		}
		cursor = next
	}
}

// under returns the refs of every group whose geohash starts with prefix.
func (g Groups) under(prefix string) []domain.DonorRef {
	hashes := make([]string, 0, len(g))
	for gh := range g {
		if strings.HasPrefix(gh, prefix) {
			hashes = append(hashes, gh)
		}
	}
	sort.Strings(hashes)

	out := []domain.DonorRef{}
	for _, gh := range hashes {
		refs := append([]domain.DonorRef(nil), g[gh]...)
		sort.Slice(refs, func(i, j int) bool { return refs[i].LocationID < refs[j].LocationID })
		for _, r := range refs {
			r.Geohash = gh
			out = append(out, r)
		}
	}
	return out
}

// size estimates the in-memory footprint of g in bytes.
func (g Groups) size() int64 {
	var n int64
	for gh, refs := range g {
		n += int64(len(gh)) + 24
		for _, r := range refs {
			n += int64(len(r.DonorID)+len(r.LocationID)) + 48
		}
	}
	return n
}
