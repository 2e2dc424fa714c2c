// Package enricher resolves buyer postal locations to coordinates using the
// plz_coordinates reference table and a layered fallback strategy.
package enricher

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/leelesemann-sys/vergabe-radar/internal/db"
)

// plzPattern matches five-digit postal code tokens in free text.
var plzPattern = regexp.MustCompile(`\b(\d{5})\b`)

// Coordinate is a resolved latitude/longitude pair.
type Coordinate struct {
	Lat float64
	Lng float64
}

// lookup holds the postal-code reference table with a lexicographically
// sorted key list so the prefix fallback is deterministic.
type lookup struct {
	coords map[string]Coordinate
	keys   []string
}

// NormalizePostcode cleans a raw postal-code value to a canonical five-digit
// code: trims whitespace, drops fractional suffixes from numeric
// round-tripping ("1067.0"), strips non-digits ("D-50667"), and left-pads
// four-digit results. Returns "" if no valid code remains.
func NormalizePostcode(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}
	var digits strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	if len(d) == 4 {
		d = "0" + d
	}
	if len(d) != 5 {
		return ""
	}
	return d
}

// Geocoder backfills coordinates on search documents.
type Geocoder struct {
	pool db.Pool
}

// New creates a Geocoder on the given pool.
func New(pool db.Pool) *Geocoder {
	return &Geocoder{pool: pool}
}

// Run geocodes every search document without coordinates. Resolution order,
// first hit wins: exact postal code, three-digit prefix, five-digit token
// extracted from the description. Documents that stay unresolved keep null
// coordinates and are retried on the next run. Returns the update count.
func (g *Geocoder) Run(ctx context.Context) (int, error) {
	log := zap.L().With(zap.String("component", "enricher"))

	lk, err := g.loadLookup(ctx)
	if err != nil {
		return 0, err
	}
	log.Info("postal code lookup loaded", zap.Int("entries", len(lk.keys)))

	rows, err := g.pool.Query(ctx, `
		SELECT id, buyer_post_code, description
		FROM search_documents
		WHERE lat IS NULL`)
	if err != nil {
		return 0, eris.Wrap(err, "enricher: query documents without coordinates")
	}
	defer rows.Close()

	type pending struct {
		id       string
		postCode *string
		desc     *string
	}
	var docs []pending
	for rows.Next() {
		var p pending
		if err := rows.Scan(&p.id, &p.postCode, &p.desc); err != nil {
			return 0, eris.Wrap(err, "enricher: scan document")
		}
		docs = append(docs, p)
	}
	if err := rows.Err(); err != nil {
		return 0, eris.Wrap(err, "enricher: iterate documents")
	}

	if len(docs) == 0 {
		log.Info("no documents to geocode")
		return 0, nil
	}

	updated := 0
	for _, doc := range docs {
		coord := lk.resolve(deref(doc.postCode), deref(doc.desc))
		if coord == nil {
			continue
		}

		// lat IS NULL guard keeps first-successful-geocoding-wins semantics
		// even if a concurrent run resolved the document in between.
		tag, err := g.pool.Exec(ctx,
			`UPDATE search_documents SET lat = $1, lng = $2 WHERE id = $3 AND lat IS NULL`,
			coord.Lat, coord.Lng, doc.id,
		)
		if err != nil {
			return updated, eris.Wrapf(err, "enricher: update coordinates for %s", doc.id)
		}
		if tag.RowsAffected() > 0 {
			updated++
		}
	}

	log.Info("geocoding complete", zap.Int("updated", updated), zap.Int("pending", len(docs)-updated))
	return updated, nil
}

func (g *Geocoder) loadLookup(ctx context.Context) (*lookup, error) {
	rows, err := g.pool.Query(ctx,
		`SELECT plz, lat, lng FROM plz_coordinates WHERE lat IS NOT NULL`)
	if err != nil {
		return nil, eris.Wrap(err, "enricher: load plz lookup")
	}
	defer rows.Close()

	lk := &lookup{coords: make(map[string]Coordinate)}
	for rows.Next() {
		var plz string
		var lat, lng float64
		if err := rows.Scan(&plz, &lat, &lng); err != nil {
			return nil, eris.Wrap(err, "enricher: scan plz row")
		}
		lk.coords[plz] = Coordinate{Lat: lat, Lng: lng}
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "enricher: iterate plz rows")
	}

	lk.keys = make([]string, 0, len(lk.coords))
	for k := range lk.coords {
		lk.keys = append(lk.keys, k)
	}
	sort.Strings(lk.keys)

	return lk, nil
}

// resolve runs the three-level fallback. A nil result means no coordinate
// could be found, which is a valid terminal state.
func (lk *lookup) resolve(rawPostCode, description string) *Coordinate {
	plz := NormalizePostcode(rawPostCode)

	// Level 1: exact match.
	if plz != "" {
		if c, ok := lk.coords[plz]; ok {
			return &c
		}
	}

	// Level 2: lowest code sharing the three-digit prefix.
	if plz != "" {
		prefix := plz[:3]
		i := sort.SearchStrings(lk.keys, prefix)
		if i < len(lk.keys) && strings.HasPrefix(lk.keys[i], prefix) {
			c := lk.coords[lk.keys[i]]
			return &c
		}
	}

	// Level 3: five-digit tokens from the description, first known one wins.
	if description != "" {
		for _, m := range plzPattern.FindAllString(description, -1) {
			if c, ok := lk.coords[m]; ok {
				return &c
			}
		}
	}

	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
