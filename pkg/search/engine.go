package search

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	bsearch "github.com/blevesearch/bleve/v2/search"
	"github.com/blevesearch/bleve/v2/search/query"
)

var ErrClosed = errors.New("search index closed")

const defaultSize = 10

// Directory is a full-text and geo index over dispatchable hospitals.
type Directory struct {
	cfg    Config
	index  bleve.Index
	mu     sync.RWMutex
	closed bool
}

func New(cfg Config) (*Directory, error) {
	idx, err := open(cfg.IndexPath, BuildIndexMapping())
	if err != nil {
		return nil, err
	}
	return &Directory{cfg: cfg, index: idx}, nil
}

func open(path string, m mapping.IndexMapping) (bleve.Index, error) {
	if path == "" {
		return bleve.NewMemOnly(m)
	}
	if _, err := os.Stat(path); err == nil {
		return bleve.Open(path)
	} else if !os.IsNotExist(err) {
		return nil, err
	}
	return bleve.New(path, m)
}

func (d *Directory) guard() error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	return nil
}

func (d *Directory) withDeadline(ctx context.Context, fn func() error) error {
	if d.cfg.QueryTimeout <= 0 {
		return fn()
	}
	c, cancel := context.WithTimeout(ctx, d.cfg.QueryTimeout)
	defer cancel()
	ch := make(chan error, 1)
	go func() { ch <- fn() }()
	select {
	case <-c.Done():
		return c.Err()
	case err := <-ch:
		return err
	}
}

func docID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func document(h Hospital) map[string]any {
	return map[string]any{
		"type":     hospitalType,
		"name":     h.Name,
		"code":     h.Code,
		"lat":      h.Latitude,
		"lng":      h.Longitude,
		"location": map[string]any{"lat": h.Latitude, "lon": h.Longitude},
	}
}

// Put indexes or replaces a hospital entry.
func (d *Directory) Put(ctx context.Context, h Hospital) error {
	if err := d.guard(); err != nil {
		return err
	}
	return d.withDeadline(ctx, func() error {
		return d.index.Index(docID(h.ID), document(h))
	})
}

func (d *Directory) Remove(ctx context.Context, id uint) error {
	if err := d.guard(); err != nil {
		return err
	}
	return d.withDeadline(ctx, func() error {
		return d.index.Delete(docID(id))
	})
}

// IndexAll upserts hospitals in batches.
func (d *Directory) IndexAll(ctx context.Context, hospitals []Hospital) error {
	if err := d.guard(); err != nil {
		return err
	}
	bs := d.cfg.BatchSize
	if bs <= 0 {
		bs = 200
	}
	for i := 0; i < len(hospitals); i += bs {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := i + bs
		if end > len(hospitals) {
			end = len(hospitals)
		}
		b := d.index.NewBatch()
		for _, h := range hospitals[i:end] {
			if err := b.Index(docID(h.ID), document(h)); err != nil {
				return err
			}
		}
		if err := d.index.Batch(b); err != nil {
			return err
		}
	}
	return nil
}

func (d *Directory) Count() (uint64, error) {
	if err := d.guard(); err != nil {
		return 0, err
	}
	return d.index.DocCount()
}

func buildQuery(q Query) query.Query {
	var clauses []query.Query
	if text := strings.TrimSpace(q.Text); text != "" {
		name := bleve.NewMatchQuery(text)
		name.SetField("name")
		name.SetFuzziness(1)
		code := bleve.NewTermQuery(strings.ToUpper(text))
		code.SetField("code")
		clauses = append(clauses, bleve.NewDisjunctionQuery(name, code))
	}
	if q.hasOrigin() && q.RadiusKm > 0 {
		geo := bleve.NewGeoDistanceQuery(*q.Longitude, *q.Latitude, fmt.Sprintf("%gkm", q.RadiusKm))
		geo.SetField("location")
		clauses = append(clauses, geo)
	}
	switch len(clauses) {
	case 0:
		return bleve.NewMatchAllQuery()
	case 1:
		return clauses[0]
	default:
		return bleve.NewConjunctionQuery(clauses...)
	}
}

// Search ranks by relevance, or by distance when an origin is given.
func (d *Directory) Search(ctx context.Context, q Query) (Result, error) {
	if err := d.guard(); err != nil {
		return Result{}, err
	}

	sr := bleve.NewSearchRequest(buildQuery(q))
	sr.Size = q.Size
	if sr.Size <= 0 {
		sr.Size = defaultSize
	}
	sr.Fields = []string{"name", "code", "lat", "lng"}
	if q.hasOrigin() {
		byDistance, err := bsearch.NewSortGeoDistance("location", "km", *q.Longitude, *q.Latitude, false)
		if err != nil {
			return Result{}, err
		}
		sr.SortByCustom(bsearch.SortOrder{byDistance})
	}

	var res *bleve.SearchResult
	err := d.withDeadline(ctx, func() error {
		r, err := d.index.SearchInContext(ctx, sr)
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	out := Result{Total: res.Total, Took: res.Took, Hits: make([]Hit, 0, len(res.Hits))}
	for _, h := range res.Hits {
		id, err := strconv.ParseUint(h.ID, 10, 64)
		if err != nil {
			continue
		}
		hit := Hit{ID: uint(id), Score: h.Score}
		hit.Name, _ = h.Fields["name"].(string)
		hit.Code, _ = h.Fields["code"].(string)
		hit.Latitude, _ = h.Fields["lat"].(float64)
		hit.Longitude, _ = h.Fields["lng"].(float64)
		out.Hits = append(out.Hits, hit)
	}
	return out, nil
}

func (d *Directory) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	return d.index.Close()
}
