package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/permit-scout/internal/config"
	"github.com/sells-group/permit-scout/internal/fetcher"
	"github.com/sells-group/permit-scout/internal/model"
)

// typeFilter builds the SoQL permit-type disjunction for the configured
// allowlist, e.g. (permit_type='Bldg-New' OR permit_type='Bldg-Alter/Repair').
func typeFilter(permitTypes []string) string {
	clauses := make([]string, len(permitTypes))
	for i, t := range permitTypes {
		clauses[i] = fmt.Sprintf("permit_type='%s'", strings.ReplaceAll(t, "'", "''"))
	}
	return "(" + strings.Join(clauses, " OR ") + ")"
}

// pageURL assembles one Socrata page request.
func pageURL(baseURL, where, order string, limit, offset int) string {
	params := url.Values{}
	params.Set("$where", where)
	params.Set("$limit", fmt.Sprintf("%d", limit))
	params.Set("$offset", fmt.Sprintf("%d", offset))
	params.Set("$order", order)
	return baseURL + "?" + params.Encode()
}

// fetchPages pulls every page of a Socrata dataset, handing each raw
// record to parse. parse returns nil for records that cannot be
// reconciled (no permit number); those are dropped, not errors.
func fetchPages(ctx context.Context, f fetcher.Fetcher, sourceName, baseURL, where, order string, ing config.IngestConfig, parse func(json.RawMessage) *model.Permit) ([]model.Permit, error) {
	log := zap.L().With(zap.String("source", sourceName))

	var permits []model.Permit
	offset := 0
	for {
		u := pageURL(baseURL, where, order, ing.PageSize, offset)
		log.Info("fetching page", zap.Int("offset", offset))

		var page []json.RawMessage
		if err := f.GetJSON(ctx, u, &page); err != nil {
			return nil, eris.Wrapf(err, "source %s: fetch page at offset %d", sourceName, offset)
		}

		dropped := 0
		for _, raw := range page {
			p := parse(raw)
			if p == nil {
				dropped++
				continue
			}
			p.Source = sourceName
			permits = append(permits, *p)
		}
		if dropped > 0 {
			log.Warn("dropped records without permit number", zap.Int("dropped", dropped))
		}

		if len(page) < ing.PageSize {
			break
		}
		offset += ing.PageSize
		if offset >= ing.MaxRecords {
			log.Warn("reached record cap, stopping pagination", zap.Int("max_records", ing.MaxRecords))
			break
		}
	}

	log.Info("fetch complete", zap.Int("permits", len(permits)))
	return permits, nil
}
