package enrich

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/permit-scout/internal/config"
	"github.com/sells-group/permit-scout/internal/fetcher"
	"github.com/sells-group/permit-scout/internal/store"
)

// The registry search endpoint returns server-rendered HTML, not JSON.
// These patterns pull the labelled fields out of the first result row.
var (
	reEntityNumber = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Entity Number[^<]*<[^>]*>([^<]+)`),
		regexp.MustCompile(`(?i)data-entity="([^"]+)"`),
		regexp.MustCompile(`(?i)EntityId=([A-Z0-9]+)`),
	}
	reStatus = regexp.MustCompile(`(?i)Status[^<]*<[^>]*>([^<]+)`)
	reDate   = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Registration Date[^<]*<[^>]*>([^<]+)`),
		regexp.MustCompile(`(?i)Formation Date[^<]*<[^>]*>([^<]+)`),
	}
	reAgentName    = regexp.MustCompile(`(?i)Agent for Service of Process[^<]*<[^>]*>([^<]+)`)
	reAgentAddress = regexp.MustCompile(`(?i)Agent Address[^<]*<[^>]*>([^<]+)`)
)

// Registry enriches developers with state business registry data:
// entity number, filing status, registration date, and registered agent.
type Registry struct {
	store   store.Store
	fetcher fetcher.Fetcher
	cfg     config.RegistryConfig
}

func NewRegistry(st store.Store, f fetcher.Fetcher, cfg config.RegistryConfig) *Registry {
	return &Registry{store: st, fetcher: f, cfg: cfg}
}

// lookup searches the registry by entity name. Returns (zero, false)
// when the page yields neither an entity number nor a status, meaning
// no usable match.
func (r *Registry) lookup(ctx context.Context, entityName string) (store.RegistryData, bool, error) {
	form := url.Values{
		"SearchType":     {"CORP"},
		"SearchCriteria": {entityName},
		"SearchSubType":  {"Keyword"},
	}

	body, err := r.fetcher.PostForm(ctx, r.cfg.SearchURL, form)
	if err != nil {
		return store.RegistryData{}, false, eris.Wrapf(err, "enrich: registry search %q", entityName)
	}

	html := string(body)
	data := store.RegistryData{
		EntityNumber: firstMatch(html, reEntityNumber...),
		Status:       firstMatch(html, reStatus),
		Date:         firstMatch(html, reDate...),
		AgentName:    firstMatch(html, reAgentName),
		AgentAddress: firstMatch(html, reAgentAddress),
	}
	if data.EntityNumber == nil && data.Status == nil {
		return store.RegistryData{}, false, nil
	}
	return data, true, nil
}

// EnrichDeveloper runs one registry lookup and stores the result.
// Returns false when the search produced no usable match.
func (r *Registry) EnrichDeveloper(ctx context.Context, developerID string) (bool, error) {
	dev, err := r.store.GetDeveloper(ctx, developerID)
	if err != nil {
		return false, err
	}

	data, ok, err := r.lookup(ctx, dev.Name)
	if err != nil || !ok {
		return false, err
	}

	if err := r.store.UpdateDeveloperRegistry(ctx, developerID, data); err != nil {
		return false, err
	}
	return true, nil
}

// Run enriches every non-Individual developer that has not been
// contact-enriched yet, one lookup at a time with a fixed delay. The
// registry endpoint tolerates far less traffic than the assessor API,
// so this batch never runs concurrent lookups.
func (r *Registry) Run(ctx context.Context) (*Result, error) {
	run, err := r.store.StartIngestRun(ctx, "registry")
	if err != nil {
		return nil, eris.Wrap(err, "enrich: start registry run")
	}

	res, err := r.runBatch(ctx)
	if err != nil {
		if failErr := r.store.FailIngestRun(ctx, run.ID, err.Error()); failErr != nil {
			zap.L().Error("enrich: record registry run failure", zap.Error(failErr))
		}
		return nil, err
	}

	if err := r.store.CompleteIngestRun(ctx, run.ID, res.Total, res.Enriched, 0); err != nil {
		return nil, eris.Wrap(err, "enrich: complete registry run")
	}

	zap.L().Info("enrich: registry batch complete",
		zap.Int("total", res.Total),
		zap.Int("enriched", res.Enriched),
		zap.Int("failed", res.Failed),
	)
	return res, nil
}

func (r *Registry) runBatch(ctx context.Context) (*Result, error) {
	devs, err := r.store.ListDevelopersForRegistry(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "enrich: list developers for registry")
	}

	res := &Result{Total: len(devs)}
	delay := time.Duration(r.cfg.DelayMS) * time.Millisecond

	for i, dev := range devs {
		if i > 0 && delay > 0 {
			if err := sleep(ctx, delay); err != nil {
				return nil, eris.Wrap(err, "enrich: registry batch cancelled")
			}
		}

		ok, err := r.EnrichDeveloper(ctx, dev.ID)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, eris.Wrap(ctx.Err(), "enrich: registry batch cancelled")
			}
			zap.L().Warn("enrich: registry lookup failed",
				zap.String("developer_id", dev.ID),
				zap.String("name", dev.Name),
				zap.Error(err),
			)
			res.Failed++
		case ok:
			res.Enriched++
		default:
			res.Failed++
		}
	}
	return res, nil
}

func firstMatch(html string, patterns ...*regexp.Regexp) *string {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(html); m != nil {
			s := strings.TrimSpace(m[1])
			if s != "" {
				return &s
			}
		}
	}
	return nil
}
