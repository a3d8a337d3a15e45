// Package linker resolves project ownership onto developer entities.
// AutoLink attaches projects to existing developers by exact normalized
// name; CreateDevelopers mints one developer per distinct normalized
// owner name for whatever remains unlinked.
package linker

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/permit-scout/internal/model"
	"github.com/sells-group/permit-scout/internal/normalize"
)

// Store is the persistence surface the linker needs.
type Store interface {
	ListUnlinkedProjects(ctx context.Context) ([]model.Project, error)
	GetDeveloperByNormalizedName(ctx context.Context, normalized string) (*model.Developer, error)
	CreateDeveloper(ctx context.Context, dev model.Developer) (*model.Developer, error)
	LinkProject(ctx context.Context, projectID, developerID string) error
}

// Result reports one linking pass.
type Result struct {
	Linked            int `json:"linked"`
	DevelopersCreated int `json:"developers_created"`
	Skipped           int `json:"skipped"`
}

// AutoLink attaches every unlinked project with an owner name to an
// existing developer whose normalized name matches exactly. No fuzzy
// matching here: near-matches are the dedup finder's job, after the
// records exist.
func AutoLink(ctx context.Context, s Store) (*Result, error) {
	projects, err := s.ListUnlinkedProjects(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "linker: list unlinked projects")
	}

	res := &Result{}
	for _, p := range projects {
		if err := ctx.Err(); err != nil {
			return res, eris.Wrap(err, "linker: auto-link cancelled")
		}
		norm := normalize.Name(*p.OwnerName)
		if norm == "" {
			res.Skipped++
			continue
		}

		dev, err := s.GetDeveloperByNormalizedName(ctx, norm)
		if err != nil {
			return res, eris.Wrapf(err, "linker: lookup %q", norm)
		}
		if dev == nil {
			res.Skipped++
			continue
		}
		if err := s.LinkProject(ctx, p.ID, dev.ID); err != nil {
			return res, eris.Wrapf(err, "linker: link project %s", p.PermitNumber)
		}
		res.Linked++
	}

	zap.L().Info("linker: auto-link complete",
		zap.Int("linked", res.Linked),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}

// CreateDevelopers groups the still-unlinked projects by normalized owner
// name, creates one developer per distinct name, and links the group.
// Names shorter than minNameLen after normalization are noise (initials,
// stray suffix fragments) and are skipped. Idempotent: a normalized name
// that already has a developer gets its projects linked to the existing
// record, never a second one.
func CreateDevelopers(ctx context.Context, s Store, minNameLen int) (*Result, error) {
	projects, err := s.ListUnlinkedProjects(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "linker: list unlinked projects")
	}

	// Group preserving first-seen order so creation is deterministic.
	groups := make(map[string][]model.Project)
	var order []string
	for _, p := range projects {
		norm := normalize.Name(*p.OwnerName)
		if len(norm) < minNameLen {
			continue
		}
		if _, ok := groups[norm]; !ok {
			order = append(order, norm)
		}
		groups[norm] = append(groups[norm], p)
	}

	res := &Result{Skipped: len(projects)}
	for _, norm := range order {
		if err := ctx.Err(); err != nil {
			return res, eris.Wrap(err, "linker: create developers cancelled")
		}
		group := groups[norm]

		dev, err := s.GetDeveloperByNormalizedName(ctx, norm)
		if err != nil {
			return res, eris.Wrapf(err, "linker: lookup %q", norm)
		}
		if dev == nil {
			raw := group[0]
			entityType := normalize.EntityType(*raw.OwnerName)
			created, err := s.CreateDeveloper(ctx, model.Developer{
				Name:           *raw.OwnerName,
				NormalizedName: norm,
				Address:        raw.OwnerAddress,
				EntityType:     &entityType,
			})
			if err != nil {
				return res, eris.Wrapf(err, "linker: create developer %q", *raw.OwnerName)
			}
			dev = created
			res.DevelopersCreated++
		}

		for _, p := range group {
			if err := s.LinkProject(ctx, p.ID, dev.ID); err != nil {
				return res, eris.Wrapf(err, "linker: link project %s", p.PermitNumber)
			}
			res.Linked++
			res.Skipped--
		}
	}

	zap.L().Info("linker: developer creation complete",
		zap.Int("created", res.DevelopersCreated),
		zap.Int("linked", res.Linked),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}
