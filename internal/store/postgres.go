package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/permit-scout/internal/db"
	"github.com/sells-group/permit-scout/internal/model"
	"github.com/sells-group/permit-scout/internal/scorer"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool. Tests use this with pgxmock.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS developers (
	id                     TEXT PRIMARY KEY,
	name                   TEXT NOT NULL,
	normalized_name        TEXT NOT NULL,
	company                TEXT,
	email                  TEXT,
	phone                  TEXT,
	linkedin_url           TEXT,
	website                TEXT,
	address                TEXT,
	entity_type            TEXT,
	notes                  TEXT,
	crm_stage              TEXT NOT NULL DEFAULT 'new',
	registry_entity_number TEXT,
	registry_status        TEXT,
	registry_date          TEXT,
	registry_agent_name    TEXT,
	registry_agent_address TEXT,
	contact_enriched_at    TIMESTAMPTZ,
	lead_score             INTEGER,
	lead_score_data        TEXT,
	lead_scored_at         TIMESTAMPTZ,
	created_at             TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at             TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS projects (
	id                   TEXT PRIMARY KEY,
	permit_number        TEXT NOT NULL UNIQUE,
	permit_type          TEXT NOT NULL,
	status               TEXT NOT NULL,
	pipeline_stage       TEXT NOT NULL,
	pipeline_substage    TEXT,
	financing_type       TEXT NOT NULL,
	address              TEXT NOT NULL,
	description          TEXT,
	valuation            DOUBLE PRECISION,
	units                INTEGER,
	stories              INTEGER,
	sqft                 INTEGER,
	zone_code            TEXT,
	apn                  TEXT,
	latitude             DOUBLE PRECISION,
	longitude            DOUBLE PRECISION,
	permit_date          TIMESTAMPTZ,
	issue_date           TIMESTAMPTZ,
	contractor           TEXT,
	owner_name           TEXT,
	owner_address        TEXT,
	developer_id         TEXT REFERENCES developers(id),
	source               TEXT NOT NULL,
	raw_data             TEXT NOT NULL DEFAULT '',
	assessor_use_type    TEXT,
	assessor_year_built  TEXT,
	assessor_sqft_main   INTEGER,
	assessor_sqft_lot    INTEGER,
	assessor_units       INTEGER,
	assessor_land_value  BIGINT,
	assessor_imp_value   BIGINT,
	assessor_enriched_at TIMESTAMPTZ,
	created_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS outreach (
	id           TEXT PRIMARY KEY,
	developer_id TEXT NOT NULL REFERENCES developers(id),
	project_id   TEXT REFERENCES projects(id),
	channel      TEXT NOT NULL,
	status       TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS developer_tags (
	id           TEXT PRIMARY KEY,
	developer_id TEXT NOT NULL REFERENCES developers(id),
	tag          TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE(developer_id, tag)
);

CREATE TABLE IF NOT EXISTS ingest_runs (
	id              TEXT PRIMARY KEY,
	source          TEXT NOT NULL,
	status          TEXT NOT NULL DEFAULT 'running',
	records_found   INTEGER NOT NULL DEFAULT 0,
	records_new     INTEGER NOT NULL DEFAULT 0,
	records_updated INTEGER NOT NULL DEFAULT 0,
	error_message   TEXT,
	started_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at    TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS raw_permits (
	source        TEXT NOT NULL,
	permit_number TEXT NOT NULL,
	payload       TEXT NOT NULL,
	fetched_at    TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (source, permit_number)
);

CREATE INDEX IF NOT EXISTS idx_projects_permit_number ON projects(permit_number);
CREATE INDEX IF NOT EXISTS idx_projects_developer_id ON projects(developer_id);
CREATE INDEX IF NOT EXISTS idx_projects_stage ON projects(pipeline_stage);
CREATE INDEX IF NOT EXISTS idx_developers_normalized_name ON developers(normalized_name);
CREATE INDEX IF NOT EXISTS idx_outreach_developer_id ON outreach(developer_id);
CREATE INDEX IF NOT EXISTS idx_tags_developer_id ON developer_tags(developer_id);
CREATE INDEX IF NOT EXISTS idx_ingest_runs_source ON ingest_runs(source);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

const pgProjectColumns = `id, permit_number, permit_type, status, pipeline_stage, pipeline_substage,
	financing_type, address, description, valuation, units, stories, sqft, zone_code, apn,
	latitude, longitude, permit_date, issue_date, contractor, owner_name, owner_address,
	developer_id, source, raw_data,
	assessor_use_type, assessor_year_built, assessor_sqft_main, assessor_sqft_lot,
	assessor_units, assessor_land_value, assessor_imp_value, assessor_enriched_at,
	created_at, updated_at`

// UpsertProject uses a single INSERT ... ON CONFLICT so the reconcile
// merge is one round trip and one atomic statement. Status-derived
// columns take the incoming classification unconditionally; the other
// nullable columns keep their stored value when the incoming one is null.
func (s *PostgresStore) UpsertProject(ctx context.Context, permit model.Permit) (*UpsertResult, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	var projectID string
	var created bool
	err := s.pool.QueryRow(ctx,
		`INSERT INTO projects (id, permit_number, permit_type, status, pipeline_stage,
			pipeline_substage, financing_type, address, description, valuation, units,
			stories, sqft, zone_code, apn, latitude, longitude, permit_date, issue_date,
			contractor, owner_name, owner_address, source, raw_data, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20, $21, $22, $23, $24, $25, $25)
		 ON CONFLICT (permit_number) DO UPDATE SET
			status = EXCLUDED.status,
			pipeline_stage = EXCLUDED.pipeline_stage,
			pipeline_substage = EXCLUDED.pipeline_substage,
			financing_type = EXCLUDED.financing_type,
			description = COALESCE(EXCLUDED.description, projects.description),
			valuation = COALESCE(EXCLUDED.valuation, projects.valuation),
			units = COALESCE(EXCLUDED.units, projects.units),
			stories = COALESCE(EXCLUDED.stories, projects.stories),
			sqft = COALESCE(EXCLUDED.sqft, projects.sqft),
			apn = COALESCE(EXCLUDED.apn, projects.apn),
			latitude = COALESCE(EXCLUDED.latitude, projects.latitude),
			longitude = COALESCE(EXCLUDED.longitude, projects.longitude),
			issue_date = COALESCE(EXCLUDED.issue_date, projects.issue_date),
			contractor = COALESCE(EXCLUDED.contractor, projects.contractor),
			owner_name = COALESCE(EXCLUDED.owner_name, projects.owner_name),
			owner_address = COALESCE(EXCLUDED.owner_address, projects.owner_address),
			raw_data = EXCLUDED.raw_data,
			updated_at = EXCLUDED.updated_at
		 RETURNING id, (xmax = 0) AS created`,
		id, permit.PermitNumber, permit.PermitType, permit.Status, string(permit.Stage),
		nullStr(permit.Substage), string(permit.Financing), permit.Address,
		permit.Description, permit.Valuation, permit.Units, permit.Stories, permit.Sqft,
		permit.ZoneCode, permit.APN, permit.Latitude, permit.Longitude,
		permit.PermitDate, permit.IssueDate, permit.Contractor, permit.OwnerName,
		permit.OwnerAddress, permit.Source, permit.RawData, now,
	).Scan(&projectID, &created)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: upsert project %s", permit.PermitNumber)
	}
	return &UpsertResult{ProjectID: projectID, Created: created}, nil
}

func (s *PostgresStore) GetProject(ctx context.Context, id string) (*model.Project, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pgProjectColumns+` FROM projects WHERE id = $1`, id)
	p, err := scanPgProject(row)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get project %s", id)
	}
	return p, nil
}

func (s *PostgresStore) GetProjectByPermitNumber(ctx context.Context, permitNumber string) (*model.Project, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pgProjectColumns+` FROM projects WHERE permit_number = $1`, permitNumber)
	p, err := scanPgProject(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get project by permit number %s", permitNumber)
	}
	return p, nil
}

func (s *PostgresStore) ListProjects(ctx context.Context, filter ProjectFilter) ([]model.Project, error) {
	query := `SELECT ` + pgProjectColumns + ` FROM projects WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Stage != "" {
		query += fmt.Sprintf(` AND pipeline_stage = $%d`, argIdx)
		args = append(args, string(filter.Stage))
		argIdx++
	}
	if filter.Source != "" {
		query += fmt.Sprintf(` AND source = $%d`, argIdx)
		args = append(args, filter.Source)
		argIdx++
	}
	if filter.DeveloperID != "" {
		query += fmt.Sprintf(` AND developer_id = $%d`, argIdx)
		args = append(args, filter.DeveloperID)
		argIdx++
	}
	query += ` ORDER BY updated_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list projects")
	}
	defer rows.Close()

	return collectPgProjects(rows)
}

func (s *PostgresStore) ListUnlinkedProjects(ctx context.Context) ([]model.Project, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+pgProjectColumns+` FROM projects
		 WHERE developer_id IS NULL AND owner_name IS NOT NULL
		 ORDER BY created_at ASC`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list unlinked projects")
	}
	defer rows.Close()

	return collectPgProjects(rows)
}

func (s *PostgresStore) LinkProject(ctx context.Context, projectID, developerID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE projects SET developer_id = $1, updated_at = $2 WHERE id = $3`,
		developerID, time.Now().UTC(), projectID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: link project %s", projectID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("project not found: %s", projectID)
	}
	return nil
}

func (s *PostgresStore) ListProjectsForAssessor(ctx context.Context) ([]model.Project, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+pgProjectColumns+` FROM projects
		 WHERE apn IS NOT NULL AND assessor_enriched_at IS NULL
		 ORDER BY created_at ASC`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list projects for assessor")
	}
	defer rows.Close()

	return collectPgProjects(rows)
}

func (s *PostgresStore) UpdateProjectAssessor(ctx context.Context, projectID string, data AssessorData) error {
	now := time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`UPDATE projects SET
			assessor_use_type = $1, assessor_year_built = $2, assessor_sqft_main = $3,
			assessor_sqft_lot = $4, assessor_units = $5, assessor_land_value = $6,
			assessor_imp_value = $7, assessor_enriched_at = $8, updated_at = $8
		 WHERE id = $9`,
		data.UseType, data.YearBuilt, data.SqftMain, data.SqftLot,
		data.Units, data.LandValue, data.ImpValue, now, projectID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update assessor data %s", projectID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("project not found: %s", projectID)
	}
	return nil
}

const pgDeveloperColumns = `id, name, normalized_name, company, email, phone, linkedin_url,
	website, address, entity_type, notes, crm_stage,
	registry_entity_number, registry_status, registry_date,
	registry_agent_name, registry_agent_address, contact_enriched_at,
	lead_score, lead_score_data, lead_scored_at, created_at, updated_at`

func (s *PostgresStore) CreateDeveloper(ctx context.Context, dev model.Developer) (*model.Developer, error) {
	dev.ID = uuid.New().String()
	now := time.Now().UTC()
	dev.CreatedAt = now
	dev.UpdatedAt = now
	if dev.CRMStage == "" {
		dev.CRMStage = model.CRMStageNew
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO developers (id, name, normalized_name, company, email, phone, linkedin_url,
			website, address, entity_type, notes, crm_stage, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)`,
		dev.ID, dev.Name, dev.NormalizedName, dev.Company, dev.Email, dev.Phone,
		dev.LinkedInURL, dev.Website, dev.Address, dev.EntityType, dev.Notes,
		string(dev.CRMStage), now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert developer %s", dev.Name)
	}
	return &dev, nil
}

func (s *PostgresStore) GetDeveloper(ctx context.Context, id string) (*model.Developer, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pgDeveloperColumns+` FROM developers WHERE id = $1`, id)
	d, err := scanPgDeveloper(row)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get developer %s", id)
	}
	return d, nil
}

func (s *PostgresStore) GetDeveloperByNormalizedName(ctx context.Context, normalized string) (*model.Developer, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pgDeveloperColumns+` FROM developers WHERE normalized_name = $1 LIMIT 1`, normalized)
	d, err := scanPgDeveloper(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get developer by normalized name %q", normalized)
	}
	return d, nil
}

func (s *PostgresStore) ListDeveloperSummaries(ctx context.Context) ([]model.DeveloperSummary, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT d.id, d.name, d.normalized_name, d.email, d.phone, d.website, d.address,
			d.entity_type, d.lead_score,
			(SELECT COUNT(*) FROM projects p WHERE p.developer_id = d.id),
			(SELECT COUNT(*) FROM outreach o WHERE o.developer_id = d.id)
		 FROM developers d
		 ORDER BY d.name ASC`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list developer summaries")
	}
	defer rows.Close()

	var out []model.DeveloperSummary
	for rows.Next() {
		var d model.DeveloperSummary
		if err := rows.Scan(&d.ID, &d.Name, &d.NormalizedName, &d.Email, &d.Phone,
			&d.Website, &d.Address, &d.EntityType, &d.LeadScore,
			&d.ProjectCount, &d.OutreachCount); err != nil {
			return nil, eris.Wrap(err, "postgres: scan developer summary")
		}
		out = append(out, d)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list developer summaries iterate")
}

func (s *PostgresStore) ListDevelopersForRegistry(ctx context.Context) ([]model.Developer, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+pgDeveloperColumns+` FROM developers
		 WHERE contact_enriched_at IS NULL
		   AND entity_type IS NOT NULL AND entity_type != 'Individual'
		 ORDER BY created_at ASC`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list developers for registry")
	}
	defer rows.Close()

	var out []model.Developer
	for rows.Next() {
		d, err := scanPgDeveloper(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan developer")
		}
		out = append(out, *d)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list developers for registry iterate")
}

func (s *PostgresStore) UpdateDeveloperRegistry(ctx context.Context, developerID string, data RegistryData) error {
	now := time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`UPDATE developers SET
			registry_entity_number = $1, registry_status = $2, registry_date = $3,
			registry_agent_name = $4, registry_agent_address = $5,
			contact_enriched_at = $6, updated_at = $6
		 WHERE id = $7`,
		data.EntityNumber, data.Status, data.Date, data.AgentName, data.AgentAddress,
		now, developerID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update registry data %s", developerID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("developer not found: %s", developerID)
	}
	return nil
}

// MergeDevelopers runs the full merge inside one transaction so a failure
// at any step leaves both developers untouched.
func (s *PostgresStore) MergeDevelopers(ctx context.Context, primaryID, secondaryID string) error {
	if primaryID == secondaryID {
		return eris.New("merge: primary and secondary are the same developer")
	}

	primary, err := s.GetDeveloper(ctx, primaryID)
	if err != nil {
		return eris.Wrap(err, "merge: load primary")
	}
	secondary, err := s.GetDeveloper(ctx, secondaryID)
	if err != nil {
		return eris.Wrap(err, "merge: load secondary")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "merge: begin tx")
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()

	if _, err := tx.Exec(ctx,
		`UPDATE projects SET developer_id = $1, updated_at = $2 WHERE developer_id = $3`,
		primaryID, now, secondaryID,
	); err != nil {
		return eris.Wrap(err, "merge: re-point projects")
	}

	if _, err := tx.Exec(ctx,
		`UPDATE outreach SET developer_id = $1 WHERE developer_id = $2`,
		primaryID, secondaryID,
	); err != nil {
		return eris.Wrap(err, "merge: re-point outreach")
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO developer_tags (id, developer_id, tag, created_at)
		 SELECT gen_random_uuid()::text, $1, tag, $2 FROM developer_tags
		 WHERE developer_id = $3
		 ON CONFLICT (developer_id, tag) DO NOTHING`,
		primaryID, now, secondaryID,
	); err != nil {
		return eris.Wrap(err, "merge: union tags")
	}

	notes := mergedNotes(primary, secondary)
	if _, err := tx.Exec(ctx,
		`UPDATE developers SET
			company = COALESCE(company, $1),
			email = COALESCE(email, $2),
			phone = COALESCE(phone, $3),
			linkedin_url = COALESCE(linkedin_url, $4),
			website = COALESCE(website, $5),
			address = COALESCE(address, $6),
			notes = $7,
			updated_at = $8
		 WHERE id = $9`,
		secondary.Company, secondary.Email, secondary.Phone, secondary.LinkedInURL,
		secondary.Website, secondary.Address, notes, now, primaryID,
	); err != nil {
		return eris.Wrap(err, "merge: fill primary fields")
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM developer_tags WHERE developer_id = $1`, secondaryID,
	); err != nil {
		return eris.Wrap(err, "merge: delete secondary tags")
	}
	if _, err := tx.Exec(ctx,
		`DELETE FROM developers WHERE id = $1`, secondaryID,
	); err != nil {
		return eris.Wrap(err, "merge: delete secondary")
	}

	return eris.Wrap(tx.Commit(ctx), "merge: commit")
}

func (s *PostgresStore) ListDevelopersForScoring(ctx context.Context) ([]scorer.DeveloperInput, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, email, phone, linkedin_url FROM developers ORDER BY created_at ASC`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list developers for scoring")
	}
	defer rows.Close()

	var devs []scorer.DeveloperInput
	index := make(map[string]int)
	for rows.Next() {
		var d scorer.DeveloperInput
		if err := rows.Scan(&d.ID, &d.Name, &d.Email, &d.Phone, &d.LinkedInURL); err != nil {
			return nil, eris.Wrap(err, "postgres: scan developer for scoring")
		}
		index[d.ID] = len(devs)
		devs = append(devs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate developers for scoring")
	}

	projRows, err := s.pool.Query(ctx,
		`SELECT developer_id, permit_type, pipeline_stage, pipeline_substage,
			financing_type, valuation, updated_at
		 FROM projects WHERE developer_id IS NOT NULL`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list projects for scoring")
	}
	defer projRows.Close()

	for projRows.Next() {
		var devID string
		var p scorer.ProjectInput
		var substage *string
		if err := projRows.Scan(&devID, &p.PermitType, &p.Stage, &substage,
			&p.Financing, &p.Valuation, &p.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan project for scoring")
		}
		if substage != nil {
			p.Substage = *substage
		}
		if i, ok := index[devID]; ok {
			devs[i].Projects = append(devs[i].Projects, p)
		}
	}
	if err := projRows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate projects for scoring")
	}

	outRows, err := s.pool.Query(ctx,
		`SELECT developer_id, created_at FROM outreach ORDER BY created_at DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list outreach for scoring")
	}
	defer outRows.Close()

	for outRows.Next() {
		var devID string
		var at time.Time
		if err := outRows.Scan(&devID, &at); err != nil {
			return nil, eris.Wrap(err, "postgres: scan outreach for scoring")
		}
		if i, ok := index[devID]; ok && len(devs[i].Outreach) < recentOutreachLimit {
			devs[i].Outreach = append(devs[i].Outreach, at)
		}
	}
	return devs, eris.Wrap(outRows.Err(), "postgres: iterate outreach for scoring")
}

func (s *PostgresStore) UpdateLeadScore(ctx context.Context, developerID string, total int, breakdownJSON string, at time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE developers SET lead_score = $1, lead_score_data = $2, lead_scored_at = $3, updated_at = $3
		 WHERE id = $4`,
		total, breakdownJSON, at, developerID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update lead score %s", developerID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("developer not found: %s", developerID)
	}
	return nil
}

func (s *PostgresStore) ListOutreach(ctx context.Context, developerID string, limit int) ([]model.Outreach, error) {
	if limit <= 0 {
		limit = recentOutreachLimit
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, developer_id, project_id, channel, status, created_at FROM outreach
		 WHERE developer_id = $1 ORDER BY created_at DESC LIMIT $2`,
		developerID, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list outreach")
	}
	defer rows.Close()

	var out []model.Outreach
	for rows.Next() {
		var o model.Outreach
		if err := rows.Scan(&o.ID, &o.DeveloperID, &o.ProjectID, &o.Channel, &o.Status, &o.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan outreach")
		}
		out = append(out, o)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list outreach iterate")
}

// ArchiveRaw bulk-upserts the raw source payloads for audit and replay.
func (s *PostgresStore) ArchiveRaw(ctx context.Context, source string, permits []model.Permit) (int64, error) {
	if len(permits) == 0 {
		return 0, nil
	}
	now := time.Now().UTC()

	rows := make([][]any, 0, len(permits))
	for _, p := range permits {
		rows = append(rows, []any{source, p.PermitNumber, p.RawData, now})
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "raw_permits",
		Columns:      []string{"source", "permit_number", "payload", "fetched_at"},
		ConflictKeys: []string{"source", "permit_number"},
	}, rows)
	return n, eris.Wrapf(err, "postgres: archive raw for %s", source)
}

func (s *PostgresStore) StartIngestRun(ctx context.Context, source string) (*model.IngestRun, error) {
	run := model.IngestRun{
		ID:        uuid.New().String(),
		Source:    source,
		Status:    model.IngestRunRunning,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO ingest_runs (id, source, status, started_at) VALUES ($1, $2, $3, $4)`,
		run.ID, run.Source, string(run.Status), run.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: start ingest run %s", source)
	}
	return &run, nil
}

func (s *PostgresStore) CompleteIngestRun(ctx context.Context, runID string, found, created, updated int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE ingest_runs SET status = $1, records_found = $2, records_new = $3, records_updated = $4, completed_at = $5
		 WHERE id = $6`,
		string(model.IngestRunCompleted), found, created, updated, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete ingest run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("ingest_run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) FailIngestRun(ctx context.Context, runID string, errMsg string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE ingest_runs SET status = $1, error_message = $2, completed_at = $3 WHERE id = $4`,
		string(model.IngestRunFailed), errMsg, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail ingest run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("ingest_run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) ListIngestRuns(ctx context.Context, limit int) ([]model.IngestRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, source, status, records_found, records_new, records_updated, error_message, started_at, completed_at
		 FROM ingest_runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list ingest runs")
	}
	defer rows.Close()

	var runs []model.IngestRun
	for rows.Next() {
		var r model.IngestRun
		if err := rows.Scan(&r.ID, &r.Source, &r.Status, &r.RecordsFound, &r.RecordsNew,
			&r.RecordsUpdated, &r.ErrorMessage, &r.StartedAt, &r.CompletedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan ingest run")
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list ingest runs iterate")
}

func scanPgProject(row pgx.Row) (*model.Project, error) {
	var p model.Project
	var substage *string

	err := row.Scan(
		&p.ID, &p.PermitNumber, &p.PermitType, &p.Status, &p.Stage, &substage,
		&p.Financing, &p.Address, &p.Description, &p.Valuation, &p.Units, &p.Stories,
		&p.Sqft, &p.ZoneCode, &p.APN, &p.Latitude, &p.Longitude, &p.PermitDate,
		&p.IssueDate, &p.Contractor, &p.OwnerName, &p.OwnerAddress, &p.DeveloperID,
		&p.Source, &p.RawData,
		&p.AssessorUseType, &p.AssessorYearBuilt, &p.AssessorSqftMain, &p.AssessorSqftLot,
		&p.AssessorUnits, &p.AssessorLandValue, &p.AssessorImpValue, &p.AssessorEnrichedAt,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if substage != nil {
		p.Substage = *substage
	}
	return &p, nil
}

func scanPgDeveloper(row pgx.Row) (*model.Developer, error) {
	var d model.Developer

	err := row.Scan(
		&d.ID, &d.Name, &d.NormalizedName, &d.Company, &d.Email, &d.Phone,
		&d.LinkedInURL, &d.Website, &d.Address, &d.EntityType, &d.Notes, &d.CRMStage,
		&d.RegistryEntityNumber, &d.RegistryStatus, &d.RegistryDate,
		&d.RegistryAgentName, &d.RegistryAgentAddress, &d.ContactEnrichedAt,
		&d.LeadScore, &d.LeadScoreData, &d.LeadScoredAt, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func collectPgProjects(rows pgx.Rows) ([]model.Project, error) {
	var out []model.Project
	for rows.Next() {
		p, err := scanPgProject(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan project")
		}
		out = append(out, *p)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate projects")
}
