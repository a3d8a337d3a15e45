package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/permit-scout/internal/model"
	"github.com/sells-group/permit-scout/internal/scorer"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
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
	contact_enriched_at    DATETIME,
	lead_score             INTEGER,
	lead_score_data        TEXT,
	lead_scored_at         DATETIME,
	created_at             DATETIME NOT NULL,
	updated_at             DATETIME NOT NULL
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
	valuation            REAL,
	units                INTEGER,
	stories              INTEGER,
	sqft                 INTEGER,
	zone_code            TEXT,
	apn                  TEXT,
	latitude             REAL,
	longitude            REAL,
	permit_date          DATETIME,
	issue_date           DATETIME,
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
	assessor_land_value  INTEGER,
	assessor_imp_value   INTEGER,
	assessor_enriched_at DATETIME,
	created_at           DATETIME NOT NULL,
	updated_at           DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS outreach (
	id           TEXT PRIMARY KEY,
	developer_id TEXT NOT NULL REFERENCES developers(id),
	project_id   TEXT REFERENCES projects(id),
	channel      TEXT NOT NULL,
	status       TEXT NOT NULL,
	created_at   DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS developer_tags (
	id           TEXT PRIMARY KEY,
	developer_id TEXT NOT NULL REFERENCES developers(id),
	tag          TEXT NOT NULL,
	created_at   DATETIME NOT NULL,
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
	started_at      DATETIME NOT NULL,
	completed_at    DATETIME
);

CREATE TABLE IF NOT EXISTS raw_permits (
	source        TEXT NOT NULL,
	permit_number TEXT NOT NULL,
	payload       TEXT NOT NULL,
	fetched_at    DATETIME NOT NULL,
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

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const projectColumns = `id, permit_number, permit_type, status, pipeline_stage, pipeline_substage,
	financing_type, address, description, valuation, units, stories, sqft, zone_code, apn,
	latitude, longitude, permit_date, issue_date, contractor, owner_name, owner_address,
	developer_id, source, raw_data,
	assessor_use_type, assessor_year_built, assessor_sqft_main, assessor_sqft_lot,
	assessor_units, assessor_land_value, assessor_imp_value, assessor_enriched_at,
	created_at, updated_at`

// UpsertProject reconciles one classified permit record into the projects
// table. Status-derived fields always take the incoming classification;
// every other nullable field keeps its stored value unless the incoming
// record supplies a non-null one. Identity fields set at creation
// (permit type, address, zone code, permit date, source) are never
// rewritten.
func (s *SQLiteStore) UpsertProject(ctx context.Context, permit model.Permit) (*UpsertResult, error) {
	now := time.Now().UTC()

	var existingID string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM projects WHERE permit_number = ?`, permit.PermitNumber,
	).Scan(&existingID)
	if err == sql.ErrNoRows {
		id := uuid.New().String()
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO projects (`+projectColumns+`)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, ?, ?,
			         NULL, NULL, NULL, NULL, NULL, NULL, NULL, NULL, ?, ?)`,
			id, permit.PermitNumber, permit.PermitType, permit.Status,
			string(permit.Stage), nullStr(permit.Substage), string(permit.Financing),
			permit.Address, permit.Description, permit.Valuation,
			permit.Units, permit.Stories, permit.Sqft, permit.ZoneCode, permit.APN,
			permit.Latitude, permit.Longitude, permit.PermitDate, permit.IssueDate,
			permit.Contractor, permit.OwnerName, permit.OwnerAddress,
			permit.Source, permit.RawData, now, now,
		)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: insert project %s", permit.PermitNumber)
		}
		return &UpsertResult{ProjectID: id, Created: true}, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: lookup project %s", permit.PermitNumber)
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE projects SET
			status = ?,
			pipeline_stage = ?,
			pipeline_substage = ?,
			financing_type = ?,
			description = COALESCE(?, description),
			valuation = COALESCE(?, valuation),
			units = COALESCE(?, units),
			stories = COALESCE(?, stories),
			sqft = COALESCE(?, sqft),
			apn = COALESCE(?, apn),
			latitude = COALESCE(?, latitude),
			longitude = COALESCE(?, longitude),
			issue_date = COALESCE(?, issue_date),
			contractor = COALESCE(?, contractor),
			owner_name = COALESCE(?, owner_name),
			owner_address = COALESCE(?, owner_address),
			raw_data = ?,
			updated_at = ?
		 WHERE id = ?`,
		permit.Status, string(permit.Stage), nullStr(permit.Substage), string(permit.Financing),
		permit.Description, permit.Valuation, permit.Units, permit.Stories, permit.Sqft,
		permit.APN, permit.Latitude, permit.Longitude, permit.IssueDate,
		permit.Contractor, permit.OwnerName, permit.OwnerAddress,
		permit.RawData, now, existingID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: update project %s", permit.PermitNumber)
	}
	return &UpsertResult{ProjectID: existingID, Created: false}, nil
}

func (s *SQLiteStore) GetProject(ctx context.Context, id string) (*model.Project, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	return scanProject(row)
}

func (s *SQLiteStore) GetProjectByPermitNumber(ctx context.Context, permitNumber string) (*model.Project, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE permit_number = ?`, permitNumber)
	p, err := scanProject(row)
	if err != nil && eris.Is(err, errNotFound) {
		return nil, nil
	}
	return p, err
}

func (s *SQLiteStore) ListProjects(ctx context.Context, filter ProjectFilter) ([]model.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE 1=1`
	var args []any

	if filter.Stage != "" {
		query += ` AND pipeline_stage = ?`
		args = append(args, string(filter.Stage))
	}
	if filter.Source != "" {
		query += ` AND source = ?`
		args = append(args, filter.Source)
	}
	if filter.DeveloperID != "" {
		query += ` AND developer_id = ?`
		args = append(args, filter.DeveloperID)
	}
	query += ` ORDER BY updated_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list projects")
	}
	defer rows.Close()

	return collectProjects(rows)
}

func (s *SQLiteStore) ListUnlinkedProjects(ctx context.Context) ([]model.Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+projectColumns+` FROM projects
		 WHERE developer_id IS NULL AND owner_name IS NOT NULL
		 ORDER BY created_at ASC`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list unlinked projects")
	}
	defer rows.Close()

	return collectProjects(rows)
}

func (s *SQLiteStore) LinkProject(ctx context.Context, projectID, developerID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE projects SET developer_id = ?, updated_at = ? WHERE id = ?`,
		developerID, time.Now().UTC(), projectID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: link project %s", projectID)
	}
	return checkRowsAffected(res, "project", projectID)
}

func (s *SQLiteStore) ListProjectsForAssessor(ctx context.Context) ([]model.Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+projectColumns+` FROM projects
		 WHERE apn IS NOT NULL AND assessor_enriched_at IS NULL
		 ORDER BY created_at ASC`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list projects for assessor")
	}
	defer rows.Close()

	return collectProjects(rows)
}

func (s *SQLiteStore) UpdateProjectAssessor(ctx context.Context, projectID string, data AssessorData) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE projects SET
			assessor_use_type = ?, assessor_year_built = ?, assessor_sqft_main = ?,
			assessor_sqft_lot = ?, assessor_units = ?, assessor_land_value = ?,
			assessor_imp_value = ?, assessor_enriched_at = ?, updated_at = ?
		 WHERE id = ?`,
		data.UseType, data.YearBuilt, data.SqftMain, data.SqftLot,
		data.Units, data.LandValue, data.ImpValue, now, now, projectID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update assessor data %s", projectID)
	}
	return checkRowsAffected(res, "project", projectID)
}

const developerColumns = `id, name, normalized_name, company, email, phone, linkedin_url,
	website, address, entity_type, notes, crm_stage,
	registry_entity_number, registry_status, registry_date,
	registry_agent_name, registry_agent_address, contact_enriched_at,
	lead_score, lead_score_data, lead_scored_at, created_at, updated_at`

func (s *SQLiteStore) CreateDeveloper(ctx context.Context, dev model.Developer) (*model.Developer, error) {
	dev.ID = uuid.New().String()
	now := time.Now().UTC()
	dev.CreatedAt = now
	dev.UpdatedAt = now
	if dev.CRMStage == "" {
		dev.CRMStage = model.CRMStageNew
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO developers (id, name, normalized_name, company, email, phone, linkedin_url,
			website, address, entity_type, notes, crm_stage, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		dev.ID, dev.Name, dev.NormalizedName, dev.Company, dev.Email, dev.Phone,
		dev.LinkedInURL, dev.Website, dev.Address, dev.EntityType, dev.Notes,
		string(dev.CRMStage), now, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert developer %s", dev.Name)
	}
	return &dev, nil
}

func (s *SQLiteStore) GetDeveloper(ctx context.Context, id string) (*model.Developer, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+developerColumns+` FROM developers WHERE id = ?`, id)
	return scanDeveloper(row)
}

func (s *SQLiteStore) GetDeveloperByNormalizedName(ctx context.Context, normalized string) (*model.Developer, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+developerColumns+` FROM developers WHERE normalized_name = ? LIMIT 1`, normalized)
	d, err := scanDeveloper(row)
	if err != nil && eris.Is(err, errNotFound) {
		return nil, nil
	}
	return d, err
}

func (s *SQLiteStore) ListDeveloperSummaries(ctx context.Context) ([]model.DeveloperSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT d.id, d.name, d.normalized_name, d.email, d.phone, d.website, d.address,
			d.entity_type, d.lead_score,
			(SELECT COUNT(*) FROM projects p WHERE p.developer_id = d.id),
			(SELECT COUNT(*) FROM outreach o WHERE o.developer_id = d.id)
		 FROM developers d
		 ORDER BY d.name ASC`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list developer summaries")
	}
	defer rows.Close()

	var out []model.DeveloperSummary
	for rows.Next() {
		var d model.DeveloperSummary
		if err := rows.Scan(&d.ID, &d.Name, &d.NormalizedName, &d.Email, &d.Phone,
			&d.Website, &d.Address, &d.EntityType, &d.LeadScore,
			&d.ProjectCount, &d.OutreachCount); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan developer summary")
		}
		out = append(out, d)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list developer summaries iterate")
}

func (s *SQLiteStore) ListDevelopersForRegistry(ctx context.Context) ([]model.Developer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+developerColumns+` FROM developers
		 WHERE contact_enriched_at IS NULL
		   AND entity_type IS NOT NULL AND entity_type != 'Individual'
		 ORDER BY created_at ASC`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list developers for registry")
	}
	defer rows.Close()

	var out []model.Developer
	for rows.Next() {
		d, err := scanDeveloper(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list developers for registry iterate")
}

func (s *SQLiteStore) UpdateDeveloperRegistry(ctx context.Context, developerID string, data RegistryData) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE developers SET
			registry_entity_number = ?, registry_status = ?, registry_date = ?,
			registry_agent_name = ?, registry_agent_address = ?,
			contact_enriched_at = ?, updated_at = ?
		 WHERE id = ?`,
		data.EntityNumber, data.Status, data.Date, data.AgentName, data.AgentAddress,
		now, now, developerID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update registry data %s", developerID)
	}
	return checkRowsAffected(res, "developer", developerID)
}

/// MergeDevelopers folds secondary into primary as one transaction:
// projects and outreach re-point to primary, tags union under the
// (developer, tag) identity, null contact fields on primary fill from
// secondary, notes concatenate with an attribution marker, then
// secondary and its tags are deleted.
func (s *SQLiteStore) MergeDevelopers(ctx context.Context, primaryID, secondaryID string) error {
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

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "merge: begin tx")
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	if _, err := tx.ExecContext(ctx,
		`UPDATE projects SET developer_id = ?, updated_at = ? WHERE developer_id = ?`,
		primaryID, now, secondaryID,
	); err != nil {
		return eris.Wrap(err, "merge: re-point projects")
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE outreach SET developer_id = ? WHERE developer_id = ?`,
		primaryID, secondaryID,
	); err != nil {
		return eris.Wrap(err, "merge: re-point outreach")
	}

	// Union tags. Secondary tags whose text primary already holds are
	// skipped; the rest are re-created under primary with fresh ids.
	tagRows, err := tx.QueryContext(ctx,
		`SELECT tag FROM developer_tags WHERE developer_id = ?
		 AND tag NOT IN (SELECT tag FROM developer_tags WHERE developer_id = ?)`,
		secondaryID, primaryID,
	)
	if err != nil {
		return eris.Wrap(err, "merge: read secondary tags")
	}
	var newTags []string
	for tagRows.Next() {
		var tag string
		if err := tagRows.Scan(&tag); err != nil {
			tagRows.Close()
			return eris.Wrap(err, "merge: scan tag")
		}
		newTags = append(newTags, tag)
	}
	tagRows.Close()
	if err := tagRows.Err(); err != nil {
		return eris.Wrap(err, "merge: iterate tags")
	}
	for _, tag := range newTags {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO developer_tags (id, developer_id, tag, created_at) VALUES (?, ?, ?, ?)`,
			uuid.New().String(), primaryID, tag, now,
		); err != nil {
			return eris.Wrapf(err, "merge: copy tag %q", tag)
		}
	}

	notes := mergedNotes(primary, secondary)
	if _, err := tx.ExecContext(ctx,
		`UPDATE developers SET
			company = COALESCE(company, ?),
			email = COALESCE(email, ?),
			phone = COALESCE(phone, ?),
			linkedin_url = COALESCE(linkedin_url, ?),
			website = COALESCE(website, ?),
			address = COALESCE(address, ?),
			notes = ?,
			updated_at = ?
		 WHERE id = ?`,
		secondary.Company, secondary.Email, secondary.Phone, secondary.LinkedInURL,
		secondary.Website, secondary.Address, notes, now, primaryID,
	); err != nil {
		return eris.Wrap(err, "merge: fill primary fields")
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM developer_tags WHERE developer_id = ?`, secondaryID,
	); err != nil {
		return eris.Wrap(err, "merge: delete secondary tags")
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM developers WHERE id = ?`, secondaryID,
	); err != nil {
		return eris.Wrap(err, "merge: delete secondary")
	}

	return eris.Wrap(tx.Commit(), "merge: commit")
}

func (s *SQLiteStore) ListDevelopersForScoring(ctx context.Context) ([]scorer.DeveloperInput, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, email, phone, linkedin_url FROM developers ORDER BY created_at ASC`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list developers for scoring")
	}
	defer rows.Close()

	var devs []scorer.DeveloperInput
	index := make(map[string]int)
	for rows.Next() {
		var d scorer.DeveloperInput
		if err := rows.Scan(&d.ID, &d.Name, &d.Email, &d.Phone, &d.LinkedInURL); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan developer for scoring")
		}
		index[d.ID] = len(devs)
		devs = append(devs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate developers for scoring")
	}

	projRows, err := s.db.QueryContext(ctx,
		`SELECT developer_id, permit_type, pipeline_stage, pipeline_substage,
			financing_type, valuation, updated_at
		 FROM projects WHERE developer_id IS NOT NULL`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list projects for scoring")
	}
	defer projRows.Close()

	for projRows.Next() {
		var devID string
		var p scorer.ProjectInput
		var substage *string
		if err := projRows.Scan(&devID, &p.PermitType, &p.Stage, &substage,
			&p.Financing, &p.Valuation, &p.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan project for scoring")
		}
		if substage != nil {
			p.Substage = *substage
		}
		if i, ok := index[devID]; ok {
			devs[i].Projects = append(devs[i].Projects, p)
		}
	}
	if err := projRows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate projects for scoring")
	}

	outRows, err := s.db.QueryContext(ctx,
		`SELECT developer_id, created_at FROM outreach ORDER BY created_at DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list outreach for scoring")
	}
	defer outRows.Close()

	for outRows.Next() {
		var devID string
		var at time.Time
		if err := outRows.Scan(&devID, &at); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan outreach for scoring")
		}
		if i, ok := index[devID]; ok && len(devs[i].Outreach) < recentOutreachLimit {
			devs[i].Outreach = append(devs[i].Outreach, at)
		}
	}
	return devs, eris.Wrap(outRows.Err(), "sqlite: iterate outreach for scoring")
}

func (s *SQLiteStore) UpdateLeadScore(ctx context.Context, developerID string, total int, breakdownJSON string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE developers SET lead_score = ?, lead_score_data = ?, lead_scored_at = ?, updated_at = ?
		 WHERE id = ?`,
		total, breakdownJSON, at, at, developerID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update lead score %s", developerID)
	}
	return checkRowsAffected(res, "developer", developerID)
}

func (s *SQLiteStore) ListOutreach(ctx context.Context, developerID string, limit int) ([]model.Outreach, error) {
	if limit <= 0 {
		limit = recentOutreachLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, developer_id, project_id, channel, status, created_at FROM outreach
		 WHERE developer_id = ? ORDER BY created_at DESC LIMIT ?`,
		developerID, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list outreach")
	}
	defer rows.Close()

	var out []model.Outreach
	for rows.Next() {
		var o model.Outreach
		if err := rows.Scan(&o.ID, &o.DeveloperID, &o.ProjectID, &o.Channel, &o.Status, &o.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan outreach")
		}
		out = append(out, o)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list outreach iterate")
}

func (s *SQLiteStore) ArchiveRaw(ctx context.Context, source string, permits []model.Permit) (int64, error) {
	if len(permits) == 0 {
		return 0, nil
	}
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: archive begin tx")
	}
	defer tx.Rollback()

	var n int64
	for _, p := range permits {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO raw_permits (source, permit_number, payload, fetched_at)
			 VALUES (?, ?, ?, ?)
			 ON CONFLICT(source, permit_number) DO UPDATE SET payload = excluded.payload, fetched_at = excluded.fetched_at`,
			source, p.PermitNumber, p.RawData, now,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: archive raw %s", p.PermitNumber)
		}
		rows, _ := res.RowsAffected()
		n += rows
	}
	return n, eris.Wrap(tx.Commit(), "sqlite: archive commit")
}

func (s *SQLiteStore) StartIngestRun(ctx context.Context, source string) (*model.IngestRun, error) {
	run := model.IngestRun{
		ID:        uuid.New().String(),
		Source:    source,
		Status:    model.IngestRunRunning,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ingest_runs (id, source, status, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.Source, string(run.Status), run.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: start ingest run %s", source)
	}
	return &run, nil
}

func (s *SQLiteStore) CompleteIngestRun(ctx context.Context, runID string, found, created, updated int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE ingest_runs SET status = ?, records_found = ?, records_new = ?, records_updated = ?, completed_at = ?
		 WHERE id = ?`,
		string(model.IngestRunCompleted), found, created, updated, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete ingest run %s", runID)
	}
	return checkRowsAffected(res, "ingest_run", runID)
}

func (s *SQLiteStore) FailIngestRun(ctx context.Context, runID string, errMsg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE ingest_runs SET status = ?, error_message = ?, completed_at = ? WHERE id = ?`,
		string(model.IngestRunFailed), errMsg, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail ingest run %s", runID)
	}
	return checkRowsAffected(res, "ingest_run", runID)
}

func (s *SQLiteStore) ListIngestRuns(ctx context.Context, limit int) ([]model.IngestRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, status, records_found, records_new, records_updated, error_message, started_at, completed_at
		 FROM ingest_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list ingest runs")
	}
	defer rows.Close()

	var runs []model.IngestRun
	for rows.Next() {
		var r model.IngestRun
		if err := rows.Scan(&r.ID, &r.Source, &r.Status, &r.RecordsFound, &r.RecordsNew,
			&r.RecordsUpdated, &r.ErrorMessage, &r.StartedAt, &r.CompletedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan ingest run")
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list ingest runs iterate")
}
