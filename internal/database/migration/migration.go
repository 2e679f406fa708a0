// Package migration creates the loan processing schema on first start.
package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type migrationStep struct {
	Name string
	SQL  string
}

// sentinelTable is created by the last step, so a partially applied schema
// is completed on the next start.
const sentinelTable = "public.credit_summary_jobs"

var steps = []migrationStep{
	{
		Name: "create_extension_uuid_ossp",
		SQL:  `CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	},
	{
		Name: "create_table_lenders",
		SQL: `CREATE TABLE IF NOT EXISTS lenders (
  id         UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  name       TEXT        NOT NULL,
  active     BOOLEAN     NOT NULL DEFAULT true,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_lender_products",
		SQL: `CREATE TABLE IF NOT EXISTS lender_products (
  id         UUID          PRIMARY KEY DEFAULT uuid_generate_v4(),
  lender_id  UUID          NOT NULL REFERENCES lenders (id),
  category   TEXT          NOT NULL,
  country    TEXT          NOT NULL DEFAULT 'BOTH' CHECK (country IN ('US', 'CA', 'BOTH')),
  min_amount NUMERIC(14,2),
  max_amount NUMERIC(14,2),
  active     BOOLEAN       NOT NULL DEFAULT true,
  created_at TIMESTAMPTZ   NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_lender_products_category",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_lender_products_category ON lender_products (category, country) WHERE active;`,
	},
	{
		Name: "create_table_lender_product_required_documents",
		SQL: `CREATE TABLE IF NOT EXISTS lender_product_required_documents (
  lender_product_id UUID          NOT NULL REFERENCES lender_products (id) ON DELETE CASCADE,
  document_type     TEXT          NOT NULL,
  required          BOOLEAN       NOT NULL DEFAULT true,
  min_amount        NUMERIC(14,2),
  max_amount        NUMERIC(14,2),
  PRIMARY KEY (lender_product_id, document_type)
);`,
	},
	{
		Name: "create_table_applications",
		SQL: `CREATE TABLE IF NOT EXISTS applications (
  id                          UUID          PRIMARY KEY DEFAULT uuid_generate_v4(),
  processing_stage            TEXT          DEFAULT 'pending',
  ocr_completed_at            TIMESTAMPTZ,
  banking_completed_at        TIMESTAMPTZ,
  credit_summary_completed_at TIMESTAMPTZ,
  product_type                TEXT,
  lender_product_id           UUID          REFERENCES lender_products (id),
  requested_amount            NUMERIC(14,2),
  metadata                    JSONB,
  created_at                  TIMESTAMPTZ   NOT NULL DEFAULT now(),
  updated_at                  TIMESTAMPTZ   NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_applications_processing_stage",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_applications_processing_stage ON applications (processing_stage);`,
	},
	{
		Name: "create_table_documents",
		SQL: `CREATE TABLE IF NOT EXISTS documents (
  id               UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  application_id   UUID        NOT NULL REFERENCES applications (id) ON DELETE CASCADE,
  document_type    TEXT        NOT NULL,
  status           TEXT        NOT NULL DEFAULT 'uploaded',
  filename         TEXT        NOT NULL,
  storage_path     TEXT        NOT NULL UNIQUE,
  size             BIGINT      NOT NULL CHECK (size >= 0),
  content_type     TEXT        NOT NULL,
  rejection_reason TEXT,
  created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_documents_application",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_application ON documents (application_id, document_type);`,
	},
	{
		Name: "create_table_document_processing_jobs",
		SQL: `CREATE TABLE IF NOT EXISTS document_processing_jobs (
  id             UUID        PRIMARY KEY,
  application_id UUID        NOT NULL REFERENCES applications (id) ON DELETE CASCADE,
  document_id    UUID        NOT NULL REFERENCES documents (id) ON DELETE CASCADE,
  job_type       TEXT        NOT NULL,
  status         TEXT        NOT NULL DEFAULT 'pending',
  retry_count    INT         NOT NULL DEFAULT 0,
  max_retries    INT         NOT NULL DEFAULT 3,
  last_retry_at  TIMESTAMPTZ,
  error_message  TEXT,
  created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
  started_at     TIMESTAMPTZ,
  completed_at   TIMESTAMPTZ,
  updated_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
  UNIQUE (document_id, job_type)
);`,
	},
	{
		Name: "create_index_document_processing_jobs_pending",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_document_processing_jobs_pending ON document_processing_jobs (application_id) WHERE status = 'pending';`,
	},
	{
		Name: "create_table_banking_analysis_jobs",
		SQL: `CREATE TABLE IF NOT EXISTS banking_analysis_jobs (
  id                        UUID        PRIMARY KEY,
  application_id            UUID        NOT NULL UNIQUE REFERENCES applications (id) ON DELETE CASCADE,
  status                    TEXT        NOT NULL DEFAULT 'pending',
  statement_months_detected INT,
  error_message             TEXT,
  created_at                TIMESTAMPTZ NOT NULL DEFAULT now(),
  started_at                TIMESTAMPTZ,
  completed_at              TIMESTAMPTZ,
  updated_at                TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_application_required_documents",
		SQL: `CREATE TABLE IF NOT EXISTS application_required_documents (
  application_id    UUID        NOT NULL REFERENCES applications (id) ON DELETE CASCADE,
  document_category TEXT        NOT NULL,
  is_required       BOOLEAN     NOT NULL DEFAULT false,
  status            TEXT        NOT NULL DEFAULT 'missing',
  updated_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
  UNIQUE (application_id, document_category)
);`,
	},
	{
		Name: "create_table_credit_summary_jobs",
		SQL: `CREATE TABLE IF NOT EXISTS credit_summary_jobs (
  id             UUID        PRIMARY KEY,
  application_id UUID        NOT NULL UNIQUE REFERENCES applications (id) ON DELETE CASCADE,
  status         TEXT        NOT NULL DEFAULT 'pending',
  created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
}

// EnsureMigrated checks for the sentinel table and runs the migration steps
// if it is missing. Every step is idempotent.
func EnsureMigrated(ctx context.Context, db *sql.DB, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("component", "database"))
	start := time.Now()

	log.Info("db_migration_check", zap.String("status", "starting"))

	var exists bool
	query := "SELECT to_regclass($1) IS NOT NULL"
	if err := db.QueryRowContext(ctx, query, sentinelTable).Scan(&exists); err != nil {
		log.Error("db_migration_failed",
			zap.String("status", "error"),
			zap.Error(err),
			zap.Duration("duration", time.Since(start)),
		)
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		log.Info("db_migration_skip",
			zap.String("status", "success"),
			zap.String("reason", "schema already exists"),
			zap.Duration("duration", time.Since(start)),
		)
		return nil
	}

	log.Info("db_migration_start", zap.Int("steps", len(steps)))

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.Error("db_migration_failed",
				zap.String("status", "error"),
				zap.String("migration_step", step.Name),
				zap.Error(err),
				zap.Duration("duration", time.Since(start)),
			)
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}
		log.Debug("db_migration_step",
			zap.String("migration_step", step.Name),
			zap.Duration("step_duration", time.Since(stepStart)),
		)
	}

	log.Info("db_migration_success",
		zap.String("status", "success"),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}
