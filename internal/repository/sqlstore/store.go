// Package sqlstore implements repository.Repository on database/sql for
// SQLite and PostgreSQL.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"heredity/internal/domain"
	"heredity/internal/repository"
)

var _ repository.Repository = (*Store)(nil)

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

// Store implements repository.Repository over a SQL database
type Store struct {
	db      *sql.DB
	dialect dialect
}

const schema = `
CREATE TABLE IF NOT EXISTS pedigrees (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	version BIGINT NOT NULL DEFAULT 1,
	created_at BIGINT NOT NULL,
	updated_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS individuals (
	pedigree_id TEXT NOT NULL REFERENCES pedigrees(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	name TEXT NOT NULL,
	mother TEXT,
	father TEXT,
	trait INTEGER,
	PRIMARY KEY (pedigree_id, position)
);

CREATE TABLE IF NOT EXISTS runs (
	pedigree_id TEXT PRIMARY KEY REFERENCES pedigrees(id) ON DELETE CASCADE,
	pedigree_version BIGINT NOT NULL,
	worlds BIGINT NOT NULL,
	elapsed_ns BIGINT NOT NULL,
	completed_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS posteriors (
	pedigree_id TEXT NOT NULL REFERENCES runs(pedigree_id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	name TEXT NOT NULL,
	gene_0 DOUBLE PRECISION NOT NULL,
	gene_1 DOUBLE PRECISION NOT NULL,
	gene_2 DOUBLE PRECISION NOT NULL,
	trait_true DOUBLE PRECISION NOT NULL,
	trait_false DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (pedigree_id, position)
);

CREATE INDEX IF NOT EXISTS idx_pedigrees_updated ON pedigrees(updated_at);
`

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range splitStatements(schema) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute schema: %w", err)
		}
	}
	return nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying sql.DB for tests
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) exec(ctx context.Context, tx *sql.Tx, query string, args ...any) (sql.Result, error) {
	return tx.ExecContext(ctx, s.rebind(query), args...)
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// SavePedigree creates or replaces a pedigree and its individuals, bumping
// its version and setting p.Version. Any stored run for the pedigree is
// removed.
func (s *Store) SavePedigree(ctx context.Context, p *domain.Pedigree) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := s.exec(ctx, tx, `
			INSERT INTO pedigrees (id, name, created_at, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				name = excluded.name,
				version = pedigrees.version + 1,
				updated_at = excluded.updated_at
		`, p.ID, p.Name, timeToUnix(p.CreatedAt), timeToUnix(p.UpdatedAt))
		if err != nil {
			return fmt.Errorf("failed to upsert pedigree: %w", err)
		}
		version, err := s.version(ctx, tx, p.ID)
		if err != nil {
			return err
		}

		if err := s.deleteRun(ctx, tx, p.ID); err != nil {
			return err
		}
		if _, err := s.exec(ctx, tx, `DELETE FROM individuals WHERE pedigree_id = ?`, p.ID); err != nil {
			return fmt.Errorf("failed to clear individuals: %w", err)
		}

		for pos, ind := range p.Individuals {
			_, err := s.exec(ctx, tx, `
				INSERT INTO individuals (pedigree_id, position, name, mother, father, trait)
				VALUES (?, ?, ?, ?, ?, ?)
			`, p.ID, pos, ind.Name, stringToNull(ind.Mother), stringToNull(ind.Father), traitToNull(ind.Trait))
			if err != nil {
				return fmt.Errorf("failed to insert individual %s: %w", ind.Name, err)
			}
		}
		p.Version = version
		return nil
	})
}

// version reads the current version of a pedigree inside tx
func (s *Store) version(ctx context.Context, tx *sql.Tx, id string) (int64, error) {
	var version int64
	err := tx.QueryRowContext(ctx, s.rebind(`SELECT version FROM pedigrees WHERE id = ?`), id).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("pedigree %s: %w", id, repository.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query pedigree: %w", err)
	}
	return version, nil
}

// GetPedigree loads a pedigree with its individuals in stored order
func (s *Store) GetPedigree(ctx context.Context, id string) (*domain.Pedigree, error) {
	var (
		p                    domain.Pedigree
		createdAt, updatedAt int64
	)
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT id, name, version, created_at, updated_at FROM pedigrees WHERE id = ?
	`), id).Scan(&p.ID, &p.Name, &p.Version, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("pedigree %s: %w", id, repository.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query pedigree: %w", err)
	}
	p.CreatedAt = unixToTime(createdAt)
	p.UpdatedAt = unixToTime(updatedAt)

	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT name, mother, father, trait FROM individuals
		WHERE pedigree_id = ? ORDER BY position
	`), id)
	if err != nil {
		return nil, fmt.Errorf("failed to query individuals: %w", err)
	}
	defer rows.Close()

	p.Individuals = []domain.Individual{}
	for rows.Next() {
		var (
			ind            domain.Individual
			mother, father sql.NullString
			trait          sql.NullInt64
		)
		if err := rows.Scan(&ind.Name, &mother, &father, &trait); err != nil {
			return nil, fmt.Errorf("failed to scan individual: %w", err)
		}
		ind.Mother = nullToString(mother)
		ind.Father = nullToString(father)
		ind.Trait = nullToTrait(trait)
		p.Individuals = append(p.Individuals, ind)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating individuals: %w", err)
	}

	return &p, nil
}

// ListPedigrees returns a summary of every pedigree, most recently updated first
func (s *Store) ListPedigrees(ctx context.Context) ([]domain.PedigreeSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.name, p.updated_at,
			(SELECT COUNT(*) FROM individuals i WHERE i.pedigree_id = p.id),
			(SELECT COUNT(*) FROM runs r WHERE r.pedigree_id = p.id)
		FROM pedigrees p
		ORDER BY p.updated_at DESC, p.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query pedigrees: %w", err)
	}
	defer rows.Close()

	summaries := []domain.PedigreeSummary{}
	for rows.Next() {
		var (
			sum       domain.PedigreeSummary
			updatedAt int64
			runs      int
		)
		if err := rows.Scan(&sum.ID, &sum.Name, &updatedAt, &sum.Individuals, &runs); err != nil {
			return nil, fmt.Errorf("failed to scan pedigree: %w", err)
		}
		sum.UpdatedAt = unixToTime(updatedAt)
		sum.HasRun = runs > 0
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pedigrees: %w", err)
	}
	return summaries, nil
}

// DeletePedigree removes a pedigree, its individuals and its run
func (s *Store) DeletePedigree(ctx context.Context, id string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.deleteRun(ctx, tx, id); err != nil {
			return err
		}
		if _, err := s.exec(ctx, tx, `DELETE FROM individuals WHERE pedigree_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete individuals: %w", err)
		}

		res, err := s.exec(ctx, tx, `DELETE FROM pedigrees WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete pedigree: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("pedigree %s: %w", id, repository.ErrNotFound)
		}
		return nil
	})
}

func (s *Store) deleteRun(ctx context.Context, tx *sql.Tx, pedigreeID string) error {
	if _, err := s.exec(ctx, tx, `DELETE FROM posteriors WHERE pedigree_id = ?`, pedigreeID); err != nil {
		return fmt.Errorf("failed to delete posteriors: %w", err)
	}
	if _, err := s.exec(ctx, tx, `DELETE FROM runs WHERE pedigree_id = ?`, pedigreeID); err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	return nil
}

// SaveRun stores a run as the pedigree's latest, replacing any earlier one.
// A run with a non-zero Version is rejected with repository.ErrStaleRun when
// the pedigree has been saved again since that version.
func (s *Store) SaveRun(ctx context.Context, run *domain.InferenceRun) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		version, err := s.version(ctx, tx, run.PedigreeID)
		if err != nil {
			return err
		}
		if run.Version != 0 && run.Version != version {
			return fmt.Errorf("pedigree %s is at version %d, run is for %d: %w",
				run.PedigreeID, version, run.Version, repository.ErrStaleRun)
		}

		if err := s.deleteRun(ctx, tx, run.PedigreeID); err != nil {
			return err
		}
		_, err = s.exec(ctx, tx, `
			INSERT INTO runs (pedigree_id, pedigree_version, worlds, elapsed_ns, completed_at)
			VALUES (?, ?, ?, ?, ?)
		`, run.PedigreeID, version, clampWorlds(run.Worlds), int64(run.Elapsed), timeToUnix(run.CompletedAt))
		if err != nil {
			return fmt.Errorf("failed to insert run: %w", err)
		}

		for pos, p := range run.Posteriors {
			_, err := s.exec(ctx, tx, `
				INSERT INTO posteriors
					(pedigree_id, position, name, gene_0, gene_1, gene_2, trait_true, trait_false)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			`, run.PedigreeID, pos, p.Name,
				p.Gene.Of(domain.NoCopies), p.Gene.Of(domain.OneCopy), p.Gene.Of(domain.TwoCopies),
				p.Trait.True(), p.Trait.False())
			if err != nil {
				return fmt.Errorf("failed to insert posterior for %s: %w", p.Name, err)
			}
		}
		return nil
	})
}

// GetRun loads the latest run for a pedigree
func (s *Store) GetRun(ctx context.Context, pedigreeID string) (*domain.InferenceRun, error) {
	var (
		run                  domain.InferenceRun
		worlds, elapsed, end int64
	)
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT pedigree_id, pedigree_version, worlds, elapsed_ns, completed_at FROM runs WHERE pedigree_id = ?
	`), pedigreeID).Scan(&run.PedigreeID, &run.Version, &worlds, &elapsed, &end)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run for pedigree %s: %w", pedigreeID, repository.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	run.Worlds = uint64(worlds)
	run.Elapsed = durationFromNanos(elapsed)
	run.CompletedAt = unixToTime(end)

	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT name, gene_0, gene_1, gene_2, trait_true, trait_false FROM posteriors
		WHERE pedigree_id = ? ORDER BY position
	`), pedigreeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query posteriors: %w", err)
	}
	defer rows.Close()

	run.Posteriors = []domain.NamedPosterior{}
	for rows.Next() {
		var p domain.NamedPosterior
		err := rows.Scan(&p.Name,
			&p.Gene[domain.NoCopies], &p.Gene[domain.OneCopy], &p.Gene[domain.TwoCopies],
			&p.Trait[1], &p.Trait[0])
		if err != nil {
			return nil, fmt.Errorf("failed to scan posterior: %w", err)
		}
		run.Posteriors = append(run.Posteriors, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating posteriors: %w", err)
	}
	return &run, nil
}

func clampWorlds(n uint64) int64 {
	if n > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(n)
}
