// Package denormalizer materializes search documents from the normalized
// relations: one row per qualifying notice version, insert-once.
package denormalizer

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/leelesemann-sys/vergabe-radar/internal/db"
)

// Only competition notices (cn-*) become search documents.
// The NOT EXISTS clause makes the insert idempotent: repeated and concurrent
// calls converge without duplicating documents. Lateral joins prefer the
// notice-level row (no lot identifier) over lot-level rows.
const insertDocumentsSQL = `
INSERT INTO search_documents (
	id, notice_identifier, notice_version, title, description,
	buyer_name, buyer_city, buyer_post_code, contract_nature,
	publication_date, deadline, estimated_value, document_url,
	cpv_code_main, all_cpv_codes, procedure_type,
	embedding_text, embedding_hash, updated_at
)
SELECT
	n.notice_identifier || '-' || n.notice_version AS id,
	n.notice_identifier,
	n.notice_version,
	p.title,
	p.description,
	o.organisation_name,
	o.organisation_city,
	o.organisation_post_code,
	p.main_nature,
	n.publication_date,
	st.public_opening_date,
	p.estimated_value,
	'https://oeffentlichevergabe.de/ui/de/tender/' || n.notice_identifier,
	c.main_classification_code,
	c.additional_classification_codes,
	pr.procedure_type,
	NULL,
	NULL,
	now()
FROM notices n
LEFT JOIN LATERAL (
	SELECT title, description, main_nature, estimated_value
	FROM purposes
	WHERE notice_identifier = n.notice_identifier
	  AND notice_version = n.notice_version
	ORDER BY CASE WHEN lot_identifier IS NULL THEN 0 ELSE 1 END
	LIMIT 1
) p ON true
LEFT JOIN LATERAL (
	SELECT organisation_name, organisation_city, organisation_post_code
	FROM organisations
	WHERE notice_identifier = n.notice_identifier
	  AND notice_version = n.notice_version
	  AND organisation_role = 'buyer'
	LIMIT 1
) o ON true
LEFT JOIN LATERAL (
	SELECT main_classification_code, additional_classification_codes
	FROM classifications
	WHERE notice_identifier = n.notice_identifier
	  AND notice_version = n.notice_version
	ORDER BY CASE WHEN lot_identifier IS NULL THEN 0 ELSE 1 END
	LIMIT 1
) c ON true
LEFT JOIN LATERAL (
	SELECT public_opening_date
	FROM submission_terms
	WHERE notice_identifier = n.notice_identifier
	  AND notice_version = n.notice_version
	LIMIT 1
) st ON true
LEFT JOIN procedures pr
	ON pr.notice_identifier = n.notice_identifier
	AND pr.notice_version = n.notice_version
WHERE n.notice_type LIKE 'cn-%'
  AND NOT EXISTS (
	SELECT 1 FROM search_documents sd
	WHERE sd.id = n.notice_identifier || '-' || n.notice_version
  )`

// Denormalizer builds search documents and their embedding text.
type Denormalizer struct {
	pool         db.Pool
	maxDescRunes int
}

// New creates a Denormalizer. maxDescRunes bounds the description portion of
// the embedding text.
func New(pool db.Pool, maxDescRunes int) *Denormalizer {
	return &Denormalizer{pool: pool, maxDescRunes: maxDescRunes}
}

// Refresh materializes search documents for all qualifying notices not yet
// present, then derives embedding text and hash for any document still
// missing them. Returns the count of newly materialized documents.
func (d *Denormalizer) Refresh(ctx context.Context) (int, error) {
	log := zap.L().With(zap.String("component", "denormalizer"))

	tag, err := d.pool.Exec(ctx, insertDocumentsSQL)
	if err != nil {
		return 0, eris.Wrap(err, "denormalizer: insert search documents")
	}
	newDocs := int(tag.RowsAffected())
	log.Info("search documents materialized", zap.Int("new", newDocs))

	if err := d.updateEmbeddingTexts(ctx); err != nil {
		return newDocs, err
	}

	return newDocs, nil
}

// updateEmbeddingTexts fills embedding_text and embedding_hash where missing.
// Built in Go rather than SQL so the truncation and label rules live next to
// their tests.
func (d *Denormalizer) updateEmbeddingTexts(ctx context.Context) error {
	log := zap.L().With(zap.String("component", "denormalizer"))

	rows, err := d.pool.Query(ctx, `
		SELECT id, title, description, buyer_name, buyer_city, cpv_code_main, contract_nature
		FROM search_documents
		WHERE embedding_text IS NULL`)
	if err != nil {
		return eris.Wrap(err, "denormalizer: query documents without embedding text")
	}
	defer rows.Close()

	type docFields struct {
		id     string
		title  *string
		desc   *string
		buyer  *string
		city   *string
		cpv    *string
		nature *string
	}
	var docs []docFields
	for rows.Next() {
		var f docFields
		if err := rows.Scan(&f.id, &f.title, &f.desc, &f.buyer, &f.city, &f.cpv, &f.nature); err != nil {
			return eris.Wrap(err, "denormalizer: scan document fields")
		}
		docs = append(docs, f)
	}
	if err := rows.Err(); err != nil {
		return eris.Wrap(err, "denormalizer: iterate documents")
	}

	for _, f := range docs {
		text := BuildEmbeddingText(
			strOr(f.title), strOr(f.desc), strOr(f.buyer),
			strOr(f.city), strOr(f.cpv), strOr(f.nature),
			d.maxDescRunes,
		)
		hash := HashEmbeddingText(text)
		if _, err := d.pool.Exec(ctx,
			`UPDATE search_documents SET embedding_text = $1, embedding_hash = $2 WHERE id = $3`,
			text, hash, f.id,
		); err != nil {
			return eris.Wrapf(err, "denormalizer: update embedding text for %s", f.id)
		}
	}

	if len(docs) > 0 {
		log.Info("embedding texts built", zap.Int("documents", len(docs)))
	}
	return nil
}

func strOr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
