package watcher

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/masaki-techport/oin-wood-inspection-second-sub001/internal/model"
)

// Store is the narrow read-only slice of the database the watcher needs:
// the latest inspection id per product_no, and the full row/image/
// presentation set for a given inspection id. Grounded on
// original_source/inspections_watcher_task.py's window-function query
// (ROW_NUMBER() OVER (PARTITION BY product_no ORDER BY inspection_dt DESC))
// translated to modernc.org/sqlite's database/sql driver.
type Store struct {
	db *sql.DB
}

// NewStore opens path (a SQLite database file) through the pure-Go
// modernc.org/sqlite driver.
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("watcher: open db: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// LatestInspectionIDs returns, for each product_no in productNos that has
// at least one inspection row, the inspection_id of its most recent row.
func (s *Store) LatestInspectionIDs(ctx context.Context, productNos []string) (map[string]int64, error) {
	if len(productNos) == 0 {
		return map[string]int64{}, nil
	}

	placeholders := make([]byte, 0, len(productNos)*2)
	args := make([]any, len(productNos))
	for i, p := range productNos {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
		args[i] = p
	}

	query := fmt.Sprintf(`
		SELECT product_no, inspection_id FROM (
			SELECT product_no, inspection_id,
			       ROW_NUMBER() OVER (PARTITION BY product_no ORDER BY inspection_dt DESC) AS rn
			FROM t_inspection
			WHERE product_no IN (%s)
		) WHERE rn = 1`, string(placeholders))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("watcher: latest inspection query: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int64, len(productNos))
	for rows.Next() {
		var productNo string
		var inspectionID int64
		if err := rows.Scan(&productNo, &inspectionID); err != nil {
			return nil, fmt.Errorf("watcher: scan latest inspection row: %w", err)
		}
		out[productNo] = inspectionID
	}
	return out, rows.Err()
}

// ListInspections returns up to limit inspection rows, most recent first,
// optionally bounded to [dateFrom, dateTo] (zero values mean unbounded).
// Backs GET /api/stream/inspections' progressive JSON history feed
// (spec.md §6).
func (s *Store) ListInspections(ctx context.Context, limit int, dateFrom, dateTo time.Time) ([]model.InspectionRow, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT inspection_id, product_no, serial, inspection_dt FROM t_inspection WHERE 1=1`
	var args []any
	if !dateFrom.IsZero() {
		query += " AND inspection_dt >= ?"
		args = append(args, dateFrom)
	}
	if !dateTo.IsZero() {
		query += " AND inspection_dt <= ?"
		args = append(args, dateTo)
	}
	query += " ORDER BY inspection_dt DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("watcher: list inspections: %w", err)
	}
	defer rows.Close()

	var out []model.InspectionRow
	for rows.Next() {
		var row model.InspectionRow
		if err := rows.Scan(&row.InspectionID, &row.ProductNo, &row.Serial, &row.InspectionDT); err != nil {
			return nil, fmt.Errorf("watcher: scan inspection row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// InspectionUpdate loads the full payload (row + images + presentations)
// for one inspection id (spec.md §5's supplemented broadcast payload).
func (s *Store) InspectionUpdate(ctx context.Context, inspectionID int64) (model.InspectionUpdate, error) {
	var update model.InspectionUpdate

	row := s.db.QueryRowContext(ctx,
		`SELECT inspection_id, product_no, serial, inspection_dt FROM t_inspection WHERE inspection_id = ?`,
		inspectionID)
	if err := row.Scan(&update.Inspection.InspectionID, &update.Inspection.ProductNo, &update.Inspection.Serial, &update.Inspection.InspectionDT); err != nil {
		return update, fmt.Errorf("watcher: load inspection %d: %w", inspectionID, err)
	}

	imgRows, err := s.db.QueryContext(ctx,
		`SELECT id, inspection_id, image_no, image_path, image_type, capture_timestamp, image_metadata
		 FROM t_inspection_images WHERE inspection_id = ? ORDER BY image_no`, inspectionID)
	if err != nil {
		return update, fmt.Errorf("watcher: load images for %d: %w", inspectionID, err)
	}
	defer imgRows.Close()
	for imgRows.Next() {
		var img model.InspectionImage
		if err := imgRows.Scan(&img.ID, &img.InspectionID, &img.ImageNo, &img.ImagePath, &img.ImageType, &img.CaptureTimestamp, &img.ImageMetadata); err != nil {
			return update, fmt.Errorf("watcher: scan image row: %w", err)
		}
		update.Images = append(update.Images, img)
	}
	if err := imgRows.Err(); err != nil {
		return update, err
	}

	presRows, err := s.db.QueryContext(ctx,
		`SELECT id, inspection_id, group_name, image_path FROM t_inspection_presentation WHERE inspection_id = ?`, inspectionID)
	if err != nil {
		return update, fmt.Errorf("watcher: load presentations for %d: %w", inspectionID, err)
	}
	defer presRows.Close()
	for presRows.Next() {
		var p model.InspectionPresentation
		if err := presRows.Scan(&p.ID, &p.InspectionID, &p.Group, &p.ImagePath); err != nil {
			return update, fmt.Errorf("watcher: scan presentation row: %w", err)
		}
		update.Presentations = append(update.Presentations, p)
	}
	return update, presRows.Err()
}
