package report

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id      TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	created_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS batches (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id             TEXT NOT NULL,
	split              TEXT NOT NULL,
	epoch              INTEGER NOT NULL,
	batch              INTEGER NOT NULL,
	samples            INTEGER NOT NULL,
	miou               REAL,
	iou_background     REAL,
	iou_flood_sum      REAL,
	iou_flood_count    INTEGER,
	accuracy           REAL,
	dice               REAL,
	precision          REAL,
	recall             REAL,
	f1                 REAL,
	balanced_accuracy  REAL,
	flood_percentage   REAL,
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);

CREATE TABLE IF NOT EXISTS epochs (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id             TEXT NOT NULL,
	split              TEXT NOT NULL,
	epoch              INTEGER NOT NULL,
	batches            INTEGER NOT NULL,
	samples            INTEGER NOT NULL,
	miou               REAL,
	iou_background     REAL,
	iou_flood          REAL,
	iou_flood_count    INTEGER,
	accuracy           REAL,
	dice               REAL,
	precision          REAL,
	recall             REAL,
	f1                 REAL,
	balanced_accuracy  REAL,
	flood_percentage   REAL,
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);
`

// Store persists evaluation runs in SQLite. Each Store writes under a
// fresh run id.
type Store struct {
	db    *sql.DB
	runID string
}

// OpenStore opens (or creates) the database at dbPath and registers a new
// run called name.
func OpenStore(dbPath, name string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "open db")
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "pragma fk")
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "migrate")
	}

	s := &Store{db: db, runID: uuid.NewString()}
	_, err = db.Exec(`INSERT INTO runs (run_id, name, created_at) VALUES (?, ?, ?)`,
		s.runID, name, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "insert run")
	}
	return s, nil
}

// RunID returns the id every record of this Store is filed under.
func (s *Store) RunID() string { return s.runID }

func (s *Store) RecordBatch(r BatchRecord) error {
	_, err := s.db.Exec(`INSERT INTO batches (run_id, split, epoch, batch, samples, miou, iou_background,
		iou_flood_sum, iou_flood_count, accuracy, dice, precision, recall, f1, balanced_accuracy, flood_percentage)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.runID, r.Split, r.Epoch, r.Batch, r.Samples, r.MeanIoU, r.IoUBackground,
		r.IoUFloodSum, r.IoUFloodCount, r.PixelAccuracy, r.Dice, r.Precision, r.Recall, r.F1,
		r.BalancedAccuracy, r.FloodPercentage)
	return errors.Wrap(err, "insert batch")
}

func (s *Store) RecordEpoch(r EpochRecord) error {
	_, err := s.db.Exec(`INSERT INTO epochs (run_id, split, epoch, batches, samples, miou, iou_background,
		iou_flood, iou_flood_count, accuracy, dice, precision, recall, f1, balanced_accuracy, flood_percentage)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.runID, r.Split, r.Epoch, r.Batches, r.Samples, r.MeanIoU, r.IoUBackground,
		r.IoUFlood, r.IoUFloodCount, r.PixelAccuracy, r.Dice, r.Precision, r.Recall, r.F1,
		r.BalancedAccuracy, r.FloodPercentage)
	return errors.Wrap(err, "insert epoch")
}

// Epochs returns the epoch records of this run in insertion order.
func (s *Store) Epochs() ([]EpochRecord, error) {
	rows, err := s.db.Query(`SELECT split, epoch, batches, samples, miou, iou_background, iou_flood,
		iou_flood_count, accuracy, dice, precision, recall, f1, balanced_accuracy, flood_percentage
		FROM epochs WHERE run_id = ? ORDER BY id`, s.runID)
	if err != nil {
		return nil, errors.Wrap(err, "query epochs")
	}
	defer rows.Close()

	var out []EpochRecord
	for rows.Next() {
		var r EpochRecord
		if err := rows.Scan(&r.Split, &r.Epoch, &r.Batches, &r.Samples, &r.MeanIoU, &r.IoUBackground,
			&r.IoUFlood, &r.IoUFloodCount, &r.PixelAccuracy, &r.Dice, &r.Precision, &r.Recall, &r.F1,
			&r.BalancedAccuracy, &r.FloodPercentage); err != nil {
			return nil, errors.Wrap(err, "scan epoch")
		}
		out = append(out, r)
	}
	return out, errors.Wrap(rows.Err(), "iterate epochs")
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
