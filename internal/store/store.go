package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmcosta/inspeq/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS checklists (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		is_template INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS question_groups (
		id TEXT PRIMARY KEY,
		checklist_id TEXT NOT NULL,
		name TEXT NOT NULL,
		position INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (checklist_id) REFERENCES checklists(id)
	);

	CREATE TABLE IF NOT EXISTS questions (
		id TEXT PRIMARY KEY,
		checklist_id TEXT NOT NULL,
		group_id TEXT NOT NULL DEFAULT '',
		text TEXT NOT NULL,
		response_type TEXT NOT NULL,
		is_required INTEGER NOT NULL DEFAULT 0,
		options TEXT NOT NULL DEFAULT '[]',
		weight REAL NOT NULL DEFAULT 1,
		parent_question_id TEXT NOT NULL DEFAULT '',
		condition_value TEXT NOT NULL DEFAULT '',
		position INTEGER NOT NULL DEFAULT 0,
		sub_checklist_id TEXT NOT NULL DEFAULT '',
		FOREIGN KEY (checklist_id) REFERENCES checklists(id)
	);

	CREATE TABLE IF NOT EXISTS inspections (
		id TEXT PRIMARY KEY,
		checklist_id TEXT NOT NULL,
		inspector TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'in_progress',
		started_at DATETIME NOT NULL,
		completed_at DATETIME,
		FOREIGN KEY (checklist_id) REFERENCES checklists(id)
	);

	CREATE TABLE IF NOT EXISTS responses (
		inspection_id TEXT NOT NULL,
		question_id TEXT NOT NULL,
		value TEXT NOT NULL DEFAULT '',
		comment TEXT NOT NULL DEFAULT '',
		media_urls TEXT NOT NULL DEFAULT '[]',
		action_plan TEXT,
		sub_checklist_responses TEXT NOT NULL DEFAULT '{}',
		PRIMARY KEY (inspection_id, question_id),
		FOREIGN KEY (inspection_id) REFERENCES inspections(id)
	);

	CREATE TABLE IF NOT EXISTS imported_files (
		path TEXT PRIMARY KEY,
		sha256 TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateChecklist stores a checklist and returns its generated id.
func (s *Store) CreateChecklist(cl model.Checklist) (string, error) {
	if cl.ID == "" {
		cl.ID = uuid.NewString()
	}
	_, err := s.db.Exec(
		`INSERT INTO checklists (id, title, description, is_template, created_at) VALUES (?, ?, ?, ?, ?)`,
		cl.ID, cl.Title, cl.Description, cl.IsTemplate, time.Now(),
	)
	if err != nil {
		return "", err
	}
	return cl.ID, nil
}

// GetChecklist returns a checklist by id.
func (s *Store) GetChecklist(id string) (model.Checklist, error) {
	var cl model.Checklist
	err := s.db.QueryRow(
		`SELECT id, title, description, is_template, created_at FROM checklists WHERE id = ?`, id,
	).Scan(&cl.ID, &cl.Title, &cl.Description, &cl.IsTemplate, &cl.CreatedAt)
	return cl, err
}

// ListChecklists returns all checklists, newest first.
func (s *Store) ListChecklists() ([]model.Checklist, error) {
	rows, err := s.db.Query(`SELECT id, title, description, is_template, created_at FROM checklists ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var checklists []model.Checklist
	for rows.Next() {
		var cl model.Checklist
		if err := rows.Scan(&cl.ID, &cl.Title, &cl.Description, &cl.IsTemplate, &cl.CreatedAt); err != nil {
			return nil, err
		}
		checklists = append(checklists, cl)
	}
	return checklists, rows.Err()
}

// CreateGroup stores a question group and returns its generated id.
func (s *Store) CreateGroup(g model.QuestionGroup) (string, error) {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	_, err := s.db.Exec(
		`INSERT INTO question_groups (id, checklist_id, name, position) VALUES (?, ?, ?, ?)`,
		g.ID, g.ChecklistID, g.Name, g.Position,
	)
	if err != nil {
		return "", err
	}
	return g.ID, nil
}

// ListGroups returns a checklist's groups ordered by position.
func (s *Store) ListGroups(checklistID string) ([]model.QuestionGroup, error) {
	rows, err := s.db.Query(
		`SELECT id, checklist_id, name, position FROM question_groups WHERE checklist_id = ? ORDER BY position, rowid`, checklistID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var groups []model.QuestionGroup
	for rows.Next() {
		var g model.QuestionGroup
		if err := rows.Scan(&g.ID, &g.ChecklistID, &g.Name, &g.Position); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// InsertQuestion stores a flat question record and returns its generated id.
func (s *Store) InsertQuestion(q model.Question) (string, error) {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	options, err := json.Marshal(stringsOrEmpty(q.Options))
	if err != nil {
		return "", fmt.Errorf("marshal options: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO questions (id, checklist_id, group_id, text, response_type, is_required,
		                        options, weight, parent_question_id, condition_value, position, sub_checklist_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		q.ID, q.ChecklistID, q.GroupID, q.Text, q.ResponseType, q.IsRequired,
		string(options), q.Weight, q.ParentQuestionID, q.ConditionValue, q.Order, q.SubChecklistID,
	)
	if err != nil {
		return "", err
	}
	return q.ID, nil
}

const questionColumns = `id, checklist_id, group_id, text, response_type, is_required,
	options, weight, parent_question_id, condition_value, position, sub_checklist_id`

func scanQuestion(row interface{ Scan(...any) error }) (model.Question, error) {
	var q model.Question
	var options string
	err := row.Scan(&q.ID, &q.ChecklistID, &q.GroupID, &q.Text, &q.ResponseType, &q.IsRequired,
		&options, &q.Weight, &q.ParentQuestionID, &q.ConditionValue, &q.Order, &q.SubChecklistID)
	if err != nil {
		return q, err
	}
	if err := json.Unmarshal([]byte(options), &q.Options); err != nil {
		return q, fmt.Errorf("unmarshal options for %s: %w", q.ID, err)
	}
	return q, nil
}

// GetQuestion returns a question by id.
func (s *Store) GetQuestion(id string) (model.Question, error) {
	return scanQuestion(s.db.QueryRow(
		`SELECT `+questionColumns+` FROM questions WHERE id = ?`, id,
	))
}

// ListQuestions returns a checklist's flat question set. The engine assumes
// records are already deduplicated by id, which the primary key guarantees.
func (s *Store) ListQuestions(checklistID string) ([]model.Question, error) {
	rows, err := s.db.Query(
		`SELECT `+questionColumns+` FROM questions WHERE checklist_id = ? ORDER BY position, rowid`, checklistID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var questions []model.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// ReparentQuestion rewrites only the flat parent/condition fields. Callers
// are expected to have validated the move with hierarchy.IsValidParent; tree
// shape is never stored, so nothing else needs updating.
func (s *Store) ReparentQuestion(id, parentQuestionID, conditionValue string) error {
	res, err := s.db.Exec(
		`UPDATE questions SET parent_question_id = ?, condition_value = ? WHERE id = ?`,
		parentQuestionID, conditionValue, id,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// FetchChecklist resolves a sub-checklist reference for the hierarchy
// engine's linker. Response types are returned as stored; normalization is
// the linker's job.
func (s *Store) FetchChecklist(ctx context.Context, id string) (*model.SubChecklist, error) {
	var sub model.SubChecklist
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, description FROM checklists WHERE id = ?`, id,
	).Scan(&sub.ID, &sub.Title, &sub.Description)
	if err != nil {
		return nil, err
	}
	sub.Questions, err = s.ListQuestions(id)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// GetImportedFileHash returns the recorded hash for an imported file path.
// Returns empty string and nil error if the path was never imported.
func (s *Store) GetImportedFileHash(path string) (string, error) {
	var hash string
	err := s.db.QueryRow(`SELECT sha256 FROM imported_files WHERE path = ?`, path).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return hash, err
}

// SetImportedFileHash upserts the hash for an imported file path.
func (s *Store) SetImportedFileHash(path, hash string) error {
	_, err := s.db.Exec(
		`INSERT INTO imported_files (path, sha256) VALUES (?, ?)
		 ON CONFLICT(path) DO UPDATE SET sha256 = ?`,
		path, hash, hash,
	)
	return err
}
