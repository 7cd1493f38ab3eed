package storage

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/terra-clan/interview-engine/internal/models"
	"github.com/terra-clan/interview-engine/migrations"
)

func sampleRecord() *models.InterviewRecord {
	return &models.InterviewRecord{
		User:               models.User{ID: "user-1", Email: "ada@example.com", FirstName: "Ada"},
		Skill:              "React,Node.js",
		PrimarySkill:       "React",
		Skills:             []string{"React", "Node.js"},
		Difficulty:         "Medium",
		TotalScore:         14,
		AvgScore:           7,
		QuestionsAttempted: 2,
		TotalQuestions:     2,
		IsCompleted:        true,
		Improvements:       []string{"Depth", "Examples"},
		ConfidenceTips:     []string{"Slow down"},
		Responses: []models.ResponseRecord{
			{QuestionNumber: 1, QuestionText: "Q1", UserAnswer: "A1", AIScore: 8, AIFeedback: "Good", Confidence: models.ConfidenceHigh, ResponseTime: 30},
			{QuestionText: "Q2", UserAnswer: "A2", AIScore: 6},
		},
	}
}

func TestInterviewArgs(t *testing.T) {
	rec := sampleRecord()
	args := interviewArgs(rec)

	if len(args) != 16 {
		t.Fatalf("expected 16 args, got %d", len(args))
	}
	if args[8] != "medium" {
		t.Errorf("expected lower-cased difficulty, got %v", args[8])
	}
	if got := args[4].(sql.NullString); got.Valid {
		t.Errorf("expected NULL username, got %q", got.String)
	}
	if got := args[14].(sql.NullString); got.Valid {
		t.Errorf("expected NULL quit reason for a completed interview, got %q", got.String)
	}

	rec.TotalQuestions = 0
	if got := interviewArgs(rec)[12]; got != 10 {
		t.Errorf("expected default total questions 10, got %v", got)
	}
}

func TestResponseArgs(t *testing.T) {
	rows := responseArgs(42, sampleRecord())

	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0][0] != int64(42) {
		t.Errorf("expected interview id 42, got %v", rows[0][0])
	}
	if rows[1][2] != 2 {
		t.Errorf("expected missing question number to default to position, got %v", rows[1][2])
	}
	if rows[1][7] != "medium" {
		t.Errorf("expected default confidence medium, got %v", rows[1][7])
	}
	if got := rows[0][9].(sql.NullString); got.String != "Depth, Examples" {
		t.Errorf("unexpected improvements column: %q", got.String)
	}
	if rows[0][13] != "React,Node.js" {
		t.Errorf("unexpected skills column: %v", rows[0][13])
	}
}

func TestSaveInterview_RequiresUser(t *testing.T) {
	repo := &PostgresRepository{}

	rec := sampleRecord()
	rec.User.ID = ""
	if _, err := repo.SaveInterview(context.Background(), rec); !errors.Is(err, ErrMissingUser) {
		t.Fatalf("expected ErrMissingUser, got %v", err)
	}
}

func TestMigrationNames(t *testing.T) {
	fsys := fstest.MapFS{
		"002_b.sql": {Data: []byte("SELECT 2;")},
		"001_a.sql": {Data: []byte("SELECT 1;")},
		"README.md": {Data: []byte("docs")},
		"old/x.sql": {Data: []byte("SELECT 0;")},
	}

	names, err := migrationNames(fsys)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(names) != 2 || names[0] != "001_a.sql" || names[1] != "002_b.sql" {
		t.Fatalf("unexpected migration order: %v", names)
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	names, err := migrationNames(migrations.FS)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(names) == 0 || names[0] != "001_init.sql" {
		t.Fatalf("expected embedded migrations starting with 001_init.sql, got %v", names)
	}

	if MigrationSource("") != migrations.FS {
		t.Error("expected embedded migrations when no directory is configured")
	}
	if MigrationSource("/does/not/exist") != migrations.FS {
		t.Error("expected embedded migrations when the directory is missing")
	}
}
