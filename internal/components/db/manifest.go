package db

import (
	"context"
	"database/sql"
	"kingo-scraper/internal/components/assert"
	"kingo-scraper/internal/components/chrono"

	"github.com/google/uuid"
)

// Manifest records capture runs into the database.
type Manifest struct {
	database *sql.DB
	qry      *Queries
	time     chrono.API
}

func NewManifest(database *sql.DB, time chrono.API) Manifest {
	assert.NotNil(database)
	assert.NotNil(time)

	return Manifest{
		database: database,
		qry:      New(database),
		time:     time,
	}
}

func (m Manifest) Queries() *Queries {
	return m.qry
}

// RecordTerms upserts the listed terms, either all of them or none.
func (m Manifest) RecordTerms(ctx context.Context, terms map[string]string) error {
	now := m.time.Now().Unix()
	return InTx(ctx, m.database, func(tx *Queries) error {
		for code, label := range terms {
			err := tx.UpsertTerm(ctx, UpsertTermParams{
				Code:   code,
				Label:  label,
				SeenAt: now,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (m Manifest) BeginRun(ctx context.Context, termCode string, total int) (int64, error) {
	return m.qry.CreateRun(ctx, CreateRunParams{
		Token:     uuid.NewString(),
		TermCode:  termCode,
		Total:     int64(total),
		Status:    RUN_STATUS_RUNNING,
		StartedAt: m.time.Now().Unix(),
	})
}

func (m Manifest) RecordLoginFailure(ctx context.Context, termCode string) error {
	now := m.time.Now().Unix()
	id, err := m.qry.CreateRun(ctx, CreateRunParams{
		Token:     uuid.NewString(),
		TermCode:  termCode,
		Status:    RUN_STATUS_LOGIN_FAILED,
		StartedAt: now,
	})
	if err != nil {
		return err
	}
	return m.qry.FinishRun(ctx, FinishRunParams{
		ID:         id,
		Status:     RUN_STATUS_LOGIN_FAILED,
		FinishedAt: now,
	})
}

func (m Manifest) RecordSubject(ctx context.Context, runID int64, code, name, fileName string, size int) error {
	return m.qry.RecordSubject(ctx, RecordSubjectParams{
		RunID:       runID,
		SubjectCode: code,
		SubjectName: name,
		FileName:    fileName,
		Size:        int64(size),
		CapturedAt:  m.time.Now().Unix(),
	})
}

func (m Manifest) FinishRun(ctx context.Context, runID int64, captured int, succeeded bool) error {
	status := RUN_STATUS_OK
	if !succeeded {
		status = RUN_STATUS_FAILED
	}
	return m.qry.FinishRun(ctx, FinishRunParams{
		ID:         runID,
		Captured:   int64(captured),
		Status:     status,
		FinishedAt: m.time.Now().Unix(),
	})
}
