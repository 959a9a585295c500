package db

import (
	"context"
	"database/sql"
)

const upsertTerm = `insert into term (code, label, seen_at) values (?, ?, ?)
on conflict (code) do update set label = excluded.label, seen_at = excluded.seen_at`

type UpsertTermParams struct {
	Code   string
	Label  string
	SeenAt int64
}

func (q *Queries) UpsertTerm(ctx context.Context, arg UpsertTermParams) error {
	_, err := q.db.ExecContext(ctx, upsertTerm, arg.Code, arg.Label, arg.SeenAt)
	return err
}

const getTerms = `select code, label, seen_at from term order by code`

type Term struct {
	Code   string
	Label  string
	SeenAt int64
}

func (q *Queries) GetTerms(ctx context.Context) ([]Term, error) {
	rows, err := q.db.QueryContext(ctx, getTerms)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Term
	for rows.Next() {
		var i Term
		if err := rows.Scan(&i.Code, &i.Label, &i.SeenAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createRun = `insert into capture_run (token, term_code, total, status, started_at) values (?, ?, ?, ?, ?)
returning id`

type CreateRunParams struct {
	Token     string
	TermCode  string
	Total     int64
	Status    RunStatus
	StartedAt int64
}

func (q *Queries) CreateRun(ctx context.Context, arg CreateRunParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, createRun, arg.Token, arg.TermCode, arg.Total, arg.Status, arg.StartedAt)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const finishRun = `update capture_run set captured = ?, status = ?, finished_at = ? where id = ?`

type FinishRunParams struct {
	ID         int64
	Captured   int64
	Status     RunStatus
	FinishedAt int64
}

func (q *Queries) FinishRun(ctx context.Context, arg FinishRunParams) error {
	_, err := q.db.ExecContext(ctx, finishRun, arg.Captured, arg.Status, arg.FinishedAt, arg.ID)
	return err
}

const recordSubject = `insert or replace into captured_subject
(run_id, subject_code, subject_name, file_name, size, captured_at) values (?, ?, ?, ?, ?, ?)`

type RecordSubjectParams struct {
	RunID       int64
	SubjectCode string
	SubjectName string
	FileName    string
	Size        int64
	CapturedAt  int64
}

func (q *Queries) RecordSubject(ctx context.Context, arg RecordSubjectParams) error {
	_, err := q.db.ExecContext(
		ctx, recordSubject,
		arg.RunID, arg.SubjectCode, arg.SubjectName,
		arg.FileName, arg.Size, arg.CapturedAt,
	)
	return err
}

const getRuns = `select id, token, term_code, total, captured, status, started_at, finished_at
from capture_run order by id desc limit ?`

type CaptureRun struct {
	ID         int64
	Token      string
	TermCode   string
	Total      int64
	Captured   int64
	Status     RunStatus
	StartedAt  int64
	FinishedAt sql.NullInt64
}

func (q *Queries) GetRuns(ctx context.Context, limit int64) ([]CaptureRun, error) {
	rows, err := q.db.QueryContext(ctx, getRuns, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []CaptureRun
	for rows.Next() {
		var i CaptureRun
		err := rows.Scan(
			&i.ID, &i.Token, &i.TermCode, &i.Total, &i.Captured,
			&i.Status, &i.StartedAt, &i.FinishedAt,
		)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getRunSubjects = `select run_id, subject_code, subject_name, file_name, size, captured_at
from captured_subject where run_id = ? order by subject_code`

type CapturedSubject struct {
	RunID       int64
	SubjectCode string
	SubjectName string
	FileName    string
	Size        int64
	CapturedAt  int64
}

func (q *Queries) GetRunSubjects(ctx context.Context, runID int64) ([]CapturedSubject, error) {
	rows, err := q.db.QueryContext(ctx, getRunSubjects, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []CapturedSubject
	for rows.Next() {
		var i CapturedSubject
		err := rows.Scan(
			&i.RunID, &i.SubjectCode, &i.SubjectName,
			&i.FileName, &i.Size, &i.CapturedAt,
		)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
