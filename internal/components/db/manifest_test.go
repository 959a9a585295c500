package db

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fixedTime struct {
	now time.Time
}

func (f fixedTime) Now() time.Time {
	return f.now
}

func (f fixedTime) Sleep(ctx context.Context, d time.Duration) error {
	return ctx.Err()
}

func openTestManifest(t *testing.T) Manifest {
	database, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		database.Close()
	})
	return NewManifest(database, fixedTime{now: time.Unix(1700000000, 0)})
}

func TestManifestRun(t *testing.T) {
	ctx := context.Background()
	manifest := openTestManifest(t)

	id, err := manifest.BeginRun(ctx, "2024-1", 2)
	require.NoError(t, err)

	require.NoError(t, manifest.RecordSubject(ctx, id, "CS101", "Intro", "CS101.html", 120))
	require.NoError(t, manifest.RecordSubject(ctx, id, "CS102", "Data Structures", "CS102.html", 80))
	require.NoError(t, manifest.FinishRun(ctx, id, 2, true))

	runs, err := manifest.Queries().GetRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, "2024-1", runs[0].TermCode)
	require.Equal(t, int64(2), runs[0].Total)
	require.Equal(t, int64(2), runs[0].Captured)
	require.Equal(t, RUN_STATUS_OK, runs[0].Status)
	require.True(t, runs[0].FinishedAt.Valid)
	_, err = uuid.Parse(runs[0].Token)
	require.NoError(t, err)

	subjects, err := manifest.Queries().GetRunSubjects(ctx, id)
	require.NoError(t, err)
	require.Len(t, subjects, 2)
	require.Equal(t, "CS101", subjects[0].SubjectCode)
	require.Equal(t, int64(120), subjects[0].Size)
	require.Equal(t, "CS102.html", subjects[1].FileName)
}

func TestManifestLoginFailure(t *testing.T) {
	ctx := context.Background()
	manifest := openTestManifest(t)

	require.NoError(t, manifest.RecordLoginFailure(ctx, "2024-1"))

	runs, err := manifest.Queries().GetRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, RUN_STATUS_LOGIN_FAILED, runs[0].Status)
	require.Equal(t, int64(0), runs[0].Captured)

	require.NoError(t, manifest.RecordLoginFailure(ctx, "2024-1"))
	runs, err = manifest.Queries().GetRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.NotEqual(t, runs[0].Token, runs[1].Token)
}

func TestManifestRecordTerms(t *testing.T) {
	ctx := context.Background()
	manifest := openTestManifest(t)

	require.NoError(t, manifest.RecordTerms(ctx, map[string]string{
		"20240": "2024 Spring",
		"20241": "2024 Autumn",
	}))
	require.NoError(t, manifest.RecordTerms(ctx, map[string]string{
		"20240": "2024 Spring (revised)",
	}))

	terms, err := manifest.Queries().GetTerms(ctx)
	require.NoError(t, err)
	require.Equal(t, []Term{
		{Code: "20240", Label: "2024 Spring (revised)", SeenAt: 1700000000},
		{Code: "20241", Label: "2024 Autumn", SeenAt: 1700000000},
	}, terms)
}
