package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataDBRoundTrip(t *testing.T) {
	db, err := NewMetadataDB(filepath.Join(t.TempDir(), "analyses.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, db.SaveAnalysis(AnalysisRecord{
		JobID:      "job-1",
		FileName:   "call.m4a",
		SourceType: "upload",
		Status:     "FAILED",
		ErrorClass: "too_long",
		Duration:   121,
		CreatedAt:  base,
	}))
	require.NoError(t, db.SaveAnalysis(AnalysisRecord{
		JobID:          "job-2",
		FileName:       "memo.wav",
		SourceType:     "stream",
		Status:         "COMPLETED",
		Duration:       14.5,
		Windows:        3,
		SkippedWindows: 1,
		Intervals:      2,
		CreatedAt:      base.Add(time.Minute),
	}))

	got, err := db.GetAnalysis("job-2")
	require.NoError(t, err)
	assert.Equal(t, "memo.wav", got.FileName)
	assert.Equal(t, 3, got.Windows)
	assert.Equal(t, 1, got.SkippedWindows)
	assert.Equal(t, "", got.ErrorClass)
	assert.True(t, got.CreatedAt.Equal(base.Add(time.Minute)))

	list, err := db.ListAnalyses(10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "job-2", list[0].JobID)
	assert.Equal(t, "too_long", list[1].ErrorClass)

	_, err = db.GetAnalysis("missing")
	assert.ErrorIs(t, err, ErrAnalysisNotFound)
}

func TestSaveAnalysisRejectsDuplicateJob(t *testing.T) {
	db, err := NewMetadataDB(filepath.Join(t.TempDir(), "analyses.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	rec := AnalysisRecord{JobID: "dup", FileName: "a.wav", SourceType: "cli", Status: "COMPLETED"}
	require.NoError(t, db.SaveAnalysis(rec))
	assert.Error(t, db.SaveAnalysis(rec))
}
