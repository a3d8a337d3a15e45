package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/permit-scout/internal/dedup"
	"github.com/sells-group/permit-scout/internal/model"
)

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "12345678", truncateID("12345678-abcd-efgh"))
	assert.Equal(t, "short", truncateID("short"))
}

func TestFormatRuns(t *testing.T) {
	started := time.Date(2025, 8, 1, 9, 30, 0, 0, time.UTC)
	completed := started.Add(42 * time.Second)
	errMsg := "fetcher: http 502 from https://data.lacity.org/resource/pi9x-tg5x.json"

	runs := []model.IngestRun{
		{
			ID:             "aaaaaaaa-1111",
			Source:         "permits",
			Status:         model.IngestRunCompleted,
			RecordsFound:   120,
			RecordsNew:     40,
			RecordsUpdated: 80,
			StartedAt:      started,
			CompletedAt:    &completed,
		},
		{
			ID:           "bbbbbbbb-2222",
			Source:       "legacy",
			Status:       model.IngestRunFailed,
			StartedAt:    started,
			CompletedAt:  &completed,
			ErrorMessage: &errMsg,
		},
	}

	var buf bytes.Buffer
	formatRuns(&buf, runs)
	out := buf.String()

	assert.Contains(t, out, "aaaaaaaa")
	assert.Contains(t, out, "permits")
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "42s")
	assert.Contains(t, out, "failed")
	// Long error messages are trimmed for the table.
	assert.Contains(t, out, "...")
	assert.NotContains(t, out, "pi9x-tg5x")
}

func TestFormatCandidates(t *testing.T) {
	candidates := []dedup.Candidate{
		{
			A:          model.DeveloperSummary{ID: "aaaaaaaa-1111", Name: "Acme Developers LLC", ProjectCount: 3},
			B:          model.DeveloperSummary{ID: "bbbbbbbb-2222", Name: "Acme Developer LLC", ProjectCount: 1},
			Distance:   1,
			Confidence: dedup.ConfidenceHigh,
		},
	}

	var buf bytes.Buffer
	formatCandidates(&buf, candidates)
	out := buf.String()

	assert.Contains(t, out, "high")
	assert.Contains(t, out, "Acme Developers LLC")
	assert.Contains(t, out, "Acme Developer LLC")
	assert.Equal(t, 3, len(strings.Split(strings.TrimRight(out, "\n"), "\n")))
}
