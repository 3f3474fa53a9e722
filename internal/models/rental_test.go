package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProjectOverdue(t *testing.T) {
	due := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		now        time.Time
		isReturned bool
		wantDays   int
		wantFee    int64
	}{
		{name: "before due date", now: due.Add(-time.Hour)},
		{name: "exactly at due date", now: due},
		{name: "partial day counts as one", now: due.Add(time.Hour), wantDays: 1, wantFee: 10},
		{name: "exact full days", now: due.AddDate(0, 0, 3), wantDays: 3, wantFee: 30},
		{name: "three days and change rounds up", now: due.AddDate(0, 0, 3).Add(5 * time.Hour), wantDays: 4, wantFee: 40},
		{name: "returned rental never overdue", now: due.AddDate(0, 0, 10), isReturned: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			proj := ProjectOverdue(due, tc.isReturned, tc.now, 10)
			assert.Equal(t, tc.wantDays > 0, proj.IsOverdue)
			assert.Equal(t, tc.wantDays, proj.OverdueDays)
			assert.Equal(t, tc.wantFee, proj.ProjectedFee)
		})
	}
}

func TestProjectOverdueCustomRate(t *testing.T) {
	due := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	proj := ProjectOverdue(due, false, due.AddDate(0, 0, 2), 25)
	assert.True(t, proj.IsOverdue)
	assert.Equal(t, 2, proj.OverdueDays)
	assert.Equal(t, int64(50), proj.ProjectedFee)
}
