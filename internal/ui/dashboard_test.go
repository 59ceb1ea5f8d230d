package ui

import (
	"testing"
	"time"

	"github.com/five82/scholar/internal/api"
)

func TestCurrentRunPrefersLatestStarted(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	c := api.Course{Runs: []api.CourseRun{
		{ID: 1, StartDate: "2023-01-10", Status: "passed"},
		{ID: 2, StartDate: "2024-03-01", Status: "currently-enrolled"},
		{ID: 3, StartDate: "2024-09-01", Status: "offered"},
	}}
	run, ok := currentRun(c, now)
	if !ok || run.ID != 2 {
		t.Fatalf("currentRun = %+v, want run 2", run)
	}

	upcoming := api.Course{Runs: []api.CourseRun{
		{ID: 4, StartDate: "2025-01-01"},
		{ID: 5, StartDate: "2024-09-01"},
	}}
	run, ok = currentRun(upcoming, now)
	if !ok || run.ID != 5 {
		t.Fatalf("currentRun = %+v, want earliest upcoming run 5", run)
	}

	if _, ok := currentRun(api.Course{}, now); ok {
		t.Fatalf("course without runs reported a run")
	}
}

func TestCourseArchived(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	ended := api.Course{Runs: []api.CourseRun{{EndDate: "2023-12-01"}, {EndDate: "2024-05-01"}}}
	if !courseArchived(ended, now) {
		t.Fatalf("ended course not archived")
	}
	open := api.Course{Runs: []api.CourseRun{{EndDate: "2023-12-01"}, {EndDate: ""}}}
	if courseArchived(open, now) {
		t.Fatalf("course with an open-ended run archived")
	}
	if courseArchived(api.Course{}, now) {
		t.Fatalf("course without runs archived")
	}
}
