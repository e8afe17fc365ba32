package export

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestReviewReportRendererRender(t *testing.T) {
	renderer := NewReviewReportRenderer()
	report := ReviewReport{
		FolderID:    "folder-1",
		CourseCode:  "CS-301",
		CourseTitle: "Operating Systems",
		Faculty:     "Dr. Ayesha Khan",
		Term:        "Fall 2025",
		Status:      "AUDIT_COMPLETED",
		GeneratedAt: time.Date(2025, 12, 1, 10, 0, 0, 0, time.UTC),
		Feedback: []SectionNote{
			{Section: "COURSE_OUTLINE", Channel: "COORDINATOR", Notes: "CLO mapping needs revision"},
			{Section: "ASSIGNMENTS", Channel: "AUDIT_MEMBER", Notes: "Assignment 3 solution missing steps"},
		},
		History: []HistoryLine{
			{Status: "SUBMITTED", ChangedBy: "faculty-1", Notes: "first submission", At: time.Date(2025, 11, 1, 9, 0, 0, 0, time.UTC)},
			{Status: "UNDER_AUDIT", ChangedBy: "convener-1", At: time.Date(2025, 11, 10, 9, 0, 0, 0, time.UTC)},
		},
	}

	data, err := renderer.Render(report)
	require.NoError(t, err)
	require.NotEmpty(t, data)
	require.Equal(t, "%PDF", string(data[:4]))
}

func TestReviewReportRendererRequiresFolderID(t *testing.T) {
	renderer := NewReviewReportRenderer()
	_, err := renderer.Render(ReviewReport{})
	require.Error(t, err)
}
