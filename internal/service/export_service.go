package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/qau-se/cfms-api/internal/models"
	"github.com/qau-se/cfms-api/pkg/export"
	"github.com/qau-se/cfms-api/pkg/storage"
)

type exportFolderReader interface {
	FindByID(ctx context.Context, id string) (*models.Folder, error)
}

type exportFeedbackReader interface {
	ListByFolder(ctx context.Context, folderID string, channel models.FeedbackChannel) ([]models.FeedbackEntry, error)
}

type exportHistoryReader interface {
	ListByFolder(ctx context.Context, folderID string) ([]models.FolderStatusHistory, error)
}

type exportUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type reportRenderer interface {
	Render(report export.ReviewReport) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	ExpiresAt    time.Time
}

// ExportService assembles folder review reports and persists the
// rendered PDFs.
type ExportService struct {
	folders  exportFolderReader
	feedback exportFeedbackReader
	history  exportHistoryReader
	users    exportUserReader
	storage  fileStorage
	renderer reportRenderer
	signer   *storage.SignedURLSigner
	logger   *zap.Logger
	cfg      ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(folders exportFolderReader, feedback exportFeedbackReader, history exportHistoryReader, users exportUserReader, store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, renderer reportRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if renderer == nil {
		renderer = export.NewReviewReportRenderer()
	}
	return &ExportService{
		folders:  folders,
		feedback: feedback,
		history:  history,
		users:    users,
		storage:  store,
		renderer: renderer,
		signer:   signer,
		logger:   logger,
		cfg:      cfg,
	}
}

// Generate builds the review report for a job and stores the rendered PDF.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	report, err := s.buildReport(ctx, job.Params.FolderID)
	if err != nil {
		return nil, err
	}

	payload, err := s.renderer.Render(*report)
	if err != nil {
		return nil, err
	}

	filename := s.buildFilename(report)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	signedURL := strings.TrimRight(s.cfg.APIPrefix, "/")
	if signedURL == "" {
		signedURL = "/api/v1"
	}
	signedURL = fmt.Sprintf("%s/reports/download/%s", signedURL, token)

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          signedURL,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored report file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildReport(ctx context.Context, folderID string) (*export.ReviewReport, error) {
	folder, err := s.folders.FindByID(ctx, folderID)
	if err != nil {
		return nil, fmt.Errorf("load folder: %w", err)
	}

	facultyName := folder.FacultyID
	if s.users != nil {
		if user, err := s.users.FindByID(ctx, folder.FacultyID); err == nil {
			facultyName = user.FullName
		}
	}

	notes := make([]export.SectionNote, 0)
	for _, channel := range []models.FeedbackChannel{models.ChannelCoordinator, models.ChannelAuditMember} {
		entries, err := s.feedback.ListByFolder(ctx, folderID, channel)
		if err != nil {
			return nil, fmt.Errorf("load %s feedback: %w", channel, err)
		}
		for _, entry := range entries {
			notes = append(notes, export.SectionNote{
				Section: entry.Section,
				Channel: string(entry.Channel),
				Notes:   entry.Notes,
			})
		}
	}

	historyLines := make([]export.HistoryLine, 0)
	if s.history != nil {
		records, err := s.history.ListByFolder(ctx, folderID)
		if err != nil {
			return nil, fmt.Errorf("load status history: %w", err)
		}
		for _, record := range records {
			historyLines = append(historyLines, export.HistoryLine{
				Status:    string(record.Status),
				ChangedBy: record.ChangedBy,
				Notes:     record.Notes,
				At:        record.CreatedAt,
			})
		}
	}

	return &export.ReviewReport{
		FolderID:    folder.ID,
		CourseCode:  folder.CourseCode,
		CourseTitle: folder.CourseTitle,
		Faculty:     facultyName,
		Term:        folder.Term,
		Status:      string(folder.Status),
		GeneratedAt: time.Now().UTC(),
		Feedback:    notes,
		History:     historyLines,
	}, nil
}

func (s *ExportService) buildFilename(report *export.ReviewReport) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	return fmt.Sprintf("review_%s_%s_%s.pdf", sanitizeFilename(report.CourseCode), sanitizeFilename(report.Term), timestamp)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
