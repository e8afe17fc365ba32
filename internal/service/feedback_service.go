package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/qau-se/cfms-api/internal/models"
	"github.com/qau-se/cfms-api/pkg/broadcast"
	appErrors "github.com/qau-se/cfms-api/pkg/errors"
)

type feedbackRepository interface {
	ListByFolder(ctx context.Context, folderID string, channel models.FeedbackChannel) ([]models.FeedbackEntry, error)
	Upsert(ctx context.Context, entry *models.FeedbackEntry) error
}

// sectionAliases folds legacy client section keys onto their canonical
// names so feedback written under either key lands on the same entry.
var sectionAliases = map[string]string{
	"TITLE":   "TITLE_PAGE",
	"OUTLINE": "COURSE_OUTLINE",
	"LOG":     "COURSE_LOG",
	"RESULT":  "COURSE_RESULT",
	"PROJECT": "PROJECT_REPORT",
	"CLO":     "CLO_ASSESSMENT",
}

// channelWriters maps each feedback channel to the role allowed to
// write on it. Admins bypass the gate.
var channelWriters = map[models.FeedbackChannel]models.UserRole{
	models.ChannelCoordinator: models.RoleCoordinator,
	models.ChannelAuditMember: models.RoleAuditMember,
}

// SaveFeedbackRequest describes a reviewer annotation write. Notes may
// be empty: an empty save clears the existing entry.
type SaveFeedbackRequest struct {
	Section string `json:"section" validate:"required"`
	Notes   string `json:"notes"`
}

// FeedbackService stores per-(folder, section, channel) reviewer
// annotations with overwrite semantics and broadcasts every accepted
// write so open review panes refresh.
type FeedbackService struct {
	repo      feedbackRepository
	publisher broadcast.Publisher
	logger    *zap.Logger
}

// NewFeedbackService constructs FeedbackService.
func NewFeedbackService(repo feedbackRepository, publisher broadcast.Publisher, logger *zap.Logger) *FeedbackService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedbackService{repo: repo, publisher: publisher, logger: logger}
}

// NormalizeSection resolves a client section key to its canonical form.
func NormalizeSection(section string) string {
	key := strings.ToUpper(strings.TrimSpace(section))
	if canonical, ok := sectionAliases[key]; ok {
		return canonical
	}
	return key
}

// Get returns the feedback map for one folder and channel, keyed by
// canonical section. Read failures degrade to an empty map: a broken
// feedback fetch must never block the folder view.
func (s *FeedbackService) Get(ctx context.Context, folderID string, channel models.FeedbackChannel) map[string]models.FeedbackEntry {
	entries, err := s.repo.ListByFolder(ctx, folderID, channel)
	if err != nil {
		s.logger.Warn("failed to load feedback, serving empty map",
			zap.String("folder_id", folderID),
			zap.String("channel", string(channel)),
			zap.Error(err))
		return map[string]models.FeedbackEntry{}
	}
	out := make(map[string]models.FeedbackEntry, len(entries))
	for _, entry := range entries {
		out[entry.Section] = entry
	}
	return out
}

// Put overwrites the feedback entry for (folder, section, channel).
// Unlike reads, write failures are surfaced: the reviewer must know
// their annotation did not land.
func (s *FeedbackService) Put(ctx context.Context, folderID string, channel models.FeedbackChannel, actorRole models.UserRole, actorID string, req SaveFeedbackRequest) (*models.FeedbackEntry, error) {
	writer, ok := channelWriters[channel]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown feedback channel %s", channel))
	}
	if actorRole != writer && actorRole != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrRoleMismatch,
			fmt.Sprintf("channel %s accepts writes from %s only", channel, writer))
	}
	section := NormalizeSection(req.Section)
	if section == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "section is required")
	}
	entry := &models.FeedbackEntry{
		FolderID: folderID,
		Section:  section,
		Channel:  channel,
		Notes:    req.Notes,
		SavedBy:  actorID,
		SavedAt:  time.Now().UTC(),
	}
	if err := s.repo.Upsert(ctx, entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to save feedback")
	}
	s.publish(ctx, entry)
	return entry, nil
}

// publish is best-effort: a dropped event only delays a pane refresh.
func (s *FeedbackService) publish(ctx context.Context, entry *models.FeedbackEntry) {
	if s.publisher == nil {
		return
	}
	event := broadcast.Event{
		FolderID: entry.FolderID,
		Section:  entry.Section,
		Channel:  string(entry.Channel),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to broadcast feedback update",
			zap.String("folder_id", entry.FolderID),
			zap.String("section", entry.Section),
			zap.Error(err))
	}
}
