package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/garyjia/mission-orders/internal/application/port"
	"github.com/garyjia/mission-orders/internal/domain/workflow"
)

// RenderedDocument is a generated mission order file
type RenderedDocument struct {
	FileName    string
	ContentType string
	Content     []byte
}

// DocumentService produces the printable mission order
type DocumentService interface {
	Render(ctx context.Context, missionID string) (*RenderedDocument, error)
}

type documentServiceImpl struct {
	missions    MissionService
	projectRepo port.ProjectRepository
	userRepo    port.UserRepository
	renderer    port.DocumentRenderer
	logger      Logger
}

// NewDocumentService creates a new DocumentService
func NewDocumentService(
	missions MissionService,
	projectRepo port.ProjectRepository,
	userRepo port.UserRepository,
	renderer port.DocumentRenderer,
	logger Logger,
) DocumentService {
	return &documentServiceImpl{
		missions:    missions,
		projectRepo: projectRepo,
		userRepo:    userRepo,
		renderer:    renderer,
		logger:      logger,
	}
}

// Render builds the document of a submitted mission. Drafts are refused.
func (s *documentServiceImpl) Render(ctx context.Context, missionID string) (*RenderedDocument, error) {
	detail, err := s.missions.Get(ctx, missionID)
	if err != nil {
		return nil, err
	}
	mission := detail.Mission
	if mission.Status == workflow.StateDraft {
		return nil, fmt.Errorf("%w: no document for draft mission %s", workflow.ErrInvalidTransition, mission.Reference)
	}

	doc := &port.MissionDocument{
		Mission:      mission,
		Expense:      detail.Expense,
		Participants: detail.Participants,
		Signatures:   detail.Signatures,
		Names:        make(map[string]string),
	}

	if mission.ProjectID != nil {
		project, err := s.projectRepo.GetByID(ctx, *mission.ProjectID)
		if err != nil && !errors.Is(err, port.ErrNotFound) {
			return nil, fmt.Errorf("get project: %w", err)
		}
		doc.Project = project
	}

	ids := []string{mission.AgentID}
	for _, p := range detail.Participants {
		ids = append(ids, p.AgentID)
	}
	for _, sig := range detail.Signatures {
		ids = append(ids, sig.SignerID)
	}
	for _, id := range ids {
		if _, done := doc.Names[id]; done {
			continue
		}
		user, err := s.userRepo.GetByID(ctx, id)
		if err != nil {
			doc.Names[id] = id
			continue
		}
		doc.Names[id] = user.FullName
	}

	content, err := s.renderer.Render(ctx, doc)
	if err != nil {
		s.logger.Error("Failed to render mission document", "error", err, "mission_id", missionID)
		return nil, fmt.Errorf("render document: %w", err)
	}

	s.logger.Info("Mission document rendered", "mission_id", missionID, "bytes", len(content))
	return &RenderedDocument{
		FileName:    mission.Reference + s.renderer.FileExtension(),
		ContentType: s.renderer.ContentType(),
		Content:     content,
	}, nil
}
