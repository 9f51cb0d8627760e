package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/okarvonen/scholarscout/internal/blobstore"
	"github.com/okarvonen/scholarscout/internal/domain"
)

const (
	// ProjectIndexKey is the blob key of the project index.
	ProjectIndexKey = "project_index"

	// createdAtLayout is the display timestamp on projects, sections and
	// saved articles.
	createdAtLayout = "2006-01-02 15:04:05"
)

func projectKey(projectID string) string {
	return "projects/" + projectID
}

func sectionKey(projectID, sectionID string) string {
	return "sections/" + projectID + "/" + sectionID
}

func articleKey(projectID, sectionID, articleID string) string {
	return "articles/" + projectID + "/" + sectionID + "/" + articleID
}

// ProjectStore owns the project organization layer: projects, their
// sections, and articles saved into sections. Like the history index, the
// project index is a single shared blob with last-writer-wins semantics.
type ProjectStore struct {
	blobs  blobstore.Store
	logger zerolog.Logger
	now    func() time.Time
	newID  func() string
}

// NewProjectStore creates a project store.
func NewProjectStore(blobs blobstore.Store, logger zerolog.Logger) *ProjectStore {
	return &ProjectStore{
		blobs:  blobs,
		logger: logger.With().Str("component", "project_store").Logger(),
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
}

// CreateProject stores a new project and registers it in the index.
func (s *ProjectStore) CreateProject(ctx context.Context, title, description string) (*domain.Project, error) {
	if title == "" {
		return nil, domain.NewValidationError("title", "title is required")
	}

	project := domain.Project{
		ID:          s.newID(),
		Title:       title,
		Description: description,
		CreatedAt:   s.now().UTC().Format(createdAtLayout),
	}

	if err := s.blobs.Put(ctx, projectKey(project.ID), project); err != nil {
		return nil, fmt.Errorf("saving project: %w", err)
	}
	if err := s.upsertIndexEntry(ctx, project); err != nil {
		return nil, fmt.Errorf("updating project index: %w", err)
	}

	s.logger.Debug().Str("project_id", project.ID).Msg("project created")
	return &project, nil
}

// Projects returns all projects from the index, newest first.
func (s *ProjectStore) Projects(ctx context.Context) ([]domain.Project, error) {
	index, err := s.loadIndex(ctx)
	if err != nil {
		return nil, err
	}

	projects := index.Projects
	sort.SliceStable(projects, func(i, j int) bool {
		return projects[i].CreatedAt > projects[j].CreatedAt
	})
	return projects, nil
}

// Project loads one project by ID.
func (s *ProjectStore) Project(ctx context.Context, projectID string) (*domain.Project, error) {
	var project domain.Project
	if err := s.blobs.Get(ctx, projectKey(projectID), &project); err != nil {
		return nil, err
	}
	return &project, nil
}

// DeleteProject removes a project, its index entry, and all its sections.
// Returns false when the project did not exist.
func (s *ProjectStore) DeleteProject(ctx context.Context, projectID string) (bool, error) {
	deleted, err := s.blobs.Delete(ctx, projectKey(projectID))
	if err != nil {
		return false, fmt.Errorf("deleting project: %w", err)
	}
	if !deleted {
		return false, nil
	}

	index, err := s.loadIndex(ctx)
	if err != nil {
		return false, err
	}
	kept := index.Projects[:0]
	for _, p := range index.Projects {
		if p.ID != projectID {
			kept = append(kept, p)
		}
	}
	index.Projects = kept
	if err := s.blobs.Put(ctx, ProjectIndexKey, index); err != nil {
		return false, fmt.Errorf("updating project index: %w", err)
	}

	sections, err := s.blobs.List(ctx, "sections/"+projectID+"/")
	if err != nil {
		return false, fmt.Errorf("listing sections: %w", err)
	}
	for _, info := range sections {
		if _, err := s.blobs.Delete(ctx, info.Key); err != nil {
			s.logger.Warn().Err(err).Str("key", info.Key).Msg("section cleanup failed")
		}
	}

	return true, nil
}

// AddSection creates a section under an existing project.
func (s *ProjectStore) AddSection(ctx context.Context, projectID, title, content string) (*domain.Section, error) {
	if title == "" {
		return nil, domain.NewValidationError("title", "title is required")
	}
	if _, err := s.Project(ctx, projectID); err != nil {
		return nil, err
	}

	section := domain.Section{
		ID:        s.newID(),
		ProjectID: projectID,
		Title:     title,
		Content:   content,
		CreatedAt: s.now().UTC().Format(createdAtLayout),
	}

	if err := s.blobs.Put(ctx, sectionKey(projectID, section.ID), section); err != nil {
		return nil, fmt.Errorf("saving section: %w", err)
	}
	return &section, nil
}

// Sections returns a project's sections, oldest first.
func (s *ProjectStore) Sections(ctx context.Context, projectID string) ([]domain.Section, error) {
	infos, err := s.blobs.List(ctx, "sections/"+projectID+"/")
	if err != nil {
		return nil, fmt.Errorf("listing sections: %w", err)
	}

	sections := make([]domain.Section, 0, len(infos))
	for _, info := range infos {
		var section domain.Section
		if err := s.blobs.Get(ctx, info.Key, &section); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, err
		}
		sections = append(sections, section)
	}

	sort.SliceStable(sections, func(i, j int) bool {
		return sections[i].CreatedAt < sections[j].CreatedAt
	})
	return sections, nil
}

// DeleteSection removes one section. Returns false when it did not exist.
func (s *ProjectStore) DeleteSection(ctx context.Context, projectID, sectionID string) (bool, error) {
	return s.blobs.Delete(ctx, sectionKey(projectID, sectionID))
}

// AddArticle pins an article into a section. The article's ID and AddedAt
// are assigned by the store.
func (s *ProjectStore) AddArticle(ctx context.Context, projectID, sectionID string, article domain.SavedArticle) (*domain.SavedArticle, error) {
	if _, err := s.blobs.GetRaw(ctx, sectionKey(projectID, sectionID)); err != nil {
		return nil, err
	}

	article.ID = s.newID()
	article.AddedAt = s.now().UTC().Format(createdAtLayout)

	if err := s.blobs.Put(ctx, articleKey(projectID, sectionID, article.ID), article); err != nil {
		return nil, fmt.Errorf("saving article: %w", err)
	}
	return &article, nil
}

// Articles returns a section's saved articles, oldest first.
func (s *ProjectStore) Articles(ctx context.Context, projectID, sectionID string) ([]domain.SavedArticle, error) {
	infos, err := s.blobs.List(ctx, "articles/"+projectID+"/"+sectionID+"/")
	if err != nil {
		return nil, fmt.Errorf("listing articles: %w", err)
	}

	articles := make([]domain.SavedArticle, 0, len(infos))
	for _, info := range infos {
		var article domain.SavedArticle
		if err := s.blobs.Get(ctx, info.Key, &article); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, err
		}
		articles = append(articles, article)
	}

	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].AddedAt < articles[j].AddedAt
	})
	return articles, nil
}

// DeleteArticle removes one saved article. Returns false when it did not
// exist.
func (s *ProjectStore) DeleteArticle(ctx context.Context, projectID, sectionID, articleID string) (bool, error) {
	return s.blobs.Delete(ctx, articleKey(projectID, sectionID, articleID))
}

func (s *ProjectStore) upsertIndexEntry(ctx context.Context, project domain.Project) error {
	index, err := s.loadIndex(ctx)
	if err != nil {
		return err
	}

	replaced := false
	for i, p := range index.Projects {
		if p.ID == project.ID {
			index.Projects[i] = project
			replaced = true
			break
		}
	}
	if !replaced {
		index.Projects = append(index.Projects, project)
	}

	return s.blobs.Put(ctx, ProjectIndexKey, index)
}

func (s *ProjectStore) loadIndex(ctx context.Context) (domain.ProjectIndex, error) {
	var index domain.ProjectIndex
	if err := s.blobs.Get(ctx, ProjectIndexKey, &index); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ProjectIndex{Projects: []domain.Project{}}, nil
		}
		return domain.ProjectIndex{}, fmt.Errorf("loading project index: %w", err)
	}
	if index.Projects == nil {
		index.Projects = []domain.Project{}
	}
	return index, nil
}
