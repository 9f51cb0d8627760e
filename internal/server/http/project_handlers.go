package httpserver

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okarvonen/scholarscout/internal/domain"
)

// listProjects handles GET /api/projects.
func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.projectStore.Projects(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list projects")
		writeError(w, http.StatusInternalServerError, "failed to list projects")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "success",
		"projects": projects,
	})
}

// createProject handles POST /api/projects.
func (s *Server) createProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if msg, ok := decodeJSONBody(r, &req); !ok {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Title is required")
		return
	}

	project, err := s.projectStore.CreateProject(r.Context(), req.Title, req.Description)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to create project")
		writeError(w, http.StatusInternalServerError, "failed to save project")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":     "success",
		"project_id": project.ID,
	})
}

// getProject handles GET /api/projects/{projectID}, returning the project
// together with its sections.
func (s *Server) getProject(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	project, err := s.projectStore.Project(r.Context(), projectID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Project not found")
			return
		}
		s.logger.Error().Err(err).Str("project_id", projectID).Msg("failed to load project")
		writeError(w, http.StatusInternalServerError, "failed to load project")
		return
	}

	sections, err := s.projectStore.Sections(r.Context(), projectID)
	if err != nil {
		s.logger.Error().Err(err).Str("project_id", projectID).Msg("failed to load sections")
		writeError(w, http.StatusInternalServerError, "failed to load sections")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "success",
		"project":  project,
		"sections": sections,
	})
}

// deleteProject handles DELETE /api/projects/{projectID}.
func (s *Server) deleteProject(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	deleted, err := s.projectStore.DeleteProject(r.Context(), projectID)
	if err != nil {
		s.logger.Error().Err(err).Str("project_id", projectID).Msg("failed to delete project")
		writeError(w, http.StatusInternalServerError, "Failed to delete project")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "Project not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// addSection handles POST /api/projects/{projectID}/sections.
func (s *Server) addSection(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	var req addSectionRequest
	if msg, ok := decodeJSONBody(r, &req); !ok {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Title is required")
		return
	}

	section, err := s.projectStore.AddSection(r.Context(), projectID, req.Title, req.Content)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Project not found")
			return
		}
		s.logger.Error().Err(err).Str("project_id", projectID).Msg("failed to add section")
		writeError(w, http.StatusInternalServerError, "failed to save section")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":     "success",
		"section_id": section.ID,
	})
}

// deleteSection handles DELETE /api/projects/{projectID}/sections/{sectionID}.
func (s *Server) deleteSection(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	sectionID := chi.URLParam(r, "sectionID")

	deleted, err := s.projectStore.DeleteSection(r.Context(), projectID, sectionID)
	if err != nil {
		s.logger.Error().Err(err).
			Str("project_id", projectID).
			Str("section_id", sectionID).
			Msg("failed to delete section")
		writeError(w, http.StatusInternalServerError, "Failed to delete section")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "Section not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// listArticles handles GET .../sections/{sectionID}/articles.
func (s *Server) listArticles(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	sectionID := chi.URLParam(r, "sectionID")

	articles, err := s.projectStore.Articles(r.Context(), projectID, sectionID)
	if err != nil {
		s.logger.Error().Err(err).
			Str("project_id", projectID).
			Str("section_id", sectionID).
			Msg("failed to list articles")
		writeError(w, http.StatusInternalServerError, "failed to list articles")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "success",
		"articles": articles,
	})
}

// addArticle handles POST .../sections/{sectionID}/articles: pin a copy of
// an article into a project section.
func (s *Server) addArticle(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	sectionID := chi.URLParam(r, "sectionID")

	var req addArticleRequest
	if msg, ok := decodeJSONBody(r, &req); !ok {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Title is required")
		return
	}

	article, err := s.projectStore.AddArticle(r.Context(), projectID, sectionID, domain.SavedArticle{
		Title:   req.Title,
		Link:    req.Link,
		Journal: req.Journal,
		Year:    req.Year,
		Level:   req.Level,
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Section not found")
			return
		}
		s.logger.Error().Err(err).
			Str("project_id", projectID).
			Str("section_id", sectionID).
			Msg("failed to add article")
		writeError(w, http.StatusInternalServerError, "failed to save article")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":     "success",
		"article_id": article.ID,
	})
}

// deleteArticle handles DELETE .../articles/{articleID}.
func (s *Server) deleteArticle(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	sectionID := chi.URLParam(r, "sectionID")
	articleID := chi.URLParam(r, "articleID")

	deleted, err := s.projectStore.DeleteArticle(r.Context(), projectID, sectionID, articleID)
	if err != nil {
		s.logger.Error().Err(err).
			Str("project_id", projectID).
			Str("article_id", articleID).
			Msg("failed to delete article")
		writeError(w, http.StatusInternalServerError, "Failed to delete article")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "Article not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}
