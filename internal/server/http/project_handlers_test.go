package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okarvonen/scholarscout/internal/domain"
)

func createTestProject(t *testing.T, env *testEnv, title string) string {
	t.Helper()
	rr := serveHTTP(env.server, postJSON("/api/projects", `{"title":"`+title+`","description":"notes"}`))
	if rr.Code != http.StatusOK {
		t.Fatalf("failed to create project: %d %s", rr.Code, rr.Body.String())
	}
	var resp map[string]string
	decodeJSON(t, rr, &resp)
	if resp["project_id"] == "" {
		t.Fatal("expected project_id to be set")
	}
	return resp["project_id"]
}

func addTestSection(t *testing.T, env *testEnv, projectID, title string) string {
	t.Helper()
	rr := serveHTTP(env.server, postJSON("/api/projects/"+projectID+"/sections", `{"title":"`+title+`"}`))
	if rr.Code != http.StatusOK {
		t.Fatalf("failed to add section: %d %s", rr.Code, rr.Body.String())
	}
	var resp map[string]string
	decodeJSON(t, rr, &resp)
	return resp["section_id"]
}

func TestProjectLifecycle(t *testing.T) {
	env := newTestEnv(&mockBibSource{}, &mockResolver{}, time.Second)

	projectID := createTestProject(t, env, "Thesis")

	// Listing returns the created project.
	rr := serveHTTP(env.server, httptest.NewRequest(http.MethodGet, "/api/projects", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var listResp struct {
		Status   string           `json:"status"`
		Projects []domain.Project `json:"projects"`
	}
	decodeJSON(t, rr, &listResp)
	if len(listResp.Projects) != 1 || listResp.Projects[0].Title != "Thesis" {
		t.Fatalf("unexpected project list %+v", listResp.Projects)
	}

	// Fetching returns the project with its sections.
	sectionID := addTestSection(t, env, projectID, "Background")
	rr = serveHTTP(env.server, httptest.NewRequest(http.MethodGet, "/api/projects/"+projectID, nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var getResp struct {
		Status   string           `json:"status"`
		Project  domain.Project   `json:"project"`
		Sections []domain.Section `json:"sections"`
	}
	decodeJSON(t, rr, &getResp)
	if getResp.Project.ID != projectID {
		t.Errorf("expected project id %q, got %q", projectID, getResp.Project.ID)
	}
	if len(getResp.Sections) != 1 || getResp.Sections[0].ID != sectionID {
		t.Fatalf("unexpected sections %+v", getResp.Sections)
	}

	// Deleting removes the project.
	rr = serveHTTP(env.server, httptest.NewRequest(http.MethodDelete, "/api/projects/"+projectID, nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	rr = serveHTTP(env.server, httptest.NewRequest(http.MethodGet, "/api/projects/"+projectID, nil))
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rr.Code)
	}
}

func TestCreateProject_MissingTitle(t *testing.T) {
	env := newTestEnv(&mockBibSource{}, &mockResolver{}, time.Second)

	rr := serveHTTP(env.server, postJSON("/api/projects", `{"description":"no title"}`))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp map[string]string
	decodeJSON(t, rr, &resp)
	if resp["error"] != "Title is required" {
		t.Errorf("expected 'Title is required', got %q", resp["error"])
	}
}

func TestGetProject_NotFound(t *testing.T) {
	env := newTestEnv(&mockBibSource{}, &mockResolver{}, time.Second)

	rr := serveHTTP(env.server, httptest.NewRequest(http.MethodGet, "/api/projects/nope", nil))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp map[string]string
	decodeJSON(t, rr, &resp)
	if resp["error"] != "Project not found" {
		t.Errorf("expected 'Project not found', got %q", resp["error"])
	}
}

func TestDeleteProject_NotFound(t *testing.T) {
	env := newTestEnv(&mockBibSource{}, &mockResolver{}, time.Second)

	rr := serveHTTP(env.server, httptest.NewRequest(http.MethodDelete, "/api/projects/nope", nil))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestAddSection_UnknownProject(t *testing.T) {
	env := newTestEnv(&mockBibSource{}, &mockResolver{}, time.Second)

	rr := serveHTTP(env.server, postJSON("/api/projects/nope/sections", `{"title":"Background"}`))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestAddSection_MissingTitle(t *testing.T) {
	env := newTestEnv(&mockBibSource{}, &mockResolver{}, time.Second)
	projectID := createTestProject(t, env, "Thesis")

	rr := serveHTTP(env.server, postJSON("/api/projects/"+projectID+"/sections", `{"content":"text"}`))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestDeleteSection(t *testing.T) {
	env := newTestEnv(&mockBibSource{}, &mockResolver{}, time.Second)
	projectID := createTestProject(t, env, "Thesis")
	sectionID := addTestSection(t, env, projectID, "Background")

	rr := serveHTTP(env.server, httptest.NewRequest(http.MethodDelete, "/api/projects/"+projectID+"/sections/"+sectionID, nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	// A second delete reports the section missing.
	rr = serveHTTP(env.server, httptest.NewRequest(http.MethodDelete, "/api/projects/"+projectID+"/sections/"+sectionID, nil))
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404 on repeat delete, got %d", rr.Code)
	}
}

func TestArticleLifecycle(t *testing.T) {
	env := newTestEnv(&mockBibSource{}, &mockResolver{}, time.Second)
	projectID := createTestProject(t, env, "Thesis")
	sectionID := addTestSection(t, env, projectID, "Background")
	base := "/api/projects/" + projectID + "/sections/" + sectionID + "/articles"

	rr := serveHTTP(env.server, postJSON(base, `{"title":"Attention Is All You Need","link":"https://doi.org/10.1000/attn","journal":"Nature","year":"2017","level":3}`))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var addResp map[string]string
	decodeJSON(t, rr, &addResp)
	articleID := addResp["article_id"]
	if articleID == "" {
		t.Fatal("expected article_id to be set")
	}

	rr = serveHTTP(env.server, httptest.NewRequest(http.MethodGet, base, nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var listResp struct {
		Status   string                `json:"status"`
		Articles []domain.SavedArticle `json:"articles"`
	}
	decodeJSON(t, rr, &listResp)
	if len(listResp.Articles) != 1 {
		t.Fatalf("expected 1 article, got %d", len(listResp.Articles))
	}
	saved := listResp.Articles[0]
	if saved.ID != articleID {
		t.Errorf("expected article id %q, got %q", articleID, saved.ID)
	}
	if saved.Level == nil || *saved.Level != 3 {
		t.Errorf("expected level 3, got %v", saved.Level)
	}
	if saved.AddedAt == "" {
		t.Error("expected added_at to be set")
	}

	rr = serveHTTP(env.server, httptest.NewRequest(http.MethodDelete, base+"/"+articleID, nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	rr = serveHTTP(env.server, httptest.NewRequest(http.MethodGet, base, nil))
	decodeJSON(t, rr, &listResp)
	if len(listResp.Articles) != 0 {
		t.Errorf("expected no articles after delete, got %d", len(listResp.Articles))
	}
}

func TestAddArticle_UnknownSection(t *testing.T) {
	env := newTestEnv(&mockBibSource{}, &mockResolver{}, time.Second)
	projectID := createTestProject(t, env, "Thesis")

	rr := serveHTTP(env.server, postJSON("/api/projects/"+projectID+"/sections/nope/articles", `{"title":"Orphan"}`))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d: %s", rr.Code, rr.Body.String())
	}
}
