package domain

// Project groups saved literature into named sections. Projects live in the
// blob store under "projects/<id>" with a companion "project_index" blob for
// listing.
type Project struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`

	// CreatedAt uses the "2006-01-02 15:04:05" layout for display.
	CreatedAt string `json:"created_at"`
}

// ProjectIndex is the persisted listing of all projects. Like the search
// history index it is a single shared blob with last-writer-wins semantics.
type ProjectIndex struct {
	Projects []Project `json:"projects"`
}

// Section is one named part of a project, stored under
// "sections/<projectID>/<sectionID>".
type Section struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	Title     string `json:"title"`
	Content   string `json:"content,omitempty"`
	CreatedAt string `json:"created_at"`
}

// SavedArticle is an article pinned into a project section, stored under
// "articles/<projectID>/<sectionID>/<articleID>". It carries a copy of the
// article fields rather than a reference to a snapshot, so deleting a search
// never breaks a project.
type SavedArticle struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Link    string `json:"link"`
	Journal string `json:"journal"`
	Year    string `json:"year"`
	Level   *int   `json:"level"`
	AddedAt string `json:"added_at"`
}
