package crossref

import "strconv"

// worksResponse is the envelope returned by the Crossref /works endpoint.
type worksResponse struct {
	Status  string       `json:"status"`
	Message worksMessage `json:"message"`
}

type worksMessage struct {
	TotalResults int    `json:"total-results"`
	Items        []work `json:"items"`
}

// work is a single Crossref record, restricted to the selected fields.
type work struct {
	DOI            string   `json:"DOI"`
	Title          []string `json:"title"`
	ContainerTitle []string `json:"container-title"`
	Issued         dateInfo `json:"issued"`
	Authors        []author `json:"author"`
}

type dateInfo struct {
	// DateParts is [[year, month, day]], with trailing parts optional.
	DateParts [][]int `json:"date-parts"`
}

type author struct {
	Given  string `json:"given"`
	Family string `json:"family"`
}

// year returns the publication year as a string, or "" when absent.
func (d dateInfo) year() string {
	if len(d.DateParts) == 0 || len(d.DateParts[0]) == 0 || d.DateParts[0][0] == 0 {
		return ""
	}
	return strconv.Itoa(d.DateParts[0][0])
}
