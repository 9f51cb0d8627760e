package jufo

// Candidate is one channel returned by the etsi.php search endpoint.
// Field names follow the JUFO REST API casing.
type Candidate struct {
	JufoID string `json:"Jufo_ID"`
	Name   string `json:"Name"`
}

// channelDetail is one entry in the /kanava/<id> response.
// Level arrives as a string and may be empty for unranked channels.
type channelDetail struct {
	JufoID string `json:"Jufo_ID"`
	Name   string `json:"Name"`
	Level  string `json:"Level"`
}
