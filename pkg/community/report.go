package community

// Report describes one detection pass. TooSmall, LowCoherence and
// Truncated count groups, not entities.
type Report struct {
	Level               int      `json:"level"`
	Resolution          float64  `json:"resolution"`
	Nodes               int      `json:"nodes"`
	Edges               int      `json:"edges"`
	SharedCitationEdges int      `json:"shared_citation_edges"`
	Partitions          int      `json:"partitions"`
	Modularity          float64  `json:"modularity"`
	TooSmall            int      `json:"too_small"`
	Split               int      `json:"split"`
	Truncated           int      `json:"truncated"`
	LowCoherence        int      `json:"low_coherence"`
	Accepted            int      `json:"accepted"`
	Notes               []string `json:"notes,omitempty"`
}

func (r *Report) note(msg string) {
	r.Notes = append(r.Notes, msg)
}
