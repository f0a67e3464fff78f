package plugin

// Metadata is descriptive enrichment for a plugin. None of it is
// authoritative: Dependencies here is informational and never feeds the graph.
type Metadata struct {
	Name         string
	Version      string
	Authors      []string
	Description  string
	WebsiteURL   string
	LogoURL      string
	Credits      string
	Dependencies []string
}
