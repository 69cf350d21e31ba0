package incident

// Policy names which severities a creation path may persist. The
// automated ingestion path deliberately excludes medium: only staff
// judge the middle band, so the pipeline stays conservative at both
// ends. Keeping the rule as a named value makes the asymmetry
// discoverable instead of an inline conditional.
type Policy struct {
	name    string
	allowed map[Severity]bool
}

// Name returns the policy's name for logs and errors.
func (p Policy) Name() string { return p.name }

// Allows reports whether the policy permits s.
func (p Policy) Allows(s Severity) bool { return p.allowed[s] }

// Automated is the policy for the ingestion pipeline: low and high
// only, medium is filtered before any existence check.
var Automated = Policy{
	name:    "automated",
	allowed: map[Severity]bool{SeverityLow: true, SeverityHigh: true},
}

// Manual is the policy for administrative creation: all three levels.
var Manual = Policy{
	name: "manual",
	allowed: map[Severity]bool{
		SeverityLow:    true,
		SeverityMedium: true,
		SeverityHigh:   true,
	},
}
