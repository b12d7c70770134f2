package plants

import "fmt"

// Severity grades a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one problem found in a plant list. Index is the record's
// position in the list.
type Issue struct {
	Index    int      `json:"index"`
	ID       string   `json:"id,omitempty"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

func (i Issue) String() string {
	if i.ID != "" {
		return fmt.Sprintf("#%d (%s): %s", i.Index, i.ID, i.Message)
	}
	return fmt.Sprintf("#%d: %s", i.Index, i.Message)
}

// Validate checks a plant list. Records that would get no marker are
// errors; coordinates outside [0,100] and empty names are warnings.
func Validate(records []Record) []Issue {
	var issues []Issue
	add := func(i int, id string, sev Severity, format string, args ...any) {
		issues = append(issues, Issue{Index: i, ID: id, Severity: sev, Message: fmt.Sprintf(format, args...)})
	}

	seen := make(map[string]int, len(records))
	for i, r := range records {
		if r.ID == "" {
			add(i, "", SeverityError, "missing id")
		} else if first, dup := seen[r.ID]; dup {
			add(i, r.ID, SeverityError, "duplicate id (first used by #%d)", first)
		} else {
			seen[r.ID] = i
		}

		if r.X == nil || r.Y == nil {
			add(i, r.ID, SeverityError, "missing x/y position")
		} else {
			if *r.X < 0 || *r.X > 100 {
				add(i, r.ID, SeverityWarning, "x=%g is outside 0-100", *r.X)
			}
			if *r.Y < 0 || *r.Y > 100 {
				add(i, r.ID, SeverityWarning, "y=%g is outside 0-100", *r.Y)
			}
		}

		if r.Name == "" {
			add(i, r.ID, SeverityWarning, "empty name")
		}
	}
	return issues
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}
