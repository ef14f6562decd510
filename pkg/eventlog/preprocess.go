package eventlog

import "strings"

// RenameRule mutates a single event during Log.Rename.
type RenameRule func(e *Event)

// RenameWorkflowActivities appends the lifecycle transition to activity
// names with the given prefix, so e.g. "W_Validate application" executed
// under "suspend" becomes "W_Validate application|suspend". Workflow events
// in the BPIC logs are only distinguishable this way.
func RenameWorkflowActivities(prefix string) RenameRule {
	return func(e *Event) {
		if strings.HasPrefix(e.Activity, prefix) {
			lc := e.Lifecycle
			if lc == "" {
				lc = "Unknown"
			}
			e.Activity = e.Activity + "|" + lc
		}
	}
}

// RenameRolesToResources copies the organizational role into the resource
// field. Logs that only record roles (BPIC 2020) get resource-keyed
// features this way.
func RenameRolesToResources() RenameRule {
	return func(e *Event) {
		if e.Role != "" {
			e.Resource = e.Role
		}
	}
}

// KeepCompletedCases returns a filter predicate keeping only cases that
// contain at least one of the given completion activities.
func KeepCompletedCases(completionActivities ...string) func(c *Case) bool {
	want := make(map[string]struct{}, len(completionActivities))
	for _, a := range completionActivities {
		want[a] = struct{}{}
	}
	return func(c *Case) bool {
		for i := range c.Events {
			if _, ok := want[c.Events[i].Activity]; ok {
				return true
			}
		}
		return false
	}
}

// Profile bundles the dataset-specific preprocessing knobs so a dataset is
// configured by value rather than by forking the loader.
type Profile struct {
	// WorkflowPrefix enables lifecycle renaming for activities with this
	// prefix ("" disables).
	WorkflowPrefix string

	// RolesAsResources copies org:role into the resource field.
	RolesAsResources bool

	// CompletionActivities, when non-empty, drops cases containing none of
	// them.
	CompletionActivities []string

	// ExcludedResources are removed from the resource selection (system
	// accounts and batch users).
	ExcludedResources []string

	// OutcomeActivity marks a successful case when present in its trace.
	OutcomeActivity string
}

// Apply runs the profile's preprocessing on the log and returns the
// (possibly filtered) result.
func (p Profile) Apply(l *Log) *Log {
	if p.RolesAsResources {
		l.Rename(RenameRolesToResources())
	}
	if p.WorkflowPrefix != "" {
		l.Rename(RenameWorkflowActivities(p.WorkflowPrefix))
	}
	if len(p.CompletionActivities) > 0 {
		l = l.Filter(KeepCompletedCases(p.CompletionActivities...))
	}
	return l
}
