package audit

import "strings"

// ActionResource holds the verb and resource derived from a proxy action identifier.
type ActionResource struct {
	Action   string
	Resource string
}

// ParseAction splits an action identifier such as GET_WORK_SESSIONS into a lower-case verb ("get")
// and a singular resource ("work_session"). Identifiers without an underscore map to
// ("<lower action>", "unknown").
func ParseAction(action string) ActionResource {
	action = strings.TrimSpace(action)
	if action == "" {
		return ActionResource{Action: "unknown", Resource: "unknown"}
	}
	verb, rest, ok := strings.Cut(action, "_")
	if !ok || rest == "" {
		return ActionResource{Action: strings.ToLower(action), Resource: "unknown"}
	}
	return ActionResource{Action: strings.ToLower(verb), Resource: singular(strings.ToLower(rest))}
}

func singular(s string) string {
	switch {
	case strings.HasSuffix(s, "ies"):
		return s[:len(s)-3] + "y"
	case strings.HasSuffix(s, "ss"):
		return s
	case strings.HasSuffix(s, "s"):
		// settings stays plural: it names a single record.
		if s == "settings" {
			return s
		}
		return s[:len(s)-1]
	default:
		return s
	}
}
