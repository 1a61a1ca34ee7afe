package apperr

// Problem is an RFC 7807 problem-details document, the generalized shape
// of the teacher's http.ErrorResponse.
type Problem struct {
	Type     string       `json:"type,omitempty"`
	Title    string       `json:"title"`
	Status   int          `json:"status"`
	Detail   string       `json:"detail,omitempty"`
	Instance string       `json:"instance,omitempty"`
	Errors   []FieldError `json:"errors,omitempty"`
}

// FieldError carries one schema/payload validation failure. Position and
// Pointer are populated for XML/XPath validation (spec.md §6's
// POST /validate "errors list with reason/position/pointer"); Field is
// used for plain JSON payload validation.
type FieldError struct {
	Field    string `json:"field,omitempty"`
	Message  string `json:"message"`
	Reason   string `json:"reason,omitempty"`
	Position string `json:"position,omitempty"`
	Pointer  string `json:"pointer,omitempty"`
}

// titleByKind gives each Kind a stable, human-readable title so clients
// can group on it without parsing Detail.
var titleByKind = map[Kind]string{
	KindUser:             "Bad Request",
	KindUnauthorizedUser: "Unauthorized",
	KindForbidden:        "Forbidden",
	KindNotFound:         "Not Found",
	KindUpstreamClient:   "Upstream Client Error",
	KindUpstreamServer:   "Upstream Server Error",
	KindUpstreamTimeout:  "Upstream Timeout",
	KindConfig:           "Configuration Error",
	KindSystem:           "Internal Server Error",
}

// ToProblem renders err as a Problem. Unknown error types become a generic
// 500 so internal details never leak to the caller.
func ToProblem(err error, instance string) Problem {
	ae, ok := err.(*Error)
	if !ok {
		return Problem{
			Type:     "about:blank",
			Title:    "Internal Server Error",
			Status:   500,
			Detail:   "an unexpected error occurred",
			Instance: instance,
		}
	}
	title := titleByKind[ae.Kind]
	if title == "" {
		title = "Error"
	}
	return Problem{
		Type:     "https://github.com/CSCfi/metadata-submitter-sub002/errors/" + string(ae.Kind),
		Title:    title,
		Status:   ae.StatusCode(),
		Detail:   ae.Message,
		Instance: instance,
		Errors:   ae.FieldErrors,
	}
}
