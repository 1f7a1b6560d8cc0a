package cmapi

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"
)

// ValidationErrorType is the problem type URI of request validation failures.
const ValidationErrorType = "http://ns.adobe.com/adobecloud/validation-exception"

const (
	contentTypeProblemJSON = "application/problem+json"
	contentTypeJSON        = "application/json"
)

// problemBody is the RFC 7807 style body returned for validation failures.
type problemBody struct {
	Type   string   `json:"type"`
	Errors []string `json:"errors"`
}

// simpleErrorBody is the plain JSON error body.
type simpleErrorBody struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

// FaultTranslator turns failed responses of one resource family into *Error values.
// It is immutable and safe for concurrent use.
type FaultTranslator struct {
	family  Family
	entries map[Operation]registryEntry
}

// NewFaultTranslator creates a translator bound to the family's registry subset.
func NewFaultTranslator(family Family) *FaultTranslator {
	entries := make(map[Operation]registryEntry)

	for op, entry := range registry {
		if entry.family == family {
			entries[op] = entry
		}
	}

	return &FaultTranslator{
		family:  family,
		entries: entries,
	}
}

// Family returns the family the translator is bound to.
func (t *FaultTranslator) Family() Family {
	return t.family
}

// Translate builds the typed error for a failed call. It never fails itself:
// unknown operations fall back to the family's UnknownOperation kind and a nil
// response produces an error with status 0.
func (t *FaultTranslator) Translate(op Operation, resp *Response) *Error {
	if resp == nil {
		resp = &Response{}
	}

	kind := KindUnknownOperation
	severity := SeverityError
	template := fallbackTemplates[t.family]

	if entry, ok := t.entries[op]; ok {
		kind, severity, template = entry.resolve(resp.StatusCode)
	}

	apiErr := &Error{
		Kind:       kind,
		Operation:  op,
		Severity:   severity,
		StatusCode: resp.StatusCode,
		URL:        resp.URL,
	}

	diagnostic := fmt.Sprintf("%s (%d %s)", resp.URL, resp.StatusCode, reasonPhrase(resp))
	diagnostic += describeBody(resp, apiErr)

	apiErr.Message = renderTemplate(template, diagnostic)

	return apiErr
}

// describeBody returns the diagnostic suffix parsed from the body and records the
// parsed fields on apiErr. Unparseable bodies yield an empty suffix.
func describeBody(resp *Response, apiErr *Error) string {
	if len(resp.Body) == 0 {
		return ""
	}

	contentType := resp.Headers.Get("Content-Type")

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}

	if mediaType == contentTypeProblemJSON {
		var problem problemBody

		err := json.Unmarshal(resp.Body, &problem)
		if err != nil || problem.Type != ValidationErrorType {
			return ""
		}

		apiErr.Validation = problem.Errors

		return " - Validation Error(s): " + strings.Join(problem.Errors, ", ")
	}

	if !strings.Contains(strings.ToLower(contentType), contentTypeJSON) {
		return ""
	}

	var simple simpleErrorBody

	err = json.Unmarshal(resp.Body, &simple)
	if err != nil || simple.Message == "" {
		return ""
	}

	apiErr.Detail = simple.Message
	suffix := " - Detail: " + simple.Message

	if simple.ErrorCode != "" {
		apiErr.Code = simple.ErrorCode
		suffix += " (Code: " + simple.ErrorCode + ")"
	}

	return suffix
}

// reasonPhrase extracts the reason from the status line, falling back to the
// standard text for the code.
func reasonPhrase(resp *Response) string {
	if resp.Status != "" {
		prefix := strconv.Itoa(resp.StatusCode)

		reason := strings.TrimSpace(strings.TrimPrefix(resp.Status, prefix))
		if reason != "" {
			return reason
		}
	}

	return http.StatusText(resp.StatusCode)
}

func renderTemplate(template, diagnostic string) string {
	if !strings.Contains(template, "%s") {
		return template + ": " + diagnostic
	}

	return strings.ReplaceAll(template, "%s", diagnostic)
}
