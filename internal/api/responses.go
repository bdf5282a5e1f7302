package api

import (
	"encoding/json"
	"net/http"
)

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ErrorResponse is the standard error body. Detail is a string for
// handler errors and a []ValidationIssue for request validation failures,
// matching what existing clients already parse.
type ErrorResponse struct {
	Detail any `json:"detail"`
}

// ValidationIssue describes one invalid or missing request field.
type ValidationIssue struct {
	Type string   `json:"type"`
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
}

// Validation issue types.
const (
	IssueMissing     = "missing"
	IssueStringType  = "string_type"
	IssueJSONInvalid = "json_invalid"
	IssueDictType    = "model_attributes_type"
)

// WriteError writes a JSON error response with a string detail.
func WriteError(w http.ResponseWriter, status int, detail string) {
	WriteJSON(w, status, ErrorResponse{Detail: detail})
}

// WriteValidationError writes a 422 with a single validation issue.
func WriteValidationError(w http.ResponseWriter, issue ValidationIssue) {
	WriteJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Detail: []ValidationIssue{issue}})
}

func missingField(loc ...string) ValidationIssue {
	return ValidationIssue{Type: IssueMissing, Loc: loc, Msg: "Field required"}
}
