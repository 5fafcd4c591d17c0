package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/clbanning/mxj/v2"
)

// format is the wire format of a request and its response: GET speaks XML, POST speaks JSON.
type format int

const (
	formatJSON format = iota
	formatXML
)

// xmlRoot is the root element of every XML response.
const xmlRoot = "response"

func init() {
	// Upstream names, comments and echoed caller input may carry &, < and >.
	mxj.XMLEscapeChars(true)
}

func formatOf(r *http.Request) format {
	if r.Method == http.MethodGet {
		return formatXML
	}
	return formatJSON
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

func (e ErrorResponse) toMap() map[string]any {
	m := map[string]any{"error": e.Error}
	if len(e.Details) > 0 {
		details := make([]any, len(e.Details))
		for i, d := range e.Details {
			details[i] = d
		}
		m["details"] = details
	}
	return m
}

// writeBody renders body in the given format. XML goes through mxj without a header or indentation.
func writeBody(w http.ResponseWriter, f format, status int, body map[string]any, logger *slog.Logger) {
	if f == formatXML {
		data, err := mxj.Map(body).Xml(xmlRoot)
		if err != nil {
			logger.Error("failed to encode xml response", "error", err)
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("<response><error>internal server error</error></response>"))
			return
		}
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(status)
		if _, err := w.Write(data); err != nil {
			logger.Error("failed to write xml response", "error", err)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("failed to write json response", "error", err)
	}
}

// writeError sends an ErrorResponse in the given format.
func writeError(w http.ResponseWriter, f format, status int, resp ErrorResponse, logger *slog.Logger) {
	writeBody(w, f, status, resp.toMap(), logger)
}

// writeJSONError is the short form used where only a message is known.
func writeJSONError(w http.ResponseWriter, message string, status int, logger *slog.Logger) {
	writeError(w, formatJSON, status, ErrorResponse{Error: message}, logger)
}
