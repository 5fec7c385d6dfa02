package couch

import (
	"errors"
	"net/http"
	"testing"

	"github.com/tomymaritano/viny-sub001/pkg/core"
)

// statusErr mimics kivik's transport errors, which expose their HTTP status.
type statusErr struct {
	status int
}

func (e *statusErr) Error() string   { return http.StatusText(e.status) }
func (e *statusErr) HTTPStatus() int { return e.status }

func TestClassifyHTTPStatuses(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   core.Code
	}{
		{"not found", http.StatusNotFound, core.CodeNotFound},
		{"unauthorized", http.StatusUnauthorized, core.CodePermissionDenied},
		{"forbidden", http.StatusForbidden, core.CodePermissionDenied},
		{"conflict", http.StatusConflict, core.CodeConflict},
		{"request timeout", http.StatusRequestTimeout, core.CodeTimeout},
		{"gateway timeout", http.StatusGatewayTimeout, core.CodeTimeout},
		{"storage full", http.StatusInsufficientStorage, core.CodeStorageFull},
		{"teapot", http.StatusTeapot, core.CodeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify("op", &statusErr{status: tt.status})
			if got.Code != tt.want {
				t.Errorf("classify(%d) = %s, want %s", tt.status, got.Code, tt.want)
			}
			if got.Op != "op" {
				t.Errorf("op = %q", got.Op)
			}
		})
	}
}

func TestClassifyNetworkErrors(t *testing.T) {
	for _, msg := range []string{
		"dial tcp 127.0.0.1:5984: connect: connection refused",
		"dial tcp: lookup couch.local: no such host",
	} {
		got := classify("listNotes", errors.New(msg))
		if got.Code != core.CodeNetwork {
			t.Errorf("classify(%q) = %s, want NETWORK_ERROR", msg, got.Code)
		}
	}
	if got := classify("listNotes", errors.New("something else broke")); got.Code != core.CodeUnknown {
		t.Errorf("unrecognized error = %s, want UNKNOWN_ERROR", got.Code)
	}
}

func TestClassifyNil(t *testing.T) {
	if got := classify("op", nil); got != nil {
		t.Errorf("classify(nil) = %v", got)
	}
}

func TestDocIDNamespacing(t *testing.T) {
	if got := kvDocID("app", "theme"); got != "kv:app:theme" {
		t.Errorf("kvDocID = %q", got)
	}
	// Note and notebook ids live in distinct namespaces of one database, so
	// the same logical id never collides across types.
	if notePrefix+"x" == notebookPrefix+"x" {
		t.Error("note and notebook prefixes must differ")
	}
}

func TestTagsMatch(t *testing.T) {
	tags := []string{"Work", "project-alpha"}
	if !tagsMatch(tags, "work") {
		t.Error("case-insensitive tag match failed")
	}
	if !tagsMatch(tags, "alpha") {
		t.Error("substring tag match failed")
	}
	if tagsMatch(tags, "beta") {
		t.Error("unexpected match")
	}
	if tagsMatch(nil, "work") {
		t.Error("nil tags matched")
	}
}
