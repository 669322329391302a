package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/strogmv/assembler/assembler"
	"github.com/strogmv/assembler/internal/pkg/logger"
)

// Problem is an RFC 7807 error body.
type Problem struct {
	Type      string `json:"type"`
	Title     string `json:"title"`
	Status    int    `json:"status"`
	Detail    string `json:"detail,omitempty"`
	Code      string `json:"code,omitempty"`
	Stage     string `json:"stage,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func newProblem(status int, detail string) *Problem {
	return &Problem{Type: "about:blank", Title: http.StatusText(status), Status: status, Detail: detail}
}

// problemFor maps an assembly error to a response. Deployment mistakes are
// the caller's fault; UNKNOWN_BUG is ours.
func problemFor(err error) *Problem {
	var de *assembler.DeploymentError
	if !errors.As(err, &de) {
		return newProblem(http.StatusInternalServerError, err.Error())
	}
	status := http.StatusUnprocessableEntity
	switch de.Code {
	case assembler.ErrCodeDuplicateApplication, assembler.ErrCodeDuplicateDeploymentID, assembler.ErrCodeJndiCollision:
		status = http.StatusConflict
	case assembler.ErrCodeAppNotFound:
		status = http.StatusNotFound
	case assembler.ErrCodeUnknownBug, assembler.ErrCodeJndiLedger:
		status = http.StatusInternalServerError
	}
	p := newProblem(status, err.Error())
	p.Code = de.Code
	p.Stage = string(de.Stage)
	return p
}

func writeError(w http.ResponseWriter, r *http.Request, p *Problem) {
	p.RequestID = middleware.GetReqID(r.Context())
	if p.Status >= http.StatusInternalServerError {
		logger.From(r.Context()).Error("request failed", "path", r.URL.Path, "code", p.Code, "detail", p.Detail)
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
