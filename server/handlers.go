package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/lvillar/invoicepdf"
	"github.com/lvillar/invoicepdf/datactx"
	"github.com/lvillar/invoicepdf/scene"
	"github.com/lvillar/invoicepdf/store"
)

// Request is the body of the template and document endpoints.
type Request struct {
	Template json.RawMessage `json:"template"`
	// Data is an inline data context. It is ignored when DocumentID is set.
	Data         json.RawMessage `json:"data,omitempty"`
	DocumentKind string          `json:"documentKind,omitempty"` // default invoice
	DocumentID   uint            `json:"documentId,omitempty"`
	// Mode applies to validate only: strict (default) or lenient.
	Mode string `json:"mode,omitempty"`
	// Paged makes preview return one section per output page.
	Paged bool `json:"paged,omitempty"`
}

// Problem is one template validation error.
type Problem struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

// ValidateResponse is returned by the validate endpoint.
type ValidateResponse struct {
	Valid    bool      `json:"valid"`
	Elements int       `json:"elements"`
	Warnings []string  `json:"warnings,omitempty"`
	Problems []Problem `json:"problems,omitempty"`
}

// validate handles POST /v1/templates/validate.
func (s *Server) validate(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r)
	if !ok {
		return
	}
	mode := scene.Strict
	switch req.Mode {
	case "", "strict":
	case "lenient":
		mode = scene.Lenient
	default:
		writeError(w, http.StatusBadRequest, "invalid mode", req.Mode)
		return
	}

	g, err := s.engine.Validate(req.Template, mode)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, ValidateResponse{Problems: problems(err)})
		return
	}
	writeJSON(w, http.StatusOK, ValidateResponse{Valid: true, Elements: len(g.Elements), Warnings: g.Warnings})
}

// preview handles POST /v1/templates/preview. Without data or a document
// id the template is previewed against an empty context.
func (s *Server) preview(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r)
	if !ok {
		return
	}
	tpl, data, ok := s.inputs(w, r, req, true)
	if !ok {
		return
	}

	var (
		out string
		err error
	)
	if req.Paged {
		out, err = s.engine.PreviewPages(r.Context(), tpl, data)
	} else {
		out, err = s.engine.Preview(r.Context(), tpl, data)
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, out)
}

// render handles POST /v1/documents/render.
func (s *Server) render(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r)
	if !ok {
		return
	}
	tpl, data, ok := s.inputs(w, r, req, false)
	if !ok {
		return
	}

	var buf bytes.Buffer
	res, err := s.engine.Render(r.Context(), tpl, data, &buf)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	h := w.Header()
	h.Set("Content-Type", "application/pdf")
	h.Set("Content-Length", strconv.Itoa(buf.Len()))
	h.Set("X-Render-Path", string(res.Path))
	h.Set("X-Render-Id", res.ID)
	h.Set("X-Render-Pages", strconv.Itoa(res.Pages))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request) (*Request, bool) {
	var req Request
	body := http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large", "")
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return nil, false
	}
	if len(req.Template) == 0 || string(req.Template) == "null" {
		writeError(w, http.StatusBadRequest, "template is required", "")
		return nil, false
	}
	return &req, true
}

// inputs decodes the template and resolves the data context.
func (s *Server) inputs(w http.ResponseWriter, r *http.Request, req *Request, optionalData bool) (*scene.Template, datactx.Context, bool) {
	tpl, err := scene.Decode(req.Template)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, ValidateResponse{Problems: problems(err)})
		return nil, nil, false
	}

	switch {
	case req.DocumentID != 0:
		if s.docs == nil {
			writeError(w, http.StatusServiceUnavailable, "document store not configured", "")
			return nil, nil, false
		}
		kind := req.DocumentKind
		if kind == "" {
			kind = "invoice"
		}
		snap, err := s.docs.Load(r.Context(), kind, req.DocumentID)
		if err != nil {
			s.fail(w, r, err)
			return nil, nil, false
		}
		return tpl, snap, true

	case len(req.Data) > 0 && string(req.Data) != "null":
		snap, err := datactx.Decode(req.Data)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid data", err.Error())
			return nil, nil, false
		}
		return tpl, snap, true

	case optionalData:
		return tpl, (&datactx.Snapshot{}).Freeze(), true
	}
	writeError(w, http.StatusBadRequest, "data or documentId is required", "")
	return nil, nil, false
}

// fail maps engine and store errors to responses.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var ve *scene.ValidationError
	var ff *invoicepdf.FallbackFailure
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusUnprocessableEntity, ValidateResponse{Problems: problems(err)})
	case errors.Is(err, invoicepdf.ErrNoGraph):
		writeError(w, http.StatusUnprocessableEntity, "template has no element graph", "")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "document not found", err.Error())
	case errors.Is(err, store.ErrUnknownKind):
		writeError(w, http.StatusBadRequest, "unknown document kind", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "render timed out", "")
	case errors.Is(err, context.Canceled):
		// Client went away.
	case errors.As(err, &ff):
		s.log.Error().Err(err).Str("request_id", chimiddleware.GetReqID(r.Context())).Msg("document could not be rendered")
		writeError(w, http.StatusInternalServerError, "document could not be rendered", "")
	default:
		s.log.Error().Err(err).Str("request_id", chimiddleware.GetReqID(r.Context())).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error", "")
	}
}

func problems(err error) []Problem {
	var out []Problem
	for _, ve := range scene.Problems(err) {
		p := Problem{Path: ve.Path, Reason: ve.Reason}
		if ve.Err != nil {
			p.Detail = ve.Err.Error()
		}
		out = append(out, p)
	}
	if out == nil {
		out = []Problem{{Path: "$", Reason: err.Error()}}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message, detail string) {
	resp := map[string]string{"error": message}
	if detail != "" {
		resp["detail"] = detail
	}
	writeJSON(w, status, resp)
}
