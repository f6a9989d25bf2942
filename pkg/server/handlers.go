package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/dagscope/pkg/cache"
	"github.com/matzehuels/dagscope/pkg/compiler"
	"github.com/matzehuels/dagscope/pkg/core/render"
	"github.com/matzehuels/dagscope/pkg/engine"
	derrors "github.com/matzehuels/dagscope/pkg/errors"
	"github.com/matzehuels/dagscope/pkg/graph"
)

const maxBodySize = 32 << 20

type diagnosticBody struct {
	Code    derrors.Code `json:"code"`
	Message string       `json:"message"`
}

type replyBody struct {
	Command     engine.Command   `json:"command"`
	Orientation string           `json:"orientation"`
	Changed     bool             `json:"changed"`
	Diagnostics []diagnosticBody `json:"diagnostics"`
	Highlight   *highlightBody   `json:"highlight,omitempty"`
	Content     string           `json:"content,omitempty"`
	Format      string           `json:"format,omitempty"`
	LayoutSeq   uint64           `json:"layout_seq,omitempty"`
}

type highlightBody struct {
	Nodes []string `json:"nodes"`
	Edges []string `json:"edges"`
}

type errorBody struct {
	Error diagnosticBody `json:"error"`
}

func newReplyBody(r *engine.Reply) replyBody {
	body := replyBody{
		Command:     r.Command,
		Orientation: r.Orientation.String(),
		Changed:     r.Changed,
		Diagnostics: make([]diagnosticBody, 0, len(r.Diagnostics)),
		Content:     string(r.Content),
		Format:      r.Format,
		LayoutSeq:   r.LayoutSeq,
	}
	for _, d := range r.Diagnostics {
		body.Diagnostics = append(body.Diagnostics, diagnosticBody{Code: d.Code, Message: d.Message})
	}
	if r.Highlight != nil {
		body.Highlight = &highlightBody{Nodes: r.Highlight.Nodes, Edges: r.Highlight.Edges}
	}
	return body
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
	}
	code := derrors.GetCode(err)
	if code == "" {
		code = derrors.ErrCodeInternal
	}
	writeJSON(w, status, errorBody{Error: diagnosticBody{Code: code, Message: derrors.UserMessage(err)}})
}

func statusFor(err error) int {
	switch derrors.GetCode(err) {
	case derrors.ErrCodeMalformedPayload, derrors.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case derrors.ErrCodeNotFound, derrors.ErrCodeFileNotFound:
		return http.StatusNotFound
	case derrors.ErrCodeUnsupportedFormat:
		return http.StatusUnsupportedMediaType
	case derrors.ErrCodeCompiler, derrors.ErrCodeNetwork:
		return http.StatusBadGateway
	case derrors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) send(w http.ResponseWriter, r *http.Request, msg engine.Message) {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()
	reply, err := s.engine.Send(ctx, msg)
	if err != nil {
		if ctx.Err() != nil {
			err = derrors.Wrap(derrors.ErrCodeTimeout, err, "%s", msg.Command())
		}
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newReplyBody(reply))
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		return nil, derrors.Wrap(derrors.ErrCodeMalformedPayload, err, "read body")
	}
	return data, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"nodes":  s.engine.NodeCount(),
	})
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	data, err := readBody(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	msg, err := engine.DecodeMessage(data)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.send(w, r, msg)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	data, err := readBody(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := graph.DecodePayload(data)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.send(w, r, engine.Update{Payload: p})
}

func (s *Server) handleSimple(msg engine.Message) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) { s.send(w, r, msg) }
}

func (s *Server) handleNode(build func(id string) engine.Message) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.send(w, r, build(chi.URLParam(r, "id")))
	}
}

var contentTypes = map[string]string{
	render.FormatSVG:  "image/svg+xml",
	render.FormatDOT:  "text/vnd.graphviz; charset=utf-8",
	render.FormatJSON: "application/json",
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = render.FormatSVG
	}

	if s.exports != nil {
		hash, o := s.engine.SnapshotHash()
		key := s.exportKey(hash, format, o)
		if content, ok, err := s.exports.Get(r.Context(), key); err == nil && ok {
			s.writeExport(w, format, content)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()
	reply, err := s.engine.Send(ctx, engine.Save{Format: format})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	// The state may have moved on since the lookup; the reply carries the
	// hash of the state that was actually exported.
	if s.exports != nil && reply.SnapshotHash != "" {
		key := s.exportKey(reply.SnapshotHash, format, reply.Orientation)
		if err := s.exports.Set(r.Context(), key, reply.Content, 0); err != nil {
			s.logger.Warn("export cache write failed", "error", err)
		}
	}
	s.writeExport(w, format, reply.Content)
}

func (s *Server) exportKey(hash, format string, o render.Orientation) string {
	return s.keyer.ExportKey(hash, cache.ExportKeyOpts{Format: format, Orientation: string(o)})
}

func (s *Server) writeExport(w http.ResponseWriter, format string, content []byte) {
	w.Header().Set("Content-Type", contentTypes[format])
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(content)
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Snapshot())
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	l, ok := s.engine.Layout()
	if !ok {
		s.writeError(w, r, derrors.New(derrors.ErrCodeNotFound, "no layout computed yet"))
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// handleCompile accepts a compiler.CompileRequest. Unknown fields are
// rejected so a misspelled key never falls back to the module selection.
func (s *Server) handleCompile(w http.ResponseWriter, r *http.Request) {
	var req compiler.CompileRequest
	data, err := readBody(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(bytes.TrimSpace(data)) > 0 {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			s.writeError(w, r, derrors.Wrap(derrors.ErrCodeMalformedPayload, err, "compile request"))
			return
		}
	}
	if len(req.ModuleFilePaths) == 0 && s.modules != nil {
		paths, err := s.modules.SelectedPaths(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		req.ModuleFilePaths = paths
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()
	p, err := s.compiler.Compile(ctx, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.send(w, r, engine.Update{Payload: p})
}
