package mcp

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/runlens/runlens/internal/buildinfo"
	"github.com/runlens/runlens/internal/tools"
)

// Server exposes a tool registry over MCP: JSON-RPC 2.0 requests
// POSTed to a single endpoint. It implements http.Handler and is
// mounted on the insight server so external MCP hosts can drive the
// same analytics tools the built-in agent uses.
type Server struct {
	registry *tools.Registry
	logger   *slog.Logger
}

func NewServer(registry *tools.Registry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{registry: registry, logger: logger}
}

// incoming covers both requests and notifications; a nil ID marks a
// notification.
type incoming struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *int64          `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "read error", http.StatusBadRequest)
		return
	}

	var msg incoming
	if err := json.Unmarshal(body, &msg); err != nil {
		s.writeResponse(w, &Response{
			JSONRPC: jsonrpcVersion,
			Error:   &RPCError{Code: codeParseError, Message: "parse error"},
		})
		return
	}

	// Notifications get acknowledged and dropped.
	if msg.ID == nil {
		s.logger.Debug("mcp notification", "method", msg.Method)
		w.WriteHeader(http.StatusAccepted)
		return
	}

	resp := s.dispatch(r, msg)
	resp.JSONRPC = jsonrpcVersion
	resp.ID = *msg.ID
	s.writeResponse(w, resp)
}

func (s *Server) dispatch(r *http.Request, msg incoming) *Response {
	switch msg.Method {
	case "initialize":
		return s.resultResponse(initializeResult{
			ProtocolVersion: protocolVersion,
			ServerInfo:      serverInfo{Name: "runlens", Version: buildinfo.Version},
			Capabilities:    serverCapabilities{Tools: &struct{}{}},
		})

	case "ping":
		return s.resultResponse(map[string]any{})

	case "tools/list":
		defs := make([]ToolDefinition, 0)
		for _, name := range s.registry.Names() {
			t, ok := s.registry.Get(name)
			if !ok {
				continue
			}
			defs = append(defs, ToolDefinition{
				Name:        t.Name,
				Description: t.Description,
				InputSchema: tools.Schema(t.Params),
			})
		}
		return s.resultResponse(toolsListResult{Tools: defs})

	case "tools/call":
		var params struct {
			Name      string         `json:"name"`
			Arguments map[string]any `json:"arguments"`
		}
		if err := json.Unmarshal(msg.Params, &params); err != nil || params.Name == "" {
			return &Response{Error: &RPCError{Code: codeInvalidParams, Message: "tools/call requires a tool name"}}
		}

		payload, isErr := s.registry.Execute(r.Context(), params.Name, params.Arguments)
		return s.resultResponse(callToolResult{
			Content: []ContentBlock{{Type: "text", Text: payload}},
			IsError: isErr,
		})

	default:
		return &Response{Error: &RPCError{
			Code:    codeMethodNotFound,
			Message: fmt.Sprintf("method %q not supported", msg.Method),
		}}
	}
}

func (s *Server) resultResponse(result any) *Response {
	raw, err := json.Marshal(result)
	if err != nil {
		s.logger.Error("encoding mcp result", "error", err)
		return &Response{Error: &RPCError{Code: codeInvalidRequest, Message: "internal encoding error"}}
	}
	return &Response{Result: raw}
}

func (s *Server) writeResponse(w http.ResponseWriter, resp *Response) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("writing mcp response", "error", err)
	}
}
