// Package rpcserver is the JSON-RPC 2.0 tool server: a line-delimited
// stdio listener exposing secrets.get, secrets.list, and
// secrets.testPolicy so a language-model-driven agent can consume the
// vault without shelling out to the CLI. It holds one resolved client for
// its process lifetime and defers all authorization to it — the server
// adds no new authority of its own.
package rpcserver

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"

	"github.com/eric8810/authy/internal/client"
	"github.com/eric8810/authy/internal/engineerrors"
)

const jsonRPCVersion = "2.0"

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type getParams struct {
	Name string `json:"name"`
}

type listParams struct {
	Scope string `json:"scope"`
}

type testPolicyParams struct {
	Scope      string `json:"scope"`
	SecretName string `json:"secretName"`
}

// Server runs the tool server's request/response loop.
type Server struct {
	client *client.Client
}

// New builds a Server bound to an already-authenticated client.
func New(c *client.Client) *Server {
	return &Server{client: c}
}

// Serve reads one JSON-RPC request per line from r, writes one response
// per line to w, until r is exhausted.
func (s *Server) Serve(r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	enc := json.NewEncoder(w)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := enc.Encode(s.handle(line)); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func (s *Server) handle(line []byte) response {
	var req request
	if err := json.Unmarshal(line, &req); err != nil {
		return response{JSONRPC: jsonRPCVersion, Error: &rpcError{Code: -32700, Message: "parse error"}}
	}

	resp := response{JSONRPC: jsonRPCVersion, ID: req.ID}

	result, err := s.dispatch(req.Method, req.Params)
	if err != nil {
		resp.Error = toRPCError(err)
		return resp
	}
	resp.Result = result
	return resp
}

func (s *Server) dispatch(method string, params json.RawMessage) (interface{}, error) {
	switch method {
	case "secrets.get":
		var p getParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, errors.New("invalid params")
		}
		value, ok, err := s.client.Get(p.Name)
		if err != nil {
			return nil, err
		}
		if !ok {
			return map[string]interface{}{"found": false}, nil
		}
		return map[string]interface{}{"found": true, "value": value}, nil

	case "secrets.list":
		var p listParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, errors.New("invalid params")
		}
		names, err := s.client.List(p.Scope)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"names": names}, nil

	case "secrets.testPolicy":
		var p testPolicyParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, errors.New("invalid params")
		}
		allowed, err := s.client.TestPolicy(p.Scope, p.SecretName)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"allowed": allowed}, nil

	default:
		return nil, errors.New("method not found")
	}
}

func toRPCError(err error) *rpcError {
	var engineErr *engineerrors.Error
	if errors.As(err, &engineErr) {
		return &rpcError{Code: -32000 - engineErr.ExitCode(), Message: engineErr.Error()}
	}
	return &rpcError{Code: -32603, Message: err.Error()}
}
