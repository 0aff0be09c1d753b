// Copyright 2024 The SuperGenius Authors
// This file is part of the sgnode-go library.
//
// Licensed under the GNU Lesser General Public License, Version 3.

// Package jsonrpc is the §6 JSON-RPC surface: a thin request/response
// dispatcher shared by an HTTP listener and a gorilla/websocket listener,
// per design note #1's {Http(HttpListener), Ws(WsListener)} variant.
package jsonrpc

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/GeniusVentures/sgnode-go/log"
)

// Request is a JSON-RPC 2.0 request object.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// Response is a JSON-RPC 2.0 response object.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Handler answers one method call.
type Handler func(params json.RawMessage) (interface{}, error)

// Server dispatches JSON-RPC requests to registered Handlers over either
// transport variant.
type Server struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	logger   log.Logger
	upgrader websocket.Upgrader
}

// NewServer returns an empty Server.
func NewServer() *Server {
	return &Server{
		handlers: make(map[string]Handler),
		logger:   log.New("component", "jsonrpc"),
		upgrader: websocket.Upgrader{ReadBufferSize: 4096, WriteBufferSize: 4096},
	}
}

// RegisterMethod adds or replaces the handler for method.
func (s *Server) RegisterMethod(method string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[method] = h
}

func (s *Server) dispatch(req Request) Response {
	resp := Response{JSONRPC: "2.0", ID: req.ID}
	s.mu.RLock()
	h, ok := s.handlers[req.Method]
	s.mu.RUnlock()
	if !ok {
		resp.Error = &RPCError{Code: -32601, Message: "method not found"}
		return resp
	}
	result, err := h(req.Params)
	if err != nil {
		resp.Error = &RPCError{Code: -32000, Message: err.Error()}
		return resp
	}
	raw, err := json.Marshal(result)
	if err != nil {
		resp.Error = &RPCError{Code: -32603, Message: err.Error()}
		return resp
	}
	resp.Result = raw
	return resp
}

// ServeHTTP implements the Http(HttpListener) variant: one request body,
// one response body.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request", http.StatusBadRequest)
		return
	}
	resp := s.dispatch(req)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// ServeWS implements the Ws(WsListener) variant: upgrades the connection
// and answers one request per inbound frame until the peer disconnects.
func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	for {
		var req Request
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		resp := s.dispatch(req)
		if err := conn.WriteJSON(resp); err != nil {
			return
		}
	}
}
