// Copyright 2026 © The Praxis Authors
// SPDX-License-Identifier: Apache-2.0

// Package mcp exposes the registry's active skill set as MCP tools, so
// external agents can drive the same skills over the Model Context Protocol.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jllopis/praxis/pkg/skills"
)

// Server wraps the mcp-go server over a skill registry.
type Server struct {
	mcpServer *server.MCPServer
	registry  *skills.Registry
}

// NewServer creates an MCP server exposing the registry's skills.
func NewServer(name, version string, registry *skills.Registry) *Server {
	return &Server{
		mcpServer: server.NewMCPServer(name, version),
		registry:  registry,
	}
}

// RegisterActiveSet registers one MCP tool per skill in the current active
// set. Dispatch goes through registry.Execute, so the filter, parameter
// schema, and error discipline apply unchanged.
func (s *Server) RegisterActiveSet() {
	for _, skill := range s.registry.ActiveSet() {
		s.registerSkill(skill)
	}
}

func (s *Server) registerSkill(skill skills.Skill) {
	opts := []mcp.ToolOption{mcp.WithDescription(skill.Description)}
	for _, param := range skill.Parameters {
		opts = append(opts, paramOption(param))
	}
	tool := mcp.NewTool(skill.Name, opts...)

	name := skill.Name
	s.mcpServer.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})
		out, err := s.registry.Execute(ctx, name, args)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if out == nil {
			return mcp.NewToolResultText("ok"), nil
		}
		blob, err := json.Marshal(out)
		if err != nil {
			return mcp.NewToolResultText(fmt.Sprintf("%v", out)), nil
		}
		return mcp.NewToolResultText(string(blob)), nil
	})
}

func paramOption(param skills.ParamSpec) mcp.ToolOption {
	var propOpts []mcp.PropertyOption
	if param.Description != "" {
		propOpts = append(propOpts, mcp.Description(param.Description))
	}
	if param.Required {
		propOpts = append(propOpts, mcp.Required())
	}
	switch param.Type {
	case "int", "float":
		return mcp.WithNumber(param.Name, propOpts...)
	case "bool":
		return mcp.WithBoolean(param.Name, propOpts...)
	default:
		if len(param.Enum) > 0 {
			propOpts = append(propOpts, mcp.Enum(param.Enum...))
		}
		return mcp.WithString(param.Name, propOpts...)
	}
}

// ServeStdio starts the server on stdio and blocks.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
