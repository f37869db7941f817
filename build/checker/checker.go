// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package checker verifies the tensor shapes of a workspace.
//
// Checking runs in phases:
//  1. names are resolved (see package scope).
//  2. a vertex is created for every expression producing a tensor.
//  3. an edge is created for every call, linking argument vertices
//     to the vertex of the call through the called flow.
//  4. edges are solved until no more edges can be solved:
//     solving an edge computes the type of the vertex of its call.
//  5. declared return types are compared to the inferred ones.
//
// A resolution error marked as non recoverable stops the check after
// the first phase. All other diagnostics are accumulated and the
// checked graph is available even if some errors occurred.
package checker

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"
	"github.com/gx-org/nn/build/ast"
	"github.com/gx-org/nn/build/fmterr"
	"github.com/gx-org/nn/build/scope"
	"github.com/gx-org/nn/build/types"
	"github.com/gx-org/nn/build/workspace"
)

// Errors returned by queries on a checked workspace.
var (
	// ErrNodeIsNotVertex is returned when a node does not produce a tensor.
	ErrNodeIsNotVertex = errors.New("node is not a vertex")
	// ErrNodeHasNoType is returned when the type of a vertex could not be inferred.
	ErrNodeHasNoType = errors.New("node has no type")
	// ErrFileNotInWorkspace is returned when a file is not in the workspace.
	ErrFileNotInWorkspace = errors.New("file not in workspace")
	// ErrFlowNotFound is returned when a flow is not declared in a file.
	ErrFlowNotFound = errors.New("flow not found")
)

type (
	// Option configures a check.
	Option func(*Context)

	// Context is the state of the check of a workspace.
	Context struct {
		Workspace *workspace.Workspace
		Scope     *scope.WorkspaceScope

		errs   fmterr.Errors
		logger *slog.Logger

		vertices map[ast.NodeID]*Vertex
		// ordered lists distinct vertices in creation order.
		ordered  []*Vertex
		edges    []*Edge
		calls    map[ast.NodeID]*Edge
		callees  map[*scope.Flow]*Callee
		returns  map[*scope.DeclarationScope]*Vertex
		implicit map[ast.NodeID][]*Vertex

		passCounts []int
	}
)

// WithLogger sets the logger used to trace the check at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Context) {
		c.logger = logger
	}
}

// Check a workspace. A context is always returned: callers need to check
// the diagnostics before using the types of vertices.
func Check(ws *workspace.Workspace, opts ...Option) *Context {
	c := &Context{
		Workspace: ws,
		logger:    slog.New(slog.DiscardHandler),
		vertices:  make(map[ast.NodeID]*Vertex),
		calls:     make(map[ast.NodeID]*Edge),
		callees:   make(map[*scope.Flow]*Callee),
		returns:   make(map[*scope.DeclarationScope]*Vertex),
		implicit:  make(map[ast.NodeID][]*Vertex),
	}
	for _, opt := range opts {
		opt(c)
	}
	for _, d := range ws.Diagnostics().Diagnostics() {
		c.errs.Append(d)
	}
	ctx := context.Background()
	c.Scope = scope.Resolve(ws, &c.errs)
	c.logger.DebugContext(ctx, "names resolved", "files", ws.Len(), "diagnostics", c.errs.Len())
	if c.errs.NonRecoverable() {
		c.logger.DebugContext(ctx, "non recoverable errors: check stopped")
		return c
	}
	c.buildVertices()
	c.buildEdges()
	c.logger.DebugContext(ctx, "graph built", "vertices", len(c.ordered), "edges", len(c.edges))
	c.solve(ctx)
	c.reportUnresolvable()
	c.checkReturnTypes()
	return c
}

// Diagnostics returns all the diagnostics of the check, including
// the diagnostics of the workspace loading.
func (c *Context) Diagnostics() *fmterr.Errors {
	return &c.errs
}

// NonRecoverable returns true if the check stopped after name resolution.
func (c *Context) NonRecoverable() bool {
	return c.errs.NonRecoverable()
}

// Vertices returns all the vertices in creation order.
func (c *Context) Vertices() []*Vertex {
	return c.ordered
}

// Edges returns all the edges in creation order.
func (c *Context) Edges() []*Edge {
	return c.edges
}

// PassCounts returns the number of passed edges at the end of each solver pass.
func (c *Context) PassCounts() []int {
	return c.passCounts
}

// Vertex returns the vertex of a node.
func (c *Context) Vertex(node ast.Node) (*Vertex, bool) {
	v, ok := c.vertices[node.ID()]
	return v, ok
}

// GetType returns the type of a node.
func (c *Context) GetType(node ast.Node) (types.Type, error) {
	v, ok := c.Vertex(node)
	if !ok {
		return types.Type{}, errors.Wrapf(ErrNodeIsNotVertex, "%T", node)
	}
	tp, ok := v.Type()
	if !ok {
		return types.Type{}, errors.Wrapf(ErrNodeHasNoType, "%s", v)
	}
	return tp, nil
}

// GetEdge returns the edge of a call expression.
func (c *Context) GetEdge(call *ast.CallExpr) (*Edge, bool) {
	e, ok := c.calls[call.ID()]
	return e, ok
}

// Return returns the vertex returned by the pipeline of a declaration.
// Returns nil if the declaration has no body or if its last stage
// does not produce exactly one value.
func (c *Context) Return(ds *scope.DeclarationScope) *Vertex {
	return c.returns[ds]
}

// FindFlow returns a flow declared in a file of the workspace.
func (c *Context) FindFlow(path, name string) (*scope.Flow, error) {
	if c.Scope == nil {
		return nil, errors.Wrapf(ErrFileNotInWorkspace, "%s", path)
	}
	fs, ok := c.Scope.File(path)
	if !ok {
		return nil, errors.Wrapf(ErrFileNotInWorkspace, "%s", path)
	}
	flow, ok := fs.Declared(name)
	if !ok {
		return nil, errors.Wrapf(ErrFlowNotFound, "%s in %s", name, path)
	}
	return flow, nil
}

func (c *Context) appender(ds *scope.DeclarationScope) *fmterr.Appender {
	return c.errs.NewAppender(ds.File.File)
}
