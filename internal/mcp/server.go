// Package mcp exposes edge expansion as a Model Context Protocol tool, so an
// agent can walk the graph one step at a time.
package mcp

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const Version = "0.1.0"

func NewMCPServer(service *Service) *mcp.Server {
	s := mcp.NewServer(&mcp.Implementation{
		Name:    "KektorGraph",
		Version: Version,
	}, nil)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "expand_edges",
		Description: "List the edges of a graph vertex at a given traversal depth, merged from every storage engine of the cluster. Deleted edges are never returned.",
	}, service.ExpandEdges)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "walk_graph",
		Description: "Explore the graph neighborhood of a vertex breadth-first, or find how two vertices are connected by giving a target.",
	}, service.WalkGraph)

	return s
}
