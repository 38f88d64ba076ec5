package mcp

// --- Tool Arguments ---

type ExpandEdgesArgs struct {
	Vertex    string   `json:"vertex" jsonschema:"The start vertex id, e.g. persons/alice"`
	Depth     uint64   `json:"depth,omitempty" jsonschema:"Traversal depth the edges are fetched for (default 0)"`
	Database  string   `json:"database,omitempty" jsonschema:"Database to query. Defaults to the configured one"`
	Direction string   `json:"direction,omitempty" jsonschema:"Edge direction: outbound, inbound or any. Defaults to the configured one"`
	Relations []string `json:"relations,omitempty" jsonschema:"Only return edges whose relation attribute is one of these"`
	Bulk      bool     `json:"bulk,omitempty" jsonschema:"Read all edges at once. Identical edges returned by several engines are collapsed"`
}

// EdgeView is one edge as presented to the caller.
type EdgeView struct {
	ID       string         `json:"id"`
	From     string         `json:"from"`
	To       string         `json:"to"`
	Position int            `json:"position"`
	Document map[string]any `json:"document"`
}

type ExpandEdgesResult struct {
	Vertex        string     `json:"vertex"`
	Depth         uint64     `json:"depth"`
	Mode          string     `json:"mode"` // "next" or "read_all"
	Edges         []EdgeView `json:"edges"`
	ReadDocuments int64      `json:"read_documents"`
	FilteredPaths int        `json:"filtered_paths"`
}

type WalkGraphArgs struct {
	Vertex      string   `json:"vertex" jsonschema:"The start vertex id"`
	MaxDepth    uint64   `json:"max_depth,omitempty" jsonschema:"Number of steps to walk (default 1)"`
	Target      string   `json:"target,omitempty" jsonschema:"Stop when this vertex is reached and report the path to it"`
	MaxVertices int      `json:"max_vertices,omitempty" jsonschema:"Abort when more vertices are discovered (default 1000)"`
	Database    string   `json:"database,omitempty" jsonschema:"Database to query. Defaults to the configured one"`
	Direction   string   `json:"direction,omitempty" jsonschema:"Edge direction: outbound, inbound or any"`
	Relations   []string `json:"relations,omitempty" jsonschema:"Only follow edges whose relation attribute is one of these"`
}
