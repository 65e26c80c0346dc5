package plagiarism

import (
	"strings"

	"github.com/emirpasic/gods/sets/linkedhashset"
)

// Edge is a directed adjacency between two tokens
type Edge struct {
	From string
	To   string
}

// TokenGraph is a directed graph of token adjacency.
// Nodes are distinct tokens in first-appearance order; an edge a→b exists when
// token b directly follows token a somewhere in the snippet.
type TokenGraph struct {
	tokens     []string
	index      map[string]int
	successors []*linkedhashset.Set // node index -> set of successor indexes
	inDegree   []int
	edges      int
}

// BuildGraph splits the snippet on whitespace and links every adjacent token pair
func BuildGraph(snippet string) *TokenGraph {
	tokens := strings.Fields(snippet)

	g := &TokenGraph{
		tokens: make([]string, 0, len(tokens)),
		index:  make(map[string]int, len(tokens)),
	}

	for _, token := range tokens {
		g.addNode(token)
	}

	for i := 0; i < len(tokens)-1; i++ {
		g.addEdge(tokens[i], tokens[i+1])
	}

	return g
}

func (g *TokenGraph) addNode(token string) int {
	if idx, ok := g.index[token]; ok {
		return idx
	}
	idx := len(g.tokens)
	g.tokens = append(g.tokens, token)
	g.index[token] = idx
	g.successors = append(g.successors, linkedhashset.New())
	g.inDegree = append(g.inDegree, 0)
	return idx
}

// addEdge is idempotent: a repeated pair does not add weight
func (g *TokenGraph) addEdge(from, to string) {
	src := g.addNode(from)
	dst := g.addNode(to)
	if g.successors[src].Contains(dst) {
		return
	}
	g.successors[src].Add(dst)
	g.inDegree[dst]++
	g.edges++
}

func (g *TokenGraph) NodeCount() int {
	return len(g.tokens)
}

func (g *TokenGraph) EdgeCount() int {
	return g.edges
}

// Nodes returns the tokens in insertion order
func (g *TokenGraph) Nodes() []string {
	nodes := make([]string, len(g.tokens))
	copy(nodes, g.tokens)
	return nodes
}

// Index returns the position of token in Nodes
func (g *TokenGraph) Index(token string) (int, bool) {
	idx, ok := g.index[token]
	return idx, ok
}

func (g *TokenGraph) HasNode(token string) bool {
	_, ok := g.index[token]
	return ok
}

func (g *TokenGraph) HasEdge(from, to string) bool {
	src, ok := g.index[from]
	if !ok {
		return false
	}
	dst, ok := g.index[to]
	if !ok {
		return false
	}
	return g.successors[src].Contains(dst)
}

// Successors returns the tokens that follow token, in the order they were first seen
func (g *TokenGraph) Successors(token string) []string {
	idx, ok := g.index[token]
	if !ok {
		return nil
	}
	values := g.successors[idx].Values()
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, g.tokens[v.(int)])
	}
	return out
}

func (g *TokenGraph) OutDegree(token string) int {
	idx, ok := g.index[token]
	if !ok {
		return 0
	}
	return g.successors[idx].Size()
}

func (g *TokenGraph) InDegree(token string) int {
	idx, ok := g.index[token]
	if !ok {
		return 0
	}
	return g.inDegree[idx]
}

// Edges returns every edge, grouped by source node in insertion order
func (g *TokenGraph) Edges() []Edge {
	edges := make([]Edge, 0, g.edges)
	for src, set := range g.successors {
		for _, v := range set.Values() {
			edges = append(edges, Edge{From: g.tokens[src], To: g.tokens[v.(int)]})
		}
	}
	return edges
}

// forEachEdge visits edges by node index
func (g *TokenGraph) forEachEdge(fn func(src, dst int)) {
	for src, set := range g.successors {
		for _, v := range set.Values() {
			fn(src, v.(int))
		}
	}
}
