package social

import (
	"errors"
	"sort"
)

// Graph errors.
var (
	ErrSelfFollow = errors.New("cannot follow yourself")
	ErrSelfBlock  = errors.New("cannot block yourself")
)

// Graph is the follow adjacency list: following[a] holds every b that a
// follows.
//
// Graph is not safe for concurrent use.
type Graph struct {
	following map[int64]map[int64]struct{}
	followers map[int64]map[int64]struct{}
	blocked   map[int64]map[int64]struct{}
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		following: make(map[int64]map[int64]struct{}),
		followers: make(map[int64]map[int64]struct{}),
		blocked:   make(map[int64]map[int64]struct{}),
	}
}

// Follow adds the edge a -> b. It reports whether the edge was new.
func (g *Graph) Follow(a, b int64) (bool, error) {
	if a == b {
		return false, ErrSelfFollow
	}
	if g.IsFollowing(a, b) {
		return false, nil
	}
	link(g.following, a, b)
	link(g.followers, b, a)
	return true, nil
}

// Unfollow removes the edge a -> b. It reports whether an edge existed.
func (g *Graph) Unfollow(a, b int64) bool {
	if !g.IsFollowing(a, b) {
		return false
	}
	delete(g.following[a], b)
	delete(g.followers[b], a)
	return true
}

// IsFollowing reports whether a follows b.
func (g *Graph) IsFollowing(a, b int64) bool {
	_, ok := g.following[a][b]
	return ok
}

// Mutual reports whether a and b follow each other.
func (g *Graph) Mutual(a, b int64) bool {
	return g.IsFollowing(a, b) && g.IsFollowing(b, a)
}

// FollowerCount returns how many users follow id.
func (g *Graph) FollowerCount(id int64) int {
	return len(g.followers[id])
}

// FollowingCount returns how many users id follows.
func (g *Graph) FollowingCount(id int64) int {
	return len(g.following[id])
}

// Following returns the users id follows, sorted.
func (g *Graph) Following(id int64) []int64 {
	return sortedKeys(g.following[id])
}

// Followers returns the users following id, sorted.
func (g *Graph) Followers(id int64) []int64 {
	return sortedKeys(g.followers[id])
}

// Block records that a no longer wants to see b's posts. It reports
// whether the block was new. Follow edges are left as they are.
func (g *Graph) Block(a, b int64) (bool, error) {
	if a == b {
		return false, ErrSelfBlock
	}
	if g.IsBlocked(a, b) {
		return false, nil
	}
	link(g.blocked, a, b)
	return true, nil
}

// Unblock lifts a's block on b. It reports whether a block existed.
func (g *Graph) Unblock(a, b int64) bool {
	if !g.IsBlocked(a, b) {
		return false
	}
	delete(g.blocked[a], b)
	return true
}

// IsBlocked reports whether a blocked b.
func (g *Graph) IsBlocked(a, b int64) bool {
	_, ok := g.blocked[a][b]
	return ok
}

func link(m map[int64]map[int64]struct{}, from, to int64) {
	set, ok := m[from]
	if !ok {
		set = make(map[int64]struct{})
		m[from] = set
	}
	set[to] = struct{}{}
}

func sortedKeys(set map[int64]struct{}) []int64 {
	out := make([]int64, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
