package accounts

import "sort"

// Catalog is an in-memory arena of accounts indexed by id, used to answer
// hierarchy questions without walking the database.
type Catalog struct {
	nodes    []Account
	index    map[int64]int
	children map[int64][]int64
}

// NewCatalog indexes the accounts.
func NewCatalog(accounts []Account) *Catalog {
	c := &Catalog{
		nodes:    make([]Account, len(accounts)),
		index:    make(map[int64]int, len(accounts)),
		children: make(map[int64][]int64),
	}
	copy(c.nodes, accounts)
	sort.SliceStable(c.nodes, func(i, j int) bool { return c.nodes[i].Code < c.nodes[j].Code })
	for i, a := range c.nodes {
		c.index[a.ID] = i
	}
	for _, a := range c.nodes {
		if a.ParentID != nil {
			c.children[*a.ParentID] = append(c.children[*a.ParentID], a.ID)
		}
	}
	return c
}

// Get returns the account with id.
func (c *Catalog) Get(id int64) (Account, bool) {
	i, ok := c.index[id]
	if !ok {
		return Account{}, false
	}
	return c.nodes[i], true
}

// Children returns the direct children of id ordered by code.
func (c *Catalog) Children(id int64) []Account {
	ids := c.children[id]
	out := make([]Account, 0, len(ids))
	for _, child := range ids {
		out = append(out, c.nodes[c.index[child]])
	}
	return out
}

// HasActiveChildren reports whether id has at least one active child.
func (c *Catalog) HasActiveChildren(id int64) bool {
	for _, child := range c.Children(id) {
		if child.IsActive {
			return true
		}
	}
	return false
}

// Ancestors returns the ids from the parent of id up to its root. The walk
// stops if it revisits a node, so corrupted data cannot loop forever.
func (c *Catalog) Ancestors(id int64) []int64 {
	var out []int64
	seen := map[int64]struct{}{id: {}}
	current, ok := c.Get(id)
	for ok && current.ParentID != nil {
		pid := *current.ParentID
		if _, dup := seen[pid]; dup {
			break
		}
		seen[pid] = struct{}{}
		out = append(out, pid)
		current, ok = c.Get(pid)
	}
	return out
}

// WouldCycle reports whether making parentID the parent of id closes a loop.
func (c *Catalog) WouldCycle(id, parentID int64) bool {
	if id == parentID {
		return true
	}
	for _, ancestor := range c.Ancestors(parentID) {
		if ancestor == id {
			return true
		}
	}
	return false
}

// Descendants returns every id below id, breadth first.
func (c *Catalog) Descendants(id int64) []int64 {
	var out []int64
	queue := append([]int64(nil), c.children[id]...)
	seen := map[int64]struct{}{id: {}}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if _, dup := seen[next]; dup {
			continue
		}
		seen[next] = struct{}{}
		out = append(out, next)
		queue = append(queue, c.children[next]...)
	}
	return out
}

// Relevel returns the levels id and its descendants get when id moves to
// level. Only ids whose level changes are included.
func (c *Catalog) Relevel(id int64, level int) map[int64]int {
	changes := make(map[int64]int)
	var walk func(node int64, lvl int)
	walk = func(node int64, lvl int) {
		if a, ok := c.Get(node); ok && a.Level != lvl {
			changes[node] = lvl
		}
		for _, child := range c.children[node] {
			if child == id {
				continue
			}
			walk(child, lvl+1)
		}
	}
	walk(id, level)
	return changes
}

// Tree returns every account depth first, children ordered by code.
func (c *Catalog) Tree() []TreeNode {
	out := make([]TreeNode, 0, len(c.nodes))
	var visit func(a Account)
	visit = func(a Account) {
		out = append(out, TreeNode{Account: a, HasChildren: len(c.children[a.ID]) > 0})
		for _, child := range c.Children(a.ID) {
			visit(child)
		}
	}
	for _, a := range c.nodes {
		if a.ParentID == nil {
			visit(a)
			continue
		}
		if _, ok := c.index[*a.ParentID]; !ok {
			visit(a)
		}
	}
	return out
}
