package scene

// Node is one entry in a collection tree.
type Node struct {
	Object   *Object
	Children []*Node
}

// Module returns the name of the module that produced the node's object.
func (n *Node) Module() string {
	if n.Object == nil {
		return ""
	}
	return n.Object.Module
}

// Collection is an ordered tree of generated objects.
type Collection struct {
	Name  string
	Roots []*Node
}

// NewCollection returns a collection named name holding objs as roots.
func NewCollection(name string, objs ...*Object) *Collection {
	c := &Collection{Name: name}
	for _, o := range objs {
		c.Add(o)
	}
	return c
}

// Empty returns a collection with no nodes.
func Empty() *Collection {
	return &Collection{}
}

// Add appends o as a new root node and returns that node.
func (c *Collection) Add(o *Object) *Node {
	n := &Node{Object: o}
	c.Roots = append(c.Roots, n)
	return n
}

// IsEmpty reports whether the collection has no nodes.
func (c *Collection) IsEmpty() bool {
	return c == nil || len(c.Roots) == 0
}

// Len returns the total number of nodes in the tree.
func (c *Collection) Len() int {
	n := 0
	c.Walk(func(*Node, int) bool {
		n++
		return true
	})
	return n
}

// Walk visits every node depth first in order, passing its depth (roots
// are depth 0). Returning false from fn skips the node's children.
func (c *Collection) Walk(fn func(n *Node, depth int) bool) {
	if c == nil {
		return
	}
	var visit func(n *Node, depth int)
	visit = func(n *Node, depth int) {
		if !fn(n, depth) {
			return
		}
		for _, child := range n.Children {
			visit(child, depth+1)
		}
	}
	for _, r := range c.Roots {
		visit(r, 0)
	}
}

// Objects returns every object in depth-first order.
func (c *Collection) Objects() []*Object {
	var objs []*Object
	c.Walk(func(n *Node, _ int) bool {
		if n.Object != nil {
			objs = append(objs, n.Object)
		}
		return true
	})
	return objs
}

// Merge appends the roots of each sub-collection, in argument order, as
// children of parent. Nodes are moved, not copied; nothing is deduplicated
// or reordered.
func Merge(parent *Node, subs ...*Collection) {
	for _, sub := range subs {
		if sub == nil {
			continue
		}
		parent.Children = append(parent.Children, sub.Roots...)
	}
}
