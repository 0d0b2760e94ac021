package slidegraft

import (
	"encoding/xml"

	"github.com/antchfx/xmlquery"
)

// Low-level surgery on xmlquery node trees. xmlquery gives us a parsed DOM
// with parent/sibling links but no clone or insert primitives, so the
// pointer mesh is maintained by hand here; compare the raw node walking in
// JuniperBible's XML formatter.

// documentRoot returns the root element of a parsed document node.
func documentRoot(doc *xmlquery.Node) *xmlquery.Node {
	for child := doc.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.ElementNode {
			return child
		}
	}
	return nil
}

// isElement reports whether n is an element with the given namespace URI
// and local name.
func isElement(n *xmlquery.Node, nsURI, local string) bool {
	return n != nil && n.Type == xmlquery.ElementNode && n.Data == local && n.NamespaceURI == nsURI
}

// findChild returns the first child element matching namespace and local
// name, or nil.
func findChild(n *xmlquery.Node, nsURI, local string) *xmlquery.Node {
	if n == nil {
		return nil
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if isElement(child, nsURI, local) {
			return child
		}
	}
	return nil
}

// childElements returns all element children of n in order.
func childElements(n *xmlquery.Node) []*xmlquery.Node {
	var children []*xmlquery.Node
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.ElementNode {
			children = append(children, child)
		}
	}
	return children
}

// walkElements visits n and every descendant element in document order.
func walkElements(n *xmlquery.Node, visit func(*xmlquery.Node)) {
	if n == nil {
		return
	}
	if n.Type == xmlquery.ElementNode {
		visit(n)
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		walkElements(child, visit)
	}
}

// collectElements snapshots all descendant elements (including n itself)
// matching namespace and local name. The snapshot allows mutation while
// iterating.
func collectElements(n *xmlquery.Node, nsURI, local string) []*xmlquery.Node {
	var found []*xmlquery.Node
	walkElements(n, func(e *xmlquery.Node) {
		if isElement(e, nsURI, local) {
			found = append(found, e)
		}
	})
	return found
}

// cloneTree deep-copies a subtree into a freshly linked tree with no
// parent. Attribute slices are copied, never shared.
func cloneTree(n *xmlquery.Node) *xmlquery.Node {
	clone := &xmlquery.Node{
		Type:         n.Type,
		Data:         n.Data,
		Prefix:       n.Prefix,
		NamespaceURI: n.NamespaceURI,
	}
	if len(n.Attr) > 0 {
		clone.Attr = make([]xmlquery.Attr, len(n.Attr))
		copy(clone.Attr, n.Attr)
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		appendChild(clone, cloneTree(child))
	}
	return clone
}

// appendChild attaches a detached node as the last child of parent.
func appendChild(parent, child *xmlquery.Node) {
	child.Parent = parent
	child.NextSibling = nil
	child.PrevSibling = parent.LastChild
	if parent.LastChild != nil {
		parent.LastChild.NextSibling = child
	} else {
		parent.FirstChild = child
	}
	parent.LastChild = child
}

// detach unlinks n from its parent and siblings.
func detach(n *xmlquery.Node) {
	if n.Parent != nil {
		if n.Parent.FirstChild == n {
			n.Parent.FirstChild = n.NextSibling
		}
		if n.Parent.LastChild == n {
			n.Parent.LastChild = n.PrevSibling
		}
	}
	if n.PrevSibling != nil {
		n.PrevSibling.NextSibling = n.NextSibling
	}
	if n.NextSibling != nil {
		n.NextSibling.PrevSibling = n.PrevSibling
	}
	n.Parent = nil
	n.PrevSibling = nil
	n.NextSibling = nil
}

// insertBefore attaches a detached node immediately before ref.
func insertBefore(n, ref *xmlquery.Node) {
	n.Parent = ref.Parent
	n.NextSibling = ref
	n.PrevSibling = ref.PrevSibling
	if ref.PrevSibling != nil {
		ref.PrevSibling.NextSibling = n
	} else if ref.Parent != nil {
		ref.Parent.FirstChild = n
	}
	ref.PrevSibling = n
}

// replaceNode swaps old for repl in old's parent, detaching old.
func replaceNode(old, repl *xmlquery.Node) {
	insertBefore(repl, old)
	detach(old)
}

// attrValue returns the value of an unprefixed attribute, or "".
func attrValue(n *xmlquery.Node, local string) string {
	for _, attr := range n.Attr {
		if attr.Name.Local == local && attr.Name.Space == "" {
			return attr.Value
		}
	}
	return ""
}

// attrValueNS returns the value of a namespaced attribute, or "".
func attrValueNS(n *xmlquery.Node, nsURI, local string) string {
	for _, attr := range n.Attr {
		if attr.Name.Local == local && attr.NamespaceURI == nsURI {
			return attr.Value
		}
	}
	return ""
}

// setAttr sets or adds an unprefixed attribute.
func setAttr(n *xmlquery.Node, local, value string) {
	for i := range n.Attr {
		if n.Attr[i].Name.Local == local && n.Attr[i].Name.Space == "" {
			n.Attr[i].Value = value
			return
		}
	}
	n.Attr = append(n.Attr, xmlquery.Attr{
		Name:  xml.Name{Local: local},
		Value: value,
	})
}

// setAttrNS sets or adds a prefixed attribute.
func setAttrNS(n *xmlquery.Node, prefix, nsURI, local, value string) {
	for i := range n.Attr {
		if n.Attr[i].Name.Local == local && n.Attr[i].NamespaceURI == nsURI {
			n.Attr[i].Value = value
			return
		}
	}
	n.Attr = append(n.Attr, xmlquery.Attr{
		Name:         xml.Name{Space: prefix, Local: local},
		Value:        value,
		NamespaceURI: nsURI,
	})
}

// removeAttr deletes every attribute with the given local name.
func removeAttr(n *xmlquery.Node, local string) {
	kept := n.Attr[:0]
	for _, attr := range n.Attr {
		if attr.Name.Local != local {
			kept = append(kept, attr)
		}
	}
	n.Attr = kept
}

// newElement creates a detached element node.
func newElement(prefix, nsURI, local string) *xmlquery.Node {
	return &xmlquery.Node{
		Type:         xmlquery.ElementNode,
		Data:         local,
		Prefix:       prefix,
		NamespaceURI: nsURI,
	}
}
