package slidegraft

import "github.com/antchfx/xmlquery"

// rewriteRelIDs replaces old relationship identifiers with their relocated
// counterparts across every attribute of the subtree rooted at n.
//
// Each attribute is visited exactly once and matched against its original
// value, so a map containing both rId4->rId5 and rId5->rId4 cannot cascade.
// No attribute-name filtering is applied: any attribute whose value happens
// to equal a mapped identifier is rewritten. Relationship IDs use the
// reserved rId<n> form, which makes accidental collisions unlikely, but
// this is a known sharp edge rather than a guarantee.
func rewriteRelIDs(n *xmlquery.Node, idMap map[string]string) {
	if len(idMap) == 0 {
		return
	}
	walkElements(n, func(e *xmlquery.Node) {
		for i := range e.Attr {
			if repl, ok := idMap[e.Attr[i].Value]; ok && repl != e.Attr[i].Value {
				e.Attr[i].Value = repl
			}
		}
	})
}
