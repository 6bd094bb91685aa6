package realize

import (
	"dtc/content"
	"dtc/geom"
)

// Default looks for composite elements. Each rewrites the element into
// simpler content which is realized again, so user show rules on the
// produced primitives still apply.

func headingLook(n *content.Node, ch *content.Chain) *content.Node {
	level, _ := ch.Resolve(n, "level").(int)
	numbering, _ := ch.Resolve(n, "numbering").(string)
	body := fieldContent(n, "body")

	var parts []*content.Node
	if numbering != "" {
		key := content.KindCounter(content.KindHeading)
		parts = append(parts,
			content.UpdateCounter(key, content.CounterStep(level)),
			content.DisplayCounter(key, numbering),
			content.Text(" "),
		)
	}
	parts = append(parts, body)

	base, _ := ch.ResolveKind(content.KindText, "size").(geom.Abs)
	styled := content.Styled(content.Seq(parts...),
		content.Set(content.KindText, "size", geom.Pt(base.Pt()*headingScale(level))),
		content.Set(content.KindText, "weight-delta", 300),
	)

	return content.Styled(content.BlockOf(styled),
		content.Set(content.KindBlock, "sticky", true),
		content.Set(content.KindBlock, "breakable", false),
	)
}

func headingScale(level int) float64 {
	switch level {
	case 1:
		return 1.6
	case 2:
		return 1.35
	case 3:
		return 1.15
	default:
		return 1.0
	}
}

func strongLook(n *content.Node, ch *content.Chain) *content.Node {
	delta, _ := ch.Resolve(n, "delta").(int)
	return content.Styled(fieldContent(n, "body"),
		content.Set(content.KindText, "weight-delta", delta),
	)
}

func emphLook(n *content.Node) *content.Node {
	return content.Styled(fieldContent(n, "body"),
		content.Set(content.KindText, "italic", true),
	)
}

func listLook(n *content.Node, ch *content.Chain) *content.Node {
	marker, _ := ch.Resolve(n, "marker").(string)
	items, _ := fieldValue(n, "items").([]*content.Node)

	entries := make([]*content.Node, 0, len(items))
	for _, item := range items {
		entries = append(entries, content.Par(content.Text(marker+" "), item))
	}
	return content.BlockOf(content.Seq(entries...))
}

func fieldContent(n *content.Node, name string) *content.Node {
	body, _ := fieldValue(n, name).(*content.Node)
	if body == nil {
		return content.Empty()
	}
	return body
}

func fieldValue(n *content.Node, name string) any {
	v, ok := n.Field(name)
	if !ok {
		return nil
	}
	return v
}
