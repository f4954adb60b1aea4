package integrations

import "github.com/use-agent/jsonpick/dom"

// MetaContent returns the content attribute of the first
// <meta property="..."> tag with the given property. A tag without a
// content attribute counts as absent.
func MetaContent(page dom.Page, property string) (string, bool) {
	return metaAttr(page, "meta[property='"+property+"']")
}

// TwitterContent returns the content of <meta name="twitter:<name>">.
func TwitterContent(page dom.Page, name string) (string, bool) {
	return metaAttr(page, "meta[name='twitter:"+name+"']")
}

func metaAttr(page dom.Page, selector string) (string, bool) {
	tag, ok := page.Root().Query(selector)
	if !ok {
		return "", false
	}
	return tag.Attr("content")
}
