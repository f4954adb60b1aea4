package dom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixture = `<html><head><title>t</title></head><body>
<div id="outer" class="box  wide">
	<span class="leaf">one</span>
	<fs-animate-changes><f7e-data-tree class="node">two</f7e-data-tree></fs-animate-changes>
	<span class="leaf">three</span>
</div>
</body></html>`

func mustParse(t *testing.T, raw string) *Document {
	t.Helper()
	doc, err := Parse(raw, "https://example.com/page")
	require.NoError(t, err)
	return doc
}

func TestParse_URLAndBody(t *testing.T) {
	doc := mustParse(t, fixture)
	assert.Equal(t, "https://example.com/page", doc.URL())

	body, ok := doc.Body()
	require.True(t, ok)
	assert.Equal(t, "body", body.Tag())
}

func TestNode_ClassesAndAttr(t *testing.T) {
	doc := mustParse(t, fixture)
	outer, ok := doc.Root().Query("#outer")
	require.True(t, ok)

	assert.Equal(t, []string{"box", "wide"}, outer.Classes())

	id, ok := outer.Attr("id")
	assert.True(t, ok)
	assert.Equal(t, "outer", id)

	_, ok = outer.Attr("href")
	assert.False(t, ok)
}

func TestNode_ChildrenSkipsTextNodes(t *testing.T) {
	doc := mustParse(t, fixture)
	outer, _ := doc.Root().Query("#outer")

	children := outer.Children()
	require.Len(t, children, 3)
	assert.Equal(t, "span", children[0].Tag())
	assert.Equal(t, "fs-animate-changes", children[1].Tag())
	assert.Equal(t, "f7e-data-tree", children[1].Children()[0].Tag())
}

func TestNode_QueryExcludesSelf(t *testing.T) {
	doc := mustParse(t, `<div class="x"><p class="x">inner</p></div>`)
	div, ok := doc.Root().Query("div.x")
	require.True(t, ok)

	inner, ok := div.Query(".x")
	require.True(t, ok)
	assert.Equal(t, "p", inner.Tag())
}

func TestNode_QueryAllDocumentOrder(t *testing.T) {
	doc := mustParse(t, fixture)
	leaves := doc.Root().QueryAll(".leaf")
	require.Len(t, leaves, 2)
	assert.Equal(t, "one", leaves[0].Text())
	assert.Equal(t, "three", leaves[1].Text())
}

func TestNode_TextConcatenatesDescendants(t *testing.T) {
	doc := mustParse(t, `<p id="p">a<b>b</b><i>c<u>d</u></i></p>`)
	p, _ := doc.Root().Query("#p")
	assert.Equal(t, "abcd", p.Text())
}

func TestNode_InvalidSelectorMatchesNothing(t *testing.T) {
	doc := mustParse(t, fixture)
	_, ok := doc.Root().Query("[[[")
	assert.False(t, ok)
	assert.Empty(t, doc.Root().QueryAll("[[["))
}
