package integrations

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/use-agent/jsonpick/dom"
	"github.com/use-agent/jsonpick/models"
)

// ErrStructure reports that the database console's rendered tree is missing
// an element every document view is expected to have. It aborts the whole
// extraction: a partial document would be silently wrong.
var ErrStructure = errors.New("integrations: unexpected console structure")

var consoleRe = regexp.MustCompile(`console\.firebase\.google\.com/project/([A-Z-a-z0-9]+)/firestore/data/(.*)`)

// IsFirestoreConsole reports whether pageURL is a document view of the
// database console.
func IsFirestoreConsole(pageURL string) bool {
	return consoleRe.MatchString(pageURL)
}

// Document is one decoded console document.
type Document struct {
	Title string
	Value *Object

	// Unrecognized lists the dotted paths of values whose kind could not be
	// decoded. They are left out of Value (or are null inside arrays).
	Unrecognized []string
}

// Firestore decodes every document shown on a database console page into
// extraction results, last document first.
func Firestore(page dom.Page) ([]models.ExtractionResult, error) {
	docs, err := FirestoreDocuments(page)
	if err != nil {
		return nil, err
	}
	results := make([]models.ExtractionResult, 0, len(docs))
	for _, doc := range docs {
		results = append(results, models.ExtractionResult{
			Title:        doc.Title,
			JSON:         doc.Value,
			Unrecognized: doc.Unrecognized,
		})
	}
	return results, nil
}

// FirestoreDocuments is Firestore with the per-document decoding report.
// Without a readable breadcrumb title no document is returned.
func FirestoreDocuments(page dom.Page) ([]Document, error) {
	title := consoleTitle(page)
	if title == "" {
		slog.Debug("firestore: no breadcrumb title", "url", page.URL())
		return nil, nil
	}

	lists := page.Root().QueryAll(".f7e-field-list")
	docs := make([]Document, 0, len(lists))
	for i := len(lists) - 1; i >= 0; i-- {
		d := &decoder{}
		value, err := d.fields(lists[i])
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		if len(d.unrecognized) > 0 {
			slog.Warn("firestore: unrecognized value kinds", "document", i, "paths", d.unrecognized)
		}
		docs = append(docs, Document{
			Title:        documentTitle(title, i),
			Value:        value,
			Unrecognized: d.unrecognized,
		})
	}
	return docs, nil
}

// consoleTitle returns the data path of the last breadcrumb link.
func consoleTitle(page dom.Page) string {
	crumbs := page.Root().QueryAll(".crumb-link")
	if len(crumbs) == 0 {
		return ""
	}
	href, _ := crumbs[len(crumbs)-1].Attr("href")
	m := consoleRe.FindStringSubmatch(resolveHref(page.URL(), href))
	if m == nil {
		return ""
	}
	return m[2]
}

func resolveHref(base, href string) string {
	if href == "" {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return b.ResolveReference(ref).String()
}

// documentTitle derives a document's title from the breadcrumb path. The
// document at DOM index 1 keeps the full path; every other one drops the
// last two segments. The rule follows the console layout as observed and is
// kept as is even though it reads oddly.
func documentTitle(title string, index int) string {
	if index == 1 {
		return title
	}
	parts := strings.Split(title, "/")
	if len(parts) < 3 {
		return ""
	}
	return strings.Join(parts[:len(parts)-2], "/")
}

// decoder folds the console's rendered tree into JSON values and records
// the paths of values it could not recognise.
type decoder struct {
	unrecognized []string
}

// fields decodes the top level of a .f7e-field-list: each
// <fs-animate-changes> wrapper holds one field.
func (d *decoder) fields(list dom.Node) (*Object, error) {
	var nodes []dom.Node
	for _, child := range list.Children() {
		if child.Tag() != "fs-animate-changes" {
			continue
		}
		inner := child.Children()
		if len(inner) == 0 {
			return nil, fmt.Errorf("%w: empty fs-animate-changes", ErrStructure)
		}
		nodes = append(nodes, inner[0])
	}
	return d.object(nodes, "")
}

func (d *decoder) object(nodes []dom.Node, path string) (*Object, error) {
	obj := newObject()
	for _, n := range nodes {
		key, err := nodeKey(n, path)
		if err != nil {
			return nil, err
		}
		p := joinPath(path, key)
		value, ok, err := d.value(n, p)
		if err != nil {
			return nil, err
		}
		if !ok {
			// A later duplicate key that cannot be decoded hides the
			// earlier value.
			obj.Delete(key)
			continue
		}
		obj.Set(key, value)
	}
	return obj, nil
}

func (d *decoder) array(nodes []dom.Node, path string) ([]any, error) {
	items := make([]any, 0, len(nodes))
	for i, n := range nodes {
		value, _, err := d.value(n, joinPath(path, strconv.Itoa(i)))
		if err != nil {
			return nil, err
		}
		items = append(items, value)
	}
	return items, nil
}

// value decodes a single data-tree node. ok is false when the node's kind
// is not recognised.
func (d *decoder) value(n dom.Node, path string) (any, bool, error) {
	dbNode, err := databaseNode(n, path)
	if err != nil {
		return nil, false, err
	}

	switch kind := kindOf(dbNode.Classes()); kind {
	case KindString, KindNumber, KindBoolean, KindTimestamp:
		text, err := leafText(dbNode, path)
		if err != nil {
			return nil, false, err
		}
		return decodeLeaf(kind, text, path)
	case KindMap:
		children, err := dataTreeChildren(dbNode, path)
		if err != nil {
			return nil, false, err
		}
		obj, err := d.object(children, path)
		return obj, err == nil, err
	case KindArray:
		children, err := dataTreeChildren(dbNode, path)
		if err != nil {
			return nil, false, err
		}
		items, err := d.array(children, path)
		return items, err == nil, err
	default:
		d.unrecognized = append(d.unrecognized, path)
		return nil, false, nil
	}
}

func decodeLeaf(kind Kind, text, path string) (any, bool, error) {
	switch kind {
	case KindString:
		return decodeString(text), true, nil
	case KindNumber:
		return decodeNumber(text), true, nil
	case KindBoolean:
		return decodeBoolean(text), true, nil
	default:
		if text == "" {
			return nil, false, fmt.Errorf("%w: %s: empty timestamp", ErrStructure, path)
		}
		return decodeTimestamp(text), true, nil
	}
}

func databaseNode(n dom.Node, path string) (dom.Node, error) {
	dbNode, ok := n.Query(".database-node")
	if !ok {
		return nil, fmt.Errorf("%w: %s: missing .database-node", ErrStructure, pathOrRoot(path))
	}
	return dbNode, nil
}

// nodeKey reads the field name of a data-tree node. A missing
// .database-key element means an empty key.
func nodeKey(n dom.Node, parent string) (string, error) {
	dbNode, err := databaseNode(n, parent)
	if err != nil {
		return "", err
	}
	kv, ok := dbNode.Query(".database-key-value")
	if !ok {
		return "", fmt.Errorf("%w: %s: missing .database-key-value", ErrStructure, pathOrRoot(parent))
	}
	key, ok := kv.Query(".database-key")
	if !ok {
		return "", nil
	}
	return key.Text(), nil
}

func leafText(dbNode dom.Node, path string) (string, error) {
	kv, ok := dbNode.Query(".database-key-value")
	if !ok {
		return "", fmt.Errorf("%w: %s: missing .database-key-value", ErrStructure, path)
	}
	leaf, ok := kv.Query(".database-leaf-value")
	if !ok {
		return "", fmt.Errorf("%w: %s: missing .database-leaf-value", ErrStructure, path)
	}
	return leaf.Text(), nil
}

func dataTreeChildren(dbNode dom.Node, path string) ([]dom.Node, error) {
	container, ok := dbNode.Query(".database-children")
	if !ok {
		return nil, fmt.Errorf("%w: %s: missing .database-children", ErrStructure, path)
	}
	var nodes []dom.Node
	for _, child := range container.Children() {
		if child.Tag() == "f7e-data-tree" {
			nodes = append(nodes, child)
		}
	}
	return nodes, nil
}

func joinPath(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}

func pathOrRoot(path string) string {
	if path == "" {
		return "<root>"
	}
	return path
}
