package integrations

import (
	"regexp"
	"strings"

	"github.com/use-agent/jsonpick/dom"
	"github.com/use-agent/jsonpick/models"
)

var githubBlobRe = regexp.MustCompile(`github\.com/([A-Za-z0-9_-]+)/([A-Za-z0-9_-]+)/blob/([A-Za-z0-9_-]+)/([A-Za-z0-9-_/.]+)`)

// GitHub extracts a .json file shown in a repository's blob view. The file
// body is reassembled from the rendered code lines.
func GitHub(page dom.Page) []models.ExtractionResult {
	m := githubBlobRe.FindStringSubmatch(page.URL())
	if m == nil {
		return nil
	}
	org, repo, branch, path := m[1], m[2], m[3], m[4]
	if !strings.HasSuffix(path, ".json") {
		return nil
	}

	var sb strings.Builder
	for _, line := range page.Root().QueryAll(".blob-code-inner") {
		sb.WriteString(line.Text())
	}

	doc, ok := ParseJSON(sb.String())
	if !ok {
		return nil
	}
	return []models.ExtractionResult{{
		Title: org + "/" + repo + "/" + branch + "/" + path,
		JSON:  doc,
	}}
}
