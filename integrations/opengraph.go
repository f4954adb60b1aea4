package integrations

import (
	"log/slog"

	"github.com/use-agent/jsonpick/dom"
	"github.com/use-agent/jsonpick/models"
)

var mediaKinds = []string{"image", "video", "audio"}

// OpenGraph collects the page's Open Graph and Twitter card metadata into a
// single object. A page with none of the known tags yields no result.
func OpenGraph(page dom.Page) []models.ExtractionResult {
	media := make(map[string]*Object, len(mediaKinds))
	for _, kind := range mediaKinds {
		media[kind] = openGraphMedia(page, kind)
	}

	twitter := newObject()
	setTwitter(twitter, page, "card", "card")
	setTwitter(twitter, page, "title", "title")
	setTwitter(twitter, page, "description", "description")
	setTwitter(twitter, page, "image", "image:src")
	setTwitter(twitter, page, "site", "site")

	result := newObject()
	setMeta(result, page, "siteName", "og:site_name")
	setMeta(result, page, "title", "og:title")
	setMeta(result, page, "url", "og:url")
	setMeta(result, page, "type", "og:type")
	setMeta(result, page, "description", "og:description")
	for _, kind := range mediaKinds {
		setObject(result, kind, media[kind])
	}
	setObject(result, "twitter", twitter)
	setMeta(result, page, "determiner", "og:determiner")
	setMeta(result, page, "locale", "og:locale")
	setMeta(result, page, "localeAlternate", "og:locale:alternate")

	if result.Len() == 0 {
		return nil
	}

	slog.Debug("opengraph: metadata found", "url", page.URL(), "fields", result.Len())
	return []models.ExtractionResult{{
		Title: page.URL() + " - Open Graph",
		JSON:  result,
	}}
}

// openGraphMedia builds the structured og:<kind> object. The bare og:<kind>
// tag takes precedence over og:<kind>:url.
func openGraphMedia(page dom.Page, kind string) *Object {
	obj := newObject()
	prefix := "og:" + kind
	if url, ok := MetaContent(page, prefix); ok {
		obj.Set("url", url)
	} else {
		setMeta(obj, page, "url", prefix+":url")
	}
	setMeta(obj, page, "secureUrl", prefix+":secure_url")
	setMeta(obj, page, "type", prefix+":type")
	setMeta(obj, page, "width", prefix+":width")
	setMeta(obj, page, "height", prefix+":height")
	setMeta(obj, page, "alt", prefix+":alt")
	return obj
}

func setMeta(obj *Object, page dom.Page, key, property string) {
	if v, ok := MetaContent(page, property); ok {
		obj.Set(key, v)
	}
}

func setTwitter(obj *Object, page dom.Page, key, name string) {
	if v, ok := TwitterContent(page, name); ok {
		obj.Set(key, v)
	}
}

func setObject(obj *Object, key string, value *Object) {
	if value.Len() > 0 {
		obj.Set(key, value)
	}
}
