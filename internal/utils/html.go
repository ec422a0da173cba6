package utils

import (
	"bytes"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var htmlTag = []byte{'<', 'h', 't', 'm', 'l'}

// IsHtml sniffs body for an html tag, for servers that send no content type.
func IsHtml(body []byte) bool {
	return bytes.Contains(bytes.ToLower(body), htmlTag)
}

// ListDirectory returns the entries linked from a directory index page. basePath
// is the URL path of the listed directory; links below it are made relative.
// Absolute and query-only links, links to other hosts and links that leave the
// directory are dropped. Entries are normalized and have no trailing slash.
func ListDirectory(body []byte, basePath string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if basePath != "" && !strings.HasSuffix(basePath, "/") {
		basePath += "/"
	}

	var entries []string
	seen := make(map[string]struct{})
	doc.Find("a[href]").Each(func(_ int, link *goquery.Selection) {
		href := strings.TrimSpace(link.AttrOr("href", ""))
		if href == "" || strings.HasPrefix(href, "?") || strings.HasPrefix(href, "#") {
			return
		}
		lnk, err := url.Parse(href)
		if err != nil || lnk.Scheme != "" || lnk.Host != "" {
			return
		}
		p := lnk.Path
		if basePath != "" && strings.HasPrefix(p, basePath) {
			p = strings.TrimPrefix(p, basePath)
		}
		if p == "" || strings.HasPrefix(p, "/") {
			return
		}
		p = path.Clean(p)
		if p == "." || p == ".." || strings.HasPrefix(p, "../") {
			return
		}
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		entries = append(entries, p)
	})
	return entries, nil
}
