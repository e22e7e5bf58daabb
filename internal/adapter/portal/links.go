package portal

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// yearLabelRe matches the visible text of a yearly automatic-station archive
// link, e.g. "ANO 2020 (AUTOMÁTICA)". Anchor text is uppercased before
// matching, so the pattern itself is case-sensitive.
var yearLabelRe = regexp.MustCompile(`ANO\s+(\d{4}).*AUTOM`)

// FindYearLinks scans the index page for yearly archive links and returns a
// year→URL map. When the portal repeats a year, the last anchor wins. A year
// absent from the map is not an error here; the pipeline records it as a skip.
func FindYearLinks(html, origin string) (map[int]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse index page: %w", err)
	}

	links := make(map[int]string)
	doc.Find("a").Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok || href == "" {
			return
		}
		text := strings.ToUpper(a.Text())
		m := yearLabelRe.FindStringSubmatch(text)
		if m == nil {
			return
		}
		year, err := strconv.Atoi(m[1])
		if err != nil {
			return
		}
		links[year] = resolveHref(origin, href)
	})
	return links, nil
}

// FindZipLinks scans a listing page for anchors pointing at ZIP files,
// preserving document order.
func FindZipLinks(html, origin string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse listing page: %w", err)
	}

	var urls []string
	doc.Find("a").Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok {
			return
		}
		if !strings.HasSuffix(strings.ToLower(href), ".zip") {
			return
		}
		urls = append(urls, resolveHref(origin, href))
	})
	return urls, nil
}

// resolveHref prefixes relative hrefs with the portal origin.
func resolveHref(origin, href string) string {
	if strings.HasPrefix(href, "http") {
		return href
	}
	if !strings.HasPrefix(href, "/") {
		href = "/" + href
	}
	return strings.TrimSuffix(origin, "/") + href
}
