package firecrawl

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Emmmmmmo/rivvy-create-llmstxt-sub000/internal/core/domain"
)

// Selector lists are tried in order; the first non-empty match wins.
// They cover the storefront markup variants seen across tracked sites.
var (
	titleSelectors = []string{
		"h1.product-title",
		"h1.product__title",
		".product-single__title",
		"h1",
	}
	priceSelectors = []string{
		".product-price .money",
		".price__current",
		".product__price",
		"[itemprop=price]",
		".price",
	}
	availabilitySelectors = []string{
		".product-availability",
		".stock-status",
		"[itemprop=availability]",
		".product__inventory",
	}
	descriptionSelectors = []string{
		".product-description",
		".product__description",
		"[itemprop=description]",
		"#product-description",
	}
	breadcrumbSelectors = []string{
		"nav.breadcrumb a",
		".breadcrumbs a",
		"[itemtype*=BreadcrumbList] [itemprop=name]",
		".breadcrumb li",
	}
)

// parsePage extracts the structured entity content from scraped HTML.
func parsePage(html string) (*domain.ScrapeResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("%w: parse html: %v", domain.ErrScrapeInvalid, err)
	}

	result := &domain.ScrapeResult{
		Title: firstText(doc, titleSelectors),
		Body: domain.EntityBody{
			Price:        firstText(doc, priceSelectors),
			Availability: firstText(doc, availabilitySelectors),
			Description:  firstText(doc, descriptionSelectors),
			Specs:        extractSpecs(doc),
		},
		Breadcrumbs: extractBreadcrumbs(doc),
	}

	if result.Title == "" && result.Body.Description == "" {
		return nil, fmt.Errorf("%w: page has no recognisable product content", domain.ErrScrapeInvalid)
	}
	// Trails often end with the product itself; the category resolver
	// wants the last crumb to be the enclosing collection.
	if n := len(result.Breadcrumbs); n > 0 && strings.EqualFold(result.Breadcrumbs[n-1], result.Title) {
		result.Breadcrumbs = result.Breadcrumbs[:n-1]
	}
	return result, nil
}

func firstText(doc *goquery.Document, selectors []string) string {
	for _, selector := range selectors {
		text := collapseWhitespace(doc.Find(selector).First().Text())
		if text != "" {
			return text
		}
	}
	return ""
}

// extractSpecs reads specification tables and definition lists, keeping
// document order.
func extractSpecs(doc *goquery.Document) []domain.SpecAttr {
	var specs []domain.SpecAttr
	seen := map[string]struct{}{}

	add := func(name, value string) {
		name = collapseWhitespace(name)
		value = collapseWhitespace(value)
		if name == "" || value == "" {
			return
		}
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		specs = append(specs, domain.SpecAttr{Name: name, Value: value})
	}

	doc.Find(".product-specs tr, .specifications tr, table.spec-table tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("th, td")
		if cells.Length() < 2 {
			return
		}
		add(cells.Eq(0).Text(), cells.Eq(1).Text())
	})

	doc.Find(".product-specs dt, .specifications dt").Each(func(_ int, dt *goquery.Selection) {
		add(dt.Text(), dt.Next().Text())
	})

	return specs
}

// extractBreadcrumbs returns the trail most general first, dropping a
// leading "Home" element when present.
func extractBreadcrumbs(doc *goquery.Document) []string {
	for _, selector := range breadcrumbSelectors {
		var trail []string
		doc.Find(selector).Each(func(_ int, item *goquery.Selection) {
			text := collapseWhitespace(item.Text())
			if text != "" {
				trail = append(trail, text)
			}
		})
		if len(trail) == 0 {
			continue
		}
		if strings.EqualFold(trail[0], "home") {
			trail = trail[1:]
		}
		return trail
	}
	return nil
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
