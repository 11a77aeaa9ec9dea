package parser

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"suumo_crawler/models"
)

var (
	floorsRegex    = regexp.MustCompile(`(\d+)階建`)
	ageRegex       = regexp.MustCompile(`築(\d+)年`)
	roomFloorRegex = regexp.MustCompile(`^(B)?(\d+)`)
	areaRegex      = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*m`)
	digitsRegex    = regexp.MustCompile(`[\d,]+`)

	buildingTypeKeywords = []string{"マンション", "アパート", "一戸建"}
)

// SearchPage is everything extracted from one search-result page
type SearchPage struct {
	Listings    []models.PropertyListing
	NextPageURL string
	TotalCount  int
}

// SearchResultParser extracts listings from SUUMO search-result HTML.
// It never returns errors: malformed fragments degrade to partial results.
type SearchResultParser struct {
	baseURL *url.URL
	now     func() time.Time
}

func NewSearchResultParser(baseURL string) *SearchResultParser {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		u = nil
	}
	return &SearchResultParser{baseURL: u, now: time.Now}
}

// WithClock overrides the clock used for built-date arithmetic
func (p *SearchResultParser) WithClock(now func() time.Time) *SearchResultParser {
	p.now = now
	return p
}

// Parse extracts listings, the next-page href and the hit count in one pass
func (p *SearchResultParser) Parse(html string) SearchPage {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return SearchPage{}
	}
	return SearchPage{
		Listings:    p.propertyItems(doc),
		NextPageURL: nextPageURL(doc),
		TotalCount:  totalCount(doc),
	}
}

func (p *SearchResultParser) PropertyItems(html string) []models.PropertyListing {
	return p.Parse(html).Listings
}

// NextPageURL returns the raw href of the "next" pagination link, or ""
func (p *SearchResultParser) NextPageURL(html string) string {
	return p.Parse(html).NextPageURL
}

func (p *SearchResultParser) TotalCount(html string) int {
	return p.Parse(html).TotalCount
}

func (p *SearchResultParser) propertyItems(doc *goquery.Document) []models.PropertyListing {
	var listings []models.PropertyListing
	doc.Find("div.cassetteitem").Each(func(_ int, s *goquery.Selection) {
		if listing, ok := p.parseListing(s); ok {
			listings = append(listings, listing)
		}
	})
	return listings
}

func (p *SearchResultParser) parseListing(s *goquery.Selection) (models.PropertyListing, bool) {
	name := cleanText(s.Find(".cassetteitem_content-title").First().Text())
	if name == "" {
		return models.PropertyListing{}, false
	}

	listing := models.PropertyListing{
		BuildingName: name,
		BuildingType: buildingTypeKeyword(cleanText(s.Find(".cassetteitem_content-label").First().Text())),
		Address:      cleanText(s.Find("li.cassetteitem_detail-col1").First().Text()),
	}

	var access []string
	s.Find("li.cassetteitem_detail-col2 .cassetteitem_detail-text").Each(func(_ int, a *goquery.Selection) {
		if t := cleanText(a.Text()); t != "" {
			access = append(access, t)
		}
	})
	listing.AccessInfo = strings.Join(access, " / ")

	s.Find("li.cassetteitem_detail-col3 div").Each(func(_ int, d *goquery.Selection) {
		t := cleanText(d.Text())
		switch {
		case floorsRegex.MatchString(t):
			listing.Floors, _ = strconv.Atoi(floorsRegex.FindStringSubmatch(t)[1])
		case t == "新築" || ageRegex.MatchString(t):
			listing.BuiltDate = p.builtDate(t)
		case strings.HasSuffix(t, "造"):
			listing.Structure = t
		}
	})

	s.Find(".cassetteitem_object-item img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		if u := p.imageURL(img); u != "" {
			listing.ImageURLs = []string{u}
			return false
		}
		return true
	})

	s.Find("table.cassetteitem_other tbody tr").Each(func(_ int, tr *goquery.Selection) {
		if tr.Find("td").Length() == 0 {
			return
		}
		listing.Rooms = append(listing.Rooms, p.parseRoom(tr))
	})

	return listing, true
}

func (p *SearchResultParser) parseRoom(tr *goquery.Selection) models.RoomListing {
	room := models.RoomListing{Floor: 1}

	tr.Find("td").EachWithBreak(func(_ int, td *goquery.Selection) bool {
		t := cleanText(td.Text())
		if strings.Contains(t, "階") && !strings.Contains(t, "円") {
			room.Floor = ParseFloor(t)
			return false
		}
		return true
	})

	room.Rent = ParsePrice(tr.Find(".cassetteitem_price--rent").First().Text())
	room.ManagementFee = ParsePrice(tr.Find(".cassetteitem_price--administration").First().Text())
	room.Deposit = parseMonthlyPrice(tr.Find(".cassetteitem_price--deposit").First().Text(), room.Rent)
	room.KeyMoney = parseMonthlyPrice(tr.Find(".cassetteitem_price--gratuity").First().Text(), room.Rent)
	room.RoomType = cleanText(tr.Find(".cassetteitem_madori").First().Text())

	if m := areaRegex.FindStringSubmatch(tr.Find(".cassetteitem_menseki").First().Text()); m != nil {
		if a, err := strconv.ParseFloat(m[1], 64); err == nil {
			room.Area = &a
		}
	}

	if href, ok := tr.Find("a.js-cassette_link_href").First().Attr("href"); ok {
		room.DetailURL = p.absolute(href)
	}

	room.ImageURLs = p.roomImages(tr)
	room.RoomNumber = fmt.Sprintf("%dF-%s", room.Floor, uuid.NewString()[:8])
	return room
}

func (p *SearchResultParser) roomImages(tr *goquery.Selection) []string {
	var urls []string
	if bundled, ok := tr.Find(".js-view_gallery_images").First().Attr("data-imgs"); ok && strings.TrimSpace(bundled) != "" {
		for _, raw := range strings.Split(bundled, ",") {
			if u := p.validImageURL(raw); u != "" {
				urls = append(urls, u)
			}
		}
		return urls
	}
	tr.Find("img").Each(func(_ int, img *goquery.Selection) {
		if u := p.imageURL(img); u != "" {
			urls = append(urls, u)
		}
	})
	return urls
}

// imageURL picks the first usable source attribute; lazy-loaded images keep
// the real URL in rel or data-src and a placeholder in src.
func (p *SearchResultParser) imageURL(img *goquery.Selection) string {
	for _, attr := range []string{"rel", "data-src", "src"} {
		if v, ok := img.Attr(attr); ok {
			if u := p.validImageURL(v); u != "" {
				return u
			}
		}
	}
	return ""
}

func (p *SearchResultParser) validImageURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "data:") || strings.Contains(raw, "base64") {
		return ""
	}
	abs := p.absolute(raw)
	u, err := url.Parse(abs)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ""
	}
	return abs
}

func (p *SearchResultParser) absolute(href string) string {
	href = strings.TrimSpace(href)
	if strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	return ResolveURL(p.baseURL, href)
}

func (p *SearchResultParser) builtDate(text string) *time.Time {
	now := p.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if text == "新築" {
		return &today
	}
	years, err := strconv.Atoi(ageRegex.FindStringSubmatch(text)[1])
	if err != nil {
		return nil
	}
	d := today.AddDate(-years, 0, 0)
	return &d
}

// ParseFloor reads a room floor cell: "3階" is 3, "B1" is -1, anything else is 1
func ParseFloor(text string) int {
	m := roomFloorRegex.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return 1
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return 1
	}
	if m[1] == "B" {
		return -n
	}
	return n
}

// ResolveURL makes href absolute against base; href is returned as-is when it
// is already absolute or base is unknown.
func ResolveURL(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	if ref.IsAbs() || base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}

func nextPageURL(doc *goquery.Document) string {
	var next string
	doc.Find(".pagination-parts a, .pagination a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		rel, _ := a.Attr("rel")
		if strings.Contains(a.Text(), "次へ") || rel == "next" {
			next, _ = a.Attr("href")
			next = strings.TrimSpace(next)
			return next == ""
		}
		return true
	})
	return next
}

func totalCount(doc *goquery.Document) int {
	hit := digitsRegex.FindString(doc.Find(".paginate_set-hit").First().Text())
	n, err := strconv.Atoi(strings.ReplaceAll(hit, ",", ""))
	if err != nil {
		return 0
	}
	return n
}

func buildingTypeKeyword(label string) string {
	for _, kw := range buildingTypeKeywords {
		if strings.Contains(label, kw) {
			return kw
		}
	}
	return ""
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
