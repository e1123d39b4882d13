package collector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"golang.org/x/net/html"
)

const navigateTimeout = 30 * time.Second

// blockedResourceTypes lists network resource types the session skips to
// save bandwidth and speed up mirror page loads.
var blockedResourceTypes = []proto.NetworkResourceType{
	proto.NetworkResourceTypeImage,
	proto.NetworkResourceTypeFont,
	proto.NetworkResourceTypeMedia,
}

// RodSession implements Session over a headless Chromium instance managed
// by Rod. One session owns one browser process; Close releases it.
type RodSession struct {
	browser *rod.Browser
	page    *rod.Page
}

// NewRodSession launches a headless Chromium process and opens a stealth
// page. Returns an error if Chrome/Chromium cannot be started.
func NewRodSession(headless bool) (*RodSession, error) {
	u, err := launcher.New().
		Headless(headless).
		Set("disable-gpu").
		Set("no-sandbox").
		Set("disable-dev-shm-usage").
		Launch()
	if err != nil {
		return nil, fmt.Errorf("launch headless browser: %w", err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect to headless browser: %w", err)
	}

	page, err := stealth.Page(browser)
	if err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("create stealth page: %w", err)
	}

	router := page.HijackRequests()
	for _, rt := range blockedResourceTypes {
		rt := rt
		_ = router.Add("*", rt, func(h *rod.Hijack) {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
		})
	}
	go router.Run()

	return &RodSession{browser: browser, page: page}, nil
}

// Open navigates the session's page to pageURL and waits for the DOM to
// stabilize.
func (s *RodSession) Open(ctx context.Context, pageURL string) error {
	navCtx, cancel := context.WithTimeout(ctx, navigateTimeout)
	defer cancel()
	page := s.page.Context(navCtx)

	if err := page.Navigate(pageURL); err != nil {
		return fmt.Errorf("navigate to %s: %w", pageURL, err)
	}
	_ = page.WaitStable(500 * time.Millisecond)
	return nil
}

// PageText returns the visible body text of the current page.
func (s *RodSession) PageText(ctx context.Context) (string, error) {
	raw, err := s.page.Context(ctx).HTML()
	if err != nil {
		return "", fmt.Errorf("get page html: %w", err)
	}
	return extractBodyText([]byte(raw)), nil
}

// FindAll returns the elements matching selector on the current page.
func (s *RodSession) FindAll(ctx context.Context, selector string) ([]Element, error) {
	els, err := s.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", selector, err)
	}
	out := make([]Element, 0, len(els))
	for _, el := range els {
		out = append(out, rodElement{el: el})
	}
	return out, nil
}

// ScrollToBottom triggers a scroll to the document end.
func (s *RodSession) ScrollToBottom(ctx context.Context) error {
	_, err := s.page.Context(ctx).Eval(`() => window.scrollTo(0, document.body.scrollHeight)`)
	if err != nil {
		return fmt.Errorf("scroll: %w", err)
	}
	return nil
}

// PageHeight reports the current document height, used for stall
// detection between scrolls.
func (s *RodSession) PageHeight(ctx context.Context) (float64, error) {
	res, err := s.page.Context(ctx).Eval(`() => document.body.scrollHeight`)
	if err != nil {
		return 0, fmt.Errorf("page height: %w", err)
	}
	return res.Value.Num(), nil
}

// Close shuts down the headless browser process.
func (s *RodSession) Close() {
	_ = s.browser.Close()
}

type rodElement struct {
	el *rod.Element
}

func (r rodElement) Text(selector string) (string, bool) {
	child, err := r.el.Element(selector)
	if err != nil {
		return "", false
	}
	text, err := child.Text()
	if err != nil {
		return "", false
	}
	return text, true
}

func (r rodElement) Attr(selector, attr string) (string, bool) {
	child, err := r.el.Element(selector)
	if err != nil {
		return "", false
	}
	value, err := child.Attribute(attr)
	if err != nil || value == nil {
		return "", false
	}
	return *value, true
}

func (r rodElement) TextAll(selector string) []string {
	children, err := r.el.Elements(selector)
	if err != nil {
		return nil
	}
	var out []string
	for _, child := range children {
		text, err := child.Text()
		if err != nil {
			text = ""
		}
		out = append(out, text)
	}
	return out
}

// extractBodyText extracts visible text from the <body> element.
func extractBodyText(data []byte) string {
	node, err := html.Parse(strings.NewReader(string(data)))
	if err != nil {
		return ""
	}
	body := findElement(node, "body")
	if body == nil {
		return ""
	}
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				return
			}
		}
		if n.Type == html.TextNode {
			trimmed := strings.TrimSpace(n.Data)
			if trimmed != "" {
				buf.WriteString(trimmed)
				buf.WriteByte(' ')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(body)
	return buf.String()
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}
