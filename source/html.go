package source

import (
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"golang.org/x/net/html"
)

// Pre-compiled to avoid recompilation per request.
var (
	scriptRe       = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleRe        = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	excessBlankGap = regexp.MustCompile(`\n{4,}`)
)

// HTMLResult holds the outcome of an HTML to markdown conversion.
type HTMLResult struct {
	Title    string
	Markdown string
}

var converter = newConverter()

func newConverter() *md.Converter {
	c := md.NewConverter("", true, nil)
	c.Use(plugin.GitHubFlavored())
	return c
}

// ConvertHTML converts an HTML document to markdown, stripping scripts and
// styles and collapsing excessive blank lines.
func ConvertHTML(content []byte) (*HTMLResult, error) {
	title := htmlTitle(content)

	cleaned := scriptRe.ReplaceAllString(string(content), "")
	cleaned = styleRe.ReplaceAllString(cleaned, "")

	markdown, err := converter.ConvertString(cleaned)
	if err != nil {
		return nil, err
	}
	markdown = strings.TrimSpace(excessBlankGap.ReplaceAllString(markdown, "\n\n\n"))

	return &HTMLResult{Title: title, Markdown: markdown}, nil
}

// htmlTitle extracts the <title> element text, or "".
func htmlTitle(content []byte) string {
	doc, err := html.Parse(strings.NewReader(string(content)))
	if err != nil {
		return ""
	}

	var title string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
			title = strings.TrimSpace(n.FirstChild.Data)
			return
		}
		for c := n.FirstChild; c != nil && title == ""; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return title
}
