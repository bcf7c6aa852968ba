// Package deck assembles a directory or list of HTML slide files into one
// self-contained deck file with fixed page geometry. It is the Go port of
// the converter the generation service shells out to.
package deck

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Slide is one parsed slide page.
type Slide struct {
	// Path is the source file the slide was read from.
	Path string
	// Title is the document title, when the slide declares one.
	Title string
	// Body is the rendered inner HTML of the slide's <body>.
	Body string
}

// Deck is an ordered set of slides sharing one layout.
type Deck struct {
	Layout Layout
	Slides []Slide
}

// CollectSlides lists the *.html files of a directory in name order.
func CollectSlides(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("slide directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("slide directory %s: not a directory", dir)
	}

	matches, err := filepath.Glob(filepath.Join(dir, "*.html"))
	if err != nil {
		return nil, fmt.Errorf("glob slide files: %w", err)
	}
	sort.Strings(matches)
	return matches, nil
}

// Build parses every slide file and assembles a deck. Any unreadable or
// unparseable slide fails the whole build; a validate-only caller can stop
// here without writing anything.
func Build(files []string, layout Layout) (*Deck, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("no slide files given")
	}

	deck := &Deck{
		Layout: layout,
		Slides: make([]Slide, 0, len(files)),
	}
	for _, file := range files {
		slide, err := parseSlide(file)
		if err != nil {
			return nil, err
		}
		deck.Slides = append(deck.Slides, slide)
	}
	return deck, nil
}

func parseSlide(path string) (Slide, error) {
	f, err := os.Open(path)
	if err != nil {
		return Slide{}, fmt.Errorf("open slide %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	doc, err := html.Parse(f)
	if err != nil {
		return Slide{}, fmt.Errorf("parse slide %s: %w", path, err)
	}

	body := findElement(doc, atom.Body)
	if body == nil {
		return Slide{}, fmt.Errorf("parse slide %s: no body element", path)
	}

	inner, err := renderChildren(body)
	if err != nil {
		return Slide{}, fmt.Errorf("render slide %s: %w", path, err)
	}
	if strings.TrimSpace(inner) == "" {
		return Slide{}, fmt.Errorf("parse slide %s: empty body", path)
	}

	return Slide{
		Path:  path,
		Title: documentTitle(doc),
		Body:  inner,
	}, nil
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if found := findElement(child, a); found != nil {
			return found
		}
	}
	return nil
}

func documentTitle(doc *html.Node) string {
	title := findElement(doc, atom.Title)
	if title == nil || title.FirstChild == nil {
		return ""
	}
	return strings.TrimSpace(title.FirstChild.Data)
}

func renderChildren(n *html.Node) (string, error) {
	var sb strings.Builder
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if err := html.Render(&sb, child); err != nil {
			return "", err
		}
	}
	return sb.String(), nil
}

// WriteFile writes the deck as a single self-contained HTML document, one
// fixed-size page section per slide. Parent directories are created as
// needed.
func (d *Deck) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	var sb strings.Builder
	d.render(&sb)

	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("write deck %s: %w", path, err)
	}
	return nil
}

// Render returns the assembled deck document.
func (d *Deck) Render() string {
	var sb strings.Builder
	d.render(&sb)
	return sb.String()
}

func (d *Deck) render(sb *strings.Builder) {
	title := "Slide deck"
	for _, slide := range d.Slides {
		if slide.Title != "" {
			title = slide.Title
			break
		}
	}

	fmt.Fprintf(sb, `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
@page { size: %.2fin %.2fin; margin: 0; }
html, body { margin: 0; padding: 0; }
section.slide {
  width: %.2fin;
  height: %.2fin;
  overflow: hidden;
  position: relative;
  page-break-after: always;
}
</style>
</head>
<body>
`, html.EscapeString(title), d.Layout.Width, d.Layout.Height, d.Layout.Width, d.Layout.Height)

	for i, slide := range d.Slides {
		fmt.Fprintf(sb, "<section class=\"slide\" data-slide=\"%d\">\n", i+1)
		sb.WriteString(slide.Body)
		sb.WriteString("\n</section>\n")
	}

	sb.WriteString("</body>\n</html>\n")
}
