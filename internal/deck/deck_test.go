package deck

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSlide(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLayoutByName(t *testing.T) {
	cases := []struct {
		name   string
		want   string
		width  float64
		height float64
	}{
		{"16:9", "16:9", 13.33, 7.5},
		{"4:3", "4:3", 10, 7.5},
		{"a4", "A4", 8.27, 11.69},
		{"A1", "A1", 23.39, 33.11},
		{"", "16:9", 13.33, 7.5},
		{"  A3  ", "A3", 11.69, 16.54},
	}
	for _, tc := range cases {
		layout, err := LayoutByName(tc.name)
		require.NoError(t, err, tc.name)
		assert.Equal(t, tc.want, layout.Name)
		assert.Equal(t, tc.width, layout.Width)
		assert.Equal(t, tc.height, layout.Height)
	}
}

func TestLayoutByNameRejectsUnknown(t *testing.T) {
	_, err := LayoutByName("letter")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "letter")
	assert.Contains(t, err.Error(), "16:9")
}

func TestLayoutNamesSorted(t *testing.T) {
	assert.Equal(t, []string{"16:9", "4:3", "A1", "A2", "A3", "A4"}, LayoutNames())
}

func TestCollectSlidesSortsByName(t *testing.T) {
	dir := t.TempDir()
	writeSlide(t, dir, "slide_02.html", "<body>two</body>")
	writeSlide(t, dir, "slide_01.html", "<body>one</body>")
	writeSlide(t, dir, "notes.txt", "ignored")

	files, err := CollectSlides(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "slide_01.html", filepath.Base(files[0]))
	assert.Equal(t, "slide_02.html", filepath.Base(files[1]))
}

func TestCollectSlidesRejectsNonDirectory(t *testing.T) {
	dir := t.TempDir()
	file := writeSlide(t, dir, "slide.html", "<body>x</body>")

	_, err := CollectSlides(file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestBuildAssemblesSlidesInOrder(t *testing.T) {
	dir := t.TempDir()
	first := writeSlide(t, dir, "slide_01.html", `<!DOCTYPE html>
<html><head><title>Quarterly Review</title></head>
<body><h1>Agenda</h1><p>Welcome</p></body></html>`)
	second := writeSlide(t, dir, "slide_02.html", `<html><body><h1>Results</h1></body></html>`)

	layout, err := LayoutByName("16:9")
	require.NoError(t, err)

	deck, err := Build([]string{first, second}, layout)
	require.NoError(t, err)
	require.Len(t, deck.Slides, 2)
	assert.Equal(t, "Quarterly Review", deck.Slides[0].Title)
	assert.Contains(t, deck.Slides[0].Body, "<h1>Agenda</h1>")
	assert.Contains(t, deck.Slides[1].Body, "<h1>Results</h1>")
}

func TestBuildRejectsEmptyInput(t *testing.T) {
	layout, err := LayoutByName("")
	require.NoError(t, err)

	_, err = Build(nil, layout)
	require.Error(t, err)
}

func TestBuildRejectsEmptyBody(t *testing.T) {
	dir := t.TempDir()
	blank := writeSlide(t, dir, "blank.html", `<html><head><title>t</title></head><body>   </body></html>`)

	layout, err := LayoutByName("")
	require.NoError(t, err)

	_, err = Build([]string{blank}, layout)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty body")
}

func TestBuildFailsOnMissingFile(t *testing.T) {
	layout, err := LayoutByName("")
	require.NoError(t, err)

	_, err = Build([]string{filepath.Join(t.TempDir(), "nope.html")}, layout)
	require.Error(t, err)
}

func TestRenderProducesSelfContainedDocument(t *testing.T) {
	dir := t.TempDir()
	first := writeSlide(t, dir, "a.html", `<html><head><title>Launch Plan</title></head><body><h1>One</h1></body></html>`)
	second := writeSlide(t, dir, "b.html", `<html><body><h1>Two</h1></body></html>`)

	layout, err := LayoutByName("A4")
	require.NoError(t, err)

	deck, err := Build([]string{first, second}, layout)
	require.NoError(t, err)

	out := deck.Render()
	assert.Contains(t, out, "<title>Launch Plan</title>")
	assert.Contains(t, out, "@page { size: 8.27in 11.69in; margin: 0; }")
	assert.Contains(t, out, `<section class="slide" data-slide="1">`)
	assert.Contains(t, out, `<section class="slide" data-slide="2">`)
	assert.Equal(t, 2, strings.Count(out, "</section>"))
	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
}

func TestWriteFileCreatesParentDirectories(t *testing.T) {
	dir := t.TempDir()
	slide := writeSlide(t, dir, "a.html", `<html><body><p>content</p></body></html>`)

	layout, err := LayoutByName("")
	require.NoError(t, err)
	deck, err := Build([]string{slide}, layout)
	require.NoError(t, err)

	out := filepath.Join(dir, "nested", "out", "deck.html")
	require.NoError(t, deck.WriteFile(out))

	written, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(written), "<p>content</p>")
}
