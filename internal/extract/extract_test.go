package extract

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func articleFixture() string {
	var b strings.Builder
	b.WriteString(`<!doctype html>
	<html>
	  <head><title>Gardening Field Notes</title></head>
	  <body>
	    <nav>Home Archive About</nav>
	    <main>
	      <h1>Growing tomatoes in clay soil</h1>`)
	paras := []string{
		"Water deeply twice a week rather than a little every day, so roots chase moisture downward.",
		"Clay holds nutrients well but compacts easily, which starves roots of oxygen during wet spells.",
		"Work in coarse compost each autumn and avoid digging when the ground is saturated.",
		"Raised rows warm up faster in spring and shed excess rain away from the root zone.",
		"Mulch with straw once the soil has warmed to keep the surface from crusting over.",
		"Stake plants early because wet clay gives poor anchorage once fruit sets.",
		"Feed with a high potash liquid feed weekly from the first truss onward.",
		"Remove side shoots on cordon varieties so energy goes into fruit rather than leaves.",
		"Blossom end rot signals uneven watering, not a calcium shortage in the soil itself.",
		"Late season, pinch out the growing tip so the remaining trusses ripen before frost.",
	}
	for _, p := range paras {
		b.WriteString("<p>")
		b.WriteString(p)
		b.WriteString("</p>\n")
	}
	b.WriteString(`    </main>
	    <footer>Copyright 2025 Example Gardens</footer>
	  </body>
	</html>`)
	return b.String()
}

func TestFromHTML_ReadableArticle(t *testing.T) {
	doc := FromHTML([]byte(articleFixture()), "https://example.com/tomatoes")
	if doc.Title != "Gardening Field Notes" {
		t.Fatalf("expected title 'Gardening Field Notes', got %q", doc.Title)
	}
	if !strings.Contains(doc.Text, "Water deeply twice a week") {
		t.Fatalf("expected first paragraph in extracted text; got: %q", doc.Text)
	}
	if !strings.Contains(doc.Text, "ripen before frost") {
		t.Fatalf("expected last paragraph in extracted text")
	}
	if strings.Contains(doc.Text, "Home Archive About") {
		t.Fatalf("did not expect nav text in extracted content")
	}
	if strings.Contains(doc.Text, "Example Gardens") {
		t.Fatalf("did not expect footer text in extracted content")
	}
}

func TestFromHTML_EmptyInput(t *testing.T) {
	doc := FromHTML([]byte(""), "https://example.com/")
	if doc.Title != "" || doc.Text != "" {
		t.Fatalf("expected empty document, got %+v", doc)
	}
}

func TestTagStrip_PrefersMainOverBody(t *testing.T) {
	html := `<!doctype html>
	<html>
	  <head><title>Test Page</title></head>
	  <body>
	    <nav>Nav should be ignored</nav>
	    <main>
	      <h1>Main Heading</h1>
	      <p>This is the main content paragraph.</p>
	    </main>
	    <footer>Footer text</footer>
	  </body>
	</html>`

	doc := fromTagStrip([]byte(html))
	if doc.Title != "Test Page" {
		t.Fatalf("expected title 'Test Page', got %q", doc.Title)
	}
	if !strings.Contains(doc.Text, "Main Heading") {
		t.Fatalf("expected to contain main heading")
	}
	if !strings.Contains(doc.Text, "This is the main content paragraph.") {
		t.Fatalf("expected to contain main paragraph")
	}
	if strings.Contains(doc.Text, "Nav should be ignored") {
		t.Fatalf("did not expect nav text in extracted content")
	}
	if strings.Contains(doc.Text, "Footer text") {
		t.Fatalf("did not expect footer text in extracted content")
	}
}

func TestTagStrip_FallbackToBody(t *testing.T) {
	html := `<!doctype html>
	<html>
	  <head><title>No Main</title></head>
	  <body>
	    <h2>Body Heading</h2>
	    <p>Body paragraph</p>
	  </body>
	</html>`

	doc := fromTagStrip([]byte(html))
	if doc.Title != "No Main" {
		t.Fatalf("expected title 'No Main', got %q", doc.Title)
	}
	if !strings.Contains(doc.Text, "Body Heading") {
		t.Fatalf("expected to contain body heading")
	}
	if !strings.Contains(doc.Text, "Body paragraph") {
		t.Fatalf("expected to contain body paragraph")
	}
}

func TestTagStrip_PreservesCodeAndListItems(t *testing.T) {
	html := `<!doctype html>
	<html>
	  <head><title>Code and List</title></head>
	  <body>
	    <article>
	      <h3>Examples</h3>
	      <ul>
	        <li>First item</li>
	        <li>Second item</li>
	      </ul>
	      <pre><code>print("hello")</code></pre>
	    </article>
	  </body>
	</html>`

	doc := fromTagStrip([]byte(html))
	if doc.Title != "Code and List" {
		t.Fatalf("expected title 'Code and List', got %q", doc.Title)
	}
	if !strings.Contains(doc.Text, "First item") || !strings.Contains(doc.Text, "Second item") {
		t.Fatalf("expected to contain list items; got: %q", doc.Text)
	}
	if !strings.Contains(doc.Text, "print(\"hello\")") {
		t.Fatalf("expected code block content to be preserved; got: %q", doc.Text)
	}
}

func TestTagStrip_SkipsCookieBanner(t *testing.T) {
	html := `<!doctype html>
	<html>
	  <head><title>Banner</title></head>
	  <body>
	    <div class="cookie-consent">We value your privacy. Accept all?</div>
	    <main><p>Actual content here.</p></main>
	  </body>
	</html>`

	doc := fromTagStrip([]byte(html))
	if strings.Contains(doc.Text, "We value your privacy") {
		t.Fatalf("did not expect cookie banner text; got: %q", doc.Text)
	}
	if !strings.Contains(doc.Text, "Actual content here.") {
		t.Fatalf("expected main content to survive")
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 100); got != "short" {
		t.Fatalf("expected unchanged string, got %q", got)
	}
	if got := Truncate("anything", 0); got != "anything" {
		t.Fatalf("expected zero max to disable the cap, got %q", got)
	}
	got := Truncate("abcdefgh", 5)
	if got != "abcde…" {
		t.Fatalf("expected capped string with ellipsis, got %q", got)
	}
	// Multibyte input must be cut on rune boundaries.
	got = Truncate("日本語のテキスト", 3)
	if got != "日本語…" {
		t.Fatalf("expected rune-safe cut, got %q", got)
	}
	if !utf8.ValidString(got) {
		t.Fatalf("expected valid UTF-8 after truncation")
	}
}
