package markup

import (
	"strings"
	"testing"
)

func TestEscape(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"<b>", "&lt;b&gt;"},
		{`a & "b" 'c'`, "a &amp; &#34;b&#34; &#39;c&#39;"},
		{"참나무", "참나무"},
		{"&amp;", "&amp;amp;"},
	}
	for _, tt := range tests {
		if got := Escape(tt.in); got != tt.want {
			t.Errorf("Escape(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRenderEscapesTextAndAttributes(t *testing.T) {
	payload := `"><script>alert('x')</script>&`
	n := El("div", Attrs("title", payload, "data-id", payload),
		El("h2", nil, Text(payload)),
	)
	got := Render(n)

	for _, bad := range []string{"<script", "'x'", `"><`} {
		if strings.Contains(got, bad) {
			t.Errorf("Render() contains unescaped %q: %s", bad, got)
		}
	}
	if strings.Count(got, "<") != 4 {
		t.Errorf("Render() should contain exactly four tags, got %s", got)
	}
}

func TestRenderStructure(t *testing.T) {
	n := El("figure", Attrs("class", "plant-photo"),
		El("img", Attrs("src", "https://example.org/oak.jpg", "alt", "Oak")),
		El("p", []Attr{{Name: "class", Value: "notice"}, Flag("hidden")}, Text("gone")),
	)
	want := `<figure class="plant-photo"><img src="https://example.org/oak.jpg" alt="Oak"><p class="notice" hidden>gone</p></figure>`
	if got := Render(n); got != want {
		t.Errorf("Render() =\n%s\nwant\n%s", got, want)
	}
}

func TestElRejectsUnsafeNames(t *testing.T) {
	tests := []struct {
		name  string
		build func()
	}{
		{"script tag", func() { El("script", nil) }},
		{"style tag", func() { El("style", nil) }},
		{"uppercase tag", func() { El("DIV", nil) }},
		{"tag with space", func() { El("a b", nil) }},
		{"event handler", func() { El("img", Attrs("onerror", "x()")) }},
		{"attribute with quote", func() { El("p", Attrs(`a"b`, "")) }},
		{"void with children", func() { El("img", nil, Text("x")) }},
		{"odd attrs", func() { Attrs("class") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("expected panic")
				}
			}()
			tt.build()
		})
	}
}

func TestSafeURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"photo/oak.jpg", "photo/oak.jpg"},
		{"/static/oak.jpg", "/static/oak.jpg"},
		{"https://example.org/a.png", "https://example.org/a.png"},
		{"HTTP://example.org/a.png", "HTTP://example.org/a.png"},
		{"data:image/png;base64,AAAA", "data:image/png;base64,AAAA"},
		{"data:text/html;base64,PHNjcmlwdD4=", InvalidURL},
		{"javascript:alert(1)", InvalidURL},
		{" JavaScript:alert(1)", InvalidURL},
		{"vbscript:x", InvalidURL},
		{"photo/a:b.jpg", "photo/a:b.jpg"},
		{"?q=a:b", "?q=a:b"},
	}
	for _, tt := range tests {
		if got := SafeURL(tt.in); got != tt.want {
			t.Errorf("SafeURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRenderFiltersURLAttributes(t *testing.T) {
	got := Render(El("img", Attrs("src", "javascript:alert(1)")))
	if want := `<img src="about:invalid">`; got != want {
		t.Errorf("Render() = %s, want %s", got, want)
	}
}

func TestWriteTo(t *testing.T) {
	var sb strings.Builder
	n, err := WriteTo(&sb, El("span", nil, Text("a<b")))
	if err != nil {
		t.Fatalf("WriteTo() error: %v", err)
	}
	if want := "<span>a&lt;b</span>"; sb.String() != want || n != int64(len(want)) {
		t.Errorf("WriteTo() wrote %q (%d bytes), want %q", sb.String(), n, want)
	}
}
