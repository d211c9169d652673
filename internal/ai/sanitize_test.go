package ai

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestStripFences(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"html fence", "```html\n<!DOCTYPE html><html></html>\n```", "<!DOCTYPE html><html></html>"},
		{"bare fence", "```\n<p>hi</p>\n```", "<p>hi</p>"},
		{"json fence", "```json\n{\"name\":\"Sara\"}\n```", `{"name":"Sara"}`},
		{"no fence", "  <!DOCTYPE html>\n<html></html>\n\n", "<!DOCTYPE html>\n<html></html>"},
		{"empty", "   ", ""},
		{"chatter around fence", "Here you go:\n```html\n<html></html>\n```", "Here you go:\n<html></html>"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if diff := cmp.Diff(c.want, StripFences(c.in)); diff != "" {
				t.Errorf("StripFences mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExtractDocument(t *testing.T) {
	t.Run("first fenced block wins", func(t *testing.T) {
		in := "Sure!\n```html\n<!DOCTYPE html><html><body>new</body></html>\n```\nLet me know."
		assert.Equal(t, "<!DOCTYPE html><html><body>new</body></html>", ExtractDocument(in))
	})

	t.Run("upper-case language tag", func(t *testing.T) {
		assert.Equal(t, "<html></html>", ExtractDocument("```HTML\n<html></html>\n```"))
	})

	t.Run("dangling opener", func(t *testing.T) {
		assert.Equal(t, "<!DOCTYPE html><html></html>", ExtractDocument("```html\n<!DOCTYPE html><html></html>"))
	})

	t.Run("no fences", func(t *testing.T) {
		assert.Equal(t, "<html></html>", ExtractDocument("\n <html></html> \n"))
	})

	t.Run("only the first pair is consumed", func(t *testing.T) {
		in := "```html\n<html>a</html>\n```\n```css\nbody{}\n```"
		assert.Equal(t, "<html>a</html>", ExtractDocument(in))
	})
}

func TestLooksLikeDocument(t *testing.T) {
	assert.True(t, LooksLikeDocument("<!DOCTYPE html><html></html>"))
	assert.True(t, LooksLikeDocument("<HTML lang=\"ar\">"))
	assert.False(t, LooksLikeDocument("<section>fragment</section>"))
}
