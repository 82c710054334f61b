package sanitize

import "testing"

func TestLineCollapsesWhitespaceAndTags(t *testing.T) {
	got := Line("  <b>Ravi</b>\n  Kumar\t ")
	if got != "Ravi Kumar" {
		t.Fatalf("expected %q, got %q", "Ravi Kumar", got)
	}
}

func TestStripHTMLCatchesEncodedTags(t *testing.T) {
	got := StripHTML("&lt;script&gt;alert(1)&lt;/script&gt;hello")
	if got != "alert(1)hello" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestStripHTMLDecodesEntities(t *testing.T) {
	if got := StripHTML("Sharma &amp; Sons"); got != "Sharma & Sons" {
		t.Fatalf("unexpected output %q", got)
	}
}
