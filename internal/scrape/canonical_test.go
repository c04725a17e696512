package scrape

import "testing"

func TestCanonicalURL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "strips tracking params",
			in:   "https://techcrunch.com/2025/09/21/some-article/?utm_source=feed&utm_medium=rss",
			want: "https://techcrunch.com/2025/09/21/some-article",
		},
		{
			name: "lowercases scheme and host",
			in:   "HTTPS://TechCrunch.com/2025/09/21/Some-Article",
			want: "https://techcrunch.com/2025/09/21/Some-Article",
		},
		{
			name: "drops fragment and trailing slash",
			in:   "https://www.reuters.com/markets/us/story/#comments",
			want: "https://www.reuters.com/markets/us/story",
		},
		{
			name: "sorts surviving query keys",
			in:   "https://example.com/a?b=2&a=1&fbclid=xyz",
			want: "https://example.com/a?a=1&b=2",
		},
		{
			name: "bare host keeps root path",
			in:   "https://example.com/",
			want: "https://example.com/",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := CanonicalURL(tc.in)
			if err != nil {
				t.Fatalf("CanonicalURL(%q) returned error: %v", tc.in, err)
			}
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestCanonicalURLRejectsRelative(t *testing.T) {
	t.Parallel()

	if _, err := CanonicalURL("/2025/09/21/some-article/"); err == nil {
		t.Fatal("expected error for relative url")
	}
}

func TestHashURLIsStable(t *testing.T) {
	t.Parallel()

	a, err := CanonicalURL("https://techcrunch.com/story/?utm_campaign=x")
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	b, err := CanonicalURL("https://TECHCRUNCH.com/story")
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}

	if HashURL(a) != HashURL(b) {
		t.Fatalf("expected equal hashes for %q and %q", a, b)
	}
	if len(HashURL(a)) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(HashURL(a)))
	}
}
