package generator

import "testing"

func TestPermalinksDefaults(t *testing.T) {
	permalinks, err := NewPermalinks("https://example.com", PermalinkRoutes{})
	if err != nil {
		t.Fatalf("new permalinks: %v", err)
	}

	postPath, err := permalinks.PostPath("hello-world")
	if err != nil {
		t.Fatalf("post path: %v", err)
	}
	if postPath != "/html/hello-world.html" {
		t.Fatalf("unexpected post path %q", postPath)
	}

	postURL, err := permalinks.PostURL("hello-world")
	if err != nil {
		t.Fatalf("post url: %v", err)
	}
	if postURL != "https://example.com/html/hello-world.html" {
		t.Fatalf("unexpected post url %q", postURL)
	}

	indexPath, err := permalinks.IndexPath()
	if err != nil {
		t.Fatalf("index path: %v", err)
	}
	if indexPath != "/index.html" {
		t.Fatalf("unexpected index path %q", indexPath)
	}

	feedPath, err := permalinks.FeedPath()
	if err != nil {
		t.Fatalf("feed path: %v", err)
	}
	if feedPath != "/feed.xml" {
		t.Fatalf("unexpected feed path %q", feedPath)
	}
}

func TestPermalinksCustomRoutes(t *testing.T) {
	permalinks, err := NewPermalinks("https://example.com", PermalinkRoutes{
		Post: "/writing/:slug/",
	})
	if err != nil {
		t.Fatalf("new permalinks: %v", err)
	}

	postPath, err := permalinks.PostPath("hello")
	if err != nil {
		t.Fatalf("post path: %v", err)
	}
	if postPath != "/writing/hello/" {
		t.Fatalf("unexpected post path %q", postPath)
	}
	if got := postOutputPath(postPath); got != "writing/hello/index.html" {
		t.Fatalf("unexpected output path %q", got)
	}
}

func TestPermalinksNotConfigured(t *testing.T) {
	var permalinks *Permalinks
	if _, err := permalinks.PostPath("x"); err == nil {
		t.Fatalf("expected error for nil permalinks")
	}
}
