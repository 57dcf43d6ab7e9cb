package ytdlp

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteCookies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.txt")
	content := "# Netscape HTTP Cookie File\n.youtube.com\tTRUE\t/\tTRUE\t0\tPREF\tf6=8\n"

	if err := WriteCookies(base64.StdEncoding.EncodeToString([]byte(content)), path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read cookies: %v", err)
	}
	if string(got) != content {
		t.Fatalf("unexpected cookies content: %q", got)
	}
}

func TestWriteCookies_EmptyIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.txt")
	if err := WriteCookies("  ", path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("expected no cookie file to be written")
	}
}

func TestWriteCookies_InvalidBase64(t *testing.T) {
	if err := WriteCookies("not base64!!", filepath.Join(t.TempDir(), "c.txt")); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestBaseArgs_IncludesCookiesOnlyWhenPresent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.txt")
	c := NewClient("yt-dlp", path)

	if args := c.baseArgs(); len(args) != 1 {
		t.Fatalf("expected no cookie args before the file exists, got %v", args)
	}
	if err := os.WriteFile(path, []byte("x"), 0o600); err != nil {
		t.Fatalf("failed to write cookies: %v", err)
	}
	args := c.baseArgs()
	if len(args) != 3 || args[1] != "--cookies" || args[2] != path {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestParsePrintOutput(t *testing.T) {
	out := "https://soundcloud.com/a/one\tOne\tArtist A\n" +
		"\n" +
		"NA\tBroken\tNobody\n" +
		"https://soundcloud.com/b/two\tTwo\tNA\n"

	results := parsePrintOutput(out)

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %+v", results)
	}
	if results[0].Locator != "https://soundcloud.com/a/one" || results[0].Title != "One" || results[0].Author != "Artist A" {
		t.Fatalf("unexpected first result: %+v", results[0])
	}
	if results[1].Author != "" {
		t.Fatalf("expected NA uploader to be dropped, got %+v", results[1])
	}
}
