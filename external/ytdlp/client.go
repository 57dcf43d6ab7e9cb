package ytdlp

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/foxseedlab/ongaku/internal/resolver"
	"github.com/lrstanley/go-ytdlp"
)

const (
	SoundCloudSearcherName = "soundcloud"
	audioFormat            = "bestaudio[ext=m4a]/bestaudio/best"
	searchPrintFormat      = "%(url)s\t%(title)s\t%(uploader)s"
	lookupPrintFormat      = "%(webpage_url)s\t%(title)s\t%(uploader)s"
)

// Client runs the yt-dlp executable for searches, link lookups and streams.
type Client struct {
	executable  string
	cookiesPath string
}

func NewClient(executable, cookiesPath string) *Client {
	return &Client{executable: executable, cookiesPath: cookiesPath}
}

// WriteCookies decodes a base64 cookies.txt and stores it at path. An empty
// payload is a no-op.
func WriteCookies(encoded, path string) error {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" || path == "" {
		return nil
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("failed to decode yt-dlp cookies: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return fmt.Errorf("failed to write yt-dlp cookies: %w", err)
	}
	slog.Info("yt-dlp cookies written", "path", path)
	return nil
}

func (c *Client) command() *ytdlp.Command {
	return ytdlp.New().
		SetExecutable(c.executable).
		Quiet().
		NoWarnings().
		IgnoreConfig()
}

func (c *Client) baseArgs() []string {
	args := []string{"--rm-cache-dir"}
	if c.cookiesPath == "" {
		return args
	}
	if _, err := os.Stat(c.cookiesPath); err == nil {
		args = append(args, "--cookies", c.cookiesPath)
	}
	return args
}

// Search runs a SoundCloud search and returns up to limit results.
func (c *Client) Search(ctx context.Context, text string, limit int) ([]resolver.SearchResult, error) {
	if limit <= 0 {
		limit = 1
	}
	res, err := c.command().
		FlatPlaylist().
		Print(searchPrintFormat).
		Run(ctx, append(c.baseArgs(), fmt.Sprintf("scsearch%d:%s", limit, text))...)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp search failed: %w", err)
	}
	return parsePrintOutput(res.Stdout), nil
}

func (c *Client) Name() string {
	return SoundCloudSearcherName
}

// Lookup reads title and uploader of a link yt-dlp can play directly.
func (c *Client) Lookup(ctx context.Context, link string) (resolver.Metadata, error) {
	res, err := c.command().
		NoPlaylist().
		Print(lookupPrintFormat).
		Run(ctx, append(c.baseArgs(), link)...)
	if err != nil {
		return resolver.Metadata{}, fmt.Errorf("yt-dlp lookup failed: %w", err)
	}
	results := parsePrintOutput(res.Stdout)
	if len(results) == 0 {
		return resolver.Metadata{}, fmt.Errorf("yt-dlp returned no metadata for %s", link)
	}
	return resolver.Metadata{
		Title:   results[0].Title,
		Author:  results[0].Author,
		Locator: link,
	}, nil
}

// StreamURL asks yt-dlp for the direct media URL of the best audio format.
func (c *Client) StreamURL(ctx context.Context, locator string) (string, error) {
	res, err := c.command().
		NoPlaylist().
		Format(audioFormat).
		Run(ctx, append(c.baseArgs(), "--get-url", locator)...)
	if err != nil {
		return "", fmt.Errorf("yt-dlp --get-url failed: %w", err)
	}
	for _, line := range strings.Split(strings.TrimSpace(res.Stdout), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line, nil
		}
	}
	return "", errors.New("yt-dlp returned no stream url")
}

// Pipe starts yt-dlp writing the best audio stream of locator to stdout.
func (c *Client) Pipe(ctx context.Context, locator string) (io.Reader, func(), error) {
	cmd := c.command().
		Format(audioFormat).
		Output("-").
		NoPlaylist().
		NoPart().
		NoSimulate().
		BuildCommand(ctx, append(c.baseArgs(), locator)...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, nil, fmt.Errorf("failed to start yt-dlp: %w", err)
	}
	var once sync.Once
	stop := func() {
		once.Do(func() {
			if cmd.Process != nil {
				if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
					slog.Warn("failed to kill yt-dlp", "pid", cmd.Process.Pid, "error", err)
				}
			}
			go func() {
				if err := cmd.Wait(); err != nil {
					slog.Debug("yt-dlp exited", "locator", locator, "error", err)
				}
			}()
		})
	}
	return stdout, stop, nil
}

// parsePrintOutput reads tab separated url, title and uploader lines.
func parsePrintOutput(out string) []resolver.SearchResult {
	var results []resolver.SearchResult
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		parts := strings.Split(strings.TrimSpace(line), "\t")
		if len(parts) < 2 || parts[0] == "" || parts[0] == "NA" {
			continue
		}
		r := resolver.SearchResult{Locator: parts[0], Title: parts[1]}
		if len(parts) > 2 && parts[2] != "NA" {
			r.Author = parts[2]
		}
		if r.Title == "NA" {
			r.Title = ""
		}
		results = append(results, r)
	}
	return results
}
