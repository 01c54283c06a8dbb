// Package bing downloads the image of the day from Bing's homepage archive.
//
// A fetch is two sequential requests: the archive metadata as JSON and then
// the image bytes it points to. There are no retries, the first failure is
// returned as a *FetchError and the caller decides when to try again.
package bing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/awused/bing-wallpaper/settings"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

const (
	DefaultEndpoint    = "https://www.bing.com"
	DefaultImageSuffix = "_UHD.jpg"
	DefaultTimeout     = 30 * time.Second
	defaultUserAgent   = "bing-wallpaper/1.0"

	archivePath = "/HPImageArchive.aspx?format=js&idx=0&n=1"
	// UHD images are usually well under this
	maxImageBytes = 64 << 20
)

// Options configure a Client. Zero values use the defaults above.
type Options struct {
	Endpoint    string
	ImageSuffix string
	Timeout     time.Duration
	UserAgent   string
}

// Client talks to the homepage image archive.
type Client struct {
	baseURL   *url.URL
	suffix    string
	http      *http.Client
	userAgent string
}

// NewClient validates the endpoint and builds a Client.
func NewClient(opts Options) (*Client, error) {
	base, err := parseEndpoint(opts.Endpoint)
	if err != nil {
		return nil, err
	}

	c := &Client{
		baseURL:   base,
		suffix:    opts.ImageSuffix,
		http:      &http.Client{Timeout: opts.Timeout},
		userAgent: opts.UserAgent,
	}
	if c.suffix == "" {
		c.suffix = DefaultImageSuffix
	}
	if c.http.Timeout <= 0 {
		c.http.Timeout = DefaultTimeout
	}
	if c.userAgent == "" {
		c.userAgent = defaultUserAgent
	}
	return c, nil
}

// Market converts a location code into the xx-XX form the archive expects.
// The local location has no market and lets the service decide.
func Market(location string) string {
	if location == settings.LocalLocation || len(location) < 4 {
		return ""
	}
	return location[0:2] + "-" + location[2:4]
}

// MetadataURL is the archive request for the given location.
func (c *Client) MetadataURL(location string) string {
	u := strings.TrimRight(c.baseURL.String(), "/") + archivePath
	if mkt := Market(location); mkt != "" {
		u += "&mkt=" + url.QueryEscape(mkt)
	}
	return u
}

// FetchDailyImage downloads today's metadata and image for location.
func (c *Client) FetchDailyImage(ctx context.Context, location string) (*Image, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}

	metaURL := c.MetadataURL(location)
	entry, err := c.fetchMetadata(ctx, metaURL)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(entry.StartDate) == "" {
		return nil, fetchErr("parse metadata", metaURL, errors.New("image has no startdate"))
	}
	loc, err := entry.locator()
	if err != nil {
		return nil, fetchErr("parse metadata", metaURL, err)
	}
	imageURL, err := loc.resolve(c.baseURL, c.suffix)
	if err != nil {
		return nil, fetchErr("parse metadata", metaURL, err)
	}

	data, err := c.get(ctx, imageURL, "image/*", maxImageBytes)
	if err != nil {
		return nil, fetchErr("download image", imageURL, err)
	}
	if len(data) == 0 {
		return nil, fetchErr("download image", imageURL, errors.New("empty image payload"))
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fetchErr("download image", imageURL,
			fmt.Errorf("payload is not a supported image: %w", err))
	}

	return &Image{
		Bytes:         data,
		Title:         entry.Title,
		Copyright:     entry.Copyright,
		CopyrightLink: entry.CopyrightLink,
		QuizLink:      c.quizLink(entry.Quiz),
		DateKey:       strings.TrimSpace(entry.StartDate),
		URL:           imageURL,
		Market:        Market(location),
		Format:        format,
		Width:         cfg.Width,
		Height:        cfg.Height,
	}, nil
}

func (c *Client) fetchMetadata(ctx context.Context, metaURL string) (archiveImage, error) {
	// The archive answers with a few KB of JSON
	data, err := c.get(ctx, metaURL, "application/json", 1<<20)
	if err != nil {
		return archiveImage{}, fetchErr("fetch metadata", metaURL, err)
	}

	var payload archiveResponse
	if err := json.Unmarshal(data, &payload); err != nil {
		return archiveImage{}, fetchErr("decode metadata", metaURL, err)
	}
	if len(payload.Images) == 0 {
		return archiveImage{}, fetchErr("decode metadata", metaURL, errors.New("no images in response"))
	}
	return payload.Images[0], nil
}

func (c *Client) quizLink(quiz string) string {
	quiz = strings.TrimSpace(quiz)
	if quiz == "" {
		return ""
	}
	link, err := resolveReference(c.baseURL, quiz)
	if err != nil {
		return ""
	}
	return link
}

func (c *Client) get(ctx context.Context, u, accept string, limit int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("response larger than %d bytes", limit)
	}
	return data, nil
}

func parseEndpoint(endpoint string) (*url.URL, error) {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		trimmed = DefaultEndpoint
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint %q: %w", endpoint, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("endpoint %q has no host", endpoint)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
