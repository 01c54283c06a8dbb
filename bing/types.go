package bing

import (
	"fmt"
	"net/url"
	"strings"
)

// Image is the result of one successful fetch. Every string field is empty
// rather than missing when the service omits it.
type Image struct {
	Bytes         []byte
	Title         string
	Copyright     string
	CopyrightLink string
	QuizLink      string
	// Start date reported by the service, e.g. 20240101
	DateKey string
	URL     string
	Market  string
	Format  string
	Width   int
	Height  int
}

// Characters that are invalid in file names on at least one supported OS
const invalidFileNameChars = "<>:\"/\\|?*"

func isInvalidFileNameRune(r rune) bool {
	return r < 32 || strings.ContainsRune(invalidFileNameChars, r)
}

// LongFileName builds a file name (without extension) from the copyright
// text. It falls back to the DateKey when nothing usable remains.
func (i *Image) LongFileName() string {
	parts := strings.FieldsFunc(i.Copyright, isInvalidFileNameRune)
	name := strings.TrimRight(strings.Join(parts, "_"), ".")
	name = strings.TrimSpace(name)
	if name == "" {
		return i.DateKey
	}
	return name
}

// ShortFileName is the date-derived name used for automatic saves.
func (i *Image) ShortFileName() string {
	return i.DateKey + ".jpg"
}

type archiveResponse struct {
	Images []archiveImage `json:"images"`
}

type archiveImage struct {
	URLBase       string `json:"urlbase"`
	URL           string `json:"url"`
	StartDate     string `json:"startdate"`
	Copyright     string `json:"copyright"`
	CopyrightLink string `json:"copyrightlink"`
	Title         string `json:"title"`
	Quiz          string `json:"quiz"`
}

// locator is where the image bytes live. The archive can answer with either a
// base URL that needs the resolution suffix or a complete URL.
type locator interface {
	resolve(base *url.URL, suffix string) (string, error)
}

type urlBaseLocator string

type directLocator string

func (l urlBaseLocator) resolve(base *url.URL, suffix string) (string, error) {
	return resolveReference(base, string(l)+suffix)
}

func (l directLocator) resolve(base *url.URL, _ string) (string, error) {
	return resolveReference(base, string(l))
}

// urlbase wins when both are present, it is the only way to get UHD images
func (a archiveImage) locator() (locator, error) {
	if base := strings.TrimSpace(a.URLBase); base != "" {
		return urlBaseLocator(base), nil
	}
	if direct := strings.TrimSpace(a.URL); direct != "" {
		return directLocator(direct), nil
	}
	return nil, fmt.Errorf("image entry has neither urlbase nor url")
}

// Relative references are appended to the base URI as-is so that values like
// "/th?id=X" followed by a suffix keep the suffix inside the query.
func resolveReference(base *url.URL, ref string) (string, error) {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		u, err := url.Parse(ref)
		if err != nil {
			return "", fmt.Errorf("parse image url %q: %w", ref, err)
		}
		return u.String(), nil
	}
	if !strings.HasPrefix(ref, "/") {
		ref = "/" + ref
	}
	full := strings.TrimRight(base.String(), "/") + ref
	if _, err := url.Parse(full); err != nil {
		return "", fmt.Errorf("parse image url %q: %w", full, err)
	}
	return full, nil
}
