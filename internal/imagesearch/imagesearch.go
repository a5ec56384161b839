// Package imagesearch finds a single photo for a text query using the Google
// Custom Search JSON API.
package imagesearch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"
)

const (
	// DefaultEngineID is the programmable search engine the demo was set up with.
	DefaultEngineID = "850e1dffcd2124733"
	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv = "GOOGLE_SEARCH_API_KEY"
)

// DefaultLocale is the search locale; hl and gl are derived from it.
var DefaultLocale = language.MustParse("de-AT")

// ErrNoImage is returned when the search has no result.
var ErrNoImage = errors.New("imagesearch: no image found")

// Image is the first hit of an image search.
type Image struct {
	URL    string
	Title  string
	Width  int
	Height int
}

// Searcher returns the first image for a query.
type Searcher interface {
	Search(ctx context.Context, query string) (Image, error)
}

// Options configures a Google searcher.
type Options struct {
	APIKey   string
	EngineID string // defaults to DefaultEngineID
	Locale   language.Tag
	Endpoint string // optional API base URL override
}

// Google implements Searcher with fixed filters: one large color photo,
// safe search on, reusable-with-attribution licenses, social sites excluded.
type Google struct {
	svc      *customsearch.Service
	engineID string
	hl, gl   string
}

// NewGoogle builds a Custom Search client from opts.
func NewGoogle(ctx context.Context, opts Options) (*Google, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("imagesearch: %s not set", APIKeyEnv)
	}
	clientOpts := []option.ClientOption{option.WithAPIKey(opts.APIKey)}
	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.Endpoint))
	}
	svc, err := customsearch.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("imagesearch: %w", err)
	}
	engineID := opts.EngineID
	if engineID == "" {
		engineID = DefaultEngineID
	}
	locale := opts.Locale
	if locale == language.Und {
		locale = DefaultLocale
	}
	hl, gl := localeParams(locale)
	return &Google{svc: svc, engineID: engineID, hl: hl, gl: gl}, nil
}

// localeParams splits a tag into the interface language and country codes.
func localeParams(tag language.Tag) (hl, gl string) {
	base, _ := tag.Base()
	region, conf := tag.Region()
	hl = base.String()
	if conf != language.No {
		gl = strings.ToLower(region.String())
	}
	return hl, gl
}

// Search runs one query and returns the first item.
func (g *Google) Search(ctx context.Context, query string) (Image, error) {
	call := g.svc.Cse.List().
		Q(query).
		Cx(g.engineID).
		SearchType("image").
		Num(1).
		ImgSize("huge").
		ImgType("photo").
		ImgColorType("color").
		Safe("active").
		Rights("cc_attribute cc_nonderived").
		SiteSearch("instagram.com facebook.com").
		SiteSearchFilter("e").
		Hl(g.hl)
	if g.gl != "" {
		call = call.Gl(g.gl)
	}
	res, err := call.Context(ctx).Do()
	if err != nil {
		return Image{}, fmt.Errorf("imagesearch: %w", err)
	}
	if len(res.Items) == 0 || res.Items[0].Link == "" {
		return Image{}, ErrNoImage
	}
	item := res.Items[0]
	img := Image{URL: item.Link, Title: item.Title}
	if item.Image != nil {
		img.Width = int(item.Image.Width)
		img.Height = int(item.Image.Height)
	}
	return img, nil
}
