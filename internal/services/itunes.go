package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/desertthunder/tunebox/internal/shared"
)

const (
	defaultSearchURL = "https://itunes.apple.com/search"
	thumbSize        = "100x100"
	coverSize        = "600x600"
)

// ITunesResult is a single song entry from the iTunes Search API.
type ITunesResult struct {
	TrackName     string `json:"trackName"`
	ArtistName    string `json:"artistName"`
	ArtworkURL100 string `json:"artworkUrl100"`
}

// ITunesSearchResponse is the iTunes Search API response envelope.
type ITunesSearchResponse struct {
	ResultCount int            `json:"resultCount"`
	Results     []ITunesResult `json:"results"`
}

// ITunesService searches cover art on the iTunes Search API.
type ITunesService struct {
	searchURL string
	client    *resty.Client
}

// NewITunesService creates a cover search client. An empty searchURL uses the public endpoint.
func NewITunesService(searchURL string, timeout time.Duration) *ITunesService {
	if searchURL == "" {
		searchURL = defaultSearchURL
	}
	return &ITunesService{searchURL: searchURL, client: newClient("", timeout)}
}

// SearchArtwork returns the 600x600 artwork URL of the first song matching "<artist> <title>".
//
// Returns [shared.ErrNotFound] when the search has no result with artwork.
func (s *ITunesService) SearchArtwork(ctx context.Context, artist, title string) (string, error) {
	term := strings.TrimSpace(artist + " " + title)
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"term": term, "entity": "song"}).
		Get(s.searchURL)
	if err := ensureOK(resp, err); err != nil {
		return "", err
	}

	var result ITunesSearchResponse
	if err := decode(resp, &result); err != nil {
		return "", err
	}
	if len(result.Results) == 0 || result.Results[0].ArtworkURL100 == "" {
		return "", fmt.Errorf("%w: no artwork for %q", shared.ErrNotFound, term)
	}
	return strings.Replace(result.Results[0].ArtworkURL100, thumbSize, coverSize, 1), nil
}

// Download fetches the artwork bytes at url.
func (s *ITunesService) Download(ctx context.Context, url string) ([]byte, error) {
	resp, err := s.client.R().SetContext(ctx).Get(url)
	if err := ensureOK(resp, err); err != nil {
		return nil, err
	}
	if len(resp.Body()) == 0 {
		return nil, fmt.Errorf("%w: empty artwork from %s", shared.ErrUpstream, url)
	}
	return resp.Body(), nil
}
