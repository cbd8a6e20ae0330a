package models

import (
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// PlaceholderImageURL is used when a series has no cover image
const PlaceholderImageURL = "https://via.placeholder.com/300x400.png?text=No+Image"

// MinPasswordLength is the shortest password accepted on sign up
const MinPasswordLength = 6

// Series represents a single tracked TV series
type Series struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	EpisodeCount int    `json:"episodeCount"`
	ImageURL     string `json:"imageUrl"`
}

// SeriesInput is a series that has not been assigned an id yet
type SeriesInput struct {
	Name         string `json:"name"`
	EpisodeCount int    `json:"episodeCount"`
	ImageURL     string `json:"imageUrl"`
}

// WithID returns the stored form of the input
func (in SeriesInput) WithID(id string) Series {
	return Series{
		ID:           id,
		Name:         in.Name,
		EpisodeCount: in.EpisodeCount,
		ImageURL:     in.ImageURL,
	}
}

// Input strips the id from a series
func (s Series) Input() SeriesInput {
	return SeriesInput{
		Name:         s.Name,
		EpisodeCount: s.EpisodeCount,
		ImageURL:     s.ImageURL,
	}
}

// Identity is the signed-in user as seen by clients
type Identity struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Token  string `json:"token,omitempty"`
}

// Credentials is the sign up / sign in request payload
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ErrorResponse is the JSON body returned for failed requests
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// NewSeriesInput builds a normalized series input.
// Negative episode counts become 0 and a blank image URL becomes the placeholder.
func NewSeriesInput(name string, episodeCount int, imageURL string) SeriesInput {
	return SeriesInput{
		Name:         NormalizeName(name),
		EpisodeCount: ClampEpisodeCount(episodeCount),
		ImageURL:     ImageOrPlaceholder(imageURL),
	}
}

// Normalize applies the same rules as NewSeriesInput to a stored series
func (s Series) Normalize() Series {
	in := NewSeriesInput(s.Name, s.EpisodeCount, s.ImageURL)
	return in.WithID(s.ID)
}

// Validate reports whether the input can be stored
func (in SeriesInput) Validate() error {
	if in.Name == "" {
		return InvalidInput("name is required")
	}
	return nil
}

// NormalizeName trims surrounding space and converts the name to NFC
func NormalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// ParseEpisodeCount parses user input, returning 0 for anything that is not a non-negative integer
func ParseEpisodeCount(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return ClampEpisodeCount(n)
}

// ClampEpisodeCount coerces negative counts to 0
func ClampEpisodeCount(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// ImageOrPlaceholder returns the placeholder URL when url is blank
func ImageOrPlaceholder(url string) string {
	url = strings.TrimSpace(url)
	if url == "" {
		return PlaceholderImageURL
	}
	return url
}
