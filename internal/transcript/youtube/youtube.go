package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"videorag/internal/domain"
	"videorag/internal/transcript"
)

const defaultBaseURL = "https://www.youtube.com"

// Config configures the caption fetcher.
type Config struct {
	BaseURL   string
	Languages []string
	Timeout   time.Duration
}

// Source fetches caption tracks from the public watch page.
type Source struct {
	baseURL   string
	languages []string
	client    *http.Client
	logger    *zap.Logger
}

func NewSource(cfg Config, logger *zap.Logger) *Source {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if len(cfg.Languages) == 0 {
		cfg.Languages = []string{"en"}
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Source{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		languages: cfg.Languages,
		client:    &http.Client{Timeout: cfg.Timeout},
		logger:    logger,
	}
}

func (s *Source) Name() string { return "youtube" }

func (s *Source) Resolve(ref string) (string, error) {
	return transcript.ParseVideoID(ref)
}

// Fetch returns the caption fragments of the preferred track.
func (s *Source) Fetch(ctx context.Context, id string) ([]domain.Fragment, error) {
	page, err := s.get(ctx, s.baseURL+"/watch?v="+url.QueryEscape(id))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSourceFetch, err)
	}
	tracks, err := extractCaptionTracks(page)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSourceFetch, err)
	}
	track := pickTrack(tracks, s.languages)
	s.logger.Debug("caption track selected",
		zap.String("video_id", id),
		zap.String("language", track.LanguageCode),
		zap.String("kind", track.Kind),
		zap.Int("available", len(tracks)))

	trackURL := track.BaseURL
	if strings.HasPrefix(trackURL, "/") {
		trackURL = s.baseURL + trackURL
	}
	body, err := s.get(ctx, withJSON3(trackURL))
	if err != nil {
		return nil, fmt.Errorf("%w: caption track: %w", domain.ErrSourceFetch, err)
	}
	fragments, err := parseJSON3(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSourceFetch, err)
	}
	return fragments, nil
}

func (s *Source) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept-Language", strings.Join(s.languages, ",")+";q=0.9")
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.ErrVideoNotFound
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("youtube GET failed: %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"`
}

var (
	captionTracksKey = []byte(`"captionTracks":`)
	playabilityError = []byte(`"playabilityStatus":{"status":"ERROR"`)
)

func extractCaptionTracks(page []byte) ([]captionTrack, error) {
	i := bytes.Index(page, captionTracksKey)
	if i < 0 {
		if bytes.Contains(page, playabilityError) {
			return nil, domain.ErrVideoNotFound
		}
		return nil, domain.ErrCaptionsDisabled
	}
	var tracks []captionTrack
	dec := json.NewDecoder(bytes.NewReader(page[i+len(captionTracksKey):]))
	if err := dec.Decode(&tracks); err != nil {
		return nil, fmt.Errorf("decode caption tracks: %w", err)
	}
	if len(tracks) == 0 {
		return nil, domain.ErrCaptionsDisabled
	}
	return tracks, nil
}

// pickTrack prefers the first configured language, manual captions over
// auto-generated ones, then falls back to the first track.
func pickTrack(tracks []captionTrack, languages []string) captionTrack {
	for _, lang := range languages {
		var auto *captionTrack
		for i := range tracks {
			t := &tracks[i]
			if !strings.EqualFold(t.LanguageCode, lang) && !strings.HasPrefix(strings.ToLower(t.LanguageCode), strings.ToLower(lang)+"-") {
				continue
			}
			if t.Kind != "asr" {
				return *t
			}
			if auto == nil {
				auto = t
			}
		}
		if auto != nil {
			return *auto
		}
	}
	return tracks[0]
}

func withJSON3(u string) string {
	parsed, err := url.Parse(u)
	if err != nil {
		return u
	}
	q := parsed.Query()
	q.Set("fmt", "json3")
	parsed.RawQuery = q.Encode()
	return parsed.String()
}

type json3 struct {
	Events []struct {
		StartMs    int64 `json:"tStartMs"`
		DurationMs int64 `json:"dDurationMs"`
		Segs       []struct {
			UTF8 string `json:"utf8"`
		} `json:"segs"`
	} `json:"events"`
}

func parseJSON3(body []byte) ([]domain.Fragment, error) {
	var doc json3
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode caption track: %w", err)
	}
	fragments := make([]domain.Fragment, 0, len(doc.Events))
	for _, ev := range doc.Events {
		var sb strings.Builder
		for _, seg := range ev.Segs {
			sb.WriteString(seg.UTF8)
		}
		text := strings.Join(strings.Fields(html.UnescapeString(sb.String())), " ")
		if text == "" {
			continue
		}
		fragments = append(fragments, domain.Fragment{
			Text:     text,
			Start:    float64(ev.StartMs) / 1000,
			Duration: float64(ev.DurationMs) / 1000,
		})
	}
	return fragments, nil
}
