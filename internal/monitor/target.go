package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/BTreeMap/CommentPipe/internal/models"
)

// urlMarkers are checked in order; the first one present in the URL wins.
var urlMarkers = []struct {
	marker string
	kind   models.MediaKind
}{
	{"/p/", models.MediaKindPost},
	{"/reel/", models.MediaKindReel},
}

// ParsePostURL extracts the short code from a post or reel URL.
//
// The code is the path segment right after "/p/" or "/reel/", ending at the next
// '/', '?' or '#'. Any other URL fails with models.ErrTargetResolution and no code.
func ParsePostURL(rawURL string) (string, models.MediaKind, error) {
	for _, m := range urlMarkers {
		_, rest, found := strings.Cut(rawURL, m.marker)
		if !found {
			continue
		}
		if i := strings.IndexAny(rest, "/?#"); i >= 0 {
			rest = rest[:i]
		}
		if rest == "" {
			return "", "", fmt.Errorf("%w: no short code after %q in %q", models.ErrTargetResolution, m.marker, rawURL)
		}
		return rest, m.kind, nil
	}
	return "", "", fmt.Errorf("%w: %q is not a post or reel URL", models.ErrTargetResolution, rawURL)
}

// Resolve turns a post or reel URL into a Target with its media id.
//
// The short code is decoded locally first; if that fails the media is looked up
// once over the network before giving up with models.ErrTargetResolution.
func (m *Monitor) Resolve(ctx context.Context, rawURL string) (models.Target, error) {
	target, _, err := m.resolve(ctx, rawURL)
	return target, err
}

// resolve also reports whether the network lookup was needed.
func (m *Monitor) resolve(ctx context.Context, rawURL string) (models.Target, bool, error) {
	code, kind, err := ParsePostURL(rawURL)
	if err != nil {
		return models.Target{URL: rawURL}, false, err
	}
	target := models.Target{URL: rawURL, Shortcode: code, Kind: kind}
	slog.Debug("Monitor resolving short code", "shortcode", code, "kind", kind)

	id, err := m.svc.MediaIDFromShortcode(code)
	if err == nil && id != "" {
		target.MediaID = id
		return target, false, nil
	}
	if err == nil {
		err = errors.New("empty media id")
	}
	slog.Warn("Short code decode failed, trying media lookup", "shortcode", code, "error", err)

	info, altErr := m.svc.MediaInfoByShortcode(ctx, code)
	if altErr == nil && info.ID == "" {
		altErr = errors.New("media lookup returned no id")
	}
	if altErr != nil {
		return target, true, fmt.Errorf("%w: short code %s: %w", models.ErrTargetResolution, code, errors.Join(err, altErr))
	}
	target.MediaID = info.ID
	return target, true, nil
}
