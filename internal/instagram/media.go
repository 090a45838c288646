package instagram

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/BTreeMap/CommentPipe/internal/models"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// shortcodeAlphabet is the URL-safe base64 alphabet short codes are written in.
const shortcodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

// shortcodeIDLength is how many leading characters of a short code encode the media id.
// Longer codes (private media) carry extra trailing characters.
const shortcodeIDLength = 11

// maxCommentPages bounds pagination so a very busy post cannot stall a poll cycle.
const maxCommentPages = 20

// MediaInfo is the subset of media metadata CommentPipe uses.
type MediaInfo struct {
	ID           string
	Code         string
	CommentCount int
	Caption      string
}

// MediaIDFromShortcode decodes a short code into the numeric media id locally,
// without a network call.
func (c *Client) MediaIDFromShortcode(code string) (string, error) {
	if code == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidShortcode)
	}
	if len(code) > shortcodeIDLength {
		code = code[:shortcodeIDLength]
	}

	id := new(big.Int)
	base := big.NewInt(64)
	for _, r := range code {
		idx := strings.IndexRune(shortcodeAlphabet, r)
		if idx < 0 {
			return "", fmt.Errorf("%w: %q contains %q", ErrInvalidShortcode, code, r)
		}
		id.Mul(id, base)
		id.Add(id, big.NewInt(int64(idx)))
	}
	return id.String(), nil
}

// MediaInfoByShortcode looks the media up through the public web endpoint.
func (c *Client) MediaInfoByShortcode(ctx context.Context, code string) (MediaInfo, error) {
	if code == "" {
		return MediaInfo{}, fmt.Errorf("%w: empty", ErrInvalidShortcode)
	}
	u := c.webBase + "p/" + url.PathEscape(code) + "/?" + url.Values{"__a": {"1"}, "__d": {"dis"}}.Encode()
	res, err := c.do(ctx, http.MethodGet, u, nil, true)
	if err != nil {
		return MediaInfo{}, fmt.Errorf("media info for %s: %w", code, err)
	}

	item := res.Get("items.0")
	if item.Exists() {
		return MediaInfo{
			ID:           item.Get("pk").String(),
			Code:         item.Get("code").String(),
			CommentCount: int(item.Get("comment_count").Int()),
			Caption:      item.Get("caption.text").String(),
		}, nil
	}
	media := res.Get("graphql.shortcode_media")
	if media.Exists() {
		return MediaInfo{
			ID:           media.Get("id").String(),
			Code:         media.Get("shortcode").String(),
			CommentCount: int(media.Get("edge_media_to_comment.count").Int()),
			Caption:      media.Get("edge_media_to_caption.edges.0.node.text").String(),
		}, nil
	}
	return MediaInfo{}, fmt.Errorf("%w: no media in response for %s", ErrMalformedResponse, code)
}

// MediaComments returns the media's comments, following pagination.
func (c *Client) MediaComments(ctx context.Context, mediaID string) ([]models.Comment, error) {
	var comments []models.Comment
	query := url.Values{
		"can_support_threading": {"true"},
		"permalink_enabled":     {"false"},
	}

	for page := 0; page < maxCommentPages; page++ {
		res, err := c.apiGet(ctx, "media/"+url.PathEscape(mediaID)+"/comments/", query)
		if err != nil {
			return nil, fmt.Errorf("comments for media %s: %w", mediaID, err)
		}
		for _, item := range res.Get("comments").Array() {
			comments = append(comments, parseComment(item))
		}

		next := res.Get("next_max_id").String()
		if next == "" || !res.Get("has_more_comments").Bool() {
			break
		}
		query.Set("max_id", next)
	}

	slog.Debug("Fetched Instagram comments", "media_id", mediaID, "count", len(comments))
	return comments, nil
}

func parseComment(item gjson.Result) models.Comment {
	c := models.Comment{
		ID:     item.Get("pk").String(),
		Author: item.Get("user.username").String(),
		Text:   item.Get("text").String(),
	}
	ts := item.Get("created_at_utc")
	if !ts.Exists() {
		ts = item.Get("created_at")
	}
	if ts.Exists() && ts.Int() > 0 {
		t := time.Unix(ts.Int(), 0).UTC()
		c.CreatedAt = &t
	}
	return c
}

// MediaComment posts text on the media. A non-empty replyToCommentID makes it a
// threaded reply to that comment. It returns the new comment's id.
func (c *Client) MediaComment(ctx context.Context, mediaID, text, replyToCommentID string) (string, error) {
	data := map[string]string{
		"_uuid":             c.settings.Device.UUID,
		"_uid":              c.settings.UserID,
		"comment_text":      text,
		"delivery_class":    "organic",
		"idempotence_token": uuid.NewString(),
		"radio_type":        "wifi-none",
		"container_module":  "comments_v2_feed_contextual_profile",
		"feed_position":     "0",
	}
	if replyToCommentID != "" {
		data["replied_to_comment_id"] = replyToCommentID
	}

	res, err := c.apiPost(ctx, "media/"+url.PathEscape(mediaID)+"/comment/", data)
	if err != nil {
		return "", fmt.Errorf("comment on media %s: %w", mediaID, err)
	}
	id := res.Get("comment.pk").String()
	if id == "" {
		return "", fmt.Errorf("%w: comment response has no comment.pk", ErrMalformedResponse)
	}
	slog.Debug("Posted Instagram comment", "media_id", mediaID, "comment_id", id, "reply_to", replyToCommentID)
	return id, nil
}
