package csvstore

import "strings"

// Canonical column names of the store exports.
const (
	colReviewID       = "reviewId"
	colUserName       = "userName"
	colUserImage      = "userImage"
	colContent        = "content"
	colScore          = "score"
	colThumbsUp       = "thumbsUpCount"
	colCreatedVersion = "reviewCreatedVersion"
	colAt             = "at"
	colReplyContent   = "replyContent"
	colRepliedAt      = "repliedAt"
	colAppVersion     = "appVersion"

	// derived
	colAtStatus       = "at_status"
	colEmojis         = "emojis"
	colEmojiSentiment = "emoji_sentiment"
	colSentimentLabel = "sentiment_label"
	colSentimentScore = "sentiment_score"
)

// headerAliases lists the spellings seen across export tools for each column.
var headerAliases = map[string][]string{
	colReviewID:       {"reviewId", "review_id", "id"},
	colUserName:       {"userName", "user_name", "author"},
	colUserImage:      {"userImage", "user_image"},
	colContent:        {"content", "review_text", "text", "review"},
	colScore:          {"score", "rating", "stars"},
	colThumbsUp:       {"thumbsUpCount", "thumbs_up_count", "thumbsUp"},
	colCreatedVersion: {"reviewCreatedVersion", "review_created_version"},
	colAt:             {"at", "date", "created_at", "timestamp"},
	colReplyContent:   {"replyContent", "reply_content"},
	colRepliedAt:      {"repliedAt", "replied_at"},
	colAppVersion:     {"appVersion", "app_version", "version"},
	colAtStatus:       {"at_status"},
	colEmojis:         {"emojis"},
	colEmojiSentiment: {"emoji_sentiment"},
	colSentimentLabel: {"sentiment_label", "text_sentiment"},
	colSentimentScore: {"sentiment_score", "compound"},
}

// header maps canonical names to positions; unknown columns keep their order.
type header struct {
	pos   map[string]int
	extra []int
	names []string
}

func parseHeader(cols []string) header {
	h := header{pos: make(map[string]int), names: cols}
	lookup := make(map[string]string)
	for canon, aliases := range headerAliases {
		for _, a := range aliases {
			lookup[strings.ToLower(a)] = canon
		}
	}
	for i, c := range cols {
		name := strings.TrimSpace(strings.TrimPrefix(c, "\uFEFF"))
		canon, ok := lookup[strings.ToLower(name)]
		if !ok {
			h.extra = append(h.extra, i)
			continue
		}
		if _, dup := h.pos[canon]; dup {
			h.extra = append(h.extra, i)
			continue
		}
		h.pos[canon] = i
	}
	return h
}

func (h header) has(col string) bool {
	_, ok := h.pos[col]
	return ok
}

// cell returns nil for absent columns and empty cells.
func (h header) cell(rec []string, col string) *string {
	i, ok := h.pos[col]
	if !ok || i >= len(rec) || rec[i] == "" {
		return nil
	}
	v := rec[i]
	return &v
}

func (h header) str(rec []string, col string) string {
	if p := h.cell(rec, col); p != nil {
		return *p
	}
	return ""
}
