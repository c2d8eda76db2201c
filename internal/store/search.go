package store

import (
	"context"
	"strings"
)

// CardHit is a card matched by SearchCards.
type CardHit struct {
	SnapshotID   string `json:"snapshot_id"`
	CardID       string `json:"card_id"`
	Title        string `json:"title"`
	Snippet      string `json:"snippet"`
	PreviewImage string `json:"preview_image,omitempty"`
	UpdatedAt    string `json:"updated_at,omitempty"`
}

// SearchCards finds cards in the latest revision of each snapshot whose title
// or body text contains the query substring.
func (s *SQLiteStore) SearchCards(ctx context.Context, p SearchParams) ([]CardHit, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}
	query := "%" + p.Query + "%"

	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, c.card_id, c.title, c.body, COALESCE(c.preview_image, ''), COALESCE(c.updated_at, '')
		FROM snapshot_cards c
		INNER JOIN snapshots s ON s.rev_id = c.rev_id
		INNER JOIN (
			SELECT id, MAX(version) AS max_ver
			FROM snapshots WHERE deleted_at IS NULL
			GROUP BY id
		) latest ON s.id = latest.id AND s.version = latest.max_ver
		WHERE s.deleted_at IS NULL AND (c.title LIKE ? OR c.body LIKE ?)
		ORDER BY c.updated_at DESC, c.card_id
		LIMIT ?`, query, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []CardHit
	for rows.Next() {
		var h CardHit
		var body string
		if err := rows.Scan(&h.SnapshotID, &h.CardID, &h.Title, &body, &h.PreviewImage, &h.UpdatedAt); err != nil {
			return nil, err
		}
		h.Snippet = snippet(body, p.Query, 80)
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// snippet returns up to width bytes of body around the first match of q.
func snippet(body, q string, width int) string {
	body = strings.ReplaceAll(body, "\n", " ")
	if len(body) <= width {
		return body
	}
	i := strings.Index(strings.ToLower(body), strings.ToLower(q))
	if i < 0 || q == "" {
		return body[:width] + "..."
	}
	start := i - width/2
	if start < 0 {
		start = 0
	}
	end := start + width
	if end > len(body) {
		end = len(body)
		start = max(0, end-width)
	}
	out := body[start:end]
	if start > 0 {
		out = "..." + out
	}
	if end < len(body) {
		out += "..."
	}
	return out
}
