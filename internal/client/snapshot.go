package client

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"time"

	"teamsemu/internal/models"
)

// Fingerprint digests the parts of a snapshot that warrant a re-render: the
// set of post ids, the number of replies per post, and the content revision
// of every post and reply. Order of posts and replies in the input does not
// matter.
func Fingerprint(posts []models.Post) string {
	sorted := make([]models.Post, len(posts))
	copy(sorted, posts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	h := sha256.New()
	write := func(parts ...string) {
		for _, p := range parts {
			h.Write([]byte(strconv.Itoa(len(p))))
			h.Write([]byte{':'})
			h.Write([]byte(p))
		}
	}

	for _, p := range sorted {
		write("post", p.ID, strconv.Itoa(len(p.Replies)), p.TitleOrEmpty(), p.Message, revision(p.UpdatedAt))

		replies := make([]models.Reply, len(p.Replies))
		copy(replies, p.Replies)
		sort.Slice(replies, func(i, j int) bool { return replies[i].ID < replies[j].ID })
		for _, r := range replies {
			write("reply", r.ID, r.Message, revision(r.UpdatedAt))
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

func revision(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// SortForDisplay returns a copy of posts ordered newest first, each with its
// replies ordered oldest first. The input is not modified.
func SortForDisplay(posts []models.Post) []models.Post {
	out := make([]models.Post, len(posts))
	for i, p := range posts {
		replies := make([]models.Reply, len(p.Replies))
		copy(replies, p.Replies)
		sort.SliceStable(replies, func(a, b int) bool {
			return replies[a].Timestamp.Before(replies[b].Timestamp)
		})
		p.Replies = replies
		out[i] = p
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}
