package block

import (
	"strings"

	"blocknotes/internal/domain"
)

// LinkDraft holds link input the user has typed or pasted but not yet
// committed. Partial input stays in the draft; the block keeps its previous
// link until both fields are filled.
type LinkDraft struct {
	URL     string
	Caption string
}

// Ready reports whether both fields are non-empty.
func (d LinkDraft) Ready() bool {
	return strings.TrimSpace(d.URL) != "" && strings.TrimSpace(d.Caption) != ""
}

// Commit applies the draft to a link block. It reports false and leaves the
// block untouched when either field is still empty.
func (d LinkDraft) Commit(b *Block) (bool, error) {
	if b.Type() != domain.BlockTypeLink {
		return false, &domain.ValidationError{Type: b.Type(), Reason: "only link blocks accept link drafts"}
	}
	if !d.Ready() {
		return false, nil
	}
	_, err := b.SetData(domain.Link{
		URL:     strings.TrimSpace(d.URL),
		Caption: strings.TrimSpace(d.Caption),
	})
	if err != nil {
		return false, err
	}
	return true, nil
}
