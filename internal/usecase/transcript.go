package usecase

import (
	"math"
	"strings"
	"sync"
	"time"

	"captionview/internal/domain"
)

// DefaultTranscriptLimit bounds the rendered phrase set unless configured otherwise.
const DefaultTranscriptLimit = 150

// Transcript keeps the rendered phrases and the viewer's position relative to the live edge.
type Transcript struct {
	mu      sync.Mutex
	limit   int
	order   []string
	phrases map[string]domain.Phrase

	nearEdge   bool
	scrolledUp bool
	pendingNew int
	now        func() time.Time
}

// NewTranscript creates an empty transcript. A limit of 0 keeps every phrase.
func NewTranscript(limit int) *Transcript {
	if limit < 0 {
		limit = DefaultTranscriptLimit
	}
	return &Transcript{
		limit:    limit,
		phrases:  make(map[string]domain.Phrase),
		nearEdge: true,
		now:      time.Now,
	}
}

// Upsert creates or updates the phrase keyed by its id.
func (t *Transcript) Upsert(phrase domain.Phrase) domain.PhraseUpdate {
	t.mu.Lock()
	defer t.mu.Unlock()

	update := domain.PhraseUpdate{}
	existing, ok := t.phrases[phrase.ID]
	if ok {
		phrase.ReceivedAt = existing.ReceivedAt
	} else {
		if phrase.ReceivedAt.IsZero() {
			phrase.ReceivedAt = t.now()
		}
		t.order = append(t.order, phrase.ID)
		update.Created = true
		update.Evicted = t.evictLocked()
	}
	t.phrases[phrase.ID] = phrase

	// away from the live edge implies scrolledUp
	switch {
	case t.nearEdge:
		update.Follow = true
		t.scrolledUp = false
		t.pendingNew = 0
	case update.Created:
		t.pendingNew++
	}

	update.Phrase = phrase
	update.Speaker = phrase.SpeakerLabel()
	update.Pending = t.pendingNew
	return update
}

func (t *Transcript) evictLocked() []string {
	if t.limit == 0 || len(t.order) <= t.limit {
		return nil
	}
	drop := len(t.order) - t.limit
	evicted := append([]string(nil), t.order[:drop]...)
	for _, id := range evicted {
		delete(t.phrases, id)
	}
	t.order = append([]string(nil), t.order[drop:]...)
	return evicted
}

// ReportScroll records whether the viewer is near the live edge and returns the pending count.
func (t *Transcript) ReportScroll(nearEdge bool) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.nearEdge = nearEdge
	if !nearEdge {
		t.scrolledUp = true
	} else if t.scrolledUp {
		t.scrolledUp = false
		t.pendingNew = 0
	}
	return t.pendingNew
}

// JumpToLiveEdge clears the pending counter after the viewer asks to catch up.
func (t *Transcript) JumpToLiveEdge() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nearEdge = true
	t.scrolledUp = false
	t.pendingNew = 0
}

// Pending is the number of phrases that arrived while the viewer was scrolled away.
func (t *Transcript) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pendingNew
}

// Phrases returns the retained phrases oldest first.
func (t *Transcript) Phrases() []domain.Phrase {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]domain.Phrase, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.phrases[id])
	}
	return out
}

// Text renders the transcript as "speaker: text" lines.
func (t *Transcript) Text() string {
	var b strings.Builder
	for _, phrase := range t.Phrases() {
		text := strings.TrimSpace(phrase.Text)
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(phrase.SpeakerLabel())
		b.WriteString(": ")
		b.WriteString(text)
	}
	return b.String()
}

// Reset drops every phrase and the scroll state.
func (t *Transcript) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.order = nil
	t.phrases = make(map[string]domain.Phrase)
	t.nearEdge = true
	t.scrolledUp = false
	t.pendingNew = 0
}

// NearLiveEdge reports whether a scroll container is within threshold pixels of its end.
func NearLiveEdge(scrollTop, scrollHeight, clientHeight, threshold float64) bool {
	if clientHeight == 0 {
		return true
	}
	return scrollHeight-math.Ceil(scrollTop)-clientHeight < threshold
}
