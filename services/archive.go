// services/archive.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"naval-combat-server/models"

	"github.com/gosimple/slug"
)

// ObjectPutter is the bucket the archiver writes to (utils.R2Bucket).
type ObjectPutter interface {
	PutObject(ctx context.Context, key string, body []byte, contentType string) error
}

// MatchArchiver uploads finished matches as JSON documents.
type MatchArchiver struct {
	Store  MatchStore
	Bucket ObjectPutter
}

func NewMatchArchiver(store MatchStore, bucket ObjectPutter) *MatchArchiver {
	return &MatchArchiver{Store: store, Bucket: bucket}
}

// ArchivedMatch is the document written for each finished match.
type ArchivedMatch struct {
	ID        string       `json:"id"`
	Player1   string       `json:"player1"`
	Player2   string       `json:"player2"`
	Winner    string       `json:"winner"`
	CreatedAt time.Time    `json:"created_at"`
	EndedAt   time.Time    `json:"ended_at"`
	Board1    models.Board `json:"board1"`
	Board2    models.Board `json:"board2"`
}

// ArchiveKey builds matches/<yyyy>/<mm>/<login1>-vs-<login2>-<id>.json.
func ArchiveKey(matchID string, endedAt time.Time, login1, login2 string) string {
	return fmt.Sprintf("matches/%s/%s-vs-%s-%s.json",
		endedAt.UTC().Format("2006/01"), slug.Make(login1), slug.Make(login2), matchID)
}

func (a *MatchArchiver) Archive(ctx context.Context, m *models.Match) error {
	if !m.Finished() {
		return fmt.Errorf("match %s is still open", m.ID)
	}

	p1, err := a.Store.LoadPlayer(ctx, m.Player1ID)
	if err != nil {
		return err
	}
	p2, err := a.Store.LoadPlayer(ctx, m.Player2ID)
	if err != nil {
		return err
	}

	doc := ArchivedMatch{
		ID:        m.ID,
		Player1:   p1.Login,
		Player2:   p2.Login,
		Winner:    *m.WinnerID,
		CreatedAt: m.CreatedAt,
		EndedAt:   *m.EndedAt,
		Board1:    m.Board1,
		Board2:    m.Board2,
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode archived match: %w", err)
	}

	key := ArchiveKey(m.ID, *m.EndedAt, p1.Login, p2.Login)
	if err := a.Bucket.PutObject(ctx, key, body, "application/json"); err != nil {
		return err
	}
	log.Printf("[ARCHIVE] ✅ Archived match %s → %s", m.ID, key)
	return nil
}
