// workers/player_sync_worker.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"naval-combat-server/models"
	"naval-combat-server/services"
	"naval-combat-server/utils"

	"golang.org/x/text/unicode/norm"
)

// RemotePlayer is one entry of the account service's change feed.
type RemotePlayer struct {
	ID        string    `json:"id"`
	Login     string    `json:"login"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GetPlayerChangesResponse is the top-level structure of the account service response.
type GetPlayerChangesResponse struct {
	Players []RemotePlayer `json:"players"`
}

// PlayerSyncWorker mirrors accounts into the local players table so
// matches can be created and joined by account id.
type PlayerSyncWorker struct {
	store        services.MatchStore
	interval     time.Duration
	baseURL      string // e.g., "http://localhost:8500"
	endpointPath string // e.g., "/api/v1/public/players"
	serviceToken string
	httpClient   *http.Client
}

func NewPlayerSyncWorker(store services.MatchStore, baseURL, endpointPath, serviceToken string, interval time.Duration) *PlayerSyncWorker {
	return &PlayerSyncWorker{
		store:        store,
		interval:     interval,
		baseURL:      baseURL,
		endpointPath: endpointPath,
		serviceToken: serviceToken,
		httpClient:   utils.NewHTTPClient(30 * time.Second),
	}
}

func (w *PlayerSyncWorker) Start(ctx context.Context) {
	log.Println("🔁 Starting Player Sync Worker (account service → players)…")
	go w.run(ctx)
}

func (w *PlayerSyncWorker) run(ctx context.Context) {
	if err := w.SyncOnce(ctx); err != nil {
		log.Printf("[SYNC] ⚠️ Initial sync failed: %v", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.SyncOnce(ctx); err != nil {
				log.Printf("[SYNC] ❌ Sync batch failed: %v", err)
			}
		case <-ctx.Done():
			log.Println("⏹️ Player Sync Worker stopped")
			return
		}
	}
}

// SyncOnce pulls every change newer than the latest mirrored player.
func (w *PlayerSyncWorker) SyncOnce(ctx context.Context) error {
	since, err := w.store.LastPlayerUpdate(ctx)
	if err != nil {
		return err
	}
	players, err := w.fetch(ctx, since)
	if err != nil {
		return err
	}
	if len(players) == 0 {
		log.Printf("[SYNC] ✅ No player changes since %s", since.UTC().Format(time.RFC3339))
		return nil
	}

	var upsertCount, skipCount, errorCount int
	for _, p := range players {
		login := norm.NFC.String(strings.TrimSpace(p.Login))
		if p.ID == "" || login == "" {
			skipCount++
			log.Printf("[SYNC] ⚠️ Skipping player with empty id or login (id=%q)", p.ID)
			continue
		}

		// one row per write: a rejected row must not hold back the rest of the feed
		err := w.store.UpsertPlayer(ctx, models.Player{
			ID:         p.ID,
			Login:      login,
			Timestamps: models.Timestamps{UpdatedAt: p.UpdatedAt},
		})
		if err != nil {
			errorCount++
			log.Printf("[SYNC] ⚠️ Failed to upsert player (id=%q, login=%q): %v", p.ID, login, err)
			continue
		}
		upsertCount++
	}

	log.Printf("[SYNC] ✅ Synced %d player(s) (%d upserted, %d skipped, %d errors)",
		len(players), upsertCount, skipCount, errorCount)
	return nil
}

func (w *PlayerSyncWorker) fetch(ctx context.Context, since time.Time) ([]RemotePlayer, error) {
	base, err := url.Parse(w.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid account service URL '%s': %w", w.baseURL, err)
	}

	endpointURL := base.JoinPath(w.endpointPath)
	q := endpointURL.Query()
	q.Set("since", since.UTC().Format(time.RFC3339))
	endpointURL.RawQuery = q.Encode()
	finalURL := endpointURL.String()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, finalURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request to %s: %w", finalURL, err)
	}
	req.Header.Set("X-Service-Token", w.serviceToken)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request to account service failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("account service returned %d: %s", resp.StatusCode, string(body))
	}

	var response GetPlayerChangesResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode account service response: %w", err)
	}
	return response.Players, nil
}
