package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	gameerr "github.com/firesidegames/betrayal/internal/errors"
	"github.com/firesidegames/betrayal/internal/repositories/events"
	hub "github.com/firesidegames/betrayal/internal/ws"
)

// GetEvents returns the game's event log. The full log with hidden
// night actions stays locked until the game is over, because it would
// reveal the adversary's alignment mid-game.
func (h *Handler) GetEvents(c *gin.Context) {
	gameID := c.Param("game_id")
	ctx := c.Request.Context()

	game, err := h.gameRepo.Get(ctx, gameID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Game not found"})
		return
	}

	visibleOnly := true
	if raw := c.Query("visible_only"); raw != "" {
		if parsed, err := strconv.ParseBool(raw); err == nil {
			visibleOnly = parsed
		}
	}
	if !visibleOnly && !game.IsFinished() {
		c.JSON(http.StatusForbidden, gin.H{"error": "Full event log is only available after the game has ended"})
		return
	}

	all, err := h.eventRepo.List(ctx, gameID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load events"})
		return
	}
	if visibleOnly {
		all = events.FilterVisible(all)
	}

	out := make([]gin.H, 0, len(all))
	for _, e := range all {
		out = append(out, gin.H{
			"id":        e.ID,
			"type":      e.Type,
			"round":     e.Round,
			"phase":     e.Phase,
			"actor":     e.Actor,
			"target":    e.Target,
			"data":      e.Data,
			"narration": e.Narration,
			"timestamp": e.Timestamp,
		})
	}
	c.JSON(http.StatusOK, gin.H{"game_id": gameID, "events": out})
}

// GetResult returns the post-game reveal for clients landing on the
// results page without live WS state.
func (h *Handler) GetResult(c *gin.Context) {
	gameID := c.Param("game_id")
	ctx := c.Request.Context()

	game, err := h.gameRepo.Get(ctx, gameID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Game not found"})
		return
	}
	if !game.IsFinished() {
		c.JSON(http.StatusForbidden, gin.H{"error": "Game has not finished yet"})
		return
	}

	list, err := h.playerRepo.ListByGame(ctx, gameID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list players"})
		return
	}
	all, err := h.eventRepo.List(ctx, gameID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load events"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"winner":     game.Winner,
		"win_reason": game.WinReason,
		"reveals":    hub.BuildReveals(list, game.Adversary),
		"timeline":   hub.BuildTimeline(all),
	})
}

// NarratorPreview returns a cached sample line in the preset's voice
// for the lobby's narrator picker.
func (h *Handler) NarratorPreview(c *gin.Context) {
	presetID := c.Param("preset")

	h.previewMu.Lock()
	cached, ok := h.previewCache[presetID]
	h.previewMu.Unlock()
	if ok {
		c.JSON(http.StatusOK, gin.H{"preset": presetID, "text": cached})
		return
	}

	text, err := h.narrator.GeneratePreview(c.Request.Context(), presetID)
	if err != nil {
		if gameerr.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Unknown narrator preset: " + presetID})
			return
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Narrator preview temporarily unavailable"})
		return
	}

	h.previewMu.Lock()
	h.previewCache[presetID] = text
	h.previewMu.Unlock()

	c.JSON(http.StatusOK, gin.H{"preset": presetID, "text": text})
}
