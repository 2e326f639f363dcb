package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirelobby/internal/core"
	"github.com/vovakirdan/wirelobby/internal/proto"
)

// LobbyHandlers exposes the lobby and server counters over REST.
type LobbyHandlers struct {
	coord *core.Coordinator
	log   *zerolog.Logger
}

// NewLobbyHandlers creates a new lobby handlers instance.
func NewLobbyHandlers(coord *core.Coordinator, logger *zerolog.Logger) *LobbyHandlers {
	return &LobbyHandlers{
		coord: coord,
		log:   logger,
	}
}

// LobbyQuery is the query string of GET /api/lobby.
type LobbyQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=50"`
}

// StatsResponse represents the server counters.
type StatsResponse struct {
	Rooms       int `json:"rooms"`
	OpenRooms   int `json:"open_rooms"`
	Connections int `json:"connections"`
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ListRooms handles listing joinable rooms.
// GET /api/lobby
func (h *LobbyHandlers) ListRooms(c *gin.Context) {
	var q LobbyQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.log.Debug().Err(err).Msg("invalid lobby query")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be between 1 and 50"})
		return
	}

	c.JSON(http.StatusOK, lobbyEntries(h.coord.ListOpenRooms(q.Limit)))
}

// Stats handles the server counters.
// GET /api/stats
func (h *LobbyHandlers) Stats(c *gin.Context) {
	s := h.coord.Stats()
	c.JSON(http.StatusOK, StatsResponse{
		Rooms:       s.Rooms,
		OpenRooms:   s.OpenRooms,
		Connections: s.Connections,
	})
}

func lobbyEntries(entries []core.LobbyEntry) []proto.LobbyEntry {
	out := make([]proto.LobbyEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, proto.LobbyEntry{Room: e.RoomID, Members: e.Members})
	}
	return out
}
