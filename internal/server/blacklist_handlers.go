// file: internal/server/blacklist_handlers.go
// version: 1.0.0
// guid: 9fcfc448-7861-42c4-ae99-abf37f66d680

package server

import (
	"github.com/gin-gonic/gin"

	"github.com/jdfalk/media-acquirer/internal/models"
)

func (s *Server) listBlacklist(c *gin.Context) {
	entries, err := s.deps.Governor.List(c.Request.Context(), ParseQueryBool(c, "include_expired", false))
	if err != nil {
		RespondWithDomainError(c, err)
		return
	}
	RespondWithOK(c, ListResponse{Items: entries, Count: len(entries)})
}

func (s *Server) removeBlacklist(c *gin.Context) {
	key := models.ReleaseKey{ReleaseID: c.Param("release_id"), Source: c.Param("source")}
	if err := s.deps.Governor.Remove(c.Request.Context(), key); err != nil {
		RespondWithDomainError(c, err)
		return
	}
	RespondWithOK(c, DeleteResponse{Deleted: true, ID: key.String()})
}

func (s *Server) sweepBlacklist(c *gin.Context) {
	n, err := s.deps.Governor.Sweep(c.Request.Context())
	if err != nil {
		RespondWithDomainError(c, err)
		return
	}
	RespondWithOK(c, SweepResponse{Removed: n})
}
