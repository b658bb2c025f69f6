// file: internal/server/profile_handlers.go
// version: 1.0.0
// guid: 9d4cdca7-1cb6-48ae-8f6b-d2dd20cdc51d

package server

import (
	"io"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jdfalk/media-acquirer/internal/config"
)

func (s *Server) listProfiles(c *gin.Context) {
	profiles, err := s.deps.Store.ListProfiles()
	if err != nil {
		RespondWithDomainError(c, err)
		return
	}
	RespondWithOK(c, ListResponse{Items: profiles, Count: len(profiles)})
}

func (s *Server) getProfile(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id < 1 {
		RespondWithValidationError(c, "id", "must be a positive integer")
		return
	}
	profile, err := s.deps.Store.GetProfile(id)
	if err != nil {
		RespondWithDomainError(c, err)
		return
	}
	formats, err := s.deps.Store.GetProfileFormats(id)
	if err != nil {
		RespondWithDomainError(c, err)
		return
	}
	RespondWithOK(c, gin.H{"profile": profile, "formats": formats})
}

func (s *Server) listFormats(c *gin.Context) {
	formats, err := s.deps.Store.ListCustomFormats()
	if err != nil {
		RespondWithDomainError(c, err)
		return
	}
	RespondWithOK(c, ListResponse{Items: formats, Count: len(formats)})
}

// importProfiles accepts the same YAML (or JSON) document as the profiles
// import command.
func (s *Server) importProfiles(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		RespondWithBadRequest(c, "read body: "+err.Error())
		return
	}
	seed, err := config.ParseSeed(body)
	if err != nil {
		RespondWithValidationError(c, "seed", err.Error())
		return
	}
	result, err := config.ImportSeed(s.deps.Store, seed)
	if err != nil {
		RespondWithDomainError(c, err)
		return
	}
	RespondWithOK(c, result)
}
