package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Harshvardhan-91/APIfyn-backend/internal/store"
	"github.com/Harshvardhan-91/APIfyn-backend/pkg/schema"
)

type createIntegrationRequest struct {
	UserID       string                 `json:"user_id"`
	Type         schema.IntegrationType `json:"type"`
	Provider     string                 `json:"provider"`
	AccessToken  string                 `json:"access_token"`
	RefreshToken string                 `json:"refresh_token"`
	Config       map[string]any         `json:"config"`
	IsActive     *bool                  `json:"is_active"`
}

// CreateIntegration stores a credential, sealing its tokens first.
// (POST /api/integrations)
func (s *Server) CreateIntegration(c echo.Context) error {
	var req createIntegrationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+err.Error())
	}
	if req.UserID == "" {
		return schema.NewError(schema.ErrCodeValidation, "user_id is required")
	}
	if !req.Type.Valid() {
		return schema.NewErrorf(schema.ErrCodeValidation, "unknown integration type %q", req.Type)
	}

	in := &store.Integration{
		ID:           uuid.NewString(),
		UserID:       req.UserID,
		Type:         req.Type,
		Provider:     req.Provider,
		AccessToken:  req.AccessToken,
		RefreshToken: req.RefreshToken,
		Config:       req.Config,
		IsActive:     req.IsActive == nil || *req.IsActive,
	}
	if s.deps.Sealer != nil {
		if err := s.deps.Sealer.Seal(in); err != nil {
			return err
		}
	}
	if err := s.deps.Store.CreateIntegration(c.Request().Context(), in); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, in)
}

// ListIntegrations returns a user's integrations. Tokens are never
// serialised.
// (GET /api/integrations?user_id=)
func (s *Server) ListIntegrations(c echo.Context) error {
	userID := c.QueryParam("user_id")
	if userID == "" {
		return schema.NewError(schema.ErrCodeValidation, "user_id is required")
	}
	list, err := s.deps.Store.ListIntegrations(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	if list == nil {
		list = []*store.Integration{}
	}
	return c.JSON(http.StatusOK, list)
}

// DeleteIntegration removes a credential.
// (DELETE /api/integrations/:id)
func (s *Server) DeleteIntegration(c echo.Context) error {
	if err := s.deps.Store.DeleteIntegration(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
