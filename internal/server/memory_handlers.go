package server

import (
	"net/http"

	"github.com/capsulehq/keepsake/internal/kserror"
	"github.com/capsulehq/keepsake/internal/server/serializer"
	"github.com/capsulehq/keepsake/internal/server/service"
	"github.com/labstack/echo/v4"
)

// memory contains all memory handlers.
type memory struct {
	memories *service.Memories
}

///// Create
////
//

// Create makes a new memory and returns its code together with the secret
// key, once. Blob uploads happen before this call, directly against the store.
func (h *memory) Create(c echo.Context) error {
	var params service.CreateParams
	if err := c.Bind(&params); err != nil {
		return c.JSON(http.StatusBadRequest, kserror.New("Could not get create params."))
	}

	m, err := h.memories.Create(params)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, serializer.CreatedMemory(m))
}

///// Show
////
//

// Show renders the public memory for the given code.
func (h *memory) Show(c echo.Context) error {
	m, err := h.memories.Get(c.Param("code"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, serializer.Memory(m))
}

///// Summaries
////
//

// Summaries renders lightweight summaries for a client-supplied code list.
// Codes that do not resolve are omitted; the client orders the result.
func (h *memory) Summaries(c echo.Context) error {
	var params struct {
		Codes []string `json:"codes"`
	}
	if err := c.Bind(&params); err != nil {
		return c.JSON(http.StatusBadRequest, kserror.New("Could not get summary params."))
	}

	return c.JSON(http.StatusOK, echo.Map{
		"summaries": h.memories.Summaries(params.Codes),
	})
}

///// Update
////
//

// Update merges the given fields over the memory owned by the presented secret.
func (h *memory) Update(c echo.Context) error {
	var params service.UpdateParams
	if err := c.Bind(&params); err != nil {
		return c.JSON(http.StatusBadRequest, kserror.New("Could not get update params."))
	}

	m, err := h.memories.Update(
		c.Request().Context(),
		c.Param("code"),
		c.Request().Header.Get(SecretHeader),
		params,
	)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, serializer.Memory(m))
}

///// Delete
////
//

// Delete destroys the memory and its blobs. Absent codes delete successfully.
func (h *memory) Delete(c echo.Context) error {
	err := h.memories.Delete(
		c.Request().Context(),
		c.Param("code"),
		c.Request().Header.Get(SecretHeader),
	)
	if err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

///// Grant
////
//

// Grant issues a short-lived direct-upload grant, independent of any memory.
func (h *memory) Grant(c echo.Context) error {
	var params struct {
		Filename    string `json:"filename"`
		ContentType string `json:"content_type"`
	}
	if err := c.Bind(&params); err != nil {
		return c.JSON(http.StatusBadRequest, kserror.New("Could not get upload params."))
	}

	grant, err := h.memories.Grant(c.Request().Context(), params.Filename, params.ContentType)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, grant)
}
