package handlers

import (
	"access_service/internal/models"
	"access_service/internal/service"
	"log"

	"github.com/gofiber/fiber/v3"
)

type ProjectAccessHandler struct {
	projectAccessService *service.ProjectAccessService
	projectLookup        service.ProjectStore
}

func NewProjectAccessHandler(projectAccessService *service.ProjectAccessService, projectLookup service.ProjectStore) *ProjectAccessHandler {
	return &ProjectAccessHandler{
		projectAccessService: projectAccessService,
		projectLookup:        projectLookup,
	}
}

func (h *ProjectAccessHandler) RegisterRoutes(app *fiber.App) {
	userGroup := app.Group("/protected/access/users")

	userGroup.Get("/:username/projects", h.GetProjectAccesses)
	userGroup.Get("/:username/edit-permission", h.GetEditPermission)
	userGroup.Get("/:username/nearest-parent-role", h.GetNearestParentRole)
	userGroup.Post("/:username/processor-trigger", h.CanTriggerProcessor)
	userGroup.Put("/:username", h.UpdateAccess)

	projectGroup := app.Group("/protected/access/projects")
	projectGroup.Get("/:projectNodeId/users", h.GetUsersWithProjectAccess)
}

func (h *ProjectAccessHandler) GetProjectAccesses(c fiber.Ctx) error {
	username := c.Params("username")

	roleWise, err := h.projectAccessService.GetProjectAccessesWithRole(c.Context(), username)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"data": roleWise,
	})
}

func (h *ProjectAccessHandler) GetEditPermission(c fiber.Ctx) error {
	username := c.Params("username")
	projectNodeID := c.Query("projectId")

	if projectNodeID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "projectId query parameter is required",
		})
	}

	allowed, err := h.projectAccessService.HasProjectEditPermission(c.Context(), projectNodeID, username)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"projectId":         projectNodeID,
			"username":          username,
			"hasEditPermission": allowed,
		},
	})
}

func (h *ProjectAccessHandler) GetNearestParentRole(c fiber.Ctx) error {
	username := c.Params("username")
	projectNodeID := c.Query("projectId")

	project, err := h.projectLookup.FindByProjectNodeID(c.Context(), projectNodeID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if project == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Project not found",
		})
	}

	role, err := h.projectAccessService.GetAccessRoleOfNearestParent(c.Context(), project, username)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"projectId": projectNodeID,
			"username":  username,
			"role":      role,
		},
	})
}

func (h *ProjectAccessHandler) CanTriggerProcessor(c fiber.Ctx) error {
	username := c.Params("username")

	var request struct {
		ProjectIDs []string `json:"projectIds"`
	}
	if err := c.Bind().Body(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	allowed, err := h.projectAccessService.CanTriggerProcessorFor(c.Context(), request.ProjectIDs, username)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"username":   username,
			"canTrigger": allowed,
		},
	})
}

func (h *ProjectAccessHandler) UpdateAccess(c fiber.Ctx) error {
	username := c.Params("username")

	var request struct {
		ProjectsAccess []models.ProjectsAccess `json:"projectsAccess"`
	}
	if err := c.Bind().Body(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	log.Printf("Updating access of user %s (%d access entries)", username, len(request.ProjectsAccess))

	userInfo, err := h.projectAccessService.UpdateAccessOfUserInfo(c.Context(), username, request.ProjectsAccess)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "Access updated",
		"data":    userInfo,
	})
}

func (h *ProjectAccessHandler) GetUsersWithProjectAccess(c fiber.Ctx) error {
	projectNodeID := c.Params("projectNodeId")

	users, err := h.projectAccessService.GetUsersWithProjectAccess(c.Context(), projectNodeID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"data": users,
	})
}
