package handlers

import (
	"access_service/internal/models"
	"access_service/internal/service"
	"log"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.mongodb.org/mongo-driver/v2/bson"
)

var (
	// Counter for submitted access requests
	accessRequestAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "access_request_attempts_total",
			Help: "Total number of submitted access requests",
		},
		[]string{"status"}, // status: success/failure
	)

	// Counter for grant/reject decisions
	accessDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "access_decisions_total",
			Help: "Total number of access request decisions",
		},
		[]string{"decision", "status"}, // decision: grant/reject, status: success/failure
	)

	// Histogram for request intake duration
	accessRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "access_request_duration_seconds",
			Help:    "Time spent processing access request submissions",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)

	// Counter for guarded request deletions
	accessRequestDeletions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "access_request_deletions_total",
			Help: "Total number of access request deletion attempts",
		},
		[]string{"status"}, // status: deleted/denied
	)
)

// requestCallback captures the single listener invocation so the handler
// can translate it into an HTTP response.
type requestCallback struct {
	ok      bool
	request *models.AccessRequest
	message string
}

func (cb *requestCallback) OnSuccess(request *models.AccessRequest) {
	cb.ok = true
	cb.request = request
}

func (cb *requestCallback) OnFailure(message string) {
	cb.message = message
}

type grantCallback struct {
	ok       bool
	userInfo *models.UserInfo
	request  *models.AccessRequest
	message  string
}

func (cb *grantCallback) OnSuccess(userInfo *models.UserInfo) {
	cb.ok = true
	cb.userInfo = userInfo
}

func (cb *grantCallback) OnFailure(request *models.AccessRequest, message string) {
	cb.request = request
	cb.message = message
}

type AccessRequestHandler struct {
	requestService       *service.AccessRequestService
	projectAccessService *service.ProjectAccessService
}

func NewAccessRequestHandler(requestService *service.AccessRequestService, projectAccessService *service.ProjectAccessService) *AccessRequestHandler {
	return &AccessRequestHandler{
		requestService:       requestService,
		projectAccessService: projectAccessService,
	}
}

func (h *AccessRequestHandler) RegisterRoutes(app *fiber.App) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	requestGroup := app.Group("/protected/access/requests")

	requestGroup.Post("/", h.CreateAccessRequest)
	requestGroup.Get("/user/:username", h.GetAccessRequests)
	requestGroup.Delete("/:id", h.DeleteAccessRequest)
	requestGroup.Put("/:id/grant", h.GrantAccess)
	requestGroup.Put("/:id/reject", h.RejectAccessRequest)
}

func (h *AccessRequestHandler) CreateAccessRequest(c fiber.Ctx) error {
	timer := prometheus.NewTimer(accessRequestDuration.WithLabelValues("pending"))
	defer timer.ObserveDuration()

	var request models.AccessRequest
	if err := c.Bind().Body(&request); err != nil {
		accessRequestAttempts.WithLabelValues("failure").Inc()
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if request.Username == "" || request.Role == "" {
		accessRequestAttempts.WithLabelValues("failure").Inc()
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Username and role are required",
		})
	}

	callback := &requestCallback{}
	h.requestService.CreateAccessRequest(c.Context(), &request, callback)
	if !callback.ok {
		accessRequestAttempts.WithLabelValues("failure").Inc()
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": callback.message,
		})
	}

	accessRequestAttempts.WithLabelValues("success").Inc()
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Access request submitted",
		"data":    callback.request,
	})
}

func (h *AccessRequestHandler) GetAccessRequests(c fiber.Ctx) error {
	username := c.Params("username")
	status := c.Query("status")

	requests, err := h.requestService.GetAccessRequests(c.Context(), username, status)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"data": requests,
	})
}

func (h *AccessRequestHandler) DeleteAccessRequest(c fiber.Ctx) error {
	id := c.Params("id")

	requestID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request ID format",
		})
	}

	callerUsername := c.Get("X-User-ID")
	callerAuthorities := splitAuthorities(c.Get("X-User-Permissions"))

	deleted, err := h.requestService.DeleteAccessRequestByID(c.Context(), requestID, callerUsername, callerAuthorities)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if !deleted {
		accessRequestDeletions.WithLabelValues("denied").Inc()
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"deleted": false,
		})
	}

	accessRequestDeletions.WithLabelValues("deleted").Inc()
	return c.JSON(fiber.Map{
		"deleted": true,
	})
}

func (h *AccessRequestHandler) GrantAccess(c fiber.Ctx) error {
	id := c.Params("id")

	requestID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request ID format",
		})
	}

	var decision models.AccessRequestDecision
	if err := c.Bind().Body(&decision); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	callback := &grantCallback{}
	h.projectAccessService.GrantAccess(c.Context(), requestID, &decision, callback)
	if !callback.ok {
		accessDecisions.WithLabelValues("grant", "failure").Inc()
		log.Printf("Grant access failed for request %s: %s", id, callback.message)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": callback.message,
		})
	}

	accessDecisions.WithLabelValues("grant", "success").Inc()
	return c.JSON(fiber.Map{
		"message": "Access granted",
		"data":    callback.userInfo,
	})
}

func (h *AccessRequestHandler) RejectAccessRequest(c fiber.Ctx) error {
	id := c.Params("id")

	requestID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request ID format",
		})
	}

	var decision models.AccessRequestDecision
	if err := c.Bind().Body(&decision); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	callback := &grantCallback{}
	h.requestService.RejectAccessRequest(c.Context(), requestID, &decision, callback)
	if !callback.ok {
		accessDecisions.WithLabelValues("reject", "failure").Inc()
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": callback.message,
		})
	}

	accessDecisions.WithLabelValues("reject", "success").Inc()
	return c.JSON(fiber.Map{
		"message": "Access request rejected",
	})
}

func splitAuthorities(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	authorities := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			authorities = append(authorities, trimmed)
		}
	}
	return authorities
}
