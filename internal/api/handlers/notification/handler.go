package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/hospitalcore/notification-service/internal/api/respond"
	"github.com/hospitalcore/notification-service/internal/config"
	"github.com/hospitalcore/notification-service/internal/model"
	"github.com/hospitalcore/notification-service/internal/repository/notification"
	notifsvc "github.com/hospitalcore/notification-service/internal/service/notification"
)

// notificationService defines the interface that the Handler depends on.
//
// It abstracts the dispatch pipeline, the deletion handler and the audit
// lookups over recorded notifications.
//
//go:generate mockgen -source=handler.go -destination=../../../mocks/api/handlers/notification/mock.go -package=mocks
type notificationService interface {
	Dispatch(ctx context.Context, strategy retry.Strategy, n model.Notification) (model.Notification, error)
	SoftDelete(ctx context.Context, id uuid.UUID) (model.Notification, error)
	GetByID(ctx context.Context, id uuid.UUID, includeDeleted bool) (model.Notification, error)
	GetStatusByID(ctx context.Context, strategy retry.Strategy, id uuid.UUID) (string, error)
	GetByExternalID(ctx context.Context, externalID string) ([]model.Notification, error)
	GetByRecipient(ctx context.Context, recipient, notificationType string) ([]model.Notification, error)
}

// Handler handles HTTP requests related to notifications.
type Handler struct {
	service   notificationService
	validator *validator.Validate
	cfg       *config.Config
}

// NewHandler creates a new Handler instance.
func NewHandler(
	s notificationService,
	v *validator.Validate,
	cfg *config.Config,
) *Handler {
	return &Handler{service: s, validator: v, cfg: cfg}
}

// CreateRequest represents the JSON body expected in a dispatch request.
type CreateRequest struct {
	Type       string `json:"type" validate:"required,oneof=email sms"`
	Recipient  string `json:"recipient" validate:"required"`
	Subject    string `json:"subject" validate:"required_if=Type email"`
	Message    string `json:"message" validate:"required"`
	ExternalID string `json:"externalId" validate:"required"`
}

// Create handles HTTP POST requests to dispatch a notification.
//
// It validates the request body, runs the dispatch pipeline and returns the
// persisted record. A delivery failure still leaves a "failed" record
// behind; the response then reports the failure rather than the record.
func (h *Handler) Create(c *ginext.Context) {
	var req CreateRequest

	// Decode JSON request body into CreateRequest struct.
	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to decode request body")
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("invalid request body"))
		return
	}

	// Validate request fields using go-playground/validator.
	if err := h.validator.Struct(req); err != nil {
		zlog.Logger.Warn().Err(err).Msg("failed to validate request body")
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("validation error: %s", err.Error()))
		return
	}

	// The recipient format depends on the notification type: an email
	// address for email, an E.164 phone number for sms.
	if err := h.validateRecipient(req.Type, req.Recipient); err != nil {
		zlog.Logger.Warn().Err(err).Str("type", req.Type).Msg("invalid recipient")
		respond.Fail(c.Writer, http.StatusBadRequest, err)
		return
	}

	notif := model.Notification{
		Type:       req.Type,
		Recipient:  req.Recipient,
		Subject:    req.Subject,
		Message:    req.Message,
		ExternalID: req.ExternalID,
	}

	created, err := h.service.Dispatch(c.Request.Context(), h.cfg.Retry, notif)
	if err != nil {
		if errors.Is(err, notifsvc.ErrSendFailed) {
			zlog.Logger.Error().Err(err).Str("id", created.ID.String()).Msg("notification delivery failed")
			respond.Fail(c.Writer, http.StatusBadGateway, fmt.Errorf("notification sending failed"))
			return
		}

		if errors.Is(err, notification.ErrNotificationExists) {
			zlog.Logger.Error().Err(err).Msg("notification id collision")
			respond.Fail(c.Writer, http.StatusConflict, fmt.Errorf("notification already exists"))
			return
		}

		zlog.Logger.Error().Err(err).Str("external_id", req.ExternalID).Msg("failed to dispatch notification")
		respond.Fail(c.Writer, http.StatusInternalServerError, fmt.Errorf("internal server error"))
		return
	}

	respond.Created(c.Writer, created)
}

func (h *Handler) validateRecipient(notificationType, recipient string) error {
	switch notificationType {
	case model.TypeEmail:
		if err := h.validator.Var(recipient, "email"); err != nil {
			return fmt.Errorf("recipient must be a valid email address")
		}
	case model.TypeSMS:
		if err := h.validator.Var(recipient, "e164"); err != nil {
			return fmt.Errorf("recipient must be a phone number in E.164 format")
		}
	}

	return nil
}

// Delete handles HTTP DELETE requests to soft-delete a notification.
//
// The first delete of an id succeeds with 204; any further delete of the
// same id observes no eligible record and fails with 404.
func (h *Handler) Delete(c *ginext.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	_, err := h.service.SoftDelete(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, notification.ErrNotificationNotFound) {
			zlog.Logger.Warn().Str("id", id.String()).Err(err).Msg("notification not found")
			respond.Fail(c.Writer, http.StatusNotFound, fmt.Errorf("notification not found or already deleted"))
			return
		}

		zlog.Logger.Error().Err(err).Str("id", id.String()).Msg("failed to delete notification")
		respond.Fail(c.Writer, http.StatusInternalServerError, fmt.Errorf("internal server error"))
		return
	}

	respond.NoContent(c.Writer)
}

// Get handles HTTP GET requests to retrieve a notification record.
//
// Soft-deleted records are hidden unless the caller passes
// include_deleted=true.
func (h *Handler) Get(c *ginext.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	includeDeleted := c.Query("include_deleted") == "true"

	notif, err := h.service.GetByID(c.Request.Context(), id, includeDeleted)
	if err != nil {
		if errors.Is(err, notification.ErrNotificationNotFound) {
			zlog.Logger.Warn().Str("id", id.String()).Err(err).Msg("notification not found")
			respond.Fail(c.Writer, http.StatusNotFound, fmt.Errorf("notification not found"))
			return
		}

		zlog.Logger.Error().Err(err).Str("id", id.String()).Msg("failed to get notification")
		respond.Fail(c.Writer, http.StatusInternalServerError, fmt.Errorf("internal server error"))
		return
	}

	respond.OK(c.Writer, notif)
}

// GetStatus handles HTTP GET requests to retrieve only the status of a
// notification, served from the cache when possible.
func (h *Handler) GetStatus(c *ginext.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	status, err := h.service.GetStatusByID(c.Request.Context(), h.cfg.Retry, id)
	if err != nil {
		if errors.Is(err, notification.ErrNotificationNotFound) {
			zlog.Logger.Warn().Str("id", id.String()).Err(err).Msg("notification not found")
			respond.Fail(c.Writer, http.StatusNotFound, fmt.Errorf("notification not found"))
			return
		}

		zlog.Logger.Error().Err(err).Str("id", id.String()).Msg("failed to get notification status")
		respond.Fail(c.Writer, http.StatusInternalServerError, fmt.Errorf("internal server error"))
		return
	}

	respond.OK(c.Writer, status)
}

// List handles HTTP GET requests for audit lookups. Callers filter either
// by external_id or by recipient and type.
func (h *Handler) List(c *ginext.Context) {
	externalID := c.Query("external_id")
	recipient := c.Query("recipient")
	notificationType := c.Query("type")

	var (
		notifications []model.Notification
		err           error
	)

	switch {
	case externalID != "":
		notifications, err = h.service.GetByExternalID(c.Request.Context(), externalID)
	case recipient != "" && notificationType != "":
		notifications, err = h.service.GetByRecipient(c.Request.Context(), recipient, notificationType)
	default:
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("either external_id or recipient and type are required"))
		return
	}

	if err != nil {
		if errors.Is(err, notification.ErrNotificationNotFound) {
			zlog.Logger.Warn().Err(err).Msg("no notifications found")
			respond.Fail(c.Writer, http.StatusNotFound, fmt.Errorf("no notifications found"))
			return
		}

		zlog.Logger.Error().Err(err).Msg("failed to list notifications")
		respond.Fail(c.Writer, http.StatusInternalServerError, fmt.Errorf("internal server error"))
		return
	}

	respond.OK(c.Writer, notifications)
}

// parseID extracts and validates the notification ID URL parameter. It
// writes the error response itself and reports success via the bool.
func (h *Handler) parseID(c *ginext.Context) (uuid.UUID, bool) {
	idStr := c.Param("id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		zlog.Logger.Error().Err(err).Str("idStr", idStr).Msg("failed to parse id")
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("invalid id"))
		return uuid.Nil, false
	}

	if id == uuid.Nil {
		zlog.Logger.Warn().Msg("missing id")
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("missing id"))
		return uuid.Nil, false
	}

	return id, true
}
