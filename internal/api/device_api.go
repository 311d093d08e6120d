package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/tinywideclouds/go-device-service/pkg/device"
	"github.com/tinywideclouds/go-microservice-base/pkg/middleware"
	"github.com/tinywideclouds/go-microservice-base/pkg/response"
	urn "github.com/tinywideclouds/go-platform/pkg/net/v1"
)

// DeviceAPI exposes player registration to authenticated users. Every request
// gets its own device.Builder.
//
// A player belongs to the user whose URN is its external_user_id. Create
// always stamps the caller's URN; update and get answer 404 for players the
// caller does not own.
type DeviceAPI struct {
	Client   device.APIClient
	AppID    string
	Logger   *slog.Logger
	validate *validator.Validate
}

func NewDeviceAPI(client device.APIClient, appID string, logger *slog.Logger) *DeviceAPI {
	validate := validator.New()
	// Report fields by their wire names.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &DeviceAPI{
		Client:   client,
		AppID:    appID,
		Logger:   logger,
		validate: validate,
	}
}

// DeviceRequest is the inbound body for create and update. Identifier is
// checked by the builder on create, not here. There is no external_user_id:
// ownership comes from the authenticated user.
type DeviceRequest struct {
	Identifier     string             `json:"identifier" validate:"max=255"`
	Language       string             `json:"language" validate:"omitempty,min=2,max=10"`
	DeviceType     *device.DeviceType `json:"device_type"`
	DeviceModel    string             `json:"device_model" validate:"max=128"`
	DeviceOS       string             `json:"device_os" validate:"max=64"`
	Lat            *float64           `json:"lat" validate:"omitempty,min=-90,max=90"`
	Long           *float64           `json:"long" validate:"omitempty,min=-180,max=180"`
	Tags           map[string]string  `json:"tags" validate:"omitempty,max=100,dive,keys,required,endkeys"`
}

func (req DeviceRequest) record() device.Record {
	return device.Record{
		Identifier:  req.Identifier,
		Language:    req.Language,
		DeviceType:  req.DeviceType,
		DeviceModel: req.DeviceModel,
		DeviceOS:    req.DeviceOS,
		Lat:         req.Lat,
		Long:        req.Long,
		Tags:        req.Tags,
	}
}

// CreateDevice handles POST /api/v1/devices.
func (api *DeviceAPI) CreateDevice(w http.ResponseWriter, r *http.Request) {
	owner, ok := api.user(w, r)
	if !ok {
		return
	}
	req, ok := api.decode(w, r)
	if !ok {
		return
	}
	builder, ok := api.builder(w)
	if !ok {
		return
	}

	rec := req.record()
	rec.ExternalUserID = owner.String()
	res, err := builder.Create(r.Context(), &rec)
	if err != nil {
		api.writeSubmitError(w, "create", err)
		return
	}
	api.Logger.Info("Device created", "user", owner.String(), "identifier", rec.Identifier)
	writeJSON(w, http.StatusCreated, res)
}

// UpdateDevice handles PUT /api/v1/devices/{id}.
func (api *DeviceAPI) UpdateDevice(w http.ResponseWriter, r *http.Request) {
	owner, ok := api.user(w, r)
	if !ok {
		return
	}
	req, ok := api.decode(w, r)
	if !ok {
		return
	}
	builder, ok := api.builder(w)
	if !ok {
		return
	}

	deviceID := r.PathValue("id")
	if _, ok := api.owned(r.Context(), w, builder, deviceID, owner); !ok {
		return
	}

	rec := req.record()
	res, err := builder.Update(r.Context(), deviceID, &rec)
	if err != nil {
		api.writeSubmitError(w, "update", err)
		return
	}
	api.Logger.Info("Device updated", "user", owner.String(), "device_id", deviceID)
	writeJSON(w, http.StatusOK, res)
}

// GetDevice handles GET /api/v1/devices/{id}.
func (api *DeviceAPI) GetDevice(w http.ResponseWriter, r *http.Request) {
	owner, ok := api.user(w, r)
	if !ok {
		return
	}
	builder, ok := api.builder(w)
	if !ok {
		return
	}

	res, ok := api.owned(r.Context(), w, builder, r.PathValue("id"), owner)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// --- Helpers ---

func (api *DeviceAPI) user(w http.ResponseWriter, r *http.Request) (urn.URN, bool) {
	var none urn.URN
	userID, ok := middleware.GetUserHandleFromContext(r.Context())
	if !ok {
		response.WriteJSONError(w, http.StatusUnauthorized, "unauthorized")
		return none, false
	}
	userURN, err := urn.Parse(userID)
	if err != nil || userURN.IsZero() {
		api.Logger.Warn("Rejected malformed user handle", "user", userID, "err", err)
		response.WriteJSONError(w, http.StatusUnauthorized, "unauthorized")
		return none, false
	}
	return userURN, true
}

func (api *DeviceAPI) decode(w http.ResponseWriter, r *http.Request) (DeviceRequest, bool) {
	var req DeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.WriteJSONError(w, http.StatusBadRequest, "invalid json")
		return req, false
	}
	if err := api.validate.Struct(req); err != nil {
		api.Logger.Warn("Device request failed validation", "err", err)
		response.WriteJSONError(w, http.StatusBadRequest, validationMessage(err))
		return req, false
	}
	return req, true
}

// validationMessage lists failed fields by wire name, e.g. "lat: max".
func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return "invalid request"
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
	}
	return "invalid fields: " + strings.Join(parts, ", ")
}

// owned fetches deviceID and checks it belongs to owner. Players owned by
// someone else are reported as missing.
func (api *DeviceAPI) owned(ctx context.Context, w http.ResponseWriter, builder *device.Builder, deviceID string, owner urn.URN) (device.Result, bool) {
	res, err := builder.Get(ctx, deviceID)
	if err != nil {
		api.writeSubmitError(w, "get", err)
		return nil, false
	}
	if holder, _ := res["external_user_id"].(string); holder != owner.String() {
		api.Logger.Warn("Denied access to device owned by another user", "user", owner.String(), "device_id", deviceID)
		response.WriteJSONError(w, http.StatusNotFound, "device not found")
		return nil, false
	}
	return res, true
}

func (api *DeviceAPI) builder(w http.ResponseWriter) (*device.Builder, bool) {
	builder, err := device.NewBuilder(api.AppID, api.Client)
	if err != nil {
		api.Logger.Error("Device builder misconfigured", "err", err)
		response.WriteJSONError(w, http.StatusInternalServerError, "service misconfigured")
		return nil, false
	}
	return builder, true
}

func (api *DeviceAPI) writeSubmitError(w http.ResponseWriter, op string, err error) {
	var valErr *device.ValidationError
	var tErr *device.TransportError

	switch {
	case errors.As(err, &valErr):
		response.WriteJSONError(w, http.StatusBadRequest, valErr.Error())
	case errors.As(err, &tErr) && tErr.Rejected():
		api.Logger.Warn("OneSignal rejected device request", "op", op, "status", tErr.StatusCode, "errors", tErr.Errors)
		response.WriteJSONError(w, tErr.StatusCode, "rejected by push provider")
	default:
		api.Logger.Error("Device request failed", "op", op, "err", err)
		response.WriteJSONError(w, http.StatusBadGateway, "push provider unavailable")
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
