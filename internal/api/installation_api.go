package api

import (
	"encoding/json"
	"net/http"

	"log/slog"

	"github.com/tinywideclouds/go-microservice-base/pkg/middleware"
	"github.com/tinywideclouds/go-microservice-base/pkg/response"
	urn "github.com/tinywideclouds/go-platform/pkg/net/v1"
	"github.com/tispr/loopback-component-push/pkg/push"
)

// InstallationAPI exposes device registration over HTTP. The authenticated
// user's identity comes from the auth middleware; clients only send the
// device token.
type InstallationAPI struct {
	Store  push.InstallationStore
	Logger *slog.Logger
}

func NewInstallationAPI(store push.InstallationStore, logger *slog.Logger) *InstallationAPI {
	return &InstallationAPI{
		Store:  store,
		Logger: logger,
	}
}

type InstallationRequest struct {
	Token string `json:"token"`
}

func (api *InstallationAPI) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := middleware.GetUserHandleFromContext(ctx)
	if !ok {
		response.WriteJSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	owner, _ := urn.Parse(userID)

	var req InstallationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.WriteJSONError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if req.Token == "" {
		response.WriteJSONError(w, http.StatusBadRequest, "missing token")
		return
	}

	if err := api.Store.Register(ctx, owner, req.Token); err != nil {
		api.Logger.Error("failed to register installation", "err", err)
		response.WriteJSONError(w, http.StatusInternalServerError, "storage failed")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (api *InstallationAPI) Unregister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := middleware.GetUserHandleFromContext(ctx)
	if !ok {
		response.WriteJSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	owner, _ := urn.Parse(userID)

	var req InstallationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.WriteJSONError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if req.Token == "" {
		response.WriteJSONError(w, http.StatusBadRequest, "missing token")
		return
	}

	if err := api.Store.Unregister(ctx, owner, req.Token); err != nil {
		// Log but don't fail hard; idempotency is preferred for unregister
		api.Logger.Warn("failed to unregister installation", "err", err)
	}

	w.WriteHeader(http.StatusNoContent)
}
