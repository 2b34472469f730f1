package api

import (
	"context"
	"net/http"

	"github.com/fastprodman/moneyserver/internal/repos/userinfo"
)

// AddUserInfoHandler handles POST /users/{userId}/info
func (h *HandlerProvider) AddUserInfoHandler(w http.ResponseWriter, r *http.Request) {
	h.writeUserInfo(w, r, http.StatusCreated, h.svc.AddUserInfo)
}

// UpdateUserInfoHandler handles PUT /users/{userId}/info
func (h *HandlerProvider) UpdateUserInfoHandler(w http.ResponseWriter, r *http.Request) {
	h.writeUserInfo(w, r, http.StatusOK, h.svc.UpdateUserInfo)
}

func (h *HandlerProvider) writeUserInfo(
	w http.ResponseWriter, r *http.Request, okStatus int,
	store func(ctx context.Context, info userinfo.Info) error,
) {
	userID, err := userIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req userInfoRequest

	err = decode(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	info := req.info(userID)

	err = store(r.Context(), info)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, okStatus, toUserInfoResponse(info))
}

// GetUserInfoHandler handles GET /users/{userId}/info
func (h *HandlerProvider) GetUserInfoHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	info, err := h.svc.FetchUserInfo(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserInfoResponse(info))
}
