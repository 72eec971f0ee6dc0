package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gfranca/conta-gateway-go/internal/domain"
	"github.com/gfranca/conta-gateway-go/internal/service"
	"github.com/gfranca/conta-gateway-go/internal/validate"

	"go.uber.org/zap"
)

// ============================================================
// Perfil
// ============================================================

func getProfileHandler(store *service.ProfileStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/profile")
		defer span.End()

		profile, err := store.Load(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"profile":          profile,
			"incomplete":       profile.Incomplete(),
			"avatar":           profile.DisplayAvatar(),
			"phone_formatted":  validate.FormatPhone(profile.Phone),
			"tax_id_formatted": validate.FormatCPF(profile.TaxID),
		})
	}
}

// snapshotHandler serves the persisted identity hint so a surface can
// render an avatar before the profile fetch completes. 204 when cold.
func snapshotHandler(store *service.ProfileStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := store.ColdSnapshot()
		if snap == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"snapshot": snap,
			"avatar":   snap.DisplayAvatar(),
		})
	}
}

func updateProfileHandler(store *service.ProfileStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/profile")
		defer span.End()

		var upd domain.ProfileUpdate
		if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		profile, err := store.UpdateProfile(ctx, upd)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, profile)
	}
}

func setAvatarHandler(store *service.ProfileStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/profile/avatar")
		defer span.End()

		var req struct {
			AvatarID string `json:"avatar_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if err := store.SetAvatar(ctx, req.AvatarID); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"avatar_id": req.AvatarID})
	}
}

// uploadAvatarHandler accepts a multipart form with a single "file" field.
// Size and type are validated again in the service before any network call.
func uploadAvatarHandler(store *service.ProfileStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/profile/avatar/upload")
		defer span.End()

		// One MiB over the service limit so oversized files get the
		// friendly validation message instead of a parse error.
		if err := r.ParseMultipartForm(3 << 20); err != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart body")
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "missing file field")
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			writeError(w, http.StatusBadRequest, "unreadable file")
			return
		}

		url, err := store.UploadAvatar(ctx, header.Filename, header.Header.Get("Content-Type"), data)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"custom_avatar_url": url})
	}
}

func removeCustomAvatarHandler(store *service.ProfileStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/profile/avatar/custom")
		defer span.End()

		fallback, err := store.RemoveCustomAvatar(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"avatar_id": fallback})
	}
}
