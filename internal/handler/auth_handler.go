package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gfranca/conta-gateway-go/internal/domain"
	"github.com/gfranca/conta-gateway-go/internal/service"
	"github.com/gfranca/conta-gateway-go/internal/validate"

	"go.uber.org/zap"
)

// ============================================================
// Autenticação
// ============================================================

func loginHandler(sessions *service.SessionManager, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/auth/login")
		defer span.End()

		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if validate.Email(req.Email) != validate.EmailValid {
			writeError(w, http.StatusBadRequest, "E-mail inválido")
			return
		}
		if req.Password == "" {
			writeError(w, http.StatusBadRequest, "Informe a senha")
			return
		}

		session, err := sessions.SignIn(ctx, req.Email, req.Password)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, sessionView(session))
	}
}

func registerHandler(sessions *service.SessionManager, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/auth/register")
		defer span.End()

		var req domain.SignUpRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if validate.Email(req.Email) != validate.EmailValid {
			writeError(w, http.StatusBadRequest, "E-mail inválido")
			return
		}
		if len(req.Password) < 6 {
			writeError(w, http.StatusBadRequest, "A senha deve ter no mínimo 6 caracteres")
			return
		}
		if req.Phone != "" && !validate.Phone(validate.Digits(req.Phone)) {
			writeError(w, http.StatusBadRequest, "Telefone inválido")
			return
		}

		if err := sessions.SignUp(ctx, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		// Registration ends in pending e-mail confirmation.
		writeJSON(w, http.StatusCreated, map[string]string{
			"status": "pending_confirmation",
		})
	}
}

func logoutHandler(sessions *service.SessionManager, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/auth/logout")
		defer span.End()

		sessions.SignOut(ctx)
		w.WriteHeader(http.StatusNoContent)
	}
}

func refreshHandler(sessions *service.SessionManager, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/auth/refresh")
		defer span.End()

		session, err := sessions.Refresh(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, sessionView(session))
	}
}

func forgotPasswordHandler(sessions *service.SessionManager, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/auth/password/recover")
		defer span.End()

		var req struct {
			Email string `json:"email"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if validate.Email(req.Email) != validate.EmailValid {
			writeError(w, http.StatusBadRequest, "E-mail inválido")
			return
		}

		if err := sessions.ForgotPassword(ctx, req.Email); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "recovery_email_sent"})
	}
}

// sessionView is what the surfaces see of a session. The refresh token
// never leaves the gateway.
func sessionView(s *domain.Session) map[string]any {
	return map[string]any{
		"user_id":    s.UserID,
		"email":      s.Email,
		"expires_at": s.ExpiresAt,
	}
}

func sessionHandler(sessions *service.SessionManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := sessions.Session()
		if session == nil {
			writeJSON(w, http.StatusOK, map[string]any{"signed_in": false})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"signed_in": true,
			"session":   sessionView(session),
		})
	}
}
