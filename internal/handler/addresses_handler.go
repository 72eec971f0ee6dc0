package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gfranca/conta-gateway-go/internal/domain"
	"github.com/gfranca/conta-gateway-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Endereços
// ============================================================

type addressListResponse struct {
	Addresses []domain.Address `json:"addresses"`
}

func listAddressesHandler(book *service.AddressBook, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/addresses")
		defer span.End()

		list, err := book.Load(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, addressListResponse{Addresses: list})
	}
}

func createAddressHandler(book *service.AddressBook, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/addresses")
		defer span.End()

		var form domain.AddressForm
		if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		list, err := book.Create(ctx, &form)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, addressListResponse{Addresses: list})
	}
}

func updateAddressHandler(book *service.AddressBook, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/addresses/{addressId}")
		defer span.End()

		var form domain.AddressForm
		if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		list, err := book.Update(ctx, chi.URLParam(r, "addressId"), &form)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, addressListResponse{Addresses: list})
	}
}

func deleteAddressHandler(book *service.AddressBook, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/addresses/{addressId}")
		defer span.End()

		list, err := book.Delete(ctx, chi.URLParam(r, "addressId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, addressListResponse{Addresses: list})
	}
}

func setDefaultAddressHandler(book *service.AddressBook, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/addresses/{addressId}/default")
		defer span.End()

		list, err := book.SetDefault(ctx, chi.URLParam(r, "addressId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, addressListResponse{Addresses: list})
	}
}

// autofillResponse echoes the form with the looked-up fields filled in.
// CEPError carries a non-blocking message scoped to the postal code field
// when the lookup missed or failed; the rest of the form stays editable.
type autofillResponse struct {
	domain.AddressForm
	CEPError string `json:"cep_error,omitempty"`
}

// autofillHandler takes the form as typed so far and returns it with the
// postal-code fields filled in where they were empty.
func autofillHandler(book *service.AddressBook, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/addresses/autofill")
		defer span.End()

		var form domain.AddressForm
		if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		cepError, err := book.Autofill(ctx, &form)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, autofillResponse{AddressForm: form, CEPError: cepError})
	}
}
