package server

import (
	"encoding/json"
	"net/http"

	"github.com/jrsteele09/go-edu-portal/auth"
	"github.com/jrsteele09/go-edu-portal/functions"
	"github.com/jrsteele09/go-edu-portal/internal/errors"
	"github.com/rs/zerolog/log"
)

const maxAPIBody = 64 << 10

type chatRequest struct {
	Message string `json:"message" validate:"required,notblank,max=4000"`
}

type paymentLinkRequest struct {
	Plan string `json:"plan" validate:"required,notblank"`
}

// decodeAPIRequest reads and validates a JSON body. It writes the error
// response itself and reports false when the request is unusable.
func decodeAPIRequest(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAPIBody)).Decode(v); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := auth.Validate(v); err != nil {
		writeJSONError(w, http.StatusBadRequest, auth.Message(err))
		return false
	}
	return true
}

// functionsAvailable writes a 503 when no functions client is configured.
func (s *Server) functionsAvailable(w http.ResponseWriter) bool {
	if s.functions == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "This feature is not available right now.")
		return false
	}
	return true
}

func writeFunctionError(w http.ResponseWriter, function string, err error) {
	var se *functions.StatusError
	switch {
	case errors.Is(err, errors.ErrFunctionUnavailable):
		writeJSONError(w, http.StatusServiceUnavailable, "This feature is not available right now.")
	case errors.As(err, &se) && se.Status < http.StatusInternalServerError:
		writeJSONError(w, http.StatusBadRequest, se.Message)
	default:
		log.Err(err).Str("function", function).Msg("function call failed")
		writeJSONError(w, http.StatusBadGateway, "Something went wrong. Please try again.")
	}
}

func (s *Server) ChatHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pc, ok := s.portalClient(w, r)
		if !ok {
			return
		}
		if !pc.store.Current().Authenticated() {
			writeJSONError(w, http.StatusUnauthorized, "Sign in to continue.")
			return
		}
		if !s.functionsAvailable(w) {
			return
		}
		var req chatRequest
		if !decodeAPIRequest(w, r, &req) {
			return
		}
		reply, err := s.functions.Chat(r.Context(), req.Message)
		if err != nil {
			writeFunctionError(w, functions.FunctionChat, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": reply})
	}
}

func (s *Server) PaymentLinkHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pc, ok := s.portalClient(w, r)
		if !ok {
			return
		}
		session := pc.store.Current()
		if !session.Authenticated() {
			writeJSONError(w, http.StatusUnauthorized, "Sign in to continue.")
			return
		}
		if !s.functionsAvailable(w) {
			return
		}
		var req paymentLinkRequest
		if !decodeAPIRequest(w, r, &req) {
			return
		}
		url, err := s.functions.PaymentLink(r.Context(), req.Plan, session.Principal.ID)
		if err != nil {
			writeFunctionError(w, functions.FunctionPaymentLink, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"url": url})
	}
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  "ok",
			"clients": s.clients.Len(),
		})
	}
}
