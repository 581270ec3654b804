package server

import (
	"net/http"

	"github.com/jrsteele09/go-edu-portal/internal/metrics"
)

func (s *Server) initRoutes() {
	// Pages: every path not matched below is routed through the guard.
	s.RegisterRouteHandler("GET /", ChainMiddleware(s.PageHandler(), s.HTMLMiddleWare()...))

	// AUTH
	s.RegisterRouteHandler("POST "+RouteAuthSignIn, ChainMiddleware(s.SignInHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteAuthSignUp, ChainMiddleware(s.SignUpHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteAuthReset, ChainMiddleware(s.ResetRequestHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteAuthSignOut, ChainMiddleware(s.SignOutHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteAuthToggle, ChainMiddleware(s.ToggleFormHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteAuthResetDialog, ChainMiddleware(s.ResetDialogHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteAuthConfirm, ChainMiddleware(s.ConfirmEmailHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteAuthUpdatePassword, ChainMiddleware(s.UpdatePasswordPageHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteAuthUpdatePassword, ChainMiddleware(s.UpdatePasswordHandler(), s.HTMLMiddleWare()...))

	// API routes
	s.RegisterRouteHandler("POST "+RouteAPIChat, ChainMiddleware(s.ChatHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAPIPaymentLink, ChainMiddleware(s.PaymentLinkHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("OPTIONS /api/", ChainMiddleware(func(w http.ResponseWriter, r *http.Request) {}, s.APIMiddleware()...))

	s.RegisterRouteHandler("GET "+RouteSessionSocket, ChainMiddleware(s.SessionSocketHandler(), s.RecoverMiddleware))

	s.RegisterRouteHandler("GET "+RouteHealth, ChainMiddleware(s.HealthHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteMetrics, metrics.Handler())
}
