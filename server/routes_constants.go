package server

// Server endpoints. Page paths live in the navigation package.
const (
	// Auth form submissions
	RouteAuthSignIn      = "/auth/signin"
	RouteAuthSignUp      = "/auth/signup"
	RouteAuthReset       = "/auth/reset"
	RouteAuthSignOut     = "/auth/signout"
	RouteAuthToggle      = "/auth/toggle"
	RouteAuthResetDialog = "/auth/reset-dialog"

	// Email links
	RouteAuthConfirm        = "/auth/confirm"
	RouteAuthUpdatePassword = "/auth/update-password"

	// API Routes
	RouteAPIChat        = "/api/chat"
	RouteAPIPaymentLink = "/api/payment-link"

	RouteSessionSocket = "/ws/session"
	RouteMetrics       = "/metrics"
	RouteHealth        = "/health"
)
