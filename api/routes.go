package api

const (
	// auth routes

	// POST /auth/refresh to refresh the JWT token
	authRefreshTokenEndpoint = "/auth/refresh"
	// POST /auth/login to login and get a JWT token
	authLoginEndpoint = "/auth/login"

	// user routes

	// POST /users to register a new user
	usersEndpoint = "/users"
	// GET /users/me to get the current user information
	usersMeEndpoint = "/users/me"
	// GET /users/me/orders to list the recharge orders of the current user
	usersMeOrdersEndpoint = "/users/me/orders"

	// payment routes

	// GET /payment/stripe-checkout to get the public gateway configuration
	paymentInfoEndpoint = "/payment/stripe-checkout"
	// POST /payment/stripe-checkout/purchase to create a recharge checkout
	paymentPurchaseEndpoint = "/payment/stripe-checkout/purchase"
	// POST /payment/stripe-checkout/notify to receive Stripe webhook events
	paymentNotifyEndpoint = "/payment/stripe-checkout/notify"
	// GET /payment/stripe-checkout/return to send the user back to the web app
	paymentReturnEndpoint = "/payment/stripe-checkout/return"

	// health route

	// GET /ping to check the server availability
	pingEndpoint = "/ping"
)
