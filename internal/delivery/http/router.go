package http

import (
	"net/http"

	"hospital-booking/internal/delivery/http/handler"
	"hospital-booking/internal/delivery/http/middleware"
	"hospital-booking/pkg/response"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type Router struct {
	router                  *mux.Router
	log                     *logrus.Logger
	bookingHandler          *handler.BookingHandler
	adminReservationHandler *handler.AdminReservationHandler
	authMiddleware          *middleware.AuthMiddleware
	allowedOrigins          []string
}

func NewRouter(
	log *logrus.Logger,
	bookingHandler *handler.BookingHandler,
	adminReservationHandler *handler.AdminReservationHandler,
	authMiddleware *middleware.AuthMiddleware,
	allowedOrigins []string,
) *Router {
	return &Router{
		router:                  mux.NewRouter(),
		log:                     log,
		bookingHandler:          bookingHandler,
		adminReservationHandler: adminReservationHandler,
		authMiddleware:          authMiddleware,
		allowedOrigins:          allowedOrigins,
	}
}

func (r *Router) Setup() *mux.Router {
	// API versioning
	api := r.router.PathPrefix("/api/v1").Subrouter()

	// Health check
	api.HandleFunc("/health", r.healthCheck).Methods(http.MethodGet)

	// Public booking flow
	api.HandleFunc("/slots", r.bookingHandler.GetDaySlots).Methods(http.MethodGet)
	api.HandleFunc("/slots/availability", r.bookingHandler.CheckAvailability).Methods(http.MethodGet)
	api.HandleFunc("/bookings", r.bookingHandler.SubmitBooking).Methods(http.MethodPost)
	api.HandleFunc("/bookings/{reference}", r.bookingHandler.GetBooking).Methods(http.MethodGet)

	// Admin routes (protected - admin only)
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(r.authMiddleware.Authenticate)
	admin.Use(middleware.RequireAdmin)

	admin.HandleFunc("/reservations", r.adminReservationHandler.ListReservations).Methods(http.MethodGet)
	admin.HandleFunc("/reservations", r.adminReservationHandler.CreateReservation).Methods(http.MethodPost)
	admin.HandleFunc("/reservations/{id}", r.adminReservationHandler.GetReservation).Methods(http.MethodGet)
	admin.HandleFunc("/reservations/{id}/cancel", r.adminReservationHandler.CancelReservation).Methods(http.MethodPost)
	admin.HandleFunc("/reservations/{id}/audit", r.adminReservationHandler.GetReservationAudit).Methods(http.MethodGet)

	r.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		response.NotFound(w, "Route not found")
	})

	return r.router
}

// Handler wraps the routes with CORS, panic recovery and access logging.
func (r *Router) Handler() http.Handler {
	cors := handlers.CORS(
		handlers.AllowedOrigins(r.allowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
	)
	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(r.log),
		handlers.PrintRecoveryStack(true),
	)

	return handlers.CombinedLoggingHandler(r.log.Writer(), recovery(cors(r.Setup())))
}

func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok"}`))
}
