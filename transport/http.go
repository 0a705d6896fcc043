package transport

import (
	"net/http"

	"github.com/gorilla/mux"
	adapp "github.com/johnshimelis/outlier-commerce/application/ad"
	categoryapp "github.com/johnshimelis/outlier-commerce/application/category"
	orderapp "github.com/johnshimelis/outlier-commerce/application/order"
	productapp "github.com/johnshimelis/outlier-commerce/application/product"
	"github.com/johnshimelis/outlier-commerce/cmd/config"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

type RestHandler struct {
	OrderApp    orderapp.OrderApp
	ProductApp  productapp.ProductApp
	CategoryApp categoryapp.CategoryApp
	AdApp       adapp.AdApp
}

func NewTransport(cfg *config.Config, OrderApp orderapp.OrderApp, ProductApp productapp.ProductApp, CategoryApp categoryapp.CategoryApp, AdApp adapp.AdApp) http.Handler {
	mux := mux.NewRouter()

	rh := &RestHandler{
		OrderApp:    OrderApp,
		ProductApp:  ProductApp,
		CategoryApp: CategoryApp,
		AdApp:       AdApp,
	}

	HideErrorDetails(cfg.Environment == "production")

	// Swagger UI
	mux.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)

	// Prometheus metrics
	mux.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// Public routes
	mux.HandleFunc("/orders", rh.SubmitOrder).Methods(http.MethodPost)
	mux.HandleFunc("/orders/{sequenceId}", rh.GetOrder).Methods(http.MethodGet)
	mux.HandleFunc("/users/{userId}/orders", rh.ListUserOrders).Methods(http.MethodGet)
	mux.HandleFunc("/products", rh.ListProducts).Methods(http.MethodGet)
	mux.HandleFunc("/products/{id}", rh.GetProduct).Methods(http.MethodGet)
	mux.HandleFunc("/categories", rh.ListCategories).Methods(http.MethodGet)
	mux.HandleFunc("/categories/{id}", rh.GetCategory).Methods(http.MethodGet)
	mux.HandleFunc("/ads", rh.ListAds).Methods(http.MethodGet)

	// Admin routes, protected by the internal API key
	adminOnly := InternalMiddleware(cfg.Internal.APIKey)
	mux.Handle("/orders", adminOnly(http.HandlerFunc(rh.ListOrders))).Methods(http.MethodGet)
	mux.Handle("/orders", adminOnly(http.HandlerFunc(rh.DeleteAllOrders))).Methods(http.MethodDelete)
	mux.Handle("/orders/{sequenceId}/status", adminOnly(http.HandlerFunc(rh.UpdateOrderStatus))).Methods(http.MethodPatch)
	mux.Handle("/orders/{sequenceId}", adminOnly(http.HandlerFunc(rh.DeleteOrder))).Methods(http.MethodDelete)
	mux.Handle("/products", adminOnly(http.HandlerFunc(rh.CreateProduct))).Methods(http.MethodPost)
	mux.Handle("/products/{id}", adminOnly(http.HandlerFunc(rh.UpdateProduct))).Methods(http.MethodPut)
	mux.Handle("/products/{id}", adminOnly(http.HandlerFunc(rh.DeleteProduct))).Methods(http.MethodDelete)
	mux.Handle("/categories", adminOnly(http.HandlerFunc(rh.CreateCategory))).Methods(http.MethodPost)
	mux.Handle("/categories/{id}", adminOnly(http.HandlerFunc(rh.UpdateCategory))).Methods(http.MethodPut)
	mux.Handle("/categories/{id}", adminOnly(http.HandlerFunc(rh.DeleteCategory))).Methods(http.MethodDelete)
	mux.Handle("/ads", adminOnly(http.HandlerFunc(rh.CreateAd))).Methods(http.MethodPost)
	mux.Handle("/ads/{id}", adminOnly(http.HandlerFunc(rh.DeleteAd))).Methods(http.MethodDelete)

	// middleware
	mux.Use(LoggingMiddleware())

	return mux
}
