package main

// this file contains implementation of HTTP handlers - REST API

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/radiowave/backend/config"
	"github.com/radiowave/backend/datastore"
	"github.com/radiowave/backend/ratings"
)

type httpServer struct {
	store   *datastore.Store
	ratings *ratings.Service
}

func NewHTTPRouter(store *datastore.Store, svc *ratings.Service) *echo.Echo {
	h := &httpServer{store: store, ratings: svc}

	r := echo.New()
	r.HideBanner = true
	r.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "method=${method}, uri=${uri}, status=${status}\n",
	}))
	r.Use(middleware.Recover())
	r.Static("/", "public")
	r.GET("/", h.welcomeHandler)

	router := r.Group("/api")
	router.GET("/test-db", h.testDBHandler)
	router.GET("/db-metrics", h.dbMetricsHandler)
	router.GET("/client-ip", h.clientIPHandler)
	router.GET("/users", h.listUsersHandler)
	router.POST("/users", h.createUserHandler)
	router.GET("/ratings/:songId", h.ratingCountsHandler)
	router.POST("/ratings", h.submitRatingHandler)

	return r
}

func (h *httpServer) welcomeHandler(c echo.Context) error {
	page := fmt.Sprintf(`<html>
  <head><title>Radiowave Server</title></head>
  <body>
    <h1>Welcome to Radiowave!</h1>
    <p>Server is running with %s</p>
    <h2>API Endpoints:</h2>
    <ul>
      <li>GET /api/users - Get all users</li>
      <li>POST /api/users - Create a new user</li>
      <li>GET /api/test-db - Test database connection</li>
      <li>GET /api/db-metrics - Get database connection pool metrics</li>
      <li>GET /api/client-ip - Get client IP address</li>
      <li>GET /api/ratings/:songId - Get rating counts for a song</li>
      <li>POST /api/ratings - Submit or update a rating</li>
    </ul>
  </body>
</html>`, h.store.Type())
	return c.HTML(http.StatusOK, page)
}

func (h *httpServer) testDBHandler(c echo.Context) error {
	row, err := h.store.Get(c.Request().Context(), h.store.VersionQuery())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":       "Database connected successfully",
		"database_type": h.store.Type(),
		"version":       row["version"],
	})
}

func (h *httpServer) dbMetricsHandler(c echo.Context) error {
	if !h.store.Connected() {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "Database not connected"})
	}
	if stats, ok := h.store.PoolStats(); ok {
		return c.JSON(http.StatusOK, echo.Map{
			"database_type": h.store.Type(),
			"pool":          stats,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"database_type": h.store.Type(),
		"message":       "SQLite does not use connection pooling",
	})
}

func (h *httpServer) clientIPHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"ip": c.RealIP()})
}

func (h *httpServer) listUsersHandler(c echo.Context) error {
	rows, err := h.store.Query(c.Request().Context(), "SELECT * FROM users")
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{"users": rows})
}

func (h *httpServer) createUserHandler(c echo.Context) error {
	u := NewUser{}
	if err := c.Bind(&u); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request body"})
	}
	if u.Name == "" || u.Email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Name and email are required"})
	}

	query := "INSERT INTO users (name, email) VALUES (?, ?)"
	if h.store.Type() == config.DBTypePostgres {
		query = "INSERT INTO users (name, email) VALUES ($1, $2) RETURNING id"
	}
	res, err := h.store.Run(c.Request().Context(), query, u.Name, u.Email)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}

	var id any
	if res.InsertID.Valid {
		id = res.InsertID.Int64
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "User created successfully",
		"user":    echo.Map{"id": id, "name": u.Name, "email": u.Email},
	})
}

func (h *httpServer) ratingCountsHandler(c echo.Context) error {
	counts, err := h.ratings.Tally(c.Request().Context(), c.Param("songId"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, counts)
}

func (h *httpServer) submitRatingHandler(c echo.Context) error {
	r := ratings.Rating{}
	if err := c.Bind(&r); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request body"})
	}

	res, err := h.ratings.Submit(c.Request().Context(), r)
	if err != nil {
		var verr ratings.ValidationError
		var cerr ratings.ConflictError
		if errors.As(err, &verr) || errors.As(err, &cerr) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}

	if res.Updated {
		return c.JSON(http.StatusOK, echo.Map{"message": "Rating updated successfully"})
	}

	var id any
	if res.ID.Valid {
		id = res.ID.Int64
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Rating submitted successfully",
		"id":      id,
	})
}
