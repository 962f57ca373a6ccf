package server

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/capsulehq/keepsake/internal/blob"
	"github.com/capsulehq/keepsake/internal/database"
	"github.com/capsulehq/keepsake/internal/server/middlewares"
	"github.com/capsulehq/keepsake/internal/server/service"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// SecretHeader carries the record's secret key on update and delete requests.
const SecretHeader = "X-Keepsake-Secret"

// A Controller is an Inversion Of Control pattern used to init the server package.
type Controller struct {
	Version  string
	Database database.Client
	Blobs    blob.Store
}

// EchoEngine instantiates the wep server.
func EchoEngine(ctrl Controller) *echo.Echo {
	engine := echo.New()
	engine.Use(middleware.Recover())
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.DefaultCORSConfig))
	engine.Use(middleware.Gzip())

	engine.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "[${status}] ${method} ${uri} (${bytes_in}) ${latency_human}\n",
	}))
	engine.Binder = middlewares.NewBinder()
	// Error handler
	engine.HTTPErrorHandler = middlewares.HTTPErrorHandler

	engine.Pre(middleware.Rewrite(map[string]string{
		"/": "/version",
	}))

	////////////
	// Router //
	////////////

	router := engine.Group("")

	// generic handlers
	//
	router.GET("/version", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{
			"version": ctrl.Version,
		})
	})

	//
	// memory handlers
	//
	memory := &memory{
		memories: service.NewMemories(ctrl.Database, ctrl.Blobs),
	}
	router.POST("/memories", memory.Create)
	router.GET("/memories/:code", memory.Show)
	router.POST("/memories/summaries", memory.Summaries)
	router.PATCH("/memories/:code", memory.Update)
	router.DELETE("/memories/:code", memory.Delete)

	//
	// upload handlers
	//
	router.POST("/uploads", memory.Grant)

	return engine
}

// PrintRoutes prints the Echo engin exposed routes.
func PrintRoutes(e *echo.Echo) {
	ignored := map[string]bool{
		"":   true,
		".":  true,
		"/*": true,
	}

	routes := e.Routes()
	sort.Slice(routes, func(i int, j int) bool {
		return routes[i].Path < routes[j].Path
	})

	fmt.Println("Routes:")
	for _, route := range routes {
		if ignored[route.Path] {
			continue
		}
		fmt.Printf("%6s %s\n", route.Method, route.Path)
	}
}
