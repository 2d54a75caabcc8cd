package openapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Route is the information for every URI.
type Route struct {
	// Name is the name of this Route.
	Name string
	// Method is the string for the HTTP method. ex) GET, POST etc..
	Method string
	// Pattern is the pattern of the URI.
	Pattern string
	// HandlerFunc is the handler function of this route.
	HandlerFunc gin.HandlerFunc
}

// Routes is the list of the generated Route.
type Routes []Route

// NewRouter returns a new router.
func NewRouter() *gin.Engine {
	router := gin.Default()
	for _, route := range routes {
		switch route.Method {
		case http.MethodGet:
			router.GET(route.Pattern, route.HandlerFunc)
		case http.MethodPost:
			router.POST(route.Pattern, route.HandlerFunc)
		}
	}

	return router
}

var routes = Routes{
	{
		"GenerateKey",
		http.MethodPost,
		"/api/v1/keys",
		GenerateKey,
	},
	{
		"ImportKey",
		http.MethodPost,
		"/api/v1/keys/import",
		ImportKey,
	},
	{
		"ExportScalar",
		http.MethodPost,
		"/api/v1/keys/scalar",
		ExportScalar,
	},
	{
		"SiopFlow",
		http.MethodPost,
		"/api/v1/siop",
		SiopFlow,
	},
	{
		"IssueCredential",
		http.MethodPost,
		"/api/v1/credentials",
		IssueCredential,
	},
	{
		"VerifyToken",
		http.MethodPost,
		"/api/v1/tokens/verify",
		VerifyToken,
	},
	{
		"CheckProof",
		http.MethodPost,
		"/api/v1/proofs/check",
		CheckProof,
	},
}
