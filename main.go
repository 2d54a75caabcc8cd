package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	configModel "github.com/fiware/VCHolder/config"
	"github.com/fiware/VCHolder/holder"
	logging "github.com/fiware/VCHolder/logging"
	api "github.com/fiware/VCHolder/openapi"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hellofresh/health-go/v5"
	"github.com/penglongli/gin-metrics/ginmetrics"
)

// default config file location - can be overwritten by envvar
var configFile string = "server.yaml"

const version = "v1.0.0"

/**
* Startup method to run the gin-server.
 */
func main() {

	configuration, err := configModel.ReadConfig(configFile)
	if err != nil {
		panic(err)
	}

	logging.Configure(
		configuration.Logging.JsonLogging,
		configuration.Logging.Level,
		configuration.Logging.LogRequests,
		configuration.Logging.PathsToSkip)

	logger := logging.Log()

	logger.Infof("Configuration is: %s", logging.PrettyPrintObject(configuration))

	err = holder.InitHolder(&configuration)
	if err != nil {
		panic(err)
	}

	router := getRouter()

	healthCheck, err := getHealthCheck()
	if err != nil {
		panic(err)
	}
	router.GET("/health", gin.WrapH(healthCheck.Handler()))

	// initiate metrics
	metrics := ginmetrics.GetMonitor()
	metrics.SetMetricPath("/metrics")
	metrics.Use(router)

	logger.Infof("Starting router at %v", configuration.Server.Port)
	router.Run(fmt.Sprintf("0.0.0.0:%v", configuration.Server.Port))
}

// initiate the router
func getRouter() *gin.Engine {
	// the openapi generated router uses the defaults, which we want to override to improve and configure logging
	router := gin.New()
	// middlewares only apply to routes registered after them
	router.Use(logging.GinHandlerFunc(), gin.Recovery(), cors.New(cors.Config{
		// we need to allow all, since we do not know the potential origin of a wallet frontend
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"POST", "GET"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	for _, route := range api.NewRouter().Routes() {

		switch route.Method {
		case http.MethodGet:
			router.GET(route.Path, route.HandlerFunc)
		case http.MethodPost:
			router.POST(route.Path, route.HandlerFunc)
		case http.MethodPut:
			router.PUT(route.Path, route.HandlerFunc)
		case http.MethodPatch:
			router.PATCH(route.Path, route.HandlerFunc)
		case http.MethodDelete:
			router.DELETE(route.Path, route.HandlerFunc)
		}
	}

	return router
}

func getHealthCheck() (*health.Health, error) {
	return health.New(
		health.WithComponent(health.Component{Name: "vcholder", Version: version}),
		health.WithChecks(health.Config{
			Name: "holder",
			Check: func(ctx context.Context) error {
				if holder.GetHolder() == nil {
					return fmt.Errorf("holder is not initialized")
				}
				return nil
			},
		}))
}

// allow override of the config-file on init. Everything else happens on main to improve testability
func init() {

	configFileEnv := os.Getenv("CONFIG_FILE")
	if configFileEnv != "" {
		configFile = configFileEnv
	}
	logging.Log().Infof("Will read config from %s", configFile)
}
