package api

import (
	"context"
	"net/http"
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/openepidata/graph-etl/etl"
	"github.com/openepidata/graph-etl/logmodule"
	"github.com/openepidata/graph-etl/store"
)

var log *logrus.Entry

func init() {
	log = logrus.WithField("prefix", "gin")
}

// Server to run the read-only publish api over the rollup archive. Every
// value it serves goes through the small-count redactor first.
type Server struct {
	// Server instance
	server *http.Server

	// Stores
	store store.MongoStore

	// published values are redacted, stored values are not
	redactor etl.Redactor
}

// NewServer new instance of server
func NewServer(mongoStore store.MongoStore, redactor etl.Redactor) *Server {
	return &Server{
		store:    mongoStore,
		redactor: redactor,
	}
}

// Run to run the server
func (s *Server) Run(addr string) error {
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.setupRouter(),
	}

	log.WithField("addr", addr).Info("api server started")
	return s.server.ListenAndServe()
}

func (s *Server) setupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(sentrygin.New(sentrygin.Options{
		Repanic:         true,
		WaitForDelivery: false,
		Timeout:         10 * time.Second,
	}))
	r.Use(cors.New(cors.Config{
		AllowMethods:    []string{"GET"},
		AllowHeaders:    []string{"Origin", "Cache-Control", "Content-Type"},
		AllowAllOrigins: true,
	}))

	apiRoute := r.Group("/api")
	apiRoute.Use(logmodule.Ginrus("API"))

	apiRoute.GET("/information", s.information)

	rollupRoute := apiRoute.Group("/rollups")
	{
		rollupRoute.GET("/:country", s.countryRollups)
		rollupRoute.GET("/:country/:state", s.stateRollups)
	}

	return r
}

// Shutdown to shutdown the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
