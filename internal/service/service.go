// Package service implements the HTTP endpoints of the tourist registry: a status page, the
// registration form and the listing of all registered tourists.
package service

import (
	"context"
	"embed"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gitlab.com/dirk.krummacker/tourist-registry/internal/logger"
	"gitlab.com/dirk.krummacker/tourist-registry/internal/model"
)

// StatusMessage is the response of the home endpoint.
const StatusMessage = "Tourist registry is working"

//go:embed templates/*.html
var templates embed.FS

// TouristStore is the storage used by the handlers.
type TouristStore interface {
	Create(ctx context.Context, name, contact, itinerary *string) (int64, error)
	ListAll(ctx context.Context) ([]model.Tourist, error)
}

// Service holds everything a request handler needs.
type Service struct {
	store          TouristStore
	log            zerolog.Logger
	requestLogging bool
}

// New creates the service. With requestLogging switched off no access log is written.
func New(store TouristStore, log zerolog.Logger, requestLogging bool) *Service {
	return &Service{
		store:          store,
		log:            log,
		requestLogging: requestLogging,
	}
}

// SetupHttpRouter initializes the router, loads the page templates and registers all endpoints.
func (s *Service) SetupHttpRouter() *gin.Engine {
	router := gin.New()
	router.Use(logger.RequestID())
	if s.requestLogging {
		router.Use(logger.AccessLog(s.log))
	} else {
		s.log.Info().Msg("turning off HTTP request logging")
	}
	router.Use(gin.Recovery())
	router.SetHTMLTemplate(parseTemplates())

	router.GET("/", s.home)
	router.GET("/register", s.registrationForm)
	router.POST("/register", s.register)
	router.GET("/tourists", s.listTourists)
	return router
}

// parseTemplates parses the embedded pages. They are part of the binary, so a failure is a
// programming error.
func parseTemplates() *template.Template {
	funcs := template.FuncMap{"deref": deref}
	return template.Must(template.New("").Funcs(funcs).ParseFS(templates, "templates/*.html"))
}

// deref renders a missing value as an empty string.
func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// home responds with a fixed text confirming that the service is reachable.
//
// Example call:
//
//	> curl http://localhost:8080/
func (s *Service) home(c *gin.Context) {
	c.String(http.StatusOK, StatusMessage)
}

// registrationForm responds with the blank registration form.
func (s *Service) registrationForm(c *gin.Context) {
	c.HTML(http.StatusOK, "form.html", nil)
}

// register stores the tourist described by the form fields 'name', 'contact' and 'itinerary' and
// responds with a confirmation containing the name and the newly assigned id.
//
// Limitations:
// - A field that is not submitted is stored as NULL, an empty field as an empty string.
// - A body that cannot be parsed is treated as if no field was submitted.
// - A missing name is printed as an empty string in the confirmation, not as a placeholder.
//
// Example call:
//
//	> curl http://localhost:8080/register --data "name=Alice&contact=alice@example.com&itinerary=Rome"
func (s *Service) register(c *gin.Context) {
	name := postFormValue(c, "name")
	contact := postFormValue(c, "contact")
	itinerary := postFormValue(c, "itinerary")

	id, err := s.store.Create(c.Request.Context(), name, contact, itinerary)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.log.Debug().Int64("id", id).Str("request_id", logger.GetRequestID(c)).Msg("tourist registered")
	c.String(http.StatusOK, "Tourist %s registered successfully with ID %d", deref(name), id)
}

// listTourists responds with a page listing all registered tourists.
func (s *Service) listTourists(c *gin.Context) {
	tourists, err := s.store.ListAll(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.HTML(http.StatusOK, "tourists.html", gin.H{"tourists": tourists})
}

// postFormValue returns the submitted value of a form field, or nil if the field is absent.
func postFormValue(c *gin.Context, key string) *string {
	if value, ok := c.GetPostForm(key); ok {
		return &value
	}
	return nil
}

// fail answers a storage error with a generic server error. The error itself only goes to the log.
func (s *Service) fail(c *gin.Context, err error) {
	_ = c.Error(err)
	if !s.requestLogging {
		s.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	}
	c.String(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	c.Abort()
}
