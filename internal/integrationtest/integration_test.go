package integrationtest

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/dirk.krummacker/tourist-registry/internal/config"
	"gitlab.com/dirk.krummacker/tourist-registry/internal/service"
	"gitlab.com/dirk.krummacker/tourist-registry/internal/store"
)

var confirmationPattern = regexp.MustCompile(`^Tourist (.*) registered successfully with ID (\d+)$`)

// setupRouter opens a store on the SQLite file at path and returns the router of the service.
func setupRouter(t *testing.T, path string) *gin.Engine {
	s, err := store.Open(config.DatabaseConfig{Driver: "sqlite", DSN: path}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Initialize(context.Background()))
	gin.SetMode(gin.ReleaseMode)
	return service.New(s, zerolog.Nop(), false).SetupHttpRouter()
}

// register posts the form values and returns the assigned id.
func register(t *testing.T, router *gin.Engine, form url.Values) int64 {
	recorder := httptest.NewRecorder()
	request, _ := http.NewRequest("POST", "/register", strings.NewReader(form.Encode()))
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	router.ServeHTTP(recorder, request)
	require.Equal(t, http.StatusOK, recorder.Code)

	match := confirmationPattern.FindStringSubmatch(recorder.Body.String())
	require.NotNil(t, match, recorder.Body.String())
	assert.Equal(t, form.Get("name"), match[1])
	id, err := strconv.ParseInt(match[2], 10, 64)
	require.NoError(t, err)
	return id
}

// listPage fetches the listing page.
func listPage(t *testing.T, router *gin.Engine) string {
	recorder := httptest.NewRecorder()
	request, _ := http.NewRequest("GET", "/tourists", nil)
	router.ServeHTTP(recorder, request)
	require.Equal(t, http.StatusOK, recorder.Code)
	return recorder.Body.String()
}

// TestTouristHappyPath registers tourists through the form and expects each of them on the listing
// page with a distinct id.
func TestTouristHappyPath(t *testing.T) {
	router := setupRouter(t, filepath.Join(t.TempDir(), "tourists.db"))

	// the status page works on an empty database
	recorder := httptest.NewRecorder()
	request, _ := http.NewRequest("GET", "/", nil)
	router.ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, service.StatusMessage, recorder.Body.String())

	// the listing starts empty
	assert.Equal(t, 0, strings.Count(listPage(t, router), `<tr class="tourist">`))

	// the form is served
	formRecorder := httptest.NewRecorder()
	formRequest, _ := http.NewRequest("GET", "/register", nil)
	router.ServeHTTP(formRecorder, formRequest)
	assert.Equal(t, http.StatusOK, formRecorder.Code)
	assert.Contains(t, formRecorder.Body.String(), `name="itinerary"`)

	registrations := []url.Values{
		{"name": {"Alice"}, "contact": {"alice@example.com"}, "itinerary": {"Rome, Florence"}},
		{"name": {"Bob"}, "contact": {"0800 123"}, "itinerary": {"Lisbon"}},
		{"name": {"Carla"}, "contact": {"carla@example.com"}, "itinerary": {"Oslo, Bergen"}},
	}
	ids := map[int64]bool{}
	for _, form := range registrations {
		id := register(t, router, form)
		assert.False(t, ids[id], "id %d assigned twice", id)
		ids[id] = true
	}

	page := listPage(t, router)
	assert.Equal(t, len(registrations), strings.Count(page, `<tr class="tourist">`))
	for id := range ids {
		assert.Contains(t, page, fmt.Sprintf("<td>%d</td>", id))
	}
	for _, form := range registrations {
		assert.Contains(t, page, fmt.Sprintf("<td>%s</td><td>%s</td><td>%s</td>",
			form.Get("name"), form.Get("contact"), form.Get("itinerary")))
	}
}

// TestRegisterMissingFields posts a form without contact and itinerary and expects the tourist to
// be listed with empty cells.
func TestRegisterMissingFields(t *testing.T) {
	router := setupRouter(t, filepath.Join(t.TempDir(), "tourists.db"))

	id := register(t, router, url.Values{"name": {"Dora"}})
	page := listPage(t, router)
	assert.Contains(t, page, fmt.Sprintf("<td>%d</td><td>Dora</td><td></td><td></td>", id))
}

// TestRestartKeepsTourists expects registrations to survive a restart of the service on the same
// database file, and new ids to continue after the old ones.
func TestRestartKeepsTourists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tourists.db")

	first := register(t, setupRouter(t, path), url.Values{"name": {"Emil"}})

	router := setupRouter(t, path)
	second := register(t, router, url.Values{"name": {"Frida"}})
	assert.Greater(t, second, first)

	page := listPage(t, router)
	assert.Equal(t, 2, strings.Count(page, `<tr class="tourist">`))
	assert.Contains(t, page, "Emil")
	assert.Contains(t, page, "Frida")
}
