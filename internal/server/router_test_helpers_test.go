package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/keebstack/switchbook/internal/auth"
	"github.com/keebstack/switchbook/internal/catalog"
	"github.com/keebstack/switchbook/internal/database"
	"github.com/keebstack/switchbook/internal/ids"
	"github.com/keebstack/switchbook/internal/images"
	"github.com/keebstack/switchbook/internal/manufacturers"
	"github.com/keebstack/switchbook/internal/master"
	"github.com/keebstack/switchbook/internal/notify"
	"github.com/keebstack/switchbook/internal/switches"
	"github.com/keebstack/switchbook/internal/switchspec"
	"github.com/keebstack/switchbook/internal/users"
	"github.com/keebstack/switchbook/internal/wishlist"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	testSigningSecret = "router-test-secret"
	testIssuer        = "switchbook-auth"
	testCookieName    = "sb_session"
)

type testEnv struct {
	handler  http.Handler
	issuer   *auth.SessionIssuer
	db       *gorm.DB
	switches *switches.Service
	master   *master.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "switchbook.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	idProvider := ids.NewUUIDProvider()
	logger := zap.NewNop()

	usersService, err := users.NewService(users.ServiceConfig{Database: db})
	if err != nil {
		t.Fatalf("failed to build users service: %v", err)
	}

	manufacturerService, err := manufacturers.NewService(manufacturers.ServiceConfig{
		Database: db, IDProvider: idProvider, Logger: logger,
	})
	if err != nil {
		t.Fatalf("failed to build manufacturers service: %v", err)
	}

	dispatcher := notify.NewDispatcher()
	notifyService, err := notify.NewService(notify.ServiceConfig{
		Database:     db,
		IDProvider:   idProvider,
		AdminUserIDs: usersService.AdminUserIDs,
		Dispatcher:   dispatcher,
		Logger:       logger,
	})
	if err != nil {
		t.Fatalf("failed to build notify service: %v", err)
	}

	switchesService, err := switches.NewService(switches.ServiceConfig{
		Database: db, IDProvider: idProvider, Manufacturers: manufacturerService, Logger: logger,
	})
	if err != nil {
		t.Fatalf("failed to build switches service: %v", err)
	}

	masterService, err := master.NewService(master.ServiceConfig{
		Database:      db,
		IDProvider:    idProvider,
		Manufacturers: manufacturerService,
		Notifier:      notifyService,
		LinkedOwners:  switchesService.LinkedOwnerIDs,
		Logger:        logger,
	})
	if err != nil {
		t.Fatalf("failed to build master service: %v", err)
	}

	store, err := images.NewDiskStore(t.TempDir(), "/uploads")
	if err != nil {
		t.Fatalf("failed to build image store: %v", err)
	}
	imagesService, err := images.NewService(images.ServiceConfig{
		Database: db, IDProvider: idProvider, Store: store, Logger: logger,
	})
	if err != nil {
		t.Fatalf("failed to build images service: %v", err)
	}

	catalogService, err := catalog.NewService(catalog.ServiceConfig{
		Database: db, IDProvider: idProvider, Logger: logger,
	})
	if err != nil {
		t.Fatalf("failed to build catalog service: %v", err)
	}

	wishlistService, err := wishlist.NewService(wishlist.ServiceConfig{
		Database: db, IDProvider: idProvider, Logger: logger,
	})
	if err != nil {
		t.Fatalf("failed to build wishlist service: %v", err)
	}

	validator, err := auth.NewSessionValidator(auth.SessionValidatorConfig{
		SigningSecret: []byte(testSigningSecret),
		Issuer:        testIssuer,
		CookieName:    testCookieName,
	})
	if err != nil {
		t.Fatalf("failed to build validator: %v", err)
	}
	issuer := auth.NewSessionIssuer(auth.SessionIssuerConfig{
		SigningSecret: []byte(testSigningSecret),
		Issuer:        testIssuer,
		TTL:           time.Hour,
	})

	handler, err := NewHTTPHandler(Dependencies{
		SessionValidator: validator,
		SessionIssuer:    issuer,
		UsersService:     usersService,
		SwitchesService:  switchesService,
		MasterService:    masterService,
		ImagesService:    imagesService,
		Manufacturers:    manufacturerService,
		CatalogService:   catalogService,
		WishlistService:  wishlistService,
		NotifyService:    notifyService,
		Dispatcher:       dispatcher,
		DevLoginEnabled:  true,
		Logger:           logger,
	})
	if err != nil {
		t.Fatalf("failed to build handler: %v", err)
	}

	return &testEnv{
		handler:  handler,
		issuer:   issuer,
		db:       db,
		switches: switchesService,
		master:   masterService,
	}
}

func (e *testEnv) sessionCookie(t *testing.T, userID string, roles ...string) *http.Cookie {
	t.Helper()
	token, _, err := e.issuer.Issue(userID, userID+"@example.com", "Test User", roles)
	if err != nil {
		t.Fatalf("failed to mint session: %v", err)
	}
	return &http.Cookie{Name: testCookieName, Value: token}
}

func (e *testEnv) request(t *testing.T, method, path string, body interface{}, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	request := httptest.NewRequest(method, path, reader)
	request.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		request.AddCookie(cookie)
	}
	recorder := httptest.NewRecorder()
	e.handler.ServeHTTP(recorder, request)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to decode response %q: %v", recorder.Body.String(), err)
	}
}

func sampleSubmitFields(name, manufacturer string) switchspec.Fields {
	return switchspec.Fields{
		Name:           name,
		Manufacturer:   manufacturer,
		Type:           switchspec.SwitchTypeLinear,
		Technology:     switchspec.TechnologyMechanical,
		ActuationForce: 45,
		BottomOutForce: 60,
		PreTravel:      2.0,
		TotalTravel:    4.0,
	}
}

func (e *testEnv) seedApprovedMaster(t *testing.T, name, manufacturer string) master.MasterSwitch {
	t.Helper()
	record, err := e.master.Submit(context.Background(), master.SubmitRequest{
		SubmitterID:           "seed-user",
		Fields:                sampleSubmitFields(name, manufacturer),
		ConfirmedNotDuplicate: true,
	})
	if err != nil {
		t.Fatalf("failed to submit master: %v", err)
	}
	approved, err := e.master.Approve(context.Background(), record.ID, "admin-seed")
	if err != nil {
		t.Fatalf("failed to approve master: %v", err)
	}
	return approved
}
