package server

import (
	"net/http"
	"testing"

	"github.com/keebstack/switchbook/internal/switches"
)

func switchBody(name string) map[string]interface{} {
	return map[string]interface{}{
		"name":           name,
		"manufacturer":   "Gateron",
		"type":           "LINEAR",
		"technology":     "MECHANICAL",
		"actuationForce": 45,
		"bottomOutForce": 60,
		"preTravel":      2.0,
		"totalTravel":    4.0,
		"personalNotes":  "from a tester pack",
	}
}

func TestSwitchCreateListRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.sessionCookie(t, "user-1")

	created := env.request(t, http.MethodPost, "/api/switches", switchBody("Oil King"), cookie)
	if created.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", created.Code, created.Body.String())
	}
	var createdPayload switchPayload
	decodeBody(t, created, &createdPayload)
	if createdPayload.Name != "Oil King" || createdPayload.PersonalNotes != "from a tester pack" {
		t.Fatalf("unexpected payload: %+v", createdPayload)
	}

	listed := env.request(t, http.MethodGet, "/api/switches", nil, cookie)
	if listed.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", listed.Code)
	}
	var listPayload struct {
		Switches []switchPayload `json:"switches"`
	}
	decodeBody(t, listed, &listPayload)
	if len(listPayload.Switches) != 1 {
		t.Fatalf("expected one switch, got %d", len(listPayload.Switches))
	}

	// Collections are private.
	other := env.sessionCookie(t, "user-2")
	foreign := env.request(t, http.MethodGet, "/api/switches/"+createdPayload.ID, nil, other)
	if foreign.Code != http.StatusNotFound {
		t.Fatalf("foreign switch must look absent, got %d", foreign.Code)
	}
}

func TestSwitchCreateRejectsInvalidFields(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.sessionCookie(t, "user-1")

	body := switchBody("")
	recorder := env.request(t, http.MethodPost, "/api/switches", body, cookie)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", recorder.Code, recorder.Body.String())
	}
}

func TestLinkAndSyncOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.sessionCookie(t, "user-1")
	masterRecord := env.seedApprovedMaster(t, "Oil King", "Gateron")

	created := env.request(t, http.MethodPost, "/api/switches", switchBody("Oil King"), cookie)
	var createdPayload switchPayload
	decodeBody(t, created, &createdPayload)

	linked := env.request(t, http.MethodPost, "/api/switches/"+createdPayload.ID+"/link",
		map[string]string{"masterSwitchId": masterRecord.ID}, cookie)
	if linked.Code != http.StatusOK {
		t.Fatalf("link failed: %d %s", linked.Code, linked.Body.String())
	}

	synced := env.request(t, http.MethodPost, "/api/switches/sync", nil, cookie)
	if synced.Code != http.StatusOK {
		t.Fatalf("bulk sync failed: %d %s", synced.Code, synced.Body.String())
	}
	var syncPayload switches.BulkSyncResult
	decodeBody(t, synced, &syncPayload)
	if syncPayload.Updated != 0 || syncPayload.SkippedUpToDate != 1 {
		t.Fatalf("freshly linked switch is already current: %+v", syncPayload)
	}
}

func TestBulkImportOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.sessionCookie(t, "user-1")

	items := []map[string]interface{}{
		switchBody("Switch A"),
		switchBody(""), // invalid
		switchBody("Switch C"),
	}
	recorder := env.request(t, http.MethodPost, "/api/switches/bulk",
		map[string]interface{}{"items": items}, cookie)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
	var result switches.BulkResult
	decodeBody(t, recorder, &result)
	if result.Succeeded != 2 || result.Failed != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(result.Errors) != 1 || result.Errors[0].Index != 1 {
		t.Fatalf("unexpected error detail: %+v", result.Errors)
	}
}
