package test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/url"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type enrollmentTest struct {
	*TestEnv
}

type grantResponse struct {
	Granted      []string `json:"granted"`
	AlreadyOwned []string `json:"alreadyOwned"`
}

func TestGrantAccess(t *testing.T) {
	env, err := NewTestEnv(t, "grant_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}

	et := &enrollmentTest{env}
	pt := &paymentTest{env}

	// The endpoint is admin-only.
	if err := et.Login(et.UserEmail, et.UserPass); err != nil {
		t.Fatal(err)
	}
	et.grantStatus(t, et.UserEmail, "course", []string{"Web Development"}, http.StatusForbidden)

	if err := et.Login(et.AdminEmail, et.AdminPass); err != nil {
		t.Fatal(err)
	}

	// Granting two courses creates two rows; repeating the identical
	// call creates none and still succeeds.
	resp := et.grantOK(t, et.UserEmail, "course", []string{"Web Development", "UI/UX Design"})
	assertGrant(t, resp, grantResponse{
		Granted:      []string{"UI/UX Design", "Web Development"},
		AlreadyOwned: []string{},
	})
	pt.assertCount(t, "SELECT count(*) FROM enrollments", 2)

	resp = et.grantOK(t, et.UserEmail, "course", []string{"Web Development", "UI/UX Design"})
	assertGrant(t, resp, grantResponse{
		Granted:      []string{},
		AlreadyOwned: []string{"UI/UX Design", "Web Development"},
	})
	pt.assertCount(t, "SELECT count(*) FROM enrollments", 2)

	// A single-course regrant is a conflict, so the admin UI can tell
	// it apart from a fresh grant.
	et.grantStatus(t, et.UserEmail, "course", []string{"Web Development"}, http.StatusConflict)

	// The premium pass is one sentinel row no matter how often granted.
	et.grantOK(t, et.UserEmail, "premium_pass", nil)
	et.grantOK(t, et.UserEmail, "premium_pass", nil)
	pt.assertCount(t, "SELECT count(*) FROM enrollments WHERE course_name = 'Premium Pass'", 1)

	et.grantStatus(t, "nobody@test.com", "course", []string{"Web Development"}, http.StatusNotFound)
	et.grantStatus(t, et.UserEmail, "bundle", []string{"Web Development"}, http.StatusBadRequest)

	// The premium pass resolves access to courses never granted
	// directly.
	if err := et.Login(et.UserEmail, et.UserPass); err != nil {
		t.Fatal(err)
	}
	defer et.Logout()

	if !et.hasAccess(t, "Machine Learning") {
		t.Fatal("expected premium pass to grant access to any course")
	}
	if !et.hasAccess(t, "Web Development") {
		t.Fatal("expected direct enrollment to grant access")
	}
}

func assertGrant(t *testing.T, got grantResponse, want grantResponse) {
	t.Helper()

	sort.Strings(got.Granted)
	sort.Strings(got.AlreadyOwned)

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected grant response (-want +got):\n%s", diff)
	}
}

func (et *enrollmentTest) grantOK(t *testing.T, email string, accessType string, courses []string) grantResponse {
	t.Helper()

	w := et.grant(t, email, accessType, courses)
	defer w.Body.Close()

	if w.StatusCode != http.StatusOK {
		t.Fatalf("can't grant access: status code %s", w.Status)
	}

	var resp grantResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("cannot unmarshal grant response: %v", err)
	}

	return resp
}

func (et *enrollmentTest) grantStatus(t *testing.T, email string, accessType string, courses []string, expected int) {
	t.Helper()

	w := et.grant(t, email, accessType, courses)
	defer w.Body.Close()

	if w.StatusCode != expected {
		t.Fatalf("expected status %d, got %s", expected, w.Status)
	}
}

func (et *enrollmentTest) grant(t *testing.T, email string, accessType string, courses []string) *http.Response {
	t.Helper()

	body, err := json.Marshal(map[string]any{
		"email":      email,
		"accessType": accessType,
		"courses":    courses,
	})
	if err != nil {
		t.Fatal(err)
	}

	w, err := et.Client().Post(et.URL+"/admin/grant-access", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}

	return w
}

func (et *enrollmentTest) hasAccess(t *testing.T, course string) bool {
	t.Helper()

	w, err := et.Client().Get(et.URL + "/enrollments/" + url.PathEscape(course) + "/access")
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusOK {
		t.Fatalf("can't check access: status code %s", w.Status)
	}

	var resp struct {
		HasAccess bool `json:"hasAccess"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}

	return resp.HasAccess
}
