package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/mmynk/fintrack/internal/adapter"
	"github.com/mmynk/fintrack/internal/adapter/adaptertest"
	"github.com/mmynk/fintrack/internal/models"
	"github.com/mmynk/fintrack/internal/view"
)

func setupTestServer(t *testing.T) (*httptest.Server, *adaptertest.Fake, *Registry) {
	t.Helper()
	fake := adaptertest.New()
	clients := NewRegistry(func() adapter.Adapter { return fake }, time.Hour, time.Minute, nil, nil)
	t.Cleanup(clients.Close)

	server := httptest.NewServer(NewServer(clients, time.Hour, nil, nil).Router())
	t.Cleanup(server.Close)
	return server, fake, clients
}

func newBrowser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return &http.Client{Jar: jar}
}

func postForm(t *testing.T, c *http.Client, target string, form url.Values) (*http.Response, string) {
	t.Helper()
	resp, err := c.PostForm(target, form)
	if err != nil {
		t.Fatalf("POST %s: %v", target, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

func get(t *testing.T, c *http.Client, target string) (*http.Response, string) {
	t.Helper()
	resp, err := c.Get(target)
	if err != nil {
		t.Fatalf("GET %s: %v", target, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

func TestSignInRedirect(t *testing.T) {
	server, _, _ := setupTestServer(t)
	c := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}

	resp, _ := get(t, c, server.URL+"/signin")
	if resp.StatusCode != http.StatusMovedPermanently || resp.Header.Get("Location") != "/" {
		t.Errorf("expected 301 to /, got %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}
}

func TestDashboardRequiresSignIn(t *testing.T) {
	server, _, _ := setupTestServer(t)
	c := newBrowser(t)

	resp, body := get(t, c, server.URL+"/dashboard")
	if resp.Request.URL.Path != "/" || !strings.Contains(body, "Sign in") {
		t.Errorf("expected the sign-in page, landed on %s", resp.Request.URL.Path)
	}

	resp, _ = get(t, c, server.URL+"/api/dashboard")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 from the API, got %d", resp.StatusCode)
	}
}

func TestRegisterAddAndSignOut(t *testing.T) {
	server, fake, _ := setupTestServer(t)
	c := newBrowser(t)

	resp, body := postForm(t, c, server.URL+"/auth/register", url.Values{
		"name": {"Ada"}, "email": {"ada@x.io"}, "password": {"longenough"},
	})
	if resp.Request.URL.Path != "/dashboard" {
		t.Fatalf("expected the dashboard after registering, landed on %s", resp.Request.URL)
	}
	if !strings.Contains(body, "User Registered Successfully") || !strings.Contains(body, "Ada") {
		t.Error("dashboard should greet the new user")
	}

	resp, body = postForm(t, c, server.URL+"/dashboard/transactions", url.Values{
		"amount": {"12.50"}, "type": {"expense"}, "category": {"Food"}, "date": {"2024-06-01"}, "description": {"lunch"},
	})
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "-$12.50") {
		t.Errorf("expected -$12.50 on the dashboard, got %d", resp.StatusCode)
	}
	if !strings.Contains(body, "Transaction added successfully!") {
		t.Error("expected the add confirmation")
	}

	_, body = get(t, c, server.URL+"/api/dashboard?view=transactions&kind=income")
	var payload struct {
		View struct {
			Nav  view.Nav `json:"nav"`
			Body struct {
				Rows  []view.Row `json:"rows"`
				Total int        `json:"total"`
			} `json:"body"`
		} `json:"view"`
	}
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		t.Fatalf("bad JSON: %v\n%s", err, body)
	}
	if payload.View.Nav != view.NavTransactions || len(payload.View.Body.Rows) != 0 || payload.View.Body.Total != 1 {
		t.Errorf("unexpected filtered view: %+v", payload.View)
	}

	resp, body = postForm(t, c, server.URL+"/auth/signout", nil)
	if resp.Request.URL.Path != "/" || !strings.Contains(body, "Logged out") {
		t.Errorf("expected sign-in page with logout notice, landed on %s", resp.Request.URL.Path)
	}
	if fake.Calls("SignOut") != 1 {
		t.Errorf("expected one adapter sign out, got %d", fake.Calls("SignOut"))
	}
}

func TestSignInErrorsShown(t *testing.T) {
	server, fake, _ := setupTestServer(t)
	fake.AddAccount("ada@x.io", "longenough", true)
	c := newBrowser(t)

	resp, body := postForm(t, c, server.URL+"/auth/signin", url.Values{"email": {"ada@x.io"}, "password": {"wrongpassword"}})
	if resp.Request.URL.Path != "/" || !strings.Contains(body, "Incorrect password. Please try again.") {
		t.Errorf("expected the mapped error on the sign-in page, landed on %s", resp.Request.URL.Path)
	}

	resp, _ = postForm(t, c, server.URL+"/auth/signin", url.Values{"email": {"ada@x.io"}, "password": {"longenough"}})
	if resp.Request.URL.Path != "/dashboard" {
		t.Errorf("expected the dashboard, landed on %s", resp.Request.URL.Path)
	}
}

func TestDeleteTransaction(t *testing.T) {
	server, fake, _ := setupTestServer(t)
	p := fake.AddAccount("ada@x.io", "longenough", true)
	fake.PutTransaction(models.Transaction{ID: "t1", UserID: p.ID, Date: "2024-06-02", Type: models.KindIncome, Amount: 100, Category: "Salary"})
	fake.PutTransaction(models.Transaction{ID: "t2", UserID: p.ID, Date: "2024-06-01", Type: models.KindExpense, Amount: 20, Category: "Rent"})
	c := newBrowser(t)
	postForm(t, c, server.URL+"/auth/signin", url.Values{"email": {"ada@x.io"}, "password": {"longenough"}})

	_, body := postForm(t, c, server.URL+"/dashboard/transactions/t1/delete", nil)
	if strings.Contains(body, "+$100.00") || !strings.Contains(body, "-$20.00") {
		t.Error("expected only t2 after deleting t1")
	}
}

func TestNavigate(t *testing.T) {
	server, fake, _ := setupTestServer(t)
	fake.AddAccount("ada@x.io", "longenough", true)
	c := newBrowser(t)
	postForm(t, c, server.URL+"/auth/signin", url.Values{"email": {"ada@x.io"}, "password": {"longenough"}})

	resp, body := postForm(t, c, server.URL+"/dashboard/nav/settings", nil)
	if resp.Request.URL.Query().Get("view") != "settings" || !strings.Contains(body, "Member since") {
		t.Errorf("expected the settings page, landed on %s", resp.Request.URL)
	}

	resp, _ = get(t, c, server.URL+"/dashboard?view=reports")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for an unknown view, got %d", resp.StatusCode)
	}

	resp, _ = postForm(t, c, server.URL+"/dashboard/nav/signout", nil)
	if resp.Request.URL.Path != "/" {
		t.Errorf("expected the sign-in page after signing out, landed on %s", resp.Request.URL.Path)
	}
}

func TestRegistrySweep(t *testing.T) {
	fake := adaptertest.New()
	clients := NewRegistry(func() adapter.Adapter { return fake }, time.Minute, time.Minute, nil, nil)
	defer clients.Close()

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	clients.now = func() time.Time { return now }

	idle := clients.Create()
	now = now.Add(45 * time.Second)
	active := clients.Create()
	now = now.Add(30 * time.Second)

	if n := clients.Sweep(); n != 1 {
		t.Errorf("expected 1 eviction, got %d", n)
	}
	if _, ok := clients.Lookup(idle.ID); ok {
		t.Error("idle client should be evicted")
	}
	if _, ok := clients.Lookup(active.ID); !ok {
		t.Error("active client should survive")
	}
}
