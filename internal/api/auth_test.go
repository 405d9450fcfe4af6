package api

import (
	"encoding/json"
	"net/http"
	"testing"
)

func TestHandleSignup(t *testing.T) {
	_, ts := newTestServer(t, &fakeScanService{})

	t.Run("creates account and returns token", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/auth/signup", "", map[string]string{
			"username":     "field.tech1",
			"password":     "hunter2hunter2",
			"display_name": "Field Tech",
		})
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("status = %d, want 201", resp.StatusCode)
		}

		var out struct {
			AccessToken string `json:"access_token"`
			TokenType   string `json:"token_type"`
			Operator    struct {
				ID       string `json:"id"`
				Username string `json:"username"`
			} `json:"operator"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if out.AccessToken == "" || out.TokenType != "Bearer" {
			t.Errorf("token = (%q, %q), want non-empty Bearer token", out.AccessToken, out.TokenType)
		}
		if out.Operator.Username != "field.tech1" {
			t.Errorf("operator username = %q, want field.tech1", out.Operator.Username)
		}
	})

	t.Run("duplicate username conflicts", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/auth/signup", "", map[string]string{
			"username": "field.tech1",
			"password": "another-password",
		})
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusConflict {
			t.Errorf("status = %d, want 409", resp.StatusCode)
		}
	})

	t.Run("rejects weak password", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/auth/signup", "", map[string]string{
			"username": "field.tech2",
			"password": "short",
		})
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})

	t.Run("rejects invalid username", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/auth/signup", "", map[string]string{
			"username": "no spaces allowed",
			"password": "hunter2hunter2",
		})
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})
}

func TestHandleLogin(t *testing.T) {
	_, ts := newTestServer(t, &fakeScanService{})
	signupOperator(t, ts, "field.tech1")

	t.Run("valid credentials", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/auth/login", "", map[string]string{
			"username": "field.tech1",
			"password": "hunter2hunter2",
		})
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}

		var out struct {
			AccessToken string `json:"access_token"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if out.AccessToken == "" {
			t.Error("login returned empty access token")
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/auth/login", "", map[string]string{
			"username": "field.tech1",
			"password": "wrong-password",
		})
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", resp.StatusCode)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/auth/login", "", map[string]string{
			"username": "nobody",
			"password": "hunter2hunter2",
		})
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", resp.StatusCode)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/auth/login", "", "not-an-object")
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})
}

func TestWSTicket(t *testing.T) {
	srv, ts := newTestServer(t, &fakeScanService{})
	token := signupOperator(t, ts, "field.tech1")

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/auth/ws-ticket", token, nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var out struct {
		Ticket string `json:"ticket"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if out.Ticket == "" {
		t.Fatal("empty ticket")
	}

	// Tickets are single-use.
	entry, ok := srv.validateTicket(out.Ticket)
	if !ok {
		t.Fatal("fresh ticket did not validate")
	}
	if entry.operatorID == "" {
		t.Error("ticket did not carry the operator identity")
	}
	if _, ok := srv.validateTicket(out.Ticket); ok {
		t.Error("ticket validated twice")
	}
}
