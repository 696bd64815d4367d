package apierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWrite(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
		want string
	}{
		{"api error", NotFound("order not found"), http.StatusNotFound, "NOT_FOUND"},
		{"wrapped", fmt.Errorf("get: %w", Conflict("busy")), http.StatusConflict, "CONFLICT"},
		{"plain", errors.New("db password wrong"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Write(rec, tc.err)
			if rec.Code != tc.code {
				t.Fatalf("status = %d, want %d", rec.Code, tc.code)
			}
			var body struct {
				Success bool `json:"success"`
				Error   struct {
					Code    string `json:"code"`
					Message string `json:"message"`
				} `json:"error"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			if body.Success || body.Error.Code != tc.want {
				t.Fatalf("body = %s", rec.Body.String())
			}
			if body.Error.Message == "db password wrong" {
				t.Fatalf("internal error text leaked")
			}
		})
	}
}

func TestValidationDetails(t *testing.T) {
	e := ValidationError("invalid message", FieldError{Field: "user_id", Message: "required"})
	var body struct {
		Error struct {
			Details []FieldError `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(e.ToJSON(), &body); err != nil {
		t.Fatal(err)
	}
	if d := body.Error.Details; len(d) != 1 || d[0].Field != "user_id" {
		t.Fatalf("details missing: %s", e.ToJSON())
	}
}
