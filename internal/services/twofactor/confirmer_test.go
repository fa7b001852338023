package twofactor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tradeengine/internal/tradeengine"
)

const testIdentitySecret = "aGVsbG93b3JsZGhlbGxvd29ybGQ=" // base64("helloworldhelloworld")

func TestGenerateSteamGuardCode_ProducesFiveAllowedCharacters(t *testing.T) {
	const allowed = "23456789BCDFGHJKMNPQRTVWXY"
	code, err := GenerateSteamGuardCode(testIdentitySecret, time.Unix(1700000000, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(code) != 5 {
		t.Fatalf("expected a 5-character code, got %q", code)
	}
	for _, r := range code {
		if !strings.ContainsRune(allowed, r) {
			t.Errorf("code %q contains disallowed character %q", code, r)
		}
	}
}

func TestGenerateSteamGuardCode_IsStableWithinATimeStep(t *testing.T) {
	base := time.Unix(1700000000, 0)
	a, err := GenerateSteamGuardCode(testIdentitySecret, base)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := GenerateSteamGuardCode(testIdentitySecret, base.Add(5*time.Second))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a != b {
		t.Errorf("expected the same 30-second time step to produce the same code, got %q and %q", a, b)
	}
}

func TestConfirmationHash_IsDeterministicForSameInputs(t *testing.T) {
	c := &Confirmer{IdentitySecret: testIdentitySecret}
	a, err := c.confirmationHash(1700000000, "conf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := c.confirmationHash(1700000000, "conf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a != b {
		t.Errorf("expected deterministic hash, got %q and %q", a, b)
	}

	differentTag, err := c.confirmationHash(1700000000, "allow")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if differentTag == a {
		t.Errorf("expected a different tag to change the hash")
	}
}

func TestHandleTwoFactorAuthenticationConfirmations_NoIDsIsImmediateSuccess(t *testing.T) {
	c := NewConfirmer(1, testIdentitySecret, "device")
	ok, err := c.HandleTwoFactorAuthenticationConfirmations(context.Background(), true, tradeengine.ConfirmationKindTrade, nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Errorf("expected success for an empty id list")
	}
}

func TestHandleTwoFactorAuthenticationConfirmations_MatchesAndAnswersByCreatorID(t *testing.T) {
	var answeredOps []string
	mux := http.NewServeMux()
	mux.HandleFunc("/mobileconf/getlist", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"conf": []map[string]interface{}{
				{"id": "555", "nonce": "n1", "creator_id": "123", "type_name": "Trade"},
				{"id": "556", "nonce": "n2", "creator_id": "999", "type_name": "Trade"},
			},
		})
	})
	mux.HandleFunc("/mobileconf/ajaxop", func(w http.ResponseWriter, r *http.Request) {
		answeredOps = append(answeredOps, r.URL.Query().Get("cid"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"success": true})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c := NewConfirmer(1, testIdentitySecret, "device")
	c.communityBaseURL = srv.URL

	ok, err := c.HandleTwoFactorAuthenticationConfirmations(context.Background(), true, tradeengine.ConfirmationKindTrade, []uint64{123}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Errorf("expected the single matching confirmation to be answered successfully")
	}
	if len(answeredOps) != 1 || answeredOps[0] != "555" {
		t.Errorf("expected confirmation 555 to be answered, got %v", answeredOps)
	}
}
