package exchange

import (
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/ivanoskov/kopilka_bot/internal/security"
)

var testCreds = Credentials{APIKey: "XXXXXXXXXX", APISecret: "YYYYYYYYYY"}

func TestSignKnownVectors(t *testing.T) {
	query := url.Values{}
	query.Set("coin", "BTC")
	query.Set("accountType", "UNIFIED")

	got, err := Sign(testCreds, http.MethodGet, "1658384314791", "5000", query, nil)
	if err != nil {
		t.Fatal(err)
	}
	if want := "84cf4cd834f0ff7c49fea99be65e6c1b26beb6479052fb48bd7443d05d61f4bd"; got != want {
		t.Fatalf("GET signature = %s, want %s", got, want)
	}

	body := []byte("{\n  \"category\": \"linear\",\n  \"symbol\": \"BTCUSDT\"\n}")
	got, err = Sign(testCreds, http.MethodPost, "1658384314791", "5000", nil, body)
	if err != nil {
		t.Fatal(err)
	}
	if want := "f97fc13a398c15f51a24aea3a5031955b737c503ba670214a5208fa3245ee303"; got != want {
		t.Fatalf("POST signature = %s, want %s", got, want)
	}
}

func TestCanonicalString(t *testing.T) {
	query := url.Values{"b": {"2"}, "a": {"1 2"}}

	get, err := CanonicalString(http.MethodGet, "1", "key", "5000", query, []byte(`{"x":1}`))
	if err != nil {
		t.Fatal(err)
	}
	if want := "1key5000a=1+2&b=2"; get != want {
		t.Fatalf("GET canonical = %q, want %q", get, want)
	}

	post, err := CanonicalString(http.MethodPost, "1", "key", "5000", query, []byte(`{ "x" : 1 }`))
	if err != nil {
		t.Fatal(err)
	}
	if want := `1key5000{"x":1}`; post != want {
		t.Fatalf("POST canonical = %q, want %q", post, want)
	}

	empty, err := CanonicalString(http.MethodGet, "1", "key", "", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if empty != "1key" {
		t.Fatalf("canonical without params = %q", empty)
	}

	if _, err := CanonicalString(http.MethodPost, "1", "key", "", nil, []byte("{broken")); err == nil {
		t.Fatal("invalid JSON body must be rejected")
	}
}

func TestSignIsDeterministicAndSensitive(t *testing.T) {
	query := url.Values{"accountType": {"UNIFIED"}}
	base, err := Sign(testCreds, http.MethodGet, "1000", "5000", query, nil)
	if err != nil {
		t.Fatal(err)
	}
	again, _ := Sign(testCreds, http.MethodGet, "1000", "5000", query, nil)
	if base != again {
		t.Fatal("signature must be reproducible")
	}

	variants := map[string]func() (string, error){
		"timestamp": func() (string, error) {
			return Sign(testCreds, http.MethodGet, "1001", "5000", query, nil)
		},
		"api key": func() (string, error) {
			return Sign(Credentials{APIKey: "XXXXXXXXXZ", APISecret: testCreds.APISecret}, http.MethodGet, "1000", "5000", query, nil)
		},
		"secret": func() (string, error) {
			return Sign(Credentials{APIKey: testCreds.APIKey, APISecret: "YYYYYYYYYZ"}, http.MethodGet, "1000", "5000", query, nil)
		},
		"recv window": func() (string, error) {
			return Sign(testCreds, http.MethodGet, "1000", "5001", query, nil)
		},
		"query": func() (string, error) {
			return Sign(testCreds, http.MethodGet, "1000", "5000", url.Values{"accountType": {"CONTRACT"}}, nil)
		},
	}
	for name, sign := range variants {
		got, err := sign()
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if got == base {
			t.Errorf("changing %s did not change the signature", name)
		}
	}
}

func TestSignRefusesInvalidCredentials(t *testing.T) {
	for _, creds := range []Credentials{
		{},
		{APIKey: "key"},
		{APISecret: "secret"},
		{APIKey: "key", APISecret: security.DecryptionFailed},
		{APIKey: security.DecryptionFailed, APISecret: "secret"},
	} {
		if _, err := Sign(creds, http.MethodGet, "1", "5000", nil, nil); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("Sign(%+v) error = %v, want ErrInvalidCredentials", creds, err)
		}
	}
}

func TestSignerHeaders(t *testing.T) {
	s := NewSigner("")
	s.Now = func() time.Time { return time.UnixMilli(1658384314791) }

	query := url.Values{"accountType": {"UNIFIED"}, "coin": {"BTC"}}
	h, err := s.Headers(testCreds, http.MethodGet, query, nil)
	if err != nil {
		t.Fatal(err)
	}

	want := map[string]string{
		"X-BAPI-API-KEY":     "XXXXXXXXXX",
		"X-BAPI-TIMESTAMP":   "1658384314791",
		"X-BAPI-RECV-WINDOW": DefaultRecvWindow,
		"X-BAPI-SIGN-TYPE":   "2",
		"Content-Type":       "application/json",
	}
	for k, v := range want {
		if got := h.Get(k); got != v {
			t.Errorf("header %s = %q, want %q", k, got, v)
		}
	}

	sig, _ := Sign(testCreds, http.MethodGet, "1658384314791", DefaultRecvWindow, query, nil)
	if h.Get("X-BAPI-SIGN") != sig {
		t.Errorf("X-BAPI-SIGN = %q, want %q", h.Get("X-BAPI-SIGN"), sig)
	}
}
