package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"finanzas/internal/core"
	"finanzas/internal/services"
)

func TestParsePeriodQuery(t *testing.T) {
	caracas := time.FixedZone("VET", -4*60*60)

	tests := []struct {
		name     string
		query    string
		selector core.Selector
		wallet   string
		start    string // RFC 3339, "" for nil
		end      string
		wantErr  bool
	}{
		{name: "default", query: "", selector: core.ThisMonth},
		{name: "alias", query: "period=7days&wallet=w1", selector: core.Last7Days, wallet: "w1"},
		{name: "last month ignores bounds", query: "period=last_month&start=garbage", selector: core.LastMonth},
		{name: "custom dates", query: "period=custom&start=2024-03-01&end=2024-03-31", selector: core.Custom,
			start: "2024-03-01T00:00:00-04:00", end: "2024-03-31T00:00:00-04:00"},
		{name: "custom open end", query: "period=custom&start=2024-03-01", selector: core.Custom,
			start: "2024-03-01T00:00:00-04:00"},
		{name: "custom bad start", query: "period=custom&start=yesterday", wantErr: true},
		{name: "custom reversed", query: "period=custom&start=2024-03-10&end=2024-03-01", wantErr: true},
		{name: "unknown selector passes through", query: "period=forever", selector: core.Selector("forever")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, _ := url.ParseQuery(tt.query)
			got, err := ParsePeriodQuery(values, caracas)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Selector != tt.selector || got.WalletID != tt.wallet {
				t.Fatalf("got %+v", got)
			}
			checkTime(t, "start", got.Start, tt.start)
			checkTime(t, "end", got.End, tt.end)
		})
	}
}

func checkTime(t *testing.T, name string, got *time.Time, want string) {
	t.Helper()
	if want == "" {
		if got != nil {
			t.Fatalf("%s = %v, want nil", name, got)
		}
		return
	}
	w, _ := time.Parse(time.RFC3339, want)
	if got == nil || !got.Equal(w) {
		t.Fatalf("%s = %v, want %v", name, got, w)
	}
}

func TestParseMonth(t *testing.T) {
	def := core.MonthKey{Year: 2024, Month: 3}
	tests := []struct {
		query   string
		want    core.MonthKey
		wantErr bool
	}{
		{"", def, false},
		{"month=2023-12", core.MonthKey{Year: 2023, Month: 12}, false},
		{"month=2023-13", core.MonthKey{}, true},
		{"month=march", core.MonthKey{}, true},
	}
	for _, tt := range tests {
		values, _ := url.ParseQuery(tt.query)
		got, err := ParseMonth(values, def)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseMonth(%q) = %v, %v", tt.query, got, err)
		}
	}
}

func TestParseLimit(t *testing.T) {
	tests := map[string]struct {
		want    int
		wantErr bool
	}{
		"":          {0, false},
		"limit=5":   {5, false},
		"limit=-1":  {0, true},
		"limit=ten": {0, true},
	}
	for query, tt := range tests {
		values, _ := url.ParseQuery(query)
		got, err := ParseLimit(values)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseLimit(%q) = %d, %v", query, got, err)
		}
	}
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"valid", `{"name":"Cash"}`, ""},
		{"empty", ``, "empty request body"},
		{"unknown field", `{"name":"Cash","owner":"me"}`, "malformed JSON"},
		{"trailing object", `{"name":"a"}{"name":"b"}`, "single JSON object"},
		{"too large", `{"name":"` + strings.Repeat("x", maxBodyBytes) + `"}`, "exceeds"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/api/wallets", strings.NewReader(tt.body))
			var in services.WalletInput
			err := DecodeJSON(httptest.NewRecorder(), r, &in)
			if tt.wantErr == "" {
				if err != nil || in.Name != "Cash" {
					t.Fatalf("err=%v in=%+v", err, in)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := sanitizeInput("  lunch\x00\x07 out\t "); got != "lunch out" {
		t.Fatalf("got %q", got)
	}
}
