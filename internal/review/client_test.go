package review

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vietddude/governor/internal/core/domain"
	"github.com/vietddude/governor/internal/infra/llm"
	"github.com/vietddude/governor/internal/infra/storage/memory"
)

type stubResult struct {
	reply *llm.Reply
	err   error
}

// stubService scripts per-credential responses and records call order.
type stubService struct {
	calls   []string
	results map[string][]stubResult
}

func (s *stubService) Generate(
	ctx context.Context,
	cred domain.Credential,
	tier, system, content string,
) (*llm.Reply, error) {
	s.calls = append(s.calls, cred.Name)
	queue := s.results[cred.Name]
	if len(queue) == 0 {
		return nil, errors.New("stub: unexpected call for " + cred.Name)
	}
	r := queue[0]
	s.results[cred.Name] = queue[1:]
	return r.reply, r.err
}

func ok(tier string) stubResult {
	return stubResult{reply: &llm.Reply{Text: "APPROVED: fine.", ModelUsed: tier}}
}

func fastConfig() Config {
	return Config{
		Tier:                     "gemini-2.5-pro",
		MaxAttemptsPerCredential: 3,
		InitialDelay:             5 * time.Millisecond,
		MaxDelay:                 20 * time.Millisecond,
		QuotaCooldown:            time.Hour,
	}
}

func seedStore(t *testing.T, creds ...domain.Credential) *memory.Store {
	t.Helper()
	store := memory.NewStore()
	for _, c := range creds {
		if err := store.Save(context.Background(), c); err != nil {
			t.Fatalf("seed store: %v", err)
		}
	}
	return store
}

func TestNewClient_DisallowedTier(t *testing.T) {
	cfg := fastConfig()
	cfg.Tier = "gemini-2.5-flash"
	_, err := NewClient(cfg, memory.NewStore(), &stubService{})
	if !errors.Is(err, ErrDisallowedTier) {
		t.Fatalf("Expected ErrDisallowedTier, got %v", err)
	}
}

func TestInvoke_SkipsExhaustedCredential(t *testing.T) {
	exhausted := time.Now().Add(time.Hour)
	store := seedStore(t,
		domain.Credential{Name: "a", Secret: "sa", Enabled: true, ExhaustedUntil: &exhausted},
		domain.Credential{Name: "b", Secret: "sb", Enabled: true},
		domain.Credential{Name: "c", Secret: "sc", Enabled: true},
	)
	svc := &stubService{results: map[string][]stubResult{
		"b": {ok("gemini-2.5-pro")},
	}}

	client, err := NewClient(fastConfig(), store, svc)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	outcome, err := client.Invoke(context.Background(), "sys", "doc")
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if !outcome.Success {
		t.Fatalf("Expected success, got %+v", outcome)
	}
	if outcome.CredentialUsed != "b" {
		t.Errorf("CredentialUsed = %q, want b", outcome.CredentialUsed)
	}
	if !outcome.Rotated {
		t.Error("Expected rotated=true when the exhausted primary is skipped")
	}
	if outcome.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", outcome.Attempts)
	}
	// The exhausted credential must see zero network calls.
	for _, name := range svc.calls {
		if name == "a" {
			t.Error("Exhausted credential was called")
		}
	}
}

func TestInvoke_NeverCallsDisabled(t *testing.T) {
	store := seedStore(t,
		domain.Credential{Name: "a", Secret: "sa", Enabled: false},
		domain.Credential{Name: "b", Secret: "sb", Enabled: true},
	)
	svc := &stubService{results: map[string][]stubResult{
		"b": {ok("gemini-2.5-pro")},
	}}

	client, _ := NewClient(fastConfig(), store, svc)
	outcome, err := client.Invoke(context.Background(), "", "doc")
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if !outcome.Success || outcome.CredentialUsed != "b" {
		t.Fatalf("Unexpected outcome: %+v", outcome)
	}
	// Disabled credentials never count as the primary, so this is not a rotation.
	if outcome.Rotated {
		t.Error("Rotated should be false when the only enabled credential is used")
	}
	for _, name := range svc.calls {
		if name == "a" {
			t.Error("Disabled credential was called")
		}
	}
}

func TestInvoke_CapacityBackoffThenSuccess(t *testing.T) {
	store := seedStore(t, domain.Credential{Name: "solo", Secret: "s", Enabled: true})
	overloaded := &llm.APIError{StatusCode: 503, Status: "UNAVAILABLE", Message: "model overloaded"}
	svc := &stubService{results: map[string][]stubResult{
		"solo": {{err: overloaded}, {err: overloaded}, ok("gemini-2.5-pro")},
	}}

	client, _ := NewClient(fastConfig(), store, svc)
	start := time.Now()
	outcome, err := client.Invoke(context.Background(), "", "doc")
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if !outcome.Success {
		t.Fatalf("Expected success, got %+v", outcome)
	}
	if outcome.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", outcome.Attempts)
	}
	if outcome.Rotated {
		t.Error("Rotated should be false on a single credential")
	}
	// Two backoff sleeps: 5ms then 10ms.
	if elapsed < 15*time.Millisecond {
		t.Errorf("Elapsed %v < sum of backoff delays", elapsed)
	}
}

func TestInvoke_QuotaPersistsExhaustion(t *testing.T) {
	store := seedStore(t,
		domain.Credential{Name: "a", Secret: "sa", Enabled: true},
		domain.Credential{Name: "b", Secret: "sb", Enabled: true},
	)
	quotaErr := &llm.APIError{StatusCode: 429, Status: "RESOURCE_EXHAUSTED", Message: "quota exceeded"}
	svc := &stubService{results: map[string][]stubResult{
		"a": {{err: quotaErr}},
		"b": {ok("gemini-2.5-pro")},
	}}

	client, _ := NewClient(fastConfig(), store, svc)
	outcome, err := client.Invoke(context.Background(), "", "doc")
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if !outcome.Success || outcome.CredentialUsed != "b" || !outcome.Rotated {
		t.Fatalf("Unexpected outcome: %+v", outcome)
	}
	if outcome.Attempts != 2 {
		t.Errorf("Attempts = %d, want 2 (no backoff retry on quota)", outcome.Attempts)
	}

	// The penalty must be durable in the store.
	creds, _ := store.List(context.Background())
	for _, c := range creds {
		if c.Name == "a" {
			if c.ExhaustedUntil == nil || !c.ExhaustedUntil.After(time.Now()) {
				t.Errorf("Expected a durable exhaustion on %q, got %+v", c.Name, c.ExhaustedUntil)
			}
		}
	}
}

func TestInvoke_AuthDisablesPermanently(t *testing.T) {
	store := seedStore(t,
		domain.Credential{Name: "a", Secret: "sa", Enabled: true},
		domain.Credential{Name: "b", Secret: "sb", Enabled: true},
	)
	authErr := &llm.APIError{StatusCode: 403, Status: "PERMISSION_DENIED", Message: "key revoked"}
	svc := &stubService{results: map[string][]stubResult{
		"a": {{err: authErr}},
		"b": {ok("gemini-2.5-pro")},
	}}

	client, _ := NewClient(fastConfig(), store, svc)
	outcome, err := client.Invoke(context.Background(), "", "doc")
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if !outcome.Success || !outcome.Rotated {
		t.Fatalf("Unexpected outcome: %+v", outcome)
	}

	creds, _ := store.List(context.Background())
	for _, c := range creds {
		if c.Name == "a" && c.Enabled {
			t.Error("Auth failure must disable the credential durably")
		}
	}
}

func TestInvoke_TierMismatchRotates(t *testing.T) {
	store := seedStore(t,
		domain.Credential{Name: "a", Secret: "sa", Enabled: true},
		domain.Credential{Name: "b", Secret: "sb", Enabled: true},
	)
	svc := &stubService{results: map[string][]stubResult{
		"a": {ok("gemini-2.5-flash")}, // silent downgrade
		"b": {ok("gemini-2.5-pro")},
	}}

	client, _ := NewClient(fastConfig(), store, svc)
	outcome, err := client.Invoke(context.Background(), "", "doc")
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if !outcome.Success || outcome.CredentialUsed != "b" || !outcome.Rotated {
		t.Fatalf("Unexpected outcome: %+v", outcome)
	}
	if outcome.ModelUsed != "gemini-2.5-pro" {
		t.Errorf("ModelUsed = %q", outcome.ModelUsed)
	}

	// The downgrade must not penalize the credential.
	creds, _ := store.List(context.Background())
	for _, c := range creds {
		if c.Name == "a" && (!c.Enabled || c.ExhaustedUntil != nil) {
			t.Errorf("Tier mismatch must not penalize credential: %+v", c)
		}
	}
}

func TestInvoke_TotalFailureEnumeratesSkips(t *testing.T) {
	store := seedStore(t,
		domain.Credential{Name: "a", Secret: "sa", Enabled: true},
		domain.Credential{Name: "b", Secret: "sb", Enabled: true},
	)
	quotaErr := &llm.APIError{StatusCode: 429, Status: "RESOURCE_EXHAUSTED", Message: "quota exceeded"}
	authErr := &llm.APIError{StatusCode: 401, Message: "unauthorized"}
	svc := &stubService{results: map[string][]stubResult{
		"a": {{err: quotaErr}},
		"b": {{err: authErr}},
	}}

	client, _ := NewClient(fastConfig(), store, svc)
	outcome, err := client.Invoke(context.Background(), "", "doc")
	if err != nil {
		t.Fatalf("Invoke must not raise for total exhaustion: %v", err)
	}
	if outcome.Success {
		t.Fatal("Expected failure outcome")
	}
	if len(outcome.Skips) != 2 {
		t.Fatalf("Expected 2 skip reasons, got %d: %+v", len(outcome.Skips), outcome.Skips)
	}
	if outcome.Skips[0].Category != domain.CategoryQuota || outcome.Skips[1].Category != domain.CategoryAuth {
		t.Errorf("Unexpected skip categories: %+v", outcome.Skips)
	}
	if outcome.CredentialUsed != "b" || !outcome.Rotated {
		t.Errorf("Expected last-tried credential b with rotated=true, got %+v", outcome)
	}
}

func TestInvoke_NoEligibleCredentials(t *testing.T) {
	exhausted := time.Now().Add(time.Hour)
	store := seedStore(t,
		domain.Credential{Name: "a", Secret: "sa", Enabled: false},
		domain.Credential{Name: "b", Secret: "sb", Enabled: true, ExhaustedUntil: &exhausted},
	)
	svc := &stubService{}

	client, _ := NewClient(fastConfig(), store, svc)
	outcome, err := client.Invoke(context.Background(), "", "doc")
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if outcome.Success || outcome.Attempts != 0 {
		t.Fatalf("Expected immediate failure with zero attempts, got %+v", outcome)
	}
	if len(svc.calls) != 0 {
		t.Errorf("Expected zero network calls, got %v", svc.calls)
	}
	if len(outcome.Skips) != 2 {
		t.Errorf("Expected both credentials enumerated, got %+v", outcome.Skips)
	}
}
