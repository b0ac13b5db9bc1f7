package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/topicrally/backend/internal/apperrors"
	"github.com/topicrally/backend/internal/models"
	"go.uber.org/zap"
)

type creationEnv struct {
	store     *fakeCampaignStore
	users     *fakeUserStore
	gateway   *fakeGateway
	verifier  *fakeVerifier
	deposits  *fakeDepositOracle
	scheduler *Scheduler
	processor *fakeProcessor
	listeners *ListenerService
	lstore    *fakeListenerStore
	service   *CampaignService
}

func newCreationEnv(t *testing.T) *creationEnv {
	t.Helper()
	log := zap.NewNop()

	env := &creationEnv{
		store:    newFakeCampaignStore(),
		users:    newFakeUserStore(),
		gateway:  newFakeGateway(),
		verifier: &fakeVerifier{},
		deposits: &fakeDepositOracle{funded: true},
		lstore:   newFakeListenerStore(),
	}

	env.processor = newFakeProcessor()
	env.scheduler = NewScheduler(env.store, env.processor, log)
	t.Cleanup(env.scheduler.Stop)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	env.listeners = NewListenerService(ctx, env.lstore, &fakeMessageStore{}, env.gateway, &fakePublisher{}, log)

	env.service = NewCampaignService(
		env.store, env.users, env.gateway, env.verifier, env.deposits,
		env.scheduler, env.listeners, &fakeAudit{}, &fakePublisher{}, log,
	)

	// A validated creator and an existing topic by default.
	env.users.users["acct-1"] = &models.User{AccountID: "acct-1", WalletAddress: "EQPayer", PublicKey: "aabb"}
	env.gateway.topics["topic-1"] = true

	return env
}

func creationPayload(t *testing.T, mutate func(m *CreationMessage)) []byte {
	t.Helper()
	m := CreationMessage{
		TxID:        "tx-1",
		TopicID:     "topic-1",
		Name:        "spring push",
		AccountID:   "acct-1",
		PrizePool:   "100",
		Requirement: "mention the launch",
		StartDate:   time.Now().Add(time.Hour).UTC(),
		EndDate:     time.Now().Add(25 * time.Hour).UTC(),
	}
	if mutate != nil {
		mutate(&m)
	}
	raw, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	return raw
}

func reasonOf(t *testing.T, err error) string {
	t.Helper()
	var e *apperrors.Error
	if !errors.As(err, &e) {
		t.Fatalf("expected apperrors.Error, got %T: %v", err, err)
	}
	return e.Msg
}

func TestVerifyAndCreate_Success(t *testing.T) {
	env := newCreationEnv(t)

	campaign, err := env.service.VerifyAndCreate(context.Background(), creationPayload(t, nil), "sig")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if campaign == nil || campaign.TopicID != "topic-1" {
		t.Fatal("campaign should be returned")
	}

	if !env.scheduler.armed("topic-1") {
		t.Error("end-of-life timer should be armed")
	}
	if !env.lstore.isActive("topic-1") {
		t.Error("topic listener should be active")
	}
	if env.gateway.subscribeCount("topic-1") != 1 {
		t.Error("exactly one subscription should be opened")
	}
}

func TestVerifyAndCreate_GateFailures(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(env *creationEnv)
		message    func(t *testing.T) []byte
		wantReason string
		wantKind   apperrors.Kind
	}{
		{
			name:       "malformed message",
			message:    func(t *testing.T) []byte { return []byte("{not json") },
			wantReason: ReasonInvalidFormat,
			wantKind:   apperrors.KindValidation,
		},
		{
			name: "missing fields",
			message: func(t *testing.T) []byte {
				return creationPayload(t, func(m *CreationMessage) { m.TopicID = "" })
			},
			wantReason: ReasonInvalidFormat,
			wantKind:   apperrors.KindValidation,
		},
		{
			name: "end before start",
			message: func(t *testing.T) []byte {
				return creationPayload(t, func(m *CreationMessage) { m.EndDate = m.StartDate.Add(-time.Hour) })
			},
			wantReason: ReasonInvalidFormat,
			wantKind:   apperrors.KindValidation,
		},
		{
			name: "unvalidated creator",
			message: func(t *testing.T) []byte {
				return creationPayload(t, func(m *CreationMessage) { m.AccountID = "stranger" })
			},
			wantReason: ReasonUserNotValidated,
			wantKind:   apperrors.KindNotFound,
		},
		{
			name:       "bad signature",
			setup:      func(env *creationEnv) { env.verifier.err = errBoom },
			message:    func(t *testing.T) []byte { return creationPayload(t, nil) },
			wantReason: ReasonInvalidSignature,
			wantKind:   apperrors.KindAuthentication,
		},
		{
			name: "unknown topic",
			message: func(t *testing.T) []byte {
				return creationPayload(t, func(m *CreationMessage) { m.TopicID = "ghost-topic" })
			},
			wantReason: ReasonTopicNotFound,
			wantKind:   apperrors.KindNotFound,
		},
		{
			name:       "deposit insufficient",
			setup:      func(env *creationEnv) { env.deposits.funded = false },
			message:    func(t *testing.T) []byte { return creationPayload(t, nil) },
			wantReason: ReasonDepositInsufficient,
			wantKind:   apperrors.KindValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newCreationEnv(t)
			if tt.setup != nil {
				tt.setup(env)
			}

			campaign, err := env.service.VerifyAndCreate(context.Background(), tt.message(t), "sig")
			if err == nil {
				t.Fatal("expected gate failure")
			}
			if campaign != nil {
				t.Error("no campaign should be returned on gate failure")
			}
			if got := reasonOf(t, err); got != tt.wantReason {
				t.Errorf("reason = %q, want %q", got, tt.wantReason)
			}
			if got := apperrors.KindOf(err); got != tt.wantKind {
				t.Errorf("kind = %v, want %v", got, tt.wantKind)
			}

			// No side effects: nothing inserted, nothing armed, nothing listening.
			if len(env.store.byTopic) != 0 {
				t.Error("gate failure must not insert a campaign")
			}
			if env.scheduler.armed("topic-1") {
				t.Error("gate failure must not arm a timer")
			}
		})
	}
}

func TestVerifyAndCreate_DuplicateCampaign(t *testing.T) {
	env := newCreationEnv(t)

	if _, err := env.service.VerifyAndCreate(context.Background(), creationPayload(t, nil), "sig"); err != nil {
		t.Fatalf("first create failed: %v", err)
	}

	// Same topic id, different tx id.
	dup := creationPayload(t, func(m *CreationMessage) { m.TxID = "tx-2" })
	_, err := env.service.VerifyAndCreate(context.Background(), dup, "sig")
	if err == nil {
		t.Fatal("expected duplicate campaign error")
	}
	if got := reasonOf(t, err); got != ReasonDuplicateCampaign {
		t.Errorf("reason = %q, want %q", got, ReasonDuplicateCampaign)
	}
	if !apperrors.IsKind(err, apperrors.KindConflict) {
		t.Error("duplicate should be a conflict")
	}
}

func TestVerifyAndCreate_PastEndDateProcessesImmediately(t *testing.T) {
	env := newCreationEnv(t)

	payload := creationPayload(t, func(m *CreationMessage) {
		m.StartDate = time.Now().Add(-2 * time.Hour).UTC()
		m.EndDate = time.Now().Add(-time.Hour).UTC()
	})

	if _, err := env.service.VerifyAndCreate(context.Background(), payload, "sig"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !waitFor(time.Second, func() bool { return env.processor.count("topic-1") == 1 }) {
		t.Fatal("already-ended campaign should be processed immediately on arm")
	}
}

func TestVerifyAndCreate_ListenerFailureKeepsCampaign(t *testing.T) {
	env := newCreationEnv(t)
	env.gateway.subErrs["topic-1"] = errBoom

	campaign, err := env.service.VerifyAndCreate(context.Background(), creationPayload(t, nil), "sig")
	if err == nil {
		t.Fatal("listener failure should be surfaced")
	}
	if campaign == nil {
		t.Fatal("committed campaign should be returned despite the listener failure")
	}
	if len(env.store.byTopic) != 1 {
		t.Error("campaign row must remain for the sweep to reach")
	}
	if env.lstore.isActive("topic-1") {
		t.Error("listener row should be deactivated after the subscribe failure")
	}
}
