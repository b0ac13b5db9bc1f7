package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/topicrally/backend/internal/apperrors"
	"github.com/topicrally/backend/internal/events"
	"github.com/topicrally/backend/internal/models"
	"github.com/topicrally/backend/internal/ton"
)

// In-memory fakes for the collaborator interfaces.

type fakeCampaignStore struct {
	mu       sync.Mutex
	byTopic  map[string]*models.Campaign
	byTx     map[string]bool
	listErr  error
	storeErr error
}

func newFakeCampaignStore() *fakeCampaignStore {
	return &fakeCampaignStore{
		byTopic: make(map[string]*models.Campaign),
		byTx:    make(map[string]bool),
	}
}

func (f *fakeCampaignStore) Create(ctx context.Context, c *models.Campaign) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.storeErr != nil {
		return f.storeErr
	}
	if _, ok := f.byTopic[c.TopicID]; ok || f.byTx[c.TxID] {
		return apperrors.New(apperrors.KindConflict, "campaign already exists for this topic or transaction")
	}
	cp := *c
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	f.byTopic[c.TopicID] = &cp
	f.byTx[c.TxID] = true
	return nil
}

func (f *fakeCampaignStore) GetPendingByTopicID(ctx context.Context, topicID string) (*models.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byTopic[topicID]
	if !ok || c.RewardsDistributed {
		return nil, apperrors.New(apperrors.KindNotFound, "campaign not found")
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCampaignStore) ListDue(ctx context.Context, now time.Time) ([]models.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.Campaign
	for _, c := range f.byTopic {
		if !c.RewardsDistributed && !c.EndDate.After(now) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeCampaignStore) ListPendingAfter(ctx context.Context, now time.Time) ([]models.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.Campaign
	for _, c := range f.byTopic {
		if !c.RewardsDistributed && c.EndDate.After(now) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeCampaignStore) MarkDistributed(ctx context.Context, topicID string, resultTxID *string, results []models.RewardResult) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byTopic[topicID]
	if !ok || c.RewardsDistributed {
		return false, nil
	}
	c.RewardsDistributed = true
	c.ResultTxID = resultTxID
	c.Results = results
	return true, nil
}

func (f *fakeCampaignStore) put(c *models.Campaign) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byTopic[c.TopicID] = c
	f.byTx[c.TxID] = true
}

func (f *fakeCampaignStore) distributed(topicID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byTopic[topicID]
	return ok && c.RewardsDistributed
}

type fakeRewardEngine struct {
	mu    sync.Mutex
	calls []string
	errs  map[string]error
	delay time.Duration
	txID  *string
}

func newFakeRewardEngine() *fakeRewardEngine {
	return &fakeRewardEngine{errs: make(map[string]error)}
}

func (f *fakeRewardEngine) Distribute(ctx context.Context, topicID string) (*DistributionResult, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	f.calls = append(f.calls, topicID)
	err := f.errs[topicID]
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return &DistributionResult{ResultTxID: f.txID}, nil
}

func (f *fakeRewardEngine) callCount(topicID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == topicID {
			n++
		}
	}
	return n
}

type fakeProcessor struct {
	mu        sync.Mutex
	processed []string
	errs      map[string]error
}

func newFakeProcessor() *fakeProcessor {
	return &fakeProcessor{errs: make(map[string]error)}
}

func (f *fakeProcessor) Process(ctx context.Context, topicID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.processed = append(f.processed, topicID)
	return f.errs[topicID]
}

func (f *fakeProcessor) count(topicID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, p := range f.processed {
		if p == topicID {
			n++
		}
	}
	return n
}

func (f *fakeProcessor) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.processed)
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []models.AuditLog
}

func (f *fakeAudit) Log(ctx context.Context, entry models.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (f *fakePublisher) Publish(ctx context.Context, stream string, event events.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

type fakeListenerStore struct {
	mu   sync.Mutex
	rows map[string]*models.TopicListener
}

func newFakeListenerStore() *fakeListenerStore {
	return &fakeListenerStore{rows: make(map[string]*models.TopicListener)}
}

func (f *fakeListenerStore) GetByTopic(ctx context.Context, topicID string) (*models.TopicListener, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.rows[topicID]
	if !ok {
		return nil, apperrors.New(apperrors.KindNotFound, "listener not found")
	}
	cp := *l
	return &cp, nil
}

func (f *fakeListenerStore) SetActive(ctx context.Context, topicID string, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[topicID] = &models.TopicListener{TopicID: topicID, IsActive: active, UpdatedAt: time.Now()}
	return nil
}

func (f *fakeListenerStore) ListActive(ctx context.Context) ([]models.TopicListener, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.TopicListener
	for _, l := range f.rows {
		if l.IsActive {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (f *fakeListenerStore) isActive(topicID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.rows[topicID]
	return ok && l.IsActive
}

type fakeMessageStore struct {
	mu       sync.Mutex
	appended []models.TopicMessage
}

func (f *fakeMessageStore) Append(ctx context.Context, m *models.TopicMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appended = append(f.appended, *m)
	return nil
}

func (f *fakeMessageStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.appended)
}

type fakeGateway struct {
	mu         sync.Mutex
	topics     map[string]bool
	existsErr  error
	subErrs    map[string]error
	subChans   map[string]chan ton.Message
	subscribed []string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		topics:   make(map[string]bool),
		subErrs:  make(map[string]error),
		subChans: make(map[string]chan ton.Message),
	}
}

func (f *fakeGateway) TopicExists(ctx context.Context, topicID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.existsErr != nil {
		return false, f.existsErr
	}
	return f.topics[topicID], nil
}

func (f *fakeGateway) Subscribe(ctx context.Context, topicID string) (<-chan ton.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.subErrs[topicID]; err != nil {
		return nil, err
	}
	ch := make(chan ton.Message, 16)
	f.subChans[topicID] = ch
	f.subscribed = append(f.subscribed, topicID)
	return ch, nil
}

func (f *fakeGateway) push(topicID string, msg ton.Message) {
	f.mu.Lock()
	ch := f.subChans[topicID]
	f.mu.Unlock()
	ch <- msg
}

func (f *fakeGateway) subscribeCount(topicID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.subscribed {
		if s == topicID {
			n++
		}
	}
	return n
}

type fakeUserStore struct {
	users map[string]*models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]*models.User)}
}

func (f *fakeUserStore) GetByAccountID(ctx context.Context, accountID string) (*models.User, error) {
	u, ok := f.users[accountID]
	if !ok {
		return nil, apperrors.New(apperrors.KindNotFound, "user not found")
	}
	return u, nil
}

type fakeVerifier struct {
	err error
}

func (f *fakeVerifier) VerifyMessage(message []byte, signatureHex, publicKeyHex string) error {
	return f.err
}

type fakeDepositOracle struct {
	funded bool
	err    error
}

func (f *fakeDepositOracle) VerifyDeposit(ctx context.Context, payerAddress, topicID, requiredTON string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.funded, nil
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

var errBoom = errors.New("boom")
