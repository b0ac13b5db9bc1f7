package ton

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/topicrally/backend/internal/config"
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/liteclient"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/ton"
	"go.uber.org/zap"
)

const txBatchSize = 100

// Message is one broadcast message observed on a topic: the text comment of an
// incoming transfer to the topic account, stamped with the block time.
type Message struct {
	TopicID            string
	Body               string
	ConsensusTimestamp *time.Time
}

// Client is the ledger gateway. A topic is a TON account address: existence is
// the account being active, and subscribing means following the account's
// incoming transfers and surfacing their text comments.
type Client struct {
	api          ton.APIClientWrapped
	pollInterval time.Duration
	log          *zap.Logger
}

// Connect establishes the lite server connection. A specific lite server is used
// when configured, otherwise peers are discovered from the global network config.
func Connect(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Client, error) {
	pool := liteclient.NewConnectionPool()

	if cfg.LiteServerHost != "" && cfg.LiteServerKey != "" {
		addr := fmt.Sprintf("%s:%d", cfg.LiteServerHost, cfg.LiteServerPort)
		log.Info("connecting to lite server", zap.String("addr", addr))
		if err := pool.AddConnection(ctx, addr, cfg.LiteServerKey); err != nil {
			return nil, fmt.Errorf("connect to lite server %s: %w", addr, err)
		}
	} else {
		var configURL string
		switch strings.ToLower(cfg.TONNetwork) {
		case "mainnet":
			configURL = "https://ton.org/global.config.json"
		default:
			configURL = "https://ton.org/testnet-global.config.json"
		}
		log.Info("connecting via global config", zap.String("url", configURL), zap.String("network", cfg.TONNetwork))
		if err := pool.AddConnectionsFromConfigUrl(ctx, configURL); err != nil {
			return nil, fmt.Errorf("connect via config %s: %w", configURL, err)
		}
	}

	proofPolicy := ton.ProofCheckPolicyFast
	if strings.ToLower(cfg.TONNetwork) == "mainnet" {
		proofPolicy = ton.ProofCheckPolicySecure
	}

	pollInterval := cfg.LedgerPollInterval
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}

	return &Client{
		api:          ton.NewAPIClient(pool, proofPolicy).WithRetry(),
		pollInterval: pollInterval,
		log:          log,
	}, nil
}

// TopicExists reports whether the topic account is deployed and active.
func (c *Client) TopicExists(ctx context.Context, topicID string) (bool, error) {
	addr, err := address.ParseAddr(topicID)
	if err != nil {
		return false, nil
	}

	account, err := c.getAccount(ctx, addr)
	if err != nil {
		return false, err
	}
	return account != nil && account.IsActive, nil
}

// Subscribe opens a message stream for a topic. The returned channel carries
// every text comment arriving on the topic account after the subscription was
// opened, in chronological order, and is closed when ctx is cancelled.
//
// Transient poll failures are logged and retried on the next tick; they do not
// terminate the stream.
func (c *Client) Subscribe(ctx context.Context, topicID string) (<-chan Message, error) {
	addr, err := address.ParseAddr(topicID)
	if err != nil {
		return nil, fmt.Errorf("invalid topic address %q: %w", topicID, err)
	}

	account, err := c.getAccount(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("resolve topic account: %w", err)
	}
	if account == nil || !account.IsActive {
		return nil, fmt.Errorf("topic account %s is not active", topicID)
	}

	// Cursor starts at the account's current state so only new messages flow.
	cursorLT := account.LastTxLT

	out := make(chan Message, 64)
	go func() {
		defer close(out)

		ticker := time.NewTicker(c.pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				newLT, err := c.pollTopic(ctx, addr, topicID, cursorLT, out)
				if err != nil {
					c.log.Warn("topic poll failed",
						zap.String("topic_id", topicID),
						zap.Error(err),
					)
					continue
				}
				cursorLT = newLT
			}
		}
	}()

	return out, nil
}

// pollTopic fetches transactions newer than cursorLT and emits their comments.
// Returns the advanced cursor.
func (c *Client) pollTopic(ctx context.Context, addr *address.Address, topicID string, cursorLT uint64, out chan<- Message) (uint64, error) {
	account, err := c.getAccount(ctx, addr)
	if err != nil {
		return cursorLT, err
	}
	if account == nil || !account.IsActive || account.LastTxLT <= cursorLT {
		return cursorLT, nil
	}

	txs, err := c.fetchNewTransactions(ctx, addr, account, cursorLT)
	if err != nil {
		return cursorLT, err
	}

	for _, tx := range txs {
		body := extractComment(tx)
		if body == "" {
			continue
		}
		ts := time.Unix(int64(tx.Now), 0).UTC()
		msg := Message{TopicID: topicID, Body: body, ConsensusTimestamp: &ts}
		select {
		case out <- msg:
		case <-ctx.Done():
			return cursorLT, ctx.Err()
		}
	}

	return account.LastTxLT, nil
}

func (c *Client) getAccount(ctx context.Context, addr *address.Address) (*tlb.Account, error) {
	block, err := c.api.CurrentMasterchainInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("get master block: %w", err)
	}
	return c.api.GetAccount(ctx, block, addr)
}

// fetchNewTransactions retrieves all transactions with LT > cursorLT.
// ListTransactions paginates oldest-first; we walk backwards until the cursor
// and return the remainder in chronological order.
func (c *Client) fetchNewTransactions(ctx context.Context, addr *address.Address, account *tlb.Account, cursorLT uint64) ([]*tlb.Transaction, error) {
	var allTxs []*tlb.Transaction

	lt := account.LastTxLT
	hash := account.LastTxHash

	for {
		txs, err := c.api.ListTransactions(ctx, addr, uint32(txBatchSize), lt, hash)
		if err != nil {
			return nil, fmt.Errorf("list transactions (lt=%d): %w", lt, err)
		}
		if len(txs) == 0 {
			break
		}

		reachedCursor := false
		for _, tx := range txs {
			if tx.LT <= cursorLT {
				reachedCursor = true
				continue
			}
			allTxs = append(allTxs, tx)
		}

		if reachedCursor || len(txs) < txBatchSize {
			break
		}

		oldest := txs[0]
		if oldest.PrevTxLT == 0 {
			break
		}
		lt = oldest.PrevTxLT
		hash = oldest.PrevTxHash
	}

	sort.Slice(allTxs, func(i, j int) bool {
		return allTxs[i].LT < allTxs[j].LT
	})

	return allTxs, nil
}

// extractComment parses the text comment of an incoming transfer.
// Text comments carry opcode 0x00000000 followed by UTF-8 text.
func extractComment(tx *tlb.Transaction) string {
	if tx.IO.In == nil {
		return ""
	}
	inMsg, ok := tx.IO.In.Msg.(*tlb.InternalMessage)
	if !ok || inMsg == nil || inMsg.Bounced {
		return ""
	}
	return internalMessageComment(inMsg)
}

func internalMessageComment(inMsg *tlb.InternalMessage) string {
	body := inMsg.Body
	if body == nil {
		return ""
	}

	slice := body.BeginParse()
	if slice.BitsLeft() < 32 {
		return ""
	}

	op, err := slice.LoadUInt(32)
	if err != nil || op != 0 {
		return ""
	}

	remaining := slice.BitsLeft()
	if remaining < 8 {
		return ""
	}

	data, err := slice.LoadSlice(remaining)
	if err != nil {
		return ""
	}

	return strings.TrimSpace(string(data))
}
