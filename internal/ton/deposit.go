package ton

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tlb"
	"go.uber.org/zap"
)

// DepositOracle answers whether a creator has escrowed enough funds for a
// campaign. Deposits are transfers to the platform's escrow hot wallet carrying
// the topic id as the text memo; the oracle walks the wallet's recent
// transactions and sums matching transfers from the payer.
type DepositOracle struct {
	client       *Client
	escrowWallet *address.Address
	lookbackTxs  int
	log          *zap.Logger
}

func NewDepositOracle(client *Client, escrowWallet string, lookbackTxs int, log *zap.Logger) (*DepositOracle, error) {
	if escrowWallet == "" {
		return nil, fmt.Errorf("escrow wallet address is required")
	}
	addr, err := address.ParseAddr(escrowWallet)
	if err != nil {
		return nil, fmt.Errorf("invalid escrow wallet address: %w", err)
	}
	if lookbackTxs <= 0 {
		lookbackTxs = 200
	}
	return &DepositOracle{
		client:       client,
		escrowWallet: addr,
		lookbackTxs:  lookbackTxs,
		log:          log,
	}, nil
}

// VerifyDeposit reports whether the payer has transferred at least requiredTON
// (decimal TON string) to the escrow wallet with the topic id as memo.
func (o *DepositOracle) VerifyDeposit(ctx context.Context, payerAddress, topicID, requiredTON string) (bool, error) {
	required, err := ParseTON(requiredTON)
	if err != nil {
		return false, fmt.Errorf("invalid required amount: %w", err)
	}

	payer, err := address.ParseAddr(payerAddress)
	if err != nil {
		return false, fmt.Errorf("invalid payer address: %w", err)
	}

	account, err := o.client.getAccount(ctx, o.escrowWallet)
	if err != nil {
		return false, fmt.Errorf("get escrow account: %w", err)
	}
	if account == nil || !account.IsActive || account.LastTxLT == 0 {
		return false, nil
	}

	deposited := new(big.Int)
	memo := strings.TrimSpace(topicID)

	lt := account.LastTxLT
	hash := account.LastTxHash
	seen := 0

	for seen < o.lookbackTxs {
		txs, err := o.client.api.ListTransactions(ctx, o.escrowWallet, uint32(txBatchSize), lt, hash)
		if err != nil {
			return false, fmt.Errorf("list escrow transactions: %w", err)
		}
		if len(txs) == 0 {
			break
		}

		for _, tx := range txs {
			seen++
			o.addMatchingTransfer(tx, payer, memo, deposited)
		}

		if len(txs) < txBatchSize {
			break
		}
		oldest := txs[0]
		if oldest.PrevTxLT == 0 {
			break
		}
		lt = oldest.PrevTxLT
		hash = oldest.PrevTxHash
	}

	sufficient := deposited.Cmp(required) >= 0
	o.log.Debug("deposit check",
		zap.String("topic_id", topicID),
		zap.String("payer", payerAddress),
		zap.String("deposited_nano", deposited.String()),
		zap.String("required_nano", required.String()),
		zap.Bool("sufficient", sufficient),
	)
	return sufficient, nil
}

func (o *DepositOracle) addMatchingTransfer(tx *tlb.Transaction, payer *address.Address, memo string, total *big.Int) {
	if tx.IO.In == nil {
		return
	}
	inMsg, ok := tx.IO.In.Msg.(*tlb.InternalMessage)
	if !ok || inMsg == nil || inMsg.Bounced {
		return
	}
	if inMsg.Amount.Nano().Sign() <= 0 {
		return
	}
	if inMsg.SrcAddr == nil || !inMsg.SrcAddr.Equals(payer) {
		return
	}
	if internalMessageComment(inMsg) != memo {
		return
	}
	total.Add(total, inMsg.Amount.Nano())
}
